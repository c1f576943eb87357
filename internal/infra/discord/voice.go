package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/noisebox/internal/app/playback"
	"github.com/osa030/noisebox/internal/domain/sound"
)

const readyPollInterval = 10 * time.Millisecond

var (
	ErrNotReady     = errors.New("voice connection not ready")
	ErrFrameTimeout = errors.New("timed out sending opus frame")
	ErrForeignConn  = errors.New("connection was not created by this provider")
)

// voiceConn is a guild voice connection bound to one channel.
type voiceConn struct {
	ch playback.Channel
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) Channel() playback.Channel {
	return c.ch
}

// VoiceProvider joins, plays in and leaves voice channels through a gateway session.
// Discord allows one voice connection per guild, so channels of the same guild share it.
type VoiceProvider struct {
	session      *discordgo.Session
	readyTimeout time.Duration
	frameTimeout time.Duration
}

// NewVoiceProvider creates a voice provider.
func NewVoiceProvider(session *discordgo.Session, cfg Config) *VoiceProvider {
	return &VoiceProvider{
		session:      session,
		readyTimeout: cfg.ReadyTimeout,
		frameTimeout: cfg.FrameTimeout,
	}
}

// Connection returns the guild's voice connection if it is on ch.
func (p *VoiceProvider) Connection(ch playback.Channel) (playback.Connection, bool) {
	vc := p.guildConnection(ch.GuildID)
	if vc == nil || channelOf(vc) != ch.ID {
		return nil, false
	}
	return &voiceConn{ch: ch, vc: vc}, true
}

// Join connects to ch. ChannelVoiceJoin cannot be cancelled, so when ctx ends first
// the join keeps going in the background and a late connection is reused by Connection.
func (p *VoiceProvider) Join(ctx context.Context, ch playback.Channel) (playback.Connection, error) {
	type joinResult struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	done := make(chan joinResult, 1)

	go func() {
		vc, err := p.session.ChannelVoiceJoin(ch.GuildID, ch.ID, false, true)
		done <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "failed to join %s", ch)
		}
		zlog.Info().Msgf("discord: joined voice channel: channel=%s", ch)
		return &voiceConn{ch: ch, vc: r.vc}, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				zlog.Warn().Msgf("discord: join completed after timeout: channel=%s", ch)
			}
		}()
		return nil, errors.Wrapf(ctx.Err(), "join %s", ch)
	}
}

// Play sends the sound's frames over conn and returns when the last frame is accepted.
func (p *VoiceProvider) Play(ctx context.Context, conn playback.Connection, s *sound.Sound) error {
	c, ok := conn.(*voiceConn)
	if !ok || c.vc == nil {
		return ErrForeignConn
	}

	if err := p.waitReady(ctx, c.vc); err != nil {
		return errors.Wrapf(err, "play %s in %s", s.ID, c.ch)
	}

	if err := c.vc.Speaking(true); err != nil {
		zlog.Warn().Msgf("discord: failed to set speaking: channel=%s err=%v", c.ch, err)
	}
	defer func() {
		if err := c.vc.Speaking(false); err != nil {
			zlog.Debug().Msgf("discord: failed to clear speaking: channel=%s err=%v", c.ch, err)
		}
	}()

	timer := time.NewTimer(p.frameTimeout)
	defer timer.Stop()

	for i, frame := range s.Frames {
		timer.Reset(p.frameTimeout)
		select {
		case c.vc.OpusSend <- frame:
		case <-timer.C:
			return errors.Wrapf(ErrFrameTimeout, "frame %d/%d of %s", i+1, len(s.Frames), s.ID)
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "play %s in %s", s.ID, c.ch)
		}
	}

	zlog.Debug().Msgf("discord: sent %d frames: sound=%s channel=%s", len(s.Frames), s.ID, c.ch)
	return nil
}

// Leave disconnects the guild's voice connection if it is on ch.
func (p *VoiceProvider) Leave(ctx context.Context, ch playback.Channel) error {
	vc := p.guildConnection(ch.GuildID)
	if vc == nil || channelOf(vc) != ch.ID {
		return nil
	}

	if err := vc.Disconnect(); err != nil {
		return errors.Wrapf(err, "failed to leave %s", ch)
	}
	zlog.Info().Msgf("discord: left voice channel: channel=%s", ch)
	return nil
}

func (p *VoiceProvider) waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	if isReady(vc) {
		return nil
	}

	deadline := time.NewTimer(p.readyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if isReady(vc) {
				return nil
			}
		case <-deadline.C:
			return errors.Wrapf(ErrNotReady, "after %v", p.readyTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *VoiceProvider) guildConnection(guildID string) *discordgo.VoiceConnection {
	p.session.RLock()
	defer p.session.RUnlock()
	return p.session.VoiceConnections[guildID]
}

func isReady(vc *discordgo.VoiceConnection) bool {
	vc.RLock()
	defer vc.RUnlock()
	return vc.Ready
}

func channelOf(vc *discordgo.VoiceConnection) string {
	vc.RLock()
	defer vc.RUnlock()
	return vc.ChannelID
}
