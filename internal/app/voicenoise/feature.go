// Package voicenoise plays a sound in the author's voice channel when the bot is
// mentioned with a sound keyword.
package voicenoise

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/noisebox/internal/app/playback"
	"github.com/osa030/noisebox/internal/app/trigger"
	"github.com/osa030/noisebox/internal/domain/sound"
)

// Sounds resolves a chat token to a sound.
type Sounds interface {
	Lookup(token string) (*sound.Sound, bool)
}

// Presence resolves the voice channel a user is connected to.
type Presence interface {
	UserVoiceChannel(guildID, userID string) (playback.Channel, bool)
}

// Enqueuer accepts playback requests.
type Enqueuer interface {
	Enqueue(ch playback.Channel, s *sound.Sound)
}

// Feature turns chat messages into playback requests.
type Feature struct {
	botID    func() string
	chain    *trigger.Chain
	sounds   Sounds
	presence Presence
	queue    Enqueuer
}

// NewFeature creates a new voice noise feature.
// botID is evaluated per message since the bot's identity is known only after login.
func NewFeature(botID func() string, chain *trigger.Chain, sounds Sounds, presence Presence, queue Enqueuer) *Feature {
	return &Feature{
		botID:    botID,
		chain:    chain,
		sounds:   sounds,
		presence: presence,
		queue:    queue,
	}
}

// HandleMessage enqueues a sound when msg is a valid trigger and reports whether it did.
func (f *Feature) HandleMessage(ctx context.Context, msg trigger.Message) bool {
	req := f.buildRequest(msg)

	result := f.chain.Execute(ctx, req)
	if !result.Accepted {
		zlog.Debug().Msgf("voicenoise: message ignored: id=%s author=%s code=%s", msg.ID, msg.AuthorID, result.Code)
		return false
	}

	zlog.Info().Msgf("voicenoise: triggered: sound=%s channel=%s author=%s", req.Sound.ID, req.Voice, msg.AuthorID)
	f.queue.Enqueue(req.Voice, req.Sound)
	return true
}

// CheckNames returns the configured check chain in evaluation order.
func (f *Feature) CheckNames() []string {
	return f.chain.Names()
}

func (f *Feature) buildRequest(msg trigger.Message) trigger.Request {
	botID := f.botID()
	req := trigger.Request{
		Message: msg,
		BotID:   botID,
		Tokens:  trigger.Tokens(msg.Content, botID),
	}

	if len(req.Tokens) == 1 {
		if s, ok := f.sounds.Lookup(req.Tokens[0]); ok {
			req.Sound = s
		}
	}

	// Direct messages have no guild and therefore no voice channel
	if msg.GuildID != "" {
		req.Voice, req.InVoice = f.presence.UserVoiceChannel(msg.GuildID, msg.AuthorID)
	}
	return req
}
