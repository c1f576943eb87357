// Package discord provides the Discord gateway and voice transport.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/noisebox/internal/app/trigger"
)

// Intents required to see mentions, message content and voice channel members.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildVoiceStates |
	discordgo.IntentMessageContent

// Config holds the Discord settings.
type Config struct {
	Token        string
	ReadyTimeout time.Duration // Wait for a voice connection to become ready
	FrameTimeout time.Duration // Wait for a single opus frame to be accepted
}

// MessageHandler handles guild messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg trigger.Message) bool
}

// Bot wraps a Discord gateway session.
type Bot struct {
	session *discordgo.Session

	mu      sync.RWMutex
	handler MessageHandler

	ctx    context.Context
	cancel context.CancelFunc
}

func init() {
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			zlog.Error().Msgf("discordgo: %s", msg)
		case discordgo.LogWarning:
			zlog.Warn().Msgf("discordgo: %s", msg)
		case discordgo.LogInformational:
			zlog.Info().Msgf("discordgo: %s", msg)
		default:
			zlog.Debug().Msgf("discordgo: %s", msg)
		}
	}
}

// New creates a bot session. The gateway is not connected until Open.
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is required")
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	s.Identify.Intents = Intents

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		session: s,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.AddHandler(b.onReady)
	s.AddHandler(b.onMessageCreate)
	return b, nil
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Open connects to the gateway and starts dispatching messages to handler.
func (b *Bot) Open(handler MessageHandler) error {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open Discord session")
	}
	return nil
}

// Close disconnects from the gateway. In-flight handlers see a cancelled context.
func (b *Bot) Close() error {
	b.cancel()
	if err := b.session.Close(); err != nil {
		return errors.Wrap(err, "failed to close Discord session")
	}
	return nil
}

// UserID returns the bot's user ID, or "" before the session is ready.
func (b *Bot) UserID() string {
	if b.session.State == nil {
		return ""
	}
	b.session.State.RLock()
	defer b.session.State.RUnlock()
	if b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	zlog.Info().Msgf("discord: ready: user=%s#%s guilds=%d", r.User.Username, r.User.Discriminator, len(r.Guilds))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}

	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h == nil {
		return
	}

	h.HandleMessage(b.ctx, toMessage(m.Message))
}

func toMessage(m *discordgo.Message) trigger.Message {
	mentions := make([]string, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		if u != nil {
			mentions = append(mentions, u.ID)
		}
	}

	msg := trigger.Message{
		ID:           m.ID,
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		Content:      m.Content,
		MentionedIDs: mentions,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorIsBot = m.Author.Bot
	}
	return msg
}
