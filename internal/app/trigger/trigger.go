// Package trigger provides the check chain that decides whether a chat message triggers a sound.
package trigger

import (
	"context"
	"strings"

	"github.com/osa030/noisebox/internal/app/playback"
	"github.com/osa030/noisebox/internal/domain/sound"
)

// Message is a chat message as seen by the trigger checks.
type Message struct {
	ID           string
	GuildID      string
	ChannelID    string // Text channel the message was posted in
	AuthorID     string
	AuthorIsBot  bool
	Content      string
	MentionedIDs []string
}

// Mentions reports whether the message mentions the user.
func (m Message) Mentions(userID string) bool {
	for _, id := range m.MentionedIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Request represents a candidate trigger to be validated.
type Request struct {
	Message Message
	BotID   string
	Tokens  []string
	Sound   *sound.Sound     // nil when no sound matches
	Voice   playback.Channel // Author's voice channel
	InVoice bool             // false when the author is not in a voice channel
}

// Tokens splits content on whitespace and drops mentions of the bot.
func Tokens(content, botID string) []string {
	fields := strings.Fields(content)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "<@"+botID+">" || f == "<@!"+botID+">" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Result represents the result of a check.
type Result struct {
	Accepted bool
	Code     string // e.g., "not_mentioned", "unknown_sound", "cooldown"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for trigger checks.
type Filter interface {
	// Name returns the check name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this check can return.
	ReturnCodes() []string
	// ValidateConfig validates the check settings.
	ValidateConfig(settings map[string]any) error
	// Check performs the check.
	Check(ctx context.Context, req Request) Result
}

// registry holds registered check factories.
var registry = make(map[string]func() Filter)

// Register registers a check factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered check factories.
func GetRegistered() map[string]func() Filter {
	return registry
}
