package trigger

import (
	"context"
)

// Check names.
const (
	SelfMessageFilterName   = "self_message_filter"
	MentionFilterName       = "mention_filter"
	SingleTokenFilterName   = "single_token_filter"
	KnownSoundFilterName    = "known_sound_filter"
	VoicePresenceFilterName = "voice_presence_filter"
	CooldownFilterName      = "cooldown_filter"
)

// SelfMessageFilter rejects messages written by the bot itself or by other bots.
type SelfMessageFilter struct{}

func (f *SelfMessageFilter) Name() string {
	return SelfMessageFilterName
}

func (f *SelfMessageFilter) Description() string {
	return "Ignores messages written by the bot itself or by other bots"
}

func (f *SelfMessageFilter) ReturnCodes() []string {
	return []string{"self_message"}
}

func (f *SelfMessageFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *SelfMessageFilter) Check(ctx context.Context, req Request) Result {
	if req.Message.AuthorID == req.BotID || req.Message.AuthorIsBot {
		return Reject("self_message")
	}
	return Accept()
}

// MentionFilter requires the bot to be the one and only user mentioned.
type MentionFilter struct{}

func (f *MentionFilter) Name() string {
	return MentionFilterName
}

func (f *MentionFilter) Description() string {
	return "Requires the bot to be the only user mentioned"
}

func (f *MentionFilter) ReturnCodes() []string {
	return []string{"not_mentioned"}
}

func (f *MentionFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *MentionFilter) Check(ctx context.Context, req Request) Result {
	if !req.Message.Mentions(req.BotID) || len(req.Message.MentionedIDs) != 1 {
		return Reject("not_mentioned")
	}
	return Accept()
}

// SingleTokenFilter requires exactly one token besides the mention.
type SingleTokenFilter struct{}

func (f *SingleTokenFilter) Name() string {
	return SingleTokenFilterName
}

func (f *SingleTokenFilter) Description() string {
	return "Requires exactly one word besides the mention"
}

func (f *SingleTokenFilter) ReturnCodes() []string {
	return []string{"token_count"}
}

func (f *SingleTokenFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *SingleTokenFilter) Check(ctx context.Context, req Request) Result {
	if len(req.Tokens) != 1 {
		return Reject("token_count")
	}
	return Accept()
}

// KnownSoundFilter requires the token to match a catalog keyword.
type KnownSoundFilter struct{}

func (f *KnownSoundFilter) Name() string {
	return KnownSoundFilterName
}

func (f *KnownSoundFilter) Description() string {
	return "Requires the word to be a sound keyword"
}

func (f *KnownSoundFilter) ReturnCodes() []string {
	return []string{"unknown_sound"}
}

func (f *KnownSoundFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *KnownSoundFilter) Check(ctx context.Context, req Request) Result {
	if req.Sound == nil {
		return Reject("unknown_sound")
	}
	return Accept()
}

// VoicePresenceFilter requires the author to be connected to a voice channel.
type VoicePresenceFilter struct{}

func (f *VoicePresenceFilter) Name() string {
	return VoicePresenceFilterName
}

func (f *VoicePresenceFilter) Description() string {
	return "Requires the author to be in a voice channel"
}

func (f *VoicePresenceFilter) ReturnCodes() []string {
	return []string{"not_in_voice"}
}

func (f *VoicePresenceFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *VoicePresenceFilter) Check(ctx context.Context, req Request) Result {
	if !req.InVoice {
		return Reject("not_in_voice")
	}
	return Accept()
}

func init() {
	Register(SelfMessageFilterName, func() Filter { return &SelfMessageFilter{} })
	Register(MentionFilterName, func() Filter { return &MentionFilter{} })
	Register(SingleTokenFilterName, func() Filter { return &SingleTokenFilter{} })
	Register(KnownSoundFilterName, func() Filter { return &KnownSoundFilter{} })
	Register(VoicePresenceFilterName, func() Filter { return &VoicePresenceFilter{} })
}
