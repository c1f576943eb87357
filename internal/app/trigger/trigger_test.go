package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/noisebox/internal/app/playback"
	"github.com/osa030/noisebox/internal/domain/sound"
)

const botID = "100"

func TestTokens(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "mention then keyword", content: "<@100> haha", want: []string{"haha"}},
		{name: "nickname mention", content: "<@!100>   haha!", want: []string{"haha!"}},
		{name: "keyword then mention", content: "ostrich <@100>", want: []string{"ostrich"}},
		{name: "other mentions kept", content: "<@100> <@200> haha", want: []string{"<@200>", "haha"}},
		{name: "mention only", content: "<@100>", want: []string{}},
		{name: "multiple words", content: "<@100> haha haha", want: []string{"haha", "haha"}},
		{name: "newlines and tabs", content: "<@100>\n\thaha\n", want: []string{"haha"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.content, botID))
		})
	}
}

func validRequest() Request {
	return Request{
		Message: Message{
			ID:           "m1",
			GuildID:      "g1",
			ChannelID:    "text1",
			AuthorID:     "u1",
			Content:      "<@100> haha",
			MentionedIDs: []string{botID},
		},
		BotID:   botID,
		Tokens:  []string{"haha"},
		Sound:   sound.New("OSTRICH", "ostrich.dca", []string{"haha"}, [][]byte{{1}}),
		Voice:   playback.Channel{GuildID: "g1", ID: "voice1"},
		InVoice: true,
	}
}

func TestMessageChecks(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		mutate   func(*Request)
		wantCode string
	}{
		{name: "self message accepted", filter: &SelfMessageFilter{}, mutate: func(*Request) {}},
		{
			name:     "own message rejected",
			filter:   &SelfMessageFilter{},
			mutate:   func(r *Request) { r.Message.AuthorID = botID },
			wantCode: "self_message",
		},
		{
			name:     "other bot rejected",
			filter:   &SelfMessageFilter{},
			mutate:   func(r *Request) { r.Message.AuthorIsBot = true },
			wantCode: "self_message",
		},
		{name: "mention accepted", filter: &MentionFilter{}, mutate: func(*Request) {}},
		{
			name:     "no mention rejected",
			filter:   &MentionFilter{},
			mutate:   func(r *Request) { r.Message.MentionedIDs = nil },
			wantCode: "not_mentioned",
		},
		{
			name:     "other user mentioned rejected",
			filter:   &MentionFilter{},
			mutate:   func(r *Request) { r.Message.MentionedIDs = []string{"200"} },
			wantCode: "not_mentioned",
		},
		{
			name:     "extra mention rejected",
			filter:   &MentionFilter{},
			mutate:   func(r *Request) { r.Message.MentionedIDs = []string{botID, "200"} },
			wantCode: "not_mentioned",
		},
		{name: "single token accepted", filter: &SingleTokenFilter{}, mutate: func(*Request) {}},
		{
			name:     "no token rejected",
			filter:   &SingleTokenFilter{},
			mutate:   func(r *Request) { r.Tokens = nil },
			wantCode: "token_count",
		},
		{
			name:     "two tokens rejected",
			filter:   &SingleTokenFilter{},
			mutate:   func(r *Request) { r.Tokens = []string{"haha", "haha"} },
			wantCode: "token_count",
		},
		{name: "known sound accepted", filter: &KnownSoundFilter{}, mutate: func(*Request) {}},
		{
			name:     "unknown sound rejected",
			filter:   &KnownSoundFilter{},
			mutate:   func(r *Request) { r.Sound = nil },
			wantCode: "unknown_sound",
		},
		{name: "in voice accepted", filter: &VoicePresenceFilter{}, mutate: func(*Request) {}},
		{
			name:     "not in voice rejected",
			filter:   &VoicePresenceFilter{},
			mutate:   func(r *Request) { r.InVoice = false },
			wantCode: "not_in_voice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			result := tt.filter.Check(context.Background(), req)
			if tt.wantCode == "" {
				assert.True(t, result.Accepted)
				return
			}
			assert.False(t, result.Accepted)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Contains(t, tt.filter.ReturnCodes(), result.Code)
		})
	}
}

func TestBuild(t *testing.T) {
	t.Run("required checks only", func(t *testing.T) {
		chain, err := Build(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			SelfMessageFilterName,
			MentionFilterName,
			SingleTokenFilterName,
			KnownSoundFilterName,
			VoicePresenceFilterName,
		}, chain.Names())
	})

	t.Run("cooldown enabled runs last", func(t *testing.T) {
		chain, err := Build(map[string]Settings{
			CooldownFilterName: {Enabled: true, Settings: map[string]any{"interval_ms": 500}},
		})
		require.NoError(t, err)
		names := chain.Names()
		require.Len(t, names, 6)
		assert.Equal(t, CooldownFilterName, names[5])
	})

	t.Run("cooldown disabled", func(t *testing.T) {
		chain, err := Build(map[string]Settings{
			CooldownFilterName: {Enabled: false},
		})
		require.NoError(t, err)
		assert.NotContains(t, chain.Names(), CooldownFilterName)
	})

	t.Run("unknown check", func(t *testing.T) {
		_, err := Build(map[string]Settings{"market_filter": {Enabled: true}})
		assert.Error(t, err)
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, err := Build(map[string]Settings{
			CooldownFilterName: {Enabled: true, Settings: map[string]any{"interval_ms": 10}},
		})
		assert.Error(t, err)
	})
}

func TestChain_Execute(t *testing.T) {
	chain, err := Build(nil)
	require.NoError(t, err)

	t.Run("valid trigger", func(t *testing.T) {
		assert.True(t, chain.Execute(context.Background(), validRequest()).Accepted)
	})

	t.Run("first rejection wins", func(t *testing.T) {
		req := validRequest()
		req.Tokens = nil
		req.Sound = nil
		req.InVoice = false

		result := chain.Execute(context.Background(), req)
		assert.False(t, result.Accepted)
		assert.Equal(t, "token_count", result.Code)
	})
}
