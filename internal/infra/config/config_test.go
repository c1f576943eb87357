package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
discord:
  token: file-token
sounds:
  - id: OSTRICH
    file: ostrich.dca
    keywords: [haha, ostrich, "haha!"]
`

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("ADMIN_TOKEN", "")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, 5*time.Second, cfg.Discord.ReadyTimeout())
	assert.Equal(t, time.Second, cfg.Discord.FrameTimeout())
	assert.Equal(t, 10*time.Second, cfg.Playback.JoinTimeout())
	assert.Equal(t, time.Duration(0), cfg.Playback.PlayTimeout())
	assert.Equal(t, 5*time.Second, cfg.Playback.LeaveTimeout())
	assert.Equal(t, 64, cfg.Playback.EventBuffer)
	assert.Equal(t, "res", cfg.Library.Dir)
	assert.False(t, cfg.Library.Watch)
	assert.False(t, cfg.Admin.Enabled)
	assert.Equal(t, "127.0.0.1:8080", cfg.Admin.Addr)
}

func TestParse_ExplicitZeroDisablesJoinTimeout(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
playback:
  join_timeout_ms: 0
  play_timeout_ms: 4000
`))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Playback.JoinTimeout())
	assert.Equal(t, 4*time.Second, cfg.Playback.PlayTimeout())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("ADMIN_TOKEN", "env-admin")

	cfg, err := Parse([]byte(minimalYAML + `
admin:
  enabled: true
`))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "env-admin", cfg.Admin.Token)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name: "missing token",
			yaml: `
sounds:
  - id: OSTRICH
    file: ostrich.dca
    keywords: [haha]
`,
			errMsg: "Token",
		},
		{
			name: "no sounds",
			yaml: `
discord:
  token: t
`,
			errMsg: "Sounds",
		},
		{
			name: "sound without keywords",
			yaml: `
discord:
  token: t
sounds:
  - id: OSTRICH
    file: ostrich.dca
`,
			errMsg: "Keywords",
		},
		{
			name: "duplicate sound id",
			yaml: minimalYAML + `
  - id: OSTRICH
    file: other.dca
    keywords: [other]
`,
			errMsg: "duplicate sound id",
		},
		{
			name: "keyword reused case-insensitively",
			yaml: minimalYAML + `
  - id: HORN
    file: horn.dca
    keywords: [HAHA]
`,
			errMsg: "used by both",
		},
		{
			name: "admin enabled without token",
			yaml: minimalYAML + `
admin:
  enabled: true
`,
			errMsg: "Token",
		},
		{
			name: "frame timeout too small",
			yaml: `
discord:
  token: t
  frame_timeout_ms: 5
sounds:
  - id: OSTRICH
    file: ostrich.dca
    keywords: [haha]
`,
			errMsg: "FrameTimeoutMs",
		},
		{
			name:   "malformed yaml",
			yaml:   "discord: [",
			errMsg: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DISCORD_TOKEN", "")
			t.Setenv("ADMIN_TOKEN", "")

			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IsTriggerEnabled(t *testing.T) {
	cfg := &Config{
		Triggers: map[string]TriggerConfig{
			"cooldown_filter": {Enabled: true},
			"other_filter":    {Enabled: false},
		},
	}

	assert.True(t, cfg.IsTriggerEnabled("cooldown_filter"))
	assert.False(t, cfg.IsTriggerEnabled("other_filter"))
	assert.False(t, cfg.IsTriggerEnabled("missing_filter"))
}

func TestLoad(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bot.yaml")
		require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, cfg.Sounds, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
