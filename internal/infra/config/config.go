// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Discord  DiscordConfig            `yaml:"discord"`
	Playback PlaybackConfig           `yaml:"playback"`
	Library  LibraryConfig            `yaml:"library"`
	Sounds   []SoundConfig            `yaml:"sounds" validate:"required,min=1,dive"`
	Triggers map[string]TriggerConfig `yaml:"triggers"`
	Admin    AdminConfig              `yaml:"admin"`
	Hooks    HooksConfig              `yaml:"hooks"`
}

// DiscordConfig represents Discord gateway and voice configuration.
type DiscordConfig struct {
	Token          string `yaml:"token" env:"DISCORD_TOKEN" validate:"required"`
	ReadyTimeoutMs int    `yaml:"ready_timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
	FrameTimeoutMs int    `yaml:"frame_timeout_ms" default:"1000" validate:"gte=20,lte=10000"`
}

// PlaybackConfig represents playback queue configuration.
// A join or play timeout of 0 disables that timeout.
type PlaybackConfig struct {
	JoinTimeoutMs  *int `yaml:"join_timeout_ms" default:"10000" validate:"omitempty,gte=0"`
	PlayTimeoutMs  int  `yaml:"play_timeout_ms" validate:"gte=0"`
	LeaveTimeoutMs int  `yaml:"leave_timeout_ms" default:"5000" validate:"gte=100"`
	EventBuffer    int  `yaml:"event_buffer" default:"64" validate:"gte=1,lte=4096"`
}

// LibraryConfig represents where sound files are read from.
type LibraryConfig struct {
	Dir   string `yaml:"dir" default:"res"`
	Watch bool   `yaml:"watch"`
}

// SoundConfig represents a single sound.
type SoundConfig struct {
	ID       string   `yaml:"id" validate:"required"`
	File     string   `yaml:"file" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"required,min=1,dive,required"`
}

// TriggerConfig represents a trigger check's configuration.
type TriggerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// AdminConfig represents the admin API configuration.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:"127.0.0.1:8080"`
	Token   string `yaml:"token" env:"ADMIN_TOKEN" validate:"required_if=Enabled true"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateSounds(); err != nil {
		return err
	}

	return nil
}

// validateSounds checks that sound IDs and keywords are unique.
// Keywords are compared case-insensitively, the way they are matched.
func (c *Config) validateSounds() error {
	ids := make(map[string]struct{}, len(c.Sounds))
	keywords := make(map[string]string)

	for _, s := range c.Sounds {
		if _, exists := ids[s.ID]; exists {
			return errors.Newf("duplicate sound id: %s", s.ID)
		}
		ids[s.ID] = struct{}{}

		for _, k := range s.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				return errors.Newf("sound %s has a blank keyword", s.ID)
			}
			if other, exists := keywords[k]; exists {
				return errors.Newf("keyword %q is used by both %s and %s", k, other, s.ID)
			}
			keywords[k] = s.ID
		}
	}
	return nil
}

// IsTriggerEnabled checks if a trigger check is enabled.
func (c *Config) IsTriggerEnabled(name string) bool {
	if t, ok := c.Triggers[name]; ok {
		return t.Enabled
	}
	return false
}

// ReadyTimeout returns the voice ready timeout.
func (d DiscordConfig) ReadyTimeout() time.Duration {
	return time.Duration(d.ReadyTimeoutMs) * time.Millisecond
}

// FrameTimeout returns the per-frame send timeout.
func (d DiscordConfig) FrameTimeout() time.Duration {
	return time.Duration(d.FrameTimeoutMs) * time.Millisecond
}

// JoinTimeout returns the join timeout, 0 when disabled.
func (p PlaybackConfig) JoinTimeout() time.Duration {
	if p.JoinTimeoutMs == nil {
		return 0
	}
	return time.Duration(*p.JoinTimeoutMs) * time.Millisecond
}

// PlayTimeout returns the playback timeout, 0 when disabled.
func (p PlaybackConfig) PlayTimeout() time.Duration {
	return time.Duration(p.PlayTimeoutMs) * time.Millisecond
}

// LeaveTimeout returns the leave timeout.
func (p PlaybackConfig) LeaveTimeout() time.Duration {
	return time.Duration(p.LeaveTimeoutMs) * time.Millisecond
}
