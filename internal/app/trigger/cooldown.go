package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// CooldownConfig represents the configuration for CooldownFilter.
type CooldownConfig struct {
	IntervalMS int `yaml:"interval_ms" mapstructure:"interval_ms" default:"3000" validate:"gte=100"`
	Burst      int `yaml:"burst" mapstructure:"burst" default:"1" validate:"gte=1"`
}

// CooldownFilter limits how often a single user can trigger sounds.
type CooldownFilter struct {
	config *CooldownConfig

	mu sync.Mutex
	// TODO: evict limiters of users that have been idle for longer than the interval
	limiters map[string]*rate.Limiter // user ID -> limiter
}

// NewCooldownFilter creates a new cooldown filter.
func NewCooldownFilter() *CooldownFilter {
	return &CooldownFilter{
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *CooldownFilter) Name() string {
	return CooldownFilterName
}

func (f *CooldownFilter) Description() string {
	return "Limits how often a user can trigger sounds"
}

func (f *CooldownFilter) ReturnCodes() []string {
	return []string{"cooldown"}
}

func (f *CooldownFilter) ValidateConfig(settings map[string]any) error {
	var config CooldownConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.config = &config
	zlog.Info().Msgf("cooldown filter config: %+v", config)
	return nil
}

// Interval returns the configured token refill interval.
func (f *CooldownFilter) Interval() time.Duration {
	if f.config == nil {
		return 0
	}
	return time.Duration(f.config.IntervalMS) * time.Millisecond
}

func (f *CooldownFilter) Check(ctx context.Context, req Request) Result {
	// If config is not set, accept all triggers
	if f.config == nil {
		return Accept()
	}

	if !f.limiter(req.Message.AuthorID).Allow() {
		return Reject("cooldown")
	}
	return Accept()
}

func (f *CooldownFilter) limiter(userID string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(f.Interval()), f.config.Burst)
		f.limiters[userID] = l
	}
	return l
}

func init() {
	Register(CooldownFilterName, func() Filter {
		return NewCooldownFilter()
	})
}
