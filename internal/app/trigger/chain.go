package trigger

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Order is the evaluation order of the registered checks.
var Order = []string{
	SelfMessageFilterName,
	MentionFilterName,
	SingleTokenFilterName,
	KnownSoundFilterName,
	VoicePresenceFilterName,
	CooldownFilterName,
}

// Chain executes checks in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new check chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a check to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all checks in sequence.
// Returns immediately if any check rejects the request.
func (c *Chain) Execute(ctx context.Context, req Request) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, req)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all checks in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// Names returns the names of the checks in the chain.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.filters))
	for _, f := range c.filters {
		names = append(names, f.Name())
	}
	return names
}

// Settings describes how a check is configured.
type Settings struct {
	Enabled  bool
	Settings map[string]any
}

// Build creates a chain in Order. Required checks are always added; the others
// are added when enabled in settings.
func Build(settings map[string]Settings) (*Chain, error) {
	for name := range settings {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown trigger check: %s", name)
		}
	}

	chain := NewChain()
	for _, name := range Order {
		factory, ok := registry[name]
		if !ok {
			continue
		}
		s, configured := settings[name]
		if !IsRequired(name) && !(configured && s.Enabled) {
			continue
		}

		f := factory()
		if err := f.ValidateConfig(s.Settings); err != nil {
			return nil, errors.Wrapf(err, "trigger check %s", name)
		}
		chain.Add(f)
	}
	return chain, nil
}

// IsRequired reports whether the check is always part of the chain.
func IsRequired(name string) bool {
	return name != CooldownFilterName
}
