package cronloop

import (
	"fmt"

	"github.com/jdziat/cronloop/pkg/config"
)

type (
	// ConfigFile is a parsed schedule file.
	ConfigFile = config.File

	// ConfigEntry is one scheduled task in a schedule file.
	ConfigEntry = config.Entry
)

// LoadConfig reads and validates a YAML schedule file.
func LoadConfig(path string) (*ConfigFile, error) {
	return config.Load(path)
}

// ParseConfig decodes and validates a YAML schedule document.
func ParseConfig(data []byte) (*ConfigFile, error) {
	return config.Parse(data)
}

// FromConfig builds a stopped Group with one Scheduler per enabled entry of
// f, each dispatching to d. opts apply to every scheduler; the entry's
// timezone, policy and args take precedence over them.
func FromConfig(f *ConfigFile, d Dispatcher, opts ...Option) (*Group, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	g, err := NewGroup()
	if err != nil {
		return nil, err
	}
	for _, e := range f.Enabled() {
		entryOpts := append(append([]Option(nil), opts...),
			Timezone(f.TimezoneFor(e)),
			WithPolicy(e.Policy),
			Args(e.Args),
		)
		s, err := New(e.Task, e.Schedule, d, entryOpts...)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", e.Task, err)
		}
		if err := g.Add(s); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// NewPoolFromConfig creates a worker pool sized by the file's concurrency.
func NewPoolFromConfig(f *ConfigFile, opts ...PoolOption) *Pool {
	if f.Concurrency > 0 {
		opts = append([]PoolOption{Concurrency(f.Concurrency)}, opts...)
	}
	return NewPool(opts...)
}
