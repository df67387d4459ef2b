package scheduler

import (
	"log/slog"

	"github.com/jdziat/cronloop/pkg/core"
)

// Option configures a Scheduler.
type Option interface {
	ApplyScheduler(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) ApplyScheduler(c *Config) { f(c) }

// Config holds scheduler configuration.
type Config struct {
	Timezone    string
	Policy      core.Policy
	Args        any
	Clock       core.Clock
	Spawner     core.Spawner
	Logger      *slog.Logger
	History     core.HistoryStore
	EventBuffer int
}

// DefaultEventBuffer is the capacity of each Events() subscriber channel.
const DefaultEventBuffer = 100

func defaultConfig() Config {
	return Config{
		Policy:      core.DefaultPolicy,
		Clock:       core.SystemClock,
		Spawner:     GoSpawner{},
		EventBuffer: DefaultEventBuffer,
	}
}

// Timezone sets the IANA timezone the expression is matched in.
// An empty name means UTC.
func Timezone(name string) Option {
	return optionFunc(func(c *Config) {
		c.Timezone = name
	})
}

// WithPolicy sets the concurrency policy.
func WithPolicy(p core.Policy) Option {
	return optionFunc(func(c *Config) {
		c.Policy = p
	})
}

// Args sets the arguments passed to the dispatcher with every fire.
func Args(args any) Option {
	return optionFunc(func(c *Config) {
		c.Args = args
	})
}

// WithClock sets the clock used to compute waits.
func WithClock(clock core.Clock) Option {
	return optionFunc(func(c *Config) {
		c.Clock = clock
	})
}

// WithSpawner sets how the loop's execution context is started.
func WithSpawner(s core.Spawner) Option {
	return optionFunc(func(c *Config) {
		c.Spawner = s
	})
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		c.Logger = l
	})
}

// WithHistory records every fire and outcome in store.
func WithHistory(store core.HistoryStore) Option {
	return optionFunc(func(c *Config) {
		c.History = store
	})
}

// EventBuffer sets the capacity of subscriber channels returned by Events.
func EventBuffer(n int) Option {
	return optionFunc(func(c *Config) {
		if n > 0 {
			c.EventBuffer = n
		}
	})
}
