package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/schedule"
	"github.com/jdziat/cronloop/pkg/security"
)

// Supported history drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// File is a schedule file.
type File struct {
	// Timezone is the default IANA timezone for entries. Empty means UTC.
	Timezone string `yaml:"timezone"`

	// Policy is the default concurrency policy for entries.
	Policy core.Policy `yaml:"policy"`

	// Concurrency sizes the worker pool. Zero means the pool default.
	Concurrency int `yaml:"concurrency"`

	// History enables the run history store when present.
	History *History `yaml:"history,omitempty"`

	Schedules []Entry `yaml:"schedules"`
}

// Entry is one scheduled task.
type Entry struct {
	Task     string      `yaml:"task"`
	Schedule string      `yaml:"schedule"`
	Timezone string      `yaml:"timezone,omitempty"`
	Policy   core.Policy `yaml:"policy,omitempty"`
	Args     any         `yaml:"args,omitempty"`
	Disabled bool        `yaml:"disabled,omitempty"`
}

// History configures the run history database.
type History struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver"`

	// DSN is the connection string. ${VAR} references are expanded from
	// the environment so credentials can stay out of the file.
	DSN string `yaml:"dsn"`

	// Keep is the number of runs retained per task when pruning.
	// Zero keeps everything.
	Keep int `yaml:"keep"`
}

// Load reads and parses a schedule file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cronloop: read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a schedule file, normalises policy names and history
// settings, and validates it.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cronloop: parse config: %w", err)
	}

	if f.History != nil {
		f.History.DSN = os.ExpandEnv(f.History.DSN)
		f.History.Driver = strings.ToLower(strings.TrimSpace(f.History.Driver))
		if f.History.Driver == "" {
			f.History.Driver = DriverSQLite
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every entry's task name, schedule, timezone and policy,
// and that task names are unique. All problems are reported together.
func (f *File) Validate() error {
	var errs []error

	if p, err := core.ParsePolicy(string(f.Policy)); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	} else {
		f.Policy = p
	}

	if f.Concurrency < 0 || f.Concurrency > security.MaxConcurrency {
		errs = append(errs, fmt.Errorf("concurrency: must be between 0 and %d, got %d", security.MaxConcurrency, f.Concurrency))
	}

	if f.History != nil {
		switch f.History.Driver {
		case DriverSQLite, DriverPostgres:
		default:
			errs = append(errs, fmt.Errorf("history.driver: unsupported driver %q", f.History.Driver))
		}
		if f.History.DSN == "" {
			errs = append(errs, errors.New("history.dsn: required"))
		}
		if f.History.Keep < 0 {
			errs = append(errs, fmt.Errorf("history.keep: must not be negative, got %d", f.History.Keep))
		}
	}

	seen := make(map[string]int, len(f.Schedules))
	for i := range f.Schedules {
		e := &f.Schedules[i]
		where := fmt.Sprintf("schedules[%d]", i)
		if e.Task != "" {
			where = fmt.Sprintf("schedules[%d] (%s)", i, e.Task)
		}

		if err := security.ValidateTaskName(e.Task); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		} else if first, dup := seen[e.Task]; dup {
			errs = append(errs, fmt.Errorf("%s: %w: also defined at schedules[%d]", where, core.ErrDuplicateTask, first))
		} else {
			seen[e.Task] = i
		}

		if e.Policy == "" {
			e.Policy = f.Policy
		}
		if p, err := core.ParsePolicy(string(e.Policy)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		} else {
			e.Policy = p
		}

		if _, err := schedule.Parse(e.Schedule, f.TimezoneFor(*e)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}

	return errors.Join(errs...)
}

// TimezoneFor returns the entry's timezone, falling back to the file
// default unless the expression carries its own CRON_TZ= or TZ= prefix.
func (f *File) TimezoneFor(e Entry) string {
	if e.Timezone != "" {
		return e.Timezone
	}
	expr := strings.TrimSpace(e.Schedule)
	if strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=") {
		return ""
	}
	return f.Timezone
}

// Enabled returns the entries that are not disabled.
func (f *File) Enabled() []Entry {
	out := make([]Entry, 0, len(f.Schedules))
	for _, e := range f.Schedules {
		if !e.Disabled {
			out = append(out, e)
		}
	}
	return out
}
