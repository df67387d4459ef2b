package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jdziat/cronloop/pkg/core"
)

// Group starts and stops several schedulers together. Task names are
// unique within a group.
type Group struct {
	mu         sync.Mutex
	schedulers []*Scheduler
	byTask     map[string]*Scheduler
}

// NewGroup creates a group from schedulers.
func NewGroup(schedulers ...*Scheduler) (*Group, error) {
	g := &Group{byTask: make(map[string]*Scheduler)}
	for _, s := range schedulers {
		if err := g.Add(s); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add appends a scheduler. It does not start it.
func (g *Group) Add(s *Scheduler) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.byTask == nil {
		g.byTask = make(map[string]*Scheduler)
	}
	if _, ok := g.byTask[s.Task()]; ok {
		return fmt.Errorf("%w: %q", core.ErrDuplicateTask, s.Task())
	}
	g.byTask[s.Task()] = s
	g.schedulers = append(g.schedulers, s)
	return nil
}

// Get returns the scheduler for task.
func (g *Group) Get(task string) (*Scheduler, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.byTask[task]
	return s, ok
}

// Schedulers returns the schedulers in insertion order.
func (g *Group) Schedulers() []*Scheduler {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Scheduler, len(g.schedulers))
	copy(out, g.schedulers)
	return out
}

// Len returns the number of schedulers.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.schedulers)
}

// Start starts every scheduler. If one fails to start, those already
// started are stopped again.
func (g *Group) Start(ctx context.Context) error {
	started := make([]*Scheduler, 0, g.Len())
	for _, s := range g.Schedulers() {
		if err := s.Start(ctx); err != nil {
			for _, st := range started {
				_ = st.Stop()
			}
			return fmt.Errorf("start %q: %w", s.Task(), err)
		}
		started = append(started, s)
	}
	return nil
}

// Stop stops every scheduler concurrently and waits for all of them.
func (g *Group) Stop() error {
	return g.each(func(s *Scheduler) error { return s.Stop() })
}

// Shutdown is Stop bounded by ctx; schedulers still running when ctx is
// done are killed.
func (g *Group) Shutdown(ctx context.Context) error {
	return g.each(func(s *Scheduler) error { return s.Shutdown(ctx) })
}

// Kill kills every scheduler.
func (g *Group) Kill() {
	for _, s := range g.Schedulers() {
		s.Kill()
	}
}

func (g *Group) each(fn func(*Scheduler) error) error {
	schedulers := g.Schedulers()
	errs := make([]error, len(schedulers))

	var wg sync.WaitGroup
	for i, s := range schedulers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(s); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Task(), err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
