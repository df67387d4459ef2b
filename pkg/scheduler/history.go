package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jdziat/cronloop/pkg/core"
)

// historyTimeout bounds each history write.
const historyTimeout = 5 * time.Second

// pendingWrites counts history writes in flight.
type pendingWrites struct {
	mu   sync.Mutex
	n    int
	idle chan struct{} // closed whenever n drops to zero
}

func (p *pendingWrites) add() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 {
		p.idle = make(chan struct{})
	}
	p.n++
}

func (p *pendingWrites) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n--
	if p.n == 0 {
		close(p.idle)
	}
}

// wait blocks until no write is in flight.
func (p *pendingWrites) wait() {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()
	if idle != nil {
		<-idle
	}
}

// writeHistory runs write on its own goroutine after the after channel is
// closed (nil means no ordering constraint). The returned channel is closed
// once the write has finished. Without a history store it does nothing and
// returns nil.
func (s *Scheduler) writeHistory(after <-chan struct{}, fireID, msg string, write func(context.Context, core.HistoryStore) error) <-chan struct{} {
	h := s.config.History
	if h == nil {
		return nil
	}

	s.pending.add()
	written := make(chan struct{})
	go func() {
		defer s.pending.done()
		defer close(written)
		if after != nil {
			<-after
		}

		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		if err := callHistory(ctx, h, write); err != nil {
			s.logger.Warn(msg, "fire_id", fireID, "error", err)
		}
	}()
	return written
}

func callHistory(ctx context.Context, h core.HistoryStore, write func(context.Context, core.HistoryStore) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r}
		}
	}()
	return write(ctx, h)
}

// recordRun writes the run row for fire asynchronously.
func (s *Scheduler) recordRun(fire core.Fire, status core.RunStatus) <-chan struct{} {
	if s.config.History == nil {
		return nil
	}

	run := &core.Run{
		ID:          fire.ID,
		Task:        s.task,
		Expression:  s.spec.Expression(),
		Timezone:    s.spec.Timezone(),
		Policy:      s.config.Policy,
		Seq:         fire.Seq,
		ScheduledAt: fire.Instant,
		Status:      status,
	}
	if !fire.DispatchedAt.IsZero() {
		at := fire.DispatchedAt
		run.DispatchedAt = &at
	}

	return s.writeHistory(nil, fire.ID, "failed to record run", func(ctx context.Context, h core.HistoryStore) error {
		return h.RecordRun(ctx, run)
	})
}

// completeRun writes the outcome of fire once its run row is recorded.
func (s *Scheduler) completeRun(fire core.Fire, recorded <-chan struct{}, o core.Outcome) {
	s.writeHistory(recorded, fire.ID, "failed to record outcome", func(ctx context.Context, h core.HistoryStore) error {
		return h.CompleteRun(ctx, fire.ID, o)
	})
}
