package session

import (
	"context"
	"sync"
	"time"
)

// Sweeper runs [Store.SweepExpired] on a fixed interval as an owned background
// task. The Engine starts one at build time and stops it on Close; its
// lifecycle is tied to the process, never a package-level singleton.
type Sweeper struct {
	store    Store
	interval time.Duration
	onSweep  func(removed int, err error)

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSweeper creates a sweeper over store. onSweep, when non-nil, observes
// each pass (metrics, audit). It does not start the task.
func NewSweeper(store Store, interval time.Duration, onSweep func(removed int, err error)) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, interval: interval, onSweep: onSweep}
}

// Start launches the background task. Subsequent calls are no-ops.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel

		s.wg.Add(1)
		go s.run(ctx)
	})
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := s.store.SweepExpired(ctx)
			if s.onSweep != nil {
				s.onSweep(removed, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the task and waits for the in-flight pass to finish. Safe to
// call more than once, and before Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}
