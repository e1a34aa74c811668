// Package lifecycle periodically moves accepted reservations through
// DURING and FINISHED as their intervals start and end.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Advancer applies the clock-driven transitions across all restaurants.
type Advancer interface {
	AdvanceAll(ctx context.Context) (int, error)
}

type Worker struct {
	advancer Advancer
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewWorker(advancer Advancer, interval time.Duration, logger zerolog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		advancer: advancer,
		interval: interval,
		logger:   logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Start runs one pass immediately and then one per interval in the
// background. Calling Start on a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})

	w.wg.Add(1)
	go w.loop(ctx, w.stopCh)
	w.logger.Info().Dur("interval", w.interval).Msg("Lifecycle worker started")
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info().Msg("Lifecycle worker stopped")
}

func (w *Worker) loop(ctx context.Context, stop <-chan struct{}) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and returns the number of reservations moved.
func (w *Worker) RunOnce(ctx context.Context) int {
	n, err := w.advancer.AdvanceAll(ctx)
	if err != nil {
		w.logger.Error().Err(err).Int("advanced", n).Msg("Lifecycle pass finished with errors")
		return n
	}
	if n > 0 {
		w.logger.Debug().Int("advanced", n).Msg("Lifecycle pass finished")
	}
	return n
}
