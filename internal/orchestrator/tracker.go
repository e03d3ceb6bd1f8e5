package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/tinkervoid/transcriber/internal/logger"
)

// Tracker supervises background tasks so shutdown can drain them instead of
// abandoning them. Tasks receive a context that is cancelled when draining
// starts.
type Tracker struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	log    *logger.Logger
}

// NewTracker creates a tracker whose tasks live until Drain is called.
func NewTracker(log *logger.Logger) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		ctx:    ctx,
		cancel: cancel,
		log:    log.WithComponent("tracker"),
	}
}

// Go runs fn in a tracked goroutine. fn must honor ctx cancellation; a task
// that ignores it only delays Drain until the grace period expires.
func (t *Tracker) Go(name string, fn func(ctx context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.log.Debug("Task started", map[string]interface{}{"task": name})
		fn(t.ctx)
		t.log.Debug("Task finished", map[string]interface{}{"task": name})
	}()
}

// Drain cancels all task contexts and waits up to grace for them to finish.
// Returns false if the grace period expired with tasks still running.
func (t *Tracker) Drain(grace time.Duration) bool {
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.log.Info("All background tasks drained")
		return true
	case <-time.After(grace):
		t.log.Warn("Drain grace period expired with tasks still running", map[string]interface{}{
			"grace": grace.String(),
		})
		return false
	}
}
