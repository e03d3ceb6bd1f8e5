package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tinkervoid/transcriber/internal/logger"
)

func TestDrainWaitsForTasks(t *testing.T) {
	tracker := NewTracker(logger.NewDefault("tracker-test"))

	var finished atomic.Int32
	for i := 0; i < 3; i++ {
		tracker.Go("worker", func(ctx context.Context) {
			<-ctx.Done()
			finished.Add(1)
		})
	}

	if !tracker.Drain(2 * time.Second) {
		t.Fatal("tasks honoring cancellation should drain cleanly")
	}
	if finished.Load() != 3 {
		t.Fatalf("expected 3 finished tasks, got %d", finished.Load())
	}
}

func TestDrainTimesOutOnStuckTask(t *testing.T) {
	tracker := NewTracker(logger.NewDefault("tracker-test"))

	release := make(chan struct{})
	tracker.Go("stuck", func(ctx context.Context) {
		<-release
	})

	if tracker.Drain(50 * time.Millisecond) {
		t.Fatal("drain should report failure when a task outlives the grace period")
	}
	close(release)
}

func TestDrainWithNoTasks(t *testing.T) {
	tracker := NewTracker(logger.NewDefault("tracker-test"))
	if !tracker.Drain(time.Second) {
		t.Fatal("empty tracker must drain immediately")
	}
}
