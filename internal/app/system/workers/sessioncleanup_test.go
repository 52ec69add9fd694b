package workers_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/system/workers"
	"go.uber.org/zap"
)

type countingDeleter struct {
	calls atomic.Int32
	err   error
}

func (d *countingDeleter) DeleteExpired(context.Context) (int64, error) {
	d.calls.Add(1)
	return 3, d.err
}

type countingSweeper struct{ calls atomic.Int32 }

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 1
}

func TestSessionCleanup_RunOnce(t *testing.T) {
	d := &countingDeleter{}
	s := &countingSweeper{}
	w := workers.NewSessionCleanup(d, s, zap.NewNop(), time.Hour)

	w.RunOnce()

	if d.calls.Load() != 1 || s.calls.Load() != 1 {
		t.Errorf("calls: deleter=%d sweeper=%d, want 1 each", d.calls.Load(), s.calls.Load())
	}
}

func TestSessionCleanup_RunOnce_NilCollaborators(t *testing.T) {
	w := workers.NewSessionCleanup(nil, nil, zap.NewNop(), time.Hour)
	w.RunOnce()
}

func TestSessionCleanup_RunOnce_ErrorIsLogged(t *testing.T) {
	d := &countingDeleter{err: errors.New("boom")}
	w := workers.NewSessionCleanup(d, nil, zap.NewNop(), time.Hour)
	w.RunOnce()
	if d.calls.Load() != 1 {
		t.Errorf("expected one call, got %d", d.calls.Load())
	}
}

func TestSessionCleanup_StartStop(t *testing.T) {
	d := &countingDeleter{}
	w := workers.NewSessionCleanup(d, nil, zap.NewNop(), 5*time.Millisecond)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for d.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if d.calls.Load() == 0 {
		t.Error("expected the ticker to trigger at least one cleanup")
	}
	after := d.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if d.calls.Load() != after {
		t.Error("worker kept running after Stop")
	}
}
