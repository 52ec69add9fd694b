// internal/app/system/workers/sessioncleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredSessionDeleter removes sessions past their expiry.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper drops idle per-key state, such as rate limiter buckets.
type Sweeper interface {
	Sweep() int
}

// SessionCleanup is a background worker that purges expired server-side
// sessions and idle login rate limiter buckets.
type SessionCleanup struct {
	sessions ExpiredSessionDeleter // nil when sessions live in Redis
	limiter  Sweeper               // may be nil
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSessionCleanup creates a new session cleanup worker.
//
// Parameters:
//   - sessions: the Mongo session store, or nil
//   - limiter: the login rate limiter, or nil
//   - logger: zap logger for logging
//   - interval: how often to run cleanup (e.g., 5 minutes)
func NewSessionCleanup(sessions ExpiredSessionDeleter, limiter Sweeper, logger *zap.Logger, interval time.Duration) *SessionCleanup {
	return &SessionCleanup{
		sessions: sessions,
		limiter:  limiter,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *SessionCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call twice.
func (w *SessionCleanup) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("session cleanup worker stopped")
	})
}

func (w *SessionCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single cleanup pass.
func (w *SessionCleanup) RunOnce() {
	if w.limiter != nil {
		if n := w.limiter.Sweep(); n > 0 {
			w.log.Debug("swept idle rate limiter buckets", zap.Int("count", n))
		}
	}
	if w.sessions == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.sessions.DeleteExpired(ctx)
	if err != nil {
		w.log.Error("failed to delete expired sessions", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("deleted expired sessions", zap.Int64("count", count))
	}
}
