// internal/app/system/mailer/dispatcher.go
package mailer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 15 * time.Second

// Dispatcher sends email in the background. Dispatch never blocks on
// delivery and never reports failure to the caller; failures are logged.
type Dispatcher struct {
	sender  Sender
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewDispatcher wraps sender. A zero timeout uses DefaultSendTimeout.
func NewDispatcher(sender Sender, log *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{sender: sender, log: log, timeout: timeout}
}

// Dispatch queues e for delivery. A nil Dispatcher drops the email, and
// so does one that is draining after Wait was called.
func (d *Dispatcher) Dispatch(e Email) {
	if d == nil || d.sender == nil {
		return
	}
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		d.log.Warn("email dropped: dispatcher is shutting down",
			zap.String("to", e.To),
			zap.String("subject", e.Subject))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.log.Error("email sender panicked", zap.Any("panic", rec), zap.String("to", e.To))
			}
		}()

		// Detached from the request context: the request has usually
		// finished by the time delivery runs.
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, e); err != nil {
			d.log.Warn("email delivery failed",
				zap.Error(err),
				zap.String("to", e.To),
				zap.String("subject", e.Subject),
			)
			return
		}
		d.log.Debug("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	}()
}

// Wait stops new dispatches and blocks until in-flight deliveries finish
// or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
