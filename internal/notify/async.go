package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"task-marketplace-api/internal/models"
)

// Async moves delivery off the request path onto a bounded worker pool.
// When the queue is full the notification is dropped and logged; it is
// already stored, so the recipient still sees it through the API.
type Async struct {
	next    Deliverer
	queue   chan models.Notification
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
}

// NewAsync starts workers delivering through next.
func NewAsync(next Deliverer, workers, queueSize int) *Async {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	a := &Async{
		next:    next,
		queue:   make(chan models.Notification, queueSize),
		timeout: 10 * time.Second,
	}
	for i := 1; i <= workers; i++ {
		a.wg.Add(1)
		go a.worker(i)
	}
	return a
}

// Deliver enqueues n. It never blocks and always returns nil once queued.
func (a *Async) Deliver(_ context.Context, n models.Notification) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) worker(id int) {
	defer a.wg.Done()
	for n := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Deliver(ctx, n); err != nil {
			slog.Warn("async notification delivery failed",
				"worker", id,
				"notification_id", n.ID,
				"user_id", n.UserID,
				"error", err,
			)
		}
		cancel()
	}
}

// Shutdown stops accepting work and waits for queued deliveries until ctx ends.
func (a *Async) Shutdown(ctx context.Context) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("notification workers shut down cleanly")
	case <-ctx.Done():
		slog.Warn("notification workers shutdown timed out")
	}
}
