// Package notify delivers session notifications off the request path.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/metrics"
	"parkspot/backend/services/parking-service/internal/models"
)

const deliverTimeout = 5 * time.Second

// Sink persists notifications for the inbox.
type Sink interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
}

// Pusher forwards a payload to a user's live connections.
type Pusher interface {
	Push(userID int64, payload []byte) int
}

// Publisher fans events out to other services.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Options tunes the worker pool.
type Options struct {
	Workers   int
	QueueSize int
}

// Emitter queues notifications and delivers them with a fixed pool of workers.
// Pusher and Publisher are optional.
type Emitter struct {
	sink      Sink
	pusher    Pusher
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	workers   int

	mu     sync.RWMutex
	closed bool
	queue  chan models.Notification
}

// NewEmitter builds emitter.
func NewEmitter(sink Sink, pusher Pusher, publisher Publisher, m *metrics.Metrics, logger *zap.Logger, opts Options) *Emitter {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{
		sink:      sink,
		pusher:    pusher,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		workers:   opts.Workers,
		queue:     make(chan models.Notification, opts.QueueSize),
	}
}

// Notify enqueues n without blocking. When the queue is full or the emitter
// has stopped the notification is dropped.
func (e *Emitter) Notify(_ context.Context, n models.Notification) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.drop(n, "emitter stopped")
		return
	}
	select {
	case e.queue <- n:
	default:
		e.drop(n, "queue full")
	}
}

func (e *Emitter) drop(n models.Notification, why string) {
	e.metrics.NotificationDropped()
	e.logger.Warn("notification dropped",
		zap.String("reason", why),
		zap.Int64("user_id", n.UserID),
		zap.String("type", string(n.Type)),
	)
}

// Run starts the workers and blocks until ctx is done. Queued notifications are
// delivered before it returns.
func (e *Emitter) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range e.queue {
				e.deliver(n)
			}
		}()
	}

	<-ctx.Done()
	e.mu.Lock()
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	wg.Wait()
	e.logger.Info("notification emitter stopped")
}

func (e *Emitter) deliver(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	logger := e.logger.With(zap.Int64("user_id", n.UserID), zap.String("type", string(n.Type)))

	if stored, err := e.sink.Create(ctx, &n); err != nil {
		e.metrics.NotificationFailed("sink")
		logger.Warn("failed to store notification", zap.Error(err))
	} else {
		n = *stored
	}

	if e.pusher != nil {
		payload, err := json.Marshal(n)
		if err != nil {
			e.metrics.NotificationFailed("push")
			logger.Warn("failed to encode notification", zap.Error(err))
		} else {
			e.pusher.Push(n.UserID, payload)
		}
	}

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, RoutingKey(n.Type), n); err != nil {
			e.metrics.NotificationFailed("publish")
			logger.Warn("failed to publish notification", zap.Error(err))
		}
	}
}

// RoutingKey returns the broker topic for a notification type.
func RoutingKey(t models.NotificationType) string {
	return "parking." + string(t)
}
