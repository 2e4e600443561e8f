package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/pkg/circuitbreaker"
	"taskflow/pkg/logger"
	"taskflow/pkg/metrics"
)

// Notifier accepts notifications from the workflow engine. It never fails the caller;
// delivery problems are logged and counted.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Sink durably records a notification for later delivery.
type Sink interface {
	Deliver(ctx context.Context, n *model.Notification) error
}

// Guarded is the Notifier used by the services: it runs a Sink behind a circuit breaker
// and swallows every error after logging it.
type Guarded struct {
	sink    Sink
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewGuarded(sink Sink, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Guarded {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig())
	}
	return &Guarded{sink: sink, breaker: breaker, logger: logger}
}

func (g *Guarded) Notify(ctx context.Context, n model.Notification) {
	log := logger.WithTrace(ctx, g.logger)

	err := g.breaker.Execute(func() error {
		return g.sink.Deliver(ctx, &n)
	})
	switch {
	case err == nil:
		metrics.RecordNotification(n.Kind, "queued")
		log.Debug("Notification queued",
			zap.Int("notification_id", n.ID),
			zap.Int("user_id", n.UserID),
			zap.String("kind", n.Kind),
		)
	case errors.Is(err, circuitbreaker.ErrOpen):
		metrics.RecordNotification(n.Kind, "skipped")
		log.Warn("Notification skipped, circuit open",
			zap.Int("user_id", n.UserID),
			zap.String("kind", n.Kind),
		)
	default:
		metrics.RecordNotification(n.Kind, "failed")
		log.Error("Failed to record notification",
			zap.Error(err),
			zap.Int("user_id", n.UserID),
			zap.String("kind", n.Kind),
		)
	}
}
