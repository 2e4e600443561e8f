package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	mqcontracts "taskflow/contracts/mq"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/outbox"
	"taskflow/pkg/trace"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OutboxSink stores the notification row and a notification.created outbox event in one
// transaction; the outbox dispatcher takes it from there.
type OutboxSink struct {
	db            TxBeginner
	notifications *repository.NotificationRepository
	outboxRepo    *outbox.Repository
	logger        *zap.Logger
}

func NewOutboxSink(db TxBeginner, notifications *repository.NotificationRepository, outboxRepo *outbox.Repository, logger *zap.Logger) *OutboxSink {
	return &OutboxSink{
		db:            db,
		notifications: notifications,
		outboxRepo:    outboxRepo,
		logger:        logger,
	}
}

func (s *OutboxSink) Deliver(ctx context.Context, n *model.Notification) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.notifications.InsertTx(ctx, tx, n); err != nil {
		return err
	}

	event, err := outbox.NewEvent("notification", int64(n.ID), mqcontracts.RoutingNotificationCreated, CreatedPayload(ctx, n))
	if err != nil {
		return err
	}
	if err := s.outboxRepo.InsertEvent(ctx, tx, event); err != nil {
		s.logger.Error("Failed to insert notification.created to outbox", zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreatedPayload builds the event body for a stored notification.
func CreatedPayload(ctx context.Context, n *model.Notification) mqcontracts.NotificationCreatedPayload {
	return mqcontracts.NotificationCreatedPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Kind:           n.Kind,
		Title:          n.Title,
		Message:        n.Message,
		ProjectSlug:    n.Link.ProjectSlug,
		TaskID:         n.Link.TaskID,
		CommentID:      n.Link.CommentID,
		Anchor:         n.Link.Anchor(),
		TraceID:        trace.FromContext(ctx),
		CreatedAt:      n.CreatedAt,
	}
}
