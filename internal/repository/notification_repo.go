package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskflow/internal/model"
)

// NotificationRepository stores notification rows; writes always join a caller-owned tx.
type NotificationRepository struct {
	logger *zap.Logger
}

func NewNotificationRepository(logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{logger: logger}
}

func (r *NotificationRepository) InsertTx(ctx context.Context, tx pgx.Tx, n *model.Notification) error {
	r.logger.Debug("Inserting notification",
		zap.Int("user_id", n.UserID),
		zap.String("kind", n.Kind),
	)
	var taskID, commentID *int
	if n.Link.TaskID != 0 {
		taskID = &n.Link.TaskID
	}
	if n.Link.CommentID != 0 {
		commentID = &n.Link.CommentID
	}
	err := tx.QueryRow(ctx, `
        INSERT INTO notifications (user_id, kind, title, message, project_slug, task_id, comment_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `, n.UserID, n.Kind, n.Title, n.Message, n.Link.ProjectSlug, taskID, commentID).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification", zap.Error(err), zap.Int("user_id", n.UserID))
		return wrapPgError(err)
	}
	return nil
}
