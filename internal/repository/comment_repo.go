package repository

import (
	"context"

	"go.uber.org/zap"

	"taskflow/internal/model"
)

type CommentRepository struct {
	db     querier
	logger *zap.Logger
}

func NewCommentRepository(db querier, logger *zap.Logger) *CommentRepository {
	return &CommentRepository{db: db, logger: logger}
}

const commentColumns = `id, task_id, user_id, content, position, system_message, created_at, updated_at`

func scanComment(row interface{ Scan(dest ...any) error }, c *model.Comment) error {
	return row.Scan(
		&c.ID,
		&c.TaskID,
		&c.UserID,
		&c.Content,
		&c.Position,
		&c.SystemMessage,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func (r *CommentRepository) CreateComment(ctx context.Context, c *model.Comment) error {
	r.logger.Debug("Inserting comment",
		zap.Int("task_id", c.TaskID),
		zap.Int("position", c.Position),
		zap.Bool("system_message", c.SystemMessage),
	)
	err := r.db.QueryRow(ctx, `
        INSERT INTO comments (task_id, user_id, content, position, system_message)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `, c.TaskID, c.UserID, c.Content, c.Position, c.SystemMessage).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert comment", zap.Error(err), zap.Int("task_id", c.TaskID))
		return wrapPgError(err)
	}
	r.logger.Info("Comment inserted successfully",
		zap.Int("comment_id", c.ID),
		zap.Int("task_id", c.TaskID),
	)
	return nil
}

func (r *CommentRepository) GetComment(ctx context.Context, id int) (*model.Comment, error) {
	var c model.Comment
	row := r.db.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	if err := scanComment(row, &c); err != nil {
		return nil, mapError(err, "comment", id)
	}
	return &c, nil
}

func (r *CommentRepository) UpdateComment(ctx context.Context, c *model.Comment) error {
	err := r.db.QueryRow(ctx, `
        UPDATE comments
        SET content = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `, c.ID, c.Content).Scan(&c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update comment", zap.Error(err), zap.Int("comment_id", c.ID))
		return mapError(err, "comment", c.ID)
	}
	return nil
}

func (r *CommentRepository) DeleteComment(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete comment", zap.Error(err), zap.Int("comment_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("comment", id)
	}
	return nil
}

func (r *CommentRepository) MaxCommentPosition(ctx context.Context, taskID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) FROM comments WHERE task_id = $1`, taskID).Scan(&n)
	return n, err
}

func (r *CommentRepository) ListComments(ctx context.Context, taskID int) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+commentColumns+`
        FROM comments
        WHERE task_id = $1
        ORDER BY position ASC, created_at DESC
    `, taskID)
	if err != nil {
		r.logger.Error("Failed to query comments", zap.Error(err), zap.Int("task_id", taskID))
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := scanComment(rows, &c); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) DeleteTaskComments(ctx context.Context, taskID int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM comments WHERE task_id = $1`, taskID)
	return err
}

func (r *CommentRepository) DeleteProjectComments(ctx context.Context, projectID int) error {
	_, err := r.db.Exec(ctx, `
        DELETE FROM comments
        WHERE task_id IN (SELECT id FROM tasks WHERE project_id = $1)
    `, projectID)
	return err
}
