package repository

import (
	"context"

	"go.uber.org/zap"

	"taskflow/internal/model"
)

type LabelRepository struct {
	db     querier
	logger *zap.Logger
}

func NewLabelRepository(db querier, logger *zap.Logger) *LabelRepository {
	return &LabelRepository{db: db, logger: logger}
}

func (r *LabelRepository) queryLabels(ctx context.Context, query string, args ...any) ([]model.Label, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query labels", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	labels := []model.Label{}
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (r *LabelRepository) CreateLabel(ctx context.Context, l *model.Label) error {
	r.logger.Debug("Inserting label", zap.String("name", l.Name))
	err := r.db.QueryRow(ctx, `
        INSERT INTO labels (name, color)
        VALUES ($1, $2)
        RETURNING id, created_at
    `, l.Name, l.Color).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert label", zap.Error(err), zap.String("name", l.Name))
		return wrapPgError(err)
	}
	r.logger.Info("Label inserted successfully", zap.Int("label_id", l.ID))
	return nil
}

func (r *LabelRepository) GetLabelByName(ctx context.Context, name string) (*model.Label, error) {
	var l model.Label
	err := r.db.QueryRow(ctx, `SELECT id, name, color, created_at FROM labels WHERE name = $1`, name).
		Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt)
	if err != nil {
		return nil, mapError(err, "label", name)
	}
	return &l, nil
}

func (r *LabelRepository) LabelUsageCount(ctx context.Context, labelID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT task_id) FROM task_labels WHERE label_id = $1`, labelID).Scan(&n)
	return n, err
}

// MostUsedLabels orders by usage descending, ties by id.
func (r *LabelRepository) MostUsedLabels(ctx context.Context, limit int) ([]model.LabelUsage, error) {
	rows, err := r.db.Query(ctx, `
        SELECT l.id, l.name, l.color, l.created_at, COUNT(DISTINCT tl.task_id) AS usage
        FROM labels l
        LEFT JOIN task_labels tl ON tl.label_id = l.id
        GROUP BY l.id
        ORDER BY usage DESC, l.id ASC
        LIMIT $1
    `, limit)
	if err != nil {
		r.logger.Error("Failed to query most used labels", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	usages := []model.LabelUsage{}
	for rows.Next() {
		var u model.LabelUsage
		if err := rows.Scan(&u.ID, &u.Name, &u.Color, &u.CreatedAt, &u.UsageCount); err != nil {
			return nil, err
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}

func (r *LabelRepository) ProjectLabels(ctx context.Context, projectID int) ([]model.Label, error) {
	return r.queryLabels(ctx, `
        SELECT DISTINCT l.id, l.name, l.color, l.created_at
        FROM labels l
        JOIN task_labels tl ON tl.label_id = l.id
        JOIN tasks t ON t.id = tl.task_id
        WHERE t.project_id = $1
        ORDER BY l.id
    `, projectID)
}

func (r *LabelRepository) TaskLabels(ctx context.Context, taskID int) ([]model.Label, error) {
	return r.queryLabels(ctx, `
        SELECT l.id, l.name, l.color, l.created_at
        FROM labels l
        JOIN task_labels tl ON tl.label_id = l.id
        WHERE tl.task_id = $1
        ORDER BY l.id
    `, taskID)
}

func (r *LabelRepository) AttachLabel(ctx context.Context, taskID, labelID int) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO task_labels (task_id, label_id)
        VALUES ($1, $2)
        ON CONFLICT (task_id, label_id) DO NOTHING
    `, taskID, labelID)
	if err != nil {
		r.logger.Error("Failed to attach label", zap.Error(err), zap.Int("task_id", taskID), zap.Int("label_id", labelID))
		return false, wrapPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LabelRepository) DetachLabel(ctx context.Context, taskID, labelID int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM task_labels WHERE task_id = $1 AND label_id = $2`, taskID, labelID)
	return err
}

func (r *LabelRepository) DeleteTaskLabels(ctx context.Context, taskID int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM task_labels WHERE task_id = $1`, taskID)
	return err
}

func (r *LabelRepository) DeleteProjectTaskLabels(ctx context.Context, projectID int) error {
	_, err := r.db.Exec(ctx, `
        DELETE FROM task_labels
        WHERE task_id IN (SELECT id FROM tasks WHERE project_id = $1)
    `, projectID)
	return err
}
