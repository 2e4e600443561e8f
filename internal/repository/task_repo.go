package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/model"
)

type TaskRepository struct {
	db     querier
	logger *zap.Logger
}

func NewTaskRepository(db querier, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `id, project_id, creator_id, assignee_id, column_id, title, description, status, priority,
        position, task_number, due_date, status_changed_at, status_changed_by, comments_count, created_at, updated_at`

func scanTask(row interface{ Scan(dest ...any) error }, t *model.Task) error {
	return row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.CreatorID,
		&t.AssigneeID,
		&t.ColumnID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.Position,
		&t.TaskNumber,
		&t.DueDate,
		&t.StatusChangedAt,
		&t.StatusChangedBy,
		&t.CommentsCount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := scanTask(rows, &t); err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) CreateTask(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.Int("project_id", t.ProjectID),
		zap.Int("task_number", t.TaskNumber),
		zap.String("title", t.Title),
	)
	query := `
        INSERT INTO tasks (project_id, creator_id, assignee_id, column_id, title, description,
                           status, priority, position, task_number, due_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		t.ProjectID,
		t.CreatorID,
		t.AssigneeID,
		t.ColumnID,
		t.Title,
		t.Description,
		t.Status,
		t.Priority,
		t.Position,
		t.TaskNumber,
		t.DueDate,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int("project_id", t.ProjectID),
			zap.Int("task_number", t.TaskNumber),
		)
		return wrapPgError(err)
	}
	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("project_id", t.ProjectID),
	)
	return nil
}

func (r *TaskRepository) GetTask(ctx context.Context, id int) (*model.Task, error) {
	return r.getTask(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

func (r *TaskRepository) GetTaskForUpdate(ctx context.Context, id int) (*model.Task, error) {
	return r.getTask(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
}

func (r *TaskRepository) getTask(ctx context.Context, query string, id int) (*model.Task, error) {
	var t model.Task
	if err := scanTask(r.db.QueryRow(ctx, query, id), &t); err != nil {
		return nil, mapError(err, "task", id)
	}
	return &t, nil
}

// UpdateTask writes the editable fields. task_number and project_id never change, and the
// status columns are only written by SetTaskStatus; the stored values are scanned back into t.
func (r *TaskRepository) UpdateTask(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Updating task", zap.Int("task_id", t.ID))
	err := r.db.QueryRow(ctx, `
        UPDATE tasks
        SET assignee_id = $2, column_id = $3, title = $4, description = $5,
            priority = $6, position = $7, due_date = $8, updated_at = NOW()
        WHERE id = $1
        RETURNING status, status_changed_at, status_changed_by, comments_count, updated_at
    `,
		t.ID,
		t.AssigneeID,
		t.ColumnID,
		t.Title,
		t.Description,
		t.Priority,
		t.Position,
		t.DueDate,
	).Scan(&t.Status, &t.StatusChangedAt, &t.StatusChangedBy, &t.CommentsCount, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Error(err), zap.Int("task_id", t.ID))
		return mapError(err, "task", t.ID)
	}
	return nil
}

func (r *TaskRepository) SetTaskStatus(ctx context.Context, id int, status model.TaskStatus, changedAt time.Time, changedBy int) error {
	r.logger.Debug("Setting task status", zap.Int("task_id", id), zap.String("status", string(status)))
	tag, err := r.db.Exec(ctx, `
        UPDATE tasks
        SET status = $2, status_changed_at = $3, status_changed_by = $4, updated_at = NOW()
        WHERE id = $1
    `, id, status, changedAt, changedBy)
	if err != nil {
		r.logger.Error("Failed to set task status", zap.Error(err), zap.Int("task_id", id))
		return wrapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("task", id)
	}
	r.logger.Info("Task status stored", zap.Int("task_id", id), zap.String("status", string(status)))
	return nil
}

func (r *TaskRepository) DeleteTask(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Error(err), zap.Int("task_id", id))
		return wrapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("task", id)
	}
	r.logger.Info("Task deleted", zap.Int("task_id", id))
	return nil
}

func (r *TaskRepository) DeleteProjectTasks(ctx context.Context, projectID int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID)
	if err != nil {
		return wrapPgError(err)
	}
	r.logger.Info("Project tasks deleted",
		zap.Int("project_id", projectID),
		zap.Int64("rows_affected", tag.RowsAffected()),
	)
	return nil
}

func (r *TaskRepository) MaxTaskNumber(ctx context.Context, projectID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(task_number), 0) FROM tasks WHERE project_id = $1`, projectID).Scan(&n)
	return n, err
}

func (r *TaskRepository) MaxTaskPosition(ctx context.Context, projectID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) FROM tasks WHERE project_id = $1`, projectID).Scan(&n)
	return n, err
}

func (r *TaskRepository) CountTasksByStatus(ctx context.Context, projectID int) (map[model.TaskStatus]int, error) {
	rows, err := r.db.Query(ctx, `
        SELECT status, COUNT(*)
        FROM tasks
        WHERE project_id = $1
        GROUP BY status
    `, projectID)
	if err != nil {
		r.logger.Error("Failed to count tasks by status", zap.Error(err), zap.Int("project_id", projectID))
		return nil, err
	}
	defer rows.Close()

	counts := map[model.TaskStatus]int{}
	for rows.Next() {
		var status model.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *TaskRepository) ListOverdueTasks(ctx context.Context, projectID int, today time.Time) ([]model.Task, error) {
	return r.queryTasks(ctx, `
        SELECT `+taskColumns+`
        FROM tasks
        WHERE project_id = $1 AND due_date < $2 AND status <> 'done'
        ORDER BY due_date, id
    `, projectID, today)
}

func (r *TaskRepository) ListTasksDueBetween(ctx context.Context, projectID int, from, to time.Time) ([]model.Task, error) {
	return r.queryTasks(ctx, `
        SELECT `+taskColumns+`
        FROM tasks
        WHERE project_id = $1 AND due_date BETWEEN $2 AND $3
        ORDER BY due_date, id
    `, projectID, from, to)
}

func (r *TaskRepository) UnassignTasks(ctx context.Context, projectID, userID int) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE tasks
        SET assignee_id = NULL, updated_at = NOW()
        WHERE project_id = $1 AND assignee_id = $2
    `, projectID, userID)
	if err != nil {
		r.logger.Error("Failed to unassign tasks",
			zap.Error(err),
			zap.Int("project_id", projectID),
			zap.Int("user_id", userID),
		)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepository) AdjustCommentsCount(ctx context.Context, taskID, delta int) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE tasks
        SET comments_count = GREATEST(comments_count + $2, 0)
        WHERE id = $1
    `, taskID, delta)
	if err != nil {
		r.logger.Error("Failed to adjust comments count", zap.Error(err), zap.Int("task_id", taskID))
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("task", taskID)
	}
	return nil
}
