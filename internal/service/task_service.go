package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/internal/notify"
	"taskflow/internal/repository"
	"taskflow/pkg/lock"
	"taskflow/pkg/logger"
	"taskflow/pkg/metrics"
	"taskflow/pkg/otel"
)

type CreateTaskInput struct {
	ProjectID   int
	CreatorID   int
	AssigneeID  *int
	ColumnID    *int
	Title       string
	Description string
	Status      model.TaskStatus
	Priority    model.Priority
	// Position nil means append after the project's current maximum.
	Position *int
	DueDate  time.Time
}

// UpdateTaskInput: nil fields are left unchanged. Status moves go through MoveToStatus.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *model.Priority
	AssigneeID    *int
	ClearAssignee bool
	ColumnID      *int
	ClearColumn   bool
	Position      *int
	DueDate       *time.Time
}

type TaskService struct {
	store    repository.Store
	locker   lock.Locker
	comments *CommentService
	labels   *LabelService
	notifier notify.Notifier
	clock    Clock
	opts     Options
	logger   *zap.Logger
}

func NewTaskService(
	store repository.Store,
	locker lock.Locker,
	comments *CommentService,
	labels *LabelService,
	notifier notify.Notifier,
	clock Clock,
	opts Options,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		store:    store,
		locker:   locker,
		comments: comments,
		labels:   labels,
		notifier: notifier,
		clock:    clock,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Create validates the task, assigns task_number and (when unset) position under the
// project's numbering lock, and notifies the assignee when it is not the creator.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (_ *model.Task, err error) {
	ctx, span := otel.StartSpan(ctx, "task.create")
	defer otel.End(span, &err)

	t := &model.Task{
		ProjectID:   in.ProjectID,
		CreatorID:   in.CreatorID,
		AssigneeID:  in.AssigneeID,
		ColumnID:    in.ColumnID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	}
	if t.Status == "" {
		t.Status = model.StatusBacklog
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if !t.DueDate.IsZero() {
		t.DueDate = model.DateOf(t.DueDate)
	}
	if in.Position != nil {
		t.Position = *in.Position
	}

	errs := t.Validate()
	errs = append(errs, t.ValidateDueDateWindow(s.clock.Today())...)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, t.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, t.CreatorID); err != nil {
		return nil, err
	}
	if t.AssigneeID != nil {
		if _, err := s.store.GetUser(ctx, *t.AssigneeID); err != nil {
			return nil, err
		}
	}

	if err := s.insert(ctx, t, in.Position == nil); err != nil {
		return nil, err
	}
	metrics.IncrementTaskCreated()
	logger.WithTrace(ctx, s.logger).Info("Task created",
		zap.Int("task_id", t.ID),
		zap.Int("project_id", t.ProjectID),
		zap.String("display_id", t.DisplayID()),
		zap.Int("position", t.Position),
	)

	if t.AssigneeID != nil && *t.AssigneeID != t.CreatorID {
		s.notifier.Notify(ctx, model.Notification{
			UserID:  *t.AssigneeID,
			Kind:    model.NotifyTaskAssigned,
			Title:   "New task assigned",
			Message: fmt.Sprintf("You have been assigned a task: %s", t.Title),
			Link:    model.Link{ProjectSlug: project.Slug, TaskID: t.ID},
		})
	}
	return t, nil
}

// insert runs the read-max + write step; the lock makes it linearizable per project and
// the unique (project_id, task_number) index catches anything that slips past it.
func (s *TaskService) insert(ctx context.Context, t *model.Task, defaultPosition bool) error {
	release, err := s.locker.Acquire(ctx, numberingKey(t.ProjectID))
	if err != nil {
		return fmt.Errorf("acquire numbering lock: %w", err)
	}
	defer release()

	return retryOnConflict(ctx, s.logger, "task", s.opts.NumberingRetries, func() error {
		return s.store.InTx(ctx, func(tx repository.Store) error {
			last, err := tx.MaxTaskNumber(ctx, t.ProjectID)
			if err != nil {
				return err
			}
			t.TaskNumber = last + 1

			if defaultPosition {
				maxPos, err := tx.MaxTaskPosition(ctx, t.ProjectID)
				if err != nil {
					return err
				}
				t.Position = maxPos + 1
			}
			return tx.CreateTask(ctx, t)
		})
	})
}

func (s *TaskService) Get(ctx context.Context, taskID int) (*model.Task, error) {
	return s.store.GetTask(ctx, taskID)
}

// Update re-validates field rules. The creation-time due date window is not re-checked.
// The row is locked for the read-modify-write, and status is never written here, so a
// concurrent MoveToStatus is never undone.
func (s *TaskService) Update(ctx context.Context, taskID int, in UpdateTaskInput) (_ *model.Task, err error) {
	ctx, span := otel.StartSpan(ctx, "task.update")
	defer otel.End(span, &err)

	if in.AssigneeID != nil && !in.ClearAssignee {
		if _, err := s.store.GetUser(ctx, *in.AssigneeID); err != nil {
			return nil, err
		}
	}

	var t *model.Task
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		t, err = tx.GetTaskForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		applyTaskUpdate(t, in)
		if err := t.Validate().Err(); err != nil {
			return err
		}
		return tx.UpdateTask(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Task updated", zap.Int("task_id", t.ID))
	return t, nil
}

func applyTaskUpdate(t *model.Task, in UpdateTaskInput) {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	switch {
	case in.ClearAssignee:
		t.AssigneeID = nil
	case in.AssigneeID != nil:
		t.AssigneeID = in.AssigneeID
	}
	switch {
	case in.ClearColumn:
		t.ColumnID = nil
	case in.ColumnID != nil:
		t.ColumnID = in.ColumnID
	}
	if in.Position != nil {
		t.Position = *in.Position
	}
	if in.DueDate != nil {
		t.DueDate = model.DateOf(*in.DueDate)
	}
}

// Delete removes the task together with its comments and label links.
func (s *TaskService) Delete(ctx context.Context, taskID int) (err error) {
	ctx, span := otel.StartSpan(ctx, "task.delete")
	defer otel.End(span, &err)

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetTask(ctx, taskID); err != nil {
			return err
		}
		if err := tx.DeleteTaskComments(ctx, taskID); err != nil {
			return err
		}
		if err := tx.DeleteTaskLabels(ctx, taskID); err != nil {
			return err
		}
		return tx.DeleteTask(ctx, taskID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Task deleted", zap.Int("task_id", taskID))
	return nil
}

// MoveToStatus is the only way to change a task's status. Any status may follow any other.
// It records when and by whom the status changed, then leaves exactly one system comment
// "{old} -> {new}" when the status actually changed.
//
// The status change is committed before the audit comment is written. If writing the
// comment fails, the updated task is returned together with the error.
func (s *TaskService) MoveToStatus(ctx context.Context, taskID int, status model.TaskStatus, actingUserID int) (_ *model.Task, err error) {
	ctx, span := otel.StartSpan(ctx, "task.move_to_status")
	defer otel.End(span, &err)

	if !status.Valid() {
		return nil, model.Invalid("status", model.ReasonInclusion)
	}
	if _, err := s.store.GetUser(ctx, actingUserID); err != nil {
		return nil, err
	}

	var t *model.Task
	var previous model.TaskStatus
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		// the row lock makes previous the status this move actually replaces
		t, err = tx.GetTaskForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		previous = t.Status
		now := s.clock.Now()
		if err := tx.SetTaskStatus(ctx, taskID, status, now, actingUserID); err != nil {
			return err
		}
		t.Status = status
		t.StatusChangedAt = &now
		t.StatusChangedBy = &actingUserID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous == status {
		return t, nil
	}

	metrics.RecordStatusTransition(string(previous), string(status))
	logger.WithTrace(ctx, s.logger).Info("Task status changed",
		zap.Int("task_id", t.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.Int("changed_by", actingUserID),
	)

	_, err = s.comments.Create(ctx, CreateCommentInput{
		TaskID:        t.ID,
		AuthorID:      actingUserID,
		Content:       model.StatusChangeMessage(previous, status),
		SystemMessage: true,
	})
	if err != nil {
		return t, fmt.Errorf("record status change: %w", err)
	}
	t.CommentsCount++
	return t, nil
}

// AddLabel attaches (creating if needed) a label by name; color "" uses the default.
func (s *TaskService) AddLabel(ctx context.Context, taskID int, name, color string) (*model.Label, error) {
	return s.labels.Attach(ctx, taskID, name, color)
}

func (s *TaskService) RemoveLabel(ctx context.Context, taskID int, name string) error {
	return s.labels.Detach(ctx, taskID, name)
}

func (s *TaskService) Labels(ctx context.Context, taskID int) ([]model.Label, error) {
	return s.labels.ForTask(ctx, taskID)
}

// Upcoming lists tasks due between today and today+UpcomingDays, inclusive.
func (s *TaskService) Upcoming(ctx context.Context, projectID int) ([]model.Task, error) {
	today := s.clock.Today()
	return s.store.ListTasksDueBetween(ctx, projectID, today, today.AddDate(0, 0, s.opts.UpcomingDays))
}
