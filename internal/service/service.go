package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/internal/notify"
	"taskflow/internal/repository"
	"taskflow/pkg/lock"
	"taskflow/pkg/metrics"
	"taskflow/pkg/util"
)

// Clock supplies the current instant and calendar date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time   { return time.Now().UTC() }
func (SystemClock) Today() time.Time { return model.DateOf(time.Now().UTC()) }

// Options holds the tunables shared by the engines.
type Options struct {
	NumberingRetries  int
	DefaultLabelColor string
	MostUsedLimit     int
	UpcomingDays      int
}

func (o Options) withDefaults() Options {
	if o.NumberingRetries <= 0 {
		o.NumberingRetries = 3
	}
	if o.DefaultLabelColor == "" {
		o.DefaultLabelColor = model.DefaultLabelColor
	}
	if o.MostUsedLimit <= 0 {
		o.MostUsedLimit = 10
	}
	if o.UpcomingDays <= 0 {
		o.UpcomingDays = 7
	}
	return o
}

func numberingKey(projectID int) string {
	return fmt.Sprintf("project:%d:numbering", projectID)
}

func commentsKey(taskID int) string {
	return fmt.Sprintf("task:%d:comments", taskID)
}

// retryOnConflict reruns fn while it fails with a lost race (unique violation,
// serialization failure, deadlock), at most attempts times, then escalates the last error.
func retryOnConflict(ctx context.Context, logger *zap.Logger, scope string, attempts int, fn func() error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		retryable, kind := util.IsRetryableError(err)
		if !model.IsConstraint(err) && !retryable {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.IncrementNumberingRetry(scope)
		logger.Warn("Conflict while assigning ordinal, retrying",
			zap.String("scope", scope),
			zap.Int("attempt", i),
			zap.String("error_type", kind),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", scope, attempts, err)
}

// Engine wires the workflow services over one store.
type Engine struct {
	Users       *UserService
	Memberships *MembershipService
	Labels      *LabelService
	Projects    *ProjectService
	Tasks       *TaskService
	Comments    *CommentService
}

func NewEngine(store repository.Store, locker lock.Locker, notifier notify.Notifier, clock Clock, opts Options, logger *zap.Logger) *Engine {
	labels := NewLabelService(store, opts, logger)
	comments := NewCommentService(store, locker, notifier, opts, logger)
	return &Engine{
		Users:       NewUserService(store, clock, logger),
		Memberships: NewMembershipService(store, notifier, logger),
		Labels:      labels,
		Projects:    NewProjectService(store, clock, opts, logger),
		Tasks:       NewTaskService(store, locker, comments, labels, notifier, clock, opts, logger),
		Comments:    comments,
	}
}

// Ready runs one cheap read through the engine's store.
func (e *Engine) Ready(ctx context.Context) error {
	if _, err := e.Labels.MostUsed(ctx, 1); err != nil {
		return fmt.Errorf("engine store: %w", err)
	}
	return nil
}
