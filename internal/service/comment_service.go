package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/internal/notify"
	"taskflow/internal/repository"
	"taskflow/pkg/lock"
	"taskflow/pkg/logger"
	"taskflow/pkg/otel"
	"taskflow/pkg/rbac"
)

type CreateCommentInput struct {
	TaskID        int
	AuthorID      int
	Content       string
	SystemMessage bool
}

type CommentService struct {
	store    repository.Store
	locker   lock.Locker
	notifier notify.Notifier
	opts     Options
	logger   *zap.Logger
}

func NewCommentService(store repository.Store, locker lock.Locker, notifier notify.Notifier, opts Options, logger *zap.Logger) *CommentService {
	return &CommentService{
		store:    store,
		locker:   locker,
		notifier: notifier,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Create appends a comment at position last+1 (first is 1) and bumps the task's counter.
// Non-system comments notify the task assignee unless the assignee wrote them.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (_ *model.Comment, err error) {
	ctx, span := otel.StartSpan(ctx, "comment.create")
	defer otel.End(span, &err)

	c := &model.Comment{
		TaskID:        in.TaskID,
		UserID:        in.AuthorID,
		Content:       in.Content,
		SystemMessage: in.SystemMessage,
	}
	if err := c.Validate().Err(); err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	author, err := s.store.GetUser(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	if err := s.insert(ctx, c); err != nil {
		return nil, err
	}
	logger.WithTrace(ctx, s.logger).Info("Comment created",
		zap.Int("comment_id", c.ID),
		zap.Int("task_id", c.TaskID),
		zap.Int("position", c.Position),
		zap.Bool("system_message", c.SystemMessage),
	)

	if !c.SystemMessage {
		s.notifyAssignee(ctx, task, author, c)
	}
	return c, nil
}

// insert serializes position assignment per task.
func (s *CommentService) insert(ctx context.Context, c *model.Comment) error {
	release, err := s.locker.Acquire(ctx, commentsKey(c.TaskID))
	if err != nil {
		return fmt.Errorf("acquire comment lock: %w", err)
	}
	defer release()

	return retryOnConflict(ctx, s.logger, "comment", s.opts.NumberingRetries, func() error {
		return s.store.InTx(ctx, func(tx repository.Store) error {
			last, err := tx.MaxCommentPosition(ctx, c.TaskID)
			if err != nil {
				return err
			}
			c.Position = last + 1
			if err := tx.CreateComment(ctx, c); err != nil {
				return err
			}
			return tx.AdjustCommentsCount(ctx, c.TaskID, 1)
		})
	})
}

func (s *CommentService) notifyAssignee(ctx context.Context, task *model.Task, author *model.User, c *model.Comment) {
	if task.AssigneeID == nil || *task.AssigneeID == author.ID {
		return
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil {
		s.logger.Warn("Skipping assignee notification", zap.Error(err), zap.Int("task_id", task.ID))
		return
	}
	s.notifier.Notify(ctx, model.Notification{
		UserID:  *task.AssigneeID,
		Kind:    model.NotifyCommentCreated,
		Title:   "New comment on your task",
		Message: fmt.Sprintf("%s commented on task: %s", author.Username, task.Title),
		Link:    model.Link{ProjectSlug: project.Slug, TaskID: task.ID, CommentID: c.ID},
	})
}

func (s *CommentService) Get(ctx context.Context, commentID int) (*model.Comment, error) {
	return s.store.GetComment(ctx, commentID)
}

func (s *CommentService) ListForTask(ctx context.Context, taskID int) ([]model.Comment, error) {
	return s.store.ListComments(ctx, taskID)
}

// authorize loads the comment and checks the acting user against check.
func (s *CommentService) authorize(ctx context.Context, commentID, actingUserID int, action string,
	check func(*model.Comment, *model.User, *model.Project) bool) (*model.Comment, error) {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, c.TaskID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := rbac.Check(check(c, user, project), actingUserID, action); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) Update(ctx context.Context, commentID, actingUserID int, content string) (_ *model.Comment, err error) {
	ctx, span := otel.StartSpan(ctx, "comment.update")
	defer otel.End(span, &err)

	c, err := s.authorize(ctx, commentID, actingUserID, rbac.ActionEditComment, model.CanEditComment)
	if err != nil {
		return nil, err
	}
	c.Content = content
	if err := c.Validate().Err(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the comment and decrements the task's counter in the same transaction.
func (s *CommentService) Delete(ctx context.Context, commentID, actingUserID int) (err error) {
	ctx, span := otel.StartSpan(ctx, "comment.delete")
	defer otel.End(span, &err)

	c, err := s.authorize(ctx, commentID, actingUserID, rbac.ActionDeleteComment, model.CanDeleteComment)
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.DeleteComment(ctx, c.ID); err != nil {
			return err
		}
		return tx.AdjustCommentsCount(ctx, c.TaskID, -1)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Comment deleted", zap.Int("comment_id", c.ID), zap.Int("task_id", c.TaskID))
	return nil
}

// MentionedUsers resolves @username tokens in mention order. Unknown names are dropped.
func (s *CommentService) MentionedUsers(ctx context.Context, content string) ([]model.User, error) {
	names := model.MentionedUsernames(content)
	if len(names) == 0 {
		return nil, nil
	}
	found, err := s.store.FindUsersByUsernames(ctx, names)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]model.User, len(found))
	for _, u := range found {
		byName[u.Username] = u
	}
	users := make([]model.User, 0, len(found))
	for _, name := range names {
		u, ok := byName[name]
		if !ok {
			s.logger.Debug("Unresolved mention dropped", zap.String("username", name))
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// NotifyMentions notifies every user mentioned in the comment except its author, each at
// most once, and returns how many notifications were emitted.
func (s *CommentService) NotifyMentions(ctx context.Context, commentID int) (_ int, err error) {
	ctx, span := otel.StartSpan(ctx, "comment.notify_mentions")
	defer otel.End(span, &err)

	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return 0, err
	}
	author, err := s.store.GetUser(ctx, c.UserID)
	if err != nil {
		return 0, err
	}
	task, err := s.store.GetTask(ctx, c.TaskID)
	if err != nil {
		return 0, err
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil {
		return 0, err
	}
	users, err := s.MentionedUsers(ctx, c.Content)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		if u.ID == author.ID {
			continue
		}
		s.notifier.Notify(ctx, model.Notification{
			UserID:  u.ID,
			Kind:    model.NotifyMentioned,
			Title:   "You were mentioned in a comment",
			Message: fmt.Sprintf("%s mentioned you in task: %s", author.Username, task.Title),
			Link:    model.Link{ProjectSlug: project.Slug, TaskID: task.ID, CommentID: c.ID},
		})
		sent++
	}
	return sent, nil
}
