package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/internal/notify"
	"taskflow/internal/repository"
	"taskflow/pkg/otel"
)

type MembershipService struct {
	store    repository.Store
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewMembershipService(store repository.Store, notifier notify.Notifier, logger *zap.Logger) *MembershipService {
	return &MembershipService{store: store, notifier: notifier, logger: logger}
}

// Add creates a membership and sends the new member a welcome notification.
func (s *MembershipService) Add(ctx context.Context, projectID, userID int, role model.MembershipRole) (_ *model.Membership, err error) {
	ctx, span := otel.StartSpan(ctx, "membership.add")
	defer otel.End(span, &err)

	if role == "" {
		role = model.MemberRoleMember
	}
	m := &model.Membership{ProjectID: projectID, UserID: userID, Role: role}
	if err := m.Validate().Err(); err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	switch _, err := s.store.GetMembership(ctx, projectID, userID); {
	case err == nil:
		return nil, model.Invalid("user_id", model.ReasonTaken)
	case !model.IsNotFound(err):
		return nil, err
	}

	if err := s.store.CreateMembership(ctx, m); err != nil {
		if model.IsConstraint(err) {
			return nil, model.Invalid("user_id", model.ReasonTaken)
		}
		return nil, err
	}
	s.logger.Info("Membership created",
		zap.Int("project_id", projectID),
		zap.Int("user_id", userID),
		zap.String("role", string(role)),
	)

	s.notifier.Notify(ctx, model.Notification{
		UserID:  userID,
		Kind:    model.NotifyWelcome,
		Title:   "Welcome to the project!",
		Message: fmt.Sprintf("You have been added to the project: %s", project.Name),
		Link:    model.Link{ProjectSlug: project.Slug},
	})
	return m, nil
}

// Remove deletes the membership and unassigns the user from every task of that project,
// atomically. The owner's membership cannot be removed.
func (s *MembershipService) Remove(ctx context.Context, projectID, userID int) (err error) {
	ctx, span := otel.StartSpan(ctx, "membership.remove")
	defer otel.End(span, &err)

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.IsOwner(userID) {
		return model.Invalid("user_id", model.ReasonOwnerMember)
	}

	var unassigned int64
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetMembership(ctx, projectID, userID); err != nil {
			return err
		}
		n, err := tx.UnassignTasks(ctx, projectID, userID)
		if err != nil {
			return err
		}
		unassigned = n
		return tx.DeleteMembership(ctx, projectID, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Membership removed",
		zap.Int("project_id", projectID),
		zap.Int("user_id", userID),
		zap.Int64("tasks_unassigned", unassigned),
	)
	return nil
}

// CanEditProject resolves the user, project and membership, then applies model.CanEditProject.
func (s *MembershipService) CanEditProject(ctx context.Context, userID, projectID int) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	m, err := s.store.GetMembership(ctx, projectID, userID)
	if err != nil && !model.IsNotFound(err) {
		return false, err
	}
	return model.CanEditProject(user, project, m), nil
}

// Membership returns the user's membership row, or nil when the user is not a member.
func (s *MembershipService) Membership(ctx context.Context, projectID, userID int) (*model.Membership, error) {
	m, err := s.store.GetMembership(ctx, projectID, userID)
	if model.IsNotFound(err) {
		return nil, nil
	}
	return m, err
}
