package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/otel"
	"taskflow/pkg/rbac"
	"taskflow/pkg/util"
)

const usernameConstraint = "users_username_key"

type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	Role      model.Role
}

type UserService struct {
	store  repository.Store
	clock  Clock
	logger *zap.Logger
}

func NewUserService(store repository.Store, clock Clock, logger *zap.Logger) *UserService {
	return &UserService{store: store, clock: clock, logger: logger}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (_ *model.User, err error) {
	ctx, span := otel.StartSpan(ctx, "user.register")
	defer otel.End(span, &err)

	u := &model.User{
		Email:     model.NormalizeEmail(in.Email),
		Username:  strings.TrimSpace(in.Username),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      in.Role,
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}

	errs := u.Validate()
	errs = append(errs, model.ValidatePassword(in.Password)...)

	taken, err := s.store.EmailExists(ctx, u.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		errs = append(errs, model.ValidationError{Field: "email", Reason: model.ReasonTaken})
	}
	taken, err = s.store.UsernameExists(ctx, u.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		errs = append(errs, model.ValidationError{Field: "username", Reason: model.ReasonTaken})
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	u.PasswordHash, err = util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		// lost a race with another registration after the existence checks
		var ce *model.ConstraintError
		if errors.As(err, &ce) {
			if ce.Constraint == usernameConstraint {
				return nil, model.Invalid("username", model.ReasonTaken)
			}
			return nil, model.Invalid("email", model.ReasonTaken)
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Authenticate checks credentials. Banned users are rejected even with a correct password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.store.GetUserByEmail(ctx, model.NormalizeEmail(email))
	if model.IsNotFound(err) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !util.CheckPassword(password, u.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}
	if !u.ActiveForAuthentication() {
		return nil, model.ErrUserBanned
	}
	return u, nil
}

func (s *UserService) Ban(ctx context.Context, adminID, userID int) error {
	now := s.clock.Now()
	return s.setBanned(ctx, adminID, userID, true, &now)
}

func (s *UserService) Unban(ctx context.Context, adminID, userID int) error {
	return s.setBanned(ctx, adminID, userID, false, nil)
}

func (s *UserService) setBanned(ctx context.Context, adminID, userID int, banned bool, at *time.Time) (err error) {
	ctx, span := otel.StartSpan(ctx, "user.set_banned")
	defer otel.End(span, &err)

	admin, err := s.store.GetUser(ctx, adminID)
	if err != nil {
		return err
	}
	if err := rbac.Check(admin.IsAdmin(), adminID, rbac.ActionBanUser); err != nil {
		return err
	}
	if err := s.store.SetUserBanned(ctx, userID, banned, at); err != nil {
		return err
	}
	s.logger.Info("User ban state changed",
		zap.Int("admin_id", adminID),
		zap.Int("user_id", userID),
		zap.Bool("banned", banned),
	)
	return nil
}
