package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/otel"
)

// ownerNameConstraint is the unique (owner_id, name) index on projects.
const ownerNameConstraint = "projects_owner_id_name_key"

type CreateProjectInput struct {
	OwnerID     int
	Name        string
	Description string
	Status      model.ProjectStatus
}

// UpdateProjectInput: nil fields are left unchanged. The slug never changes.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *model.ProjectStatus
}

type ProjectService struct {
	store  repository.Store
	clock  Clock
	opts   Options
	logger *zap.Logger
}

func NewProjectService(store repository.Store, clock Clock, opts Options, logger *zap.Logger) *ProjectService {
	return &ProjectService{store: store, clock: clock, opts: opts.withDefaults(), logger: logger}
}

// Create stores the project and the owner's admin membership in one transaction.
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (_ *model.Project, err error) {
	ctx, span := otel.StartSpan(ctx, "project.create")
	defer otel.End(span, &err)

	p := &model.Project{
		OwnerID:     in.OwnerID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      in.Status,
	}
	if p.Status == "" {
		p.Status = model.ProjectActive
	}
	base := Slugify(p.Name)
	p.Slug = base

	errs := p.Validate()
	if len(errs) == 0 {
		taken, err := s.store.ProjectNameTaken(ctx, p.OwnerID, p.Name, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			errs = append(errs, model.ValidationError{Field: "name", Reason: model.ReasonTaken})
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, p.OwnerID); err != nil {
		return nil, err
	}

	err = retryOnConflict(ctx, s.logger, "slug", s.opts.NumberingRetries, func() error {
		return s.store.InTx(ctx, func(tx repository.Store) error {
			unique, err := uniqueSlug(ctx, tx, base)
			if err != nil {
				return err
			}
			p.Slug = unique
			if err := tx.CreateProject(ctx, p); err != nil {
				var ce *model.ConstraintError
				if errors.As(err, &ce) && ce.Constraint == ownerNameConstraint {
					return model.Invalid("name", model.ReasonTaken)
				}
				return err
			}
			return tx.CreateMembership(ctx, &model.Membership{
				ProjectID: p.ID,
				UserID:    p.OwnerID,
				Role:      model.MemberRoleAdmin,
			})
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Project created",
		zap.Int("project_id", p.ID),
		zap.Int("owner_id", p.OwnerID),
		zap.String("slug", p.Slug),
	)
	return p, nil
}

// Slugify transliterates name into [a-z0-9-]; names with nothing usable become "project".
func Slugify(name string) string {
	raw := slug.Make(name)

	var b strings.Builder
	dash := false
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "project"
	}
	return out
}

// uniqueSlug appends -1, -2, ... to base until no project uses it.
func uniqueSlug(ctx context.Context, st repository.Store, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		exists, err := st.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *ProjectService) Get(ctx context.Context, projectID int) (*model.Project, error) {
	return s.store.GetProject(ctx, projectID)
}

func (s *ProjectService) FindBySlug(ctx context.Context, projectSlug string) (*model.Project, error) {
	return s.store.GetProjectBySlug(ctx, projectSlug)
}

func (s *ProjectService) Update(ctx context.Context, projectID int, in UpdateProjectInput) (_ *model.Project, err error) {
	ctx, span := otel.StartSpan(ctx, "project.update")
	defer otel.End(span, &err)

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		p.Status = *in.Status
	}

	errs := p.Validate()
	if in.Name != nil && len(errs) == 0 {
		taken, err := s.store.ProjectNameTaken(ctx, p.OwnerID, p.Name, p.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			errs = append(errs, model.ValidationError{Field: "name", Reason: model.ReasonTaken})
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProject(ctx, p); err != nil {
		if model.IsConstraint(err) {
			return nil, model.Invalid("name", model.ReasonTaken)
		}
		return nil, err
	}
	s.logger.Info("Project updated", zap.Int("project_id", p.ID))
	return p, nil
}

// Delete removes the project with its tasks, their comments and label links, and all
// memberships. Any failure rolls the whole delete back.
func (s *ProjectService) Delete(ctx context.Context, projectID int) (err error) {
	ctx, span := otel.StartSpan(ctx, "project.delete")
	defer otel.End(span, &err)

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return err
		}
		if err := tx.DeleteProjectComments(ctx, projectID); err != nil {
			return err
		}
		if err := tx.DeleteProjectTaskLabels(ctx, projectID); err != nil {
			return err
		}
		if err := tx.DeleteProjectTasks(ctx, projectID); err != nil {
			return err
		}
		if err := tx.DeleteProjectMemberships(ctx, projectID); err != nil {
			return err
		}
		return tx.DeleteProject(ctx, projectID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Project deleted", zap.Int("project_id", projectID))
	return nil
}

// TasksCountByStatus has one entry per status present in the project.
func (s *ProjectService) TasksCountByStatus(ctx context.Context, projectID int) (map[model.TaskStatus]int, error) {
	return s.store.CountTasksByStatus(ctx, projectID)
}

func (s *ProjectService) OverdueTasks(ctx context.Context, projectID int) ([]model.Task, error) {
	return s.store.ListOverdueTasks(ctx, projectID, s.clock.Today())
}

func (s *ProjectService) ProgressPercentage(ctx context.Context, projectID int) (int, error) {
	counts, err := s.store.CountTasksByStatus(ctx, projectID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return model.ProgressPercentage(counts[model.StatusDone], total), nil
}

func (s *ProjectService) MembersCount(ctx context.Context, projectID int) (int, error) {
	return s.store.CountMemberships(ctx, projectID)
}

// ListForUser returns every project the user is a member of, including owned ones.
func (s *ProjectService) ListForUser(ctx context.Context, userID int) ([]model.Project, error) {
	return s.store.ListProjectsForUser(ctx, userID)
}
