package service

import (
	"context"

	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/otel"
)

type LabelService struct {
	store  repository.Store
	opts   Options
	logger *zap.Logger
}

func NewLabelService(store repository.Store, opts Options, logger *zap.Logger) *LabelService {
	return &LabelService{store: store, opts: opts.withDefaults(), logger: logger}
}

// Create normalizes the name (trim + lowercase) before the uniqueness check.
func (s *LabelService) Create(ctx context.Context, name, color string) (_ *model.Label, err error) {
	ctx, span := otel.StartSpan(ctx, "label.create")
	defer otel.End(span, &err)

	return s.create(ctx, name, color)
}

func (s *LabelService) create(ctx context.Context, name, color string) (*model.Label, error) {
	if color == "" {
		color = s.opts.DefaultLabelColor
	}
	l := &model.Label{Name: model.NormalizeLabelName(name), Color: color}
	errs := l.Validate()
	if len(errs) == 0 {
		switch _, err := s.store.GetLabelByName(ctx, l.Name); {
		case err == nil:
			errs = append(errs, model.ValidationError{Field: "name", Reason: model.ReasonTaken})
		case !model.IsNotFound(err):
			return nil, err
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.store.CreateLabel(ctx, l); err != nil {
		if model.IsConstraint(err) {
			return nil, model.Invalid("name", model.ReasonTaken)
		}
		return nil, err
	}
	s.logger.Info("Label created", zap.Int("label_id", l.ID), zap.String("name", l.Name))
	return l, nil
}

func (s *LabelService) UsageCount(ctx context.Context, labelID int) (int, error) {
	return s.store.LabelUsageCount(ctx, labelID)
}

// MostUsed orders labels by usage descending, ties by id. limit <= 0 uses the configured default.
func (s *LabelService) MostUsed(ctx context.Context, limit int) ([]model.LabelUsage, error) {
	if limit <= 0 {
		limit = s.opts.MostUsedLimit
	}
	return s.store.MostUsedLabels(ctx, limit)
}

func (s *LabelService) ForProject(ctx context.Context, projectID int) ([]model.Label, error) {
	return s.store.ProjectLabels(ctx, projectID)
}

func (s *LabelService) ForTask(ctx context.Context, taskID int) ([]model.Label, error) {
	return s.store.TaskLabels(ctx, taskID)
}

// Attach finds or creates the label by normalized name and links it to the task.
// Attaching an already attached label is a no-op.
func (s *LabelService) Attach(ctx context.Context, taskID int, name, color string) (_ *model.Label, err error) {
	ctx, span := otel.StartSpan(ctx, "label.attach")
	defer otel.End(span, &err)

	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	l, err := s.findOrCreate(ctx, name, color)
	if err != nil {
		return nil, err
	}

	attached, err := s.store.AttachLabel(ctx, taskID, l.ID)
	if err != nil {
		return nil, err
	}
	if attached {
		s.logger.Info("Label attached", zap.Int("task_id", taskID), zap.Int("label_id", l.ID))
	}
	return l, nil
}

func (s *LabelService) findOrCreate(ctx context.Context, name, color string) (*model.Label, error) {
	normalized := model.NormalizeLabelName(name)
	l, err := s.store.GetLabelByName(ctx, normalized)
	if err == nil {
		return l, nil
	}
	if !model.IsNotFound(err) {
		return nil, err
	}

	l, err = s.create(ctx, normalized, color)
	if v, ok := model.AsValidation(err); ok && v.Has("name", model.ReasonTaken) {
		// lost a create race; the winner's row is there now
		return s.store.GetLabelByName(ctx, normalized)
	}
	return l, err
}

// Detach is a no-op when the label does not exist or is not attached.
func (s *LabelService) Detach(ctx context.Context, taskID int, name string) error {
	l, err := s.store.GetLabelByName(ctx, model.NormalizeLabelName(name))
	if model.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.DetachLabel(ctx, taskID, l.ID)
}
