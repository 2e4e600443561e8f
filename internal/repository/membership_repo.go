package repository

import (
	"context"

	"go.uber.org/zap"

	"taskflow/internal/model"
)

type MembershipRepository struct {
	db     querier
	logger *zap.Logger
}

func NewMembershipRepository(db querier, logger *zap.Logger) *MembershipRepository {
	return &MembershipRepository{db: db, logger: logger}
}

func (r *MembershipRepository) CreateMembership(ctx context.Context, m *model.Membership) error {
	r.logger.Debug("Inserting membership",
		zap.Int("project_id", m.ProjectID),
		zap.Int("user_id", m.UserID),
		zap.String("role", string(m.Role)),
	)
	err := r.db.QueryRow(ctx, `
        INSERT INTO project_memberships (project_id, user_id, role)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `, m.ProjectID, m.UserID, m.Role).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert membership", zap.Error(err), zap.Int("project_id", m.ProjectID))
		return wrapPgError(err)
	}
	return nil
}

func (r *MembershipRepository) GetMembership(ctx context.Context, projectID, userID int) (*model.Membership, error) {
	var m model.Membership
	err := r.db.QueryRow(ctx, `
        SELECT id, project_id, user_id, role, created_at
        FROM project_memberships
        WHERE project_id = $1 AND user_id = $2
    `, projectID, userID).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, mapError(err, "membership", userID)
	}
	return &m, nil
}

func (r *MembershipRepository) DeleteMembership(ctx context.Context, projectID, userID int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM project_memberships WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		r.logger.Error("Failed to delete membership", zap.Error(err), zap.Int("project_id", projectID))
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("membership", userID)
	}
	r.logger.Info("Membership deleted", zap.Int("project_id", projectID), zap.Int("user_id", userID))
	return nil
}

func (r *MembershipRepository) DeleteProjectMemberships(ctx context.Context, projectID int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM project_memberships WHERE project_id = $1`, projectID)
	return err
}

func (r *MembershipRepository) CountMemberships(ctx context.Context, projectID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM project_memberships WHERE project_id = $1`, projectID).Scan(&n)
	return n, err
}
