package repository

import (
	"context"

	"go.uber.org/zap"

	"taskflow/internal/model"
)

type ProjectRepository struct {
	db     querier
	logger *zap.Logger
}

func NewProjectRepository(db querier, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

const projectColumns = `id, owner_id, name, description, slug, status, created_at, updated_at`

func scanProject(row interface{ Scan(dest ...any) error }, p *model.Project) error {
	return row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Description,
		&p.Slug,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *ProjectRepository) CreateProject(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Inserting project",
		zap.Int("owner_id", p.OwnerID),
		zap.String("slug", p.Slug),
	)
	query := `
        INSERT INTO projects (owner_id, name, description, slug, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.OwnerID,
		p.Name,
		p.Description,
		p.Slug,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err), zap.String("slug", p.Slug))
		return wrapPgError(err)
	}
	r.logger.Info("Project inserted successfully",
		zap.Int("project_id", p.ID),
		zap.Int("owner_id", p.OwnerID),
	)
	return nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, id int) (*model.Project, error) {
	var p model.Project
	row := r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	if err := scanProject(row, &p); err != nil {
		return nil, mapError(err, "project", id)
	}
	return &p, nil
}

func (r *ProjectRepository) GetProjectBySlug(ctx context.Context, slug string) (*model.Project, error) {
	var p model.Project
	row := r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = $1`, slug)
	if err := scanProject(row, &p); err != nil {
		return nil, mapError(err, "project", slug)
	}
	return &p, nil
}

func (r *ProjectRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM projects WHERE slug = $1)`, slug)
}

func (r *ProjectRepository) ProjectNameTaken(ctx context.Context, ownerID int, name string, excludeID int) (bool, error) {
	return exists(ctx, r.db,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE owner_id = $1 AND name = $2 AND id <> $3)`,
		ownerID, name, excludeID)
}

func (r *ProjectRepository) UpdateProject(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Updating project", zap.Int("project_id", p.ID))
	err := r.db.QueryRow(ctx, `
        UPDATE projects
        SET name = $2, description = $3, status = $4, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `, p.ID, p.Name, p.Description, p.Status).Scan(&p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update project", zap.Error(err), zap.Int("project_id", p.ID))
		return mapError(err, "project", p.ID)
	}
	return nil
}

func (r *ProjectRepository) DeleteProject(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Error(err), zap.Int("project_id", id))
		return wrapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("project", id)
	}
	r.logger.Info("Project deleted", zap.Int("project_id", id))
	return nil
}

// ListProjectsForUser returns projects the user belongs to through a membership row.
func (r *ProjectRepository) ListProjectsForUser(ctx context.Context, userID int) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description, p.slug, p.status, p.created_at, p.updated_at
        FROM projects p
        JOIN project_memberships m ON m.project_id = p.id
        WHERE m.user_id = $1
        ORDER BY p.id
    `, userID)
	if err != nil {
		r.logger.Error("Failed to query projects", zap.Error(err), zap.Int("user_id", userID))
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
