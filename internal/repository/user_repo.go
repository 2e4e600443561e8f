package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/model"
)

type UserRepository struct {
	db     querier
	logger *zap.Logger
}

func NewUserRepository(db querier, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `id, email, username, first_name, last_name, password_hash, role, banned, banned_at, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }, u *model.User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.Role,
		&u.Banned,
		&u.BannedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	r.logger.Debug("Inserting user", zap.String("username", u.Username))
	query := `
        INSERT INTO users (email, username, first_name, last_name, password_hash, role)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		u.Email,
		u.Username,
		u.FirstName,
		u.LastName,
		u.PasswordHash,
		u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert user", zap.Error(err), zap.String("username", u.Username))
		return wrapPgError(err)
	}
	r.logger.Info("User inserted successfully", zap.Int("user_id", u.ID))
	return nil
}

func (r *UserRepository) GetUser(ctx context.Context, id int) (*model.User, error) {
	var u model.User
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, &u); err != nil {
		return nil, mapError(err, "user", id)
	}
	return &u, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if err := scanUser(row, &u); err != nil {
		return nil, mapError(err, "user", email)
	}
	return &u, nil
}

func (r *UserRepository) FindUsersByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE username = ANY($1) ORDER BY id`, usernames)
	if err != nil {
		r.logger.Error("Failed to query users by username", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *UserRepository) SetUserBanned(ctx context.Context, id int, banned bool, at *time.Time) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE users
        SET banned = $2, banned_at = $3, updated_at = NOW()
        WHERE id = $1
    `, id, banned, at)
	if err != nil {
		r.logger.Error("Failed to update user ban", zap.Error(err), zap.Int("user_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("user", id)
	}
	r.logger.Info("User ban updated", zap.Int("user_id", id), zap.Bool("banned", banned))
	return nil
}
