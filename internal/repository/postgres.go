package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskflow/internal/model"
	"taskflow/pkg/util"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	*UserRepository
	*ProjectRepository
	*MembershipRepository
	*TaskRepository
	*LabelRepository
	*CommentRepository

	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	s := newStore(pool, logger)
	s.pool = pool
	return s
}

func newStore(db querier, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		UserRepository:       NewUserRepository(db, logger),
		ProjectRepository:    NewProjectRepository(db, logger),
		MembershipRepository: NewMembershipRepository(db, logger),
		TaskRepository:       NewTaskRepository(db, logger),
		LabelRepository:      NewLabelRepository(db, logger),
		CommentRepository:    NewCommentRepository(db, logger),
		logger:               logger,
	}
}

// InTx nests by reusing the outer transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(newStore(tx, s.logger)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit tx: %w", wrapPgError(err))
	}
	return nil
}

// mapError converts driver errors into the model error taxonomy.
func mapError(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.NotFound(entity, key)
	}
	return wrapPgError(err)
}

func wrapPgError(err error) error {
	switch util.PgErrorCode(err) {
	case util.PgUniqueViolation, util.PgForeignKeyViolation:
		return &model.ConstraintError{Constraint: util.PgConstraintName(err), Err: err}
	}
	return err
}

func exists(ctx context.Context, db querier, query string, args ...any) (bool, error) {
	var ok bool
	if err := db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
