package util

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	PgUniqueViolation      = "23505"
	PgForeignKeyViolation  = "23503"
	PgSerializationFailure = "40001"
	PgDeadlockDetected     = "40P01"
)

// IsRetryableError determines if an error is transient and the whole unit of work may be retried.
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return false, "not_found"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgSerializationFailure:
			return true, "serialization_failure"
		case PgDeadlockDetected:
			return true, "deadlock"
		case PgUniqueViolation:
			// 唯一约束冲突 - 是否重试由调用方决定（编号竞争可重试）
			return false, "duplicate_key"
		case PgForeignKeyViolation:
			return false, "foreign_key"
		}
		return false, "db_error"
	}

	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// 默认：未知错误，保守处理 - 不重试
	return false, "unknown_error"
}

// PgErrorCode returns the SQLSTATE code of a PostgreSQL error, or "".
func PgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// PgConstraintName returns the violated constraint name of a PostgreSQL error, or "".
func PgConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
