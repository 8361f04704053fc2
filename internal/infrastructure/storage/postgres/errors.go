package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stockforge/internal/core/apperror"
)

// Postgres error codes translated at the repository boundary.
const (
	pgCodeForeignKeyViolation = "23503"
	pgCodeUniqueViolation     = "23505"
	pgCodeCheckViolation      = "23514"
	pgCodeLockNotAvailable    = "55P03"
	pgCodeQueryCanceled       = "57014"
	pgCodeSerializationFail   = "40001"
	pgCodeDeadlockDetected    = "40P01"
)

// TranslateError maps pgx errors onto the engine's error taxonomy so callers
// never match on SQLSTATE strings. nil and context errors pass through.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeUniqueViolation:
			return apperror.NewDuplicate(pgErr.TableName, pgErr.ConstraintName, "").WithCause(err)
		case pgCodeForeignKeyViolation, pgCodeCheckViolation:
			return apperror.NewConstraint(pgErr.ConstraintName).WithCause(err)
		case pgCodeLockNotAvailable, pgCodeQueryCanceled:
			// statement_timeout while waiting on row locks surfaces as 57014.
			return apperror.NewLockTimeout(pgErr.TableName).WithCause(err)
		case pgCodeSerializationFail, pgCodeDeadlockDetected:
			return apperror.NewConcurrentModification(pgErr.TableName, nil).WithCause(err)
		}
	}

	return apperror.NewDatabase(err)
}

// NotFoundOrError converts pgx.ErrNoRows into a typed NotFound error.
func NotFoundOrError(err error, entity string, entityID any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, entityID)
	}
	return TranslateError(err)
}
