package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforge/internal/core/apperror"
)

func TestTranslateError_SQLStates(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unique violation", "23505", apperror.CodeDuplicate},
		{"foreign key violation", "23503", apperror.CodeConstraint},
		{"check violation", "23514", apperror.CodeConstraint},
		{"lock not available", "55P03", apperror.CodeLockTimeout},
		{"statement timeout on lock wait", "57014", apperror.CodeLockTimeout},
		{"serialization failure", "40001", apperror.CodeConcurrentModification},
		{"deadlock detected", "40P01", apperror.CodeConcurrentModification},
		{"syntax error falls through", "42601", apperror.CodeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{
				Code:           tt.code,
				TableName:      "valuation_layers",
				ConstraintName: "uq_stock_levels_key",
			}

			got := TranslateError(pgErr)

			appErr, ok := apperror.AsAppError(got)
			require.True(t, ok)
			assert.Equal(t, tt.want, appErr.Code)
			assert.ErrorIs(t, got, error(pgErr))
		})
	}
}

func TestTranslateError_PassThrough(t *testing.T) {
	assert.NoError(t, TranslateError(nil))

	assert.Equal(t, error(context.Canceled), TranslateError(context.Canceled))
	assert.Equal(t, error(context.DeadlineExceeded), TranslateError(context.DeadlineExceeded))

	// Wrapped context errors also pass through untouched.
	wrapped := fmt.Errorf("acquire conn: %w", context.Canceled)
	assert.Equal(t, wrapped, TranslateError(wrapped))

	// Already-translated errors are not wrapped a second time.
	appErr := apperror.NewValidation("quantity must be positive")
	assert.Equal(t, error(appErr), TranslateError(appErr))
}

func TestTranslateError_UnclassifiedBecomesDatabase(t *testing.T) {
	cause := errors.New("connection reset by peer")

	got := TranslateError(cause)

	appErr, ok := apperror.AsAppError(got)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDatabase, appErr.Code)
	assert.ErrorIs(t, got, cause)
}

func TestNotFoundOrError(t *testing.T) {
	got := NotFoundOrError(pgx.ErrNoRows, "product", "NM-00001")
	appErr, ok := apperror.AsAppError(got)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)

	// Anything else goes through the regular translation.
	got = NotFoundOrError(&pgconn.PgError{Code: "23505"}, "product", "NM-00001")
	appErr, ok = apperror.AsAppError(got)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}
