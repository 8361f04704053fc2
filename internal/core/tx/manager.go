// Package tx defines the transaction contracts domain services depend on.
// Services see only these interfaces, not the postgres implementation, so
// the valuation and adjustment engines can be tested against fakes.
package tx

import (
	"context"
)

// Manager runs a function inside a database transaction. If fn returns an
// error the transaction is rolled back, otherwise it is committed. Nested
// calls reuse the transaction already in the context.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions, used by multi-query reads
// that need one consistent snapshot.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
