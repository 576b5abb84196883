package repository

import "context"

// Tx is an opaque transaction handle. Repositories accept it as `qx` and
// detect the concrete type (pgx.Tx for Postgres) implementation-side, so
// use-case interfaces stay free of storage types.
type Tx interface{}

// TransactionManager runs fn inside a storage transaction, passing the
// handle for repositories invoked within.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
