package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via `tx`. Repositories accept the handle
// through their `qx any` argument and must gracefully accept nil
// (non-transactional path). The concrete type is infra-defined (pgx.Tx).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
