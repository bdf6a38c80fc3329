package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is the opaque transaction handle a TransactionManager passes to
// repositories (pgx.Tx for Postgres). A nil Tx runs on the pool.
type Tx any

// NoTX is the nil handle used outside a transaction.
var NoTX Tx

// TransactionManager runs fn in one transaction, committing on a nil error.
// Implementations may replay fn after a serialization failure, so fn must be idempotent.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
