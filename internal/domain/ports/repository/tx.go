package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept it as a first-class
// argument; the concrete type is infra-defined (pgx.Tx for Postgres) and nil
// means "run outside any transaction".
type Tx interface{}

// NoTX is the explicit non-transactional handle.
var NoTX Tx

// TransactionManager executes a function inside a database transaction,
// passing the transaction handle through `tx`. Keeping the handle opaque keeps
// use-case interfaces free of storage types while still letting repositories
// run their statements on the same transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
