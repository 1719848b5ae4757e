package dbpkg

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// txFromContext returns the transaction carried by ctx, if any.
func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// Exec resolves the executor for the current unit of work: the transaction
// carried by ctx when one is running, otherwise the given fallback (usually
// the connection pool). Repositories call this so the same code runs inside
// and outside a unit.
func Exec(ctx context.Context, fallback SQLInterface) SQLInterface {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}

	return fallback
}

// Runner executes units of work against the store with explicit transaction
// demarcation. Callers always invoke the runner directly; there is no proxy
// or interception involved, so self-invocation cannot silently escape a
// transaction boundary.
type Runner struct {
	db *sql.DB
}

// NewRunner returns a Runner bound to the given connection pool.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// Run executes fn within a read-write transaction. If ctx already carries a
// running unit, fn joins it instead of opening a second physical
// transaction; the enclosing unit then owns commit and rollback.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	return r.begin(ctx, nil, fn)
}

// ReadOnly executes fn within a read-only transaction. Like Run, it joins
// an enclosing unit when one is present.
func (r *Runner) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	return r.begin(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

// RunIsolated always executes fn in a fresh independent transaction, even
// when called from within an enclosing unit. The inner unit commits or
// rolls back on its own regardless of the outcome of the outer one.
func (r *Runner) RunIsolated(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.begin(ctx, nil, fn)
}

func (r *Runner) begin(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}

		return err
	}

	return tx.Commit()
}
