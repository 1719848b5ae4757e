// Package transactionrepo manages repository layer of ledger entries.
// Entries are append-only: there is deliberately no update or delete.
package transactionrepo

import (
	"context"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/pkg/dbpkg"
	"github.com/go-corebank/corebank/pkg/errorspkg"
)

// RepoPGS facilitates ledger entry repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    transactions (account_id, amount, type, description, balance_after)
VALUES
    ($1, $2, $3, $4, $5)
RETURNING id, account_id, amount, type, description, balance_after, created_at
`

// Create appends a ledger entry and returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := dbpkg.Exec(ctx, r.db).QueryRowContext(ctx, createQuery,
		arg.AccountID,
		arg.Amount,
		arg.Type,
		arg.Description,
		arg.BalanceAfter,
	)

	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Amount,
		&t.Type,
		&t.Description,
		&t.BalanceAfter,
		&t.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_account_id_fkey":
				return t, domain.ErrAccountNotFound
			case "transactions_amount_check":
				return t, domain.ErrInvalidAmount
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listByAccountQuery = `
SELECT
	id, account_id, amount, type, description, balance_after, created_at
FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`

// ListByAccount returns the most recent ledger entries of the account.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountID int64, limit int32) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := dbpkg.Exec(ctx, r.db).QueryContext(ctx, listByAccountQuery, accountID, limit)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Type, &t.Description, &t.BalanceAfter, &t.CreatedAt); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
