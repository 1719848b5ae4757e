// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/pkg/dbpkg"
	"github.com/go-corebank/corebank/pkg/errorspkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    accounts (account_number, holder_name, balance)
VALUES
    ($1, $2, $3)
RETURNING id, account_number, holder_name, balance, created_at
`

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, number, holder string, balance decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := dbpkg.Exec(ctx, r.db).QueryRowContext(ctx, createQuery, number, holder, balance)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.AccountNumber,
		&a.HolderName,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "accounts_account_number_key":
				return a, domain.ErrAccountExists
			case "accounts_balance_check":
				return a, domain.ErrInvalidAmount
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	id, account_number, holder_name, balance, created_at
FROM accounts
WHERE account_number = $1
`

// Get returns the account with the given account number.
func (r *RepoPGS) Get(ctx context.Context, number string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := dbpkg.Exec(ctx, r.db).QueryRowContext(ctx, getQuery, number)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.AccountNumber,
		&a.HolderName,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const saveBalanceQuery = `
UPDATE accounts
SET balance = $1
WHERE account_number = $2
RETURNING id, account_number, holder_name, balance, created_at
`

// SaveBalance persists the new balance of the account and returns the
// updated row. Callers mutate balances only inside a held lock plus a
// running unit of work.
func (r *RepoPGS) SaveBalance(ctx context.Context, number string, balance decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := dbpkg.Exec(ctx, r.db).QueryRowContext(ctx, saveBalanceQuery, balance, number)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.AccountNumber,
		&a.HolderName,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, domain.ErrInsufficientBalance
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT
	id, account_number, holder_name, balance, created_at
FROM accounts
ORDER BY id
LIMIT $1 OFFSET $2
`

// List returns the specified page of accounts.
func (r *RepoPGS) List(ctx context.Context, limit, offset int32) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := dbpkg.Exec(ctx, r.db).QueryContext(ctx, listQuery, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.AccountNumber, &a.HolderName, &a.Balance, &a.CreatedAt); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const countQuery = `SELECT count(*) FROM accounts`

// Count returns the number of accounts.
func (r *RepoPGS) Count(ctx context.Context) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64
	if err := dbpkg.Exec(ctx, r.db).QueryRowContext(ctx, countQuery).Scan(&n); err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	return n, nil
}
