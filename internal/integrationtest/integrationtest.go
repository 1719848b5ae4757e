// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/go-corebank/corebank/internal/accountrepo"
	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/internal/transactionrepo"
	"github.com/go-corebank/corebank/pkg/dbpkg"
	"github.com/go-corebank/corebank/pkg/randompkg"
)

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// Flush flushes all db tables without dropping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema='public';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SeedAccount inserts an account with a random number, holder and balance.
func SeedAccount(t *testing.T, tx dbpkg.SQLInterface) domain.Account {
	t.Helper()

	return SeedAccountWithBalance(t, tx, randompkg.MoneyAmountBetween(1_000, 10_000))
}

// SeedAccountWithBalance inserts an account with the given balance.
func SeedAccountWithBalance(t *testing.T, tx dbpkg.SQLInterface, balance decimal.Decimal) domain.Account {
	t.Helper()

	account, err := accountrepo.NewRepoPGS(tx).Create(
		context.Background(),
		randompkg.AccountNumber(),
		randompkg.HolderName(),
		balance,
	)
	if err != nil {
		t.Fatalf("seeding account failed: %v", err)
	}

	return account
}

// SeedTransaction appends a deposit ledger entry for the account.
func SeedTransaction(t *testing.T, tx dbpkg.SQLInterface, account domain.Account, amount decimal.Decimal) domain.Transaction {
	t.Helper()

	transaction, err := transactionrepo.NewRepoPGS(tx).Create(context.Background(), domain.CreateTransactionParams{
		AccountID:    account.ID,
		Amount:       amount,
		Type:         domain.TypeDeposit,
		Description:  "Deposit to " + account.AccountNumber,
		BalanceAfter: account.Balance.Add(amount),
	})
	if err != nil {
		t.Fatalf("seeding transaction failed: %v", err)
	}

	return transaction
}
