//go:build integration

package dbpkg_test

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-corebank/corebank/pkg/configpkg"
	"github.com/go-corebank/corebank/pkg/dbpkg"
	"github.com/go-corebank/corebank/pkg/randompkg"
)

var (
	dbDriver string
	dbSource string
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	os.Exit(m.Run())
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(dbDriver, dbSource)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return db
}

// insertAccount writes a row through the executor carried by ctx, falling
// back to db outside a unit of work.
func insertAccount(ctx context.Context, db *sql.DB, number string) error {
	const query = `INSERT INTO accounts (account_number, holder_name, balance) VALUES ($1, $2, 0)`

	_, err := dbpkg.Exec(ctx, db).ExecContext(ctx, query, number, randompkg.HolderName())

	return err
}

func accountExists(t *testing.T, db *sql.DB, number string) bool {
	t.Helper()

	var n int
	err := db.QueryRow(`SELECT count(*) FROM accounts WHERE account_number = $1`, number).Scan(&n)
	require.NoError(t, err)

	return n > 0
}

func deleteAccount(t *testing.T, db *sql.DB, number string) {
	t.Helper()

	_, err := db.Exec(`DELETE FROM accounts WHERE account_number = $1`, number)
	require.NoError(t, err)
}

func TestRunCommits(t *testing.T) {
	db := setupDB(t)
	runner := dbpkg.NewRunner(db)

	number := randompkg.AccountNumber()
	t.Cleanup(func() { deleteAccount(t, db, number) })

	err := runner.Run(context.Background(), func(ctx context.Context) error {
		return insertAccount(ctx, db, number)
	})

	require.NoError(t, err)
	require.True(t, accountExists(t, db, number))
}

func TestRunRollsBackOnError(t *testing.T) {
	db := setupDB(t)
	runner := dbpkg.NewRunner(db)

	number := randompkg.AccountNumber()
	errBoom := errors.New("boom")

	err := runner.Run(context.Background(), func(ctx context.Context) error {
		if err := insertAccount(ctx, db, number); err != nil {
			return err
		}

		return errBoom
	})

	require.ErrorIs(t, err, errBoom)
	require.False(t, accountExists(t, db, number), "failed unit must leave no rows behind")
}

func TestRunJoinsEnclosingUnit(t *testing.T) {
	db := setupDB(t)
	runner := dbpkg.NewRunner(db)

	number := randompkg.AccountNumber()
	errBoom := errors.New("boom")

	err := runner.Run(context.Background(), func(ctx context.Context) error {
		inner := runner.Run(ctx, func(ctx context.Context) error {
			return insertAccount(ctx, db, number)
		})
		require.NoError(t, inner)

		return errBoom
	})

	require.ErrorIs(t, err, errBoom)

	// The inner unit joined the outer one, so the outer rollback undid its write.
	require.False(t, accountExists(t, db, number))
}

func TestRunIsolatedSurvivesEnclosingRollback(t *testing.T) {
	db := setupDB(t)
	runner := dbpkg.NewRunner(db)

	number := randompkg.AccountNumber()
	t.Cleanup(func() { deleteAccount(t, db, number) })

	errBoom := errors.New("boom")

	err := runner.Run(context.Background(), func(ctx context.Context) error {
		inner := runner.RunIsolated(ctx, func(ctx context.Context) error {
			return insertAccount(ctx, db, number)
		})
		require.NoError(t, inner)

		return errBoom
	})

	require.ErrorIs(t, err, errBoom)

	// The isolated unit committed on its own.
	require.True(t, accountExists(t, db, number))
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	db := setupDB(t)
	runner := dbpkg.NewRunner(db)

	number := randompkg.AccountNumber()

	err := runner.ReadOnly(context.Background(), func(ctx context.Context) error {
		return insertAccount(ctx, db, number)
	})

	require.Error(t, err)
	require.False(t, accountExists(t, db, number))
}
