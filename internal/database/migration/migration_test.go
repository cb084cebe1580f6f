package migration

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMigrated(t *testing.T) {
	ctx := context.Background()
	log := zerolog.New(io.Discard)

	t.Run("skips when schema exists", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		require.NoError(t, EnsureMigrated(ctx, db, log, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("runs every step on a fresh database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS skus").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS retailers").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS transactions").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_transactions_item_date").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_transactions_effective_date").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, EnsureMigrated(ctx, db, log, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops at failing step", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS skus").WillReturnError(errors.New("permission denied"))

		err = EnsureMigrated(ctx, db, log, "localhost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create_table_skus")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	log := zerolog.New(io.Discard)

	t.Run("seeds empty tables", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM skus").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		for range seedSKUs {
			mock.ExpectExec("INSERT INTO skus").WillReturnResult(sqlmock.NewResult(1, 1))
		}
		mock.ExpectCommit()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM retailers").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		for range seedRetailers {
			mock.ExpectExec("INSERT INTO retailers").WillReturnResult(sqlmock.NewResult(1, 1))
		}
		mock.ExpectCommit()

		require.NoError(t, Seed(ctx, db, log))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves populated tables alone", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM skus").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM retailers").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(14))

		require.NoError(t, Seed(ctx, db, log))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM skus").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO skus").WillReturnError(errors.New("unique violation"))
		mock.ExpectRollback()

		err = Seed(ctx, db, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "seed skus")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()
	log := zerolog.New(io.Discard)

	t.Run("migrates and seeds under the advisory lock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM skus").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM retailers").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(14))
		mock.ExpectExec("SELECT pg_advisory_unlock").WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, Prepare(ctx, db, log, "localhost"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("releases the lock when migration fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT to_regclass").WillReturnError(errors.New("connection reset"))
		mock.ExpectExec("SELECT pg_advisory_unlock").WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))

		err = Prepare(ctx, db, log, "localhost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sentinel table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("does nothing without the lock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(lockKey).WillReturnError(errors.New("canceling statement"))

		err = Prepare(ctx, db, log, "localhost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acquire migration lock")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
