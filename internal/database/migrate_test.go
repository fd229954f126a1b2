package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, "0001_init.sql", ms[0].Name)
	assert.Contains(t, ms[0].SQL, "CREATE TABLE profiles")
}

func TestMigrate_AppliesPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ms, err := Migrations()
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, m := range ms {
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(m.Name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs(m.Name).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Len(t, applied, len(ms))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ms, err := Migrations()
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, m := range ms {
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(m.Name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
