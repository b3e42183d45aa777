package database

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfigDefaults(t *testing.T) {
	cfg, err := poolConfig("postgres://cliptag@localhost:5432/cliptag?sslmode=disable")
	require.NoError(t, err)
	assert.EqualValues(t, defaultMaxConns, cfg.MaxConns)
	assert.Equal(t, defaultIdleTimeout, cfg.MaxConnIdleTime)
	assert.Equal(t, applicationName, cfg.ConnConfig.RuntimeParams["application_name"])

	cfg, err = poolConfig("postgres://cliptag@localhost:5432/cliptag?pool_max_conns=3&application_name=study")
	require.NoError(t, err)
	assert.EqualValues(t, 3, cfg.MaxConns)
	assert.Equal(t, "study", cfg.ConnConfig.RuntimeParams["application_name"])

	_, err = poolConfig("postgres://cliptag@localhost:notaport/cliptag")
	assert.Error(t, err)
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://localhost/cliptag"))
	assert.True(t, IsPostgres("postgresql://localhost/cliptag"))
	assert.False(t, IsPostgres("mysql://user@tcp(localhost)/cliptag"))
	assert.False(t, IsPostgres("cliptag.db"))
}

func TestMigrateRecordsAndSkipsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`FROM schema_migrations WHERE name`).
		WithArgs("001_schema.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sessions`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs("001_schema.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	require.NoError(t, Migrate(ctx, mock, nil))

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`FROM schema_migrations WHERE name`).
		WithArgs("001_schema.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	require.NoError(t, Migrate(ctx, mock, nil))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackFailedScript(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`FROM schema_migrations WHERE name`).
		WithArgs("001_schema.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sessions`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = Migrate(context.Background(), mock, nil)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenGormWithoutLogger(t *testing.T) {
	db, err := OpenGorm("file::memory:", nil)
	require.NoError(t, err)
	defer CloseGorm(db)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}
