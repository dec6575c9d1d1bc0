package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sessionauth/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.Database{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "auth"})

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "pw", parsed.Passwd)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "auth", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.True(t, parsed.ClientFoundRows)
	assert.Equal(t, time.UTC, parsed.Loc)
}

func TestMigrate_AppliesEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stmts := statements(schema)
	require.Len(t, stmts, 3)
	for _, table := range []string{"users", "user_roles", "token_revocations"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table + " ").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
