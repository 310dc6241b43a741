package sql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisDHolman/EDR-Proof/internal/config"
)

func TestCreateDBConnector(t *testing.T) {
	sqliteConnector := CreateDBConnector(config.DB{Type: "sqlite", Path: "data/test.db"})
	assert.IsType(t, &SQLiteConnector{}, sqliteConnector)

	cloudConnector := CreateDBConnector(config.DB{
		Type:                   "cloudsql-postgres",
		InstanceConnectionName: "proj:region:instance",
		User:                   "scanner",
		Name:                   "edrproof",
	})
	assert.IsType(t, &CloudSQLConnector{}, cloudConnector)
}

func TestSQLiteConnectorConnect(t *testing.T) {
	connector := CreateDBConnector(config.DB{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	conn, err := connector.Connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, sqlDB.Close())
}
