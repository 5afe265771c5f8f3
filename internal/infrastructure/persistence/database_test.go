package persistence

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/harvestplace/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_Ping(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	db := &Database{DB: mockDB.DB}

	require.NoError(t, db.Ping(context.Background()))
}

func TestDatabase_Stats(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	mockDB.SqlDB.SetMaxOpenConns(7)
	db := &Database{DB: mockDB.DB}

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 7, stats.MaxOpenConnections)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)

	raw, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"max_open_connections":7`)
}

func TestDatabase_Close(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	mockDB.Mock.ExpectClose()
	db := &Database{DB: mockDB.DB}

	require.NoError(t, db.Close())
}
