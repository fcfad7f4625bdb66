package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteCreatesTables(t *testing.T) {
	db := SetupTestSQLite(t)

	for _, table := range []string{"observations", "predictions", "outcomes"} {
		var name string
		err := db.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenSQLiteFileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "propedge.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = db.DB().Exec(`INSERT INTO observations (entity_id, statistic, game_date, value) VALUES (?,?,?,?)`, "p1", "points", 1, 20.0)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.DB().QueryRow(`SELECT COUNT(*) FROM observations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLitePing(t *testing.T) {
	db := SetupTestSQLite(t)
	require.NoError(t, db.Ping(context.Background()))
}
