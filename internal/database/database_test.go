package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity.db")

	db, err := New(Options{Path: path}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(Options{Path: path, MaxOpenConns: 2}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"devices", "activity_chunks", "commands", "device_errors", "server_settings"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Options{}, zap.NewNop())
	assert.Error(t, err)
}
