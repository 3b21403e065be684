package db

import (
	"os"
	"path/filepath"
	"testing"

	"bitwise74/todo-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteMustBeMountedInDocker(t *testing.T) {
	orig := runningInDocker
	runningInDocker = func() bool { return true }
	t.Cleanup(func() { runningInDocker = orig })

	path := filepath.Join(t.TempDir(), "todo.db")

	_, err := New(config.Database{Driver: "sqlite", Path: path})
	assert.ErrorContains(t, err, "not mounted")

	require.NoError(t, os.WriteFile(path, nil, 0o600))

	conn, err := New(config.Database{Driver: "sqlite", Path: path})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.Close()
}
