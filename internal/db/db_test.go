package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	db, err := NewDB(path)
	require.NoError(t, err)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.GreaterOrEqual(t, version, uint(1))
	require.NoError(t, db.Close())

	// Reopening an already-migrated file is a no-op migration.
	db, err = NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestSettingsRoundTrip(t *testing.T) {
	db := newTestDB(t)

	_, ok, err := db.GetSetting("led_count")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.PutSetting("led_count", "246"))
	v, ok, err := db.GetSetting("led_count")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "246", v)

	// Overwrite.
	require.NoError(t, db.PutSetting("led_count", "300"))
	v, _, _ = db.GetSetting("led_count")
	require.Equal(t, "300", v)

	require.NoError(t, db.DeleteSetting("led_count"))
	_, ok, err = db.GetSetting("led_count")
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting twice is fine.
	require.NoError(t, db.DeleteSetting("led_count"))
}
