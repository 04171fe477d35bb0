package database

import (
	"context"
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata
var testMigrationsFS embed.FS

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "nested", "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func useTestMigrations(t *testing.T) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = testMigrationsFS
	MigrationsDir = "testdata"
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestOpen(t *testing.T) {
	db := openTestDB(t)

	_, err := os.Stat(db.Path())
	assert.NoError(t, err)
	assert.NoError(t, db.HealthCheck(context.Background()))

	var mode string
	require.NoError(t, db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	require.NoError(t, db.Close())
	var nilDB *DB
	assert.NoError(t, nilDB.Close())
}

func TestMigrate(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	assert.True(t, tableExists(t, db, "widgets"))
	assert.True(t, tableExists(t, db, "widget_tags"))

	applied, pending, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "20260101_000000", applied[0].Version)
	assert.False(t, applied[0].AppliedAt.IsZero())
	assert.Empty(t, pending)

	// Re-running is a no-op.
	require.NoError(t, db.Migrate(ctx))
}

func TestMigrateDown(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.MigrateDown(ctx))

	assert.True(t, tableExists(t, db, "widgets"))
	assert.False(t, tableExists(t, db, "widget_tags"))

	_, pending, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "widget_tags", pending[0].Name)
}

func TestMigrate_NoFilesystem(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = nil

	db := openTestDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
	assert.NoError(t, db.MigrateDown(context.Background()))
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		file    string
		version string
		name    string
		up      bool
		ok      bool
	}{
		{"20260118_120000_audit_logs.up.sql", "20260118_120000", "audit_logs", true, true},
		{"20260118_120000_audit_logs.down.sql", "20260118_120000", "audit_logs", false, true},
		{"20260118_120000.up.sql", "20260118_120000", "20260118_120000", true, true},
		{"20260118_120000_audit_logs.sql", "", "", false, false},
		{"README.txt", "", "", false, false},
		{"nounderscore.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.file)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.up, up)
		})
	}
}
