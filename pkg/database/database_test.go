package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "cases.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadMigrations_Sorted(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("SELECT 2;")},
		"m/001_first.sql":  {Data: []byte("SELECT 1;")},
		"m/readme.txt":     {Data: []byte("ignored")},
	}
	migrations, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "second", migrations[1].Name)
}

func TestLoadMigrations_BadName(t *testing.T) {
	fsys := fstest.MapFS{"m/init.sql": {Data: []byte("SELECT 1;")}}
	_, err := LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.Run(ctx))
	require.NoError(t, m.Run(ctx))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&n))
	assert.Zero(t, n)
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/001_b.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestMigrator_AppliesOnlyNewerVersions(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())
	ctx := context.Background()

	first := fstest.MapFS{"m/001_one.sql": {Data: []byte("CREATE TABLE one (id INTEGER);")}}
	require.NoError(t, m.RunMigrations(ctx, first, "m"))

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	second := fstest.MapFS{
		"m/001_one.sql": {Data: []byte("CREATE TABLE one (id INTEGER);")},
		"m/002_two.sql": {Data: []byte("CREATE TABLE two (id INTEGER);")},
	}
	require.NoError(t, m.RunMigrations(ctx, second, "m"))

	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())
	ctx := context.Background()

	bad := fstest.MapFS{"m/001_bad.sql": {Data: []byte("CREATE TABLE broken (;")}}
	assert.Error(t, m.RunMigrations(ctx, bad, "m"))

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestNew_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cases.db")
	db, err := New(Config{Path: path}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.FileExists(t, path)
}

func TestNew_InMemory(t *testing.T) {
	db, err := New(Config{Path: MemoryPath, MaxOpenConns: 4}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewMigrator(db, nil).Run(context.Background()))
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}
