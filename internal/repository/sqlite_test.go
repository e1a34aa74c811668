package repository

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T, path string) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(path, zerolog.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestSQLite(t, filepath.Join(t.TempDir(), "restobook.db"))
	testRepositoryContract(t, repo)
}

func TestSQLiteRepositoryBackup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := newTestSQLite(t, filepath.Join(dir, "restobook.db"))

	_, err := repo.Save(ctx, sampleRestaurant(7, "Gdansk"))
	require.NoError(t, err)

	backupPath := filepath.Join(dir, "backup.db")
	require.NoError(t, repo.Backup(ctx, backupPath))

	restored := newTestSQLite(t, backupPath)
	got, err := restored.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Gdansk", got.City)
	assert.Equal(t, int64(1), got.Version)
}
