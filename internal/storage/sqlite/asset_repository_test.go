package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pesworks/squadsync/internal/storage"
	"github.com/pesworks/squadsync/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *sqlite.AssetRepository {
	t.Helper()

	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "assets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlite.NewAssetRepository(db)
}

func TestRecordDownload_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := storage.AssetRecord{
		Team:         "Arsenal",
		AssetType:    "logo",
		FilePath:     "data/assets/logos/Arsenal_logo.png",
		DownloadedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Status:       storage.StatusDownloaded,
	}

	require.NoError(t, repo.RecordDownload(ctx, rec))

	got, err := repo.GetDownloads(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "Arsenal", got[0].Team)
	assert.Equal(t, "logo", got[0].AssetType)
	assert.Equal(t, rec.FilePath, got[0].FilePath)
	assert.Equal(t, storage.StatusDownloaded, got[0].Status)
}

func TestRecordDownload_UpsertsPerTeamAndType(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordDownload(ctx, storage.AssetRecord{
		Team:      "Arsenal",
		AssetType: "logo",
		Status:    storage.StatusFailed,
	}))

	require.NoError(t, repo.RecordDownload(ctx, storage.AssetRecord{
		Team:      "Arsenal",
		AssetType: "kit",
		Status:    storage.StatusDownloaded,
	}))

	// the retry overwrites the failed logo attempt
	require.NoError(t, repo.RecordDownload(ctx, storage.AssetRecord{
		Team:      "Arsenal",
		AssetType: "logo",
		FilePath:  "data/assets/logos/Arsenal_logo.png",
		Status:    storage.StatusDownloaded,
	}))

	got, err := repo.GetDownloads(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for _, rec := range got {
		assert.Equal(t, storage.StatusDownloaded, rec.Status)
	}
}
