package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pesworks/squadsync/internal/storage"
)

type AssetRepository struct {
	db *sql.DB
}

func NewAssetRepository(dbConn *sql.DB) *AssetRepository {
	return &AssetRepository{db: dbConn}
}

func (r *AssetRepository) GetDownloads(ctx context.Context) ([]storage.AssetRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT team, asset_type, file_path, downloaded_at, status FROM asset_downloads`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.AssetRecord

	for rows.Next() {
		var (
			record       storage.AssetRecord
			filePath     sql.NullString
			downloadedAt sql.NullTime
		)

		if err := rows.Scan(&record.Team, &record.AssetType, &filePath, &downloadedAt, &record.Status); err != nil {
			return nil, err
		}

		if filePath.Valid {
			record.FilePath = filePath.String
		}

		if downloadedAt.Valid {
			record.DownloadedAt = downloadedAt.Time
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// RecordDownload upserts the ledger row for a team/asset pair. Re-running
// the scraper overwrites the previous attempt's outcome.
func (r *AssetRepository) RecordDownload(ctx context.Context, rec storage.AssetRecord) error {
	downloadedAt := rec.DownloadedAt
	if downloadedAt.IsZero() {
		downloadedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO asset_downloads (team, asset_type, file_path, downloaded_at, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(team, asset_type) DO UPDATE SET
			file_path = excluded.file_path,
			downloaded_at = excluded.downloaded_at,
			status = excluded.status
	`, rec.Team, rec.AssetType, rec.FilePath, downloadedAt.Format(time.RFC3339), rec.Status)

	return err
}
