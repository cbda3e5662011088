// Package storage defines the asset download ledger: a record of every
// logo/kit download attempt so re-runs can be audited.
package storage

import (
	"context"
	"time"
)

const (
	StatusDownloaded = "downloaded"
	StatusFailed     = "failed"
)

// AssetRecord is one row of the ledger. A team has at most one row per
// asset type; later attempts overwrite earlier ones.
type AssetRecord struct {
	Team         string
	AssetType    string
	FilePath     string
	DownloadedAt time.Time
	Status       string
}

type AssetReadRepository interface {
	GetDownloads(ctx context.Context) ([]AssetRecord, error)
}

type AssetWriteRepository interface {
	RecordDownload(ctx context.Context, rec AssetRecord) error
}
