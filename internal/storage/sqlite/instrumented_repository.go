package sqlite

import (
	"context"

	"github.com/pesworks/squadsync/internal/storage"
	"github.com/pesworks/squadsync/internal/telemetry"
)

// InstrumentedAssetRepository wraps an AssetRepository with ledger
// operation metrics and spans.
type InstrumentedAssetRepository struct {
	inner *AssetRepository
	tel   *telemetry.Telemetry
}

func NewInstrumentedAssetRepository(inner *AssetRepository, tel *telemetry.Telemetry) *InstrumentedAssetRepository {
	return &InstrumentedAssetRepository{inner: inner, tel: tel}
}

func (r *InstrumentedAssetRepository) GetDownloads(ctx context.Context) ([]storage.AssetRecord, error) {
	var records []storage.AssetRecord

	err := r.tel.InstrumentDBOperation(ctx, "get_downloads", func(ctx context.Context) error {
		var err error
		records, err = r.inner.GetDownloads(ctx)

		return err
	})

	return records, err
}

func (r *InstrumentedAssetRepository) RecordDownload(ctx context.Context, rec storage.AssetRecord) error {
	return r.tel.InstrumentDBOperation(ctx, "record_download", func(ctx context.Context) error {
		return r.inner.RecordDownload(ctx, rec)
	})
}
