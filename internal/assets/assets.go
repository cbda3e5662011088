// Package assets discovers and downloads team logo and kit images.
package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/pesworks/squadsync/internal/logctx"
	"github.com/pesworks/squadsync/internal/sanitize"
	"github.com/pesworks/squadsync/internal/storage"
	"github.com/pesworks/squadsync/internal/telemetry"
	"github.com/pesworks/squadsync/internal/webclient"
	"golang.org/x/sync/errgroup"
)

const dirPerm = 0o755

type AssetType string

const (
	AssetTypeLogo AssetType = "logo"
	AssetTypeKit  AssetType = "kit"
)

// TeamAssetRequest asks for one asset of one team. It has no identity
// beyond a single run.
type TeamAssetRequest struct {
	TeamName        string
	CompetitionCode string
	AssetType       AssetType
}

// Key identifies a request in failure maps and logs.
func (r TeamAssetRequest) Key() string {
	return r.TeamName + "/" + string(r.AssetType)
}

// Candidate is one downloadable image found on a team page. Width is the
// declared pixel width, 0 when the page doesn't state one.
type Candidate struct {
	URL   string
	Width int
}

// TeamPage holds the asset candidates located on a team's page, in
// document order.
type TeamPage struct {
	Logos []Candidate
	Kits  []Candidate
}

// Locator finds asset candidates for a team on some asset-hosting site.
type Locator interface {
	SearchTeam(ctx context.Context, teamName string) (string, error)
	LocateAssets(ctx context.Context, teamURL string) (*TeamPage, error)
}

// Scraper orchestrates per-team asset discovery and download.
type Scraper struct {
	locator     Locator
	http        *resty.Client
	ledger      storage.AssetWriteRepository
	tel         *telemetry.Telemetry
	logoDir     string
	kitDir      string
	maxParallel int
}

// NewScraper builds a scraper. ledger may be nil, in which case download
// history is not recorded.
func NewScraper(
	locator Locator,
	httpClient *resty.Client,
	ledger storage.AssetWriteRepository,
	tel *telemetry.Telemetry,
	logoDir string,
	kitDir string,
	maxParallel int,
) *Scraper {
	if maxParallel <= 0 {
		maxParallel = 1
	}

	return &Scraper{
		locator:     locator,
		http:        httpClient,
		ledger:      ledger,
		tel:         tel,
		logoDir:     logoDir,
		kitDir:      kitDir,
		maxParallel: maxParallel,
	}
}

// DownloadAll runs every request on a bounded worker pool. A failed
// request lands in the returned map under its Key; it never cancels the
// other requests. Re-runs are idempotent: an existing non-empty file is
// not fetched again.
func (s *Scraper) DownloadAll(ctx context.Context, reqs []TeamAssetRequest) map[string]error {
	logger := logctx.LoggerFromContext(ctx)

	var mu sync.Mutex

	failures := make(map[string]error)

	wg := new(errgroup.Group)
	sem := make(chan struct{}, s.maxParallel)

	for i := range reqs {
		req := reqs[i]
		sem <- struct{}{}

		wg.Go(func() error {
			defer func() { <-sem }() // release the slot

			s.tel.IncrementActiveDownloads()
			defer s.tel.DecrementActiveDownloads()

			start := time.Now()

			targetPath, fetched, err := s.downloadTeamAsset(ctx, req)
			if err != nil {
				logger.Error("failed to download asset", "team", req.TeamName, "asset_type", req.AssetType, "err", err)

				mu.Lock()
				failures[req.Key()] = err
				mu.Unlock()

				s.tel.RecordDownload(string(req.AssetType), "error", time.Since(start))
				s.record(ctx, req, targetPath, storage.StatusFailed)

				return nil
			}

			if !fetched {
				logger.Debug("asset already downloaded", "team", req.TeamName, "asset_type", req.AssetType, "target", targetPath)

				return nil
			}

			s.tel.RecordDownload(string(req.AssetType), "success", time.Since(start))
			s.record(ctx, req, targetPath, storage.StatusDownloaded)

			return nil
		})
	}

	// workers record their own failures, Wait cannot return an error here
	_ = wg.Wait()

	return failures
}

// downloadTeamAsset returns the target path and whether a fetch actually
// happened (false means the file was already present).
func (s *Scraper) downloadTeamAsset(ctx context.Context, req TeamAssetRequest) (string, bool, error) {
	targetDir := s.logoDir
	if req.AssetType == AssetTypeKit {
		targetDir = s.kitDir
	}

	targetPath := filepath.Join(targetDir, fmt.Sprintf("%s_%s.png", sanitize.Name(req.TeamName), req.AssetType))

	if info, err := os.Stat(targetPath); err == nil && info.Size() > 0 {
		return targetPath, false, nil
	}

	teamURL, err := s.locator.SearchTeam(ctx, req.TeamName)
	if err != nil {
		return targetPath, false, err
	}

	page, err := s.locator.LocateAssets(ctx, teamURL)
	if err != nil {
		return targetPath, false, err
	}

	candidates := page.Logos
	if req.AssetType == AssetTypeKit {
		candidates = page.Kits
	}

	best, ok := bestCandidate(candidates)
	if !ok {
		return targetPath, false, &AssetNotFoundError{TeamName: req.TeamName, AssetType: string(req.AssetType)}
	}

	if err := s.fetchToFile(ctx, best.URL, targetPath); err != nil {
		return targetPath, false, err
	}

	return targetPath, true, nil
}

// bestCandidate picks the highest declared resolution; when no candidate
// declares one, document order wins.
func bestCandidate(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	best := candidates[0]

	for _, c := range candidates[1:] {
		if c.Width > best.Width {
			best = c
		}
	}

	return best, true
}

// fetchToFile streams the asset to a temp path and renames it into place
// so an interrupted download never leaves a truncated asset behind.
func (s *Scraper) fetchToFile(ctx context.Context, url, targetPath string) error {
	logger := logctx.LoggerFromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(targetPath), dirPerm); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return &webclient.FetchError{URL: url, Err: err}
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return &webclient.FetchError{URL: url, StatusCode: resp.StatusCode()}
	}

	tmpPath := targetPath + ".part"

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create target file: %w", err)
	}

	written, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		os.Remove(tmpPath)

		return &webclient.FetchError{URL: url, Err: err}
	}

	if err := out.Close(); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("failed to close target file: %w", err)
	}

	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("failed to move asset into place: %w", err)
	}

	logger.Info("downloaded and saved asset", "target", targetPath, "size", humanize.Bytes(uint64(written)))

	return nil
}

func (s *Scraper) record(ctx context.Context, req TeamAssetRequest, targetPath, status string) {
	if s.ledger == nil {
		return
	}

	rec := storage.AssetRecord{
		Team:         req.TeamName,
		AssetType:    string(req.AssetType),
		FilePath:     targetPath,
		DownloadedAt: time.Now(),
		Status:       status,
	}

	// ledger writes are advisory, a failure never fails the download
	if err := s.ledger.RecordDownload(ctx, rec); err != nil {
		logctx.LoggerFromContext(ctx).Warn("failed to record download in ledger", "team", req.TeamName, "err", err)
	}
}
