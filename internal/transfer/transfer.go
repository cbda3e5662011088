// Package transfer fetches and normalizes player transfer data per
// competition.
package transfer

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pesworks/squadsync/internal/logctx"
	"golang.org/x/sync/errgroup"
)

// Record is one normalized player transfer. Immutable once produced.
type Record struct {
	PlayerName      string
	FromClub        string
	ToClub          string
	CompetitionCode string
	TransferDate    string
	Fee             *int64 // euros; nil when the source reports no fee
}

// Source fetches raw transfers for a single competition.
type Source interface {
	FetchTransfers(ctx context.Context, competition string) ([]Record, error)
}

// Manager fans fetches out across competitions and merges the results.
type Manager struct {
	source Source
}

func NewManager(source Source) *Manager {
	return &Manager{source: source}
}

// FetchAll fetches every competition concurrently. One competition's
// failure never aborts the batch: its error lands in the returned map
// (keyed by competition code) while the other competitions' records are
// still merged, deduplicated and returned in a stable order.
func (m *Manager) FetchAll(ctx context.Context, competitions []string) ([]Record, map[string]error) {
	logger := logctx.LoggerFromContext(ctx)

	var (
		mu       sync.Mutex
		records  []Record
		failures = make(map[string]error)
	)

	wg := new(errgroup.Group)

	for _, code := range competitions {
		wg.Go(func() error {
			recs, err := m.source.FetchTransfers(ctx, code)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				logger.Error("failed to fetch transfers", "competition", code, "err", err)

				failures[code] = err

				return nil
			}

			logger.Info("fetched transfers", "competition", code, "record_count", len(recs))

			records = append(records, recs...)

			return nil
		})
	}

	// workers record their own failures, Wait cannot return an error here
	_ = wg.Wait()

	return dedupe(records), failures
}

// dedupe drops best-effort duplicates across fetch cycles and sorts the
// merged list so downstream writes are deterministic.
func dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))

	for _, r := range records {
		key := strings.Join([]string{r.PlayerName, r.FromClub, r.ToClub, r.CompetitionCode}, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b Record) int {
		if c := strings.Compare(a.CompetitionCode, b.CompetitionCode); c != 0 {
			return c
		}

		return strings.Compare(a.PlayerName, b.PlayerName)
	})

	return out
}
