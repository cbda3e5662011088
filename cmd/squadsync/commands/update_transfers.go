package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/pesworks/squadsync/internal/gamedb"
	"github.com/pesworks/squadsync/internal/logctx"
	"github.com/pesworks/squadsync/internal/transfer"
	"github.com/pesworks/squadsync/internal/transfer/footballdata"
	"github.com/pesworks/squadsync/internal/webclient"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(updateTransfersCmd)
}

var updateTransfersCmd = &cobra.Command{
	Use:   "update-transfers",
	Short: "Fetch the latest transfers and apply them to the squad database.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, a, cleanup, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		return runUpdateTransfers(ctx, a)
	},
}

// runUpdateTransfers is the fetch → backup → write stage. A failed
// competition is logged and reported through the exit code but never stops
// the remaining competitions from reaching the squad file.
func runUpdateTransfers(ctx context.Context, a *app) error {
	logger := logctx.LoggerFromContext(ctx)

	if a.cfg.APIKey == "" {
		return fmt.Errorf("FOOTBALL_DATA_API_KEY must be set to update transfers")
	}

	competitions := a.competitions()
	if len(competitions) == 0 {
		return fmt.Errorf("no competitions configured (league filter: %q)", leagueFilter)
	}

	logger.Info("updating transfers", "competitions", competitions)

	httpClient := webclient.New(a.cfg.HTTPTimeout, a.retryPolicy())
	source := footballdata.NewClient(a.cfg.APIBaseURL, a.cfg.APIKey, httpClient)
	manager := transfer.NewManager(source)

	start := time.Now()
	records, failures := manager.FetchAll(ctx, competitions)

	fetchStatus := "success"

	switch {
	case len(failures) == len(competitions):
		fetchStatus = "error"
	case len(failures) > 0:
		fetchStatus = "partial"
	}

	a.tel.RecordFetch(len(competitions), fetchStatus, time.Since(start))

	db := gamedb.NewManager(a.cfg.SquadDBPath, a.cfg.BackupDir)

	err := a.tel.InstrumentOperation(ctx, "apply_transfers", "gamedb", func(ctx context.Context) error {
		return db.Apply(ctx, records)
	})
	if err != nil {
		a.notify(ctx, "❌ Squad database update failed: %v", err)

		return err
	}

	a.tel.RecordApplied(len(records))

	a.notify(ctx, "✅ Transfers applied: %d records, %d/%d competitions fetched",
		len(records), len(competitions)-len(failures), len(competitions))

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d competitions failed to fetch", len(failures), len(competitions))
	}

	return nil
}
