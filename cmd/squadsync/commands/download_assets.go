package commands

import (
	"context"
	"fmt"

	"github.com/pesworks/squadsync/internal/assets"
	"github.com/pesworks/squadsync/internal/assets/pesmaster"
	"github.com/pesworks/squadsync/internal/config"
	"github.com/pesworks/squadsync/internal/logctx"
	"github.com/pesworks/squadsync/internal/storage/sqlite"
	"github.com/pesworks/squadsync/internal/webclient"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(downloadAssetsCmd)
}

var downloadAssetsCmd = &cobra.Command{
	Use:   "download-assets",
	Short: "Scrape and download logo and kit images for the configured teams.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, a, cleanup, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		return runDownloadAssets(ctx, a)
	},
}

// runDownloadAssets is the scrape stage. Teams download concurrently on a
// bounded pool; a failed team is reported through the exit code but never
// cancels the others.
func runDownloadAssets(ctx context.Context, a *app) error {
	logger := logctx.LoggerFromContext(ctx)

	teams, err := a.cfg.TeamList()
	if err != nil {
		return err
	}

	teams = filterTeams(teams)
	if len(teams) == 0 {
		logger.Warn("no teams configured for asset download", "league_filter", leagueFilter)

		return nil
	}

	reqs := make([]assets.TeamAssetRequest, 0, 2*len(teams))

	for _, team := range teams {
		for _, assetType := range []assets.AssetType{assets.AssetTypeLogo, assets.AssetTypeKit} {
			reqs = append(reqs, assets.TeamAssetRequest{
				TeamName:        team.Name,
				CompetitionCode: team.CompetitionCode,
				AssetType:       assetType,
			})
		}
	}

	logger.Info("downloading assets", "team_count", len(teams), "max_parallel", a.cfg.MaxParallel)

	httpClient := webclient.New(a.cfg.HTTPTimeout, a.retryPolicy())

	locator, err := pesmaster.NewClient(a.cfg.ScrapeBaseURL, httpClient)
	if err != nil {
		return err
	}

	ledgerDB, err := sqlite.InitDB(a.cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("failed to open asset ledger: %w", err)
	}
	defer ledgerDB.Close()

	ledger := sqlite.NewInstrumentedAssetRepository(sqlite.NewAssetRepository(ledgerDB), a.tel)

	scraper := assets.NewScraper(locator, httpClient, ledger, a.tel, a.cfg.LogoDir, a.cfg.KitDir, a.cfg.MaxParallel)

	failures := scraper.DownloadAll(ctx, reqs)

	a.notify(ctx, "🖼️ Asset download finished: %d/%d succeeded", len(reqs)-len(failures), len(reqs))

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d asset downloads failed", len(failures), len(reqs))
	}

	return nil
}

func filterTeams(teams []config.Team) []config.Team {
	if leagueFilter == "" {
		return teams
	}

	filtered := make([]config.Team, 0, len(teams))

	for _, team := range teams {
		if team.CompetitionCode == leagueFilter {
			filtered = append(filtered, team)
		}
	}

	return filtered
}
