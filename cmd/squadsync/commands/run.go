package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch transfers, update the squad database, then download assets.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, a, cleanup, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		// stages run strictly in order; a transfer-stage failure still
		// lets the asset stage run, both outcomes decide the exit code
		transferErr := runUpdateTransfers(ctx, a)
		assetErr := runDownloadAssets(ctx, a)

		return errors.Join(transferErr, assetErr)
	},
}
