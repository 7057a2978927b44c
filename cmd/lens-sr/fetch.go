package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranath-reddy/lens-sr/dataset"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract the dataset archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("fetching dataset", "url", url, "dest", dataDir)
		if err := dataset.Fetch(ctx, url, dataDir); err != nil {
			return err
		}
		logger.Info("dataset ready", "dir", dataDir)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("url", "", "archive URL")
	fetchCmd.Flags().String("data-dir", "dataset", "destination directory")
	fetchCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(fetchCmd)
}
