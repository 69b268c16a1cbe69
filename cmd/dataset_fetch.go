package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapsignal/crimegrid/internal/dataset"
)

var datasetFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the Census county boundary shapefile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		year, _ := cmd.Flags().GetInt("year")
		dest, _ := cmd.Flags().GetString("dest")
		timeoutSecs, _ := cmd.Flags().GetInt("timeout")

		shpPath, err := dataset.FetchCountyShapefile(ctx, year, dest,
			time.Duration(timeoutSecs)*time.Second)
		if err != nil {
			return err
		}

		fmt.Println(shpPath)
		return nil
	},
}

func init() {
	datasetFetchCmd.Flags().Int("year", 2024, "TIGER/Line vintage year")
	datasetFetchCmd.Flags().String("dest", "data", "destination directory")
	datasetFetchCmd.Flags().Int("timeout", 120, "download timeout in seconds")
	datasetCmd.AddCommand(datasetFetchCmd)
}
