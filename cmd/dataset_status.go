package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mapsignal/crimegrid/internal/dataset"
)

var datasetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show region counts for the configured dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("dataset"); err != nil {
			return err
		}

		var total, withStat int
		switch cfg.Dataset.Driver {
		case "postgres":
			pool, err := pgxpool.New(ctx, cfg.Dataset.DatabaseURL)
			if err != nil {
				return eris.Wrap(err, "dataset status: connect postgres")
			}
			defer pool.Close()

			snap, err := dataset.PostgresSnapshot(ctx, pool)
			if err != nil {
				return err
			}
			total = snap.Len()
			for _, r := range snap.Regions() {
				if r.Stat != nil {
					withStat++
				}
			}
		default:
			store, err := dataset.OpenSQLite(cfg.Dataset.Path)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			total, withStat, err = store.Stats(ctx)
			if err != nil {
				return err
			}
		}

		fmt.Printf("regions: %d\nwith statistic: %d\n", total, withStat)
		return nil
	},
}

func init() {
	datasetCmd.AddCommand(datasetStatusCmd)
}
