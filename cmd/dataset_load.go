package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mapsignal/crimegrid/internal/dataset"
	"github.com/mapsignal/crimegrid/internal/region"
)

var datasetLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Build the region dataset from a manifest",
	Long: `Parses the county shapefiles and crime statistics files listed in the
manifest, joins them by geo_id or county name, and writes the result to a
SQLite dataset file ready for serving.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		manifestPath, _ := cmd.Flags().GetString("manifest")
		out, _ := cmd.Flags().GetString("out")

		m, err := dataset.LoadManifest(manifestPath)
		if err != nil {
			return err
		}

		// Parse all inputs concurrently; each slot is written by one goroutine.
		var g errgroup.Group
		regionsBySource := make([][]*region.Region, len(m.Shapefiles))
		statsBySource := make([]map[string]float64, len(m.Stats))

		for i, path := range m.Shapefiles {
			i, path := i, path
			g.Go(func() error {
				rs, err := dataset.ParseCountyShapefile(path)
				if err != nil {
					return err
				}
				regionsBySource[i] = rs
				return nil
			})
		}
		for i, src := range m.Stats {
			i, src := i, src
			g.Go(func() error {
				stats, err := dataset.ReadStats(src)
				if err != nil {
					return err
				}
				statsBySource[i] = stats
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var regions []*region.Region
		for _, rs := range regionsBySource {
			regions = append(regions, rs...)
		}

		for i, src := range m.Stats {
			matched := dataset.ApplyStats(regions, statsBySource[i], src.KeyKind)
			zap.L().Info("stats source applied",
				zap.String("path", src.Path),
				zap.Int("matched", matched),
				zap.Int("regions", len(regions)),
			)
		}

		store, err := dataset.OpenSQLite(out)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if err := store.InsertRegions(ctx, regions); err != nil {
			return err
		}

		total, withStat, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d regions (%d with statistics) into %s\n", total, withStat, out)
		return nil
	},
}

func init() {
	datasetLoadCmd.Flags().String("manifest", "dataset.yaml", "dataset manifest path")
	datasetLoadCmd.Flags().String("out", "crimegrid.db", "output SQLite dataset path")
	datasetCmd.AddCommand(datasetLoadCmd)
}
