package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapsignal/crimegrid/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crimegrid",
	Short: "Geocode addresses and score the surrounding regions",
	Long:  "Resolves free-text addresses to coordinates, finds the county regions around the point, and annotates each with a 0-100 crime percentile from the baked dataset.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
