package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapsignal/crimegrid/internal/dataset"
	"github.com/mapsignal/crimegrid/internal/region"
	"github.com/mapsignal/crimegrid/internal/server"
	"github.com/mapsignal/crimegrid/pkg/geocode"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the geocode API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		snap, err := openSnapshot(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("dataset loaded", zap.Int("regions", snap.Len()))

		selector := region.NewSelector(snap, region.NewNormalizer(snap), cfg.Dataset.OffsetDeg)
		handler := server.NewHandler(buildGeocoder(), selector, snap)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := server.New(port, handler)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}

		return nil
	},
}

// openSnapshot reads the whole region dataset from the configured backend.
func openSnapshot(ctx context.Context) (*region.Snapshot, error) {
	switch cfg.Dataset.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Dataset.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "serve: connect postgres")
		}
		defer pool.Close()
		return dataset.PostgresSnapshot(ctx, pool)
	default:
		store, err := dataset.OpenSQLite(cfg.Dataset.Path)
		if err != nil {
			return nil, err
		}
		defer store.Close() //nolint:errcheck
		return store.Snapshot(ctx)
	}
}

// buildGeocoder assembles the provider cascade: Census first, Google as
// fallback when a key is configured.
func buildGeocoder() geocode.Client {
	opts := []geocode.Option{
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocoder.TimeoutSecs) * time.Second}),
		geocode.WithRateLimit(cfg.Geocoder.RateLimit),
	}
	return geocode.NewClient(
		geocode.NewCensusProvider(opts...),
		geocode.NewGoogleProvider(cfg.Geocoder.GoogleKey, opts...),
	)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
