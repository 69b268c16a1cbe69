package dataset

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mapsignal/crimegrid/internal/region"
)

// Pool is the subset of pgxpool.Pool the Postgres dataset backend needs.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS crimegrid;

CREATE TABLE IF NOT EXISTS crimegrid.regions (
	geo_id     TEXT PRIMARY KEY,
	county     TEXT NOT NULL,
	geometry   BYTEA NOT NULL,
	rep_lat    DOUBLE PRECISION NOT NULL,
	rep_lon    DOUBLE PRECISION NOT NULL,
	crime_stat DOUBLE PRECISION
);
`

// MigratePostgres creates the dataset schema if missing.
func MigratePostgres(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "dataset: postgres migrate")
	}
	return nil
}

// PostgresSnapshot reads the full dataset from crimegrid.regions into an
// immutable region snapshot. Same shape as the SQLite reader: geometry is
// EWKB, undecodable rows are skipped.
func PostgresSnapshot(ctx context.Context, pool Pool) (*region.Snapshot, error) {
	rows, err := pool.Query(ctx,
		"SELECT geo_id, county, geometry, rep_lat, rep_lon, crime_stat FROM crimegrid.regions ORDER BY geo_id")
	if err != nil {
		return nil, eris.Wrap(err, "dataset: postgres query regions")
	}
	defer rows.Close()

	var regions []*region.Region
	for rows.Next() {
		var (
			geoID, county  string
			data           []byte
			repLat, repLon float64
			stat           *float64
		)
		if err := rows.Scan(&geoID, &county, &data, &repLat, &repLon, &stat); err != nil {
			return nil, eris.Wrap(err, "dataset: postgres scan region")
		}

		mp, err := decodeMultiPolygon(data)
		if err != nil {
			zap.L().Warn("dataset: undecodable geometry skipped",
				zap.String("geo_id", geoID), zap.Error(err))
			continue
		}

		regions = append(regions, &region.Region{
			GeoID:    geoID,
			County:   county,
			Geometry: mp,
			RepPoint: region.Coordinate{Lat: repLat, Lon: repLon},
			Stat:     stat,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "dataset: postgres iterate regions")
	}

	return region.NewSnapshot(regions), nil
}
