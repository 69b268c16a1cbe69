// Package dataset builds and reads the baked region dataset: county
// boundaries joined with crime statistics. The serve path reads the whole
// dataset once at startup into a region.Snapshot; the build path is the
// dataset fetch/load commands.
package dataset

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mapsignal/crimegrid/internal/region"
)

// SQLite is the file-backed dataset store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a dataset file and configures WAL mode.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "dataset: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS regions (
	geo_id     TEXT PRIMARY KEY,
	county     TEXT NOT NULL,
	geometry   BLOB NOT NULL,
	rep_lat    REAL NOT NULL,
	rep_lon    REAL NOT NULL,
	crime_stat REAL
);

CREATE INDEX IF NOT EXISTS idx_regions_county ON regions(county);
`

// Migrate creates the dataset schema if missing.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "dataset: migrate")
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertRegions writes regions in one transaction, replacing rows that share
// a geo_id. Geometry is stored as EWKB with SRID 4326.
func (s *SQLite) InsertRegions(ctx context.Context, regions []*region.Region) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "dataset: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO regions (geo_id, county, geometry, rep_lat, rep_lon, crime_stat)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "dataset: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range regions {
		if r.Geometry == nil {
			zap.L().Warn("dataset: region without geometry skipped", zap.String("geo_id", r.GeoID))
			continue
		}
		data, err := ewkb.Marshal(r.Geometry, ewkb.NDR)
		if err != nil {
			return eris.Wrapf(err, "dataset: encode geometry for %s", r.GeoID)
		}

		var stat any
		if r.Stat != nil {
			stat = *r.Stat
		}
		if _, err := stmt.ExecContext(ctx, r.GeoID, r.County, data, r.RepPoint.Lat, r.RepPoint.Lon, stat); err != nil {
			return eris.Wrapf(err, "dataset: insert region %s", r.GeoID)
		}
	}

	return eris.Wrap(tx.Commit(), "dataset: commit")
}

// Snapshot reads the full dataset into an immutable region snapshot. Rows
// with undecodable geometry are skipped rather than failing the load.
func (s *SQLite) Snapshot(ctx context.Context) (*region.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT geo_id, county, geometry, rep_lat, rep_lon, crime_stat FROM regions ORDER BY geo_id")
	if err != nil {
		return nil, eris.Wrap(err, "dataset: query regions")
	}
	defer rows.Close() //nolint:errcheck

	var regions []*region.Region
	for rows.Next() {
		var (
			geoID, county    string
			data             []byte
			repLat, repLon   float64
			stat             sql.NullFloat64
		)
		if err := rows.Scan(&geoID, &county, &data, &repLat, &repLon, &stat); err != nil {
			return nil, eris.Wrap(err, "dataset: scan region")
		}

		mp, err := decodeMultiPolygon(data)
		if err != nil {
			zap.L().Warn("dataset: undecodable geometry skipped",
				zap.String("geo_id", geoID), zap.Error(err))
			continue
		}

		r := &region.Region{
			GeoID:    geoID,
			County:   county,
			Geometry: mp,
			RepPoint: region.Coordinate{Lat: repLat, Lon: repLon},
		}
		if stat.Valid {
			v := stat.Float64
			r.Stat = &v
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "dataset: iterate regions")
	}

	return region.NewSnapshot(regions), nil
}

// Stats returns the total region count and how many carry a crime statistic.
func (s *SQLite) Stats(ctx context.Context) (total, withStat int, err error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(crime_stat) FROM regions")
	if err := row.Scan(&total, &withStat); err != nil {
		return 0, 0, eris.Wrap(err, "dataset: stats")
	}
	return total, withStat, nil
}

// decodeMultiPolygon decodes EWKB into a MultiPolygon, promoting a bare
// Polygon when the source stored one.
func decodeMultiPolygon(data []byte) (*geom.MultiPolygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: decode EWKB")
	}

	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(t.SRID())
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "dataset: promote polygon")
		}
		return mp, nil
	default:
		return nil, eris.Errorf("dataset: unexpected geometry type %T", g)
	}
}
