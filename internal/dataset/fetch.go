package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// tigerFTPHost is the Census Bureau's anonymous FTP mirror of TIGER/Line data.
const tigerFTPHost = "ftp2.census.gov:21"

// countyShapefilePath returns the FTP path of the national county shapefile
// for a TIGER/Line vintage year.
func countyShapefilePath(year int) string {
	return fmt.Sprintf("/geo/tiger/TIGER%d/COUNTY/tl_%d_us_county.zip", year, year)
}

// FetchCountyShapefile downloads and extracts the national county shapefile
// for the given vintage year into destDir, returning the path of the .shp.
func FetchCountyShapefile(ctx context.Context, year int, destDir string, timeout time.Duration) (string, error) {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "dataset: create dest dir")
	}

	path := countyShapefilePath(year)
	zipPath := filepath.Join(destDir, filepath.Base(path))

	if err := ftpDownload(ctx, path, zipPath, timeout); err != nil {
		return "", err
	}

	extracted, err := extractZIP(zipPath, destDir)
	if err != nil {
		return "", err
	}

	for _, p := range extracted {
		if strings.HasSuffix(p, ".shp") {
			return p, nil
		}
	}
	return "", eris.Errorf("dataset: no .shp in %s", zipPath)
}

// ftpDownload retrieves an FTP path from the Census mirror into a local file.
func ftpDownload(ctx context.Context, path, dest string, timeout time.Duration) error {
	zap.L().Info("dataset: downloading",
		zap.String("host", tigerFTPHost),
		zap.String("path", path),
	)

	conn, err := ftp.Dial(tigerFTPHost, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "dataset: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return eris.Wrap(err, "dataset: ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return eris.Wrap(err, "dataset: ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	file, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "dataset: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, resp)
	if err != nil {
		return eris.Wrap(err, "dataset: write file")
	}

	zap.L().Info("dataset: downloaded", zap.String("dest", dest), zap.Int64("bytes", n))
	return nil
}
