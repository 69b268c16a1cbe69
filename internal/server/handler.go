// Package server exposes the geocode-and-score API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mapsignal/crimegrid/internal/region"
	"github.com/mapsignal/crimegrid/pkg/geocode"
)

// Handler holds the request handlers and their dependencies.
type Handler struct {
	geocoder geocode.Client
	selector *region.Selector
	snap     *region.Snapshot
}

// NewHandler creates a Handler.
func NewHandler(geocoder geocode.Client, selector *region.Selector, snap *region.Snapshot) *Handler {
	return &Handler{geocoder: geocoder, selector: selector, snap: snap}
}

// Geocode handles POST /geocode: resolve the form-encoded address, collect
// the regions around the resolved point, and annotate each with its crime
// percentile.
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	address := r.PostFormValue("address")

	result, err := h.geocodeWithRetry(r.Context(), address)
	switch {
	case errors.Is(err, geocode.ErrEmptyAddress):
		writeError(w, http.StatusBadRequest, "address is required")
		return
	case errors.Is(err, geocode.ErrNoMatch):
		// Not an error for the caller: an unresolvable address yields an
		// empty result with no center.
		writeJSON(w, http.StatusOK, geocodeResponse{Areas: []areaPayload{}})
		return
	case errors.Is(err, geocode.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "geocoding service unavailable")
		return
	case err != nil:
		zap.L().Error("server: geocode failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	center := region.Coordinate{Lat: result.Latitude, Lon: result.Longitude}
	areas, err := encodeAreas(h.selector.Select(center))
	if err != nil {
		zap.L().Error("server: encode areas failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	zap.L().Info("server: geocode request served",
		zap.String("source", result.Source),
		zap.String("quality", result.Quality),
		zap.Int("areas", len(areas)),
	)
	writeJSON(w, http.StatusOK, geocodeResponse{Center: &center, Areas: areas})
}

// geocodeWithRetry retries once when every provider failed, to ride out a
// transient upstream blip.
func (h *Handler) geocodeWithRetry(ctx context.Context, address string) (*geocode.Result, error) {
	result, err := h.geocoder.Geocode(ctx, address)
	if errors.Is(err, geocode.ErrUnavailable) && ctx.Err() == nil {
		zap.L().Warn("server: all geocode providers failed, retrying once")
		result, err = h.geocoder.Geocode(ctx, address)
	}
	return result, err
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"regions": h.snap.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
