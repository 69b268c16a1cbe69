package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/mapsignal/crimegrid/internal/region"
	"github.com/mapsignal/crimegrid/pkg/geocode"
)

// fakeGeocoder returns queued responses in order, repeating the last one.
type fakeGeocoder struct {
	queue []fakeResponse
	calls int
}

type fakeResponse struct {
	result *geocode.Result
	err    error
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	if strings.TrimSpace(address) == "" {
		return nil, geocode.ErrEmptyAddress
	}
	f.calls++
	i := f.calls - 1
	if i >= len(f.queue) {
		i = len(f.queue) - 1
	}
	return f.queue[i].result, f.queue[i].err
}

func matchAt(lat, lon float64) fakeResponse {
	return fakeResponse{result: &geocode.Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "census",
		Quality:   "rooftop",
		Matched:   true,
	}}
}

func fptr(v float64) *float64 { return &v }

func squareRegion(geoID, county string, lat, lon, half float64, stat *float64) *region.Region {
	ring := []geom.Coord{
		{lon - half, lat - half},
		{lon + half, lat - half},
		{lon + half, lat + half},
		{lon - half, lat + half},
		{lon - half, lat - half},
	}
	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{ring}}).SetSRID(4326)
	return &region.Region{
		GeoID:    geoID,
		County:   county,
		Geometry: mp,
		RepPoint: region.Coordinate{Lat: lat, Lon: lon},
		Stat:     stat,
	}
}

// newTestHandler builds a handler over three regions around Houston. The
// third sits far enough away that it never falls in a 0.4 degree box around
// the other two.
func newTestHandler(t *testing.T, g geocode.Client) *Handler {
	t.Helper()
	snap := region.NewSnapshot([]*region.Region{
		squareRegion("48201", "Harris County", 29.8, -95.4, 0.2, fptr(90)),
		squareRegion("48157", "Fort Bend County", 29.6, -95.8, 0.2, fptr(40)),
		squareRegion("48113", "Dallas County", 32.8, -96.8, 0.2, nil),
	})
	norm := region.NewNormalizer(snap)
	return NewHandler(g, region.NewSelector(snap, norm, region.DefaultOffsetDeg), snap)
}

func postGeocode(t *testing.T, h *Handler, address string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	if address != "" {
		form.Set("address", address)
	}
	req := httptest.NewRequest(http.MethodPost, "/geocode", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Geocode(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGeocode_Success(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{matchAt(29.7, -95.5)}}
	rec := postGeocode(t, newTestHandler(t, g), "123 Main St, Houston, TX")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Center *region.Coordinate `json:"center"`
		Areas  []struct {
			GeoID           string          `json:"geo_id"`
			County          string          `json:"county"`
			CrimePercentile float64         `json:"crime_percentile"`
			Geometry        json.RawMessage `json:"geometry"`
		} `json:"areas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.NotNil(t, body.Center)
	assert.InDelta(t, 29.7, body.Center.Lat, 1e-9)
	assert.InDelta(t, -95.5, body.Center.Lon, 1e-9)

	// Both Houston-area regions, ascending geo_id; Dallas excluded.
	require.Len(t, body.Areas, 2)
	assert.Equal(t, "48157", body.Areas[0].GeoID)
	assert.Equal(t, "48201", body.Areas[1].GeoID)
	assert.Equal(t, "Fort Bend County", body.Areas[0].County)

	for _, a := range body.Areas {
		assert.GreaterOrEqual(t, a.CrimePercentile, 0.0)
		assert.LessOrEqual(t, a.CrimePercentile, 100.0)

		var gj struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(a.Geometry, &gj))
		assert.Equal(t, "MultiPolygon", gj.Type)
	}

	assert.Equal(t, 1, g.calls)
}

func TestGeocode_EmptyAddress(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{matchAt(29.7, -95.5)}}
	rec := postGeocode(t, newTestHandler(t, g), "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, g.calls, "no provider call for an empty address")
	assert.Contains(t, decodeBody(t, rec)["error"], "address")
}

func TestGeocode_WhitespaceAddress(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{matchAt(29.7, -95.5)}}
	rec := postGeocode(t, newTestHandler(t, g), "   ")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, g.calls)
}

func TestGeocode_NoMatchOmitsCenter(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{{err: geocode.ErrNoMatch}}}
	rec := postGeocode(t, newTestHandler(t, g), "nowhere at all")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	_, hasCenter := body["center"]
	assert.False(t, hasCenter, "center key must be absent on no match")

	areas, ok := body["areas"].([]any)
	require.True(t, ok)
	assert.Empty(t, areas)
}

func TestGeocode_UnavailableRetriesOnce(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{{err: geocode.ErrUnavailable}}}
	rec := postGeocode(t, newTestHandler(t, g), "123 Main St")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 2, g.calls, "one retry after total provider failure")
}

func TestGeocode_RetryRecovers(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{
		{err: geocode.ErrUnavailable},
		matchAt(29.7, -95.5),
	}}
	rec := postGeocode(t, newTestHandler(t, g), "123 Main St")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, g.calls)
}

func TestGeocode_InternalError(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{{err: assert.AnError}}}
	rec := postGeocode(t, newTestHandler(t, g), "123 Main St")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody(t, rec)["error"])
}

func TestGeocode_CenterInsideItsOwnBox(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{matchAt(29.7, -95.5)}}
	h := newTestHandler(t, g)
	rec := postGeocode(t, h, "123 Main St")
	require.Equal(t, http.StatusOK, rec.Code)

	var body geocodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Center)

	box := region.Around(*body.Center, region.DefaultOffsetDeg)
	assert.True(t, box.Contains(body.Center.Lat, body.Center.Lon))
}

func TestHealth(t *testing.T) {
	g := &fakeGeocoder{queue: []fakeResponse{matchAt(0, 0)}}
	h := newTestHandler(t, g)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["regions"])
}
