package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleProvider geocodes via the Google Geocoding API. It is a fallback for
// addresses the Census geocoder cannot resolve.
type GoogleProvider struct {
	cfg providerConfig
	key string
}

// NewGoogleProvider creates a GoogleProvider with the given API key.
func NewGoogleProvider(key string, opts ...Option) *GoogleProvider {
	cfg := defaultProviderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoogleProvider{cfg: cfg, key: key}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.key != "" }

// Geocode implements Provider using the Google Geocoding API.
func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if p.key == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	if err := p.cfg.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit")
	}

	params := url.Values{
		"address": {address},
		"key":     {p.key},
	}

	reqURL := googleGeocodeURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := p.cfg.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google read body")
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch {
	case googleResp.Status == "OK" && len(googleResp.Results) > 0:
		result := googleResp.Results[0]
		return &Result{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
			Source:    "google",
			Quality:   googleLocationTypeToQuality(result.Geometry.LocationType),
			Matched:   true,
		}, nil
	case googleResp.Status == "ZERO_RESULTS" || googleResp.Status == "OK":
		return &Result{Matched: false, Source: "google"}, nil
	default:
		// OVER_QUERY_LIMIT, REQUEST_DENIED, UNKNOWN_ERROR and friends are
		// provider failures, not authoritative no-match answers.
		return nil, eris.Errorf("geocode: google status %s", googleResp.Status)
	}
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	case "APPROXIMATE":
		return "approximate"
	default:
		return "approximate"
	}
}
