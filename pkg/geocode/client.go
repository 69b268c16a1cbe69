// Package geocode resolves free-text addresses to WGS84 coordinates via the
// Census Geocoder (primary) and the Google Geocoding API (fallback).
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "census" or "google"
	Quality   string // "rooftop", "range", "centroid", "approximate"
	Matched   bool
}

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
	Available() bool
}

// Client geocodes a free-text address, trying providers in order.
type Client interface {
	// Geocode resolves address to a coordinate. It returns ErrEmptyAddress,
	// ErrNoMatch, or ErrUnavailable on the corresponding failure.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// providerConfig holds the transport settings shared by all providers.
type providerConfig struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func defaultProviderConfig() providerConfig {
	return providerConfig{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
}

// Option configures a provider's transport behavior.
type Option func(*providerConfig)

// WithHTTPClient sets a custom HTTP client. The client's timeout bounds every
// outbound provider call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *providerConfig) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for provider calls.
func WithRateLimit(rps float64) Option {
	return func(c *providerConfig) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type client struct {
	providers []Provider
}

// NewClient creates a Client that tries the given providers in order.
func NewClient(providers ...Provider) Client {
	return &client{providers: providers}
}

// Geocode implements Client. A provider error moves on to the next provider;
// "no match" is only authoritative once every available provider has been tried.
func (c *client) Geocode(ctx context.Context, address string) (*Result, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrEmptyAddress
	}

	var attempted, failed int
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		attempted++

		result, err := p.Geocode(ctx, address)
		if err != nil {
			failed++
			zap.L().Debug("geocode: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			return result, nil
		}
	}

	if attempted == 0 || failed == attempted {
		return nil, ErrUnavailable
	}
	return nil, ErrNoMatch
}
