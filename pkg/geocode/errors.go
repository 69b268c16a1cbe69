package geocode

import "github.com/rotisserie/eris"

// Sentinel errors returned by Client.Geocode. Callers distinguish outcomes
// with errors.Is.
var (
	// ErrEmptyAddress is returned for an empty or whitespace-only address,
	// before any provider is contacted.
	ErrEmptyAddress = eris.New("geocode: empty address")

	// ErrNoMatch is returned when at least one provider answered but none
	// found a match for the address.
	ErrNoMatch = eris.New("geocode: no match for address")

	// ErrUnavailable is returned when every configured provider failed with a
	// transport or server error, so no authoritative answer exists.
	ErrUnavailable = eris.New("geocode: all providers unavailable")
)
