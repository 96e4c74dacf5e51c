package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/kelvins/geocoder"
)

var errEmptyAddress = errors.New("address is empty")

// lookupFunc matches geocoder.Geocoding; tests replace it.
type lookupFunc func(geocoder.Address) (geocoder.Location, error)

// Google resolves addresses through the Google Geocoding API.
type Google struct {
	lookup lookupFunc
}

// NewGoogle configures the geocoder package with apiKey. The key is package
// global in the underlying library, so only one key per process is supported.
func NewGoogle(apiKey string) *Google {
	geocoder.ApiKey = apiKey
	return &Google{lookup: geocoder.Geocoding}
}

// Geocode returns the coordinates of address. The underlying call is not
// context aware; ctx only bounds how long we wait for it.
func (g *Google) Geocode(ctx context.Context, address string) (float64, float64, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, 0, errEmptyAddress
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{Street: address})
		ch <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return 0, 0, r.err
		}
		return r.loc.Latitude, r.loc.Longitude, nil
	}
}
