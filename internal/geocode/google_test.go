package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
)

func TestGeocode(t *testing.T) {
	var asked string
	g := &Google{lookup: func(a geocoder.Address) (geocoder.Location, error) {
		asked = a.Street
		return geocoder.Location{Latitude: 30.27, Longitude: 120.15}, nil
	}}

	lat, lon, err := g.Geocode(context.Background(), "  West Lake, Hangzhou ")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if lat != 30.27 || lon != 120.15 {
		t.Fatalf("got %v, %v", lat, lon)
	}
	if asked != "West Lake, Hangzhou" {
		t.Fatalf("lookup address = %q", asked)
	}
}

func TestGeocodeErrors(t *testing.T) {
	lookupErr := errors.New("ZERO_RESULTS")
	g := &Google{lookup: func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, lookupErr
	}}

	if _, _, err := g.Geocode(context.Background(), " "); !errors.Is(err, errEmptyAddress) {
		t.Fatalf("empty address err = %v", err)
	}
	if _, _, err := g.Geocode(context.Background(), "nowhere"); !errors.Is(err, lookupErr) {
		t.Fatalf("lookup err = %v", err)
	}
}

func TestGeocodeHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	g := &Google{lookup: func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{}, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, _, err := g.Geocode(ctx, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}
