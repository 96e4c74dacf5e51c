package weather

import (
	"math"

	"github.com/google/uuid"
)

// newLocationID generates ids for added locations. Tests may replace it.
var newLocationID = func() string {
	return "loc_" + uuid.NewString()
}

// LocationSet is the ordered collection of query points. Insertion order
// drives display order and chart colour assignment.
type LocationSet struct {
	items []Location
}

// NewLocationSet seeds the set with initial locations in order.
func NewLocationSet(initial ...Location) *LocationSet {
	s := &LocationSet{items: make([]Location, 0, len(initial))}
	s.items = append(s.items, initial...)
	return s
}

// Add appends a new point with a fresh id.
func (s *LocationSet) Add(lat, lon float64) (Location, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return Location{}, ErrInvalidCoordinate
	}

	loc := Location{ID: newLocationID(), Lat: lat, Lon: lon}
	s.items = append(s.items, loc)
	return loc, nil
}

// Remove deletes the location with id. It reports whether one was removed.
func (s *LocationSet) Remove(id string) bool {
	for i, loc := range s.items {
		if loc.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the locations in order.
func (s *LocationSet) List() []Location {
	out := make([]Location, len(s.items))
	copy(out, s.items)
	return out
}

func (s *LocationSet) Len() int {
	return len(s.items)
}

// Clone returns an independent copy.
func (s *LocationSet) Clone() *LocationSet {
	return NewLocationSet(s.items...)
}
