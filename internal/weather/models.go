package weather

import (
	"bytes"
	"encoding/json"
	"math"
)

// Location is a user-entered geographic point. ID is stable across edits.
type Location struct {
	ID  string  `json:"id" yaml:"id"`
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// BatchRequest is the body of POST /weather/batch.
// Time is a naive local timestamp (YYYY-MM-DDTHH:mm:ss, no offset).
type BatchRequest struct {
	Locations []Location `json:"locations"`
	Time      string     `json:"time"`
	Vars      []string   `json:"vars"`
	Hours     int        `json:"hours"`
	Interval  int        `json:"interval"`
}

// VariableSeries holds one variable's values for one location, index-aligned
// with BatchResponse.TimeSteps. A missing value is stored as NaN.
type VariableSeries struct {
	Var    string    `json:"var"`
	Unit   string    `json:"unit"`
	Values []float64 `json:"values"`
}

// LocationResult is the per-location part of a batch response.
// Error is set when the backend could not compute this location.
type LocationResult struct {
	ID    string           `json:"id"`
	Lat   float64          `json:"lat"`
	Lon   float64          `json:"lon"`
	Data  []VariableSeries `json:"data"`
	Error *string          `json:"error"`
}

// BatchResponse is the decoded body of a successful batch call.
type BatchResponse struct {
	StartTime string           `json:"start_time"`
	TimeSteps []string         `json:"time_steps"`
	Locations []LocationResult `json:"locations"`
}

// FailedLocations counts locations that carry an upstream error.
func (r BatchResponse) FailedLocations() int {
	n := 0
	for _, loc := range r.Locations {
		if loc.Error != nil {
			n++
		}
	}
	return n
}

// series returns the first series for code, if any.
func (r LocationResult) series(code string) (VariableSeries, bool) {
	for _, s := range r.Data {
		if s.Var == code {
			return s, true
		}
	}
	return VariableSeries{}, false
}

// UnmarshalJSON accepts null entries in values and stores them as NaN.
func (s *VariableSeries) UnmarshalJSON(data []byte) error {
	var raw struct {
		Var    string     `json:"var"`
		Unit   string     `json:"unit"`
		Values []*float64 `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Var = raw.Var
	s.Unit = raw.Unit
	s.Values = make([]float64, len(raw.Values))
	for i, v := range raw.Values {
		if v == nil {
			s.Values[i] = math.NaN()
			continue
		}
		s.Values[i] = *v
	}
	return nil
}

// MarshalJSON writes non-finite values as null.
func (s VariableSeries) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(s.Values))
	for i := range s.Values {
		if isFinite(s.Values[i]) {
			v := s.Values[i]
			values[i] = &v
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	err := enc.Encode(struct {
		Var    string     `json:"var"`
		Unit   string     `json:"unit"`
		Values []*float64 `json:"values"`
	}{s.Var, s.Unit, values})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
