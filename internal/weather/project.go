package weather

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Reserved keys of a chart point; a location id equal to one of them cannot
// be represented as a column.
const (
	pointKeyTime     = "time"
	pointKeyFullTime = "fullTime"
)

// timestampLayouts are tried in order when deriving a time label.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ChartPoint is one timestep of a projected series: the time fields plus one
// value per location that reported a finite value at that step.
type ChartPoint struct {
	Time     string
	FullTime string

	columns []string
	values  map[string]float64
}

func newChartPoint(fullTime string) ChartPoint {
	return ChartPoint{
		Time:     TimeLabel(fullTime),
		FullTime: fullTime,
		values:   make(map[string]float64),
	}
}

// set attaches a location value. Non-finite values and reserved ids are
// rejected. A repeated id overwrites the value but keeps its column position.
func (p *ChartPoint) set(locationID string, v float64) bool {
	if !isFinite(v) || locationID == pointKeyTime || locationID == pointKeyFullTime {
		return false
	}
	if _, ok := p.values[locationID]; !ok {
		p.columns = append(p.columns, locationID)
	}
	p.values[locationID] = v
	return true
}

// Value returns the value attached for locationID.
func (p ChartPoint) Value(locationID string) (float64, bool) {
	v, ok := p.values[locationID]
	return v, ok
}

// Columns returns the location ids that have a value, in location order.
func (p ChartPoint) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// HasValues reports whether any location value is attached.
func (p ChartPoint) HasValues() bool {
	return len(p.columns) > 0
}

// MarshalJSON renders {"time":..,"fullTime":..,"<locationId>":value,...}.
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, v any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	if err := writeField(pointKeyTime, p.Time); err != nil {
		return nil, err
	}
	if err := writeField(pointKeyFullTime, p.FullTime); err != nil {
		return nil, err
	}
	for _, id := range p.columns {
		if err := writeField(id, p.values[id]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ProjectedSeries is the chart-ready table of one variable.
type ProjectedSeries struct {
	Var    string
	Points []ChartPoint
}

// Projection maps variable codes to projected series, preserving the order in
// which the variables were requested.
type Projection struct {
	order  []string
	series map[string]ProjectedSeries
}

// Codes returns the projected variable codes in order.
func (p Projection) Codes() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Get returns the series for code.
func (p Projection) Get(code string) (ProjectedSeries, bool) {
	s, ok := p.series[code]
	return s, ok
}

func (p Projection) Len() int {
	return len(p.order)
}

// Series returns all projected series in order.
func (p Projection) Series() []ProjectedSeries {
	out := make([]ProjectedSeries, 0, len(p.order))
	for _, code := range p.order {
		out = append(out, p.series[code])
	}
	return out
}

// MarshalJSON renders an object keyed by variable code in projection order.
func (p Projection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, code := range p.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(code)
		if err != nil {
			return nil, err
		}
		points := p.series[code].Points
		if points == nil {
			points = []ChartPoint{}
		}
		v, err := json.Marshal(points)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Project reshapes a batch response into one series per selected variable.
//
// For every timestep k and every location (in declared order) the location's
// first series for the variable contributes values[k], rounded to 2 decimals,
// when k is in range and the value is finite. Locations with an upstream error
// are scanned like any other. Variables without a single value are omitted.
func Project(resp BatchResponse, selectedVars []string) Projection {
	out := Projection{
		order:  make([]string, 0, len(selectedVars)),
		series: make(map[string]ProjectedSeries, len(selectedVars)),
	}

	for _, code := range selectedVars {
		if _, done := out.series[code]; done {
			continue
		}

		points := make([]ChartPoint, len(resp.TimeSteps))
		hasData := false
		for k, ts := range resp.TimeSteps {
			pt := newChartPoint(ts)
			for _, loc := range resp.Locations {
				s, ok := loc.series(code)
				if !ok || k >= len(s.Values) {
					continue
				}
				if pt.set(loc.ID, roundTo2(s.Values[k])) {
					hasData = true
				}
			}
			points[k] = pt
		}

		if !hasData {
			continue
		}
		out.order = append(out.order, code)
		out.series[code] = ProjectedSeries{Var: code, Points: points}
	}

	return out
}

// TimeLabel formats a timestamp as "MM-DD HHh" from the calendar fields as
// written. Unparseable input is returned unchanged.
func TimeLabel(ts string) string {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, ts)
		if err == nil {
			return t.Format("01-02 15h")
		}
	}
	return ts
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
