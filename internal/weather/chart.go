package weather

import "fmt"

// lineColors is the fixed palette; location i gets lineColors[i%len].
var lineColors = []string{
	"#2563eb", "#db2777", "#ea580c", "#16a34a",
	"#7c3aed", "#0891b2", "#be123c", "#b45309",
}

// ChartLine describes how one location is drawn.
type ChartLine struct {
	DataKey string `json:"dataKey"`
	Name    string `json:"name"`
	Color   string `json:"color"`
}

// Chart is the payload the chart-rendering surface consumes for one variable.
type Chart struct {
	Var    string       `json:"var"`
	Label  string       `json:"label"`
	Unit   string       `json:"unit"`
	Lines  []ChartLine  `json:"lines"`
	Points []ChartPoint `json:"points"`
}

// LocationError is a per-location upstream failure kept for presentation.
type LocationError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ResultView is a projected batch result ready for rendering.
type ResultView struct {
	StartTime      string          `json:"startTime"`
	LocationCount  int             `json:"locationCount"`
	Charts         []Chart         `json:"charts"`
	LocationErrors []LocationError `json:"locationErrors"`
}

// BuildCharts projects resp and decorates every series with catalog labels
// and one line per response location.
func BuildCharts(resp BatchResponse, selectedVars []string, catalog *Catalog) []Chart {
	lines := make([]ChartLine, 0, len(resp.Locations))
	for i, loc := range resp.Locations {
		lines = append(lines, ChartLine{
			DataKey: loc.ID,
			Name:    fmt.Sprintf("Lat: %v, Lon: %v", loc.Lat, loc.Lon),
			Color:   lineColors[i%len(lineColors)],
		})
	}

	projection := Project(resp, selectedVars)
	charts := make([]Chart, 0, projection.Len())
	for _, s := range projection.Series() {
		meta := catalog.Lookup(s.Var)
		charts = append(charts, Chart{
			Var:    s.Var,
			Label:  meta.Label,
			Unit:   meta.Unit,
			Lines:  lines,
			Points: s.Points,
		})
	}
	return charts
}

// NewResultView builds the full view of a response for the given selection.
func NewResultView(resp BatchResponse, selectedVars []string, catalog *Catalog) ResultView {
	view := ResultView{
		StartTime:      resp.StartTime,
		LocationCount:  len(resp.Locations),
		Charts:         BuildCharts(resp, selectedVars, catalog),
		LocationErrors: []LocationError{},
	}
	for _, loc := range resp.Locations {
		if loc.Error != nil {
			view.LocationErrors = append(view.LocationErrors, LocationError{ID: loc.ID, Message: *loc.Error})
		}
	}
	return view
}
