package weather

import (
	"fmt"
	"testing"
)

func TestBuildCharts(t *testing.T) {
	var locs []LocationResult
	for i := 0; i < 9; i++ {
		locs = append(locs, LocationResult{
			ID:   fmt.Sprintf("loc_%d", i),
			Lat:  30.5,
			Lon:  120 + float64(i),
			Data: []VariableSeries{{Var: "t2m", Values: []float64{float64(i)}}},
		})
	}
	resp := BatchResponse{TimeSteps: []string{"2025-06-01T00:00:00"}, Locations: locs}

	charts := BuildCharts(resp, []string{"tp6h", "t2m", "custom"}, DefaultCatalog())
	if len(charts) != 1 {
		t.Fatalf("expected only t2m to have data, got %d charts", len(charts))
	}

	c := charts[0]
	if c.Var != "t2m" || c.Unit != "K" {
		t.Fatalf("chart = %+v", c)
	}
	if len(c.Lines) != 9 {
		t.Fatalf("lines = %d", len(c.Lines))
	}
	if c.Lines[0].Name != "Lat: 30.5, Lon: 120" {
		t.Errorf("line name = %q", c.Lines[0].Name)
	}
	if c.Lines[8].Color != c.Lines[0].Color || c.Lines[1].Color == c.Lines[0].Color {
		t.Errorf("palette should cycle every 8 lines")
	}
}

func TestNewResultViewCollectsLocationErrors(t *testing.T) {
	resp := BatchResponse{
		StartTime: "2025-06-01 00:00:00",
		TimeSteps: []string{"2025-06-01T00:00:00"},
		Locations: []LocationResult{
			{ID: "ok", Data: []VariableSeries{{Var: "t2m", Values: []float64{1}}}},
			{ID: "sea", Error: strPtr("Location out of bounds")},
		},
	}

	view := NewResultView(resp, []string{"t2m"}, DefaultCatalog())
	if view.LocationCount != 2 || view.StartTime != resp.StartTime {
		t.Fatalf("view = %+v", view)
	}
	if len(view.LocationErrors) != 1 || view.LocationErrors[0].ID != "sea" {
		t.Fatalf("location errors = %+v", view.LocationErrors)
	}
	if resp.FailedLocations() != 1 {
		t.Fatalf("failed locations = %d", resp.FailedLocations())
	}
}
