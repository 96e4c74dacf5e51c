package weather

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func testState() State {
	return NewState(
		[]Location{{ID: "loc_1", Lat: 30.5, Lon: 120.5}},
		[]string{"t2m", "tp6h"},
		TimeWindow{Start: "2025-06-01T00:00", Hours: 24, Interval: 1},
	)
}

func TestStateApplyDoesNotMutateReceiver(t *testing.T) {
	st := testState()

	var added Location
	next, err := st.Apply(AddLocation{Lat: 1, Lon: 2, Added: &added})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(st.Locations()) != 1 {
		t.Fatalf("receiver changed: %+v", st.Locations())
	}
	if got := next.Locations(); len(got) != 2 || got[1] != added {
		t.Fatalf("next locations = %+v, added = %+v", got, added)
	}

	next, err = next.Apply(RemoveLocation{ID: "loc_1"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(next.Locations()) != 1 || len(st.Locations()) != 1 {
		t.Fatal("remove leaked into earlier state")
	}
}

func TestStateApplyErrorKeepsState(t *testing.T) {
	st := testState()
	next, err := st.Apply(AddLocation{Lat: math.NaN(), Lon: 0})
	if !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("err = %v", err)
	}
	if len(next.Locations()) != 1 {
		t.Fatal("failed event must not change state")
	}
}

func TestToggleVariable(t *testing.T) {
	st := testState()

	st, _ = st.Apply(ToggleVariable{Code: "u10"})
	if got := st.SelectedVars(); !reflect.DeepEqual(got, []string{"t2m", "tp6h", "u10"}) {
		t.Fatalf("after add: %v", got)
	}

	st, _ = st.Apply(ToggleVariable{Code: "t2m"})
	if got := st.SelectedVars(); !reflect.DeepEqual(got, []string{"tp6h", "u10"}) {
		t.Fatalf("after remove: %v", got)
	}
}

func TestSelectVariablesAndWindow(t *testing.T) {
	st := testState()

	st, _ = st.Apply(SelectVariables{Codes: []string{"b", "a", "b"}})
	if got := st.SelectedVars(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("selection = %v", got)
	}

	w := TimeWindow{Start: "2025-06-02T06:00", Hours: 12, Interval: 3}
	st, _ = st.Apply(SetTimeWindow{Window: w})
	if st.Window() != w {
		t.Fatalf("window = %+v", st.Window())
	}

	snap := st.Snapshot()
	if snap.Busy || snap.HasResult || snap.Window != w {
		t.Fatalf("snapshot = %+v", snap)
	}
}
