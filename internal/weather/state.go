package weather

// TimeWindow is the raw time/duration/interval input.
type TimeWindow struct {
	Start    string `json:"time"`
	Hours    int    `json:"hours"`
	Interval int    `json:"interval"`
}

// State is everything the single UI-state holder owns. It is changed only by
// applying events; the zero value is not useful, use NewState.
type State struct {
	locations *LocationSet
	selected  []string
	window    TimeWindow

	busy   bool
	result *BatchResponse
	err    string
}

// NewState seeds a state from defaults.
func NewState(locations []Location, vars []string, window TimeWindow) State {
	selected := make([]string, len(vars))
	copy(selected, vars)
	return State{
		locations: NewLocationSet(locations...),
		selected:  selected,
		window:    window,
	}
}

func (s State) clone() State {
	out := s
	out.locations = s.locations.Clone()
	out.selected = append([]string(nil), s.selected...)
	return out
}

func (s State) Locations() []Location  { return s.locations.List() }
func (s State) SelectedVars() []string { return append([]string(nil), s.selected...) }
func (s State) Window() TimeWindow     { return s.window }
func (s State) Busy() bool             { return s.busy }
func (s State) Error() string          { return s.err }

// Result returns the last successful response, if any.
func (s State) Result() (BatchResponse, bool) {
	if s.result == nil {
		return BatchResponse{}, false
	}
	return *s.result, true
}

// Snapshot is the JSON view of a State.
type Snapshot struct {
	Locations    []Location `json:"locations"`
	SelectedVars []string   `json:"selectedVars"`
	Window       TimeWindow `json:"window"`
	Busy         bool       `json:"busy"`
	HasResult    bool       `json:"hasResult"`
	Error        string     `json:"error,omitempty"`
}

func (s State) Snapshot() Snapshot {
	return Snapshot{
		Locations:    s.Locations(),
		SelectedVars: s.SelectedVars(),
		Window:       s.window,
		Busy:         s.busy,
		HasResult:    s.result != nil,
		Error:        s.err,
	}
}

// Event is a discrete user edit.
type Event interface {
	apply(st *State) error
}

// Apply returns the state after ev. The receiver is never modified; on error
// the returned state equals the receiver.
func (s State) Apply(ev Event) (State, error) {
	next := s.clone()
	if err := ev.apply(&next); err != nil {
		return s, err
	}
	return next, nil
}

// AddLocation appends a point. Added is filled with the created location.
type AddLocation struct {
	Lat, Lon float64
	Added    *Location
}

func (e AddLocation) apply(st *State) error {
	loc, err := st.locations.Add(e.Lat, e.Lon)
	if err != nil {
		return err
	}
	if e.Added != nil {
		*e.Added = loc
	}
	return nil
}

// RemoveLocation drops a point by id; absent ids are a no-op.
type RemoveLocation struct {
	ID string
}

func (e RemoveLocation) apply(st *State) error {
	st.locations.Remove(e.ID)
	return nil
}

// SelectVariables replaces the ordered selection.
type SelectVariables struct {
	Codes []string
}

func (e SelectVariables) apply(st *State) error {
	st.selected = uniqueCodes(e.Codes)
	return nil
}

// ToggleVariable removes code when selected, otherwise appends it.
type ToggleVariable struct {
	Code string
}

func (e ToggleVariable) apply(st *State) error {
	for i, c := range st.selected {
		if c == e.Code {
			st.selected = append(st.selected[:i:i], st.selected[i+1:]...)
			return nil
		}
	}
	st.selected = append(st.selected, e.Code)
	return nil
}

// SetTimeWindow replaces the time input. Range checks happen where the input
// is collected.
type SetTimeWindow struct {
	Window TimeWindow
}

func (e SetTimeWindow) apply(st *State) error {
	st.window = e.Window
	return nil
}
