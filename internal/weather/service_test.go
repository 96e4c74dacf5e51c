package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []BatchRequest
	ctxOK []bool

	resp BatchResponse
	err  error

	started chan struct{}
	release chan struct{}
}

func (f *fakeBackend) Send(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.ctxOK = append(f.ctxOK, ctx.Err() == nil)
	f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStore struct {
	runs []Run
}

func (s *fakeStore) SaveRun(run Run) { s.runs = append(s.runs, run) }

func (s *fakeStore) GetLatest() (Run, error) {
	if len(s.runs) == 0 {
		return Run{}, errors.New("not found")
	}
	return s.runs[len(s.runs)-1], nil
}

func (s *fakeStore) Get(id string) (Run, error) {
	for _, r := range s.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return Run{}, errors.New("not found")
}

func (s *fakeStore) GetRange(from, to time.Time) ([]Run, error) { return s.runs, nil }

type fakeJournal struct {
	mu   sync.Mutex
	subs []Submission
}

func (j *fakeJournal) Record(_ context.Context, sub Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.subs = append(j.subs, sub)
	return nil
}

type kindError struct{ kind string }

func (e kindError) Error() string       { return "boom: " + e.kind }
func (e kindError) FailureKind() string { return e.kind }

type fakeGeocoder struct {
	lat, lon float64
	err      error
}

func (g fakeGeocoder) Geocode(context.Context, string) (float64, float64, error) {
	return g.lat, g.lon, g.err
}

func okResponse() BatchResponse {
	return BatchResponse{
		StartTime: "2025-06-01T00:00:00",
		TimeSteps: []string{"2025-06-01T00:00:00", "2025-06-01T01:00:00"},
		Locations: []LocationResult{
			{ID: "loc_1", Lat: 30.5, Lon: 120.5, Data: []VariableSeries{{Var: "t2m", Unit: "K", Values: []float64{290, 291}}}},
		},
	}
}

func newTestService(b Backend, opts ...Option) (*Service, *fakeStore) {
	st := &fakeStore{}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewService(b, st, testState(), opts...), st
}

func TestSubmitSuccess(t *testing.T) {
	backend := &fakeBackend{resp: okResponse()}
	journal := &fakeJournal{}
	svc, store := newTestService(backend, WithJournal(journal))

	view, err := svc.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(view.Charts) != 1 || view.Charts[0].Var != "t2m" {
		t.Fatalf("charts = %+v", view.Charts)
	}

	req := backend.calls[0]
	if req.Time != "2025-06-01T00:00:00" || req.Hours != 24 || req.Interval != 1 {
		t.Fatalf("request = %+v", req)
	}

	st := svc.State()
	if st.Busy() || st.Error() != "" {
		t.Fatalf("state after success: busy=%v err=%q", st.Busy(), st.Error())
	}
	if _, ok := st.Result(); !ok {
		t.Fatal("result should be stored")
	}
	if len(store.runs) != 1 || store.runs[0].ID == "" {
		t.Fatalf("runs = %+v", store.runs)
	}
	if len(journal.subs) != 1 || journal.subs[0].Outcome != OutcomeOK {
		t.Fatalf("journal = %+v", journal.subs)
	}
}

func TestSubmitValidationSkipsBackend(t *testing.T) {
	backend := &fakeBackend{resp: okResponse()}
	journal := &fakeJournal{}
	svc, _ := newTestService(backend, WithJournal(journal))
	if _, err := svc.Dispatch(SelectVariables{Codes: nil}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Submit(context.Background())
	if !errors.Is(err, ErrNoVariables) {
		t.Fatalf("err = %v, want ErrNoVariables", err)
	}
	if backend.callCount() != 0 {
		t.Fatal("backend must not be called on validation failure")
	}
	if got := svc.State().Error(); got != "no variables" {
		t.Fatalf("state error = %q", got)
	}
	if len(journal.subs) != 1 || journal.subs[0].Outcome != OutcomeValidation {
		t.Fatalf("journal = %+v", journal.subs)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	backend := &fakeBackend{resp: okResponse()}
	journal := &fakeJournal{}
	svc, store := newTestService(backend, WithJournal(journal))

	if _, err := svc.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	backend.err = kindError{kind: "http_status"}
	_, err := svc.Submit(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	st := svc.State()
	if st.Error() != FailureMessage {
		t.Fatalf("state error = %q", st.Error())
	}
	if _, ok := st.Result(); ok {
		t.Fatal("previous result must be cleared on failure")
	}
	if st.Busy() {
		t.Fatal("busy must be cleared")
	}
	if len(store.runs) != 1 {
		t.Fatalf("failed runs must not be stored, got %d", len(store.runs))
	}
	last := journal.subs[len(journal.subs)-1]
	if last.Outcome != OutcomeTransport || last.FailureKind != "http_status" {
		t.Fatalf("journal = %+v", last)
	}

	if _, err := svc.CurrentView(); !errors.Is(err, ErrNoResult) {
		t.Fatalf("current view err = %v", err)
	}
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	backend := &fakeBackend{
		resp:    okResponse(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc, _ := newTestService(backend)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background())
		done <- err
	}()
	<-backend.started

	if !svc.State().Busy() {
		t.Fatal("expected busy while in flight")
	}
	if _, err := svc.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second submit err = %v, want ErrBusy", err)
	}

	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if backend.callCount() != 1 {
		t.Fatalf("backend calls = %d, want 1", backend.callCount())
	}
}

func TestSubmitNotCancelledByCaller(t *testing.T) {
	backend := &fakeBackend{resp: okResponse()}
	svc, _ := newTestService(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !backend.ctxOK[0] {
		t.Fatal("backend saw a cancelled context")
	}
}

func TestCurrentViewUsesCurrentSelection(t *testing.T) {
	resp := okResponse()
	resp.Locations[0].Data = append(resp.Locations[0].Data, VariableSeries{Var: "sp", Values: []float64{1e5, 1e5}})
	svc, _ := newTestService(&fakeBackend{resp: resp})
	if _, err := svc.Dispatch(SelectVariables{Codes: []string{"t2m", "sp"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Dispatch(ToggleVariable{Code: "t2m"}); err != nil {
		t.Fatal(err)
	}
	view, err := svc.CurrentView()
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Charts) != 1 || view.Charts[0].Var != "sp" {
		t.Fatalf("charts = %+v", view.Charts)
	}
}

func TestRunView(t *testing.T) {
	svc, store := newTestService(&fakeBackend{resp: okResponse()})
	if _, err := svc.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	view, err := svc.RunView(store.runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.LocationCount != 1 {
		t.Fatalf("view = %+v", view)
	}
	if _, err := svc.RunView("missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestAddLocationByAddress(t *testing.T) {
	svc, _ := newTestService(&fakeBackend{})
	if _, err := svc.AddLocationByAddress(context.Background(), "Hangzhou"); !errors.Is(err, ErrGeocodingDisabled) {
		t.Fatalf("err = %v", err)
	}

	svc, _ = newTestService(&fakeBackend{}, WithGeocoder(fakeGeocoder{lat: 30.27, lon: 120.15}))
	loc, err := svc.AddLocationByAddress(context.Background(), "Hangzhou")
	if err != nil {
		t.Fatal(err)
	}
	locs := svc.State().Locations()
	if len(locs) != 2 || locs[1] != loc || loc.Lat != 30.27 {
		t.Fatalf("locations = %+v", locs)
	}

	lookupErr := errors.New("zero results")
	svc, _ = newTestService(&fakeBackend{}, WithGeocoder(fakeGeocoder{err: lookupErr}))
	if _, err := svc.AddLocationByAddress(context.Background(), "nowhere"); !errors.Is(err, lookupErr) {
		t.Fatalf("err = %v", err)
	}
}
