package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FailureMessage is the single user-facing text for any transport failure.
const FailureMessage = "the query failed unexpectedly, please try again"

var (
	// ErrBusy is returned when a submit arrives while one is in flight.
	ErrBusy = errors.New("a query is already in flight")
	// ErrNoResult is returned when no successful result is available yet.
	ErrNoResult = errors.New("no result available, run a query first")
	// ErrGeocodingDisabled is returned when no geocoder is configured.
	ErrGeocodingDisabled = errors.New("geocoding is not configured")
)

// Service owns the session state and runs submissions against the backend.
// Events and submissions are serialized; only one call is ever outstanding.
type Service struct {
	mu    sync.Mutex
	state State

	backend  Backend
	store    RunStore
	catalog  *Catalog
	journal  Journal
	geocoder Geocoder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

func WithJournal(j Journal) Option     { return func(s *Service) { s.journal = j } }
func WithGeocoder(g Geocoder) Option   { return func(s *Service) { s.geocoder = g } }
func WithCatalog(c *Catalog) Option    { return func(s *Service) { s.catalog = c } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates a new Service starting from initial.
func NewService(backend Backend, store RunStore, initial State, opts ...Option) *Service {
	s := &Service{
		state:   initial.clone(),
		backend: backend,
		store:   store,
		catalog: DefaultCatalog(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the variable catalog in use.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Dispatch applies a user edit and returns the resulting state.
func (s *Service) Dispatch(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.Apply(ev)
	if err != nil {
		return s.state.clone(), err
	}
	s.state = next
	return next.clone(), nil
}

// AddLocationByAddress geocodes address and adds the point.
func (s *Service) AddLocationByAddress(ctx context.Context, address string) (Location, error) {
	if s.geocoder == nil {
		return Location{}, ErrGeocodingDisabled
	}

	lat, lon, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return Location{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	var added Location
	if _, err := s.Dispatch(AddLocation{Lat: lat, Lon: lon, Added: &added}); err != nil {
		return Location{}, err
	}
	return added, nil
}

// Submit builds a request from the current state and performs one backend
// call. Cancellation of ctx does not abort a call once it has been sent.
func (s *Service) Submit(ctx context.Context) (ResultView, error) {
	started := s.now()

	req, err := s.begin()
	if err != nil {
		if IsValidationError(err) {
			st := s.State()
			s.record(ctx, Submission{
				StartedAt: started,
				Duration:  s.now().Sub(started),
				Outcome:   OutcomeValidation,
				Detail:    err.Error(),
				Locations: len(st.Locations()),
				Vars:      st.SelectedVars(),
				Time:      st.window.Start,
				Hours:     st.window.Hours,
				Interval:  st.window.Interval,
			})
		}
		return ResultView{}, err
	}

	s.logger.Debug("submitting batch query",
		"locations", len(req.Locations),
		"vars", req.Vars,
		"time", req.Time,
		"hours", req.Hours,
		"interval", req.Interval,
	)

	resp, sendErr := s.send(ctx, req)
	selected := s.finish(resp, sendErr)

	sub := Submission{
		StartedAt: started,
		Duration:  s.now().Sub(started),
		Locations: len(req.Locations),
		Vars:      req.Vars,
		Time:      req.Time,
		Hours:     req.Hours,
		Interval:  req.Interval,
	}

	if sendErr != nil {
		var fk failureKinder
		if errors.As(sendErr, &fk) {
			sub.FailureKind = fk.FailureKind()
		}
		sub.Outcome = OutcomeTransport
		sub.Detail = sendErr.Error()
		s.logger.Warn("batch query failed", "kind", sub.FailureKind, "error", sendErr)
		s.record(ctx, sub)
		return ResultView{}, sendErr
	}

	sub.Outcome = OutcomeOK
	sub.FailedLocations = resp.FailedLocations()
	s.record(ctx, sub)

	run := Run{
		ID:          uuid.NewString(),
		Request:     req,
		Response:    resp,
		CompletedAt: s.now().UTC(),
	}
	s.store.SaveRun(run)

	s.logger.Info("batch query completed",
		"run", run.ID,
		"timeSteps", len(resp.TimeSteps),
		"locations", len(resp.Locations),
		"failedLocations", sub.FailedLocations,
	)

	return NewResultView(resp, selected, s.catalog), nil
}

// begin validates and marks the session busy.
func (s *Service) begin() (BatchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.busy {
		return BatchRequest{}, ErrBusy
	}

	st := s.state
	req, err := Build(st.Locations(), st.window.Start, st.window.Hours, st.window.Interval, st.selected)
	if err != nil {
		s.state.err = err.Error()
		s.state.result = nil
		return BatchRequest{}, err
	}

	s.state.busy = true
	s.state.err = ""
	s.state.result = nil
	return req, nil
}

// send performs the call and never leaves the session busy, even on panic.
func (s *Service) send(ctx context.Context, req BatchRequest) (resp BatchResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.finish(BatchResponse{}, fmt.Errorf("backend panic: %v", r))
			panic(r)
		}
	}()
	return s.backend.Send(context.WithoutCancel(ctx), req)
}

// finish stores the outcome, clears busy and returns the current selection.
func (s *Service) finish(resp BatchResponse, err error) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.busy = false
	if err != nil {
		s.state.err = FailureMessage
		s.state.result = nil
	} else {
		s.state.result = &resp
	}
	return append([]string(nil), s.state.selected...)
}

// CurrentView projects the last result with the current selection.
func (s *Service) CurrentView() (ResultView, error) {
	st := s.State()
	resp, ok := st.Result()
	if !ok {
		return ResultView{}, ErrNoResult
	}
	return NewResultView(resp, st.selected, s.catalog), nil
}

// RunView projects a stored run with the variables it was requested with.
func (s *Service) RunView(id string) (ResultView, error) {
	run, err := s.store.Get(id)
	if err != nil {
		return ResultView{}, err
	}
	return NewResultView(run.Response, run.Request.Vars, s.catalog), nil
}

// Runs delegates to the underlying store.
func (s *Service) Runs(from, to time.Time) ([]Run, error) {
	return s.store.GetRange(from, to)
}

func (s *Service) record(ctx context.Context, sub Submission) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), sub); err != nil {
		s.logger.Error("journal record failed", "error", err)
	}
}
