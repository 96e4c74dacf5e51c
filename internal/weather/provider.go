package weather

import (
	"context"
	"time"
)

// Backend performs exactly one batch exchange per call.
type Backend interface {
	Send(ctx context.Context, req BatchRequest) (BatchResponse, error)
}

// Run is a completed, successful submission.
type Run struct {
	ID          string        `json:"id"`
	Request     BatchRequest  `json:"request"`
	Response    BatchResponse `json:"response"`
	CompletedAt time.Time     `json:"completedAt"` // always UTC
}

// RunStore keeps the history of successful runs.
type RunStore interface {
	SaveRun(run Run)
	GetLatest() (Run, error)
	Get(id string) (Run, error)
	GetRange(from, to time.Time) ([]Run, error)
}

// Outcome classifies how a submission ended.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeValidation Outcome = "validation"
	OutcomeTransport  Outcome = "transport"
)

// Submission is one diagnostics record per submit attempt.
type Submission struct {
	StartedAt       time.Time
	Duration        time.Duration
	Outcome         Outcome
	FailureKind     string // transport failure kind, empty otherwise
	Detail          string // raw error detail
	Locations       int
	Vars            []string
	Time            string
	Hours           int
	Interval        int
	FailedLocations int
}

// Journal records submissions for diagnostics.
type Journal interface {
	Record(ctx context.Context, sub Submission) error
}

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lon float64, err error)
}

// failureKinder is implemented by backend errors that carry a failure kind.
type failureKinder interface {
	FailureKind() string
}
