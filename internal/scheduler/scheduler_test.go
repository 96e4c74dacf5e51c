package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/metdata-explorer/internal/weather"
)

type countingSubmitter struct {
	calls atomic.Int32
	err   error
}

func (c *countingSubmitter) Submit(ctx context.Context) (weather.ResultView, error) {
	c.calls.Add(1)
	return weather.ResultView{}, c.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartDisabled(t *testing.T) {
	sub := &countingSubmitter{}
	s := New(0, sub, discard())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	if sub.calls.Load() != 0 {
		t.Fatal("disabled scheduler must not submit")
	}
}

func TestStartRefreshesPeriodically(t *testing.T) {
	sub := &countingSubmitter{}
	s := New(20*time.Millisecond, sub, discard())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sub.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 2 refreshes, got %d", sub.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRefreshToleratesErrors(t *testing.T) {
	for _, err := range []error{nil, weather.ErrBusy, weather.ErrNoVariables, errors.New("boom")} {
		sub := &countingSubmitter{err: err}
		s := New(time.Minute, sub, discard())
		s.refresh()
		if sub.calls.Load() != 1 {
			t.Fatalf("err %v: calls = %d", err, sub.calls.Load())
		}
	}
}
