package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/metdata-explorer/internal/store"
	"github.com/i474232898/metdata-explorer/internal/weather"
)

var validate = newValidator()

// naiveLayouts are the accepted start time formats: minute or second
// precision, never with an offset.
var naiveLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("naivetime", func(fl validator.FieldLevel) bool {
		_, err := parseNaive(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("register naivetime validation: %v", err))
	}
	return v
}

func parseNaive(s string) (time.Time, error) {
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q; use YYYY-MM-DDTHH:mm[:ss] without offset", s)
}

// SubmissionLister exposes recent diagnostics records.
type SubmissionLister interface {
	Recent(ctx context.Context, limit int) ([]weather.Submission, error)
}

// RouteConfig carries the input bounds and optional collaborators.
type RouteConfig struct {
	WindowMin time.Time
	WindowMax time.Time

	// Submissions is optional; the endpoint is not registered when nil.
	Submissions SubmissionLister
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, cfg RouteConfig) {
	v1 := app.Group("/api/v1")

	v1.Get("/variables", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"categories": service.Catalog().Grouped(),
		})
	})

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(service.State().Snapshot())
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		return c.JSON(service.State().Locations())
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		var req locationForm
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		var added weather.Location
		if _, err := service.Dispatch(weather.AddLocation{Lat: *req.Lat, Lon: *req.Lon, Added: &added}); err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(added)
	})

	v1.Post("/locations/geocode", func(c *fiber.Ctx) error {
		var req geocodeForm
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
		defer cancel()

		added, err := service.AddLocationByAddress(ctx, req.Address)
		switch {
		case err == nil:
		case errors.Is(err, weather.ErrGeocodingDisabled), errors.Is(err, context.DeadlineExceeded),
			weather.IsValidationError(err):
			return toFiberError(err)
		default:
			return fiber.NewError(fiber.StatusBadGateway, "address lookup failed")
		}
		return c.Status(fiber.StatusCreated).JSON(added)
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		if _, err := service.Dispatch(weather.RemoveLocation{ID: c.Params("id")}); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/selection", func(c *fiber.Ctx) error {
		var req selectionForm
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		st, err := service.Dispatch(weather.SelectVariables{Codes: req.Vars})
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{"vars": st.SelectedVars()})
	})

	v1.Post("/selection/:code/toggle", func(c *fiber.Ctx) error {
		st, err := service.Dispatch(weather.ToggleVariable{Code: c.Params("code")})
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{"vars": st.SelectedVars()})
	})

	v1.Put("/window", func(c *fiber.Ctx) error {
		var req windowForm
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		start, _ := parseNaive(req.Time)
		if start.Before(cfg.WindowMin) || start.After(cfg.WindowMax) {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf(
				"time must be between %s and %s",
				cfg.WindowMin.Format(naiveLayouts[0]), cfg.WindowMax.Format(naiveLayouts[0])))
		}

		st, err := service.Dispatch(weather.SetTimeWindow{Window: weather.TimeWindow{
			Start:    req.Time,
			Hours:    req.Hours,
			Interval: req.Interval,
		}})
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(st.Window())
	})

	v1.Post("/query", func(c *fiber.Ctx) error {
		view, err := service.Submit(c.UserContext())
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(view)
	})

	v1.Get("/result", func(c *fiber.Ctx) error {
		view, err := service.CurrentView()
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(view)
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		var q runsQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := service.Runs(q.From, q.To)
		if err != nil {
			return toFiberError(err)
		}

		summaries := make([]runSummary, 0, len(runs))
		for _, run := range runs {
			summaries = append(summaries, newRunSummary(run))
		}
		return c.JSON(fiber.Map{"runs": summaries})
	})

	v1.Get("/runs/:id/charts", func(c *fiber.Ctx) error {
		view, err := service.RunView(c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(view)
	})

	if cfg.Submissions != nil {
		v1.Get("/submissions", func(c *fiber.Ctx) error {
			limit := c.QueryInt("limit", 50)
			if limit <= 0 || limit > 500 {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 500")
			}
			subs, err := cfg.Submissions.Recent(c.UserContext(), limit)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to read submissions")
			}
			out := make([]submissionView, 0, len(subs))
			for _, s := range subs {
				out = append(out, newSubmissionView(s))
			}
			return c.JSON(fiber.Map{"submissions": out})
		})
	}
}

// toFiberError maps domain errors to HTTP errors. Transport details never
// reach the client; the service has already logged them.
func toFiberError(err error) error {
	switch {
	case weather.IsValidationError(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, weather.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, weather.ErrNoResult), errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrGeocodingDisabled):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "upstream lookup timed out")
	default:
		return fiber.NewError(fiber.StatusBadGateway, weather.FailureMessage)
	}
}

func bindAndValidate(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// locationForm is the body of POST /locations.
type locationForm struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lon *float64 `json:"lon" validate:"required"`
}

type geocodeForm struct {
	Address string `json:"address" validate:"required"`
}

type selectionForm struct {
	Vars []string `json:"vars" validate:"dive,required"`
}

// windowForm holds the time/duration/interval input.
type windowForm struct {
	Time     string `json:"time" validate:"required,naivetime"`
	Hours    int    `json:"hours" validate:"min=1,max=168"`
	Interval int    `json:"interval" validate:"oneof=1 3 6 12 24"`
}

// runsQuery holds query parameters for the runs endpoint.
type runsQuery struct {
	From time.Time
	To   time.Time
}

func (q *runsQuery) bind(c *fiber.Ctx) error {
	if s := c.Query("from"); s != "" {
		from, err := parseTime(s)
		if err != nil {
			return err
		}
		q.From = from
	}
	if s := c.Query("to"); s != "" {
		to, err := parseTime(s)
		if err != nil {
			return err
		}
		q.To = to
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return errors.New("to must not be before from")
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

type runSummary struct {
	ID              string               `json:"id"`
	CompletedAt     time.Time            `json:"completedAt"`
	Request         weather.BatchRequest `json:"request"`
	TimeSteps       int                  `json:"timeSteps"`
	FailedLocations int                  `json:"failedLocations"`
}

func newRunSummary(run weather.Run) runSummary {
	return runSummary{
		ID:              run.ID,
		CompletedAt:     run.CompletedAt,
		Request:         run.Request,
		TimeSteps:       len(run.Response.TimeSteps),
		FailedLocations: run.Response.FailedLocations(),
	}
}

type submissionView struct {
	StartedAt       time.Time       `json:"startedAt"`
	DurationMs      int64           `json:"durationMs"`
	Outcome         weather.Outcome `json:"outcome"`
	FailureKind     string          `json:"failureKind,omitempty"`
	Detail          string          `json:"detail,omitempty"`
	Locations       int             `json:"locations"`
	Vars            []string        `json:"vars"`
	Time            string          `json:"time"`
	Hours           int             `json:"hours"`
	Interval        int             `json:"interval"`
	FailedLocations int             `json:"failedLocations"`
}

func newSubmissionView(s weather.Submission) submissionView {
	return submissionView{
		StartedAt:       s.StartedAt,
		DurationMs:      s.Duration.Milliseconds(),
		Outcome:         s.Outcome,
		FailureKind:     s.FailureKind,
		Detail:          s.Detail,
		Locations:       s.Locations,
		Vars:            s.Vars,
		Time:            s.Time,
		Hours:           s.Hours,
		Interval:        s.Interval,
		FailedLocations: s.FailedLocations,
	}
}
