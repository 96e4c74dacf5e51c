package weather

import "errors"

// ValidationError is a client-side, pre-flight failure. It is never sent to
// the network and is always recoverable.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

var (
	ErrNoLocations       = ValidationError{Reason: "no locations"}
	ErrNoVariables       = ValidationError{Reason: "no variables"}
	ErrInvalidCoordinate = ValidationError{Reason: "latitude and longitude must be finite numbers"}
)

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// minutePrecisionLen is len("2006-01-02T15:04").
const minutePrecisionLen = 16

// NormalizeTime appends ":00" seconds to a minute-precision timestamp and
// otherwise returns the input unchanged. No offset is ever attached.
func NormalizeTime(raw string) string {
	if len(raw) == minutePrecisionLen {
		return raw + ":00"
	}
	return raw
}

// Build assembles a batch request. It fails only when locations or vars is
// empty. Hours and interval pass through unchanged; their ranges are checked
// where the input is collected. Vars keep their order with duplicates dropped.
func Build(locations []Location, rawTime string, hours, interval int, vars []string) (BatchRequest, error) {
	if len(locations) == 0 {
		return BatchRequest{}, ErrNoLocations
	}
	if len(vars) == 0 {
		return BatchRequest{}, ErrNoVariables
	}

	locs := make([]Location, len(locations))
	copy(locs, locations)

	return BatchRequest{
		Locations: locs,
		Time:      NormalizeTime(rawTime),
		Vars:      uniqueCodes(vars),
		Hours:     hours,
		Interval:  interval,
	}, nil
}

func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
