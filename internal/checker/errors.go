package checker

import (
	"errors"
	"fmt"
)

// Sentinel errors for typed error checking.
var (
	ErrUnreachable       = errors.New("proof checker unreachable")
	ErrTimeout           = errors.New("proof checker timed out")
	ErrBadStatus         = errors.New("proof checker returned an unexpected HTTP status")
	ErrMalformedResponse = errors.New("malformed proof checker response")
)

// CheckError wraps errors with the operation that failed.
type CheckError struct {
	Op  string // request, decode, ...
	Err error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// Kind returns a short label for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrBadStatus):
		return "bad_status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "other"
	}
}
