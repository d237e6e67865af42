package timeclock

import (
	"errors"
	"fmt"
)

// ErrInvalidDate marks inputs that are missing, zero, or otherwise not a
// usable instant. It is always wrapped in a *TimezoneError so callers can
// branch with errors.Is.
var ErrInvalidDate = errors.New("invalid date")

// TimezoneError covers any failure during zone conversion or day-boundary
// computation.
type TimezoneError struct {
	Op  string
	Err error
}

func (e *TimezoneError) Error() string {
	return fmt.Sprintf("timezone %s: %v", e.Op, e.Err)
}

func (e *TimezoneError) Unwrap() error {
	return e.Err
}
