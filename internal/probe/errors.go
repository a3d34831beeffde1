package probe

import (
	"errors"
	"fmt"
)

// Failure kinds reported by metric sources and startup checks.
var (
	ErrConnection     = errors.New("connection error")
	ErrParse          = errors.New("parse error")
	ErrNotFound       = errors.New("not found")
	ErrTransientLock  = errors.New("resource temporarily locked")
	ErrConfiguration  = errors.New("configuration error")
	ErrLicenseExpired = errors.New("license expired")
)

// IsTransientLock reports whether err is worth retrying after a pause.
func IsTransientLock(err error) bool {
	return errors.Is(err, ErrTransientLock)
}

// Unknown reports a failure to measure. It never yields WARNING or CRITICAL:
// a missing measurement is not a bad measurement.
func Unknown(err error) *Result {
	return &Result{
		Status:  StatusUnknown,
		Message: err.Error(),
	}
}

// Unknownf is Unknown with a message prefix.
func Unknownf(err error, format string, args ...any) *Result {
	return &Result{
		Status:  StatusUnknown,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
	}
}
