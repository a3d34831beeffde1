// Package license implements the pre-flight expiration check run before any probe.
package license

import (
	"fmt"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/t-voip/gwcheck/internal/probe"
)

// DateLayout is the format of the [License] expiration setting.
const DateLayout = "2006-01-02"

// Gate fails when the probes may no longer run.
type Gate interface {
	Check(now time.Time) error
}

// NoGate never fails. It is used when no expiration is configured.
type NoGate struct{}

// Check always succeeds.
func (NoGate) Check(time.Time) error { return nil }

// DateGate expires at the end of a calendar day.
type DateGate struct {
	Expires time.Time // date only, in the local time zone
}

// New returns the gate for an expiration setting. An empty setting means no gate.
func New(expiration string) (Gate, error) {
	expiration = strings.TrimSpace(expiration)
	if expiration == "" {
		return NoGate{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, expiration, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: [License] expiration %q is not a YYYY-MM-DD date", probe.ErrConfiguration, expiration)
	}
	return DateGate{Expires: t}, nil
}

// Check fails once now is past the expiration day. The expiration day itself
// is still valid.
func (g DateGate) Check(now time.Time) error {
	end := g.Expires.AddDate(0, 0, 1)
	if now.Before(end) {
		return nil
	}
	return fmt.Errorf("%w on %s (%s ago)", probe.ErrLicenseExpired, g.Expires.Format(DateLayout), units.HumanDuration(now.Sub(end)))
}
