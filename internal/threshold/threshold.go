// Package threshold maps a measured value and a warning/critical policy to a
// Nagios verdict and performance data string.
package threshold

import (
	"fmt"
	"strconv"

	"github.com/t-voip/gwcheck/internal/probe"
)

// Direction tells which way a value degrades.
type Direction int

const (
	// HigherIsWorse is used for counters such as errors or queued messages.
	HigherIsWorse Direction = iota
	// LowerIsWorse is used for rates such as TPS.
	LowerIsWorse
)

func (d Direction) String() string {
	if d == LowerIsWorse {
		return "lower-is-worse"
	}
	return "higher-is-worse"
}

// Policy holds the thresholds for one metric. The two thresholds are not
// checked against each other.
type Policy struct {
	Warning   float64
	Critical  float64
	Direction Direction
}

// Measurement is a single measured value.
type Measurement struct {
	Label      string
	Value      float64
	Unit       string
	Fractional bool // print with two decimals instead of as an integer
}

// Verdict is the outcome of evaluating a measurement.
type Verdict struct {
	Status   probe.Status
	ExitCode int
	PerfData string
}

// Evaluate compares m against p. Comparisons are strict: a value equal to a
// threshold stays in the better band.
func Evaluate(m Measurement, p Policy) Verdict {
	status := probe.StatusOK
	switch p.Direction {
	case LowerIsWorse:
		if m.Value < p.Critical {
			status = probe.StatusCritical
		} else if m.Value < p.Warning {
			status = probe.StatusWarning
		}
	default:
		if m.Value > p.Critical {
			status = probe.StatusCritical
		} else if m.Value > p.Warning {
			status = probe.StatusWarning
		}
	}

	return Verdict{
		Status:   status,
		ExitCode: status.ExitCode(),
		PerfData: PerfData(m, p),
	}
}

// PerfData formats m as label=value;warning;critical;0;
func PerfData(m Measurement, p Policy) string {
	return fmt.Sprintf("%s=%s%s;%s;%s;0;", m.Label, m.FormatValue(), m.Unit, formatThreshold(p.Warning), formatThreshold(p.Critical))
}

// FormatValue renders the value the way it appears in messages and perf data.
func (m Measurement) FormatValue() string {
	if m.Fractional {
		return strconv.FormatFloat(m.Value, 'f', 2, 64)
	}
	return strconv.FormatFloat(m.Value, 'f', 0, 64)
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
