// Package tps provides the gateway throughput probe.
package tps

import (
	"context"
	"fmt"
	"time"

	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/threshold"
)

// Name is the probe subcommand name.
const Name = "tps"

// Defaults
const (
	DefaultWarning  = 4.0
	DefaultCritical = 1.0
	DefaultWindow   = 60 * time.Second
)

// Source measures a gateway's send rate.
type Source interface {
	MessageRate(ctx context.Context, gateway string, window time.Duration) (float64, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        "tps",
		Description: "Check messages per second sent through a gateway",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Required: map[string]probe.ArgumentSpec{
				"gateway": {
					Type:        "string",
					Description: "Gateway name as recorded in the message log",
				},
			},
			Optional: map[string]probe.ArgumentSpec{
				"warning": {
					Type:        "number",
					Description: "Warn when TPS falls below this value",
					Default:     DefaultWarning,
				},
				"critical": {
					Type:        "number",
					Description: "Critical when TPS falls below this value",
					Default:     DefaultCritical,
				},
				"window": {
					Type:        "duration",
					Description: "Trailing time window",
					Default:     DefaultWindow.String(),
				},
			},
		},
	}
}

// Run executes the probe with the given arguments.
func Run(ctx context.Context, src Source, gateway string, warning, critical float64, window time.Duration) *probe.Result {
	if gateway == "" {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: "gateway argument is required",
		}
	}

	rate, err := src.MessageRate(ctx, gateway, window)
	if err != nil {
		return probe.Unknownf(err, "TPS for gateway %s", gateway)
	}

	m := threshold.Measurement{Label: "tps", Value: rate, Fractional: true}
	v := threshold.Evaluate(m, threshold.Policy{
		Warning:   warning,
		Critical:  critical,
		Direction: threshold.LowerIsWorse,
	})

	return &probe.Result{
		Status:   v.Status,
		Message:  fmt.Sprintf("%s TPS on gateway %s", m.FormatValue(), gateway),
		PerfData: []string{v.PerfData},
		Data: map[string]any{
			"gateway": gateway,
			"window":  window.String(),
		},
	}
}
