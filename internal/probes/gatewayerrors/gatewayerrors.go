// Package gatewayerrors provides the probe counting failed messages of a gateway.
package gatewayerrors

import (
	"context"
	"fmt"

	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/threshold"
)

// Name is the probe subcommand name.
const Name = "gateway-errors"

// Defaults
const (
	DefaultWarning  = 5000
	DefaultCritical = 10000
)

// Source counts outgoing messages by gateway and status code.
type Source interface {
	ErrorCount(ctx context.Context, gatewayID, statusCode string) (int64, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        "gateway-errors",
		Description: "Check the number of messages a gateway failed with a given status code",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Required: map[string]probe.ArgumentSpec{
				"gateway_id": {
					Type:        "string",
					Description: "Gateway id",
				},
				"error_code": {
					Type:        "string",
					Description: "Status code to count (e.g. 300)",
				},
			},
			Optional: map[string]probe.ArgumentSpec{
				"error_threshold": {
					Type:        "number",
					Description: "Warn above this many errors",
					Default:     float64(DefaultWarning),
				},
				"critical_threshold": {
					Type:        "number",
					Description: "Critical above this many errors",
					Default:     float64(DefaultCritical),
				},
			},
		},
	}
}

// Run executes the probe with the given arguments.
func Run(ctx context.Context, src Source, gatewayID, errorCode string, warning, critical int64) *probe.Result {
	if gatewayID == "" || errorCode == "" {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: "gateway_id and error_code arguments are required",
		}
	}

	count, err := src.ErrorCount(ctx, gatewayID, errorCode)
	if err != nil {
		return probe.Unknownf(err, "failed to count errors for gateway %s", gatewayID)
	}

	v := threshold.Evaluate(
		threshold.Measurement{Label: "total_error", Value: float64(count)},
		threshold.Policy{Warning: float64(warning), Critical: float64(critical), Direction: threshold.HigherIsWorse},
	)

	return &probe.Result{
		Status:   v.Status,
		Message:  fmt.Sprintf("%d errors with code %s in gateway %s", count, errorCode, gatewayID),
		PerfData: []string{v.PerfData},
		Data: map[string]any{
			"gateway_id": gatewayID,
			"error_code": errorCode,
		},
	}
}
