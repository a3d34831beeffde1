// Package gatewayqueues provides the probe reporting the send queue depth of
// each configured gateway.
package gatewayqueues

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/threshold"
)

// Name is the probe subcommand name.
const Name = "gateway-queues"

// Defaults
const (
	DefaultWarning  = 1000
	DefaultCritical = 5000
)

// Source counts queued messages per gateway id.
type Source interface {
	QueueCounts(ctx context.Context, gatewayIDs []int) (map[int]int64, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        "gateway-queues",
		Description: "Check the send queue depth of each active gateway",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Optional: map[string]probe.ArgumentSpec{
				"gateways": {
					Type:        "string",
					Description: "Comma-separated gateway ids (default: active_gateways from the config)",
				},
				"warning": {
					Type:        "number",
					Description: "Warn when a gateway queues more messages",
					Default:     float64(DefaultWarning),
				},
				"critical": {
					Type:        "number",
					Description: "Critical when a gateway queues more messages",
					Default:     float64(DefaultCritical),
				},
			},
		},
	}
}

// Run executes the probe with the given arguments.
func Run(ctx context.Context, src Source, gatewayIDs []int, warning, critical int64) *probe.Result {
	if len(gatewayIDs) == 0 {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: "no gateways configured",
		}
	}

	ids := slices.Clone(gatewayIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	counts, err := src.QueueCounts(ctx, ids)
	if err != nil {
		return probe.Unknownf(err, "failed to read gateway queues")
	}

	policy := threshold.Policy{Warning: float64(warning), Critical: float64(critical), Direction: threshold.HigherIsWorse}
	status := probe.StatusOK
	var parts, perf []string
	var total int64

	for _, id := range ids {
		n := counts[id]
		total += n
		v := threshold.Evaluate(threshold.Measurement{Label: "gw_" + strconv.Itoa(id), Value: float64(n)}, policy)
		status = probe.Worst(status, v.Status)
		parts = append(parts, fmt.Sprintf("%d=%d", id, n))
		perf = append(perf, v.PerfData)
	}

	return &probe.Result{
		Status:   status,
		Message:  fmt.Sprintf("queued messages per gateway: %s", strings.Join(parts, "  ")),
		PerfData: perf,
		Data: map[string]any{
			"gateways": ids,
			"total":    total,
		},
	}
}
