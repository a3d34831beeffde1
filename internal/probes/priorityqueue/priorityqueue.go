// Package priorityqueue provides the probe that alerts on any queued message
// of a given priority.
package priorityqueue

import (
	"context"
	"fmt"

	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/threshold"
)

// Name is the probe subcommand name.
const Name = "priority-queue"

// policy turns any queued message into CRITICAL.
var policy = threshold.Policy{Warning: 0, Critical: 0, Direction: threshold.HigherIsWorse}

// Source counts queued messages by priority.
type Source interface {
	PriorityCount(ctx context.Context, priority string) (int64, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        "priority-queue",
		Description: "Alert when messages of a priority are waiting in the send queue",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Required: map[string]probe.ArgumentSpec{
				"priority": {
					Type:        "string",
					Description: "Message priority to look for",
				},
			},
		},
	}
}

// Run executes the probe with the given arguments.
func Run(ctx context.Context, src Source, priority string) *probe.Result {
	if priority == "" {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: "priority argument is required",
		}
	}

	count, err := src.PriorityCount(ctx, priority)
	if err != nil {
		return probe.Unknownf(err, "failed to count messages with priority %s", priority)
	}

	v := threshold.Evaluate(threshold.Measurement{Label: "total_registros", Value: float64(count)}, policy)

	message := fmt.Sprintf("%d messages with priority %s", count, priority)
	if count == 0 {
		message = fmt.Sprintf("no messages with priority %s", priority)
	}

	return &probe.Result{
		Status:   v.Status,
		Message:  message,
		PerfData: []string{v.PerfData},
		Data:     map[string]any{"priority": priority},
	}
}
