// Package sendqueue provides the probe checking the server-wide send queue
// reported by the Diafaan status document.
package sendqueue

import (
	"context"
	"fmt"

	"github.com/t-voip/gwcheck/internal/diafaan"
	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/threshold"
)

// Name is the probe subcommand name.
const Name = "send-queue"

// Defaults
const (
	DefaultWarning  = 1000
	DefaultCritical = 5000
)

// Fetcher retrieves the status document.
type Fetcher interface {
	Fetch(ctx context.Context) (*diafaan.Status, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        "send-queue",
		Description: "Check the number of messages waiting in the Diafaan send queue",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Optional: map[string]probe.ArgumentSpec{
				"warning": {
					Type:        "number",
					Description: "Warn above this many queued messages",
					Default:     float64(DefaultWarning),
				},
				"critical": {
					Type:        "number",
					Description: "Critical above this many queued messages",
					Default:     float64(DefaultCritical),
				},
			},
		},
	}
}

// Run executes the probe with the given arguments.
func Run(ctx context.Context, f Fetcher, warning, critical int64) *probe.Result {
	status, err := f.Fetch(ctx)
	if err != nil {
		return probe.Unknownf(err, "failed to fetch status document")
	}
	queued, err := status.SendQueue()
	if err != nil {
		return probe.Unknown(err)
	}

	v := threshold.Evaluate(
		threshold.Measurement{Label: "messages_in_send_queue", Value: float64(queued)},
		threshold.Policy{Warning: float64(warning), Critical: float64(critical), Direction: threshold.HigherIsWorse},
	)

	return &probe.Result{
		Status:   v.Status,
		Message:  fmt.Sprintf("%d messages in send queue", queued),
		PerfData: []string{v.PerfData},
		Data:     map[string]any{"queued": queued},
	}
}
