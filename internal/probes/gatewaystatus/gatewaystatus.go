// Package gatewaystatus provides the gateway availability probe. It compares
// the active flag published by Diafaan with the one seen on the previous run
// and notifies operators when a gateway goes down or comes back.
package gatewaystatus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/t-voip/gwcheck/internal/diafaan"
	"github.com/t-voip/gwcheck/internal/notify"
	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/threshold"
)

// Name is the probe subcommand name.
const Name = "gateway-status"

var policy = threshold.Policy{Warning: 1, Critical: 0, Direction: threshold.LowerIsWorse}

// Fetcher retrieves the status document.
type Fetcher interface {
	Fetch(ctx context.Context) (*diafaan.Status, error)
}

// StateStore remembers the active flag of each gateway between runs.
type StateStore interface {
	Previous(name string) (isActive, known bool)
	Set(name string, isActive bool)
	Save() error
}

// Notifier delivers transition messages.
type Notifier interface {
	Notify(ctx context.Context, msg *notify.Message) error
}

// Deps are the collaborators of a run. State, Notifier and Events may be nil.
type Deps struct {
	Fetcher  Fetcher
	State    StateStore
	Notifier Notifier
	Events   *slog.Logger
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        "gateway-status",
		Description: "Check that a Diafaan gateway is active and notify on changes",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Required: map[string]probe.ArgumentSpec{
				"gateway": {
					Type:        "string",
					Description: "Gateway name as shown in the status document",
				},
			},
		},
	}
}

// Run executes the probe for one gateway.
func Run(ctx context.Context, deps Deps, gateway string) *probe.Result {
	if gateway == "" {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: "gateway argument is required",
		}
	}

	events := deps.Events
	if events == nil {
		events = slog.New(slog.DiscardHandler)
	}

	status, err := deps.Fetcher.Fetch(ctx)
	if err != nil {
		events.Error("status document unavailable", "gateway", gateway, "error", err)
		return probe.Unknownf(err, "failed to fetch status document")
	}
	gw, err := status.Gateway(gateway)
	if err != nil {
		events.Error("gateway missing from status document", "gateway", gateway, "error", err)
		return probe.Unknown(err)
	}

	isActive := gw.IsActive()
	trackTransition(ctx, deps.State, deps.Notifier, events, gw, isActive)

	value := 0.0
	message := fmt.Sprintf("gateway %s is inactive", gateway)
	if isActive {
		value = 1
		message = fmt.Sprintf("gateway %s is active", gateway)
	} else if gw.Status != "" {
		message += fmt.Sprintf(" (%s)", gw.Status)
	}

	v := threshold.Evaluate(threshold.Measurement{Label: "gateway_status", Value: value}, policy)

	return &probe.Result{
		Status:   v.Status,
		Message:  message,
		PerfData: []string{v.PerfData},
		Data: map[string]any{
			"gateway": gateway,
			"active":  isActive,
		},
	}
}

// trackTransition compares against the stored flag, persists the new flag
// and then reports a change. Failures are logged only.
func trackTransition(ctx context.Context, store StateStore, notifier Notifier, events *slog.Logger, gw *diafaan.Gateway, isActive bool) {
	if store == nil {
		return
	}

	wasActive, known := store.Previous(gw.Name)
	if !known {
		wasActive = true
	}
	changed := wasActive != isActive

	if changed || !known {
		store.Set(gw.Name, isActive)
		if err := store.Save(); err != nil {
			slog.Warn("failed to save gateway state", "gateway", gw.Name, "error", err)
			events.Error("gateway state not saved", "gateway", gw.Name, "error", err)
		}
	}
	if !changed {
		return
	}

	events.Info("gateway state changed",
		"gateway", gw.Name,
		"was_active", wasActive,
		"is_active", isActive,
		"status", gw.Status,
	)
	if notifier == nil {
		return
	}
	msg := notify.FormatGatewayChange(&notify.GatewayChange{
		Gateway:    gw.Name,
		WasActive:  wasActive,
		IsActive:   isActive,
		StatusText: gw.Status,
		Sent:       gw.Statistics.SentMessages,
		Failed:     gw.Statistics.FailedMessages,
		Received:   gw.Statistics.ReceivedMessages,
	})
	if err := notifier.Notify(ctx, msg); err != nil {
		events.Error("gateway change notification failed", "gateway", gw.Name, "error", err)
	}
}
