// Package probes provides the built-in probe registry.
package probes

import (
	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/probes/gatewayerrors"
	"github.com/t-voip/gwcheck/internal/probes/gatewayqueues"
	"github.com/t-voip/gwcheck/internal/probes/gatewaystatus"
	"github.com/t-voip/gwcheck/internal/probes/latency"
	"github.com/t-voip/gwcheck/internal/probes/priorityqueue"
	"github.com/t-voip/gwcheck/internal/probes/sendqueue"
	"github.com/t-voip/gwcheck/internal/probes/tps"
)

// GetAllDescriptions returns descriptions of all built-in probes.
func GetAllDescriptions() []probe.Description {
	return []probe.Description{
		tps.GetDescription(),
		gatewayerrors.GetDescription(),
		priorityqueue.GetDescription(),
		gatewayqueues.GetDescription(),
		sendqueue.GetDescription(),
		latency.GetDescription(),
		gatewaystatus.GetDescription(),
	}
}
