// Package latency provides the TCP connect-time probe.
package latency

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/docker/go-units"

	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/threshold"
)

// Name is the probe subcommand name.
const Name = "latency"

// Defaults, in milliseconds for the thresholds.
const (
	DefaultWarning  = 1000.0
	DefaultCritical = 5000.0
	DefaultTimeout  = 5 * time.Second
)

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        "latency",
		Description: "Measure the TCP connect time to a host and port",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Required: map[string]probe.ArgumentSpec{
				"ip": {
					Type:        "string",
					Description: "Host name or IP address",
				},
				"port": {
					Type:        "number",
					Description: "TCP port",
				},
			},
			Optional: map[string]probe.ArgumentSpec{
				"warning": {
					Type:        "number",
					Description: "Warn above this connect time in milliseconds",
					Default:     DefaultWarning,
				},
				"critical": {
					Type:        "number",
					Description: "Critical above this connect time in milliseconds",
					Default:     DefaultCritical,
				},
				"timeout": {
					Type:        "duration",
					Description: "Connect timeout",
					Default:     DefaultTimeout.String(),
				},
			},
		},
	}
}

// Run connects once to host:port and reports how long the handshake took.
func Run(ctx context.Context, d Dialer, host string, port int, warning, critical float64, timeout time.Duration) *probe.Result {
	if host == "" || port < 1 || port > 65535 {
		return &probe.Result{
			Status:  probe.StatusUnknown,
			Message: fmt.Sprintf("invalid address %q port %d", host, port),
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			err = fmt.Errorf("%w: no connection within %s", probe.ErrConnection, units.HumanDuration(timeout))
		} else {
			err = fmt.Errorf("%w: %v", probe.ErrConnection, err)
		}
		return probe.Unknownf(err, "connect to %s", addr)
	}
	conn.Close()

	m := threshold.Measurement{
		Label:      "latencia",
		Value:      float64(elapsed.Microseconds()) / 1000,
		Unit:       "ms",
		Fractional: true,
	}
	v := threshold.Evaluate(m, threshold.Policy{
		Warning:   warning,
		Critical:  critical,
		Direction: threshold.HigherIsWorse,
	})

	return &probe.Result{
		Status:   v.Status,
		Message:  fmt.Sprintf("connected to %s in %sms", addr, m.FormatValue()),
		PerfData: []string{v.PerfData},
		Data: map[string]any{
			"address": addr,
		},
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
