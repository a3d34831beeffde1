package tps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/t-voip/gwcheck/internal/probe"
)

type fakeSource struct {
	rate    float64
	err     error
	gateway string
	window  time.Duration
}

func (f *fakeSource) MessageRate(ctx context.Context, gateway string, window time.Duration) (float64, error) {
	f.gateway = gateway
	f.window = window
	return f.rate, f.err
}

func TestRun(t *testing.T) {
	tests := []struct {
		rate     float64
		status   probe.Status
		exitCode int
		line     string
	}{
		{0.5, probe.StatusCritical, 2, "CRITICAL: 0.50 TPS on gateway smpp1 | tps=0.50;4;1;0;"},
		{2.0, probe.StatusWarning, 1, "WARNING: 2.00 TPS on gateway smpp1 | tps=2.00;4;1;0;"},
		{10.0, probe.StatusOK, 0, "OK: 10.00 TPS on gateway smpp1 | tps=10.00;4;1;0;"},
		{4.0, probe.StatusOK, 0, "OK: 4.00 TPS on gateway smpp1 | tps=4.00;4;1;0;"},
		{1.0, probe.StatusWarning, 1, "WARNING: 1.00 TPS on gateway smpp1 | tps=1.00;4;1;0;"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.rate), func(t *testing.T) {
			src := &fakeSource{rate: tt.rate}
			result := Run(context.Background(), src, "smpp1", DefaultWarning, DefaultCritical, DefaultWindow)

			if result.Status != tt.status {
				t.Errorf("expected status %q, got %q", tt.status, result.Status)
			}
			if result.ExitCode() != tt.exitCode {
				t.Errorf("expected exit code %d, got %d", tt.exitCode, result.ExitCode())
			}
			if result.String() != tt.line {
				t.Errorf("unexpected line:\n got: %s\nwant: %s", result.String(), tt.line)
			}
			if src.gateway != "smpp1" || src.window != time.Minute {
				t.Errorf("source called with %q, %s", src.gateway, src.window)
			}
		})
	}
}

func TestRunSourceError(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("%w: login failed", probe.ErrConnection)}
	result := Run(context.Background(), src, "smpp1", DefaultWarning, DefaultCritical, DefaultWindow)

	if result.Status != probe.StatusUnknown {
		t.Errorf("expected status %q, got %q", probe.StatusUnknown, result.Status)
	}
	if !strings.Contains(result.Message, "login failed") {
		t.Errorf("expected source error in message, got: %s", result.Message)
	}
	if len(result.PerfData) != 0 {
		t.Errorf("expected no perf data, got %v", result.PerfData)
	}
}

func TestRunEmptyGateway(t *testing.T) {
	src := &fakeSource{err: errors.New("must not be called")}
	result := Run(context.Background(), src, "", DefaultWarning, DefaultCritical, DefaultWindow)
	if result.Status != probe.StatusUnknown {
		t.Errorf("expected status %q, got %q", probe.StatusUnknown, result.Status)
	}
	if result.Message != "gateway argument is required" {
		t.Errorf("unexpected message: %s", result.Message)
	}
}

func TestGetDescription(t *testing.T) {
	desc := GetDescription()
	if desc.Name != "tps" {
		t.Errorf("expected name 'tps', got %q", desc.Name)
	}
	if _, ok := desc.Arguments.Required["gateway"]; !ok {
		t.Error("expected 'gateway' in required arguments")
	}
	for _, arg := range []string{"warning", "critical", "window"} {
		if _, ok := desc.Arguments.Optional[arg]; !ok {
			t.Errorf("expected %q in optional arguments", arg)
		}
	}
}
