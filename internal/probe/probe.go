package probe

import (
	"fmt"
	"strings"
)

// Status represents the outcome of a probe execution.
type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusUnknown  Status = "UNKNOWN"
)

// ExitCode returns the Nagios plugin exit code for the status.
func (s Status) ExitCode() int {
	switch s {
	case StatusOK:
		return 0
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	default:
		return 3
	}
}

// Severity orders statuses so the worst of several verdicts can be picked.
// UNKNOWN ranks between WARNING and CRITICAL, as Nagios does.
func (s Status) Severity() int {
	switch s {
	case StatusOK:
		return 0
	case StatusWarning:
		return 1
	case StatusUnknown:
		return 2
	default:
		return 3
	}
}

// Worst returns the more severe of two statuses.
func Worst(a, b Status) Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// Result is the standard output of a probe.
type Result struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message"`
	PerfData []string       `json:"perf_data,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// ExitCode returns the process exit code for the result.
func (r *Result) ExitCode() int {
	return r.Status.ExitCode()
}

// String renders the single status line read by the monitoring system.
func (r *Result) String() string {
	line := fmt.Sprintf("%s: %s", r.Status, r.Message)
	if len(r.PerfData) > 0 {
		line += " | " + strings.Join(r.PerfData, " ")
	}
	return line
}

// Description is the self-description format for probes.
type Description struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Subcommand  string    `json:"subcommand,omitempty"`
	Arguments   Arguments `json:"arguments"`
}

// Arguments describes required and optional probe arguments.
type Arguments struct {
	Required map[string]ArgumentSpec `json:"required,omitempty"`
	Optional map[string]ArgumentSpec `json:"optional,omitempty"`
}

// ArgumentSpec describes a single argument.
type ArgumentSpec struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}
