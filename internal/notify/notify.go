package notify

import (
	"context"
	"fmt"
	"strings"
)

// Channel is a notification channel.
type Channel interface {
	Send(ctx context.Context, msg *Message) error
	Type() string
}

// Message contains notification details.
type Message struct {
	Title    string
	Body     string
	Priority Priority
	Tags     []string
}

// Priority levels for notifications.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// GatewayChange represents a gateway going up or down between two runs.
type GatewayChange struct {
	Gateway    string
	WasActive  bool
	IsActive   bool
	StatusText string
	Sent       string
	Failed     string
	Received   string
}

// FormatGatewayChange creates a notification message for a gateway transition.
func FormatGatewayChange(change *GatewayChange) *Message {
	priority := PriorityUrgent
	state := "DOWN"
	tags := []string{"down"}
	if change.IsActive {
		priority = PriorityNormal
		state = "UP"
		tags = []string{"up", "recovery"}
	}

	var sb strings.Builder
	if change.IsActive {
		fmt.Fprintf(&sb, "Gateway %q is active again.\n\n", change.Gateway)
	} else {
		fmt.Fprintf(&sb, "Gateway %q is no longer active.\n\n", change.Gateway)
	}
	fmt.Fprintf(&sb, "Status: %s\n", orNA(change.StatusText))
	fmt.Fprintf(&sb, "Sent messages: %s\n", orZero(change.Sent))
	fmt.Fprintf(&sb, "Failed messages: %s\n", orZero(change.Failed))
	fmt.Fprintf(&sb, "Received messages: %s\n", orZero(change.Received))

	return &Message{
		Title:    fmt.Sprintf("[%s] Gateway %s", state, change.Gateway),
		Body:     sb.String(),
		Priority: priority,
		Tags:     tags,
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return strings.TrimSpace(s)
}

func orZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return "0"
	}
	return strings.TrimSpace(s)
}
