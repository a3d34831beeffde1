package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultNtfyServer is the public ntfy instance.
const DefaultNtfyServer = "https://ntfy.sh"

// NtfyConfig configures an ntfy channel.
type NtfyConfig struct {
	ServerURL string
	Topic     string
	Token     string
}

// NtfyChannel publishes gateway changes to an ntfy topic. The body is the
// plain text message; title, priority and tags travel as headers.
type NtfyChannel struct {
	topicURL string
	token    string
	client   *http.Client
}

// NewNtfyChannel creates an ntfy channel. An empty server means ntfy.sh.
func NewNtfyChannel(cfg NtfyConfig) *NtfyChannel {
	server := strings.TrimSuffix(cfg.ServerURL, "/")
	if server == "" {
		server = DefaultNtfyServer
	}
	return &NtfyChannel{
		topicURL: server + "/" + url.PathEscape(cfg.Topic),
		token:    cfg.Token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Type returns the channel type.
func (n *NtfyChannel) Type() string {
	return "ntfy"
}

// Send publishes msg.
func (n *NtfyChannel) Send(ctx context.Context, msg *Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("create ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.Title)
	req.Header.Set("Priority", strconv.Itoa(ntfyPriority(msg.Priority)))
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish to ntfy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}

// ntfyPriority maps onto ntfy's 1 (min) to 5 (max) scale.
func ntfyPriority(p Priority) int {
	switch p {
	case PriorityLow:
		return 2
	case PriorityHigh:
		return 4
	case PriorityUrgent:
		return 5
	}
	return 3
}
