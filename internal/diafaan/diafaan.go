// Package diafaan reads the XML status document published by Diafaan Message Server.
package diafaan

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/t-voip/gwcheck/internal/probe"
)

// DefaultTimeout bounds a single document fetch.
const DefaultTimeout = 10 * time.Second

// Gateway is one <Gateway> element.
type Gateway struct {
	Name       string     `xml:"Name,attr"`
	Active     string     `xml:"Active,attr"`
	Status     string     `xml:"Status"`
	Statistics Statistics `xml:"Statistics"`
}

// IsActive reports whether Diafaan flags the gateway as active.
func (g *Gateway) IsActive() bool {
	return strings.TrimSpace(g.Active) == "1"
}

// Statistics holds the counters of a <Statistics> element. Values are kept as
// text; not every document carries every counter.
type Statistics struct {
	SentMessages        string `xml:"SentMessages"`
	FailedMessages      string `xml:"FailedMessages"`
	ReceivedMessages    string `xml:"ReceivedMessages"`
	MessagesInSendQueue string `xml:"MessagesInSendQueue"`
}

// Status is the parsed status document.
type Status struct {
	Gateways []Gateway

	// Server-level statistics, from the first <Statistics> element outside any gateway.
	Statistics    Statistics
	hasStatistics bool
}

// Gateway looks up a gateway by name.
func (s *Status) Gateway(name string) (*Gateway, error) {
	for i := range s.Gateways {
		if s.Gateways[i].Name == name {
			return &s.Gateways[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no gateway named %q in status document", probe.ErrNotFound, name)
}

// SendQueue returns the number of messages waiting in the server's send queue.
func (s *Status) SendQueue() (int64, error) {
	if !s.hasStatistics {
		return 0, fmt.Errorf("%w: no Statistics element in status document", probe.ErrParse)
	}
	raw := strings.TrimSpace(s.Statistics.MessagesInSendQueue)
	if raw == "" {
		return 0, fmt.Errorf("%w: MessagesInSendQueue missing from Statistics", probe.ErrParse)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: MessagesInSendQueue %q is not a number", probe.ErrParse, raw)
	}
	return n, nil
}

// Parse decodes a status document. Gateway and Statistics elements are found
// at any depth.
func Parse(r io.Reader) (*Status, error) {
	dec := xml.NewDecoder(r)
	status := &Status{}
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", probe.ErrParse, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		switch start.Name.Local {
		case "Gateway":
			var gw Gateway
			if err := dec.DecodeElement(&gw, &start); err != nil {
				return nil, fmt.Errorf("%w: gateway element: %v", probe.ErrParse, err)
			}
			status.Gateways = append(status.Gateways, gw)
		case "Statistics":
			var stats Statistics
			if err := dec.DecodeElement(&stats, &start); err != nil {
				return nil, fmt.Errorf("%w: statistics element: %v", probe.ErrParse, err)
			}
			if !status.hasStatistics {
				status.Statistics = stats
				status.hasStatistics = true
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: empty status document", probe.ErrParse)
	}
	return status, nil
}

// Client fetches status documents over HTTP.
type Client struct {
	URL    string
	client *http.Client
}

// NewClient creates a client for the document at url.
func NewClient(url string) *Client {
	return &Client{
		URL:    url,
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// Fetch downloads and parses the status document.
func (c *Client) Fetch(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", probe.ErrConnection, err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	req.Header.Set("User-Agent", "gwcheck")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch status document: %v", probe.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status document request failed: %s", probe.ErrConnection, resp.Status)
	}

	return Parse(resp.Body)
}
