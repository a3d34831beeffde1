package gatewaystatus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/t-voip/gwcheck/internal/diafaan"
	"github.com/t-voip/gwcheck/internal/notify"
	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/state"
)

const document = `<Diafaan>
  <Gateway Name="smpp1" Active="1">
    <Status>Connected</Status>
    <Statistics><SentMessages>120</SentMessages><FailedMessages>3</FailedMessages><ReceivedMessages>40</ReceivedMessages></Statistics>
  </Gateway>
  <Gateway Name="smpp2" Active="0">
    <Status>Bind failed</Status>
  </Gateway>
</Diafaan>`

type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*diafaan.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	return diafaan.Parse(strings.NewReader(document))
}

type fakeNotifier struct {
	messages []*notify.Message
	err      error
	onNotify func()
}

func (f *fakeNotifier) Notify(ctx context.Context, msg *notify.Message) error {
	if f.onNotify != nil {
		f.onNotify()
	}
	f.messages = append(f.messages, msg)
	return f.err
}

type memStore struct {
	states  map[string]bool
	saves   int
	saveErr error
}

func (m *memStore) Previous(name string) (bool, bool) {
	v, ok := m.states[name]
	return v, ok
}

func (m *memStore) Set(name string, isActive bool) {
	m.states[name] = isActive
}

func (m *memStore) Save() error {
	m.saves++
	return m.saveErr
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		gateway  string
		previous map[string]bool
		status   probe.Status
		line     string
		notified []string
		saves    int
	}{
		{
			name:     "active, unchanged",
			gateway:  "smpp1",
			previous: map[string]bool{"smpp1": true},
			status:   probe.StatusOK,
			line:     "OK: gateway smpp1 is active | gateway_status=1;1;0;0;",
		},
		{
			name:     "active, first run",
			gateway:  "smpp1",
			previous: map[string]bool{},
			status:   probe.StatusOK,
			line:     "OK: gateway smpp1 is active | gateway_status=1;1;0;0;",
			saves:    1,
		},
		{
			name:     "recovered",
			gateway:  "smpp1",
			previous: map[string]bool{"smpp1": false},
			status:   probe.StatusOK,
			line:     "OK: gateway smpp1 is active | gateway_status=1;1;0;0;",
			notified: []string{"[UP] Gateway smpp1"},
			saves:    1,
		},
		{
			name:     "went down",
			gateway:  "smpp2",
			previous: map[string]bool{"smpp2": true},
			status:   probe.StatusWarning,
			line:     "WARNING: gateway smpp2 is inactive (Bind failed) | gateway_status=0;1;0;0;",
			notified: []string{"[DOWN] Gateway smpp2"},
			saves:    1,
		},
		{
			name:     "down, first run",
			gateway:  "smpp2",
			previous: map[string]bool{},
			status:   probe.StatusWarning,
			line:     "WARNING: gateway smpp2 is inactive (Bind failed) | gateway_status=0;1;0;0;",
			notified: []string{"[DOWN] Gateway smpp2"},
			saves:    1,
		},
		{
			name:     "still down",
			gateway:  "smpp2",
			previous: map[string]bool{"smpp2": false},
			status:   probe.StatusWarning,
			line:     "WARNING: gateway smpp2 is inactive (Bind failed) | gateway_status=0;1;0;0;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{states: tt.previous}
			notifier := &fakeNotifier{}
			result := Run(context.Background(), Deps{
				Fetcher:  &fakeFetcher{},
				State:    store,
				Notifier: notifier,
			}, tt.gateway)

			if result.Status != tt.status {
				t.Errorf("expected status %q, got %q", tt.status, result.Status)
			}
			if result.String() != tt.line {
				t.Errorf("unexpected line:\n got: %s\nwant: %s", result.String(), tt.line)
			}
			if len(notifier.messages) != len(tt.notified) {
				t.Fatalf("expected %d notifications, got %d", len(tt.notified), len(notifier.messages))
			}
			for i, title := range tt.notified {
				if notifier.messages[i].Title != title {
					t.Errorf("expected title %q, got %q", title, notifier.messages[i].Title)
				}
			}
			if store.saves != tt.saves {
				t.Errorf("expected %d saves, got %d", tt.saves, store.saves)
			}
		})
	}
}

func TestRunNotificationCarriesStatistics(t *testing.T) {
	notifier := &fakeNotifier{}
	Run(context.Background(), Deps{
		Fetcher:  &fakeFetcher{},
		State:    &memStore{states: map[string]bool{"smpp1": false}},
		Notifier: notifier,
	}, "smpp1")

	if len(notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.messages))
	}
	body := notifier.messages[0].Body
	for _, want := range []string{"Status: Connected", "Sent messages: 120", "Failed messages: 3", "Received messages: 40"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRunSideEffectFailuresKeepStatus(t *testing.T) {
	store := &memStore{states: map[string]bool{"smpp2": true}, saveErr: errors.New("read-only file system")}
	notifier := &fakeNotifier{err: errors.New("smtp: connection refused")}

	result := Run(context.Background(), Deps{Fetcher: &fakeFetcher{}, State: store, Notifier: notifier}, "smpp2")
	if result.Status != probe.StatusWarning {
		t.Errorf("expected WARNING, got %s", result)
	}
	if store.states["smpp2"] {
		t.Error("expected the new state to be recorded before saving")
	}
}

func TestRunUnknown(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		gateway string
	}{
		{"fetch error", &fakeFetcher{err: fmt.Errorf("%w: timeout", probe.ErrConnection)}, "smpp1"},
		{"gateway missing", &fakeFetcher{}, "smpp9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			store := &memStore{states: map[string]bool{}}
			result := Run(context.Background(), Deps{Fetcher: tt.fetcher, State: store, Notifier: notifier}, tt.gateway)
			if result.Status != probe.StatusUnknown {
				t.Errorf("expected UNKNOWN, got %s", result)
			}
			if len(notifier.messages) != 0 || store.saves != 0 {
				t.Error("no side effects expected when the gateway cannot be read")
			}
		})
	}
}

func TestRunWithoutCollaborators(t *testing.T) {
	result := Run(context.Background(), Deps{Fetcher: &fakeFetcher{}}, "smpp2")
	if result.Status != probe.StatusWarning {
		t.Errorf("expected WARNING, got %s", result)
	}
}

func TestRunEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, document)
	}))
	defer srv.Close()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "gateway_status.txt")
	if err := os.WriteFile(statePath, []byte("smpp2=active\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := state.Load(statePath)
	if err != nil {
		t.Fatal(err)
	}

	var events bytes.Buffer
	notifier := &fakeNotifier{}
	result := Run(context.Background(), Deps{
		Fetcher:  diafaan.NewClient(srv.URL),
		State:    store,
		Notifier: notifier,
		Events:   slog.New(slog.NewTextHandler(&events, nil)),
	}, "smpp2")

	if result.Status != probe.StatusWarning {
		t.Fatalf("expected WARNING, got %s", result)
	}
	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "smpp2=inactive\n" {
		t.Errorf("unexpected state file: %q", data)
	}
	if !strings.Contains(events.String(), "gateway=smpp2") {
		t.Errorf("expected transition event, got %q", events.String())
	}
	if len(notifier.messages) != 1 {
		t.Errorf("expected one notification, got %d", len(notifier.messages))
	}
}

func TestRunSavesStateBeforeNotifying(t *testing.T) {
	store := &memStore{states: map[string]bool{"smpp2": true}}
	savesAtNotify := -1
	notifier := &fakeNotifier{onNotify: func() { savesAtNotify = store.saves }}

	Run(context.Background(), Deps{Fetcher: &fakeFetcher{}, State: store, Notifier: notifier}, "smpp2")
	if savesAtNotify != 1 {
		t.Errorf("expected the state to be saved before notifying, saves at notify: %d", savesAtNotify)
	}
}

func TestRunRecordsFailuresInEventLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable := srv.URL
	srv.Close()

	tests := []struct {
		name    string
		deps    func(events *slog.Logger) Deps
		gateway string
		want    []string
	}{
		{
			name: "unreachable document",
			deps: func(events *slog.Logger) Deps {
				return Deps{Fetcher: diafaan.NewClient(unreachable), Events: events}
			},
			gateway: "smpp1",
			want:    []string{"level=ERROR", `msg="status document unavailable"`, "gateway=smpp1"},
		},
		{
			name: "gateway missing",
			deps: func(events *slog.Logger) Deps {
				return Deps{Fetcher: &fakeFetcher{}, Events: events}
			},
			gateway: "smpp9",
			want:    []string{"level=ERROR", `msg="gateway missing from status document"`, "gateway=smpp9"},
		},
		{
			name: "failing notifier",
			deps: func(events *slog.Logger) Deps {
				return Deps{
					Fetcher:  &fakeFetcher{},
					State:    &memStore{states: map[string]bool{"smpp2": true}},
					Notifier: &fakeNotifier{err: errors.New("smtp: connection refused")},
					Events:   events,
				}
			},
			gateway: "smpp2",
			want:    []string{`msg="gateway state changed"`, `msg="gateway change notification failed"`, "smtp: connection refused"},
		},
		{
			name: "failing state store",
			deps: func(events *slog.Logger) Deps {
				return Deps{
					Fetcher: &fakeFetcher{},
					State:   &memStore{states: map[string]bool{}, saveErr: errors.New("read-only file system")},
					Events:  events,
				}
			},
			gateway: "smpp1",
			want:    []string{`msg="gateway state not saved"`, "read-only file system"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Run(context.Background(), tt.deps(slog.New(slog.NewTextHandler(&buf, nil))), tt.gateway)

			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("event log missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}
