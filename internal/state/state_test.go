package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissing(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "gateway_status.txt"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, known := s.Previous("smpp1"); known {
		t.Error("expected no state for an empty store")
	}
}

func TestLoadExistingFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway_status.txt")
	content := "smpp1=active\nsmpp2=inactive\n\ngarbage line\n=active\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name   string
		active bool
		known  bool
	}{
		{"smpp1", true, true},
		{"smpp2", false, true},
		{"garbage line", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		isActive, known := s.Previous(tt.name)
		if isActive != tt.active || known != tt.known {
			t.Errorf("Previous(%q) = %v, %v; want %v, %v", tt.name, isActive, known, tt.active, tt.known)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway_status.txt")

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Set("smpp2", false)
	s.Set("smpp1", true)
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "smpp1=active\nsmpp2=inactive\n" {
		t.Errorf("unexpected file content: %q", data)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if isActive, known := reloaded.Previous("smpp2"); isActive || !known {
		t.Errorf("expected smpp2 inactive after reload, got %v, %v", isActive, known)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}
