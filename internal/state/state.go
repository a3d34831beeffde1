// Package state persists the last known active flag of each gateway between
// runs of the availability probe.
//
// The file holds one "name=active" or "name=inactive" line per gateway.
package state

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	active   = "active"
	inactive = "inactive"
)

// Store is a flat gateway name to active flag mapping backed by a text file.
type Store struct {
	path   string
	states map[string]bool
}

// Load reads the store at path. A missing file is an empty store; lines that
// are not name=value pairs are skipped.
func Load(path string) (*Store, error) {
	s := &Store{path: path, states: make(map[string]bool)}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || name == "" {
			continue
		}
		s.states[name] = value == active
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return s, nil
}

// Previous returns the recorded flag for name and whether one was recorded.
func (s *Store) Previous(name string) (isActive, known bool) {
	isActive, known = s.states[name]
	return
}

// Set records the flag for name. Call Save to persist it.
func (s *Store) Set(name string, isActive bool) {
	s.states[name] = isActive
}

// Save rewrites the file atomically.
func (s *Store) Save() error {
	names := make([]string, 0, len(s.states))
	for name := range s.states {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		value := inactive
		if s.states[name] {
			value = active
		}
		fmt.Fprintf(&sb, "%s=%s\n", name, value)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".gateway_status-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
