package mail

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStatePath is used when MAIL_STATE_PATH is not set.
const DefaultStatePath = "data/mail-state.json"

// State remembers which messages have been handled so re-running the batch
// over an overlapping window does not answer a worry twice.
type State struct {
	LastRunAt time.Time            `json:"last_run_at"`
	Processed map[string]time.Time `json:"processed"`
	Errors    []string             `json:"errors,omitempty"`

	path string // not serialized
}

const maxStateErrors = 50

// LoadState loads the state from path, or starts an empty one.
func LoadState(path string) (*State, error) {
	p := expandHome(path)
	if p == "" {
		p = DefaultStatePath
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Processed: map[string]time.Time{}, path: p}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Processed == nil {
		s.Processed = map[string]time.Time{}
	}
	s.path = p
	return &s, nil
}

// Save writes the state through a temporary file so a crash never leaves a
// truncated state behind.
func (s *State) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *State) IsProcessed(key string) bool {
	_, ok := s.Processed[key]
	return ok
}

func (s *State) MarkProcessed(key string, at time.Time) {
	s.Processed[key] = at.UTC()
}

// AddError records a processing error, keeping only the most recent ones.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
	if len(s.Errors) > maxStateErrors {
		s.Errors = s.Errors[len(s.Errors)-maxStateErrors:]
	}
}

// Prune forgets messages handled before cutoff. They are outside every
// future search window anyway.
func (s *State) Prune(cutoff time.Time) int {
	n := 0
	for key, at := range s.Processed {
		if at.Before(cutoff) {
			delete(s.Processed, key)
			n++
		}
	}
	return n
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
