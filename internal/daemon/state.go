package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jfmyers9/naviscribe/internal/player"
	"github.com/jfmyers9/naviscribe/internal/scrobbler"
)

// defaultPersistInterval bounds how often position-only updates hit disk.
const defaultPersistInterval = 15 * time.Second

// Status is what the daemon last saw from the player and the coordinator.
type Status struct {
	Track     *player.Track     `json:"track,omitempty"`
	Session   scrobbler.Session `json:"session"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// State manages the daemon's status with thread-safe access and persistence
type State struct {
	mu       sync.RWMutex
	current  Status
	filePath string // Path to state file for persistence

	persistInterval time.Duration
	lastPersist     time.Time
	dirty           bool
}

// NewState creates a new State instance.
// If filePath is provided, attempts to restore state from disk
func NewState(filePath string) (*State, error) {
	s := &State{
		filePath:        filePath,
		persistInterval: defaultPersistInterval,
	}

	if filePath != "" {
		if err := s.restore(); err != nil && !os.IsNotExist(err) {
			// Not fatal: the daemon can start fresh
			return s, err
		}
	}

	return s, nil
}

// Update records the latest track and session. Changes of track or
// session state are written at once, position updates are throttled.
func (s *State) Update(track *player.Track, session scrobbler.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	significant := s.current.Session.ID != session.ID ||
		s.current.Session.State != session.State ||
		!sameTrack(s.current.Track, track)

	s.current = Status{
		Track:     track,
		Session:   session,
		UpdatedAt: time.Now(),
	}

	if significant {
		return s.persist()
	}
	s.dirty = true
	return s.throttledPersist()
}

// Get returns a copy of the current status
func (s *State) Get() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.current
	if status.Track != nil {
		track := *status.Track
		status.Track = &track
	}
	return status
}

// Reset clears the current status
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Status{}
	return s.persist()
}

// Flush writes pending changes skipped by throttling.
func (s *State) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.persist()
}

// throttledPersist persists only if persistInterval has passed since
// the last write. Must be called with lock held
func (s *State) throttledPersist() error {
	if time.Since(s.lastPersist) < s.persistInterval {
		s.dirty = true
		return nil
	}
	return s.persist()
}

// persist saves the current status to disk.
// Must be called with lock held
func (s *State) persist() error {
	if s.filePath == "" {
		s.dirty = false
		return nil
	}

	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}

	// Write atomically via temp file + rename
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return err
	}

	s.lastPersist = time.Now()
	s.dirty = false
	return nil
}

// restore loads the status from disk
func (s *State) restore() error {
	status, err := ReadStatus(s.filePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = status
	return nil
}

// ReadStatus loads a status file written by a running daemon.
func ReadStatus(path string) (Status, error) {
	var status Status

	data, err := os.ReadFile(path)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, err
	}
	return status, nil
}

// sameTrack compares two tracks to determine if they're the same item
func sameTrack(t1, t2 *player.Track) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if t1.ItemID != "" || t2.ItemID != "" {
		return t1.ItemID == t2.ItemID
	}
	return t1.URI == t2.URI
}
