// Package player talks to the local audio player that actually renders
// the streams. The daemon polls it for the status tick that drives the
// scrobble coordinator.
package player

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Track is the item loaded in the player and its playback state.
type Track struct {
	ItemID   string        // Server item id, empty when the file is not a server stream
	URI      string        // Location the player is reading from
	Title    string        // Track title
	Artist   string        // Artist name
	Album    string        // Album name
	Duration time.Duration // Total track duration, zero if unknown
	Position time.Duration // Current playback position
	State    PlayState     // Current playback state
}

// PlayState represents the current playback state of the player
type PlayState int

const (
	StateStopped PlayState = iota // Nothing playing
	StatePlaying                  // Track is currently playing
	StatePaused                   // Track is paused
)

// String returns a human-readable representation of the PlayState
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Player is the host player the CLI and daemon control.
type Player interface {
	// CurrentTrack returns the loaded track, or nil if stopped
	CurrentTrack(ctx context.Context) (*Track, error)

	// PlayURL replaces the queue with streamURL and starts playback
	PlayURL(ctx context.Context, streamURL string) error

	// Enqueue appends streamURL to the queue
	Enqueue(ctx context.Context, streamURL string) error

	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error

	Close() error
}

// ItemIDFromStreamURL extracts the item id from a Subsonic stream URL,
// returning "" for anything else such as local files.
func ItemIDFromStreamURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	path := strings.TrimSuffix(u.Path, ".view")
	if !strings.HasSuffix(path, "/rest/stream") {
		return ""
	}
	return u.Query().Get("id")
}
