package player

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"
)

// MPDClient implements Player on top of an MPD server. The connection is
// opened lazily and re-established when a ping fails.
type MPDClient struct {
	mu       sync.Mutex
	client   *mpd.Client
	address  string
	password string
	logger   zerolog.Logger
}

// NewMPDClient creates a client for the MPD server at address (host:port,
// or a socket path starting with "/").
func NewMPDClient(address, password string, logger zerolog.Logger) *MPDClient {
	return &MPDClient{
		address:  address,
		password: password,
		logger:   logger.With().Str("component", "mpd").Logger(),
	}
}

func (c *MPDClient) network() string {
	if strings.HasPrefix(c.address, "/") {
		return "unix"
	}
	return "tcp"
}

// connectLocked establishes the connection (must hold lock).
func (c *MPDClient) connectLocked() error {
	c.logger.Debug().Str("addr", c.address).Msg("Connecting to MPD")

	client, err := mpd.DialAuthenticated(c.network(), c.address, c.password)
	if err != nil {
		return fmt.Errorf("failed to connect to MPD at %s: %w", c.address, err)
	}
	c.client = client
	return nil
}

// withClient runs fn with a live connection, reconnecting once if the
// current one has gone away.
func (c *MPDClient) withClient(ctx context.Context, fn func(*mpd.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		if err := c.client.Ping(); err != nil {
			c.logger.Warn().Err(err).Msg("MPD connection lost, reconnecting")
			_ = c.client.Close()
			c.client = nil
		}
	}
	if c.client == nil {
		if err := c.connectLocked(); err != nil {
			return err
		}
	}
	return fn(c.client)
}

// CurrentTrack returns the loaded track or nil when MPD is stopped.
func (c *MPDClient) CurrentTrack(ctx context.Context) (*Track, error) {
	var status, song mpd.Attrs
	err := c.withClient(ctx, func(client *mpd.Client) error {
		var err error
		if status, err = client.Status(); err != nil {
			return fmt.Errorf("failed to get MPD status: %w", err)
		}
		if status["state"] == "stop" || status["state"] == "" {
			return nil
		}
		if song, err = client.CurrentSong(); err != nil {
			return fmt.Errorf("failed to get current song: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trackFromAttrs(status, song), nil
}

// trackFromAttrs builds a Track from MPD status and currentsong replies.
func trackFromAttrs(status, song mpd.Attrs) *Track {
	var state PlayState
	switch status["state"] {
	case "play":
		state = StatePlaying
	case "pause":
		state = StatePaused
	default:
		return nil
	}
	if song["file"] == "" {
		return nil
	}

	track := &Track{
		URI:      song["file"],
		ItemID:   ItemIDFromStreamURL(song["file"]),
		Title:    song["Title"],
		Artist:   song["Artist"],
		Album:    song["Album"],
		State:    state,
		Position: parseSeconds(status["elapsed"]),
		Duration: parseSeconds(status["duration"]),
	}
	if track.Duration == 0 {
		track.Duration = parseSeconds(song["duration"])
	}
	if track.Duration == 0 {
		// Older servers only report "time: elapsed:total".
		if _, total, ok := strings.Cut(status["time"], ":"); ok {
			track.Duration = parseSeconds(total)
		}
	}
	if track.Title == "" {
		track.Title = song["Name"]
	}
	return track
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// PlayURL clears the queue, adds streamURL and starts playing it.
func (c *MPDClient) PlayURL(ctx context.Context, streamURL string) error {
	return c.withClient(ctx, func(client *mpd.Client) error {
		if err := client.Clear(); err != nil {
			return fmt.Errorf("failed to clear queue: %w", err)
		}
		if err := client.Add(streamURL); err != nil {
			return fmt.Errorf("failed to add stream: %w", err)
		}
		if err := client.Play(0); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
		return nil
	})
}

// Enqueue appends streamURL to the queue.
func (c *MPDClient) Enqueue(ctx context.Context, streamURL string) error {
	return c.withClient(ctx, func(client *mpd.Client) error {
		if err := client.Add(streamURL); err != nil {
			return fmt.Errorf("failed to add stream: %w", err)
		}
		return nil
	})
}

// Resume continues playback.
func (c *MPDClient) Resume(ctx context.Context) error {
	return c.withClient(ctx, func(client *mpd.Client) error {
		return client.Pause(false)
	})
}

// Pause pauses playback.
func (c *MPDClient) Pause(ctx context.Context) error {
	return c.withClient(ctx, func(client *mpd.Client) error {
		return client.Pause(true)
	})
}

// Stop stops playback.
func (c *MPDClient) Stop(ctx context.Context) error {
	return c.withClient(ctx, func(client *mpd.Client) error {
		return client.Stop()
	})
}

// Next plays the next song.
func (c *MPDClient) Next(ctx context.Context) error {
	return c.withClient(ctx, func(client *mpd.Client) error {
		return client.Next()
	})
}

// Previous plays the previous song.
func (c *MPDClient) Previous(ctx context.Context) error {
	return c.withClient(ctx, func(client *mpd.Client) error {
		return client.Previous()
	})
}

// Close closes the MPD connection.
func (c *MPDClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}
