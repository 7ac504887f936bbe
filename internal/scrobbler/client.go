package scrobbler

import (
	"context"
	"fmt"
	"time"

	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// Client submits reports through the Subsonic scrobble endpoint.
type Client struct {
	api *subsonic.Client
}

// New creates a Submitter backed by api.
func New(api *subsonic.Client) *Client {
	return &Client{api: api}
}

// NowPlaying marks itemID as currently playing.
func (c *Client) NowPlaying(ctx context.Context, itemID string) error {
	if err := c.api.Scrobble().NowPlaying(ctx, itemID); err != nil {
		return fmt.Errorf("failed to update now playing: %w", err)
	}
	return nil
}

// Scrobble records a play of itemID that started at playedAt.
func (c *Client) Scrobble(ctx context.Context, itemID string, playedAt time.Time) error {
	if err := c.api.Scrobble().Submit(ctx, itemID, playedAt); err != nil {
		return fmt.Errorf("failed to scrobble %s: %w", itemID, err)
	}
	return nil
}
