package subsonic

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// ScrobbleService reports playback to the server.
type ScrobbleService struct {
	client *Client
}

// NowPlaying marks id as currently playing.
//
// This should be called when a track starts playing. It does not count
// as a play and does not affect play counts.
func (s *ScrobbleService) NowPlaying(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set("id", id)
	params.Set("submission", "false")
	return s.client.call(ctx, "scrobble", params, nil)
}

// Submit registers a play of id that started at playedAt. The server
// increments the play count and forwards the play to any external
// scrobbling services the user configured.
//
// A zero playedAt uses the client clock.
func (s *ScrobbleService) Submit(ctx context.Context, id string, playedAt time.Time) error {
	if playedAt.IsZero() {
		playedAt = s.client.now()
	}
	params := url.Values{}
	params.Set("id", id)
	params.Set("submission", "true")
	params.Set("time", strconv.FormatInt(playedAt.UnixMilli(), 10))
	return s.client.call(ctx, "scrobble", params, nil)
}
