package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/naviscribe/internal/player"
)

// TrackUpdate represents an update from the player
type TrackUpdate struct {
	Track *player.Track // Current track (nil if stopped/no track)
	Err   error         // Error from the player
}

// maxBackoffFactor caps the poll interval while the player is unreachable.
const maxBackoffFactor = 8

// Poller polls the player at regular intervals, backing off while the
// player keeps failing.
type Poller struct {
	player   player.Player
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a new Poller instance
func NewPoller(p player.Player, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		player:   p,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run starts the polling loop and sends updates to the provided channel.
// Blocks until context is cancelled
func (p *Poller) Run(ctx context.Context, updates chan<- TrackUpdate) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	// Poll immediately on start
	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if p.poll(ctx, updates) {
			if failures > 0 {
				p.logger.Info().Int("failures", failures).Msg("Player reachable again")
			}
			failures = 0
		} else {
			failures++
		}
		timer.Reset(p.delay(failures))
	}
}

// delay returns the wait before the next poll after the given number of
// consecutive failures: the interval doubled per failure, at most
// maxBackoffFactor times the interval.
func (p *Poller) delay(failures int) time.Duration {
	d := p.interval
	for i := 0; i < failures && d < p.interval*maxBackoffFactor; i++ {
		d *= 2
	}
	return min(d, p.interval*maxBackoffFactor)
}

// poll queries the player and sends an update. It reports whether the
// player answered.
func (p *Poller) poll(ctx context.Context, updates chan<- TrackUpdate) bool {
	track, err := p.player.CurrentTrack(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Error getting current track")
		select {
		case updates <- TrackUpdate{Err: err}:
		case <-ctx.Done():
		}
		return false
	}

	select {
	case updates <- TrackUpdate{Track: track}:
		if track != nil {
			p.logger.Debug().
				Str("item_id", track.ItemID).
				Str("title", track.Title).
				Str("state", track.State.String()).
				Dur("position", track.Position).
				Msg("Poll update")
		}
	case <-ctx.Done():
	}
	return true
}
