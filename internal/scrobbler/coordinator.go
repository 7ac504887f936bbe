package scrobbler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Submitter delivers reports to the server.
type Submitter interface {
	NowPlaying(ctx context.Context, itemID string) error
	Scrobble(ctx context.Context, itemID string, playedAt time.Time) error
}

// Recorder persists sessions that reached a terminal state.
type Recorder interface {
	Record(ctx context.Context, s Session) error
}

// Coordinator drives the session state machine from player updates and
// runs the effects it asks for. Reporting errors are logged, never
// returned: scrobbling must not interrupt playback.
type Coordinator struct {
	submitter Submitter
	recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string

	// mu serialises event handling, including submissions.
	mu      sync.Mutex
	session Session

	stateMu  sync.RWMutex
	snapshot Session
	policy   Policy
}

// NewCoordinator creates a coordinator. recorder may be nil.
func NewCoordinator(submitter Submitter, recorder Recorder, policy Policy, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		submitter: submitter,
		recorder:  recorder,
		policy:    policy,
		logger:    logger.With().Str("component", "scrobbler").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetPolicy replaces the rules used for subsequent events.
func (c *Coordinator) SetPolicy(p Policy) {
	c.stateMu.Lock()
	c.policy = p
	c.stateMu.Unlock()
}

// Policy returns the rules currently in use.
func (c *Coordinator) Policy() Policy {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.policy
}

// Snapshot returns a copy of the current session. Safe for concurrent use.
func (c *Coordinator) Snapshot() Session {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.snapshot
}

// Start begins a session for itemID and returns its id.
func (c *Coordinator) Start(ctx context.Context, itemID, title, artist string, duration time.Duration) string {
	id := c.newID()
	c.Handle(ctx, Start{
		SessionID: id,
		ItemID:    itemID,
		Title:     title,
		Artist:    artist,
		Duration:  duration,
		At:        c.now(),
	})
	return id
}

// Tick reports the current playback position.
func (c *Coordinator) Tick(ctx context.Context, elapsed time.Duration) {
	c.Handle(ctx, Tick{Elapsed: elapsed, At: c.now()})
}

// Clock lets pending retries run when there is no playback information.
func (c *Coordinator) Clock(ctx context.Context) {
	c.Handle(ctx, Clock{At: c.now()})
}

// Stop reports that playback ended.
func (c *Coordinator) Stop(ctx context.Context) {
	c.Handle(ctx, Stop{At: c.now()})
}

// Handle applies ev and runs the resulting effects in order.
func (c *Coordinator) Handle(ctx context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	policy := c.Policy()
	next, effects := Transition(c.session, ev, policy)
	c.set(next)

	for len(effects) > 0 {
		effect := effects[0]
		effects = effects[1:]

		switch e := effect.(type) {
		case SendNowPlaying:
			c.sendNowPlaying(ctx, e.Session)
		case SubmitScrobble:
			err := c.submitter.Scrobble(ctx, e.Session.ItemID, e.Session.StartedAt)
			c.logSubmit(e.Session, err)

			var more []Effect
			next, more = Transition(c.session, SubmitResult{SessionID: e.Session.ID, Err: err, At: c.now()}, policy)
			c.set(next)
			effects = append(effects, more...)
		case Finished:
			c.record(ctx, e.Session)
		}
	}
}

// Resume adopts a session persisted by a previous run. Only a session
// still waiting for its submission is taken over; it is retried at once.
func (c *Coordinator) Resume(ctx context.Context, s Session) bool {
	if s.State != StatePendingSubmit || s.ID == "" {
		return false
	}

	c.mu.Lock()
	if c.session.State != StateIdle {
		c.mu.Unlock()
		return false
	}
	s.InFlight = false
	s.NextAttempt = time.Time{}
	c.set(s)
	c.mu.Unlock()

	c.logger.Info().Str("item_id", s.ItemID).Int("attempts", s.Attempts).Msg("Resuming pending scrobble")
	c.Clock(ctx)
	return true
}

// Flush waits for a pending submission of the current session to
// succeed or run out of attempts. It returns early when ctx is done.
func (c *Coordinator) Flush(ctx context.Context) {
	for {
		s := c.Snapshot()
		if s.State != StatePendingSubmit {
			return
		}
		if wait := s.NextAttempt.Sub(c.now()); wait > 0 {
			if !sleep(ctx, wait) {
				c.logger.Warn().Str("item_id", s.ItemID).Msg("Shutting down with unsubmitted scrobble")
				return
			}
		}
		c.Clock(ctx)
	}
}

func (c *Coordinator) set(s Session) {
	c.session = s
	c.stateMu.Lock()
	c.snapshot = s
	c.stateMu.Unlock()
}

func (c *Coordinator) sendNowPlaying(ctx context.Context, s Session) {
	if err := c.submitter.NowPlaying(ctx, s.ItemID); err != nil {
		c.logger.Warn().Err(err).Str("item_id", s.ItemID).Msg("Failed to update now playing")
		return
	}
	c.logger.Debug().Str("item_id", s.ItemID).Str("title", s.Title).Msg("Updated now playing")
}

func (c *Coordinator) logSubmit(s Session, err error) {
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("item_id", s.ItemID).
			Int("attempt", s.Attempts).
			Msg("Scrobble submission failed")
		return
	}
	c.logger.Info().
		Str("artist", s.Artist).
		Str("title", s.Title).
		Dur("played", s.Elapsed).
		Msg("Scrobbled")
}

func (c *Coordinator) record(ctx context.Context, s Session) {
	event := c.logger.Debug()
	if s.State == StateFailed {
		event = c.logger.Error()
	}
	event.Str("session", s.ID).
		Str("item_id", s.ItemID).
		Str("state", s.State.String()).
		Int("attempts", s.Attempts).
		Str("error", s.LastError).
		Msg("Playback session finished")

	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, s); err != nil {
		c.logger.Warn().Err(err).Str("session", s.ID).Msg("Failed to record session")
	}
}
