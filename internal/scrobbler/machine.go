package scrobbler

import (
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// State is the lifecycle position of a playback session.
type State int

const (
	StateIdle State = iota
	StateNowPlaying
	StatePendingSubmit
	StateSubmitted
	StateFailed
	StateAbandoned
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateNowPlaying:    "now-playing",
	StatePendingSubmit: "pending-submit",
	StateSubmitted:     "submitted",
	StateFailed:        "failed",
	StateAbandoned:     "abandoned",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return StateIdle, fmt.Errorf("unknown session state %q", name)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Terminal reports whether no further submission happens from s.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateFailed || s == StateAbandoned
}

// Session is one playback of one item.
type Session struct {
	ID        string
	ItemID    string
	Title     string
	Artist    string
	Duration  time.Duration
	StartedAt time.Time
	Elapsed   time.Duration
	State     State

	Attempts    int
	NextAttempt time.Time
	InFlight    bool
	LastError   string
	FinishedAt  time.Time
}

// Active reports whether the session may still produce a submission.
func (s Session) Active() bool {
	return s.State == StateNowPlaying || s.State == StatePendingSubmit
}

// Event is an input to Transition. Every event carries the clock reading
// it was observed at; the machine never reads the time itself.
type Event interface {
	at() time.Time
}

// Start begins a new session, replacing any current one.
type Start struct {
	SessionID string
	ItemID    string
	Title     string
	Artist    string
	Duration  time.Duration
	At        time.Time
}

// Tick reports the playback position.
type Tick struct {
	Elapsed time.Duration
	At      time.Time
}

// Clock advances time without new playback information.
type Clock struct {
	At time.Time
}

// Stop reports that playback ended.
type Stop struct {
	At time.Time
}

// SubmitResult reports the outcome of a SubmitScrobble effect.
type SubmitResult struct {
	SessionID string
	Err       error
	At        time.Time
}

func (e Start) at() time.Time        { return e.At }
func (e Tick) at() time.Time         { return e.At }
func (e Clock) at() time.Time        { return e.At }
func (e Stop) at() time.Time         { return e.At }
func (e SubmitResult) at() time.Time { return e.At }

// Effect is work requested by Transition.
type Effect interface {
	effect()
}

// SendNowPlaying asks for a now playing update for Session.ItemID.
type SendNowPlaying struct{ Session Session }

// SubmitScrobble asks for a scrobble submission. Its outcome must be fed
// back as a SubmitResult.
type SubmitScrobble struct{ Session Session }

// Finished reports that Session reached a terminal state.
type Finished struct{ Session Session }

func (SendNowPlaying) effect() {}
func (SubmitScrobble) effect() {}
func (Finished) effect()       {}

// Transition computes the next session and the effects to run. It is a
// pure function: the same inputs always give the same outputs.
func Transition(s Session, ev Event, p Policy) (Session, []Effect) {
	switch e := ev.(type) {
	case Start:
		return start(s, e, p)
	case Tick:
		switch s.State {
		case StateNowPlaying:
			s.Elapsed = max(s.Elapsed, e.Elapsed)
			if !p.DisableSubmit && p.ShouldScrobble(s.Duration, s.Elapsed) {
				return submit(s)
			}
		case StatePendingSubmit:
			s.Elapsed = max(s.Elapsed, e.Elapsed)
			return retry(s, e.At)
		}
		return s, nil
	case Clock:
		if s.State == StatePendingSubmit {
			return retry(s, e.At)
		}
		return s, nil
	case Stop:
		switch s.State {
		case StateNowPlaying:
			if !p.DisableSubmit && p.ShouldScrobble(s.Duration, s.Elapsed) {
				return submit(s)
			}
			return finish(s, StateAbandoned, e.At)
		case StatePendingSubmit:
			// Playback is over but the play still counts.
			return retry(s, e.At)
		case StateSubmitted, StateFailed, StateAbandoned:
			return Session{}, nil
		}
		return s, nil
	case SubmitResult:
		return submitted(s, e, p)
	}
	return s, nil
}

func start(s Session, e Start, p Policy) (Session, []Effect) {
	if e.ItemID == "" {
		return s, nil
	}

	var effects []Effect
	if s.Active() {
		_, finished := finish(s, StateAbandoned, e.At)
		effects = append(effects, finished...)
	}

	next := Session{
		ID:        e.SessionID,
		ItemID:    e.ItemID,
		Title:     e.Title,
		Artist:    e.Artist,
		Duration:  e.Duration,
		StartedAt: e.At,
		State:     StateNowPlaying,
	}
	if !p.DisableNowPlaying {
		effects = append(effects, SendNowPlaying{Session: next})
	}
	return next, effects
}

func submit(s Session) (Session, []Effect) {
	s.State = StatePendingSubmit
	s.Attempts++
	s.InFlight = true
	s.NextAttempt = time.Time{}
	return s, []Effect{SubmitScrobble{Session: s}}
}

func retry(s Session, now time.Time) (Session, []Effect) {
	if s.InFlight || now.Before(s.NextAttempt) {
		return s, nil
	}
	return submit(s)
}

func submitted(s Session, e SubmitResult, p Policy) (Session, []Effect) {
	if s.State != StatePendingSubmit || e.SessionID != s.ID {
		return s, nil
	}
	s.InFlight = false

	if e.Err == nil {
		s.LastError = ""
		return finish(s, StateSubmitted, e.At)
	}

	s.LastError = e.Err.Error()
	if errors.Is(e.Err, subsonic.ErrAuth) || s.Attempts >= p.MaxAttempts {
		return finish(s, StateFailed, e.At)
	}
	s.NextAttempt = e.At.Add(p.Backoff(s.Attempts))
	return s, nil
}

func finish(s Session, state State, now time.Time) (Session, []Effect) {
	s.State = state
	s.InFlight = false
	s.NextAttempt = time.Time{}
	s.FinishedAt = now
	return s, []Effect{Finished{Session: s}}
}
