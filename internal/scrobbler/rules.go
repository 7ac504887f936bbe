package scrobbler

import (
	"context"
	"time"

	"github.com/jfmyers9/naviscribe/internal/config"
)

// Default scrobbling rules
const (
	// ScrobblePercentage is the fraction of the track that must be played (50%)
	ScrobblePercentage = 0.5

	// MaxScrobbleThreshold is the maximum time that needs to be played (4 minutes)
	MaxScrobbleThreshold = 4 * time.Minute

	// DefaultMaxAttempts bounds scrobble submissions per session
	DefaultMaxAttempts = 3

	// DefaultRetryBackoff is the wait after the first failed submission
	DefaultRetryBackoff = 2 * time.Second

	// DefaultMaxBackoff caps the wait between submissions
	DefaultMaxBackoff = 30 * time.Second
)

// Policy holds the tunable scrobbling rules.
type Policy struct {
	ThresholdPercent float64
	MaxThreshold     time.Duration
	MinDuration      time.Duration // 0 means any length qualifies
	MaxAttempts      int
	RetryBackoff     time.Duration
	MaxBackoff       time.Duration

	// Zero values keep both reports enabled.
	DisableNowPlaying bool
	DisableSubmit     bool
}

// DefaultPolicy returns the rules used when nothing is configured:
// 50% of the track or 4 minutes, whichever comes first, at most 3 attempts.
func DefaultPolicy() Policy {
	return Policy{
		ThresholdPercent: ScrobblePercentage,
		MaxThreshold:     MaxScrobbleThreshold,
		MaxAttempts:      DefaultMaxAttempts,
		RetryBackoff:     DefaultRetryBackoff,
		MaxBackoff:       DefaultMaxBackoff,
	}
}

// PolicyFromConfig converts the scrobble section of the configuration.
// Unset values fall back to DefaultPolicy.
func PolicyFromConfig(cfg config.ScrobbleConfig) Policy {
	p := DefaultPolicy()
	if cfg.ThresholdPercent > 0 && cfg.ThresholdPercent <= 1 {
		p.ThresholdPercent = cfg.ThresholdPercent
	}
	if cfg.MaxThreshold > 0 {
		p.MaxThreshold = time.Duration(cfg.MaxThreshold) * time.Second
	}
	if cfg.MinDuration > 0 {
		p.MinDuration = time.Duration(cfg.MinDuration) * time.Second
	}
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RetryBackoff > 0 {
		p.RetryBackoff = time.Duration(cfg.RetryBackoff) * time.Second
	}
	if cfg.MaxBackoff > 0 {
		p.MaxBackoff = time.Duration(cfg.MaxBackoff) * time.Second
	}
	p.DisableNowPlaying = !cfg.NowPlaying
	p.DisableSubmit = !cfg.Enabled
	return p
}

// IsEligible checks if a track is eligible for scrobbling based on its duration alone.
// Tracks of unknown duration (0) are eligible, and so is every track when
// MinDuration is 0.
func (p Policy) IsEligible(trackDuration time.Duration) bool {
	return p.MinDuration <= 0 || trackDuration <= 0 || trackDuration >= p.MinDuration
}

// Threshold returns how much of a track must be played before it is
// submitted: ThresholdPercent of its duration capped at MaxThreshold.
// Unknown durations use MaxThreshold. Ineligible tracks return -1.
func (p Policy) Threshold(trackDuration time.Duration) time.Duration {
	if !p.IsEligible(trackDuration) {
		// Return a value that can never be met
		return time.Duration(-1)
	}
	if trackDuration <= 0 {
		return p.MaxThreshold
	}

	threshold := time.Duration(float64(trackDuration) * p.ThresholdPercent)
	if threshold > p.MaxThreshold {
		threshold = p.MaxThreshold
	}
	return threshold
}

// ShouldScrobble reports whether played time crosses the threshold.
func (p Policy) ShouldScrobble(trackDuration, played time.Duration) bool {
	threshold := p.Threshold(trackDuration)
	return threshold >= 0 && played >= threshold
}

// Backoff returns the wait after the given number of failed attempts,
// doubling from RetryBackoff and capped at MaxBackoff.
func (p Policy) Backoff(failures int) time.Duration {
	backoff := p.RetryBackoff
	for i := 1; i < failures; i++ {
		backoff = nextBackoff(backoff, p.MaxBackoff)
	}
	if backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

// nextBackoff doubles current, capped at max.
func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// sleep waits for duration or until ctx is done.
// Returns false if the context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
