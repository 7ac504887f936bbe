// Package daemon runs the background service: it polls the player,
// feeds the scrobble coordinator and keeps the session journal.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/naviscribe/internal/catalog"
	"github.com/jfmyers9/naviscribe/internal/player"
	"github.com/jfmyers9/naviscribe/internal/scrobbler"
)

// replayTolerance is how far the position must jump back on a finished
// session before the same item counts as played again.
const replayTolerance = 10 * time.Second

// Config holds daemon configuration
type Config struct {
	PollInterval    time.Duration // How often to poll the player
	StateFile       string        // Path to status persistence file
	JournalDB       string        // Path to session journal database
	CleanupInterval time.Duration // How often to prune the journal
	HistoryAge      time.Duration // How long finished sessions are kept
	FlushTimeout    time.Duration // How long shutdown waits for a pending scrobble
}

// SongLookup fills in metadata the player does not report.
type SongLookup interface {
	Song(ctx context.Context, id string) (catalog.Item, error)
}

// Daemon coordinates the player poller, the scrobble coordinator and
// the session journal.
type Daemon struct {
	config  Config
	player  player.Player
	songs   SongLookup
	coord   *scrobbler.Coordinator
	journal *scrobbler.Journal
	state   *State
	poller  *Poller
	logger  zerolog.Logger

	mu          sync.Mutex
	subscribers []chan Status
}

// New creates a new Daemon instance. songs may be nil.
func New(cfg Config, p player.Player, songs SongLookup, submitter scrobbler.Submitter, policy scrobbler.Policy, logger zerolog.Logger) (*Daemon, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 24 * time.Hour
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 10 * time.Second
	}

	logger = logger.With().Str("component", "daemon").Logger()

	state, err := NewState(cfg.StateFile)
	if err != nil {
		logger.Warn().Err(err).Msg("Ignoring unreadable state file")
	}

	journalPath := cfg.JournalDB
	if journalPath == "" {
		journalPath = ":memory:"
	}
	journal, err := scrobbler.NewJournal(journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &Daemon{
		config:  cfg,
		player:  p,
		songs:   songs,
		coord:   scrobbler.NewCoordinator(submitter, journal, policy, logger),
		journal: journal,
		state:   state,
		poller:  NewPoller(p, cfg.PollInterval, logger),
		logger:  logger,
	}, nil
}

// SetPolicy applies new scrobbling rules without a restart.
func (d *Daemon) SetPolicy(p scrobbler.Policy) {
	d.coord.SetPolicy(p)
	d.logger.Info().
		Float64("threshold", p.ThresholdPercent).
		Dur("max_threshold", p.MaxThreshold).
		Int("max_attempts", p.MaxAttempts).
		Msg("Scrobble settings updated")
}

// Policy returns the scrobbling rules in effect.
func (d *Daemon) Policy() scrobbler.Policy {
	return d.coord.Policy()
}

// Status returns the latest status.
func (d *Daemon) Status() Status {
	return d.state.Get()
}

// Journal returns the session journal.
func (d *Daemon) Journal() *scrobbler.Journal {
	return d.journal
}

// Subscribe returns a channel receiving the status after every poll.
// Slow readers only see the latest status.
func (d *Daemon) Subscribe() <-chan Status {
	ch := make(chan Status, 1)
	d.mu.Lock()
	d.subscribers = append(d.subscribers, ch)
	d.mu.Unlock()
	return ch
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return d.RunContext(ctx)
}

// RunContext runs the daemon until ctx is cancelled.
func (d *Daemon) RunContext(ctx context.Context) error {
	if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// run is the main daemon loop
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Msg("Starting daemon")

	if d.coord.Resume(ctx, d.state.Get().Session) {
		d.publish(d.state.Get().Track)
	}

	var wg sync.WaitGroup
	updates := make(chan TrackUpdate, 10)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.poller.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Poller error")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.cleanupJournal(ctx)
	}()

	// Main loop: handle track updates
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.handleUpdates(ctx, updates)
	}()

	wg.Wait()

	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// handleUpdates processes track updates from the poller
func (d *Daemon) handleUpdates(ctx context.Context, updates <-chan TrackUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.Err != nil {
				d.logger.Debug().Err(update.Err).Msg("Track update error")
				// Let pending retries run while the player is unreachable.
				d.coord.Clock(ctx)
				continue
			}
			d.handleTrackUpdate(ctx, update.Track)
		}
	}
}

// handleTrackUpdate turns one poll result into coordinator events
func (d *Daemon) handleTrackUpdate(ctx context.Context, track *player.Track) {
	current := d.coord.Snapshot()

	if track == nil || track.State == player.StateStopped || track.ItemID == "" {
		if current.State != scrobbler.StateIdle {
			if track != nil && track.ItemID == "" {
				d.logger.Debug().Str("uri", track.URI).Msg("Playing something that is not a server stream")
			}
			d.coord.Stop(ctx)
		}
		d.publish(track)
		return
	}

	if isNewPlayback(current, track) {
		title, artist, duration := d.describe(ctx, track)
		d.logger.Info().
			Str("item_id", track.ItemID).
			Str("title", title).
			Str("artist", artist).
			Msg("Track changed")
		d.coord.Start(ctx, track.ItemID, title, artist, duration)
	}

	d.coord.Tick(ctx, track.Position)
	d.publish(track)
}

// isNewPlayback reports whether track starts a new session.
func isNewPlayback(s scrobbler.Session, track *player.Track) bool {
	if s.State == scrobbler.StateIdle || s.ItemID != track.ItemID {
		return true
	}
	// Same item started over, e.g. with repeat on.
	return s.State.Terminal() && track.Position+replayTolerance < s.Elapsed
}

// describe returns title, artist and duration, asking the server for
// whatever the player does not know.
func (d *Daemon) describe(ctx context.Context, track *player.Track) (string, string, time.Duration) {
	title, artist, duration := track.Title, track.Artist, track.Duration
	if d.songs == nil || (title != "" && artist != "" && duration > 0) {
		return title, artist, duration
	}

	item, err := d.songs.Song(ctx, track.ItemID)
	if err != nil {
		d.logger.Debug().Err(err).Str("item_id", track.ItemID).Msg("Song lookup failed")
		return title, artist, duration
	}
	if title == "" {
		title = item.Title
	}
	if artist == "" {
		artist = item.Artist
	}
	if duration <= 0 {
		duration = item.Duration
	}
	return title, artist, duration
}

// publish stores and fans out the current status.
func (d *Daemon) publish(track *player.Track) {
	if err := d.state.Update(track, d.coord.Snapshot()); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to persist state")
	}
	status := d.state.Get()

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.subscribers {
		// Drop a stale status so the newest always fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- status:
		default:
		}
	}
}

// cleanupJournal prunes old sessions on start and then periodically
func (d *Daemon) cleanupJournal(ctx context.Context) {
	if d.config.HistoryAge <= 0 {
		return
	}

	ticker := time.NewTicker(d.config.CleanupInterval)
	defer ticker.Stop()

	for {
		deleted, err := d.journal.Cleanup(ctx, d.config.HistoryAge)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to cleanup journal")
		} else if deleted > 0 {
			d.logger.Info().Int64("deleted", deleted).Msg("Pruned old sessions")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown gives a pending scrobble a last chance, then closes the journal
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	ctx, cancel := context.WithTimeout(context.Background(), d.config.FlushTimeout)
	defer cancel()
	d.coord.Flush(ctx)

	if err := d.state.Update(d.state.Get().Track, d.coord.Snapshot()); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to persist state")
	}
	if err := d.state.Flush(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to flush state")
	}

	if err := d.journal.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}
