package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/internal/daemon"
	"github.com/jfmyers9/naviscribe/internal/player"
	"github.com/jfmyers9/naviscribe/internal/scrobbler"
	"github.com/jfmyers9/naviscribe/internal/tui"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Display a terminal UI for now playing",
	Long: `Display a terminal UI showing what MPD is playing, with real-time updates.

This TUI polls MPD directly and shows the scrobble state of a running
daemon (read from its state file and journal). To run the daemon and the
TUI in one process use 'naviscribe daemon --tui' instead.

Keys: q quit, space play/pause, n next, p previous, s stop.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVar(&daemonDataDir, "data-dir", "", "Daemon data directory (default: $XDG_DATA_HOME/naviscribe)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := zerolog.Nop()
	p := newPlayer(cfg, logger)
	defer func() { _ = p.Close() }()

	dataDir := daemonDataDir
	if dataDir == "" {
		dataDir = daemon.GetDefaultDataDir()
	}
	journalPath := filepath.Join(dataDir, "sessions.db")
	if daemonDataDir == "" {
		if journalPath, err = config.JournalPath(); err != nil {
			return fmt.Errorf("failed to locate journal: %w", err)
		}
	}

	var history tui.History
	journal, err := scrobbler.NewJournal(journalPath)
	if err == nil {
		defer journal.Close()
		history = journal
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan daemon.Status, 1)
	go pollStatus(ctx, p, filepath.Join(dataDir, "state.json"), updates)

	policy := scrobbler.PolicyFromConfig(cfg.Scrobble)
	app := tui.New(p, history)
	return app.Run(ctx, updates, func() scrobbler.Policy { return policy })
}

// pollStatus combines the MPD track with the session the daemon last
// persisted. Polling backs off while MPD is unreachable.
func pollStatus(ctx context.Context, p player.Player, stateFile string, updates chan<- daemon.Status) {
	const (
		baseInterval = 1 * time.Second
		maxInterval  = 16 * time.Second
	)
	interval := baseInterval
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		status := daemon.Status{UpdatedAt: time.Now()}
		if persisted, err := daemon.ReadStatus(stateFile); err == nil {
			status.Session = persisted.Session
		}

		track, err := p.CurrentTrack(ctx)
		if err != nil {
			// Exponential backoff on error
			interval = min(interval*2, maxInterval)
		} else {
			interval = baseInterval
			status.Track = track
		}

		select {
		case updates <- status:
		case <-ctx.Done():
			return
		}
		timer.Reset(interval)
	}
}
