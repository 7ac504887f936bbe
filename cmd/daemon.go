package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/internal/daemon"
	"github.com/jfmyers9/naviscribe/internal/scrobbler"
	"github.com/jfmyers9/naviscribe/internal/tui"
	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

var (
	daemonLogFile string
	daemonDataDir string
	daemonTUI     bool
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scrobbling daemon",
	Long: `Run the daemon that watches MPD and reports playback to the server.

The daemon will:
- Poll MPD every few seconds for the song it is playing
- Report server streams as now playing when they start
- Scrobble them once enough was played (50% or 4 minutes by default)
- Retry failed scrobbles a bounded number of times with backoff
- Keep a journal of finished sessions for 'naviscribe history'
- Reload scrobble settings when the config file changes
- Handle graceful shutdown on SIGINT/SIGTERM

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for systemd), or --tui
to show a terminal UI instead of logs.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonDataDir, "data-dir", "", "Data directory for state and journal (default: $XDG_DATA_HOME/naviscribe)")
	daemonCmd.Flags().BoolVar(&daemonTUI, "tui", false, "Show a terminal UI while running")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	level := logLevel
	if !cmd.Flags().Changed("log-level") {
		level = "info"
	}
	logFile := daemonLogFile
	if daemonTUI && logFile == "" {
		// The TUI owns the terminal.
		logFile = filepath.Join(daemon.GetDefaultLogPath(), "naviscribe.log")
		_ = os.MkdirAll(filepath.Dir(logFile), 0755)
	}
	logger := setupLogger(logFile, level)

	s, err := loadServices(logger)
	if err != nil {
		return err
	}
	cfg := s.store.Config()
	if srv := cfg.SubsonicServer(); srv.BaseURL == "" || srv.Username == "" || srv.Password == "" {
		return subsonic.ErrMissingCredentials
	}

	logger.Info().
		Str("version", version).
		Str("server", cfg.Server.URL).
		Str("mpd", cfg.Player.MPDAddress).
		Msg("Starting naviscribe daemon")

	dataDir := daemonDataDir
	if dataDir == "" {
		dataDir = daemon.GetDefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	journalPath := filepath.Join(dataDir, "sessions.db")
	if daemonDataDir == "" {
		if journalPath, err = config.JournalPath(); err != nil {
			return fmt.Errorf("failed to locate journal: %w", err)
		}
	}

	logger.Info().Str("data_dir", dataDir).Str("journal", journalPath).Msg("Using data directory")

	p := newPlayer(cfg, logger)
	defer func() { _ = p.Close() }()

	d, err := daemon.New(daemon.Config{
		PollInterval: time.Duration(cfg.PollInterval) * time.Second,
		StateFile:    filepath.Join(dataDir, "state.json"),
		JournalDB:    journalPath,
		HistoryAge:   time.Duration(cfg.Scrobble.HistoryDays) * 24 * time.Hour,
	}, p, s.catalog, scrobbler.New(s.api), scrobbler.PolicyFromConfig(cfg.Scrobble), logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	s.store.OnChange(func(c *config.Config) {
		d.SetPolicy(scrobbler.PolicyFromConfig(c.Scrobble))
	})
	s.store.Watch()

	if daemonTUI {
		err = runDaemonWithTUI(d, cfg, logger)
	} else {
		err = d.Run()
	}
	if err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}

// runDaemonWithTUI runs the daemon in the background until the TUI quits.
// The TUI gets its own MPD connection so key presses never wait behind
// the poller.
func runDaemonWithTUI(d *daemon.Daemon, cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newPlayer(cfg, logger)
	defer func() { _ = p.Close() }()

	app := tui.New(p, d.Journal())
	updates := d.Subscribe()

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.RunContext(ctx)
	}()

	if err := app.Run(ctx, updates, d.Policy); err != nil {
		cancel()
		<-errCh
		return err
	}

	cancel()
	return <-errCh
}
