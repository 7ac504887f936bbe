package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/catalog"
	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/internal/library"
	"github.com/jfmyers9/naviscribe/internal/player"
	"github.com/jfmyers9/naviscribe/internal/stream"
	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configPath   string
	logLevel     string
	outputFormat string
)

// commandTimeout bounds one-shot commands.
const commandTimeout = 30 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "naviscribe",
	Short: "Browse, stream and scrobble a Subsonic music server",
	Long: `naviscribe is a client for Subsonic compatible music servers such as Navidrome.

It browses the catalog, hands stream URLs to MPD, manages favourites,
ratings and playlists, and runs a background daemon that reports what MPD
plays back to the server as now playing and scrobbles.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/naviscribe/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Listing format (table, json)")
}

// errorHint suggests what to do about a failed command.
func errorHint(err error) string {
	switch {
	case errors.Is(err, subsonic.ErrMissingCredentials):
		return "No server configured. Run 'naviscribe login' first."
	case errors.Is(err, &subsonic.Error{Code: subsonic.ErrCodeNotAuthorized}):
		return "The server does not allow this account to do that. Ask the server admin for the permission."
	case errors.Is(err, &subsonic.Error{Code: subsonic.ErrCodeClientTooOld}),
		errors.Is(err, &subsonic.Error{Code: subsonic.ErrCodeServerTooOld}):
		return "naviscribe and the server speak different API versions. Update the older one."
	case errors.Is(err, subsonic.ErrAuth):
		return "The server rejected the credentials. Check server.url, server.username and server.password or run 'naviscribe login'."
	case errors.Is(err, subsonic.ErrNotFound):
		return "The item no longer exists on the server. Refresh the listing and try again."
	case errors.Is(err, subsonic.ErrConflict):
		return "The server refused the change. Refresh the listing and try again."
	case errors.Is(err, library.ErrInvalidArgument):
		return "Run the command with --help for its arguments."
	}
	return ""
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// debugLogger feeds pkg/subsonic debug output into zerolog.
type debugLogger struct {
	logger zerolog.Logger
}

func (d debugLogger) Debugf(format string, args ...interface{}) {
	d.logger.Debug().Msgf(format, args...)
}

// services bundles what the server facing commands need.
type services struct {
	store   *config.Store
	api     *subsonic.Client
	catalog *catalog.Client
	library *library.Client
	streams *stream.Builder
	logger  zerolog.Logger
}

// loadServices reads the configuration and builds the API clients.
func loadServices(logger zerolog.Logger) (*services, error) {
	store, err := config.NewStore(configPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := store.Config()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	api, err := subsonic.NewClient(subsonic.Config{
		Source:     store,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout()},
		Logger:     debugLogger{logger: logger.With().Str("component", "subsonic").Logger()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	var native *subsonic.NativeClient
	if cfg.Server.NativeAPI {
		native = subsonic.NewNativeClient(api)
	}

	return &services{
		store:   store,
		api:     api,
		catalog: catalog.New(api, native, logger),
		library: library.New(api, logger),
		streams: stream.NewBuilder(store, api.ClientName()),
		logger:  logger,
	}, nil
}

// commandServices is loadServices with the logger from the persistent flags.
func commandServices() (*services, error) {
	return loadServices(setupLogger("", logLevel))
}

// newPlayer connects the MPD adapter described by cfg.
func newPlayer(cfg *config.Config, logger zerolog.Logger) *player.MPDClient {
	return player.NewMPDClient(cfg.Player.MPDAddress, cfg.Player.MPDPassword, logger)
}

// commandContext returns the context for a one-shot command.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}
