package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

const (
	appName        = "naviscribe"
	configFileName = "config.yaml"
	journalName    = "sessions.db"
	envPrefix      = "NAVISCRIBE"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Pad or truncate now output to this many columns (0 disables)
	OutputWidth int

	// Poll interval for the daemon (in seconds)
	PollInterval int

	// Page size for browse commands
	PageSize int

	Server      ServerConfig
	Transcoding TranscodingConfig
	Scrobble    ScrobbleConfig
	Player      PlayerConfig
}

// ServerConfig holds the music server account
type ServerConfig struct {
	URL       string
	Username  string
	Password  string
	AuthMode  string // "token" or "plain"
	Timeout   int    // request timeout in seconds
	NativeAPI bool   // use the Navidrome native API where it helps
}

// TranscodingConfig controls server side transcoding of streams
type TranscodingConfig struct {
	Enabled    bool
	Format     string // mp3, opus or aac
	MaxBitRate int    // kbps
}

// ScrobbleConfig controls playback reporting
type ScrobbleConfig struct {
	NowPlaying       bool
	Enabled          bool
	ThresholdPercent float64 // fraction of the track that must be played
	MaxThreshold     int     // seconds; caps the threshold for long tracks
	MinDuration      int     // seconds; shorter tracks are never submitted, 0 disables
	MaxAttempts      int
	RetryBackoff     int // seconds
	MaxBackoff       int // seconds
	HistoryDays      int // journal retention
}

// PlayerConfig holds the MPD connection
type PlayerConfig struct {
	MPDAddress  string
	MPDPassword string
}

// Transcoding formats accepted by the server
var transcodeFormats = []string{"mp3", "opus", "aac"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("poll_interval", 3)
	v.SetDefault("page_size", 50)

	v.SetDefault("server.auth_mode", "token")
	v.SetDefault("server.timeout", 10)
	v.SetDefault("server.native_api", false)

	v.SetDefault("transcoding.enabled", false)
	v.SetDefault("transcoding.format", "mp3")
	v.SetDefault("transcoding.max_bitrate", 192)

	v.SetDefault("scrobble.now_playing", true)
	v.SetDefault("scrobble.enabled", true)
	v.SetDefault("scrobble.threshold_percent", 0.5)
	v.SetDefault("scrobble.max_threshold", 240)
	v.SetDefault("scrobble.min_duration", 0)
	v.SetDefault("scrobble.max_attempts", 3)
	v.SetDefault("scrobble.retry_backoff", 2)
	v.SetDefault("scrobble.max_backoff", 30)
	v.SetDefault("scrobble.history_days", 30)

	v.SetDefault("player.mpd_address", "localhost:6600")
	v.SetDefault("player.mpd_password", "")
}

// newViper builds a viper instance reading path, or the default config
// locations when path is empty.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(getConfigDir())
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadDotEnv loads .env files from the working directory and the config
// directory. Existing environment variables win.
func loadDotEnv() {
	for _, f := range []string{".env", filepath.Join(getConfigDir(), ".env")} {
		_ = godotenv.Load(f)
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path, falling back to the default
// locations when path is empty. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper(path)
	if err := readConfig(v); err != nil {
		return nil, err
	}
	return fromViper(v), nil
}

// readConfig reads the config file, tolerating its absence.
func readConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		OutputFormat: v.GetString("output_format"),
		OutputWidth:  v.GetInt("output_width"),
		PollInterval: v.GetInt("poll_interval"),
		PageSize:     v.GetInt("page_size"),
		Server: ServerConfig{
			URL:       strings.TrimRight(v.GetString("server.url"), "/"),
			Username:  v.GetString("server.username"),
			Password:  v.GetString("server.password"),
			AuthMode:  v.GetString("server.auth_mode"),
			Timeout:   v.GetInt("server.timeout"),
			NativeAPI: v.GetBool("server.native_api"),
		},
		Transcoding: TranscodingConfig{
			Enabled:    v.GetBool("transcoding.enabled"),
			Format:     v.GetString("transcoding.format"),
			MaxBitRate: v.GetInt("transcoding.max_bitrate"),
		},
		Scrobble: ScrobbleConfig{
			NowPlaying:       v.GetBool("scrobble.now_playing"),
			Enabled:          v.GetBool("scrobble.enabled"),
			ThresholdPercent: v.GetFloat64("scrobble.threshold_percent"),
			MaxThreshold:     v.GetInt("scrobble.max_threshold"),
			MinDuration:      v.GetInt("scrobble.min_duration"),
			MaxAttempts:      v.GetInt("scrobble.max_attempts"),
			RetryBackoff:     v.GetInt("scrobble.retry_backoff"),
			MaxBackoff:       v.GetInt("scrobble.max_backoff"),
			HistoryDays:      v.GetInt("scrobble.history_days"),
		},
		Player: PlayerConfig{
			MPDAddress:  v.GetString("player.mpd_address"),
			MPDPassword: v.GetString("player.mpd_password"),
		},
	}
}

// Validate checks values that would otherwise fail later in confusing ways.
// Missing server credentials are not checked here; commands that need them
// report subsonic.ErrMissingCredentials.
func (c *Config) Validate() error {
	if _, err := subsonic.ParseAuthMode(c.Server.AuthMode); err != nil {
		return err
	}
	if c.Server.URL != "" && !strings.HasPrefix(c.Server.URL, "http://") && !strings.HasPrefix(c.Server.URL, "https://") {
		return fmt.Errorf("server.url must start with http:// or https://, got %q", c.Server.URL)
	}
	if c.Transcoding.Enabled && !slices.Contains(transcodeFormats, c.Transcoding.Format) {
		return fmt.Errorf("transcoding.format must be one of %s, got %q",
			strings.Join(transcodeFormats, ", "), c.Transcoding.Format)
	}
	if c.Transcoding.MaxBitRate < 0 {
		return fmt.Errorf("transcoding.max_bitrate must not be negative")
	}
	if c.Scrobble.ThresholdPercent <= 0 || c.Scrobble.ThresholdPercent > 1 {
		return fmt.Errorf("scrobble.threshold_percent must be in (0, 1], got %v", c.Scrobble.ThresholdPercent)
	}
	if c.Scrobble.MaxAttempts < 1 {
		return fmt.Errorf("scrobble.max_attempts must be at least 1")
	}
	if c.PollInterval < 1 {
		return fmt.Errorf("poll_interval must be at least 1 second")
	}
	return nil
}

// SubsonicServer converts the server section for the API client.
// An unknown auth mode falls back to token auth.
func (c *Config) SubsonicServer() subsonic.Server {
	mode, _ := subsonic.ParseAuthMode(c.Server.AuthMode)
	return subsonic.Server{
		BaseURL:  c.Server.URL,
		Username: c.Server.Username,
		Password: c.Server.Password,
		AuthMode: mode,
	}
}

// RequestTimeout returns the configured HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.Server.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.Timeout) * time.Second
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	configDir := filepath.Join(xdg.ConfigHome, appName)

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0700)

	return configDir
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	return filepath.Join(getConfigDir(), configFileName)
}

// JournalPath returns the session journal database path, creating its
// directory as needed.
func JournalPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, journalName))
}

// SaveTo writes configuration to path
func (c *Config) SaveTo(path string) error {
	v := viper.New()

	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("poll_interval", c.PollInterval)
	v.Set("page_size", c.PageSize)

	v.Set("server.url", c.Server.URL)
	v.Set("server.username", c.Server.Username)
	v.Set("server.password", c.Server.Password)
	v.Set("server.auth_mode", c.Server.AuthMode)
	v.Set("server.timeout", c.Server.Timeout)
	v.Set("server.native_api", c.Server.NativeAPI)

	v.Set("transcoding.enabled", c.Transcoding.Enabled)
	v.Set("transcoding.format", c.Transcoding.Format)
	v.Set("transcoding.max_bitrate", c.Transcoding.MaxBitRate)

	v.Set("scrobble.now_playing", c.Scrobble.NowPlaying)
	v.Set("scrobble.enabled", c.Scrobble.Enabled)
	v.Set("scrobble.threshold_percent", c.Scrobble.ThresholdPercent)
	v.Set("scrobble.max_threshold", c.Scrobble.MaxThreshold)
	v.Set("scrobble.min_duration", c.Scrobble.MinDuration)
	v.Set("scrobble.max_attempts", c.Scrobble.MaxAttempts)
	v.Set("scrobble.retry_backoff", c.Scrobble.RetryBackoff)
	v.Set("scrobble.max_backoff", c.Scrobble.MaxBackoff)
	v.Set("scrobble.history_days", c.Scrobble.HistoryDays)

	v.Set("player.mpd_address", c.Player.MPDAddress)
	v.Set("player.mpd_password", c.Player.MPDPassword)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to file
	if err := v.WriteConfigAs(path); err != nil {
		return err
	}
	// The file holds the account password.
	return os.Chmod(path, 0600)
}
