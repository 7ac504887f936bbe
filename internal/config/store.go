package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// Store holds the current configuration and swaps it whole when the
// config file changes. Readers never see a partially updated Config.
//
// Store implements subsonic.Source, so API clients derive credentials from
// the latest settings on every request.
type Store struct {
	v       *viper.Viper
	current atomic.Pointer[Config]
	logger  zerolog.Logger

	mu        sync.Mutex
	listeners []func(*Config)
	watching  bool
}

// NewStore loads configuration from path (or the default locations when
// empty) and returns a Store holding it.
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	loadDotEnv()

	v := newViper(path)
	if err := readConfig(v); err != nil {
		return nil, err
	}

	s := &Store{
		v:      v,
		logger: logger.With().Str("component", "config").Logger(),
	}
	s.current.Store(fromViper(v))
	return s, nil
}

// NewStaticStore wraps an already loaded Config. Watch is a no-op.
func NewStaticStore(cfg *Config) *Store {
	s := &Store{logger: zerolog.Nop()}
	s.current.Store(cfg)
	return s
}

// Config returns the current configuration. Callers must not modify it.
func (s *Store) Config() *Config {
	return s.current.Load()
}

// Server implements subsonic.Source.
func (s *Store) Server() subsonic.Server {
	return s.current.Load().SubsonicServer()
}

// ConfigFile returns the file the store reads, or "" when none was found.
func (s *Store) ConfigFile() string {
	if s.v == nil {
		return ""
	}
	return s.v.ConfigFileUsed()
}

// OnChange registers fn to be called with the new Config after each reload.
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Watch starts watching the config file. Changes that fail validation are
// logged and ignored so a half-saved file cannot break a running daemon.
func (s *Store) Watch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.v == nil || s.watching || s.v.ConfigFileUsed() == "" {
		return
	}
	s.watching = true

	s.v.OnConfigChange(func(e fsnotify.Event) {
		s.reload(e.Name)
	})
	s.v.WatchConfig()
	s.logger.Debug().Str("file", s.v.ConfigFileUsed()).Msg("Watching config file")
}

// reload swaps in the configuration viper just re-read.
func (s *Store) reload(name string) {
	cfg := fromViper(s.v)
	if err := cfg.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("Ignoring invalid config change")
		return
	}

	s.current.Store(cfg)
	s.logger.Info().Str("file", name).Msg("Config reloaded")

	s.mu.Lock()
	listeners := append([]func(*Config){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}
