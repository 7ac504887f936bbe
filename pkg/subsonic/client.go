// Package subsonic provides a client for the Subsonic REST API 1.16.1 as
// implemented by Navidrome, Gonic, Airsonic and friends.
//
// This package implements authentication, catalog queries, library
// mutations, streaming URLs and scrobbling. It is designed to be used
// as a standalone SDK.
//
// Example usage:
//
//	import "github.com/jfmyers9/naviscribe/pkg/subsonic"
//
//	client, err := subsonic.NewClient(subsonic.Config{
//	    Source: subsonic.StaticSource{
//	        BaseURL:  "https://music.example.com",
//	        Username: "alice",
//	        Password: "secret",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	albums, err := client.Catalog().AlbumList(ctx, subsonic.AlbumListOptions{
//	    Type: subsonic.AlbumListNewest,
//	    Size: 20,
//	})
package subsonic

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds client configuration.
type Config struct {
	Source     Source           // Required: supplies server URL and account on every request
	ClientName string           // Optional: value of the "c" parameter (defaults to DefaultClientName)
	HTTPClient *http.Client     // Optional: HTTP client (defaults to a client with a 10s timeout)
	Logger     Logger           // Optional: Logger interface for debug logging
	Now        func() time.Time // Optional: clock used for salts and scrobble timestamps
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Subsonic API operations.
//
// A Client holds no session state: credentials are derived from the
// Source for every request, so one Client can be shared between
// goroutines and follows configuration changes immediately.
type Client struct {
	source     Source
	clientName string
	httpClient *http.Client
	logger     Logger
	now        func() time.Time

	catalog  *CatalogService
	library  *LibraryService
	scrobble *ScrobbleService
}

const (
	// APIVersion is the protocol version announced with every request.
	APIVersion = "1.16.1"

	// DefaultClientName identifies this client to the server.
	DefaultClientName = "naviscribe"

	defaultTimeout = 10 * time.Second
)

// NewClient creates a new Subsonic API client.
//
// Returns an error if no Source is configured.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("subsonic: Source is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	clientName := cfg.ClientName
	if clientName == "" {
		clientName = DefaultClientName
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		source:     cfg.Source,
		clientName: clientName,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}

	c.catalog = &CatalogService{client: c}
	c.library = &LibraryService{client: c}
	c.scrobble = &ScrobbleService{client: c}

	return c, nil
}

// Catalog returns the read-only catalog service.
func (c *Client) Catalog() *CatalogService {
	return c.catalog
}

// Library returns the library mutation service.
func (c *Client) Library() *LibraryService {
	return c.library
}

// Scrobble returns the scrobbling service.
func (c *Client) Scrobble() *ScrobbleService {
	return c.scrobble
}

// Server returns the server configuration currently supplied by the Source.
func (c *Client) Server() Server {
	return c.source.Server()
}

// ClientName returns the client identifier sent with each request.
func (c *Client) ClientName() string {
	return c.clientName
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
