// Package stream builds playable URLs for catalog items.
package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

var timeNow = time.Now

// Request describes one stream URL.
type Request struct {
	ItemID     string
	Format     string // empty when not transcoding
	MaxBitRate int    // 0 when not transcoding
}

// Transcoded reports whether the request asks the server to transcode.
func (r Request) Transcoded() bool {
	return r.Format != "" || r.MaxBitRate > 0
}

// Settings supplies the current configuration.
type Settings interface {
	Config() *config.Config
}

// Builder creates stream and cover art URLs from the current settings.
type Builder struct {
	settings   Settings
	clientName string
}

// NewBuilder creates a Builder.
func NewBuilder(settings Settings, clientName string) *Builder {
	if clientName == "" {
		clientName = subsonic.DefaultClientName
	}
	return &Builder{settings: settings, clientName: clientName}
}

// NewRequest returns the request for itemID under cfg. Transcoding
// parameters are set if and only if transcoding is enabled.
func NewRequest(cfg *config.Config, itemID string) Request {
	req := Request{ItemID: itemID}
	if cfg.Transcoding.Enabled {
		req.Format = cfg.Transcoding.Format
		req.MaxBitRate = cfg.Transcoding.MaxBitRate
	}
	return req
}

// Build returns the stream URL for itemID with fresh credentials.
func (b *Builder) Build(itemID string) (string, Request, error) {
	if itemID == "" {
		return "", Request{}, errors.New("stream: item id must not be empty")
	}

	// One snapshot, so a reload cannot mix old transcoding settings with
	// new credentials.
	cfg := b.settings.Config()
	req := NewRequest(cfg, itemID)

	srv := cfg.SubsonicServer()
	creds, err := subsonic.Authenticate(srv, timeNow())
	if err != nil {
		return "", req, fmt.Errorf("stream: %w", err)
	}

	url := subsonic.BuildStreamURL(srv, creds, b.clientName, itemID, subsonic.StreamOptions{
		Format:     req.Format,
		MaxBitRate: req.MaxBitRate,
	})
	return url, req, nil
}

// CoverArt returns the cover art URL for an artwork id. A size of zero
// requests the original image.
func (b *Builder) CoverArt(artworkID string, size int) (string, error) {
	if artworkID == "" {
		return "", errors.New("stream: artwork id must not be empty")
	}

	srv := b.settings.Config().SubsonicServer()
	creds, err := subsonic.Authenticate(srv, timeNow())
	if err != nil {
		return "", fmt.Errorf("stream: %w", err)
	}
	return subsonic.BuildCoverArtURL(srv, creds, b.clientName, artworkID, size), nil
}
