package subsonic

import (
	"net/url"
	"strconv"
)

// StreamOptions selects server side transcoding for a stream URL.
// Zero values leave the parameter out so the server sends the original file.
type StreamOptions struct {
	Format     string // Target format, e.g. "mp3", "opus", "aac"
	MaxBitRate int    // Maximum bit rate in kbps
}

// BuildStreamURL returns the stream URL for itemID.
//
// It is a pure function of its inputs: no request is made. The player
// resolves the URL when it opens the stream, so creds must stay valid for
// that long (token credentials do not expire).
func BuildStreamURL(srv Server, creds Credentials, clientName, itemID string, opts StreamOptions) string {
	params := url.Values{}
	params.Set("id", itemID)
	if opts.MaxBitRate > 0 {
		params.Set("maxBitRate", strconv.Itoa(opts.MaxBitRate))
	}
	if opts.Format != "" {
		params.Set("format", opts.Format)
	}
	return endpointURL(srv, creds, clientName, "stream", params)
}

// BuildCoverArtURL returns the cover art URL for a coverArt id.
// A size of zero requests the original image.
func BuildCoverArtURL(srv Server, creds Credentials, clientName, coverArtID string, size int) string {
	params := url.Values{}
	params.Set("id", coverArtID)
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}
	return endpointURL(srv, creds, clientName, "getCoverArt", params)
}

// StreamURL authenticates against the current server and builds the
// stream URL for itemID.
func (c *Client) StreamURL(itemID string, opts StreamOptions) (string, error) {
	srv, creds, err := c.Authenticate()
	if err != nil {
		return "", err
	}
	return BuildStreamURL(srv, creds, c.clientName, itemID, opts), nil
}

// CoverArtURL authenticates against the current server and builds the
// cover art URL for coverArtID.
func (c *Client) CoverArtURL(coverArtID string, size int) (string, error) {
	srv, creds, err := c.Authenticate()
	if err != nil {
		return "", err
	}
	return BuildCoverArtURL(srv, creds, c.clientName, coverArtID, size), nil
}
