package subsonic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

const (
	nativeAuthHeader = "x-nd-authorization"
	bearerPrefix     = "Bearer "
)

// NativeClient talks to Navidrome's own REST API, which offers listings the
// Subsonic API lacks (every song of the library, sorted server side).
//
// Unlike the Subsonic API the native API uses a JWT bearer token. The token
// is obtained by Login, refreshed from every response and re-acquired once
// when the server answers 401.
type NativeClient struct {
	source     Source
	httpClient *http.Client
	logger     Logger

	mu    sync.Mutex
	token string
}

// NativeSong is a song as returned by GET /api/song.
type NativeSong struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Album       string  `json:"album"`
	AlbumID     string  `json:"albumId"`
	Artist      string  `json:"artist"`
	ArtistID    string  `json:"artistId"`
	TrackNumber int     `json:"trackNumber"`
	DiscNumber  int     `json:"discNumber"`
	Year        int     `json:"year"`
	Genre       string  `json:"genre"`
	Duration    float64 `json:"duration"` // seconds
	Suffix      string  `json:"suffix"`
	BitRate     int     `json:"bitRate"`
	Starred     bool    `json:"starred"`
	Rating      int     `json:"rating"`
	PlayCount   int64   `json:"playCount"`
}

// Song converts a native song into the Subsonic representation. Navidrome
// uses the album id as cover art id.
func (s NativeSong) Song() Song {
	song := Song{
		ID:         s.ID,
		Title:      s.Title,
		Album:      s.Album,
		AlbumID:    s.AlbumID,
		Artist:     s.Artist,
		ArtistID:   s.ArtistID,
		Track:      s.TrackNumber,
		DiscNumber: s.DiscNumber,
		Year:       s.Year,
		Genre:      s.Genre,
		Duration:   int(s.Duration),
		Suffix:     s.Suffix,
		BitRate:    s.BitRate,
		UserRating: s.Rating,
		PlayCount:  s.PlayCount,
		CoverArt:   s.AlbumID,
	}
	if s.Starred {
		song.Starred = "true"
	}
	return song
}

// NewNativeClient creates a client for the Navidrome native API. It shares
// the Source of the Subsonic client so both follow configuration changes.
func NewNativeClient(c *Client) *NativeClient {
	return &NativeClient{
		source:     c.source,
		httpClient: c.httpClient,
		logger:     c.logger,
	}
}

// Login exchanges username and password for a bearer token.
func (n *NativeClient) Login(ctx context.Context) error {
	srv := n.source.Server()
	if srv.BaseURL == "" || srv.Username == "" || srv.Password == "" {
		return ErrMissingCredentials
	}

	body, err := json.Marshal(map[string]string{
		"username": srv.Username,
		"password": srv.Password,
	})
	if err != nil {
		return fmt.Errorf("subsonic: failed to encode login: %w", err)
	}

	loginURL := strings.TrimRight(srv.BaseURL, "/") + "/auth/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("subsonic: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return transportError("auth/login", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &Error{HTTPStatus: resp.StatusCode, Message: "native login rejected"}
	case resp.StatusCode != http.StatusOK:
		return transportError("auth/login", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result); err != nil {
		return transportError("auth/login", fmt.Errorf("failed to parse response: %w", err))
	}
	if result.Token == "" {
		return transportError("auth/login", fmt.Errorf("response carried no token"))
	}

	n.setToken(result.Token)
	n.logDebugf("subsonic: native api login succeeded")
	return nil
}

// LoggedIn reports whether a bearer token is held.
func (n *NativeClient) LoggedIn() bool {
	return n.currentToken() != ""
}

// Songs returns size songs starting at offset, sorted by title.
func (n *NativeClient) Songs(ctx context.Context, offset, size int) ([]NativeSong, error) {
	params := url.Values{}
	params.Set("_start", strconv.Itoa(offset))
	params.Set("_end", strconv.Itoa(offset+size))
	params.Set("_sort", "title")
	params.Set("_order", "ASC")

	var songs []NativeSong
	if err := n.get(ctx, "song", params, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// get performs an authenticated GET against /api/<resource>. A 401 triggers
// one fresh login and one retry.
func (n *NativeClient) get(ctx context.Context, resource string, params url.Values, out any) error {
	if !n.LoggedIn() {
		if err := n.Login(ctx); err != nil {
			return err
		}
	}

	status, err := n.do(ctx, resource, params, out)
	if err != nil || status != http.StatusUnauthorized {
		return err
	}

	n.logDebugf("subsonic: native token rejected, logging in again")
	n.setToken("")
	if err := n.Login(ctx); err != nil {
		return err
	}

	status, err = n.do(ctx, resource, params, out)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return &Error{HTTPStatus: status, Message: "native token rejected"}
	}
	return nil
}

// do sends a single request. A 401 is reported through the status with a
// nil error so get can decide whether to retry.
func (n *NativeClient) do(ctx context.Context, resource string, params url.Values, out any) (int, error) {
	srv := n.source.Server()
	reqURL := strings.TrimRight(srv.BaseURL, "/") + "/api/" + resource
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("subsonic: failed to create request: %w", err)
	}
	req.Header.Set(nativeAuthHeader, bearerPrefix+n.currentToken())
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, transportError("api/"+resource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if rotated := resp.Header.Get(nativeAuthHeader); strings.HasPrefix(rotated, bearerPrefix) {
		n.setToken(strings.TrimPrefix(rotated, bearerPrefix))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, nil
	case resp.StatusCode != http.StatusOK:
		return resp.StatusCode, transportError("api/"+resource, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return resp.StatusCode, transportError("api/"+resource, fmt.Errorf("failed to parse response: %w", err))
	}
	return resp.StatusCode, nil
}

func (n *NativeClient) currentToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token
}

func (n *NativeClient) setToken(token string) {
	n.mu.Lock()
	n.token = token
	n.mu.Unlock()
}

func (n *NativeClient) logDebugf(format string, args ...interface{}) {
	if n.logger != nil {
		n.logger.Debugf(format, args...)
	}
}
