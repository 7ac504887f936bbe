package subsonic

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"
)

// AuthMode selects how the account secret is presented to the server.
type AuthMode int

const (
	// AuthToken sends a salted md5 token (t, s). Default since API 1.13.0.
	AuthToken AuthMode = iota
	// AuthPlain sends the hex encoded password (p=enc:...). Needed for
	// servers backed by LDAP, which answer token auth with error 41.
	AuthPlain
)

// String returns the configuration name of the mode.
func (m AuthMode) String() string {
	switch m {
	case AuthToken:
		return "token"
	case AuthPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// ParseAuthMode converts a configuration value into an AuthMode.
// An empty string selects AuthToken.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "token":
		return AuthToken, nil
	case "plain", "password":
		return AuthPlain, nil
	default:
		return AuthToken, fmt.Errorf("subsonic: unknown auth mode %q", s)
	}
}

// Server describes a server and the account used to reach it.
type Server struct {
	BaseURL  string   // Server root, e.g. https://music.example.com
	Username string   // Account name
	Password string   // Account secret
	AuthMode AuthMode // How the secret is sent
}

// Source supplies the current Server for each request.
//
// Implementations must be safe for concurrent use. The configuration
// store reloads settings behind this interface.
type Source interface {
	Server() Server
}

// StaticSource is a Source that never changes.
type StaticSource Server

// Server implements Source.
func (s StaticSource) Server() Server {
	return Server(s)
}

// Credentials is the authentication parameter set attached to one request.
type Credentials struct {
	Username string
	Token    string // md5(password + salt), empty in AuthPlain mode
	Salt     string
	Password string // "enc:" + hex(password), only in AuthPlain mode
	IssuedAt time.Time
}

const saltLength = 12

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Authenticate derives a fresh credential set for srv.
//
// Each call draws a new random salt, so two calls never produce the same
// token. Returns ErrMissingCredentials if the server URL, username or
// password is empty.
func Authenticate(srv Server, now time.Time) (Credentials, error) {
	if srv.BaseURL == "" || srv.Username == "" || srv.Password == "" {
		return Credentials{}, ErrMissingCredentials
	}

	creds := Credentials{
		Username: srv.Username,
		IssuedAt: now,
	}

	if srv.AuthMode == AuthPlain {
		creds.Password = "enc:" + hex.EncodeToString([]byte(srv.Password))
		return creds, nil
	}

	salt, err := newSalt(saltLength)
	if err != nil {
		return Credentials{}, fmt.Errorf("subsonic: failed to generate salt: %w", err)
	}
	creds.Salt = salt
	creds.Token = TokenFor(srv.Password, salt)

	return creds, nil
}

// TokenFor computes the Subsonic authentication token md5(password + salt).
func TokenFor(password, salt string) string {
	sum := md5.Sum([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// Values returns the query parameters that authenticate a request,
// including protocol version, client name and response format.
func (c Credentials) Values(clientName string) url.Values {
	v := url.Values{}
	v.Set("u", c.Username)
	if c.Password != "" {
		v.Set("p", c.Password)
	} else {
		v.Set("t", c.Token)
		v.Set("s", c.Salt)
	}
	v.Set("v", APIVersion)
	v.Set("c", clientName)
	v.Set("f", "json")
	return v
}

// Authenticate derives credentials from the Source's current server.
func (c *Client) Authenticate() (Server, Credentials, error) {
	srv := c.source.Server()
	creds, err := Authenticate(srv, c.now())
	if err != nil {
		return srv, Credentials{}, err
	}
	return srv, creds, nil
}

func newSalt(n int) (string, error) {
	max := big.NewInt(int64(len(saltAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = saltAlphabet[idx.Int64()]
	}
	return string(b), nil
}
