package subsonic

import (
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// newTestClient starts an httptest server and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Source: StaticSource{
			BaseURL:  server.URL,
			Username: "alice",
			Password: "sesame",
		},
		ClientName: "test",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, server
}

// writeOK writes a successful subsonic-response with payload merged in.
func writeOK(t *testing.T, w http.ResponseWriter, payload string) {
	t.Helper()
	body := `{"subsonic-response":{"status":"ok","version":"1.16.1"`
	if payload != "" {
		body += "," + payload
	}
	body += "}}"
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("failed to write response body: %v", err)
	}
}

// writeFailed writes a failed subsonic-response.
func writeFailed(t *testing.T, w http.ResponseWriter, code int, message string) {
	t.Helper()
	body := `{"subsonic-response":{"status":"failed","version":"1.16.1","error":{"code":` +
		strconv.Itoa(code) + `,"message":"` + message + `"}}}`
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("failed to write response body: %v", err)
	}
}

func TestTokenFor(t *testing.T) {
	// Example from the Subsonic API documentation.
	got := TokenFor("sesame", "c19b2d")
	want := "26719a1196d2a940705a59634eb18eab"
	if got != want {
		t.Errorf("TokenFor() = %s, want %s", got, want)
	}
}

func TestAuthenticate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := Server{BaseURL: "https://music.example.com", Username: "alice", Password: "sesame"}

	creds, err := Authenticate(srv, now)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if creds.Username != "alice" {
		t.Errorf("Username = %s, want alice", creds.Username)
	}
	if len(creds.Salt) != saltLength {
		t.Errorf("len(Salt) = %d, want %d", len(creds.Salt), saltLength)
	}
	if creds.Token != TokenFor("sesame", creds.Salt) {
		t.Errorf("Token = %s, want md5(password+salt)", creds.Token)
	}
	if creds.Password != "" {
		t.Errorf("Password = %s, want empty in token mode", creds.Password)
	}
	if !creds.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", creds.IssuedAt, now)
	}
}

func TestAuthenticate_FreshSaltPerCall(t *testing.T) {
	srv := Server{BaseURL: "https://music.example.com", Username: "alice", Password: "sesame"}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		creds, err := Authenticate(srv, time.Now())
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if seen[creds.Salt] {
			t.Fatalf("salt %s reused", creds.Salt)
		}
		seen[creds.Salt] = true
	}
}

func TestAuthenticate_PlainMode(t *testing.T) {
	srv := Server{BaseURL: "https://music.example.com", Username: "alice", Password: "sesame", AuthMode: AuthPlain}

	creds, err := Authenticate(srv, time.Now())
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	want := "enc:" + hex.EncodeToString([]byte("sesame"))
	if creds.Password != want {
		t.Errorf("Password = %s, want %s", creds.Password, want)
	}

	v := creds.Values("test")
	if v.Get("p") != want {
		t.Errorf("p = %s, want %s", v.Get("p"), want)
	}
	if v.Has("t") || v.Has("s") {
		t.Errorf("plain mode must not send t or s: %v", v)
	}
}

func TestAuthenticate_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		srv  Server
	}{
		{name: "no url", srv: Server{Username: "alice", Password: "sesame"}},
		{name: "no username", srv: Server{BaseURL: "http://x", Password: "sesame"}},
		{name: "no password", srv: Server{BaseURL: "http://x", Username: "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Authenticate(tt.srv, time.Now())
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("error = %v, want ErrMissingCredentials", err)
			}
			if !errors.Is(err, ErrAuth) {
				t.Errorf("error = %v, want it to match ErrAuth", err)
			}
		})
	}
}

func TestCredentials_Values(t *testing.T) {
	creds := Credentials{Username: "alice", Token: "tok", Salt: "salt"}
	v := creds.Values("test")

	want := map[string]string{
		"u": "alice",
		"t": "tok",
		"s": "salt",
		"v": APIVersion,
		"c": "test",
		"f": "json",
	}
	for k, val := range want {
		if got := v.Get(k); got != val {
			t.Errorf("%s = %q, want %q", k, got, val)
		}
	}
}

func TestParseAuthMode(t *testing.T) {
	tests := []struct {
		in      string
		want    AuthMode
		wantErr bool
	}{
		{in: "", want: AuthToken},
		{in: "token", want: AuthToken},
		{in: "Plain", want: AuthPlain},
		{in: "password", want: AuthPlain},
		{in: "ldap", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAuthMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAuthMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseAuthMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClient_CredentialsPerRequest(t *testing.T) {
	var salts []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("t") != TokenFor("sesame", q.Get("s")) {
			t.Errorf("token %s does not match salt %s", q.Get("t"), q.Get("s"))
		}
		salts = append(salts, q.Get("s"))
		writeOK(t, w, "")
	})

	for i := 0; i < 3; i++ {
		if err := client.Catalog().Ping(t.Context()); err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
	}

	if len(salts) != 3 {
		t.Fatalf("got %d requests, want 3", len(salts))
	}
	if salts[0] == salts[1] || salts[1] == salts[2] {
		t.Errorf("salts reused across requests: %v", salts)
	}
}

func TestClient_WrongCredentials(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeFailed(t, w, ErrCodeWrongCredentials, "Wrong username or password")
	})

	err := client.Catalog().Ping(t.Context())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Errorf("auth error must not match ErrTransport")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != ErrCodeWrongCredentials {
		t.Errorf("expected *Error with code 40, got %v", err)
	}
}
