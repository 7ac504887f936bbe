package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// fakeSubsonic answers /rest/<endpoint> with the payload registered for
// the endpoint and records every query it saw.
type fakeSubsonic struct {
	mu       sync.Mutex
	payloads map[string]string
	queries  map[string]url.Values
}

func newFakeSubsonic(t *testing.T, payloads map[string]string) (*fakeSubsonic, *httptest.Server) {
	t.Helper()
	f := &fakeSubsonic{payloads: payloads, queries: map[string]url.Values{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/rest/")
		f.mu.Lock()
		f.queries[endpoint] = r.URL.Query()
		f.mu.Unlock()

		body, ok := f.payloads[endpoint]
		if !ok {
			body = `"status":"ok"`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"subsonic-response":{"version":"1.16.1",%s}}`, body)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSubsonic) query(endpoint string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[endpoint]
}

// writeConfig writes a config file pointing at serverURL.
func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("server:\n  url: %s\n  username: alice\n  password: sesame\n", serverURL)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runCommand executes the root command with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"NAVISCRIBE_SERVER_URL", "NAVISCRIBE_SERVER_USERNAME", "NAVISCRIBE_SERVER_PASSWORD"} {
		t.Setenv(key, "")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestAlbumsCommand(t *testing.T) {
	fake, srv := newFakeSubsonic(t, map[string]string{
		"getAlbumList2": `"status":"ok","albumList2":{"album":[
			{"id":"al-1","name":"Music Has the Right to Children","artist":"Boards of Canada","year":1998,"duration":4231},
			{"id":"al-2","name":"","starred":"2024-01-01T00:00:00Z"}
		]}`,
	})
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCommand(t, "--config", cfgPath, "--log-level", "error", "albums",
		"--filter", "all", "--offset", "20", "--size", "2", "--output", "json")
	if err != nil {
		t.Fatalf("albums failed: %v", err)
	}

	q := fake.query("getAlbumList2")
	if q == nil {
		t.Fatal("getAlbumList2 was not called")
	}
	if q.Get("type") != "alphabeticalByName" || q.Get("offset") != "20" || q.Get("size") != "2" {
		t.Errorf("unexpected query: %v", q)
	}
	if q.Get("u") != "alice" || q.Get("t") == "" || q.Get("s") == "" {
		t.Errorf("missing credentials in query: %v", q)
	}

	var items []itemJSON
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "Music Has the Right to Children" || items[0].Year != 1998 {
		t.Errorf("first album = %+v", items[0])
	}
	if items[1].Title != "Unknown Album" || items[1].Artist != "Unknown Artist" || !items[1].Favourite {
		t.Errorf("second album = %+v", items[1])
	}
}

func TestStarCommand_Album(t *testing.T) {
	fake, srv := newFakeSubsonic(t, nil)
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCommand(t, "--config", cfgPath, "--log-level", "error", "star", "--kind", "album", "al-1")
	if err != nil {
		t.Fatalf("star failed: %v", err)
	}
	if q := fake.query("star"); q.Get("albumId") != "al-1" || q.Get("id") != "" {
		t.Errorf("unexpected star query: %v", q)
	}
	if !strings.Contains(out, "Starred album al-1") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRateCommand_InvalidRating(t *testing.T) {
	fake, srv := newFakeSubsonic(t, nil)
	cfgPath := writeConfig(t, srv.URL)

	_, err := runCommand(t, "--config", cfgPath, "rate", "tr-1", "six")
	if err == nil {
		t.Fatal("expected error for non-numeric rating")
	}
	if hint := errorHint(err); !strings.Contains(hint, "--help") {
		t.Errorf("errorHint() = %q", hint)
	}
	if fake.query("setRating") != nil {
		t.Error("setRating must not be called for an invalid rating")
	}
}

func TestPingCommand_AuthFailure(t *testing.T) {
	_, srv := newFakeSubsonic(t, map[string]string{
		"ping": `"status":"failed","error":{"code":40,"message":"Wrong username or password"}`,
	})
	cfgPath := writeConfig(t, srv.URL)

	_, err := runCommand(t, "--config", cfgPath, "--log-level", "error", "ping")
	if !errors.Is(err, subsonic.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestPingCommand_MissingServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("page_size: 10\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := runCommand(t, "--config", path, "ping")
	if err == nil {
		t.Fatal("expected error without server settings")
	}
	if hint := errorHint(err); !strings.Contains(hint, "login") {
		t.Errorf("errorHint() = %q", hint)
	}
}

func TestLoginCommand_SavesVerifiedSettings(t *testing.T) {
	fake, srv := newFakeSubsonic(t, nil)
	path := filepath.Join(t.TempDir(), "config.yaml")

	rootCmd.SetIn(strings.NewReader("alice\nsesame\n"))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	out, err := runCommand(t, "--config", path, "login", "--url", srv.URL+"/")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if q := fake.query("ping"); q.Get("u") != "alice" {
		t.Errorf("ping query = %v", q)
	}
	if !strings.Contains(out, "Logged in to "+srv.URL+" as alice") {
		t.Errorf("unexpected output:\n%s", out)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if cfg.Server.URL != srv.URL || cfg.Server.Username != "alice" || cfg.Server.Password != "sesame" {
		t.Errorf("saved server = %+v", cfg.Server)
	}
}

func TestLoginCommand_RejectedCredentialsNotSaved(t *testing.T) {
	_, srv := newFakeSubsonic(t, map[string]string{
		"ping": `"status":"failed","error":{"code":40,"message":"Wrong username or password"}`,
	})
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := runCommand(t, "--config", path, "login",
		"--url", srv.URL, "--username", "alice", "--password", "wrong")
	if !errors.Is(err, subsonic.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("config must not be written, stat err = %v", err)
	}
}

func TestPromptValue(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		flag    string
		current string
		want    string
		wantErr bool
	}{
		{"flag wins", "typed\n", "flag", "current", "flag", false},
		{"typed value", "  typed \n", "", "current", "typed", false},
		{"empty keeps current", "\n", "", "current", "current", false},
		{"eof keeps current", "", "", "current", "current", false},
		{"no trailing newline", "typed", "", "", "typed", false},
		{"required", "\n", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bufio.NewReader(strings.NewReader(tt.input))
			got, err := promptValue(reader, io.Discard, "Username", tt.flag, tt.current)
			if (err != nil) != tt.wantErr {
				t.Fatalf("promptValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("promptValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaylistCreateCommand_WithoutSongs(t *testing.T) {
	fake, srv := newFakeSubsonic(t, map[string]string{
		"createPlaylist": `"status":"ok","playlist":{"id":"pl-7","name":"Later","songCount":0}`,
	})
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCommand(t, "--config", cfgPath, "--log-level", "error", "playlist-create", "Later")
	if err != nil {
		t.Fatalf("playlist-create failed: %v", err)
	}
	q := fake.query("createPlaylist")
	if q.Get("name") != "Later" || len(q["songId"]) != 0 {
		t.Errorf("unexpected createPlaylist query: %v", q)
	}
	if !strings.Contains(out, `Created playlist "Later" (pl-7) with 0 songs`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestAlbumsCommand_YearRange(t *testing.T) {
	fake, srv := newFakeSubsonic(t, map[string]string{
		"getAlbumList2": `"status":"ok","albumList2":{"album":[{"id":"al-3","name":"Geogaddi","year":2002}]}`,
	})
	cfgPath := writeConfig(t, srv.URL)
	t.Cleanup(func() { fromYear, toYear = 0, 0 })

	out, err := runCommand(t, "--config", cfgPath, "--log-level", "error", "--output", "table",
		"albums", "--offset", "0", "--size", "5", "--from-year", "2002")
	if err != nil {
		t.Fatalf("albums failed: %v", err)
	}

	q := fake.query("getAlbumList2")
	if q.Get("type") != "byYear" || q.Get("fromYear") != "2002" || q.Get("toYear") != "2002" {
		t.Errorf("unexpected query: %v", q)
	}
	if !strings.Contains(out, "Geogaddi") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestYearRange(t *testing.T) {
	tests := []struct {
		from, to         int
		wantFrom, wantTo int
	}{
		{2002, 0, 2002, 2002},
		{0, 1998, 1998, 1998},
		{1990, 1999, 1990, 1999},
		{1999, 1990, 1999, 1990},
	}
	for _, tt := range tests {
		from, to := yearRange(tt.from, tt.to)
		if from != tt.wantFrom || to != tt.wantTo {
			t.Errorf("yearRange(%d, %d) = %d, %d, want %d, %d", tt.from, tt.to, from, to, tt.wantFrom, tt.wantTo)
		}
	}
}

func TestPlaylistRenameCommand(t *testing.T) {
	fake, srv := newFakeSubsonic(t, nil)
	cfgPath := writeConfig(t, srv.URL)

	out, err := runCommand(t, "--config", cfgPath, "--log-level", "error", "playlist-rename", "pl-7", "Road", "Trip")
	if err != nil {
		t.Fatalf("playlist-rename failed: %v", err)
	}
	q := fake.query("updatePlaylist")
	if q.Get("playlistId") != "pl-7" || q.Get("name") != "Road Trip" {
		t.Errorf("unexpected updatePlaylist query: %v", q)
	}
	if !strings.Contains(out, `Renamed playlist pl-7 to "Road Trip"`) {
		t.Errorf("unexpected output %q", out)
	}
}
