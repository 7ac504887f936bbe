package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

func okBody(payload string) string {
	body := `{"subsonic-response":{"status":"ok","version":"1.16.1"`
	if payload != "" {
		body += "," + payload
	}
	return body + "}}"
}

// newTestCatalog serves routes keyed by request path ("/rest/getAlbumList2").
func newTestCatalog(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := routes[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	api, err := subsonic.NewClient(subsonic.Config{
		Source: subsonic.StaticSource{BaseURL: server.URL, Username: "alice", Password: "sesame"},
	})
	require.NoError(t, err)

	return New(api, nil, zerolog.Nop())
}

func respond(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody(body)))
	}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestListAlbums_RecentlyAddedFiveAlbums(t *testing.T) {
	var query map[string]string
	client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
		"/rest/getAlbumList2": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			query = map[string]string{"type": q.Get("type"), "size": q.Get("size"), "offset": q.Get("offset")}
			// Deliberately not alphabetical: the client must keep server order.
			respond(`"albumList2":{"album":[
				{"id":"e","name":"Echo"},{"id":"b","name":"Bravo"},{"id":"d","name":"Delta"},
				{"id":"a","name":"Alpha"},{"id":"c","name":"Charlie"}]}`)(w, r)
		},
	})

	items, err := client.ListAlbums(context.Background(), FilterRecentlyAdded, 0, 20)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"type": "newest", "size": "20", "offset": "0"}, query)
	assert.Equal(t, []string{"e", "b", "d", "a", "c"}, ids(items))
	for _, item := range items {
		assert.Equal(t, KindAlbum, item.Kind)
	}
}

func TestListAlbums_FilterMapping(t *testing.T) {
	want := map[AlbumFilter]string{
		FilterAll:            "alphabeticalByName",
		FilterRandom:         "random",
		FilterFavourites:     "starred",
		FilterTopRated:       "highest",
		FilterRecentlyAdded:  "newest",
		FilterRecentlyPlayed: "recent",
		FilterMostPlayed:     "frequent",
		FilterByArtist:       "alphabeticalByArtist",
	}

	for filter, listType := range want {
		t.Run(filter.String(), func(t *testing.T) {
			var got string
			client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
				"/rest/getAlbumList2": func(w http.ResponseWriter, r *http.Request) {
					got = r.URL.Query().Get("type")
					respond(`"albumList2":{}`)(w, r)
				},
			})

			_, err := client.ListAlbums(context.Background(), filter, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, listType, got)
		})
	}
}

func TestListAlbumsByYear(t *testing.T) {
	var q url.Values
	client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
		"/rest/getAlbumList2": func(w http.ResponseWriter, r *http.Request) {
			q = r.URL.Query()
			respond(`"albumList2":{"album":[{"id":"x","name":"X","year":1994}]}`)(w, r)
		},
	})

	items, err := client.ListAlbumsByYear(context.Background(), 1999, 1990, 0, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1994, items[0].Year)
	assert.Equal(t, "byYear", q.Get("type"))
	assert.Equal(t, "1999", q.Get("fromYear"))
	assert.Equal(t, "1990", q.Get("toYear"))
	assert.Equal(t, "20", q.Get("size"))
}

func TestListAlbums_IdempotentReads(t *testing.T) {
	client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
		"/rest/getAlbumList2": respond(`"albumList2":{"album":[{"id":"x","name":"X"},{"id":"y","name":"Y"}]}`),
	})

	first, err := client.ListAlbums(context.Background(), FilterMostPlayed, 10, 2)
	require.NoError(t, err)
	second, err := client.ListAlbums(context.Background(), FilterMostPlayed, 10, 2)
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
}

func TestNormalisation_NonEmptyIDAndTitle(t *testing.T) {
	client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
		"/rest/getAlbumList2": respond(`"albumList2":{"album":[{"id":"","name":"Ghost"},{"id":"a1","name":""},{"id":"a2","name":"Named"}]}`),
		"/rest/getArtists":    respond(`"artists":{"index":[{"name":"#","artist":[{"id":"ar1","name":""},{"id":"","name":"Nobody"}]}]}`),
		"/rest/getGenres":     respond(`"genres":{"genre":[{"value":"","songCount":3},{"value":"Jazz","songCount":5}]}`),
		"/rest/getPlaylists":  respond(`"playlists":{"playlist":[{"id":"p1","name":""}]}`),
		"/rest/getInternetRadioStations": respond(
			`"internetRadioStations":{"internetRadioStation":[{"id":"r1","name":"","streamUrl":"http://r"}]}`),
		"/rest/getAlbum": respond(`"album":{"id":"a1","name":"A","song":[{"id":"s1","title":""},{"id":"","title":"Lost"}]}`),
	})
	ctx := context.Background()

	var all []Item
	albums, err := client.ListAlbums(ctx, FilterAll, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids(albums))
	assert.Equal(t, "Unknown Album", albums[0].Title)
	assert.Equal(t, "Unknown Artist", albums[0].Artist)
	all = append(all, albums...)

	artists, err := client.ListArtists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ar1"}, ids(artists))
	all = append(all, artists...)

	genres, err := client.ListGenres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jazz"}, ids(genres))
	all = append(all, genres...)

	playlists, err := client.ListPlaylists(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Unnamed Playlist", playlists[0].Title)
	all = append(all, playlists...)

	radios, err := client.ListRadios(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://r", radios[0].StreamURL)
	all = append(all, radios...)

	songs, err := client.AlbumSongs(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(songs))
	assert.Equal(t, "Unknown Title", songs[0].Title)
	all = append(all, songs...)

	for _, item := range all {
		assert.NotEmpty(t, item.ID, "%s item has empty id", item.Kind)
		assert.NotEmpty(t, item.Title, "%s item %s has empty title", item.Kind, item.ID)
	}
}

func TestAuthRejectionIsAuthError(t *testing.T) {
	failed := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"subsonic-response":{"status":"failed","version":"1.16.1",` +
			`"error":{"code":40,"message":"Wrong username or password"}}}`))
	}
	notAuthorized := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"subsonic-response":{"status":"failed","version":"1.16.1",` +
			`"error":{"code":50,"message":"User not authorized"}}}`))
	}
	unauthorized := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	for name, handler := range map[string]func(http.ResponseWriter, *http.Request){
		"subsonic code 40": failed,
		"subsonic code 50": notAuthorized,
		"http 401":         unauthorized,
	} {
		t.Run(name, func(t *testing.T) {
			routes := map[string]func(http.ResponseWriter, *http.Request){}
			for _, path := range []string{
				"/rest/ping", "/rest/getAlbumList2", "/rest/getArtists", "/rest/getGenres",
				"/rest/getPlaylists", "/rest/getInternetRadioStations", "/rest/getStarred2",
				"/rest/search3", "/rest/getSongsByGenre",
			} {
				routes[path] = handler
			}
			client := newTestCatalog(t, routes)
			ctx := context.Background()

			calls := map[string]func() error{
				"Ping":          func() error { return client.Ping(ctx) },
				"ListAlbums":    func() error { _, err := client.ListAlbums(ctx, FilterAll, 0, 10); return err },
				"ListArtists":   func() error { _, err := client.ListArtists(ctx); return err },
				"ListGenres":    func() error { _, err := client.ListGenres(ctx); return err },
				"ListPlaylists": func() error { _, err := client.ListPlaylists(ctx); return err },
				"ListRadios":    func() error { _, err := client.ListRadios(ctx); return err },
				"Favourites":    func() error { _, err := client.Favourites(ctx); return err },
				"Search":        func() error { _, err := client.Search(ctx, "x", ScopeAll); return err },
				"ListSongs":     func() error { _, err := client.ListSongs(ctx, 0, 10); return err },
			}

			for callName, call := range calls {
				err := call()
				assert.ErrorIs(t, err, subsonic.ErrAuth, callName)
				assert.NotErrorIs(t, err, subsonic.ErrTransport, callName)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
		"/rest/getArtist": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"subsonic-response":{"status":"failed","version":"1.16.1",` +
				`"error":{"code":70,"message":"Artist not found"}}}`))
		},
	})

	_, err := client.ArtistAlbums(context.Background(), "ar-gone")
	assert.ErrorIs(t, err, subsonic.ErrNotFound)
}

func TestSearch_Scopes(t *testing.T) {
	tests := []struct {
		scope                   Scope
		artists, albums, tracks string
	}{
		{scope: ScopeAll, artists: "10", albums: "20", tracks: "50"},
		{scope: ScopeArtists, artists: "10", albums: "0", tracks: "0"},
		{scope: ScopeAlbums, artists: "0", albums: "20", tracks: "0"},
		{scope: ScopeSongs, artists: "0", albums: "0", tracks: "50"},
	}

	for _, tt := range tests {
		var got [3]string
		client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
			"/rest/search3": func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				got = [3]string{q.Get("artistCount"), q.Get("albumCount"), q.Get("songCount")}
				respond(`"searchResult3":{
					"artist":[{"id":"ar1","name":"Miles"}],
					"album":[{"id":"al1","name":"Kind of Blue"}],
					"song":[{"id":"s1","title":"So What"}]}`)(w, r)
			},
		})

		items, err := client.Search(context.Background(), "blue", tt.scope)
		require.NoError(t, err)
		assert.Equal(t, [3]string{tt.artists, tt.albums, tt.tracks}, got)
		assert.Equal(t, []Kind{KindArtist, KindAlbum, KindSong},
			[]Kind{items[0].Kind, items[1].Kind, items[2].Kind})
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := newTestCatalog(t, nil)

	_, err := client.Search(context.Background(), "  ", ScopeAll)
	assert.Error(t, err)
}

func TestListSongs_SubsonicFallback(t *testing.T) {
	client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
		"/rest/getSongsByGenre": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "", q.Get("genre"))
			assert.Equal(t, "100", q.Get("count"))
			assert.Equal(t, "200", q.Get("offset"))
			respond(`"songsByGenre":{"song":[{"id":"s1","title":"One","album":"A","albumId":"al1"}]}`)(w, r)
		},
	})

	items, err := client.ListSongs(context.Background(), 200, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "al1", items[0].ParentID)
}

func TestListSongs_NativeFallsBackOnFailure(t *testing.T) {
	var subsonicCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			w.WriteHeader(http.StatusInternalServerError)
		case "/rest/getSongsByGenre":
			subsonicCalls++
			_, _ = w.Write([]byte(okBody(`"songsByGenre":{"song":[{"id":"s1","title":"One"}]}`)))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	api, err := subsonic.NewClient(subsonic.Config{
		Source: subsonic.StaticSource{BaseURL: server.URL, Username: "alice", Password: "sesame"},
	})
	require.NoError(t, err)
	client := New(api, subsonic.NewNativeClient(api), zerolog.Nop())

	items, err := client.ListSongs(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(items))
	assert.Equal(t, 1, subsonicCalls)
}

func TestListSongs_Native(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_, _ = w.Write([]byte(`{"token":"jwt"}`))
		case "/api/song":
			_, _ = w.Write([]byte(`[{"id":"n1","title":"Native","albumId":"al9","duration":90},{"id":"","title":"skip"}]`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	api, err := subsonic.NewClient(subsonic.Config{
		Source: subsonic.StaticSource{BaseURL: server.URL, Username: "alice", Password: "sesame"},
	})
	require.NoError(t, err)
	client := New(api, subsonic.NewNativeClient(api), zerolog.Nop())

	items, err := client.ListSongs(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, ids(items))
	assert.Equal(t, "al9", items[0].Artwork)
}

func TestFavourites(t *testing.T) {
	client := newTestCatalog(t, map[string]func(http.ResponseWriter, *http.Request){
		"/rest/getStarred2": respond(`"starred2":{
			"song":[{"id":"s1","title":"T","starred":"2024-01-01T00:00:00Z"}],
			"album":[{"id":"al1","name":"A","starred":"2024-01-01T00:00:00Z"}],
			"artist":[{"id":"ar1","name":"R","starred":"2024-01-01T00:00:00Z"}]}`),
	})

	items, err := client.Favourites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ar1", "al1", "s1"}, ids(items))
	for _, item := range items {
		assert.True(t, item.Favourite)
	}
}

func TestParseAlbumFilter(t *testing.T) {
	for _, name := range FilterNames() {
		f, err := ParseAlbumFilter(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.String())
	}

	f, err := ParseAlbumFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseAlbumFilter("loudest")
	assert.Error(t, err)
}

func TestParseKindAndScope(t *testing.T) {
	k, err := ParseKind("Albums")
	require.NoError(t, err)
	assert.Equal(t, KindAlbum, k)

	_, err = ParseKind("podcast")
	assert.Error(t, err)

	s, err := ParseScope("songs")
	require.NoError(t, err)
	assert.Equal(t, ScopeSongs, s)
}
