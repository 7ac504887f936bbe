package subsonic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestCatalogService_AlbumList(t *testing.T) {
	tests := []struct {
		name      string
		opts      AlbumListOptions
		wantType  string
		wantSize  string
		wantGenre string
	}{
		{
			name:     "defaults",
			opts:     AlbumListOptions{},
			wantType: "alphabeticalByName",
			wantSize: "10",
		},
		{
			name:     "newest page",
			opts:     AlbumListOptions{Type: AlbumListNewest, Size: 20, Offset: 40},
			wantType: "newest",
			wantSize: "20",
		},
		{
			name:     "size capped",
			opts:     AlbumListOptions{Type: AlbumListRandom, Size: 1000},
			wantType: "random",
			wantSize: "500",
		},
		{
			name:      "by genre",
			opts:      AlbumListOptions{Type: AlbumListByGenre, Genre: "Rock & Roll"},
			wantType:  "byGenre",
			wantSize:  "10",
			wantGenre: "Rock & Roll",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/rest/getAlbumList2" {
					t.Errorf("path = %s, want /rest/getAlbumList2", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("type") != tt.wantType {
					t.Errorf("type = %s, want %s", q.Get("type"), tt.wantType)
				}
				if q.Get("size") != tt.wantSize {
					t.Errorf("size = %s, want %s", q.Get("size"), tt.wantSize)
				}
				if q.Get("genre") != tt.wantGenre {
					t.Errorf("genre = %s, want %s", q.Get("genre"), tt.wantGenre)
				}
				writeOK(t, w, `"albumList2":{"album":[{"id":"a1","name":"First"},{"id":"a2","name":"Second"}]}`)
			})

			albums, err := client.Catalog().AlbumList(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("AlbumList() error = %v", err)
			}
			if len(albums) != 2 || albums[0].ID != "a1" || albums[1].ID != "a2" {
				t.Errorf("AlbumList() = %+v, want a1, a2 in server order", albums)
			}
		})
	}
}

func TestCatalogService_AlbumList_GenreRequired(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Catalog().AlbumList(context.Background(), AlbumListOptions{Type: AlbumListByGenre})
	if err == nil {
		t.Fatal("expected error for byGenre without genre")
	}
}

func TestCatalogService_AlbumList_Empty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(t, w, `"albumList2":{}`)
	})

	albums, err := client.Catalog().AlbumList(context.Background(), AlbumListOptions{})
	if err != nil {
		t.Fatalf("AlbumList() error = %v", err)
	}
	if len(albums) != 0 {
		t.Errorf("AlbumList() = %+v, want empty", albums)
	}
}

func TestCatalogService_Artists(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(t, w, `"artists":{"ignoredArticles":"The","index":[
			{"name":"A","artist":[{"id":"ar1","name":"ABBA","albumCount":9}]},
			{"name":"B","artist":[{"id":"ar2","name":"Beck"},{"id":"ar3","name":"Björk"}]}
		]}`)
	})

	artists, err := client.Catalog().Artists(context.Background())
	if err != nil {
		t.Fatalf("Artists() error = %v", err)
	}

	want := []string{"ar1", "ar2", "ar3"}
	if len(artists) != len(want) {
		t.Fatalf("got %d artists, want %d", len(artists), len(want))
	}
	for i, id := range want {
		if artists[i].ID != id {
			t.Errorf("artists[%d].ID = %s, want %s", i, artists[i].ID, id)
		}
	}
	if artists[0].AlbumCount != 9 {
		t.Errorf("AlbumCount = %d, want 9", artists[0].AlbumCount)
	}
}

func TestCatalogService_Album(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "al1" {
			t.Errorf("id = %s, want al1", r.URL.Query().Get("id"))
		}
		writeOK(t, w, `"album":{"id":"al1","name":"Blue","artist":"Joni Mitchell","year":1971,
			"song":[{"id":"s1","title":"All I Want","track":1,"duration":213,"starred":"2024-01-01T00:00:00Z"}]}`)
	})

	album, err := client.Catalog().Album(context.Background(), "al1")
	if err != nil {
		t.Fatalf("Album() error = %v", err)
	}
	if album.Name != "Blue" || album.Year != 1971 {
		t.Errorf("Album() = %+v", album.Album)
	}
	if len(album.Songs) != 1 || album.Songs[0].Duration != 213 {
		t.Fatalf("Songs = %+v", album.Songs)
	}
	if !album.Songs[0].IsStarred() {
		t.Errorf("song should be starred")
	}
}

func TestCatalogService_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeFailed(t, w, ErrCodeNotFound, "Album not found")
	})

	_, err := client.Catalog().Album(context.Background(), "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrTransport) {
		t.Errorf("not found must not match other kinds: %v", err)
	}
}

func TestCatalogService_MissingPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(t, w, "")
	})

	_, err := client.Catalog().Playlist(context.Background(), "p1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCatalogService_TransportErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: ErrTransport,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>proxy error</html>"))
			},
			want: ErrTransport,
		},
		{
			name: "missing envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"ok"}`))
			},
			want: ErrTransport,
		},
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: ErrTransport,
		},
		{
			name: "http 401",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			want: ErrAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)

			_, err := client.Catalog().Genres(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCatalogService_ErrorCodes(t *testing.T) {
	sentinels := []error{ErrAuth, ErrTransport, ErrNotFound, ErrConflict}

	tests := []struct {
		code int
		want error
	}{
		{code: ErrCodeGeneric, want: ErrTransport},
		{code: ErrCodeMissingParameter, want: ErrTransport},
		{code: ErrCodeClientTooOld, want: ErrAuth},
		{code: ErrCodeServerTooOld, want: ErrAuth},
		{code: ErrCodeWrongCredentials, want: ErrAuth},
		{code: ErrCodeTokenAuthUnsupported, want: ErrAuth},
		{code: ErrCodeAuthMechanismUnsupported, want: ErrAuth},
		{code: ErrCodeConflictingAuth, want: ErrAuth},
		{code: ErrCodeInvalidAPIKey, want: ErrAuth},
		{code: ErrCodeNotAuthorized, want: ErrAuth},
		{code: ErrCodeTrialExpired, want: ErrAuth},
		{code: ErrCodeNotFound, want: ErrNotFound},
		{code: 99, want: ErrTransport},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code %d", tt.code), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"subsonic-response":{"status":"failed","version":"1.16.1","error":{"code":%d,"message":"failed"}}}`, tt.code)
			})

			_, err := client.Catalog().AlbumList(context.Background(), AlbumListOptions{Type: AlbumListByName})
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Code != tt.code {
				t.Errorf("error = %v, want *Error with code %d", err, tt.code)
			}
			for _, sentinel := range sentinels {
				if got, want := errors.Is(err, sentinel), sentinel == tt.want; got != want {
					t.Errorf("errors.Is(err, %v) = %v, want %v", sentinel, got, want)
				}
			}
		})
	}
}

func TestError_HTTPStatusKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: ErrAuth},
		{status: http.StatusConflict, want: ErrConflict},
		{status: http.StatusBadGateway, want: ErrTransport},
	}

	for _, tt := range tests {
		err := &Error{HTTPStatus: tt.status}
		if !errors.Is(err, tt.want) {
			t.Errorf("HTTP %d: errors.Is(err, %v) = false", tt.status, tt.want)
		}
	}
}

func TestCatalogService_Timeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Catalog().Ping(ctx)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want it to wrap context.DeadlineExceeded", err)
	}
}

func TestCatalogService_Search(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "blue" {
			t.Errorf("query = %s, want blue", q.Get("query"))
		}
		if q.Get("artistCount") != "0" || q.Get("albumCount") != "20" || q.Get("songCount") != "0" {
			t.Errorf("unexpected counts: %v", q)
		}
		writeOK(t, w, `"searchResult3":{"album":[{"id":"al1","name":"Blue"}]}`)
	})

	res, err := client.Catalog().Search(context.Background(), SearchOptions{Query: "blue", AlbumCount: 20})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Albums) != 1 || len(res.Artists) != 0 || len(res.Songs) != 0 {
		t.Errorf("Search() = %+v", res)
	}
}

func TestCatalogService_SongsByGenre(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if !q.Has("genre") || q.Get("genre") != "" {
			t.Errorf("genre = %q, want empty but present", q.Get("genre"))
		}
		if q.Get("count") != "500" || q.Get("offset") != "500" {
			t.Errorf("count/offset = %s/%s", q.Get("count"), q.Get("offset"))
		}
		writeOK(t, w, `"songsByGenre":{"song":[{"id":"s1","title":"One"}]}`)
	})

	songs, err := client.Catalog().SongsByGenre(context.Background(), "", 500, 500)
	if err != nil {
		t.Fatalf("SongsByGenre() error = %v", err)
	}
	if len(songs) != 1 {
		t.Errorf("got %d songs, want 1", len(songs))
	}
}

func TestCatalogService_RadiosAndStarred(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/getInternetRadioStations":
			writeOK(t, w, `"internetRadioStations":{"internetRadioStation":[{"id":"r1","name":"FIP","streamUrl":"http://fip/stream"}]}`)
		case "/rest/getStarred2":
			writeOK(t, w, `"starred2":{"artist":[{"id":"ar1","name":"Beck"}],"song":[{"id":"s1","title":"Loser"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	radios, err := client.Catalog().InternetRadioStations(context.Background())
	if err != nil {
		t.Fatalf("InternetRadioStations() error = %v", err)
	}
	if len(radios) != 1 || radios[0].StreamURL != "http://fip/stream" {
		t.Errorf("radios = %+v", radios)
	}

	starred, err := client.Catalog().Starred(context.Background())
	if err != nil {
		t.Fatalf("Starred() error = %v", err)
	}
	if len(starred.Artists) != 1 || len(starred.Songs) != 1 || len(starred.Albums) != 0 {
		t.Errorf("starred = %+v", starred)
	}
}
