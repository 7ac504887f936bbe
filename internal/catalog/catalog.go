// Package catalog browses the music server's catalog and returns normalised
// Items. Reads are never cached, retried or re-sorted: results come back
// in server order, one request per call.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// AlbumFilter selects which albums ListAlbums returns.
type AlbumFilter int

const (
	FilterAll AlbumFilter = iota
	FilterRandom
	FilterFavourites
	FilterTopRated
	FilterRecentlyAdded
	FilterRecentlyPlayed
	FilterMostPlayed
	FilterByArtist
)

var filterNames = map[AlbumFilter]string{
	FilterAll:            "all",
	FilterRandom:         "random",
	FilterFavourites:     "favourites",
	FilterTopRated:       "top-rated",
	FilterRecentlyAdded:  "recently-added",
	FilterRecentlyPlayed: "recently-played",
	FilterMostPlayed:     "most-played",
	FilterByArtist:       "by-artist",
}

func (f AlbumFilter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return "unknown"
}

// listType maps the filter onto getAlbumList2.
func (f AlbumFilter) listType() subsonic.AlbumListType {
	switch f {
	case FilterRandom:
		return subsonic.AlbumListRandom
	case FilterFavourites:
		return subsonic.AlbumListStarred
	case FilterTopRated:
		return subsonic.AlbumListHighest
	case FilterRecentlyAdded:
		return subsonic.AlbumListNewest
	case FilterRecentlyPlayed:
		return subsonic.AlbumListRecent
	case FilterMostPlayed:
		return subsonic.AlbumListFrequent
	case FilterByArtist:
		return subsonic.AlbumListByArtist
	default:
		return subsonic.AlbumListByName
	}
}

// ParseAlbumFilter converts a command line word into an AlbumFilter.
func ParseAlbumFilter(s string) (AlbumFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for f, name := range filterNames {
		if s == name {
			return f, nil
		}
	}
	return FilterAll, fmt.Errorf("unknown album filter %q (want %s)", s, strings.Join(FilterNames(), ", "))
}

// FilterNames lists the accepted filter words in declaration order.
func FilterNames() []string {
	names := make([]string, 0, len(filterNames))
	for f := FilterAll; f <= FilterByArtist; f++ {
		names = append(names, filterNames[f])
	}
	return names
}

// Scope restricts a search to one kind of result.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeArtists
	ScopeAlbums
	ScopeSongs
)

// ParseScope converts a command line word into a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ScopeAll, nil
	case "artist", "artists":
		return ScopeArtists, nil
	case "album", "albums":
		return ScopeAlbums, nil
	case "song", "songs":
		return ScopeSongs, nil
	default:
		return ScopeAll, fmt.Errorf("unknown search scope %q", s)
	}
}

// Result counts requested from search3.
const (
	searchArtistCount = 10
	searchAlbumCount  = 20
	searchSongCount   = 50
)

// Client lists catalog content.
type Client struct {
	api    *subsonic.Client
	native *subsonic.NativeClient
	logger zerolog.Logger
}

// New creates a catalog client. native may be nil, in which case ListSongs
// always uses the Subsonic API.
func New(api *subsonic.Client, native *subsonic.NativeClient, logger zerolog.Logger) *Client {
	return &Client{
		api:    api,
		native: native,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Ping checks that the server is reachable and accepts the credentials.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.api.Catalog().Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ListAlbums returns one page of albums selected by filter.
func (c *Client) ListAlbums(ctx context.Context, filter AlbumFilter, offset, size int) ([]Item, error) {
	albums, err := c.api.Catalog().AlbumList(ctx, subsonic.AlbumListOptions{
		Type:   filter.listType(),
		Size:   size,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s albums: %w", filter, err)
	}
	return normalize(albums, fromAlbum), nil
}

// ListAlbumsByGenre returns one page of albums tagged genre.
func (c *Client) ListAlbumsByGenre(ctx context.Context, genre string, offset, size int) ([]Item, error) {
	albums, err := c.api.Catalog().AlbumList(ctx, subsonic.AlbumListOptions{
		Type:   subsonic.AlbumListByGenre,
		Genre:  genre,
		Size:   size,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list albums of genre %s: %w", genre, err)
	}
	return normalize(albums, fromAlbum), nil
}

// ListAlbumsByYear returns one page of albums released between fromYear
// and toYear. A fromYear after toYear lists the range newest first.
func (c *Client) ListAlbumsByYear(ctx context.Context, fromYear, toYear, offset, size int) ([]Item, error) {
	albums, err := c.api.Catalog().AlbumList(ctx, subsonic.AlbumListOptions{
		Type:     subsonic.AlbumListByYear,
		FromYear: fromYear,
		ToYear:   toYear,
		Size:     size,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list albums from %d to %d: %w", fromYear, toYear, err)
	}
	return normalize(albums, fromAlbum), nil
}

// ListArtists returns every artist.
func (c *Client) ListArtists(ctx context.Context) ([]Item, error) {
	artists, err := c.api.Catalog().Artists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	return normalize(artists, fromArtist), nil
}

// ArtistAlbums returns the albums of an artist.
func (c *Client) ArtistAlbums(ctx context.Context, artistID string) ([]Item, error) {
	artist, err := c.api.Catalog().Artist(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("get artist %s: %w", artistID, err)
	}
	return normalize(artist.Albums, fromAlbum), nil
}

// AlbumSongs returns the songs of an album in track order.
func (c *Client) AlbumSongs(ctx context.Context, albumID string) ([]Item, error) {
	album, err := c.api.Catalog().Album(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("get album %s: %w", albumID, err)
	}
	return normalize(album.Songs, fromSong), nil
}

// Song returns a single song.
func (c *Client) Song(ctx context.Context, id string) (Item, error) {
	song, err := c.api.Catalog().Song(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("get song %s: %w", id, err)
	}
	item, ok := fromSong(*song)
	if !ok {
		return Item{}, fmt.Errorf("get song %s: %w", id, subsonic.ErrNotFound)
	}
	return item, nil
}

// ListGenres returns every genre.
func (c *Client) ListGenres(ctx context.Context) ([]Item, error) {
	genres, err := c.api.Catalog().Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return normalize(genres, fromGenre), nil
}

// ListSongsByGenre returns one page of songs tagged genre.
func (c *Client) ListSongsByGenre(ctx context.Context, genre string, offset, size int) ([]Item, error) {
	songs, err := c.api.Catalog().SongsByGenre(ctx, genre, size, offset)
	if err != nil {
		return nil, fmt.Errorf("list songs of genre %s: %w", genre, err)
	}
	return normalize(songs, fromSong), nil
}

// ListSongs returns one page of all songs sorted by title. It prefers the
// Navidrome native API and falls back to getSongsByGenre with an empty
// genre, which Navidrome answers with every song.
func (c *Client) ListSongs(ctx context.Context, offset, size int) ([]Item, error) {
	if c.native != nil {
		songs, err := c.native.Songs(ctx, offset, size)
		if err == nil {
			items := make([]Item, 0, len(songs))
			for _, s := range songs {
				if item, ok := fromSong(s.Song()); ok {
					items = append(items, item)
				}
			}
			return items, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("list songs: %w", err)
		}
		c.logger.Warn().Err(err).Msg("Native API listing failed, falling back to Subsonic API")
	}

	songs, err := c.api.Catalog().SongsByGenre(ctx, "", size, offset)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return normalize(songs, fromSong), nil
}

// ListPlaylists returns the playlists visible to the user.
func (c *Client) ListPlaylists(ctx context.Context) ([]Item, error) {
	playlists, err := c.api.Catalog().Playlists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return normalize(playlists, fromPlaylist), nil
}

// PlaylistSongs returns the entries of a playlist in playlist order.
// Duplicated entries are kept.
func (c *Client) PlaylistSongs(ctx context.Context, playlistID string) ([]Item, error) {
	pl, err := c.api.Catalog().Playlist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", playlistID, err)
	}
	return normalize(pl.Entries, fromSong), nil
}

// ListRadios returns the internet radio stations.
func (c *Client) ListRadios(ctx context.Context) ([]Item, error) {
	stations, err := c.api.Catalog().InternetRadioStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list radios: %w", err)
	}
	return normalize(stations, fromRadio), nil
}

// Favourites returns starred artists, then albums, then songs.
func (c *Client) Favourites(ctx context.Context) ([]Item, error) {
	starred, err := c.api.Catalog().Starred(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favourites: %w", err)
	}
	items := normalize(starred.Artists, fromArtist)
	items = append(items, normalize(starred.Albums, fromAlbum)...)
	items = append(items, normalize(starred.Songs, fromSong)...)
	return items, nil
}

// Search returns artists, then albums, then songs matching query.
func (c *Client) Search(ctx context.Context, query string, scope Scope) ([]Item, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search: query must not be empty")
	}

	opts := subsonic.SearchOptions{Query: query}
	if scope == ScopeAll || scope == ScopeArtists {
		opts.ArtistCount = searchArtistCount
	}
	if scope == ScopeAll || scope == ScopeAlbums {
		opts.AlbumCount = searchAlbumCount
	}
	if scope == ScopeAll || scope == ScopeSongs {
		opts.SongCount = searchSongCount
	}

	res, err := c.api.Catalog().Search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	items := normalize(res.Artists, fromArtist)
	items = append(items, normalize(res.Albums, fromAlbum)...)
	items = append(items, normalize(res.Songs, fromSong)...)
	return items, nil
}
