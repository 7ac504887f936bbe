package subsonic

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// CatalogService provides read-only browsing operations.
type CatalogService struct {
	client *Client
}

// AlbumListType selects the ordering of getAlbumList2.
type AlbumListType string

// Album list types understood by getAlbumList2.
const (
	AlbumListRandom       AlbumListType = "random"
	AlbumListNewest       AlbumListType = "newest"
	AlbumListHighest      AlbumListType = "highest"
	AlbumListFrequent     AlbumListType = "frequent"
	AlbumListRecent       AlbumListType = "recent"
	AlbumListStarred      AlbumListType = "starred"
	AlbumListByName       AlbumListType = "alphabeticalByName"
	AlbumListByArtist     AlbumListType = "alphabeticalByArtist"
	AlbumListByGenre      AlbumListType = "byGenre"
	AlbumListByYear       AlbumListType = "byYear"
	defaultAlbumListSize                = 10
	maxAlbumListSize                    = 500
	defaultSongsByGenreSz               = 10
)

// AlbumListOptions are the getAlbumList2 parameters.
type AlbumListOptions struct {
	Type     AlbumListType
	Size     int    // 1-500, defaults to 10
	Offset   int    // paging offset
	Genre    string // required for AlbumListByGenre
	FromYear int    // required for AlbumListByYear
	ToYear   int    // required for AlbumListByYear
}

// SearchOptions are the search3 parameters. A zero count excludes that
// result kind from the response.
type SearchOptions struct {
	Query        string
	ArtistCount  int
	ArtistOffset int
	AlbumCount   int
	AlbumOffset  int
	SongCount    int
	SongOffset   int
}

// Ping checks connectivity and credentials.
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.client.call(ctx, "ping", nil, nil)
}

// AlbumList returns albums ordered by the server according to opts.Type.
func (s *CatalogService) AlbumList(ctx context.Context, opts AlbumListOptions) ([]Album, error) {
	if opts.Type == "" {
		opts.Type = AlbumListByName
	}
	size := opts.Size
	if size <= 0 {
		size = defaultAlbumListSize
	}
	if size > maxAlbumListSize {
		size = maxAlbumListSize
	}

	params := url.Values{}
	params.Set("type", string(opts.Type))
	params.Set("size", strconv.Itoa(size))
	params.Set("offset", strconv.Itoa(opts.Offset))

	switch opts.Type {
	case AlbumListByGenre:
		if opts.Genre == "" {
			return nil, fmt.Errorf("subsonic: genre is required for %s album lists", opts.Type)
		}
		params.Set("genre", opts.Genre)
	case AlbumListByYear:
		params.Set("fromYear", strconv.Itoa(opts.FromYear))
		params.Set("toYear", strconv.Itoa(opts.ToYear))
	}

	var resp struct {
		AlbumList2 struct {
			Albums []Album `json:"album"`
		} `json:"albumList2"`
	}
	if err := s.client.call(ctx, "getAlbumList2", params, &resp); err != nil {
		return nil, err
	}
	return resp.AlbumList2.Albums, nil
}

// Artists returns every artist, flattened from the alphabetical index.
func (s *CatalogService) Artists(ctx context.Context) ([]Artist, error) {
	var resp struct {
		Artists struct {
			Index []struct {
				Name    string   `json:"name"`
				Artists []Artist `json:"artist"`
			} `json:"index"`
		} `json:"artists"`
	}
	if err := s.client.call(ctx, "getArtists", nil, &resp); err != nil {
		return nil, err
	}

	var artists []Artist
	for _, idx := range resp.Artists.Index {
		artists = append(artists, idx.Artists...)
	}
	return artists, nil
}

// Artist returns an artist with its albums.
func (s *CatalogService) Artist(ctx context.Context, id string) (*ArtistWithAlbums, error) {
	var resp struct {
		Artist *ArtistWithAlbums `json:"artist"`
	}
	if err := s.client.call(ctx, "getArtist", url.Values{"id": {id}}, &resp); err != nil {
		return nil, err
	}
	if resp.Artist == nil {
		return nil, missing("artist", id)
	}
	return resp.Artist, nil
}

// Album returns an album with its songs.
func (s *CatalogService) Album(ctx context.Context, id string) (*AlbumWithSongs, error) {
	var resp struct {
		Album *AlbumWithSongs `json:"album"`
	}
	if err := s.client.call(ctx, "getAlbum", url.Values{"id": {id}}, &resp); err != nil {
		return nil, err
	}
	if resp.Album == nil {
		return nil, missing("album", id)
	}
	return resp.Album, nil
}

// Song returns a single song.
func (s *CatalogService) Song(ctx context.Context, id string) (*Song, error) {
	var resp struct {
		Song *Song `json:"song"`
	}
	if err := s.client.call(ctx, "getSong", url.Values{"id": {id}}, &resp); err != nil {
		return nil, err
	}
	if resp.Song == nil {
		return nil, missing("song", id)
	}
	return resp.Song, nil
}

// Genres returns every genre.
func (s *CatalogService) Genres(ctx context.Context) ([]Genre, error) {
	var resp struct {
		Genres struct {
			Genres []Genre `json:"genre"`
		} `json:"genres"`
	}
	if err := s.client.call(ctx, "getGenres", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Genres.Genres, nil
}

// SongsByGenre returns songs of genre. Navidrome treats an empty genre
// as "all songs".
func (s *CatalogService) SongsByGenre(ctx context.Context, genre string, count, offset int) ([]Song, error) {
	if count <= 0 {
		count = defaultSongsByGenreSz
	}
	params := url.Values{}
	params.Set("genre", genre)
	params.Set("count", strconv.Itoa(count))
	params.Set("offset", strconv.Itoa(offset))

	var resp struct {
		SongsByGenre struct {
			Songs []Song `json:"song"`
		} `json:"songsByGenre"`
	}
	if err := s.client.call(ctx, "getSongsByGenre", params, &resp); err != nil {
		return nil, err
	}
	return resp.SongsByGenre.Songs, nil
}

// Playlists returns the playlists visible to the user.
func (s *CatalogService) Playlists(ctx context.Context) ([]Playlist, error) {
	var resp struct {
		Playlists struct {
			Playlists []Playlist `json:"playlist"`
		} `json:"playlists"`
	}
	if err := s.client.call(ctx, "getPlaylists", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Playlists.Playlists, nil
}

// Playlist returns a playlist with its entries.
func (s *CatalogService) Playlist(ctx context.Context, id string) (*PlaylistWithSongs, error) {
	var resp struct {
		Playlist *PlaylistWithSongs `json:"playlist"`
	}
	if err := s.client.call(ctx, "getPlaylist", url.Values{"id": {id}}, &resp); err != nil {
		return nil, err
	}
	if resp.Playlist == nil {
		return nil, missing("playlist", id)
	}
	return resp.Playlist, nil
}

// InternetRadioStations returns the configured radio stations.
func (s *CatalogService) InternetRadioStations(ctx context.Context) ([]InternetRadioStation, error) {
	var resp struct {
		Stations struct {
			Stations []InternetRadioStation `json:"internetRadioStation"`
		} `json:"internetRadioStations"`
	}
	if err := s.client.call(ctx, "getInternetRadioStations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stations.Stations, nil
}

// Search runs search3.
func (s *CatalogService) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", opts.Query)
	params.Set("artistCount", strconv.Itoa(opts.ArtistCount))
	params.Set("artistOffset", strconv.Itoa(opts.ArtistOffset))
	params.Set("albumCount", strconv.Itoa(opts.AlbumCount))
	params.Set("albumOffset", strconv.Itoa(opts.AlbumOffset))
	params.Set("songCount", strconv.Itoa(opts.SongCount))
	params.Set("songOffset", strconv.Itoa(opts.SongOffset))

	var resp struct {
		SearchResult3 SearchResult `json:"searchResult3"`
	}
	if err := s.client.call(ctx, "search3", params, &resp); err != nil {
		return nil, err
	}
	return &resp.SearchResult3, nil
}

// Starred returns the user's starred artists, albums and songs.
func (s *CatalogService) Starred(ctx context.Context) (*Starred, error) {
	var resp struct {
		Starred2 Starred `json:"starred2"`
	}
	if err := s.client.call(ctx, "getStarred2", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Starred2, nil
}

// missing reports an ok response that lacked the requested object, which
// some servers return instead of error 70.
func missing(kind, id string) error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %s not found", kind, id)}
}
