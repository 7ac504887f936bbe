package subsonic

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// LibraryService provides operations that modify server side state.
type LibraryService struct {
	client *Client
}

// StarTarget names the items a star or unstar request applies to.
// Songs go in IDs, albums in AlbumIDs and artists in ArtistIDs.
type StarTarget struct {
	IDs       []string
	AlbumIDs  []string
	ArtistIDs []string
}

func (t StarTarget) empty() bool {
	return len(t.IDs) == 0 && len(t.AlbumIDs) == 0 && len(t.ArtistIDs) == 0
}

func (t StarTarget) values() url.Values {
	params := url.Values{}
	for _, id := range t.IDs {
		params.Add("id", id)
	}
	for _, id := range t.AlbumIDs {
		params.Add("albumId", id)
	}
	for _, id := range t.ArtistIDs {
		params.Add("artistId", id)
	}
	return params
}

// Star marks items as favourites. Starring an already starred item is a
// no-op on the server.
func (s *LibraryService) Star(ctx context.Context, target StarTarget) error {
	if target.empty() {
		return fmt.Errorf("subsonic: star requires at least one id")
	}
	return s.client.call(ctx, "star", target.values(), nil)
}

// Unstar removes items from the favourites.
func (s *LibraryService) Unstar(ctx context.Context, target StarTarget) error {
	if target.empty() {
		return fmt.Errorf("subsonic: unstar requires at least one id")
	}
	return s.client.call(ctx, "unstar", target.values(), nil)
}

// SetRating sets the user rating of an item. A rating of 0 removes it.
func (s *LibraryService) SetRating(ctx context.Context, id string, rating int) error {
	if rating < 0 || rating > 5 {
		return fmt.Errorf("subsonic: rating must be between 0 and 5, got %d", rating)
	}
	params := url.Values{}
	params.Set("id", id)
	params.Set("rating", strconv.Itoa(rating))
	return s.client.call(ctx, "setRating", params, nil)
}

// CreatePlaylist creates a playlist holding songIDs in order.
//
// The server does not enforce unique names; two calls with the same name
// create two playlists. Servers older than 1.14.0 return no playlist, in
// which case the result only carries the name.
func (s *LibraryService) CreatePlaylist(ctx context.Context, name string, songIDs []string) (*PlaylistWithSongs, error) {
	params := url.Values{}
	params.Set("name", name)
	for _, id := range songIDs {
		params.Add("songId", id)
	}

	var resp struct {
		Playlist *PlaylistWithSongs `json:"playlist"`
	}
	if err := s.client.call(ctx, "createPlaylist", params, &resp); err != nil {
		return nil, err
	}
	if resp.Playlist == nil {
		return &PlaylistWithSongs{Playlist: Playlist{Name: name, SongCount: len(songIDs)}}, nil
	}
	return resp.Playlist, nil
}

// AddToPlaylist appends songIDs to the end of playlistID.
func (s *LibraryService) AddToPlaylist(ctx context.Context, playlistID string, songIDs []string) error {
	params := url.Values{}
	params.Set("playlistId", playlistID)
	for _, id := range songIDs {
		params.Add("songIdToAdd", id)
	}
	return s.client.call(ctx, "updatePlaylist", params, nil)
}

// RenamePlaylist changes the name of playlistID.
func (s *LibraryService) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	params := url.Values{}
	params.Set("playlistId", playlistID)
	params.Set("name", name)
	return s.client.call(ctx, "updatePlaylist", params, nil)
}

// DeletePlaylist removes a playlist.
func (s *LibraryService) DeletePlaylist(ctx context.Context, playlistID string) error {
	return s.client.call(ctx, "deletePlaylist", url.Values{"id": {playlistID}}, nil)
}
