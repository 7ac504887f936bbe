// Package library changes server side user data: favourites, ratings and
// playlists.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/naviscribe/internal/catalog"
	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// ErrInvalidArgument is returned before any request is made when an
// argument is empty or out of range.
var ErrInvalidArgument = errors.New("invalid argument")

// Client performs library mutations.
type Client struct {
	api    *subsonic.Client
	logger zerolog.Logger
}

// New creates a library client.
func New(api *subsonic.Client, logger zerolog.Logger) *Client {
	return &Client{
		api:    api,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// SetFavourite stars or unstars an item. Starring a starred item and
// unstarring an unstarred one both succeed without changing anything.
func (c *Client) SetFavourite(ctx context.Context, kind catalog.Kind, id string, starred bool) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id must not be empty", ErrInvalidArgument)
	}

	var target subsonic.StarTarget
	switch kind {
	case catalog.KindSong:
		target.IDs = []string{id}
	case catalog.KindAlbum:
		target.AlbumIDs = []string{id}
	case catalog.KindArtist:
		target.ArtistIDs = []string{id}
	default:
		return fmt.Errorf("%w: cannot favourite a %s", ErrInvalidArgument, kind)
	}

	var err error
	if starred {
		err = c.api.Library().Star(ctx, target)
	} else {
		err = c.api.Library().Unstar(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("set favourite %s %s: %w", kind, id, err)
	}

	c.logger.Debug().Str("kind", kind.String()).Str("id", id).Bool("starred", starred).Msg("Favourite updated")
	return nil
}

// SetRating rates an item from 1 to 5 stars; 0 clears the rating.
func (c *Client) SetRating(ctx context.Context, id string, rating int) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id must not be empty", ErrInvalidArgument)
	}
	if rating < 0 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5, got %d", ErrInvalidArgument, rating)
	}

	if err := c.api.Library().SetRating(ctx, id, rating); err != nil {
		return fmt.Errorf("set rating of %s: %w", id, err)
	}
	return nil
}

// CreatePlaylist creates a playlist of itemIDs in order. itemIDs may be
// empty. Names are not unique: calling it twice with the same name creates
// two playlists.
func (c *Client) CreatePlaylist(ctx context.Context, name string, itemIDs []string) (catalog.Item, error) {
	if strings.TrimSpace(name) == "" {
		return catalog.Item{}, fmt.Errorf("%w: playlist name must not be empty", ErrInvalidArgument)
	}
	if err := checkIDs(itemIDs); err != nil {
		return catalog.Item{}, err
	}

	pl, err := c.api.Library().CreatePlaylist(ctx, name, itemIDs)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("create playlist %q: %w", name, err)
	}

	c.logger.Info().Str("name", name).Str("id", pl.ID).Int("songs", len(itemIDs)).Msg("Playlist created")

	title := pl.Name
	if title == "" {
		title = name
	}
	id := pl.ID
	if id == "" {
		// Servers before API 1.14.0 return no playlist body.
		id = name
	}
	return catalog.Item{
		Kind:      catalog.KindPlaylist,
		ID:        id,
		Title:     title,
		SongCount: pl.SongCount,
		Owner:     pl.Owner,
		Artwork:   pl.CoverArt,
	}, nil
}

// AppendToPlaylist adds itemIDs to the end of a playlist.
func (c *Client) AppendToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error {
	if strings.TrimSpace(playlistID) == "" {
		return fmt.Errorf("%w: playlist id must not be empty", ErrInvalidArgument)
	}
	if len(itemIDs) == 0 {
		return fmt.Errorf("%w: at least one item id is required", ErrInvalidArgument)
	}
	if err := checkIDs(itemIDs); err != nil {
		return err
	}

	if err := c.api.Library().AddToPlaylist(ctx, playlistID, itemIDs); err != nil {
		return fmt.Errorf("append to playlist %s: %w", playlistID, err)
	}
	return nil
}

// RenamePlaylist gives a playlist a new name.
func (c *Client) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	if strings.TrimSpace(playlistID) == "" {
		return fmt.Errorf("%w: playlist id must not be empty", ErrInvalidArgument)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: playlist name must not be empty", ErrInvalidArgument)
	}

	if err := c.api.Library().RenamePlaylist(ctx, playlistID, name); err != nil {
		return fmt.Errorf("rename playlist %s: %w", playlistID, err)
	}
	c.logger.Info().Str("id", playlistID).Str("name", name).Msg("Playlist renamed")
	return nil
}

// DeletePlaylist removes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, playlistID string) error {
	if strings.TrimSpace(playlistID) == "" {
		return fmt.Errorf("%w: playlist id must not be empty", ErrInvalidArgument)
	}

	if err := c.api.Library().DeletePlaylist(ctx, playlistID); err != nil {
		return fmt.Errorf("delete playlist %s: %w", playlistID, err)
	}
	c.logger.Info().Str("id", playlistID).Msg("Playlist deleted")
	return nil
}

func checkIDs(ids []string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: item ids must not be empty", ErrInvalidArgument)
		}
	}
	return nil
}
