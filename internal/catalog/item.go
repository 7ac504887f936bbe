package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/jfmyers9/naviscribe/pkg/subsonic"
)

// Kind tags the variant of an Item.
type Kind int

const (
	KindAlbum Kind = iota
	KindArtist
	KindSong
	KindGenre
	KindPlaylist
	KindRadio
)

func (k Kind) String() string {
	switch k {
	case KindAlbum:
		return "album"
	case KindArtist:
		return "artist"
	case KindSong:
		return "song"
	case KindGenre:
		return "genre"
	case KindPlaylist:
		return "playlist"
	case KindRadio:
		return "radio"
	default:
		return "unknown"
	}
}

// ParseKind converts a command line word into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "album", "albums":
		return KindAlbum, nil
	case "artist", "artists":
		return KindArtist, nil
	case "song", "songs", "track", "tracks":
		return KindSong, nil
	case "genre", "genres":
		return KindGenre, nil
	case "playlist", "playlists":
		return KindPlaylist, nil
	case "radio", "radios":
		return KindRadio, nil
	default:
		return 0, fmt.Errorf("unknown item kind %q", s)
	}
}

// Item is one catalog entry. ID and Title are never empty. Fields that do
// not apply to the Kind are left zero.
type Item struct {
	Kind     Kind
	ID       string
	Title    string
	ParentID string // album of a song, artist of an album
	Artwork  string // cover art id
	Duration time.Duration

	Favourite bool
	Rating    int // 0 means unrated

	Artist     string
	ArtistID   string
	Album      string
	AlbumID    string
	Year       int
	Track      int
	Disc       int
	Genre      string
	SongCount  int
	AlbumCount int
	PlayCount  int64
	Suffix     string
	BitRate    int
	Owner      string

	// Radios
	StreamURL string
	HomePage  string
}

// Placeholder titles for entries the server returned without a name.
const (
	unknownAlbum    = "Unknown Album"
	unknownArtist   = "Unknown Artist"
	unknownTitle    = "Unknown Title"
	unnamedPlaylist = "Unnamed Playlist"
	unknownStation  = "Unknown Station"
)

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func fromAlbum(a subsonic.Album) (Item, bool) {
	if a.ID == "" {
		return Item{}, false
	}
	return Item{
		Kind:      KindAlbum,
		ID:        a.ID,
		Title:     orDefault(a.Name, unknownAlbum),
		ParentID:  a.ArtistID,
		Artwork:   a.CoverArt,
		Duration:  seconds(a.Duration),
		Favourite: a.IsStarred(),
		Rating:    a.UserRating,
		Artist:    orDefault(a.Artist, unknownArtist),
		ArtistID:  a.ArtistID,
		Year:      a.Year,
		Genre:     a.Genre,
		SongCount: a.SongCount,
		PlayCount: a.PlayCount,
	}, true
}

func fromArtist(a subsonic.Artist) (Item, bool) {
	if a.ID == "" {
		return Item{}, false
	}
	return Item{
		Kind:       KindArtist,
		ID:         a.ID,
		Title:      orDefault(a.Name, unknownArtist),
		Artwork:    a.CoverArt,
		Favourite:  a.IsStarred(),
		Rating:     a.UserRating,
		AlbumCount: a.AlbumCount,
	}, true
}

func fromSong(s subsonic.Song) (Item, bool) {
	if s.ID == "" {
		return Item{}, false
	}
	parent := s.AlbumID
	if parent == "" {
		parent = s.Parent
	}
	return Item{
		Kind:      KindSong,
		ID:        s.ID,
		Title:     orDefault(s.Title, unknownTitle),
		ParentID:  parent,
		Artwork:   s.CoverArt,
		Duration:  seconds(s.Duration),
		Favourite: s.IsStarred(),
		Rating:    s.UserRating,
		Artist:    orDefault(s.Artist, unknownArtist),
		ArtistID:  s.ArtistID,
		Album:     orDefault(s.Album, unknownAlbum),
		AlbumID:   s.AlbumID,
		Year:      s.Year,
		Track:     s.Track,
		Disc:      s.DiscNumber,
		Genre:     s.Genre,
		PlayCount: s.PlayCount,
		Suffix:    s.Suffix,
		BitRate:   s.BitRate,
	}, true
}

// Genres have no id; the name doubles as one.
func fromGenre(g subsonic.Genre) (Item, bool) {
	if strings.TrimSpace(g.Value) == "" {
		return Item{}, false
	}
	return Item{
		Kind:       KindGenre,
		ID:         g.Value,
		Title:      g.Value,
		Genre:      g.Value,
		SongCount:  g.SongCount,
		AlbumCount: g.AlbumCount,
	}, true
}

func fromPlaylist(p subsonic.Playlist) (Item, bool) {
	if p.ID == "" {
		return Item{}, false
	}
	return Item{
		Kind:      KindPlaylist,
		ID:        p.ID,
		Title:     orDefault(p.Name, unnamedPlaylist),
		Artwork:   p.CoverArt,
		Duration:  seconds(p.Duration),
		SongCount: p.SongCount,
		Owner:     p.Owner,
	}, true
}

func fromRadio(r subsonic.InternetRadioStation) (Item, bool) {
	if r.ID == "" {
		return Item{}, false
	}
	return Item{
		Kind:      KindRadio,
		ID:        r.ID,
		Title:     orDefault(r.Name, unknownStation),
		StreamURL: r.StreamURL,
		HomePage:  r.HomePageURL,
	}, true
}

// normalize converts server records, dropping those without an id and
// keeping server order.
func normalize[T any](in []T, conv func(T) (Item, bool)) []Item {
	out := make([]Item, 0, len(in))
	for _, v := range in {
		if item, ok := conv(v); ok {
			out = append(out, item)
		}
	}
	return out
}
