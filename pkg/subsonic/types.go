package subsonic

// Artist is an ID3 artist entry (getArtists, getArtist, search3).
type Artist struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CoverArt       string `json:"coverArt,omitempty"`
	AlbumCount     int    `json:"albumCount,omitempty"`
	Starred        string `json:"starred,omitempty"` // RFC 3339 time the item was starred
	UserRating     int    `json:"userRating,omitempty"`
	ArtistImageURL string `json:"artistImageUrl,omitempty"`
}

// IsStarred reports whether the current user starred the artist.
func (a Artist) IsStarred() bool { return a.Starred != "" }

// ArtistWithAlbums is the getArtist payload.
type ArtistWithAlbums struct {
	Artist
	Albums []Album `json:"album"`
}

// Album is an ID3 album entry.
type Album struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist,omitempty"`
	ArtistID   string `json:"artistId,omitempty"`
	CoverArt   string `json:"coverArt,omitempty"`
	SongCount  int    `json:"songCount,omitempty"`
	Duration   int    `json:"duration,omitempty"` // seconds
	PlayCount  int64  `json:"playCount,omitempty"`
	Created    string `json:"created,omitempty"`
	Starred    string `json:"starred,omitempty"`
	Year       int    `json:"year,omitempty"`
	Genre      string `json:"genre,omitempty"`
	UserRating int    `json:"userRating,omitempty"`
}

// IsStarred reports whether the current user starred the album.
func (a Album) IsStarred() bool { return a.Starred != "" }

// AlbumWithSongs is the getAlbum payload.
type AlbumWithSongs struct {
	Album
	Songs []Song `json:"song"`
}

// Song is a "child" entry of type music.
type Song struct {
	ID          string `json:"id"`
	Parent      string `json:"parent,omitempty"`
	Title       string `json:"title"`
	Album       string `json:"album,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Track       int    `json:"track,omitempty"`
	DiscNumber  int    `json:"discNumber,omitempty"`
	Year        int    `json:"year,omitempty"`
	Genre       string `json:"genre,omitempty"`
	CoverArt    string `json:"coverArt,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Suffix      string `json:"suffix,omitempty"`
	Duration    int    `json:"duration,omitempty"` // seconds
	BitRate     int    `json:"bitRate,omitempty"`
	PlayCount   int64  `json:"playCount,omitempty"`
	AlbumID     string `json:"albumId,omitempty"`
	ArtistID    string `json:"artistId,omitempty"`
	Starred     string `json:"starred,omitempty"`
	UserRating  int    `json:"userRating,omitempty"`
}

// IsStarred reports whether the current user starred the song.
func (s Song) IsStarred() bool { return s.Starred != "" }

// Genre is a getGenres entry. Genres have no id; Value is the name.
type Genre struct {
	Value      string `json:"value"`
	SongCount  int    `json:"songCount,omitempty"`
	AlbumCount int    `json:"albumCount,omitempty"`
}

// Playlist is a getPlaylists entry.
type Playlist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Comment   string `json:"comment,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Public    bool   `json:"public,omitempty"`
	SongCount int    `json:"songCount,omitempty"`
	Duration  int    `json:"duration,omitempty"` // seconds
	Created   string `json:"created,omitempty"`
	Changed   string `json:"changed,omitempty"`
	CoverArt  string `json:"coverArt,omitempty"`
}

// PlaylistWithSongs is the getPlaylist and createPlaylist payload.
type PlaylistWithSongs struct {
	Playlist
	Entries []Song `json:"entry"`
}

// InternetRadioStation is a getInternetRadioStations entry.
type InternetRadioStation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StreamURL   string `json:"streamUrl"`
	HomePageURL string `json:"homePageUrl,omitempty"`
}

// SearchResult is the search3 payload.
type SearchResult struct {
	Artists []Artist `json:"artist"`
	Albums  []Album  `json:"album"`
	Songs   []Song   `json:"song"`
}

// Starred is the getStarred2 payload.
type Starred struct {
	Artists []Artist `json:"artist"`
	Albums  []Album  `json:"album"`
	Songs   []Song   `json:"song"`
}
