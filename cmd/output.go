package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/naviscribe/internal/catalog"
)

// Column caps for table output, in display columns.
const (
	maxTitleWidth  = 40
	maxDetailWidth = 40
)

// itemJSON is the --output json shape of a catalog item.
type itemJSON struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	ParentID  string `json:"parent_id,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Album     string `json:"album,omitempty"`
	Year      int    `json:"year,omitempty"`
	Track     int    `json:"track,omitempty"`
	Genre     string `json:"genre,omitempty"`
	Duration  int    `json:"duration,omitempty"` // seconds
	Favourite bool   `json:"favourite,omitempty"`
	Rating    int    `json:"rating,omitempty"`
	Artwork   string `json:"artwork,omitempty"`
	StreamURL string `json:"stream_url,omitempty"`
}

// printItems writes items as a table or as JSON.
func printItems(w io.Writer, items []catalog.Item, format string) error {
	switch format {
	case "json":
		out := make([]itemJSON, len(items))
		for i, item := range items {
			out[i] = itemJSON{
				Kind:      item.Kind.String(),
				ID:        item.ID,
				Title:     item.Title,
				ParentID:  item.ParentID,
				Artist:    item.Artist,
				Album:     item.Album,
				Year:      item.Year,
				Track:     item.Track,
				Genre:     item.Genre,
				Duration:  int(item.Duration / time.Second),
				Favourite: item.Favourite,
				Rating:    item.Rating,
				Artwork:   item.Artwork,
				StreamURL: item.StreamURL,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "", "table":
		printTable(w, items)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}
}

// printTable writes one aligned row per item.
func printTable(w io.Writer, items []catalog.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}

	rows := make([][]string, len(items))
	widths := make([]int, 5)
	for i, item := range items {
		rows[i] = []string{
			item.ID,
			runewidth.Truncate(item.Title, maxTitleWidth, "..."),
			runewidth.Truncate(itemDetail(item), maxDetailWidth, "..."),
			formatLength(item.Duration),
			marks(item),
		}
		for col, cell := range rows[i] {
			widths[col] = max(widths[col], runewidth.StringWidth(cell))
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for col, cell := range row {
			if col == len(row)-1 {
				cells[col] = cell
				continue
			}
			cells[col] = padToWidth(cell, widths[col])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

// itemDetail is the second column: whatever identifies the item best
// after its title.
func itemDetail(item catalog.Item) string {
	switch item.Kind {
	case catalog.KindAlbum:
		if item.Year > 0 {
			return fmt.Sprintf("%s (%d)", item.Artist, item.Year)
		}
		return item.Artist
	case catalog.KindArtist:
		return plural(item.AlbumCount, "album")
	case catalog.KindSong:
		if item.Album != "" {
			return item.Artist + " - " + item.Album
		}
		return item.Artist
	case catalog.KindGenre:
		return plural(item.SongCount, "song")
	case catalog.KindPlaylist:
		if item.Owner != "" {
			return plural(item.SongCount, "song") + " by " + item.Owner
		}
		return plural(item.SongCount, "song")
	case catalog.KindRadio:
		return item.StreamURL
	}
	return ""
}

func marks(item catalog.Item) string {
	var sb strings.Builder
	if item.Favourite {
		sb.WriteString("★")
	}
	if item.Rating > 0 {
		sb.WriteString(strings.Repeat("•", item.Rating))
	}
	return sb.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// formatLength renders a duration as M:SS, or H:MM:SS past an hour.
// Unknown durations are blank.
func formatLength(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
