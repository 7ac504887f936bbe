package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/catalog"
)

var (
	pageOffset  int
	pageSize    int
	albumFilter string
	albumGenre  string
	fromYear    int
	toYear      int
	genreAlbums bool
	searchScope string
)

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "List albums",
	Long: `List one page of albums.

Filters: ` + strings.Join(catalog.FilterNames(), ", ") + `.
With --genre the filter is ignored and albums of that genre are listed.
With --from-year and --to-year albums released in that range are listed;
giving only one of them lists a single year.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := catalog.ParseAlbumFilter(albumFilter)
		if err != nil {
			return err
		}
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			size := pageSizeFor(s)
			if albumGenre != "" {
				return s.catalog.ListAlbumsByGenre(ctx, albumGenre, pageOffset, size)
			}
			if fromYear != 0 || toYear != 0 {
				from, to := yearRange(fromYear, toYear)
				return s.catalog.ListAlbumsByYear(ctx, from, to, pageOffset, size)
			}
			return s.catalog.ListAlbums(ctx, filter, pageOffset, size)
		})
	},
}

var artistsCmd = &cobra.Command{
	Use:   "artists",
	Short: "List all artists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.ListArtists(ctx)
		})
	},
}

var artistCmd = &cobra.Command{
	Use:   "artist <artist-id>",
	Short: "List the albums of an artist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.ArtistAlbums(ctx, args[0])
		})
	},
}

var albumCmd = &cobra.Command{
	Use:   "album <album-id>",
	Short: "List the songs of an album",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.AlbumSongs(ctx, args[0])
		})
	},
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List all genres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.ListGenres(ctx)
		})
	},
}

var genreCmd = &cobra.Command{
	Use:   "genre <name>",
	Short: "List one page of songs (or albums) of a genre",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			if genreAlbums {
				return s.catalog.ListAlbumsByGenre(ctx, args[0], pageOffset, pageSizeFor(s))
			}
			return s.catalog.ListSongsByGenre(ctx, args[0], pageOffset, pageSizeFor(s))
		})
	},
}

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "List one page of all songs sorted by title",
	Long: `List one page of all songs sorted by title.

With server.native_api enabled the Navidrome native API is used, otherwise
the Subsonic API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.ListSongs(ctx, pageOffset, pageSizeFor(s))
		})
	},
}

var playlistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "List playlists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.ListPlaylists(ctx)
		})
	},
}

var playlistCmd = &cobra.Command{
	Use:   "playlist <playlist-id>",
	Short: "List the entries of a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.PlaylistSongs(ctx, args[0])
		})
	},
}

var radiosCmd = &cobra.Command{
	Use:   "radios",
	Short: "List internet radio stations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.ListRadios(ctx)
		})
	},
}

var favouritesCmd = &cobra.Command{
	Use:     "favourites",
	Aliases: []string{"favorites", "starred"},
	Short:   "List starred artists, albums and songs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.Favourites(ctx)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search artists, albums and songs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := catalog.ParseScope(searchScope)
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		return listItems(cmd, func(ctx context.Context, s *services) ([]catalog.Item, error) {
			return s.catalog.Search(ctx, query, scope)
		})
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the server connection and credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := commandServices()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := s.catalog.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is reachable as %s\n", s.store.Config().Server.URL, s.store.Config().Server.Username)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{albumsCmd, genreCmd, songsCmd} {
		c.Flags().IntVar(&pageOffset, "offset", 0, "Number of entries to skip")
		c.Flags().IntVar(&pageSize, "size", 0, "Page size (default: page_size from config)")
	}
	albumsCmd.Flags().StringVarP(&albumFilter, "filter", "f", "all", "Album filter")
	albumsCmd.Flags().StringVar(&albumGenre, "genre", "", "Only albums of this genre")
	albumsCmd.Flags().IntVar(&fromYear, "from-year", 0, "Only albums released from this year")
	albumsCmd.Flags().IntVar(&toYear, "to-year", 0, "Only albums released up to this year")
	genreCmd.Flags().BoolVar(&genreAlbums, "albums", false, "List albums instead of songs")
	searchCmd.Flags().StringVar(&searchScope, "scope", "all", "Restrict results (all, artists, albums, songs)")

	rootCmd.AddCommand(
		albumsCmd, artistsCmd, artistCmd, albumCmd,
		genresCmd, genreCmd, songsCmd,
		playlistsCmd, playlistCmd, radiosCmd,
		favouritesCmd, searchCmd, pingCmd,
	)
}

// listItems loads the services, runs list and prints the result.
func listItems(cmd *cobra.Command, list func(context.Context, *services) ([]catalog.Item, error)) error {
	s, err := commandServices()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	items, err := list(ctx, s)
	if err != nil {
		return err
	}
	return printItems(cmd.OutOrStdout(), items, outputFormat)
}

// pageSizeFor returns --size, or the configured page size.
func pageSizeFor(s *services) int {
	if pageSize > 0 {
		return pageSize
	}
	return s.store.Config().PageSize
}

// yearRange fills in a missing bound with the other one.
func yearRange(from, to int) (int, int) {
	if from == 0 {
		return to, to
	}
	if to == 0 {
		return from, from
	}
	return from, to
}
