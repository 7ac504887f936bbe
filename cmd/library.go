package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/catalog"
	"github.com/jfmyers9/naviscribe/internal/library"
)

var starKind string

var starCmd = &cobra.Command{
	Use:   "star <id>",
	Short: "Mark a song, album or artist as favourite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setFavourite(cmd, args[0], true)
	},
}

var unstarCmd = &cobra.Command{
	Use:   "unstar <id>",
	Short: "Remove a song, album or artist from favourites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setFavourite(cmd, args[0], false)
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate <id> <0-5>",
	Short: "Rate an item (0 removes the rating)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: rating must be a number 0-5, got %q", library.ErrInvalidArgument, args[1])
		}

		s, err := commandServices()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := s.library.SetRating(ctx, args[0], rating); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Rated %s %d/5\n", args[0], rating)
		return nil
	},
}

var playlistCreateCmd = &cobra.Command{
	Use:   "playlist-create <name> [song-id]...",
	Short: "Create a playlist from songs",
	Long: `Create a playlist holding the given songs in order.

Without songs an empty playlist is created. Songs listed more than once
are added more than once.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := commandServices()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		pl, err := s.library.CreatePlaylist(ctx, args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created playlist %q (%s) with %s\n", pl.Title, pl.ID, plural(len(args)-1, "song"))
		return nil
	},
}

var playlistAppendCmd = &cobra.Command{
	Use:   "playlist-append <playlist-id> <song-id>...",
	Short: "Append songs to a playlist",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := commandServices()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := s.library.AppendToPlaylist(ctx, args[0], args[1:]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Appended %s to playlist %s\n", plural(len(args)-1, "song"), args[0])
		return nil
	},
}

var playlistRenameCmd = &cobra.Command{
	Use:   "playlist-rename <playlist-id> <name>...",
	Short: "Rename a playlist",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := commandServices()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		name := strings.Join(args[1:], " ")
		if err := s.library.RenamePlaylist(ctx, args[0], name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Renamed playlist %s to %q\n", args[0], name)
		return nil
	},
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "playlist-delete <playlist-id>",
	Short: "Delete a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := commandServices()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := s.library.DeletePlaylist(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted playlist %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{starCmd, unstarCmd} {
		c.Flags().StringVarP(&starKind, "kind", "k", "song", "Item kind (song, album, artist)")
	}

	rootCmd.AddCommand(starCmd, unstarCmd, rateCmd, playlistCreateCmd, playlistAppendCmd, playlistRenameCmd, playlistDeleteCmd)
}

func setFavourite(cmd *cobra.Command, id string, starred bool) error {
	kind, err := catalog.ParseKind(starKind)
	if err != nil {
		return fmt.Errorf("%w: %v", library.ErrInvalidArgument, err)
	}

	s, err := commandServices()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := s.library.SetFavourite(ctx, kind, id, starred); err != nil {
		return err
	}

	verb := "Starred"
	if !starred {
		verb = "Unstarred"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s %s\n", verb, kind, id)
	return nil
}
