package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/internal/player"
)

var (
	playEnqueue bool
	coverSize   int
	coverArt    bool
)

// streamURLCmd represents the stream-url command
var streamURLCmd = &cobra.Command{
	Use:   "stream-url <song-id>",
	Short: "Print the stream URL of a song",
	Long: `Print a playable stream URL for a song, with fresh credentials.

Transcoding parameters are added when transcoding is enabled in the config.
With --cover the cover art URL for an artwork id is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := commandServices()
		if err != nil {
			return err
		}

		var url string
		if coverArt {
			url, err = s.streams.CoverArt(args[0], coverSize)
		} else {
			url, _, err = s.streams.Build(args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play <song-id>...",
	Short: "Play songs in MPD",
	Long: `Replace the MPD queue with the given songs and start playback.

With --enqueue the songs are appended to the queue instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := commandServices()
		if err != nil {
			return err
		}
		p := newPlayer(s.store.Config(), s.logger)
		defer func() { _ = p.Close() }()

		ctx, cancel := commandContext()
		defer cancel()

		for i, id := range args {
			url, req, err := s.streams.Build(id)
			if err != nil {
				return err
			}
			if i == 0 && !playEnqueue {
				err = p.PlayURL(ctx, url)
			} else {
				err = p.Enqueue(ctx, url)
			}
			if err != nil {
				return fmt.Errorf("failed to play %s: %w", id, err)
			}
			s.logger.Debug().Str("item_id", id).Bool("transcoded", req.Transcoded()).Msg("Queued stream")
		}
		return nil
	},
}

// pauseCmd represents the pause command
var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback in MPD",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control("pause", func(ctx context.Context, p player.Player) error { return p.Pause(ctx) })
	},
}

// resumeCmd represents the resume command
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume playback in MPD",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control("resume", func(ctx context.Context, p player.Player) error { return p.Resume(ctx) })
	},
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next song in the MPD queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control("skip to next track", func(ctx context.Context, p player.Player) error { return p.Next(ctx) })
	},
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to the previous song in the MPD queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control("go to previous track", func(ctx context.Context, p player.Player) error { return p.Previous(ctx) })
	},
}

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback in MPD",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control("stop", func(ctx context.Context, p player.Player) error { return p.Stop(ctx) })
	},
}

func init() {
	playCmd.Flags().BoolVarP(&playEnqueue, "enqueue", "e", false, "Append to the queue instead of replacing it")
	streamURLCmd.Flags().BoolVar(&coverArt, "cover", false, "Print the cover art URL of an artwork id")
	streamURLCmd.Flags().IntVar(&coverSize, "size", 0, "Cover art size in pixels (0 for the original)")

	rootCmd.AddCommand(streamURLCmd, playCmd, pauseCmd, resumeCmd, nextCmd, prevCmd, stopCmd)
}

// control runs one player command against MPD.
func control(name string, fn func(context.Context, player.Player) error) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	p := newPlayer(cfg, setupLogger("", logLevel))
	defer func() { _ = p.Close() }()

	ctx, cancel := commandContext()
	defer cancel()

	if err := fn(ctx, p); err != nil {
		return fmt.Errorf("failed to %s: %w", name, err)
	}
	return nil
}
