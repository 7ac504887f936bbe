package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/internal/player"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the track MPD is playing",
	Long: `Query MPD and display the currently playing track.

The output format can be customized with output_format in the config file
using a Go template. Available fields: .Title, .Artist, .Album, .ItemID,
.URI, .Duration, .Position

Server streams that MPD reports without tags are looked up on the server.

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or MPD not reachable`,
	Args: cobra.NoArgs,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	format := cfg.OutputFormat
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = f
	}

	logger := setupLogger("", logLevel)
	p := newPlayer(cfg, logger)
	defer func() { _ = p.Close() }()

	track, err := p.CurrentTrack(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	// If not playing, exit with code 1
	if track == nil || track.State != player.StatePlaying {
		os.Exit(1)
		return nil
	}

	if track.ItemID != "" && (track.Title == "" || track.Artist == "") {
		if s, err := loadServices(logger); err == nil {
			if item, err := s.catalog.Song(ctx, track.ItemID); err == nil {
				if track.Title == "" {
					track.Title = item.Title
				}
				if track.Artist == "" {
					track.Artist = item.Artist
				}
				if track.Album == "" {
					track.Album = item.Album
				}
			}
		}
	}

	output, err := formatTrack(track, format)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}
	output = padToWidth(output, width)

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(track *player.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Wide runes can leave the result one column short
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
