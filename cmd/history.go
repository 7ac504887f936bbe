package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/naviscribe/internal/config"
	"github.com/jfmyers9/naviscribe/internal/scrobbler"
)

var (
	historyLimit int
	historyState string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently finished playback sessions",
	Long: `Show the sessions the daemon finished most recently and whether they
were scrobbled.

States: submitted, failed, abandoned (stopped or skipped before the
scrobble threshold).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show (0 for all)")
	historyCmd.Flags().StringVar(&historyState, "state", "", "Only show sessions in this state")
	historyCmd.Flags().StringVar(&daemonDataDir, "data-dir", "", "Daemon data directory (default: $XDG_DATA_HOME/naviscribe)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	var filter scrobbler.State
	if historyState != "" {
		var err error
		if filter, err = scrobbler.ParseState(historyState); err != nil {
			return err
		}
	}

	journalPath := filepath.Join(daemonDataDir, "sessions.db")
	if daemonDataDir == "" {
		var err error
		if journalPath, err = config.JournalPath(); err != nil {
			return fmt.Errorf("failed to locate journal: %w", err)
		}
	}

	journal, err := scrobbler.NewJournal(journalPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	ctx, cancel := commandContext()
	defer cancel()

	// Filter after the query so --limit counts matching sessions.
	limit := historyLimit
	if filter != scrobbler.StateIdle {
		limit = 0
	}
	sessions, err := journal.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if filter != scrobbler.StateIdle {
		sessions = filterSessions(sessions, filter, historyLimit)
	}

	failed, err := journal.Count(ctx, scrobbler.StateFailed)
	if err != nil {
		return err
	}

	printHistory(cmd.OutOrStdout(), sessions, time.Now())
	if failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s failed to scrobble\n", plural(failed, "session"))
	}
	return nil
}

func filterSessions(sessions []scrobbler.Session, state scrobbler.State, limit int) []scrobbler.Session {
	var out []scrobbler.Session
	for _, s := range sessions {
		if s.State != state {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// printHistory writes one line per session, newest first.
func printHistory(w io.Writer, sessions []scrobbler.Session, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded")
		return
	}

	for _, s := range sessions {
		name := s.Title
		if s.Artist != "" {
			name = s.Artist + " - " + s.Title
		}
		if strings.TrimSpace(name) == "" {
			name = s.ItemID
		}

		line := fmt.Sprintf("%s  %s  %s",
			padToWidth(humanize.RelTime(s.FinishedAt, now, "ago", "from now"), 16),
			padToWidth(s.State.String(), 9),
			runewidth.Truncate(name, 60, "..."))
		if s.State == scrobbler.StateFailed && s.LastError != "" {
			line += fmt.Sprintf("  (%s after %s)", s.LastError, plural(s.Attempts, "attempt"))
		}
		fmt.Fprintln(w, line)
	}
}
