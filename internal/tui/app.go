package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"github.com/jfmyers9/naviscribe/internal/daemon"
	"github.com/jfmyers9/naviscribe/internal/player"
	"github.com/jfmyers9/naviscribe/internal/scrobbler"
)

const (
	maxRecentSessions = 5
	recentNameWidth   = 24
	controlTimeout    = 2 * time.Second
)

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
	}
}

// History is where finished sessions are read from.
type History interface {
	Recent(ctx context.Context, limit int) ([]scrobbler.Session, error)
	Count(ctx context.Context, state scrobbler.State) (int, error)
}

// App is the TUI application for displaying playback and scrobble state
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	status     *tview.TextView
	scrobble   *tview.TextView
	recent     *tview.TextView

	config  Config
	player  player.Player
	history History

	// Mutex protects shared state accessed by both the channel consumer
	// goroutine and the ticker goroutine in handleUpdates.
	mu sync.Mutex

	// Guarded by mu
	current      daemon.Status
	policy       scrobbler.Policy
	sessions     []scrobbler.Session
	failed       int
	historyStale bool
	sessionStart time.Time
	message      string

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastScrobble   string
	lastRecent     string
	lastStatus     string

	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New(p player.Player, history History) *App {
	return NewWithConfig(DefaultConfig(), p, history)
}

// NewWithConfig creates a new TUI application with the given config.
// p and history may be nil.
func NewWithConfig(cfg Config, p player.Player, history History) *App {
	a := &App{
		app:          tview.NewApplication(),
		config:       cfg,
		player:       p,
		history:      history,
		policy:       scrobbler.DefaultPolicy(),
		historyStale: true,
		sessionStart: time.Now(),
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.scrobble = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.scrobble.SetBorder(true).
		SetTitle(" Scrobble ").
		SetTitleAlign(tview.AlignLeft)

	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(keyHelp)

	// now playing / progress / scrobble | recent / footer
	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.scrobble, 0, 1, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 8, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true)
}

const keyHelp = "[gray]q:quit  space:play/pause  n:next  p:prev  s:stop[-]"

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case ' ':
		a.control("play/pause", a.togglePause)
		return nil
	case 'n', 'N':
		a.control("next", func(ctx context.Context) error { return a.player.Next(ctx) })
		return nil
	case 'p', 'P':
		a.control("previous", func(ctx context.Context) error { return a.player.Previous(ctx) })
		return nil
	case 's', 'S':
		a.control("stop", func(ctx context.Context) error { return a.player.Stop(ctx) })
		return nil
	}
	return event
}

// control runs a player command and shows its error in the footer.
func (a *App) control(name string, fn func(context.Context) error) {
	if a.player == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	msg := ""
	if err := fn(ctx); err != nil {
		msg = fmt.Sprintf("[red]%s failed: %s[-]", name, tview.Escape(err.Error()))
	}
	a.mu.Lock()
	a.message = msg
	a.mu.Unlock()
}

func (a *App) togglePause(ctx context.Context) error {
	a.mu.Lock()
	track := a.current.Track
	a.mu.Unlock()

	if track != nil && track.State == player.StatePlaying {
		return a.player.Pause(ctx)
	}
	return a.player.Resume(ctx)
}

// Run starts the TUI with a status channel from the daemon. policy is
// consulted on every refresh so settings reloads show up at once.
func (a *App) Run(ctx context.Context, updates <-chan daemon.Status, policy func() scrobbler.Policy) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleUpdates(ctx, updates, policy)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// handleUpdates consumes daemon status on one goroutine and drives all
// redraws from a single ticker so queued redraws never build up.
func (a *App) handleUpdates(ctx context.Context, updates <-chan daemon.Status, policy func() scrobbler.Policy) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case status := <-updates:
				a.setStatus(status)
			}
		}
	}()

	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			if policy != nil {
				p := policy()
				a.mu.Lock()
				a.policy = p
				a.mu.Unlock()
			}
			a.loadHistory(ctx)
			a.refresh()
		}
	}
}

// setStatus stores a new status and marks history stale when a session
// finished since the last one.
func (a *App) setStatus(status daemon.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.current.Session
	if prev.ID != status.Session.ID || prev.State != status.Session.State {
		a.historyStale = true
	}
	a.current = status
}

// loadHistory reloads recent sessions from the journal if stale
func (a *App) loadHistory(ctx context.Context) {
	if a.history == nil {
		return
	}
	a.mu.Lock()
	stale := a.historyStale
	a.historyStale = false
	a.mu.Unlock()
	if !stale {
		return
	}

	sessions, err := a.history.Recent(ctx, maxRecentSessions)
	if err != nil {
		return
	}
	failed, err := a.history.Count(ctx, scrobbler.StateFailed)
	if err != nil {
		return
	}

	a.mu.Lock()
	a.sessions = sessions
	a.failed = failed
	a.mu.Unlock()
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateProgress()
		a.updateScrobbleStatus()
		a.updateRecentSessions()
		a.updateFooter()
	})
}

func (a *App) playing() bool {
	return a.current.Track != nil && a.current.Track.State != player.StateStopped
}

// updateNowPlaying updates the now playing panel
func (a *App) updateNowPlaying() {
	var text string

	if !a.playing() {
		text = "\n\n[gray]No track playing[-]"
	} else {
		track := a.current.Track
		title, artist := track.Title, track.Artist
		// The player may only know the stream URL.
		if a.current.Session.ItemID == track.ItemID && track.ItemID != "" {
			if title == "" {
				title = a.current.Session.Title
			}
			if artist == "" {
				artist = a.current.Session.Artist
			}
		}
		if title == "" {
			title = track.URI
		}

		var sb strings.Builder
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(title)))
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(artist)))
		sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(track.Album)))

		stateIcon := "[green]▶[-]"
		if track.State == player.StatePaused {
			stateIcon = "[yellow]⏸[-]"
		}
		sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
		text = sb.String()
	}

	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

// updateProgress updates the progress bar
func (a *App) updateProgress() {
	var text string

	if a.playing() {
		track := a.current.Track
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		duration := track.Duration
		if duration <= 0 && a.current.Session.ItemID == track.ItemID {
			duration = a.current.Session.Duration
		}
		text = fmt.Sprintf("%s %s %s",
			formatDuration(track.Position),
			buildProgressBar(track.Position, duration, a.lastBarWidth),
			formatDuration(duration))
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

// updateScrobbleStatus updates the scrobble status panel
func (a *App) updateScrobbleStatus() {
	var sb strings.Builder

	session := a.current.Session
	switch session.State {
	case scrobbler.StateIdle:
		sb.WriteString("[gray]No session[-]\n")
	case scrobbler.StateNowPlaying:
		percent := scrobbleProgress(a.policy, session)
		if !a.policy.IsEligible(session.Duration) && session.Duration > 0 {
			sb.WriteString("[gray]Too short to scrobble[-]\n")
		} else {
			barWidth := 10
			filled := int(percent / 100 * float64(barWidth))
			bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
			sb.WriteString(fmt.Sprintf("[yellow]%s %.0f%%[-]\n", bar, percent))
		}
	default:
		sb.WriteString(stateLabel(session.State) + "\n")
	}

	if session.Attempts > 0 {
		sb.WriteString(fmt.Sprintf("Attempts: %d/%d\n", session.Attempts, a.policy.MaxAttempts))
	}
	if session.LastError != "" && session.State != scrobbler.StateSubmitted {
		sb.WriteString(fmt.Sprintf("[red]%s[-]\n", tview.Escape(runewidth.Truncate(session.LastError, 40, "..."))))
	}
	sb.WriteString(fmt.Sprintf("Failed: %d\n", a.failed))
	sb.WriteString(fmt.Sprintf("Uptime: %s", formatDuration(time.Since(a.sessionStart))))

	text := sb.String()
	if text != a.lastScrobble {
		a.lastScrobble = text
		a.scrobble.SetText(text)
	}
}

// updateRecentSessions updates the recent sessions panel
func (a *App) updateRecentSessions() {
	var sb strings.Builder

	if len(a.sessions) == 0 {
		sb.WriteString("[gray]No recent tracks[-]")
	} else {
		for i, s := range a.sessions {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(stateMark(s.State))
			sb.WriteString(" ")

			name := s.Title
			if name == "" {
				name = s.ItemID
			}
			name = runewidth.Truncate(name, recentNameWidth, "...")
			sb.WriteString(fmt.Sprintf("[white]%s[-]", tview.Escape(name)))
		}
	}

	text := sb.String()
	if text != a.lastRecent {
		a.lastRecent = text
		a.recent.SetText(text)
	}
}

func (a *App) updateFooter() {
	text := keyHelp
	if a.message != "" {
		text = a.message
	}
	if text != a.lastStatus {
		a.lastStatus = text
		a.status.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// scrobbleProgress is how far a session is towards its scrobble
// threshold, in percent.
func scrobbleProgress(p scrobbler.Policy, s scrobbler.Session) float64 {
	threshold := p.Threshold(s.Duration)
	if threshold <= 0 {
		return 0
	}
	progress := float64(s.Elapsed) / float64(threshold) * 100
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	return progress
}

func stateLabel(s scrobbler.State) string {
	switch s {
	case scrobbler.StatePendingSubmit:
		return "[yellow]↻ Submitting[-]"
	case scrobbler.StateSubmitted:
		return "[green]✓ Scrobbled[-]"
	case scrobbler.StateFailed:
		return "[red]✗ Failed[-]"
	case scrobbler.StateAbandoned:
		return "[gray]- Skipped[-]"
	}
	return "[gray]" + s.String() + "[-]"
}

func stateMark(s scrobbler.State) string {
	switch s {
	case scrobbler.StateSubmitted:
		return "[green]✓[-]"
	case scrobbler.StateFailed:
		return "[red]✗[-]"
	case scrobbler.StatePendingSubmit:
		return "[yellow]↻[-]"
	}
	return "[gray]-[-]"
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration <= 0 || width <= 0 {
		return strings.Repeat("-", max(width, 0))
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	return "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
