package tui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/mailrag/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// LogLevel represents the severity of a status message
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelSuccess
)

const statusClearAfter = 5 * time.Second

// StatusBar shows transient messages over a persistent progress line and a
// baseline summary of the inbox.
type StatusBar struct {
	mu       sync.Mutex
	app      *tview.Application
	view     *tview.TextView
	baseline func() string
	fg       tcell.Color
	errColor tcell.Color

	current    string
	level      LogLevel
	persistent string
	timer      *time.Timer
	stopped    bool
}

// NewStatusBar creates a status bar drawing into view. app may be nil, in
// which case updates apply immediately.
func NewStatusBar(app *tview.Application, view *tview.TextView) *StatusBar {
	return &StatusBar{app: app, view: view, fg: tcell.ColorDefault, errColor: tcell.ColorRed}
}

// SetColors sets the normal and error text colors
func (sb *StatusBar) SetColors(fg, errColor tcell.Color) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.fg, sb.errColor = fg, errColor
}

// SetBaseline sets the function rendering the idle status line
func (sb *StatusBar) SetBaseline(f func() string) {
	sb.mu.Lock()
	sb.baseline = f
	sb.mu.Unlock()
	sb.Refresh()
}

// HandleError shows userMsg with the error's retry hint
func (sb *StatusBar) HandleError(err error, userMsg string) {
	if err == nil {
		return
	}
	if userMsg == "" {
		userMsg = "An error occurred"
	}
	sb.ShowMessage(userMsg+errorHint(err), LogLevelError)
}

// ShowMessage displays a transient message
func (sb *StatusBar) ShowMessage(msg string, level LogLevel) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	formatted := formatMessage(msg, level)

	sb.mu.Lock()
	if sb.stopped {
		sb.mu.Unlock()
		return
	}
	if sb.timer != nil {
		sb.timer.Stop()
	}
	sb.current = formatted
	sb.level = level
	sb.timer = time.AfterFunc(statusClearAfter, func() { sb.clearIf(formatted) })
	sb.mu.Unlock()

	sb.Refresh()
}

// ShowProgress sets a persistent message shown while nothing transient is
func (sb *StatusBar) ShowProgress(msg string) {
	sb.mu.Lock()
	sb.persistent = formatMessage(msg, LogLevelInfo)
	sb.mu.Unlock()
	sb.Refresh()
}

// ClearProgress clears the persistent message
func (sb *StatusBar) ClearProgress() {
	sb.mu.Lock()
	sb.persistent = ""
	sb.mu.Unlock()
	sb.Refresh()
}

// ShowInfo shows an info message
func (sb *StatusBar) ShowInfo(msg string) { sb.ShowMessage(msg, LogLevelInfo) }

// ShowWarning shows a warning message
func (sb *StatusBar) ShowWarning(msg string) { sb.ShowMessage(msg, LogLevelWarning) }

// ShowError shows an error message
func (sb *StatusBar) ShowError(msg string) { sb.ShowMessage(msg, LogLevelError) }

// ShowSuccess shows a success message
func (sb *StatusBar) ShowSuccess(msg string) { sb.ShowMessage(msg, LogLevelSuccess) }

// Stop cancels the pending auto-clear and ignores further messages
func (sb *StatusBar) Stop() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.stopped = true
	if sb.timer != nil {
		sb.timer.Stop()
	}
}

// Text returns what the status bar currently shows
func (sb *StatusBar) Text() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	text, _ := sb.displayLocked()
	return text
}

// Refresh redraws the status line
func (sb *StatusBar) Refresh() {
	if sb.view == nil {
		return
	}
	draw := func() {
		sb.mu.Lock()
		text, color := sb.displayLocked()
		sb.mu.Unlock()
		sb.view.SetText(text)
		sb.view.SetTextColor(color)
	}
	if sb.app == nil {
		draw()
		return
	}
	sb.app.QueueUpdateDraw(draw)
}

func (sb *StatusBar) displayLocked() (string, tcell.Color) {
	switch {
	case sb.current != "":
		if sb.level == LogLevelError {
			return sb.current, sb.errColor
		}
		return sb.current, sb.fg
	case sb.persistent != "":
		return sb.persistent, sb.fg
	case sb.baseline != nil:
		return sb.baseline(), sb.fg
	}
	return "mailrag", sb.fg
}

func (sb *StatusBar) clearIf(expected string) {
	sb.mu.Lock()
	if sb.current != expected {
		sb.mu.Unlock()
		return
	}
	sb.current = ""
	sb.mu.Unlock()
	sb.Refresh()
}

// formatMessage prefixes msg with a level icon
func formatMessage(msg string, level LogLevel) string {
	var icon string
	switch level {
	case LogLevelInfo:
		icon = "ℹ️"
	case LogLevelWarning:
		icon = "⚠️"
	case LogLevelError:
		icon = "❌"
	case LogLevelSuccess:
		icon = "✅"
	default:
		icon = "•"
	}
	return fmt.Sprintf("%s %s", icon, msg)
}

// errorHint tells the user whether retrying can help
func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return " (timed out, press refresh to retry)"
	case services.IsRetryableError(err):
		return " (backend unreachable, press refresh to retry)"
	case errors.Is(err, services.ErrUserNotFound):
		return " (no account for this email)"
	}
	return ": " + err.Error()
}

// formatBaseline renders the idle status line
func formatBaseline(unread, starred int, status services.FilterStatus, term string, hasMore, loading bool) string {
	parts := []string{"mailrag", fmt.Sprintf("%d unread", unread), fmt.Sprintf("%d starred", starred)}
	if status != "" && status != services.FilterAll {
		parts = append(parts, "filter: "+string(status))
	}
	if term != "" {
		parts = append(parts, fmt.Sprintf("search: %q", term))
	}
	switch {
	case loading:
		parts = append(parts, "loading...")
	case hasMore:
		parts = append(parts, "more available")
	}
	return strings.Join(parts, " | ")
}

// statusBaseline renders the idle status line from the session
func (a *App) statusBaseline() string {
	if a.session == nil {
		return "mailrag"
	}
	unread, starred := a.session.Counts()
	term, status := a.session.Filter()
	return formatBaseline(unread, starred, status, term, a.session.HasMore(), a.session.Loading())
}
