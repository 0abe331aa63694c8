package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/ajramos/mailrag/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"github.com/stretchr/testify/assert"
)

func newTestStatusBar(t *testing.T) (*StatusBar, *tview.TextView) {
	t.Helper()
	view := tview.NewTextView()
	sb := NewStatusBar(nil, view)
	t.Cleanup(sb.Stop)
	return sb, view
}

func TestStatusBar_Layers(t *testing.T) {
	sb, view := newTestStatusBar(t)
	assert.Equal(t, "mailrag", sb.Text())

	sb.SetBaseline(func() string { return "baseline" })
	assert.Equal(t, "baseline", view.GetText(true))

	sb.ShowProgress("Loading messages...")
	assert.Equal(t, "ℹ️ Loading messages...", sb.Text())

	sb.ShowSuccess("Archived")
	assert.Equal(t, "✅ Archived", sb.Text())

	sb.clearIf("✅ Archived")
	assert.Equal(t, "ℹ️ Loading messages...", sb.Text())

	sb.ClearProgress()
	assert.Equal(t, "baseline", sb.Text())
}

func TestStatusBar_ClearIfIgnoresNewerMessage(t *testing.T) {
	sb, _ := newTestStatusBar(t)
	sb.ShowInfo("first")
	sb.ShowWarning("second")
	sb.clearIf("ℹ️ first")
	assert.Equal(t, "⚠️ second", sb.Text())
}

func TestStatusBar_ErrorColor(t *testing.T) {
	sb, _ := newTestStatusBar(t)
	sb.SetColors(tcell.ColorWhite, tcell.ColorRed)

	sb.HandleError(nil, "ignored")
	assert.Equal(t, "mailrag", sb.Text())

	sb.HandleError(errors.New("boom"), "")
	assert.Equal(t, "❌ An error occurred: boom", sb.Text())
	_, color := sb.displayLocked()
	assert.Equal(t, tcell.ColorRed, color)

	sb.ShowInfo("ok")
	_, color = sb.displayLocked()
	assert.Equal(t, tcell.ColorWhite, color)
}

func TestStatusBar_StopIgnoresMessages(t *testing.T) {
	sb, _ := newTestStatusBar(t)
	sb.Stop()
	sb.ShowError("late")
	sb.ShowMessage("   ", LogLevelInfo)
	assert.Equal(t, "mailrag", sb.Text())
}

func TestErrorHint(t *testing.T) {
	timeout := fmt.Errorf("load: %w", services.ErrTimeout)
	assert.Contains(t, errorHint(timeout), "timed out")

	offline := fmt.Errorf("load: %w", services.ErrNetworkUnavailable)
	assert.Contains(t, errorHint(offline), "backend unreachable")

	missing := fmt.Errorf("%w: a@example.com", gmail.ErrUserNotFound)
	assert.Contains(t, errorHint(missing), "no account")

	assert.Equal(t, ": bad input", errorHint(errors.New("bad input")))
}

func TestFormatMessage(t *testing.T) {
	assert.True(t, strings.HasPrefix(formatMessage("x", LogLevelError), "❌"))
	assert.True(t, strings.HasPrefix(formatMessage("x", LogLevel(42)), "•"))
}

func TestFormatBaseline(t *testing.T) {
	assert.Equal(t, "mailrag | 2 unread | 1 starred | more available",
		formatBaseline(2, 1, services.FilterAll, "", true, false))
	assert.Equal(t, `mailrag | 0 unread | 3 starred | filter: starred | search: "invoice" | loading...`,
		formatBaseline(0, 3, services.FilterStarred, "invoice", true, true))
}
