package tui

import (
	"errors"
	"fmt"

	"github.com/ajramos/mailrag/internal/gmail"
	"github.com/ajramos/mailrag/internal/render"
	"github.com/ajramos/mailrag/internal/services"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// reloadMessages replaces the list with the first page. Runs off the UI
// goroutine.
func (a *App) reloadMessages() {
	userID := a.currentUser()
	if userID <= 0 {
		a.status.ShowWarning("Account not resolved yet")
		return
	}
	a.status.ShowProgress("Loading messages...")
	err := a.session.LoadFirstPage(a.ctx, userID)
	a.status.ClearProgress()
	a.QueueUpdateDraw(a.refreshList)
	if err != nil {
		a.logger.Warn("tui: first page failed", zap.Error(err))
		a.status.HandleError(err, "Error loading messages")
		return
	}
	if len(a.session.Messages()) == 0 {
		a.status.ShowInfo("No messages found in your inbox")
	}
}

// loadMoreMessages appends the next page. Runs off the UI goroutine.
func (a *App) loadMoreMessages() {
	if !a.session.HasMore() {
		a.status.ShowInfo("No more messages")
		return
	}
	before := len(a.session.Messages())
	a.status.ShowProgress("Loading more messages...")
	err := a.session.LoadNextPage(a.ctx)
	a.status.ClearProgress()
	a.QueueUpdateDraw(a.refreshList)
	if err != nil {
		a.logger.Warn("tui: next page failed", zap.Error(err))
		a.status.HandleError(err, "Error loading more messages")
		return
	}
	a.status.ShowSuccess(fmt.Sprintf("Loaded %d more", len(a.session.Messages())-before))
}

// refreshList rebuilds the table from the session view, keeping the cursor on
// the same message when it is still visible. Must run on the UI goroutine.
func (a *App) refreshList() {
	list, ok := a.views["list"].(*tview.Table)
	if !ok || a.session == nil {
		return
	}
	selectedID := a.idAt(selectedRow(list))

	view := a.session.View()
	list.Clear()
	a.ids = a.ids[:0]
	width := a.listWidth()
	row := 0
	for i, msg := range view {
		text, color := a.renderer.FormatEmailList(msg, width)
		list.SetCell(i, 0, tview.NewTableCell(text).SetTextColor(color).SetExpansion(1))
		a.ids = append(a.ids, msg.ID)
		if msg.ID == selectedID {
			row = i
		}
	}
	if len(view) > 0 {
		list.Select(row, 0)
	}

	title := fmt.Sprintf(" Messages (%d) ", len(view))
	if a.session.HasMore() {
		title = fmt.Sprintf(" Messages (%d+) ", len(view))
	}
	list.SetTitle(title)
	a.status.Refresh()
}

// showMessage selects id and renders it once the full message arrives. Runs
// off the UI goroutine.
func (a *App) showMessage(id string) {
	a.QueueUpdateDraw(func() {
		a.currentID = id
		a.setContent(" Loading... ", "", "")
	})

	msg, err := a.session.Select(a.ctx, id)
	if errors.Is(err, services.ErrStaleSelection) {
		return
	}
	if err != nil {
		a.logger.Debug("tui: full message load failed", zap.String("id", id), zap.Error(err))
		if msg == nil {
			a.QueueUpdateDraw(func() { a.setContent(" Message Content ", "", "") })
			a.status.HandleError(err, "Could not load message")
			return
		}
		a.status.ShowWarning("Showing summary, full message unavailable")
	}
	a.QueueUpdateDraw(func() {
		if a.currentID != id {
			return
		}
		a.renderMessage(msg)
		a.refreshList()
	})
}

// renderMessage fills the content pane with msg
func (a *App) renderMessage(msg *gmail.Message) {
	a.setContent(" Message Content ", a.renderer.FormatHeader(msg), render.FormatBody(msg.Content, a.listWidth()))
}

// setContent replaces the content pane
func (a *App) setContent(title, header, body string) {
	if c, ok := a.views["textContainer"].(*tview.Flex); ok {
		c.SetTitle(title)
	}
	if h, ok := a.views["header"].(*tview.TextView); ok {
		h.SetText(header)
	}
	if t, ok := a.views["text"].(*tview.TextView); ok {
		t.SetText(body)
		t.ScrollToBeginning()
	}
}

// clearContent empties the content pane and forgets the current message
func (a *App) clearContent() {
	a.currentID = ""
	a.setContent(" Message Content ", "", "")
}

// idAt returns the message id on table row, or ""
func (a *App) idAt(row int) string {
	if row < 0 || row >= len(a.ids) {
		return ""
	}
	return a.ids[row]
}

// cursorID returns the id under the list cursor
func (a *App) cursorID() string {
	list, ok := a.views["list"].(*tview.Table)
	if !ok {
		return ""
	}
	return a.idAt(selectedRow(list))
}

func selectedRow(list *tview.Table) int {
	row, _ := list.GetSelection()
	return row
}
