package tui

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ajramos/mailrag/internal/config"
	"github.com/ajramos/mailrag/internal/services"
	"github.com/derailed/tcell/v2"
)

// KeyAction is a bound single-rune shortcut
type KeyAction struct {
	Description string
	Action      func()
}

// keyRune returns the rune for a configured key, or false when the binding is
// empty or longer than one character.
func keyRune(binding string) (rune, bool) {
	binding = strings.TrimSpace(binding)
	if utf8.RuneCountInString(binding) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(binding)
	return r, true
}

// buildKeyActions maps configured keys to handlers. Unset or invalid bindings
// are skipped; when two bindings share a rune the first one wins.
func buildKeyActions(keys config.KeyBindings, h keyHandlers) map[rune]KeyAction {
	bindings := []struct {
		key  string
		desc string
		fn   func()
	}{
		{keys.Refresh, "refresh", h.refresh},
		{keys.LoadMore, "load more", h.loadMore},
		{keys.Search, "search", h.search},
		{keys.FilterAll, "show all", h.filterAll},
		{keys.FilterUnread, "show unread", h.filterUnread},
		{keys.FilterStarred, "show starred", h.filterStarred},
		{keys.ToggleStar, "star", h.toggleStar},
		{keys.Archive, "archive", h.archive},
		{keys.Delete, "delete", h.delete},
		{keys.Reply, "reply", h.reply},
		{keys.Generate, "generate", h.generate},
		{keys.SaveMessage, "save .eml", h.save},
		{keys.Quit, "quit", h.quit},
	}
	actions := make(map[rune]KeyAction, len(bindings))
	for _, b := range bindings {
		r, ok := keyRune(b.key)
		if !ok || b.fn == nil {
			continue
		}
		if _, taken := actions[r]; taken {
			continue
		}
		actions[r] = KeyAction{Description: b.desc, Action: b.fn}
	}
	return actions
}

// keyHandlers are the UI operations reachable from the keyboard
type keyHandlers struct {
	refresh       func()
	loadMore      func()
	search        func()
	filterAll     func()
	filterUnread  func()
	filterStarred func()
	toggleStar    func()
	archive       func()
	delete        func()
	reply         func()
	generate      func()
	save          func()
	quit          func()
}

// helpLine lists the bound keys, sorted by key
func helpLine(actions map[rune]KeyAction) string {
	keys := make([]rune, 0, len(actions))
	for r := range actions {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	parts := make([]string, len(keys))
	for i, r := range keys {
		parts[i] = string(r) + " " + actions[r].Description
	}
	return strings.Join(parts, "  ")
}

// bindKeys installs the global key handler
func (a *App) bindKeys() {
	a.actions = buildKeyActions(a.Keys, keyHandlers{
		refresh:       func() { go a.reloadMessages() },
		loadMore:      func() { go a.loadMoreMessages() },
		search:        a.showSearch,
		filterAll:     func() { a.setFilter(services.FilterAll) },
		filterUnread:  func() { a.setFilter(services.FilterUnread) },
		filterStarred: func() { a.setFilter(services.FilterStarred) },
		toggleStar:    a.toggleStar,
		archive:       a.archiveCurrent,
		delete:        a.deleteCurrent,
		reply:         a.showReplyForm,
		generate:      a.showGenerateForm,
		save:          a.saveCurrent,
		quit:          a.Stop,
	})

	a.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Let modals and the search field receive their own input
		if a.searchActive || a.modalOpen() {
			return event
		}
		switch event.Key() {
		case tcell.KeyTab:
			a.toggleFocus()
			return nil
		case tcell.KeyRune:
			if event.Rune() == '?' {
				a.status.ShowInfo(helpLine(a.actions))
				return nil
			}
			if action, ok := a.actions[event.Rune()]; ok {
				action.Action()
				return nil
			}
		}
		return event
	})
}

// modalOpen reports whether a form page is in front
func (a *App) modalOpen() bool {
	name, _ := a.Pages.GetFrontPage()
	return name != "" && name != "main"
}

// toggleFocus moves focus between the list and the content pane
func (a *App) toggleFocus() {
	list := a.views["list"]
	text := a.views["text"]
	if list == nil || text == nil {
		return
	}
	if a.GetFocus() == list {
		a.SetFocus(text)
		return
	}
	a.SetFocus(list)
}
