package tui

import (
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
)

// initComponents creates the list, content, search and status views
func (a *App) initComponents() {
	bg := a.theme.Body.BgColor.Color()
	fg := a.theme.Body.FgColor.Color()
	border := a.theme.Frame.BorderColor.Color()
	title := a.theme.Frame.TitleColor.Color()

	list := tview.NewTable().SetSelectable(true, false)
	list.SetBackgroundColor(bg)
	list.SetBorder(true).
		SetBorderColor(border).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" Messages ").
		SetTitleColor(title).
		SetTitleAlign(tview.AlignCenter)
	list.SetSelectedStyle(tcell.StyleDefault.
		Background(a.theme.Frame.FocusColor.Color()).
		Foreground(bg))
	list.SetSelectedFunc(func(row, _ int) {
		if id := a.idAt(row); id != "" {
			go a.showMessage(id)
		}
	})

	header := tview.NewTextView().SetDynamicColors(false).SetWrap(true)
	header.SetBackgroundColor(bg)
	header.SetTextColor(title)

	text := tview.NewTextView().SetDynamicColors(false).SetWrap(true).SetScrollable(true)
	text.SetBackgroundColor(bg)
	text.SetTextColor(fg)

	textContainer := tview.NewFlex().SetDirection(tview.FlexRow)
	textContainer.SetBackgroundColor(bg)
	textContainer.SetBorder(true).
		SetBorderColor(border).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(" Message Content ").
		SetTitleColor(title).
		SetTitleAlign(tview.AlignCenter)
	textContainer.AddItem(header, 6, 0, false)
	textContainer.AddItem(text, 0, 1, false)

	search := tview.NewInputField().SetLabel("Search: ")
	search.SetFieldBackgroundColor(bg)
	search.SetFieldTextColor(fg)
	search.SetLabelColor(title)
	search.SetBackgroundColor(bg)
	search.SetChangedFunc(func(term string) {
		if a.session != nil {
			a.session.SetSearch(term)
			a.refreshList()
		}
	})
	search.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			search.SetText("")
		}
		a.hideSearch()
	})

	statusView := tview.NewTextView().SetDynamicColors(false)
	statusView.SetBackgroundColor(bg)
	statusView.SetTextColor(a.theme.Status.FgColor.Color())
	a.status = NewStatusBar(a.Application, statusView)
	a.status.SetColors(a.theme.Status.FgColor.Color(), a.theme.Status.ErrorColor.Color())

	main := tview.NewFlex().SetDirection(tview.FlexRow)
	main.SetBackgroundColor(bg)
	main.AddItem(list, 0, 2, true)
	main.AddItem(search, 0, 0, false)
	main.AddItem(textContainer, 0, 3, false)
	main.AddItem(statusView, 1, 0, false)

	a.views["list"] = list
	a.views["header"] = header
	a.views["text"] = text
	a.views["textContainer"] = textContainer
	a.views["search"] = search
	a.views["status"] = statusView
	a.views["main"] = main

	a.Pages.AddPage("main", main, true, true)
}

// showSearch reveals the search field and focuses it
func (a *App) showSearch() {
	main, _ := a.views["main"].(*tview.Flex)
	search, _ := a.views["search"].(*tview.InputField)
	if main == nil || search == nil {
		return
	}
	a.searchActive = true
	main.ResizeItem(search, 1, 0)
	a.SetFocus(search)
}

// hideSearch collapses the search field, keeping the current term applied
func (a *App) hideSearch() {
	main, _ := a.views["main"].(*tview.Flex)
	search, _ := a.views["search"].(*tview.InputField)
	if main == nil || search == nil {
		return
	}
	a.searchActive = false
	if search.GetText() == "" {
		main.ResizeItem(search, 0, 0)
	}
	if list, ok := a.views["list"].(*tview.Table); ok {
		a.SetFocus(list)
	}
}

// listWidth is the usable width for list rows
func (a *App) listWidth() int {
	if a.screenWidth <= 4 {
		return 40
	}
	return a.screenWidth - 4
}
