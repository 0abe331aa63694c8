package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajramos/mailrag/internal/services"
	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"
	"go.uber.org/zap"
)

// toggleStar flips the star on the message under the cursor
func (a *App) toggleStar() {
	id := a.cursorID()
	if id == "" || !a.session.ToggleStar(id) {
		return
	}
	a.refreshList()
}

// archiveCurrent archives the message under the cursor
func (a *App) archiveCurrent() {
	id := a.cursorID()
	if id == "" || !a.session.Archive(a.ctx, id) {
		return
	}
	if a.currentID == id {
		a.clearContent()
	}
	a.refreshList()
	a.status.ShowSuccess("Archived")
}

// deleteCurrent removes the message under the cursor from the session
func (a *App) deleteCurrent() {
	id := a.cursorID()
	if id == "" || !a.session.Remove(id) {
		return
	}
	if a.currentID == id {
		a.clearContent()
	}
	a.refreshList()
	a.status.ShowSuccess("Deleted")
}

// setFilter switches the status filter
func (a *App) setFilter(status services.FilterStatus) {
	a.session.SetStatus(status)
	a.refreshList()
}

// saveCurrent writes the message under the cursor to an .eml file
func (a *App) saveCurrent() {
	if a.exporter == nil {
		a.status.ShowWarning("Saving is not configured")
		return
	}
	msg, ok := a.session.Message(a.cursorID())
	if !ok {
		return
	}
	path := a.exporter.DefaultPath(msg)
	go func() {
		if err := a.exporter.SaveMessage(msg, path); err != nil {
			a.logger.Warn("tui: save failed", zap.String("path", path), zap.Error(err))
			a.status.HandleError(err, "Could not save message")
			return
		}
		a.status.ShowSuccess("Saved to " + path)
	}()
}

// showReplyForm opens a reply to the message under the cursor
func (a *App) showReplyForm() {
	if a.composer == nil {
		a.status.ShowWarning("Sending is not configured")
		return
	}
	msg, ok := a.session.Message(a.cursorID())
	if !ok {
		return
	}
	draft := a.composer.BuildReply(msg, time.Now())

	form := tview.NewForm()
	a.styleForm(form, " Reply ")
	form.AddInputField("To", draft.To, 0, nil, nil)
	form.AddInputField("From", draft.From, 0, nil, nil)
	form.AddInputField("Subject", draft.Subject, 0, nil, nil)
	form.AddInputField("Message", "", 0, nil, nil)
	form.AddButton("Send", func() {
		draft.To = formText(form, "To")
		draft.From = formText(form, "From")
		draft.Subject = formText(form, "Subject")
		draft.Body = formText(form, "Message") + draft.Body
		if errs := a.composer.Validate(draft); len(errs) > 0 {
			a.status.ShowError(errs[0].Message)
			return
		}
		a.closeModal("reply")
		go func() {
			a.status.ShowProgress("Sending...")
			res, err := a.composer.Send(a.ctx, draft)
			a.status.ClearProgress()
			if err != nil {
				a.status.HandleError(err, "Failed to send email")
				return
			}
			a.status.ShowSuccess(res)
		}()
	})
	form.AddButton("Cancel", func() { a.closeModal("reply") })
	form.SetCancelFunc(func() { a.closeModal("reply") })

	a.openModal("reply", form, 11)
}

// showGenerateForm opens the AI draft form
func (a *App) showGenerateForm() {
	if a.generator == nil {
		a.status.ShowWarning("AI generation is not configured")
		return
	}

	categories := make([]string, len(services.Catalog))
	for i, c := range services.Catalog {
		categories[i] = c.Name
	}
	catIndex := 0
	subKeys := services.Catalog[0].SubcategoryKeys()

	form := tview.NewForm()
	a.styleForm(form, " Generate Email ")
	sub := tview.NewDropDown().SetLabel("Type")
	setSubOptions := func(idx int) {
		subKeys = services.Catalog[idx].SubcategoryKeys()
		labels := make([]string, len(subKeys))
		for i, k := range subKeys {
			labels[i] = services.Catalog[idx].Subcategories[k]
		}
		sub.SetOptions(labels, nil)
		sub.SetCurrentOption(0)
	}
	form.AddDropDown("Category", categories, 0, func(_ string, idx int) {
		if idx >= 0 && idx != catIndex {
			catIndex = idx
			setSubOptions(idx)
		}
	})
	setSubOptions(0)
	form.AddFormItem(sub)
	form.AddInputField("Context", "", 0, nil, nil)
	form.AddButton("Generate", func() {
		subIdx, _ := sub.GetCurrentOption()
		if subIdx < 0 || subIdx >= len(subKeys) {
			return
		}
		req := services.GenerationRequest{
			Category:    services.Catalog[catIndex].Key,
			Subcategory: subKeys[subIdx],
			Context:     formText(form, "Context"),
		}
		a.closeModal("generate")
		go a.generate(req)
	})
	form.AddButton("Cancel", func() { a.closeModal("generate") })
	form.SetCancelFunc(func() { a.closeModal("generate") })

	a.openModal("generate", form, 11)
}

// generate runs an AI draft request and shows the result. Runs off the UI
// goroutine.
func (a *App) generate(req services.GenerationRequest) {
	a.status.ShowProgress("Generating email...")
	res, err := a.generator.Generate(a.ctx, req)
	a.status.ClearProgress()
	if err != nil {
		a.status.HandleError(err, "Generation failed")
		return
	}
	header := fmt.Sprintf("Subject: %s\nProvider: %s\nGenerated in: %s",
		res.Subject, res.Provider, res.Duration.Round(time.Millisecond))
	a.QueueUpdateDraw(func() {
		a.currentID = ""
		a.setContent(" Generated Draft ", header, res.Body)
	})
	a.status.ShowSuccess("Draft ready")
}

// styleForm applies theme colors to a modal form
func (a *App) styleForm(form *tview.Form, title string) {
	bg := a.theme.Body.BgColor.Color()
	form.SetBackgroundColor(bg)
	form.SetFieldBackgroundColor(bg)
	form.SetFieldTextColor(a.theme.Body.FgColor.Color())
	form.SetLabelColor(a.theme.Frame.TitleColor.Color())
	form.SetButtonBackgroundColor(a.theme.Frame.BorderColor.Color())
	form.SetButtonTextColor(a.theme.Body.FgColor.Color())
	form.SetBorder(true).
		SetBorderColor(a.theme.Frame.FocusColor.Color()).
		SetBorderAttributes(tcell.AttrBold).
		SetTitle(title).
		SetTitleColor(a.theme.Frame.TitleColor.Color())
}

// openModal centers p over the main page
func (a *App) openModal(name string, p tview.Primitive, height int) {
	grid := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), 0, 3, true).
		AddItem(nil, 0, 1, false)
	a.Pages.AddPage(name, grid, true, true)
	a.SetFocus(p)
}

// closeModal removes a modal page and returns focus to the list
func (a *App) closeModal(name string) {
	a.Pages.RemovePage(name)
	if list, ok := a.views["list"].(*tview.Table); ok {
		a.SetFocus(list)
	}
}

// formText reads an input field's text from form
func formText(form *tview.Form, label string) string {
	if field, ok := form.GetFormItemByLabel(label).(*tview.InputField); ok {
		return strings.TrimSpace(field.GetText())
	}
	return ""
}
