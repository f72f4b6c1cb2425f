package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/resort/internal/api"
	"github.com/matheus3301/resort/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the table of the user's conversations, newest first.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	convs   []api.Conversation
	visible []api.Conversation
	filter  string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
	}
	cl.render()
	return cl
}

// Name implements ui.Page.
func (cl *ConversationList) Name() string { return "Conversations" }

// Update replaces the rows, keeping the selected conversation selected.
func (cl *ConversationList) Update(convs []api.Conversation) {
	selected := cl.Selected()
	cl.convs = convs
	cl.render()
	cl.Select(selected)
}

// SetFilter sets the active filter text and re-renders. An empty filter
// shows every conversation.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

func (cl *ConversationList) matches(c api.Conversation) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	return strings.Contains(strings.ToLower(c.ResortName), f) ||
		strings.Contains(strings.ToLower(c.Preview), f)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text  string
		exp   int
		align int
	}{
		{" RESORT", 1, tview.AlignLeft},
		{" LAST MESSAGE", 2, tview.AlignLeft},
		{" FROM", 0, tview.AlignLeft},
		{" TIME", 0, tview.AlignRight},
		{" UNREAD", 0, tview.AlignRight},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp).
			SetAlign(h.align))
	}

	cl.visible = cl.visible[:0]
	for _, c := range cl.convs {
		if !cl.matches(c) {
			continue
		}
		cl.visible = append(cl.visible, c)
		row := len(cl.visible)

		fg := cl.theme.FgColor
		unread := ""
		if c.Unread > 0 {
			fg = cl.theme.UnreadFg
			unread = fmt.Sprint(c.Unread)
		}
		name := c.ResortName
		if name == "" {
			name = c.ResortID
		}
		cell := func(text string, exp int) *tview.TableCell {
			return tview.NewTableCell(" " + tview.Escape(sanitizeForTerminal(text))).SetExpansion(exp).SetTextColor(fg)
		}
		cl.SetCell(row, 0, cell(name, 1))
		cl.SetCell(row, 1, cell(c.Preview, 2))
		cl.SetCell(row, 2, cell(c.LastSender, 0))
		cl.SetCell(row, 3, cell(formatTimestamp(c.LastMessageAt), 0).SetAlign(tview.AlignRight))
		cl.SetCell(row, 4, cell(unread, 0).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(cl.visible), len(cl.convs), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.convs)))
	}
}

// Selected returns the id of the selected conversation, or empty.
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the id of the Nth visible conversation (1-based), or empty.
func (cl *ConversationList) ByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

// Select moves the cursor to the conversation with id, if visible.
func (cl *ConversationList) Select(id string) {
	for i, c := range cl.visible {
		if c.ID == id {
			cl.Table.Select(i+1, 0)
			return
		}
	}
}

// formatTimestamp renders a unix-millisecond time as a clock time today or a date otherwise.
func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
