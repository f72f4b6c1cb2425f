package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/resort/internal/api"
	"github.com/matheus3301/resort/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageView is the read-only thread of one conversation.
type MessageView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewMessageView creates a new message thread view.
func NewMessageView(theme *ui.Theme) *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)
	tv.SetTitle(" Messages ")

	return &MessageView{TextView: tv, theme: theme}
}

// Name implements ui.Page.
func (mv *MessageView) Name() string { return "Messages" }

// Update renders the thread of conv, oldest first, and scrolls to the end.
// Messages from the counterpart of role are highlighted.
func (mv *MessageView) Update(conv api.Conversation, msgs []api.Message, role string) {
	mv.Clear()

	title := conv.ResortName
	if title == "" {
		title = conv.ResortID
	}
	mv.SetTitle(fmt.Sprintf(" %s (%d) ", tview.Escape(sanitizeForTerminal(title)), len(msgs)))

	if len(msgs) == 0 {
		_, _ = fmt.Fprintf(mv, "\n  [%s]No messages.[-]", ui.Tag(mv.theme.CounterColor))
		return
	}

	own := ui.Tag(mv.theme.FgColor)
	other := ui.Tag(mv.theme.UnreadFg)
	stamp := ui.Tag(mv.theme.CounterColor)
	var lastDay string
	for _, m := range msgs {
		t := time.UnixMilli(m.Timestamp)
		if day := t.Format("Mon Jan 2 2006"); day != lastDay {
			_, _ = fmt.Fprintf(mv, "\n [%s::d]-- %s --[-:-:-]\n", stamp, day)
			lastDay = day
		}
		color := own
		if m.Sender != role {
			color = other
		}
		_, _ = fmt.Fprintf(mv, " [%s]%s[-] [%s::b]%s:[-:-:-] %s\n",
			stamp, t.Format("15:04"),
			color, tview.Escape(m.Sender),
			tview.Escape(sanitizeForTerminal(m.Text)))
	}
	mv.ScrollToEnd()
}
