package views

import (
	"fmt"

	"github.com/matheus3301/resort/internal/api"
	"github.com/matheus3301/resort/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays detailed information about a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Page.
func (ci *ConversationInfo) Name() string { return "Details" }

// Update renders conversation details. favorite is nil when unknown.
func (ci *ConversationInfo) Update(conv api.Conversation, favorite *bool) {
	ci.Clear()

	fg := ui.Tag(ci.theme.FgColor)
	ct := ui.Tag(ci.theme.CounterColor)

	lastActive := formatTimestamp(conv.LastMessageAt)
	if lastActive == "" {
		lastActive = "-"
	}
	fav := "-"
	if favorite != nil {
		fav = "no"
		if *favorite {
			fav = "yes"
		}
	}

	row := func(label, value string) {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-14s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, tview.Escape(sanitizeForTerminal(value)))
	}
	_, _ = fmt.Fprintln(ci)
	row("Resort", conv.ResortName)
	row("Resort ID", conv.ResortID)
	row("Conversation", conv.ID)
	row("Favorite", fav)
	row("Unread", fmt.Sprint(conv.Unread))
	row("Last Active", lastActive)
	row("Last Sender", conv.LastSender)
	row("Last Message", conv.Preview)

	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(sanitizeForTerminal(conv.ResortName))))
}
