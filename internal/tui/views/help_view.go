package views

import (
	"fmt"

	"github.com/matheus3301/resort/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements ui.Page.
func (hv *HelpView) Name() string { return "Help" }

type helpEntry struct{ key, desc string }

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{"Global Keys", []helpEntry{
		{"q", "Quit"},
		{"r", "Refresh from backend"},
		{"0", "Mark all read"},
		{":", "Command mode"},
		{"?", "Help"},
		{"Esc", "Back"},
		{"Ctrl-C", "Quit immediately"},
	}},
	{"Conversation List", []helpEntry{
		{"Enter", "Open conversation"},
		{"d", "Show conversation details"},
		{"/", "Filter by resort or message"},
		{"1-9", "Open Nth conversation"},
		{"j/k", "Move down / up"},
	}},
	{"Commands (: mode)", []helpEntry{
		{":refresh", "Refresh from backend"},
		{":read", "Mark all read"},
		{":login <user> [role]", "Start a session"},
		{":logout", "End the session"},
		{":help", "Show this help"},
		{":quit", "Quit application"},
	}},
}

func (hv *HelpView) render() {
	kc := ui.Tag(hv.theme.MenuKeyColor)
	for _, s := range helpSections {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, e := range s.entries {
			_, _ = fmt.Fprintf(hv, "  [%s]%-22s[-:-:-] %s\n", kc, tview.Escape(e.key), e.desc)
		}
	}
}
