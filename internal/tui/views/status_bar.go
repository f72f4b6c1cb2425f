package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/resort/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays persistent session status along the bottom.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	session string
	state   string
	unread  int64
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetState updates the daemon state display.
func (sb *StatusBar) SetState(state string) {
	sb.state = state
	sb.render()
}

// SetUnread updates the badge.
func (sb *StatusBar) SetUnread(n int64) {
	sb.unread = n
	sb.render()
}

// Tick re-renders the clock.
func (sb *StatusBar) Tick() { sb.render() }

func (sb *StatusBar) render() {
	sb.Clear()

	state := sb.state
	if state == "" {
		state = "-"
	}
	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-] | %s | %s",
		tview.Escape(sb.session),
		ui.Tag(sb.theme.StateColor(sb.state)), state,
		ui.Render(sb.theme, sb.unread),
		time.Now().Format("15:04"))
	_, _ = fmt.Fprint(sb, line)
}
