package ui

import (
	"fmt"
	"time"

	"github.com/matheus3301/resort/internal/api"
	"github.com/rivo/tview"
)

// SessionInfo shows the daemon status in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the status. unread is passed separately because it is
// streamed rather than polled.
func (si *SessionInfo) Update(st api.Status, unread int64) {
	si.Clear()

	fg := Tag(si.theme.FgColor)
	val := Tag(si.theme.CounterColor)
	state := Tag(si.theme.StateColor(st.State))

	user := "-"
	if st.UserID != "" {
		user = fmt.Sprintf("%s (%s)", st.UserID, st.Role)
	}
	refreshed := "-"
	if t, err := time.Parse(time.RFC3339, st.LastRefresh); err == nil {
		refreshed = t.Local().Format("15:04:05")
	}

	row := func(label, color, value string) {
		_, _ = fmt.Fprintf(si, "[%s::b]%-9s[-:-:-] [%s]%s[-]\n", fg, label+":", color, tview.Escape(value))
	}
	row("Session", val, st.Session)
	row("User", val, user)
	row("State", state, st.State)
	row("Unread", val, fmt.Sprint(unread))
	row("Chats", val, fmt.Sprint(st.Conversations))
	row("Refresh", val, refreshed)
	row("Uptime", val, formatDuration(time.Duration(st.UptimeMs)*time.Millisecond))
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
