package ui

import (
	"fmt"

	"github.com/matheus3301/resort/internal/chat"
	"github.com/rivo/tview"
)

// Badge is the chat tab with its unread bubble. The bubble is hidden at zero
// and caps at 99+.
type Badge struct {
	*tview.TextView
	theme *Theme
}

// NewBadge creates a new badge widget.
func NewBadge(theme *Theme) *Badge {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 0, 1)

	b := &Badge{TextView: tv, theme: theme}
	b.Update(0)
	return b
}

// Update renders count.
func (b *Badge) Update(count int64) {
	b.Clear()
	_, _ = fmt.Fprint(b, Render(b.theme, count))
}

// Render returns the tab text for count, with tview color tags.
func Render(theme *Theme, count int64) string {
	tab := fmt.Sprintf("[%s::b]Chat[-:-:-]", Tag(theme.TitleColor))
	label := chat.BadgeLabel(int(count))
	if label == "" {
		return tab
	}
	return fmt.Sprintf("%s [%s:%s:b] %s [-:-:-]", tab, Tag(theme.BadgeFg), Tag(theme.BadgeBg), label)
}
