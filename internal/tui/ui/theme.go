package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds the colors of the terminal view.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	TableHeaderFg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	UnreadFg          tcell.Color
	BadgeFg           tcell.Color
	BadgeBg           tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	StateLiveColor    tcell.Color
	StateWarnColor    tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
}

// DefaultTheme returns a dark theme with sea-green accents.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorLightCyan,
		BorderColor:       tcell.ColorLightSeaGreen,
		TableHeaderFg:     tcell.ColorWhite,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorMediumTurquoise,
		UnreadFg:          tcell.ColorGold,
		BadgeFg:           tcell.ColorWhite,
		BadgeBg:           tcell.ColorCrimson,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorSandyBrown,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorMediumTurquoise,
		MenuKeyColor:      tcell.ColorLightSeaGreen,
		TitleColor:        tcell.ColorSandyBrown,
		CounterColor:      tcell.ColorPapayaWhip,
		StateLiveColor:    tcell.ColorLimeGreen,
		StateWarnColor:    tcell.ColorOrange,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorLightSeaGreen,
	}
}

// StateColor picks the color a session state is shown in.
func (t *Theme) StateColor(state string) tcell.Color {
	switch state {
	case "LIVE":
		return t.StateLiveColor
	case "SYNCING", "DEGRADED":
		return t.StateWarnColor
	default:
		return t.FgColor
	}
}

// Tag returns a tview color tag name for c.
func Tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
