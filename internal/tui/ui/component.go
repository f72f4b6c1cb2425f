// Package ui holds the building blocks of the terminal view: theme, page
// stack, header widgets and the flash bar.
package ui

import "github.com/rivo/tview"

// Page is a view that lives on the page stack under its name.
type Page interface {
	tview.Primitive
	Name() string
}
