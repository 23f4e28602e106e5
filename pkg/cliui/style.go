// Package cliui holds the terminal styling shared by frames commands.
package cliui

import (
	"fmt"
	"image/color"
	"time"

	"charm.land/lipgloss/v2"
)

var (
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	amber  = lipgloss.Color("214")
	blue   = lipgloss.Color("39")
	grey   = lipgloss.Color("245")
	bright = lipgloss.Color("252")
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(green).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(red).Render("✗")

	HeaderStyle = lipgloss.NewStyle().Bold(true)
	NameStyle   = lipgloss.NewStyle().Bold(true).Foreground(bright)
	KeyStyle    = lipgloss.NewStyle().Foreground(blue)
	ValueStyle  = lipgloss.NewStyle().Foreground(bright)
	DimStyle    = lipgloss.NewStyle().Foreground(grey)
	WarnStyle   = lipgloss.NewStyle().Foreground(amber)
)

// Frame states and digest statuses share one palette: live work is blue,
// waiting is amber, finished is green, failed is red, inert is grey.
var statusColors = map[string]color.Color{
	"active":             blue,
	"closed":             grey,
	"pending":            amber,
	"ai_processing":      amber,
	"complete":           green,
	"ai_failed":          red,
	"deterministic_only": grey,
}

// Mark is ✓ for a nil error and ✗ otherwise.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// Status colours a frame state or digest status. Unknown values come back
// unstyled.
func Status(s string) string {
	return StatusCell(s, 0)
}

// StatusCell is Status padded to width before styling, so columns line up
// once escape codes are added.
func StatusCell(s string, width int) string {
	padded := fmt.Sprintf("%-*s", width, s)
	c, ok := statusColors[s]
	if !ok {
		return padded
	}
	return lipgloss.NewStyle().Foreground(c).Render(padded)
}

// FormatDuration renders sub-second durations in ms and the rest in
// tenths of a second.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
