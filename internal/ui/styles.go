package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. Cameras are mostly reported in teal, problems in warm colors.
var (
	PrimaryColor = lipgloss.Color("#2AA198")
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("#FFA500")
	MutedColor   = lipgloss.Color("#6C7A89")
	TextColor    = lipgloss.Color("#ECEFF4")
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	HeaderTitleStyle      = fg(TextColor).Bold(true).PaddingLeft(2)
	HeaderCommandStyle    = fg(MutedColor).PaddingLeft(2)
	HeaderParamKeyStyle   = fg(MutedColor).PaddingLeft(2)
	HeaderParamValueStyle = fg(TextColor)

	SuccessTitleStyle = fg(SuccessColor).Bold(true)
	ErrorTitleStyle   = fg(ErrorColor).Bold(true)
	WarningTitleStyle = fg(WarningColor).Bold(true)
	ErrorMessageStyle = fg(ErrorColor)

	// ResultKeyStyle pads keys so values line up.
	ResultKeyStyle   = fg(MutedColor).Width(18)
	ResultValueStyle = fg(TextColor)

	SectionTitleStyle         = fg(PrimaryColor).Bold(true)
	TroubleshootingTitleStyle = fg(MutedColor).Bold(true)
	TroubleshootingItemStyle  = fg(MutedColor)

	TableHeaderStyle = fg(PrimaryColor).Bold(true).Padding(0, 1)
	TableCellStyle   = fg(TextColor).Padding(0, 1)

	MutedStyle = fg(MutedColor)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "⚠"
)

// GetTerminalWidth returns the stdout width clamped to
// [MinTerminalWidth, MaxContentWidth]. Pipes get the minimum.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

func clampWidth(width int, err error) int {
	switch {
	case err != nil, width < MinTerminalWidth:
		return MinTerminalWidth
	case width > MaxContentWidth:
		return MaxContentWidth
	}
	return width
}

// RenderHorizontalDivider draws a rule width cells long.
func RenderHorizontalDivider(width int, char string) string {
	if width < 1 {
		width = 1
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
