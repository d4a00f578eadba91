// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for the Outfit Studio theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background colors
	BgDark  = lipgloss.Color("235")
	BgLight = lipgloss.Color("237")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary).
	MarginBottom(1)

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2).
	Padding(0, 1)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// FocusedBorderStyle creates a focused border.
var FocusedBorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Primary).
	Padding(0, 1)

// BlurredBorderStyle creates an unfocused border.
var BlurredBorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 1)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// InfoTextStyle styles secondary informational text.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(TextSecondary)

// ErrorTextStyle styles inline error text.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle styles inline success text.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle styles inline warning text.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// KeyBadgeStyle styles the masked API key display.
var KeyBadgeStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Background(BgLight).
	Padding(0, 1)

// CenterHorizontal centers content within the given width.
func CenterHorizontal(content string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, content)
}

// CenterBoth centers content within the given width and height.
func CenterBoth(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
