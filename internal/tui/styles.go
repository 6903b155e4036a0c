package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// hints and live partial text
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)
)

const logoASCII = `
 _                                   _ _
| |__  _   _ _ __  _ __ ___  ___ _ __(_) |__   ___
| '_ \| | | | '_ \| '__/ __|/ __| '__| | '_ \ / _ \
| | | | |_| | |_) | |  \__ \ (__| |  | | |_) |  __/
|_| |_|\__, | .__/|_|  |___/\___|_|  |_|_.__/ \___|
       |___/|_|`

func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
