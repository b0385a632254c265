// Package theme styles the command line output.
package theme

import (
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	Accent  = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Key = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(14)

	Pass = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Fail = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Warn = lipgloss.NewStyle().
		Foreground(Accent)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// maxDots is the widest level drawn as dots; higher levels fall back to the
// number alone.
const maxDots = 5

// Level renders a certification level, e.g. "●●●○○ 3". Level 0 reads as
// not acquired.
func Level(n int) string {
	if n <= 0 {
		return Fail.Render("not acquired")
	}
	num := strconv.Itoa(n)
	if n > maxDots {
		return Pass.Render(num)
	}
	dots := strings.Repeat("●", n) + strings.Repeat("○", maxDots-n)
	return Pass.Render(dots) + " " + num
}

// Verdict renders PASS or FAIL.
func Verdict(passed bool) string {
	if passed {
		return Pass.Render("PASS")
	}
	return Fail.Render("FAIL")
}

// Field renders an aligned "key  value" line.
func Field(key, value string) string {
	return Key.Render(key) + value
}
