// Package render produces the read-only views of a registry: the markdown
// projection saved next to the registry, the styled terminal tree and the
// standalone HTML viewer.
package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// Status palette, adaptive to light and dark terminals.
var (
	ColorPass = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorInfo = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
	ColorWork = lipgloss.AdaptiveColor{Light: "#fa8d3e", Dark: "#ff8f40"}
	ColorEsc  = lipgloss.AdaptiveColor{Light: "#a37acc", Dark: "#d2a6ff"}
	ColorMute = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
)

var (
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMute)
	AccentStyle  = lipgloss.NewStyle().Foreground(ColorInfo)
	CurrentStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)
)

// Status icons.
const (
	IconPending    = "○"
	IconDecomposed = "◆"
	IconExecuting  = "▶"
	IconFastTrack  = "»"
	IconTesting    = "◎"
	IconPassed     = "✓"
	IconFailed     = "✗"
	IconEscalated  = "⚠"
	IconUnknown    = "?"
)

// Tree characters for hierarchical display.
const (
	TreeBranch = "├─ "
	TreeIndent = "  "
	Separator  = "════════════════════════════════════════════════════════════"
)

// StatusIcon returns the glyph for a status.
func StatusIcon(s models.Status) string {
	switch s {
	case models.StatusPending:
		return IconPending
	case models.StatusDecomposed:
		return IconDecomposed
	case models.StatusExecuting:
		return IconExecuting
	case models.StatusFastTrack:
		return IconFastTrack
	case models.StatusTesting:
		return IconTesting
	case models.StatusPassed:
		return IconPassed
	case models.StatusFailed:
		return IconFailed
	case models.StatusEscalated:
		return IconEscalated
	default:
		return IconUnknown
	}
}

// StatusColor returns the palette entry for a status.
func StatusColor(s models.Status) lipgloss.AdaptiveColor {
	switch s {
	case models.StatusPassed:
		return ColorPass
	case models.StatusFailed:
		return ColorFail
	case models.StatusExecuting, models.StatusFastTrack:
		return ColorWork
	case models.StatusTesting, models.StatusDecomposed:
		return ColorWarn
	case models.StatusEscalated:
		return ColorEsc
	case models.StatusPending:
		return ColorInfo
	default:
		return ColorMute
	}
}

// StatusStyle returns the foreground style for a status.
func StatusStyle(s models.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(s))
}

// RenderStatus renders "icon status" in the status color.
func RenderStatus(s models.Status) string {
	return StatusStyle(s).Render(StatusIcon(s) + " " + string(s))
}

// CriterionMark returns the mark for a test criterion outcome.
func CriterionMark(tc models.TestCriterion) string {
	switch {
	case tc.Passed == nil:
		return "…"
	case *tc.Passed:
		return IconPassed
	default:
		return IconFailed
	}
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
