package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/ledgerdeck/internal/store"
)

// MinLeftWidth is the minimum character width for the list pane.
const MinLeftWidth = 40

var (
	accent = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dim    = lipgloss.AdaptiveColor{Light: "240", Dark: "240"}

	mutedText  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	headerText = lipgloss.NewStyle().Bold(true)
	activeTab  = lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true)
	errorText  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
)

// Status badge colors by fetch status.
var statusColors = map[store.Status]lipgloss.AdaptiveColor{
	store.StatusInitiated: {Light: "3", Dark: "11"},    // yellow
	store.StatusPending:   {Light: "3", Dark: "11"},    // yellow
	store.StatusSuccess:   {Light: "2", Dark: "10"},    // green
	store.StatusFailed:    {Light: "1", Dark: "9"},     // red
	store.StatusDefault:   {Light: "240", Dark: "245"}, // gray
}

// StatusBadge returns a styled, lower-case status label.
func StatusBadge(s store.Status) string {
	c, ok := statusColors[s]
	if !ok {
		c = statusColors[store.StatusDefault]
	}
	label := "idle"
	switch s {
	case store.StatusInitiated, store.StatusPending:
		label = "loading"
	case store.StatusSuccess:
		label = "ok"
	case store.StatusFailed:
		label = "failed"
	}
	return lipgloss.NewStyle().Foreground(c).Render(label)
}

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent)
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim)
}

// PaneWidths calculates the list and detail pane widths from a total width.
// The list pane gets 3/5 (minimum MinLeftWidth), the detail pane the rest.
func PaneWidths(totalWidth int) (left, right int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	left = totalWidth * 3 / 5
	if left < MinLeftWidth {
		left = MinLeftWidth
	}
	right = totalWidth - left
	if right < 0 {
		right = 0
	}
	return left, right
}
