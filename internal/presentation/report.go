package presentation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/contentgraph/internal/workspace"
)

var (
	successColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}

	headingStyle  = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(successColor)
	warningStyle  = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	additionStyle = lipgloss.NewStyle().Foreground(successColor)
	deletionStyle = lipgloss.NewStyle().Foreground(errorColor)
	conflictBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warningColor).
			Padding(0, 1)
)

// RenderDiff renders diff lines with +/- gutters. Context lines are muted.
func RenderDiff(lines []DiffLine) string {
	var b strings.Builder
	for _, l := range lines {
		switch l.Type {
		case LineAddition:
			b.WriteString(additionStyle.Render("+ " + l.Text))
		case LineDeletion:
			b.WriteString(deletionStyle.Render("- " + l.Text))
		default:
			b.WriteString(mutedStyle.Render("  " + l.Text))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderConflicts renders the commands a rebase of ws could not replay.
func RenderConflicts(ws string, conflicts []workspace.CommandThatFailed) string {
	if len(conflicts) == 0 {
		return successStyle.Render(fmt.Sprintf("✓ %s rebased without conflicts", ws)) + "\n"
	}

	lines := []string{warningStyle.Render(fmt.Sprintf("%d conflicting command(s) in %s", len(conflicts), ws))}
	for _, c := range FromConflicts(conflicts) {
		lines = append(lines, fmt.Sprintf("%s %s  %s",
			mutedStyle.Render(fmt.Sprintf("#%d", c.SequenceNumber)),
			headingStyle.Render(c.CommandType),
			errorStyle.Render(c.Error),
		))
	}
	return conflictBox.Render(strings.Join(lines, "\n")) + "\n"
}

// CheckResult is the outcome of loading one configuration source.
type CheckResult struct {
	Source string
	Detail string
	Err    error
}

// RenderCheck renders a pass/fail line per result.
func RenderCheck(results []CheckResult) string {
	var b strings.Builder
	for _, r := range results {
		if r.Err != nil {
			b.WriteString(errorStyle.Render("✗ " + r.Source))
			b.WriteString(" ")
			b.WriteString(r.Err.Error())
		} else {
			b.WriteString(successStyle.Render("✓ " + r.Source))
			if r.Detail != "" {
				b.WriteString(" ")
				b.WriteString(mutedStyle.Render(r.Detail))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
