package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/gcsspectre/internal/models"
)

var (
	colorExposed = lipgloss.Color("#FF0000")
	colorWarn    = lipgloss.Color("#FF8800")
	colorMedium  = lipgloss.Color("#FFFF00")
	colorOK      = lipgloss.Color("#00FF00")
	colorMuted   = lipgloss.Color("#888888")
	colorAccent  = lipgloss.Color("#7B68EE")
	colorBorder  = lipgloss.Color("#444444")
)

// Panel styles
var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleDetailPanel = lipgloss.NewStyle().
				Padding(0, 1).
				BorderStyle(lipgloss.NormalBorder()).
				BorderTop(true).
				BorderForeground(colorBorder)

	styleFooter = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	styleSearchPrompt = lipgloss.NewStyle().
				Foreground(colorAccent).Bold(true)

	styleError = lipgloss.NewStyle().Foreground(colorWarn)
)

// matchStyle returns the style for an exposure match value.
func matchStyle(match models.ExposureMatch) lipgloss.Style {
	switch match {
	case models.ExposureMatchYes:
		return lipgloss.NewStyle().Foreground(colorExposed).Bold(true)
	case models.ExposureMatchDiscrepancy:
		return lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	case models.ExposureMatchNo:
		return lipgloss.NewStyle().Foreground(colorOK)
	default:
		return lipgloss.NewStyle()
	}
}

// healthStyle returns the lipgloss style for a health score level.
func healthStyle(health string) lipgloss.Style {
	switch health {
	case "excellent":
		return lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	case "good":
		return lipgloss.NewStyle().Foreground(colorOK)
	case "warning":
		return lipgloss.NewStyle().Foreground(colorMedium).Bold(true)
	case "critical":
		return lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	case "severe":
		return lipgloss.NewStyle().Foreground(colorExposed).Bold(true)
	default:
		return lipgloss.NewStyle()
	}
}
