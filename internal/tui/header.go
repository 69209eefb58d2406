package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/aggregator"
	"github.com/ppiankov/gcsspectre/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 5

// renderHeader produces the header string from run summary data.
func renderHeader(summary models.RunSummary, trend *models.Trend, sparkline []int, width int) string {
	var b strings.Builder

	// Line 1: title and health
	healthText := healthStyle(summary.HealthScore).Render(
		fmt.Sprintf("%s (%.0f%%)", strings.ToUpper(summary.HealthScore), summary.ScorePercent),
	)
	b.WriteString(fmt.Sprintf("gcsspectre  Health: %s", healthText))

	if trend != nil {
		indicator := aggregator.GetTrendIndicator(trend.Direction)
		b.WriteString(fmt.Sprintf("  %s %+d exposed", indicator, trend.CurrentExposed-trend.PreviousExposed))
	}
	b.WriteString("\n")

	// Line 2: totals
	b.WriteString(fmt.Sprintf("Projects: %d  Buckets: %d  Exposed: %d  Errors: %d",
		summary.TotalProjects, summary.TotalBuckets, summary.ExposedBuckets,
		summary.ErroredBuckets+summary.ProjectErrors))
	b.WriteString("\n")

	// Line 3: exposed principals
	principals := make([]string, 0, len(summary.ExposedPrincipals))
	for p := range summary.ExposedPrincipals {
		principals = append(principals, p)
	}
	sort.Strings(principals)
	parts := make([]string, 0, len(principals))
	for _, p := range principals {
		label := fmt.Sprintf("%s:%d", p, summary.ExposedPrincipals[p])
		parts = append(parts, matchStyle(models.ExposureMatchYes).Render(label))
	}
	b.WriteString(strings.Join(parts, "  "))
	b.WriteString("\n")

	// Line 4: sparkline
	if len(sparkline) > 0 {
		b.WriteString("Trend: ")
		b.WriteString(renderSparkline(sparkline))
	}

	return styleHeader.Width(width).Render(b.String())
}

// renderSparkline draws the exposed counts with their first and last value.
func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	return fmt.Sprintf("%s [%d→%d]", aggregator.Sparkline(values), values[0], values[len(values)-1])
}
