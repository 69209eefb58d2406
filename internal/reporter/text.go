package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ppiankov/gcsspectre/internal/aggregator"
	"github.com/ppiankov/gcsspectre/internal/models"
)

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
	// MaxRecommendations limits the printed actions; 0 prints all.
	MaxRecommendations int
}

// NewTextReporter creates a new text reporter
func NewTextReporter(writer io.Writer) *TextReporter {
	return &TextReporter{
		writer: writer,
	}
}

// Generate creates a text report from a run
func (r *TextReporter) Generate(run *models.Run) error {
	r.printHeader()
	if !run.Timestamp.IsZero() {
		r.printf("Timestamp: %s\n", formatTimestamp(run.Timestamp))
	}
	if run.Input != "" {
		r.printf("Input: %s\n", run.Input)
	}
	r.printf("\n")

	r.printOverallSummary(run)

	rows := Summarize(run.Report)
	if len(rows) > 0 {
		r.printf("Buckets:\n")
		r.printf("%s\n", renderTable(rows))
	}

	r.printProjectErrors(run.Report)

	if len(run.Recommendations) > 0 {
		r.printRecommendations(run.Recommendations)
	}

	if run.Trend != nil {
		r.printf("\n")
		r.printTrendInfo(run.Trend)
	}

	return nil
}

// printHeader prints the report header
func (r *TextReporter) printHeader() {
	r.printf("╔════════════════════════════════════════════╗\n")
	r.printf("║     gcsspectre Public Read Investigation   ║\n")
	r.printf("╚════════════════════════════════════════════╝\n\n")
}

// printOverallSummary prints the overall summary section
func (r *TextReporter) printOverallSummary(run *models.Run) {
	s := run.Summary
	r.printf("Overall Summary:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Projects: %d\n", s.TotalProjects)
	r.printf("  Buckets: %d (%d exposed, %d with errors)\n", s.TotalBuckets, s.ExposedBuckets, s.ErroredBuckets)
	if s.ProjectErrors > 0 {
		r.printf("  Project Errors: %d\n", s.ProjectErrors)
	}
	if s.SkippedRecords > 0 {
		r.printf("  Skipped Rows: %d\n", s.SkippedRecords)
	}
	r.printf("  Health Score: %s", strings.ToUpper(s.HealthScore))
	if s.TotalBuckets > 0 {
		r.printf(" (%.1f%%)", s.ScorePercent)
	}
	if run.Trend != nil {
		r.printf(" %s %d exposed previously", aggregator.GetTrendIndicator(run.Trend.Direction), run.Trend.PreviousExposed)
	}
	r.printf("\n\n")

	if len(s.ExposedPrincipals) > 0 {
		r.printf("Exposed Principals:\n")
		for _, k := range sortedKeys(s.ExposedPrincipals) {
			r.printf("  %s: %d\n", k, s.ExposedPrincipals[k])
		}
		r.printf("\n")
	}
	if len(s.ExposedByRole) > 0 {
		r.printf("Exposed Roles:\n")
		for _, k := range sortedKeys(s.ExposedByRole) {
			r.printf("  %s: %d\n", k, s.ExposedByRole[k])
		}
		r.printf("\n")
	}
}

func (r *TextReporter) printProjectErrors(report *models.InvestigationReport) {
	var lines []string
	for _, p := range report.Projects() {
		if p.HierarchyError != nil {
			lines = append(lines, fmt.Sprintf("  %s: hierarchy: %s: %s", p.ProjectID, p.HierarchyError.Kind.Label(), p.HierarchyError.Message))
		}
		if p.Error != nil {
			lines = append(lines, fmt.Sprintf("  %s: %s: %s", p.ProjectID, p.Error.Kind.Label(), p.Error.Message))
		}
	}
	if len(lines) == 0 {
		return
	}
	r.printf("\nProject Errors:\n")
	r.printf("--------------------------------------------------\n")
	for _, l := range lines {
		r.printf("%s\n", l)
	}
}

// printRecommendations prints the recommendations section
func (r *TextReporter) printRecommendations(recommendations []models.Recommendation) {
	r.printf("\n")
	r.printf("Recommended Actions:\n")
	r.printf("--------------------------------------------------\n")

	recs := recommendations
	if r.MaxRecommendations > 0 && len(recs) > r.MaxRecommendations {
		recs = recs[:r.MaxRecommendations]
	}
	for i, rec := range recs {
		r.printf("  %d. [%s] %s\n", i+1, strings.ToUpper(rec.Severity), rec.Action)
		r.printf("     Impact: %s\n", rec.Impact)
	}
	if hidden := len(recommendations) - len(recs); hidden > 0 {
		r.printf("  ... and %d more\n", hidden)
	}
}

// printTrendInfo prints trend information
func (r *TextReporter) printTrendInfo(trend *models.Trend) {
	r.printf("Trend Analysis:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Direction: %s %s\n", trend.Direction, aggregator.GetTrendIndicator(trend.Direction))
	r.printf("  Exposed: %d → %d buckets\n", trend.PreviousExposed, trend.CurrentExposed)

	if trend.NewExposed > 0 {
		r.printf("  Newly Exposed: %d\n", trend.NewExposed)
	}
	if trend.ResolvedExposed > 0 {
		r.printf("  Resolved: %d\n", trend.ResolvedExposed)
	}

	r.printf("  Compared With: %s\n", formatTimestamp(trend.ComparedWith))
}

// renderTable draws the summary rows with lipgloss borders.
func renderTable(rows []models.SummaryRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(CSVHeader...)
	for _, row := range rows {
		t.Row(row.FolderID, row.ProjectID, row.BucketName, row.Permissions, string(row.ExposureMatch))
	}
	return t.String()
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}

// formatTimestamp formats a timestamp for display
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
