package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/aggregator"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/reporter"
	"github.com/ppiankov/gcsspectre/internal/storage"
	"github.com/spf13/cobra"
)

var (
	trendLastN   int
	trendCompare bool
	trendFormat  string
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show exposure trends from stored runs",
	Long: `Analyze stored runs and show how exposure changed over time.

This command displays:
- Latest run summary
- Exposed bucket and error sparklines across the last N runs
- Improvement/degradation indicator

Example:
  gcsspectre trend
  gcsspectre trend --last 14
  gcsspectre trend --compare --format json`,
	RunE: runTrend,
}

func init() {
	trendCmd.Flags().IntVarP(&trendLastN, "last", "n", 0,
		"number of runs to analyze (default from config)")
	trendCmd.Flags().BoolVarP(&trendCompare, "compare", "c", false,
		"compare latest run with previous")
	trendCmd.Flags().StringVarP(&trendFormat, "format", "f", "text",
		"output format: text or json")
}

func runTrend(cmd *cobra.Command, args []string) error {
	lastN := trendLastN
	if lastN <= 0 {
		lastN = cfg.LastRuns
	}
	if trendCompare {
		lastN = 2
	}

	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}

	store := storage.NewLocal(storagePath)
	logVerbose("Loading runs from: %s", storagePath)

	timestamps, err := store.ListRuns()
	if err != nil {
		logError("Failed to list runs: %v", err)
		return err
	}
	if len(timestamps) == 0 {
		fmt.Println("No stored runs found.")
		fmt.Println("Run 'gcsspectre investigate <listing.csv>' to store your first run.")
		return nil
	}

	runs, err := store.GetLastNRuns(lastN)
	if err != nil {
		logError("Failed to load runs: %v", err)
		return err
	}

	if trendCompare && len(runs) < 2 {
		fmt.Println("Need at least 2 runs for comparison.")
		return nil
	}

	return printTrend(os.Stdout, runs, trendFormat)
}

// printTrend renders the trend of runs ordered oldest first.
func printTrend(w io.Writer, runs []*models.Run, format string) error {
	summary := aggregator.NewTrendAnalyzer().AnalyzeLastNRuns(runs)
	if summary == nil {
		_, _ = fmt.Fprintln(w, "No runs found.")
		return nil
	}

	latest := runs[len(runs)-1]
	if latest.Trend == nil && len(runs) >= 2 {
		aggregator.New().AddTrend(latest, runs[len(runs)-2])
	}

	switch format {
	case "text":
		printTrendText(w, summary, latest)
		return nil
	case "json":
		out := struct {
			Trend  *models.TrendSummary `json:"trend"`
			Latest models.RunSummary    `json:"latest"`
			Change *models.Trend        `json:"change,omitempty"`
		}{summary, latest.Summary, latest.Trend}
		return reporter.NewJSONReporter(w, true).Encode(out)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", format)}
	}
}

func printTrendText(w io.Writer, summary *models.TrendSummary, latest *models.Run) {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║          gcsspectre Exposure Trend         ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Time Range: %s\n", summary.TimeRange)
	p("Runs Analyzed: %d\n\n", summary.RunsAnalyzed)

	p("Latest Run: %s\n", latest.Timestamp.Format("2006-01-02 15:04:05"))
	p("Exposed Buckets: %d of %d\n", latest.Summary.ExposedBuckets, latest.Summary.TotalBuckets)
	p("Health Score: %s (%.1f%%)", latest.Summary.HealthScore, latest.Summary.ScorePercent)

	if t := latest.Trend; t != nil {
		change := t.CurrentExposed - t.PreviousExposed
		p(" (%s %s %+d)\n", aggregator.GetTrendIndicator(t.Direction), t.Direction, change)
		p("Newly Exposed: %d   No Longer Exposed: %d\n", t.NewExposed, t.ResolvedExposed)
	} else {
		p("\n")
	}
	p("\n")

	p("Exposed: %s  %s\n", aggregator.Sparkline(summary.ExposedSparkline), joinInts(summary.ExposedSparkline))
	p("Errors:  %s  %s\n", aggregator.Sparkline(summary.ErrorSparkline), joinInts(summary.ErrorSparkline))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
