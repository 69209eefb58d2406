package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/gcsspectre/internal/config"
	"github.com/ppiankov/gcsspectre/internal/investigator"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/reporter"
	"github.com/spf13/cobra"
)

var (
	// Summarize command flags
	summarizeFormat string
	summarizeCSV    string
	summarizeTop    int
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize <report.json>",
	Short: "Summarize an existing investigation report",
	Long: `Read an investigation report (or a stored run) and print its summary
without calling any API.

This command displays:
- One row per bucket with its public permissions and exposure match
- Exposed buckets, errors and health score
- Recommended actions

Use --csv to regenerate the CSV summary from the JSON report.

Example:
  gcsspectre summarize public_bucket_read_investigation.json
  gcsspectre summarize report.json --format json
  gcsspectre summarize report.json --csv summary.csv --top 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeFormat, "format", "f", "text",
		"output format: text, json, or csv")
	summarizeCmd.Flags().StringVar(&summarizeCSV, "csv", "",
		"also write the CSV summary to this path")
	summarizeCmd.Flags().IntVar(&summarizeTop, "top", 0,
		"show only the N most severe recommendations (0 shows all)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	run, err := loadReportFromFile(args[0])
	if err != nil {
		logError("%v", err)
		return err
	}

	logVerbose("Loaded report with %d project(s)", run.Report.Len())

	if summarizeCSV != "" {
		err := writeFile(summarizeCSV, func(w io.Writer) error {
			return reporter.NewCSVReporter(w).Generate(reporter.Summarize(run.Report))
		})
		if err != nil {
			return err
		}
		logVerbose("Wrote %s", summarizeCSV)
	}

	return summarizeRun(os.Stdout, run, summarizeFormat, summarizeTop)
}

// summarizeRun prints a loaded run. Reports written by investigate carry no
// recommendations, so they are derived here.
func summarizeRun(w io.Writer, run *models.Run, format string, top int) error {
	if len(run.Recommendations) == 0 {
		run.Recommendations = investigator.GenerateRecommendations(run.Report)
	}
	if top > 0 {
		run.Recommendations = investigator.TopRecommendations(run.Recommendations, top)
	}

	switch format {
	case config.FormatText, config.FormatJSON, config.FormatCSV:
		return printRun(w, run, format)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or csv)", format)}
	}
}
