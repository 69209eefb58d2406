package cli

import (
	"fmt"

	"github.com/ppiankov/gcsspectre/internal/aggregator"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/storage"
	"github.com/ppiankov/gcsspectre/internal/tui"
	"github.com/spf13/cobra"
)

// runReview is replaced in tests.
var runReview = tui.Run

var reviewCmd = &cobra.Command{
	Use:   "review [report.json]",
	Short: "Browse findings interactively",
	Long: `Open an interactive table of every investigated bucket.

Without an argument the latest stored run is shown, together with the
exposed-bucket trend of the last runs.

Keys:
  /      search folder, project, bucket or permissions
  m      filter by exposure match
  s      cycle sort order
  c      copy the selected row
  esc    clear filters
  q      quit

Example:
  gcsspectre review
  gcsspectre review public_bucket_read_investigation.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReviewCmd,
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	run, trend, err := loadReviewRun(args)
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("No stored runs found. Run 'gcsspectre investigate' first.")
		return nil
	}
	return runReview(run, trend)
}

// loadReviewRun loads the run to review and, for stored runs, the trend of
// the last runs. A nil run means nothing is stored yet.
func loadReviewRun(args []string) (*models.Run, *models.TrendSummary, error) {
	if len(args) == 1 {
		run, err := loadReportFromFile(args[0])
		if err != nil {
			return nil, nil, err
		}
		return run, nil, nil
	}

	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return nil, nil, err
	}
	store := storage.NewLocal(storagePath)

	runs, err := store.GetLastNRuns(cfg.LastRuns)
	if err != nil || len(runs) == 0 {
		logDebug("No stored runs: %v", err)
		return nil, nil, nil
	}

	trend := aggregator.NewTrendAnalyzer().AnalyzeLastNRuns(runs)
	return runs[len(runs)-1], trend, nil
}
