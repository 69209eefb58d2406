package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ppiankov/gcsspectre/internal/aggregator"
	"github.com/ppiankov/gcsspectre/internal/collector"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/storage"
	"github.com/spf13/cobra"
)

var (
	diffFormat   string
	diffOutput   string
	diffBaseline string
	diffCurrent  string
	diffFailNew  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what changed between two investigations",
	Long: `Compare the latest investigation against a baseline to show drift.

Shows buckets that became exposed, buckets that are no longer exposed, and
buckets whose fetch errors appeared or cleared.

By default compares the two most recent stored runs. Use --baseline and
--current to compare report files instead.

Exit codes:
  0  No newly exposed buckets (or --fail-new not set)
  1  Newly exposed buckets detected (with --fail-new)

Example:
  gcsspectre diff
  gcsspectre diff --fail-new
  gcsspectre diff --baseline ./baseline.json --format json`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text",
		"output format: text or json")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "",
		"write output to file instead of stdout")
	diffCmd.Flags().StringVar(&diffBaseline, "baseline", "",
		"path to baseline report JSON (default: previous stored run)")
	diffCmd.Flags().StringVar(&diffCurrent, "current", "",
		"path to current report JSON (default: latest stored run)")
	diffCmd.Flags().BoolVar(&diffFailNew, "fail-new", false,
		"exit 1 if newly exposed buckets are found (for CI gating)")
}

// DiffResult is the structured output of a diff operation.
type DiffResult struct {
	Baseline        string                 `json:"baseline"`
	Current         string                 `json:"current"`
	NewExposed      []aggregator.BucketRef `json:"new_exposed"`
	ResolvedExposed []aggregator.BucketRef `json:"resolved_exposed"`
	NewErrors       []aggregator.BucketRef `json:"new_errors"`
	ResolvedErrors  []aggregator.BucketRef `json:"resolved_errors"`
	Summary         DiffSummary            `json:"summary"`
}

// DiffSummary holds aggregate counts for a diff.
type DiffSummary struct {
	BaselineExposed int            `json:"baseline_exposed"`
	CurrentExposed  int            `json:"current_exposed"`
	NewCount        int            `json:"new_count"`
	ResolvedCount   int            `json:"resolved_count"`
	Delta           int            `json:"delta"` // positive = more exposed buckets
	NewByProject    map[string]int `json:"new_by_project"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	if diffFormat != "text" && diffFormat != "json" {
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", diffFormat)}
	}

	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}
	store := storage.NewLocal(storagePath)

	current, baseline, err := loadDiffRuns(store)
	if err != nil {
		return err
	}
	if current == nil || baseline == nil {
		fmt.Println("Need at least 2 stored runs for diff.")
		fmt.Println("Run 'gcsspectre investigate' again or pass --baseline.")
		return nil
	}

	logVerbose("Comparing %s (current) vs %s (baseline)",
		current.Timestamp.Format("2006-01-02 15:04"),
		baseline.Timestamp.Format("2006-01-02 15:04"))

	result := computeDiff(baseline, current)

	if err := outputDiff(result, diffFormat, diffOutput); err != nil {
		return err
	}

	// CI gate.
	if diffFailNew && result.Summary.NewCount > 0 {
		return &ThresholdExceededError{
			What:      "newly exposed bucket count",
			Count:     result.Summary.NewCount,
			Threshold: 0,
		}
	}

	return nil
}

// loadDiffRuns resolves the two runs to compare. Both are nil when the store
// does not hold enough runs.
func loadDiffRuns(store *storage.LocalStorage) (current, baseline *models.Run, err error) {
	if diffCurrent != "" {
		current, err = loadReportFromFile(diffCurrent)
		if err != nil {
			return nil, nil, err
		}
	}
	if diffBaseline != "" {
		baseline, err = loadReportFromFile(diffBaseline)
		if err != nil {
			return nil, nil, err
		}
	}

	switch {
	case current != nil && baseline != nil:
		return current, baseline, nil
	case baseline != nil:
		current, err = store.GetLatestRun()
		if err != nil {
			fmt.Println("No stored runs found. Run 'gcsspectre investigate' first.")
			return nil, nil, nil
		}
		return current, baseline, nil
	}

	runs, err := store.GetLastNRuns(2)
	if err != nil || len(runs) < 2 {
		return nil, nil, nil
	}
	if current == nil {
		current = runs[1]
	}
	return current, runs[0], nil
}

// computeDiff calculates newly exposed and resolved buckets between two runs.
func computeDiff(baseline, current *models.Run) *DiffResult {
	baseExposed := aggregator.ExposedBuckets(baseline.Report)
	currExposed := aggregator.ExposedBuckets(current.Report)
	baseErrored := aggregator.ErroredBuckets(baseline.Report)
	currErrored := aggregator.ErroredBuckets(current.Report)

	newExposed := aggregator.Subtract(currExposed, baseExposed)
	resolvedExposed := aggregator.Subtract(baseExposed, currExposed)

	newByProject := map[string]int{}
	for _, ref := range newExposed {
		newByProject[ref.Project]++
	}

	return &DiffResult{
		Baseline:        baseline.Timestamp.Format("2006-01-02 15:04:05"),
		Current:         current.Timestamp.Format("2006-01-02 15:04:05"),
		NewExposed:      newExposed,
		ResolvedExposed: resolvedExposed,
		NewErrors:       aggregator.Subtract(currErrored, baseErrored),
		ResolvedErrors:  aggregator.Subtract(baseErrored, currErrored),
		Summary: DiffSummary{
			BaselineExposed: len(baseExposed),
			CurrentExposed:  len(currExposed),
			NewCount:        len(newExposed),
			ResolvedCount:   len(resolvedExposed),
			Delta:           len(currExposed) - len(baseExposed),
			NewByProject:    newByProject,
		},
	}
}

// outputDiff renders the diff result to the chosen format.
func outputDiff(result *DiffResult, format, outputPath string) error {
	var writer io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		return printDiffText(writer, result)
	default:
		return fmt.Errorf("unsupported format: %s (use text or json)", format)
	}
}

func printDiffText(w io.Writer, r *DiffResult) error {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║          gcsspectre Exposure Drift         ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Baseline: %s\n", r.Baseline)
	p("Current:  %s\n\n", r.Current)

	deltaSign := "+"
	if r.Summary.Delta < 0 {
		deltaSign = ""
	}
	p("Exposed: %d → %d (%s%d)\n", r.Summary.BaselineExposed, r.Summary.CurrentExposed, deltaSign, r.Summary.Delta)
	p("New: %d   Resolved: %d\n\n", r.Summary.NewCount, r.Summary.ResolvedCount)

	printRefs(p, "Newly Exposed:", "  [EXPOSED] ", r.NewExposed)
	printRefs(p, "No Longer Exposed:", "  ✓ ", r.ResolvedExposed)
	printRefs(p, "New Errors:", "  [ERROR] ", r.NewErrors)
	printRefs(p, "Cleared Errors:", "  ✓ ", r.ResolvedErrors)

	if len(r.Summary.NewByProject) > 0 {
		p("Newly Exposed by Project:\n")
		projects := make([]string, 0, len(r.Summary.NewByProject))
		for project := range r.Summary.NewByProject {
			projects = append(projects, project)
		}
		sort.Strings(projects)
		for _, project := range projects {
			p("  %s: %d\n", project, r.Summary.NewByProject[project])
		}
		p("\n")
	}

	switch {
	case r.Summary.NewCount == 0 && r.Summary.ResolvedCount == 0 && len(r.NewErrors) == 0 && len(r.ResolvedErrors) == 0:
		p("No drift detected.\n")
	case r.Summary.NewCount == 0:
		p("No newly exposed buckets.\n")
	}

	return nil
}

func printRefs(p func(string, ...interface{}), title, prefix string, refs []aggregator.BucketRef) {
	if len(refs) == 0 {
		return
	}
	p("%s\n", title)
	p("--------------------------------------------------\n")
	for _, ref := range refs {
		p("%s%s/%s\n", prefix, ref.Project, ref.Bucket)
	}
	p("\n")
}

// loadReportFromFile loads a bare report or stored run from a JSON file.
func loadReportFromFile(path string) (*models.Run, error) {
	run, err := collector.ReadReport(path)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("failed to load report: %v", err)}
	}
	return run, nil
}
