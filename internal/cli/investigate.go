package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ppiankov/gcsspectre/internal/aggregator"
	"github.com/ppiankov/gcsspectre/internal/collector"
	"github.com/ppiankov/gcsspectre/internal/config"
	"github.com/ppiankov/gcsspectre/internal/gcp"
	"github.com/ppiankov/gcsspectre/internal/hierarchy"
	"github.com/ppiankov/gcsspectre/internal/investigator"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/policy"
	"github.com/ppiankov/gcsspectre/internal/reporter"
	"github.com/ppiankov/gcsspectre/internal/storage"
	"github.com/spf13/cobra"
)

var (
	// Investigate command flags
	invEnumerate     bool
	invOutputJSON    string
	invOutputCSV     string
	invFormat        string
	invStore         bool
	invStorageDir    string
	invFailThreshold int
	invPolicyFile    string
	invRPS           float64
	invTimeout       time.Duration
)

// investigateCmd represents the investigate command
var investigateCmd = &cobra.Command{
	Use:   "investigate <listing.csv>",
	Short: "Investigate listed buckets for public read access",
	Long: `Read a CSV listing of (project, bucket) rows and investigate every bucket.

For each bucket the IAM policy and metadata are fetched independently, and
each project's folder or organization is resolved once. Bindings that grant
a listed role to allUsers or allAuthenticatedUsers are reported as exposed.

Per-bucket and per-project failures are recorded in the report and never
stop the run. Rows with a blank project or asset are skipped with a warning.

With --enumerate the input is a project-only listing and every bucket of
each project is investigated.

Outputs:
  public_bucket_read_investigation.json   findings per project and bucket
  public_bucket_read_summary.csv          one row per bucket

Example:
  gcsspectre investigate listing.csv
  gcsspectre investigate listing.csv --format json --fail-threshold 0
  gcsspectre investigate --enumerate projects.csv --requests-per-second 5`,
	Args: cobra.ExactArgs(1),
	RunE: runInvestigate,
}

func init() {
	investigateCmd.Flags().BoolVar(&invEnumerate, "enumerate", false,
		"input lists projects; investigate every bucket of each")
	investigateCmd.Flags().StringVar(&invOutputJSON, "output-json", "",
		"path of the JSON report (default from config)")
	investigateCmd.Flags().StringVar(&invOutputCSV, "output-csv", "",
		"path of the CSV summary (default from config)")
	investigateCmd.Flags().StringVarP(&invFormat, "format", "f", "",
		"console output format: text, json, csv, or none (default from config)")
	investigateCmd.Flags().BoolVar(&invStore, "store", true,
		"store the run for diff, trend and review")
	investigateCmd.Flags().StringVar(&invStorageDir, "storage-dir", "",
		"directory for stored runs (default from config)")
	investigateCmd.Flags().IntVar(&invFailThreshold, "fail-threshold", -1,
		"exit 1 if exposed buckets exceed this count (default from config)")
	investigateCmd.Flags().StringVar(&invPolicyFile, "policy", "",
		"policy file (default: policy_file or .gcsspectre-policy.yaml)")
	investigateCmd.Flags().Float64Var(&invRPS, "requests-per-second", -1,
		"client-side API rate limit, 0 disables (default from config)")
	investigateCmd.Flags().DurationVar(&invTimeout, "timeout", 0,
		"timeout per API call (default from config)")
}

// cloudSource is everything an investigation reads from GCP.
type cloudSource interface {
	investigator.BucketSource
	investigator.BucketLister
	hierarchy.Source
	Close() error
}

// newCloudSource is replaced in tests.
var newCloudSource = func(ctx context.Context, opts gcp.Options) (cloudSource, error) {
	client, err := gcp.NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// investigateOptions is the resolved flag and config state of one run.
type investigateOptions struct {
	Input       string
	Enumerate   bool
	OutputJSON  string
	OutputCSV   string
	Format      string
	Store       bool
	StoragePath string
	Threshold   int
	Policy      *policy.Policy
}

// investigateInput is the parsed listing: records, or projects when enumerating.
type investigateInput struct {
	Records  []models.AssetRecord
	Projects []string
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	opts, err := resolveInvestigateOptions(args[0])
	if err != nil {
		return err
	}

	input, err := readInvestigateInput(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := newCloudSource(ctx, gcp.Options{
		CredentialsFile:   cfg.CredentialsFile,
		QuotaProject:      cfg.QuotaProject,
		UserAgent:         "gcsspectre/" + buildVersion,
		CallTimeout:       firstDuration(invTimeout, cfg.CallTimeout),
		RequestsPerSecond: firstRate(invRPS, cfg.RequestsPerSecond),
	})
	if err != nil {
		logError("Failed to create GCP clients: %v", err)
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			logDebug("Closing GCP clients: %v", err)
		}
	}()

	inv := investigator.New(investigator.RunContext{
		Log:       logger,
		Buckets:   source,
		Hierarchy: hierarchy.NewResolver(source),
		Lister:    source,
		Rules:     opts.Policy.ExposureTable(),
	})

	return executeInvestigation(ctx, inv, input, opts, os.Stdout)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// resolveInvestigateOptions applies flag overrides over the loaded config
// and loads the policy file.
func resolveInvestigateOptions(input string) (*investigateOptions, error) {
	opts := &investigateOptions{
		Input:      input,
		Enumerate:  invEnumerate,
		OutputJSON: firstString(invOutputJSON, cfg.OutputJSON),
		OutputCSV:  firstString(invOutputCSV, cfg.OutputCSV),
		Format:     firstString(invFormat, cfg.Format),
		Store:      invStore,
		Threshold:  cfg.FailThreshold,
	}
	if invFailThreshold >= 0 {
		opts.Threshold = invFailThreshold
	}

	switch opts.Format {
	case config.FormatText, config.FormatJSON, config.FormatCSV, config.FormatNone:
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, csv, or none)", opts.Format)}
	}

	storagePath, err := getStoragePath(firstString(invStorageDir, cfg.StorageDir))
	if err != nil {
		return nil, err
	}
	opts.StoragePath = storagePath

	pol, err := loadPolicy(firstString(invPolicyFile, cfg.PolicyFile))
	if err != nil {
		return nil, err
	}
	opts.Policy = pol

	return opts, nil
}

// loadPolicy loads an explicitly named policy file, or the nearest
// .gcsspectre-policy.yaml. An explicit path that does not exist is an error.
func loadPolicy(path string) (*policy.Policy, error) {
	explicit := path != ""
	if !explicit {
		path = policy.FindPolicyFile()
		if path == "" {
			return nil, nil
		}
	}

	pol, err := policy.LoadFromFile(path)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("policy %s: %v", path, err)}
	}
	if pol == nil && explicit {
		return nil, &ValidationError{Message: fmt.Sprintf("policy file not found: %s", path)}
	}
	if pol != nil {
		logVerbose("Using policy: %s", path)
	}
	return pol, nil
}

func readInvestigateInput(opts *investigateOptions) (*investigateInput, error) {
	if opts.Enumerate {
		projects, err := collector.ReadProjects(opts.Input)
		if err != nil {
			logError("Failed to read project listing: %v", err)
			return nil, err
		}
		logVerbose("Read %d project(s) from %s", len(projects), opts.Input)
		return &investigateInput{Projects: projects}, nil
	}

	records, err := collector.ReadListing(opts.Input)
	if err != nil {
		logError("Failed to read listing: %v", err)
		return nil, err
	}
	logVerbose("Read %d record(s) from %s", len(records), opts.Input)
	return &investigateInput{Records: records}, nil
}

// executeInvestigation runs the pipeline and produces every output of a run.
// A cancelled run still writes the partial artifacts before returning the
// cancellation error.
func executeInvestigation(ctx context.Context, inv *investigator.Investigator, input *investigateInput, opts *investigateOptions, stdout io.Writer) error {
	var report *models.InvestigationReport
	var runErr error
	if opts.Enumerate {
		report, runErr = inv.Enumerate(ctx, input.Projects)
	} else {
		report, runErr = inv.Investigate(ctx, input.Records)
	}
	if report == nil {
		return runErr
	}

	stats := inv.Stats()
	logVerbose("Investigated %d bucket(s) in %d project(s), skipped %d row(s)",
		stats.Buckets, stats.Projects, stats.Skipped)

	run := aggregator.New().BuildRun(report, opts.Input, stats.Skipped)

	if err := writeArtifacts(report, opts); err != nil {
		return err
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			logWarn("Run interrupted; partial results written")
		}
		return runErr
	}

	if opts.Store {
		storeRun(run, opts.StoragePath)
	}

	if err := printRun(stdout, run, opts.Format); err != nil {
		return err
	}

	if result := opts.Policy.Evaluate(run.Summary); !result.Pass {
		for _, v := range result.Violations {
			logError("Policy violation [%s]: %s", v.Rule, v.Message)
		}
		return &ThresholdExceededError{
			What:      "policy violation count",
			Count:     len(result.Violations),
			Threshold: 0,
		}
	}

	if opts.Threshold > 0 && run.Summary.ExposedBuckets > opts.Threshold {
		return &ThresholdExceededError{
			Count:     run.Summary.ExposedBuckets,
			Threshold: opts.Threshold,
		}
	}

	return nil
}

// writeArtifacts writes the JSON report and the CSV summary.
func writeArtifacts(report *models.InvestigationReport, opts *investigateOptions) error {
	if opts.OutputJSON != "" {
		err := writeFile(opts.OutputJSON, func(w io.Writer) error {
			return reporter.NewJSONReporter(w, true).Generate(report)
		})
		if err != nil {
			logError("Failed to write JSON report: %v", err)
			return err
		}
		logVerbose("Wrote %s", opts.OutputJSON)
	}

	if opts.OutputCSV != "" {
		err := writeFile(opts.OutputCSV, func(w io.Writer) error {
			return reporter.NewCSVReporter(w).Generate(reporter.Summarize(report))
		})
		if err != nil {
			logError("Failed to write CSV summary: %v", err)
			return err
		}
		logVerbose("Wrote %s", opts.OutputCSV)
	}

	return nil
}

// writeFile creates path and its parent directories and fills it with write.
func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// storeRun saves the run with its trend. Storage failures are logged, not fatal.
func storeRun(run *models.Run, storagePath string) {
	store := storage.NewLocal(storagePath)

	if previous, err := store.GetLatestRun(); err == nil {
		aggregator.New().AddTrend(run, previous)
	} else {
		logDebug("No previous run for trend: %v", err)
	}

	path, err := store.SaveRun(run)
	if err != nil {
		logWarn("Failed to store run: %v", err)
		return
	}
	logVerbose("Stored run: %s", path)
}

// printRun writes the console view of a run.
func printRun(w io.Writer, run *models.Run, format string) error {
	switch format {
	case config.FormatText:
		return reporter.NewTextReporter(w).Generate(run)
	case config.FormatJSON:
		return reporter.NewJSONReporter(w, true).GenerateSummaryOnly(run)
	case config.FormatCSV:
		return reporter.NewCSVReporter(w).Generate(reporter.Summarize(run.Report))
	case config.FormatNone:
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// getStoragePath converts a storage directory to an absolute path
func getStoragePath(storageDir string) (string, error) {
	c := &config.Config{StorageDir: storageDir}
	return c.GetStoragePath()
}

func firstString(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func firstDuration(flag, fallback time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	return fallback
}

func firstRate(flag, fallback float64) float64 {
	if flag >= 0 {
		return flag
	}
	return fallback
}
