package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/gcsspectre/internal/collector"
	"github.com/ppiankov/gcsspectre/internal/config"
	"github.com/ppiankov/gcsspectre/internal/logging"
	"github.com/ppiankov/gcsspectre/internal/validator"
	"github.com/spf13/cobra"
)

const (
	ExitOK           = 0 // Success
	ExitPolicyFail   = 1 // Exposure exceeds threshold or policy violated
	ExitInvalidInput = 2 // Listing schema, report parse or validation error
	ExitRuntimeError = 3 // I/O, credentials, or API error
)

var (
	// Global config instance
	cfg *config.Config

	// Logger built from the loaded config
	logger = logging.New(logging.Options{})

	// Global flags
	configFile string
	verbose    bool
	debug      bool
	noColor    bool

	buildVersion = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gcsspectre",
	Short: "gcsspectre - Cloud Storage public read exposure investigator",
	Long: `gcsspectre reads a listing of (project, bucket) records, fetches each bucket's
metadata and IAM policy, and reports the bindings that grant public read access
to allUsers or allAuthenticatedUsers, together with each project's folder or
organization.

It writes:
- public_bucket_read_investigation.json: findings per project and bucket
- public_bucket_read_summary.csv: one row per bucket for human review

The tool only reads. Credentials come from Application Default Credentials
or the credentials_file setting.

Quick start:
  gcsspectre doctor
  gcsspectre validate listing.csv
  gcsspectre investigate listing.csv
  gcsspectre review

Other commands:
  gcsspectre investigate --enumerate projects.csv
  gcsspectre summarize public_bucket_read_investigation.json
  gcsspectre diff --fail-new
  gcsspectre export --format sarif -o results.sarif`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return &ValidationError{Message: fmt.Sprintf("failed to load config: %v", err)}
		}

		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}
		if noColor {
			cfg.NoColor = true
		}

		logger = logging.New(logging.Options{
			Verbose: cfg.Verbose,
			Debug:   cfg.Debug,
			NoColor: cfg.NoColor,
		})
		return nil
	},
}

// Execute runs the root command and exits with the code of its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(HandleError(err))
	}
}

// SetVersion records the version injected at build time.
func SetVersion(v string) {
	buildVersion = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./gcsspectre.yaml or ~/gcsspectre.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored log output")

	rootCmd.AddCommand(investigateCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gcsspectre %s\n", buildVersion)
		fmt.Println("Cloud Storage public read exposure investigator")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	var validationErr *ValidationError
	var reportErr *validator.ValidationError
	var schemaErr *collector.SchemaError
	var thresholdErr *ThresholdExceededError

	switch {
	case errors.As(err, &thresholdErr):
		return ExitPolicyFail
	case errors.As(err, &validationErr), errors.As(err, &reportErr), errors.As(err, &schemaErr):
		return ExitInvalidInput
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents invalid user input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ThresholdExceededError represents a threshold or policy failure
type ThresholdExceededError struct {
	What      string
	Count     int
	Threshold int
}

func (e *ThresholdExceededError) Error() string {
	what := e.What
	if what == "" {
		what = "exposed bucket count"
	}
	return fmt.Sprintf("%s (%d) exceeds threshold (%d)", what, e.Count, e.Threshold)
}

// logVerbose prints an info message in verbose mode
func logVerbose(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// logDebug prints a message in debug mode
func logDebug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// logWarn prints a warning
func logWarn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// logError prints an error message
func logError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}
