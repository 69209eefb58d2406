package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/gcsspectre/internal/collector"
	"github.com/ppiankov/gcsspectre/internal/validator"
	"github.com/spf13/cobra"
)

var validateReport bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a listing or an investigation report",
	Long: `Validate checks a CSV listing without calling any API: required columns,
blank rows the investigation would skip, malformed project ids and bucket
names, and duplicate rows.

With --report the file is an investigation report or stored run instead.

Returns exit 0 if valid, exit 2 if invalid with details on stderr.

Example:
  gcsspectre validate listing.csv
  gcsspectre validate --report public_bucket_read_investigation.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateReport, "report", false,
		"validate an investigation report instead of a listing")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateReport {
		return validateReportFile(os.Stdout, args[0])
	}
	return validateListingFile(os.Stdout, args[0])
}

func validateListingFile(w io.Writer, path string) error {
	records, err := collector.ReadListing(path)
	if err != nil {
		return err
	}

	res := validator.New().ValidateListing(records)
	for _, warning := range res.Warnings {
		logWarn("%s", warning)
	}
	if err := res.Err(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "VALID: %d row(s), %d project(s), %d bucket(s), %d warning(s)\n",
		res.Records, res.Projects, res.Buckets, len(res.Warnings))
	return nil
}

func validateReportFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := validator.New().ValidateReport(data); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w, "VALID: investigation report")
	return nil
}
