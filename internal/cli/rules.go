package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/policy"
	"github.com/ppiankov/gcsspectre/internal/reporter"
	"github.com/spf13/cobra"
)

var (
	rulesFormat string
	rulesPolicy string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the exposure rules in effect",
	Long: `Print the role and principal pairs that make a binding exposed.

The default table is replaced by exposure_rules from the policy file when
one is found.

Example:
  gcsspectre rules
  gcsspectre rules --policy ./strict-policy.yaml --format json`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesFormat, "format", "f", "text",
		"output format: text or json")
	rulesCmd.Flags().StringVar(&rulesPolicy, "policy", "",
		"policy file (default: policy_file or .gcsspectre-policy.yaml)")
}

func runRules(cmd *cobra.Command, args []string) error {
	pol, err := loadPolicy(firstString(rulesPolicy, cfg.PolicyFile))
	if err != nil {
		return err
	}
	return printRules(os.Stdout, pol.ExposureTable(), pol != nil, rulesFormat)
}

func printRules(w io.Writer, rules []models.ExposureRule, fromPolicy bool, format string) error {
	switch format {
	case "json":
		return reporter.NewJSONReporter(w, true).Encode(rules)
	case "text":
		source := "default"
		if fromPolicy && !sameRules(rules, policy.DefaultExposureRules) {
			source = "policy"
		}
		_, _ = fmt.Fprintf(w, "Exposure rules (%s):\n", source)
		for _, r := range rules {
			_, _ = fmt.Fprintf(w, "  %-40s %s\n", r.Role, strings.Join(r.Members, ", "))
		}
		return nil
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", format)}
	}
}

func sameRules(a, b []models.ExposureRule) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Role != b[i].Role || strings.Join(a[i].Members, ",") != strings.Join(b[i].Members, ",") {
			return false
		}
	}
	return true
}
