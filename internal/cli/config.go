package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/gcsspectre/internal/config"
	"github.com/spf13/cobra"
)

var (
	configInit   bool
	configForce  bool
	configFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration or write a sample file",
	Long: `Config prints the configuration in effect after defaults, config file,
GCSSPECTRE_* environment variables and global flags are applied.

With --init a commented sample is written to
$XDG_CONFIG_HOME/gcsspectre/gcsspectre.yaml (or ~/gcsspectre.yaml).

Example:
  gcsspectre config
  gcsspectre config --format json
  gcsspectre config --init --force`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false,
		"write a sample config file")
	configCmd.Flags().BoolVar(&configForce, "force", false,
		"overwrite an existing config file with --init")
	configCmd.Flags().StringVar(&configFormat, "format", "text",
		"output format: text or json")
}

type configView struct {
	ConfigFile        string  `json:"config_file,omitempty"`
	StorageDir        string  `json:"storage_dir"`
	Format            string  `json:"format"`
	OutputJSON        string  `json:"output_json"`
	OutputCSV         string  `json:"output_csv"`
	CredentialsFile   string  `json:"credentials_file,omitempty"`
	QuotaProject      string  `json:"quota_project,omitempty"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CallTimeout       string  `json:"call_timeout"`
	PolicyFile        string  `json:"policy_file,omitempty"`
	FailThreshold     int     `json:"fail_threshold"`
	LastRuns          int     `json:"last_runs"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configInit {
		path := config.ConfigPath()
		if err := config.WriteSample(path, configForce); err != nil {
			return &ValidationError{Message: fmt.Sprintf("%v (use --force to overwrite)", err)}
		}
		fmt.Printf("Wrote sample config: %s\n", path)
		return nil
	}

	return writeConfigView(os.Stdout, newConfigView(cfg), configFormat)
}

func newConfigView(c *config.Config) configView {
	return configView{
		ConfigFile:        configFile,
		StorageDir:        c.StorageDir,
		Format:            c.Format,
		OutputJSON:        c.OutputJSON,
		OutputCSV:         c.OutputCSV,
		CredentialsFile:   c.CredentialsFile,
		QuotaProject:      c.QuotaProject,
		RequestsPerSecond: c.RequestsPerSecond,
		CallTimeout:       c.CallTimeout.String(),
		PolicyFile:        c.PolicyFile,
		FailThreshold:     c.FailThreshold,
		LastRuns:          c.LastRuns,
	}
}

func writeConfigView(w io.Writer, v configView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text":
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", format)}
	}

	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	if v.ConfigFile != "" {
		p("Config:       %s\n", v.ConfigFile)
	}
	p("Storage:      %s\n", v.StorageDir)
	p("Format:       %s\n", v.Format)
	p("JSON report:  %s\n", v.OutputJSON)
	p("CSV summary:  %s\n", v.OutputCSV)
	if v.CredentialsFile != "" {
		p("Credentials:  %s\n", v.CredentialsFile)
	} else {
		p("Credentials:  Application Default Credentials\n")
	}
	if v.QuotaProject != "" {
		p("Quota:        %s\n", v.QuotaProject)
	}
	if v.RequestsPerSecond > 0 {
		p("Rate limit:   %.1f req/s\n", v.RequestsPerSecond)
	} else {
		p("Rate limit:   off\n")
	}
	p("Call timeout: %s\n", v.CallTimeout)
	if v.PolicyFile != "" {
		p("Policy:       %s\n", v.PolicyFile)
	}
	if v.FailThreshold > 0 {
		p("Threshold:    %d exposed bucket(s)\n", v.FailThreshold)
	} else {
		p("Threshold:    off\n")
	}
	p("Trend runs:   %d\n", v.LastRuns)

	return nil
}
