package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/ppiankov/gcsspectre/internal/config"
	"github.com/ppiankov/gcsspectre/internal/policy"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment readiness and diagnose common problems",
	Long: `Doctor validates your gcsspectre setup without calling any API:

  1. Config file: found and readable?
  2. Credentials: credentials file or Application Default Credentials?
  3. gcloud: installed for interactive login?
  4. Policy: found and parseable?
  5. Storage: directory writable?
  6. Outputs: artifact directories writable?

Fix the issues it reports, then run 'gcsspectre investigate' with confidence.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text",
		"output format: text or json")
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

type doctorResult struct {
	Checks  []doctorCheck `json:"checks"`
	Summary string        `json:"summary"`
}

// findCredentials and lookPath are replaced in tests.
var (
	findCredentials = func(ctx context.Context) (*google.Credentials, error) {
		return google.FindDefaultCredentials(ctx, storage.ScopeReadOnly)
	}
	lookPath = exec.LookPath
)

func runDoctor(cmd *cobra.Command, args []string) error {
	result := collectDoctorChecks(commandContext(cmd))

	if doctorFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	return writeDoctorText(os.Stdout, result)
}

func collectDoctorChecks(ctx context.Context) doctorResult {
	checks := []doctorCheck{
		checkConfig(),
		checkCredentials(ctx),
		checkGcloud(),
		checkPolicy(),
		checkStorage(),
	}
	checks = append(checks, checkOutputs()...)

	fails, warns := 0, 0
	for _, c := range checks {
		switch c.Status {
		case "fail":
			fails++
		case "warn":
			warns++
		}
	}

	summary := "all checks passed"
	if fails > 0 {
		summary = fmt.Sprintf("%d issue(s) found", fails)
	} else if warns > 0 {
		summary = fmt.Sprintf("ok with %d warning(s)", warns)
	}

	return doctorResult{Checks: checks, Summary: summary}
}

func writeDoctorText(w io.Writer, result doctorResult) error {
	icons := map[string]string{
		"ok":   "✓",
		"warn": "△",
		"fail": "✗",
	}

	for _, c := range result.Checks {
		icon := icons[c.Status]
		if c.Detail != "" {
			_, _ = fmt.Fprintf(w, "  %s %-20s %s\n", icon, c.Name, c.Detail)
		} else {
			_, _ = fmt.Fprintf(w, "  %s %s\n", icon, c.Name)
		}
	}

	_, _ = fmt.Fprintf(w, "\n%s\n", result.Summary)
	return nil
}

func checkConfig() doctorCheck {
	candidates := []string{configFile}
	if configFile == "" {
		candidates = []string{"gcsspectre.yaml", config.ConfigPath()}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, "gcsspectre.yaml"))
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return doctorCheck{Name: "config", Status: "ok", Detail: path}
		}
	}

	if configFile != "" {
		return doctorCheck{
			Name:   "config",
			Status: "fail",
			Detail: fmt.Sprintf("%s not found", configFile),
		}
	}
	return doctorCheck{
		Name:   "config",
		Status: "warn",
		Detail: "no config file found (using defaults). Run: gcsspectre config --init",
	}
}

func checkCredentials(ctx context.Context) doctorCheck {
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return doctorCheck{
				Name:   "credentials",
				Status: "fail",
				Detail: fmt.Sprintf("credentials_file %s not readable (%v)", cfg.CredentialsFile, err),
			}
		}
		return doctorCheck{Name: "credentials", Status: "ok", Detail: cfg.CredentialsFile}
	}

	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return doctorCheck{
				Name:   "credentials",
				Status: "fail",
				Detail: fmt.Sprintf("GOOGLE_APPLICATION_CREDENTIALS=%s not readable", path),
			}
		}
	}

	creds, err := findCredentials(ctx)
	if err != nil {
		return doctorCheck{
			Name:   "credentials",
			Status: "fail",
			Detail: "no Application Default Credentials. Run: gcloud auth application-default login",
		}
	}

	detail := "Application Default Credentials"
	if creds != nil && creds.ProjectID != "" {
		detail = fmt.Sprintf("%s (project %s)", detail, creds.ProjectID)
	}
	return doctorCheck{Name: "credentials", Status: "ok", Detail: detail}
}

func checkGcloud() doctorCheck {
	path, err := lookPath("gcloud")
	if err != nil {
		return doctorCheck{
			Name:   "gcloud",
			Status: "warn",
			Detail: "not installed (only needed to create credentials)",
		}
	}
	return doctorCheck{Name: "gcloud", Status: "ok", Detail: path}
}

func checkPolicy() doctorCheck {
	path := cfg.PolicyFile
	if path == "" {
		path = policy.FindPolicyFile()
	}
	if path == "" {
		return doctorCheck{
			Name:   "policy",
			Status: "ok",
			Detail: "none (default exposure rules, no gate)",
		}
	}

	pol, err := policy.LoadFromFile(path)
	if err != nil {
		return doctorCheck{Name: "policy", Status: "fail", Detail: err.Error()}
	}
	if pol == nil {
		return doctorCheck{
			Name:   "policy",
			Status: "fail",
			Detail: fmt.Sprintf("%s not found", path),
		}
	}
	return doctorCheck{
		Name:   "policy",
		Status: "ok",
		Detail: fmt.Sprintf("%s (%d exposure rule(s))", path, len(pol.ExposureTable())),
	}
}

func checkStorage() doctorCheck {
	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		return doctorCheck{Name: "storage", Status: "fail", Detail: err.Error()}
	}

	if c := checkWritableDir("storage", storagePath); c.Status != "missing" {
		return c
	}
	return doctorCheck{
		Name:   "storage",
		Status: "ok",
		Detail: fmt.Sprintf("%s (will be created on first run)", storagePath),
	}
}

func checkOutputs() []doctorCheck {
	var checks []doctorCheck
	for _, out := range []struct{ name, path string }{
		{"output json", cfg.OutputJSON},
		{"output csv", cfg.OutputCSV},
	} {
		if out.path == "" {
			continue
		}
		dir := filepath.Dir(out.path)
		c := checkWritableDir(out.name, dir)
		if c.Status == "missing" {
			c = doctorCheck{Name: out.name, Status: "ok", Detail: fmt.Sprintf("%s (directory will be created)", out.path)}
		} else if c.Status == "ok" {
			c.Detail = out.path
		}
		checks = append(checks, c)
	}
	return checks
}

// checkWritableDir probes dir with a temp file. A missing dir reports
// status "missing" so callers decide how to present it.
func checkWritableDir(name, dir string) doctorCheck {
	info, err := os.Stat(dir)
	if err != nil {
		return doctorCheck{Name: name, Status: "missing"}
	}

	if !info.IsDir() {
		return doctorCheck{
			Name:   name,
			Status: "fail",
			Detail: fmt.Sprintf("%s exists but is not a directory", dir),
		}
	}

	tmpFile := filepath.Join(dir, ".doctor-check")
	if err := os.WriteFile(tmpFile, []byte("ok"), 0600); err != nil {
		return doctorCheck{
			Name:   name,
			Status: "fail",
			Detail: fmt.Sprintf("%s not writable: %v", dir, err),
		}
	}
	_ = os.Remove(tmpFile)

	return doctorCheck{Name: name, Status: "ok", Detail: dir}
}
