package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/gcsspectre/internal/collector"
	"github.com/ppiankov/gcsspectre/internal/config"
	"github.com/ppiankov/gcsspectre/internal/logging"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/validator"
)

// --- Test helpers ---

// captureStdout runs fn and returns whatever it printed to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = old
	return <-done
}

// withTestConfig sets the global cfg for the duration of the test.
func withTestConfig(t *testing.T, c *config.Config) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

// withTestLogger swaps the global logger for one writing to the returned buffer.
func withTestLogger(t *testing.T, opts logging.Options) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := logger
	logger = logging.NewWriter(&buf, opts)
	t.Cleanup(func() { logger = old })
	return &buf
}

// testConfig returns defaults with storage and artifacts under a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := config.DefaultConfig()
	c.StorageDir = dir + "/store"
	c.OutputJSON = dir + "/out/report.json"
	c.OutputCSV = dir + "/out/summary.csv"
	return c
}

func strPtr(s string) *string { return &s }

// testReport has one exposed bucket, one clean bucket, one bucket whose
// policy fetch failed and a project whose hierarchy lookup failed.
func testReport() *models.InvestigationReport {
	r := models.NewInvestigationReport()
	r.Add(&models.ProjectResult{
		ProjectID: "web-prod",
		FolderID:  strPtr("123"),
		Buckets: []models.BucketFinding{
			{
				BucketName: "public-assets",
				Metadata:   &models.BucketMetadata{StorageClass: "STANDARD", LocationType: "multi-region", PublicAccessPrevention: "inherited"},
				ExposedBindings: []models.IamBinding{
					{Role: "roles/storage.objectViewer", Members: []string{models.PrincipalAllUsers}},
				},
			},
			{
				BucketName: "private-logs",
				Metadata:   &models.BucketMetadata{StorageClass: "NEARLINE", LocationType: "region", UniformBucketLevelAccess: true},
			},
		},
	})
	r.Add(&models.ProjectResult{
		ProjectID:      "data-prod",
		OrganizationID: strPtr("999"),
		Buckets: []models.BucketFinding{
			{
				BucketName: "locked-data",
				Metadata:   &models.BucketMetadata{StorageClass: "STANDARD", LocationType: "region"},
				PolicyErr:  &models.FetchError{Kind: models.ErrorKindAccessDenied, Message: "denied"},
			},
		},
	})
	r.Add(&models.ProjectResult{
		ProjectID:      "old-prod",
		HierarchyError: &models.FetchError{Kind: models.ErrorKindNotFound, Message: "project gone"},
	})
	return r
}

func testRun(ts time.Time, report *models.InvestigationReport) *models.Run {
	return &models.Run{
		Timestamp: ts,
		Report:    report,
		Summary:   models.Summarize(report, 0),
	}
}

// --- HandleError tests ---

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"validation", &ValidationError{Message: "bad input"}, ExitInvalidInput},
		{"wrapped validation", fmt.Errorf("ctx: %w", &ValidationError{Message: "bad"}), ExitInvalidInput},
		{"report validation", &validator.ValidationError{Source: "report", Errors: []string{"x"}}, ExitInvalidInput},
		{"listing schema", fmt.Errorf("read: %w", &collector.SchemaError{}), ExitInvalidInput},
		{"threshold", &ThresholdExceededError{Count: 10, Threshold: 5}, ExitPolicyFail},
		{"not exist", os.ErrNotExist, ExitRuntimeError},
		{"permission", os.ErrPermission, ExitRuntimeError},
		{"generic", errors.New("something went wrong"), ExitRuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := HandleError(tt.err); code != tt.want {
				t.Errorf("HandleError(%v) = %d, want %d", tt.err, code, tt.want)
			}
		})
	}
}

// --- Error type tests ---

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Message: "invalid schema"}
	if err.Error() != "invalid schema" {
		t.Errorf("ValidationError.Error() = %q, want %q", err.Error(), "invalid schema")
	}
}

func TestThresholdExceededErrorMessage(t *testing.T) {
	err := &ThresholdExceededError{Count: 15, Threshold: 10}
	want := "exposed bucket count (15) exceeds threshold (10)"
	if err.Error() != want {
		t.Errorf("ThresholdExceededError.Error() = %q, want %q", err.Error(), want)
	}

	err = &ThresholdExceededError{What: "policy violation count", Count: 2}
	want = "policy violation count (2) exceeds threshold (0)"
	if err.Error() != want {
		t.Errorf("ThresholdExceededError.Error() = %q, want %q", err.Error(), want)
	}
}

// --- SetVersion tests ---

func TestSetVersion(t *testing.T) {
	old := buildVersion
	t.Cleanup(func() { buildVersion = old })

	SetVersion("1.2.3")
	if buildVersion != "1.2.3" {
		t.Errorf("buildVersion = %q, want %q", buildVersion, "1.2.3")
	}
}

// --- Logging tests ---

func TestLogVerbose(t *testing.T) {
	buf := withTestLogger(t, logging.Options{Verbose: true})
	logVerbose("test %s", "message")
	if !strings.Contains(buf.String(), "[INFO] test message") {
		t.Errorf("logVerbose output = %q, want to contain '[INFO] test message'", buf.String())
	}

	buf = withTestLogger(t, logging.Options{})
	logVerbose("should not appear")
	if buf.Len() > 0 {
		t.Errorf("logVerbose without verbose should produce no output, got %q", buf.String())
	}
}

func TestLogDebug(t *testing.T) {
	buf := withTestLogger(t, logging.Options{Debug: true})
	logDebug("debug %d", 42)
	if !strings.Contains(buf.String(), "[DEBUG] debug 42") {
		t.Errorf("logDebug output = %q, want to contain '[DEBUG] debug 42'", buf.String())
	}
}

func TestLogWarnAndErrorAlwaysPrint(t *testing.T) {
	buf := withTestLogger(t, logging.Options{})
	logWarn("careful %s", "now")
	logError("fail %s", "now")
	for _, want := range []string{"[WARN] careful now", "[ERROR] fail now"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output = %q, want to contain %q", buf.String(), want)
		}
	}
}

// --- Command wiring ---

func TestRootCommandsRegistered(t *testing.T) {
	want := []string{"investigate", "summarize", "review", "diff", "trend", "export", "validate", "rules", "doctor", "config", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestPersistentPreRunLoadsConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	withTestConfig(t, nil)
	oldLogger := logger
	t.Cleanup(func() { logger = oldLogger })
	oldVerbose := verbose
	verbose = true
	t.Cleanup(func() { verbose = oldVerbose })

	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE: %v", err)
	}
	if cfg == nil || !cfg.Verbose {
		t.Fatalf("expected loaded config with verbose override, got %+v", cfg)
	}
	if !logger.Enabled(logging.LevelInfo) {
		t.Error("expected logger rebuilt at info level")
	}
}

func TestPersistentPreRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.yaml"
	if err := os.WriteFile(path, []byte("format: xml\n"), 0600); err != nil {
		t.Fatal(err)
	}

	withTestConfig(t, nil)
	oldFile := configFile
	configFile = path
	t.Cleanup(func() { configFile = oldFile })

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	if HandleError(err) != ExitInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}
