package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/gcsspectre/internal/logging"
)

func TestSummarizeRunText(t *testing.T) {
	run := testRun(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), testReport())

	var sb strings.Builder
	if err := summarizeRun(&sb, run, "text", 0); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	for _, want := range []string{
		"Public Read Investigation",
		"Buckets: 3 (1 exposed, 1 with errors)",
		"Recommended Actions:",
		"[CRITICAL]",
		"public-assets",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(run.Recommendations) == 0 {
		t.Error("expected recommendations derived from the report")
	}
}

func TestSummarizeRunTop(t *testing.T) {
	run := testRun(time.Now(), testReport())

	var sb strings.Builder
	if err := summarizeRun(&sb, run, "json", 1); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Recommendations []struct {
			Severity string `json:"severity"`
		} `json:"recommendations"`
		Rows []struct {
			BucketName string `json:"bucket_name"`
		} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out.Recommendations) != 1 || out.Recommendations[0].Severity != "critical" {
		t.Errorf("expected only the critical recommendation, got %+v", out.Recommendations)
	}
	if len(out.Rows) != 3 {
		t.Errorf("expected 3 summary rows, got %d", len(out.Rows))
	}
}

func TestSummarizeRunCSV(t *testing.T) {
	var sb strings.Builder
	if err := summarizeRun(&sb, testRun(time.Now(), testReport()), "csv", 0); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d:\n%s", len(lines), sb.String())
	}
	if lines[1] != "123,web-prod,public-assets,roles/storage.objectViewer: allUsers,Yes" {
		t.Errorf("unexpected first row %q", lines[1])
	}
}

func TestSummarizeRunInvalidFormat(t *testing.T) {
	err := summarizeRun(&strings.Builder{}, testRun(time.Now(), testReport()), "none", 0)
	if HandleError(err) != ExitInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestRunSummarizeWritesCSV(t *testing.T) {
	withTestLogger(t, logging.Options{})
	dir := t.TempDir()
	report := writeReportFile(t, testReport())
	csvPath := filepath.Join(dir, "nested", "summary.csv")

	oldFmt, oldCSV, oldTop := summarizeFormat, summarizeCSV, summarizeTop
	t.Cleanup(func() { summarizeFormat, summarizeCSV, summarizeTop = oldFmt, oldCSV, oldTop })
	summarizeFormat, summarizeCSV, summarizeTop = "text", csvPath, 0

	var err error
	out := captureStdout(t, func() { err = runSummarize(summarizeCmd, []string{report}) })
	if err != nil {
		t.Fatalf("runSummarize: %v", err)
	}
	if !strings.Contains(out, "public-assets") {
		t.Errorf("expected summary on stdout, got:\n%s", out)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("expected CSV written: %v", err)
	}
	if !strings.HasPrefix(string(data), "Folder Name/ID,Project Name/ID,Bucket Name,Permissions,Exposure Match\n") {
		t.Errorf("unexpected CSV:\n%s", data)
	}
}

func TestRunSummarizeBadReport(t *testing.T) {
	withTestLogger(t, logging.Options{})
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("[1, 2"), 0600); err != nil {
		t.Fatal(err)
	}

	err := runSummarize(summarizeCmd, []string{path})
	if HandleError(err) != ExitInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}
