package collector

import (
	"os"
	"path/filepath"
	"testing"
)

const bareReport = `{
  "p1": {
    "folder_id": "123",
    "organization_id": null,
    "buckets": [
      {"bucket_name": "b1", "details": {"metadata": {"storage_class": "STANDARD"}, "iam_policy": {"exposed_bindings": [{"role": "roles/storage.objectViewer", "members": ["allUsers"]}]}}}
    ]
  }
}`

const storedRun = `{
  "timestamp": "2026-02-15T13:00:00Z",
  "input": "assets.csv",
  "report": ` + bareReport + `,
  "summary": {"total_projects": 1, "total_buckets": 1, "exposed_buckets": 1},
  "recommendations": []
}`

func TestIsStoredRun(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"bare report", bareReport, false},
		{"stored run", storedRun, true},
		{"project named report", `{"report": {"folder_id": null, "organization_id": null, "buckets": []}}`, false},
		{"invalid json", `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStoredRun([]byte(tt.data)); got != tt.want {
				t.Errorf("IsStoredRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseReportBare(t *testing.T) {
	run, err := ParseReport([]byte(bareReport))
	if err != nil {
		t.Fatalf("ParseReport() error: %v", err)
	}
	p1 := run.Report.Project("p1")
	if p1 == nil || len(p1.Buckets) != 1 || !p1.Buckets[0].Exposed() {
		t.Fatalf("unexpected report: %+v", p1)
	}
	if run.Summary.ExposedBuckets != 1 {
		t.Errorf("summary should be computed for bare reports, got %+v", run.Summary)
	}
}

func TestParseReportStoredRun(t *testing.T) {
	run, err := ParseReport([]byte(storedRun))
	if err != nil {
		t.Fatalf("ParseReport() error: %v", err)
	}
	if run.Input != "assets.csv" || run.Timestamp.IsZero() {
		t.Errorf("unexpected run metadata: %+v", run)
	}
	if run.Report.Len() != 1 {
		t.Errorf("expected 1 project, got %d", run.Report.Len())
	}
}

func TestParseReportInvalid(t *testing.T) {
	if _, err := ParseReport([]byte(`["not", "an", "object"]`)); err == nil {
		t.Error("expected error for array input")
	}
}

func TestReadReportUsesModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte(bareReport), 0644); err != nil {
		t.Fatal(err)
	}
	run, err := ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport() error: %v", err)
	}
	if run.Timestamp.IsZero() {
		t.Error("expected the file modification time as timestamp")
	}
}
