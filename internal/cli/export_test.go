package cli

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/gcsspectre/internal/logging"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/storage"
)

func sampleRuns() []*models.Run {
	return []*models.Run{testRun(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), testReport())}
}

func TestBuildComplianceExport(t *testing.T) {
	export := buildComplianceExport(sampleRuns())

	if export.RunCount != 1 {
		t.Errorf("expected 1 run, got %d", export.RunCount)
	}
	if export.RecordCount != 3 || len(export.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", export.RecordCount)
	}
	if export.Framework != "SOC2/ISO27001" {
		t.Errorf("expected SOC2/ISO27001, got %s", export.Framework)
	}

	want := []struct {
		project, bucket, finding, severity, detail string
	}{
		{"web-prod", "public-assets", findingPublicRead, models.SeverityCritical, "roles/storage.objectViewer: allUsers"},
		{"data-prod", "locked-data", findingFetchError, models.SeverityMedium, "iam policy: Access Denied: denied"},
		{"old-prod", "", findingFetchError, models.SeverityMedium, "hierarchy: Not Found: project gone"},
	}
	for i, w := range want {
		r := export.Records[i]
		if r.Project != w.project || r.Bucket != w.bucket || r.Finding != w.finding || r.Severity != w.severity || r.Detail != w.detail {
			t.Errorf("record %d = %+v, want %+v", i, r, w)
		}
	}

	if export.Records[0].Folder != "123" || export.Records[1].Folder != "organizations/999" || export.Records[2].Folder != "N/A" {
		t.Errorf("unexpected folders: %q %q %q", export.Records[0].Folder, export.Records[1].Folder, export.Records[2].Folder)
	}
	if export.Records[0].RunTimestamp != "2026-02-01T10:00:00Z" {
		t.Errorf("unexpected timestamp %q", export.Records[0].RunTimestamp)
	}
}

func TestExposureSeverity(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		want    string
	}{
		{"anyone", []string{models.PrincipalAllUsers}, models.SeverityCritical},
		{"any google account", []string{models.PrincipalAllAuthenticatedUsers}, models.SeverityHigh},
		{"both", []string{models.PrincipalAllAuthenticatedUsers, models.PrincipalAllUsers}, models.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exposureSeverity([]models.IamBinding{{Role: "roles/storage.objectViewer", Members: tt.members}})
			if got != tt.want {
				t.Errorf("exposureSeverity() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProjectRecordsBucketErrors(t *testing.T) {
	p := &models.ProjectResult{
		ProjectID: "p",
		Error:     &models.FetchError{Kind: models.ErrorKindAccessDenied, Message: "list denied"},
		Buckets: []models.BucketFinding{
			{BucketName: "gone", Err: &models.FetchError{Kind: models.ErrorKindNotFound, Message: "404"}},
			{
				BucketName:  "half",
				MetadataErr: &models.FetchError{Kind: models.ErrorKindTransient, Message: "503"},
				ExposedBindings: []models.IamBinding{
					{Role: "roles/storage.legacyBucketReader", Members: []string{models.PrincipalAllAuthenticatedUsers}},
				},
			},
		},
	}

	records := projectRecords(ComplianceRecord{Project: "p"}, p)
	var details []string
	for _, r := range records {
		details = append(details, r.Finding+"|"+r.Severity+"|"+r.Bucket+"|"+r.Detail)
	}
	want := []string{
		"fetch_error|medium||bucket listing: Access Denied: list denied",
		"fetch_error|medium|gone|bucket: Not Found: 404",
		"public_read|high|half|roles/storage.legacyBucketReader: allAuthenticatedUsers",
		"fetch_error|medium|half|metadata: Error: 503",
	}
	if strings.Join(details, "\n") != strings.Join(want, "\n") {
		t.Errorf("records:\n%s\nwant:\n%s", strings.Join(details, "\n"), strings.Join(want, "\n"))
	}
}

func TestWriteExportCSV(t *testing.T) {
	var sb strings.Builder
	if err := writeExport(&sb, sampleRuns(), "csv"); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "run_timestamp,folder,project,bucket,finding,severity,detail,health_score,score_percent" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][2] != "web-prod" || rows[1][7] != "critical" || rows[1][8] != "66.7" {
		t.Errorf("unexpected first row %v", rows[1])
	}
}

func TestWriteExportJSON(t *testing.T) {
	var sb strings.Builder
	if err := writeExport(&sb, sampleRuns(), "json"); err != nil {
		t.Fatal(err)
	}

	var export ComplianceExport
	if err := json.Unmarshal([]byte(sb.String()), &export); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if export.RecordCount != 3 || export.Records[0].Bucket != "public-assets" {
		t.Errorf("unexpected export %+v", export)
	}
}

func TestWriteExportSARIF(t *testing.T) {
	old := buildVersion
	buildVersion = "1.0.0"
	t.Cleanup(func() { buildVersion = old })

	var sb strings.Builder
	if err := writeExport(&sb, sampleRuns(), "sarif"); err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal([]byte(sb.String()), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("unexpected log %+v", log)
	}

	run := log.Runs[0]
	if run.Tool.Driver.Name != "gcsspectre" || run.Tool.Driver.Version != "1.0.0" {
		t.Errorf("unexpected driver %+v", run.Tool.Driver)
	}
	if len(run.Tool.Driver.Rules) != 2 || run.Tool.Driver.Rules[0].ID != "gcs/fetch_error" {
		t.Errorf("expected two sorted rules, got %+v", run.Tool.Driver.Rules)
	}
	if len(run.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(run.Results))
	}

	first := run.Results[0]
	if first.RuleID != "gcs/public_read" || first.Level != "error" {
		t.Errorf("unexpected first result %+v", first)
	}
	if uri := first.Locations[0].PhysicalLocation.ArtifactLocation.URI; uri != "gs://public-assets" {
		t.Errorf("unexpected uri %q", uri)
	}
	if uri := run.Results[2].Locations[0].PhysicalLocation.ArtifactLocation.URI; uri != "projects/old-prod" {
		t.Errorf("unexpected project uri %q", uri)
	}
	if run.Results[1].Level != "warning" {
		t.Errorf("expected warning for fetch errors, got %s", run.Results[1].Level)
	}
}

func TestSarifLevel(t *testing.T) {
	tests := map[string]string{
		models.SeverityCritical: "error",
		models.SeverityHigh:     "error",
		models.SeverityMedium:   "warning",
		models.SeverityLow:      "note",
		"":                      "note",
	}
	for severity, want := range tests {
		if got := sarifLevel(severity); got != want {
			t.Errorf("sarifLevel(%q) = %s, want %s", severity, got, want)
		}
	}
}

func TestRunExportToFile(t *testing.T) {
	c := testConfig(t)
	withTestConfig(t, c)
	withTestLogger(t, logging.Options{})

	if _, err := storage.NewLocal(c.StorageDir).SaveRun(sampleRuns()[0]); err != nil {
		t.Fatal(err)
	}

	oldFmt, oldOut, oldN := exportFormat, exportOutput, exportLastN
	t.Cleanup(func() { exportFormat, exportOutput, exportLastN = oldFmt, oldOut, oldN })
	exportFormat, exportOutput, exportLastN = "json", filepath.Join(t.TempDir(), "evidence.json"), 1

	if err := runExport(exportCmd, nil); err != nil {
		t.Fatalf("runExport: %v", err)
	}

	exportFormat = "xml"
	if err := runExport(exportCmd, nil); HandleError(err) != ExitInvalidInput {
		t.Errorf("expected invalid input for xml, got %v", err)
	}
}
