package reporter

import (
	"testing"

	"github.com/ppiankov/gcsspectre/internal/models"
)

func TestSummarize(t *testing.T) {
	rows := Summarize(sampleReport())

	want := []models.SummaryRow{
		{FolderID: "123", ProjectID: "p1", BucketName: "b1", Permissions: "roles/storage.objectViewer: allUsers", ExposureMatch: models.ExposureMatchYes},
		{FolderID: "123", ProjectID: "p1", BucketName: "b2", Permissions: "None", ExposureMatch: models.ExposureMatchNo},
		{FolderID: "organizations/999", ProjectID: "p2", BucketName: "b3", Permissions: "Error (access_denied): no getIamPolicy", ExposureMatch: models.ExposureMatchDiscrepancy},
		{FolderID: "N/A", ProjectID: "p3", BucketName: "b4", Permissions: "Error (not_found): bucket gone", ExposureMatch: models.ExposureMatchDiscrepancy},
	}

	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("rows[%d] = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	rows := Summarize(models.NewInvestigationReport())
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %v", rows)
	}
}

func TestFormatPermissions(t *testing.T) {
	tests := []struct {
		name    string
		finding models.BucketFinding
		want    string
	}{
		{"none", models.BucketFinding{}, "None"},
		{
			"multiple bindings and members",
			models.BucketFinding{ExposedBindings: []models.IamBinding{
				{Role: "roles/storage.objectViewer", Members: []string{"allUsers", "allAuthenticatedUsers"}},
				{Role: "roles/storage.legacyBucketReader", Members: []string{"allUsers"}},
			}},
			"roles/storage.objectViewer: allUsers, allAuthenticatedUsers; roles/storage.legacyBucketReader: allUsers",
		},
		{
			"policy error",
			models.BucketFinding{PolicyErr: models.NewFetchError(models.ErrorKindTransient, "503")},
			"Error (transient): 503",
		},
		{
			"metadata error only",
			models.BucketFinding{MetadataErr: models.NewFetchError(models.ErrorKindTransient, "503"), ExposedBindings: []models.IamBinding{}},
			"None",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPermissions(tt.finding); got != tt.want {
				t.Errorf("FormatPermissions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExposureMatchFor(t *testing.T) {
	exposed := []models.IamBinding{{Role: "roles/storage.objectViewer", Members: []string{"allUsers"}}}

	tests := []struct {
		name     string
		bindings []models.IamBinding
		text     string
		want     models.ExposureMatch
	}{
		{"exposed", exposed, "roles/storage.objectViewer: allUsers", models.ExposureMatchYes},
		{"private", nil, "None", models.ExposureMatchNo},
		{"bindings but text None", exposed, "None", models.ExposureMatchDiscrepancy},
		{"no bindings but text lists some", nil, "roles/storage.objectViewer: allUsers", models.ExposureMatchDiscrepancy},
		{"error text", nil, "Error (access_denied): denied", models.ExposureMatchDiscrepancy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExposureMatchFor(tt.bindings, tt.text); got != tt.want {
				t.Errorf("ExposureMatchFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
