package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/gcsspectre/internal/models"
)

func containsError(errors []string, substr string) bool {
	for _, err := range errors {
		if strings.Contains(err, substr) {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }

func TestValidateListing(t *testing.T) {
	records := []models.AssetRecord{
		{ProjectID: "prod-project-1", AssetID: "gs://assets-bucket", Line: 1},
		{ProjectID: "prod-project-1", AssetID: "assets-bucket", Line: 2},
		{ProjectID: "", AssetID: "orphan", Line: 3},
		{ProjectID: "prod-project-2", AssetID: " ", Line: 4},
		{ProjectID: "Bad_Project", AssetID: "logs-bucket", Line: 5},
		{ProjectID: "prod-project-2", AssetID: "UPPER", Line: 6},
	}

	res := New().ValidateListing(records)

	if res.Records != 6 {
		t.Errorf("expected 6 records, got %d", res.Records)
	}
	if res.Projects != 3 {
		t.Errorf("expected 3 projects, got %d", res.Projects)
	}
	if res.Buckets != 3 {
		t.Errorf("expected 3 distinct buckets, got %d", res.Buckets)
	}
	if res.Valid() {
		t.Fatal("expected invalid listing")
	}

	for _, want := range []string{"Row 3: missing project id", "Row 4: missing asset id"} {
		if !containsError(res.Errors, want) {
			t.Errorf("expected error %q in %v", want, res.Errors)
		}
	}
	for _, want := range []string{
		"Row 2: bucket 'prod-project-1/assets-bucket' already listed on row 1",
		"Row 5: 'Bad_Project' is not a valid project id",
		"Row 6: 'UPPER' is not a valid bucket name",
	} {
		if !containsError(res.Warnings, want) {
			t.Errorf("expected warning %q in %v", want, res.Warnings)
		}
	}

	var ve *ValidationError
	if !errors.As(res.Err(), &ve) {
		t.Fatalf("expected ValidationError, got %T", res.Err())
	}
	if ve.Source != "listing" || len(ve.Errors) != 2 {
		t.Errorf("unexpected validation error %+v", ve)
	}
}

func TestValidateListingClean(t *testing.T) {
	res := New().ValidateListing([]models.AssetRecord{
		{ProjectID: "prod-project-1", AssetID: "gs://assets-bucket/"},
		{ProjectID: "prod-project-1", AssetID: "logs.example.com"},
	})
	if !res.Valid() || len(res.Warnings) != 0 {
		t.Fatalf("expected clean listing, got errors=%v warnings=%v", res.Errors, res.Warnings)
	}
	if res.Err() != nil {
		t.Errorf("expected nil error, got %v", res.Err())
	}
}

func validReport() *models.InvestigationReport {
	r := models.NewInvestigationReport()
	r.Add(&models.ProjectResult{
		ProjectID: "prod-project-1",
		FolderID:  strPtr("123"),
		Buckets: []models.BucketFinding{
			{
				BucketName: "assets-bucket",
				Metadata:   &models.BucketMetadata{StorageClass: "STANDARD", LocationType: "region"},
				ExposedBindings: []models.IamBinding{
					{Role: "roles/storage.objectViewer", Members: []string{models.PrincipalAllUsers}},
				},
			},
			{
				BucketName: "logs-bucket",
				Err:        &models.FetchError{Kind: models.ErrorKindNotFound, Message: "gone"},
			},
		},
	})
	r.Add(&models.ProjectResult{
		ProjectID:      "prod-project-2",
		HierarchyError: &models.FetchError{Kind: models.ErrorKindAccessDenied, Message: "denied"},
	})
	return r
}

func TestValidateReport(t *testing.T) {
	bare, err := json.Marshal(validReport())
	if err != nil {
		t.Fatal(err)
	}
	run, err := json.Marshal(&models.Run{Timestamp: time.Now().UTC(), Report: validReport()})
	if err != nil {
		t.Fatal(err)
	}
	staleRun, err := json.Marshal(&models.Run{Timestamp: time.Now().AddDate(-2, 0, 0), Report: validReport()})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{"bare report", bare, ""},
		{"stored run", run, ""},
		{"empty report", []byte(`{}`), ""},
		{"not json", []byte(`not json`), "Failed to parse JSON"},
		{"array", []byte(`[]`), "Failed to parse JSON"},
		{"stale run", staleRun, "too old"},
		{
			name:    "both parents",
			data:    []byte(`{"p":{"folder_id":"1","organization_id":"2","buckets":[]}}`),
			wantErr: "has both folder_id and organization_id",
		},
		{
			name:    "unknown kind",
			data:    []byte(`{"p":{"folder_id":null,"organization_id":null,"buckets":[{"bucket_name":"b","error":"x","error_kind":"boom"}]}}`),
			wantErr: "invalid error kind: 'boom'",
		},
		{
			name:    "missing bucket name",
			data:    []byte(`{"p":{"folder_id":null,"organization_id":null,"buckets":[{"details":{"metadata":{},"iam_policy":{"exposed_bindings":[]}}}]}}`),
			wantErr: "without bucket_name",
		},
		{
			name:    "binding without members",
			data:    []byte(`{"p":{"folder_id":null,"organization_id":null,"buckets":[{"bucket_name":"b","details":{"metadata":{},"iam_policy":{"exposed_bindings":[{"role":"roles/x","members":[]}]}}}]}}`),
			wantErr: "without members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().ValidateReport(tt.data)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !containsError(ve.Errors, tt.wantErr) {
				t.Fatalf("expected %q in %v", tt.wantErr, ve.Errors)
			}
		})
	}
}

func TestValidationErrorError(t *testing.T) {
	err := &ValidationError{Source: "report", Errors: []string{"first", "second"}}
	want := "Invalid report:\n  - first\n  - second"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestValidateTimestamp(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		ts      time.Time
		wantErr bool
	}{
		{"now", now, false},
		{"last month", now.AddDate(0, -1, 0), false},
		{"zero", time.Time{}, true},
		{"future", now.Add(2 * time.Hour), true},
		{"too old", now.AddDate(-1, 0, -1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimestamp(tt.ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
