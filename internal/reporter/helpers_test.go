package reporter

import (
	"time"

	"github.com/ppiankov/gcsspectre/internal/models"
)

func strPtr(s string) *string { return &s }

func sampleReport() *models.InvestigationReport {
	report := models.NewInvestigationReport()
	report.Add(&models.ProjectResult{
		ProjectID: "p1",
		FolderID:  strPtr("123"),
		Buckets: []models.BucketFinding{
			{
				BucketName:      "b1",
				Metadata:        &models.BucketMetadata{StorageClass: "STANDARD"},
				ExposedBindings: []models.IamBinding{{Role: "roles/storage.objectViewer", Members: []string{"allUsers"}}},
			},
			{
				BucketName:      "b2",
				Metadata:        &models.BucketMetadata{StorageClass: "STANDARD"},
				ExposedBindings: []models.IamBinding{},
			},
		},
	})
	report.Add(&models.ProjectResult{
		ProjectID:      "p2",
		OrganizationID: strPtr("999"),
		Buckets: []models.BucketFinding{
			{
				BucketName: "b3",
				Metadata:   &models.BucketMetadata{},
				PolicyErr:  models.NewFetchError(models.ErrorKindAccessDenied, "no getIamPolicy"),
			},
		},
	})
	report.Add(&models.ProjectResult{
		ProjectID:      "p3",
		HierarchyError: models.NewFetchError(models.ErrorKindNotFound, "project gone"),
		Buckets: []models.BucketFinding{
			{BucketName: "b4", Err: models.NewFetchError(models.ErrorKindNotFound, "bucket gone")},
		},
	})
	return report
}

func sampleRun() *models.Run {
	report := sampleReport()
	return &models.Run{
		Timestamp: time.Date(2026, 2, 15, 13, 0, 0, 0, time.UTC),
		Input:     "assets.csv",
		Report:    report,
		Summary:   models.Summarize(report, 1),
		Recommendations: []models.Recommendation{
			{Severity: models.SeverityCritical, Project: "p1", Bucket: "b1", Action: "Remove allUsers from roles/storage.objectViewer on gs://b1", Impact: "Objects are readable by anyone on the internet"},
			{Severity: models.SeverityMedium, Project: "p2", Bucket: "b3", Action: "Grant the scanning identity permission", Impact: "Exposure cannot be assessed without read access"},
		},
	}
}
