package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/gcsspectre/internal/models"
)

func sampleRun(ts time.Time) *models.Run {
	report := models.NewInvestigationReport()
	folder := "123"
	report.Add(&models.ProjectResult{
		ProjectID: "p1",
		FolderID:  &folder,
		Buckets: []models.BucketFinding{
			{
				BucketName:      "b1",
				Metadata:        &models.BucketMetadata{StorageClass: "STANDARD"},
				ExposedBindings: []models.IamBinding{{Role: "roles/storage.objectViewer", Members: []string{"allUsers"}}},
			},
		},
	})
	return &models.Run{
		Timestamp:       ts,
		Input:           "assets.csv",
		Report:          report,
		Summary:         models.Summarize(report, 0),
		Recommendations: []models.Recommendation{},
	}
}

func TestNewLocal(t *testing.T) {
	s := NewLocal("/tmp/test")
	if s.baseDir != "/tmp/test" {
		t.Errorf("expected baseDir=/tmp/test, got %s", s.baseDir)
	}
}

func TestEnsureDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	baseDir := filepath.Join(dir, "nested", "gcsspectre")
	s := NewLocal(baseDir)

	if err := s.EnsureDirectoryExists(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(baseDir, "runs")); err != nil {
		t.Fatalf("expected runs directory to exist: %v", err)
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := NewLocal(t.TempDir())
	ts := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	path, err := s.SaveRun(sampleRun(ts))
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if filepath.Base(path) != "2026-02-15T10-00-00-investigation.json" {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}

	loaded, err := s.LoadRun(ts)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if !loaded.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", loaded.Timestamp, ts)
	}
	p1 := loaded.Report.Project("p1")
	if p1 == nil || len(p1.Buckets) != 1 || !p1.Buckets[0].Exposed() {
		t.Errorf("report did not survive the round trip: %+v", p1)
	}
	if loaded.Summary.ExposedBuckets != 1 {
		t.Errorf("ExposedBuckets = %d, want 1", loaded.Summary.ExposedBuckets)
	}
}

func TestLoadRunNotFound(t *testing.T) {
	s := NewLocal(t.TempDir())
	if _, err := s.LoadRun(time.Now()); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestListRunsEmpty(t *testing.T) {
	s := NewLocal(t.TempDir())
	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestGetLatestAndLastNRuns(t *testing.T) {
	s := NewLocal(t.TempDir())
	base := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if _, err := s.SaveRun(sampleRun(base.Add(time.Duration(i) * 24 * time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun: %v", err)
	}
	if !latest.Timestamp.Equal(base.Add(72 * time.Hour)) {
		t.Errorf("latest = %v", latest.Timestamp)
	}

	runs, err := s.GetLastNRuns(2)
	if err != nil {
		t.Fatalf("GetLastNRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].Timestamp.Before(runs[1].Timestamp) {
		t.Error("runs should be oldest first")
	}

	all, _ := s.GetLastNRuns(10)
	if len(all) != 4 {
		t.Errorf("expected 4 runs, got %d", len(all))
	}
}

func TestGetLatestRunEmpty(t *testing.T) {
	s := NewLocal(t.TempDir())
	if _, err := s.GetLatestRun(); err == nil {
		t.Fatal("expected error with no runs")
	}
	if _, err := s.GetLastNRuns(3); err == nil {
		t.Fatal("expected error with no runs")
	}
}

func TestListRunsIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	runsDir := filepath.Join(dir, "runs")
	if err := os.MkdirAll(filepath.Join(runsDir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runsDir, "notes.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runsDir, "bad-time-investigation.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestPrune(t *testing.T) {
	s := NewLocal(t.TempDir())
	base := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := s.SaveRun(sampleRun(base.Add(time.Duration(i) * time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	runs, _ := s.ListRuns()
	if len(runs) != 2 || !runs[0].Equal(base.Add(3*time.Hour)) {
		t.Errorf("unexpected remaining runs: %v", runs)
	}
}

func TestFormatAndParseTimestamp(t *testing.T) {
	s := NewLocal("/tmp")
	ts := time.Date(2026, 2, 15, 10, 30, 45, 0, time.UTC)

	formatted := s.formatTimestamp(ts)
	if formatted != "2026-02-15T10-30-45" {
		t.Errorf("expected 2026-02-15T10-30-45, got %s", formatted)
	}

	parsed, err := s.parseTimestamp(formatted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("expected %v, got %v", ts, parsed)
	}
}
