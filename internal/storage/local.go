package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/gcsspectre/internal/models"
)

const runSuffix = "-investigation.json"

// LocalStorage implements Storage interface using local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocal creates a new local storage instance
func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{
		baseDir: baseDir,
	}
}

// SaveRun stores a run to disk
func (s *LocalStorage) SaveRun(run *models.Run) (string, error) {
	runsDir := filepath.Join(s.baseDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create runs directory: %w", err)
	}

	path := s.runPath(run.Timestamp)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// LoadRun loads a run from a specific timestamp
func (s *LocalStorage) LoadRun(timestamp time.Time) (*models.Run, error) {
	return s.loadRunFromFile(s.runPath(timestamp))
}

// GetLatestRun retrieves the most recent run
func (s *LocalStorage) GetLatestRun() (*models.Run, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	if len(timestamps) == 0 {
		return nil, fmt.Errorf("no runs found")
	}

	return s.LoadRun(timestamps[len(timestamps)-1])
}

// GetLastNRuns retrieves the last N runs, oldest first
func (s *LocalStorage) GetLastNRuns(n int) ([]*models.Run, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	if len(timestamps) == 0 {
		return nil, fmt.Errorf("no runs found")
	}

	start := len(timestamps) - n
	if start < 0 {
		start = 0
	}

	selected := timestamps[start:]
	runs := make([]*models.Run, 0, len(selected))

	for _, timestamp := range selected {
		run, err := s.LoadRun(timestamp)
		if err != nil {
			// Skip runs that fail to load but continue with others
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// ListRuns returns all available run timestamps sorted chronologically
func (s *LocalStorage) ListRuns() ([]time.Time, error) {
	runsDir := filepath.Join(s.baseDir, "runs")

	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		return []time.Time{}, nil
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var timestamps []time.Time

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), runSuffix) {
			continue
		}

		// Format: 2006-01-02T15-04-05-investigation.json
		timestamp, err := s.parseTimestamp(strings.TrimSuffix(entry.Name(), runSuffix))
		if err != nil {
			continue
		}

		timestamps = append(timestamps, timestamp)
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})

	return timestamps, nil
}

// Prune deletes all but the newest keep runs and returns how many it removed.
func (s *LocalStorage) Prune(keep int) (int, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}

	removed := 0
	for i := 0; i < len(timestamps)-keep; i++ {
		if err := os.Remove(s.runPath(timestamps[i])); err != nil {
			return removed, fmt.Errorf("failed to remove run: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *LocalStorage) runPath(t time.Time) string {
	return filepath.Join(s.baseDir, "runs", s.formatTimestamp(t)+runSuffix)
}

// loadRunFromFile loads a run from a file path
func (s *LocalStorage) loadRunFromFile(path string) (*models.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	if run.Report == nil {
		run.Report = models.NewInvestigationReport()
	}

	return &run, nil
}

// formatTimestamp converts a time.Time to filename-safe format
func (s *LocalStorage) formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05")
}

// parseTimestamp converts filename format back to time.Time
func (s *LocalStorage) parseTimestamp(str string) (time.Time, error) {
	return time.Parse("2006-01-02T15-04-05", str)
}

// GetStoragePath returns the full path to the storage directory
func (s *LocalStorage) GetStoragePath() string {
	return s.baseDir
}

// EnsureDirectoryExists creates the storage directory if it doesn't exist
func (s *LocalStorage) EnsureDirectoryExists() error {
	return os.MkdirAll(filepath.Join(s.baseDir, "runs"), 0755)
}
