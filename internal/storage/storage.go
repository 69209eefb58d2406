package storage

import (
	"time"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// Storage defines the interface for persisting investigation runs
type Storage interface {
	// SaveRun stores a complete run and returns its path
	SaveRun(run *models.Run) (string, error)

	// LoadRun loads a run from a specific timestamp
	LoadRun(timestamp time.Time) (*models.Run, error)

	// GetLatestRun retrieves the most recent run
	GetLatestRun() (*models.Run, error)

	// GetLastNRuns retrieves the last N runs, oldest first
	GetLastNRuns(n int) ([]*models.Run, error)

	// ListRuns returns all available run timestamps
	ListRuns() ([]time.Time, error)
}
