package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// ReadReport loads either a bare investigation report or a stored run and
// returns it as a run. Bare reports get the file's modification time.
func ReadReport(path string) (*models.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	run, err := ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if run.Timestamp.IsZero() {
		if info, err := os.Stat(path); err == nil {
			run.Timestamp = info.ModTime().UTC()
		}
	}
	return run, nil
}

// ParseReport decodes report JSON, detecting whether it is a stored run.
func ParseReport(data []byte) (*models.Run, error) {
	if IsStoredRun(data) {
		var run models.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to parse run: %w", err)
		}
		if run.Report == nil {
			run.Report = models.NewInvestigationReport()
		}
		return &run, nil
	}

	report := models.NewInvestigationReport()
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("failed to parse investigation report: %w", err)
	}
	return &models.Run{
		Report:  report,
		Summary: models.Summarize(report, 0),
	}, nil
}

// IsStoredRun reports whether data looks like a stored run document:
// an object with a "report" object and a "timestamp".
func IsStoredRun(data []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	rawReport, hasReport := probe["report"]
	rawTS, hasTS := probe["timestamp"]
	if !hasReport || !hasTS {
		return false
	}

	var ts time.Time
	if err := json.Unmarshal(rawTS, &ts); err != nil {
		return false
	}
	var inner map[string]json.RawMessage
	return json.Unmarshal(rawReport, &inner) == nil
}
