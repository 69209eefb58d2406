package reporter

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate writes the investigation report mapping. The output carries no
// timestamps, so identical inputs give identical bytes.
func (r *JSONReporter) Generate(report *models.InvestigationReport) error {
	return r.Encode(report)
}

// GenerateRun writes a whole stored run.
func (r *JSONReporter) GenerateRun(run *models.Run) error {
	return r.Encode(run)
}

// GenerateSummaryOnly writes the run statistics, trend and recommendations
// without the per-bucket findings.
func (r *JSONReporter) GenerateSummaryOnly(run *models.Run) error {
	summary := struct {
		Timestamp       string                  `json:"timestamp"`
		Summary         models.RunSummary       `json:"summary"`
		Trend           *models.Trend           `json:"trend,omitempty"`
		Recommendations []models.Recommendation `json:"recommendations"`
		Rows            []models.SummaryRow     `json:"rows"`
	}{
		Timestamp:       run.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Summary:         run.Summary,
		Trend:           run.Trend,
		Recommendations: run.Recommendations,
		Rows:            Summarize(run.Report),
	}
	return r.Encode(summary)
}

// Encode writes any value with the reporter's formatting.
func (r *JSONReporter) Encode(v interface{}) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = r.writer.Write(data)
	if err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
