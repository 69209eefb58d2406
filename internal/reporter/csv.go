package reporter

import (
	"encoding/csv"
	"io"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// CSVHeader is the header row of the summary CSV.
var CSVHeader = []string{"Folder Name/ID", "Project Name/ID", "Bucket Name", "Permissions", "Exposure Match"}

// CSVReporter writes summary rows as CSV
type CSVReporter struct {
	writer io.Writer
}

// NewCSVReporter creates a new CSV reporter
func NewCSVReporter(writer io.Writer) *CSVReporter {
	return &CSVReporter{writer: writer}
}

// Generate writes the header and one line per row.
func (r *CSVReporter) Generate(rows []models.SummaryRow) error {
	w := csv.NewWriter(r.writer)
	if err := w.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.FolderID, row.ProjectID, row.BucketName, row.Permissions, string(row.ExposureMatch)}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
