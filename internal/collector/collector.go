// Package collector reads the input listings and stored reports.
package collector

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// ReadListing reads an asset listing CSV file.
func ReadListing(path string) ([]models.AssetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing: %w", err)
	}
	defer f.Close()

	records, err := ParseListing(f)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, err
	}
	return records, nil
}

// ParseListing reads (project, asset) records from CSV with a header row.
// Rows are returned as-is, blank fields included, in input order.
func ParseListing(r io.Reader) ([]models.AssetRecord, error) {
	header, reader, err := openCSV(r)
	if err != nil {
		return nil, err
	}

	cols := detectColumns(header)
	if cols.project < 0 {
		return nil, &SchemaError{Missing: projectColumns[0], Header: header}
	}
	if cols.asset < 0 {
		return nil, &SchemaError{Missing: assetColumns[0], Header: header}
	}

	var records []models.AssetRecord
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read listing row %d: %w", line, err)
		}
		records = append(records, models.AssetRecord{
			ProjectID: field(row, cols.project),
			AssetID:   field(row, cols.asset),
			Line:      line,
		})
	}
	return records, nil
}

// ReadProjects reads a project-only listing file.
func ReadProjects(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing: %w", err)
	}
	defer f.Close()

	projects, err := ParseProjects(f)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, err
	}
	return projects, nil
}

// ParseProjects reads the project column of a CSV listing.
func ParseProjects(r io.Reader) ([]string, error) {
	header, reader, err := openCSV(r)
	if err != nil {
		return nil, err
	}

	cols := detectColumns(header)
	if cols.project < 0 {
		return nil, &SchemaError{Missing: projectColumns[0], Header: header}
	}

	var projects []string
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read listing row %d: %w", line, err)
		}
		projects = append(projects, field(row, cols.project))
	}
	return projects, nil
}

func openCSV(r io.Reader) ([]string, *csv.Reader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, &SchemaError{Missing: projectColumns[0]}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read listing header: %w", err)
	}
	return header, reader, nil
}

// field returns row[i], or "" for short rows.
func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
