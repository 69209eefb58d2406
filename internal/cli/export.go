package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/reporter"
	"github.com/ppiankov/gcsspectre/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportLastN  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export findings for compliance reporting",
	Long: `Export stored investigation runs in formats suitable for compliance
evidence and code scanning dashboards.

Every exposed bucket and every recorded fetch error becomes one record.

Supported formats:
  csv    Tabular format for spreadsheets and compliance tools
  json   Structured JSON for programmatic consumption
  sarif  SARIF 2.1.0 for GitHub Advanced Security and code scanning

Example:
  gcsspectre export --format csv -o evidence.csv
  gcsspectre export --format sarif -o results.sarif --last 1
  gcsspectre export --format json --last 30 -o evidence.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv, json, or sarif")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default: stdout)")
	exportCmd.Flags().IntVarP(&exportLastN, "last", "n", 1,
		"number of recent runs to include")
}

// Finding types of an export record.
const (
	findingPublicRead = "public_read"
	findingFetchError = "fetch_error"
)

// ComplianceRecord is a single row in the compliance export.
type ComplianceRecord struct {
	RunTimestamp string `json:"run_timestamp"`
	Folder       string `json:"folder"`
	Project      string `json:"project"`
	Bucket       string `json:"bucket,omitempty"`
	Finding      string `json:"finding"`
	Severity     string `json:"severity"`
	Detail       string `json:"detail"`
	HealthScore  string `json:"health_score"`
	ScorePercent string `json:"score_percent"`
}

// ComplianceExport is the full export payload.
type ComplianceExport struct {
	ExportedAt  string             `json:"exported_at"`
	RunCount    int                `json:"run_count"`
	RecordCount int                `json:"record_count"`
	Framework   string             `json:"framework"`
	Records     []ComplianceRecord `json:"records"`
}

func runExport(cmd *cobra.Command, args []string) error {
	switch exportFormat {
	case "csv", "json", "sarif":
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use csv, json, or sarif)", exportFormat)}
	}

	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}

	store := storage.NewLocal(storagePath)

	runs, err := store.GetLastNRuns(exportLastN)
	if err != nil || len(runs) == 0 {
		fmt.Println("No stored runs found. Run 'gcsspectre investigate' first.")
		return nil
	}

	logVerbose("Exporting %d runs", len(runs))

	var writer io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	return writeExport(writer, runs, exportFormat)
}

func writeExport(w io.Writer, runs []*models.Run, format string) error {
	export := buildComplianceExport(runs)
	switch format {
	case "csv":
		return writeCSV(w, export)
	case "json":
		return writeExportJSON(w, export)
	case "sarif":
		return writeSARIF(w, export)
	default:
		return fmt.Errorf("unsupported format: %s (use csv, json, or sarif)", format)
	}
}

func buildComplianceExport(runs []*models.Run) *ComplianceExport {
	var records []ComplianceRecord

	for _, run := range runs {
		base := ComplianceRecord{
			RunTimestamp: run.Timestamp.Format(time.RFC3339),
			HealthScore:  run.Summary.HealthScore,
			ScorePercent: fmt.Sprintf("%.1f", run.Summary.ScorePercent),
		}

		for _, p := range run.Report.Projects() {
			base.Folder = reporter.FolderColumn(p)
			base.Project = p.ProjectID
			records = append(records, projectRecords(base, p)...)
		}
	}

	// Sort by severity (critical first), then project, then bucket.
	sevOrder := map[string]int{
		models.SeverityCritical: 0,
		models.SeverityHigh:     1,
		models.SeverityMedium:   2,
		models.SeverityLow:      3,
	}
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := sevOrder[records[i].Severity], sevOrder[records[j].Severity]
		if si != sj {
			return si < sj
		}
		if records[i].Project != records[j].Project {
			return records[i].Project < records[j].Project
		}
		return records[i].Bucket < records[j].Bucket
	})

	return &ComplianceExport{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		RunCount:    len(runs),
		RecordCount: len(records),
		Framework:   "SOC2/ISO27001",
		Records:     records,
	}
}

func projectRecords(base ComplianceRecord, p *models.ProjectResult) []ComplianceRecord {
	var records []ComplianceRecord

	errRecord := func(bucket, what string, fe *models.FetchError) {
		r := base
		r.Bucket = bucket
		r.Finding = findingFetchError
		r.Severity = models.SeverityMedium
		r.Detail = fmt.Sprintf("%s: %s: %s", what, fe.Kind.Label(), fe.Message)
		records = append(records, r)
	}

	if p.HierarchyError != nil {
		errRecord("", "hierarchy", p.HierarchyError)
	}
	if p.Error != nil {
		errRecord("", "bucket listing", p.Error)
	}

	for _, b := range p.Buckets {
		if b.Exposed() {
			r := base
			r.Bucket = b.BucketName
			r.Finding = findingPublicRead
			r.Severity = exposureSeverity(b.ExposedBindings)
			r.Detail = reporter.FormatPermissions(b)
			records = append(records, r)
		}
		switch {
		case b.Err != nil:
			errRecord(b.BucketName, "bucket", b.Err)
		default:
			if b.PolicyErr != nil {
				errRecord(b.BucketName, "iam policy", b.PolicyErr)
			}
			if b.MetadataErr != nil {
				errRecord(b.BucketName, "metadata", b.MetadataErr)
			}
		}
	}

	return records
}

// exposureSeverity is critical when anyone on the internet can read.
func exposureSeverity(bindings []models.IamBinding) string {
	for _, b := range bindings {
		for _, m := range b.Members {
			if m == models.PrincipalAllUsers {
				return models.SeverityCritical
			}
		}
	}
	return models.SeverityHigh
}

func writeCSV(w io.Writer, export *ComplianceExport) error {
	writer := csv.NewWriter(w)

	header := []string{
		"run_timestamp", "folder", "project", "bucket", "finding",
		"severity", "detail", "health_score", "score_percent",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range export.Records {
		row := []string{
			r.RunTimestamp, r.Folder, r.Project, r.Bucket, r.Finding,
			r.Severity, r.Detail, r.HealthScore, r.ScorePercent,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeExportJSON(w io.Writer, export *ComplianceExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// SARIF 2.1.0 output for GitHub Advanced Security integration.
// Only the fields a valid log needs.

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

var sarifRuleText = map[string]string{
	findingPublicRead: "Bucket grants public read access",
	findingFetchError: "Bucket or project could not be investigated",
}

func writeSARIF(w io.Writer, export *ComplianceExport) error {
	rulesMap := map[string]sarifRule{}
	results := []sarifResult{}

	for _, r := range export.Records {
		ruleID := "gcs/" + r.Finding
		if _, exists := rulesMap[ruleID]; !exists {
			rulesMap[ruleID] = sarifRule{
				ID:               ruleID,
				ShortDescription: sarifMessage{Text: sarifRuleText[r.Finding]},
				DefaultConfig:    sarifDefaultConfig{Level: sarifLevel(r.Severity)},
			}
		}

		results = append(results, sarifResult{
			RuleID:  ruleID,
			Level:   sarifLevel(r.Severity),
			Message: sarifMessage{Text: r.Detail},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysical{
					ArtifactLocation: sarifArtifact{URI: resourceURI(r)},
				},
			}},
		})
	}

	rules := make([]sarifRule, 0, len(rulesMap))
	for _, r := range rulesMap {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:    "gcsspectre",
					Version: buildVersion,
					Rules:   rules,
				},
			},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifLevel(severity string) string {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func resourceURI(r ComplianceRecord) string {
	if r.Bucket != "" {
		return "gs://" + r.Bucket
	}
	return "projects/" + r.Project
}
