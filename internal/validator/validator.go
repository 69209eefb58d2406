package validator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/gcsspectre/internal/investigator"
	"github.com/ppiankov/gcsspectre/internal/models"
)

// ValidationError represents a validation failure
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %s:\n  - %s", e.Source, strings.Join(e.Errors, "\n  - "))
}

var (
	// https://cloud.google.com/resource-manager/docs/creating-managing-projects
	projectIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)
	// https://cloud.google.com/storage/docs/buckets#naming
	bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,220}[a-z0-9]$`)
)

var validKinds = map[models.ErrorKind]bool{
	models.ErrorKindValidation:   true,
	models.ErrorKindAccessDenied: true,
	models.ErrorKindNotFound:     true,
	models.ErrorKindTransient:    true,
}

// ListingResult describes a validated listing. Errors are rows the
// investigation would skip, warnings are rows it would still process.
type ListingResult struct {
	Records  int
	Projects int
	Buckets  int
	Errors   []string
	Warnings []string
}

// Valid reports whether every row would be investigated.
func (r *ListingResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns the errors as a ValidationError, or nil.
func (r *ListingResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Source: "listing", Errors: r.Errors}
}

// Validator validates listings and investigation reports
type Validator struct{}

// New creates a new validator
func New() *Validator {
	return &Validator{}
}

// ValidateListing checks listing rows the same way the investigation reads
// them, without calling any API.
func (v *Validator) ValidateListing(records []models.AssetRecord) *ListingResult {
	res := &ListingResult{Records: len(records)}
	projects := make(map[string]bool)
	seen := make(map[string]int)

	for i, rec := range records {
		line := rec.Line
		if line == 0 {
			line = i + 1
		}
		projectID := strings.TrimSpace(rec.ProjectID)
		assetID := strings.TrimSpace(rec.AssetID)

		if projectID == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: missing project id", line))
			continue
		}
		if assetID == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: missing asset id", line))
			continue
		}

		if !projectIDPattern.MatchString(projectID) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: '%s' is not a valid project id", line, projectID))
		}
		bucket := investigator.Normalize(assetID)
		if !bucketNamePattern.MatchString(bucket) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: '%s' is not a valid bucket name", line, bucket))
		}

		key := projectID + "/" + bucket
		if first, dup := seen[key]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: bucket '%s' already listed on row %d", line, key, first))
		} else {
			seen[key] = line
			res.Buckets++
		}
		projects[projectID] = true
	}

	res.Projects = len(projects)
	return res
}

// ValidateReport validates an investigation report, either bare or wrapped
// in a stored run.
func (v *Validator) ValidateReport(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return &ValidationError{
			Source: "report",
			Errors: []string{fmt.Sprintf("Failed to parse JSON: %v", err)},
		}
	}

	var errors []string
	raw := data
	if inner, ok := probe["report"]; ok {
		var run models.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return &ValidationError{
				Source: "report",
				Errors: []string{fmt.Sprintf("Failed to parse stored run: %v", err)},
			}
		}
		if err := ValidateTimestamp(run.Timestamp); err != nil {
			errors = append(errors, fmt.Sprintf("Field 'timestamp': %v", err))
		}
		raw = inner
	}

	report := models.NewInvestigationReport()
	if err := json.Unmarshal(raw, report); err != nil {
		return &ValidationError{
			Source: "report",
			Errors: append(errors, fmt.Sprintf("Failed to parse report: %v", err)),
		}
	}

	for _, p := range report.Projects() {
		errors = append(errors, validateProject(p)...)
	}

	if len(errors) > 0 {
		return &ValidationError{Source: "report", Errors: errors}
	}
	return nil
}

func validateProject(p *models.ProjectResult) []string {
	var errors []string
	if p.FolderID != nil && p.OrganizationID != nil {
		errors = append(errors, fmt.Sprintf("Project '%s' has both folder_id and organization_id", p.ProjectID))
	}
	errors = append(errors, checkKind(fmt.Sprintf("Project '%s' hierarchy", p.ProjectID), p.HierarchyError)...)
	errors = append(errors, checkKind(fmt.Sprintf("Project '%s'", p.ProjectID), p.Error)...)

	for _, b := range p.Buckets {
		where := fmt.Sprintf("Bucket '%s/%s'", p.ProjectID, b.BucketName)
		if b.BucketName == "" {
			errors = append(errors, fmt.Sprintf("Project '%s' has a bucket without bucket_name", p.ProjectID))
		}
		errors = append(errors, checkKind(where, b.Err)...)
		errors = append(errors, checkKind(where+" metadata", b.MetadataErr)...)
		errors = append(errors, checkKind(where+" iam_policy", b.PolicyErr)...)
		for _, binding := range b.ExposedBindings {
			if binding.Role == "" {
				errors = append(errors, fmt.Sprintf("%s has an exposed binding without role", where))
			}
			if len(binding.Members) == 0 {
				errors = append(errors, fmt.Sprintf("%s has an exposed binding for '%s' without members", where, binding.Role))
			}
		}
	}
	return errors
}

func checkKind(where string, fe *models.FetchError) []string {
	if fe == nil || validKinds[fe.Kind] {
		return nil
	}
	return []string{fmt.Sprintf("%s has invalid error kind: '%s'", where, fe.Kind)}
}

// ValidateTimestamp checks if a timestamp is reasonable (not in future, not too old)
func ValidateTimestamp(t time.Time) error {
	now := time.Now()

	if t.IsZero() {
		return fmt.Errorf("timestamp is missing")
	}

	if t.After(now.Add(1 * time.Hour)) {
		return fmt.Errorf("timestamp is in the future: %v", t)
	}

	oneYearAgo := now.AddDate(-1, 0, 0)
	if t.Before(oneYearAgo) {
		return fmt.Errorf("timestamp is too old (> 1 year): %v", t)
	}

	return nil
}
