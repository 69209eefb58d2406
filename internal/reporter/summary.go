// Package reporter renders investigation results as JSON, CSV and text.
package reporter

import (
	"fmt"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// PermissionsNone is the permissions text of a bucket without exposure.
const PermissionsNone = "None"

// Summarize flattens a report into one row per bucket finding, in project
// order and then bucket order.
func Summarize(report *models.InvestigationReport) []models.SummaryRow {
	rows := []models.SummaryRow{}
	for _, p := range report.Projects() {
		folder := FolderColumn(p)
		for _, b := range p.Buckets {
			perms := FormatPermissions(b)
			rows = append(rows, models.SummaryRow{
				FolderID:      folder,
				ProjectID:     p.ProjectID,
				BucketName:    b.BucketName,
				Permissions:   perms,
				ExposureMatch: ExposureMatchFor(b.ExposedBindings, perms),
			})
		}
	}
	return rows
}

// FolderColumn names the parent of a project: the folder id, else the
// organization as "organizations/<id>", else "N/A".
func FolderColumn(p *models.ProjectResult) string {
	switch {
	case p.FolderID != nil:
		return *p.FolderID
	case p.OrganizationID != nil:
		return "organizations/" + *p.OrganizationID
	default:
		return "N/A"
	}
}

// FormatPermissions renders the exposed bindings of a finding as
// "role: m1, m2; role2: m3", "None", or "Error (<kind>): <message>" when
// the IAM policy could not be read.
func FormatPermissions(f models.BucketFinding) string {
	if fe := f.PolicyError(); fe != nil {
		return fmt.Sprintf("Error (%s): %s", fe.Kind, fe.Message)
	}
	return formatBindings(f.ExposedBindings)
}

func formatBindings(bindings []models.IamBinding) string {
	if len(bindings) == 0 {
		return PermissionsNone
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Role + ": " + strings.Join(b.Members, ", ")
	}
	return strings.Join(parts, "; ")
}

// ExposureMatchFor compares the exposed bindings with their rendered text.
// Yes: bindings present and the text lists them. No: no bindings and the
// text is "None". Anything else is a discrepancy.
func ExposureMatchFor(bindings []models.IamBinding, permissions string) models.ExposureMatch {
	listsBindings := permissions != PermissionsNone && !strings.HasPrefix(permissions, "Error (")
	switch {
	case len(bindings) > 0 && listsBindings:
		return models.ExposureMatchYes
	case len(bindings) == 0 && permissions == PermissionsNone:
		return models.ExposureMatchNo
	default:
		return models.ExposureMatchDiscrepancy
	}
}
