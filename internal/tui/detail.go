package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 6

// renderDetail produces the detail view for a selected bucket.
func renderDetail(e *entry, width int) string {
	if e == nil {
		return styleDetailPanel.Width(width).Render("No bucket selected")
	}

	var b strings.Builder

	match := matchStyle(e.Row.ExposureMatch).Render(string(e.Row.ExposureMatch))
	b.WriteString(fmt.Sprintf("%s  %s / %s  (folder %s)\n", match, e.Row.ProjectID, e.Row.BucketName, e.Row.FolderID))

	f := e.Finding
	switch {
	case f.Err != nil:
		b.WriteString(styleError.Render(fmt.Sprintf("Error: %s: %s", f.Err.Kind.Label(), f.Err.Message)))
		b.WriteString("\n")
	default:
		if f.PolicyErr != nil {
			b.WriteString(styleError.Render(fmt.Sprintf("IAM policy: %s: %s", f.PolicyErr.Kind.Label(), f.PolicyErr.Message)))
			b.WriteString("\n")
		} else if len(f.ExposedBindings) == 0 {
			b.WriteString("IAM policy: no public bindings\n")
		}
		for _, binding := range f.ExposedBindings {
			b.WriteString(fmt.Sprintf("  %s: %s\n", binding.Role, strings.Join(binding.Members, ", ")))
		}

		switch {
		case f.MetadataErr != nil:
			b.WriteString(styleError.Render(fmt.Sprintf("Metadata: %s: %s", f.MetadataErr.Kind.Label(), f.MetadataErr.Message)))
			b.WriteString("\n")
		case f.Metadata != nil:
			b.WriteString(formatMetadata(f.Metadata))
			b.WriteString("\n")
		}
	}

	if e.Project != nil && e.Project.HierarchyError != nil {
		fe := e.Project.HierarchyError
		b.WriteString(styleError.Render(fmt.Sprintf("Hierarchy: %s: %s", fe.Kind.Label(), fe.Message)))
	}

	return styleDetailPanel.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func formatMetadata(m *models.BucketMetadata) string {
	ubla := "off"
	if m.UniformBucketLevelAccess {
		ubla = "on"
	}
	parts := []string{m.StorageClass}
	if m.Location != "" {
		parts = append(parts, m.Location)
	}
	parts = append(parts, m.LocationType,
		"PAP: "+m.PublicAccessPrevention,
		"UBLA: "+ubla)
	return "Metadata: " + strings.Join(parts, "  ")
}
