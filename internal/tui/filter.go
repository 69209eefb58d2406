package tui

import (
	"sort"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/reporter"
)

// entry is one table line together with the finding it was rendered from.
type entry struct {
	Row     models.SummaryRow
	Finding models.BucketFinding
	Project *models.ProjectResult
}

// buildEntries pairs every summary row with its finding. Rows come out of
// reporter.Summarize in project then bucket order, which is the order walked here.
func buildEntries(report *models.InvestigationReport) []entry {
	rows := reporter.Summarize(report)
	entries := make([]entry, 0, len(rows))
	i := 0
	for _, p := range report.Projects() {
		for _, b := range p.Buckets {
			entries = append(entries, entry{Row: rows[i], Finding: b, Project: p})
			i++
		}
	}
	return entries
}

// failed reports whether the bucket or its project lookup hit an error.
func (e entry) failed() bool {
	if e.Finding.HasError() {
		return true
	}
	return e.Project != nil && (e.Project.HierarchyError != nil || e.Project.Error != nil)
}

// filterState holds current active filters.
type filterState struct {
	Match      models.ExposureMatch
	SearchText string
	ErrorsOnly bool
}

// sortField enumerates columns that can be sorted.
type sortField int

const (
	sortByMatch sortField = iota
	sortByProject
	sortByBucket
	sortByFolder
)

// sortFieldCount is the total number of sortable columns.
const sortFieldCount = 4

var matchPriority = map[models.ExposureMatch]int{
	models.ExposureMatchYes:         0,
	models.ExposureMatchDiscrepancy: 1,
	models.ExposureMatchNo:          2,
}

// matchChoices are the options of the match filter after "All".
var matchChoices = []models.ExposureMatch{
	models.ExposureMatchYes,
	models.ExposureMatchDiscrepancy,
	models.ExposureMatchNo,
}

// applyFilters returns entries matching all active filters.
func applyFilters(entries []entry, f filterState) []entry {
	result := make([]entry, 0, len(entries))
	searchLower := strings.ToLower(f.SearchText)

	for _, e := range entries {
		if f.Match != "" && e.Row.ExposureMatch != f.Match {
			continue
		}
		if f.ErrorsOnly && !e.failed() {
			continue
		}
		if searchLower != "" && !matchesSearch(e.Row, searchLower) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func matchesSearch(row models.SummaryRow, searchLower string) bool {
	return strings.Contains(strings.ToLower(row.FolderID), searchLower) ||
		strings.Contains(strings.ToLower(row.ProjectID), searchLower) ||
		strings.Contains(strings.ToLower(row.BucketName), searchLower) ||
		strings.Contains(strings.ToLower(row.Permissions), searchLower)
}

// sortEntries sorts entries in place by the given field. Ties keep report order.
func sortEntries(entries []entry, field sortField) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Row, entries[j].Row
		switch field {
		case sortByMatch:
			return matchPriority[a.ExposureMatch] < matchPriority[b.ExposureMatch]
		case sortByProject:
			return a.ProjectID < b.ProjectID
		case sortByBucket:
			return a.BucketName < b.BucketName
		case sortByFolder:
			return a.FolderID < b.FolderID
		default:
			return false
		}
	})
}

// sortFieldName returns a human-readable name for the sort field.
func sortFieldName(f sortField) string {
	switch f {
	case sortByMatch:
		return "exposure"
	case sortByProject:
		return "project"
	case sortByBucket:
		return "bucket"
	case sortByFolder:
		return "folder"
	default:
		return "unknown"
	}
}
