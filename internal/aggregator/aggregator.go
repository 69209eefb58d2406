// Package aggregator turns investigation reports into stored runs and
// compares runs over time.
package aggregator

import (
	"time"

	"github.com/ppiankov/gcsspectre/internal/investigator"
	"github.com/ppiankov/gcsspectre/internal/models"
)

// Aggregator builds runs from reports
type Aggregator struct {
	now func() time.Time
}

// New creates a new aggregator
func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// BuildRun wraps a report with its summary and recommendations.
func (a *Aggregator) BuildRun(report *models.InvestigationReport, input string, skipped int) *models.Run {
	if report == nil {
		report = models.NewInvestigationReport()
	}
	recs := investigator.GenerateRecommendations(report)
	if recs == nil {
		recs = []models.Recommendation{}
	}
	return &models.Run{
		Timestamp:       a.now().UTC(),
		Input:           input,
		Report:          report,
		Summary:         models.Summarize(report, skipped),
		Recommendations: recs,
	}
}

// BucketRef identifies a bucket within a project.
type BucketRef struct {
	Project string `json:"project"`
	Bucket  string `json:"bucket"`
}

// ExposedBuckets returns the exposed buckets of a report in report order.
func ExposedBuckets(report *models.InvestigationReport) []BucketRef {
	var out []BucketRef
	for _, p := range report.Projects() {
		for _, b := range p.Buckets {
			if b.Exposed() {
				out = append(out, BucketRef{Project: p.ProjectID, Bucket: b.BucketName})
			}
		}
	}
	return out
}

// ErroredBuckets returns the buckets of a report with any recorded error.
func ErroredBuckets(report *models.InvestigationReport) []BucketRef {
	var out []BucketRef
	for _, p := range report.Projects() {
		for _, b := range p.Buckets {
			if b.HasError() {
				out = append(out, BucketRef{Project: p.ProjectID, Bucket: b.BucketName})
			}
		}
	}
	return out
}

// Subtract returns the refs of a that are not in b, keeping a's order.
func Subtract(a, b []BucketRef) []BucketRef {
	in := make(map[BucketRef]bool, len(b))
	for _, ref := range b {
		in[ref] = true
	}
	var out []BucketRef
	for _, ref := range a {
		if !in[ref] {
			out = append(out, ref)
		}
	}
	return out
}

// AddTrend adds trend information by comparing with a previous run
func (a *Aggregator) AddTrend(current, previous *models.Run) {
	if previous == nil {
		return
	}

	currentExposed := ExposedBuckets(current.Report)
	previousExposed := ExposedBuckets(previous.Report)

	trend := &models.Trend{
		PreviousExposed: len(previousExposed),
		CurrentExposed:  len(currentExposed),
		ComparedWith:    previous.Timestamp,
		NewExposed:      len(Subtract(currentExposed, previousExposed)),
		ResolvedExposed: len(Subtract(previousExposed, currentExposed)),
	}

	change := trend.CurrentExposed - trend.PreviousExposed
	switch {
	case change < 0:
		trend.Direction = "improving"
	case change > 0:
		trend.Direction = "degrading"
	default:
		trend.Direction = "stable"
	}

	current.Trend = trend
}
