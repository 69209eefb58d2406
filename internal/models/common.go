package models

import "time"

// Severity levels for recommendations
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Run is one stored investigation together with its derived data.
type Run struct {
	Timestamp       time.Time            `json:"timestamp"`
	Input           string               `json:"input,omitempty"` // listing the run was made from
	Report          *InvestigationReport `json:"report"`
	Summary         RunSummary           `json:"summary"`
	Trend           *Trend               `json:"trend,omitempty"` // comparison with previous run
	Recommendations []Recommendation     `json:"recommendations"`
}

// RunSummary provides aggregate statistics of a run
type RunSummary struct {
	TotalProjects     int            `json:"total_projects"`
	TotalBuckets      int            `json:"total_buckets"`
	ExposedBuckets    int            `json:"exposed_buckets"`
	ErroredBuckets    int            `json:"errored_buckets"`
	ProjectErrors     int            `json:"project_errors"` // hierarchy or enumeration failures
	SkippedRecords    int            `json:"skipped_records"`
	ExposedByRole     map[string]int `json:"exposed_by_role"`
	ExposedPrincipals map[string]int `json:"exposed_principals"`
	HealthScore       string         `json:"health_score"`  // excellent, good, warning, critical, severe
	ScorePercent      float64        `json:"score_percent"` // 0-100
}

// Trend represents change between current and previous run
type Trend struct {
	Direction       string    `json:"direction"` // "improving", "degrading", "stable"
	PreviousExposed int       `json:"previous_exposed"`
	CurrentExposed  int       `json:"current_exposed"`
	ComparedWith    time.Time `json:"compared_with"`
	NewExposed      int       `json:"new_exposed"`      // buckets that became exposed
	ResolvedExposed int       `json:"resolved_exposed"` // buckets no longer exposed
}

// Recommendation represents an actionable item to fix
type Recommendation struct {
	Severity string `json:"severity"` // critical, high, medium, low
	Project  string `json:"project"`
	Bucket   string `json:"bucket,omitempty"`
	Action   string `json:"action"` // What to do
	Impact   string `json:"impact"` // Why it matters
}

// TrendSummary provides historical trend analysis
type TrendSummary struct {
	TimeRange        string `json:"time_range"` // e.g., "Last 7 runs"
	RunsAnalyzed     int    `json:"runs_analyzed"`
	ExposedSparkline []int  `json:"exposed_sparkline"`
	ErrorSparkline   []int  `json:"error_sparkline"`
}

// Summarize computes the aggregate statistics of a report.
func Summarize(report *InvestigationReport, skipped int) RunSummary {
	s := RunSummary{
		TotalProjects:     report.Len(),
		SkippedRecords:    skipped,
		ExposedByRole:     make(map[string]int),
		ExposedPrincipals: make(map[string]int),
	}

	for _, p := range report.Projects() {
		if p.Error != nil || p.HierarchyError != nil {
			s.ProjectErrors++
		}
		for _, b := range p.Buckets {
			s.TotalBuckets++
			if b.HasError() {
				s.ErroredBuckets++
			}
			if !b.Exposed() {
				continue
			}
			s.ExposedBuckets++
			for _, binding := range b.ExposedBindings {
				s.ExposedByRole[binding.Role]++
				for _, m := range binding.Members {
					s.ExposedPrincipals[m]++
				}
			}
		}
	}

	s.HealthScore, s.ScorePercent = CalculateHealthScore(s.ExposedBuckets, s.TotalBuckets)
	return s
}

// CalculateHealthScore determines overall health from exposed vs total buckets.
// score = (total - exposed) / total * 100, clamped 0-100.
func CalculateHealthScore(exposed, total int) (string, float64) {
	if total == 0 {
		return "unknown", 0.0
	}

	score := float64(total-exposed) / float64(total) * 100.0

	// Clamp to 0-100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var health string
	switch {
	case score >= 95:
		health = "excellent"
	case score >= 85:
		health = "good"
	case score >= 70:
		health = "warning"
	case score >= 50:
		health = "critical"
	default:
		health = "severe"
	}

	return health, score
}
