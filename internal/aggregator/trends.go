package aggregator

import (
	"fmt"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// TrendAnalyzer analyzes trends across multiple runs
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// AnalyzeLastNRuns summarizes runs ordered oldest first.
func (t *TrendAnalyzer) AnalyzeLastNRuns(runs []*models.Run) *models.TrendSummary {
	if len(runs) == 0 {
		return nil
	}

	summary := &models.TrendSummary{
		RunsAnalyzed:     len(runs),
		ExposedSparkline: make([]int, len(runs)),
		ErrorSparkline:   make([]int, len(runs)),
	}

	if len(runs) > 1 {
		earliest := runs[0].Timestamp
		latest := runs[len(runs)-1].Timestamp
		days := int(latest.Sub(earliest).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d runs over %d days", len(runs), days)
	} else {
		summary.TimeRange = "Single run"
	}

	for i, run := range runs {
		summary.ExposedSparkline[i] = run.Summary.ExposedBuckets
		summary.ErrorSparkline[i] = run.Summary.ErroredBuckets + run.Summary.ProjectErrors
	}

	return summary
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders counts as a row of block characters.
func Sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var sb strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = (v - lo) * (len(sparkTicks) - 1) / (hi - lo)
		}
		sb.WriteRune(sparkTicks[idx])
	}
	return sb.String()
}

// GetTrendIndicator returns an arrow for a trend direction
func GetTrendIndicator(direction string) string {
	switch direction {
	case "improving":
		return "↓"
	case "degrading":
		return "↑"
	case "stable":
		return "→"
	default:
		return "?"
	}
}
