package investigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// Enumerate lists the buckets of every project and investigates each of
// them. A project whose buckets cannot be listed still gets an entry that
// carries the listing error. Duplicate and blank project ids are skipped.
func (inv *Investigator) Enumerate(ctx context.Context, projects []string) (*models.InvestigationReport, error) {
	if inv.rc.Lister == nil {
		return nil, fmt.Errorf("enumeration needs a bucket lister")
	}

	report := models.NewInvestigationReport()
	inv.stats = Stats{}

	for _, raw := range projects {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		projectID := strings.TrimSpace(raw)
		if projectID == "" {
			inv.stats.Skipped++
			continue
		}
		if report.Project(projectID) != nil {
			continue
		}

		project := inv.project(ctx, report, projectID)

		names, err := inv.rc.Lister.ListBuckets(ctx, projectID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			inv.discardInterrupted(report, project, true)
			return report, ctxErr
		}
		if err != nil {
			project.Error = toFetchError(err)
			inv.rc.Log.Warnf("Project %s: listing buckets failed (%s): %s", projectID, project.Error.Kind, project.Error.Message)
			continue
		}
		inv.rc.Log.Infof("Project %s: %d bucket(s)", projectID, len(names))

		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			inv.stats.Records++
			finding := inv.investigateBucket(ctx, projectID, name)
			if err := ctx.Err(); err != nil {
				inv.discardInterrupted(report, project, true)
				return report, err
			}
			project.Buckets = append(project.Buckets, finding)
			inv.stats.Buckets++
		}
	}

	return report, nil
}
