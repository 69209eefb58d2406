// Package investigator runs the per-record investigation of a listing and
// builds the ordered report.
package investigator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/logging"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/policy"
)

// BucketSource fetches the two independent views of a bucket.
type BucketSource interface {
	GetMetadata(ctx context.Context, bucket string) (*models.BucketMetadata, error)
	GetIAMPolicy(ctx context.Context, bucket string) ([]models.IamBinding, error)
}

// BucketLister enumerates the buckets of a project.
type BucketLister interface {
	ListBuckets(ctx context.Context, projectID string) ([]string, error)
}

// HierarchyResolver resolves the parent of a project.
type HierarchyResolver interface {
	Resolve(ctx context.Context, projectID string) models.Hierarchy
}

// RunContext carries the handles every step of a run needs.
type RunContext struct {
	Log       *logging.Logger
	Buckets   BucketSource
	Hierarchy HierarchyResolver
	// Lister is only needed for enumeration.
	Lister BucketLister
	// Rules defaults to policy.DefaultExposureRules when empty.
	Rules []models.ExposureRule
}

// Stats counts what the last investigation did.
type Stats struct {
	Records  int
	Skipped  int
	Projects int
	Buckets  int
}

// Investigator processes asset records strictly in order.
type Investigator struct {
	rc    RunContext
	rules []models.ExposureRule
	stats Stats
}

// New creates an investigator. The exposure rules are copied once here.
func New(rc RunContext) *Investigator {
	if rc.Log == nil {
		rc.Log = logging.Discard()
	}
	rules := rc.Rules
	if len(rules) == 0 {
		rules = policy.DefaultExposureRules
	}
	return &Investigator{rc: rc, rules: policy.CopyRules(rules)}
}

// Stats returns the counters of the last Investigate call.
func (inv *Investigator) Stats() Stats {
	return inv.stats
}

// Investigate processes records in order and returns the report. Per-entity
// failures are recorded in the report and never stop the run. If ctx is
// cancelled, the loop stops before the next record and the partial report is
// returned together with ctx.Err(). A fetch interrupted by the cancellation
// is not recorded.
func (inv *Investigator) Investigate(ctx context.Context, records []models.AssetRecord) (*models.InvestigationReport, error) {
	report := models.NewInvestigationReport()
	inv.stats = Stats{}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			inv.rc.Log.Warnf("Investigation cancelled after %d of %d records", inv.stats.Records, len(records))
			return report, err
		}
		inv.stats.Records++

		projectID := strings.TrimSpace(rec.ProjectID)
		assetID := strings.TrimSpace(rec.AssetID)
		if projectID == "" || assetID == "" {
			inv.stats.Skipped++
			inv.rc.Log.Warnf("Skipping row %d: missing project or asset (project=%q asset=%q)", rec.Line, rec.ProjectID, rec.AssetID)
			continue
		}

		isNew := report.Project(projectID) == nil
		project := inv.project(ctx, report, projectID)

		bucket := Normalize(assetID)
		inv.rc.Log.Debugf("Investigating %s/%s", projectID, bucket)
		finding := inv.investigateBucket(ctx, projectID, bucket)
		if err := ctx.Err(); err != nil {
			inv.discardInterrupted(report, project, isNew)
			inv.rc.Log.Warnf("Investigation cancelled during %s/%s", projectID, bucket)
			return report, err
		}
		project.Buckets = append(project.Buckets, finding)
		inv.stats.Buckets++
	}

	return report, nil
}

// project returns the entry for projectID, resolving its hierarchy the
// first time the project is seen.
func (inv *Investigator) project(ctx context.Context, report *models.InvestigationReport, projectID string) *models.ProjectResult {
	if p := report.Project(projectID); p != nil {
		return p
	}

	h := inv.rc.Hierarchy.Resolve(ctx, projectID)
	if h.Err != nil {
		inv.rc.Log.Warnf("Project %s: hierarchy lookup failed (%s): %s", projectID, h.Err.Kind, h.Err.Message)
	}

	inv.stats.Projects++
	return report.Add(&models.ProjectResult{
		ProjectID:      projectID,
		FolderID:       h.FolderID,
		OrganizationID: h.OrganizationID,
		HierarchyError: h.Err,
	})
}

func (inv *Investigator) investigateBucket(ctx context.Context, projectID, bucket string) models.BucketFinding {
	finding := models.BucketFinding{BucketName: bucket}

	meta, err := inv.rc.Buckets.GetMetadata(ctx, bucket)
	metaErr := toFetchError(err)

	bindings, err := inv.rc.Buckets.GetIAMPolicy(ctx, bucket)
	policyErr := toFetchError(err)

	switch {
	case metaErr != nil && policyErr != nil && metaErr.Kind == policyErr.Kind:
		finding.Err = mergeErrors(metaErr, policyErr)
		inv.rc.Log.Warnf("Bucket %s/%s: %s: %s", projectID, bucket, finding.Err.Kind.Label(), finding.Err.Message)
		return finding
	case metaErr != nil:
		finding.MetadataErr = metaErr
		inv.rc.Log.Warnf("Bucket %s/%s: metadata: %s: %s", projectID, bucket, metaErr.Kind.Label(), metaErr.Message)
	default:
		finding.Metadata = meta
	}

	if policyErr != nil {
		finding.PolicyErr = policyErr
		inv.rc.Log.Warnf("Bucket %s/%s: IAM policy: %s: %s", projectID, bucket, policyErr.Kind.Label(), policyErr.Message)
		return finding
	}

	finding.ExposedBindings = policy.Classify(bindings, inv.rules)
	if finding.Exposed() {
		inv.rc.Log.Infof("Bucket %s/%s is publicly readable (%d binding(s))", projectID, bucket, len(finding.ExposedBindings))
	}
	return finding
}

// discardInterrupted drops a project added for a record that was cut short,
// so its cancelled lookups do not show up as failures.
func (inv *Investigator) discardInterrupted(report *models.InvestigationReport, project *models.ProjectResult, isNew bool) {
	if isNew && len(project.Buckets) == 0 && project.Error == nil {
		report.Remove(project.ProjectID)
		inv.stats.Projects--
	}
}

func mergeErrors(meta, pol *models.FetchError) *models.FetchError {
	if meta.Message == pol.Message {
		return pol
	}
	return &models.FetchError{
		Kind:    pol.Kind,
		Message: fmt.Sprintf("metadata: %s; iam_policy: %s", meta.Message, pol.Message),
	}
}

// toFetchError narrows any collaborator error to a FetchError.
func toFetchError(err error) *models.FetchError {
	if err == nil {
		return nil
	}
	var fe *models.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &models.FetchError{Kind: models.ErrorKindTransient, Message: err.Error()}
}
