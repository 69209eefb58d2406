package investigator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// GenerateRecommendations turns the findings of a report into prioritized
// actions, most urgent first.
func GenerateRecommendations(report *models.InvestigationReport) []models.Recommendation {
	var recs []models.Recommendation

	for _, p := range report.Projects() {
		if p.HierarchyError != nil {
			recs = append(recs, errorRecommendation(p.ProjectID, "", "resolve the parent of", p.HierarchyError))
		}
		if p.Error != nil {
			recs = append(recs, errorRecommendation(p.ProjectID, "", "list the buckets of", p.Error))
		}

		for _, b := range p.Buckets {
			if b.Err != nil {
				recs = append(recs, errorRecommendation(p.ProjectID, b.BucketName, "read", b.Err))
				continue
			}
			if b.PolicyErr != nil {
				recs = append(recs, errorRecommendation(p.ProjectID, b.BucketName, "read the IAM policy of", b.PolicyErr))
			}
			if b.MetadataErr != nil {
				recs = append(recs, errorRecommendation(p.ProjectID, b.BucketName, "read the metadata of", b.MetadataErr))
			}
			if b.Exposed() {
				recs = append(recs, exposureRecommendations(p.ProjectID, b)...)
			}
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		pi, pj := severityPriority(recs[i].Severity), severityPriority(recs[j].Severity)
		if pi != pj {
			return pi > pj
		}
		if recs[i].Project != recs[j].Project {
			return recs[i].Project < recs[j].Project
		}
		return recs[i].Bucket < recs[j].Bucket
	})

	return recs
}

func exposureRecommendations(projectID string, b models.BucketFinding) []models.Recommendation {
	var recs []models.Recommendation
	url := "gs://" + b.BucketName

	principals := exposedPrincipals(b.ExposedBindings)
	roles := exposedRoles(b.ExposedBindings)

	switch {
	case principals[models.PrincipalAllUsers]:
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityCritical,
			Project:  projectID,
			Bucket:   b.BucketName,
			Action:   fmt.Sprintf("Remove %s from %s on %s", models.PrincipalAllUsers, strings.Join(roles, ", "), url),
			Impact:   "Objects are readable by anyone on the internet",
		})
	case principals[models.PrincipalAllAuthenticatedUsers]:
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityHigh,
			Project:  projectID,
			Bucket:   b.BucketName,
			Action:   fmt.Sprintf("Remove %s from %s on %s", models.PrincipalAllAuthenticatedUsers, strings.Join(roles, ", "), url),
			Impact:   "Objects are readable by any signed-in Google account",
		})
	default:
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityHigh,
			Project:  projectID,
			Bucket:   b.BucketName,
			Action:   fmt.Sprintf("Review %s bindings on %s", strings.Join(roles, ", "), url),
			Impact:   "Bindings match a configured exposure rule",
		})
	}

	if b.Metadata == nil {
		return recs
	}
	if b.Metadata.PublicAccessPrevention != "enforced" {
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityMedium,
			Project:  projectID,
			Bucket:   b.BucketName,
			Action:   fmt.Sprintf("Enforce public access prevention on %s", url),
			Impact:   "Public grants can be re-added without any guard",
		})
	}
	if !b.Metadata.UniformBucketLevelAccess {
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityLow,
			Project:  projectID,
			Bucket:   b.BucketName,
			Action:   fmt.Sprintf("Enable uniform bucket-level access on %s", url),
			Impact:   "Object ACLs may grant access that IAM does not show",
		})
	}
	return recs
}

func errorRecommendation(projectID, bucket, what string, fe *models.FetchError) models.Recommendation {
	target := "project " + projectID
	if bucket != "" {
		target = "gs://" + bucket
	}

	rec := models.Recommendation{
		Severity: models.SeverityMedium,
		Project:  projectID,
		Bucket:   bucket,
	}
	switch fe.Kind {
	case models.ErrorKindAccessDenied:
		rec.Action = fmt.Sprintf("Grant the scanning identity permission to %s %s", what, target)
		rec.Impact = "Exposure cannot be assessed without read access"
	case models.ErrorKindNotFound:
		rec.Action = fmt.Sprintf("Remove %s from the listing or fix its name", target)
		rec.Impact = "The listing references a resource that does not exist"
	case models.ErrorKindValidation:
		rec.Action = fmt.Sprintf("Check the data returned for %s", target)
		rec.Impact = "The response could not be interpreted"
	default:
		rec.Action = fmt.Sprintf("Re-run the investigation for %s", target)
		rec.Impact = "A transient failure left the result incomplete"
	}
	return rec
}

func exposedPrincipals(bindings []models.IamBinding) map[string]bool {
	out := make(map[string]bool)
	for _, b := range bindings {
		for _, m := range b.Members {
			out[m] = true
		}
	}
	return out
}

func exposedRoles(bindings []models.IamBinding) []string {
	var roles []string
	seen := make(map[string]bool)
	for _, b := range bindings {
		if !seen[b.Role] {
			seen[b.Role] = true
			roles = append(roles, b.Role)
		}
	}
	return roles
}

// severityPriority returns numeric priority for sorting (higher = more urgent)
func severityPriority(severity string) int {
	switch severity {
	case models.SeverityCritical:
		return 4
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	case models.SeverityLow:
		return 1
	default:
		return 0
	}
}

// TopRecommendations returns the first n recommendations.
func TopRecommendations(recs []models.Recommendation, n int) []models.Recommendation {
	if n >= len(recs) {
		return recs
	}
	return recs[:n]
}
