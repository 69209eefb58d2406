package gcp

import (
	"context"

	"cloud.google.com/go/iam"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// GetMetadata fetches the bucket's attributes.
func (c *Client) GetMetadata(ctx context.Context, bucket string) (*models.BucketMetadata, error) {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, asError(ToFetchError(err))
	}
	defer cancel()

	attrs, err := c.storage.Bucket(bucket).Attrs(callCtx)
	if err != nil {
		return nil, asError(ToFetchError(err))
	}
	return metadataFromAttrs(attrs), nil
}

// GetIAMPolicy fetches the bucket's IAM bindings, conditional ones included,
// in the order the service returns them.
func (c *Client) GetIAMPolicy(ctx context.Context, bucket string) ([]models.IamBinding, error) {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, asError(ToFetchError(err))
	}
	defer cancel()

	policy, err := c.storage.Bucket(bucket).IAM().V3().Policy(callCtx)
	if err != nil {
		return nil, asError(ToFetchError(err))
	}
	return bindingsFromPolicy(policy), nil
}

// ListBuckets returns the names of all buckets in a project.
func (c *Client) ListBuckets(ctx context.Context, projectID string) ([]string, error) {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, asError(ToFetchError(err))
	}
	defer cancel()

	var names []string
	it := c.storage.Buckets(callCtx, projectID)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, asError(ToFetchError(err))
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func metadataFromAttrs(attrs *storage.BucketAttrs) *models.BucketMetadata {
	return &models.BucketMetadata{
		StorageClass:             attrs.StorageClass,
		Location:                 attrs.Location,
		LocationType:             attrs.LocationType,
		PublicAccessPrevention:   publicAccessPrevention(attrs.PublicAccessPrevention),
		UniformBucketLevelAccess: attrs.UniformBucketLevelAccess.Enabled,
	}
}

func publicAccessPrevention(pap storage.PublicAccessPrevention) string {
	switch pap {
	case storage.PublicAccessPreventionEnforced:
		return "enforced"
	case storage.PublicAccessPreventionInherited:
		return "inherited"
	default:
		return "unspecified"
	}
}

func bindingsFromPolicy(policy *iam.Policy3) []models.IamBinding {
	if policy == nil {
		return nil
	}
	bindings := make([]models.IamBinding, 0, len(policy.Bindings))
	for _, b := range policy.Bindings {
		if b == nil {
			continue
		}
		members := make([]string, len(b.Members))
		copy(members, b.Members)
		bindings = append(bindings, models.IamBinding{Role: b.Role, Members: members})
	}
	return bindings
}
