package investigator

import (
	"context"
	"sync"

	"github.com/ppiankov/gcsspectre/internal/hierarchy"
	"github.com/ppiankov/gcsspectre/internal/models"
)

type fakeBuckets struct {
	metadata    map[string]*models.BucketMetadata
	metadataErr map[string]error
	policies    map[string][]models.IamBinding
	policyErr   map[string]error
	buckets     map[string][]string
	listErr     map[string]error

	// onCall runs after each call is recorded.
	onCall func(call string)

	mu    sync.Mutex
	calls []string
}

func newFakeBuckets() *fakeBuckets {
	return &fakeBuckets{
		metadata:    make(map[string]*models.BucketMetadata),
		metadataErr: make(map[string]error),
		policies:    make(map[string][]models.IamBinding),
		policyErr:   make(map[string]error),
		buckets:     make(map[string][]string),
		listErr:     make(map[string]error),
	}
}

func (f *fakeBuckets) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.onCall != nil {
		f.onCall(call)
	}
}

func (f *fakeBuckets) GetMetadata(_ context.Context, bucket string) (*models.BucketMetadata, error) {
	f.record("metadata:" + bucket)
	if err, ok := f.metadataErr[bucket]; ok {
		return nil, err
	}
	if m, ok := f.metadata[bucket]; ok {
		return m, nil
	}
	return &models.BucketMetadata{StorageClass: "STANDARD", LocationType: "region", PublicAccessPrevention: "inherited"}, nil
}

func (f *fakeBuckets) GetIAMPolicy(_ context.Context, bucket string) ([]models.IamBinding, error) {
	f.record("policy:" + bucket)
	if err, ok := f.policyErr[bucket]; ok {
		return nil, err
	}
	return f.policies[bucket], nil
}

func (f *fakeBuckets) ListBuckets(_ context.Context, projectID string) ([]string, error) {
	f.record("list:" + projectID)
	if err, ok := f.listErr[projectID]; ok {
		return nil, err
	}
	return f.buckets[projectID], nil
}

type fakeParents struct {
	mu      sync.Mutex
	calls   map[string]int
	parents map[string]models.Parent
	errs    map[string]error
}

func newFakeParents() *fakeParents {
	return &fakeParents{
		calls:   make(map[string]int),
		parents: make(map[string]models.Parent),
		errs:    make(map[string]error),
	}
}

func (f *fakeParents) GetParent(_ context.Context, projectID string) (models.Parent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[projectID]++
	if err, ok := f.errs[projectID]; ok {
		return models.Parent{}, err
	}
	if p, ok := f.parents[projectID]; ok {
		return p, nil
	}
	return models.Parent{Kind: models.ParentFolder, ID: "100"}, nil
}

func newTestInvestigator(buckets *fakeBuckets, parents *fakeParents) *Investigator {
	return New(RunContext{
		Buckets:   buckets,
		Lister:    buckets,
		Hierarchy: hierarchy.NewResolver(parents),
	})
}

func newResolver(parents *fakeParents) *hierarchy.Resolver {
	return hierarchy.NewResolver(parents)
}
