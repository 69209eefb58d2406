// Package hierarchy resolves the folder or organization owning a project.
package hierarchy

import (
	"context"
	"errors"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// Source looks up the direct parent of a project.
type Source interface {
	GetParent(ctx context.Context, projectID string) (models.Parent, error)
}

// Resolver memoizes parent lookups per project for the lifetime of a run.
// Failed lookups are cached too, so the source sees each project at most once.
type Resolver struct {
	source Source
	cache  *cache.Cache
}

// NewResolver creates a resolver whose entries never expire.
func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		cache:  cache.New(cache.NoExpiration, 0),
	}
}

func cacheKey(projectID string) string {
	return strings.Join([]string{"parent", projectID}, "-")
}

// Resolve returns the hierarchy of projectID. On failure both ids are nil and
// Err describes the failure.
func (r *Resolver) Resolve(ctx context.Context, projectID string) models.Hierarchy {
	key := cacheKey(projectID)
	if v, ok := r.cache.Get(key); ok {
		return v.(models.Hierarchy)
	}

	h := r.lookup(ctx, projectID)
	r.cache.Set(key, h, cache.NoExpiration)
	return h
}

// Len returns the number of memoized projects.
func (r *Resolver) Len() int {
	return r.cache.ItemCount()
}

func (r *Resolver) lookup(ctx context.Context, projectID string) models.Hierarchy {
	parent, err := r.source.GetParent(ctx, projectID)
	if err != nil {
		return models.Hierarchy{Err: toFetchError(err)}
	}

	id := parent.ID
	switch parent.Kind {
	case models.ParentFolder:
		return models.Hierarchy{FolderID: &id}
	case models.ParentOrganization:
		return models.Hierarchy{OrganizationID: &id}
	default:
		return models.Hierarchy{Err: models.NewFetchError(models.ErrorKindValidation,
			"project %s has unsupported parent kind %q", projectID, parent.Kind)}
	}
}

func toFetchError(err error) *models.FetchError {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &models.FetchError{Kind: models.ErrorKindTransient, Message: err.Error()}
}
