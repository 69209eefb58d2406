package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/resourcemanager/apiv3/resourcemanagerpb"

	"github.com/ppiankov/gcsspectre/internal/models"
)

// GetParent returns the direct parent of a project.
func (c *Client) GetParent(ctx context.Context, projectID string) (models.Parent, error) {
	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return models.Parent{}, asError(ToFetchError(err))
	}
	defer cancel()

	project, err := c.projects.GetProject(callCtx, &resourcemanagerpb.GetProjectRequest{
		Name: "projects/" + projectID,
	})
	if err != nil {
		return models.Parent{}, asError(ToFetchError(err))
	}

	parent, err := parseParent(project.GetParent())
	if err != nil {
		return models.Parent{}, asError(models.NewFetchError(models.ErrorKindValidation, "project %s: %v", projectID, err))
	}
	return parent, nil
}

// parseParent splits a "folders/X" or "organizations/X" resource name.
func parseParent(name string) (models.Parent, error) {
	kind, id, ok := strings.Cut(name, "/")
	if !ok || id == "" {
		return models.Parent{}, fmt.Errorf("unexpected parent %q", name)
	}
	switch kind {
	case "folders":
		return models.Parent{Kind: models.ParentFolder, ID: id}, nil
	case "organizations":
		return models.Parent{Kind: models.ParentOrganization, ID: id}, nil
	default:
		return models.Parent{}, fmt.Errorf("unexpected parent %q", name)
	}
}
