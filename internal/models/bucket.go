package models

// Well-known public principals.
const (
	PrincipalAllUsers              = "allUsers"
	PrincipalAllAuthenticatedUsers = "allAuthenticatedUsers"
)

// AssetRecord is one row of an input listing.
type AssetRecord struct {
	ProjectID string `json:"project_id"`
	AssetID   string `json:"asset_id"`
	// Line is the 1-based data row the record came from (0 when synthesized).
	Line int `json:"-"`
}

// IamBinding maps one role to the principals granted it.
type IamBinding struct {
	Role    string   `json:"role" yaml:"role"`
	Members []string `json:"members" yaml:"members"`
}

// ExposureRule is a role together with the principals that make a binding
// of that role overly permissive.
type ExposureRule struct {
	Role    string   `json:"role" yaml:"role"`
	Members []string `json:"members" yaml:"members"`
}

// BucketMetadata is a descriptive snapshot of a bucket's configuration.
type BucketMetadata struct {
	StorageClass             string `json:"storage_class"`
	Location                 string `json:"location,omitempty"`
	LocationType             string `json:"location_type"`
	PublicAccessPrevention   string `json:"public_access_prevention"`
	UniformBucketLevelAccess bool   `json:"uniform_bucket_level_access"`
}

// BucketFinding is the outcome of investigating one bucket.
//
// Metadata and IAM policy are fetched independently, so each side carries
// either a value or its own error. Err is set instead of both sides when the
// bucket could not be investigated at all.
type BucketFinding struct {
	BucketName string

	Metadata    *BucketMetadata
	MetadataErr *FetchError

	ExposedBindings []IamBinding
	PolicyErr       *FetchError

	Err *FetchError
}

// Exposed reports whether any exposed binding was found.
func (f BucketFinding) Exposed() bool {
	return len(f.ExposedBindings) > 0
}

// HasError reports whether any part of the finding failed.
func (f BucketFinding) HasError() bool {
	return f.Err != nil || f.MetadataErr != nil || f.PolicyErr != nil
}

// PolicyError returns the error that prevented classification, if any.
func (f BucketFinding) PolicyError() *FetchError {
	if f.Err != nil {
		return f.Err
	}
	return f.PolicyErr
}

// ProjectResult aggregates the findings of one project.
type ProjectResult struct {
	ProjectID      string
	FolderID       *string
	OrganizationID *string
	// HierarchyError annotates a failed folder/organization lookup.
	HierarchyError *FetchError
	// Error is set when the project's buckets could not be enumerated.
	Error   *FetchError
	Buckets []BucketFinding
}

// ParentKind is the type of resource owning a project.
type ParentKind string

const (
	ParentFolder       ParentKind = "folder"
	ParentOrganization ParentKind = "organization"
)

// Parent is the direct parent reference of a project.
type Parent struct {
	Kind ParentKind
	ID   string
}

// Hierarchy is the resolved folder/organization of a project.
// At most one of FolderID and OrganizationID is set.
type Hierarchy struct {
	FolderID       *string
	OrganizationID *string
	Err            *FetchError
}

// ExposureMatch is the consistency flag of a summary row.
type ExposureMatch string

const (
	ExposureMatchYes         ExposureMatch = "Yes"
	ExposureMatchNo          ExposureMatch = "No"
	ExposureMatchDiscrepancy ExposureMatch = "Discrepancy"
)

// SummaryRow is one flattened, human-readable line of the summary.
type SummaryRow struct {
	FolderID      string        `json:"folder_id"`
	ProjectID     string        `json:"project_id"`
	BucketName    string        `json:"bucket_name"`
	Permissions   string        `json:"permissions"`
	ExposureMatch ExposureMatch `json:"exposure_match"`
}
