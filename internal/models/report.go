package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InvestigationReport maps project ids to their results, remembering the
// order in which projects were first seen.
type InvestigationReport struct {
	order    []string
	projects map[string]*ProjectResult
}

// NewInvestigationReport creates an empty report.
func NewInvestigationReport() *InvestigationReport {
	return &InvestigationReport{projects: make(map[string]*ProjectResult)}
}

// Project returns the result for projectID, or nil if it is not in the report.
func (r *InvestigationReport) Project(projectID string) *ProjectResult {
	if r == nil || r.projects == nil {
		return nil
	}
	return r.projects[projectID]
}

// Add inserts p unless a result for the same project exists already, and
// returns the result that is stored in the report.
func (r *InvestigationReport) Add(p *ProjectResult) *ProjectResult {
	if r.projects == nil {
		r.projects = make(map[string]*ProjectResult)
	}
	if existing, ok := r.projects[p.ProjectID]; ok {
		return existing
	}
	r.projects[p.ProjectID] = p
	r.order = append(r.order, p.ProjectID)
	return p
}

// Remove drops the result for projectID, if any.
func (r *InvestigationReport) Remove(projectID string) {
	if r == nil || r.projects[projectID] == nil {
		return
	}
	delete(r.projects, projectID)
	for i, id := range r.order {
		if id == projectID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Projects returns the project results in first-seen order.
func (r *InvestigationReport) Projects() []*ProjectResult {
	if r == nil {
		return nil
	}
	out := make([]*ProjectResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.projects[id])
	}
	return out
}

// Len returns the number of projects.
func (r *InvestigationReport) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// MarshalJSON writes the projects as a JSON object in first-seen order.
func (r *InvestigationReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r.Projects() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.ProjectID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ProjectID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a project object, keeping the key order of the document.
func (r *InvestigationReport) UnmarshalJSON(data []byte) error {
	r.order = nil
	r.projects = make(map[string]*ProjectResult)

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("investigation report must be a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		projectID, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}

		var p ProjectResult
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("project %s: %w", projectID, err)
		}
		p.ProjectID = projectID
		r.Add(&p)
	}

	_, err = dec.Token()
	return err
}

type projectResultJSON struct {
	FolderID           *string         `json:"folder_id"`
	OrganizationID     *string         `json:"organization_id"`
	HierarchyError     string          `json:"hierarchy_error,omitempty"`
	HierarchyErrorKind ErrorKind       `json:"hierarchy_error_kind,omitempty"`
	Error              string          `json:"error,omitempty"`
	ErrorKind          ErrorKind       `json:"error_kind,omitempty"`
	Buckets            []BucketFinding `json:"buckets"`
}

// MarshalJSON renders the result without its project id, which is the key
// of the enclosing report object.
func (p ProjectResult) MarshalJSON() ([]byte, error) {
	out := projectResultJSON{
		FolderID:       p.FolderID,
		OrganizationID: p.OrganizationID,
		Buckets:        p.Buckets,
	}
	out.HierarchyError, out.HierarchyErrorKind = errorFields(p.HierarchyError)
	out.Error, out.ErrorKind = errorFields(p.Error)
	if out.Buckets == nil {
		out.Buckets = []BucketFinding{}
	}
	return json.Marshal(out)
}

func (p *ProjectResult) UnmarshalJSON(data []byte) error {
	var in projectResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = ProjectResult{
		ProjectID:      p.ProjectID,
		FolderID:       in.FolderID,
		OrganizationID: in.OrganizationID,
		HierarchyError: fetchErrorFromFields(in.HierarchyError, in.HierarchyErrorKind),
		Error:          fetchErrorFromFields(in.Error, in.ErrorKind),
		Buckets:        in.Buckets,
	}
	return nil
}

type bucketFindingJSON struct {
	BucketName string             `json:"bucket_name"`
	Details    *bucketDetailsJSON `json:"details,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorKind  ErrorKind          `json:"error_kind,omitempty"`
}

type bucketDetailsJSON struct {
	Metadata  metadataJSON  `json:"metadata"`
	IAMPolicy iamPolicyJSON `json:"iam_policy"`
}

type metadataJSON struct {
	*BucketMetadata
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

type iamPolicyJSON struct {
	ExposedBindings *[]IamBinding `json:"exposed_bindings,omitempty"`
	Error           string        `json:"error,omitempty"`
	ErrorKind       ErrorKind     `json:"error_kind,omitempty"`
}

// MarshalJSON renders either the details of the bucket or its error.
func (f BucketFinding) MarshalJSON() ([]byte, error) {
	out := bucketFindingJSON{BucketName: f.BucketName}
	if f.Err != nil {
		out.Error, out.ErrorKind = errorFields(f.Err)
		return json.Marshal(out)
	}

	details := &bucketDetailsJSON{}
	if f.MetadataErr != nil {
		details.Metadata.Error, details.Metadata.ErrorKind = errorFields(f.MetadataErr)
	} else {
		details.Metadata.BucketMetadata = f.Metadata
		if details.Metadata.BucketMetadata == nil {
			details.Metadata.BucketMetadata = &BucketMetadata{}
		}
	}
	if f.PolicyErr != nil {
		details.IAMPolicy.Error, details.IAMPolicy.ErrorKind = errorFields(f.PolicyErr)
	} else {
		bindings := f.ExposedBindings
		if bindings == nil {
			bindings = []IamBinding{}
		}
		details.IAMPolicy.ExposedBindings = &bindings
	}
	out.Details = details
	return json.Marshal(out)
}

func (f *BucketFinding) UnmarshalJSON(data []byte) error {
	var in bucketFindingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*f = BucketFinding{
		BucketName: in.BucketName,
		Err:        fetchErrorFromFields(in.Error, in.ErrorKind),
	}
	if in.Details == nil {
		return nil
	}
	f.Metadata = in.Details.Metadata.BucketMetadata
	f.MetadataErr = fetchErrorFromFields(in.Details.Metadata.Error, in.Details.Metadata.ErrorKind)
	f.PolicyErr = fetchErrorFromFields(in.Details.IAMPolicy.Error, in.Details.IAMPolicy.ErrorKind)
	if in.Details.IAMPolicy.ExposedBindings != nil {
		f.ExposedBindings = *in.Details.IAMPolicy.ExposedBindings
	}
	return nil
}

func errorFields(e *FetchError) (string, ErrorKind) {
	if e == nil {
		return "", ""
	}
	return e.Message, e.Kind
}

func fetchErrorFromFields(msg string, kind ErrorKind) *FetchError {
	if msg == "" && kind == "" {
		return nil
	}
	if kind == "" {
		kind = ErrorKindTransient
	}
	return &FetchError{Kind: kind, Message: msg}
}
