package policy

import "github.com/ppiankov/gcsspectre/internal/models"

// DefaultExposureRules lists the storage roles that grant object or bucket
// read access, each paired with the public principals.
var DefaultExposureRules = []models.ExposureRule{
	{Role: "roles/storage.objectViewer", Members: []string{models.PrincipalAllUsers, models.PrincipalAllAuthenticatedUsers}},
	{Role: "roles/storage.legacyBucketReader", Members: []string{models.PrincipalAllUsers, models.PrincipalAllAuthenticatedUsers}},
	{Role: "roles/storage.legacyBucketWriter", Members: []string{models.PrincipalAllUsers, models.PrincipalAllAuthenticatedUsers}},
}

// CopyRules returns a deep copy of rules.
func CopyRules(rules []models.ExposureRule) []models.ExposureRule {
	out := make([]models.ExposureRule, len(rules))
	for i, r := range rules {
		members := make([]string, len(r.Members))
		copy(members, r.Members)
		out[i] = models.ExposureRule{Role: r.Role, Members: members}
	}
	return out
}

// Classify returns the exposed subset of bindings. For every binding whose
// role appears in the table, only the members triggering any rule for that
// role are kept, and the binding is emitted once when at least one remains.
// Input order is preserved.
func Classify(bindings []models.IamBinding, rules []models.ExposureRule) []models.IamBinding {
	triggers := triggersByRole(rules)
	exposed := []models.IamBinding{}
	for _, b := range bindings {
		set, ok := triggers[b.Role]
		if !ok {
			continue
		}
		if members := matchingMembers(b.Members, set); len(members) > 0 {
			exposed = append(exposed, models.IamBinding{Role: b.Role, Members: members})
		}
	}
	return exposed
}

// triggersByRole merges the members of all rules sharing a role.
func triggersByRole(rules []models.ExposureRule) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(rules))
	for _, r := range rules {
		set := out[r.Role]
		if set == nil {
			set = make(map[string]bool, len(r.Members))
			out[r.Role] = set
		}
		for _, m := range r.Members {
			set[m] = true
		}
	}
	return out
}

func matchingMembers(members []string, triggers map[string]bool) []string {
	var out []string
	for _, m := range members {
		if triggers[m] {
			out = append(out, m)
		}
	}
	return out
}
