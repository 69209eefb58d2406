package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/gcsspectre/internal/logging"
	"github.com/ppiankov/gcsspectre/internal/models"
	"github.com/ppiankov/gcsspectre/internal/policy"
)

func TestPrintRulesDefault(t *testing.T) {
	var sb strings.Builder
	if err := printRules(&sb, policy.DefaultExposureRules, false, "text"); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	if !strings.HasPrefix(out, "Exposure rules (default):\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	for _, role := range []string{"roles/storage.objectViewer", "roles/storage.legacyBucketReader", "roles/storage.legacyBucketWriter"} {
		if !strings.Contains(out, role) {
			t.Errorf("missing %s:\n%s", role, out)
		}
	}
	if !strings.Contains(out, "allUsers, allAuthenticatedUsers") {
		t.Errorf("expected members joined:\n%s", out)
	}
}

func TestPrintRulesSource(t *testing.T) {
	custom := []models.ExposureRule{{Role: "roles/storage.objectAdmin", Members: []string{"allUsers"}}}

	tests := []struct {
		name       string
		rules      []models.ExposureRule
		fromPolicy bool
		want       string
	}{
		{"no policy", policy.DefaultExposureRules, false, "(default)"},
		{"policy without table", policy.DefaultExposureRules, true, "(default)"},
		{"policy table", custom, true, "(policy)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if err := printRules(&sb, tt.rules, tt.fromPolicy, "text"); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(sb.String(), tt.want) {
				t.Errorf("output = %q, want %s", sb.String(), tt.want)
			}
		})
	}
}

func TestPrintRulesJSON(t *testing.T) {
	var sb strings.Builder
	if err := printRules(&sb, policy.DefaultExposureRules, false, "json"); err != nil {
		t.Fatal(err)
	}

	var rules []models.ExposureRule
	if err := json.Unmarshal([]byte(sb.String()), &rules); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !sameRules(rules, policy.DefaultExposureRules) {
		t.Errorf("round trip changed rules: %+v", rules)
	}

	if err := printRules(&strings.Builder{}, rules, false, "yaml"); HandleError(err) != ExitInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestSameRules(t *testing.T) {
	a := []models.ExposureRule{{Role: "r", Members: []string{"allUsers"}}}
	b := []models.ExposureRule{{Role: "r", Members: []string{"allAuthenticatedUsers"}}}
	if !sameRules(a, a) {
		t.Error("identical tables differ")
	}
	if sameRules(a, b) || sameRules(a, nil) {
		t.Error("different tables compare equal")
	}
}

func TestRunRulesWithPolicy(t *testing.T) {
	t.Chdir(t.TempDir())
	withTestConfig(t, testConfig(t))
	withTestLogger(t, logging.Options{})

	path := filepath.Join(t.TempDir(), "strict.yaml")
	content := "exposure_rules:\n  - role: roles/storage.objectAdmin\n    members: [allUsers]\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	oldF, oldP := rulesFormat, rulesPolicy
	t.Cleanup(func() { rulesFormat, rulesPolicy = oldF, oldP })
	rulesFormat, rulesPolicy = "text", path

	var err error
	out := captureStdout(t, func() { err = runRules(rulesCmd, nil) })
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Exposure rules (policy):") || !strings.Contains(out, "roles/storage.objectAdmin") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "legacyBucketReader") {
		t.Errorf("policy table should replace the defaults:\n%s", out)
	}
}
