package collector

import (
	"fmt"
	"strings"
)

// Accepted header names per column, compared case-insensitively.
var (
	projectColumns = []string{"project_id", "project", "account_id", "account", "project name/id"}
	assetColumns   = []string{"asset_id", "asset", "bucket", "bucket_name", "bucket name"}
)

// SchemaError reports a listing whose header lacks a required column.
type SchemaError struct {
	Path    string
	Missing string
	Header  []string
}

func (e *SchemaError) Error() string {
	where := ""
	if e.Path != "" {
		where = e.Path + ": "
	}
	return fmt.Sprintf("%smissing required column %q (header: %s)", where, e.Missing, strings.Join(e.Header, ", "))
}

// columns holds the indexes of the recognised columns, -1 when absent.
type columns struct {
	project int
	asset   int
}

// detectColumns finds the project and asset columns of a header row.
func detectColumns(header []string) columns {
	cols := columns{project: -1, asset: -1}
	for i, name := range header {
		key := normalizeHeader(name)
		if cols.project < 0 && contains(projectColumns, key) {
			cols.project = i
		}
		if cols.asset < 0 && contains(assetColumns, key) {
			cols.asset = i
		}
	}
	return cols
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
