package table

import (
	"net/url"
	"path/filepath"
	"strings"
)

// LooksLikeURI reports whether a string value is a plausible resource
// reference: an absolute URL with a scheme, a file: URI, or an absolute path.
func LooksLikeURI(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if filepath.IsAbs(s) {
		return true
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	// Windows drive letters parse as a one-letter scheme
	if len(u.Scheme) == 1 {
		return false
	}
	return u.Scheme == "file" || u.Host != ""
}

// InferURIColumns retypes string columns as URI columns when every
// non-empty value in the first sample rows looks like a URI. Columns with
// no non-empty values in the sample keep their type.
func InferURIColumns(t *Table, sample int) {
	if sample <= 0 || sample > len(t.Rows) {
		sample = len(t.Rows)
	}
	for i, col := range t.Schema.Columns {
		if col.Type != TypeString {
			continue
		}
		seen := 0
		all := true
		for _, row := range t.Rows[:sample] {
			s, ok := row.Cells[i].Value.(string)
			if !ok || s == "" {
				continue
			}
			seen++
			if !LooksLikeURI(s) {
				all = false
				break
			}
		}
		if seen > 0 && all {
			t.Schema.Columns[i].Type = TypeURI
		}
	}
}
