package table

import (
	"testing"
)

func TestUniqueName(t *testing.T) {
	tests := []struct {
		name     string
		taken    []string
		base     string
		expected string
	}{
		{name: "free name", taken: []string{"a"}, base: "Image", expected: "Image"},
		{name: "taken once", taken: []string{"Image"}, base: "Image", expected: "Image (#1)"},
		{name: "taken twice", taken: []string{"Image", "Image (#1)"}, base: "Image", expected: "Image (#2)"},
		{name: "gap is reused", taken: []string{"Image", "Image (#2)"}, base: "Image", expected: "Image (#1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := make(map[string]struct{})
			for _, n := range tt.taken {
				taken[n] = struct{}{}
			}
			if got := UniqueName(taken, tt.base); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	_, err := NewSchema(Column{Name: "a", Type: TypeString}, Column{Name: "a", Type: TypeURI})
	if err == nil {
		t.Error("Expected error for duplicate column names, got nil")
	}
}

func TestLooksLikeURI(t *testing.T) {
	tests := map[string]bool{
		"https://example.org/a.png": true,
		"s3://bucket/key.tif":       true,
		"gs://bucket/object.jpg":    true,
		"file:///tmp/a.png":         true,
		"/tmp/a.png":                true,
		"images/a.png":              false,
		"":                          false,
		"Note: hello":               false,
		"42":                        false,
	}
	for in, expected := range tests {
		if got := LooksLikeURI(in); got != expected {
			t.Errorf("LooksLikeURI(%q): expected %v, got %v", in, expected, got)
		}
	}
}

func TestInferURIColumns(t *testing.T) {
	tbl := New(Schema{Columns: []Column{
		{Name: "id", Type: TypeString},
		{Name: "path", Type: TypeString},
		{Name: "empty", Type: TypeString},
	}})
	rows := []Row{
		{Key: "Row0", Cells: []Cell{{Value: "1"}, {Value: "https://example.org/a.png"}, {}}},
		{Key: "Row1", Cells: []Cell{{Value: "2"}, {Value: ""}, {}}},
		{Key: "Row2", Cells: []Cell{{Value: "3"}, {Value: "/data/b.tif"}, {}}},
	}
	for _, r := range rows {
		if err := tbl.Append(r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	InferURIColumns(tbl, 0)

	want := []Type{TypeString, TypeURI, TypeString}
	for i, c := range tbl.Schema.Columns {
		if c.Type != want[i] {
			t.Errorf("Column %s: expected type %s, got %s", c.Name, want[i], c.Type)
		}
	}
}

func TestAppendChecksWidth(t *testing.T) {
	tbl := New(Schema{Columns: []Column{{Name: "a", Type: TypeString}}})
	if err := tbl.Append(Row{Key: "Row0"}); err == nil {
		t.Error("Expected width error, got nil")
	}
}
