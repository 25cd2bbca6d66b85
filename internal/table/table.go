package table

import (
	"fmt"
	"image"
	"strings"
)

// Type identifies the kind of values a column holds
type Type string

const (
	TypeString   Type = "string"
	TypeURI      Type = "uri"
	TypeInt      Type = "int"
	TypeFloat    Type = "float"
	TypeBool     Type = "bool"
	TypeImage    Type = "image"
	TypeMetadata Type = "metadata"
)

// Column is a named, typed column of a table
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`
}

// Schema is an ordered set of uniquely named columns
type Schema struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// NewSchema returns a schema with the given columns, rejecting duplicate names
func NewSchema(columns ...Column) (Schema, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := seen[c.Name]; ok {
			return Schema{}, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return Schema{Columns: append([]Column(nil), columns...)}, nil
}

// Len returns the number of columns
func (s Schema) Len() int {
	return len(s.Columns)
}

// Index returns the position of the named column or -1
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Contains reports whether a column with the given name exists
func (s Schema) Contains(name string) bool {
	return s.Index(name) >= 0
}

// Names returns the column names in order
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// IndicesOf returns the positions of all columns with the given type
func (s Schema) IndicesOf(t Type) []int {
	var idx []int
	for i, c := range s.Columns {
		if c.Type == t {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = fmt.Sprintf("%s:%s", c.Name, c.Type)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// UniqueName returns base if no column in taken uses it, otherwise the
// first of "base (#1)", "base (#2)", ... that is free.
func UniqueName(taken map[string]struct{}, base string) string {
	if _, ok := taken[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (#%d)", base, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// ImageValue is the content of an image cell
type ImageValue struct {
	Image  image.Image
	Format string
}

// Cell holds a single value. A nil Value is a missing cell.
type Cell struct {
	Value any
}

// IsMissing reports whether the cell carries no value
func (c Cell) IsMissing() bool {
	return c.Value == nil
}

// String renders the cell as text. Image cells render as a short summary.
func (c Cell) String() string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *ImageValue:
		b := v.Image.Bounds()
		return fmt.Sprintf("%s image %dx%d", v.Format, b.Dx(), b.Dy())
	default:
		return fmt.Sprint(v)
	}
}

// Row is a keyed row of cells
type Row struct {
	Key   string
	Cells []Cell
}

// Table is an in-memory table
type Table struct {
	Schema Schema
	Rows   []Row
}

// New creates an empty table with the given schema
func New(schema Schema) *Table {
	return &Table{Schema: schema}
}

// Append adds a row, checking that it matches the schema width
func (t *Table) Append(row Row) error {
	if len(row.Cells) != t.Schema.Len() {
		return fmt.Errorf("row %q has %d cells, schema has %d columns", row.Key, len(row.Cells), t.Schema.Len())
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// NumRows returns the number of rows
func (t *Table) NumRows() int {
	return len(t.Rows)
}
