// Package schema computes the output table layout of a read from the input
// schema and the read settings.
package schema

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/imgreader/internal/settings"
	"github.com/lehigh-university-libraries/imgreader/internal/table"
)

// Base names of the generated columns
const (
	ImageColumn        = "Image"
	MetadataColumn     = "Metadata"
	SeriesNumberColumn = "Series Number"
)

var (
	ErrNoOutputColumnsSelected = errors.New("no output columns selected")
	ErrNoURIColumn             = errors.New("no URI column")
)

// Kind is the role of a column in the output table
type Kind int

const (
	// Copied columns come unchanged from the input table
	Copied Kind = iota
	Image
	Metadata
	SeriesNumber
)

func (k Kind) String() string {
	switch k {
	case Copied:
		return "copied"
	case Image:
		return "image"
	case Metadata:
		return "metadata"
	case SeriesNumber:
		return "series_number"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// New marks a planned column that has no source column in the input
const New = -1

// PlannedColumn describes one output column. Source is the input column
// the value is copied from (Copied) or whose slot it takes (Replace), or
// New for columns appended after the input.
type PlannedColumn struct {
	Name   string     `json:"name" yaml:"name"`
	Type   table.Type `json:"type" yaml:"type"`
	Kind   Kind       `json:"kind" yaml:"kind"`
	Source int        `json:"source" yaml:"source"`
}

// Plan is the precomputed output layout. It is built once per table and
// only read afterwards.
type Plan struct {
	Columns      []PlannedColumn `json:"columns" yaml:"columns"`
	URIColumn    int             `json:"uri_column" yaml:"uri_column"`
	ImageIndex   int             `json:"image_index" yaml:"image_index"`
	MetaIndex    int             `json:"metadata_index" yaml:"metadata_index"`
	SeriesIndex  int             `json:"series_index" yaml:"series_index"`
	EmitImage    bool            `json:"emit_image" yaml:"emit_image"`
	EmitMetadata bool            `json:"emit_metadata" yaml:"emit_metadata"`
	EmitSeries   bool            `json:"emit_series" yaml:"emit_series"`
}

// Schema returns the output table schema
func (p *Plan) Schema() table.Schema {
	cols := make([]table.Column, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = table.Column{Name: c.Name, Type: c.Type}
	}
	return table.Schema{Columns: cols}
}

type kindSpec struct {
	kind Kind
	base string
	typ  table.Type
}

// kinds in their fixed output order, which is also the replace priority
var kinds = []kindSpec{
	{kind: Image, base: ImageColumn, typ: table.TypeImage},
	{kind: Metadata, base: MetadataColumn, typ: table.TypeMetadata},
	{kind: SeriesNumber, base: SeriesNumberColumn, typ: table.TypeString},
}

// Request is the settings-independent input of Build
type Request struct {
	URIColumn    string
	CreationMode settings.CreationMode
	Suffix       string
	EmitImage    bool
	EmitMetadata bool
	EmitSeries   bool
}

// Negotiate computes the output plan for an input schema. It is pure and
// deterministic. Errors are configuration errors and must stop the read
// before any row is processed.
func Negotiate(in table.Schema, s settings.Settings) (*Plan, error) {
	mode, err := settings.ParseMetadataMode(string(s.MetadataMode))
	if err != nil {
		return nil, err
	}
	return Build(in, Request{
		URIColumn:    s.URIColumn,
		CreationMode: s.CreationMode,
		Suffix:       s.ColumnSuffix,
		EmitImage:    mode.EmitImage(),
		EmitMetadata: mode.EmitMetadata(),
		EmitSeries:   s.AppendSeriesNumber,
	})
}

// Build computes the plan from explicit emission flags
func Build(in table.Schema, req Request) (*Plan, error) {
	uriIdx, err := URIColumnIndex(in, req.URIColumn)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		URIColumn:    uriIdx,
		ImageIndex:   -1,
		MetaIndex:    -1,
		SeriesIndex:  -1,
		EmitImage:    req.EmitImage,
		EmitMetadata: req.EmitMetadata,
		EmitSeries:   req.EmitSeries,
	}

	var enabled []kindSpec
	for _, k := range kinds {
		if p.emits(k.kind) {
			enabled = append(enabled, k)
		}
	}

	switch req.CreationMode {
	case settings.NewTable:
		for _, k := range enabled {
			p.Columns = append(p.Columns, PlannedColumn{Name: k.base, Type: k.typ, Kind: k.kind, Source: New})
		}
	case settings.Append:
		p.Columns = copyColumns(in)
		taken := takenNames(in)
		for _, k := range enabled {
			p.Columns = append(p.Columns, newColumn(taken, k, req.Suffix, New))
		}
	case settings.Replace:
		if len(enabled) == 0 {
			return nil, ErrNoOutputColumnsSelected
		}
		p.Columns = copyColumns(in)
		taken := takenNames(in)
		p.Columns[uriIdx] = newColumn(taken, enabled[0], req.Suffix, uriIdx)
		for _, k := range enabled[1:] {
			p.Columns = append(p.Columns, newColumn(taken, k, req.Suffix, New))
		}
	default:
		return nil, fmt.Errorf("%w: %q", settings.ErrUnsupportedCreationMode, req.CreationMode)
	}

	if len(enabled) == 0 || len(p.Columns) == 0 {
		return nil, ErrNoOutputColumnsSelected
	}

	for i, c := range p.Columns {
		switch c.Kind {
		case Image:
			p.ImageIndex = i
		case Metadata:
			p.MetaIndex = i
		case SeriesNumber:
			p.SeriesIndex = i
		}
	}
	return p, nil
}

func (p *Plan) emits(k Kind) bool {
	switch k {
	case Image:
		return p.EmitImage
	case Metadata:
		return p.EmitMetadata
	case SeriesNumber:
		return p.EmitSeries
	}
	return false
}

func copyColumns(in table.Schema) []PlannedColumn {
	cols := make([]PlannedColumn, len(in.Columns))
	for i, c := range in.Columns {
		cols[i] = PlannedColumn{Name: c.Name, Type: c.Type, Kind: Copied, Source: i}
	}
	return cols
}

func takenNames(in table.Schema) map[string]struct{} {
	taken := make(map[string]struct{}, len(in.Columns)+len(kinds))
	for _, c := range in.Columns {
		taken[c.Name] = struct{}{}
	}
	return taken
}

// newColumn names a generated column base+suffix, made unique against taken,
// and records the chosen name as taken.
func newColumn(taken map[string]struct{}, k kindSpec, suffix string, source int) PlannedColumn {
	name := table.UniqueName(taken, k.base+suffix)
	taken[name] = struct{}{}
	return PlannedColumn{Name: name, Type: k.typ, Kind: k.kind, Source: source}
}

// URIColumnIndex returns the identifier column. An explicit name must
// exist and hold URI or string values. Without a name exactly one URI
// column must exist.
func URIColumnIndex(in table.Schema, name string) (int, error) {
	if name != "" {
		idx := in.Index(name)
		if idx < 0 {
			return -1, fmt.Errorf("%w: column %q not found", ErrNoURIColumn, name)
		}
		if t := in.Columns[idx].Type; t != table.TypeURI && t != table.TypeString {
			return -1, fmt.Errorf("%w: column %q has type %s", ErrNoURIColumn, name, t)
		}
		return idx, nil
	}

	candidates := in.IndicesOf(table.TypeURI)
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return -1, fmt.Errorf("%w: input has no URI column", ErrNoURIColumn)
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = in.Columns[c].Name
		}
		return -1, fmt.Errorf("%w: ambiguous URI columns %v, select one explicitly", ErrNoURIColumn, names)
	}
}
