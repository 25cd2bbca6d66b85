// Package dataset loads input tables from and writes output tables to
// parquet and CSV files.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/imgreader/internal/table"
	"github.com/parquet-go/parquet-go"
)

// ColumnsMetadataKey is the parquet key/value entry holding the ordered
// column list of a table written by Writer
const ColumnsMetadataKey = "imgreader.columns"

// DefaultURISample is the number of rows inspected when inferring URI columns
const DefaultURISample = 100

// Loader reads a table from a parquet or CSV file
type Loader struct {
	path string

	// KeyColumn names a column whose values become the row keys. Without
	// it rows are keyed Row0, Row1, ...
	KeyColumn string
	// URISample limits how many rows are inspected for URI inference
	URISample int
}

// NewLoader creates a loader for path
func NewLoader(path string) *Loader {
	return &Loader{
		path:      path,
		URISample: DefaultURISample,
	}
}

// Load reads the table, choosing the format from the file extension
func (l *Loader) Load() (*table.Table, error) {
	var (
		t   *table.Table
		err error
	)

	ext := strings.ToLower(filepath.Ext(l.path))
	switch ext {
	case ".parquet":
		t, err = l.loadParquet()
	case ".csv":
		t, err = l.loadCSV()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .csv)", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := l.assignKeys(t); err != nil {
		return nil, err
	}
	table.InferURIColumns(t, l.URISample)

	slog.Debug("Loaded table", "path", l.path, "rows", t.NumRows(), "schema", t.Schema.String())
	return t, nil
}

func (l *Loader) assignKeys(t *table.Table) error {
	keyIdx := -1
	if l.KeyColumn != "" {
		keyIdx = t.Schema.Index(l.KeyColumn)
		if keyIdx < 0 {
			return fmt.Errorf("key column %q not found", l.KeyColumn)
		}
	}
	for i := range t.Rows {
		if keyIdx >= 0 && !t.Rows[i].Cells[keyIdx].IsMissing() {
			t.Rows[i].Key = t.Rows[i].Cells[keyIdx].String()
			continue
		}
		t.Rows[i].Key = fmt.Sprintf("Row%d", i)
	}
	return nil
}

// loadCSV reads a CSV file with a header row. Every column is a string
// column and empty fields are missing cells.
func (l *Loader) loadCSV() (*table.Table, error) {
	slog.Debug("Opening CSV file", "path", l.path)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make([]table.Column, len(header))
	for i, name := range header {
		cols[i] = table.Column{Name: strings.TrimSpace(name), Type: table.TypeString}
	}
	schema, err := table.NewSchema(cols...)
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	t := table.New(schema)
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		cells := make([]table.Cell, len(record))
		for i, v := range record {
			if v != "" {
				cells[i] = table.Cell{Value: v}
			}
		}
		if err := t.Append(table.Row{Cells: cells}); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, nil
}

// loadParquet reads any flat parquet file. Column order and types follow
// the key/value entry written by Writer when present, otherwise the file
// schema.
func (l *Loader) loadParquet() (*table.Table, error) {
	slog.Debug("Opening Parquet file", "path", l.path)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	cols, leaves, err := parquetColumns(pf)
	if err != nil {
		return nil, err
	}
	schema, err := table.NewSchema(cols...)
	if err != nil {
		return nil, fmt.Errorf("invalid parquet schema: %w", err)
	}

	// position in the table of each parquet leaf column
	position := make(map[int]int, len(leaves))
	for i, leaf := range leaves {
		position[leaf] = i
	}

	t := table.New(schema)
	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				cells := make([]table.Cell, len(cols))
				for _, v := range row {
					i, ok := position[v.Column()]
					if !ok || v.IsNull() || !cells[i].IsMissing() {
						continue
					}
					cell, cerr := cellFromValue(cols[i].Type, v)
					if cerr != nil {
						rows.Close()
						return nil, fmt.Errorf("column %q: %w", cols[i].Name, cerr)
					}
					cells[i] = cell
				}
				if err := t.Append(table.Row{Cells: cells}); err != nil {
					rows.Close()
					return nil, err
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
		}
		rows.Close()
	}

	slog.Debug("Finished reading Parquet file", "total_rows", t.NumRows())
	return t, nil
}

// parquetColumns returns the table columns of a parquet file and the leaf
// column index backing each of them
func parquetColumns(pf *parquet.File) ([]table.Column, []int, error) {
	ps := pf.Schema()

	if raw, ok := pf.Lookup(ColumnsMetadataKey); ok {
		var cols []table.Column
		if err := json.Unmarshal([]byte(raw), &cols); err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", ColumnsMetadataKey, err)
		}
		leaves := make([]int, len(cols))
		for i, c := range cols {
			leaf, ok := ps.Lookup(c.Name)
			if !ok {
				return nil, nil, fmt.Errorf("column %q listed in %s is missing from the file", c.Name, ColumnsMetadataKey)
			}
			leaves[i] = leaf.ColumnIndex
		}
		return cols, leaves, nil
	}

	var (
		cols   []table.Column
		leaves []int
	)
	for _, path := range ps.Columns() {
		if len(path) != 1 {
			slog.Warn("Skipping nested parquet column", "path", strings.Join(path, "."))
			continue
		}
		leaf, ok := ps.Lookup(path...)
		if !ok {
			continue
		}
		if leaf.MaxRepetitionLevel > 0 {
			slog.Warn("Skipping repeated parquet column", "column", path[0])
			continue
		}
		cols = append(cols, table.Column{Name: path[0], Type: typeOf(leaf.Node.Type().Kind())})
		leaves = append(leaves, leaf.ColumnIndex)
	}
	return cols, leaves, nil
}

func typeOf(k parquet.Kind) table.Type {
	switch k {
	case parquet.Boolean:
		return table.TypeBool
	case parquet.Int32, parquet.Int64:
		return table.TypeInt
	case parquet.Float, parquet.Double:
		return table.TypeFloat
	default:
		return table.TypeString
	}
}

func cellFromValue(t table.Type, v parquet.Value) (table.Cell, error) {
	switch t {
	case table.TypeImage:
		img, err := png.Decode(bytes.NewReader(v.ByteArray()))
		if err != nil {
			return table.Cell{}, fmt.Errorf("failed to decode image cell: %w", err)
		}
		return table.Cell{Value: &table.ImageValue{Image: img, Format: "png"}}, nil
	}

	switch v.Kind() {
	case parquet.Boolean:
		return table.Cell{Value: v.Boolean()}, nil
	case parquet.Int32:
		return table.Cell{Value: int64(v.Int32())}, nil
	case parquet.Int64:
		return table.Cell{Value: v.Int64()}, nil
	case parquet.Float:
		return table.Cell{Value: float64(v.Float())}, nil
	case parquet.Double:
		return table.Cell{Value: v.Double()}, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return table.Cell{Value: string(v.ByteArray())}, nil
	default:
		return table.Cell{Value: v.String()}, nil
	}
}
