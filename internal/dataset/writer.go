package dataset

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/imgreader/internal/table"
	"github.com/parquet-go/parquet-go"
)

// Writer stores a table as a parquet or CSV file. Images are stored as PNG,
// base64 encoded in CSV.
type Writer struct {
	path string

	// RowIDColumn, when set, adds a leading column holding the row keys
	RowIDColumn string
}

// NewWriter creates a writer for path
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write stores t, choosing the format from the file extension
func (w *Writer) Write(t *table.Table) error {
	t, err := w.withRowIDs(t)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(w.path))
	switch ext {
	case ".parquet":
		err = w.writeParquet(t)
	case ".csv":
		err = w.writeCSV(t)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .csv)", ext)
	}
	if err != nil {
		return err
	}

	slog.Info("Wrote table", "path", w.path, "rows", t.NumRows(), "columns", t.Schema.Len())
	return nil
}

func (w *Writer) withRowIDs(t *table.Table) (*table.Table, error) {
	if w.RowIDColumn == "" {
		return t, nil
	}
	if t.Schema.Contains(w.RowIDColumn) {
		return nil, fmt.Errorf("row id column %q already exists", w.RowIDColumn)
	}

	cols := append([]table.Column{{Name: w.RowIDColumn, Type: table.TypeString}}, t.Schema.Columns...)
	out := table.New(table.Schema{Columns: cols})
	for _, row := range t.Rows {
		cells := append([]table.Cell{{Value: row.Key}}, row.Cells...)
		out.Rows = append(out.Rows, table.Row{Key: row.Key, Cells: cells})
	}
	return out, nil
}

func (w *Writer) writeCSV(t *table.Table) error {
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(t.Schema.Names()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, t.Schema.Len())
	for _, row := range t.Rows {
		for i, cell := range row.Cells {
			s, err := csvField(cell)
			if err != nil {
				return fmt.Errorf("row %q column %q: %w", row.Key, t.Schema.Columns[i].Name, err)
			}
			record[i] = s
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return file.Close()
}

func csvField(cell table.Cell) (string, error) {
	if img, ok := cell.Value.(*table.ImageValue); ok {
		data, err := encodePNG(img)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return cell.String(), nil
}

func (w *Writer) writeParquet(t *table.Table) error {
	group := parquet.Group{}
	for _, c := range t.Schema.Columns {
		group[c.Name] = parquet.Optional(nodeFor(c.Type))
	}
	schema := parquet.NewSchema("imgreader", group)

	// Group orders fields by name, so the table order is kept in the file
	// metadata and the leaf index of every column is looked up
	leaves := make([]int, t.Schema.Len())
	for i, c := range t.Schema.Columns {
		leaf, ok := schema.Lookup(c.Name)
		if !ok {
			return fmt.Errorf("column %q missing from parquet schema", c.Name)
		}
		leaves[i] = leaf.ColumnIndex
	}

	order, err := json.Marshal(t.Schema.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal column order: %w", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	pw := parquet.NewWriter(file, schema, parquet.KeyValueMetadata(ColumnsMetadataKey, string(order)))

	rows := make([]parquet.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make(parquet.Row, t.Schema.Len())
		for i, cell := range r.Cells {
			v, err := parquetValue(t.Schema.Columns[i].Type, cell)
			if err != nil {
				return fmt.Errorf("row %q column %q: %w", r.Key, t.Schema.Columns[i].Name, err)
			}
			if v.IsNull() {
				row[leaves[i]] = v.Level(0, 0, leaves[i])
			} else {
				row[leaves[i]] = v.Level(0, 1, leaves[i])
			}
		}
		rows = append(rows, row)
	}

	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}

func nodeFor(t table.Type) parquet.Node {
	switch t {
	case table.TypeInt:
		return parquet.Int(64)
	case table.TypeFloat:
		return parquet.Leaf(parquet.DoubleType)
	case table.TypeBool:
		return parquet.Leaf(parquet.BooleanType)
	case table.TypeImage:
		return parquet.Leaf(parquet.ByteArrayType)
	default:
		return parquet.String()
	}
}

func parquetValue(t table.Type, cell table.Cell) (parquet.Value, error) {
	if cell.IsMissing() {
		return parquet.NullValue(), nil
	}

	switch t {
	case table.TypeImage:
		img, ok := cell.Value.(*table.ImageValue)
		if !ok {
			return parquet.Value{}, fmt.Errorf("expected image value, got %T", cell.Value)
		}
		data, err := encodePNG(img)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.ByteArrayValue(data), nil
	case table.TypeInt:
		switch v := cell.Value.(type) {
		case int64:
			return parquet.Int64Value(v), nil
		case int:
			return parquet.Int64Value(int64(v)), nil
		case int32:
			return parquet.Int64Value(int64(v)), nil
		default:
			n, err := strconv.ParseInt(cell.String(), 10, 64)
			if err != nil {
				return parquet.Value{}, fmt.Errorf("invalid int value %q: %w", cell.String(), err)
			}
			return parquet.Int64Value(n), nil
		}
	case table.TypeFloat:
		switch v := cell.Value.(type) {
		case float64:
			return parquet.DoubleValue(v), nil
		case float32:
			return parquet.DoubleValue(float64(v)), nil
		default:
			f, err := strconv.ParseFloat(cell.String(), 64)
			if err != nil {
				return parquet.Value{}, fmt.Errorf("invalid float value %q: %w", cell.String(), err)
			}
			return parquet.DoubleValue(f), nil
		}
	case table.TypeBool:
		if b, ok := cell.Value.(bool); ok {
			return parquet.BooleanValue(b), nil
		}
		b, err := strconv.ParseBool(cell.String())
		if err != nil {
			return parquet.Value{}, fmt.Errorf("invalid bool value %q: %w", cell.String(), err)
		}
		return parquet.BooleanValue(b), nil
	default:
		return parquet.ByteArrayValue([]byte(cell.String())), nil
	}
}

func encodePNG(img *table.ImageValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.Image); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
