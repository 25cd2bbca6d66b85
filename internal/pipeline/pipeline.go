// Package pipeline reads the images referenced by a table and assembles the
// output table according to the negotiated column plan.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/imgreader/internal/images"
	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/lehigh-university-libraries/imgreader/internal/schema"
	"github.com/lehigh-university-libraries/imgreader/internal/settings"
	"github.com/lehigh-university-libraries/imgreader/internal/table"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAllRowsFailed is returned when a non-empty input produced no rows
	ErrAllRowsFailed = errors.New("all rows failed")

	ErrMissingIdentifier = errors.New("missing identifier")
	ErrNoSeriesInRange   = errors.New("no series in range")
)

// Resolver maps identifiers to locations. *location.Service implements it.
type Resolver interface {
	Resolve(ctx context.Context, id location.Identifier, creds *location.Credentials) (location.Location, error)
}

// Decoder reads a resolved location once and decodes the series pick
// chooses from the number available. *images.Decoder implements it.
type Decoder interface {
	DecodeSeries(ctx context.Context, loc location.Location, pick func(count int) ([]int, error)) ([]*images.Result, error)
}

// RowError is a failure of a single input row
type RowError struct {
	Index int
	Key   string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %q: %v", e.Key, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Summary reports the outcome of a read
type Summary struct {
	Rows       int           `json:"rows" yaml:"rows"`
	Processed  int           `json:"processed" yaml:"processed"`
	Failed     int           `json:"failed" yaml:"failed"`
	OutputRows int           `json:"output_rows" yaml:"output_rows"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	// LastError is the failure of the highest-indexed failed row
	LastError *RowError `json:"-" yaml:"-"`
	// Failures lists every failed row in input order
	Failures []*RowError `json:"-" yaml:"-"`
}

// LastErrorMessage returns the latest row error as text, or ""
func (s *Summary) LastErrorMessage() string {
	if s == nil || s.LastError == nil {
		return ""
	}
	return s.LastError.Error()
}

// Reader runs reads. It is safe to reuse for several tables.
type Reader struct {
	resolver Resolver
	decoder  Decoder
	settings settings.Settings
	creds    *location.Credentials
}

// NewReader creates a reader. Empty credentials are treated as none so that
// resolvers without the auth capability can still serve plain reads.
func NewReader(resolver Resolver, decoder Decoder, s settings.Settings, creds *location.Credentials) *Reader {
	if creds.IsZero() {
		creds = nil
	}
	return &Reader{
		resolver: resolver,
		decoder:  decoder,
		settings: s,
		creds:    creds,
	}
}

// Plan negotiates the output layout for an input schema
func (r *Reader) Plan(in table.Schema) (*schema.Plan, error) {
	return schema.Negotiate(in, r.settings)
}

// Run reads every row of in. Configuration errors are returned before any
// identifier is resolved. Row failures are logged, counted in the summary
// and leave the row out of the output.
func (r *Reader) Run(ctx context.Context, in *table.Table) (*table.Table, *Summary, error) {
	start := time.Now()

	plan, err := r.Plan(in.Schema)
	if err != nil {
		return nil, nil, err
	}

	workers := r.settings.Workers
	if workers < 1 {
		workers = 1
	}

	slog.Info("Starting read", "rows", in.NumRows(), "workers", workers, "creation_mode", r.settings.CreationMode, "metadata_mode", r.settings.MetadataMode)

	var (
		results = make([][]table.Row, len(in.Rows))
		failed  = make([]*RowError, len(in.Rows))
		mu      sync.Mutex
		done    int
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range in.Rows {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			row := in.Rows[i]
			rows, err := r.readRow(ctx, plan, row)
			if err != nil {
				failed[i] = &RowError{Index: i, Key: row.Key, Err: err}
				slog.Warn("Failed to read row", "key", row.Key, "error", err)
			} else {
				results[i] = rows
			}

			mu.Lock()
			done++
			if done%100 == 0 {
				slog.Info("Read progress", "done", done, "total", len(in.Rows))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("read canceled: %w", err)
	}

	out := table.New(plan.Schema())
	summary := &Summary{Rows: len(in.Rows)}
	for i := range in.Rows {
		if failed[i] != nil {
			summary.Failed++
			summary.LastError = failed[i]
			summary.Failures = append(summary.Failures, failed[i])
			continue
		}
		summary.Processed++
		for _, row := range results[i] {
			if err := out.Append(row); err != nil {
				return nil, nil, fmt.Errorf("failed to assemble output: %w", err)
			}
		}
	}
	summary.OutputRows = out.NumRows()
	summary.Duration = time.Since(start)

	slog.Info("Read complete",
		"rows", summary.Rows,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"output_rows", summary.OutputRows,
		"duration", summary.Duration)

	if summary.Rows > 0 && summary.Failed == summary.Rows {
		return out, summary, fmt.Errorf("%w: %d rows, last error: %w", ErrAllRowsFailed, summary.Rows, summary.LastError)
	}
	return out, summary, nil
}

// readRow resolves and decodes one input row into one output row per series
func (r *Reader) readRow(ctx context.Context, plan *schema.Plan, row table.Row) ([]table.Row, error) {
	cell := row.Cells[plan.URIColumn]
	if cell.IsMissing() || cell.String() == "" {
		return nil, ErrMissingIdentifier
	}

	id, err := location.ParseIdentifier(cell.String())
	if err != nil {
		return nil, err
	}

	loc, err := r.resolver.Resolve(ctx, id, r.creds)
	if err != nil {
		return nil, err
	}

	results, err := r.decoder.DecodeSeries(ctx, loc, r.pickSeries)
	if err != nil {
		return nil, err
	}

	rows := make([]table.Row, 0, len(results))
	for _, res := range results {
		key := row.Key
		if r.settings.ReadAllSeries {
			key = fmt.Sprintf("%s_#%d", row.Key, res.Series)
		}
		out, err := assemble(plan, row, key, res.Series, res)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out)
	}
	return rows, nil
}

// pickSeries lists the series to read out of count. Without ReadAllSeries
// only series 0 is read.
func (r *Reader) pickSeries(count int) ([]int, error) {
	if !r.settings.ReadAllSeries {
		return []int{0}, nil
	}

	first, last := r.settings.SeriesStart, r.settings.SeriesEnd
	if last < 0 || last >= count {
		last = count - 1
	}
	if first > last {
		return nil, fmt.Errorf("%w: [%d, %d] with %d series", ErrNoSeriesInRange, r.settings.SeriesStart, r.settings.SeriesEnd, count)
	}

	series := make([]int, 0, last-first+1)
	for s := first; s <= last; s++ {
		series = append(series, s)
	}
	return series, nil
}

func assemble(plan *schema.Plan, in table.Row, key string, series int, res *images.Result) (table.Row, error) {
	cells := make([]table.Cell, len(plan.Columns))
	for i, c := range plan.Columns {
		switch c.Kind {
		case schema.Copied:
			cells[i] = in.Cells[c.Source]
		case schema.Image:
			cells[i] = table.Cell{Value: &table.ImageValue{Image: res.Image, Format: res.Format}}
		case schema.Metadata:
			if res.Metadata == nil {
				continue
			}
			meta, err := res.Metadata.JSON()
			if err != nil {
				return table.Row{}, err
			}
			cells[i] = table.Cell{Value: meta}
		case schema.SeriesNumber:
			cells[i] = table.Cell{Value: strconv.Itoa(series)}
		}
	}
	return table.Row{Key: key, Cells: cells}, nil
}
