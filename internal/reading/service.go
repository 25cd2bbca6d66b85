// Package reading ties table I/O, resolution and the row pipeline together
// into complete runs.
package reading

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/imgreader/internal/dataset"
	"github.com/lehigh-university-libraries/imgreader/internal/images"
	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/lehigh-university-libraries/imgreader/internal/models"
	"github.com/lehigh-university-libraries/imgreader/internal/pipeline"
	"github.com/lehigh-university-libraries/imgreader/internal/schema"
	"github.com/lehigh-university-libraries/imgreader/internal/settings"
)

// Request describes one run
type Request struct {
	Input    string            `json:"input"`
	Output   string            `json:"output,omitempty"`
	Settings settings.Settings `json:"settings"`

	// KeyColumn names the input column holding row keys
	KeyColumn string `json:"key_column,omitempty"`
	// RowIDColumn adds the row keys to the output under this name
	RowIDColumn string `json:"row_id_column,omitempty"`

	Credentials *location.Credentials `json:"-"`
}

type Service struct {
	resolver *location.Service
}

func NewService(registry *location.Registry) *Service {
	return &Service{resolver: location.NewService(registry)}
}

// Registry returns the resolver registry runs resolve against
func (s *Service) Registry() *location.Registry {
	return s.resolver.Registry()
}

// Execute loads the input, reads every row and writes the output when one
// is set. The returned run is always non-nil and records any failure.
func (s *Service) Execute(ctx context.Context, req Request) (*models.Run, error) {
	run := models.NewRun(req.Input, req.Output, req.Settings)

	if err := run.Settings.Validate(); err != nil {
		run.Finish(nil, err)
		return run, err
	}

	loader := dataset.NewLoader(req.Input)
	loader.KeyColumn = req.KeyColumn
	in, err := loader.Load()
	if err != nil {
		err = fmt.Errorf("failed to load input: %w", err)
		run.Finish(nil, err)
		return run, err
	}

	creds := req.Credentials
	if creds.IsZero() {
		creds = run.Settings.Credentials
	}

	reader := pipeline.NewReader(s.resolver, images.NewDecoder(run.Settings.MaxImageBytes), run.Settings, creds)
	out, summary, err := reader.Run(ctx, in)
	if err != nil {
		run.Finish(summary, err)
		return run, err
	}
	run.Columns = out.Schema.Names()

	if req.Output != "" {
		w := dataset.NewWriter(req.Output)
		w.RowIDColumn = req.RowIDColumn
		if err := w.Write(out); err != nil {
			err = fmt.Errorf("failed to write output: %w", err)
			run.Finish(summary, err)
			return run, err
		}
	}

	run.Finish(summary, nil)
	slog.Info("Run finished", "id", run.ID, "input", run.Input, "output", run.Output, "failed", summary.Failed)
	return run, nil
}

// Plan loads only the input and negotiates its output layout
func Plan(input, keyColumn string, st settings.Settings) (*schema.Plan, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	loader := dataset.NewLoader(input)
	loader.KeyColumn = keyColumn
	in, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}
	return schema.Negotiate(in.Schema, st)
}

// Resolve resolves one identifier and reports which resolver served it
func (s *Service) Resolve(ctx context.Context, raw string, creds *location.Credentials) models.Resolution {
	if creds.IsZero() {
		creds = nil
	}
	res := models.Resolution{URI: raw, Auth: creds != nil}

	id, err := location.ParseIdentifier(raw)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if r, err := s.Registry().ResolverFor(id); err == nil {
		res.Resolver = r.Name()
	}

	loc, err := s.resolver.Resolve(ctx, id, creds)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Location = describe(loc)
	return res
}

func describe(loc location.Location) string {
	if s, ok := loc.(fmt.Stringer); ok {
		return s.String()
	}
	return loc.URI()
}
