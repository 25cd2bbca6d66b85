// Package report writes run reports as YAML
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/imgreader/internal/models"
	"gopkg.in/yaml.v3"
)

// RunConfig is the configuration section of a report
type RunConfig struct {
	Input              string `yaml:"input"`
	Output             string `yaml:"output,omitempty"`
	URIColumn          string `yaml:"uricolumn,omitempty"`
	MetadataMode       string `yaml:"metadatamode"`
	CreationMode       string `yaml:"creationmode"`
	ColumnSuffix       string `yaml:"columnsuffix"`
	AppendSeriesNumber bool   `yaml:"appendseriesnumber"`
	ReadAllSeries      bool   `yaml:"readallseries"`
	Workers            int    `yaml:"workers"`
	Timestamp          string `yaml:"timestamp"`
}

// RunTotals is the summary section of a report
type RunTotals struct {
	Status     string   `yaml:"status"`
	Rows       int      `yaml:"rows"`
	Processed  int      `yaml:"processed"`
	Failed     int      `yaml:"failed"`
	OutputRows int      `yaml:"outputrows"`
	Duration   string   `yaml:"duration"`
	Columns    []string `yaml:"columns,omitempty"`
	Error      string   `yaml:"error,omitempty"`
}

// RowFailure is a single failed row
type RowFailure struct {
	Index int    `yaml:"index"`
	Key   string `yaml:"key"`
	Error string `yaml:"error"`
}

// RunReport is the complete report of a run
type RunReport struct {
	ID       string       `yaml:"id"`
	Config   RunConfig    `yaml:"config"`
	Summary  RunTotals    `yaml:"summary"`
	Failures []RowFailure `yaml:"failures,omitempty"`
}

// Build converts a finished run into a report
func Build(run *models.Run) *RunReport {
	s := run.Settings
	r := &RunReport{
		ID: run.ID,
		Config: RunConfig{
			Input:              run.Input,
			Output:             run.Output,
			URIColumn:          s.URIColumn,
			MetadataMode:       string(s.MetadataMode),
			CreationMode:       string(s.CreationMode),
			ColumnSuffix:       s.ColumnSuffix,
			AppendSeriesNumber: s.AppendSeriesNumber,
			ReadAllSeries:      s.ReadAllSeries,
			Workers:            s.Workers,
			Timestamp:          run.CreatedAt.Format(time.RFC3339),
		},
		Summary: RunTotals{
			Status:  string(run.Status),
			Columns: run.Columns,
			Error:   run.Error,
		},
	}

	if sum := run.Summary; sum != nil {
		r.Summary.Rows = sum.Rows
		r.Summary.Processed = sum.Processed
		r.Summary.Failed = sum.Failed
		r.Summary.OutputRows = sum.OutputRows
		r.Summary.Duration = sum.Duration.String()
		for _, f := range sum.Failures {
			r.Failures = append(r.Failures, RowFailure{Index: f.Index, Key: f.Key, Error: f.Err.Error()})
		}
	}
	return r
}

// SaveToYAML writes the report of run to path
func SaveToYAML(path string, run *models.Run) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := yaml.Marshal(Build(run))
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}
