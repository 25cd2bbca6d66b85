package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/imgreader/internal/pipeline"
	"github.com/lehigh-university-libraries/imgreader/internal/settings"
)

// RunStatus is the state of a read run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records one read of an input table
type Run struct {
	ID         string            `json:"id"`
	Input      string            `json:"input"`
	Output     string            `json:"output,omitempty"`
	Settings   settings.Settings `json:"settings"`
	Status     RunStatus         `json:"status"`
	Columns    []string          `json:"columns,omitempty"`
	Summary    *pipeline.Summary `json:"summary,omitempty"`
	LastError  string            `json:"last_error,omitempty"` // latest row failure
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// NewRun creates a running run with a fresh id
func NewRun(input, output string, s settings.Settings) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Input:     input,
		Output:    output,
		Settings:  s,
		Status:    RunRunning,
		CreatedAt: time.Now(),
	}
}

// Finish marks the run done, failed when err is non-nil
func (r *Run) Finish(summary *pipeline.Summary, err error) {
	now := time.Now()
	r.FinishedAt = &now
	r.Summary = summary
	r.LastError = summary.LastErrorMessage()
	if err != nil {
		r.Status = RunFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunSucceeded
}

// Resolution is the outcome of resolving a single identifier
type Resolution struct {
	URI      string `json:"uri" yaml:"uri"`
	Resolver string `json:"resolver,omitempty" yaml:"resolver,omitempty"`
	Auth     bool   `json:"auth" yaml:"auth"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}
