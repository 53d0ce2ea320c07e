package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/hierbuild/internal/config"
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/repository"
)

// Service is the canonical interface for executing an invocation.
type Service interface {
	// Run evaluates the hierarchy of the request's manifest and executes the
	// requested operations at the requested unit.
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request contains all inputs of one invocation.
type Request struct {
	// Manifest is the loaded hierarchy manifest.
	Manifest *config.Manifest

	// Unit is the display path of the unit the invocation targets (":" or empty for the root).
	Unit string

	// Operations are run in order; empty runs the unit's default operations.
	Operations []string
}

// Result contains the outcome of an invocation.
type Result struct {
	// RunID identifies the run in logs and history.
	RunID string

	// Status indicates the overall outcome.
	Status Status

	// Unit is the display path of the targeted unit.
	Unit string

	// Requested are the operations asked for, after defaulting.
	Requested []string

	// Executed lists every operation that ran, in completion order.
	Executed []string

	// Failed lists the operation that failed, if any.
	Failed []string

	// Merges are the repository merges performed.
	Merges []*repository.MergeReport

	// Execution is the executor's record; nil when the run failed before executing.
	Execution *graph.ExecutionResult

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Status represents the outcome of an invocation.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// IsSuccess returns true if the invocation completed successfully.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
