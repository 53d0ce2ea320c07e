package graph

import (
	"time"
)

// OutcomeStatus is the terminal state of one operation in an execution.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome records a single executed operation.
type Outcome struct {
	Ref      TaskRef
	Status   OutcomeStatus
	Duration time.Duration
	Err      error
}

// ExecutionResult is the ordered record of one Execute call.
// Operations appear in completion order (dependencies before dependents).
type ExecutionResult struct {
	Requested []TaskRef
	Outcomes  []Outcome
	Duration  time.Duration
}

// Executed returns the rendered references of every operation that ran, in order.
func (r *ExecutionResult) Executed() []string {
	out := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out = append(out, o.Ref.String())
	}
	return out
}

// Succeeded reports whether every recorded operation succeeded.
func (r *ExecutionResult) Succeeded() bool {
	for _, o := range r.Outcomes {
		if o.Status != OutcomeSucceeded {
			return false
		}
	}
	return true
}

// Failed returns the outcomes that failed.
func (r *ExecutionResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

// Observer receives operation lifecycle notifications from the executor.
type Observer interface {
	OperationStarted(ref TaskRef)
	OperationFinished(ref TaskRef, d time.Duration, err error)
}

// NoopObserver ignores notifications.
type NoopObserver struct{}

func (NoopObserver) OperationStarted(TaskRef)                       {}
func (NoopObserver) OperationFinished(TaskRef, time.Duration, error) {}

// Observers fans notifications out to several observers.
type Observers []Observer

func (o Observers) OperationStarted(ref TaskRef) {
	for _, obs := range o {
		obs.OperationStarted(ref)
	}
}

func (o Observers) OperationFinished(ref TaskRef, d time.Duration, err error) {
	for _, obs := range o {
		obs.OperationFinished(ref, d, err)
	}
}
