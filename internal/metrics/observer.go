package metrics

import (
	"time"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/graph"
)

// OperationObserver records executor notifications on a Recorder.
// Operations are labelled by name only to keep label cardinality bounded.
type OperationObserver struct {
	Recorder Recorder
}

var _ graph.Observer = OperationObserver{}

func (OperationObserver) OperationStarted(graph.TaskRef) {}

func (o OperationObserver) OperationFinished(ref graph.TaskRef, d time.Duration, err error) {
	if o.Recorder == nil {
		return
	}
	o.Recorder.ObserveOperationDuration(ref.Name, d)
	o.Recorder.IncOperationResult(ref.Name, ResultFor(err))
}

// ResultFor maps an operation error to its result label.
func ResultFor(err error) ResultLabel {
	switch {
	case err == nil:
		return ResultSuccess
	case ferrors.HasCategory(err, ferrors.CategoryCanceled):
		return ResultCanceled
	default:
		return ResultFailed
	}
}
