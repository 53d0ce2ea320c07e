package history

import (
	"context"
	"time"

	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
	"git.home.luguber.info/inful/hierbuild/internal/repository"
)

// Recorder appends the events of one run. Recording never fails a run: errors
// are logged and dropped. A nil store disables recording.
type Recorder struct {
	ctx   context.Context
	store Store
	runID string
}

var _ graph.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder for runID. ctx is used for executor
// notifications, which carry no context of their own.
func NewRecorder(ctx context.Context, store Store, runID string) *Recorder {
	return &Recorder{ctx: ctx, store: store, runID: runID}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// RunStarted records the start of the run.
func (r *Recorder) RunStarted(ctx context.Context, manifest, unitPath string, operations []string) {
	r.append(ctx, func() (*Event, error) {
		return NewRunStarted(r.runID, RunStartedPayload{Manifest: manifest, Unit: unitPath, Operations: operations})
	})
}

func (r *Recorder) OperationStarted(graph.TaskRef) {}

func (r *Recorder) OperationFinished(ref graph.TaskRef, d time.Duration, err error) {
	r.append(r.ctx, func() (*Event, error) {
		return NewOperationFinished(r.runID, ref.String(), ref.Name, d, err)
	})
}

// MergeCompleted records a repository merge. It has the shape of repository.MergeListener.
func (r *Recorder) MergeCompleted(ctx context.Context, report *repository.MergeReport) {
	r.append(ctx, func() (*Event, error) { return NewRepositoryMerged(r.runID, report) })
}

// RunFinished records the end of the run.
func (r *Recorder) RunFinished(ctx context.Context, outcome string, d time.Duration, executed []string, runErr error) {
	r.append(ctx, func() (*Event, error) {
		return NewRunFinished(r.runID, outcome, d, executed, runErr)
	})
}

func (r *Recorder) append(ctx context.Context, build func() (*Event, error)) {
	if r == nil || r.store == nil {
		return
	}
	e, err := build()
	if err == nil {
		err = r.store.Append(context.WithoutCancel(ctx), e)
	}
	if err != nil {
		observability.WarnContext(ctx, "Failed to record history event",
			logfields.RunID(r.runID),
			logfields.Error(err))
	}
}
