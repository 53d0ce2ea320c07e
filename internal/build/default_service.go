package build

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/hierbuild/internal/command"
	"git.home.luguber.info/inful/hierbuild/internal/config"
	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/history"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/metrics"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
	"git.home.luguber.info/inful/hierbuild/internal/repository"
	"git.home.luguber.info/inful/hierbuild/internal/version"
)

// HistoryOpener opens the history store configured for a manifest.
type HistoryOpener func(path string) (history.Store, error)

// DefaultService is the standard implementation of Service.
type DefaultService struct {
	fs          billy.Filesystem
	runner      command.Runner
	recorder    metrics.Recorder
	openHistory HistoryOpener
	newRunID    func() string
}

var _ Service = (*DefaultService)(nil)

// NewService creates a DefaultService on the host filesystem.
func NewService() *DefaultService {
	return &DefaultService{
		runner: command.ExecRunner{},
		openHistory: func(path string) (history.Store, error) {
			return history.NewSQLiteStore(path)
		},
		newRunID: func() string { return uuid.NewString() },
	}
}

// WithFilesystem replaces the filesystem merges and artifacts go through (for testing).
func (s *DefaultService) WithFilesystem(fs billy.Filesystem) *DefaultService {
	s.fs = fs
	return s
}

// WithRunner replaces the command runner of manifest operations.
func (s *DefaultService) WithRunner(r command.Runner) *DefaultService {
	s.runner = r
	return s
}

// WithRecorder sets a metrics recorder. Without one, a Prometheus registry is
// created per run when the manifest configures a textfile.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	s.recorder = r
	return s
}

// WithHistoryOpener replaces how history stores are opened.
func (s *DefaultService) WithHistoryOpener(open HistoryOpener) *DefaultService {
	s.openHistory = open
	return s
}

// Run executes one invocation.
func (s *DefaultService) Run(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()
	result := &Result{RunID: s.newRunID(), StartTime: startTime, Unit: req.Unit}
	ctx = observability.WithRunID(ctx, result.RunID)

	if req.Manifest == nil {
		s.finish(result, StatusFailed)
		return result, ferrors.ConfigError("manifest required").Build()
	}
	m := req.Manifest

	recorder, registry := s.recorder, (*prom.Registry)(nil)
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
		if m.Metrics.Textfile != "" {
			registry = prom.NewRegistry()
			recorder = metrics.NewPrometheusRecorder(registry)
		}
	}
	defer func() {
		recorder.ObserveRunDuration(result.Duration)
		recorder.IncRunOutcome(runOutcome(result.Status))
		if registry != nil {
			writeTextfile(ctx, registry, m.Resolve(m.Metrics.Textfile))
		}
	}()

	store := s.openStore(ctx, m)
	if store != nil {
		defer func() { _ = store.Close() }()
	}
	rec := history.NewRecorder(ctx, store, result.RunID)

	ctx = observability.WithStage(ctx, "evaluate")
	observability.InfoContext(ctx, "Evaluating hierarchy", logfields.Path(m.Path()))
	session, err := Prepare(ctx, m, SessionOptions{
		Filesystem: s.fs,
		Runner:     s.runner,
		Recorder:   recorder,
		Observer: graph.Observers{
			metrics.OperationObserver{Recorder: recorder},
			rec,
		},
		OnMerge: []repository.MergeListener{
			func(ctx context.Context, report *repository.MergeReport) {
				result.Merges = append(result.Merges, report)
			},
			rec.MergeCompleted,
		},
		ToolVersion: version.Version,
	})
	if err != nil {
		s.finish(result, statusFor(ctx, err))
		return result, err
	}

	target, err := session.Target(req.Unit)
	if err != nil {
		s.finish(result, StatusFailed)
		return result, err
	}
	result.Unit = target.DisplayPath()
	result.Requested = req.Operations
	if len(result.Requested) == 0 {
		result.Requested = session.Graph.DefaultOperations(target)
	}

	ctx = observability.WithStage(observability.WithUnit(ctx, result.Unit), "execute")
	rec.RunStarted(ctx, m.Path(), result.Unit, result.Requested)
	observability.InfoContext(ctx, "Executing operations", logfields.Count(len(result.Requested)))

	exec, err := session.Graph.Execute(ctx, target, req.Operations...)
	result.Execution = exec
	if exec != nil {
		result.Executed = exec.Executed()
		for _, o := range exec.Failed() {
			result.Failed = append(result.Failed, o.Ref.String())
		}
	}
	if err != nil {
		s.finish(result, statusFor(ctx, err))
		rec.RunFinished(ctx, string(result.Status), result.Duration, result.Executed, err)
		return result, err
	}

	s.finish(result, StatusSuccess)
	rec.RunFinished(ctx, string(result.Status), result.Duration, result.Executed, nil)
	observability.InfoContext(ctx, "Run completed",
		logfields.Count(len(result.Executed)),
		logfields.DurationMS(float64(result.Duration.Microseconds())/1000))
	return result, nil
}

func (s *DefaultService) finish(result *Result, status Status) {
	result.Status = status
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
}

// openStore opens the run history of m. History problems are logged and the run
// continues unrecorded.
func (s *DefaultService) openStore(ctx context.Context, m *config.Manifest) history.Store {
	if m.History.Disabled || s.openHistory == nil {
		return nil
	}
	path := m.Resolve(m.History.Path)
	store, err := s.openHistory(path)
	if err != nil {
		observability.WarnContext(ctx, "Run history unavailable", logfields.Path(path), logfields.Error(err))
		return nil
	}
	return store
}

func statusFor(ctx context.Context, err error) Status {
	if ctx.Err() != nil || ferrors.HasCategory(err, ferrors.CategoryCanceled) {
		return StatusCanceled
	}
	return StatusFailed
}

func runOutcome(s Status) metrics.RunOutcomeLabel {
	switch s {
	case StatusSuccess:
		return metrics.RunOutcomeSuccess
	case StatusCanceled:
		return metrics.RunOutcomeCanceled
	default:
		return metrics.RunOutcomeFailed
	}
}

func writeTextfile(ctx context.Context, reg *prom.Registry, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		err = metrics.WriteTextfile(reg, path)
		if err == nil {
			return
		}
		observability.WarnContext(ctx, "Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
		return
	}
	observability.WarnContext(ctx, "Failed to create metrics directory", logfields.Path(path))
}
