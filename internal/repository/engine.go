// Package repository merges the aggregate repositories of child units into their
// parent's repository and removes unit outputs.
//
// All file access goes through a billy.Filesystem: osfs rooted at "/" in
// production, memfs in tests. Paths handed to the engine are the absolute paths
// reported by the unit descriptor.
package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/metrics"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

const dirPerm = 0o755

// MergeReport summarises one repository merge. It is informational only.
type MergeReport struct {
	Unit    string
	Target  string
	Merged  []string
	Skipped []string
	Files   int
	Bytes   int64
}

// MergeListener is notified after every successful merge.
type MergeListener func(ctx context.Context, report *MergeReport)

// Engine performs repository merges and output cleanup.
type Engine struct {
	fs        billy.Filesystem
	recorder  metrics.Recorder
	listeners []MergeListener
}

// NewEngine creates an engine over fs. A nil fs selects the host filesystem.
func NewEngine(fs billy.Filesystem) *Engine {
	if fs == nil {
		fs = osfs.New(string(filepath.Separator))
	}
	return &Engine{fs: fs, recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the metrics recorder used for merge counters.
func (e *Engine) WithRecorder(r metrics.Recorder) *Engine {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	e.recorder = r
	return e
}

// OnMerge registers a listener called with the report of every successful merge.
func (e *Engine) OnMerge(l MergeListener) *Engine {
	e.listeners = append(e.listeners, l)
	return e
}

// Filesystem returns the filesystem the engine operates on.
func (e *Engine) Filesystem() billy.Filesystem { return e.fs }

// Merge copies the aggregate repository of every child of u that has one into
// u's aggregate repository, preserving relative paths. Files with the same
// relative path are overwritten; the target is never cleared first. Children
// without a repository directory are skipped. The target is created only when
// at least one source exists.
func (e *Engine) Merge(ctx context.Context, u *unit.Unit) (*MergeReport, error) {
	report := &MergeReport{Unit: u.DisplayPath(), Target: u.RepositoryPath()}
	for _, child := range u.Children() {
		src := child.RepositoryPath()
		ok, err := e.isDir(src)
		if err != nil {
			return report, err
		}
		if !ok {
			report.Skipped = append(report.Skipped, child.Identity())
			continue
		}
		if err := e.copyTree(ctx, src, report.Target, report); err != nil {
			return report, err
		}
		report.Merged = append(report.Merged, child.Identity())
	}

	e.recorder.ObserveMerge(len(report.Merged), len(report.Skipped), report.Files, report.Bytes)
	observability.InfoContext(ctx, "Repositories merged",
		logfields.Unit(report.Unit),
		logfields.Target(report.Target),
		logfields.Count(len(report.Merged)),
		logfields.Files(report.Files))
	for _, l := range e.listeners {
		l(ctx, report)
	}
	return report, nil
}

// MergeAction returns a post-action running Merge for u.
func (e *Engine) MergeAction(u *unit.Unit) graph.Action {
	return func(ctx context.Context) error {
		_, err := e.Merge(ctx, u)
		return err
	}
}

// Clean deletes u's whole output path. An absent output path is not an error.
func (e *Engine) Clean(ctx context.Context, u *unit.Unit) error {
	target := u.OutputPath()
	if err := util.RemoveAll(e.fs, target); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to delete output").
			WithContext("path", target).
			Build()
	}
	observability.DebugContext(ctx, "Output removed", logfields.Unit(u.DisplayPath()), logfields.Path(target))
	return nil
}

// CleanAction returns a post-action running Clean for u.
func (e *Engine) CleanAction(u *unit.Unit) graph.Action {
	return func(ctx context.Context) error {
		return e.Clean(ctx, u)
	}
}

func (e *Engine) isDir(path string) (bool, error) {
	info, err := e.fs.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to inspect repository").
			WithContext("path", path).
			Build()
	}
	return info.IsDir(), nil
}

func (e *Engine) copyTree(ctx context.Context, src, dst string, report *MergeReport) error {
	err := util.Walk(e.fs, src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return e.fs.MkdirAll(target, dirPerm)
		}
		n, err := e.copyFile(path, target, info.Mode().Perm())
		if err != nil {
			return err
		}
		report.Files++
		report.Bytes += n
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ferrors.CanceledError("repository merge canceled").WithCause(ctxErr).Build()
		}
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to merge repository").
			WithContext("source", src).
			WithContext("target", dst).
			Build()
	}
	return nil
}

func (e *Engine) copyFile(src, dst string, perm os.FileMode) (int64, error) {
	if err := e.fs.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return 0, err
	}
	in, err := e.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	if perm == 0 {
		perm = 0o644
	}
	out, err := e.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
