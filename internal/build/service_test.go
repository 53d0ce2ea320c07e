package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/hierbuild/internal/command"
	"git.home.luguber.info/inful/hierbuild/internal/config"
	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/history"
	"git.home.luguber.info/inful/hierbuild/internal/registry"
)

const endToEndManifest = `
root:
  name: R
  kind: domain
  path: /ws
  group: org.example
  version: 1.2.3
  children:
    - name: S
      kind: implementation
      children:
        - name: M
          publish:
            artifacts: [jar, pom]
          operations:
            - name: lint
              depends_on: [build]
              command: [golint, ./...]
        - name: N
`

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, dir string, _ []string, argv []string) (*command.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dir+" "+strings.Join(argv, " "))
	return &command.Result{}, f.err
}

// keepOpen lets a test inspect a store after the service closed it.
type keepOpen struct{ history.Store }

func (keepOpen) Close() error { return nil }

func newService(t *testing.T) (*DefaultService, *fakeRunner, *history.SQLiteStore, func(string) bool) {
	t.Helper()
	fs := memfs.New()
	runner := &fakeRunner{}
	store, err := history.NewSQLiteStore(history.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService().
		WithFilesystem(fs).
		WithRunner(runner).
		WithHistoryOpener(func(string) (history.Store, error) { return keepOpen{store}, nil })
	exists := func(path string) bool {
		_, err := fs.Stat(path)
		return err == nil
	}
	return svc, runner, store, exists
}

func parse(t *testing.T, manifest string) *config.Manifest {
	t.Helper()
	m, err := config.Parse(strings.NewReader(manifest))
	require.NoError(t, err)
	return m
}

func TestRunNilManifest(t *testing.T) {
	svc, _, _, _ := newService(t)

	result, err := svc.Run(context.Background(), Request{})

	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.NotEmpty(t, result.RunID)
}

func TestRunUnknownUnit(t *testing.T) {
	svc, _, _, _ := newService(t)

	result, err := svc.Run(context.Background(), Request{Manifest: parse(t, endToEndManifest), Unit: ":nope"})

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Equal(t, StatusFailed, result.Status)
}

func TestRunPublishAtDomain(t *testing.T) {
	svc, _, store, exists := newService(t)

	result, err := svc.Run(context.Background(), Request{
		Manifest:   parse(t, endToEndManifest),
		Operations: []string{registry.Publish},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, ":", result.Unit)
	assert.Equal(t, []string{registry.Publish}, result.Requested)
	assert.Contains(t, result.Executed, ":S:M:build")
	assert.Equal(t, ":publish", result.Executed[len(result.Executed)-1])

	layout := filepath.Join("org", "example", "M", "1.2.3")
	for _, name := range []string{"M-1.2.3.jar", "M-1.2.3.pom"} {
		assert.True(t, exists(filepath.Join("/ws/S/build/S.repository", layout, name)), name)
		assert.True(t, exists(filepath.Join("/ws/build/R.repository", layout, name)), name)
	}
	require.Len(t, result.Merges, 2)
	assert.Equal(t, ":S", result.Merges[0].Unit)
	assert.Equal(t, []string{"M", "N"}, result.Merges[0].Skipped)
	assert.Equal(t, ":", result.Merges[1].Unit)
	assert.Equal(t, []string{"S"}, result.Merges[1].Merged)

	events, err := store.GetByRunID(context.Background(), result.RunID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, history.TypeRunStarted, events[0].Type)
	assert.Equal(t, history.TypeRunFinished, events[len(events)-1].Type)
}

func TestRunDefaultOperationsAtUnit(t *testing.T) {
	svc, _, _, exists := newService(t)

	result, err := svc.Run(context.Background(), Request{Manifest: parse(t, endToEndManifest), Unit: "S"})

	require.NoError(t, err)
	assert.Equal(t, ":S", result.Unit)
	assert.Equal(t, []string{registry.Clean, registry.Build}, result.Requested)
	assert.True(t, exists("/ws/S/M/build/libs/M-1.2.3.jar"))
	assert.False(t, exists("/ws/S/build/S.repository"))
}

func TestRunManifestOperation(t *testing.T) {
	svc, runner, _, _ := newService(t)

	result, err := svc.Run(context.Background(), Request{
		Manifest:   parse(t, endToEndManifest),
		Unit:       ":S:M",
		Operations: []string{"lint"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{":S:M:build", ":S:M:lint"}, result.Executed)
	assert.Equal(t, []string{"/ws/S/M golint ./..."}, runner.calls)
}

func TestRunFailingOperation(t *testing.T) {
	svc, runner, store, _ := newService(t)
	runner.err = errors.New("lint errors")

	result, err := svc.Run(context.Background(), Request{
		Manifest:   parse(t, endToEndManifest),
		Unit:       ":S:M",
		Operations: []string{"lint"},
	})

	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, []string{":S:M:lint"}, result.Failed)

	p := history.NewProjection(store, 5)
	require.NoError(t, p.Rebuild(context.Background()))
	summary, ok := p.Run(result.RunID)
	require.True(t, ok)
	assert.Equal(t, string(StatusFailed), summary.Status)
	assert.Equal(t, []string{":S:M:lint"}, summary.Failed)
}

func TestRunRetriesFailingCommand(t *testing.T) {
	svc, runner, _, _ := newService(t)
	runner.err = errors.New("registry unavailable")
	m := parse(t, endToEndManifest)
	m.Root.Children[0].Children[0].Operations[0].Retry = &config.RetrySpec{
		Attempts: 2,
		Backoff:  config.RetryBackoffFixed,
		Initial:  time.Millisecond,
	}

	_, err := svc.Run(context.Background(), Request{Manifest: m, Unit: ":S:M", Operations: []string{"lint"}})

	require.Error(t, err)
	assert.Len(t, runner.calls, 3)
}

func TestRunBareInvocationOnProjectKeepsOutput(t *testing.T) {
	svc, _, _, exists := newService(t)
	m := parse(t, `
root:
  name: solo
  path: /ws
  version: 1.0.0
  publish:
    artifacts: [jar]
`)

	result, err := svc.Run(context.Background(), Request{Manifest: m})

	require.NoError(t, err)
	assert.Equal(t, []string{registry.Clean, registry.Build}, result.Requested)
	assert.Equal(t, []string{":clean", ":build"}, result.Executed)
	assert.True(t, exists("/ws/build/libs/solo-1.0.0.jar"))
}

func TestRunPublishableImplementation(t *testing.T) {
	svc, _, _, exists := newService(t)
	m := parse(t, `
root:
  name: I
  kind: implementation
  path: /ws
  group: org.example
  version: 2.0.0
  publish:
    artifacts: [jar]
  children:
    - name: M
      publish:
        artifacts: [jar]
`)

	result, err := svc.Run(context.Background(), Request{Manifest: m, Operations: []string{registry.Publish}})

	require.NoError(t, err)
	assert.True(t, result.Status.IsSuccess())
	assert.True(t, exists("/ws/build/I.repository/org/example/M/2.0.0/M-2.0.0.jar"))
	assert.True(t, exists("/ws/build/I.repository/org/example/I/2.0.0/I-2.0.0.jar"))
}

func TestRunCanceled(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Run(ctx, Request{Manifest: parse(t, endToEndManifest)})

	require.Error(t, err)
	assert.Equal(t, StatusCanceled, result.Status)
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	svc, _, _, _ := newService(t)
	dir := t.TempDir()
	m := parse(t, endToEndManifest)
	m.Metrics.Textfile = filepath.Join(dir, "metrics", "hierbuild.prom")

	_, err := svc.Run(context.Background(), Request{Manifest: m, Operations: []string{registry.Build}})

	require.NoError(t, err)
	data, err := os.ReadFile(m.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hierbuild_run_outcomes_total")
	assert.Contains(t, string(data), `operation="build"`)
}

func TestRunWithoutHistory(t *testing.T) {
	svc, _, _, _ := newService(t)
	svc.WithHistoryOpener(func(string) (history.Store, error) { return nil, errors.New("locked") })

	result, err := svc.Run(context.Background(), Request{Manifest: parse(t, endToEndManifest)})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestPrepareListsOperations(t *testing.T) {
	session, err := Prepare(context.Background(), parse(t, endToEndManifest), SessionOptions{Filesystem: memfs.New()})
	require.NoError(t, err)

	ops, err := session.Operations(":S:M")
	require.NoError(t, err)
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Ref.Name)
	}
	assert.Equal(t, []string{registry.Clean, registry.Build, registry.Publish, "lint"}, names)

	_, err = session.Operations(":missing")
	assert.Error(t, err)
}

func TestStatusIsSuccess(t *testing.T) {
	assert.True(t, StatusSuccess.IsSuccess())
	assert.False(t, StatusFailed.IsSuccess())
	assert.False(t, StatusCanceled.IsSuccess())
}
