package graph

import (
	"context"
	"log/slog"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
	"git.home.luguber.info/inful/hierbuild/internal/util/sets"
)

type task struct {
	ref     TaskRef
	deps    sets.Ordered[Address]
	actions []Action
}

// Memory is an in-process Graph with a sequential, fail-fast executor.
// It is not safe for concurrent use; one invocation per instance is assumed.
type Memory struct {
	tasks     map[*unit.Unit]map[string]*task
	order     map[*unit.Unit][]string
	defaults  map[*unit.Unit]*sets.Ordered[string]
	configure map[*unit.Unit][]func(*unit.Unit)
	hooks     map[*unit.Unit][]func(*unit.Unit)
	builds    map[string]*unit.Unit
	observer  Observer
}

var _ Graph = (*Memory)(nil)

// NewMemory creates an empty in-memory build graph.
func NewMemory() *Memory {
	return &Memory{
		tasks:     make(map[*unit.Unit]map[string]*task),
		order:     make(map[*unit.Unit][]string),
		defaults:  make(map[*unit.Unit]*sets.Ordered[string]),
		configure: make(map[*unit.Unit][]func(*unit.Unit)),
		hooks:     make(map[*unit.Unit][]func(*unit.Unit)),
		builds:    make(map[string]*unit.Unit),
		observer:  NoopObserver{},
	}
}

// WithObserver sets the operation lifecycle observer.
func (m *Memory) WithObserver(o Observer) *Memory {
	if o == nil {
		o = NoopObserver{}
	}
	m.observer = o
	return m
}

// DefineOrGet implements Graph.
func (m *Memory) DefineOrGet(u *unit.Unit, name string) TaskRef {
	return m.define(u, name).ref
}

func (m *Memory) define(u *unit.Unit, name string) *task {
	byName, ok := m.tasks[u]
	if !ok {
		byName = make(map[string]*task)
		m.tasks[u] = byName
	}
	if t, ok := byName[name]; ok {
		return t
	}
	t := &task{ref: TaskRef{Unit: u, Name: name}}
	byName[name] = t
	m.order[u] = append(m.order[u], name)
	return t
}

// Lookup implements Graph.
func (m *Memory) Lookup(u *unit.Unit, name string) (TaskRef, bool) {
	t, ok := m.tasks[u][name]
	if !ok {
		return TaskRef{}, false
	}
	return t.ref, true
}

// AddDependency implements Graph.
func (m *Memory) AddDependency(ref TaskRef, addr Address) {
	m.define(ref.Unit, ref.Name).deps.Add(addr)
}

// AddPostAction implements Graph. A nil action is ignored.
func (m *Memory) AddPostAction(ref TaskRef, action Action) {
	if action == nil {
		return
	}
	t := m.define(ref.Unit, ref.Name)
	t.actions = append(t.actions, action)
}

// SetDefaultOperations implements Graph.
func (m *Memory) SetDefaultOperations(u *unit.Unit, names ...string) {
	d, ok := m.defaults[u]
	if !ok {
		d = sets.NewOrdered[string]()
		m.defaults[u] = d
	}
	for _, n := range names {
		d.Add(n)
	}
}

// DefaultOperations implements Graph.
func (m *Memory) DefaultOperations(u *unit.Unit) []string {
	if d, ok := m.defaults[u]; ok {
		return d.Values()
	}
	return nil
}

// OnConfigure registers the unit's own configuration logic, run when the unit is evaluated.
func (m *Memory) OnConfigure(u *unit.Unit, fn func(*unit.Unit)) {
	m.configure[u] = append(m.configure[u], fn)
}

// AfterEvaluate implements Graph. Hooks for a unit that already finished evaluation run immediately.
func (m *Memory) AfterEvaluate(u *unit.Unit, hook func(*unit.Unit)) {
	if u.State().Evaluated() {
		hook(u)
		return
	}
	m.hooks[u] = append(m.hooks[u], hook)
}

// Operations lists the operations of u in definition order.
func (m *Memory) Operations(u *unit.Unit) []OperationInfo {
	defaults := sets.New(m.DefaultOperations(u)...)
	out := make([]OperationInfo, 0, len(m.order[u]))
	for _, name := range m.order[u] {
		t := m.tasks[u][name]
		out = append(out, OperationInfo{
			Ref:          t.ref,
			Dependencies: t.deps.Values(),
			PostActions:  len(t.actions),
			Default:      defaults.Has(name),
		})
	}
	return out
}

// Evaluate configures every unit of the hierarchy below root in pre-order, so a
// parent always finishes (including its after-evaluation hooks) before its children
// start. For each unit: configure actions, then after-evaluation hooks in
// registration order.
func (m *Memory) Evaluate(ctx context.Context, root *unit.Unit) error {
	if err := m.indexBuilds(root); err != nil {
		return err
	}
	return root.Walk(func(u *unit.Unit) error {
		if err := ctx.Err(); err != nil {
			return ferrors.CanceledError("evaluation canceled").WithCause(err).Build()
		}
		m.evaluate(ctx, u)
		return nil
	})
}

func (m *Memory) indexBuilds(root *unit.Unit) error {
	m.builds[root.Identity()] = root
	return root.Walk(func(u *unit.Unit) error {
		if u.Mode() != unit.ModeIncludedBuild {
			return nil
		}
		if existing, ok := m.builds[u.Identity()]; ok && existing != u {
			return ferrors.ValidationError("duplicate included build name").
				WithContext("name", u.Identity()).
				WithContext("first", existing.DisplayPath()).
				WithContext("second", u.DisplayPath()).
				Build()
		}
		m.builds[u.Identity()] = u
		return nil
	})
}

func (m *Memory) evaluate(ctx context.Context, u *unit.Unit) {
	if u.State().Evaluated() {
		return
	}
	u.SetState(unit.StateConfiguring)
	for i := 0; i < len(m.configure[u]); i++ {
		m.configure[u][i](u)
	}
	u.SetState(unit.StateConfigured)
	// hooks may register further hooks on the same unit; index loop picks them up
	for i := 0; i < len(m.hooks[u]); i++ {
		m.hooks[u][i](u)
	}
	delete(m.hooks, u)
	u.SetState(unit.StateOperationsRegistered)
	observability.DebugContext(ctx, "Unit evaluated",
		logfields.Unit(u.DisplayPath()),
		logfields.Group(u.Group()),
		logfields.Version(u.Version()),
		logfields.Count(len(m.order[u])))
}

// Execute runs the named operations of u, or its default operations when names is
// empty. Each operation runs at most once; dependencies run first in insertion
// order. The first failure stops the run and skips the post-actions of every
// operation depending on it.
func (m *Memory) Execute(ctx context.Context, u *unit.Unit, names ...string) (*ExecutionResult, error) {
	start := time.Now()
	res := &ExecutionResult{}
	if len(names) == 0 {
		names = m.DefaultOperations(u)
	}

	requested := make([]*task, 0, len(names))
	for _, name := range names {
		t, ok := m.tasks[u][name]
		if !ok {
			return res, ferrors.NotFoundError("operation not found").
				WithContext("operation", TaskRef{Unit: u, Name: name}.String()).
				Build()
		}
		requested = append(requested, t)
		res.Requested = append(res.Requested, t.ref)
	}

	run := &execution{graph: m, result: res, done: make(map[*task]error), active: sets.New[*task]()}
	for _, t := range requested {
		if err := run.execute(ctx, t); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (m *Memory) resolve(owner *unit.Unit, addr Address) (*task, error) {
	var target *unit.Unit
	switch addr.Kind() {
	case AddressCrossBuild:
		b, ok := m.builds[addr.Build()]
		if !ok {
			return nil, ferrors.NotFoundError("included build not found").
				WithContext("address", addr.String()).
				Build()
		}
		target = b
	default:
		target = owner
		path := addr.Path()
		if rest, ok := strings.CutPrefix(path, unit.PathSeparator); ok {
			target = owner.BuildRoot()
			path = rest
		}
		for _, seg := range strings.Split(path, unit.PathSeparator) {
			if seg == "" {
				continue
			}
			child, ok := target.Child(seg)
			if !ok {
				return nil, ferrors.NotFoundError("unit not found").
					WithContext("address", addr.String()).
					WithContext("unit", target.DisplayPath()).
					WithContext("child", seg).
					Build()
			}
			target = child
		}
	}
	t, ok := m.tasks[target][addr.Name()]
	if !ok {
		return nil, ferrors.NotFoundError("task not found").
			WithContext("address", addr.String()).
			WithContext("operation", TaskRef{Unit: target, Name: addr.Name()}.String()).
			Build()
	}
	return t, nil
}

type execution struct {
	graph  *Memory
	result *ExecutionResult
	done   map[*task]error
	active sets.Set[*task]
}

func (r *execution) execute(ctx context.Context, t *task) error {
	if err, ok := r.done[t]; ok {
		return err
	}
	if r.active.Has(t) {
		return ferrors.ValidationError("dependency cycle detected").
			WithContext("operation", t.ref.String()).
			Build()
	}
	r.active.Add(t)
	defer r.active.Delete(t)

	for _, addr := range t.deps.Values() {
		dep, err := r.graph.resolve(t.ref.Unit, addr)
		if err == nil {
			err = r.execute(ctx, dep)
		}
		if err != nil {
			r.finish(t, 0, err)
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		cerr := ferrors.CanceledError("operation canceled").
			WithCause(err).
			WithContext("operation", t.ref.String()).
			Build()
		r.finish(t, 0, cerr)
		return cerr
	}

	opCtx := observability.WithOperation(ctx, t.ref.String())
	t.ref.Unit.SetState(unit.StateOperationExecuting)
	r.graph.observer.OperationStarted(t.ref)
	start := time.Now()
	var runErr error
	for _, action := range t.actions {
		if err := action(opCtx); err != nil {
			runErr = ferrors.OperationError("operation failed").
				WithCause(err).
				WithContext("operation", t.ref.String()).
				Build()
			break
		}
	}
	d := time.Since(start)
	t.ref.Unit.SetState(unit.StateOperationComplete)
	r.graph.observer.OperationFinished(t.ref, d, runErr)
	r.finish(t, d, runErr)

	if runErr != nil {
		observability.ErrorContext(opCtx, "Operation failed", logfields.Error(runErr))
		return runErr
	}
	observability.DebugContext(opCtx, "Operation completed",
		slog.Int("post_actions", len(t.actions)),
		logfields.DurationMS(float64(d.Microseconds())/1000))
	return nil
}

func (r *execution) finish(t *task, d time.Duration, err error) {
	r.done[t] = err
	status := OutcomeSucceeded
	if err != nil {
		status = OutcomeFailed
	}
	r.result.Outcomes = append(r.result.Outcomes, Outcome{Ref: t.ref, Status: status, Duration: d, Err: err})
}
