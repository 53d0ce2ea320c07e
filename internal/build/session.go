package build

import (
	"context"

	"github.com/go-git/go-billy/v5"

	"git.home.luguber.info/inful/hierbuild/internal/aggregate"
	"git.home.luguber.info/inful/hierbuild/internal/command"
	"git.home.luguber.info/inful/hierbuild/internal/config"
	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/metrics"
	"git.home.luguber.info/inful/hierbuild/internal/publish"
	"git.home.luguber.info/inful/hierbuild/internal/registry"
	"git.home.luguber.info/inful/hierbuild/internal/repository"
	"git.home.luguber.info/inful/hierbuild/internal/retry"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// Session is an evaluated hierarchy ready for execution.
type Session struct {
	Manifest  *config.Manifest
	Hierarchy *config.Hierarchy
	Graph     *graph.Memory
	Engine    *repository.Engine
}

// SessionOptions wires a session's collaborators. Zero values are valid.
type SessionOptions struct {
	Filesystem  billy.Filesystem
	Runner      command.Runner
	Recorder    metrics.Recorder
	Observer    graph.Observer
	OnMerge     []repository.MergeListener
	ToolVersion string
}

// Prepare assembles and evaluates the hierarchy of m. Every unit is configured
// with its aggregation profile first and its manifest operations second.
func Prepare(ctx context.Context, m *config.Manifest, opts SessionOptions) (*Session, error) {
	if m == nil {
		return nil, ferrors.ConfigError("manifest required").Build()
	}
	if opts.Runner == nil {
		opts.Runner = command.ExecRunner{}
	}

	engine := repository.NewEngine(opts.Filesystem).WithRecorder(opts.Recorder)
	for _, l := range opts.OnMerge {
		engine.OnMerge(l)
	}
	fs := engine.Filesystem()

	h, err := config.Assemble(m, func(spec *config.PublishSpec) unit.PublishCapability {
		return publish.NewMaven(fs, spec.Artifacts...)
	})
	if err != nil {
		return nil, err
	}

	g := graph.NewMemory().WithObserver(opts.Observer)
	agg := aggregate.New(g, engine).WithContext(ctx)
	if opts.ToolVersion != "" {
		agg.WithToolVersion(opts.ToolVersion)
	}
	for _, u := range h.Units() {
		spec := h.Spec(u)
		g.OnConfigure(u, func(u *unit.Unit) {
			agg.Apply(u)
			defineOperations(g, opts.Runner, u, spec)
		})
	}
	if err := g.Evaluate(ctx, h.Root); err != nil {
		return nil, err
	}
	return &Session{Manifest: m, Hierarchy: h, Graph: g, Engine: engine}, nil
}

// defineOperations registers the operations declared for u in the manifest.
// Addresses were validated when the manifest was loaded.
func defineOperations(g graph.Graph, runner command.Runner, u *unit.Unit, spec *config.UnitSpec) {
	if spec == nil {
		return
	}
	for _, op := range spec.Operations {
		deps := make([]graph.Address, 0, len(op.DependsOn))
		for _, raw := range op.DependsOn {
			if addr, err := graph.ParseAddress(raw); err == nil {
				deps = append(deps, addr)
			}
		}
		var action graph.Action
		if len(op.Command) > 0 {
			action = command.Action(runner, u, op.Command)
			if op.Retry != nil {
				action = retry.FromSpec(op.Retry).Wrap(action)
			}
		}
		registry.DefineOrGetOperation(g, u, op.Name, action, deps...)
	}
}

// Target resolves a unit by display path.
func (s *Session) Target(path string) (*unit.Unit, error) {
	u, ok := s.Hierarchy.Find(path)
	if !ok {
		return nil, ferrors.NotFoundError("unit not found").
			WithContext("unit", path).
			UserAction().
			Build()
	}
	return u, nil
}

// Operations lists the operations registered on the unit at path.
func (s *Session) Operations(path string) ([]graph.OperationInfo, error) {
	u, err := s.Target(path)
	if err != nil {
		return nil, err
	}
	return s.Graph.Operations(u), nil
}
