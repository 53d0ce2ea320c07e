// Package aggregate applies the aggregation profiles to units.
//
// A profile makes clean, build and publish (and for domains, wrapper) on a
// parent depend on the same-named operations of every child, propagates group
// and version down, and merges the children's repositories into the parent's
// when publish runs. Children never learn that they are aggregated.
//
// Profiles are applied while the unit itself is being configured; everything
// that depends on child state is deferred to after-evaluation hooks.
package aggregate

import (
	"context"
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
	"git.home.luguber.info/inful/hierbuild/internal/propagate"
	"git.home.luguber.info/inful/hierbuild/internal/publish"
	"git.home.luguber.info/inful/hierbuild/internal/registry"
	"git.home.luguber.info/inful/hierbuild/internal/repository"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// Operations aggregated by the Domain profile.
var domainOperations = []string{registry.Clean, registry.Build, registry.Publish, registry.Wrapper}

// Operations aggregated by the Implementation profile.
var implementationOperations = []string{registry.Clean, registry.Build, registry.Publish}

// ArtifactPublisher is a publishing capability that can also package and publish a unit.
type ArtifactPublisher interface {
	unit.PublishCapability
	Package(ctx context.Context, u *unit.Unit) error
	Publish(ctx context.Context, u *unit.Unit) error
}

// Aggregator applies profiles against one build graph.
type Aggregator struct {
	graph   graph.Graph
	engine  *repository.Engine
	version string
	ctx     context.Context
}

// New creates an aggregator registering operations on g and running merges and
// cleanup through engine.
func New(g graph.Graph, engine *repository.Engine) *Aggregator {
	return &Aggregator{graph: g, engine: engine, version: "dev", ctx: context.Background()}
}

// WithContext sets the context logged with by configuration-time hooks.
func (a *Aggregator) WithContext(ctx context.Context) *Aggregator {
	if ctx != nil {
		a.ctx = ctx
	}
	return a
}

// WithToolVersion sets the version recorded by the wrapper operation.
func (a *Aggregator) WithToolVersion(v string) *Aggregator {
	a.version = v
	return a
}

// Apply selects the profile by unit kind: domains and platforms get the Domain
// profile, implementations the Implementation profile, projects the leaf
// operations. Build roots additionally get a wrapper operation.
func (a *Aggregator) Apply(u *unit.Unit) {
	switch u.Kind() {
	case unit.KindDomain, unit.KindPlatform:
		a.ApplyDomain(u)
	case unit.KindImplementation:
		a.ApplyImplementation(u)
	default:
		a.ApplyProject(u)
	}
	if u.BuildRoot() == u {
		a.ApplyWrapper(u)
	}
}

// ApplyDomain aggregates clean, build, publish and wrapper over the included
// builds below u. Clean deletes u's output path, publish merges the children's
// repositories. Group and version are propagated to the children.
func (a *Aggregator) ApplyDomain(u *unit.Unit) {
	propagate.Propagate(a.graph, u)
	children := u.Children()
	for _, name := range domainOperations {
		deps := make([]graph.Address, 0, len(children))
		for _, child := range children {
			deps = append(deps, graph.CrossBuild(child.Identity(), name))
		}
		registry.DefineOrGetOperation(a.graph, u, name, a.postAction(u, name), deps...)
	}
}

// ApplyImplementation aggregates clean, build and publish over the sub-projects
// of u, propagates group and version, and points every publishable unit of the
// subtree at u's repository. A publishable implementation packages its own
// artifacts during build and publishes them after the merge.
func (a *Aggregator) ApplyImplementation(u *unit.Unit) {
	propagate.Propagate(a.graph, u)

	target := u.RepositoryPath()
	for _, member := range u.Subtree() {
		// the capability may be declared by the member's own configuration
		a.graph.AfterEvaluate(member, func(m *unit.Unit) {
			p := m.Publishing()
			if p == nil {
				return
			}
			p.AddPublicationRepository(publish.RepositoryName, target)
			observability.DebugContext(a.ctx, "Publication repository registered",
				logfields.Unit(m.DisplayPath()),
				logfields.Name(publish.RepositoryName),
				logfields.URL(target))
		})
	}

	children := u.Children()
	for _, name := range implementationOperations {
		deps := make([]graph.Address, 0, len(children))
		for _, child := range children {
			rel, _ := child.RelativePath(u)
			deps = append(deps, graph.IntraTree(rel, name))
		}
		registry.DefineOrGetOperation(a.graph, u, name, a.postAction(u, name), deps...)
	}
	registry.DefineOrGetOperation(a.graph, u, registry.Build, packageArtifacts(u))
	registry.DefineOrGetOperation(a.graph, u, registry.Publish, publishArtifacts(u, true))
}

// ApplyProject registers the operations of a unit that aggregates nothing: clean
// deletes the output path, build creates the output directory and packages
// artifacts when the unit is publishable, publish depends on build and
// publishes the packaged artifacts. Publish exists on every project so that
// aggregating parents can always address it; it does nothing without the
// capability. Clean is defined first so a bare invocation cleans, then builds.
func (a *Aggregator) ApplyProject(u *unit.Unit) {
	fs := a.engine.Filesystem()
	registry.DefineOrGetOperation(a.graph, u, registry.Clean, a.engine.CleanAction(u))
	registry.DefineOrGetOperation(a.graph, u, registry.Build, func(ctx context.Context) error {
		if err := fs.MkdirAll(u.OutputPath(), 0o755); err != nil {
			return fmt.Errorf("create output %s: %w", u.OutputPath(), err)
		}
		return nil
	})
	registry.DefineOrGetOperation(a.graph, u, registry.Build, packageArtifacts(u))
	registry.DefineOrGetOperation(a.graph, u, registry.Publish, publishArtifacts(u, false), graph.IntraTree("", registry.Build))
}

// packageArtifacts packages u's artifacts if u is publishable when the action runs.
func packageArtifacts(u *unit.Unit) graph.Action {
	return func(ctx context.Context) error {
		if p, ok := u.Publishing().(ArtifactPublisher); ok {
			return p.Package(ctx, u)
		}
		return nil
	}
}

// publishArtifacts publishes u's artifacts if u is publishable when the action
// runs. With repackage set the artifacts are packaged first, for units whose
// publish does not depend on their own build.
func publishArtifacts(u *unit.Unit, repackage bool) graph.Action {
	return func(ctx context.Context) error {
		p, ok := u.Publishing().(ArtifactPublisher)
		if !ok {
			return nil
		}
		if repackage {
			if err := p.Package(ctx, u); err != nil {
				return err
			}
		}
		return p.Publish(ctx, u)
	}
}

// ApplyWrapper defines the wrapper operation of a build root. It writes the
// tool version to <root>/.hierbuild/wrapper.properties.
func (a *Aggregator) ApplyWrapper(u *unit.Unit) {
	fs := a.engine.Filesystem()
	registry.DefineOrGetOperation(a.graph, u, registry.Wrapper, func(ctx context.Context) error {
		dir := filepath.Join(u.RootPath(), ".hierbuild")
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		f, err := fs.Create(filepath.Join(dir, "wrapper.properties"))
		if err != nil {
			return fmt.Errorf("write wrapper properties: %w", err)
		}
		_, err = fmt.Fprintf(f, "hierbuildVersion=%s\n", a.version)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			observability.DebugContext(ctx, "Wrapper written", logfields.Unit(u.DisplayPath()), logfields.Path(dir))
		}
		return err
	})
}

func (a *Aggregator) postAction(u *unit.Unit, name string) graph.Action {
	switch name {
	case registry.Clean:
		return a.engine.CleanAction(u)
	case registry.Publish:
		return a.engine.MergeAction(u)
	default:
		return nil
	}
}
