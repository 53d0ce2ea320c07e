// Package graph is the boundary to the build-graph executor.
//
// Graph is the capability set the aggregation core consumes: idempotent
// define-or-get of named operations, dependency edges expressed as unresolved
// addresses, post-actions, default operations and deferred after-evaluation hooks.
// Memory is the in-process implementation used by the CLI and by tests: it
// evaluates a unit hierarchy top-down and executes operations sequentially in
// dependency order, failing fast.
package graph

import (
	"context"

	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// Action is a post-action run after all dependencies of its operation succeeded.
type Action func(ctx context.Context) error

// TaskRef identifies an operation by owning unit and name.
type TaskRef struct {
	Unit *unit.Unit
	Name string
}

// String renders the operation as "<display path>:<name>", e.g. ":platform:impl:build".
func (r TaskRef) String() string {
	if r.Unit == nil {
		return r.Name
	}
	p := r.Unit.DisplayPath()
	if p == unit.PathSeparator {
		return p + r.Name
	}
	return p + unit.PathSeparator + r.Name
}

// Graph is the executor capability set consumed by the aggregation core.
type Graph interface {
	// DefineOrGet returns the operation name on u, creating a no-op operation if absent.
	DefineOrGet(u *unit.Unit, name string) TaskRef
	// Lookup reports whether the operation exists.
	Lookup(u *unit.Unit, name string) (TaskRef, bool)
	// AddDependency adds addr to the operation's dependency set (set semantics).
	AddDependency(ref TaskRef, addr Address)
	// AddPostAction appends action to the operation's post-actions.
	AddPostAction(ref TaskRef, action Action)
	// SetDefaultOperations adds names to the operations run on a bare invocation of u.
	SetDefaultOperations(u *unit.Unit, names ...string)
	// DefaultOperations returns the default operations of u in registration order.
	DefaultOperations(u *unit.Unit) []string
	// AfterEvaluate defers hook until u's configuration has completed.
	AfterEvaluate(u *unit.Unit, hook func(*unit.Unit))
}

// OperationInfo describes a registered operation for listings.
type OperationInfo struct {
	Ref          TaskRef
	Dependencies []Address
	PostActions  int
	Default      bool
}
