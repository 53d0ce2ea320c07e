// Package registry defines or augments named operations on a unit.
//
// Defining an operation is idempotent and additive: the first call creates a no-op
// operation, later calls only add dependency addresses and post-actions. Clean and
// build become default operations of the unit the first time they are defined there.
package registry

import (
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// Standard operation names aggregated across the hierarchy.
const (
	Clean   = "clean"
	Build   = "build"
	Publish = "publish"
	Wrapper = "wrapper"
)

var defaultOperations = map[string]bool{Clean: true, Build: true}

// IsDefault reports whether name joins a unit's default operations when first defined.
func IsDefault(name string) bool { return defaultOperations[name] }

// DefineOrGetOperation looks up or creates operation name on u, adds deps to its
// dependency set and appends postAction when non-nil. It returns name.
func DefineOrGetOperation(g graph.Graph, u *unit.Unit, name string, postAction graph.Action, deps ...graph.Address) string {
	_, existed := g.Lookup(u, name)
	ref := g.DefineOrGet(u, name)
	for _, addr := range deps {
		g.AddDependency(ref, addr)
	}
	g.AddPostAction(ref, postAction)
	if !existed && IsDefault(name) {
		g.SetDefaultOperations(u, name)
	}
	return name
}
