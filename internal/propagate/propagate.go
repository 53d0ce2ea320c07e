// Package propagate pushes shared metadata (group, version) from a unit to its children.
package propagate

import (
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// Propagate registers, for every child of parent, a hook that copies parent's
// metadata onto the child once the child's own configuration has completed.
// Values are read when the hook fires, so a parent set later in its own
// configuration still propagates.
func Propagate(g graph.Graph, parent *unit.Unit) {
	for _, child := range parent.Children() {
		g.AfterEvaluate(child, func(c *unit.Unit) {
			Inherit(parent, c)
		})
	}
}

// Inherit copies the group unconditionally and the version only when the child
// has none of its own.
func Inherit(parent, child *unit.Unit) {
	child.SetGroup(parent.Group())
	if !child.IsVersionSpecified() {
		child.SetVersion(parent.Version())
	}
}
