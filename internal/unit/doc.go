// Package unit describes one node of a build hierarchy.
//
// A Unit carries identity, group/version metadata, its working directory and the
// ordered list of child units discovered by the inclusion mechanism. Children are
// either included builds (independent trees addressed by build reference) or
// sub-projects (addressed by their path inside the same tree).
//
// Units hold no behaviour beyond accessors. Group and version are mutated only by
// a unit's own configuration and by metadata propagation.
package unit
