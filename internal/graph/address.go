package graph

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// AddressKind distinguishes how a dependency target is located.
type AddressKind int

const (
	// AddressIntraTree points at an operation of a unit in the same build tree.
	AddressIntraTree AddressKind = iota + 1
	// AddressCrossBuild points at a root operation of an included build.
	AddressCrossBuild
)

// Address is an unresolved reference to an operation. Resolution happens in the
// executor when the dependent operation runs. Addresses are comparable values.
type Address struct {
	kind  AddressKind
	path  string
	build string
	name  string
}

// IntraTree addresses operation name on the unit at relativePath below the unit that
// owns the dependency. An empty path is the owner itself; a leading separator makes
// the path absolute within the owner's build tree.
func IntraTree(relativePath, name string) Address {
	return Address{kind: AddressIntraTree, path: relativePath, name: name}
}

// CrossBuild addresses the root operation name of the included build called build.
func CrossBuild(build, name string) Address {
	return Address{kind: AddressCrossBuild, build: build, name: name}
}

func (a Address) Kind() AddressKind { return a.kind }
func (a Address) Name() string      { return a.name }
func (a Address) Path() string      { return a.path }
func (a Address) Build() string     { return a.build }

// String renders the address in its host notation:
// "<relativePath>:<name>" or includedBuild("<build>").task(":<name>").
func (a Address) String() string {
	switch a.kind {
	case AddressCrossBuild:
		return fmt.Sprintf("includedBuild(%q).task(%q)", a.build, unit.PathSeparator+a.name)
	default:
		if a.path == "" {
			return a.name
		}
		if strings.HasSuffix(a.path, unit.PathSeparator) {
			return a.path + a.name
		}
		return a.path + unit.PathSeparator + a.name
	}
}

// ParseAddress reads the textual forms accepted in manifests:
//
//	"build"                 operation of the owning unit
//	"core:build"            operation of a unit below the owner
//	":core:build"           operation addressed from the owner's build root
//	"@platform:build"       root operation of the included build "platform"
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	if rest, ok := strings.CutPrefix(s, "@"); ok {
		build, name, found := strings.Cut(rest, unit.PathSeparator)
		if !found || build == "" || name == "" || strings.Contains(name, unit.PathSeparator) {
			return Address{}, fmt.Errorf("invalid cross-build address %q: want @<build>:<operation>", s)
		}
		return CrossBuild(build, name), nil
	}
	idx := strings.LastIndex(s, unit.PathSeparator)
	if idx < 0 {
		return IntraTree("", s), nil
	}
	name := s[idx+1:]
	if name == "" {
		return Address{}, fmt.Errorf("invalid address %q: missing operation name", s)
	}
	path := s[:idx]
	if path == "" {
		path = unit.PathSeparator
	}
	return IntraTree(path, name), nil
}
