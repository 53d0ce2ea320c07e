package unit

import (
	"path/filepath"
	"strings"
)

const (
	// UnspecifiedVersion is the sentinel for "inherit the version from the parent".
	UnspecifiedVersion = "unspecified"

	// PathSeparator separates unit identities in intra-tree paths and task addresses.
	PathSeparator = ":"

	// BuildDirName is the output directory convention below a unit's root path.
	BuildDirName = "build"

	// RepositorySuffix is appended to a unit identity to name its aggregate repository.
	RepositorySuffix = ".repository"
)

// Kind selects the aggregation profile a unit is configured with.
type Kind string

const (
	KindDomain         Kind = "domain"
	KindPlatform       Kind = "platform"
	KindImplementation Kind = "implementation"
	KindProject        Kind = "project"
)

// IncludesBuilds reports whether children of this kind are independent included builds.
func (k Kind) IncludesBuilds() bool {
	return k == KindDomain || k == KindPlatform
}

// Mode describes how a child is addressed from its parent.
type Mode int

const (
	// ModeRoot marks the top of the hierarchy.
	ModeRoot Mode = iota
	// ModeSubProject is a child inside the same build tree.
	ModeSubProject
	// ModeIncludedBuild is a child that is an independent build tree.
	ModeIncludedBuild
)

func (m Mode) String() string {
	switch m {
	case ModeSubProject:
		return "subproject"
	case ModeIncludedBuild:
		return "included-build"
	default:
		return "root"
	}
}

// PublishCapability is the publishable-artifact capability a unit may declare.
// Presence on a unit is the capability check.
type PublishCapability interface {
	// AddPublicationRepository registers (or replaces) a named publication destination.
	AddPublicationRepository(name, url string)
}

// Unit is one node in the build hierarchy.
type Unit struct {
	identity   string
	group      string
	version    string
	rootPath   string
	kind       Kind
	mode       Mode
	parent     *Unit
	children   []*Unit
	publishing PublishCapability
	state      State
}

// Option configures a Unit at construction time.
type Option func(*Unit)

// WithGroup sets an explicit group.
func WithGroup(group string) Option {
	return func(u *Unit) { u.group = group }
}

// WithVersion sets an explicit version. Empty means unspecified.
func WithVersion(version string) Option {
	return func(u *Unit) {
		if version != "" {
			u.version = version
		}
	}
}

// WithKind sets the unit kind.
func WithKind(kind Kind) Option {
	return func(u *Unit) { u.kind = kind }
}

// WithPublishing attaches the publishable-artifact capability.
func WithPublishing(p PublishCapability) Option {
	return func(u *Unit) { u.publishing = p }
}

// New creates a unit rooted at rootPath. Relative root paths are made absolute.
func New(identity, rootPath string, opts ...Option) *Unit {
	if abs, err := filepath.Abs(rootPath); err == nil {
		rootPath = abs
	}
	u := &Unit{
		identity: identity,
		version:  UnspecifiedVersion,
		rootPath: rootPath,
		kind:     KindProject,
		mode:     ModeRoot,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// AddChild appends child to the unit's children. The addressing mode follows the
// parent's kind. Only the inclusion mechanism calls this, before configuration starts.
func (u *Unit) AddChild(child *Unit) *Unit {
	child.parent = u
	if u.kind.IncludesBuilds() {
		child.mode = ModeIncludedBuild
	} else {
		child.mode = ModeSubProject
	}
	u.children = append(u.children, child)
	return child
}

func (u *Unit) Identity() string { return u.identity }
func (u *Unit) Group() string { return u.group }
func (u *Unit) Version() string { return u.version }
func (u *Unit) RootPath() string { return u.rootPath }
func (u *Unit) Kind() Kind { return u.kind }
func (u *Unit) Mode() Mode { return u.mode }
func (u *Unit) Parent() *Unit { return u.parent }
func (u *Unit) Publishing() PublishCapability { return u.publishing }
func (u *Unit) SetPublishing(p PublishCapability) { u.publishing = p }

// SetGroup assigns the group.
func (u *Unit) SetGroup(group string) { u.group = group }

// SetVersion assigns the version. Empty resets to unspecified.
func (u *Unit) SetVersion(version string) {
	if version == "" {
		version = UnspecifiedVersion
	}
	u.version = version
}

// IsVersionSpecified reports whether the unit has an explicit version.
func (u *Unit) IsVersionSpecified() bool {
	return u.version != UnspecifiedVersion
}

// Children returns a copy of the ordered child list.
func (u *Unit) Children() []*Unit {
	out := make([]*Unit, len(u.children))
	copy(out, u.children)
	return out
}

// OutputPath is the build output directory of the unit.
func (u *Unit) OutputPath() string {
	return filepath.Join(u.rootPath, BuildDirName)
}

// RepositoryName is the directory name of the unit's aggregate repository.
func (u *Unit) RepositoryName() string {
	return u.identity + RepositorySuffix
}

// RepositoryPath is the location of the unit's aggregate repository.
func (u *Unit) RepositoryPath() string {
	return filepath.Join(u.OutputPath(), u.RepositoryName())
}

// BuildRoot returns the root unit of the build tree this unit belongs to:
// the nearest ancestor (or self) that is the hierarchy root or an included build.
func (u *Unit) BuildRoot() *Unit {
	cur := u
	for cur.parent != nil && cur.mode != ModeIncludedBuild {
		cur = cur.parent
	}
	return cur
}

// Path is the intra-tree path of the unit relative to its build root,
// ":" for the build root itself and ":a:b" below it.
func (u *Unit) Path() string {
	return absolutePath(u.BuildRoot(), u)
}

// DisplayPath is the unit path relative to the top of the whole hierarchy,
// crossing included-build boundaries. It is unique within one hierarchy.
func (u *Unit) DisplayPath() string {
	top := u
	for top.parent != nil {
		top = top.parent
	}
	return absolutePath(top, u)
}

// RelativePath returns the path of u below ancestor without a leading separator
// ("child" or "child:grandchild"). It returns false when ancestor is not above u.
func (u *Unit) RelativePath(ancestor *Unit) (string, bool) {
	var segments []string
	for cur := u; cur != nil; cur = cur.parent {
		if cur == ancestor {
			reverse(segments)
			return strings.Join(segments, PathSeparator), true
		}
		segments = append(segments, cur.identity)
	}
	return "", false
}

// Child looks up a direct child by identity.
func (u *Unit) Child(identity string) (*Unit, bool) {
	for _, c := range u.children {
		if c.identity == identity {
			return c, true
		}
	}
	return nil, false
}

// Walk visits u and every descendant in pre-order. Returning an error stops the walk.
func (u *Unit) Walk(fn func(*Unit) error) error {
	if err := fn(u); err != nil {
		return err
	}
	for _, c := range u.children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Subtree returns u and all of its descendants in pre-order.
func (u *Unit) Subtree() []*Unit {
	var out []*Unit
	_ = u.Walk(func(x *Unit) error {
		out = append(out, x)
		return nil
	})
	return out
}

func (u *Unit) String() string {
	return u.DisplayPath()
}

func absolutePath(root, u *Unit) string {
	rel, ok := u.RelativePath(root)
	if !ok || rel == "" {
		return PathSeparator
	}
	return PathSeparator + rel
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
