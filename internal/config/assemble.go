package config

import (
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// PublisherFactory creates the publishing capability of a unit declaring one.
type PublisherFactory func(spec *PublishSpec) unit.PublishCapability

// Hierarchy is the assembled unit tree of a manifest.
type Hierarchy struct {
	Root  *unit.Unit
	specs map[*unit.Unit]*UnitSpec
	paths map[string]*unit.Unit
}

// Spec returns the declaration a unit was assembled from.
func (h *Hierarchy) Spec(u *unit.Unit) *UnitSpec { return h.specs[u] }

// Units returns every unit in pre-order.
func (h *Hierarchy) Units() []*unit.Unit { return h.Root.Subtree() }

// Find looks a unit up by display path (":" for the root, ":a:b" below it).
// The leading separator is optional.
func (h *Hierarchy) Find(path string) (*unit.Unit, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return h.Root, true
	}
	if !strings.HasPrefix(path, unit.PathSeparator) {
		path = unit.PathSeparator + path
	}
	u, ok := h.paths[path]
	return u, ok
}

// Assemble materializes the unit tree of m. All children exist before any unit is
// configured. Unit root paths resolve against the parent's root, the top against
// the manifest directory. newPublisher may be nil when publishing is not wired.
func Assemble(m *Manifest, newPublisher PublisherFactory) (*Hierarchy, error) {
	h := &Hierarchy{specs: make(map[*unit.Unit]*UnitSpec), paths: make(map[string]*unit.Unit)}
	root, err := h.assemble(&m.Root, m.Resolve(m.Root.Path), newPublisher)
	if err != nil {
		return nil, err
	}
	h.Root = root
	for _, u := range root.Subtree() {
		h.paths[u.DisplayPath()] = u
	}
	return h, nil
}

func (h *Hierarchy) assemble(spec *UnitSpec, rootPath string, newPublisher PublisherFactory) (*unit.Unit, error) {
	kind, err := ParseKind(spec.Kind)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid unit kind").
			WithContext("unit", spec.Name).
			Build()
	}
	opts := []unit.Option{unit.WithKind(kind), unit.WithGroup(spec.Group)}
	if spec.Version != unit.UnspecifiedVersion {
		opts = append(opts, unit.WithVersion(spec.Version))
	}
	if spec.Publish != nil && newPublisher != nil {
		opts = append(opts, unit.WithPublishing(newPublisher(spec.Publish)))
	}
	u := unit.New(spec.Name, rootPath, opts...)
	h.specs[u] = spec

	for i := range spec.Children {
		child := &spec.Children[i]
		childPath := child.Path
		if childPath == "" {
			childPath = child.Name
		}
		if !filepath.IsAbs(childPath) {
			childPath = filepath.Join(rootPath, childPath)
		}
		c, err := h.assemble(child, childPath, newPublisher)
		if err != nil {
			return nil, err
		}
		u.AddChild(c)
	}
	return u, nil
}
