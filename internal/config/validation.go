package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/foundation/normalization"
	"git.home.luguber.info/inful/hierbuild/internal/graph"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// schemaConstraint accepts manifests compatible with SchemaVersion.
const schemaConstraint = "^" + SchemaVersion

var kindNormalizer = normalization.NewNormalizer("unit kind", map[string]unit.Kind{
	"domain":         unit.KindDomain,
	"platform":       unit.KindPlatform,
	"implementation": unit.KindImplementation,
	"project":        unit.KindProject,
}, unit.KindProject)

// ParseKind maps a manifest kind onto a unit kind; empty means project.
func ParseKind(raw string) (unit.Kind, error) {
	return kindNormalizer.NormalizeWithError(raw)
}

// Validate checks the manifest schema version and every unit declaration.
func Validate(m *Manifest) error {
	if err := checkSchemaVersion(m.Version); err != nil {
		return err
	}
	return validateUnit(&m.Root, "root")
}

func checkSchemaVersion(raw string) error {
	constraint, err := semver.NewConstraint(schemaConstraint)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "invalid schema constraint").Build()
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid manifest version").
			WithContext("version", raw).
			Fatal().
			UserAction().
			Build()
	}
	if !constraint.Check(v) {
		return ferrors.ValidationError("unsupported manifest version").
			WithContext("version", raw).
			WithContext("supported", schemaConstraint).
			Build()
	}
	return nil
}

func validateUnit(spec *UnitSpec, where string) error {
	if err := validateIdentity(spec.Name); err != nil {
		return invalid(where, "name", err)
	}
	where = fmt.Sprintf("%s(%s)", where, spec.Name)

	kind, err := ParseKind(spec.Kind)
	if err != nil {
		return invalid(where, "kind", err)
	}
	if err := ValidateVersion(spec.Version); err != nil {
		return invalid(where, "version", err)
	}
	if spec.Publish != nil {
		if kind.IncludesBuilds() {
			return invalid(where, "publish", fmt.Errorf("%s units only aggregate included builds and cannot publish artifacts", kind))
		}
		for _, ext := range spec.Publish.Artifacts {
			ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
			if ext == "" || strings.ContainsAny(ext, `/\`) {
				return invalid(where, "publish.artifacts", fmt.Errorf("invalid artifact extension %q", ext))
			}
		}
	}

	seenOps := make(map[string]bool, len(spec.Operations))
	for _, op := range spec.Operations {
		if err := validateIdentity(op.Name); err != nil {
			return invalid(where, "operations.name", err)
		}
		if seenOps[op.Name] {
			return invalid(where, "operations", fmt.Errorf("duplicate operation %q", op.Name))
		}
		seenOps[op.Name] = true
		for _, dep := range op.DependsOn {
			if _, err := graph.ParseAddress(dep); err != nil {
				return invalid(where, "operations."+op.Name+".depends_on", err)
			}
		}
		if len(op.Command) > 0 && strings.TrimSpace(op.Command[0]) == "" {
			return invalid(where, "operations."+op.Name+".command", fmt.Errorf("empty program"))
		}
		if op.Retry != nil {
			if err := validateRetry(op.Retry, len(op.Command) > 0); err != nil {
				return invalid(where, "operations."+op.Name+".retry", err)
			}
		}
	}

	seen := make(map[string]bool, len(spec.Children))
	for i := range spec.Children {
		child := &spec.Children[i]
		if seen[child.Name] {
			return invalid(where, "children", fmt.Errorf("duplicate child name %q", child.Name))
		}
		seen[child.Name] = true
		if err := validateUnit(child, where); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVersion accepts empty, the unspecified sentinel or a semantic version.
func ValidateVersion(v string) error {
	if v == "" || v == unit.UnspecifiedVersion {
		return nil
	}
	if _, err := semver.NewVersion(v); err != nil {
		return fmt.Errorf("invalid version %q: %w", v, err)
	}
	return nil
}

func validateRetry(r *RetrySpec, hasCommand bool) error {
	if !hasCommand {
		return fmt.Errorf("retry requires a command")
	}
	if r.Attempts < 0 {
		return fmt.Errorf("attempts must not be negative")
	}
	if r.Initial < 0 || r.Max < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if _, err := ParseRetryBackoff(string(r.Backoff)); err != nil {
		return err
	}
	return nil
}

// validateIdentity requires a name usable as a path segment and address component.
func validateIdentity(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("must not be empty")
	case name == "." || name == "..":
		return fmt.Errorf("%q is reserved", name)
	case strings.ContainsAny(name, `:/\@ `+"\t\n"):
		return fmt.Errorf("%q contains a reserved character", name)
	}
	return nil
}

func invalid(where, field string, err error) error {
	return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid manifest").
		WithContext("unit", where).
		WithContext("field", field).
		Fatal().
		UserAction().
		Build()
}
