// Package publish implements the publishable-artifact capability of a unit with a
// local repository in Maven layout.
//
// Package writes the unit's artifacts below its output path; Publish copies them
// to every registered publication repository as
// <group as path>/<identity>/<version>/<identity>-<version>.<ext>.
// Only local destinations (absolute paths or file:// URLs) are supported.
package publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/hierbuild/internal/logfields"
	"git.home.luguber.info/inful/hierbuild/internal/observability"
	"git.home.luguber.info/inful/hierbuild/internal/unit"
)

// RepositoryName is the publication repository name registered by the aggregation profiles.
const RepositoryName = "mavenRoot"

// ArtifactsDir is where Package places built artifacts below a unit's output path.
const ArtifactsDir = "libs"

const filePerm = 0o644

// Repository is a named publication destination.
type Repository struct {
	Name string
	URL  string
}

// Maven is a publishable-artifact capability publishing to local Maven-layout repositories.
type Maven struct {
	fs        billy.Filesystem
	artifacts []string
	repos     []Repository
}

var _ unit.PublishCapability = (*Maven)(nil)

// NewMaven creates a publisher for the given artifact extensions (e.g. "jar", "pom").
// No extensions means a single jar.
func NewMaven(fs billy.Filesystem, extensions ...string) *Maven {
	if len(extensions) == 0 {
		extensions = []string{"jar"}
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		exts = append(exts, strings.TrimPrefix(e, "."))
	}
	return &Maven{fs: fs, artifacts: exts}
}

// AddPublicationRepository registers a destination. Registering an existing name replaces its URL.
func (m *Maven) AddPublicationRepository(name, url string) {
	for i := range m.repos {
		if m.repos[i].Name == name {
			m.repos[i].URL = url
			return
		}
	}
	m.repos = append(m.repos, Repository{Name: name, URL: url})
}

// Repositories returns the registered destinations in registration order.
func (m *Maven) Repositories() []Repository {
	out := make([]Repository, len(m.repos))
	copy(out, m.repos)
	return out
}

// Extensions returns the artifact extensions published.
func (m *Maven) Extensions() []string {
	out := make([]string, len(m.artifacts))
	copy(out, m.artifacts)
	return out
}

// ArtifactName is "<identity>-<version>.<ext>".
func ArtifactName(u *unit.Unit, ext string) string {
	return fmt.Sprintf("%s-%s.%s", u.Identity(), u.Version(), ext)
}

// Layout is the directory of u's artifacts relative to a repository root.
func Layout(u *unit.Unit) string {
	parts := make([]string, 0, 3)
	if g := strings.TrimSpace(u.Group()); g != "" {
		parts = append(parts, strings.ReplaceAll(g, ".", "/"))
	}
	parts = append(parts, u.Identity(), u.Version())
	return path.Join(parts...)
}

// Package writes u's artifacts to <output>/libs. It stands in for compilers and packagers.
func (m *Maven) Package(ctx context.Context, u *unit.Unit) error {
	if err := checkVersion(u); err != nil {
		return err
	}
	dir := filepath.Join(u.OutputPath(), ArtifactsDir)
	for _, ext := range m.artifacts {
		dst := filepath.Join(dir, ArtifactName(u, ext))
		content := fmt.Sprintf("%s:%s:%s@%s\n", u.Group(), u.Identity(), u.Version(), ext)
		if err := util.WriteFile(m.fs, dst, []byte(content), filePerm); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write artifact").
				WithContext("path", dst).
				Build()
		}
	}
	observability.DebugContext(ctx, "Artifacts packaged",
		logfields.Unit(u.DisplayPath()),
		logfields.Path(dir),
		logfields.Count(len(m.artifacts)))
	return nil
}

// Publish copies u's packaged artifacts into every registered repository.
// Without registered repositories it does nothing.
func (m *Maven) Publish(ctx context.Context, u *unit.Unit) error {
	if err := checkVersion(u); err != nil {
		return err
	}
	if len(m.repos) == 0 {
		observability.WarnContext(ctx, "No publication repository registered", logfields.Unit(u.DisplayPath()))
		return nil
	}
	src := filepath.Join(u.OutputPath(), ArtifactsDir)
	for _, repo := range m.repos {
		root, err := localPath(repo.URL)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryPublish, "unsupported publication repository").
				WithContext("name", repo.Name).
				WithContext("url", repo.URL).
				Build()
		}
		dir := filepath.Join(root, filepath.FromSlash(Layout(u)))
		for _, ext := range m.artifacts {
			name := ArtifactName(u, ext)
			data, err := util.ReadFile(m.fs, filepath.Join(src, name))
			if err != nil {
				return ferrors.WrapError(err, ferrors.CategoryPublish, "artifact not packaged").
					WithContext("artifact", name).
					WithContext("unit", u.DisplayPath()).
					Build()
			}
			if err := util.WriteFile(m.fs, filepath.Join(dir, name), data, filePerm); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryPublish, "failed to publish artifact").
					WithContext("artifact", name).
					WithContext("repository", repo.Name).
					Build()
			}
		}
		observability.InfoContext(ctx, "Artifacts published",
			logfields.Unit(u.DisplayPath()),
			logfields.Name(repo.Name),
			logfields.URL(repo.URL),
			logfields.Count(len(m.artifacts)))
	}
	return nil
}

func checkVersion(u *unit.Unit) error {
	if !u.IsVersionSpecified() {
		return ferrors.PublishError("cannot publish a unit without a version").
			WithContext("unit", u.DisplayPath()).
			UserAction().
			Build()
	}
	if _, err := semver.NewVersion(u.Version()); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPublish, "invalid version").
			WithContext("unit", u.DisplayPath()).
			WithContext("version", u.Version()).
			UserAction().
			Build()
	}
	return nil
}

func localPath(url string) (string, error) {
	p := url
	if rest, ok := strings.CutPrefix(url, "file://"); ok {
		p = rest
	} else if strings.Contains(url, "://") {
		return "", fmt.Errorf("remote repository %q", url)
	}
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("repository path %q is not absolute", p)
	}
	return filepath.Clean(p), nil
}
