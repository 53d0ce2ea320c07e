package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
)

const manifest = `version: "1"
root:
  name: R
  kind: domain
  version: 1.2.3
  group: org.example
  children:
    - name: S
      kind: implementation
      children:
        - name: M
          publish:
            artifacts: [jar]
        - name: N
          operations:
            - name: verify
              depends_on: [":M:build"]
history:
  disabled: true
`

func writeManifest(t *testing.T) *CLI {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hierbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return &CLI{Manifest: path}
}

func TestInitWritesLoadableManifest(t *testing.T) {
	dir := t.TempDir()
	root := &CLI{Manifest: filepath.Join(dir, "hierbuild.yaml")}
	var out bytes.Buffer

	require.NoError(t, (&InitCmd{}).Run(&Global{Out: &out}, root))
	assert.Contains(t, out.String(), "initialized successfully")

	var tree bytes.Buffer
	require.NoError(t, (&TreeCmd{}).Run(&Global{Out: &tree}, root))
	assert.Contains(t, tree.String(), ":core [project] org.example:0.1.0")

	err := (&InitCmd{}).Run(&Global{Out: &out}, root)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestTreeShowsInheritedMetadata(t *testing.T) {
	root := writeManifest(t)
	var out bytes.Buffer

	require.NoError(t, (&TreeCmd{}).Run(&Global{Out: &out}, root))

	lines := out.String()
	assert.Contains(t, lines, ": [domain] org.example:1.2.3\n")
	assert.Contains(t, lines, "  :S [implementation] org.example:1.2.3 (included build)\n")
	assert.Contains(t, lines, "    :S:M [project] org.example:1.2.3 -> mavenRoot=")
}

func TestTasksListsOperations(t *testing.T) {
	root := writeManifest(t)
	var out bytes.Buffer

	require.NoError(t, (&TasksCmd{Unit: ":S:N"}).Run(&Global{Out: &out}, root))

	assert.Contains(t, out.String(), "OPERATION")
	assert.Regexp(t, `(?m)^build\s+yes`, out.String())
	assert.Regexp(t, `(?m)^verify\s+0\s+:M:build$`, out.String())
}

func TestTasksUnknownUnit(t *testing.T) {
	root := writeManifest(t)

	err := (&TasksCmd{Unit: ":missing"}).Run(&Global{Out: &bytes.Buffer{}}, root)

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestRunPublishesThroughHierarchy(t *testing.T) {
	root := writeManifest(t)
	var out bytes.Buffer

	require.NoError(t, (&RunCmd{Unit: ":", Operations: []string{"publish"}}).Run(&Global{Out: &out}, root))

	assert.Contains(t, out.String(), "SUCCESS publish at :")
	assert.Contains(t, out.String(), "  :S:M:publish\n")
	dir := filepath.Dir(root.Manifest)
	_, err := os.Stat(filepath.Join(dir, "build", "R.repository", "org", "example", "M", "1.2.3", "M-1.2.3.jar"))
	assert.NoError(t, err)
}

func TestHistoryDisabled(t *testing.T) {
	root := writeManifest(t)

	err := (&HistoryCmd{Limit: 5}).Run(&Global{Out: &bytes.Buffer{}}, root)

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestHistoryListsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "1"
root:
  name: solo
  version: 1.0.0
`), 0o644))
	root := &CLI{Manifest: path}
	require.NoError(t, (&RunCmd{Unit: ":"}).Run(&Global{Out: &bytes.Buffer{}}, root))

	var out bytes.Buffer
	require.NoError(t, (&HistoryCmd{Limit: 5}).Run(&Global{Out: &out}, root))

	assert.Contains(t, out.String(), "RUN")
	assert.Regexp(t, `success\s+:\s+\[clean build\]`, out.String())
}
