package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcncl/treedit/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a scratch directory with its own config file and database
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, ".treedit.yml")
	content := "database:\n  path: " + filepath.Join(dir, "treedit.db") + "\n" +
		"render:\n  color: false\n  show_types: false\n  indent: 2\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(config, []byte(content), 0o644))
	return testEnv{dir: dir, config: config}
}

func (e testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the CLI with the environment's config and returns stdout
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"--config", e.config}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "treedit %v", args)
	return out
}

func TestRun_Version(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "treedit version 0.1.0\n", env.mustRun(t, "version"))
}

func TestRun_UnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, errors.UserFriendlyError(err), "Input error")
}

func TestRun_Tree(t *testing.T) {
	env := newTestEnv(t)
	file := env.writeFile(t, "doc.json", `{"a": 1, "b": {"c": "x"}, "list": [true, null]}`)

	out := env.mustRun(t, "tree", file)
	assert.Equal(t, "   a: 1\n"+
		" - b {1}\n"+
		"     c: \"x\"\n"+
		" - list [2]\n"+
		"     [0]: true\n"+
		"     [1]: null\n", out)

	out = env.mustRun(t, "tree", file, "--collapse", "b", "--collapse", "list")
	assert.Contains(t, out, " + b {1}")
	assert.Contains(t, out, " + list [2]")
	assert.NotContains(t, out, `c: "x"`)
	assert.NotContains(t, out, "[0]: true")
}

func TestRun_TreeJSON(t *testing.T) {
	env := newTestEnv(t)
	file := env.writeFile(t, "doc.jsonc", `{
		// comments are fine in .jsonc files
		"z": 1,
		"a": [1.50, "two"],
	}`)

	out := env.mustRun(t, "tree", file, "--json")
	assert.Equal(t, "{\n  \"z\": 1,\n  \"a\": [\n    1.50,\n    \"two\"\n  ]\n}\n", out)
}

func TestRun_TreeJSONEmptyRoots(t *testing.T) {
	env := newTestEnv(t)

	tests := map[string]string{
		`[]`:   "[]\n",
		`[[]]`: "[\n  []\n]\n",
		`{}`:   "{}\n",
	}
	for doc, want := range tests {
		t.Run(doc, func(t *testing.T) {
			file := env.writeFile(t, "doc.json", doc)
			assert.Equal(t, want, env.mustRun(t, "tree", file, "--json"))
		})
	}

	// A stored root array exports as an array.
	file := env.writeFile(t, "nested.json", `[[], [1]]`)
	env.mustRun(t, "config", "add", "sample-project", file)
	env.mustRun(t, "config", "apply", "sample-project", "nested", "--op", "toggle-expand", "--path", "[1]")
	assert.JSONEq(t, `[[], [1]]`, env.mustRun(t, "config", "export", "sample-project", "nested"))
}

func TestRun_TreeErrors(t *testing.T) {
	env := newTestEnv(t)
	file := env.writeFile(t, "doc.json", `{"a": 1}`)
	scalar := env.writeFile(t, "scalar.json", `42`)
	broken := env.writeFile(t, "broken.json", `{"a": `)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"collapse unknown path", []string{"tree", file, "--collapse", "missing"}, errors.ErrUnknownPath},
		{"collapse scalar", []string{"tree", file, "--collapse", "a"}, errors.ErrNotContainer},
		{"scalar root", []string{"tree", scalar}, errors.ErrScalarRoot},
		{"missing file", []string{"tree", filepath.Join(env.dir, "nope.json")}, errors.ErrFileNotFound},
		{"invalid json", []string{"tree", broken}, errors.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRun_ProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	file := env.writeFile(t, "payload.json", `{"temp": 21.5}`)

	out := env.mustRun(t, "project", "list")
	assert.Contains(t, out, "sample-project")
	assert.Contains(t, out, "Sample Project")
	assert.Contains(t, out, "stopped")

	assert.Equal(t, "Created project demo (Demo)\n", env.mustRun(t, "project", "create", "Demo"))
	assert.Equal(t, "Created project demo-2 (Demo)\n", env.mustRun(t, "project", "create", "Demo"))

	_, err := env.run(t, "project", "start", "demo")
	assert.True(t, stderrors.Is(err, errors.ErrNoConfigurations))

	assert.Equal(t, "Added configuration payload to project demo\n",
		env.mustRun(t, "config", "add", "demo", file, "--topic", "sensors/1", "--frequency", "number:5"))
	assert.Equal(t, "Started project demo with 1 configuration(s)\n", env.mustRun(t, "project", "start", "demo"))
	assert.Contains(t, env.mustRun(t, "project", "list"), "running")

	out = env.mustRun(t, "config", "list", "demo")
	assert.Contains(t, out, "payload")
	assert.Contains(t, out, "sensors/1")
	assert.Contains(t, out, "number:5")

	assert.Equal(t, "Stopped project demo\n", env.mustRun(t, "project", "stop", "demo"))
	assert.Equal(t, "Deleted project demo\n", env.mustRun(t, "project", "delete", "demo"))
	assert.Equal(t, "Deleted project demo-2\n", env.mustRun(t, "project", "delete", "demo-2"))

	_, err = env.run(t, "project", "delete", "demo")
	assert.True(t, stderrors.Is(err, errors.ErrProjectNotFound))
	_, err = env.run(t, "project", "delete", "sample-project")
	assert.True(t, stderrors.Is(err, errors.ErrLastProject))
}

func TestRun_ConfigApplyAndExport(t *testing.T) {
	env := newTestEnv(t)
	file := env.writeFile(t, "doc.json", `{"a": 1, "b": {"c": "x"}}`)
	export := filepath.Join(env.dir, "out.json")

	env.mustRun(t, "config", "add", "sample-project", file)

	out := env.mustRun(t, "config", "apply", "sample-project", "doc", "--op", "toggle-edit", "--path", "b.c")
	assert.Contains(t, out, "[editing]")

	out = env.mustRun(t, "config", "apply", "sample-project", "doc", "--op", "set-value", "--path", "b.c", "--value", "y")
	assert.Contains(t, out, `c: "y" [editing, was "x"]`)

	show := env.mustRun(t, "config", "show", "sample-project", "doc", "--json")
	assert.Contains(t, show, `"isEditing": true`)
	assert.Contains(t, show, `"fileName": "doc.json"`)

	env.mustRun(t, "config", "apply", "sample-project", "doc", "--op", "commit_edit", "--path", "b.c")
	env.mustRun(t, "config", "apply", "sample-project", "doc", "--op", "toggle-expand", "--path", "b")

	// Collapsing does not change the exported document.
	env.mustRun(t, "config", "export", "sample-project", "doc", "-o", export)
	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1, "b": {"c": "y"}}`, string(data))

	out = env.mustRun(t, "config", "show", "sample-project", "doc")
	assert.Contains(t, out, "doc (doc)")
	assert.Contains(t, out, " + b {1}")
}

func TestRun_ConfigApplyErrors(t *testing.T) {
	env := newTestEnv(t)
	file := env.writeFile(t, "doc.json", `{"n": 1, "o": {}}`)
	env.mustRun(t, "config", "add", "sample-project", file)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"not a number", []string{"--op", "set-value", "--path", "n", "--value", "abc"}, errors.ErrInvalidScalar},
		{"unknown path", []string{"--op", "toggle-select", "--path", "missing"}, errors.ErrUnknownPath},
		{"edit container", []string{"--op", "toggle-edit", "--path", "o"}, errors.ErrNotScalar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, append([]string{"config", "apply", "sample-project", "doc"}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := env.run(t, "config", "apply", "sample-project", "doc", "--op", "explode", "--path", "n")
	require.Error(t, err)
	assert.Contains(t, errors.UserFriendlyError(err), `unknown operation "explode"`)

	// Failed operations leave the stored document untouched.
	out := env.mustRun(t, "config", "export", "sample-project", "doc")
	assert.JSONEq(t, `{"n": 1, "o": {}}`, out)
}

func TestRun_ConfigRenameAndDelete(t *testing.T) {
	env := newTestEnv(t)
	file := env.writeFile(t, "doc.json", `[1, 2]`)
	env.mustRun(t, "config", "add", "sample-project", file, "--name", "Numbers")

	assert.Equal(t, "Saved configuration numbers\n",
		env.mustRun(t, "config", "rename", "sample-project", "numbers", "Counting", "--topic", "boolean:true"))
	out := env.mustRun(t, "config", "list", "sample-project")
	assert.Contains(t, out, "Counting")
	assert.Contains(t, out, "boolean:true")

	_, err := env.run(t, "config", "rename", "sample-project", "numbers", "x", "--frequency", "number:fast")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidScalar))

	assert.Equal(t, "Deleted configuration numbers\n", env.mustRun(t, "config", "delete", "sample-project", "numbers"))
	_, err = env.run(t, "config", "show", "sample-project", "numbers")
	assert.True(t, stderrors.Is(err, errors.ErrConfigurationNotFound))
}

func TestRun_DBFlagOverridesConfig(t *testing.T) {
	env := newTestEnv(t)
	other := filepath.Join(t.TempDir(), "other.db")

	env.mustRun(t, "--db", other, "project", "create", "Elsewhere")

	assert.Contains(t, env.mustRun(t, "--db", other, "project", "list"), "elsewhere")
	assert.NotContains(t, env.mustRun(t, "project", "list"), "elsewhere")
}

func TestRun_InvalidConfigFile(t *testing.T) {
	env := newTestEnv(t)
	bad := env.writeFile(t, "bad.yml", "render:\n  indent: 40\n")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--config", bad, "project", "list"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, errors.UserFriendlyError(err), "Input error")
}

func TestRun_TreeSample(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "tree", filepath.Join("testdata", "samples", "sensor.jsonc"), "--collapse", "tags")
	assert.Equal(t, "   device: \"thermo-1\"\n"+
		" - reading {2}\n"+
		"     celsius: 21.50\n"+
		"     ok: true\n"+
		" + tags [2]\n"+
		"   calibrated_at: null\n", out)
}
