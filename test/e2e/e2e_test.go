package e2e_test

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workspace is a temporary directory with its own config and database
type workspace struct {
	dir    string
	config string
}

func newWorkspace(t testing.TB) workspace {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "treedit.yml")
	content := "database:\n  path: " + filepath.Join(dir, "projects.db") + "\n" +
		"render:\n  color: false\n  show_types: false\n"
	require.NoError(t, os.WriteFile(config, []byte(content), 0644))
	return workspace{dir: dir, config: config}
}

func (w workspace) file(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// treedit runs the CLI through go run and returns stdout, stderr and the
// command error.
func (w workspace) treedit(t testing.TB, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "../..", "--config", w.config}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (w workspace) mustTreedit(t testing.TB, args ...string) string {
	t.Helper()
	stdout, stderr, err := w.treedit(t, args...)
	require.NoError(t, err, "treedit %v failed: %s", args, stderr)
	return stdout
}

// TestEndToEnd_ComplexNestedStructures loads a deeply nested document and
// checks both renderings
func TestEndToEnd_ComplexNestedStructures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	w := newWorkspace(t)

	jsonContent := `{
		"id": 12345,
		"uuid": "550e8400-e29b-41d4-a716-446655440000",
		"updated_at": null,
		"config": {
			"enabled": true,
			"timeout_seconds": 30,
			"features": ["logging", "metrics", "alerting"],
			"rate_limits": {
				"per_second": 100,
				"burst": 150
			},
			"environments": {
				"development": {"debug": true, "log_level": "debug"},
				"production": {"debug": false, "log_level": "info"}
			}
		},
		"users": [
			{"id": 1, "name": "Alice", "roles": ["admin", "user"]},
			{"id": 2, "name": "Bob", "roles": []}
		],
		"stats": {
			"success_rate": 0.9999,
			"response_times": [0.045, 0.067, 0.032, 0.051]
		}
	}`
	jsonFile := w.file(t, "complex.json", jsonContent)

	out := w.mustTreedit(t, "tree", jsonFile)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "   id: 12345", lines[0])
	assert.Contains(t, out, " - config {5}")
	assert.Contains(t, out, "   - environments {2}")
	assert.Contains(t, out, `         log_level: "info"`)
	assert.Contains(t, out, " - users [2]")
	assert.Contains(t, out, "   - [0] {3}")
	assert.Contains(t, out, "   updated_at: null")

	// Collapsed subtrees drop out of the listing.
	collapsed := w.mustTreedit(t, "tree", jsonFile, "--collapse", "config", "--collapse", "users[1]")
	assert.Contains(t, collapsed, " + config {5}")
	assert.NotContains(t, collapsed, "rate_limits")
	assert.Contains(t, collapsed, "   + [1] {3}")
	assert.NotContains(t, collapsed, `"Bob"`)

	// The JSON rendering is the same document, in the same order.
	asJSON := w.mustTreedit(t, "tree", jsonFile, "--json")
	assert.JSONEq(t, jsonContent, asJSON)
	assert.Less(t, strings.Index(asJSON, `"uuid"`), strings.Index(asJSON, `"config"`))
	assert.Contains(t, asJSON, "0.9999")
}

// TestEndToEnd_ProjectWorkflow stores a configuration, edits it with tree
// operations and exports the result
func TestEndToEnd_ProjectWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	w := newWorkspace(t)
	jsonFile := w.file(t, "sensor.json", `{
		"device": "thermo-1",
		"reading": {"celsius": 21.5, "ok": true},
		"tags": ["indoor"]
	}`)
	exported := filepath.Join(w.dir, "exported.json")

	assert.Contains(t, w.mustTreedit(t, "project", "list"), "sample-project")
	w.mustTreedit(t, "project", "create", "Greenhouse")
	w.mustTreedit(t, "config", "add", "greenhouse", jsonFile, "--topic", "greenhouse/thermo", "--frequency", "number:10")

	steps := [][]string{
		{"--op", "toggle-edit", "--path", "reading.celsius"},
		{"--op", "set-value", "--path", "reading.celsius", "--value", "23.0"},
		{"--op", "commit-edit", "--path", "reading.celsius"},
		{"--op", "toggle-edit", "--path", "reading.ok"},
		{"--op", "set-value", "--path", "reading.ok", "--value", "false"},
		{"--op", "commit-edit", "--path", "reading.ok"},
		{"--op", "toggle-select", "--path", "tags[0]"},
		{"--op", "toggle-expand", "--path", "reading"},
	}
	for _, step := range steps {
		w.mustTreedit(t, append([]string{"config", "apply", "greenhouse", "sensor"}, step...)...)
	}

	show := w.mustTreedit(t, "config", "show", "greenhouse", "sensor")
	assert.Contains(t, show, " + reading {2}")
	assert.Contains(t, show, `*    [0]: "indoor"`)

	_, stderr, err := w.treedit(t, "config", "export", "greenhouse", "sensor", "-o", exported)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Document written to")

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"device": "thermo-1",
		"reading": {"celsius": 23.0, "ok": false},
		"tags": ["indoor"]
	}`, string(data))

	// The stored record keeps node state alongside the document.
	var record struct {
		ID        string `json:"id"`
		Topic     struct{ Type, Value string }
		Frequency struct{ Type, Value string }
		JSONData  []map[string]any `json:"jsonData"`
	}
	require.NoError(t, json.Unmarshal([]byte(w.mustTreedit(t, "config", "show", "greenhouse", "sensor", "--json")), &record))
	assert.Equal(t, "sensor", record.ID)
	assert.Equal(t, "greenhouse/thermo", record.Topic.Value)
	assert.Equal(t, "number", record.Frequency.Type)
	require.Len(t, record.JSONData, 3)
	assert.Equal(t, "reading", record.JSONData[1]["key"])
	assert.Equal(t, false, record.JSONData[1]["isExpanded"])

	assert.Contains(t, w.mustTreedit(t, "project", "start", "greenhouse"), "Started project greenhouse")
	assert.Contains(t, w.mustTreedit(t, "project", "list"), "running")
}

// TestEndToEnd_EdgeCases covers inputs the tree command must reject or
// handle specially
func TestEndToEnd_EdgeCases(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	w := newWorkspace(t)

	tests := []struct {
		name        string
		file        string
		content     string
		args        []string
		expectError bool
		contains    []string
	}{
		{
			name:     "Empty object",
			file:     "empty.json",
			content:  `{}`,
			contains: nil,
		},
		{
			name:     "Empty containers",
			file:     "empties.json",
			content:  `{"obj": {}, "arr": []}`,
			contains: []string{" - obj {0}", " - arr [0]"},
		},
		{
			name:     "Keys that need quoting",
			file:     "quoted.json",
			content:  `{"a.b": {"c": 1}, "": 2}`,
			args:     []string{"--collapse", `["a.b"]`},
			contains: []string{` + a.b {1}`, `   : 2`},
		},
		{
			name:     "Root array",
			file:     "array.json",
			content:  `[{"id": 1}, 2, "three"]`,
			contains: []string{" - [0] {1}", "   [1]: 2", `   [2]: "three"`},
		},
		{
			name:     "Unicode",
			file:     "unicode.json",
			content:  `{"名前": "テスト", "emoji": "🎉"}`,
			contains: []string{`名前: "テスト"`, `emoji: "🎉"`},
		},
		{
			name:     "Comments in jsonc",
			file:     "commented.jsonc",
			content:  "{\n  // note\n  \"a\": 1,\n}\n",
			contains: []string{"a: 1"},
		},
		{
			name:        "Comments in plain json",
			file:        "commented.json",
			content:     "{\n  // note\n  \"a\": 1\n}\n",
			expectError: true,
			contains:    []string{"JSON parsing error"},
		},
		{
			name:        "Scalar root",
			file:        "scalar.json",
			content:     `"just a string"`,
			expectError: true,
			contains:    []string{"document root is string"},
		},
		{
			name:        "Multiple values",
			file:        "multi.json",
			content:     `{"a": 1} {"b": 2}`,
			expectError: true,
			contains:    []string{"multiple JSON values"},
		},
		{
			name:        "Empty file",
			file:        "blank.json",
			content:     "",
			expectError: true,
			contains:    []string{"is empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := w.file(t, tt.file, tt.content)
			stdout, stderr, err := w.treedit(t, append([]string{"tree", path}, tt.args...)...)

			if tt.expectError {
				require.Error(t, err, "expected failure, got: %s", stdout)
				assert.Contains(t, stderr, "For help, run: treedit --help")
				for _, s := range tt.contains {
					assert.Contains(t, stderr, s)
				}
				return
			}

			require.NoError(t, err, "CLI command failed: %s", stderr)
			for _, s := range tt.contains {
				assert.Contains(t, stdout, s)
			}
		})
	}
}

// TestEndToEnd_Errors checks that failures exit non-zero with a readable
// message
func TestEndToEnd_Errors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}
	w := newWorkspace(t)
	jsonFile := w.file(t, "doc.json", `{"n": 1}`)
	w.mustTreedit(t, "config", "add", "sample-project", jsonFile)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown project", []string{"config", "list", "nope"}, "project not found"},
		{"unknown configuration", []string{"config", "show", "sample-project", "nope"}, "configuration not found"},
		{"last project", []string{"project", "delete", "sample-project"}, "cannot delete the last project"},
		{"bad value", []string{"config", "apply", "sample-project", "doc", "--op", "set-value", "--path", "n", "--value", "ten"}, "not a number"},
		{"unknown path", []string{"config", "apply", "sample-project", "doc", "--op", "toggle-expand", "--path", "x.y"}, "no node has this path"},
		{"missing file", []string{"tree", filepath.Join(w.dir, "missing.json")}, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := w.treedit(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, stderr, tt.want)
		})
	}
}
