package formatter

import (
	"encoding/json"
	"testing"

	"github.com/mcncl/treedit/internal/models"
	"github.com/mcncl/treedit/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildForest(t *testing.T, doc string) tree.Forest {
	t.Helper()
	var v models.Value
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return tree.Build(v)
}

func TestFormat_SimpleObject(t *testing.T) {
	forest := buildForest(t, `{"a": 1, "b": {"c": "x", "d": [true, null]}}`)

	formatter := NewFormatter(Options{Indent: 2})
	expected := `   a: 1
 - b {2}
     c: "x"
   - d [2]
       [0]: true
       [1]: null
`
	assert.Equal(t, expected, formatter.Format(forest))
}

func TestFormat_CollapsedHidesChildren(t *testing.T) {
	forest := buildForest(t, `{"list": [10, 20], "z": false}`)
	forest = tree.Apply(forest, "list", tree.ToggleExpand())

	formatter := NewFormatter(Options{Indent: 2})
	expected := ` + list [2]
   z: false
`
	assert.Equal(t, expected, formatter.Format(forest))
}

func TestFormat_ShowTypes(t *testing.T) {
	forest := buildForest(t, `{"o": {"n": 1.5}}`)

	formatter := NewFormatter(Options{ShowTypes: true, Indent: 4})
	expected := ` - o {1} (object)
       n: 1.5 (number)
`
	assert.Equal(t, expected, formatter.Format(forest))
}

func TestFormat_SelectedAndEditing(t *testing.T) {
	forest := buildForest(t, `{"a": "x", "b": 2}`)
	forest = tree.Apply(forest, "a", tree.ToggleSelect())
	forest = tree.Apply(forest, "a", tree.ToggleEdit())
	forest = tree.Apply(forest, "b", tree.ToggleEdit())
	forest = tree.Apply(forest, "a", tree.SetValue(models.String("y")))

	formatter := NewFormatter(Options{Indent: 2})
	expected := `*  a: "y" [editing, was "x"]
   b: 2 [editing]
`
	assert.Equal(t, expected, formatter.Format(forest))
}

func TestFormat_EmptyForest(t *testing.T) {
	formatter := NewFormatter(Options{})
	assert.Equal(t, "", formatter.Format(tree.Forest{}))
}

func TestFormat_DefaultIndent(t *testing.T) {
	forest := buildForest(t, `[[1]]`)

	formatter := NewFormatter(Options{})
	expected := ` - [0] [1]
     [0]: 1
`
	assert.Equal(t, expected, formatter.Format(forest))
}

func TestFormat_ColorKeepsText(t *testing.T) {
	forest := buildForest(t, `{"a": 1}`)

	out := NewFormatter(Options{Color: true, Indent: 2}).Format(forest)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "1")
}

func TestFormatJSON(t *testing.T) {
	forest := buildForest(t, `{"b": 1, "a": {"c": [1, 2.50]}}`)
	forest = tree.Apply(forest, "b", tree.SetValue(models.Number("7")))

	out, err := FormatJSON(models.KindObject, forest, 2)
	require.NoError(t, err)

	expected := `{
  "b": 7,
  "a": {
    "c": [
      1,
      2.50
    ]
  }
}
`
	assert.Equal(t, expected, out)
}

func TestFormatJSON_RootArray(t *testing.T) {
	forest := buildForest(t, `[{"k": "v"}]`)

	out, err := FormatJSON(models.KindArray, forest, 4)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"k": "v"}]`, out)
	assert.Contains(t, out, "\n        \"k\"")
}

func TestFormatJSON_EmptyRoots(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{`[]`, "[]\n"},
		{`{}`, "{}\n"},
		{`[[]]`, "[\n  []\n]\n"},
		{`[{}]`, "[\n  {}\n]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			var v models.Value
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &v))

			out, err := FormatJSON(v.Kind(), tree.Build(v), 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSummary(t *testing.T) {
	forest := buildForest(t, `{"o": {"a": 1, "b": 2}, "l": []}`)

	assert.Equal(t, "{2}", Summary(forest[0]))
	assert.Equal(t, "[0]", Summary(forest[1]))
}
