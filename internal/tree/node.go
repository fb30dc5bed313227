// Package tree turns a decoded JSON document into a forest of typed,
// path-addressed nodes and rewrites that forest one node at a time.
//
// A forest is never modified in place. Apply returns a new forest in which the
// matched node is a fresh copy, every ancestor of it has a rebuilt Children
// slice, and every other subtree is shared with the input. Callers can detect
// what changed by pointer comparison.
package tree

import (
	"encoding/json"

	"github.com/mcncl/treedit/internal/models"
)

// Node is one entry of a JSON document as shown in the tree view.
type Node struct {
	// Key is the member name, or "[i]" for array elements.
	Key  string      `json:"key"`
	Kind models.Kind `json:"type"`
	// Value is the current scalar value. For containers it is the subtree
	// value and is not kept in the JSON form; decoding rebuilds it from the
	// children.
	Value models.Value `json:"value"`
	// Path identifies the node within its forest and never changes.
	Path string `json:"path"`
	// Children is nil for scalars and non-nil (possibly empty) for objects
	// and arrays.
	Children      []*Node      `json:"children,omitempty"`
	OriginalValue models.Value `json:"originalValue"`
	Expanded      bool         `json:"isExpanded"`
	Editing       bool         `json:"isEditing"`
	Selected      bool         `json:"isSelected"`
}

// Forest is the ordered list of top-level nodes of one document.
type Forest []*Node

// HasChildren reports whether n is an object or array node.
func (n *Node) HasChildren() bool {
	return n.Kind.IsContainer()
}

// wireNode is the JSON form of a Node. Containers leave out value and
// originalValue, which repeat the whole subtree at every level.
type wireNode struct {
	Key           string        `json:"key"`
	Kind          models.Kind   `json:"type"`
	Value         *models.Value `json:"value,omitempty"`
	Path          string        `json:"path"`
	Children      []*Node       `json:"children,omitempty"`
	OriginalValue *models.Value `json:"originalValue,omitempty"`
	Expanded      bool          `json:"isExpanded"`
	Editing       bool          `json:"isEditing"`
	Selected      bool          `json:"isSelected"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	w := wireNode{
		Key:      n.Key,
		Kind:     n.Kind,
		Path:     n.Path,
		Children: n.Children,
		Expanded: n.Expanded,
		Editing:  n.Editing,
		Selected: n.Selected,
	}
	if !n.Kind.IsContainer() {
		value, original := n.Value, n.OriginalValue
		w.Value, w.OriginalValue = &value, &original
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores the empty Children slice of empty containers and
// rebuilds container values from the decoded children.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Node{
		Key:      w.Key,
		Kind:     w.Kind,
		Path:     w.Path,
		Children: w.Children,
		Expanded: w.Expanded,
		Editing:  w.Editing,
		Selected: w.Selected,
	}

	if n.Kind.IsContainer() {
		if n.Children == nil {
			n.Children = []*Node{}
		}
		n.Value = assemble(n.Kind, n.Children, currentValue)
		n.OriginalValue = assemble(n.Kind, n.Children, originalValue)
		return nil
	}

	// A JSON null decodes to a nil pointer; the zero Value is null.
	n.Children = nil
	if w.Value != nil {
		n.Value = *w.Value
	}
	if w.OriginalValue != nil {
		n.OriginalValue = *w.OriginalValue
	}
	return nil
}

// clone returns a shallow copy of n. The Children slice is shared.
func (n *Node) clone() *Node {
	c := *n
	return &c
}
