package tree

import (
	"fmt"
	"strings"

	"github.com/mcncl/treedit/internal/errors"
	"github.com/mcncl/treedit/internal/models"
)

// OpKind names one of the six node transitions.
type OpKind string

const (
	OpToggleExpand OpKind = "toggle-expand"
	OpToggleEdit   OpKind = "toggle-edit"
	OpToggleSelect OpKind = "toggle-select"
	OpSetValue     OpKind = "set-value"
	OpCommitEdit   OpKind = "commit-edit"
	OpCancelEdit   OpKind = "cancel-edit"
)

// OpKinds lists every operation in a stable order.
var OpKinds = []OpKind{OpToggleExpand, OpToggleEdit, OpToggleSelect, OpSetValue, OpCommitEdit, OpCancelEdit}

// ParseOpKind accepts the names in OpKinds, case-insensitively, with either
// dashes or underscores.
func ParseOpKind(name string) (OpKind, error) {
	normalized := OpKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-"))
	for _, k := range OpKinds {
		if k == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q", name)
}

// Op is a single node transition. Value is only used by OpSetValue.
type Op struct {
	Kind  OpKind
	Value models.Value
}

func (op Op) String() string {
	if op.Kind == OpSetValue {
		return fmt.Sprintf("%s(%s)", op.Kind, op.Value)
	}
	return string(op.Kind)
}

// ToggleExpand flips Expanded on an object or array node.
func ToggleExpand() Op { return Op{Kind: OpToggleExpand} }

// ToggleEdit flips Editing on a scalar node.
func ToggleEdit() Op { return Op{Kind: OpToggleEdit} }

// ToggleSelect flips Selected on any node.
func ToggleSelect() Op { return Op{Kind: OpToggleSelect} }

// SetValue replaces the value of a scalar node. v must have the node's kind.
func SetValue(v models.Value) Op { return Op{Kind: OpSetValue, Value: v} }

// CommitEdit leaves edit mode and makes the current value the original.
func CommitEdit() Op { return Op{Kind: OpCommitEdit} }

// CancelEdit leaves edit mode and restores the original value.
func CancelEdit() Op { return Op{Kind: OpCancelEdit} }

// transform returns the replacement for n, or an error when the operation's
// precondition does not hold. n itself is never modified.
func (op Op) transform(n *Node) (*Node, error) {
	switch op.Kind {
	case OpToggleExpand:
		if !n.HasChildren() {
			return nil, errors.ErrNotContainer
		}
		c := n.clone()
		c.Expanded = !c.Expanded
		return c, nil
	case OpToggleEdit:
		if !n.Kind.IsScalar() {
			return nil, errors.ErrNotScalar
		}
		c := n.clone()
		c.Editing = !c.Editing
		return c, nil
	case OpToggleSelect:
		c := n.clone()
		c.Selected = !c.Selected
		return c, nil
	case OpSetValue:
		if !n.Kind.IsScalar() {
			return nil, errors.ErrNotScalar
		}
		if op.Value.Kind() != n.Kind {
			return nil, fmt.Errorf("%w: node is %s, value is %s", errors.ErrKindMismatch, n.Kind, op.Value.Kind())
		}
		c := n.clone()
		c.Value = op.Value
		return c, nil
	case OpCommitEdit:
		c := n.clone()
		c.Editing = false
		c.OriginalValue = c.Value
		return c, nil
	case OpCancelEdit:
		c := n.clone()
		c.Editing = false
		c.Value = c.OriginalValue
		return c, nil
	}
	return nil, fmt.Errorf("unknown operation %q", op.Kind)
}

// Apply runs op against the node at path and returns the resulting forest.
// An unknown path, or an operation whose precondition fails, returns forest
// unchanged.
func Apply(forest Forest, path string, op Op) Forest {
	next, err := ApplyChecked(forest, path, op)
	if err != nil {
		return forest
	}
	return next
}

// ApplyChecked is Apply, but reports why nothing changed. On error the
// returned forest is the input forest.
func ApplyChecked(forest Forest, path string, op Op) (Forest, error) {
	nodes, err := rewrite(forest, path, op)
	if err != nil {
		return forest, err
	}
	return Forest(nodes), nil
}

// rewrite searches nodes depth first for path. On a match it returns a new
// slice with the replacement in place; siblings are shared. Only children of
// ancestors of path are searched.
func rewrite(nodes []*Node, path string, op Op) ([]*Node, error) {
	for i, n := range nodes {
		var (
			replacement *Node
			err         error
		)
		switch {
		case n.Path == path:
			replacement, err = op.transform(n)
		case n.Children != nil && isAncestorPath(n.Path, path):
			var children []*Node
			children, err = rewrite(n.Children, path, op)
			if err == errors.ErrUnknownPath {
				continue
			}
			if err == nil {
				replacement = n.clone()
				replacement.Children = children
			}
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		out := make([]*Node, len(nodes))
		copy(out, nodes)
		out[i] = replacement
		return out, nil
	}
	return nil, errors.ErrUnknownPath
}

// CancelOtherEdits cancels every in-progress edit except the one at path.
// Collaborators call it before starting an edit so that at most one node is
// editing at a time.
func CancelOtherEdits(forest Forest, path string) Forest {
	for _, n := range Editing(forest) {
		if n.Path != path {
			forest = Apply(forest, n.Path, CancelEdit())
		}
	}
	return forest
}
