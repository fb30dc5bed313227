package tree

import "github.com/mcncl/treedit/internal/models"

// Row is a node together with its nesting depth, as laid out for display.
type Row struct {
	Node  *Node
	Depth int
}

// Walk calls fn for every node in depth-first order, parents before
// children.
func Walk(forest Forest, fn func(n *Node, depth int)) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(forest, 0)
}

// Find returns the node with the given path.
func Find(forest Forest, path string) (*Node, bool) {
	var found *Node
	Walk(forest, func(n *Node, _ int) {
		if found == nil && n.Path == path {
			found = n
		}
	})
	return found, found != nil
}

// Paths returns every path in the forest in depth-first order.
func Paths(forest Forest) []string {
	var paths []string
	Walk(forest, func(n *Node, _ int) {
		paths = append(paths, n.Path)
	})
	return paths
}

// Visible returns the rows a tree view shows: every node whose ancestors are
// all expanded.
func Visible(forest Forest) []Row {
	var rows []Row
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			rows = append(rows, Row{Node: n, Depth: depth})
			if n.Expanded {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(forest, 0)
	return rows
}

// Selected returns the selected nodes in depth-first order.
func Selected(forest Forest) []*Node {
	var nodes []*Node
	Walk(forest, func(n *Node, _ int) {
		if n.Selected {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

// Editing returns the nodes currently in edit mode.
func Editing(forest Forest) []*Node {
	var nodes []*Node
	Walk(forest, func(n *Node, _ int) {
		if n.Editing {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

// Flatten rebuilds the JSON document a forest represents, taking scalars
// from each node's current Value and containers from their children. root is
// the kind of the document root, object or array; an empty forest carries no
// trace of it. For an unedited forest the result is the document it was
// built from.
func Flatten(root models.Kind, forest Forest) models.Value {
	return assemble(root, forest, currentValue)
}

// assemble builds a container of kind from nodes, reading each leaf with
// leaf.
func assemble(kind models.Kind, nodes []*Node, leaf func(*Node) models.Value) models.Value {
	if kind == models.KindArray {
		elems := make([]models.Value, 0, len(nodes))
		for _, n := range nodes {
			elems = append(elems, subtree(n, leaf))
		}
		return models.Array(elems...)
	}
	members := make([]models.Member, 0, len(nodes))
	for _, n := range nodes {
		members = append(members, models.Member{Key: n.Key, Value: subtree(n, leaf)})
	}
	return models.Object(members...)
}

func subtree(n *Node, leaf func(*Node) models.Value) models.Value {
	if n.Kind.IsContainer() {
		return assemble(n.Kind, n.Children, leaf)
	}
	return leaf(n)
}

func currentValue(n *Node) models.Value  { return n.Value }
func originalValue(n *Node) models.Value { return n.OriginalValue }
