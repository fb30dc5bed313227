package tree

import "github.com/mcncl/treedit/internal/models"

// Build converts a decoded document root into a forest. Objects produce one
// node per member in source order; arrays produce one node per element
// labeled "[i]". Any other value is not a valid root and yields an empty
// forest; callers reject scalar roots before getting here.
//
// Every node starts expanded, not editing, not selected, with OriginalValue
// equal to Value.
func Build(root models.Value) Forest {
	if !root.Kind().IsContainer() {
		return Forest{}
	}
	return Forest(buildChildren(root, ""))
}

// BuildDocument is Build applied to a parsed document.
func BuildDocument(doc models.Document) Forest {
	return Build(doc.Root)
}

// buildChildren produces the child nodes of container under parentPath.
func buildChildren(container models.Value, parentPath string) []*Node {
	nodes := make([]*Node, 0, container.Len())
	switch container.Kind() {
	case models.KindObject:
		for _, m := range container.Members() {
			nodes = append(nodes, buildNode(m.Key, memberPath(parentPath, m.Key), m.Value))
		}
	case models.KindArray:
		for i, elem := range container.Elements() {
			nodes = append(nodes, buildNode(elementKey(i), elementPath(parentPath, i), elem))
		}
	}
	return nodes
}

func buildNode(key, path string, value models.Value) *Node {
	node := &Node{
		Key:           key,
		Kind:          value.Kind(),
		Value:         value,
		Path:          path,
		OriginalValue: value,
		Expanded:      true,
	}
	if node.Kind.IsContainer() {
		node.Children = buildChildren(value, path)
	}
	return node
}
