package tree

import (
	"strconv"
	"strings"
)

// memberPath returns the path of object member key under parent.
//
// Plain keys are joined with a dot. Keys that are empty or contain path
// syntax are written in bracket form with a quoted key, so that
// {"a.b": 1} and {"a": {"b": 1}} produce different paths.
func memberPath(parent, key string) string {
	if needsQuoting(key) {
		return parent + "[" + strconv.Quote(key) + "]"
	}
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// elementPath returns the path of array element i under parent.
func elementPath(parent string, i int) string {
	return parent + elementKey(i)
}

// elementKey is the display label of array element i.
func elementKey(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

func needsQuoting(key string) bool {
	return key == "" || strings.ContainsAny(key, `.[]"\`)
}

// isAncestorPath reports whether ancestor is a strict prefix of path at a
// segment boundary.
func isAncestorPath(ancestor, path string) bool {
	if len(ancestor) >= len(path) || !strings.HasPrefix(path, ancestor) {
		return false
	}
	next := path[len(ancestor)]
	return next == '.' || next == '['
}
