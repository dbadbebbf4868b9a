package optree

import "strings"

// PathSeparator joins path segments in their textual form. Option keys
// may themselves contain dots, as in AssignmentExpression.BinaryExpression.
const PathSeparator = "/"

// Path addresses a node inside a tree as a sequence of keys.
type Path []string

// ParsePath splits a slash-separated path. The empty string is the root.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, PathSeparator))
}

// String joins the path with PathSeparator.
func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Child returns a new path with key appended.
func (p Path) Child(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// Valid reports whether the path is non-empty with no empty segments.
func (p Path) Valid() bool {
	if len(p) == 0 {
		return false
	}
	for _, k := range p {
		if k == "" {
			return false
		}
	}
	return true
}

// Get returns the node at path.
func (n *Node) Get(path Path) (*Node, bool) {
	current := n
	for _, key := range path {
		next, ok := current.Child(key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// SetPath stores value at path, creating intermediate groups as needed.
// A scalar found where a group is needed is replaced by a group.
func (n *Node) SetPath(path Path, value *Node) error {
	if !path.Valid() {
		return &PathError{Path: path.String(), Err: ErrInvalidPath}
	}
	if !n.IsGroup() {
		return &PathError{Path: path.String(), Err: ErrNotGroup}
	}

	current := n
	for _, key := range path[:len(path)-1] {
		next, ok := current.Child(key)
		if !ok || !next.IsGroup() {
			next = NewGroup()
			current.Set(key, next)
		}
		current = next
	}
	current.Set(path[len(path)-1], value)
	return nil
}

// DeletePath removes the node at path, then removes every ancestor on
// that path left without children. Groups outside the path are never
// touched. Returns true if a node was removed.
func (n *Node) DeletePath(path Path) bool {
	if !path.Valid() {
		return false
	}

	// Collect the chain of groups leading to the leaf.
	chain := make([]*Node, 0, len(path))
	current := n
	for _, key := range path[:len(path)-1] {
		next, ok := current.Child(key)
		if !ok || !next.IsGroup() {
			return false
		}
		chain = append(chain, current)
		current = next
	}
	if !current.Delete(path[len(path)-1]) {
		return false
	}

	// Walk back up, pruning groups emptied by this delete.
	for i := len(chain) - 1; i >= 0; i-- {
		if current.Len() > 0 {
			break
		}
		chain[i].Delete(path[i])
		current = chain[i]
	}
	return true
}

// Walk calls fn for every scalar under n, depth first in key order.
func (n *Node) Walk(fn func(path Path, leaf *Node)) {
	n.walk(nil, fn)
}

func (n *Node) walk(prefix Path, fn func(Path, *Node)) {
	if !n.IsGroup() {
		fn(prefix, n)
		return
	}
	for _, key := range n.Keys() {
		child, _ := n.Child(key)
		child.walk(prefix.Child(key), fn)
	}
}
