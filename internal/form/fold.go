package form

import "github.com/dshills/esplay/internal/optree"

// Fold tracks which groups are collapsed. Groups start expanded.
// State is keyed by path so it survives re-rendering.
type Fold struct {
	collapsed map[string]bool
}

// NewFold returns a fold state with every group expanded.
func NewFold() *Fold {
	return &Fold{collapsed: make(map[string]bool)}
}

// Collapsed reports whether the group at path is collapsed.
func (f *Fold) Collapsed(path optree.Path) bool {
	return f.collapsed[path.String()]
}

// Toggle flips the group at path and returns the new collapsed state.
func (f *Fold) Toggle(path optree.Path) bool {
	key := path.String()
	if f.collapsed[key] {
		delete(f.collapsed, key)
		return false
	}
	f.collapsed[key] = true
	return true
}

// CollapseAll collapses every group below root.
func (f *Fold) CollapseAll(root *Node) {
	for _, c := range root.Children {
		if c.IsGroup() {
			f.collapsed[c.Path.String()] = true
			f.CollapseAll(c)
		}
	}
}

// ExpandAll expands every group.
func (f *Fold) ExpandAll() {
	clear(f.collapsed)
}

// Row is one visible line of a form.
type Row struct {
	Node  *Node
	Depth int
}

// Flatten lists the visible rows of root in display order, skipping the
// children of collapsed groups. fold may be nil.
func Flatten(root *Node, fold *Fold) []Row {
	var rows []Row
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		for _, c := range n.Children {
			rows = append(rows, Row{Node: c, Depth: depth})
			if c.IsGroup() && (fold == nil || !fold.Collapsed(c.Path)) {
				walk(c, depth+1)
			}
		}
	}
	walk(root, 0)
	return rows
}
