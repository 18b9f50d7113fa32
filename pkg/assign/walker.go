package assign

import (
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// Filled is a set of filled leaf paths keyed by [tree.Path.Key].
type Filled map[string]struct{}

// Has reports whether the leaf at p is filled.
func (f Filled) Has(p tree.Path) bool {
	_, ok := f[p.Key()]
	return ok
}

// Add marks the leaf at p as filled.
func (f Filled) Add(p tree.Path) { f[p.Key()] = struct{}{} }

// Locate returns the leaf window i should occupy given the already filled
// leaves. It does not modify filled. ok is false if every reachable leaf
// is filled.
func Locate(root *tree.Node, i uint32, filled Filled) (tree.Path, bool) {
	return locate(root, i, func(p tree.Path, n *tree.Node) bool {
		if n.IsLeaf() {
			return filled.Has(p)
		}
		return false
	})
}

// Walker assigns windows one by one, tracking filled leaves. Fully filled
// subtrees are skipped without being walked.
type Walker struct {
	root   *tree.Node
	leaves map[string]int
	filled Filled
	used   map[string]int
}

// NewWalker prepares a walker over root. The tree must not be modified
// while the walker is in use.
func NewWalker(root *tree.Node) *Walker {
	w := &Walker{
		root:   root,
		leaves: make(map[string]int),
		filled: make(Filled),
		used:   make(map[string]int),
	}
	w.count(root, tree.Path{})
	return w
}

func (w *Walker) count(n *tree.Node, p tree.Path) int {
	c := 1
	if !n.IsLeaf() {
		c = 0
		for i := range n.Children {
			c += w.count(&n.Children[i], p.Child(i))
		}
	}
	w.leaves[p.Key()] = c
	return c
}

// Next locates the leaf for window i and marks it filled.
func (w *Walker) Next(i uint32) (tree.Path, bool) {
	p, ok := locate(w.root, i, w.full)
	if !ok {
		return nil, false
	}
	w.filled.Add(p)
	for q := p; ; q = q.Parent() {
		w.used[q.Key()]++
		if q.IsRoot() {
			break
		}
	}
	return p, true
}

// Remaining returns the number of unfilled leaves.
func (w *Walker) Remaining() int {
	return w.leaves[""] - w.used[""]
}

// Filled returns a copy of the filled leaf set.
func (w *Walker) Filled() Filled {
	out := make(Filled, len(w.filled))
	for k := range w.filled {
		out[k] = struct{}{}
	}
	return out
}

func (w *Walker) full(p tree.Path, _ *tree.Node) bool {
	k := p.Key()
	return w.used[k] >= w.leaves[k]
}

// Assign locates windows 0..windowCount-1 in index order. The result has
// min(windowCount, leaf count) entries; entry i is the leaf of window i.
func Assign(root *tree.Node, windowCount int) []tree.Path {
	w := NewWalker(root)
	var out []tree.Path
	for i := 0; i < windowCount; i++ {
		p, ok := w.Next(uint32(i))
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// frame is one level of the work list.
type frame struct {
	node  *tree.Node
	path  tree.Path
	order []int // child positions left to visit
	carry []uint32
}

// locate walks from root for window i. full reports whether the subtree
// at a path can take no more windows.
func locate(root *tree.Node, i uint32, full func(tree.Path, *tree.Node) bool) (tree.Path, bool) {
	rootPath := tree.Path{}
	if full(rootPath, root) {
		return nil, false
	}
	if root.IsLeaf() {
		return rootPath, true
	}

	stack := []frame{enter(root, rootPath, i, nil)}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.order) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		pos := top.order[0]
		top.order = top.order[1:]
		var carry []uint32
		if top.carry != nil {
			// Only the first child visited inherits the override tail.
			carry, top.carry = top.carry, nil
		}

		child := &top.node.Children[pos]
		cp := top.path.Child(pos)
		if full(cp, child) {
			continue
		}
		if child.IsLeaf() {
			return cp, true
		}
		stack = append(stack, enter(child, cp, i, carry))
	}
	return nil, false
}

// enter builds the frame for n. A carried override path from an ancestor
// takes precedence over n's own override for window i. The override's
// first entry moves the selected child to the front of the visit order;
// the rest of the path is carried into that child. Out of range entries
// are ignored.
func enter(n *tree.Node, p tree.Path, i uint32, carry []uint32) frame {
	order := n.TraversalOrder()
	route := carry
	if len(route) == 0 {
		route = n.TraversalOverrides[i]
	}

	f := frame{node: n, path: p, order: order}
	if len(route) == 0 || int(route[0]) >= len(order) {
		return f
	}

	sel := int(route[0])
	reordered := make([]int, 0, len(order))
	reordered = append(reordered, order[sel])
	reordered = append(reordered, order[:sel]...)
	reordered = append(reordered, order[sel+1:]...)
	f.order = reordered
	if rest := route[1:]; len(rest) > 0 {
		f.carry = rest
	}
	return f
}
