package tree

import (
	"cmp"
	"fmt"
	"slices"
)

// DefaultProportion is the size proportion of a node that does not set one.
const DefaultProportion float32 = 1.0

// Direction is the axis along which a node splits its content box.
type Direction uint8

const (
	// Row places children left to right.
	Row Direction = iota
	// Column places children top to bottom.
	Column
)

// String returns "row" or "column".
func (d Direction) String() string {
	switch d {
	case Row:
		return "row"
	case Column:
		return "column"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case Row, Column:
		return []byte(d.String()), nil
	default:
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
// The empty string decodes to Row.
func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "row":
		*d = Row
	case "column":
		*d = Column
	default:
		return fmt.Errorf("invalid direction %q (must be row or column)", b)
	}
	return nil
}

// Gaps is the spacing removed from each side of a node's rectangle before
// its children are laid out.
type Gaps struct {
	Left   float32 `json:"left,omitempty"`
	Right  float32 `json:"right,omitempty"`
	Top    float32 `json:"top,omitempty"`
	Bottom float32 `json:"bottom,omitempty"`
}

// UniformGaps returns gaps of v on every side.
func UniformGaps(v float32) Gaps {
	return Gaps{Left: v, Right: v, Top: v, Bottom: v}
}

// IsZero reports whether all sides are zero.
func (g Gaps) IsZero() bool { return g == Gaps{} }

// Node is one node of a layout tree. A node without children is a leaf.
//
// The zero value is a row leaf with a zero proportion, which [Validate]
// rejects; use [NewLeaf] or [NewSplit] to get defaults.
type Node struct {
	// Label optionally names a semantically stable slot. Empty means unset.
	Label string
	// Direction is the split axis for the children.
	Direction Direction
	// Gaps shrink this node's rectangle to its content box.
	Gaps Gaps
	// SizeProportion is this node's share relative to its siblings.
	SizeProportion float32
	// TraversalIndex orders siblings during window assignment.
	TraversalIndex uint32
	// TraversalOverrides maps a window index to a path of positions into
	// the traversal ordered children, starting at this node.
	TraversalOverrides map[uint32][]uint32
	// Children in positional (geometric) order.
	Children []Node
}

// NewLeaf returns a leaf with the default proportion.
func NewLeaf() Node {
	return Node{SizeProportion: DefaultProportion}
}

// NewSplit returns an interior node with the default proportion. Children
// get their sibling position as traversal index.
func NewSplit(dir Direction, children ...Node) Node {
	n := Node{Direction: dir, SizeProportion: DefaultProportion, Children: children}
	for i := range n.Children {
		n.Children[i].TraversalIndex = uint32(i)
	}
	return n
}

// WithLabel returns a copy of n with the label set.
func (n Node) WithLabel(label string) Node {
	n.Label = label
	return n
}

// WithProportion returns a copy of n with the size proportion set.
func (n Node) WithProportion(p float32) Node {
	n.SizeProportion = p
	return n
}

// WithGaps returns a copy of n with gaps set.
func (n Node) WithGaps(g Gaps) Node {
	n.Gaps = g
	return n
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// LeafCount returns the number of leaves in the subtree rooted at n.
func (n *Node) LeafCount() int {
	if n.IsLeaf() {
		return 1
	}
	count := 0
	for i := range n.Children {
		count += n.Children[i].LeafCount()
	}
	return count
}

// NodeCount returns the number of nodes in the subtree rooted at n.
func (n *Node) NodeCount() int {
	count := 1
	for i := range n.Children {
		count += n.Children[i].NodeCount()
	}
	return count
}

// Depth returns the height of the subtree rooted at n; a leaf has depth 1.
func (n *Node) Depth() int {
	deepest := 0
	for i := range n.Children {
		deepest = max(deepest, n.Children[i].Depth())
	}
	return deepest + 1
}

// TraversalOrder returns child positions sorted by ascending
// TraversalIndex. Ties keep positional order.
func (n *Node) TraversalOrder() []int {
	order := make([]int, len(n.Children))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(n.Children[a].TraversalIndex, n.Children[b].TraversalIndex)
	})
	return order
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := n
	if n.TraversalOverrides != nil {
		out.TraversalOverrides = make(map[uint32][]uint32, len(n.TraversalOverrides))
		for k, v := range n.TraversalOverrides {
			out.TraversalOverrides[k] = slices.Clone(v)
		}
	}
	if n.Children != nil {
		out.Children = make([]Node, len(n.Children))
		for i := range n.Children {
			out.Children[i] = n.Children[i].Clone()
		}
	}
	return out
}

// At returns the node at path p relative to n.
func (n *Node) At(p Path) (*Node, bool) {
	cur := n
	for _, pos := range p {
		if pos < 0 || pos >= len(cur.Children) {
			return nil, false
		}
		cur = &cur.Children[pos]
	}
	return cur, true
}

// Walk visits n and every descendant in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(p Path, node *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(p Path, fn func(Path, *Node) bool) {
	if !fn(p, n) {
		return
	}
	for i := range n.Children {
		n.Children[i].walk(p.Child(i), fn)
	}
}

// Leaves returns the paths of all leaves in positional pre-order.
func (n *Node) Leaves() []Path {
	var leaves []Path
	n.Walk(func(p Path, node *Node) bool {
		if node.IsLeaf() {
			leaves = append(leaves, p)
		}
		return true
	})
	return leaves
}

// Tree is one client-supplied layout tree.
type Tree struct {
	Root Node
	// ID is an opaque client-chosen cache tag.
	ID uint32
}

// Clone returns a deep copy of t.
func (t Tree) Clone() Tree {
	return Tree{Root: t.Root.Clone(), ID: t.ID}
}
