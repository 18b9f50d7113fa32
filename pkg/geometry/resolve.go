package geometry

import (
	"math"

	"github.com/matzehuels/tilelayout/pkg/tree"
)

// Box is the resolved geometry of one node.
type Box struct {
	Path tree.Path
	// Outer is the space allocated to the node by its parent.
	Outer Frame
	// Content is Outer minus the node's gaps. For a leaf this is the
	// rectangle a window is placed in.
	Content Frame
}

// Rect returns the rounded content box.
func (b Box) Rect() Rect { return b.Content.Rect() }

// Resolved holds the geometry of every node of a tree.
type Resolved struct {
	// Area is the rectangle the tree was resolved into.
	Area Rect
	// Leaves lists leaf boxes in positional pre-order.
	Leaves []Box
	// Degenerate lists interior nodes whose children's proportions summed
	// to zero (or were not finite). Their children got equal shares.
	Degenerate []tree.Path

	nodes map[string]Box
}

// Node returns the box of the node at p.
func (r *Resolved) Node(p tree.Path) (Box, bool) {
	b, ok := r.nodes[p.Key()]
	return b, ok
}

// LeafRect returns the rounded rectangle of the leaf at p.
func (r *Resolved) LeafRect(p tree.Path) (Rect, bool) {
	b, ok := r.nodes[p.Key()]
	if !ok {
		return Rect{}, false
	}
	return b.Rect(), true
}

// Resolve computes the geometry of root laid out in area.
//
// Resolve never fails. Malformed proportions (which [tree.Validate]
// rejects) degrade to equal shares and are reported in
// [Resolved.Degenerate].
func Resolve(root *tree.Node, area Rect) *Resolved {
	r := &Resolved{
		Area:  area,
		nodes: make(map[string]Box, root.NodeCount()),
	}
	r.resolve(root, tree.Path{}, FrameOf(area))
	return r
}

func (r *Resolved) resolve(n *tree.Node, p tree.Path, outer Frame) {
	g := n.Gaps
	content := outer.inset(float64(g.Left), float64(g.Right), float64(g.Top), float64(g.Bottom))
	box := Box{Path: p, Outer: outer, Content: content}
	r.nodes[p.Key()] = box

	if n.IsLeaf() {
		r.Leaves = append(r.Leaves, box)
		return
	}

	edges, ok := splitEdges(n, content)
	if !ok {
		r.Degenerate = append(r.Degenerate, p)
	}
	for i := range n.Children {
		child := content
		if n.Direction == tree.Column {
			child.Y0, child.Y1 = edges[i], edges[i+1]
		} else {
			child.X0, child.X1 = edges[i], edges[i+1]
		}
		r.resolve(&n.Children[i], p.Child(i), child)
	}
}

// splitEdges returns len(children)+1 edges along n's direction. The first
// and last edges are exactly the content box edges. ok is false when the
// proportions were unusable and equal shares were used instead.
func splitEdges(n *tree.Node, content Frame) (edges []float64, ok bool) {
	start, end := content.X0, content.X1
	if n.Direction == tree.Column {
		start, end = content.Y0, content.Y1
	}
	extent := end - start

	weights := make([]float64, len(n.Children))
	var sum float64
	for i := range n.Children {
		weights[i] = weight(n.Children[i].SizeProportion)
		sum += weights[i]
	}
	ok = sum > 0 && !math.IsInf(sum, 0)
	if !ok {
		for i := range weights {
			weights[i] = 1
		}
		sum = float64(len(weights))
	}

	edges = make([]float64, len(weights)+1)
	edges[0] = start
	var cum float64
	for i := 0; i < len(weights)-1; i++ {
		cum += weights[i]
		edges[i+1] = start + extent*cum/sum
	}
	edges[len(weights)] = end
	return edges, ok
}

func weight(p float32) float64 {
	f := float64(p)
	if f > 0 && !math.IsInf(f, 0) {
		return f
	}
	return 0
}
