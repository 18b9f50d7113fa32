package diff

import (
	"math"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// DefaultMinProportion is the smallest proportion a resize shrinks a node to.
const DefaultMinProportion float32 = 0.1

// Edges holds per-edge pixel deltas. Positive values move that edge
// outward, growing the tile.
type Edges struct {
	Left, Right, Top, Bottom int
}

// IsZero reports whether no edge moves.
func (e Edges) IsZero() bool { return e == Edges{} }

// ResizeTile moves the edges of the leaf at leaf by the given pixel deltas.
//
// For each edge the nearest ancestor split along that edge's axis with a
// neighbour on that side is found (Row for left and right, Column for top
// and bottom). The pixel delta is converted to a proportion delta using
// the ancestor's content extent from resolved, and moved between the
// child on the leaf's path and that neighbour. Neither side is shrunk
// below minProportion; a node already below it is not shrunk further.
// Edges without a suitable ancestor are ignored.
//
// The input tree is not modified.
func ResizeTile(root *tree.Node, resolved *geometry.Resolved, leaf tree.Path, d Edges, minProportion float32) (tree.Node, error) {
	n, ok := root.At(leaf)
	if !ok {
		return tree.Node{}, tlerrors.New(tlerrors.ErrCodeNotFound, "no node at %s", leaf)
	}
	if !n.IsLeaf() {
		return tree.Node{}, tlerrors.New(tlerrors.ErrCodeInvalidInput, "node at %s is not a leaf", leaf)
	}
	if resolved == nil {
		return tree.Node{}, tlerrors.New(tlerrors.ErrCodeInvalidInput, "resize needs resolved geometry")
	}
	if minProportion <= 0 {
		minProportion = DefaultMinProportion
	}

	out := root.Clone()
	moves := []struct {
		px      int
		dir     tree.Direction
		forward bool
	}{
		{d.Left, tree.Row, false},
		{d.Right, tree.Row, true},
		{d.Top, tree.Column, false},
		{d.Bottom, tree.Column, true},
	}
	for _, mv := range moves {
		if mv.px == 0 {
			continue
		}
		shift(&out, resolved, leaf, mv.px, mv.dir, mv.forward, minProportion)
	}
	return out, nil
}

func shift(root *tree.Node, resolved *geometry.Resolved, leaf tree.Path, px int, dir tree.Direction, forward bool, minP float32) {
	for depth := len(leaf) - 1; depth >= 0; depth-- {
		parentPath := leaf[:depth]
		parent, _ := root.At(parentPath)
		if parent.Direction != dir {
			continue
		}
		pos := leaf[depth]
		nb := pos - 1
		if forward {
			nb = pos + 1
		}
		if nb < 0 || nb >= len(parent.Children) {
			continue
		}

		box, ok := resolved.Node(parentPath)
		if !ok {
			return
		}
		extent := box.Content.Width()
		if dir == tree.Column {
			extent = box.Content.Height()
		}
		if extent <= 0 {
			return
		}

		var sum float64
		for i := range parent.Children {
			sum += float64(parent.Children[i].SizeProportion)
		}
		delta := float64(px) * sum / extent

		grow, shrink := &parent.Children[pos], &parent.Children[nb]
		if delta < 0 {
			grow, shrink = shrink, grow
			delta = -delta
		}
		room := float64(shrink.SizeProportion) - float64(minP)
		if room <= 0 {
			return
		}
		delta = math.Min(delta, room)
		grow.SizeProportion = float32(float64(grow.SizeProportion) + delta)
		shrink.SizeProportion = float32(float64(shrink.SizeProportion) - delta)
		return
	}
}
