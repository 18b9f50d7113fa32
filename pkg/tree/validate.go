package tree

import (
	"errors"
	"math"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
)

// Limits applied to trees received from the layout client.
const (
	// MaxDepth is the deepest tree accepted by [Validate].
	MaxDepth = 64
	// MaxNodes is the largest tree accepted by [Validate].
	MaxNodes = 4096
)

// ErrEmptyTree is returned by [ReadFile] when the input holds no root node.
var ErrEmptyTree = errors.New("empty layout tree")

// Validate checks that n can be resolved into geometry:
//   - every SizeProportion is finite and > 0 (so every sibling sum is > 0)
//   - every gap is finite and >= 0
//   - the tree stays within [MaxDepth] and [MaxNodes]
//
// Traversal overrides are not validated; entries that do not address an
// existing child are ignored during assignment.
//
// The returned error carries INVALID_PROPORTION or INVALID_TREE.
func Validate(n *Node) error {
	if count := n.NodeCount(); count > MaxNodes {
		return tlerrors.New(tlerrors.ErrCodeInvalidTree, "tree has %d nodes (max %d)", count, MaxNodes)
	}
	if depth := n.Depth(); depth > MaxDepth {
		return tlerrors.New(tlerrors.ErrCodeInvalidTree, "tree is %d levels deep (max %d)", depth, MaxDepth)
	}

	var err error
	n.Walk(func(p Path, node *Node) bool {
		if err != nil {
			return false
		}
		if !validProportion(node.SizeProportion) {
			err = tlerrors.New(tlerrors.ErrCodeInvalidProportion,
				"node %s has size proportion %v (must be > 0)", p, node.SizeProportion)
			return false
		}
		if !validGaps(node.Gaps) {
			err = tlerrors.New(tlerrors.ErrCodeInvalidTree,
				"node %s has invalid gaps %+v (must be >= 0)", p, node.Gaps)
			return false
		}
		return true
	})
	return err
}

// ValidateTree validates t.Root.
func ValidateTree(t *Tree) error {
	return Validate(&t.Root)
}

func validProportion(p float32) bool {
	f := float64(p)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func validGaps(g Gaps) bool {
	for _, v := range [...]float32{g.Left, g.Right, g.Top, g.Bottom} {
		f := float64(v)
		if f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return false
		}
	}
	return true
}
