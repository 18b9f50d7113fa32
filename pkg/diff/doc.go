// Package diff carries user-adjusted size proportions across layout trees.
//
// Layout trees arrive fresh from an external client on every round, so
// there is no object identity to correlate them by. [Match] pairs nodes of
// the previously applied tree with nodes of the incoming one in two
// passes:
//
//  1. Exact: nodes sharing a non-empty label are paired. When several old
//     nodes carry the label, the one at the same path wins, otherwise the
//     first unclaimed one in pre-order.
//  2. Structural: top-down from matched parents, unmatched children are
//     paired greedily by best score. A score prefers the same kind (leaf
//     or interior), the same direction, the same child count, the larger
//     positional similarity of the two subtrees, and finally the smaller
//     distance between sibling positions.
//
// Two nodes with different non-empty labels are never paired. Nodes left
// unmatched keep their incoming proportions.
//
// [Transfer] copies the old proportion onto every matched new node and
// [ResizeTile] applies a pixel resize as a zero-sum proportion transfer
// between a tile and its neighbour. All functions are pure; inputs are
// never modified.
package diff
