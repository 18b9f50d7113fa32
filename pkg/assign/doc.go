// Package assign maps window indices onto the leaves of a layout tree.
//
// Every window index is located independently by a fresh walk from the
// root. At each interior node the walk visits children in ascending
// traversal index order, skipping subtrees whose leaves are all filled.
// A traversal override for the window at a node selects children by
// position in that order, and the remainder of the override path is
// carried into the chosen child; when the override path leads nowhere the
// walk falls back to the default order and backtracks as usual.
//
// The walk uses an explicit work list over an immutable tree plus a set of
// filled leaf paths, so a single window can be located with [Locate]
// without replaying the others.
package assign
