// Package geometry resolves a layout tree into concrete rectangles.
//
// [Resolve] is a pure, deterministic function of a tree and an available
// rectangle. Each node's rectangle is shrunk by its gaps to a content box;
// the content box is divided along the node's direction among its children
// in proportion to their size proportions, with the full extent on the
// perpendicular axis.
//
// Computation happens on float64 [Frame] edges. Integer [Rect] values are
// derived by rounding edges rather than widths, so siblings that share a
// float edge share the same integer edge and tile their parent exactly.
// This mirrors the single-rounding approach used by the tui layout engine
// for jitter-free positioning.
package geometry
