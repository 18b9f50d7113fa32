// Package render draws layout trees.
//
// [ToDOT] turns a tree, its resolved geometry and the windows placed on it
// into Graphviz DOT source. Every node shows its split direction, label,
// proportion and resolved rectangle; leaves show the window they hold.
// [Render] lays the DOT out in process with go-graphviz:
//
//	dot := render.ToDOT(&t.Root, geometry.Resolve(&t.Root, area), windows, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Nodes whose children had no usable proportions are outlined in red.
package render
