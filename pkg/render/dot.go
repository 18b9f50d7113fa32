package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// Window is a window placed on the leaf at Leaf.
type Window struct {
	ID   uint64
	Leaf tree.Path
}

// Options configures DOT generation.
type Options struct {
	// Title is drawn above the graph. Empty omits it.
	Title string
	// Detailed adds gaps, content boxes and traversal order to labels.
	Detailed bool
}

// ToDOT converts a layout tree to Graphviz DOT. resolved may be nil, in
// which case no rectangles are shown.
func ToDOT(root *tree.Node, resolved *geometry.Resolved, windows []Window, opts Options) string {
	placed := make(map[string][]uint64, len(windows))
	for _, w := range windows {
		k := w.Leaf.Key()
		placed[k] = append(placed[k], w.ID)
	}
	degenerate := make(map[string]bool)
	if resolved != nil {
		for _, p := range resolved.Degenerate {
			degenerate[p.Key()] = true
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	var edges []string
	root.Walk(func(p tree.Path, n *tree.Node) bool {
		var box *geometry.Box
		if resolved != nil {
			if b, ok := resolved.Node(p); ok {
				box = &b
			}
		}
		label := fmtLabel(n, p, box, placed[p.Key()], opts.Detailed)
		attrs := fmtAttrs(n, label, len(placed[p.Key()]) > 0, degenerate[p.Key()])
		fmt.Fprintf(&buf, "  %q [%s];\n", p.String(), strings.Join(attrs, ", "))

		for i := range n.Children {
			e := fmt.Sprintf("  %q -> %q", p.String(), p.Child(i).String())
			if opts.Detailed {
				e += fmt.Sprintf(" [label=\"t%d\"]", n.Children[i].TraversalIndex)
			}
			edges = append(edges, e+";\n")
		}
		return true
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *tree.Node, p tree.Path, box *geometry.Box, windows []uint64, detailed bool) string {
	var lines []string
	if n.IsLeaf() {
		lines = append(lines, "tile "+p.String())
	} else {
		lines = append(lines, n.Direction.String()+" "+p.String())
	}
	if n.Label != "" {
		lines = append(lines, "#"+n.Label)
	}
	lines = append(lines, fmt.Sprintf("p=%.3g", n.SizeProportion))
	if box != nil {
		lines = append(lines, box.Outer.Rect().String())
	}
	for _, w := range windows {
		lines = append(lines, fmt.Sprintf("window %d", w))
	}

	if detailed {
		if !n.Gaps.IsZero() {
			g := n.Gaps
			lines = append(lines, fmt.Sprintf("gaps l%g r%g t%g b%g", g.Left, g.Right, g.Top, g.Bottom))
		}
		if box != nil {
			lines = append(lines, "content "+box.Content.Rect().String())
		}
		if len(n.TraversalOverrides) > 0 {
			lines = append(lines, fmt.Sprintf("%d overrides", len(n.TraversalOverrides)))
		}
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(n *tree.Node, label string, occupied, degenerate bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsLeaf() && occupied:
		attrs = append(attrs, "fillcolor=lightblue")
	case n.IsLeaf():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	if degenerate {
		attrs = append(attrs, "color=red", "penwidth=2")
	}
	return attrs
}
