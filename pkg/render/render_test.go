package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

func sampleTree() tree.Node {
	return tree.NewSplit(tree.Row,
		tree.NewLeaf().WithLabel("main"),
		tree.NewSplit(tree.Column, tree.NewLeaf(), tree.NewLeaf()),
	)
}

func TestToDOT_Basic(t *testing.T) {
	root := sampleTree()
	resolved := geometry.Resolve(&root, geometry.NewRect(0, 0, 300, 100))
	dot := ToDOT(&root, resolved, []Window{{ID: 7, Leaf: tree.Path{0}}}, Options{})

	for _, want := range []string{
		"digraph G",
		`"root" -> "0"`,
		`"root" -> "1"`,
		`"1" -> "1.1"`,
		"#main",
		"window 7",
		"(0,0,150,100)",
		"(150,50,150,50)",
		"lightblue",
		"dashed",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %q", want)
		}
	}
	if strings.Contains(dot, "color=red") {
		t.Error("ToDOT() marked a healthy tree as degenerate")
	}
}

func TestToDOT_WithoutGeometry(t *testing.T) {
	root := tree.NewLeaf()
	dot := ToDOT(&root, nil, nil, Options{Title: "DP-1"})
	if !strings.Contains(dot, `label="DP-1"`) {
		t.Error("ToDOT() missing title")
	}
	if strings.Contains(dot, "->") {
		t.Error("ToDOT() single leaf has edges")
	}
}

func TestToDOT_Detailed(t *testing.T) {
	root := tree.NewSplit(tree.Row, tree.NewLeaf(), tree.NewLeaf()).WithGaps(tree.UniformGaps(4))
	root.TraversalOverrides = map[uint32][]uint32{0: {1}}
	resolved := geometry.Resolve(&root, geometry.NewRect(0, 0, 100, 100))

	dot := ToDOT(&root, resolved, nil, Options{Detailed: true})
	for _, want := range []string{"gaps l4 r4 t4 b4", "content (4,4,92,92)", "1 overrides", `[label="t1"]`} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() detailed output missing %q", want)
		}
	}
}

func TestToDOT_Degenerate(t *testing.T) {
	root := tree.NewSplit(tree.Row, tree.NewLeaf().WithProportion(0), tree.NewLeaf().WithProportion(0))
	resolved := geometry.Resolve(&root, geometry.NewRect(0, 0, 100, 100))
	if dot := ToDOT(&root, resolved, nil, Options{}); !strings.Contains(dot, "color=red") {
		t.Error("ToDOT() did not mark degenerate node")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"dot", FormatDOT, false},
		{"svg", FormatSVG, false},
		{"png", FormatPNG, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderDOTPassthrough(t *testing.T) {
	out, err := Render(context.Background(), "digraph G {}", FormatDOT)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "digraph G {}" {
		t.Errorf("Render(dot) = %q", out)
	}
	if _, err := Render(context.Background(), "digraph G {}", Format("pdf")); err == nil {
		t.Error("Render(pdf) succeeded")
	}
}

func TestRenderSVG(t *testing.T) {
	root := sampleTree()
	svg, err := RenderSVG(context.Background(), ToDOT(&root, nil, nil, Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !bytes.Contains(svg, []byte(`viewBox="0 0 `)) {
		t.Error("RenderSVG() did not normalize the viewBox")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("normalizeViewBox() without viewBox changed input: %s", got)
	}
}
