package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/render"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		format render.Format
		want   string
	}{
		{"derived from input", "", "layouts/tree.json", render.FormatSVG, "layouts/tree.svg"},
		{"derived png", "", "tree.json", render.FormatPNG, "tree.png"},
		{"explicit", "out.dot", "tree.json", render.FormatDOT, "out.dot"},
		{"stdout", "-", "tree.json", render.FormatDOT, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(tt.output, tt.input, tt.format); got != tt.want {
				t.Errorf("outputPath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}

func TestTreeDOT(t *testing.T) {
	root := tree.NewSplit(tree.Row, tree.NewLeaf(), tree.NewLeaf(), tree.NewLeaf())
	dot := treeDOT(&root, geometry.NewRect(0, 0, 300, 100), 2, render.Options{})

	if !strings.Contains(dot, "window 0") || !strings.Contains(dot, "window 1") {
		t.Error("treeDOT() missing placed windows")
	}
	if strings.Contains(dot, "window 2") {
		t.Error("treeDOT() placed more windows than requested")
	}
	if !strings.Contains(dot, "(100,0,100,100)") {
		t.Error("treeDOT() missing resolved rectangle")
	}
}

func TestRenderCommandDOT(t *testing.T) {
	path := writeFile(t, "tree.json", twoColumns)
	out := filepath.Join(filepath.Dir(path), "tree.dot")

	if _, err := execute(t, "render", path, "--format", "dot", "--width", "300", "--height", "100"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("render did not write %s: %v", out, err)
	}
	for _, want := range []string{"digraph G", `label="tree.json"`, "#main", "(0,0,200,100)"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("DOT missing %q", want)
		}
	}
}

func TestRenderCommandRejectsFormat(t *testing.T) {
	path := writeFile(t, "tree.json", twoColumns)
	if _, err := execute(t, "render", path, "--format", "pdf"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
