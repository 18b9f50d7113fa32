package diff

import (
	"testing"

	"github.com/matzehuels/tilelayout/pkg/tree"
)

func leaves(n int) []tree.Node {
	out := make([]tree.Node, n)
	for i := range out {
		out[i] = tree.NewLeaf()
	}
	return out
}

func masterStack(stack int) tree.Node {
	return tree.NewSplit(tree.Row,
		tree.NewLeaf().WithLabel("master"),
		tree.NewSplit(tree.Column, leaves(stack)...).WithLabel("stack"),
	)
}

func proportion(t *testing.T, n *tree.Node, key string) float32 {
	t.Helper()
	p, err := tree.ParsePath(key)
	if err != nil {
		t.Fatal(err)
	}
	node, ok := n.At(p)
	if !ok {
		t.Fatalf("no node at %q", key)
	}
	return node.SizeProportion
}

func setProportion(t *testing.T, n *tree.Node, key string, v float32) {
	t.Helper()
	p, _ := tree.ParsePath(key)
	node, ok := n.At(p)
	if !ok {
		t.Fatalf("no node at %q", key)
	}
	node.SizeProportion = v
}

func TestReconcileRestoresProportions(t *testing.T) {
	tests := []struct {
		name  string
		build func() tree.Node
		set   map[string]float32
	}{
		{
			name:  "labelled master stack",
			build: func() tree.Node { return masterStack(2) },
			set:   map[string]float32{"0": 1.4, "1": 0.6, "1.0": 0.7, "1.1": 1.3},
		},
		{
			name:  "unlabelled columns",
			build: func() tree.Node { return tree.NewSplit(tree.Row, leaves(3)...) },
			set:   map[string]float32{"0": 0.5, "1": 1.25, "2": 1.25},
		},
		{
			name: "nested unlabelled",
			build: func() tree.Node {
				return tree.NewSplit(tree.Column,
					tree.NewSplit(tree.Row, leaves(2)...),
					tree.NewLeaf(),
				)
			},
			set: map[string]float32{"0": 2, "0.0": 0.3, "0.1": 1.7, "1": 0.9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied := tt.build()
			for k, v := range tt.set {
				setProportion(t, &applied, k, v)
			}
			fresh := tt.build()

			got, m := Reconcile(&applied, &fresh)
			if m.Len() != fresh.NodeCount() {
				t.Errorf("matched %d nodes, want %d", m.Len(), fresh.NodeCount())
			}
			for k, want := range tt.set {
				if p := proportion(t, &got, k); p != want {
					t.Errorf("proportion at %s = %v, want %v", k, p, want)
				}
			}
			if p := proportion(t, &fresh, "0"); p != tree.DefaultProportion {
				t.Errorf("Reconcile modified its input: %v", p)
			}
		})
	}
}

func TestReconcileGrowingStack(t *testing.T) {
	applied := masterStack(2)
	setProportion(t, &applied, "0", 1.5)
	setProportion(t, &applied, "1", 0.5)
	setProportion(t, &applied, "1.0", 0.8)
	setProportion(t, &applied, "1.1", 1.2)

	fresh := masterStack(3)
	got, _ := Reconcile(&applied, &fresh)

	want := map[string]float32{"0": 1.5, "1": 0.5, "1.0": 0.8, "1.1": 1.2, "1.2": 1}
	for k, w := range want {
		if p := proportion(t, &got, k); p != w {
			t.Errorf("proportion at %s = %v, want %v", k, p, w)
		}
	}
}

func TestMatchLabelsAcrossPositions(t *testing.T) {
	old := tree.NewSplit(tree.Row,
		tree.NewLeaf().WithLabel("a").WithProportion(2),
		tree.NewLeaf().WithLabel("b").WithProportion(0.5),
	)
	next := tree.NewSplit(tree.Row,
		tree.NewLeaf().WithLabel("b"),
		tree.NewLeaf().WithLabel("a"),
	)

	m := Match(&old, &next)
	if p, ok := m.Old(tree.Path{0}); !ok || p.Key() != "1" {
		t.Errorf("Old(0) = %v, %v, want 1", p, ok)
	}
	got := Transfer(&old, &next, m)
	if p := proportion(t, &got, "0"); p != 0.5 {
		t.Errorf("b proportion = %v, want 0.5", p)
	}
	if p := proportion(t, &got, "1"); p != 2 {
		t.Errorf("a proportion = %v, want 2", p)
	}
}

func TestMatchDuplicateLabelsPreferSamePath(t *testing.T) {
	old := tree.NewSplit(tree.Row,
		tree.NewLeaf().WithLabel("tile").WithProportion(3),
		tree.NewLeaf().WithLabel("tile").WithProportion(5),
	)
	next := tree.NewSplit(tree.Row,
		tree.NewLeaf(),
		tree.NewLeaf().WithLabel("tile"),
	)

	m := Match(&old, &next)
	if p, ok := m.Old(tree.Path{1}); !ok || p.Key() != "1" {
		t.Errorf("Old(1) = %v, %v, want 1", p, ok)
	}
}

func TestMatchDuplicateLabelsPreferNearestPath(t *testing.T) {
	old := tree.NewSplit(tree.Row,
		tree.NewLeaf().WithLabel("tile").WithProportion(2),
		tree.NewSplit(tree.Column,
			tree.NewLeaf(),
			tree.NewLeaf().WithLabel("tile").WithProportion(3),
		),
	)
	next := tree.NewSplit(tree.Row,
		tree.NewLeaf(),
		tree.NewSplit(tree.Column,
			tree.NewLeaf(),
			tree.NewLeaf(),
			tree.NewLeaf().WithLabel("tile"),
		),
	)

	m := Match(&old, &next)
	if p, ok := m.Old(tree.Path{1, 2}); !ok || !p.Equal(tree.Path{1, 1}) {
		t.Errorf("Old(1.2) = %v, %v, want 1.1", p, ok)
	}
}

func TestNearer(t *testing.T) {
	tests := []struct {
		name      string
		a, b, tgt tree.Path
		want      bool
	}{
		{"equal path wins", tree.Path{1, 2}, tree.Path{1, 1}, tree.Path{1, 2}, true},
		{"longer prefix wins", tree.Path{1, 1}, tree.Path{0}, tree.Path{1, 2}, true},
		{"shorter prefix loses", tree.Path{0}, tree.Path{1, 1}, tree.Path{1, 2}, false},
		{"closer sibling wins", tree.Path{3}, tree.Path{0}, tree.Path{2}, true},
		{"smaller depth difference wins", tree.Path{1, 0, 5}, tree.Path{1, 0, 0, 0}, tree.Path{1, 0}, true},
		{"tie keeps earlier", tree.Path{1}, tree.Path{3}, tree.Path{2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nearer(tt.a, tt.b, tt.tgt); got != tt.want {
				t.Errorf("nearer(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.tgt, got, tt.want)
			}
		})
	}
}

func TestMatchNeverPairsDifferentLabels(t *testing.T) {
	old := tree.NewSplit(tree.Row, tree.NewLeaf().WithLabel("x").WithProportion(3))
	next := tree.NewSplit(tree.Row, tree.NewLeaf().WithLabel("y"))

	m := Match(&old, &next)
	if _, ok := m.Old(tree.Path{0}); ok {
		t.Error("differently labelled leaves were matched")
	}
	got := Transfer(&old, &next, m)
	if p := proportion(t, &got, "0"); p != tree.DefaultProportion {
		t.Errorf("proportion = %v, want default", p)
	}
}

func TestMatchRootsWithDifferentLabels(t *testing.T) {
	old := tree.NewSplit(tree.Row, leaves(2)...).WithLabel("tall")
	next := tree.NewSplit(tree.Row, leaves(2)...).WithLabel("wide")

	if m := Match(&old, &next); m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestMatchPrefersSameShape(t *testing.T) {
	old := tree.NewSplit(tree.Row,
		tree.NewLeaf().WithProportion(4),
		tree.NewSplit(tree.Column, leaves(2)...).WithProportion(7),
	)
	// The split moved to the front; it should still find its old self.
	next := tree.NewSplit(tree.Row,
		tree.NewSplit(tree.Column, leaves(2)...),
		tree.NewLeaf(),
	)

	m := Match(&old, &next)
	if p, ok := m.Old(tree.Path{0}); !ok || p.Key() != "1" {
		t.Errorf("Old(0) = %v, %v, want 1", p, ok)
	}
	if p, ok := m.Old(tree.Path{1}); !ok || p.Key() != "0" {
		t.Errorf("Old(1) = %v, %v, want 0", p, ok)
	}
}

func TestMatchNil(t *testing.T) {
	n := tree.NewLeaf()
	if m := Match(nil, &n); m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	got, m := Reconcile(nil, &n)
	if m.Len() != 0 || got.SizeProportion != n.SizeProportion {
		t.Errorf("Reconcile(nil) = %+v, %d", got, m.Len())
	}
}

func TestMatchDeterministic(t *testing.T) {
	old := tree.NewSplit(tree.Row, leaves(4)...)
	next := tree.NewSplit(tree.Row, leaves(5)...)

	a := Match(&old, &next).Pairs()
	b := Match(&old, &next).Pairs()
	if len(a) != len(b) {
		t.Fatalf("pair counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Old.Equal(b[i].Old) || !a[i].New.Equal(b[i].New) {
			t.Errorf("pair %d differs: %v vs %v", i, a[i], b[i])
		}
	}
	for i, p := range a[1:] {
		if !p.Old.Equal(p.New) {
			t.Errorf("pair %d = %v -> %v, want positional", i+1, p.Old, p.New)
		}
	}
}
