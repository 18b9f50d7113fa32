package diff

import "github.com/matzehuels/tilelayout/pkg/tree"

// Transfer returns a copy of next in which every node matched in m carries
// the size proportion of its old counterpart.
func Transfer(old, next *tree.Node, m *Matching) tree.Node {
	out := next.Clone()
	if old == nil || m == nil {
		return out
	}
	for _, p := range m.pairs {
		src, ok := old.At(p.Old)
		if !ok {
			continue
		}
		dst, ok := out.At(p.New)
		if !ok {
			continue
		}
		dst.SizeProportion = src.SizeProportion
	}
	return out
}

// Reconcile matches incoming against prev and transfers proportions. With
// no previous tree the incoming tree is returned unchanged.
func Reconcile(prev *tree.Node, incoming *tree.Node) (tree.Node, *Matching) {
	if prev == nil {
		return incoming.Clone(), newMatching()
	}
	m := Match(prev, incoming)
	return Transfer(prev, incoming, m), m
}
