package diff

import (
	"cmp"
	"slices"

	"github.com/matzehuels/tilelayout/pkg/tree"
)

// Pair is one matched (old, new) node pair.
type Pair struct {
	Old tree.Path
	New tree.Path
	// Exact is true for label matches.
	Exact bool
}

// Matching is the result of [Match].
type Matching struct {
	pairs    []Pair
	byNew    map[string]int
	oldTaken map[string]bool
}

func newMatching() *Matching {
	return &Matching{byNew: make(map[string]int), oldTaken: make(map[string]bool)}
}

func (m *Matching) add(old, next tree.Path, exact bool) {
	m.byNew[next.Key()] = len(m.pairs)
	m.oldTaken[old.Key()] = true
	m.pairs = append(m.pairs, Pair{Old: old, New: next, Exact: exact})
}

// Old returns the old path matched to the new node at p.
func (m *Matching) Old(p tree.Path) (tree.Path, bool) {
	i, ok := m.byNew[p.Key()]
	if !ok {
		return nil, false
	}
	return m.pairs[i].Old, true
}

// Len returns the number of matched pairs.
func (m *Matching) Len() int { return len(m.pairs) }

// Pairs returns the matched pairs ordered by new-tree pre-order.
func (m *Matching) Pairs() []Pair {
	out := slices.Clone(m.pairs)
	slices.SortFunc(out, func(a, b Pair) int { return comparePaths(a.New, b.New) })
	return out
}

func (m *Matching) hasNew(p tree.Path) bool {
	_, ok := m.byNew[p.Key()]
	return ok
}

func (m *Matching) hasOld(p tree.Path) bool { return m.oldTaken[p.Key()] }

// Match pairs nodes of old with nodes of next. Either tree may be nil, in
// which case the matching is empty.
func Match(old, next *tree.Node) *Matching {
	m := newMatching()
	if old == nil || next == nil {
		return m
	}
	matchLabels(m, old, next)
	matchStructure(m, old, next)
	return m
}

type entry struct {
	path tree.Path
	node *tree.Node
}

func preorder(root *tree.Node) []entry {
	var out []entry
	root.Walk(func(p tree.Path, n *tree.Node) bool {
		out = append(out, entry{path: p, node: n})
		return true
	})
	return out
}

func matchLabels(m *Matching, old, next *tree.Node) {
	byLabel := make(map[string][]tree.Path)
	for _, e := range preorder(old) {
		if e.node.Label != "" {
			byLabel[e.node.Label] = append(byLabel[e.node.Label], e.path)
		}
	}
	if len(byLabel) == 0 {
		return
	}

	for _, e := range preorder(next) {
		candidates := byLabel[e.node.Label]
		if e.node.Label == "" || len(candidates) == 0 {
			continue
		}
		pick := -1
		for i, p := range candidates {
			if m.hasOld(p) {
				continue
			}
			if pick < 0 || nearer(p, candidates[pick], e.path) {
				pick = i
			}
		}
		if pick >= 0 {
			m.add(candidates[pick], e.path, true)
		}
	}
}

// nearer reports whether a is closer to target than b: a longer common
// prefix wins, then the smaller sibling offset at the point of divergence,
// then the smaller depth difference. Ties keep b.
func nearer(a, b, target tree.Path) bool {
	ka, kb := commonPrefix(a, target), commonPrefix(b, target)
	if ka != kb {
		return ka > kb
	}
	if oa, ob := offset(a, target, ka), offset(b, target, kb); oa != ob {
		return oa < ob
	}
	return depthDiff(a, target) < depthDiff(b, target)
}

func commonPrefix(a, b tree.Path) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// offset is the sibling distance where a leaves target, or 0 if one path
// is a prefix of the other.
func offset(a, target tree.Path, k int) int {
	if k >= len(a) || k >= len(target) {
		return 0
	}
	return abs(a[k] - target[k])
}

func depthDiff(a, b tree.Path) int { return abs(len(a) - len(b)) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func matchStructure(m *Matching, old, next *tree.Node) {
	if !m.hasNew(tree.Path{}) && !m.hasOld(tree.Path{}) && compatible(old, next) {
		m.add(tree.Path{}, tree.Path{}, false)
	}

	for _, e := range preorder(next) {
		oldPath, ok := m.Old(e.path)
		if !ok || e.node.IsLeaf() {
			continue
		}
		oldNode, _ := old.At(oldPath)
		pairChildren(m, oldNode, oldPath, e.node, e.path)
	}
}

type candidate struct {
	oldPos, newPos int
	score          score
}

// pairChildren greedily pairs the unmatched children of two matched nodes.
func pairChildren(m *Matching, oldNode *tree.Node, oldPath tree.Path, newNode *tree.Node, newPath tree.Path) {
	var cands []candidate
	for i := range newNode.Children {
		if m.hasNew(newPath.Child(i)) {
			continue
		}
		for j := range oldNode.Children {
			if m.hasOld(oldPath.Child(j)) {
				continue
			}
			a, b := &oldNode.Children[j], &newNode.Children[i]
			if !compatible(a, b) {
				continue
			}
			cands = append(cands, candidate{oldPos: j, newPos: i, score: scorePair(a, b, j, i)})
		}
	}

	slices.SortStableFunc(cands, func(x, y candidate) int {
		if c := x.score.compare(y.score); c != 0 {
			return -c
		}
		if c := cmp.Compare(x.newPos, y.newPos); c != 0 {
			return c
		}
		return cmp.Compare(x.oldPos, y.oldPos)
	})

	usedOld := make(map[int]bool)
	usedNew := make(map[int]bool)
	for _, c := range cands {
		if usedOld[c.oldPos] || usedNew[c.newPos] {
			continue
		}
		usedOld[c.oldPos] = true
		usedNew[c.newPos] = true
		m.add(oldPath.Child(c.oldPos), newPath.Child(c.newPos), false)
	}
}

// compatible reports whether two nodes may be structurally paired.
func compatible(a, b *tree.Node) bool {
	return a.Label == "" || b.Label == "" || a.Label == b.Label
}

type score struct {
	sameKind  bool
	sameDir   bool
	sameCount bool
	sim       int
	dist      int
}

// compare orders scores; a positive result means s is better than o.
func (s score) compare(o score) int {
	if c := compareBool(s.sameKind, o.sameKind); c != 0 {
		return c
	}
	if c := compareBool(s.sameDir, o.sameDir); c != 0 {
		return c
	}
	if c := compareBool(s.sameCount, o.sameCount); c != 0 {
		return c
	}
	if c := cmp.Compare(s.sim, o.sim); c != 0 {
		return c
	}
	return cmp.Compare(o.dist, s.dist)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func scorePair(a, b *tree.Node, oldPos, newPos int) score {
	d := abs(oldPos - newPos)
	return score{
		sameKind:  a.IsLeaf() == b.IsLeaf(),
		sameDir:   a.IsLeaf() || b.IsLeaf() || a.Direction == b.Direction,
		sameCount: len(a.Children) == len(b.Children),
		sim:       similarity(a, b),
		dist:      d,
	}
}

// similarity counts the node pairs reachable by zipping children
// positionally, stopping at incompatible labels.
func similarity(a, b *tree.Node) int {
	n := min(len(a.Children), len(b.Children))
	total := 0
	for i := 0; i < n; i++ {
		ca, cb := &a.Children[i], &b.Children[i]
		if !compatible(ca, cb) {
			continue
		}
		total += 1 + similarity(ca, cb)
	}
	return total
}

// comparePaths orders paths in pre-order.
func comparePaths(a, b tree.Path) int {
	return slices.Compare(a, b)
}
