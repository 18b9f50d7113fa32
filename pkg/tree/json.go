package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// nodeJSON is the file representation of a Node. Pointer fields
// distinguish "unset" from zero so defaults can be applied.
type nodeJSON struct {
	Label              string              `json:"label,omitempty"`
	Direction          Direction           `json:"direction,omitempty"`
	Gaps               *Gaps               `json:"gaps,omitempty"`
	SizeProportion     *float32            `json:"size_proportion,omitempty"`
	TraversalIndex     *uint32             `json:"traversal_index,omitempty"`
	TraversalOverrides map[uint32][]uint32 `json:"traversal_overrides,omitempty"`
	Children           []nodeJSON          `json:"children,omitempty"`
}

type treeJSON struct {
	ID   uint32    `json:"tree_id"`
	Root *nodeJSON `json:"root"`
}

// MarshalJSON implements json.Marshaler. Defaulted fields are omitted.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSON(&n, 0))
}

// UnmarshalJSON implements json.Unmarshaler. A missing size_proportion
// becomes [DefaultProportion] and a missing traversal_index becomes the
// node's sibling position.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = fromJSON(&raw, 0)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Tree) MarshalJSON() ([]byte, error) {
	root := toJSON(&t.Root, 0)
	return json.Marshal(treeJSON{ID: t.ID, Root: &root})
}

// UnmarshalJSON implements json.Unmarshaler. Both the {"tree_id", "root"}
// envelope and a bare root node are accepted.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var env treeJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Root != nil {
		*t = Tree{ID: env.ID, Root: fromJSON(env.Root, 0)}
		return nil
	}
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	*t = Tree{Root: root}
	return nil
}

func toJSON(n *Node, pos int) nodeJSON {
	out := nodeJSON{
		Label:              n.Label,
		Direction:          n.Direction,
		TraversalOverrides: n.TraversalOverrides,
	}
	if !n.Gaps.IsZero() {
		g := n.Gaps
		out.Gaps = &g
	}
	if n.SizeProportion != DefaultProportion {
		p := n.SizeProportion
		out.SizeProportion = &p
	}
	if n.TraversalIndex != uint32(pos) {
		idx := n.TraversalIndex
		out.TraversalIndex = &idx
	}
	for i := range n.Children {
		out.Children = append(out.Children, toJSON(&n.Children[i], i))
	}
	return out
}

func fromJSON(raw *nodeJSON, pos int) Node {
	n := Node{
		Label:              raw.Label,
		Direction:          raw.Direction,
		SizeProportion:     DefaultProportion,
		TraversalIndex:     uint32(pos),
		TraversalOverrides: raw.TraversalOverrides,
	}
	if raw.Gaps != nil {
		n.Gaps = *raw.Gaps
	}
	if raw.SizeProportion != nil {
		n.SizeProportion = *raw.SizeProportion
	}
	if raw.TraversalIndex != nil {
		n.TraversalIndex = *raw.TraversalIndex
	}
	if len(raw.Children) > 0 {
		n.Children = make([]Node, len(raw.Children))
		for i := range raw.Children {
			n.Children[i] = fromJSON(&raw.Children[i], i)
		}
	}
	return n
}

// Read decodes a tree from r.
func Read(r io.Reader) (Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Tree{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Tree{}, ErrEmptyTree
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, fmt.Errorf("decode tree: %w", err)
	}
	return t, nil
}

// ReadFile decodes a tree from the JSON file at path.
func ReadFile(path string) (Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tree{}, err
	}
	defer f.Close()
	return Read(f)
}

// Write encodes t as indented JSON to w.
func Write(w io.Writer, t Tree) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteFile encodes t as indented JSON to the file at path.
func WriteFile(path string, t Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
