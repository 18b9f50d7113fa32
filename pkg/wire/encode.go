package wire

import (
	"math"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/matzehuels/tilelayout/pkg/tree"
)

// MarshalPrompt encodes a prompt.
func MarshalPrompt(p *Prompt) []byte {
	var b []byte
	b = appendVarintField(b, 1, p.RequestID)
	b = appendStringField(b, 2, p.Output)
	b = appendVarintField(b, 3, uint64(p.WindowCount))
	b = appendPacked(b, 4, p.Tags)
	return b
}

// MarshalAnswer encodes an answer. An answer with neither field set
// encodes to an empty message.
func MarshalAnswer(a *Answer) []byte {
	var b []byte
	switch {
	case a.Tree != nil:
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalTreeResponse(a.Tree))
	case a.Force != nil:
		var f []byte
		f = appendStringField(f, 1, a.Force.Output)
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, f)
	}
	return b
}

func marshalTreeResponse(r *TreeResponse) []byte {
	var b []byte
	b = appendVarintField(b, 1, r.RequestID)
	b = appendVarintField(b, 2, uint64(r.TreeID))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, MarshalNode(&r.Root))
	b = appendStringField(b, 4, r.Output)
	return b
}

// MarshalNode encodes a layout node in isolation. The node is taken to be
// at sibling position 0.
func MarshalNode(n *tree.Node) []byte {
	return appendNode(nil, n, 0)
}

func appendNode(b []byte, n *tree.Node, pos int) []byte {
	if n.Label != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, n.Label)
	}
	if int64(n.TraversalIndex) != int64(pos) {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(n.TraversalIndex))
	}

	keys := make([]uint32, 0, len(n.TraversalOverrides))
	for k := range n.TraversalOverrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		var overrides []byte
		overrides = appendPacked(overrides, 1, n.TraversalOverrides[k])

		var entry []byte
		entry = appendVarintField(entry, 1, uint64(k))
		entry = protowire.AppendTag(entry, 2, protowire.BytesType)
		entry = protowire.AppendBytes(entry, overrides)

		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}

	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, appendStyle(nil, n))

	for i := range n.Children {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNode(nil, &n.Children[i], i))
	}
	return b
}

func appendStyle(b []byte, n *tree.Node) []byte {
	dir := uint64(flexDirRow)
	if n.Direction == tree.Column {
		dir = flexDirColumn
	}
	b = appendVarintField(b, 1, dir)
	if n.SizeProportion != tree.DefaultProportion {
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(n.SizeProportion))
	}
	if !n.Gaps.IsZero() {
		var g []byte
		g = appendFloatField(g, 1, n.Gaps.Left)
		g = appendFloatField(g, 2, n.Gaps.Right)
		g = appendFloatField(g, 3, n.Gaps.Top)
		g = appendFloatField(g, 4, n.Gaps.Bottom)
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, g)
	}
	return b
}

// The helpers below omit zero values as proto3 does.

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendFloatField(b []byte, num protowire.Number, f float32) []byte {
	if f == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(f))
}

func appendPacked(b []byte, num protowire.Number, vs []uint32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
