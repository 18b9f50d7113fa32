package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// UnmarshalPrompt decodes a prompt.
func UnmarshalPrompt(b []byte) (*Prompt, error) {
	p := &Prompt{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.RequestID = v
			return n
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			p.Output = v
			return n
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.WindowCount = uint32(v)
			return n
		case num == 4:
			return consumeRepeated(&p.Tags, typ, b, num)
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return nil, tlerrors.Wrap(tlerrors.ErrCodeInvalidMessage, err, "decode layout prompt")
	}
	return p, nil
}

// UnmarshalAnswer decodes an answer. A message with neither variant is
// rejected. When a variant appears more than once the last one wins.
func UnmarshalAnswer(b []byte) (*Answer, error) {
	a := &Answer{}
	var inner error
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			return protowire.ConsumeFieldValue(num, typ, b)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n
		}
		if num == 1 {
			r, err := unmarshalTreeResponse(v)
			if err != nil {
				inner = err
				return -1
			}
			a.Tree, a.Force = r, nil
		} else {
			f, err := unmarshalForceLayout(v)
			if err != nil {
				inner = err
				return -1
			}
			a.Tree, a.Force = nil, f
		}
		return n
	})
	if inner != nil {
		err = inner
	}
	if err != nil {
		return nil, tlerrors.Wrap(tlerrors.ErrCodeInvalidMessage, err, "decode layout answer")
	}
	if a.Tree == nil && a.Force == nil {
		return nil, tlerrors.New(tlerrors.ErrCodeInvalidMessage, "layout answer has no variant set")
	}
	return a, nil
}

func unmarshalTreeResponse(b []byte) (*TreeResponse, error) {
	r := &TreeResponse{Root: tree.NewLeaf()}
	var inner error
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.RequestID = v
			return n
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			r.TreeID = uint32(v)
			return n
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			root, err := decodeNode(v, 0, 1)
			if err != nil {
				inner = err
				return -1
			}
			r.Root = root
			return n
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			r.Output = v
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if inner != nil {
		return nil, inner
	}
	return r, err
}

func unmarshalForceLayout(b []byte) (*ForceLayout, error) {
	f := &ForceLayout{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			f.Output = v
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	return f, err
}

// UnmarshalNode decodes a layout node encoded by [MarshalNode].
func UnmarshalNode(b []byte) (tree.Node, error) {
	n, err := decodeNode(b, 0, 1)
	if err != nil {
		return tree.Node{}, tlerrors.Wrap(tlerrors.ErrCodeInvalidMessage, err, "decode layout node")
	}
	return n, nil
}

func decodeNode(b []byte, pos, depth int) (tree.Node, error) {
	if depth > tree.MaxDepth {
		return tree.Node{}, fmt.Errorf("layout node nested deeper than %d", tree.MaxDepth)
	}
	node := tree.Node{SizeProportion: tree.DefaultProportion, TraversalIndex: uint32(pos)}
	var inner error
	fail := func(err error) int {
		inner = err
		return -1
	}

	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			node.Label = v
			return n
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			node.TraversalIndex = uint32(v)
			return n
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			key, overrides, err := decodeOverrideEntry(v)
			if err != nil {
				return fail(err)
			}
			if node.TraversalOverrides == nil {
				node.TraversalOverrides = make(map[uint32][]uint32)
			}
			node.TraversalOverrides[key] = overrides
			return n
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			if err := decodeStyle(v, &node); err != nil {
				return fail(err)
			}
			return n
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			child, err := decodeNode(v, len(node.Children), depth+1)
			if err != nil {
				return fail(err)
			}
			node.Children = append(node.Children, child)
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if inner != nil {
		return tree.Node{}, inner
	}
	return node, err
}

func decodeOverrideEntry(b []byte) (uint32, []uint32, error) {
	var key uint32
	var overrides []uint32
	var inner error
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			key = uint32(v)
			return n
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			if err := fields(v, func(num protowire.Number, typ protowire.Type, b []byte) int {
				if num == 1 {
					return consumeRepeated(&overrides, typ, b, num)
				}
				return protowire.ConsumeFieldValue(num, typ, b)
			}); err != nil {
				inner = err
				return -1
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if inner != nil {
		err = inner
	}
	return key, overrides, err
}

func decodeStyle(b []byte, node *tree.Node) error {
	var inner error
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			switch v {
			case flexDirUnspecified, flexDirRow:
				node.Direction = tree.Row
			case flexDirColumn:
				node.Direction = tree.Column
			default:
				inner = fmt.Errorf("unknown flex direction %d", v)
				return -1
			}
			return n
		case num == 2 && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			node.SizeProportion = math.Float32frombits(v)
			return n
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			if err := decodeGaps(v, &node.Gaps); err != nil {
				inner = err
				return -1
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if inner != nil {
		err = inner
	}
	return err
}

func decodeGaps(b []byte, g *tree.Gaps) error {
	return fields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.Fixed32Type || num < 1 || num > 4 {
			return protowire.ConsumeFieldValue(num, typ, b)
		}
		v, n := protowire.ConsumeFixed32(b)
		f := math.Float32frombits(v)
		switch num {
		case 1:
			g.Left = f
		case 2:
			g.Right = f
		case 3:
			g.Top = f
		case 4:
			g.Bottom = f
		}
		return n
	})
}

// fields iterates the fields of a message. fn returns the number of bytes
// of the field value it consumed, or a negative protowire error code.
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

// consumeRepeated appends a packed or unpacked repeated uint32 field.
func consumeRepeated(dst *[]uint32, typ protowire.Type, b []byte, num protowire.Number) int {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n >= 0 {
			*dst = append(*dst, uint32(v))
		}
		return n
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m
			}
			*dst = append(*dst, uint32(v))
			packed = packed[m:]
		}
		return n
	}
	return protowire.ConsumeFieldValue(num, typ, b)
}
