package ruletree

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"flowforge/quantities"
)

// Encode and Decode implement a protobuf-wire-format interchange for
// RuleTree, structured after the reference implementation's WhiskerTree /
// Whisker / Memory / MemoryRange message layout (domain + either a leaf
// Whisker or 8 child WhiskerTrees). The retrieved corpus did not include
// the upstream .proto's field numbers, so this uses its own internally
// consistent numbering rather than claiming byte-compatibility with an
// external remy implementation — see DESIGN.md. The round-trip guarantee
// this package actually provides is encode/decode self-consistency:
// Decode(Encode(t)) reproduces t exactly.
const (
	memorySendEwmaField = 1
	memoryAckEwmaField  = 2
	memoryRTTRatioField = 3

	rangeLowerField = 1
	rangeUpperField = 2

	whiskerIntersendField = 1
	whiskerIncrementField = 2
	whiskerMultipleField  = 3
	whiskerDomainField    = 4

	treeDomainField   = 1
	treeLeafField     = 2
	treeChildrenField = 3
)

// Encode serializes t into its on-wire form.
func Encode(t RuleTree) []byte {
	return encodeTree(t)
}

// Decode parses an on-wire RuleTree produced by Encode.
func Decode(data []byte) (RuleTree, error) {
	return decodeTree(data)
}

func appendEmbedded(b []byte, field protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, field, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func encodePoint(p Point) []byte {
	var b []byte
	b = protowire.AppendTag(b, memorySendEwmaField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(p.SendEwma))
	b = protowire.AppendTag(b, memoryAckEwmaField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(p.AckEwma))
	b = protowire.AppendTag(b, memoryRTTRatioField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(p.RTTRatio))
	return b
}

func decodePoint(data []byte) (Point, error) {
	var p Point
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, fmt.Errorf("ruletree: malformed Memory tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.Fixed64Type {
			return p, fmt.Errorf("ruletree: unexpected wire type %v for Memory field %d", typ, num)
		}
		v, n := protowire.ConsumeFixed64(data)
		if n < 0 {
			return p, fmt.Errorf("ruletree: malformed Memory value: %w", protowire.ParseError(n))
		}
		data = data[n:]
		f := math.Float64frombits(v)
		switch num {
		case memorySendEwmaField:
			p.SendEwma = f
		case memoryAckEwmaField:
			p.AckEwma = f
		case memoryRTTRatioField:
			p.RTTRatio = f
		}
	}
	return p, nil
}

func encodeCube(c Cube) []byte {
	var b []byte
	b = appendEmbedded(b, rangeLowerField, encodePoint(c.Min))
	b = appendEmbedded(b, rangeUpperField, encodePoint(c.Max))
	return b
}

func decodeCube(data []byte) (Cube, error) {
	var c Cube
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return c, fmt.Errorf("ruletree: malformed MemoryRange tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.BytesType {
			return c, fmt.Errorf("ruletree: unexpected wire type %v for MemoryRange field %d", typ, num)
		}
		sub, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return c, fmt.Errorf("ruletree: malformed MemoryRange value: %w", protowire.ParseError(n))
		}
		data = data[n:]
		point, err := decodePoint(sub)
		if err != nil {
			return c, err
		}
		switch num {
		case rangeLowerField:
			c.Min = point
		case rangeUpperField:
			c.Max = point
		}
	}
	return c, nil
}

func encodeWhisker(action Action, domain Cube) []byte {
	var b []byte
	b = protowire.AppendTag(b, whiskerIntersendField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(action.IntersendDelay.Seconds()))
	b = protowire.AppendTag(b, whiskerIncrementField, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(action.WindowIncrement)))
	b = protowire.AppendTag(b, whiskerMultipleField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(action.WindowMultiplier))
	b = appendEmbedded(b, whiskerDomainField, encodeCube(domain))
	return b
}

func decodeWhisker(data []byte) (Action, error) {
	var action Action
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return action, fmt.Errorf("ruletree: malformed Whisker tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case whiskerIntersendField:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return action, fmt.Errorf("ruletree: malformed Whisker intersend: %w", protowire.ParseError(n))
			}
			data = data[n:]
			action.IntersendDelay = quantities.Seconds(math.Float64frombits(v))
		case whiskerIncrementField:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return action, fmt.Errorf("ruletree: malformed Whisker increment: %w", protowire.ParseError(n))
			}
			data = data[n:]
			action.WindowIncrement = int32(protowire.DecodeZigZag(v))
		case whiskerMultipleField:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return action, fmt.Errorf("ruletree: malformed Whisker multiple: %w", protowire.ParseError(n))
			}
			data = data[n:]
			action.WindowMultiplier = math.Float64frombits(v)
		case whiskerDomainField:
			if typ != protowire.BytesType {
				return action, fmt.Errorf("ruletree: unexpected wire type %v for Whisker domain", typ)
			}
			_, n := protowire.ConsumeBytes(data) // the leaf's own domain is redundant with the tree node's; not needed to reconstruct Action.
			if n < 0 {
				return action, fmt.Errorf("ruletree: malformed Whisker domain: %w", protowire.ParseError(n))
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return action, fmt.Errorf("ruletree: malformed Whisker field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return action, nil
}

func encodeTree(t RuleTree) []byte {
	var b []byte
	b = appendEmbedded(b, treeDomainField, encodeCube(t.domain))
	if t.IsLeaf() {
		b = appendEmbedded(b, treeLeafField, encodeWhisker(*t.action, t.domain))
		return b
	}
	for _, child := range *t.children {
		b = appendEmbedded(b, treeChildrenField, encodeTree(child))
	}
	return b
}

func decodeTree(data []byte) (RuleTree, error) {
	var (
		domain   Cube
		haveLeaf bool
		action   Action
		children []RuleTree
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return RuleTree{}, fmt.Errorf("ruletree: malformed WhiskerTree tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.BytesType {
			return RuleTree{}, fmt.Errorf("ruletree: unexpected wire type %v for WhiskerTree field %d", typ, num)
		}
		sub, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return RuleTree{}, fmt.Errorf("ruletree: malformed WhiskerTree value: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case treeDomainField:
			c, err := decodeCube(sub)
			if err != nil {
				return RuleTree{}, err
			}
			domain = c
		case treeLeafField:
			a, err := decodeWhisker(sub)
			if err != nil {
				return RuleTree{}, err
			}
			action, haveLeaf = a, true
		case treeChildrenField:
			child, err := decodeTree(sub)
			if err != nil {
				return RuleTree{}, err
			}
			children = append(children, child)
		}
	}
	if haveLeaf {
		return RuleTree{domain: domain, action: &action}, nil
	}
	if len(children) != 8 {
		return RuleTree{}, fmt.Errorf("ruletree: internal WhiskerTree node must have exactly 8 children, got %d", len(children))
	}
	var out [8]RuleTree
	copy(out[:], children)
	return RuleTree{domain: domain, children: &out}, nil
}
