// Package ruletree implements the octree that maps a 3-D congestion
// observation to a controller Action, and its protobuf-compatible on-wire
// form.
package ruletree

import "flowforge/quantities"

// MaxPoint is the upper bound of the root domain on every axis. This is a
// compatibility constant inherited from the reference implementation's
// on-wire format and must not be changed.
const MaxPoint quantities.Float = 163_840

// Point is a congestion-state observation.
type Point struct {
	AckEwma  quantities.Float
	SendEwma quantities.Float
	RTTRatio quantities.Float
}

// minPoint is the root domain's lower bound on every axis.
var minPoint = Point{}

// maxPoint is the root domain's upper bound on every axis.
var maxPoint = Point{AckEwma: MaxPoint, SendEwma: MaxPoint, RTTRatio: MaxPoint}

// Action is what a rule tree leaf prescribes for points within its cube.
type Action struct {
	WindowMultiplier quantities.Float
	WindowIncrement  int32
	IntersendDelay   quantities.TimeSpan
}

// Cube is a half-open axis-aligned box: min <= p < max on every axis.
type Cube struct {
	Min, Max Point
}

func within(min, x, max quantities.Float) bool {
	return min <= x && x < max
}

// Contains reports whether p falls within the cube.
func (c Cube) Contains(p Point) bool {
	return within(c.Min.AckEwma, p.AckEwma, c.Max.AckEwma) &&
		within(c.Min.SendEwma, p.SendEwma, c.Max.SendEwma) &&
		within(c.Min.RTTRatio, p.RTTRatio, c.Max.RTTRatio)
}

func midpoint(min, max quantities.Float) quantities.Float {
	return min + (max-min)/2
}

// octants returns the 8 children a cube bisects into along every axis, in a
// fixed, deterministic order (the sign of each axis relative to the
// midpoint, packed low-to-high: AckEwma, SendEwma, RTTRatio).
func (c Cube) octants() [8]Cube {
	midAck := midpoint(c.Min.AckEwma, c.Max.AckEwma)
	midSend := midpoint(c.Min.SendEwma, c.Max.SendEwma)
	midRTT := midpoint(c.Min.RTTRatio, c.Max.RTTRatio)

	var result [8]Cube
	for i := 0; i < 8; i++ {
		ack0, ack1 := c.Min.AckEwma, midAck
		if i&1 != 0 {
			ack0, ack1 = midAck, c.Max.AckEwma
		}
		send0, send1 := c.Min.SendEwma, midSend
		if i&2 != 0 {
			send0, send1 = midSend, c.Max.SendEwma
		}
		rtt0, rtt1 := c.Min.RTTRatio, midRTT
		if i&4 != 0 {
			rtt0, rtt1 = midRTT, c.Max.RTTRatio
		}
		result[i] = Cube{
			Min: Point{AckEwma: ack0, SendEwma: send0, RTTRatio: rtt0},
			Max: Point{AckEwma: ack1, SendEwma: send1, RTTRatio: rtt1},
		}
	}
	return result
}

// RuleTree is either a leaf carrying an Action, or an internal node with
// exactly 8 children that tile its domain.
type RuleTree struct {
	domain   Cube
	action   *Action // non-nil iff this is a leaf
	children *[8]RuleTree
}

// NewRuleTree returns the default single-leaf tree spanning the whole root
// domain, matching the reference implementation's untrained default: a
// window multiplier of 1, no increment, and a 10ms intersend delay.
func NewRuleTree() RuleTree {
	return RuleTree{
		domain: Cube{Min: minPoint, Max: maxPoint},
		action: &Action{WindowMultiplier: 1, WindowIncrement: 0, IntersendDelay: quantities.Milliseconds(10)},
	}
}

// Action returns the action governing p, or false if p falls outside the
// root domain.
func (t RuleTree) Action(p Point) (Action, bool) {
	if !t.domain.Contains(p) {
		return Action{}, false
	}
	for node := t; ; {
		if node.action != nil {
			return *node.action, true
		}
		found := false
		for _, child := range node.children {
			if child.domain.Contains(p) {
				node = child
				found = true
				break
			}
		}
		if !found {
			// Unreachable if the tiling invariant holds: the children of an
			// internal node cover their parent's domain exactly.
			return Action{}, false
		}
	}
}

// SplitLeaf replaces a leaf whose domain matches target with 8 children
// that bisect it, each inheriting the leaf's action. It is a no-op,
// returning the tree unchanged, if no leaf with that exact domain exists.
// Used by external trainers (e.g. the genetic trainer) to grow the tree.
func (t RuleTree) SplitLeaf(target Cube) RuleTree {
	if t.action != nil {
		if t.domain == target {
			children := t.domain.octants()
			var out [8]RuleTree
			for i, cube := range children {
				action := *t.action
				out[i] = RuleTree{domain: cube, action: &action}
			}
			return RuleTree{domain: t.domain, children: &out}
		}
		return t
	}
	var out [8]RuleTree
	for i, child := range t.children {
		out[i] = child.SplitLeaf(target)
	}
	return RuleTree{domain: t.domain, children: &out}
}

// NewLeaf returns a single-leaf tree spanning domain with the given
// action.
func NewLeaf(domain Cube, action Action) RuleTree {
	a := action
	return RuleTree{domain: domain, action: &a}
}

// MapLeaves returns a tree with the same shape as t but with every leaf's
// action replaced by f applied to that leaf's domain and current action.
// Used by genetic trainers to mutate a whole tree's actions in one pass
// without disturbing its split structure.
func (t RuleTree) MapLeaves(f func(domain Cube, action Action) Action) RuleTree {
	if t.action != nil {
		mutated := f(t.domain, *t.action)
		return NewLeaf(t.domain, mutated)
	}
	var out [8]RuleTree
	for i, child := range t.children {
		out[i] = child.MapLeaves(f)
	}
	return RuleTree{domain: t.domain, children: &out}
}

// Leaves returns the domains of every leaf in the tree, in traversal
// order. Used by genetic trainers to pick a leaf to split.
func (t RuleTree) Leaves() []Cube {
	if t.action != nil {
		return []Cube{t.domain}
	}
	var out []Cube
	for _, child := range t.children {
		out = append(out, child.Leaves()...)
	}
	return out
}

// Domain returns the cube this (sub)tree governs.
func (t RuleTree) Domain() Cube {
	return t.domain
}

// IsLeaf reports whether this node is a leaf.
func (t RuleTree) IsLeaf() bool {
	return t.action != nil
}

// LeafAction returns this node's action; only meaningful if IsLeaf is true.
func (t RuleTree) LeafAction() Action {
	return *t.action
}

// Children returns this node's 8 children; only meaningful if IsLeaf is
// false.
func (t RuleTree) Children() [8]RuleTree {
	return *t.children
}
