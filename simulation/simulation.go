// Package simulation implements the discrete-event kernel: a typed message
// bus, time-ordered ticking, and sub-effect dispatch, scoped to one
// simulation's lifetime at a time.
//
// Routing correctness — a message can never reach a component of the wrong
// Receive type, and a destination handle minted by one simulation can never
// be fired into another — is enforced with runtime-checked scope ids
// (spec's "capability" design note), since Go has no borrow-checker-style
// phantom lifetimes to enforce it at compile time. The capability check
// itself (type assertion on delivery, scope-id comparison) is never
// skipped.
package simulation

import (
	"fmt"
	"sync/atomic"

	"flowforge/quantities"
	"flowforge/rng"
)

var nextScopeID uint64

func newScopeID() uint64 {
	return atomic.AddUint64(&nextScopeID, 1)
}

// EffectContext is passed to a component's Tick and Receive. Self lets a
// component address a message back to itself (e.g. a sender stamping its
// own destination as a packet's return path); Rng is the single source of
// randomness for the whole simulation.
type EffectContext[R any, E any] struct {
	Time quantities.Time
	Self MessageDestination[R, E]
	Rng  *rng.Rng
}

// Component is a simulated entity. R is the payload type it accepts via
// Receive; E is the simulation-wide effect sum its emitted Messages are
// carried in.
type Component[R any, E any] interface {
	// NextTick returns the earliest future time this component wants to be
	// ticked, given the current simulation time. A tick at t must leave
	// NextTick reporting a time strictly after t, or no time at all.
	NextTick(current quantities.Time) (quantities.Time, bool)

	// Tick is called when the simulator's clock reaches a time this
	// component previously returned from NextTick.
	Tick(ctx EffectContext[R, E]) []Message[E]

	// Receive is called when another component addresses a message to
	// this one. Mis-typed routing is impossible by construction: the only
	// way to produce a Message addressed here is through this component's
	// own MessageDestination[R, E].
	Receive(payload R, ctx EffectContext[R, E]) []Message[E]
}

// node erases a Component's Receive type so heterogeneous components can
// live in one Simulator's slot slice.
type node[E any] interface {
	nextTick(current quantities.Time) (quantities.Time, bool)
	tick(time quantities.Time, r *rng.Rng) []Message[E]
	receiveAny(payload any, time quantities.Time, r *rng.Rng) []Message[E]
}

type componentAdapter[R any, E any] struct {
	inner Component[R, E]
	self  MessageDestination[R, E]
}

func (a *componentAdapter[R, E]) nextTick(current quantities.Time) (quantities.Time, bool) {
	return a.inner.NextTick(current)
}

func (a *componentAdapter[R, E]) tick(t quantities.Time, r *rng.Rng) []Message[E] {
	return a.inner.Tick(EffectContext[R, E]{Time: t, Self: a.self, Rng: r})
}

func (a *componentAdapter[R, E]) receiveAny(payload any, t quantities.Time, r *rng.Rng) []Message[E] {
	p, ok := payload.(R)
	if !ok {
		panic(fmt.Sprintf("simulation: message payload %T cannot be delivered to a component whose Receive type is %T", payload, p))
	}
	return a.inner.Receive(p, EffectContext[R, E]{Time: t, Self: a.self, Rng: r})
}

// Message is an envelope holding a destination and a payload. Messages are
// only ever constructed via MessageDestination.CreateMessage, which ties
// the payload's type to the type the target component actually accepts.
type Message[E any] struct {
	scope   uint64
	target  int
	payload any
}

// MessageDestination identifies a component slot plus the payload type P it
// accepts. It is a plain value (copy freely), but only usable within the
// simulation that minted it — using it against a different Simulator
// panics at delivery time.
type MessageDestination[P any, E any] struct {
	sim   *Simulator[E]
	scope uint64
	slot  int
}

// CreateMessage builds a Message addressed to this destination.
func (d MessageDestination[P, E]) CreateMessage(payload P) Message[E] {
	return Message[E]{scope: d.scope, target: d.slot, payload: payload}
}

type slotEntry[E any] struct {
	node   node[E]
	filled bool
}

// Simulator owns a simulation's components and drives its clock. Build one
// via NewSimulatorBuilder.
type Simulator[E any] struct {
	id    uint64
	slots []*slotEntry[E]
	time  quantities.Time
	rng   *rng.Rng
}

// SimulatorBuilder reserves and fills component slots before a Simulator
// can run. Destination handles obtained from a Slot are valid for the
// simulator's whole lifetime, including before the corresponding Set call.
type SimulatorBuilder[E any] struct {
	sim *Simulator[E]
}

// NewSimulatorBuilder starts building a new simulation. r is the single Rng
// handle every component in this simulation will share.
func NewSimulatorBuilder[E any](r *rng.Rng) *SimulatorBuilder[E] {
	return &SimulatorBuilder[E]{
		sim: &Simulator[E]{
			id:   newScopeID(),
			time: quantities.SimStart,
			rng:  r,
		},
	}
}

// Slot is a reserved, not-yet-filled component slot.
type Slot[R any, E any] struct {
	sim   *Simulator[E]
	index int
}

// Insert reserves a typed slot in the simulation under construction. The
// returned Slot's Destination is usable immediately, even though Set has
// not been called yet — this is what lets mutually-referencing components
// (e.g. a sender and the link it talks to) wire each other up regardless of
// construction order.
func Insert[R any, E any](b *SimulatorBuilder[E]) Slot[R, E] {
	index := len(b.sim.slots)
	b.sim.slots = append(b.sim.slots, &slotEntry[E]{})
	return Slot[R, E]{sim: b.sim, index: index}
}

// Destination returns this slot's address.
func (s Slot[R, E]) Destination() MessageDestination[R, E] {
	return MessageDestination[R, E]{sim: s.sim, scope: s.sim.id, slot: s.index}
}

// Set installs the component body into this slot. Calling Set twice on the
// same slot is a programming error and panics.
func (s Slot[R, E]) Set(c Component[R, E]) {
	entry := s.sim.slots[s.index]
	if entry.filled {
		panic("simulation: slot already set")
	}
	entry.node = &componentAdapter[R, E]{inner: c, self: s.Destination()}
	entry.filled = true
}

// Build finalizes the simulation, failing if any reserved slot was never
// Set.
func (b *SimulatorBuilder[E]) Build() (*Simulator[E], error) {
	for i, entry := range b.sim.slots {
		if !entry.filled {
			return nil, fmt.Errorf("simulation: slot %d was reserved but never set", i)
		}
	}
	return b.sim, nil
}

// Time returns the simulator's current clock value.
func (s *Simulator[E]) Time() quantities.Time {
	return s.time
}

// Rng returns the simulation's shared Rng handle, for callers (e.g. the
// sampler) that need to draw randomness outside of a component tick.
func (s *Simulator[E]) Rng() *rng.Rng {
	return s.rng
}

// RunFor advances the simulation until its clock reaches
// quantities.FromSimStart(span).
func (s *Simulator[E]) RunFor(span quantities.TimeSpan) {
	horizon := quantities.FromSimStart(span)
	s.RunWhile(func(t quantities.Time) bool { return t.Before(horizon) })
}

// RunWhile advances the simulation one tick at a time as long as the next
// scheduled tick's time satisfies predicate, and returns the time it
// stopped at. A tick whose time fails predicate never executes — the clock
// does not overshoot past the stopping condition. It also stops early if no
// component has a future tick.
func (s *Simulator[E]) RunWhile(predicate func(quantities.Time) bool) quantities.Time {
	for {
		idx, t, ok := s.earliestTick()
		if !ok || !predicate(t) {
			break
		}
		s.time = t
		messages := s.slots[idx].node.tick(s.time, s.rng)
		s.deliver(messages)
	}
	return s.time
}

// earliestTick finds the component with the smallest NextTick, breaking
// ties by insertion order (the first component encountered with the
// minimum value wins, since later ties only replace on strictly-earlier).
func (s *Simulator[E]) earliestTick() (index int, t quantities.Time, ok bool) {
	for i, entry := range s.slots {
		nt, has := entry.node.nextTick(s.time)
		if !has {
			continue
		}
		if !ok || nt.Before(t) {
			index, t, ok = i, nt, true
		}
	}
	return
}

// deliver drains a FIFO queue of messages, routing each to its target's
// Receive and appending any further messages it emits, until the queue is
// empty. Every message in this fan-out is delivered with context.Time
// equal to the triggering tick's time — the clock does not advance here.
func (s *Simulator[E]) deliver(messages []Message[E]) {
	queue := messages
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		if m.scope != s.id {
			panic("simulation: message delivered using a destination handle from a different simulation")
		}
		target := s.slots[m.target]
		queue = append(queue, target.node.receiveAny(m.payload, s.time, s.rng)...)
	}
}
