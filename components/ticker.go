// Package components holds small, reusable simulation.Component
// implementations that other packages (netsim, sampler) wire together
// rather than reimplementing.
package components

import (
	"flowforge/quantities"
	"flowforge/simulation"
)

// Never is the Receive type for components that are only ever ticked, never
// addressed. There is no MessageDestination[Never, E] in practice because
// nothing ever needs one; Receive exists solely to satisfy
// simulation.Component and panics if it is ever somehow called.
type Never struct{}

// Ticker fires action on every tick, once per interval starting at
// quantities.SimStart. It never receives messages.
type Ticker[E any] struct {
	interval quantities.TimeSpan
	nextTick quantities.Time
	action   func(simulation.EffectContext[Never, E]) []simulation.Message[E]
}

// NewTicker returns a Ticker that calls action at quantities.SimStart and
// every interval thereafter, forwarding whatever Messages action produces.
func NewTicker[E any](interval quantities.TimeSpan, action func(simulation.EffectContext[Never, E]) []simulation.Message[E]) *Ticker[E] {
	return &Ticker[E]{
		interval: interval,
		nextTick: quantities.SimStart,
		action:   action,
	}
}

func (t *Ticker[E]) NextTick(quantities.Time) (quantities.Time, bool) {
	return t.nextTick, true
}

func (t *Ticker[E]) Tick(ctx simulation.EffectContext[Never, E]) []simulation.Message[E] {
	t.nextTick = t.nextTick.Add(t.interval)
	return t.action(ctx)
}

func (t *Ticker[E]) Receive(Never, simulation.EffectContext[Never, E]) []simulation.Message[E] {
	panic("components: Ticker has no reachable Receive type")
}
