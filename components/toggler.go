package components

import (
	"fmt"

	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/simulation"
)

// Toggle is the message a Toggler sends its target whenever it flips state.
type Toggle int

const (
	ToggleEnable Toggle = iota
	ToggleDisable
)

func (t Toggle) String() string {
	if t == ToggleEnable {
		return "Enable"
	}
	return "Disable"
}

// Toggler alternates a target between enabled and disabled, spending a
// randomly sampled span in each state. It starts disabled and owns its own
// child Rng, forked once at construction, so its on/off schedule is
// independent of every other component's randomness regardless of tick
// order.
//
// The target's Receive type P need not be Toggle itself — wrap converts a
// Toggle into whatever payload variant the target's effect sum uses (e.g. a
// sender that also receives Packet acks through the same slot).
type Toggler[P any, E any] struct {
	target  simulation.MessageDestination[P, E]
	wrap    func(Toggle) P
	enabled bool
	onDist  rng.PositiveContinuousDistribution
	offDist rng.PositiveContinuousDistribution
	next    quantities.Time
	rng     *rng.Rng
}

// NewToggler builds a Toggler addressing target, sampling its own child Rng
// from parent so its schedule is decorrelated from the rest of the
// simulation. It starts disabled and draws its first toggle time from
// offDistribution.
func NewToggler[P any, E any](target simulation.MessageDestination[P, E], wrap func(Toggle) P, onDistribution, offDistribution rng.PositiveContinuousDistribution, parent *rng.Rng) *Toggler[P, E] {
	child := parent.CreateChild()
	return &Toggler[P, E]{
		target:  target,
		wrap:    wrap,
		enabled: false,
		onDist:  onDistribution,
		offDist: offDistribution,
		next:    quantities.FromSimStart(offDistribution.Sample(child)),
		rng:     child,
	}
}

func (t *Toggler[P, E]) NextTick(quantities.Time) (quantities.Time, bool) {
	return t.next, true
}

func (t *Toggler[P, E]) Tick(ctx simulation.EffectContext[Never, E]) []simulation.Message[E] {
	if !ctx.Time.Equal(t.next) {
		panic(fmt.Sprintf("components: Toggler ticked at %s but expected %s", ctx.Time, t.next))
	}
	t.enabled = !t.enabled
	var (
		toggle Toggle
		dist   rng.PositiveContinuousDistribution
	)
	if t.enabled {
		toggle, dist = ToggleEnable, t.onDist
	} else {
		toggle, dist = ToggleDisable, t.offDist
	}
	message := t.target.CreateMessage(t.wrap(toggle))
	t.next = ctx.Time.Add(dist.Sample(t.rng))
	return []simulation.Message[E]{message}
}

func (t *Toggler[P, E]) Receive(Never, simulation.EffectContext[Never, E]) []simulation.Message[E] {
	panic("components: Toggler has no reachable Receive type")
}
