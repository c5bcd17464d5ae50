// Package sampler draws random network scenarios and wires them into a
// runnable simulation.Simulator, grounded on
// original_source/flowforge/src/network/{config.rs absent from the
// filtered pack, inferred from evaluator.rs's NetworkConfig usage and
// spec.md §4.9}.
package sampler

import (
	"fmt"

	"flowforge/components"
	"flowforge/flow"
	"flowforge/netsim"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/simulation"
)

// NetworkConfig is a distribution over network scenarios: every field is
// sampled independently, in a fixed order, to draw one Network.
type NetworkConfig struct {
	RTT                     rng.PositiveContinuousDistribution
	BandwidthBytesPerSecond rng.ContinuousDistribution
	Loss                    rng.ContinuousDistribution
	NumSenders              rng.DiscreteDistribution
	BufferBytes             rng.ContinuousDistribution
	OnDist                  rng.PositiveContinuousDistribution
	OffDist                 rng.PositiveContinuousDistribution
}

// Network is one deterministic draw from a NetworkConfig.
type Network struct {
	NumSenders              int
	RTT                     quantities.TimeSpan
	BandwidthBytesPerSecond quantities.Float
	LossRate                quantities.Float
	BufferBytes             quantities.Float
	OnDist, OffDist         rng.PositiveContinuousDistribution
}

// Sample draws one Network from config using r. Field sampling order is
// fixed (RTT, bandwidth, loss, num senders, buffer) so that the same Rng
// state always produces the same Network regardless of caller.
func Sample(config NetworkConfig, r *rng.Rng) Network {
	return Network{
		RTT:                     config.RTT.Sample(r),
		BandwidthBytesPerSecond: config.BandwidthBytesPerSecond.Sample(r),
		LossRate:                config.Loss.Sample(r),
		NumSenders:              config.NumSenders.Sample(r),
		BufferBytes:             config.BufferBytes.Sample(r),
		OnDist:                  config.OnDist,
		OffDist:                 config.OffDist,
	}
}

// PopulateComponents installs num_senders sender-side components into a
// simulation under construction, addressed at linkDestination, and returns
// one toggle destination plus one flow meter per sender. Concrete trainers
// (e.g. a DelayMultiplier genetic search) implement this to decide what
// controller each sender runs.
type PopulateComponents interface {
	Populate(
		numSenders int,
		builder *simulation.SimulatorBuilder[netsim.Effect],
		linkDestination simulation.MessageDestination[netsim.Packet, netsim.Effect],
		r *rng.Rng,
	) PopulateComponentsResult
}

// PopulateComponentsResult is what a PopulateComponents hook returns: one
// toggle destination and one flow meter per sender it installed, in the
// same order.
type PopulateComponentsResult struct {
	SenderToggleDestinations []simulation.MessageDestination[netsim.SenderInput, netsim.Effect]
	Flows                    []*flow.Meter
}

// ToSim builds the full topology for n: one Link, one Toggler per sender
// wired to the sender components the hook installs, and returns the ready
// simulator plus the per-sender flow meters the evaluator will query after
// running it. r seeds both the simulation's shared Rng and the network's
// own structural randomness (Link loss draws, Toggler schedules).
func (n Network) ToSim(populate PopulateComponents, r *rng.Rng) (*simulation.Simulator[netsim.Effect], []*flow.Meter, error) {
	builder := simulation.NewSimulatorBuilder[netsim.Effect](r)

	linkSlot := simulation.Insert[netsim.Packet, netsim.Effect](builder)
	// The Link's propagation delay is one-way; ToSim halves the network's
	// target round-trip time since netsim.Link charges it twice (once per
	// direction) when scheduling an ack.
	link := netsim.NewLink(n.LossRate, n.BandwidthBytesPerSecond, n.RTT.Scale(0.5), n.BufferBytes, r)
	linkSlot.Set(link)

	result := populate.Populate(n.NumSenders, builder, linkSlot.Destination(), r)
	if len(result.SenderToggleDestinations) != n.NumSenders || len(result.Flows) != n.NumSenders {
		return nil, nil, fmt.Errorf(
			"sampler: PopulateComponents returned %d toggle destinations and %d flows for %d senders",
			len(result.SenderToggleDestinations), len(result.Flows), n.NumSenders,
		)
	}

	for _, toggleDest := range result.SenderToggleDestinations {
		togglerSlot := simulation.Insert[components.Never, netsim.Effect](builder)
		togglerSlot.Set(components.NewToggler(toggleDest, netsim.WrapToggle, n.OnDist, n.OffDist, r))
	}

	sim, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}
	return sim, result.Flows, nil
}
