package trainer

import (
	"encoding/json"

	"flowforge/flow"
	"flowforge/netsim"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/sampler"
	"flowforge/simulation"
)

// DelayMultiplierDna is the genome a genetic search evolves when training
// the DelayMultiplier controller family: a single scalar pacing
// multiplier, shared by every sender a candidate installs.
type DelayMultiplierDna struct {
	Multiplier quantities.Float `json:"multiplier"`
}

// NewRandomDelayMultiplierDna draws an initial candidate uniformly from
// [0, 5], the reference trainer's search range for this multiplier.
func NewRandomDelayMultiplierDna(r *rng.Rng) DelayMultiplierDna {
	return DelayMultiplierDna{Multiplier: rng.UniformFloat{Min: 0, Max: 5}.Sample(r)}
}

// Name identifies this genome family, matching Dna::NAME's role as the
// file-extension tag a save/load path is validated against.
func (DelayMultiplierDna) Name() string { return "delaymultiplier" }

// Serialize encodes the genome as JSON.
func (d DelayMultiplierDna) Serialize() ([]byte, error) {
	return json.Marshal(d)
}

// DeserializeDelayMultiplierDna is Dna's associated deserializer: Go has
// no associated-function equivalent of Rust's Dna::deserialize, so it is
// a free function keyed to this concrete genome type instead.
func DeserializeDelayMultiplierDna(buf []byte) (DelayMultiplierDna, error) {
	var d DelayMultiplierDna
	err := json.Unmarshal(buf, &d)
	return d, err
}

// SpawnChild mutates the multiplier by a uniform +/-10% jitter, the
// reference trainer's breeding step for this genome.
func (d DelayMultiplierDna) SpawnChild(r *rng.Rng) DelayMultiplierDna {
	return DelayMultiplierDna{Multiplier: d.Multiplier * rng.UniformFloat{Min: 0.9, Max: 1.1}.Sample(r)}
}

// Populate implements sampler.PopulateComponents: it installs one
// WindowedSender per requested sender, each driven by its own
// DelayMultiplier controller built with this genome's multiplier.
func (d DelayMultiplierDna) Populate(
	numSenders int,
	builder *simulation.SimulatorBuilder[netsim.Effect],
	linkDestination simulation.MessageDestination[netsim.Packet, netsim.Effect],
	r *rng.Rng,
) sampler.PopulateComponentsResult {
	result := sampler.PopulateComponentsResult{
		SenderToggleDestinations: make([]simulation.MessageDestination[netsim.SenderInput, netsim.Effect], numSenders),
		Flows:                    make([]*flow.Meter, numSenders),
	}
	for i := 0; i < numSenders; i++ {
		senderSlot := simulation.Insert[netsim.SenderInput, netsim.Effect](builder)
		meter := flow.NewMeter(0.125, 0.125, 0.125)
		controller := netsim.NewDelayMultiplier(d.Multiplier)
		senderSlot.Set(netsim.NewWindowedSender(linkDestination, controller, meter, 1000))
		result.SenderToggleDestinations[i] = senderSlot.Destination()
		result.Flows[i] = meter
	}
	return result
}
