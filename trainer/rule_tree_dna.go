package trainer

import (
	"flowforge/flow"
	"flowforge/netsim"
	"flowforge/rng"
	"flowforge/ruletree"
	"flowforge/sampler"
	"flowforge/simulation"
)

// RuleTreeDna is the genome a genetic search evolves when training a
// RuleTree-driven controller directly (as opposed to RemyrDna's neural
// policy, which trains with backprop over rollouts and isn't reproduced
// here — see DESIGN.md). Breeding jitters every leaf's action and
// occasionally splits one leaf to grow the tree's resolution, the same
// two moves the reference implementation's remy rule tree search uses.
type RuleTreeDna struct {
	Tree ruletree.RuleTree
}

// NewRandomRuleTreeDna starts from the default single-leaf tree: an
// untrained population member still makes policy decisions (window
// multiplier 1, no increment, 10ms pacing), it just hasn't specialized
// yet.
func NewRandomRuleTreeDna(r *rng.Rng) RuleTreeDna {
	return RuleTreeDna{Tree: ruletree.NewRuleTree()}
}

// Name identifies this genome family.
func (RuleTreeDna) Name() string { return "ruletree" }

// Serialize encodes the tree in its protobuf-wire form.
func (d RuleTreeDna) Serialize() ([]byte, error) {
	return ruletree.Encode(d.Tree), nil
}

// DeserializeRuleTreeDna decodes a genome previously produced by Serialize.
func DeserializeRuleTreeDna(buf []byte) (RuleTreeDna, error) {
	tree, err := ruletree.Decode(buf)
	if err != nil {
		return RuleTreeDna{}, err
	}
	return RuleTreeDna{Tree: tree}, nil
}

const (
	leafSplitProbability  = 0.05
	actionJitterMinFactor = 0.9
	actionJitterMaxFactor = 1.1
	incrementJitterRange  = 2 // spawnChild nudges WindowIncrement by [-incrementJitterRange, incrementJitterRange]
)

// SpawnChild jitters every leaf's action by a multiplicative +/-10%
// factor (window multiplier and intersend delay) and a small random walk
// on the integer window increment, then — with low probability — splits
// one randomly chosen leaf to let the tree grow finer-grained policy
// where the search has pushed it.
func (d RuleTreeDna) SpawnChild(r *rng.Rng) RuleTreeDna {
	jitterDist := rng.UniformFloat{Min: actionJitterMinFactor, Max: actionJitterMaxFactor}
	mutated := d.Tree.MapLeaves(func(_ ruletree.Cube, a ruletree.Action) ruletree.Action {
		a.WindowMultiplier *= jitterDist.Sample(r)
		a.IntersendDelay = a.IntersendDelay.Scale(jitterDist.Sample(r))
		a.WindowIncrement += int32(r.IntN(2*incrementJitterRange+1) - incrementJitterRange)
		if a.WindowIncrement < 0 {
			a.WindowIncrement = 0
		}
		return a
	})

	if r.Float64() < leafSplitProbability {
		leaves := mutated.Leaves()
		target := leaves[r.IntN(len(leaves))]
		mutated = mutated.SplitLeaf(target)
	}

	return RuleTreeDna{Tree: mutated}
}

// Populate implements sampler.PopulateComponents: it installs one
// WindowedSender per requested sender, each driven by a
// netsim.RuleTreeController reading this genome's tree.
func (d RuleTreeDna) Populate(
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
		controller := netsim.NewRuleTreeController(d.Tree, meter)
		senderSlot.Set(netsim.NewWindowedSender(linkDestination, controller, meter, 1000))
		result.SenderToggleDestinations[i] = senderSlot.Destination()
		result.Flows[i] = meter
	}
	return result
}
