package trainer

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"flowforge/flow"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/ruletree"
	"flowforge/sampler"
)

func ruleTreeProbePoint() ruletree.Point {
	return ruletree.Point{AckEwma: 10, SendEwma: 10, RTTRatio: 1}
}

func tinyNetworkConfig() sampler.NetworkConfig {
	return sampler.NetworkConfig{
		RTT:                     rng.NewPositiveContinuousDistribution(rng.UniformFloat{Min: 0.02, Max: 0.05}),
		BandwidthBytesPerSecond: rng.UniformFloat{Min: 5e5, Max: 1e6},
		Loss:                    rng.UniformFloat{Min: 0, Max: 0.01},
		NumSenders:              rng.DiscreteUniform{Min: 1, Max: 1},
		BufferBytes:             rng.UniformFloat{Min: 10_000, Max: 50_000},
		OnDist:                  rng.NewPositiveContinuousDistribution(rng.DiracFloat{Value: 1}),
		OffDist:                 rng.NewPositiveContinuousDistribution(rng.DiracFloat{Value: 0.01}),
	}
}

func TestGeneticTrainerReturnsASaneDelayMultiplierAndReportsProgress(t *testing.T) {
	Convey("Given a tiny genetic search over DelayMultiplierDna", t, func() {
		config := GeneticConfig{
			Iterations:      3,
			PopulationSize:  6,
			RunFor:          quantities.Seconds(2),
			NetworksPerIter: 3,
		}
		search := NewGeneticTrainer[DelayMultiplierDna](config)
		utility := flow.AlphaFairness{Alpha: 1.0, DelayWeight: 0.1}

		// The trainer calls progress from its worker goroutines (serialized
		// by its own lock), where goconvey assertions cannot run, so the
		// fractions are recorded here and checked after Train returns.
		var fracs []quantities.Float
		progress := ProgressHandlerFunc[DelayMultiplierDna](func(frac quantities.Float, best *DelayMultiplierDna) {
			fracs = append(fracs, frac)
		})

		best := search.Train(NewRandomDelayMultiplierDna, tinyNetworkConfig(), utility, progress, rng.New(55))
		updates := len(fracs)

		Convey("It returns a candidate with a sane multiplier and reports progress along the way", func() {
			for _, frac := range fracs {
				So(frac, ShouldBeBetween, -0.0001, 1.0001)
			}
			So(best.Multiplier, ShouldBeGreaterThan, 0)
			So(updates, ShouldBeGreaterThan, 0)
		})
	})
}

func TestDelayMultiplierDnaRoundTripsThroughSerialization(t *testing.T) {
	Convey("Given a DelayMultiplierDna", t, func() {
		d := DelayMultiplierDna{Multiplier: 1.7}
		buf, err := d.Serialize()
		So(err, ShouldBeNil)

		decoded, err := DeserializeDelayMultiplierDna(buf)
		So(err, ShouldBeNil)
		So(decoded, ShouldResemble, d)
	})
}

func TestRuleTreeDnaSpawnChildPreservesDomainCoverage(t *testing.T) {
	Convey("Given a default RuleTreeDna", t, func() {
		d := NewRandomRuleTreeDna(rng.New(1))

		Convey("SpawnChild always returns a tree that still resolves the same probe points", func() {
			child := d.SpawnChild(rng.New(2))
			probe := ruleTreeProbePoint()
			_, parentOK := d.Tree.Action(probe)
			_, childOK := child.Tree.Action(probe)
			So(childOK, ShouldEqual, parentOK)
		})
	})
}

func TestRuleTreeDnaRoundTripsThroughSerialization(t *testing.T) {
	Convey("Given a RuleTreeDna grown by one split", t, func() {
		d := NewRandomRuleTreeDna(rng.New(3))
		d.Tree = d.Tree.SplitLeaf(d.Tree.Domain())

		buf, err := d.Serialize()
		So(err, ShouldBeNil)

		decoded, err := DeserializeRuleTreeDna(buf)
		So(err, ShouldBeNil)
		So(decoded.Tree.IsLeaf(), ShouldBeFalse)
	})
}
