// Package evaluator runs a utility function over many independently drawn
// network samples and averages the result, the way a trainer scores one
// candidate controller.
package evaluator

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"flowforge/flow"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/sampler"
)

// EvaluationConfig controls how many network scenarios an evaluation draws
// and how long each one runs before being scored.
type EvaluationConfig struct {
	NetworkSamples uint32
	RunSimFor      quantities.TimeSpan

	// MaxConcurrency caps how many samples run at once. Zero means
	// unbounded (errgroup.SetLimit is skipped). Evaluate's result never
	// depends on this value — it only trades wall-clock time for CPU
	// pressure.
	MaxConcurrency int
}

// DefaultEvaluationConfig matches the reference trainer's defaults: 1000
// samples of 120 simulated seconds each.
func DefaultEvaluationConfig() EvaluationConfig {
	return EvaluationConfig{
		NetworkSamples: 1000,
		RunSimFor:      quantities.Seconds(120),
	}
}

type draw struct {
	network sampler.Network
	rng     *rng.Rng
}

type sampleResult struct {
	score  quantities.Float
	props  flow.FlowProperties
	active bool
}

// Evaluate draws c.NetworkSamples independent Networks from networkConfig,
// builds and runs a simulation for each (installing sender components via
// populate), scores every run with utilityFunction, and returns the mean
// score and mean FlowProperties over the runs that had at least one active
// flow. Runs with no active flows are dropped rather than scored as zero;
// if every run is empty, it returns flow.ErrNoActiveFlows.
//
// Every sample's network and Rng are drawn from r, in order, before any
// simulation runs — so the set of (Network, child Rng) pairs dispatched to
// the worker pool is fixed regardless of how many workers run concurrently
// or in what order they finish. This is what makes Evaluate's result
// independent of its own concurrency: the same r and config always produce
// the same samples, and averaging is commutative over the order results
// land in.
func (c EvaluationConfig) Evaluate(
	networkConfig sampler.NetworkConfig,
	populate sampler.PopulateComponents,
	utilityFunction flow.UtilityFunction,
	r *rng.Rng,
) (quantities.Float, flow.FlowProperties, error) {
	draws := make([]draw, c.NetworkSamples)
	for i := range draws {
		draws[i] = draw{
			network: sampler.Sample(networkConfig, r),
			rng:     r.CreateChild(),
		}
	}

	results := make([]sampleResult, len(draws))
	group, _ := errgroup.WithContext(context.Background())
	if c.MaxConcurrency > 0 {
		group.SetLimit(c.MaxConcurrency)
	}
	for i, d := range draws {
		i, d := i, d
		group.Go(func() error {
			res, err := c.scoreOne(d, populate, utilityFunction)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, flow.FlowProperties{}, err
	}

	return average(results)
}

func (c EvaluationConfig) scoreOne(d draw, populate sampler.PopulateComponents, utilityFunction flow.UtilityFunction) (sampleResult, error) {
	sim, flows, err := d.network.ToSim(populate, d.rng)
	if err != nil {
		return sampleResult{}, err
	}
	sim.RunFor(c.RunSimFor)

	score, props, err := utilityFunction.TotalUtility(flows, sim.Time())
	if errors.Is(err, flow.ErrNoActiveFlows) {
		return sampleResult{}, nil
	}
	if err != nil {
		return sampleResult{}, err
	}
	return sampleResult{score: score, props: props, active: true}, nil
}

func average(results []sampleResult) (quantities.Float, flow.FlowProperties, error) {
	var (
		totalScore      quantities.Float
		totalThroughput quantities.Float
		totalRTT        quantities.TimeSpan
		n               int
	)
	for _, res := range results {
		if !res.active {
			continue
		}
		n++
		totalScore += res.score
		totalThroughput += res.props.Throughput
		totalRTT = totalRTT.Add(res.props.RTTMean)
	}
	if n == 0 {
		return 0, flow.FlowProperties{}, flow.ErrNoActiveFlows
	}
	count := quantities.Float(n)
	return totalScore / count, flow.FlowProperties{
		Throughput: totalThroughput / count,
		RTTMean:    totalRTT.Scale(1 / count),
	}, nil
}
