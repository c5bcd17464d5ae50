// Package trainer implements a genetic search over a controller's tunable
// parameters ("Dna"), scoring each candidate with an evaluator.Evaluate
// call and breeding the next generation from the fittest survivors.
package trainer

import (
	"context"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"flowforge/evaluator"
	"flowforge/flow"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/sampler"
)

// Dna is a trained controller's serializable genome.
type Dna interface {
	Name() string
	Serialize() ([]byte, error)
}

// ProgressHandler is notified as a training run advances. fracComplete is
// in [0, 1]. While a generation is being scored, each scored candidate
// triggers an update with best == nil; when a generation finishes, one
// update carries best pointing at that generation's fittest candidate.
type ProgressHandler[D Dna] interface {
	UpdateProgress(fracComplete quantities.Float, best *D)
}

// ProgressHandlerFunc adapts a plain function to a ProgressHandler, the
// way the reference implementation lets any FnMut stand in for one.
type ProgressHandlerFunc[D Dna] func(fracComplete quantities.Float, best *D)

// UpdateProgress implements ProgressHandler.
func (f ProgressHandlerFunc[D]) UpdateProgress(fracComplete quantities.Float, best *D) {
	f(fracComplete, best)
}

// GeneticDna is a Dna that also knows how to wire its own sender
// components into a network (so it can be evaluated directly) and how to
// produce a mutated copy of itself for the next generation.
type GeneticDna[D any] interface {
	Dna
	sampler.PopulateComponents
	SpawnChild(r *rng.Rng) D
}

// Trainer is the contract cmd/flowforge-demo consumes: something that can
// turn a network scenario and a utility function into a trained Dna.
type Trainer[D Dna] interface {
	Train(
		newRandom func(r *rng.Rng) D,
		networkConfig sampler.NetworkConfig,
		utilityFunction flow.UtilityFunction,
		progress ProgressHandler[D],
		r *rng.Rng,
	) D
}

// GeneticConfig controls a genetic search: Iterations generations, each
// scoring PopulationSize candidates against NetworksPerIter samples run
// for RunFor, keeping the fitter half and breeding two children per
// survivor to refill the population.
type GeneticConfig struct {
	Iterations      int
	PopulationSize  int
	RunFor          quantities.TimeSpan
	NetworksPerIter uint32
}

// DefaultGeneticConfig matches the reference trainer's defaults.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		Iterations:      100,
		PopulationSize:  1000,
		RunFor:          quantities.Seconds(1000),
		NetworksPerIter: 100,
	}
}

// GeneticTrainer runs a GeneticConfig search over a concrete candidate
// type D.
type GeneticTrainer[D GeneticDna[D]] struct {
	config GeneticConfig
}

// NewGeneticTrainer builds a GeneticTrainer for candidate type D.
func NewGeneticTrainer[D GeneticDna[D]](config GeneticConfig) GeneticTrainer[D] {
	return GeneticTrainer[D]{config: config}
}

type scoredCandidate[D any] struct {
	dna   D
	score quantities.Float
}

// Train runs the search to completion and returns the best candidate
// found. newRandom draws an initial random genome; every candidate in
// every generation is scored against independently drawn networks from
// networkConfig, using its own PopulateComponents implementation to wire
// its sender components.
func (t GeneticTrainer[D]) Train(
	newRandom func(r *rng.Rng) D,
	networkConfig sampler.NetworkConfig,
	utilityFunction flow.UtilityFunction,
	progress ProgressHandler[D],
	r *rng.Rng,
) D {
	if t.config.Iterations < 1 || t.config.PopulationSize < 1 {
		panic("trainer: GeneticConfig.Iterations and PopulationSize must each be at least 1")
	}

	population := make([]D, t.config.PopulationSize)
	for i := range population {
		population[i] = newRandom(r)
	}

	evalConfig := evaluator.EvaluationConfig{
		NetworkSamples: t.config.NetworksPerIter,
		RunSimFor:      t.config.RunFor,
	}

	var best D
	for iter := 0; iter < t.config.Iterations; iter++ {
		scored := t.scoreGeneration(population, evalConfig, networkConfig, utilityFunction, progress, iter, r)

		best = scored[0].dna
		frac := quantities.Float(iter+1) / quantities.Float(t.config.Iterations)
		progress.UpdateProgress(frac, &best)

		population = breed(scored, newRandom, r)
	}
	return best
}

// scoreGeneration scores every candidate in population concurrently, each
// against its own child Rng forked from r before dispatch (so the set of
// scoring runs is fixed regardless of how the worker pool interleaves
// them), and returns the candidates sorted fittest-first.
func (t GeneticTrainer[D]) scoreGeneration(
	population []D,
	evalConfig evaluator.EvaluationConfig,
	networkConfig sampler.NetworkConfig,
	utilityFunction flow.UtilityFunction,
	progress ProgressHandler[D],
	iter int,
	r *rng.Rng,
) []scoredCandidate[D] {
	scored := make([]scoredCandidate[D], len(population))
	children := make([]*rng.Rng, len(population))
	for i := range population {
		children[i] = r.CreateChild()
	}

	var (
		mu        sync.Mutex
		completed int
	)
	group, _ := errgroup.WithContext(context.Background())
	for i, d := range population {
		i, d, child := i, d, children[i]
		group.Go(func() error {
			score, _, err := evalConfig.Evaluate(networkConfig, d, utilityFunction, child)
			if err != nil {
				score = negativeInfinity
			}
			scored[i] = scoredCandidate[D]{dna: d, score: score}

			mu.Lock()
			completed++
			frac := (quantities.Float(iter)*quantities.Float(len(population)) + quantities.Float(completed)) /
				(quantities.Float(t.config.Iterations) * quantities.Float(len(population)))
			progress.UpdateProgress(frac, nil)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait() // evaluator.Evaluate's own errors are absorbed above; Wait never returns non-nil here.

	sort.Slice(scored, func(a, b int) bool { return scored[a].score > scored[b].score })
	return scored
}

// negativeInfinity stands in for a candidate whose evaluation found no
// active flows at all — worse than any real score, so it never survives a
// generation, mirroring the reference trainer's Float::MIN fallback.
var negativeInfinity = quantities.Float(math.Inf(-1))

// breed keeps the fitter half of scored and produces two children per
// survivor (via SpawnChild) to refill the population back to its original
// size, topping up with fresh random genomes if an odd population size
// left a gap.
func breed[D GeneticDna[D]](scored []scoredCandidate[D], newRandom func(r *rng.Rng) D, r *rng.Rng) []D {
	populationSize := len(scored)
	survivors := scored[:max(1, populationSize/2)]

	next := make([]D, 0, populationSize)
	for _, s := range survivors {
		next = append(next, s.dna.SpawnChild(r), s.dna.SpawnChild(r))
	}
	if len(next) > populationSize {
		next = next[:populationSize]
	}
	for len(next) < populationSize {
		next = append(next, newRandom(r))
	}
	return next
}
