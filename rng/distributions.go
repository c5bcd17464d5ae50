package rng

import "flowforge/quantities"

// Distribution samples a value of type T from an Rng. Implementations are
// plain value types so that NetworkConfig (in package sampler) can embed
// them directly and remain comparable/copyable.
type Distribution[T any] interface {
	Sample(r *Rng) T
}

// UniformFloat samples uniformly from [Min, Max).
type UniformFloat struct {
	Min, Max quantities.Float
}

func (d UniformFloat) Sample(r *Rng) quantities.Float {
	return d.Min + r.Float64()*(d.Max-d.Min)
}

// DiracFloat always returns the same value. Useful for deterministic test
// fixtures (e.g. spec S4's on_dist = Dirac(1s)).
type DiracFloat struct {
	Value quantities.Float
}

func (d DiracFloat) Sample(*Rng) quantities.Float {
	return d.Value
}

// ContinuousDistribution samples an unconstrained Float.
type ContinuousDistribution = Distribution[quantities.Float]

// PositiveContinuousDistribution samples a TimeSpan that is guaranteed
// positive: every sample is checked as it is drawn, and a non-positive or
// non-finite one panics. Nothing is checked at construction.
type PositiveContinuousDistribution struct {
	inner ContinuousDistribution
}

// NewPositiveContinuousDistribution wraps dist, which must always sample a
// positive, finite value; violations are detected lazily the first time
// they occur rather than by exhaustively checking the distribution up
// front, since the space of possible samples may be infinite.
func NewPositiveContinuousDistribution(dist ContinuousDistribution) PositiveContinuousDistribution {
	return PositiveContinuousDistribution{inner: dist}
}

// Sample draws a TimeSpan, panicking if the wrapped distribution produced a
// non-positive or non-finite value — a construction fault per spec's error
// handling design, not a recoverable domain condition.
func (d PositiveContinuousDistribution) Sample(r *Rng) quantities.TimeSpan {
	span := quantities.Seconds(d.inner.Sample(r))
	if !span.Finite() || !span.Positive() {
		panic("rng: PositiveContinuousDistribution produced a non-positive or non-finite sample")
	}
	return span
}

// DiscreteUniform samples an integer uniformly from [Min, Max].
type DiscreteUniform struct {
	Min, Max int
}

func (d DiscreteUniform) Sample(r *Rng) int {
	if d.Max < d.Min {
		panic("rng: DiscreteUniform requires Max >= Min")
	}
	return d.Min + r.IntN(d.Max-d.Min+1)
}

// DiscreteDistribution samples an integer count (e.g. num_senders).
type DiscreteDistribution = Distribution[int]
