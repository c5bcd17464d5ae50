package flow

import (
	"errors"
	"math"

	"flowforge/quantities"
)

// ErrNoActiveFlows is returned when a utility function (or the evaluator
// averaging over samples) has nothing active to aggregate. Upstream
// callers usually treat it as "score = worst" rather than a fault.
var ErrNoActiveFlows = errors.New("flow: no active flows to aggregate")

// UtilityFunction reduces a snapshot of flows at a fixed time to a scalar
// score plus the averaged properties that produced it.
type UtilityFunction interface {
	TotalUtility(flows []*Meter, at quantities.Time) (quantities.Float, FlowProperties, error)
}

// AlphaFairness scores flows with the alpha-fair utility of throughput
// (log utility at Alpha == 1, per the standard continuous extension),
// penalized linearly by mean RTT to capture the throughput/delay tradeoff
// spec.md §4.8 names. Inactive flows are excluded entirely rather than
// scored as zero.
type AlphaFairness struct {
	Alpha       quantities.Float
	DelayWeight quantities.Float
}

func (u AlphaFairness) TotalUtility(flows []*Meter, at quantities.Time) (quantities.Float, FlowProperties, error) {
	var (
		score           quantities.Float
		totalThroughput quantities.Float
		totalRTT        quantities.TimeSpan
		active          int
	)
	for _, f := range flows {
		props, err := f.CurrentProperties(at)
		if errors.Is(err, ErrFlowNeverActive) {
			continue
		}
		active++
		totalThroughput += props.Throughput
		totalRTT = totalRTT.Add(props.RTTMean)
		score += alphaUtility(props.Throughput, u.Alpha) - u.DelayWeight*props.RTTMean.Seconds()
	}
	if active == 0 {
		return 0, FlowProperties{}, ErrNoActiveFlows
	}
	avg := FlowProperties{
		Throughput: totalThroughput / quantities.Float(active),
		RTTMean:    totalRTT.Scale(1 / quantities.Float(active)),
	}
	return score, avg, nil
}

func alphaUtility(throughput, alpha quantities.Float) quantities.Float {
	if throughput <= 0 {
		return 0
	}
	if alpha == 1 {
		return math.Log(throughput)
	}
	return math.Pow(throughput, 1-alpha) / (1 - alpha)
}
