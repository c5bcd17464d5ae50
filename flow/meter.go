// Package flow implements per-flow rolling statistics (the RuleTree's
// observation source) and the utility functions that score a completed
// simulation. No Rust source for this module survived pack filtering
// (original_source/ has no flow.rs or utility.rs); this is grounded
// directly on spec.md §4.6/§4.8's description, in the teacher's
// plain-struct-plus-methods style.
package flow

import (
	"errors"

	"flowforge/quantities"
	"flowforge/ruletree"
)

// ErrFlowNeverActive is returned by CurrentProperties on a flow that has
// never received an ack.
var ErrFlowNeverActive = errors.New("flow: queried before any ack was ever received")

// FlowProperties is a snapshot of a flow's aggregate behaviour.
type FlowProperties struct {
	Throughput quantities.Float // bytes per second, over the flow's active lifetime
	RTTMean    quantities.TimeSpan
}

// Meter tracks one sender's rolling statistics: EWMAs of inter-send and
// inter-ack gaps (the RuleTree's Point axes), the minimum RTT seen (for
// rtt_ratio), a smoothed mean RTT (for FlowProperties), and total bytes
// acked since the flow first became active.
type Meter struct {
	ackEwma  *quantities.EWMA
	sendEwma *quantities.EWMA
	rttMean  *quantities.EWMA

	haveMinRTT bool
	minRTT     quantities.TimeSpan
	lastRTT    quantities.TimeSpan

	haveLastSend bool
	lastSend     quantities.Time

	active      bool
	firstActive quantities.Time
	lastAck     quantities.Time

	totalBytes quantities.Float
}

// NewMeter returns a Meter with the given EWMA smoothing factors, all in
// (0, 1].
func NewMeter(ackAlpha, sendAlpha, rttAlpha quantities.Float) *Meter {
	return &Meter{
		ackEwma:  quantities.NewEWMA(ackAlpha),
		sendEwma: quantities.NewEWMA(sendAlpha),
		rttMean:  quantities.NewEWMA(rttAlpha),
	}
}

// RecordSend folds a new send event into the send-gap EWMA. The first send
// after construction or after a Reset has no prior send to gap against and
// only seeds lastSend.
func (m *Meter) RecordSend(at quantities.Time) {
	if m.haveLastSend {
		m.sendEwma.Update(at.Sub(m.lastSend))
	}
	m.lastSend = at
	m.haveLastSend = true
}

// RecordAck folds a new ack into the flow's statistics: the ack-gap EWMA,
// the minimum and mean RTT, and total bytes delivered. The first ack since
// construction or a Reset activates the flow.
func (m *Meter) RecordAck(at quantities.Time, rtt quantities.TimeSpan, sizeBytes int) {
	if m.active {
		m.ackEwma.Update(at.Sub(m.lastAck))
	} else {
		m.active = true
		m.firstActive = at
	}
	m.lastAck = at
	m.lastRTT = rtt
	if !m.haveMinRTT || rtt.Seconds() < m.minRTT.Seconds() {
		m.minRTT = rtt
		m.haveMinRTT = true
	}
	m.rttMean.Update(rtt)
	m.totalBytes += quantities.Float(sizeBytes)
}

// Active reports whether this flow has ever received an ack since
// construction (or its last Reset).
func (m *Meter) Active() bool {
	return m.active
}

// Reset drains every statistic back to its pre-construction state (the
// EWMAs, min/mean RTT tracking, accumulated bytes, and activity flag) while
// keeping the EWMA smoothing factors unchanged. Called when a sender is
// toggled off: the next activation's statistics should reflect only its own
// cycle, not a stale average carried over from before the flow went idle.
func (m *Meter) Reset() {
	m.ackEwma.Reset()
	m.sendEwma.Reset()
	m.rttMean.Reset()

	m.haveMinRTT = false
	m.minRTT = quantities.TimeSpan{}
	m.lastRTT = quantities.TimeSpan{}

	m.haveLastSend = false
	m.lastSend = quantities.Time{}

	m.active = false
	m.firstActive = quantities.Time{}
	m.lastAck = quantities.Time{}

	m.totalBytes = 0
}

// Point returns the flow's current position in RuleTree observation space:
// the ack/send EWMAs expressed in milliseconds (the scale the reference
// implementation's octree is bucketed in, matching MaxPoint's magnitude)
// and the ratio of the most recent RTT sample to the minimum RTT seen.
func (m *Meter) Point() ruletree.Point {
	ratio := quantities.Float(1)
	if m.haveMinRTT && m.minRTT.Seconds() > 0 {
		ratio = m.lastRTT.Seconds() / m.minRTT.Seconds()
	}
	return ruletree.Point{
		AckEwma:  m.ackEwma.Value().Seconds() * 1000,
		SendEwma: m.sendEwma.Value().Seconds() * 1000,
		RTTRatio: ratio,
	}
}

// MinRTTSeen returns the smallest RTT observed so far, or the zero TimeSpan
// if no ack has ever been received.
func (m *Meter) MinRTTSeen() quantities.TimeSpan {
	return m.minRTT
}

// CurrentProperties returns the flow's throughput and mean RTT as of at,
// averaging total bytes over the span since the flow first activated. It
// returns ErrFlowNeverActive if no ack has ever been recorded.
func (m *Meter) CurrentProperties(at quantities.Time) (FlowProperties, error) {
	if !m.active {
		return FlowProperties{}, ErrFlowNeverActive
	}
	elapsed := at.Sub(m.firstActive).Seconds()
	var throughput quantities.Float
	if elapsed > 0 {
		throughput = m.totalBytes / elapsed
	}
	return FlowProperties{Throughput: throughput, RTTMean: m.rttMean.Value()}, nil
}
