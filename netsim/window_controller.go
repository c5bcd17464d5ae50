package netsim

import "flowforge/quantities"

// LossyWindowSettings is the mutable state a WindowController reads and
// adjusts on every ack.
type LossyWindowSettings struct {
	Window         uint32
	IntersendDelay quantities.TimeSpan
}

// WindowController is the pluggable congestion-control strategy a
// WindowedSender delegates to. Implementations must be side-effect-free
// beyond mutating the settings passed to AckReceived — no blocking, no
// access to anything but their own state and the settings pointer.
type WindowController interface {
	// InitialSettings returns the settings a sender resets to whenever it
	// transitions from Disabled to Active.
	InitialSettings() LossyWindowSettings

	// AckReceived is called once per acknowledged packet, after the
	// sender's flow meter has already recorded the ack (so implementations
	// that also observe flow state see it up to date). It may mutate
	// current in place.
	AckReceived(current *LossyWindowSettings, sentTime, receivedTime quantities.Time)
}

// defaultIntersendDelaySeconds is what a controller advertises via
// InitialSettings before it has seen a single RTT sample to base a real
// estimate on.
const defaultIntersendDelaySeconds quantities.Float = 0.1

// DelayMultiplier holds an EWMA of RTT (alpha = 1/8, per spec) and paces
// sends at Multiplier times that estimate, always with a window of one
// packet in flight.
type DelayMultiplier struct {
	Multiplier quantities.Float
	rttEwma    *quantities.EWMA
}

// NewDelayMultiplier returns a DelayMultiplier controller targeting the
// given pacing multiplier.
func NewDelayMultiplier(multiplier quantities.Float) *DelayMultiplier {
	return &DelayMultiplier{
		Multiplier: multiplier,
		rttEwma:    quantities.NewEWMA(0.125),
	}
}

func (d *DelayMultiplier) InitialSettings() LossyWindowSettings {
	return LossyWindowSettings{
		Window:         1,
		IntersendDelay: quantities.Seconds(defaultIntersendDelaySeconds),
	}
}

func (d *DelayMultiplier) AckReceived(current *LossyWindowSettings, sentTime, receivedTime quantities.Time) {
	rtt := receivedTime.Sub(sentTime)
	estimate := d.rttEwma.Update(rtt)
	current.Window = 1
	current.IntersendDelay = estimate.Scale(d.Multiplier)
}
