package netsim

import (
	"flowforge/components"
	"flowforge/flow"
	"flowforge/quantities"
	"flowforge/simulation"
)

// SenderInput is the tagged union a WindowedSender's Receive type accepts:
// either a returned Packet (an ack) or a components.Toggle. Exactly one
// field is non-nil.
type SenderInput struct {
	Ack    *Packet
	Toggle *components.Toggle
}

// WrapToggle adapts a components.Toggle into a SenderInput, for wiring a
// components.Toggler at a WindowedSender.
func WrapToggle(t components.Toggle) SenderInput {
	return SenderInput{Toggle: &t}
}

// timeoutMultiple is how many minimum-RTTs an outstanding packet is
// allowed to go unacknowledged before the sender gives up waiting for it
// and frees its window slot. Without this, a single lost packet on an
// otherwise-saturated window would stall a sender forever.
const timeoutMultiple = 4

// timeoutFallback is the timeout used before any RTT sample exists to base
// timeoutMultiple on.
func timeoutFallback() quantities.TimeSpan {
	return quantities.Seconds(1)
}

// WindowedSender is a congestion-controlled flow source: a Disabled/Active
// state machine gated by Toggle messages, sending packets to a Link while
// respecting a congestion window and intersend pacing delegated to a
// WindowController.
type WindowedSender struct {
	link            simulation.MessageDestination[Packet, Effect]
	controller      WindowController
	meter           *flow.Meter
	packetSizeBytes int

	active      bool
	settings    LossyWindowSettings
	outstanding map[uint64]quantities.Time
	nextID      uint64
	lastSend    quantities.Time
}

// NewWindowedSender returns a sender addressing link, controlled by
// controller, recording its statistics into meter. It starts Disabled,
// matching spec.md §4.5's wait_for_enable initial state.
func NewWindowedSender(link simulation.MessageDestination[Packet, Effect], controller WindowController, meter *flow.Meter, packetSizeBytes int) *WindowedSender {
	return &WindowedSender{
		link:            link,
		controller:      controller,
		meter:           meter,
		packetSizeBytes: packetSizeBytes,
		outstanding:     make(map[uint64]quantities.Time),
	}
}

func (s *WindowedSender) timeoutDuration() quantities.TimeSpan {
	if min := s.meter.MinRTTSeen(); min.Seconds() > 0 {
		return min.Scale(timeoutMultiple)
	}
	return timeoutFallback()
}

func (s *WindowedSender) NextTick(current quantities.Time) (quantities.Time, bool) {
	if !s.active {
		return quantities.Time{}, false
	}
	var (
		earliest quantities.Time
		has      bool
	)
	if uint32(len(s.outstanding)) < s.settings.Window {
		earliest, has = s.lastSend.Add(s.settings.IntersendDelay), true
	}
	timeout := s.timeoutDuration()
	for _, sentTime := range s.outstanding {
		t := sentTime.Add(timeout)
		if !has || t.Before(earliest) {
			earliest, has = t, true
		}
	}
	// A send slot or timeout that fell due while the sender was waiting
	// (e.g. an ack arriving after lastSend+IntersendDelay) is served at the
	// current time, never scheduled into the past.
	if has && earliest.Before(current) {
		earliest = current
	}
	return earliest, has
}

func (s *WindowedSender) Tick(ctx simulation.EffectContext[SenderInput, Effect]) []simulation.Message[Effect] {
	timeout := s.timeoutDuration()
	for id, sentTime := range s.outstanding {
		if !sentTime.Add(timeout).After(ctx.Time) {
			delete(s.outstanding, id)
		}
	}

	canSend := uint32(len(s.outstanding)) < s.settings.Window && !ctx.Time.Before(s.lastSend.Add(s.settings.IntersendDelay))
	if !canSend {
		return nil
	}
	id := s.nextID
	s.nextID++
	packet := Packet{
		ID:          id,
		Source:      ctx.Self,
		Destination: s.link,
		ReturnPath:  ctx.Self,
		SentTime:    ctx.Time,
		SizeBytes:   s.packetSizeBytes,
	}
	s.outstanding[id] = ctx.Time
	s.lastSend = ctx.Time
	s.meter.RecordSend(ctx.Time)
	return []simulation.Message[Effect]{s.link.CreateMessage(packet)}
}

func (s *WindowedSender) Receive(payload SenderInput, ctx simulation.EffectContext[SenderInput, Effect]) []simulation.Message[Effect] {
	switch {
	case payload.Toggle != nil:
		s.handleToggle(*payload.Toggle, ctx.Time)
	case payload.Ack != nil:
		s.handleAck(*payload.Ack, ctx.Time)
	}
	return nil
}

func (s *WindowedSender) handleToggle(toggle components.Toggle, at quantities.Time) {
	switch toggle {
	case components.ToggleEnable:
		s.active = true
		s.settings = s.controller.InitialSettings()
		s.outstanding = make(map[uint64]quantities.Time)
		// Allow an immediate send on the next scheduling pass rather than
		// waiting a full intersend delay after activation.
		s.lastSend = at.Add(s.settings.IntersendDelay.Scale(-1))
	case components.ToggleDisable:
		s.active = false
		s.meter.Reset()
	}
}

func (s *WindowedSender) handleAck(packet Packet, at quantities.Time) {
	sentTime, ok := s.outstanding[packet.ID]
	if !ok {
		// Stale ack for a packet already timed out; ignore.
		return
	}
	delete(s.outstanding, packet.ID)
	s.meter.RecordAck(at, at.Sub(sentTime), packet.SizeBytes)
	s.controller.AckReceived(&s.settings, sentTime, at)
}
