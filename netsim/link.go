package netsim

import (
	"math"

	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/simulation"
)

type queuedPacket struct {
	packet      Packet
	departTime  quantities.Time
	arrivalTime quantities.Time
}

// Link models a single bottleneck: a lossy FIFO queue with finite
// bandwidth, a byte buffer cap, and a fixed one-way propagation delay. It
// draws its own loss decisions from a child Rng forked at construction, so
// loss draws never compete with sender/toggler randomness for the same
// stream.
//
// Once a packet finishes transmitting, the Link re-addresses it back to its
// ReturnPath — there is no separate receiver component in this topology,
// since nothing in the spec's data model names one and a sender needs the
// round trip to compute RTT anyway. Because there is no second Link hop to
// charge the return leg's propagation time to, a packet's round trip pays
// propagationDelay twice (once for each direction) at the point the ack is
// scheduled; queueing and serialization are only charged once, on the
// forward leg, matching how a real bottleneck queue only builds up in one
// direction.
type Link struct {
	lossRate                quantities.Float
	bandwidthBytesPerSecond quantities.Float
	propagationDelay        quantities.TimeSpan
	bufferBytes             quantities.Float // may be math.Inf(1) for an unbounded buffer

	rng        *rng.Rng
	queue      []queuedPacket
	lastDepart quantities.Time

	queuedBytes, bytesOffered, bytesDelivered, bytesDropped quantities.Float
}

// NewLink constructs a Link. bufferBytes may be math.Inf(1) for an
// effectively unbounded queue.
func NewLink(lossRate, bandwidthBytesPerSecond quantities.Float, propagationDelay quantities.TimeSpan, bufferBytes quantities.Float, parent *rng.Rng) *Link {
	return &Link{
		lossRate:                lossRate,
		bandwidthBytesPerSecond: bandwidthBytesPerSecond,
		propagationDelay:        propagationDelay,
		bufferBytes:             bufferBytes,
		rng:                     parent.CreateChild(),
		lastDepart:              quantities.SimStart,
	}
}

func (l *Link) NextTick(quantities.Time) (quantities.Time, bool) {
	if len(l.queue) == 0 {
		return quantities.Time{}, false
	}
	return l.queue[0].arrivalTime, true
}

func (l *Link) Tick(ctx simulation.EffectContext[Packet, Effect]) []simulation.Message[Effect] {
	head := l.queue[0]
	l.queue = l.queue[1:]
	l.queuedBytes -= quantities.Float(head.packet.SizeBytes)
	l.bytesDelivered += quantities.Float(head.packet.SizeBytes)
	return []simulation.Message[Effect]{
		head.packet.ReturnPath.CreateMessage(SenderInput{Ack: &head.packet}),
	}
}

func (l *Link) Receive(packet Packet, ctx simulation.EffectContext[Packet, Effect]) []simulation.Message[Effect] {
	size := quantities.Float(packet.SizeBytes)
	l.bytesOffered += size

	if l.rng.Float64() < l.lossRate {
		l.bytesDropped += size
		return nil
	}
	if l.queuedBytes+size > l.bufferBytes {
		l.bytesDropped += size
		return nil
	}

	departBase := ctx.Time
	if l.lastDepart.After(departBase) {
		departBase = l.lastDepart
	}
	depart := departBase.Add(quantities.Seconds(size / l.bandwidthBytesPerSecond))
	arrival := depart.Add(l.propagationDelay.Scale(2))

	l.lastDepart = depart
	l.queuedBytes += size
	l.queue = append(l.queue, queuedPacket{packet: packet, departTime: depart, arrivalTime: arrival})
	return nil
}

// QueuedBytes, BytesOffered, BytesDelivered and BytesDropped support the
// link-conservation testable property: offered == delivered + dropped +
// queued, at any point in the simulation.
func (l *Link) QueuedBytes() quantities.Float     { return l.queuedBytes }
func (l *Link) BytesOffered() quantities.Float    { return l.bytesOffered }
func (l *Link) BytesDelivered() quantities.Float  { return l.bytesDelivered }
func (l *Link) BytesDropped() quantities.Float    { return l.bytesDropped }
func (l *Link) QueueDepth() int                   { return len(l.queue) }
func (l *Link) UnboundedBuffer() bool             { return math.IsInf(l.bufferBytes, 1) }
