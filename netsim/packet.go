package netsim

import (
	"flowforge/quantities"
	"flowforge/simulation"
)

// Packet is a single unit of traffic crossing the bottleneck link. It is
// immutable once created and never outlives the simulation that created it.
type Packet struct {
	ID uint64

	// Source identifies the sender that created this packet.
	Source simulation.MessageDestination[SenderInput, Effect]
	// Destination is the link this packet is routed to.
	Destination simulation.MessageDestination[Packet, Effect]
	// ReturnPath is where the link echoes this packet once it departs the
	// queue, giving Source an ack to compute RTT from.
	ReturnPath simulation.MessageDestination[SenderInput, Effect]

	SentTime  quantities.Time
	SizeBytes int
}
