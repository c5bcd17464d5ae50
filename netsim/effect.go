// Package netsim implements the bottleneck-link network model: packets, a
// lossy FIFO link, and a windowed sender driven by a pluggable congestion
// controller.
package netsim

// Effect is the simulation-wide effect sum every Message in a netsim
// simulation is carried in. The reference implementation generates one
// effect sum type per simulation configuration; this repo uses a single
// marker type throughout instead, since every payload variant
// (Packet, SenderInput, components.Never) is already distinguished by the
// Go type system at the MessageDestination/Component level — a dedicated
// sum type per configuration would add a layer of indirection without
// adding type safety. See DESIGN.md.
type Effect struct{}
