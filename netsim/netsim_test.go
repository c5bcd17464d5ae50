package netsim

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"flowforge/components"
	"flowforge/flow"
	"flowforge/quantities"
	"flowforge/rng"
	"flowforge/ruletree"
	"flowforge/simulation"
)

// onceEnabler fires a single Toggle::Enable at SimStart, standing in for a
// components.Toggler in tests that only need one activation rather than a
// full on/off schedule.
type onceEnabler struct {
	target simulation.MessageDestination[SenderInput, Effect]
	fired  bool
}

func (e *onceEnabler) NextTick(quantities.Time) (quantities.Time, bool) {
	if e.fired {
		return quantities.Time{}, false
	}
	return quantities.SimStart, true
}

func (e *onceEnabler) Tick(ctx simulation.EffectContext[components.Never, Effect]) []simulation.Message[Effect] {
	e.fired = true
	toggle := components.ToggleEnable
	return []simulation.Message[Effect]{e.target.CreateMessage(SenderInput{Toggle: &toggle})}
}

func (e *onceEnabler) Receive(components.Never, simulation.EffectContext[components.Never, Effect]) []simulation.Message[Effect] {
	panic("netsim: onceEnabler has no reachable Receive type")
}

// buildSingleSenderSim wires one Link, one WindowedSender driven by
// controller, and an onceEnabler that activates it at SimStart.
func buildSingleSenderSim(lossRate, bufferBytes quantities.Float, propagationDelay quantities.TimeSpan, controller WindowController, meter *flow.Meter, seed uint64) (*simulation.Simulator[Effect], *Link) {
	builder := simulation.NewSimulatorBuilder[Effect](rng.New(seed))

	linkSlot := simulation.Insert[Packet, Effect](builder)
	senderSlot := simulation.Insert[SenderInput, Effect](builder)
	enablerSlot := simulation.Insert[components.Never, Effect](builder)

	link := NewLink(lossRate, 1_250_000, propagationDelay, bufferBytes, rng.New(seed+1))
	linkSlot.Set(link)

	sender := NewWindowedSender(linkSlot.Destination(), controller, meter, 1_000)
	senderSlot.Set(sender)

	enablerSlot.Set(&onceEnabler{target: senderSlot.Destination()})

	sim, err := builder.Build()
	if err != nil {
		panic(err)
	}
	return sim, link
}

func TestLinkConservesBytes(t *testing.T) {
	Convey("Given a lossy, buffer-limited link fed by a single enabled sender", t, func() {
		meter := flow.NewMeter(0.2, 0.2, 0.125)
		controller := NewDelayMultiplier(1.0)
		sim, link := buildSingleSenderSim(0.3, 6_000, quantities.Milliseconds(50), controller, meter, 11)

		Convey("After running long enough to drop, deliver, and queue packets", func() {
			sim.RunFor(quantities.Seconds(10))

			Convey("Offered bytes equal delivered plus dropped plus still-queued bytes", func() {
				So(link.BytesOffered(), ShouldEqual, link.BytesDelivered()+link.BytesDropped()+link.QueuedBytes())
				So(link.BytesOffered(), ShouldBeGreaterThan, 0)
			})
		})
	})
}

// TestDelayMultiplierSteadyState drives scenario S2: a single sender with a
// DelayMultiplier(1.0) controller over a lossless, unbounded-buffer,
// 100ms-RTT link should settle into roughly one packet per RTT in flight,
// with a mean RTT close to the link's round-trip propagation delay.
func TestDelayMultiplierSteadyState(t *testing.T) {
	Convey("Given a single sender over a 100ms-RTT, lossless, unbounded link", t, func() {
		meter := flow.NewMeter(0.125, 0.125, 0.125)
		controller := NewDelayMultiplier(1.0)
		// 50ms one-way propagation delay each direction gives a 100ms RTT
		// floor when transmission time is negligible relative to it.
		sim, _ := buildSingleSenderSim(0, math.Inf(1), quantities.Milliseconds(50), controller, meter, 42)

		Convey("Running for 30 seconds settles to roughly one RTT per packet, RTT within 5% of 100ms", func() {
			sim.RunFor(quantities.Seconds(30))
			props, err := meter.CurrentProperties(sim.Time())
			So(err, ShouldBeNil)
			So(props.RTTMean.Seconds(), ShouldBeBetween, 0.095, 0.105)
			expected := 1000.0 / 0.1 // one 1000-byte packet per 100ms RTT
			So(props.Throughput, ShouldBeBetween, expected*0.5, expected*1.5)
		})
	})
}

func TestDisablingASenderDrainsItsFlowStatistics(t *testing.T) {
	Convey("Given a WindowedSender that has acked packets while enabled", t, func() {
		meter := flow.NewMeter(0.125, 0.125, 0.125)
		controller := NewDelayMultiplier(1.0)
		sender := NewWindowedSender(simulation.MessageDestination[Packet, Effect]{}, controller, meter, 1000)

		enable := components.ToggleEnable
		sender.Receive(SenderInput{Toggle: &enable}, simulation.EffectContext[SenderInput, Effect]{Time: quantities.SimStart})
		meter.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(100), 1000)
		So(meter.Active(), ShouldBeTrue)

		Convey("Toggle::Disable drains the meter back to never-active", func() {
			disable := components.ToggleDisable
			sender.Receive(SenderInput{Toggle: &disable}, simulation.EffectContext[SenderInput, Effect]{Time: quantities.FromSimStart(quantities.Seconds(2))})
			So(meter.Active(), ShouldBeFalse)
		})
	})
}

func TestRuleTreeControllerAppliesActionAfterAck(t *testing.T) {
	Convey("Given a rule-tree controller over the default single-leaf tree", t, func() {
		meter := flow.NewMeter(0.125, 0.125, 0.125)
		controller := NewRuleTreeController(ruletree.NewRuleTree(), meter)

		Convey("Its InitialSettings match the documented startup default", func() {
			settings := controller.InitialSettings()
			So(settings.Window, ShouldEqual, uint32(1))
		})

		Convey("An ack inside the tree's domain applies the leaf's action to the window", func() {
			meter.RecordAck(quantities.FromSimStart(quantities.Seconds(0.05)), quantities.Milliseconds(50), 1000)
			settings := LossyWindowSettings{Window: 2, IntersendDelay: quantities.Milliseconds(100)}
			controller.AckReceived(&settings, quantities.SimStart, quantities.FromSimStart(quantities.Seconds(0.05)))
			// Default tree's single leaf: multiplier=1, increment=0, isd=10ms.
			So(settings.Window, ShouldEqual, uint32(2))
			So(settings.IntersendDelay, ShouldResemble, quantities.Milliseconds(10))
		})
	})
}
