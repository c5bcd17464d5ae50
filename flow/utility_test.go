package flow

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"flowforge/quantities"
)

func TestAlphaFairnessSkipsNeverActiveFlows(t *testing.T) {
	Convey("Given a mix of active and never-active flows", t, func() {
		active := NewMeter(0.125, 0.125, 0.125)
		active.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(100), 1000)
		neverActive := NewMeter(0.125, 0.125, 0.125)

		u := AlphaFairness{Alpha: 1.0, DelayWeight: 0}

		Convey("The never-active flow is excluded, not scored as zero", func() {
			_, props, err := u.TotalUtility([]*Meter{active, neverActive}, quantities.FromSimStart(quantities.Seconds(1)))
			So(err, ShouldBeNil)
			activeProps, _ := active.CurrentProperties(quantities.FromSimStart(quantities.Seconds(1)))
			So(props.Throughput, ShouldEqual, activeProps.Throughput)
		})
	})

	Convey("Given only never-active flows", t, func() {
		u := AlphaFairness{Alpha: 1.0, DelayWeight: 0}
		_, _, err := u.TotalUtility([]*Meter{NewMeter(0.125, 0.125, 0.125)}, quantities.SimStart)

		Convey("It reports NoActiveFlows", func() {
			So(err, ShouldEqual, ErrNoActiveFlows)
		})
	})
}

func TestAlphaFairnessPenalizesDelay(t *testing.T) {
	Convey("Given two flows with equal throughput but different RTT", t, func() {
		fast := NewMeter(0.125, 0.125, 0.125)
		fast.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(10), 1000)
		slow := NewMeter(0.125, 0.125, 0.125)
		slow.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(500), 1000)

		u := AlphaFairness{Alpha: 1.0, DelayWeight: 1.0}
		at := quantities.FromSimStart(quantities.Seconds(1))

		fastScore, _, err := u.TotalUtility([]*Meter{fast}, at)
		So(err, ShouldBeNil)
		slowScore, _, err := u.TotalUtility([]*Meter{slow}, at)
		So(err, ShouldBeNil)

		Convey("The lower-RTT flow scores higher", func() {
			So(fastScore, ShouldBeGreaterThan, slowScore)
		})
	})
}
