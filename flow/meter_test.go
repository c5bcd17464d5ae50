package flow

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"flowforge/quantities"
	"flowforge/ruletree"
)

func TestMeterIsInactiveUntilFirstAck(t *testing.T) {
	Convey("Given a fresh Meter", t, func() {
		m := NewMeter(0.125, 0.125, 0.125)

		Convey("It reports inactive and CurrentProperties fails", func() {
			So(m.Active(), ShouldBeFalse)
			_, err := m.CurrentProperties(quantities.SimStart)
			So(err, ShouldEqual, ErrFlowNeverActive)
		})

		Convey("After one ack it becomes active", func() {
			m.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(100), 1000)
			So(m.Active(), ShouldBeTrue)
			props, err := m.CurrentProperties(quantities.FromSimStart(quantities.Seconds(1)))
			So(err, ShouldBeNil)
			So(props.RTTMean, ShouldResemble, quantities.Milliseconds(100))
		})
	})
}

func TestMeterThroughputAveragesOverActiveLifetime(t *testing.T) {
	Convey("Given a Meter that acks three 1000-byte packets over 2 seconds", t, func() {
		m := NewMeter(0.125, 0.125, 0.125)
		m.RecordAck(quantities.FromSimStart(quantities.Seconds(0)), quantities.Milliseconds(100), 1000)
		m.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(100), 1000)
		m.RecordAck(quantities.FromSimStart(quantities.Seconds(2)), quantities.Milliseconds(100), 1000)

		Convey("Throughput at t=2 is total bytes over elapsed active time", func() {
			props, err := m.CurrentProperties(quantities.FromSimStart(quantities.Seconds(2)))
			So(err, ShouldBeNil)
			So(props.Throughput, ShouldEqual, quantities.Float(3000)/2)
		})
	})
}

func TestMeterResetDrainsStatisticsBackToFresh(t *testing.T) {
	Convey("Given a Meter with accumulated send/ack history", t, func() {
		m := NewMeter(0.125, 0.125, 0.125)
		m.RecordSend(quantities.FromSimStart(quantities.Seconds(0)))
		m.RecordAck(quantities.FromSimStart(quantities.Seconds(0)), quantities.Milliseconds(100), 1000)
		m.RecordSend(quantities.FromSimStart(quantities.Seconds(1)))
		m.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(150), 1000)
		So(m.Active(), ShouldBeTrue)

		m.Reset()

		Convey("It reports inactive again and CurrentProperties fails exactly as a fresh Meter would", func() {
			So(m.Active(), ShouldBeFalse)
			_, err := m.CurrentProperties(quantities.FromSimStart(quantities.Seconds(1)))
			So(err, ShouldEqual, ErrFlowNeverActive)
		})

		Convey("MinRTTSeen and Point both reflect a clean slate", func() {
			So(m.MinRTTSeen(), ShouldResemble, quantities.TimeSpan{})
			So(m.Point(), ShouldResemble, ruletree.Point{RTTRatio: 1})
		})

		Convey("A subsequent ack behaves as if it were the first ever recorded", func() {
			m.RecordAck(quantities.FromSimStart(quantities.Seconds(5)), quantities.Milliseconds(50), 500)
			So(m.Active(), ShouldBeTrue)
			So(m.MinRTTSeen(), ShouldResemble, quantities.Milliseconds(50))
		})
	})
}

func TestMeterRTTRatioTracksMinimumSeen(t *testing.T) {
	Convey("Given a Meter that sees a 100ms RTT then a 200ms RTT", t, func() {
		m := NewMeter(0.125, 0.125, 0.125)
		m.RecordAck(quantities.FromSimStart(quantities.Seconds(0)), quantities.Milliseconds(100), 1000)
		m.RecordAck(quantities.FromSimStart(quantities.Seconds(1)), quantities.Milliseconds(200), 1000)

		Convey("Point.RTTRatio is the latest RTT over the minimum seen", func() {
			point := m.Point()
			So(point.RTTRatio, ShouldEqual, quantities.Float(2))
		})

		Convey("MinRTTSeen stays pinned to the smaller sample even after a larger one", func() {
			So(m.MinRTTSeen(), ShouldResemble, quantities.Milliseconds(100))
		})
	})
}
