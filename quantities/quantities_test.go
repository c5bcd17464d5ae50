package quantities

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTimeArithmetic(t *testing.T) {
	Convey("Given a Time and a TimeSpan", t, func() {
		start := SimStart
		span := Seconds(5)

		Convey("When the span is added to the time", func() {
			later := start.Add(span)

			Convey("Then subtracting the original time recovers the span", func() {
				So(later.Sub(start), ShouldResemble, span)
			})

			Convey("Then the later time is After the earlier one", func() {
				So(later.After(start), ShouldBeTrue)
				So(start.Before(later), ShouldBeTrue)
			})
		})

		Convey("When FromSimStart is used instead", func() {
			So(FromSimStart(span), ShouldResemble, start.Add(span))
		})
	})
}

func TestTimeEquality(t *testing.T) {
	Convey("Given a Time reached two different ways", t, func() {
		a := SimStart.Add(Seconds(2)).Add(Seconds(3))
		b := SimStart.Add(Seconds(5))

		Convey("They compare exactly equal", func() {
			So(a.Equal(b), ShouldBeTrue)
		})

		Convey("A Time is never before or after itself", func() {
			So(a.Before(a), ShouldBeFalse)
			So(a.After(a), ShouldBeFalse)
		})
	})
}

func TestTimeSpanValidation(t *testing.T) {
	Convey("Given various TimeSpans", t, func() {
		Convey("A positive span reports Positive and Finite", func() {
			d := Seconds(1.5)
			So(d.Positive(), ShouldBeTrue)
			So(d.Finite(), ShouldBeTrue)
		})

		Convey("A zero or negative span does not report Positive", func() {
			So(Zero.Positive(), ShouldBeFalse)
			So(Seconds(-1).Positive(), ShouldBeFalse)
		})

		Convey("A non-finite span does not report Finite", func() {
			So(Seconds(1).Scale(1e308).Scale(1e308).Finite(), ShouldBeFalse)
		})
	})
}

func TestMillisecondsHelper(t *testing.T) {
	Convey("Milliseconds(1000) equals Seconds(1)", t, func() {
		So(Milliseconds(1000), ShouldResemble, Seconds(1))
	})
}
