// Package quantities defines the units shared across the simulator: a
// simulation clock (Time), a signed duration over that clock (TimeSpan),
// and the floating-point kind everything else is measured in (Float).
package quantities

import (
	"fmt"
	"math"
)

// Float is the floating-point kind used throughout the simulator. A single
// alias keeps a future precision change (e.g. to a fixed-point type) to one
// line.
type Float = float64

// SimStart is the absolute instant every simulation clock begins at.
var SimStart = Time{seconds: 0}

// Time is an absolute instant on a simulation's clock. Time values are only
// ever produced by SimStart plus a TimeSpan, or by advancing a component's
// own stored next-tick value, so equality comparisons are exact: a
// simulation never recomputes a Time from scratch and then compares it
// against a previously stored one.
type Time struct {
	seconds Float
}

// FromSimStart returns the Time that is span after SimStart.
func FromSimStart(span TimeSpan) Time {
	return SimStart.Add(span)
}

// Add returns t advanced by span. span may be negative.
func (t Time) Add(span TimeSpan) Time {
	return Time{seconds: t.seconds + span.seconds}
}

// Sub returns the signed duration from other to t, i.e. t - other.
func (t Time) Sub(other Time) TimeSpan {
	return TimeSpan{seconds: t.seconds - other.seconds}
}

// Before reports whether t is strictly earlier than other.
func (t Time) Before(other Time) bool {
	return t.seconds < other.seconds
}

// After reports whether t is strictly later than other.
func (t Time) After(other Time) bool {
	return t.seconds > other.seconds
}

// Equal reports exact equality, per this package's no-epsilon comparison
// contract.
func (t Time) Equal(other Time) bool {
	return t.seconds == other.seconds
}

// Seconds returns the raw number of seconds since SimStart. Exposed for
// components (e.g. link departure math) that need to do further arithmetic
// outside this package; callers should prefer TimeSpan/Time operations
// where possible.
func (t Time) Seconds() Float {
	return t.seconds
}

func (t Time) String() string {
	return fmt.Sprintf("t=%.6fs", t.seconds)
}

// TimeSpan is a signed duration in seconds.
type TimeSpan struct {
	seconds Float
}

// Seconds constructs a TimeSpan from a raw second count.
func Seconds(s Float) TimeSpan {
	return TimeSpan{seconds: s}
}

// Milliseconds constructs a TimeSpan from a raw millisecond count.
func Milliseconds(ms Float) TimeSpan {
	return TimeSpan{seconds: ms / 1000}
}

// Zero is the zero-length TimeSpan.
var Zero = TimeSpan{}

// Seconds returns the duration as a raw float number of seconds.
func (d TimeSpan) Seconds() Float {
	return d.seconds
}

// Add returns the sum of two durations.
func (d TimeSpan) Add(other TimeSpan) TimeSpan {
	return TimeSpan{seconds: d.seconds + other.seconds}
}

// Scale returns d multiplied by a dimensionless factor.
func (d TimeSpan) Scale(factor Float) TimeSpan {
	return TimeSpan{seconds: d.seconds * factor}
}

// Positive reports whether the duration is strictly greater than zero.
// Callers on the construction boundary (distribution sampling, config
// ingest) use this to reject arithmetic domain violations before they reach
// the tick hot path, per spec's error-handling design.
func (d TimeSpan) Positive() bool {
	return d.seconds > 0
}

// Finite reports whether the duration is a finite, non-NaN value.
func (d TimeSpan) Finite() bool {
	return !math.IsNaN(d.seconds) && !math.IsInf(d.seconds, 0)
}

func (d TimeSpan) String() string {
	return fmt.Sprintf("%.6fs", d.seconds)
}
