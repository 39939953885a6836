package sim

import (
	"fmt"
	"math"
	"strconv"
)

// Time is virtual simulation time in nanoseconds.
type Time int64

const (
	Nanosecond  Time = 1
	Microsecond      = 1000 * Nanosecond
	Millisecond      = 1000 * Microsecond
	Second           = 1000 * Millisecond
)

// MaxTime is used as "no stop time set".
const MaxTime Time = math.MaxInt64

// Seconds converts a floating point number of seconds to Time, rounding to the
// nearest nanosecond.
func Seconds(s float64) Time {
	return Time(math.Round(s * float64(Second)))
}

// Milliseconds converts an integer count of milliseconds to Time.
func Milliseconds(ms int64) Time {
	return Time(ms) * Millisecond
}

// Microseconds converts an integer count of microseconds to Time.
func Microseconds(us int64) Time {
	return Time(us) * Microsecond
}

// Seconds returns t as floating point seconds.
func (t Time) Seconds() float64 {
	return float64(t) / float64(Second)
}

// Nanoseconds returns t as an integer nanosecond count.
func (t Time) Nanoseconds() int64 {
	return int64(t)
}

// String renders t the way the trace files print time: a signed number of
// seconds, e.g. "+2.5s".
func (t Time) String() string {
	sign := "+"
	if t < 0 {
		sign = "-"
		t = -t
	}
	return sign + strconv.FormatFloat(t.Seconds(), 'f', -1, 64) + "s"
}

// NanoString renders t as "+<n>ns", the format used by the mobility trace.
func (t Time) NanoString() string {
	return fmt.Sprintf("%+dns", int64(t))
}
