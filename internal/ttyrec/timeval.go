package ttyrec

import (
	"fmt"
	"math"
	"time"
)

const usecPerSec = 1_000_000

// Timeval is a seconds plus microseconds quantity as stored in ttyrec headers.
// Usec is always kept in [0, 1000000); negative values carry their sign in Sec,
// so -0.25s is {Sec: -1, Usec: 750000}.
type Timeval struct {
	Sec  int64
	Usec int64
}

// Normalize folds any out-of-range microsecond component into Sec.
func Normalize(sec, usec int64) Timeval {
	sec += usec / usecPerSec
	usec %= usecPerSec
	if usec < 0 {
		usec += usecPerSec
		sec--
	}
	return Timeval{Sec: sec, Usec: usec}
}

// FromMicros converts a microsecond count into a normalized Timeval.
func FromMicros(us int64) Timeval {
	return Normalize(0, us)
}

// FromSeconds converts fractional seconds, rounding to the nearest microsecond.
func FromSeconds(s float64) Timeval {
	return FromMicros(int64(math.Round(s * usecPerSec)))
}

// FromDuration converts a time.Duration, truncating below one microsecond.
func FromDuration(d time.Duration) Timeval {
	return FromMicros(int64(d / time.Microsecond))
}

// FromTime converts a wall-clock time into seconds/microseconds since the epoch.
func FromTime(t time.Time) Timeval {
	return Normalize(t.Unix(), int64(t.Nanosecond()/1000))
}

// Diff returns b - a.
func Diff(a, b Timeval) Timeval {
	return b.Sub(a)
}

// Add returns t + o.
func (t Timeval) Add(o Timeval) Timeval {
	return Normalize(t.Sec+o.Sec, t.Usec+o.Usec)
}

// Sub returns t - o.
func (t Timeval) Sub(o Timeval) Timeval {
	return Normalize(t.Sec-o.Sec, t.Usec-o.Usec)
}

// Div returns t / n rounded to the nearest microsecond. Dividing by zero yields
// the zero value.
func (t Timeval) Div(n float64) Timeval {
	if n == 0 {
		return Timeval{}
	}
	return FromMicros(int64(math.Round(float64(t.Micros()) / n)))
}

// Micros returns the total number of microseconds.
func (t Timeval) Micros() int64 {
	return t.Sec*usecPerSec + t.Usec
}

// Seconds returns t as fractional seconds.
func (t Timeval) Seconds() float64 {
	return float64(t.Micros()) / usecPerSec
}

// Duration converts t to a time.Duration.
func (t Timeval) Duration() time.Duration {
	return time.Duration(t.Micros()) * time.Microsecond
}

// Compare returns -1, 0 or +1 when t is before, equal to or after o.
func (t Timeval) Compare(o Timeval) int {
	a, b := t.Micros(), o.Micros()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports whether t is strictly before o.
func (t Timeval) Less(o Timeval) bool {
	return t.Compare(o) < 0
}

// IsZero reports whether t is exactly zero.
func (t Timeval) IsZero() bool {
	return t.Sec == 0 && t.Usec == 0
}

// IsNegative reports whether t is below zero.
func (t Timeval) IsNegative() bool {
	return t.Sec < 0
}

// Abs returns |t|.
func (t Timeval) Abs() Timeval {
	if t.IsNegative() {
		return Timeval{}.Sub(t)
	}
	return t
}

func (t Timeval) String() string {
	us := t.Micros()
	sign := ""
	if us < 0 {
		sign = "-"
		us = -us
	}
	return fmt.Sprintf("%s%d.%06ds", sign, us/usecPerSec, us%usecPerSec)
}
