package ttyrec

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		sec  int64
		usec int64
		want Timeval
	}{
		{name: "in-range", sec: 3, usec: 250000, want: Timeval{3, 250000}},
		{name: "carry", sec: 1, usec: 1000000, want: Timeval{2, 0}},
		{name: "multi-carry", sec: 0, usec: 2500000, want: Timeval{2, 500000}},
		{name: "borrow", sec: 2, usec: -1, want: Timeval{1, 999999}},
		{name: "negative-fraction", sec: 0, usec: -250000, want: Timeval{-1, 750000}},
		{name: "negative-whole", sec: -3, usec: -1000000, want: Timeval{-4, 0}},
	}
	for _, tc := range tests {
		if got := Normalize(tc.sec, tc.usec); got != tc.want {
			t.Fatalf("%s: Normalize(%d, %d) = %+v, want %+v", tc.name, tc.sec, tc.usec, got, tc.want)
		}
	}
}

func TestDiffInvertsAdd(t *testing.T) {
	values := []Timeval{
		{0, 0},
		{0, 999999},
		{1, 1},
		{12, 500000},
		{-1, 750000},
		{-5, 0},
		{1700000000, 123456},
	}
	for _, a := range values {
		for _, b := range values {
			sum := a.Add(b)
			if sum.Usec < 0 || sum.Usec >= usecPerSec {
				t.Fatalf("add(%v, %v) = %+v has unnormalized usec", a, b, sum)
			}
			if got := Diff(a, sum); got != b {
				t.Fatalf("diff(%v, add(%v, %v)) = %+v, want %+v", a, a, b, got, b)
			}
			sub := a.Sub(b)
			if sub.Usec < 0 || sub.Usec >= usecPerSec {
				t.Fatalf("sub(%v, %v) = %+v has unnormalized usec", a, b, sub)
			}
			if sub.Micros() != a.Micros()-b.Micros() {
				t.Fatalf("sub(%v, %v) = %v, want %d us", a, b, sub, a.Micros()-b.Micros())
			}
		}
	}
}

func TestSubPropagatesSign(t *testing.T) {
	got := Timeval{1, 200000}.Sub(Timeval{1, 700000})
	if got != (Timeval{-1, 500000}) {
		t.Fatalf("expected -0.5s as {-1, 500000}, got %+v", got)
	}
	if !got.IsNegative() {
		t.Fatalf("expected negative result")
	}
	if got.String() != "-0.500000s" {
		t.Fatalf("unexpected string %q", got.String())
	}
	if got.Abs() != (Timeval{0, 500000}) {
		t.Fatalf("unexpected abs %+v", got.Abs())
	}
}

func TestDiv(t *testing.T) {
	tests := []struct {
		in   Timeval
		n    float64
		want Timeval
	}{
		{in: Timeval{3, 0}, n: 2, want: Timeval{1, 500000}},
		{in: Timeval{1, 0}, n: 0.5, want: Timeval{2, 0}},
		{in: Timeval{1, 0}, n: -4, want: Timeval{-1, 750000}},
		{in: Timeval{0, 3}, n: 2, want: Timeval{0, 2}},
		{in: Timeval{5, 0}, n: 0, want: Timeval{}},
	}
	for _, tc := range tests {
		if got := tc.in.Div(tc.n); got != tc.want {
			t.Fatalf("%v / %v = %+v, want %+v", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestConversions(t *testing.T) {
	if got := FromDuration(1500 * time.Millisecond); got != (Timeval{1, 500000}) {
		t.Fatalf("FromDuration: got %+v", got)
	}
	if got := (Timeval{2, 250}).Duration(); got != 2*time.Second+250*time.Microsecond {
		t.Fatalf("Duration: got %v", got)
	}
	if got := FromSeconds(-15); got != (Timeval{-15, 0}) {
		t.Fatalf("FromSeconds: got %+v", got)
	}
	ts := time.Unix(1700000000, 42000)
	if got := FromTime(ts); got != (Timeval{1700000000, 42}) {
		t.Fatalf("FromTime: got %+v", got)
	}
	if (Timeval{1, 0}).Compare(Timeval{0, 999999}) != 1 || !(Timeval{0, 1}).Less(Timeval{0, 2}) {
		t.Fatalf("unexpected ordering")
	}
}
