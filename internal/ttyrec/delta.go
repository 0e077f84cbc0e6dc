package ttyrec

// Delta returns the playback time between two consecutive record timestamps.
// Timestamps that go backwards (clock adjustments while recording) count as
// zero so elapsed time never decreases.
func Delta(prev, cur Timeval) Timeval {
	d := Diff(prev, cur)
	if d.IsNegative() {
		return Timeval{}
	}
	return d
}
