package index

import "pkt.systems/ttyplay/internal/ttyrec"

// Position is the coarse result of a lookup: the landmark whose span contains
// the target and where to start refining from.
type Position struct {
	Segment  int
	Landmark int
	// Offset is the header offset of the landmark record in the segment file.
	Offset int64
	// Elapsed is the global elapsed time at Offset.
	Elapsed ttyrec.Timeval
	// Target is the requested time after clamping to the recording.
	Target ttyrec.Timeval
}

// Clamp limits target to [0, End].
func (ix *Index) Clamp(target ttyrec.Timeval) ttyrec.Timeval {
	if target.IsNegative() {
		return ttyrec.Timeval{}
	}
	if end := ix.End(); end.Less(target) {
		return end
	}
	return target
}

// Locate finds the landmark span containing target. A target that lands
// exactly on a landmark boundary resolves to the landmark starting there.
func (ix *Index) Locate(target ttyrec.Timeval) Position {
	if ix == nil || len(ix.Segments) == 0 {
		return Position{}
	}
	target = ix.Clamp(target)

	seg := len(ix.Segments) - 1
	for i, s := range ix.Segments {
		if target.Less(s.End) {
			seg = i
			break
		}
	}
	s := ix.Segments[seg]
	lm := s.LastLandmark
	for i := s.FirstLandmark; i <= s.LastLandmark; i++ {
		if target.Less(ix.Landmarks[i].End) {
			lm = i
			break
		}
	}
	l := ix.Landmarks[lm]
	return Position{
		Segment:  seg,
		Landmark: lm,
		Offset:   l.RecordOffset,
		Elapsed:  l.Start,
		Target:   target,
	}
}

// LandmarkPosition returns the position of landmark lm.
func (ix *Index) LandmarkPosition(lm int) (Position, bool) {
	l, ok := ix.Landmark(lm)
	if !ok {
		return Position{}, false
	}
	return Position{
		Segment:  l.Segment,
		Landmark: lm,
		Offset:   l.RecordOffset,
		Elapsed:  l.Start,
		Target:   l.Start,
	}, true
}

// SegmentPosition returns the position of the first landmark of segment seg.
func (ix *Index) SegmentPosition(seg int) (Position, bool) {
	s, ok := ix.Segment(seg)
	if !ok {
		return Position{}, false
	}
	return ix.LandmarkPosition(s.FirstLandmark)
}
