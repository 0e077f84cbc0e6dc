// Package index builds and queries the landmark index over one or more ttyrec
// files. Segments and landmarks live in flat ordered slices and refer to each
// other by position, so the whole recording reads as one timeline.
package index

import (
	"errors"

	"pkt.systems/ttyplay/internal/ttyrec"
)

// DefaultMarker is the clear-screen sequence that opens a landmark.
var DefaultMarker = []byte("\x1b[2J")

// ErrNoInput is returned when Build is called without files.
var ErrNoInput = errors.New("index: no input files")

// Segment is one input file, a contiguous slice of the global timeline.
type Segment struct {
	Path string
	Pos  int
	// Start is the global elapsed time at the segment's first record.
	Start ttyrec.Timeval
	// End is the global elapsed time at the segment's last record.
	End           ttyrec.Timeval
	FirstLandmark int
	LastLandmark  int
	Records       int
	Size          int64
}

// Duration returns the segment's share of the timeline.
func (s Segment) Duration() ttyrec.Timeval {
	return s.End.Sub(s.Start)
}

// Landmark is an indexed record boundary used as a coarse seek target.
type Landmark struct {
	Segment int
	// RecordOffset is the header offset of the landmark record within its file.
	RecordOffset int64
	// MarkerOffset is the file offset of the marker, or -1 for synthetic landmarks.
	MarkerOffset int64
	// Start is the global elapsed time at the landmark record.
	Start ttyrec.Timeval
	// End is the global elapsed time at the end of the landmark's span.
	End       ttyrec.Timeval
	Synthetic bool
}

// Index is the landmark chain over all segments.
type Index struct {
	Segments  []Segment
	Landmarks []Landmark
}

// End returns the total elapsed time of the recording.
func (ix *Index) End() ttyrec.Timeval {
	if ix == nil || len(ix.Segments) == 0 {
		return ttyrec.Timeval{}
	}
	return ix.Segments[len(ix.Segments)-1].End
}

// Segment returns the segment at pos.
func (ix *Index) Segment(pos int) (Segment, bool) {
	if ix == nil || pos < 0 || pos >= len(ix.Segments) {
		return Segment{}, false
	}
	return ix.Segments[pos], true
}

// Landmark returns the landmark at pos.
func (ix *Index) Landmark(pos int) (Landmark, bool) {
	if ix == nil || pos < 0 || pos >= len(ix.Landmarks) {
		return Landmark{}, false
	}
	return ix.Landmarks[pos], true
}

// IsFirstSegment reports whether pos is the head of the segment chain.
func (ix *Index) IsFirstSegment(pos int) bool {
	return pos == 0
}

// IsLastSegment reports whether pos is the tail of the segment chain.
func (ix *Index) IsLastSegment(pos int) bool {
	return ix != nil && pos == len(ix.Segments)-1
}

// NextLandmark returns the landmark following pos, crossing segment boundaries.
func (ix *Index) NextLandmark(pos int) (int, bool) {
	if ix == nil || pos+1 >= len(ix.Landmarks) || pos+1 < 0 {
		return 0, false
	}
	return pos + 1, true
}

// PrevLandmark returns the landmark preceding pos, crossing segment boundaries.
func (ix *Index) PrevLandmark(pos int) (int, bool) {
	if ix == nil || pos-1 < 0 || pos-1 >= len(ix.Landmarks) {
		return 0, false
	}
	return pos - 1, true
}

// LandmarkAt returns the landmark of segment seg whose span contains the
// record at offset.
func (ix *Index) LandmarkAt(seg int, offset int64) int {
	s, ok := ix.Segment(seg)
	if !ok {
		return 0
	}
	found := s.FirstLandmark
	for i := s.FirstLandmark + 1; i <= s.LastLandmark; i++ {
		if ix.Landmarks[i].RecordOffset > offset {
			break
		}
		found = i
	}
	return found
}

// Markers returns the number of non-synthetic landmarks.
func (ix *Index) Markers() int {
	if ix == nil {
		return 0
	}
	n := 0
	for _, lm := range ix.Landmarks {
		if !lm.Synthetic {
			n++
		}
	}
	return n
}
