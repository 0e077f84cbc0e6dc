// Package player drives real-time playback of ttyrec records: it paces output
// against the recorded timestamps, reads keys into playback commands, and
// applies seeks and jumps through an optional index-backed navigator.
package player

import "pkt.systems/ttyplay/internal/ttyrec"

// RequestKind identifies a pending repositioning command.
type RequestKind int

const (
	RequestNone RequestKind = iota
	// RequestSeek moves by Delta relative to the current elapsed time.
	RequestSeek
	// RequestSeekTo moves to the absolute Target.
	RequestSeekTo
	RequestNextSegment
	RequestPrevSegment
	RequestNextLandmark
	RequestPrevLandmark
)

func (k RequestKind) String() string {
	switch k {
	case RequestNone:
		return "none"
	case RequestSeek:
		return "seek"
	case RequestSeekTo:
		return "seek_to"
	case RequestNextSegment:
		return "next_segment"
	case RequestPrevSegment:
		return "prev_segment"
	case RequestNextLandmark:
		return "next_landmark"
	case RequestPrevLandmark:
		return "prev_landmark"
	default:
		return "unknown"
	}
}

// Request is a repositioning command waiting for the next loop iteration.
type Request struct {
	Kind   RequestKind
	Delta  ttyrec.Timeval
	Target ttyrec.Timeval
}

// State is the playback state owned by a single control loop.
type State struct {
	Segment  int
	Landmark int
	Elapsed  ttyrec.Timeval
	Request  Request
	// Speed is the playback multiplier. A negative value means paused; its
	// magnitude is the speed to resume at.
	Speed  float64
	Offset int64
	Quit   bool
}

// Paused reports whether playback is paused.
func (s State) Paused() bool {
	return s.Speed < 0
}

// Pending reports whether a repositioning request is waiting.
func (s State) Pending() bool {
	return s.Request.Kind != RequestNone
}

// seekBy folds a relative move into the pending request.
func (s *State) seekBy(delta ttyrec.Timeval) {
	switch s.Request.Kind {
	case RequestSeek:
		s.Request.Delta = s.Request.Delta.Add(delta)
	case RequestSeekTo:
		s.Request.Target = s.Request.Target.Add(delta)
	default:
		s.Request = Request{Kind: RequestSeek, Delta: delta}
	}
}

// target resolves the pending seek into an absolute elapsed time.
func (s State) target() ttyrec.Timeval {
	if s.Request.Kind == RequestSeekTo {
		return s.Request.Target
	}
	return s.Elapsed.Add(s.Request.Delta)
}
