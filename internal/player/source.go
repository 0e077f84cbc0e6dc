package player

import (
	"context"
	"errors"
	"io"

	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/seek"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// Stream is a Source over a single unindexed ttyrec stream, such as stdin.
type Stream struct {
	rd      *ttyrec.Reader
	prev    ttyrec.Timeval
	started bool
}

// NewStream returns a Stream reading r.
func NewStream(r io.Reader, maxPayload int) *Stream {
	return &Stream{rd: ttyrec.NewReaderSize(r, maxPayload)}
}

// Next returns the next record. A truncated final record ends the stream.
func (s *Stream) Next() (seek.Step, error) {
	rec, err := s.rd.Next()
	if err != nil {
		if errors.Is(err, ttyrec.ErrTruncated) {
			return seek.Step{}, io.EOF
		}
		return seek.Step{}, err
	}
	step := seek.Step{Record: rec, Fresh: !s.started}
	if s.started {
		step.Delta = ttyrec.Delta(s.prev, rec.Time)
	}
	s.prev = rec.Time
	s.started = true
	return step, nil
}

// PlayIndex plays ix to one viewer with its own cursor. The index may be
// shared by concurrent viewers.
func PlayIndex(ctx context.Context, ix *index.Index, out io.Writer, keys <-chan byte, opts Options, cursor seek.Options) error {
	cur := seek.NewCursor(ctx, ix, cursor)
	defer func() { _ = cur.Close() }()
	return New(cur, out, keys, opts).Run(ctx)
}
