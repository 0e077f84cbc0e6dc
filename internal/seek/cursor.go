// Package seek positions playback inside an indexed recording. A Cursor owns
// the one open segment file, reads records across segment boundaries and
// resolves seeks and jumps against the landmark index.
package seek

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/logx"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// ErrNoTarget reports a jump past the first or last segment or landmark.
// Callers may ignore it; the cursor is left where it was.
var ErrNoTarget = errors.New("seek: no jump target")

// Opener opens a segment file for reading.
type Opener func(path string) (io.ReadSeekCloser, error)

// Options configures a Cursor.
type Options struct {
	MaxPayload int
	Open       Opener
	Logger     pslog.Logger
}

// Step is one record read by the cursor.
type Step struct {
	ttyrec.Record
	// Delta is the recorded gap since the previous record of the same segment.
	Delta ttyrec.Timeval
	// Fresh marks the first record after opening a segment or jumping.
	Fresh bool
}

// Cursor reads an indexed recording as one stream.
type Cursor struct {
	ix     *index.Index
	open   Opener
	max    int
	logger pslog.Logger

	seg  int
	lm   int
	file io.ReadSeekCloser
	rd   *ttyrec.Reader

	prev    ttyrec.Timeval
	started bool
	fresh   bool
	elapsed ttyrec.Timeval
}

// NewCursor returns a cursor positioned before the first record.
func NewCursor(ctx context.Context, ix *index.Index, opts Options) *Cursor {
	c := &Cursor{
		ix:     ix,
		open:   opts.Open,
		max:    opts.MaxPayload,
		logger: opts.Logger,
		seg:    -1,
	}
	if c.open == nil {
		c.open = func(path string) (io.ReadSeekCloser, error) { return os.Open(path) }
	}
	if c.max <= 0 {
		c.max = ttyrec.DefaultMaxPayload
	}
	if c.logger == nil {
		c.logger = pslog.Ctx(ctx)
	}
	return c
}

// Index returns the index the cursor navigates.
func (c *Cursor) Index() *index.Index {
	return c.ix
}

// Segment returns the current segment position, or -1 before the first read.
func (c *Cursor) Segment() int {
	return c.seg
}

// Landmark returns the landmark whose span holds the last record read.
func (c *Cursor) Landmark() int {
	return c.lm
}

// Offset returns the file offset of the next record header.
func (c *Cursor) Offset() int64 {
	if c.rd == nil {
		return 0
	}
	return c.rd.Offset()
}

// Elapsed returns the global elapsed time at the last record read.
func (c *Cursor) Elapsed() ttyrec.Timeval {
	return c.elapsed
}

// Next reads the next record, rolling over into the following segment at the
// end of a file. It returns io.EOF after the last record of the last segment.
func (c *Cursor) Next() (Step, error) {
	if c.file == nil {
		pos, ok := c.ix.SegmentPosition(0)
		if !ok {
			return Step{}, io.EOF
		}
		if err := c.position(pos); err != nil {
			return Step{}, err
		}
	}
	for {
		start := c.rd.Offset()
		rec, err := c.rd.Next()
		if err == nil {
			return c.accept(rec), nil
		}
		path := c.ix.Segments[c.seg].Path
		switch {
		case errors.Is(err, ttyrec.ErrTruncated):
			c.logger.Warn("segment ends with truncated record", "path", path, "offset", start, "err", err)
		case !errors.Is(err, io.EOF):
			return Step{}, fmt.Errorf("read %s: %w", path, err)
		}
		if c.ix.IsLastSegment(c.seg) {
			return Step{}, io.EOF
		}
		pos, _ := c.ix.SegmentPosition(c.seg + 1)
		logx.WithSegment(c.logger, pos.Segment, c.ix.Segments[pos.Segment].Path).Debug("segment switch", "from", c.seg)
		if err := c.position(pos); err != nil {
			return Step{}, err
		}
	}
}

// Close releases the open segment file.
func (c *Cursor) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	c.seg = -1
	return err
}

func (c *Cursor) accept(rec ttyrec.Record) Step {
	step := Step{Record: rec, Fresh: c.fresh}
	if c.started {
		step.Delta = ttyrec.Delta(c.prev, rec.Time)
	}
	c.prev = rec.Time
	c.started = true
	c.fresh = false
	c.elapsed = c.elapsed.Add(step.Delta)
	c.track(rec.Offset)
	return step
}

// track moves the current landmark forward to the one covering offset.
func (c *Cursor) track(offset int64) {
	for {
		next, ok := c.ix.NextLandmark(c.lm)
		if !ok {
			return
		}
		lm := c.ix.Landmarks[next]
		if lm.Segment != c.seg || lm.RecordOffset > offset {
			return
		}
		c.lm = next
	}
}

// position moves the cursor to a landmark boundary. The next record read is
// fresh and carries no delta.
func (c *Cursor) position(pos index.Position) error {
	if err := c.openSegment(pos.Segment); err != nil {
		return err
	}
	if err := c.rewind(pos.Offset); err != nil {
		return err
	}
	c.lm = pos.Landmark
	c.elapsed = pos.Elapsed
	c.started = false
	c.fresh = true
	return nil
}

func (c *Cursor) openSegment(seg int) error {
	if c.file != nil && c.seg == seg {
		return nil
	}
	s, ok := c.ix.Segment(seg)
	if !ok {
		return fmt.Errorf("segment %d: %w", seg, ErrNoTarget)
	}
	if c.file != nil {
		if err := c.file.Close(); err != nil {
			c.logger.Warn("segment close failed", "segment", c.seg, "err", err)
		}
		c.file = nil
	}
	f, err := c.open(s.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.Path, err)
	}
	c.file = f
	c.seg = seg
	if c.rd == nil {
		c.rd = ttyrec.NewReaderSize(f, c.max)
	} else {
		c.rd.Reset(f, 0)
	}
	return nil
}

func (c *Cursor) rewind(offset int64) error {
	if _, err := c.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s to %d: %w", c.ix.Segments[c.seg].Path, offset, err)
	}
	c.rd.Reset(c.file, offset)
	return nil
}
