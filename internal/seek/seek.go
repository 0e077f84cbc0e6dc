package seek

import (
	"errors"
	"fmt"
	"io"

	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// Result describes where a seek left the cursor.
type Result struct {
	index.Position
	// Elapsed is the global elapsed time at the last emitted record.
	Elapsed ttyrec.Timeval
	Emitted int
	// EOF is set when refinement ran off the end of the recording.
	EOF bool
}

// Seek moves to target. Records from the containing landmark up to target are
// passed to emit so the screen can be rebuilt; the cursor stops at the header
// of the first record that would overshoot target.
func (c *Cursor) Seek(target ttyrec.Timeval, emit func(Step) error) (Result, error) {
	pos := c.ix.Locate(target)
	if err := c.position(pos); err != nil {
		return Result{}, err
	}
	res := Result{Position: pos, Elapsed: pos.Elapsed}
	for {
		off := c.rd.Offset()
		rec, err := c.rd.Next()
		if err != nil {
			if errors.Is(err, ttyrec.ErrTruncated) {
				if rerr := c.rewind(off); rerr != nil {
					return res, rerr
				}
			} else if !errors.Is(err, io.EOF) {
				return res, fmt.Errorf("refine %s: %w", c.ix.Segments[c.seg].Path, err)
			}
			res.EOF = c.ix.IsLastSegment(c.seg)
			break
		}
		at := c.elapsed
		if c.started {
			at = at.Add(ttyrec.Delta(c.prev, rec.Time))
		}
		if pos.Target.Less(at) {
			if err := c.rewind(off); err != nil {
				return res, err
			}
			break
		}
		step := c.accept(rec)
		res.Emitted++
		res.Elapsed = c.elapsed
		if emit != nil {
			if err := emit(step); err != nil {
				return res, err
			}
		}
	}
	c.logger.Debug("seek", "target", pos.Target.String(), "segment", pos.Segment, "landmark", pos.Landmark, "elapsed", res.Elapsed.String(), "emitted", res.Emitted, "eof", res.EOF)
	return res, nil
}

// JumpTo positions the cursor at the start of landmark lm.
func (c *Cursor) JumpTo(lm int) (index.Position, error) {
	pos, ok := c.ix.LandmarkPosition(lm)
	if !ok {
		return index.Position{}, ErrNoTarget
	}
	if err := c.position(pos); err != nil {
		return index.Position{}, err
	}
	c.logger.Debug("jump", "segment", pos.Segment, "landmark", lm, "elapsed", pos.Elapsed.String())
	return pos, nil
}

// Start rewinds to the beginning of the recording.
func (c *Cursor) Start() (index.Position, error) {
	return c.JumpTo(0)
}

// NextSegment jumps to the start of the following segment.
func (c *Cursor) NextSegment() (index.Position, error) {
	seg := c.current()
	if c.ix.IsLastSegment(seg) {
		return index.Position{}, ErrNoTarget
	}
	return c.jumpSegment(seg + 1)
}

// PrevSegment restarts the current segment, or goes to the previous one when
// playback is less than latency into the current segment.
func (c *Cursor) PrevSegment(latency ttyrec.Timeval) (index.Position, error) {
	seg := c.current()
	s := c.ix.Segments[seg]
	if !c.elapsed.Sub(s.Start).Less(latency) {
		return c.jumpSegment(seg)
	}
	if c.ix.IsFirstSegment(seg) {
		return index.Position{}, ErrNoTarget
	}
	return c.jumpSegment(seg - 1)
}

// NextLandmark jumps to the landmark after the current one.
func (c *Cursor) NextLandmark() (index.Position, error) {
	next, ok := c.ix.NextLandmark(c.lm)
	if !ok {
		return index.Position{}, ErrNoTarget
	}
	return c.JumpTo(next)
}

// PrevLandmark jumps to the landmark before the current one.
func (c *Cursor) PrevLandmark() (index.Position, error) {
	prev, ok := c.ix.PrevLandmark(c.lm)
	if !ok {
		return index.Position{}, ErrNoTarget
	}
	return c.JumpTo(prev)
}

func (c *Cursor) current() int {
	if c.seg < 0 {
		return 0
	}
	return c.seg
}

func (c *Cursor) jumpSegment(seg int) (index.Position, error) {
	s, ok := c.ix.Segment(seg)
	if !ok {
		return index.Position{}, ErrNoTarget
	}
	return c.JumpTo(s.FirstLandmark)
}
