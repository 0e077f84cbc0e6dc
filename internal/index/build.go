package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/logx"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// Options controls index construction.
type Options struct {
	// Marker is the byte sequence that opens a landmark. Defaults to DefaultMarker.
	Marker []byte
	// MaxPayload is the record capacity; larger records abort the build.
	MaxPayload int
	// Open opens a segment file. Defaults to os.Open.
	Open   func(path string) (io.ReadCloser, error)
	Logger pslog.Logger
}

func (o Options) marker() []byte {
	if len(o.Marker) == 0 {
		return DefaultMarker
	}
	return o.Marker
}

func (o Options) open(path string) (io.ReadCloser, error) {
	if o.Open != nil {
		return o.Open(path)
	}
	return os.Open(path)
}

// Build indexes paths in order, chaining them into one timeline.
func Build(ctx context.Context, paths []string, opts Options) (*Index, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	ix := &Index{
		Segments: make([]Segment, 0, len(paths)),
	}
	var elapsed ttyrec.Timeval
	for pos, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end, err := ix.addSegment(pos, path, elapsed, opts, logx.WithSegment(logger, pos, path))
		if err != nil {
			return nil, err
		}
		elapsed = end
	}
	logger.Debug("index built", "segments", len(ix.Segments), "landmarks", len(ix.Landmarks), "markers", ix.Markers(), "duration", ix.End().String())
	return ix, nil
}

// addSegment scans one file and returns the elapsed time at its last record.
func (ix *Index) addSegment(pos int, path string, start ttyrec.Timeval, opts Options, logger pslog.Logger) (ttyrec.Timeval, error) {
	f, err := opts.open(path)
	if err != nil {
		return ttyrec.Timeval{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	marker := opts.marker()
	r := ttyrec.NewReaderSize(f, opts.MaxPayload)
	seg := Segment{
		Path:          path,
		Pos:           pos,
		Start:         start,
		FirstLandmark: len(ix.Landmarks),
	}
	elapsed := start
	var prev ttyrec.Timeval
	open := -1
	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, ttyrec.ErrTruncated) {
				logger.Warn("index ignoring truncated record", "offset", r.Offset(), "err", err)
				break
			}
			return ttyrec.Timeval{}, fmt.Errorf("index %s: %w", path, err)
		}
		if seg.Records > 0 {
			elapsed = elapsed.Add(ttyrec.Delta(prev, rec.Time))
		}
		prev = rec.Time
		seg.Records++

		at := bytes.Index(rec.Payload, marker)
		switch {
		case at >= 0:
			if open >= 0 {
				ix.Landmarks[open].End = elapsed
			}
			ix.Landmarks = append(ix.Landmarks, Landmark{
				Segment:      pos,
				RecordOffset: rec.Offset,
				MarkerOffset: rec.Offset + ttyrec.HeaderSize + int64(at),
				Start:        elapsed,
			})
			open = len(ix.Landmarks) - 1
		case open < 0:
			ix.Landmarks = append(ix.Landmarks, Landmark{
				Segment:      pos,
				RecordOffset: rec.Offset,
				MarkerOffset: -1,
				Start:        elapsed,
				Synthetic:    true,
			})
			open = len(ix.Landmarks) - 1
		}
	}
	if open < 0 {
		ix.Landmarks = append(ix.Landmarks, Landmark{
			Segment:      pos,
			MarkerOffset: -1,
			Start:        elapsed,
			Synthetic:    true,
		})
		open = len(ix.Landmarks) - 1
	}
	ix.Landmarks[open].End = elapsed
	seg.End = elapsed
	seg.LastLandmark = open
	seg.Size = r.Offset()
	ix.Segments = append(ix.Segments, seg)
	logger.Trace("segment indexed", "records", seg.Records, "landmarks", seg.LastLandmark-seg.FirstLandmark+1, "end", elapsed.String())
	return elapsed, nil
}
