package ttyrec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer encodes records in the ttyrec wire format.
type Writer struct {
	w   io.Writer
	hdr [HeaderSize]byte
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord writes a header for t and len(payload) followed by payload.
func (w *Writer) WriteRecord(t Timeval, payload []byte) error {
	if len(payload) > math.MaxInt32 {
		return fmt.Errorf("ttyrec: payload of %d bytes cannot be encoded", len(payload))
	}
	if t.Sec > math.MaxInt32 || t.Sec < math.MinInt32 {
		return fmt.Errorf("ttyrec: timestamp %s out of range", t)
	}
	binary.LittleEndian.PutUint32(w.hdr[0:4], uint32(int32(t.Sec)))
	binary.LittleEndian.PutUint32(w.hdr[4:8], uint32(int32(t.Usec)))
	binary.LittleEndian.PutUint32(w.hdr[8:12], uint32(int32(len(payload))))
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.w.Write(payload)
	return err
}

// Write writes rec, ignoring its offset.
func (w *Writer) Write(rec Record) error {
	return w.WriteRecord(rec.Time, rec.Payload)
}
