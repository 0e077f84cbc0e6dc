package ttyrec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the encoded size of a record header.
	HeaderSize = 12
	// DefaultMaxPayload is the read-buffer capacity used when none is configured.
	DefaultMaxPayload = 8192
)

var (
	// ErrRecordTooLarge reports a declared payload length the reader cannot hold.
	// The stream cannot be resynchronized after this error.
	ErrRecordTooLarge = errors.New("ttyrec: record payload exceeds buffer capacity")
	// ErrTruncated reports a header whose payload ends early.
	ErrTruncated = fmt.Errorf("ttyrec: truncated record payload: %w", io.ErrUnexpectedEOF)
)

// Record is one timestamped chunk of terminal output.
type Record struct {
	Time    Timeval
	Payload []byte
	// Offset is the byte offset of the record header within its stream.
	Offset int64
}

// Len returns the declared payload length.
func (r Record) Len() int {
	return len(r.Payload)
}

// End returns the offset of the byte following the record.
func (r Record) End() int64 {
	return r.Offset + HeaderSize + int64(len(r.Payload))
}

// Reader frames a ttyrec byte stream into records.
type Reader struct {
	br  *bufio.Reader
	off int64
	max int
	hdr [HeaderSize]byte
}

// NewReader returns a Reader with the default payload capacity.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, DefaultMaxPayload)
}

// NewReaderSize returns a Reader that rejects payloads above maxPayload bytes.
func NewReaderSize(r io.Reader, maxPayload int) *Reader {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Reader{br: bufio.NewReader(r), max: maxPayload}
}

// Reset discards buffered data and continues reading from src, which must be
// positioned at off.
func (r *Reader) Reset(src io.Reader, off int64) {
	r.br.Reset(src)
	r.off = off
}

// Offset returns the stream offset of the next unread byte.
func (r *Reader) Offset() int64 {
	return r.off
}

// MaxPayload returns the payload capacity.
func (r *Reader) MaxPayload() int {
	return r.max
}

// Next reads one record. It returns io.EOF when a complete header cannot be
// read, ErrTruncated when the payload is short, and ErrRecordTooLarge when the
// declared length exceeds the capacity.
func (r *Reader) Next() (Record, error) {
	start := r.off
	n, err := io.ReadFull(r.br, r.hdr[:])
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	sec := int32(binary.LittleEndian.Uint32(r.hdr[0:4]))
	usec := int32(binary.LittleEndian.Uint32(r.hdr[4:8]))
	length := int32(binary.LittleEndian.Uint32(r.hdr[8:12]))
	if length < 0 || int(length) > r.max {
		return Record{}, fmt.Errorf("%w: %d bytes at offset %d (capacity %d)", ErrRecordTooLarge, length, start, r.max)
	}
	payload := make([]byte, length)
	n, err = io.ReadFull(r.br, payload)
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, fmt.Errorf("%w: want %d bytes at offset %d, got %d", ErrTruncated, length, start, n)
		}
		return Record{}, err
	}
	return Record{
		Time:    Normalize(int64(sec), int64(usec)),
		Payload: payload,
		Offset:  start,
	}, nil
}
