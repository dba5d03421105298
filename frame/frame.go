// Package frame implements length-prefixed message framing over a stream
// transport.
//
// It solves TCP's sticky packet problem by prefixing every payload with a
// fixed 4-byte big-endian unsigned length. The receiver reads the prefix
// first to determine the payload length, then reads exactly that many bytes.
//
// Frame format:
//
//	0         4
//	┌─────────┬───────────────┐
//	│ length  │   payload ...  │
//	│ uint32  │  length bytes  │
//	└─────────┴───────────────┘
//
// The prefix is always network byte order (big-endian), matching what a
// peer produces with htonl.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// PrefixSize is the fixed size of the length prefix in bytes.
	PrefixSize = 4

	// DefaultMaxPayloadBytes is the sanity bound on a single advertised
	// payload length. The prefix can advertise up to 4 GiB; anything near
	// that is a corrupt stream or a hostile peer, so the transport rejects
	// absurd lengths before allocating.
	DefaultMaxPayloadBytes = 16 << 20 // 16 MiB
)

// ErrClosed is returned by any operation on a transport that has been
// closed, either explicitly via Close or implicitly by a prior I/O failure
// or peer disconnect.
var ErrClosed = errors.New("frame: transport closed")

// ErrPayloadTooLarge is returned when a length prefix advertises a payload
// larger than the transport's configured bound. The stream position is lost
// at that point, so the error is connection-fatal.
var ErrPayloadTooLarge = errors.New("frame: advertised payload exceeds limit")

// Transport wraps a raw bidirectional byte stream with framed reads and
// writes. It has no knowledge of payload content.
//
// A Transport is owned by a single goroutine for its entire lifetime; the
// methods are not safe for concurrent use, except Close, which may be called
// from anywhere and is idempotent.
type Transport struct {
	rwc        io.ReadWriteCloser
	maxPayload uint32

	mu     sync.Mutex
	closed bool
}

// New wraps rwc with the default payload bound.
func New(rwc io.ReadWriteCloser) *Transport {
	return NewWithLimit(rwc, DefaultMaxPayloadBytes)
}

// NewWithLimit wraps rwc and rejects frames whose prefix advertises more
// than maxPayload bytes. A maxPayload of 0 falls back to the default.
func NewWithLimit(rwc io.ReadWriteCloser, maxPayload uint32) *Transport {
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayloadBytes
	}
	return &Transport{rwc: rwc, maxPayload: maxPayload}
}

// ReadFrame reads one complete frame: the 4-byte length prefix, then exactly
// that many payload bytes. A zero-length frame yields an empty (non-nil)
// payload.
//
// Any failure permanently marks the transport closed. Peer disconnect
// (EOF before a full prefix, or mid-payload) is reported as ErrClosed.
func (t *Transport) ReadFrame() ([]byte, error) {
	if t.isClosed() {
		return nil, ErrClosed
	}

	var prefix [PrefixSize]byte
	if err := t.readFull(prefix[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(prefix[:])

	// Reject absurd lengths before allocating. The next bytes on the wire
	// are payload we will never consume, so this closes the connection.
	if length > t.maxPayload {
		t.markClosed()
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, length, t.maxPayload)
	}

	payload := make([]byte, length)
	if err := t.readFull(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes the length prefix followed by the payload, blocking
// until every byte is written. Any failure permanently marks the transport
// closed.
func (t *Transport) WriteFrame(payload []byte) error {
	if t.isClosed() {
		return ErrClosed
	}
	if uint64(len(payload)) > uint64(t.maxPayload) {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), t.maxPayload)
	}

	// Single buffer so prefix and payload reach the socket in one write,
	// avoiding a small-packet stall between the two.
	buf := make([]byte, PrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:PrefixSize], uint32(len(payload)))
	copy(buf[PrefixSize:], payload)

	return t.writeAll(buf)
}

// Close releases the underlying stream. It is idempotent; subsequent reads
// and writes fail with ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.rwc.Close()
}

// readFull blocks until len(buf) bytes are read. A clean EOF before the
// first byte, or a truncated stream mid-buffer, both mean the peer went
// away and map to ErrClosed.
func (t *Transport) readFull(buf []byte) error {
	_, err := io.ReadFull(t.rwc, buf)
	if err == nil {
		return nil
	}
	t.markClosed()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrClosed
	}
	return fmt.Errorf("frame: read: %w", err)
}

// writeAll loops until the whole buffer is written. The Go runtime restarts
// EINTR internally; the loop covers short writes, which net.Conn permits
// only alongside an error but io.Writer in general does not.
func (t *Transport) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := t.rwc.Write(buf)
		buf = buf[n:]
		if err != nil {
			t.markClosed()
			return fmt.Errorf("frame: write: %w", err)
		}
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// markClosed is the failure path: the stream is broken, so it is released
// immediately. A later explicit Close is then a no-op.
func (t *Transport) markClosed() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		t.rwc.Close()
	}
	t.mu.Unlock()
}
