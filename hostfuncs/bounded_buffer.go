package hostfuncs

import (
	"bytes"
	"io"
)

// BoundedBuffer is a bytes.Buffer wrapper that behaves like a destination
// with fixed capacity: once the limit is reached it reports io.EOF, which the
// gateway surfaces as the end-of-stream sentinel.
type BoundedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	Truncated bool
}

// NewBoundedBuffer creates a new BoundedBuffer with the specified limit.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{
		limit: limit,
	}
}

// Write implements io.Writer. A write that does not fit stores what it can
// and returns the short count with io.EOF.
func (b *BoundedBuffer) Write(p []byte) (n int, err error) {
	remaining := b.limit - b.buffer.Len()
	if len(p) <= remaining {
		return b.buffer.Write(p)
	}

	b.Truncated = true
	if remaining > 0 {
		n, _ = b.buffer.Write(p[:remaining])
	}
	return n, io.EOF
}

// Bytes returns the buffer contents as a byte slice.
func (b *BoundedBuffer) Bytes() []byte {
	return b.buffer.Bytes()
}

// Len returns the current length of the buffer.
func (b *BoundedBuffer) Len() int {
	return b.buffer.Len()
}

// Reset resets the buffer and clears the Truncated flag.
func (b *BoundedBuffer) Reset() {
	b.buffer.Reset()
	b.Truncated = false
}
