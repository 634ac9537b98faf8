package bridge

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/domain/ports"
	"github.com/reglet-dev/triebridge/hostfuncs"
	"github.com/reglet-dev/triebridge/internal/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway is a scripted ports.Gateway.
type fakeGateway struct {
	probe    func(caps entities.Capability) (bool, error)
	read     func(p []byte) (int, error)
	write    func(p []byte) (int, error)
	readLens []int
}

func (g *fakeGateway) Probe(_ entities.Handle, caps entities.Capability) (bool, error) {
	if g.probe == nil {
		return true, nil
	}
	return g.probe(caps)
}

func (g *fakeGateway) Read(_ entities.Handle, p []byte) (int, error) {
	g.readLens = append(g.readLens, len(p))
	return g.read(p)
}

func (g *fakeGateway) Write(_ entities.Handle, p []byte) (int, error) {
	return g.write(p)
}

type readOnly struct{ io.Reader }

type writeOnly struct{ io.Writer }

type oneByteWriter struct{ w io.Writer }

func (o oneByteWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.w.Write(p[:1])
}

// newHost returns a translated gateway over a fresh IOHost and its heap.
func newHost(t *testing.T, opts ...hostfuncs.IOHostOption) (*hostfuncs.IOHost, ports.Gateway, *abi.Heap) {
	t.Helper()
	heap := abi.NewHeap()
	h := hostfuncs.NewIOHost(hostfuncs.NewIOTable(), heap, opts...)
	return h, Translate(h, heap), heap
}

func assertNoLeaks(t *testing.T, heap *abi.Heap) {
	t.Helper()
	count, size := heap.Stats()
	assert.Zero(t, count, "leaked allocations")
	assert.Zero(t, size, "leaked bytes")
}

func TestTranslate_ReleasesErrorSlots(t *testing.T) {
	h, gw, heap := newHost(t)

	for i := 0; i < 1000; i++ {
		_, err := gw.Read(42, make([]byte, 1))
		require.Error(t, err)

		var te *domainerrors.TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, "read", te.Operation)
		assert.Equal(t, entities.Handle(42), te.Handle)

		var fe *domainerrors.ForeignError
		require.True(t, errors.As(err, &fe))
		assert.Contains(t, fe.Message, "invalid iid 42")
	}
	assertNoLeaks(t, heap)

	allocs, frees := heap.Counters()
	assert.Equal(t, allocs, frees, "every slot freed exactly once")
	assert.Equal(t, uint64(1000), h.Calls())
}

func TestTranslate_ProbeFailureIsError(t *testing.T) {
	h, gw, heap := newHost(t)
	iid := h.Table().Put(readOnly{strings.NewReader("")})

	ok, err := gw.Probe(iid, entities.Writable)
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not implement types [io.Writer]")
	assertNoLeaks(t, heap)
}

func TestTranslate_EOF(t *testing.T) {
	h, gw, _ := newHost(t)
	iid := h.Table().Put(strings.NewReader(""))

	n, err := gw.Read(iid, make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, ports.EOF, n)
}

func TestOpen_CapabilityGating(t *testing.T) {
	tests := []struct {
		name   string
		stream any
		open   func(ports.Gateway, entities.Handle, ...Option) (*Stream, error)
		want   entities.Capability
	}{
		{name: "reader on write-only handle", stream: writeOnly{io.Discard}, open: NewReader, want: entities.Readable},
		{name: "writer on read-only handle", stream: readOnly{strings.NewReader("x")}, open: NewWriter, want: entities.Writable},
		{name: "read-writer on read-only handle", stream: readOnly{strings.NewReader("x")}, open: NewReadWriter, want: entities.ReadWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, gw, heap := newHost(t)
			iid := h.Table().Put(tt.stream)

			s, err := tt.open(gw, iid)
			require.Error(t, err)
			assert.Nil(t, s)

			var ce *domainerrors.CapabilityError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.want, ce.Required)
			assert.Equal(t, iid, ce.Handle)

			assert.Equal(t, uint64(1), h.Calls(), "only the probe may reach the gateway")
			assertNoLeaks(t, heap)
		})
	}
}

func TestOpen_FalseProbeWithoutError(t *testing.T) {
	gw := &fakeGateway{probe: func(entities.Capability) (bool, error) { return false, nil }}
	_, err := NewReader(gw, 1)

	var ce *domainerrors.CapabilityError
	require.True(t, errors.As(err, &ce))
	assert.NoError(t, ce.Err)
}

func TestStream_HighByteIsNotEOF(t *testing.T) {
	h, gw, _ := newHost(t)
	iid := h.Table().Put(bytes.NewReader([]byte{0xFF}))

	s, err := NewReader(gw, iid)
	require.NoError(t, err)

	c, err := s.Peek()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), c)

	c, err = s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), c)
	assert.Equal(t, 1, s.Stats().ReadCalls, "peeked byte is consumed without a gateway call")

	// End of stream is reported on the call after the last real byte.
	_, err = s.ReadByte()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, s.Err(), "EOF does not poison the stream")
}

func TestStream_PeekAtEOFStaysEmpty(t *testing.T) {
	h, gw, _ := newHost(t)
	iid := h.Table().Put(strings.NewReader(""))

	s, err := NewReader(gw, iid)
	require.NoError(t, err)

	_, err = s.Peek()
	assert.Equal(t, io.EOF, err)
	_, err = s.Peek()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, s.Stats().ReadCalls, "an empty lookahead always goes to the gateway")
}

func TestStream_ShortReadsAreRetried(t *testing.T) {
	h, gw, _ := newHost(t)
	iid := h.Table().Put(iotest.OneByteReader(strings.NewReader("hello world")))

	s, err := NewReader(gw, iid)
	require.NoError(t, err)

	buf := make([]byte, 11)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", string(buf))
	assert.Equal(t, 11, s.Stats().ReadCalls)

	n, err = s.Read(buf)
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)
}

func TestStream_ReadStopsAtEOF(t *testing.T) {
	h, gw, _ := newHost(t)
	iid := h.Table().Put(strings.NewReader("abc"))

	s, err := NewReader(gw, iid)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))
}

func TestStream_UnreadAfterBulkRead(t *testing.T) {
	h, gw, _ := newHost(t)
	iid := h.Table().Put(strings.NewReader("abcd"))

	s, err := NewReader(gw, iid)
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)

	require.NoError(t, s.UnreadByte())
	assert.ErrorIs(t, s.UnreadByte(), ErrInvalidUnreadByte)

	rest, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "cd", string(rest))
}

func TestStream_UnreadWithoutRead(t *testing.T) {
	s, err := NewReader(&fakeGateway{}, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, s.UnreadByte(), ErrInvalidUnreadByte)
}

func TestStream_TooManyBytesPoisons(t *testing.T) {
	gw := &fakeGateway{read: func(p []byte) (int, error) { return len(p) + 1, nil }}
	s, err := NewReader(gw, 1)
	require.NoError(t, err)

	_, err = s.Read(make([]byte, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrTooManyBytes)

	var pe *domainerrors.ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Requested)
	assert.Equal(t, int64(5), pe.Returned)

	// Poisoned: no further gateway traffic.
	_, again := s.ReadByte()
	assert.Same(t, err, again)
	assert.Equal(t, 1, s.Stats().ReadCalls)
}

func TestStream_TransportErrorPoisons(t *testing.T) {
	h, gw, heap := newHost(t, hostfuncs.WithFaultInjector(hostfuncs.FailAt(3)))
	iid := h.Table().Put(iotest.OneByteReader(strings.NewReader("abcdef")))

	s, err := NewReader(gw, iid) // call 1
	require.NoError(t, err)

	buf := make([]byte, 6)
	n, err := s.Read(buf) // calls 2 and 3
	require.Error(t, err)
	assert.Equal(t, 1, n)
	// The fault crosses the heap as text only.
	assert.Contains(t, err.Error(), "iop_read: injected fault at call 3")

	_, err2 := s.Read(buf)
	assert.Same(t, err, err2)
	assertNoLeaks(t, heap)
}

func TestStream_ZeroProgressRead(t *testing.T) {
	gw := &fakeGateway{read: func(p []byte) (int, error) { return 0, nil }}
	s, err := NewReader(gw, 1, WithMaxZeroProgress(3))
	require.NoError(t, err)

	_, err = s.Read(make([]byte, 2))
	assert.ErrorIs(t, err, io.ErrNoProgress)
	assert.Len(t, gw.readLens, 4)
}

func TestStream_MaxTransfer(t *testing.T) {
	gw := &fakeGateway{read: func(p []byte) (int, error) {
		for i := range p {
			p[i] = 'z'
		}
		return len(p), nil
	}}
	s, err := NewReader(gw, 1, WithMaxTransfer(4))
	require.NoError(t, err)

	n, err := s.Read(make([]byte, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, []int{4, 4, 2}, gw.readLens)
}

func TestStream_WriteShortTransfers(t *testing.T) {
	h, gw, _ := newHost(t)
	var dst bytes.Buffer
	iid := h.Table().Put(oneByteWriter{&dst})

	s, err := NewWriter(gw, iid)
	require.NoError(t, err)

	n, err := s.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, s.WriteByte(0xFF))

	assert.Equal(t, append([]byte("hello"), 0xFF), dst.Bytes())
	assert.Equal(t, 6, s.Stats().WriteCalls)
	assert.Equal(t, 6, s.Stats().BytesWritten)
}

func TestStream_WriteClosedDestination(t *testing.T) {
	h, gw, heap := newHost(t)
	dst := hostfuncs.NewBoundedBuffer(3)
	iid := h.Table().Put(dst)

	s, err := NewWriter(gw, iid)
	require.NoError(t, err)

	n, err := s.Write([]byte("hello"))
	require.Error(t, err)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, domainerrors.ErrWriteClosed)
	assert.True(t, domainerrors.ToErrorDetail(err).IsEOF)

	assert.Same(t, err, s.WriteByte('x'))
	assertNoLeaks(t, heap)
}

func TestStream_WriteZeroProgress(t *testing.T) {
	gw := &fakeGateway{write: func(p []byte) (int, error) { return 0, nil }}
	s, err := NewWriter(gw, 1, WithMaxZeroProgress(0))
	require.NoError(t, err)

	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestStream_DirectionGating(t *testing.T) {
	h, gw, _ := newHost(t)
	iid := h.Table().Put(&bytes.Buffer{})

	r, err := NewReader(gw, iid)
	require.NoError(t, err)
	_, err = r.Write([]byte("x"))
	var ce *domainerrors.CapabilityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, entities.Writable, ce.Required)
	assert.Zero(t, r.Stats().WriteCalls)

	w, err := NewWriter(gw, iid)
	require.NoError(t, err)
	_, err = w.ReadByte()
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, entities.Readable, ce.Required)
}

func TestStream_ReadWriteRoundTrip(t *testing.T) {
	h, gw, heap := newHost(t)
	iid := h.Table().Put(&bytes.Buffer{})

	s, err := NewReadWriter(gw, iid, WithMaxTransfer(3))
	require.NoError(t, err)

	payload := []byte{0x00, 0xFF, 0x7F, 0x80, 0xFE, 0x01, 0x00}
	_, err = s.Write(payload)
	require.NoError(t, err)

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assertNoLeaks(t, heap)
}

func TestSource_EOFAndSentinel(t *testing.T) {
	gw := &fakeGateway{read: func(p []byte) (int, error) { return ports.EOF, nil }}
	n, err := NewSource(gw, 1).Read(make([]byte, 3))
	assert.Zero(t, n)
	assert.Equal(t, io.EOF, err)

	n, err = NewSource(gw, 1).Read(nil)
	assert.Zero(t, n)
	assert.NoError(t, err)
	assert.Len(t, gw.readLens, 1, "empty reads never reach the gateway")
}

func TestSource_InvalidCount(t *testing.T) {
	gw := &fakeGateway{read: func(p []byte) (int, error) { return -7, nil }}
	_, err := NewSource(gw, 1).Read(make([]byte, 3))
	assert.ErrorIs(t, err, ErrInvalidCount)
}
