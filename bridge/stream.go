package bridge

import (
	"errors"
	"io"

	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/domain/ports"
)

// ErrInvalidUnreadByte is returned by UnreadByte when there is no byte to
// push back or the lookahead is already occupied.
var ErrInvalidUnreadByte = errors.New("bridge: invalid use of UnreadByte")

// noByte marks an empty lookahead. Bytes are held widened to int so 0xFF is
// never mistaken for it.
const noByte = -1

// Stats counts gateway traffic issued by a Stream.
type Stats struct {
	ReadCalls    int
	WriteCalls   int
	BytesRead    int
	BytesWritten int
}

// Stream is a byte stream over one handle with a single byte of lookahead
// for reads and no write buffering. A Stream never reads more than its
// caller asked for. Once an operation fails, every later call returns the
// same error without touching the gateway.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	iid  entities.Handle
	caps entities.Capability
	gw   *countingGateway
	src  *Source
	sink *Sink

	lookahead int // noByte or a byte value
	last      int // last byte handed out by a read, for UnreadByte
	err       error

	maxZeroProgress int
}

var (
	_ io.ByteScanner = (*Stream)(nil)
	_ io.ReadWriter  = (*Stream)(nil)
	_ io.ByteWriter  = (*Stream)(nil)
)

// NewReader probes iid for read capability and returns a read-only Stream.
func NewReader(gw ports.Gateway, iid entities.Handle, opts ...Option) (*Stream, error) {
	return open(gw, iid, entities.Readable, opts)
}

// NewWriter probes iid for write capability and returns a write-only Stream.
func NewWriter(gw ports.Gateway, iid entities.Handle, opts ...Option) (*Stream, error) {
	return open(gw, iid, entities.Writable, opts)
}

// NewReadWriter probes iid for both capabilities.
func NewReadWriter(gw ports.Gateway, iid entities.Handle, opts ...Option) (*Stream, error) {
	return open(gw, iid, entities.ReadWrite, opts)
}

func open(gw ports.Gateway, iid entities.Handle, caps entities.Capability, opts []Option) (*Stream, error) {
	ok, err := gw.Probe(iid, caps)
	if err != nil || !ok {
		return nil, &domainerrors.CapabilityError{Err: err, Handle: iid, Required: caps}
	}

	o := buildOptions(opts)
	cg := &countingGateway{Gateway: gw}
	return &Stream{
		iid:             iid,
		caps:            caps,
		gw:              cg,
		src:             NewSource(cg, iid, opts...),
		sink:            NewSink(cg, iid, opts...),
		lookahead:       noByte,
		last:            noByte,
		maxZeroProgress: o.maxZeroProgress,
	}, nil
}

// Handle returns the handle the stream is bound to.
func (s *Stream) Handle() entities.Handle {
	return s.iid
}

// Stats returns the gateway traffic issued so far. The construction probe
// is not counted.
func (s *Stream) Stats() Stats {
	return s.gw.stats
}

// Err returns the error that poisoned the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Peek returns the next byte without consuming it. At end of stream it
// returns io.EOF and leaves the lookahead empty.
func (s *Stream) Peek() (byte, error) {
	if err := s.readable(); err != nil {
		return 0, err
	}
	if s.lookahead == noByte {
		c, err := s.fetch()
		if err != nil {
			return 0, err
		}
		s.lookahead = c
	}
	return byte(s.lookahead), nil
}

// ReadByte implements io.ByteReader. A buffered lookahead byte is consumed
// without a gateway call.
func (s *Stream) ReadByte() (byte, error) {
	if err := s.readable(); err != nil {
		return 0, err
	}
	c := s.lookahead
	if c == noByte {
		var err error
		if c, err = s.fetch(); err != nil {
			return 0, err
		}
	}
	s.lookahead = noByte
	s.last = c
	return byte(c), nil
}

// UnreadByte implements io.ByteScanner. It pushes back the last byte
// returned by ReadByte or Read.
func (s *Stream) UnreadByte() error {
	if s.err != nil {
		return s.err
	}
	if s.last == noByte || s.lookahead != noByte {
		return ErrInvalidUnreadByte
	}
	s.lookahead, s.last = s.last, noByte
	return nil
}

// Read implements io.Reader. It drains the lookahead and then loops gateway
// reads until p is full or the stream ends. io.EOF is returned only when no
// byte was produced, so end of stream is reported on the call after the
// last real byte.
func (s *Stream) Read(p []byte) (int, error) {
	if err := s.readable(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	if s.lookahead != noByte {
		p[0] = byte(s.lookahead)
		s.lookahead = noByte
		n = 1
	}

	eof, idle := false, 0
	for n < len(p) && !eof {
		m, err := s.src.Read(p[n:])
		switch {
		case err == io.EOF:
			eof = true
		case err != nil:
			return n, s.fail(err)
		case m == 0:
			idle++
			if idle > s.maxZeroProgress {
				return n, s.fail(&domainerrors.ProtocolError{
					Err:       io.ErrNoProgress,
					Operation: "read",
					Requested: len(p) - n,
				})
			}
		default:
			idle = 0
		}
		n += m
	}

	if n == 0 {
		s.last = noByte
		return 0, io.EOF
	}
	s.last = int(p[n-1])
	return n, nil
}

// Write implements io.Writer. The data is forwarded immediately.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}
	n, err := s.sink.Write(p)
	if err != nil {
		return n, s.fail(err)
	}
	return n, nil
}

// WriteByte implements io.ByteWriter.
func (s *Stream) WriteByte(c byte) error {
	_, err := s.Write([]byte{c})
	return err
}

// fetch reads exactly one byte through the gateway, widened to int.
func (s *Stream) fetch() (int, error) {
	var b [1]byte
	for idle := 0; ; idle++ {
		n, err := s.src.Read(b[:])
		if err == io.EOF {
			return noByte, io.EOF
		}
		if err != nil {
			return noByte, s.fail(err)
		}
		if n == 1 {
			return int(b[0]), nil
		}
		if idle >= s.maxZeroProgress {
			return noByte, s.fail(&domainerrors.ProtocolError{
				Err:       io.ErrNoProgress,
				Operation: "read",
				Requested: 1,
			})
		}
	}
}

func (s *Stream) readable() error {
	if s.err != nil {
		return s.err
	}
	if !s.caps.Has(entities.Readable) {
		return &domainerrors.CapabilityError{Handle: s.iid, Required: entities.Readable}
	}
	return nil
}

func (s *Stream) writable() error {
	if s.err != nil {
		return s.err
	}
	if !s.caps.Has(entities.Writable) {
		return &domainerrors.CapabilityError{Handle: s.iid, Required: entities.Writable}
	}
	return nil
}

func (s *Stream) fail(err error) error {
	s.err = err
	s.lookahead, s.last = noByte, noByte
	return err
}

// countingGateway records traffic for Stats.
type countingGateway struct {
	ports.Gateway
	stats Stats
}

func (g *countingGateway) Read(iid entities.Handle, p []byte) (int, error) {
	n, err := g.Gateway.Read(iid, p)
	g.stats.ReadCalls++
	if err == nil && n > 0 {
		g.stats.BytesRead += n
	}
	return n, err
}

func (g *countingGateway) Write(iid entities.Handle, p []byte) (int, error) {
	n, err := g.Gateway.Write(iid, p)
	g.stats.WriteCalls++
	if err == nil && n > 0 {
		g.stats.BytesWritten += n
	}
	return n, err
}
