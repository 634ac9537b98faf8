package bridge

import (
	"io"

	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/domain/ports"
)

const (
	// DefaultMaxTransfer bounds the bytes requested by a single gateway call.
	DefaultMaxTransfer = 1 << 20

	// DefaultMaxZeroProgress is the number of consecutive zero-byte transfers
	// tolerated before a loop gives up.
	DefaultMaxZeroProgress = 100
)

// Source is an io.Reader issuing exactly one gateway read per Read call.
// It does not check capabilities; use NewReader for that.
type Source struct {
	gw          ports.Gateway
	iid         entities.Handle
	maxTransfer int
}

// NewSource creates a Source over iid.
func NewSource(gw ports.Gateway, iid entities.Handle, opts ...Option) *Source {
	o := buildOptions(opts)
	return &Source{gw: gw, iid: iid, maxTransfer: o.maxTransfer}
}

// Read implements io.Reader. Short reads are passed through; the gateway's
// end-of-stream sentinel becomes io.EOF.
func (s *Source) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) > s.maxTransfer {
		p = p[:s.maxTransfer]
	}

	n, err := s.gw.Read(s.iid, p)
	if err != nil {
		return 0, err
	}
	switch {
	case n == ports.EOF:
		return 0, io.EOF
	case n > len(p):
		return 0, &domainerrors.ProtocolError{
			Err:       domainerrors.ErrTooManyBytes,
			Operation: "read",
			Requested: len(p),
			Returned:  int64(n),
		}
	case n < 0:
		return 0, &domainerrors.ProtocolError{
			Err:       ErrInvalidCount,
			Operation: "read",
			Requested: len(p),
			Returned:  int64(n),
		}
	}
	return n, nil
}

// Sink is an io.Writer that forwards every write to the gateway, looping
// until the whole buffer is transferred.
type Sink struct {
	gw              ports.Gateway
	iid             entities.Handle
	maxTransfer     int
	maxZeroProgress int
}

// NewSink creates a Sink over iid.
func NewSink(gw ports.Gateway, iid entities.Handle, opts ...Option) *Sink {
	o := buildOptions(opts)
	return &Sink{gw: gw, iid: iid, maxTransfer: o.maxTransfer, maxZeroProgress: o.maxZeroProgress}
}

// Write implements io.Writer. A destination that reports end-of-stream
// before p is fully written fails with a ProtocolError wrapping
// ErrWriteClosed.
func (s *Sink) Write(p []byte) (int, error) {
	total, idle := 0, 0
	for total < len(p) {
		chunk := p[total:min(len(p), total+s.maxTransfer)]

		n, err := s.gw.Write(s.iid, chunk)
		if err != nil {
			return total, err
		}
		switch {
		case n == ports.EOF:
			return total, &domainerrors.ProtocolError{
				Err:       domainerrors.ErrWriteClosed,
				Operation: "write",
				Requested: len(chunk),
				Returned:  int64(n),
			}
		case n > len(chunk):
			return total, &domainerrors.ProtocolError{
				Err:       domainerrors.ErrTooManyBytes,
				Operation: "write",
				Requested: len(chunk),
				Returned:  int64(n),
			}
		case n < 0:
			return total, &domainerrors.ProtocolError{
				Err:       ErrInvalidCount,
				Operation: "write",
				Requested: len(chunk),
				Returned:  int64(n),
			}
		case n == 0:
			idle++
			if idle > s.maxZeroProgress {
				return total, &domainerrors.ProtocolError{
					Err:       io.ErrShortWrite,
					Operation: "write",
					Requested: len(chunk),
				}
			}
		default:
			idle = 0
		}
		total += n
	}
	return total, nil
}
