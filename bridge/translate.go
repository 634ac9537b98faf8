package bridge

import (
	"errors"

	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/domain/ports"
	"github.com/reglet-dev/triebridge/internal/abi"
)

// ErrInvalidCount is wrapped by a ProtocolError when a gateway call returns a
// negative count other than the end-of-stream sentinel.
var ErrInvalidCount = errors.New("invalid count")

// Translate returns the near-side view of raw. Every error slot returned by
// raw is released on heap exactly once, immediately after the call.
func Translate(raw ports.ForeignGateway, heap *abi.Heap) ports.Gateway {
	return &translated{raw: raw, heap: heap}
}

type translated struct {
	raw  ports.ForeignGateway
	heap *abi.Heap
}

func (g *translated) Probe(iid entities.Handle, caps entities.Capability) (bool, error) {
	ok, errPtr := g.raw.Check(iid, caps)
	if err := g.heap.TakeError(errPtr); err != nil {
		return false, &domainerrors.TransportError{Err: err, Operation: "probe", Handle: iid}
	}
	return ok, nil
}

func (g *translated) Read(iid entities.Handle, p []byte) (int, error) {
	n, errPtr := g.raw.Read(iid, p)
	return g.count("read", iid, len(p), abi.Result{N: n, Err: errPtr})
}

func (g *translated) Write(iid entities.Handle, p []byte) (int, error) {
	n, errPtr := g.raw.Write(iid, p)
	return g.count("write", iid, len(p), abi.Result{N: n, Err: errPtr})
}

func (g *translated) count(op string, iid entities.Handle, requested int, res abi.Result) (int, error) {
	n, err := res.Unwrap(g.heap)
	if err != nil {
		return 0, &domainerrors.TransportError{Err: err, Operation: op, Handle: iid}
	}
	if n == abi.EOF {
		return ports.EOF, nil
	}
	if n < 0 || n > int64(maxInt) {
		return 0, &domainerrors.ProtocolError{
			Err:       ErrInvalidCount,
			Operation: op,
			Requested: requested,
			Returned:  n,
		}
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)
