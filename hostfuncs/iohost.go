package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/reglet-dev/triebridge/domain/entities"
	"github.com/reglet-dev/triebridge/domain/ports"
	"github.com/reglet-dev/triebridge/internal/abi"
)

// Op identifies a gateway entry point.
type Op uint8

const (
	OpCheck Op = iota + 1
	OpRead
	OpWrite
)

// String returns the exported name of the entry point.
func (o Op) String() string {
	switch o {
	case OpCheck:
		return "iop_check"
	case OpRead:
		return "iop_read"
	case OpWrite:
		return "iop_write"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Call describes a single gateway invocation as it passes through the
// middleware chain.
type Call struct {
	Op     Op
	Handle entities.Handle
	Caps   entities.Capability // OpCheck only
	Buf    []byte              // OpRead and OpWrite only
	Seq    uint64              // 1-based call index on the owning IOHost
}

// CallHandler executes a gateway call. For OpCheck the result is 1 when the
// capabilities are present; for OpRead and OpWrite it is a byte count or
// abi.EOF.
type CallHandler func(ctx context.Context, c *Call) (int64, error)

// IOHostOption configures an IOHost.
type IOHostOption func(*ioHostConfig)

type ioHostConfig struct {
	middleware []Middleware
	faults     FaultInjector
}

// WithMiddleware adds middleware to the call chain.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) IOHostOption {
	return func(c *ioHostConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithFaultInjector installs a fault injection strategy. It runs innermost,
// after all other middleware, so injected faults look exactly like failures
// of the underlying stream.
func WithFaultInjector(f FaultInjector) IOHostOption {
	return func(c *ioHostConfig) {
		c.faults = f
	}
}

// IOHost serves the raw gateway entry points over an IOTable. Error messages
// are allocated on heap and handed to the caller, who must release each one
// exactly once (see abi.Heap.TakeError).
type IOHost struct {
	table   *IOTable
	heap    *abi.Heap
	handler CallHandler
	seq     atomic.Uint64
}

var _ ports.ForeignGateway = (*IOHost)(nil)

// NewIOHost creates an IOHost. Panics in readers and writers are always
// recovered and reported as errors.
func NewIOHost(table *IOTable, heap *abi.Heap, opts ...IOHostOption) *IOHost {
	cfg := ioHostConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &IOHost{table: table, heap: heap}

	chain := []Middleware{PanicRecoveryMiddleware()}
	chain = append(chain, cfg.middleware...)
	if cfg.faults != nil {
		chain = append(chain, FaultMiddleware(cfg.faults))
	}

	handler := CallHandler(h.dispatch)
	// Apply in reverse so the first middleware wraps outermost.
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	h.handler = handler
	return h
}

// Table returns the handle table served by h.
func (h *IOHost) Table() *IOTable {
	return h.table
}

// Heap returns the heap error messages are allocated on.
func (h *IOHost) Heap() *abi.Heap {
	return h.heap
}

// Calls returns the number of gateway calls served so far.
func (h *IOHost) Calls() uint64 {
	return h.seq.Load()
}

// Check implements ports.ForeignGateway.
func (h *IOHost) Check(iid entities.Handle, caps entities.Capability) (bool, abi.Ptr) {
	return h.CheckContext(context.Background(), iid, caps)
}

// Read implements ports.ForeignGateway.
func (h *IOHost) Read(iid entities.Handle, p []byte) (int64, abi.Ptr) {
	return h.ReadContext(context.Background(), iid, p)
}

// Write implements ports.ForeignGateway.
func (h *IOHost) Write(iid entities.Handle, p []byte) (int64, abi.Ptr) {
	return h.WriteContext(context.Background(), iid, p)
}

// CheckContext is Check with a caller-supplied context.
func (h *IOHost) CheckContext(ctx context.Context, iid entities.Handle, caps entities.Capability) (bool, abi.Ptr) {
	n, errPtr := h.invoke(ctx, &Call{Op: OpCheck, Handle: iid, Caps: caps})
	return errPtr == 0 && n == 1, errPtr
}

// ReadContext is Read with a caller-supplied context.
func (h *IOHost) ReadContext(ctx context.Context, iid entities.Handle, p []byte) (int64, abi.Ptr) {
	return h.invoke(ctx, &Call{Op: OpRead, Handle: iid, Buf: p})
}

// WriteContext is Write with a caller-supplied context.
func (h *IOHost) WriteContext(ctx context.Context, iid entities.Handle, p []byte) (int64, abi.Ptr) {
	return h.invoke(ctx, &Call{Op: OpWrite, Handle: iid, Buf: p})
}

func (h *IOHost) invoke(ctx context.Context, c *Call) (int64, abi.Ptr) {
	c.Seq = h.seq.Add(1)
	n, err := h.handler(ctx, c)
	if err != nil {
		return n, h.heap.NewError("%v", err)
	}
	return n, 0
}

func (h *IOHost) dispatch(_ context.Context, c *Call) (int64, error) {
	v, err := h.table.Get(c.Handle)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c.Op, err)
	}

	switch c.Op {
	case OpCheck:
		if v == nil {
			return 0, fmt.Errorf("%s: iid %d has been deleted", c.Op, c.Handle)
		}
		if err := CheckCapabilities(c.Handle, v, c.Caps); err != nil {
			return 0, err
		}
		return 1, nil

	case OpRead:
		switch r := v.(type) {
		case io.Reader:
			n, err := r.Read(c.Buf)
			return transferResult(c, n, err, "read", "from")
		case nil:
			return 0, fmt.Errorf("%s: iid %d has been deleted", c.Op, c.Handle)
		default:
			return 0, fmt.Errorf("%s: iid %d is a %T, not an io.Reader", c.Op, c.Handle, v)
		}

	case OpWrite:
		switch w := v.(type) {
		case io.Writer:
			n, err := w.Write(c.Buf)
			return transferResult(c, n, err, "write", "to")
		case nil:
			return 0, fmt.Errorf("%s: iid %d has been deleted", c.Op, c.Handle)
		default:
			return 0, fmt.Errorf("%s: iid %d is a %T, not an io.Writer", c.Op, c.Handle, v)
		}
	}
	return 0, fmt.Errorf("unknown gateway op %s", c.Op)
}

// transferResult maps an io.Reader/io.Writer outcome onto the gateway
// contract. io.EOF with no bytes becomes abi.EOF; bytes returned together
// with io.EOF are reported as a count and the EOF surfaces on the next call.
func transferResult(c *Call, n int, err error, action, prep string) (int64, error) {
	if n < 0 || n > len(c.Buf) {
		return 0, fmt.Errorf("%s: %s up to %d bytes %s iid %d: invalid count %d",
			c.Op, action, len(c.Buf), prep, c.Handle, n)
	}
	if errors.Is(err, io.EOF) {
		if n == 0 {
			return abi.EOF, nil
		}
		return int64(n), nil
	}
	if err != nil {
		return int64(n), fmt.Errorf("%s: %s up to %d bytes %s iid %d: %w",
			c.Op, action, len(c.Buf), prep, c.Handle, err)
	}
	return int64(n), nil
}
