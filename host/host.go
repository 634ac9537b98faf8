package host

import (
	"context"
	"fmt"
	"io"

	"github.com/reglet-dev/triebridge/codec"
	"github.com/reglet-dev/triebridge/config"
	"github.com/reglet-dev/triebridge/domain/entities"
	"github.com/reglet-dev/triebridge/ffi"
	"github.com/reglet-dev/triebridge/hostfuncs"
	"github.com/reglet-dev/triebridge/internal/abi"
	"github.com/reglet-dev/triebridge/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Host runs bulk operations against streams it registers in its own handle
// table. It is safe for concurrent use.
type Host struct {
	heap    *abi.Heap
	table   *hostfuncs.IOTable
	io      *hostfuncs.IOHost
	surface *ffi.Surface
	logger  *zap.Logger
}

// New creates a Host.
func New(opts ...Option) *Host {
	var cfg hostConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}
	if cfg.codec == nil {
		cfg.codec = codec.New(codec.WithLogger(cfg.logger))
	}

	heap := abi.NewHeap(abi.WithMaxTotalAllocations(cfg.maxHeap))
	table := hostfuncs.NewIOTable()

	ioOpts := []hostfuncs.IOHostOption{
		hostfuncs.WithMiddleware(hostfuncs.LoggingMiddleware(cfg.logger)),
		hostfuncs.WithMiddleware(cfg.middleware...),
	}
	if cfg.faults != nil {
		ioOpts = append(ioOpts, hostfuncs.WithFaultInjector(cfg.faults))
	}

	return &Host{
		heap:    heap,
		table:   table,
		io:      hostfuncs.NewIOHost(table, heap, ioOpts...),
		surface: ffi.New(cfg.codec),
		logger:  cfg.logger,
	}
}

// NewFromConfig validates cfg and creates a Host from it. Extra options are
// applied after the configuration.
func NewFromConfig(cfg config.Config, opts ...Option) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logger *zap.Logger
	if cfg.LogLevel != "" {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		if logger, err = log.New(log.WithLevel(level)); err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	} else {
		logger = log.Default()
	}

	codecOpts, err := codec.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	codecOpts = append(codecOpts, codec.WithLogger(logger))

	base := []Option{
		WithLogger(logger),
		WithMaxHeap(cfg.MaxHeap),
		WithCodec(codec.New(codecOpts...)),
	}
	return New(append(base, opts...)...), nil
}

// IO returns the gateway over the host's handle table.
func (h *Host) IO() *hostfuncs.IOHost {
	return h.io
}

// Heap returns the host heap.
func (h *Host) Heap() *abi.Heap {
	return h.heap
}

// Table returns the host handle table.
func (h *Host) Table() *hostfuncs.IOTable {
	return h.table
}

// ReadAll decodes a serialized trie from r and returns its keys.
func (h *Host) ReadAll(ctx context.Context, r io.Reader) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iid := h.table.Put(r)
	defer h.release(iid)

	var (
		list   abi.Ptr
		count  int
		errPtr abi.Ptr
	)
	h.surface.DecodeAll(h.heap, boundGateway{io: h.io, ctx: ctx}, iid, &list, &count, &errPtr)
	if err := h.heap.TakeError(errPtr); err != nil {
		return nil, err
	}

	keys, err := ffi.CopyKeys(h.heap, list, count)
	err = multierr.Append(err, ffi.FreeKeys(h.heap, list, count))
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// WriteAll encodes keys as a trie and writes it to w.
func (h *Host) WriteAll(ctx context.Context, w io.Writer, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	iid := h.table.Put(w)
	defer h.release(iid)

	raw := make([][]byte, len(keys))
	for i, k := range keys {
		raw[i] = []byte(k)
	}

	var errPtr abi.Ptr
	h.surface.EncodeAll(h.heap, boundGateway{io: h.io, ctx: ctx}, iid, raw, &errPtr)
	return h.heap.TakeError(errPtr)
}

func (h *Host) release(iid entities.Handle) {
	if err := h.table.Del(iid); err != nil {
		h.logger.Error("release handle", zap.Int32("iid", int32(iid)), zap.Error(err))
	}
}

// boundGateway carries a caller context into every gateway call so
// middleware can see it.
type boundGateway struct {
	io  *hostfuncs.IOHost
	ctx context.Context
}

func (g boundGateway) Check(iid entities.Handle, caps entities.Capability) (bool, abi.Ptr) {
	return g.io.CheckContext(g.ctx, iid, caps)
}

func (g boundGateway) Read(iid entities.Handle, p []byte) (int64, abi.Ptr) {
	return g.io.ReadContext(g.ctx, iid, p)
}

func (g boundGateway) Write(iid entities.Handle, p []byte) (int64, abi.Ptr) {
	return g.io.WriteContext(g.ctx, iid, p)
}
