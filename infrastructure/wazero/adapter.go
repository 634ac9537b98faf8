package wazero

import (
	"context"
	"fmt"
	"math"

	"github.com/reglet-dev/triebridge/bridge"
	"github.com/reglet-dev/triebridge/domain/entities"
	"github.com/reglet-dev/triebridge/hostfuncs"
	"github.com/reglet-dev/triebridge/internal/abi"
	"github.com/reglet-dev/triebridge/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// DefaultModuleName is the name guests import the gateway from.
const DefaultModuleName = "trie_host"

// Exported function names.
const (
	FuncCheck = "iop_check"
	FuncRead  = "iop_read"
	FuncWrite = "iop_write"
)

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// ModuleName is the host module name (default: "trie_host").
	ModuleName string

	// MaxTransfer limits the guest buffer accepted by one read or write.
	// Default is bridge.DefaultMaxTransfer.
	MaxTransfer uint32

	// Logger receives failures that cannot be reported to the guest.
	Logger *zap.Logger
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "trie_host").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxTransfer sets the largest guest buffer accepted by one call.
func WithMaxTransfer(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxTransfer = size
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = l
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:  DefaultModuleName,
		MaxTransfer: bridge.DefaultMaxTransfer,
	}
}

// RegisterGateway exports io to wasm guests as a host module with three
// functions:
//
//	iop_check(iid i32, caps i32, err_out i32) i32
//	iop_read(iid i32, buf i32, len i32, err_out i32) i64
//	iop_write(iid i32, buf i32, len i32, err_out i32) i64
//
// err_out addresses an i64 in guest memory. It receives 0 on success and
// otherwise the packed ptr+len of an error message allocated through the
// guest's "allocate" export. The guest owns that allocation.
func RegisterGateway(ctx context.Context, runtime wazero.Runtime, io *hostfuncs.IOHost, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	g := &guestGateway{io: io, cfg: cfg}
	i32, i64 := api.ValueTypeI32, api.ValueTypeI64

	_, err := runtime.NewHostModuleBuilder(cfg.ModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(g.check), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("iid", "caps", "err_out").
		Export(FuncCheck).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(g.read), []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}).
		WithParameterNames("iid", "buf", "len", "err_out").
		Export(FuncRead).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(g.write), []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}).
		WithParameterNames("iid", "buf", "len", "err_out").
		Export(FuncWrite).
		Instantiate(ctx)
	return err
}

type guestGateway struct {
	io  *hostfuncs.IOHost
	cfg AdapterConfig
}

func (g *guestGateway) check(ctx context.Context, mod api.Module, stack []uint64) {
	iid := entities.Handle(api.DecodeI32(stack[0]))
	caps := entities.Capability(api.DecodeU32(stack[1]))
	errOut := api.DecodeU32(stack[2])

	ok, errPtr := g.io.CheckContext(WithGuestName(ctx, GuestName(ctx, mod)), iid, caps)
	g.reportError(ctx, mod, errOut, errPtr, FuncCheck)
	if ok {
		stack[0] = 1
	} else {
		stack[0] = 0
	}
}

func (g *guestGateway) read(ctx context.Context, mod api.Module, stack []uint64) {
	g.transfer(ctx, mod, stack, FuncRead, g.io.ReadContext)
}

func (g *guestGateway) write(ctx context.Context, mod api.Module, stack []uint64) {
	g.transfer(ctx, mod, stack, FuncWrite, g.io.WriteContext)
}

type transferFunc func(ctx context.Context, iid entities.Handle, p []byte) (int64, abi.Ptr)

func (g *guestGateway) transfer(ctx context.Context, mod api.Module, stack []uint64, name string, call transferFunc) {
	iid := entities.Handle(api.DecodeI32(stack[0]))
	ptr, length := api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
	errOut := api.DecodeU32(stack[3])
	ctx = WithGuestName(ctx, GuestName(ctx, mod))

	if length > g.cfg.MaxTransfer {
		g.reportMessage(ctx, mod, errOut, name,
			fmt.Sprintf("%s: buffer of %d bytes exceeds maximum %d bytes", name, length, g.cfg.MaxTransfer))
		stack[0] = 0
		return
	}

	var buf []byte
	if length > 0 {
		mem := mod.Memory()
		if mem == nil {
			g.reportMessage(ctx, mod, errOut, name, name+": guest has no memory")
			stack[0] = 0
			return
		}
		var ok bool
		if buf, ok = mem.Read(ptr, length); !ok {
			g.reportMessage(ctx, mod, errOut, name,
				fmt.Sprintf("%s: buffer %#x+%d is out of range", name, ptr, length))
			stack[0] = 0
			return
		}
	}

	n, errPtr := call(ctx, iid, buf)
	g.reportError(ctx, mod, errOut, errPtr, name)
	stack[0] = api.EncodeI64(n)
}

// reportError moves the message at errPtr from the host heap into guest
// memory. The host allocation is always released.
func (g *guestGateway) reportError(ctx context.Context, mod api.Module, errOut uint32, errPtr abi.Ptr, name string) {
	err := g.io.Heap().TakeError(errPtr)
	if err == nil {
		g.setErrOut(ctx, mod, errOut, 0, name)
		return
	}
	g.reportMessage(ctx, mod, errOut, name, err.Error())
}

// reportMessage delivers msg through the guest's error slot. A message that
// cannot be delivered traps the guest call: the guest would otherwise read
// a stale slot and take the failed call for a success.
func (g *guestGateway) reportMessage(ctx context.Context, mod api.Module, errOut uint32, name, msg string) {
	if errOut == 0 {
		return
	}
	packed, err := writeGuestBytes(ctx, mod, []byte(msg))
	if err != nil {
		g.cfg.Logger.Error("cannot report gateway error to guest",
			zap.String("guest", GuestName(ctx, mod)),
			zap.String("function", name),
			zap.String("message", msg),
			zap.Error(err),
		)
		panic(fmt.Errorf("%s: cannot report error to guest: %w", name, err))
	}
	g.setErrOut(ctx, mod, errOut, packed, name)
}

func (g *guestGateway) setErrOut(ctx context.Context, mod api.Module, errOut uint32, packed uint64, name string) {
	if errOut == 0 {
		return
	}
	mem := mod.Memory()
	if mem == nil || !mem.WriteUint64Le(errOut, packed) {
		g.cfg.Logger.Error("cannot write error slot",
			zap.String("guest", GuestName(ctx, mod)),
			zap.String("function", name),
			zap.Uint32("err_out", errOut),
		)
		panic(fmt.Errorf("%s: error slot %#x is out of range", name, errOut))
	}
}

// writeGuestBytes allocates len(data) bytes through the guest's "allocate"
// export, copies data there and returns the packed ptr+len.
func writeGuestBytes(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return 0, fmt.Errorf("message of %d bytes does not fit guest memory", len(data))
	}
	length := uint32(len(data))

	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		return 0, fmt.Errorf("guest module missing 'allocate' export")
	}

	results, err := allocateFn.Call(ctx, uint64(length))
	if err != nil {
		return 0, fmt.Errorf("failed to call guest allocate: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("guest allocate returned no results")
	}
	ptr := api.DecodeU32(results[0])
	if ptr == 0 && len(data) > 0 {
		return 0, fmt.Errorf("guest allocate returned null for %d bytes", len(data))
	}

	mem := mod.Memory()
	if mem == nil || !mem.Write(ptr, data) {
		return 0, fmt.Errorf("failed to write %d bytes to guest memory at %#x", len(data), ptr)
	}
	return abi.PackPtrLen(ptr, length), nil
}
