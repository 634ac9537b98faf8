package host

import (
	"context"
	"fmt"

	"github.com/reglet-dev/triebridge/domain/entities"
	gateway "github.com/reglet-dev/triebridge/infrastructure/wazero"
	"github.com/reglet-dev/triebridge/internal/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Instance is an instantiated wasm guest.
type Instance struct {
	module api.Module
	host   *Host
}

// Load instantiates a guest module under name. The guest may import the
// gateway functions; it must export "allocate" to receive error messages.
func (e *Executor) Load(ctx context.Context, name string, wasmBytes []byte) (*Instance, error) {
	cfg := wazero.NewModuleConfig().WithName(name)
	mod, err := e.runtime.InstantiateWithConfig(gateway.WithGuestName(ctx, name), wasmBytes, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return &Instance{module: mod, host: e.host}, nil
}

// Open registers a stream the guest can address by the returned handle.
func (i *Instance) Open(v any) entities.Handle {
	return i.host.Table().Put(v)
}

// Release deletes a handle opened with Open.
func (i *Instance) Release(iid entities.Handle) error {
	return i.host.Table().Del(iid)
}

// Call invokes an export of the guest.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	f := i.module.ExportedFunction(name)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", name)
	}
	return f.Call(gateway.WithGuestName(ctx, i.module.Name()), params...)
}

// Bytes copies a packed ptr+len region out of guest memory.
func (i *Instance) Bytes(packed uint64) ([]byte, error) {
	ptr := uint32(packed >> abi.PtrHighBits)
	length := uint32(packed)
	if length == 0 {
		return nil, nil
	}
	mem := i.module.Memory()
	if mem == nil {
		return nil, fmt.Errorf("guest %q has no memory", i.module.Name())
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("region %#x+%d is outside guest memory", ptr, length)
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// Close releases the guest module.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}
