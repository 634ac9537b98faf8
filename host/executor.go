package host

import (
	"context"
	"fmt"

	gateway "github.com/reglet-dev/triebridge/infrastructure/wazero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Executor runs wasm guests that read and write host streams through the
// gateway host module.
type Executor struct {
	runtime wazero.Runtime
	host    *Host
	adapter []gateway.AdapterOption
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithHost sets the host whose handles guests may use.
func WithHost(h *Host) ExecutorOption {
	return func(e *Executor) {
		e.host = h
	}
}

// WithAdapterOptions passes options to the gateway host module.
func WithAdapterOptions(opts ...gateway.AdapterOption) ExecutorOption {
	return func(e *Executor) {
		e.adapter = append(e.adapter, opts...)
	}
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...ExecutorOption) (*Executor, error) {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.host == nil {
		e.host = New()
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	adapter := append([]gateway.AdapterOption{gateway.WithLogger(e.host.logger)}, e.adapter...)
	if err := gateway.RegisterGateway(ctx, rt, e.host.IO(), adapter...); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Host returns the host whose handles guests use.
func (e *Executor) Host() *Host {
	return e.host
}

// Close releases resources held by the executor.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
