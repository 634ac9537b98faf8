// Package testutil provides common test utilities and assertions for gateway tests
package testutil

import (
	"errors"
	"testing"

	"github.com/reglet-dev/triebridge/bridge"
	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/domain/ports"
	"github.com/reglet-dev/triebridge/hostfuncs"
	"github.com/reglet-dev/triebridge/internal/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Env is a translated gateway over a fresh heap and handle table.
type Env struct {
	Host    *hostfuncs.IOHost
	Heap    *abi.Heap
	Gateway ports.Gateway
}

// NewEnv creates an Env.
func NewEnv(t *testing.T, opts ...hostfuncs.IOHostOption) *Env {
	t.Helper()
	heap := abi.NewHeap()
	h := hostfuncs.NewIOHost(hostfuncs.NewIOTable(), heap, opts...)
	return &Env{Host: h, Heap: heap, Gateway: bridge.Translate(h, heap)}
}

// Put registers v and returns its handle.
func (e *Env) Put(v any) entities.Handle {
	return e.Host.Table().Put(v)
}

// AssertNoLeaks asserts that every heap allocation has been released.
func AssertNoLeaks(t *testing.T, h *abi.Heap) {
	t.Helper()
	count, size := h.Stats()
	assert.Zero(t, count, "live heap allocations")
	assert.Zero(t, size, "live heap bytes")
	allocs, frees := h.Counters()
	assert.Equal(t, allocs, frees, "allocations and frees")
}

// RequireErrorAs asserts that err has a T in its chain and returns it.
func RequireErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	require.Error(t, err)
	require.True(t, errors.As(err, &target), "want %T in %v", target, err)
	return target
}

// ForeignMessage converts and releases an error slot and returns its text.
func ForeignMessage(t *testing.T, h *abi.Heap, p abi.Ptr) string {
	t.Helper()
	require.NotZero(t, p, "expected an error slot")
	fe := RequireErrorAs[*domainerrors.ForeignError](t, h.TakeError(p))
	return fe.Message
}
