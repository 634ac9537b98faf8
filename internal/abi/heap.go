// Package abi implements the far-side heap and the error channel used across
// the gateway boundary.
//
// Every gateway call returns an out-of-band error slot (a Ptr). The slot is 0
// on success and otherwise points to a message allocated on a Heap. The
// receiving side owns the allocation and must release it exactly once, which
// Heap.TakeError does as part of converting it into a Go error.
package abi

import (
	"fmt"
	"sync"

	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
)

// DefaultMaxTotalAllocations is the default limit on live heap bytes.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// EOF is the end-of-stream sentinel returned by read and write entry points.
// It is outside the domain of valid byte counts.
const EOF int64 = -1

// Ptr addresses a live heap allocation. The zero Ptr is null.
type Ptr uint32

// Heap tracks allocations handed across the boundary. Pointers are not
// reused until the 32-bit space wraps, so a second Free of the same Ptr is
// detected instead of releasing an unrelated allocation.
type Heap struct {
	mu     sync.Mutex
	blocks map[Ptr][]byte
	next   Ptr
	total  int
	limit  int
	allocs uint64
	frees  uint64
}

// HeapOption configures a Heap.
type HeapOption func(*heapConfig)

type heapConfig struct {
	maxTotalAllocations int
}

// WithMaxTotalAllocations sets the limit on live heap bytes.
// Values <= 0 are ignored.
func WithMaxTotalAllocations(limit int) HeapOption {
	return func(c *heapConfig) {
		if limit > 0 {
			c.maxTotalAllocations = limit
		}
	}
}

// NewHeap creates an empty heap.
func NewHeap(opts ...HeapOption) *Heap {
	cfg := heapConfig{maxTotalAllocations: DefaultMaxTotalAllocations}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Heap{
		blocks: make(map[Ptr][]byte),
		limit:  cfg.maxTotalAllocations,
	}
}

// Alloc copies data into a new allocation and returns its pointer.
// Empty data yields the null pointer and no allocation.
func (h *Heap) Alloc(data []byte) (Ptr, error) {
	return h.alloc(data, false)
}

func (h *Heap) alloc(data []byte, force bool) (Ptr, error) {
	if len(data) == 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !force && h.total+len(data) > h.limit {
		return 0, &domainerrors.MemoryError{
			What:      "heap",
			Requested: len(data),
			Current:   h.total,
			Limit:     h.limit,
		}
	}

	p, ok := h.nextPtr()
	if !ok {
		return 0, fmt.Errorf("abi: heap pointer space exhausted")
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	h.blocks[p] = buf
	h.total += len(buf)
	h.allocs++
	return p, nil
}

// nextPtr advances to the next free pointer. Once the 32-bit space wraps,
// ids of freed allocations are handed out again, skipping null and every
// live pointer.
func (h *Heap) nextPtr() (Ptr, bool) {
	for range uint64(1) << 32 {
		h.next++
		if h.next == 0 {
			continue
		}
		if _, live := h.blocks[h.next]; !live {
			return h.next, true
		}
	}
	return 0, false
}

// Bytes returns the allocation at p without copying.
// The slice is only valid until p is freed.
func (h *Heap) Bytes(p Ptr) ([]byte, bool) {
	if p == 0 {
		return nil, true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks[p]
	return b, ok
}

// Free releases the allocation at p. Freeing null is a no-op; freeing an
// unknown or already-freed pointer is an error.
func (h *Heap) Free(p Ptr) error {
	if p == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.blocks[p]
	if !ok {
		return fmt.Errorf("abi: free of unknown or already freed pointer %#x", uint32(p))
	}
	delete(h.blocks, p)
	h.total -= len(b)
	h.frees++
	return nil
}

// Stats returns the number of live allocations and their total size.
func (h *Heap) Stats() (count, bytes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks), h.total
}

// Counters returns lifetime allocation and free counts.
func (h *Heap) Counters() (allocs, frees uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocs, h.frees
}

// FreeAll releases every live allocation. It is meant for shutdown and
// test cleanup; pointers freed this way count as frees.
func (h *Heap) FreeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frees += uint64(len(h.blocks))
	h.blocks = make(map[Ptr][]byte)
	h.total = 0
}
