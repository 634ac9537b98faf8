package abi

import (
	"fmt"

	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
)

// NewError allocates a formatted error message and returns its slot value.
// Error messages bypass the heap limit so a failure is never lost because
// the heap is full.
func (h *Heap) NewError(format string, args ...any) Ptr {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		msg = "unknown error"
	}
	p, err := h.alloc([]byte(msg), true)
	if err != nil {
		// Pointer space exhausted; nothing can be reported through the heap.
		panic(err)
	}
	return p
}

// TakeError converts the message at p into a *errors.ForeignError and frees
// the allocation. It returns nil for the null pointer. This is the only
// function that consumes error slots.
func (h *Heap) TakeError(p Ptr) error {
	if p == 0 {
		return nil
	}
	b, ok := h.Bytes(p)
	if !ok {
		return fmt.Errorf("abi: error slot %#x was already released", uint32(p))
	}
	err := &domainerrors.ForeignError{Message: string(b)}
	if ferr := h.Free(p); ferr != nil {
		return fmt.Errorf("%w (%v)", err, ferr)
	}
	return err
}

// Result is the tagged outcome of a gateway call: a primary value and an
// error slot. Exactly one of them is meaningful.
type Result struct {
	N   int64
	Err Ptr
}

// Ok returns a successful Result.
func Ok(n int64) Result {
	return Result{N: n}
}

// Fail returns a failed Result carrying slot p.
func Fail(p Ptr) Result {
	return Result{Err: p}
}

// Unwrap consumes the error slot first and only then exposes the value.
func (r Result) Unwrap(h *Heap) (int64, error) {
	if err := h.TakeError(r.Err); err != nil {
		return 0, err
	}
	return r.N, nil
}
