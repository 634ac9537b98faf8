package hostfuncs

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrInjectedFault is wrapped by every error produced by a FaultInjector.
var ErrInjectedFault = errors.New("injected fault")

// FaultInjector decides whether a gateway call should fail. Implementations
// keep their own state, so each IOHost (and each test) gets an independent
// schedule.
type FaultInjector interface {
	Inject(c *Call) error
}

// FaultFunc adapts a function to the FaultInjector interface.
type FaultFunc func(c *Call) error

// Inject implements FaultInjector.
func (f FaultFunc) Inject(c *Call) error {
	return f(c)
}

// NoFaults never fails.
var NoFaults FaultInjector = FaultFunc(func(*Call) error { return nil })

// FailAt returns an injector that fails only the k-th call it sees (1-based).
// k <= 0 never fails.
func FailAt(k int) *CallCounter {
	return &CallCounter{at: uint64(max(k, 0))}
}

// FailEvery returns an injector that fails every n-th call it sees.
// n <= 0 never fails.
func FailEvery(n int) *CallCounter {
	return &CallCounter{every: uint64(max(n, 0))}
}

// CallCounter is a counting FaultInjector created by FailAt or FailEvery.
type CallCounter struct {
	calls    atomic.Uint64
	injected atomic.Uint64
	at       uint64
	every    uint64
}

// Inject implements FaultInjector.
func (f *CallCounter) Inject(c *Call) error {
	i := f.calls.Add(1)
	if (f.at != 0 && i == f.at) || (f.every != 0 && i%f.every == 0) {
		f.injected.Add(1)
		return fmt.Errorf("%s: %w at call %d (iid %d)", c.Op, ErrInjectedFault, i, c.Handle)
	}
	return nil
}

// Calls returns the number of calls seen.
func (f *CallCounter) Calls() uint64 {
	return f.calls.Load()
}

// Injected returns the number of faults produced.
func (f *CallCounter) Injected() uint64 {
	return f.injected.Load()
}
