package hostfuncs

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/reglet-dev/triebridge/domain/entities"
)

// IOTable maps handles to host-owned readers and writers. Handles are issued
// sequentially starting at 1 and are never reused, so a stale handle can be
// told apart from a live one. It is safe for concurrent use.
type IOTable struct {
	mu      sync.RWMutex
	entries []any // entries[0] is reserved
}

// NewIOTable creates an empty table.
func NewIOTable() *IOTable {
	return &IOTable{entries: []any{nil}}
}

// Put stores v and returns its new handle. It panics if v is neither an
// io.Reader nor an io.Writer.
func (t *IOTable) Put(v any) entities.Handle {
	switch v.(type) {
	case io.Reader, io.Writer:
	default:
		panic(fmt.Sprintf("hostfuncs: %T is not a reader, writer, or both", v))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) > math.MaxInt32 {
		panic("hostfuncs: handle space exhausted")
	}
	t.entries = append(t.entries, v)
	return entities.Handle(len(t.entries) - 1)
}

// Get returns the value behind iid. It returns an error if iid was never
// issued and (nil, nil) if it has been deleted.
func (t *IOTable) Get(iid entities.Handle) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if iid <= 0 || int(iid) >= len(t.entries) {
		return nil, fmt.Errorf("invalid iid %d", iid)
	}
	return t.entries[iid], nil
}

// Del clears iid so later calls see it as deleted. Deleting an unknown
// handle is an error; deleting twice is not.
func (t *IOTable) Del(iid entities.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if iid <= 0 || int(iid) >= len(t.entries) {
		return fmt.Errorf("invalid iid %d", iid)
	}
	t.entries[iid] = nil
	return nil
}

// Live returns the number of handles that have not been deleted.
func (t *IOTable) Live() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, v := range t.entries[1:] {
		if v != nil {
			n++
		}
	}
	return n
}

// capabilitiesOf reports which capabilities v supports.
func capabilitiesOf(v any) entities.Capability {
	var c entities.Capability
	if _, ok := v.(io.Reader); ok {
		c |= entities.Readable
	}
	if _, ok := v.(io.Writer); ok {
		c |= entities.Writable
	}
	return c
}
