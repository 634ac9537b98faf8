// Package keyset implements the append-only key collection a trie is built
// from. Key records and key bytes are both allocated in fixed-size blocks, so
// appending a key costs amortized O(1) with no per-key allocation.
package keyset

import (
	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
)

const (
	// KeyBlockSize is the number of key records per block.
	KeyBlockSize = 256

	// ByteBlockSize is the size of a shared byte block. Keys longer than
	// this get a dedicated block of their own.
	ByteBlockSize = 4096
)

// Keyset is an ordered, append-only sequence of keys. It copies every key it
// stores; caller-owned bytes are never retained or modified.
type Keyset struct {
	keyBlocks  [][]entities.Key
	byteBlocks [][]byte
	current    []byte // tail of the newest shared byte block

	numKeys   int
	totalLen  int
	allocated int
	maxBytes  int
}

// Option configures a Keyset.
type Option func(*Keyset)

// WithMaxBytes limits the bytes the keyset may allocate for key content.
// Zero means unlimited.
func WithMaxBytes(n int) Option {
	return func(ks *Keyset) {
		if n >= 0 {
			ks.maxBytes = n
		}
	}
}

// New creates an empty Keyset.
func New(opts ...Option) *Keyset {
	ks := &Keyset{}
	for _, opt := range opts {
		opt(ks)
	}
	return ks
}

// PushBack appends a copy of b with the given weight.
func (ks *Keyset) PushBack(b []byte, weight float32) error {
	view, err := ks.store(b)
	if err != nil {
		return err
	}
	ks.appendKey(entities.NewKey(view, weight))
	ks.totalLen += len(view)
	return nil
}

// PushBackString appends a copy of s with the given weight.
func (ks *Keyset) PushBackString(s string, weight float32) error {
	view, err := ks.storeString(s)
	if err != nil {
		return err
	}
	ks.appendKey(entities.NewKey(view, weight))
	ks.totalLen += len(view)
	return nil
}

// PushBackKey appends a copy of k's bytes, keeping its id/weight union.
func (ks *Keyset) PushBackKey(k entities.Key) error {
	view, err := ks.store(k.Bytes())
	if err != nil {
		return err
	}
	ks.appendKey(entities.NewKey(view, 0).WithID(k.ID()))
	ks.totalLen += len(view)
	return nil
}

// Len returns the number of keys.
func (ks *Keyset) Len() int {
	return ks.numKeys
}

// TotalLength returns the sum of all key lengths.
func (ks *Keyset) TotalLength() int {
	return ks.totalLen
}

// At returns the i-th key. It panics if i is out of range.
func (ks *Keyset) At(i int) entities.Key {
	if i < 0 || i >= ks.numKeys {
		panic("keyset: index out of range")
	}
	return ks.keyBlocks[i/KeyBlockSize][i%KeyBlockSize]
}

// SetID replaces the union of the i-th key with id.
func (ks *Keyset) SetID(i int, id uint32) {
	if i < 0 || i >= ks.numKeys {
		panic("keyset: index out of range")
	}
	blk := ks.keyBlocks[i/KeyBlockSize]
	blk[i%KeyBlockSize] = blk[i%KeyBlockSize].WithID(id)
}

// NumKeyBlocks returns the number of key record blocks allocated.
func (ks *Keyset) NumKeyBlocks() int {
	return len(ks.keyBlocks)
}

// NumByteBlocks returns the number of byte blocks allocated, including
// dedicated blocks for long keys.
func (ks *Keyset) NumByteBlocks() int {
	return len(ks.byteBlocks)
}

// NumBlocks returns the total number of blocks of either kind.
func (ks *Keyset) NumBlocks() int {
	return len(ks.keyBlocks) + len(ks.byteBlocks)
}

// Reset drops all keys and blocks.
func (ks *Keyset) Reset() {
	maxBytes := ks.maxBytes
	*ks = Keyset{maxBytes: maxBytes}
}

func (ks *Keyset) appendKey(k entities.Key) {
	if ks.numKeys%KeyBlockSize == 0 {
		ks.keyBlocks = append(ks.keyBlocks, make([]entities.Key, 0, KeyBlockSize))
	}
	last := len(ks.keyBlocks) - 1
	ks.keyBlocks[last] = append(ks.keyBlocks[last], k)
	ks.numKeys++
}

// reserve returns a zero-length slice with capacity for n bytes.
func (ks *Keyset) reserve(n int) ([]byte, error) {
	if n > ByteBlockSize {
		if err := ks.charge(n); err != nil {
			return nil, err
		}
		blk := make([]byte, 0, n)
		ks.byteBlocks = append(ks.byteBlocks, blk)
		return blk, nil
	}
	if cap(ks.current)-len(ks.current) < n {
		if err := ks.charge(ByteBlockSize); err != nil {
			return nil, err
		}
		blk := make([]byte, 0, ByteBlockSize)
		ks.byteBlocks = append(ks.byteBlocks, blk)
		ks.current = blk
	}
	start := len(ks.current)
	ks.current = ks.current[:start+n]
	return ks.current[start:start:start+n], nil
}

func (ks *Keyset) charge(n int) error {
	if ks.maxBytes > 0 && ks.allocated+n > ks.maxBytes {
		return &domainerrors.MemoryError{
			What:      "keyset",
			Requested: n,
			Current:   ks.allocated,
			Limit:     ks.maxBytes,
		}
	}
	ks.allocated += n
	return nil
}

func (ks *Keyset) store(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}
	dst, err := ks.reserve(len(b))
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

func (ks *Keyset) storeString(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}
	dst, err := ks.reserve(len(s))
	if err != nil {
		return nil, err
	}
	return append(dst, s...), nil
}
