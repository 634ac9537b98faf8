// Package ffi is the flat, C-shaped surface over the bulk codec. Results and
// errors are handed out as heap pointers rather than Go values, and nothing
// that happens inside a call (including a panic) escapes it except through
// the error out-parameter.
//
// A key list is an index allocation of count packed (ptr,len) values, eight
// bytes each in little-endian order, followed by one allocation per key.
// Empty keys are stored as the null pointer with length 0. A key list is
// released with FreeKeys.
package ffi

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/reglet-dev/triebridge/bridge"
	"github.com/reglet-dev/triebridge/codec"
	"github.com/reglet-dev/triebridge/domain/entities"
	"github.com/reglet-dev/triebridge/domain/ports"
	"github.com/reglet-dev/triebridge/internal/abi"
	"go.uber.org/multierr"
)

// EntrySize is the size of one packed (ptr,len) entry in a key list index.
const EntrySize = 8

const errNullParameter = "trie: parameter is null"

// Surface exposes one codec through the flat entry points.
type Surface struct {
	codec *codec.Codec
}

// New returns a Surface over c. A nil codec means codec.New().
func New(c *codec.Codec) *Surface {
	if c == nil {
		c = codec.New()
	}
	return &Surface{codec: c}
}

var defaultSurface = New(nil)

// DecodeAll decodes with the default codec.
func DecodeAll(h *abi.Heap, gw ports.ForeignGateway, iid entities.Handle, outKeys *abi.Ptr, outCount *int, outErr *abi.Ptr) {
	defaultSurface.DecodeAll(h, gw, iid, outKeys, outCount, outErr)
}

// EncodeAll encodes with the default codec.
func EncodeAll(h *abi.Heap, gw ports.ForeignGateway, iid entities.Handle, keys [][]byte, outErr *abi.Ptr) {
	defaultSurface.EncodeAll(h, gw, iid, keys, outErr)
}

// DecodeAll reads every key of the trie at iid. On success *outKeys holds a
// key list of *outCount entries and *outErr is null. On failure *outKeys and
// *outCount are zero and *outErr holds the message. Without an error slot
// there is nowhere to report anything, so a nil outErr makes it a no-op.
func (s *Surface) DecodeAll(h *abi.Heap, gw ports.ForeignGateway, iid entities.Handle, outKeys *abi.Ptr, outCount *int, outErr *abi.Ptr) {
	if outErr == nil {
		return
	}
	*outErr = 0
	defer recoverInto(h, outErr)

	if outKeys == nil || outCount == nil {
		*outErr = h.NewError("%s", errNullParameter)
		return
	}
	*outKeys, *outCount = 0, 0

	keys, err := s.codec.DecodeAll(context.Background(), bridge.Translate(gw, h), iid)
	if err != nil {
		*outErr = h.NewError("%s", message(err))
		return
	}

	p, err := AllocKeys(h, keys)
	if err != nil {
		*outErr = h.NewError("%s", message(err))
		return
	}
	*outKeys, *outCount = p, len(keys)
}

// EncodeAll writes keys as a trie to iid. *outErr is null on success. A nil
// outErr makes it a no-op.
func (s *Surface) EncodeAll(h *abi.Heap, gw ports.ForeignGateway, iid entities.Handle, keys [][]byte, outErr *abi.Ptr) {
	if outErr == nil {
		return
	}
	*outErr = 0
	defer recoverInto(h, outErr)

	if err := s.codec.EncodeBytes(context.Background(), bridge.Translate(gw, h), iid, keys); err != nil {
		*outErr = h.NewError("%s", message(err))
	}
}

func recoverInto(h *abi.Heap, outErr *abi.Ptr) {
	r := recover()
	if r == nil {
		return
	}
	if *outErr != 0 {
		_ = h.Free(*outErr)
	}
	*outErr = h.NewError("%s", panicMessage(r))
}

func message(err error) string {
	return "trie: " + err.Error()
}

func panicMessage(r any) string {
	switch v := r.(type) {
	case runtime.Error:
		return v.Error()
	case error:
		return "trie: " + v.Error()
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// AllocKeys stores keys as a key list on h. Either the whole list is
// allocated or nothing is.
func AllocKeys(h *abi.Heap, keys []string) (p abi.Ptr, err error) {
	index := make([]byte, len(keys)*EntrySize)
	allocated := make([]abi.Ptr, 0, len(keys))
	defer func() {
		if err != nil {
			for _, kp := range allocated {
				_ = h.Free(kp)
			}
		}
	}()

	for i, k := range keys {
		kp, err := h.Alloc([]byte(k))
		if err != nil {
			return 0, fmt.Errorf("key %d: %w", i, err)
		}
		if kp != 0 {
			allocated = append(allocated, kp)
		}
		binary.LittleEndian.PutUint64(index[i*EntrySize:], abi.PackPtrLen(uint32(kp), uint32(len(k))))
	}

	p, err = h.Alloc(index)
	if err != nil {
		return 0, fmt.Errorf("key index: %w", err)
	}
	return p, nil
}

func entries(h *abi.Heap, keys abi.Ptr, count int) ([]uint64, error) {
	if count < 0 {
		return nil, fmt.Errorf("ffi: negative key count %d", count)
	}
	index, ok := h.Bytes(keys)
	if !ok {
		return nil, fmt.Errorf("ffi: unknown key list %#x", uint32(keys))
	}
	if len(index) != count*EntrySize {
		return nil, fmt.Errorf("ffi: key list %#x holds %d bytes, want %d", uint32(keys), len(index), count*EntrySize)
	}
	out := make([]uint64, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(index[i*EntrySize:])
	}
	return out, nil
}

// CopyKeys reads a key list back into Go strings without releasing it.
func CopyKeys(h *abi.Heap, keys abi.Ptr, count int) ([]string, error) {
	packed, err := entries(h, keys, count)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i, v := range packed {
		kp, n := abi.UnpackPtrLen(v)
		b, ok := h.Bytes(abi.Ptr(kp))
		if !ok || len(b) != int(n) {
			return nil, fmt.Errorf("ffi: key %d of list %#x is invalid", i, uint32(keys))
		}
		out[i] = string(b)
	}
	return out, nil
}

// FreeKeys releases every key of the list and then the index itself. It
// keeps going after a bad entry and reports all of them.
func FreeKeys(h *abi.Heap, keys abi.Ptr, count int) error {
	packed, err := entries(h, keys, count)
	if err != nil {
		return err
	}
	var errs error
	for _, v := range packed {
		kp, _ := abi.UnpackPtrLen(v)
		errs = multierr.Append(errs, h.Free(abi.Ptr(kp)))
	}
	return multierr.Append(errs, h.Free(keys))
}
