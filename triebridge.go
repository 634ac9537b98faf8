// Package triebridge reads and writes sets of byte-string keys stored as
// serialized tries, streaming the bytes through a handle-based gateway.
//
// The package-level functions use a shared default host:
//
//	var buf bytes.Buffer
//	if err := triebridge.WriteAll(ctx, &buf, []string{"apple", "apply"}); err != nil {
//		return err
//	}
//	keys, err := triebridge.ReadAll(ctx, &buf)
//
// Use host.New or host.NewFromConfig for a host with its own limits,
// logging and compression.
package triebridge

import (
	"context"
	"io"
	"sync"

	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/host"
)

// Version of the module.
const Version = "0.1.0"

// Reader decodes every key of a serialized trie.
type Reader interface {
	ReadAll(ctx context.Context, r io.Reader) ([]string, error)
}

// Writer encodes keys as a serialized trie.
type Writer interface {
	WriteAll(ctx context.Context, w io.Writer, keys []string) error
}

var (
	_ Reader = (*host.Host)(nil)
	_ Writer = (*host.Host)(nil)
)

var (
	mu          sync.RWMutex
	defaultHost *host.Host
)

// Default returns the shared host, creating it on first use.
func Default() *host.Host {
	mu.RLock()
	h := defaultHost
	mu.RUnlock()
	if h != nil {
		return h
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultHost == nil {
		defaultHost = host.New()
	}
	return defaultHost
}

// SetDefault replaces the shared host. A nil host resets it.
func SetDefault(h *host.Host) {
	mu.Lock()
	defer mu.Unlock()
	defaultHost = h
}

// ReadAll decodes a serialized trie from r using the default host.
func ReadAll(ctx context.Context, r io.Reader) ([]string, error) {
	return Default().ReadAll(ctx, r)
}

// WriteAll encodes keys as a trie to w using the default host.
func WriteAll(ctx context.Context, w io.Writer, keys []string) error {
	return Default().WriteAll(ctx, w, keys)
}

// ToErrorDetail renders err for callers that report errors as data.
func ToErrorDetail(err error) *entities.ErrorDetail {
	return domainerrors.ToErrorDetail(err)
}
