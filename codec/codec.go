// Package codec implements the bulk operations: decoding every key of a
// serialized trie read from a handle, and encoding a set of keys as a trie
// written to a handle. Each call is one bulk operation; it either completes
// or fails as a whole, and never returns partial results.
package codec

import (
	"context"
	"fmt"
	"io"

	"github.com/reglet-dev/triebridge/bridge"
	"github.com/reglet-dev/triebridge/compress"
	"github.com/reglet-dev/triebridge/config"
	"github.com/reglet-dev/triebridge/domain/entities"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/domain/ports"
	"github.com/reglet-dev/triebridge/keyset"
	"github.com/reglet-dev/triebridge/log"
	"github.com/reglet-dev/triebridge/trie"
	"go.uber.org/zap"
)

// Codec runs bulk operations against a gateway. A Codec holds no per-call
// state and may be shared by concurrent operations on distinct handles.
type Codec struct {
	engine      ports.TrieEngine
	order       trie.NodeOrder
	compression compress.Algorithm
	logger      *zap.Logger
	maxTransfer int
	maxKeyBytes int
}

// Option configures a Codec.
type Option func(*Codec)

// WithEngine replaces the trie engine. The node order option is ignored
// when an engine is supplied.
func WithEngine(e ports.TrieEngine) Option {
	return func(c *Codec) {
		c.engine = e
	}
}

// WithNodeOrder sets the sibling order of built tries.
func WithNodeOrder(o trie.NodeOrder) Option {
	return func(c *Codec) {
		c.order = o
	}
}

// WithCompression wraps the serialized trie in a compression frame.
func WithCompression(a compress.Algorithm) Option {
	return func(c *Codec) {
		c.compression = a
	}
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *zap.Logger) Option {
	return func(c *Codec) {
		c.logger = l
	}
}

// WithMaxTransfer bounds the bytes requested by a single gateway call.
func WithMaxTransfer(n int) Option {
	return func(c *Codec) {
		c.maxTransfer = n
	}
}

// WithMaxKeyBytes bounds the key bytes an encode may collect.
func WithMaxKeyBytes(n int) Option {
	return func(c *Codec) {
		c.maxKeyBytes = n
	}
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		order:       trie.WeightOrder,
		compression: compress.None,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = trie.Engine{Order: c.order}
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// FromConfig converts a validated configuration into options.
func FromConfig(cfg config.Config) ([]Option, error) {
	order, err := trie.ParseNodeOrder(cfg.NodeOrder)
	if err != nil {
		return nil, &domainerrors.ConfigError{Err: err, Field: "NodeOrder"}
	}
	algo, err := compress.Parse(cfg.Compression)
	if err != nil {
		return nil, &domainerrors.ConfigError{Err: err, Field: "Compression"}
	}
	return []Option{
		WithNodeOrder(order),
		WithCompression(algo),
		WithMaxTransfer(cfg.MaxTransfer),
		WithMaxKeyBytes(cfg.MaxKeyBytes),
	}, nil
}

// DecodeAll reads a serialized trie from iid and returns all of its keys in
// the trie's enumeration order. The number of keys enumerated must match
// the count the trie records for itself.
func (c *Codec) DecodeAll(ctx context.Context, gw ports.Gateway, iid entities.Handle) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, err := bridge.NewReader(gw, iid, c.bridgeOptions()...)
	if err != nil {
		return nil, c.fail("decode", iid, err)
	}

	t, err := c.readTrie(s)
	if err != nil {
		return nil, c.fail("decode", iid, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, err := Enumerate(t)
	if err != nil {
		return nil, c.fail("decode", iid, err)
	}

	stats := s.Stats()
	c.logger.Debug("decoded keys",
		zap.Int32("iid", int32(iid)),
		zap.Int("keys", len(keys)),
		zap.Int("read_calls", stats.ReadCalls),
		zap.Int("bytes", stats.BytesRead),
	)
	return keys, nil
}

// EncodeAll builds a trie from keys and writes it to iid.
func (c *Codec) EncodeAll(ctx context.Context, gw ports.Gateway, iid entities.Handle, keys []string) error {
	ks := keyset.New(keyset.WithMaxBytes(c.maxKeyBytes))
	for _, k := range keys {
		if err := ks.PushBackString(k, 1); err != nil {
			return c.fail("encode", iid, err)
		}
	}
	return c.encode(ctx, gw, iid, ks)
}

// EncodeBytes is EncodeAll for byte-slice keys.
func (c *Codec) EncodeBytes(ctx context.Context, gw ports.Gateway, iid entities.Handle, keys [][]byte) error {
	ks := keyset.New(keyset.WithMaxBytes(c.maxKeyBytes))
	for _, k := range keys {
		if err := ks.PushBack(k, 1); err != nil {
			return c.fail("encode", iid, err)
		}
	}
	return c.encode(ctx, gw, iid, ks)
}

func (c *Codec) encode(ctx context.Context, gw ports.Gateway, iid entities.Handle, ks *keyset.Keyset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t, err := c.engine.Build(ks)
	if err != nil {
		return c.fail("encode", iid, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s, err := bridge.NewWriter(gw, iid, c.bridgeOptions()...)
	if err != nil {
		return c.fail("encode", iid, err)
	}
	if err := c.writeTrie(s, t); err != nil {
		return c.fail("encode", iid, err)
	}

	stats := s.Stats()
	c.logger.Debug("encoded keys",
		zap.Int32("iid", int32(iid)),
		zap.Int("keys", ks.Len()),
		zap.Int("unique", t.NumKeys()),
		zap.Int("write_calls", stats.WriteCalls),
		zap.Int("bytes", stats.BytesWritten),
	)
	return nil
}

func (c *Codec) readTrie(s *bridge.Stream) (ports.Trie, error) {
	if c.compression == compress.None || c.compression == "" {
		return c.engine.Read(s)
	}
	r, err := c.compression.NewReader(s)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t, err := c.engine.Read(r)
	if err != nil {
		return nil, err
	}
	// Run the decompressor to the end of its frame so the trailer and
	// checksum are verified. Anything left inside the frame is corrupt.
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, &domainerrors.WireFormatError{Err: err, Operation: "decompress", Offset: int64(s.Stats().BytesRead)}
	}
	if n != 0 {
		return nil, &domainerrors.WireFormatError{
			Err:       fmt.Errorf("%d bytes of trailing data inside %s frame", n, c.compression),
			Operation: "decompress",
			Offset:    int64(s.Stats().BytesRead),
		}
	}
	return t, nil
}

func (c *Codec) writeTrie(s *bridge.Stream, t ports.Trie) error {
	if c.compression == compress.None || c.compression == "" {
		_, err := t.WriteTo(s)
		return err
	}
	w, err := c.compression.NewWriter(s)
	if err != nil {
		return err
	}
	if _, err := t.WriteTo(w); err != nil {
		return err
	}
	return w.Close()
}

func (c *Codec) bridgeOptions() []bridge.Option {
	return []bridge.Option{bridge.WithMaxTransfer(c.maxTransfer)}
}

func (c *Codec) fail(op string, iid entities.Handle, err error) error {
	c.logger.Warn("bulk operation failed",
		zap.String("op", op),
		zap.Int32("iid", int32(iid)),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", op, err)
}

// Enumerate returns every key of t via a predictive search from the empty
// prefix. Enumeration stops as soon as it produces more keys than t claims
// to hold; fewer or more keys than claimed is a ConsistencyError.
func Enumerate(t ports.Trie) ([]string, error) {
	expected := t.NumKeys()
	keys := make([]string, 0, min(max(expected, 0), 1<<16))
	overflow := false
	t.PredictiveSearch(nil, func(key []byte, _ uint32) bool {
		if len(keys) >= expected {
			overflow = true
			return false
		}
		keys = append(keys, string(key))
		return true
	})
	if overflow {
		return nil, &domainerrors.ConsistencyError{Expected: expected, Overflow: true}
	}
	if len(keys) != expected {
		return nil, &domainerrors.ConsistencyError{Expected: expected, Got: len(keys)}
	}
	return keys, nil
}
