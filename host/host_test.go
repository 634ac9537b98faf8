package host

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/reglet-dev/triebridge/codec"
	"github.com/reglet-dev/triebridge/compress"
	"github.com/reglet-dev/triebridge/config"
	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
	"github.com/reglet-dev/triebridge/hostfuncs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func assertClean(t *testing.T, h *Host) {
	t.Helper()
	count, size := h.Heap().Stats()
	assert.Zero(t, count, "live heap allocations")
	assert.Zero(t, size)
	allocs, frees := h.Heap().Counters()
	assert.Equal(t, allocs, frees)
	assert.Zero(t, h.Table().Live(), "handles left open")
}

func TestReadWriteAll(t *testing.T) {
	h := New()
	keys := []string{"", "\x00", "\xff", "dictionary", "dict", "diction\xffary"}

	var buf bytes.Buffer
	require.NoError(t, h.WriteAll(context.Background(), &buf, keys))

	got, err := h.ReadAll(context.Background(), &buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, keys, got)
	assertClean(t, h)
}

func TestReadAll_OneByteReads(t *testing.T) {
	h := New()
	var buf bytes.Buffer
	require.NoError(t, h.WriteAll(context.Background(), &buf, []string{"a", "b"}))

	got, err := h.ReadAll(context.Background(), iotest.OneByteReader(&buf))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, got)
	assertClean(t, h)
}

func TestReadAll_Garbage(t *testing.T) {
	h := New()
	got, err := h.ReadAll(context.Background(), strings.NewReader("this is not a trie at all"))
	require.Error(t, err)
	assert.Nil(t, got)

	var fe *domainerrors.ForeignError
	require.True(t, errors.As(err, &fe))
	assert.True(t, strings.HasPrefix(fe.Message, "trie: decode: "), fe.Message)
	assertClean(t, h)
}

func TestReadAll_Truncated(t *testing.T) {
	h := New()
	var buf bytes.Buffer
	require.NoError(t, h.WriteAll(context.Background(), &buf, []string{"alpha", "beta"}))
	data := buf.Bytes()

	for cut := 0; cut < len(data); cut++ {
		got, err := h.ReadAll(context.Background(), bytes.NewReader(data[:cut]))
		require.Error(t, err, "cut at %d", cut)
		assert.Nil(t, got)
	}
	assertClean(t, h)
}

func TestWriteAll_ClosedWriter(t *testing.T) {
	h := New()
	err := h.WriteAll(context.Background(), hostfuncs.NewBoundedBuffer(4), []string{"longer than four bytes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domainerrors.ErrWriteClosed.Error())
	assertClean(t, h)
}

func TestCanceledContext(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.ReadAll(ctx, strings.NewReader(""))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, h.WriteAll(ctx, &bytes.Buffer{}, nil), context.Canceled)
	assertClean(t, h)
}

func TestFaultInjection(t *testing.T) {
	counter := hostfuncs.FailEvery(2)
	h := New(WithFaultInjector(counter))

	for i := 0; i < 50; i++ {
		_, err := h.ReadAll(context.Background(), strings.NewReader("irrelevant"))
		require.Error(t, err)
		assert.Error(t, h.WriteAll(context.Background(), &bytes.Buffer{}, []string{"k"}))
	}
	assert.NotZero(t, counter.Injected())
	assertClean(t, h)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := New(WithLogger(zap.New(core)))

	var buf bytes.Buffer
	require.NoError(t, h.WriteAll(context.Background(), &buf, []string{"x"}))

	assert.NotZero(t, logs.FilterMessage("gateway call").Len())
	assert.Equal(t, 1, logs.FilterMessage("encoded keys").Len())
}

func TestCustomCodec(t *testing.T) {
	h := New(WithCodec(codec.New(codec.WithCompression(compress.Zstd))))
	var buf bytes.Buffer
	require.NoError(t, h.WriteAll(context.Background(), &buf, []string{"compressed"}))
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, buf.Bytes()[:4], "zstd frame magic")

	got, err := h.ReadAll(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"compressed"}, got)
}

func TestMaxHeap(t *testing.T) {
	h := New(WithMaxHeap(16))
	keys := []string{strings.Repeat("a", 10), strings.Repeat("b", 10)}

	var buf bytes.Buffer
	require.NoError(t, h.WriteAll(context.Background(), &buf, keys))

	_, err := h.ReadAll(context.Background(), &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heap")
	assertClean(t, h)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.NodeOrder = "label"
	cfg.Compression = "lz4"
	cfg.LogLevel = "error"

	h, err := NewFromConfig(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.WriteAll(context.Background(), &buf, []string{"pear", "apple", "fig"}))
	got, err := h.ReadAll(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "fig", "pear"}, got, "label order enumerates sorted")
	assertClean(t, h)

	cfg.Compression = "rar"
	_, err = NewFromConfig(cfg)
	var ce *domainerrors.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Compression", ce.Field)
}
