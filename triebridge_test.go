package triebridge

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/reglet-dev/triebridge/codec"
	"github.com/reglet-dev/triebridge/compress"
	"github.com/reglet-dev/triebridge/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteAll(t *testing.T) {
	keys := []string{"kobo", "kobold", "\xff\xfe", ""}

	var buf bytes.Buffer
	require.NoError(t, WriteAll(context.Background(), &buf, keys))

	got, err := ReadAll(context.Background(), &buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, keys, got)
}

func TestDefault(t *testing.T) {
	t.Cleanup(func() { SetDefault(nil) })

	first := Default()
	assert.Same(t, first, Default())

	custom := host.New(host.WithCodec(codec.New(codec.WithCompression(compress.Snappy))))
	SetDefault(custom)
	assert.Same(t, custom, Default())

	var buf bytes.Buffer
	require.NoError(t, WriteAll(context.Background(), &buf, []string{"s"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\xff\x06\x00\x00sNaPpY")), "snappy stream identifier")

	SetDefault(nil)
	assert.NotSame(t, custom, Default())
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	_, err := ReadAll(context.Background(), strings.NewReader("nope"))
	require.Error(t, err)

	detail := ToErrorDetail(err)
	require.NotNil(t, detail)
	assert.Equal(t, "transport", detail.Type)
	assert.Contains(t, detail.Message, "trie: decode:")
}
