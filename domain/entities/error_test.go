package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorDetail_Error(t *testing.T) {
	tests := []struct {
		name   string
		detail *ErrorDetail
		want   string
	}{
		{
			name:   "nil",
			detail: nil,
			want:   "",
		},
		{
			name:   "internal type is not prefixed",
			detail: NewErrorDetail("internal", "boom"),
			want:   "boom",
		},
		{
			name:   "typed with code",
			detail: NewErrorDetail("protocol", "read returned too many bytes").WithCode("overflow"),
			want:   "protocol: read returned too many bytes [overflow]",
		},
		{
			name: "wrapped",
			detail: &ErrorDetail{
				Type:    "transport",
				Message: "read failed",
				Wrapped: NewErrorDetail("internal", "disk gone"),
			},
			want: "transport: read failed: disk gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.Error())
		})
	}
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "none", Capability(0).String())
	assert.Equal(t, "read", Readable.String())
	assert.Equal(t, "write", Writable.String())
	assert.Equal(t, "read|write", ReadWrite.String())
	assert.Equal(t, "read|unknown", (Readable | 1<<5).String())
}

func TestCapability_HasMissing(t *testing.T) {
	assert.True(t, ReadWrite.Has(Readable))
	assert.True(t, ReadWrite.Has(ReadWrite))
	assert.False(t, Readable.Has(ReadWrite))
	assert.Equal(t, Writable, Readable.Missing(ReadWrite))
	assert.Equal(t, Capability(0), ReadWrite.Missing(Writable))
	assert.Equal(t, []string{"io.Reader", "io.Writer"}, ReadWrite.Interfaces())
	assert.Equal(t, []string{"io.Writer"}, Writable.Interfaces())
}

func TestKey_Union(t *testing.T) {
	src := []byte{'a', 0x00, 0xFF}
	k := NewKey(src, 2.5)

	assert.Equal(t, 3, k.Len())
	assert.Equal(t, float32(2.5), k.Weight())
	assert.Equal(t, "a\x00\xff", k.String())

	k = k.WithID(7)
	assert.Equal(t, uint32(7), k.ID())

	// The key is a view, not a copy.
	src[0] = 'b'
	assert.Equal(t, byte('b'), k.Bytes()[0])
}

func TestErrorDetail_Wrap(t *testing.T) {
	d := NewErrorDetail(ErrorTypeConsistency, "expected 3 keys, got 2").
		WithCode("key_count").
		Wrap(NewErrorDetail(ErrorTypeInternal, "enumeration stopped"))
	assert.Equal(t, "consistency: expected 3 keys, got 2 [key_count]: enumeration stopped", d.Error())
}
