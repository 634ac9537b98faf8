package entities

import "math"

// Key is a non-owning view of key bytes plus a union holding either a
// sequential id or a floating-point weight. Which member is meaningful
// depends on the phase: weights before trie construction, ids after.
type Key struct {
	bytes []byte
	union uint32
}

// NewKey returns a key viewing b with the given weight.
// The bytes are not copied.
func NewKey(b []byte, weight float32) Key {
	return Key{bytes: b, union: math.Float32bits(weight)}
}

// Bytes returns the viewed bytes. Callers must not modify them.
func (k Key) Bytes() []byte {
	return k.bytes
}

// String returns a copy of the key bytes as a string.
func (k Key) String() string {
	return string(k.bytes)
}

// Len returns the key length in bytes.
func (k Key) Len() int {
	return len(k.bytes)
}

// Weight interprets the union as a weight.
func (k Key) Weight() float32 {
	return math.Float32frombits(k.union)
}

// ID interprets the union as an id.
func (k Key) ID() uint32 {
	return k.union
}

// WithWeight returns a copy of k holding weight w.
func (k Key) WithWeight(w float32) Key {
	k.union = math.Float32bits(w)
	return k
}

// WithID returns a copy of k holding id.
func (k Key) WithID(id uint32) Key {
	k.union = id
	return k
}
