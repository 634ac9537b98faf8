package ports

import (
	"io"

	"github.com/reglet-dev/triebridge/domain/entities"
)

// KeySource is an indexed, ordered collection of keys that a trie can be
// built from. Builders write assigned ids back through SetID.
type KeySource interface {
	Len() int
	At(i int) entities.Key
	SetID(i int, id uint32)
}

// Trie is a built, immutable trie.
type Trie interface {
	// NumKeys returns the number of distinct keys the trie reports storing.
	NumKeys() int

	// PredictiveSearch calls fn for every key starting with prefix, in the
	// trie's canonical order, until fn returns false. The key slice is only
	// valid during the call.
	PredictiveSearch(prefix []byte, fn func(key []byte, id uint32) bool)

	// WriteTo serializes the trie.
	WriteTo(w io.Writer) (int64, error)
}

// TrieEngine constructs tries, either from keys or from a serialized stream.
type TrieEngine interface {
	Build(keys KeySource) (Trie, error)
	Read(r io.Reader) (Trie, error)
}
