package trie

import (
	"io"

	"github.com/reglet-dev/triebridge/domain/ports"
)

// Engine adapts Build and Read to ports.TrieEngine.
type Engine struct {
	Order NodeOrder
}

var _ ports.TrieEngine = Engine{}

// Build implements ports.TrieEngine.
func (e Engine) Build(keys ports.KeySource) (ports.Trie, error) {
	t, err := Build(keys, WithNodeOrder(e.Order))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Read implements ports.TrieEngine.
func (e Engine) Read(r io.Reader) (ports.Trie, error) {
	t, err := Read(r)
	if err != nil {
		return nil, err
	}
	return t, nil
}
