package trie

import "bytes"

// Lookup returns the id of key.
func (t *Trie) Lookup(key []byte) (uint32, bool) {
	cur := uint32(0)
	for pos := 0; pos < len(key); {
		c, ok := t.child(cur, key[pos])
		if !ok {
			return 0, false
		}
		lab := t.label(c)
		if !bytes.HasPrefix(key[pos:], lab) {
			return 0, false
		}
		pos += len(lab)
		cur = c
	}
	n := &t.nodes[cur]
	return n.id, n.terminal
}

// PredictiveSearch calls fn for every key that starts with prefix, until fn
// returns false. Keys are visited depth first with siblings in the trie's
// node order; a key is always visited before its extensions. The key slice
// passed to fn is reused between calls.
func (t *Trie) PredictiveSearch(prefix []byte, fn func(key []byte, id uint32) bool) {
	cur := uint32(0)
	buf := make([]byte, 0, 64)
	for pos := 0; pos < len(prefix); {
		c, ok := t.child(cur, prefix[pos])
		if !ok {
			return
		}
		lab := t.label(c)
		rest := prefix[pos:]
		if len(rest) <= len(lab) {
			// The prefix ends inside this edge.
			if !bytes.HasPrefix(lab, rest) {
				return
			}
		} else if !bytes.HasPrefix(rest, lab) {
			return
		}
		buf = append(buf, lab...)
		pos += len(lab)
		cur = c
	}
	t.walk(cur, buf, fn)
}

func (t *Trie) walk(i uint32, buf []byte, fn func([]byte, uint32) bool) bool {
	n := &t.nodes[i]
	if n.terminal && !fn(buf, n.id) {
		return false
	}
	for c := n.first; c < n.first+n.count; c++ {
		if !t.walk(c, append(buf, t.label(c)...), fn) {
			return false
		}
	}
	return true
}

// CommonPrefixSearch calls fn for every key that is a prefix of query,
// shortest first, until fn returns false.
func (t *Trie) CommonPrefixSearch(query []byte, fn func(key []byte, id uint32) bool) {
	cur := uint32(0)
	if n := &t.nodes[0]; n.terminal && !fn(query[:0], n.id) {
		return
	}
	for pos := 0; pos < len(query); {
		c, ok := t.child(cur, query[pos])
		if !ok {
			return
		}
		lab := t.label(c)
		if !bytes.HasPrefix(query[pos:], lab) {
			return
		}
		pos += len(lab)
		cur = c
		if n := &t.nodes[cur]; n.terminal && !fn(query[:pos], n.id) {
			return
		}
	}
}

// Keys returns every key in enumeration order.
func (t *Trie) Keys() []string {
	keys := make([]string, 0, t.numKeys)
	t.PredictiveSearch(nil, func(key []byte, _ uint32) bool {
		keys = append(keys, string(key))
		return true
	})
	return keys
}
