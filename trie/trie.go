package trie

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/reglet-dev/triebridge/domain/ports"
)

// NodeOrder selects how siblings are ordered, which is also the order keys
// are enumerated in.
type NodeOrder uint8

const (
	// WeightOrder places heavier subtrees first. This is the default.
	WeightOrder NodeOrder = iota
	// LabelOrder places siblings in ascending byte order, so enumeration
	// yields keys in lexicographic order.
	LabelOrder
)

// String returns "weight" or "label".
func (o NodeOrder) String() string {
	switch o {
	case WeightOrder:
		return "weight"
	case LabelOrder:
		return "label"
	default:
		return fmt.Sprintf("NodeOrder(%d)", uint8(o))
	}
}

// ParseNodeOrder parses the String form of a NodeOrder.
func ParseNodeOrder(s string) (NodeOrder, error) {
	switch s {
	case "weight", "":
		return WeightOrder, nil
	case "label":
		return LabelOrder, nil
	}
	return 0, fmt.Errorf("unknown node order %q", s)
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	order NodeOrder
}

// WithNodeOrder sets the sibling order.
func WithNodeOrder(o NodeOrder) Option {
	return func(c *buildConfig) {
		c.order = o
	}
}

type node struct {
	labelOff uint32
	labelLen uint32
	first    uint32 // index of the first child
	count    uint32 // number of children
	terminal bool
	id       uint32 // key id, valid when terminal
}

// Trie is an immutable prefix tree. It is safe for concurrent readers.
type Trie struct {
	order   NodeOrder
	numKeys int
	tail    []byte
	nodes   []node
}

var _ ports.Trie = (*Trie)(nil)

// NumKeys returns the number of keys recorded in the trie's header.
func (t *Trie) NumKeys() int {
	return t.numKeys
}

// NumNodes returns the number of nodes, including the root.
func (t *Trie) NumNodes() int {
	return len(t.nodes)
}

// Order returns the sibling order the trie was built with.
func (t *Trie) Order() NodeOrder {
	return t.order
}

// TotalSize returns the size of the serialized trie in bytes.
func (t *Trie) TotalSize() int {
	return len(t.appendBinary(nil))
}

func (t *Trie) label(i uint32) []byte {
	n := &t.nodes[i]
	return t.tail[n.labelOff : n.labelOff+n.labelLen]
}

// child returns the child of i whose label starts with c.
func (t *Trie) child(i uint32, c byte) (uint32, bool) {
	n := &t.nodes[i]
	for j := n.first; j < n.first+n.count; j++ {
		if t.tail[t.nodes[j].labelOff] == c {
			return j, true
		}
	}
	return 0, false
}

type entry struct {
	key    []byte
	weight float64
	uniq   int
}

type buildNode struct {
	label    []byte
	terminal bool
	uniq     int
	weight   float64
	children []*buildNode
}

// Build constructs a trie from keys. Each key's weight is taken from the key
// source; after Build returns, every key in the source holds its id.
func Build(keys ports.KeySource, opts ...Option) (*Trie, error) {
	cfg := buildConfig{order: WeightOrder}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.order != WeightOrder && cfg.order != LabelOrder {
		return nil, fmt.Errorf("trie: invalid node order %d", cfg.order)
	}

	n := keys.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return bytes.Compare(keys.At(idx[a]).Bytes(), keys.At(idx[b]).Bytes()) < 0
	})

	// Merge duplicates. owner maps a source index to its unique key.
	uniq := make([]entry, 0, n)
	owner := make([]int, n)
	for _, i := range idx {
		k := keys.At(i)
		w := float64(k.Weight())
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		if last := len(uniq) - 1; last >= 0 && bytes.Equal(uniq[last].key, k.Bytes()) {
			uniq[last].weight += w
		} else {
			uniq = append(uniq, entry{key: k.Bytes(), weight: w, uniq: len(uniq)})
		}
		owner[i] = len(uniq) - 1
	}
	if uint64(len(uniq)) > math.MaxUint32 {
		return nil, fmt.Errorf("trie: too many keys: %d", len(uniq))
	}

	root := grow(uniq, 0, nil, cfg.order)

	t := &Trie{order: cfg.order, numKeys: len(uniq)}
	ids := make([]uint32, len(uniq))
	var nextID uint32

	queue := []*buildNode{root}
	for qi := 0; qi < len(queue); qi++ {
		bn := queue[qi]
		if uint64(len(t.tail))+uint64(len(bn.label)) > math.MaxUint32 {
			return nil, fmt.Errorf("trie: label storage exceeds %d bytes", uint32(math.MaxUint32))
		}
		t.nodes = append(t.nodes, node{
			labelOff: uint32(len(t.tail)),
			labelLen: uint32(len(bn.label)),
			count:    uint32(len(bn.children)),
			terminal: bn.terminal,
		})
		t.tail = append(t.tail, bn.label...)
		if bn.terminal {
			ids[bn.uniq] = nextID
			nextID++
		}
		queue = append(queue, bn.children...)
	}
	if err := t.link(); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		keys.SetID(i, ids[owner[i]])
	}
	return t, nil
}

// grow builds the subtree for es, which are sorted, distinct, and share
// their first depth bytes.
func grow(es []entry, depth int, label []byte, order NodeOrder) *buildNode {
	bn := &buildNode{label: label}
	i := 0
	if len(es) > 0 && len(es[0].key) == depth {
		bn.terminal = true
		bn.uniq = es[0].uniq
		bn.weight = es[0].weight
		i = 1
	}
	for i < len(es) {
		c := es[i].key[depth]
		j := i + 1
		for j < len(es) && es[j].key[depth] == c {
			j++
		}
		group := es[i:j]
		end := depth + commonPrefix(group[0].key[depth:], group[len(group)-1].key[depth:])
		child := grow(group, end, group[0].key[depth:end], order)
		bn.weight += child.weight
		bn.children = append(bn.children, child)
		i = j
	}
	if order == WeightOrder {
		slices.SortStableFunc(bn.children, func(a, b *buildNode) int {
			switch {
			case a.weight > b.weight:
				return -1
			case a.weight < b.weight:
				return 1
			}
			return 0
		})
	}
	return bn
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// link derives child offsets and key ids from the stored child counts and
// validates that the node array describes a tree.
func (t *Trie) link() error {
	if len(t.nodes) == 0 {
		return fmt.Errorf("%w: no root node", ErrCorrupt)
	}
	if t.nodes[0].labelLen != 0 {
		return fmt.Errorf("%w: root node has a label", ErrCorrupt)
	}

	next := uint64(1) // next unassigned child slot
	var id uint32
	for i := range t.nodes {
		n := &t.nodes[i]
		if i > 0 {
			if uint64(i) >= next {
				return fmt.Errorf("%w: node %d has no parent", ErrCorrupt, i)
			}
			if n.labelLen == 0 {
				return fmt.Errorf("%w: node %d has an empty label", ErrCorrupt, i)
			}
		}
		if uint64(n.labelOff)+uint64(n.labelLen) > uint64(len(t.tail)) {
			return fmt.Errorf("%w: node %d label out of range", ErrCorrupt, i)
		}
		n.first = uint32(next)
		next += uint64(n.count)
		if next > uint64(len(t.nodes)) {
			return fmt.Errorf("%w: node %d children out of range", ErrCorrupt, i)
		}
		if n.terminal {
			n.id = id
			id++
		}
	}
	if next != uint64(len(t.nodes)) {
		return fmt.Errorf("%w: %d nodes are unreachable", ErrCorrupt, uint64(len(t.nodes))-next)
	}

	// Sibling labels must start with distinct bytes.
	var seen [256]bool
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.count < 2 {
			continue
		}
		seen = [256]bool{}
		for j := n.first; j < n.first+n.count; j++ {
			c := t.tail[t.nodes[j].labelOff]
			if seen[c] {
				return fmt.Errorf("%w: node %d has two children starting with %#02x", ErrCorrupt, i, c)
			}
			seen[c] = true
		}
	}
	return nil
}
