// Package trie is a static, path-compressed prefix tree over byte strings.
//
// A Trie is built once from a key source, is immutable afterwards, and can be
// serialized to and restored from a byte stream. Nodes are stored in
// breadth-first order so the children of every node are contiguous and only
// a child count needs to be stored per node. Edge labels live in a single
// tail buffer.
//
// Keys are assigned ids in breadth-first order of their terminal nodes.
// Duplicate keys collapse into one; their weights are summed.
package trie
