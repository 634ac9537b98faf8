// Package ports defines the interfaces the bridge and codec depend on.
// These ports enable dependency inversion - the codec depends on abstractions,
// and the host, trie engine, and config loaders implement them.
package ports
