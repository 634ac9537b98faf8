// Package entities provides the core value types shared by the bridge, the
// codec, and the host: stream handles, capability flags, trie keys, and the
// structured error detail rendered at the ABI boundary.
package entities
