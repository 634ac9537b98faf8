// Package hostfuncs implements the far side of the stream gateway: a table of
// host-owned io.Reader/io.Writer values addressed by integer handle, and the
// three entry points (check, read, write) that foreign code calls to drive
// them. Every entry point reports failure through an error slot allocated on
// an abi.Heap; ownership of the slot passes to the caller.
//
// This package has NO WASM runtime dependencies. The wazero adapter in
// infrastructure/wazero exports the same entry points to guests.
package hostfuncs
