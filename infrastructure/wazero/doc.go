// Package wazero exports the stream gateway to WebAssembly guests running in
// the wazero runtime.
//
// A guest imports three functions from the host module (default
// "trie_host") and drives the same handles a native caller would:
//
//	(import "trie_host" "iop_check" (func (param i32 i32 i32) (result i32)))
//	(import "trie_host" "iop_read"  (func (param i32 i32 i32 i32) (result i64)))
//	(import "trie_host" "iop_write" (func (param i32 i32 i32 i32) (result i64)))
//
// Reads and writes go straight to and from guest memory. Error messages are
// copied into memory obtained from the guest's "allocate" export, and the
// guest frees them.
//
// # Basic Usage
//
//	heap := abi.NewHeap()
//	io := hostfuncs.NewIOHost(hostfuncs.NewIOTable(), heap)
//
//	runtime := wazero.NewRuntime(ctx)
//	err := wazero.RegisterGateway(ctx, runtime, io)
package wazero
