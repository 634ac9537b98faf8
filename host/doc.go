// Package host runs bulk trie operations on behalf of native callers and
// WebAssembly guests.
//
// A Host owns the far-side state: the heap that carries error messages and
// key lists, the handle table, and the gateway over it. ReadAll and WriteAll
// register a stream, run one bulk operation through the flat ffi surface and
// release every allocation before returning. An Executor exports the same
// gateway to wasm guests through wazero.
package host
