// Package bridge adapts the handle-addressed gateway into ordinary Go byte
// streams.
//
// Translate is the only place raw error slots are consumed: it converts each
// slot into a Go error and frees it before anything looks at the primary
// result. On top of the translated gateway, Source is a plain io.Reader (one
// gateway read per call), Sink is an io.Writer that loops until the whole
// buffer is transferred, and Stream combines both with a single byte of
// lookahead so byte-oriented decoders can consume it without the bridge ever
// reading ahead of what the caller asked for.
package bridge
