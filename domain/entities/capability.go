package entities

import "strings"

// Handle is an opaque reference to a host-owned byte stream.
// Handle 0 is reserved and never issued.
type Handle int32

// Capability is a bitset describing the operations a handle supports.
type Capability uint32

const (
	// Readable means the handle's object implements io.Reader.
	Readable Capability = 1 << 0

	// Writable means the handle's object implements io.Writer.
	Writable Capability = 1 << 1

	// ReadWrite is shorthand for Readable|Writable.
	ReadWrite = Readable | Writable
)

// Has reports whether every bit in want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Missing returns the bits of want that are not set in c.
func (c Capability) Missing(want Capability) Capability {
	return want &^ c
}

// String returns the capability names joined with "|" (e.g. "read|write").
func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c&Readable != 0 {
		parts = append(parts, "read")
	}
	if c&Writable != 0 {
		parts = append(parts, "write")
	}
	if rest := c &^ ReadWrite; rest != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// Interfaces returns the Go interface names backing each capability bit,
// in bit order. It is used to build error messages.
func (c Capability) Interfaces() []string {
	var names []string
	if c&Readable != 0 {
		names = append(names, "io.Reader")
	}
	if c&Writable != 0 {
		names = append(names, "io.Writer")
	}
	return names
}
