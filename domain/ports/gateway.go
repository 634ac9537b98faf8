package ports

import (
	"github.com/reglet-dev/triebridge/domain/entities"
	"github.com/reglet-dev/triebridge/internal/abi"
)

// EOF is the end-of-stream sentinel returned by Gateway.Read and Gateway.Write.
// It is distinct from every valid byte count.
const EOF = -1

// ForeignGateway is the raw far-side ABI: three entry points addressed by
// handle, each returning an out-of-band error slot that is 0 on success.
// A non-zero slot is owned by the caller and must be released exactly once.
type ForeignGateway interface {
	// Check reports whether iid supports every capability in caps.
	Check(iid entities.Handle, caps entities.Capability) (bool, abi.Ptr)

	// Read fills up to len(p) bytes. It returns abi.EOF at end of stream.
	Read(iid entities.Handle, p []byte) (int64, abi.Ptr)

	// Write transfers up to len(p) bytes. It returns abi.EOF if the
	// destination is closed.
	Write(iid entities.Handle, p []byte) (int64, abi.Ptr)
}

// Gateway is the near-side view of the foreign entry points with error slots
// already converted to Go errors.
type Gateway interface {
	// Probe reports whether iid supports every capability in caps.
	// A transport failure is an error, not a false result.
	Probe(iid entities.Handle, caps entities.Capability) (bool, error)

	// Read fills up to len(p) bytes and returns the count, or EOF.
	// Short reads are not errors.
	Read(iid entities.Handle, p []byte) (int, error)

	// Write transfers up to len(p) bytes and returns the count, or EOF.
	// Short writes are not errors.
	Write(iid entities.Handle, p []byte) (int, error)
}
