// Package errors provides the error taxonomy for bulk trie operations.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/triebridge/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// ErrWriteClosed is wrapped by a ProtocolError when the write target reports
// end-of-stream before the full buffer was transferred.
var ErrWriteClosed = stdErrors.New("EOF while writing to stream")

// ErrTooManyBytes is wrapped by a ProtocolError when a gateway call reports
// more bytes than were requested.
var ErrTooManyBytes = stdErrors.New("returned too many bytes")

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	// If the error is already a *ErrorDetail (entity), use it directly.
	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	// Generic error - categorize as internal
	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// CapabilityError means a handle lacks a capability required by the bridge.
// It is returned at bridge construction, before any read or write.
type CapabilityError struct {
	Err      error // Probe failure, if the probe itself failed
	Handle   entities.Handle
	Required entities.Capability
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing capability %s on iid %d: %v", e.Required, e.Handle, e.Err)
	}
	return fmt.Sprintf("missing capability %s on iid %d", e.Required, e.Handle)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CapabilityError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeCapability, Code: e.Required.String()}
}

// ForeignError carries an error message produced on the far side of the
// gateway. The message has already been copied out of the far-side heap.
type ForeignError struct {
	Message string
}

func (e *ForeignError) Error() string {
	return e.Message
}

// ToErrorDetail implements DetailedError.
func (e *ForeignError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Message, Type: entities.ErrorTypeTransport}
}

// TransportError wraps a gateway failure with the operation that hit it.
type TransportError struct {
	Err       error
	Operation string // "probe", "read" or "write"
	Handle    entities.Handle
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on iid %d failed: %v", e.Operation, e.Handle, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *TransportError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeTransport, Code: e.Operation}
}

// ProtocolError means a gateway call violated the transfer contract.
type ProtocolError struct {
	Err       error
	Operation string
	Requested int
	Returned  int64
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s of %d bytes: %v (got %d)", e.Operation, e.Requested, e.Err, e.Returned)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ProtocolError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    entities.ErrorTypeProtocol,
		Code:    e.Operation,
		IsEOF:   stdErrors.Is(e.Err, ErrWriteClosed),
	}
}

// ConsistencyError means the number of enumerated keys disagrees with the
// count the trie reports for itself.
type ConsistencyError struct {
	Expected int
	Got      int
	Overflow bool // enumeration produced more keys than expected and was cut short
}

func (e *ConsistencyError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("expected %d keys, got more", e.Expected)
	}
	return fmt.Sprintf("expected %d keys, got %d", e.Expected, e.Got)
}

// ToErrorDetail implements DetailedError.
func (e *ConsistencyError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConsistency, Code: "key_count"}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConfig, Code: e.Field}
}

// MemoryError represents a memory allocation failure.
type MemoryError struct {
	What      string // what was being allocated
	Requested int    // Requested allocation size
	Current   int    // Current total allocated
	Limit     int    // Maximum allowed
}

func (e *MemoryError) Error() string {
	what := e.What
	if what == "" {
		what = "memory"
	}
	return fmt.Sprintf("%s allocation failed: requested %d bytes, current %d bytes, limit %d bytes",
		what, e.Requested, e.Current, e.Limit)
}

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeMemory, Code: "memory_limit"}
}

// WireFormatError represents a malformed serialized trie.
type WireFormatError struct {
	Err       error
	Operation string
	Offset    int64
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("trie %s failed at offset %d: %v", e.Operation, e.Offset, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeInternal, Code: "wire_format"}
}
