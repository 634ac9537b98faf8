package entities

import "fmt"

// Error types used in ErrorDetail.Type.
const (
	ErrorTypeCapability  = "capability"
	ErrorTypeTransport   = "transport"
	ErrorTypeProtocol    = "protocol"
	ErrorTypeConsistency = "consistency"
	ErrorTypeMemory      = "memory"
	ErrorTypeConfig      = "config"
	ErrorTypeInternal    = "internal"
)

// ErrorDetail is the structured form of a bulk operation failure, for
// callers that report errors as data rather than Go values.
type ErrorDetail struct {
	// Wrapped is the detail of the underlying cause, if it has one.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	Message string `json:"message"`

	// Type is one of the ErrorType constants.
	Type string `json:"type"`

	// Code narrows the type: the operation, field or limit involved.
	Code string `json:"code,omitempty"`

	// IsEOF reports that the stream was closed under a write.
	IsEOF bool `json:"is_eof,omitempty"`
}

// Error implements the error interface. Internal errors are not prefixed
// with their type.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = e.Type + ": " + msg
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}

// WithCode sets the code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// Wrap sets the underlying cause and returns e.
func (e *ErrorDetail) Wrap(cause *ErrorDetail) *ErrorDetail {
	e.Wrapped = cause
	return e
}
