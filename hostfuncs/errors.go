package hostfuncs

import "fmt"

// NewPanicError converts a recovered panic value into an error naming the
// entry point that panicked.
func NewPanicError(op Op, panicValue any) error {
	switch v := panicValue.(type) {
	case error:
		return fmt.Errorf("%s: panic: %w", op, v)
	case string:
		return fmt.Errorf("%s: panic: %s", op, v)
	default:
		return fmt.Errorf("%s: panic recovered: %v", op, v)
	}
}
