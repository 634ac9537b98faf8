package bridge

// Option configures a Source, Sink or Stream.
type Option func(*options)

type options struct {
	maxTransfer     int
	maxZeroProgress int
}

// WithMaxTransfer bounds the number of bytes requested by one gateway call.
// Values <= 0 are ignored.
func WithMaxTransfer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTransfer = n
		}
	}
}

// WithMaxZeroProgress sets how many consecutive zero-byte transfers are
// retried before the operation fails. Negative values are ignored.
func WithMaxZeroProgress(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxZeroProgress = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		maxTransfer:     DefaultMaxTransfer,
		maxZeroProgress: DefaultMaxZeroProgress,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
