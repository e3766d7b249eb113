package entab

import "github.com/bovee/entab/filetype"

// Options collects dispatch.New's construction-time configuration. There
// is no other configuration surface: this is a library, not a service.
type Options struct {
	// BufferSize is the initial ReadBuffer allocation, passed through to
	// whichever format package's sized constructor dispatch selects.
	// DefaultBufferSize is used if left at 0.
	BufferSize int
	// Override, if not filetype.Unknown, skips sniffing entirely and
	// forces dispatch to treat the stream as this format.
	Override filetype.FileType
}

// Option mutates an Options value, following the functional-options
// pattern used for construction-time configuration throughout this
// module.
type Option func(*Options)

// WithBufferSize overrides the initial ReadBuffer allocation.
func WithBufferSize(n int) Option {
	return func(o *Options) { o.BufferSize = n }
}

// WithFormat skips sniffing and forces dispatch to treat the stream as ft.
func WithFormat(ft filetype.FileType) Option {
	return func(o *Options) { o.Override = ft }
}

// ApplyOptions folds opts onto a fresh Options value.
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
