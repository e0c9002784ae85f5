package wasm

import "go.uber.org/zap"

// DefaultMaxNestingDepth bounds how many block, loop and if constructs may be
// open at once inside one expression.
const DefaultMaxNestingDepth = 1024

// Options configures decoder behavior.
type Options struct {
	// Logger receives debug traces. Nil means the package logger.
	Logger *zap.Logger

	// MaxNestingDepth limits structured control nesting. Values <= 0 use
	// DefaultMaxNestingDepth.
	MaxNestingDepth int

	// AllowDuplicateSections keeps the last occurrence of a repeated
	// non-custom section instead of failing.
	AllowDuplicateSections bool

	// AllowNonCanonicalLEB128 accepts zero-padded LEB128 encodings that still
	// fit the target width.
	AllowNonCanonicalLEB128 bool

	// ExtendedOpcodes enables the 0xFC and 0xFD prefixed instructions
	// (saturating truncation, bulk memory, table operations and SIMD) and
	// multi-memory memargs.
	ExtendedOpcodes bool
}

// DefaultOptions returns the strict default decoder configuration.
func DefaultOptions() Options {
	return Options{
		MaxNestingDepth: DefaultMaxNestingDepth,
	}
}

func (o Options) maxDepth() int {
	if o.MaxNestingDepth <= 0 {
		return DefaultMaxNestingDepth
	}
	return o.MaxNestingDepth
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return Logger()
}
