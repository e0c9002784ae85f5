// Package errors provides structured error types for the wasm-decoder library.
//
// Errors are categorized by Phase (which decoding layer failed) and Kind (error
// category). Each Error carries the byte offset at which decoding stopped and,
// when known, the section it surfaced in.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSection, errors.KindMalformed).
//		At(offset).
//		Section("import").
//		Detail("unknown import kind 0x%02x", kind).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnexpectedEOF(errors.PhasePrimitive, offset, "u32")
//	err := errors.SizeMismatch("code", offset, declared, consumed)
//
// All errors implement the standard error interface and support errors.Is/As.
// The Err* sentinels match any error of the same Kind:
//
//	if errors.Is(err, werrors.ErrUnexpectedEOF) { ... }
package errors
