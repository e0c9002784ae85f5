package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates which decoding layer produced the error
type Phase string

const (
	PhasePrimitive Phase = "primitive" // bytes, varints, names, vectors
	PhaseHeader    Phase = "header"    // magic and version
	PhaseSection   Phase = "section"   // section framing and dispatch
	PhaseType      Phase = "type"      // value types, limits, function types
	PhaseInstr     Phase = "instr"     // opcodes, immediates, nesting
	PhaseValidate  Phase = "validate"  // opt-in structural checks
)

// Kind categorizes the error
type Kind string

const (
	KindUnexpectedEOF       Kind = "unexpected_eof"
	KindMalformed           Kind = "malformed"
	KindBadMagic            Kind = "bad_magic"
	KindUnsupportedVersion  Kind = "unsupported_version"
	KindSectionSizeMismatch Kind = "section_size_mismatch"
	KindDuplicateSection    Kind = "duplicate_section"
	KindNestingTooDeep      Kind = "nesting_too_deep"
	KindInvalid             Kind = "invalid"
)

// Sentinels for use with errors.Is. They match any phase.
var (
	ErrUnexpectedEOF       = &Error{Kind: KindUnexpectedEOF}
	ErrMalformed           = &Error{Kind: KindMalformed}
	ErrBadMagic            = &Error{Kind: KindBadMagic}
	ErrUnsupportedVersion  = &Error{Kind: KindUnsupportedVersion}
	ErrSectionSizeMismatch = &Error{Kind: KindSectionSizeMismatch}
	ErrDuplicateSection    = &Error{Kind: KindDuplicateSection}
	ErrNestingTooDeep      = &Error{Kind: KindNestingTooDeep}
	ErrInvalid             = &Error{Kind: KindInvalid}
)

// NoOffset marks an error that is not tied to a byte position.
const NoOffset int64 = -1

// Error is the structured error type returned by every decode operation
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Section string
	Detail  string
	Offset  int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Section != "" {
		b.WriteString(" in ")
		b.WriteString(e.Section)
		b.WriteString(" section")
	}

	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset 0x%x", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kinds must agree; the phase
// only has to agree when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// OffsetOf returns the byte offset recorded in err's chain, or NoOffset.
func OffsetOf(err error) int64 {
	var e *Error
	if errors.As(err, &e) {
		return e.Offset
	}
	return NoOffset
}

// InSection records the section an error surfaced in, unless a more specific
// section was already recorded. Non-structured errors are returned as is.
func InSection(err error, section string) error {
	var e *Error
	if errors.As(err, &e) && e.Section == "" {
		e.Section = section
	}
	return err
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: NoOffset,
		},
	}
}

// At sets the byte offset
func (b *Builder) At(offset int64) *Builder {
	b.err.Offset = offset
	return b
}

// Section sets the section name
func (b *Builder) Section(name string) *Builder {
	b.err.Section = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnexpectedEOF creates an error for input that ended before a value was complete
func UnexpectedEOF(phase Phase, offset int64, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnexpectedEOF,
		Offset: offset,
		Detail: fmt.Sprintf("input ended while reading %s", what),
	}
}

// Malformed creates a grammar violation error
func Malformed(phase Phase, offset int64, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindMalformed,
		Offset: offset,
		Detail: detail,
	}
}

// InvalidTag creates a malformed error for an unrecognized tag byte
func InvalidTag(phase Phase, offset int64, what string, tag byte) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformed,
		Offset: offset,
		Detail: fmt.Sprintf("invalid %s 0x%02x", what, tag),
		Value:  tag,
	}
}

// Overflow creates a malformed error for a varint that does not fit its target width
func Overflow(offset int64, bits int) *Error {
	return &Error{
		Phase:  PhasePrimitive,
		Kind:   KindMalformed,
		Offset: offset,
		Detail: fmt.Sprintf("integer representation too long for %d bits", bits),
		Value:  bits,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(offset int64, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhasePrimitive,
		Kind:   KindMalformed,
		Offset: offset,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// SizeMismatch creates an error for a frame whose decoder consumed a different
// byte count than its header declared
func SizeMismatch(section string, offset int64, declared, consumed int64) *Error {
	return &Error{
		Phase:   PhaseSection,
		Kind:    KindSectionSizeMismatch,
		Section: section,
		Offset:  offset,
		Detail:  fmt.Sprintf("declared %d bytes, consumed %d", declared, consumed),
		Value:   consumed,
	}
}

// Duplicate creates a duplicate section error
func Duplicate(section string, offset int64) *Error {
	return &Error{
		Phase:   PhaseSection,
		Kind:    KindDuplicateSection,
		Section: section,
		Offset:  offset,
		Detail:  "section may appear at most once",
	}
}

// TooDeep creates a nesting guard error
func TooDeep(offset int64, limit int) *Error {
	return &Error{
		Phase:  PhaseInstr,
		Kind:   KindNestingTooDeep,
		Offset: offset,
		Detail: fmt.Sprintf("structured control nesting exceeds %d", limit),
		Value:  limit,
	}
}

// Invalid creates a validation error
func Invalid(detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalid,
		Offset: NoOffset,
		Detail: detail,
	}
}
