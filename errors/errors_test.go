package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseSection,
				Kind:    KindSectionSizeMismatch,
				Section: "code",
				Offset:  0x2a,
				Detail:  "declared 4 bytes, consumed 3",
			},
			contains: []string{"[section]", "section_size_mismatch", "in code section", "offset 0x2a", "declared 4 bytes"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase:  PhasePrimitive,
				Kind:   KindUnexpectedEOF,
				Offset: NoOffset,
			},
			contains: []string{"[primitive]", "unexpected_eof"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHeader,
				Kind:   KindBadMagic,
				Offset: 0,
				Detail: "bad magic",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[header]", "bad_magic", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				require.Contains(t, msg, s)
			}
		})
	}
}

func TestError_NoOffsetOmitted(t *testing.T) {
	err := Invalid("limits")
	require.NotContains(t, err.Error(), "offset")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseSection,
		Kind:  KindMalformed,
		Cause: cause,
	}

	require.ErrorIs(t, err.Unwrap(), cause)
	require.ErrorIs(t, errors.Unwrap(err), cause)
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseInstr,
		Kind:   KindMalformed,
		Offset: 7,
	}

	require.True(t, err.Is(&Error{Phase: PhaseInstr, Kind: KindMalformed}), "same phase and kind")
	require.False(t, err.Is(&Error{Phase: PhaseType, Kind: KindMalformed}), "different phase")
	require.False(t, err.Is(&Error{Phase: PhaseInstr, Kind: KindUnexpectedEOF}), "different kind")
	require.True(t, err.Is(ErrMalformed), "sentinel matches any phase")
	require.False(t, err.Is(errors.New("malformed")))

	wrapped := fmt.Errorf("decode: %w", err)
	require.ErrorIs(t, wrapped, ErrMalformed)
	require.NotErrorIs(t, wrapped, ErrNestingTooDeep)
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseSection, KindMalformed).
		At(12).
		Section("import").
		Value(4).
		Cause(cause).
		Detail("unknown import kind 0x%02x", 4).
		Build()

	require.Equal(t, PhaseSection, err.Phase)
	require.Equal(t, KindMalformed, err.Kind)
	require.Equal(t, int64(12), err.Offset)
	require.Equal(t, "import", err.Section)
	require.Equal(t, 4, err.Value)
	require.ErrorIs(t, err.Cause, cause)
	require.Equal(t, "unknown import kind 0x04", err.Detail)
}

func TestBuilder_DefaultsToNoOffset(t *testing.T) {
	err := New(PhaseType, KindMalformed).Detail("plain").Build()
	require.Equal(t, NoOffset, err.Offset)
	require.Equal(t, "plain", err.Detail)
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		kind  Kind
		phase Phase
	}{
		{"UnexpectedEOF", UnexpectedEOF(PhasePrimitive, 3, "u32"), KindUnexpectedEOF, PhasePrimitive},
		{"Malformed", Malformed(PhaseInstr, 3, "invalid opcode 0x%02x", 0xff), KindMalformed, PhaseInstr},
		{"InvalidTag", InvalidTag(PhaseType, 3, "value type", 0x40), KindMalformed, PhaseType},
		{"Overflow", Overflow(3, 32), KindMalformed, PhasePrimitive},
		{"InvalidUTF8", InvalidUTF8(3, []byte{0xff, 0xfe}), KindMalformed, PhasePrimitive},
		{"SizeMismatch", SizeMismatch("type", 3, 5, 4), KindSectionSizeMismatch, PhaseSection},
		{"Duplicate", Duplicate("type", 3), KindDuplicateSection, PhaseSection},
		{"TooDeep", TooDeep(3, 8), KindNestingTooDeep, PhaseInstr},
		{"Invalid", Invalid("function %d", 2), KindInvalid, PhaseValidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.kind, tt.err.Kind)
			require.Equal(t, tt.phase, tt.err.Phase)
			require.NotEmpty(t, tt.err.Detail)
		})
	}

	require.Equal(t, "invalid opcode 0xff", Malformed(PhaseInstr, 0, "invalid opcode 0x%02x", 0xff).Detail)
	require.Equal(t, "invalid value type 0x40", InvalidTag(PhaseType, 0, "value type", 0x40).Detail)
}

func TestInvalidUTF8_TruncatesPreview(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = 0xff
	}
	err := InvalidUTF8(0, data)
	require.Contains(t, err.Detail, fmt.Sprintf("%x", data[:32]))
	require.NotContains(t, err.Detail, fmt.Sprintf("%x", data[:33]))
}

func TestKindOfAndOffsetOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", SizeMismatch("data", 99, 1, 2))
	require.Equal(t, KindSectionSizeMismatch, KindOf(err))
	require.Equal(t, int64(99), OffsetOf(err))

	plain := errors.New("plain")
	require.Equal(t, Kind(""), KindOf(plain))
	require.Equal(t, NoOffset, OffsetOf(plain))
}

func TestInSection(t *testing.T) {
	err := Malformed(PhaseType, 4, "bad")
	require.Same(t, err, InSection(err, "global"))
	require.Equal(t, "global", err.Section)

	// the innermost section wins
	InSection(err, "code")
	require.Equal(t, "global", err.Section)

	plain := errors.New("plain")
	require.Equal(t, plain, InSection(plain, "code"))
}
