package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-decoder/errors"
	"github.com/wippyai/wasm-decoder/wasm/internal/binary"
)

func TestReadValType(t *testing.T) {
	tags := map[byte]string{
		0x7f: "i32",
		0x7e: "i64",
		0x7d: "f32",
		0x7c: "f64",
		0x7b: "v128",
		0x70: "funcref",
		0x6f: "externref",
	}
	for b := 0; b < 256; b++ {
		vt, err := readValType(binary.NewBytesReader([]byte{byte(b)}))
		name, known := tags[byte(b)]
		if !known {
			require.ErrorIs(t, err, errors.ErrMalformed, "tag 0x%02x", b)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, name, vt.String())
	}
}

func TestValType_Classes(t *testing.T) {
	require.True(t, ValI64.IsNum())
	require.False(t, ValV128.IsNum())
	require.True(t, ValV128.IsVec())
	require.True(t, ValExternRef.IsRef())
	require.False(t, ValF32.IsRef())
	require.Equal(t, "valtype(0x40)", ValType(0x40).String())
	require.Equal(t, ValF32, F32.ValType())
	require.Equal(t, ValFuncRef, FuncRef.ValType())
}

func TestReadFuncType(t *testing.T) {
	ft, err := readFuncType(binary.NewBytesReader([]byte{0x60, 0x02, 0x7f, 0x7b, 0x02, 0x7c, 0x70}))
	require.NoError(t, err)
	require.Equal(t, FuncType{
		Params:  []ValType{ValI32, ValV128},
		Results: []ValType{ValF64, ValFuncRef},
	}, ft)
	require.Equal(t, "(i32, v128) -> (f64, funcref)", ft.String())

	_, err = readFuncType(binary.NewBytesReader([]byte{0x61, 0x00, 0x00}))
	require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseType, Kind: errors.KindMalformed})

	_, err = readFuncType(binary.NewBytesReader([]byte{0x60, 0x02, 0x7f}))
	require.ErrorIs(t, err, errors.ErrUnexpectedEOF)
}

func TestReadLimits(t *testing.T) {
	l, err := readLimits(binary.NewBytesReader([]byte{0x00, 0x05}))
	require.NoError(t, err)
	require.Equal(t, Limits{Min: 5}, l)
	require.Equal(t, "{min 5}", l.String())

	l, err = readLimits(binary.NewBytesReader([]byte{0x01, 0x05, 0x80, 0x01}))
	require.NoError(t, err)
	require.Equal(t, uint32(5), l.Min)
	require.Equal(t, uint32(128), *l.Max)
	require.Equal(t, "{min 5, max 128}", l.String())

	// min > max decodes; it is rejected by Validate.
	l, err = readLimits(binary.NewBytesReader([]byte{0x01, 0x05, 0x01}))
	require.NoError(t, err)
	require.Equal(t, uint32(1), *l.Max)

	for _, flag := range []byte{0x02, 0x03, 0x80} {
		_, err = readLimits(binary.NewBytesReader([]byte{flag, 0x00, 0x00}))
		require.ErrorIs(t, err, errors.ErrMalformed, "flag 0x%02x", flag)
	}

	_, err = readLimits(binary.NewBytesReader([]byte{0x01, 0x05}))
	require.ErrorIs(t, err, errors.ErrUnexpectedEOF)
}

func TestReadTableType(t *testing.T) {
	tt, err := readTableType(binary.NewBytesReader([]byte{0x6f, 0x00, 0x00}))
	require.NoError(t, err)
	require.Equal(t, TableType{ElemType: ExternRef}, tt)

	_, err = readTableType(binary.NewBytesReader([]byte{0x7f, 0x00, 0x00}))
	require.ErrorIs(t, err, errors.ErrMalformed)
}

func TestReadGlobalType(t *testing.T) {
	tests := []struct {
		input []byte
		want  GlobalType
		err   *errors.Error
	}{
		{[]byte{0x7f, 0x00}, GlobalType{ValType: ValI32, Mut: Const}, nil},
		{[]byte{0x7b, 0x01}, GlobalType{ValType: ValV128, Mut: Var}, nil},
		{[]byte{0x6f, 0x01}, GlobalType{ValType: ValExternRef, Mut: Var}, nil},
		{[]byte{0x7f, 0x02}, GlobalType{}, errors.ErrMalformed},
		{[]byte{0x40, 0x00}, GlobalType{}, errors.ErrMalformed},
		{[]byte{0x7f}, GlobalType{}, errors.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		gt, err := readGlobalType(binary.NewBytesReader(tt.input))
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err, "%x", tt.input)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, gt)
	}
	require.Equal(t, "var", Var.String())
	require.Equal(t, "const", Const.String())
}

func TestStringers(t *testing.T) {
	require.Equal(t, "datacount", SectionDataCount.String())
	require.Equal(t, "section(14)", SectionID(14).String())
	require.Equal(t, "memory", ExternMemory.String())
	require.Equal(t, "declarative", ModeDeclarative.String())
	require.Equal(t, "i32.trunc_sat_f64_u", miscName(MiscI32TruncSatF64U))
	require.Equal(t, "opcode(0xff)", Opcode(0xff).String())
	require.Equal(t, "(result f32)", BlockType{Kind: BlockValue, Val: ValF32}.String())
	require.Equal(t, "(type 4)", BlockType{Kind: BlockIndex, Index: 4}.String())
	require.Equal(t, "", BlockType{}.String())
	require.Equal(t, "control", FamilyControl.String())
	require.Equal(t, "code@0x20+5", Span{ID: SectionCode, Offset: 0x20, Size: 5}.String())
}
