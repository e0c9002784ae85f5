package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-decoder/errors"
)

func u32p(v uint32) *uint32 { return &v }

func TestValidate_Valid(t *testing.T) {
	m := &Module{
		Type: &TypeSection{Types: []FuncType{
			{Params: []ValType{ValI32}, Results: []ValType{ValI32}},
			{},
		}},
		Function: &FunctionSection{Types: []TypeIdx{0, 1}},
		Code:     &CodeSection{Codes: []Code{{}, {}}},
		Memory:   &MemorySection{Memories: []MemType{{Limits: Limits{Min: 1}}}},
		Export: &ExportSection{Exports: []Export{
			{Name: "add", Kind: ExternFunc, Idx: 0},
			{Name: "memory", Kind: ExternMemory, Idx: 0},
		}},
		Start: &StartSection{Func: 1},
	}
	require.NoError(t, m.Validate())
}

func TestValidate_ValidWithImports(t *testing.T) {
	m := &Module{
		Type: &TypeSection{Types: []FuncType{{Params: []ValType{ValI32}, Results: []ValType{ValI32}}}},
		Import: &ImportSection{Imports: []Import{
			{Module: "env", Name: "add", Desc: ImportDesc{Kind: ExternFunc, Type: 0}},
			{Module: "env", Name: "g", Desc: ImportDesc{Kind: ExternGlobal, Global: &GlobalType{ValType: ValI32}}},
		}},
		Export: &ExportSection{Exports: []Export{
			{Name: "add", Kind: ExternFunc, Idx: 0},
			{Name: "g", Kind: ExternGlobal, Idx: 0},
		}},
	}
	require.NoError(t, m.Validate())
}

func TestValidate_Sample(t *testing.T) {
	m, err := DecodeAndValidate(sampleModule(), DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestValidate_Invalid(t *testing.T) {
	oneType := &TypeSection{Types: []FuncType{{}}}

	tests := []struct {
		name   string
		module *Module
		msg    string
	}{
		{
			name: "function type index",
			module: &Module{
				Type:     oneType,
				Function: &FunctionSection{Types: []TypeIdx{5}},
				Code:     &CodeSection{Codes: []Code{{}}},
			},
			msg: "invalid type index 5",
		},
		{
			name: "import type index",
			module: &Module{
				Import: &ImportSection{Imports: []Import{{Module: "a", Name: "b", Desc: ImportDesc{Kind: ExternFunc, Type: 1}}}},
			},
			msg: "(a.b) references invalid type index 1",
		},
		{
			name: "code count",
			module: &Module{
				Type:     oneType,
				Function: &FunctionSection{Types: []TypeIdx{0, 0}},
				Code:     &CodeSection{Codes: []Code{{}}},
			},
			msg: "function and code section counts differ",
		},
		{
			name: "code without functions",
			module: &Module{
				Code: &CodeSection{Codes: []Code{{}}},
			},
			msg: "counts differ: 0 vs 1",
		},
		{
			name: "data count",
			module: &Module{
				DataCount: &DataCountSection{Count: 5},
				Memory:    &MemorySection{Memories: []MemType{{Limits: Limits{Min: 1}}}},
				Data:      &DataSection{Data: []Data{{Init: []byte{1, 2, 3}}}},
			},
			msg: "data count section declares 5",
		},
		{
			name:   "data count without data",
			module: &Module{DataCount: &DataCountSection{Count: 1}},
			msg:    "data section has 0",
		},
		{
			name: "duplicate export",
			module: &Module{
				Type:     oneType,
				Function: &FunctionSection{Types: []TypeIdx{0}},
				Code:     &CodeSection{Codes: []Code{{}}},
				Memory:   &MemorySection{Memories: []MemType{{}}},
				Export: &ExportSection{Exports: []Export{
					{Name: "foo", Kind: ExternFunc, Idx: 0},
					{Name: "foo", Kind: ExternMemory, Idx: 0},
				}},
			},
			msg: "duplicate export name",
		},
		{
			name: "export function index",
			module: &Module{
				Export: &ExportSection{Exports: []Export{{Name: "f", Kind: ExternFunc, Idx: 10}}},
			},
			msg: "invalid func index 10",
		},
		{
			name: "export global index",
			module: &Module{
				Export: &ExportSection{Exports: []Export{{Name: "g", Kind: ExternGlobal, Idx: 1}}},
			},
			msg: "invalid global index 1",
		},
		{
			name: "element table index",
			module: &Module{
				Table:   &TableSection{Tables: []TableType{{ElemType: FuncRef}}},
				Element: &ElementSection{Elems: []Elem{{Mode: ModeActive, Table: 3}}},
			},
			msg: "invalid table index 3",
		},
		{
			name: "data memory index",
			module: &Module{
				Data: &DataSection{Data: []Data{{Mode: ModeActive, Memory: 0}}},
			},
			msg: "invalid memory index 0",
		},
		{
			name: "start signature",
			module: &Module{
				Type:     &TypeSection{Types: []FuncType{{Params: []ValType{ValI32}}}},
				Function: &FunctionSection{Types: []TypeIdx{0}},
				Code:     &CodeSection{Codes: []Code{{}}},
				Start:    &StartSection{Func: 0},
			},
			msg: "start function must have signature () -> (), got (i32) -> ()",
		},
		{
			name:   "start index",
			module: &Module{Start: &StartSection{Func: 2}},
			msg:    "start function 2 has no type",
		},
		{
			name:   "memory min above max",
			module: &Module{Memory: &MemorySection{Memories: []MemType{{Limits: Limits{Min: 3, Max: u32p(2)}}}}},
			msg:    "limits min (3) exceeds max (2)",
		},
		{
			name:   "memory too large",
			module: &Module{Memory: &MemorySection{Memories: []MemType{{Limits: Limits{Min: MemoryMaxPages + 1}}}}},
			msg:    "min pages 65537 exceeds maximum 65536",
		},
		{
			name: "imported memory max too large",
			module: &Module{Import: &ImportSection{Imports: []Import{{
				Module: "env", Name: "mem",
				Desc: ImportDesc{Kind: ExternMemory, Memory: &MemType{Limits: Limits{Max: u32p(MemoryMaxPages + 1)}}},
			}}}},
			msg: "imported memory 0: max pages",
		},
		{
			name:   "table min above max",
			module: &Module{Table: &TableSection{Tables: []TableType{{Limits: Limits{Min: 10, Max: u32p(1)}}}}},
			msg:    "table 0: limits min (10) exceeds max (1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.module.Validate()
			require.ErrorIs(t, err, errors.ErrInvalid)
			require.Contains(t, err.Error(), tt.msg)
			require.Equal(t, errors.NoOffset, errors.OffsetOf(err))
		})
	}
}

func TestValidate_PassiveSegmentsNeedNoTarget(t *testing.T) {
	m := &Module{
		Element: &ElementSection{Elems: []Elem{{Mode: ModePassive, Table: 9}, {Mode: ModeDeclarative}}},
		Data:    &DataSection{Data: []Data{{Mode: ModePassive, Memory: 4}}},
	}
	require.NoError(t, m.Validate())
}

func TestDecodeAndValidate_DecodeError(t *testing.T) {
	_, err := DecodeAndValidate([]byte{0x00}, DefaultOptions())
	require.ErrorIs(t, err, errors.ErrUnexpectedEOF)

	input := mod(sec(SectionMemory, vec([]byte{0x01, 0x02, 0x01})))
	_, err = DecodeAndValidate(input, DefaultOptions())
	require.ErrorIs(t, err, errors.ErrInvalid)
}
