package wasm

import (
	"fmt"
	"strings"
)

// Index spaces. Each is a distinct type so that indices from different spaces
// cannot be mixed without an explicit conversion.
type (
	TypeIdx   uint32
	FuncIdx   uint32
	TableIdx  uint32
	MemIdx    uint32
	GlobalIdx uint32
	ElemIdx   uint32
	DataIdx   uint32
	LocalIdx  uint32
	LabelIdx  uint32
)

// ValType is a value type, identified by its binary tag.
type ValType byte

// NumType is the numeric subset of ValType.
type NumType byte

// RefType is the reference subset of ValType.
type RefType byte

const (
	I32 NumType = NumType(ValI32)
	I64 NumType = NumType(ValI64)
	F32 NumType = NumType(ValF32)
	F64 NumType = NumType(ValF64)
)

const (
	FuncRef   RefType = RefType(ValFuncRef)
	ExternRef RefType = RefType(ValExternRef)
)

// IsNum reports whether v is one of i32, i64, f32, f64.
func (v ValType) IsNum() bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64:
		return true
	}
	return false
}

// IsVec reports whether v is v128.
func (v ValType) IsVec() bool {
	return v == ValV128
}

// IsRef reports whether v is funcref or externref.
func (v ValType) IsRef() bool {
	return v == ValFuncRef || v == ValExternRef
}

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExternRef:
		return "externref"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(v))
	}
}

// ValType widens n to a value type.
func (n NumType) ValType() ValType { return ValType(n) }

func (n NumType) String() string { return ValType(n).String() }

// ValType widens r to a value type.
func (r RefType) ValType() ValType { return ValType(r) }

func (r RefType) String() string { return ValType(r).String() }

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) String() string {
	return "(" + joinTypes(f.Params) + ") -> (" + joinTypes(f.Results) + ")"
}

func joinTypes(ts []ValType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Limits describes size constraints for tables and memories. Max >= Min is a
// validation concern and is not enforced while decoding.
type Limits struct {
	Max *uint32
	Min uint32
}

func (l Limits) String() string {
	if l.Max == nil {
		return fmt.Sprintf("{min %d}", l.Min)
	}
	return fmt.Sprintf("{min %d, max %d}", l.Min, *l.Max)
}

// TableType describes a table with element type and size limits.
type TableType struct {
	Limits   Limits
	ElemType RefType
}

// MemType describes a linear memory; limits are in 64KiB pages.
type MemType struct {
	Limits Limits
}

// Mut is a global's mutability.
type Mut byte

const (
	Const Mut = 0x00
	Var   Mut = 0x01
)

func (m Mut) String() string {
	if m == Var {
		return "var"
	}
	return "const"
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	ValType ValType
	Mut     Mut
}

// ExternKind identifies what an import or export refers to.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0x00
	ExternTable  ExternKind = 0x01
	ExternMemory ExternKind = 0x02
	ExternGlobal ExternKind = 0x03
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	default:
		return fmt.Sprintf("extern(0x%02x)", byte(k))
	}
}

// Import represents an imported function, table, memory or global.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes an imported item. Only the field selected by Kind is set.
type ImportDesc struct {
	Table  *TableType
	Memory *MemType
	Global *GlobalType
	Type   TypeIdx
	Kind   ExternKind
}

// Export describes an exported item. Idx lives in the index space named by
// Kind; use the typed accessors to convert it.
type Export struct {
	Name string
	Kind ExternKind
	Idx  uint32
}

// Func returns the exported function index.
func (e Export) Func() FuncIdx { return FuncIdx(e.Idx) }

// Table returns the exported table index.
func (e Export) Table() TableIdx { return TableIdx(e.Idx) }

// Memory returns the exported memory index.
func (e Export) Memory() MemIdx { return MemIdx(e.Idx) }

// Global returns the exported global index.
func (e Export) Global() GlobalIdx { return GlobalIdx(e.Idx) }

// Global represents a global variable with type and initializer.
type Global struct {
	Type GlobalType
	Init Expr
}

// Local represents a run of Count locals sharing one type.
type Local struct {
	Count uint32
	Type  ValType
}

// Code is one entry of the code section.
type Code struct {
	Locals []Local
	Body   Expr
	Size   uint32 // declared byte length of the entry
}

// Func is a module-defined function: its declared type joined with its code.
type Func struct {
	Locals []Local
	Body   Expr
	Type   TypeIdx
}

// SegmentMode says when a segment is applied.
type SegmentMode byte

const (
	ModeActive SegmentMode = iota
	ModePassive
	ModeDeclarative
)

func (m SegmentMode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModePassive:
		return "passive"
	case ModeDeclarative:
		return "declarative"
	default:
		return fmt.Sprintf("mode(%d)", byte(m))
	}
}

// Elem represents an element segment. Flags 0-3 carry function indices in
// Funcs; flags 4-7 carry initializer expressions in Exprs.
//
//   - 0: active, table 0, offset, vec(funcidx)
//   - 1: passive, elemkind, vec(funcidx)
//   - 2: active, table, offset, elemkind, vec(funcidx)
//   - 3: declarative, elemkind, vec(funcidx)
//   - 4: active, table 0, offset, vec(expr)
//   - 5: passive, reftype, vec(expr)
//   - 6: active, table, offset, reftype, vec(expr)
//   - 7: declarative, reftype, vec(expr)
type Elem struct {
	Offset Expr
	Funcs  []FuncIdx
	Exprs  []Expr
	Flags  uint32
	Table  TableIdx
	Mode   SegmentMode
	Type   RefType
}

// Data represents a data segment.
//
//   - 0: active, memory 0, offset, vec(byte)
//   - 1: passive, vec(byte)
//   - 2: active, memory, offset, vec(byte)
type Data struct {
	Offset Expr
	Init   []byte
	Flags  uint32
	Memory MemIdx
	Mode   SegmentMode
}

// CustomSection holds a named custom section's opaque payload.
type CustomSection struct {
	Name string
	Data []byte
}
