package wasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Family groups instructions by what they operate on.
type Family uint8

const (
	FamilyNumeric Family = iota
	FamilyVector
	FamilyReference
	FamilyParametric
	FamilyVariable
	FamilyTable
	FamilyMemory
	FamilyControl
)

func (f Family) String() string {
	switch f {
	case FamilyNumeric:
		return "numeric"
	case FamilyVector:
		return "vector"
	case FamilyReference:
		return "reference"
	case FamilyParametric:
		return "parametric"
	case FamilyVariable:
		return "variable"
	case FamilyTable:
		return "table"
	case FamilyMemory:
		return "memory"
	case FamilyControl:
		return "control"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// Instr is a decoded instruction. The concrete type is one of NumericInstr,
// VectorInstr, ReferenceInstr, ParametricInstr, VariableInstr, TableInstr,
// MemoryInstr or ControlInstr.
type Instr interface {
	// Opcode returns the leading byte. Prefixed instructions report the
	// prefix; their sub-opcode lives on the concrete type.
	Opcode() Opcode
	Family() Family
	String() string
	isInstr()
}

// Expr is an instruction sequence. The terminating end (and any else that
// splits an if) is structural and not stored.
type Expr []Instr

// NumericInstr covers constants, comparisons, arithmetic and conversions.
type NumericInstr struct {
	// Value holds a constant's immediate: integers sign-extended to 64 bits,
	// floats as raw IEEE-754 bits.
	Value uint64
	// Sub is the 0xFC sub-opcode for saturating truncations.
	Sub  uint32
	Op   Opcode
	Type NumType
}

func (NumericInstr) isInstr()         {}
func (i NumericInstr) Opcode() Opcode { return i.Op }
func (NumericInstr) Family() Family   { return FamilyNumeric }

// I32 returns the i32.const immediate.
func (i NumericInstr) I32() int32 { return int32(i.Value) }

// I64 returns the i64.const immediate.
func (i NumericInstr) I64() int64 { return int64(i.Value) }

// F32 returns the f32.const immediate.
func (i NumericInstr) F32() float32 { return math.Float32frombits(uint32(i.Value)) }

// F64 returns the f64.const immediate.
func (i NumericInstr) F64() float64 { return math.Float64frombits(i.Value) }

func (i NumericInstr) String() string {
	switch i.Op {
	case OpI32Const:
		return "i32.const " + strconv.FormatInt(int64(i.I32()), 10)
	case OpI64Const:
		return "i64.const " + strconv.FormatInt(i.I64(), 10)
	case OpF32Const:
		return "f32.const " + strconv.FormatFloat(float64(i.F32()), 'g', -1, 32)
	case OpF64Const:
		return "f64.const " + strconv.FormatFloat(i.F64(), 'g', -1, 64)
	case OpPrefixMisc:
		return miscName(i.Sub)
	}
	return i.Op.String()
}

// VectorInstr is a 0xFD prefixed SIMD instruction.
type VectorInstr struct {
	MemArg *MemArg
	Lane   *uint8
	// Bytes holds the 16-byte immediate of v128.const and i8x16.shuffle.
	Bytes []byte
	Sub   uint32
}

func (VectorInstr) isInstr()       {}
func (VectorInstr) Opcode() Opcode { return OpPrefixSIMD }
func (VectorInstr) Family() Family { return FamilyVector }

func (i VectorInstr) String() string {
	var b strings.Builder
	b.WriteString(simdName(i.Sub))
	if i.MemArg != nil {
		b.WriteString(i.MemArg.suffix())
	}
	if i.Lane != nil {
		fmt.Fprintf(&b, " %d", *i.Lane)
	}
	if i.Bytes != nil {
		fmt.Fprintf(&b, " 0x%x", i.Bytes)
	}
	return b.String()
}

// ReferenceInstr covers ref.null, ref.is_null and ref.func.
type ReferenceInstr struct {
	Func FuncIdx
	Op   Opcode
	Type RefType
}

func (ReferenceInstr) isInstr()         {}
func (i ReferenceInstr) Opcode() Opcode { return i.Op }
func (ReferenceInstr) Family() Family   { return FamilyReference }

func (i ReferenceInstr) String() string {
	switch i.Op {
	case OpRefNull:
		return "ref.null " + i.Type.String()
	case OpRefFunc:
		return fmt.Sprintf("ref.func %d", i.Func)
	}
	return i.Op.String()
}

// ParametricInstr covers drop and both forms of select.
type ParametricInstr struct {
	// Types is set only for the typed select (0x1C).
	Types []ValType
	Op    Opcode
}

func (ParametricInstr) isInstr()         {}
func (i ParametricInstr) Opcode() Opcode { return i.Op }
func (ParametricInstr) Family() Family   { return FamilyParametric }

func (i ParametricInstr) String() string {
	if i.Op == OpSelectType {
		return "select (result " + strings.ReplaceAll(joinTypes(i.Types), ",", "") + ")"
	}
	return i.Op.String()
}

// VariableInstr accesses a local or a global.
type VariableInstr struct {
	Local  LocalIdx
	Global GlobalIdx
	Op     Opcode
}

func (VariableInstr) isInstr()         {}
func (i VariableInstr) Opcode() Opcode { return i.Op }
func (VariableInstr) Family() Family   { return FamilyVariable }

func (i VariableInstr) String() string {
	if i.Op == OpGlobalGet || i.Op == OpGlobalSet {
		return fmt.Sprintf("%s %d", i.Op, i.Global)
	}
	return fmt.Sprintf("%s %d", i.Op, i.Local)
}

// TableInstr covers table.get, table.set and the 0xFC table operations.
type TableInstr struct {
	Sub   uint32
	Table TableIdx
	// Src is the source table of table.copy.
	Src  TableIdx
	Elem ElemIdx
	Op   Opcode
}

func (TableInstr) isInstr()         {}
func (i TableInstr) Opcode() Opcode { return i.Op }
func (TableInstr) Family() Family   { return FamilyTable }

func (i TableInstr) String() string {
	if i.Op != OpPrefixMisc {
		return fmt.Sprintf("%s %d", i.Op, i.Table)
	}
	name := miscName(i.Sub)
	switch i.Sub {
	case MiscTableInit:
		return fmt.Sprintf("%s %d %d", name, i.Table, i.Elem)
	case MiscElemDrop:
		return fmt.Sprintf("%s %d", name, i.Elem)
	case MiscTableCopy:
		return fmt.Sprintf("%s %d %d", name, i.Table, i.Src)
	}
	return fmt.Sprintf("%s %d", name, i.Table)
}

// MemArg is the alignment exponent and offset of a load or store.
type MemArg struct {
	Align  uint32
	Offset uint32
	Mem    MemIdx
}

func (m MemArg) suffix() string {
	var b strings.Builder
	if m.Mem != 0 {
		fmt.Fprintf(&b, " %d", m.Mem)
	}
	if m.Offset != 0 {
		fmt.Fprintf(&b, " offset=%d", m.Offset)
	}
	fmt.Fprintf(&b, " align=%d", uint64(1)<<min(m.Align, 63))
	return b.String()
}

// MemoryInstr covers loads, stores, memory.size, memory.grow and the 0xFC
// bulk memory operations.
type MemoryInstr struct {
	Arg MemArg
	Sub uint32
	Mem MemIdx
	// Src is the source memory of memory.copy.
	Src  MemIdx
	Data DataIdx
	Op   Opcode
	// Type is the value type moved by a load or store.
	Type NumType
}

func (MemoryInstr) isInstr()         {}
func (i MemoryInstr) Opcode() Opcode { return i.Op }
func (MemoryInstr) Family() Family   { return FamilyMemory }

// IsLoad reports whether i reads from memory into a value.
func (i MemoryInstr) IsLoad() bool { return i.Op >= OpI32Load && i.Op <= OpI64Load32U }

// IsStore reports whether i writes a value to memory.
func (i MemoryInstr) IsStore() bool { return i.Op >= OpI32Store && i.Op <= OpI64Store32 }

func (i MemoryInstr) String() string {
	switch {
	case i.IsLoad() || i.IsStore():
		return i.Op.String() + i.Arg.suffix()
	case i.Op == OpMemorySize || i.Op == OpMemoryGrow:
		if i.Mem != 0 {
			return fmt.Sprintf("%s %d", i.Op, i.Mem)
		}
		return i.Op.String()
	}
	name := miscName(i.Sub)
	switch i.Sub {
	case MiscMemoryInit:
		if i.Mem != 0 {
			return fmt.Sprintf("%s %d %d", name, i.Mem, i.Data)
		}
		return fmt.Sprintf("%s %d", name, i.Data)
	case MiscDataDrop:
		return fmt.Sprintf("%s %d", name, i.Data)
	case MiscMemoryCopy:
		if i.Mem != 0 || i.Src != 0 {
			return fmt.Sprintf("%s %d %d", name, i.Mem, i.Src)
		}
	case MiscMemoryFill:
		if i.Mem != 0 {
			return fmt.Sprintf("%s %d", name, i.Mem)
		}
	}
	return name
}

// BlockKind says which form a BlockType takes.
type BlockKind uint8

const (
	BlockEmpty BlockKind = iota
	BlockValue
	BlockIndex
)

// BlockType is the signature of a block, loop or if.
type BlockType struct {
	Val   ValType
	Index TypeIdx
	Kind  BlockKind
}

func (b BlockType) String() string {
	switch b.Kind {
	case BlockValue:
		return "(result " + b.Val.String() + ")"
	case BlockIndex:
		return fmt.Sprintf("(type %d)", b.Index)
	}
	return ""
}

// ControlInstr covers structured control, branches, calls and the trivial
// control instructions. Block, loop and if own their nested bodies.
type ControlInstr struct {
	Body Expr
	// Else is the else arm of an if; HasElse distinguishes an empty else arm
	// from a missing one.
	Else    Expr
	Labels  []LabelIdx
	Block   BlockType
	Label   LabelIdx
	Default LabelIdx
	Func    FuncIdx
	Type    TypeIdx
	Table   TableIdx
	Op      Opcode
	HasElse bool
}

func (ControlInstr) isInstr()         {}
func (i ControlInstr) Opcode() Opcode { return i.Op }
func (ControlInstr) Family() Family   { return FamilyControl }

// IsBlock reports whether i opens a nested body.
func (i ControlInstr) IsBlock() bool {
	return i.Op == OpBlock || i.Op == OpLoop || i.Op == OpIf
}

func (i ControlInstr) String() string {
	switch i.Op {
	case OpBlock, OpLoop, OpIf:
		if bt := i.Block.String(); bt != "" {
			return i.Op.String() + " " + bt
		}
		return i.Op.String()
	case OpBr, OpBrIf:
		return fmt.Sprintf("%s %d", i.Op, i.Label)
	case OpBrTable:
		var b strings.Builder
		b.WriteString("br_table")
		for _, l := range i.Labels {
			fmt.Fprintf(&b, " %d", l)
		}
		fmt.Fprintf(&b, " %d", i.Default)
		return b.String()
	case OpCall:
		return fmt.Sprintf("call %d", i.Func)
	case OpCallIndirect:
		if i.Table != 0 {
			return fmt.Sprintf("call_indirect %d (type %d)", i.Table, i.Type)
		}
		return fmt.Sprintf("call_indirect (type %d)", i.Type)
	}
	return i.Op.String()
}

// Walk calls fn for every instruction in e, depth first, descending into
// block bodies and else arms. depth is the nesting level of each instruction.
func (e Expr) Walk(fn func(in Instr, depth int)) {
	e.walk(fn, 0)
}

func (e Expr) walk(fn func(Instr, int), depth int) {
	for _, in := range e {
		fn(in, depth)
		if c, ok := in.(ControlInstr); ok && c.IsBlock() {
			c.Body.walk(fn, depth+1)
			if c.HasElse {
				c.Else.walk(fn, depth+1)
			}
		}
	}
}
