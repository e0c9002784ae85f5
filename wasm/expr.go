package wasm

import (
	"github.com/wippyai/wasm-decoder/errors"
	"github.com/wippyai/wasm-decoder/wasm/internal/binary"
)

// memArgMultiMemBit marks a memarg whose memory index follows the alignment.
const memArgMultiMemBit = 0x40

// opDecoder decodes the immediates of one instruction whose opcode byte has
// already been consumed. at is the offset of the opcode byte.
type opDecoder func(d *exprDecoder, op Opcode, at int64, depth int) (Instr, error)

// opTable maps every leading byte to its decoder. A nil entry is an invalid
// opcode. Filled in init to break the recursion through decodeSeq.
var opTable [256]opDecoder

func init() {
	for _, op := range []Opcode{OpUnreachable, OpNop, OpReturn} {
		opTable[op] = decodeTrivialControl
	}
	opTable[OpBlock] = decodeBlock
	opTable[OpLoop] = decodeBlock
	opTable[OpIf] = decodeIf
	opTable[OpBr] = decodeBranch
	opTable[OpBrIf] = decodeBranch
	opTable[OpBrTable] = decodeBrTable
	opTable[OpCall] = decodeCall
	opTable[OpCallIndirect] = decodeCallIndirect

	opTable[OpRefNull] = decodeRefNull
	opTable[OpRefIsNull] = decodeRefIsNull
	opTable[OpRefFunc] = decodeRefFunc

	opTable[OpDrop] = decodeParametric
	opTable[OpSelect] = decodeParametric
	opTable[OpSelectType] = decodeSelectType

	for op := OpLocalGet; op <= OpGlobalSet; op++ {
		opTable[op] = decodeVariable
	}
	opTable[OpTableGet] = decodeTableAccess
	opTable[OpTableSet] = decodeTableAccess

	for op := OpI32Load; op <= OpI64Store32; op++ {
		opTable[op] = decodeLoadStore
	}
	opTable[OpMemorySize] = decodeMemoryIndex
	opTable[OpMemoryGrow] = decodeMemoryIndex

	opTable[OpI32Const] = decodeI32Const
	opTable[OpI64Const] = decodeI64Const
	opTable[OpF32Const] = decodeF32Const
	opTable[OpF64Const] = decodeF64Const
	for op := OpI32Eqz; op <= OpI64Extend32S; op++ {
		opTable[op] = decodeNumeric
	}

	opTable[OpPrefixMisc] = decodeMisc
	opTable[OpPrefixSIMD] = decodeSIMD
}

// exprDecoder owns the cursor while one expression is decoded.
type exprDecoder struct {
	r        *binary.Reader
	maxDepth int
	extended bool
}

func newExprDecoder(r *binary.Reader, opts Options) *exprDecoder {
	return &exprDecoder{r: r, maxDepth: opts.maxDepth(), extended: opts.ExtendedOpcodes}
}

// decodeExpr decodes instructions up to and including the end that closes
// the top level.
func (d *exprDecoder) decodeExpr() (Expr, error) {
	body, term, at, err := d.decodeSeq(0)
	if err != nil {
		return nil, err
	}
	if term == OpElse {
		return nil, unbalanced(at, term)
	}
	return body, nil
}

// decodeSeq decodes instructions until an end or else at the current level
// and reports which one terminated the sequence and where.
func (d *exprDecoder) decodeSeq(depth int) (Expr, Opcode, int64, error) {
	var seq Expr
	for {
		at := d.r.Position()
		b, ok, err := d.r.TryReadByte()
		if err != nil {
			return nil, 0, at, err
		}
		if !ok {
			return nil, 0, at, errors.UnexpectedEOF(errors.PhaseInstr, at, "expression without end")
		}
		op := Opcode(b)
		if op == OpEnd || op == OpElse {
			return seq, op, at, nil
		}
		dec := opTable[op]
		if dec == nil {
			return nil, 0, at, errors.InvalidTag(errors.PhaseInstr, at, "opcode", b)
		}
		in, err := dec(d, op, at, depth)
		if err != nil {
			return nil, 0, at, err
		}
		seq = append(seq, in)
	}
}

func unbalanced(at int64, op Opcode) error {
	return errors.New(errors.PhaseInstr, errors.KindMalformed).
		At(at).
		Value(op).
		Detail("unbalanced control construct: unexpected %s", op).
		Build()
}

// enter checks the nesting guard before a nested body is decoded.
func (d *exprDecoder) enter(at int64, depth int) error {
	if depth+1 > d.maxDepth {
		return errors.TooDeep(at, d.maxDepth)
	}
	return nil
}

func (d *exprDecoder) readBlockType() (BlockType, error) {
	at := d.r.Position()
	v, err := d.r.ReadS33()
	if err != nil {
		return BlockType{}, err
	}
	if v >= 0 {
		return BlockType{Kind: BlockIndex, Index: TypeIdx(v)}, nil
	}
	// Negative single-byte values are the 0x40 and value type tags.
	if v >= -64 {
		tag := byte(v & 0x7f)
		if tag == BlockTypeEmpty {
			return BlockType{Kind: BlockEmpty}, nil
		}
		if vt := ValType(tag); vt.IsNum() || vt.IsVec() || vt.IsRef() {
			return BlockType{Kind: BlockValue, Val: vt}, nil
		}
		return BlockType{}, errors.InvalidTag(errors.PhaseType, at, "block type", tag)
	}
	return BlockType{}, errors.Malformed(errors.PhaseType, at, "invalid block type %d", v)
}

func decodeTrivialControl(_ *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	return ControlInstr{Op: op}, nil
}

func decodeBlock(d *exprDecoder, op Opcode, at int64, depth int) (Instr, error) {
	bt, err := d.readBlockType()
	if err != nil {
		return nil, err
	}
	if err := d.enter(at, depth); err != nil {
		return nil, err
	}
	body, term, termAt, err := d.decodeSeq(depth + 1)
	if err != nil {
		return nil, err
	}
	if term == OpElse {
		return nil, unbalanced(termAt, term)
	}
	return ControlInstr{Op: op, Block: bt, Body: body}, nil
}

func decodeIf(d *exprDecoder, op Opcode, at int64, depth int) (Instr, error) {
	bt, err := d.readBlockType()
	if err != nil {
		return nil, err
	}
	if err := d.enter(at, depth); err != nil {
		return nil, err
	}
	then, term, _, err := d.decodeSeq(depth + 1)
	if err != nil {
		return nil, err
	}
	in := ControlInstr{Op: op, Block: bt, Body: then}
	if term == OpEnd {
		return in, nil
	}
	els, term, termAt, err := d.decodeSeq(depth + 1)
	if err != nil {
		return nil, err
	}
	if term == OpElse {
		return nil, unbalanced(termAt, term)
	}
	in.Else = els
	in.HasElse = true
	return in, nil
}

func decodeBranch(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	l, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	return ControlInstr{Op: op, Label: LabelIdx(l)}, nil
}

func decodeBrTable(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	labels, err := binary.ReadVec(d.r, readLabelIdx)
	if err != nil {
		return nil, err
	}
	def, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	return ControlInstr{Op: op, Labels: labels, Default: LabelIdx(def)}, nil
}

func readLabelIdx(r *binary.Reader) (LabelIdx, error) {
	v, err := r.ReadU32()
	return LabelIdx(v), err
}

func decodeCall(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	f, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	return ControlInstr{Op: op, Func: FuncIdx(f)}, nil
}

func decodeCallIndirect(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	typ, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	table, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	return ControlInstr{Op: op, Type: TypeIdx(typ), Table: TableIdx(table)}, nil
}

func decodeRefNull(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	rt, err := readRefType(d.r)
	if err != nil {
		return nil, err
	}
	return ReferenceInstr{Op: op, Type: rt}, nil
}

func decodeRefIsNull(_ *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	return ReferenceInstr{Op: op}, nil
}

func decodeRefFunc(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	f, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	return ReferenceInstr{Op: op, Func: FuncIdx(f)}, nil
}

func decodeParametric(_ *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	return ParametricInstr{Op: op}, nil
}

func decodeSelectType(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	types, err := binary.ReadVec(d.r, readValType)
	if err != nil {
		return nil, err
	}
	return ParametricInstr{Op: op, Types: types}, nil
}

func decodeVariable(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	idx, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	if op == OpGlobalGet || op == OpGlobalSet {
		return VariableInstr{Op: op, Global: GlobalIdx(idx)}, nil
	}
	return VariableInstr{Op: op, Local: LocalIdx(idx)}, nil
}

func decodeTableAccess(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	t, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	return TableInstr{Op: op, Table: TableIdx(t)}, nil
}

func decodeLoadStore(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	arg, err := d.readMemArg()
	if err != nil {
		return nil, err
	}
	return MemoryInstr{Op: op, Arg: arg, Type: numTypeOf(opNames[op])}, nil
}

// readMemArg reads alignment and offset. With extended opcodes, bit 6 of the
// alignment announces an explicit memory index.
func (d *exprDecoder) readMemArg() (MemArg, error) {
	align, err := d.r.ReadU32()
	if err != nil {
		return MemArg{}, err
	}
	var mem uint32
	if d.extended && align&memArgMultiMemBit != 0 {
		align &^= memArgMultiMemBit
		if mem, err = d.r.ReadU32(); err != nil {
			return MemArg{}, err
		}
	}
	offset, err := d.r.ReadU32()
	if err != nil {
		return MemArg{}, err
	}
	return MemArg{Align: align, Offset: offset, Mem: MemIdx(mem)}, nil
}

func decodeMemoryIndex(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	m, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	return MemoryInstr{Op: op, Mem: MemIdx(m)}, nil
}

func decodeI32Const(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	v, err := d.r.ReadS32()
	if err != nil {
		return nil, err
	}
	return NumericInstr{Op: op, Type: I32, Value: uint64(int64(v))}, nil
}

func decodeI64Const(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	v, err := d.r.ReadS64()
	if err != nil {
		return nil, err
	}
	return NumericInstr{Op: op, Type: I64, Value: uint64(v)}, nil
}

func decodeF32Const(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	bits, err := d.r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	return NumericInstr{Op: op, Type: F32, Value: uint64(bits)}, nil
}

func decodeF64Const(d *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	bits, err := d.r.ReadU64LE()
	if err != nil {
		return nil, err
	}
	return NumericInstr{Op: op, Type: F64, Value: bits}, nil
}

func decodeNumeric(_ *exprDecoder, op Opcode, _ int64, _ int) (Instr, error) {
	return NumericInstr{Op: op, Type: numTypeOf(opNames[op])}, nil
}

func invalidPrefixed(at int64, op Opcode, sub uint32) error {
	return errors.New(errors.PhaseInstr, errors.KindMalformed).
		At(at).
		Value(sub).
		Detail("invalid opcode 0x%02x %d", byte(op), sub).
		Build()
}

func decodeMisc(d *exprDecoder, op Opcode, at int64, _ int) (Instr, error) {
	if !d.extended {
		return nil, errors.InvalidTag(errors.PhaseInstr, at, "opcode", byte(op))
	}
	sub, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	u32 := func() (uint32, error) { return d.r.ReadU32() }

	switch {
	case sub <= MiscI64TruncSatF64U:
		return NumericInstr{Op: op, Sub: sub, Type: numTypeOf(miscName(sub))}, nil

	case sub == MiscMemoryInit:
		data, err := u32()
		if err != nil {
			return nil, err
		}
		mem, err := u32()
		if err != nil {
			return nil, err
		}
		return MemoryInstr{Op: op, Sub: sub, Data: DataIdx(data), Mem: MemIdx(mem)}, nil

	case sub == MiscDataDrop:
		data, err := u32()
		if err != nil {
			return nil, err
		}
		return MemoryInstr{Op: op, Sub: sub, Data: DataIdx(data)}, nil

	case sub == MiscMemoryCopy:
		dst, err := u32()
		if err != nil {
			return nil, err
		}
		src, err := u32()
		if err != nil {
			return nil, err
		}
		return MemoryInstr{Op: op, Sub: sub, Mem: MemIdx(dst), Src: MemIdx(src)}, nil

	case sub == MiscMemoryFill:
		mem, err := u32()
		if err != nil {
			return nil, err
		}
		return MemoryInstr{Op: op, Sub: sub, Mem: MemIdx(mem)}, nil

	case sub == MiscTableInit:
		elem, err := u32()
		if err != nil {
			return nil, err
		}
		table, err := u32()
		if err != nil {
			return nil, err
		}
		return TableInstr{Op: op, Sub: sub, Elem: ElemIdx(elem), Table: TableIdx(table)}, nil

	case sub == MiscElemDrop:
		elem, err := u32()
		if err != nil {
			return nil, err
		}
		return TableInstr{Op: op, Sub: sub, Elem: ElemIdx(elem)}, nil

	case sub == MiscTableCopy:
		dst, err := u32()
		if err != nil {
			return nil, err
		}
		src, err := u32()
		if err != nil {
			return nil, err
		}
		return TableInstr{Op: op, Sub: sub, Table: TableIdx(dst), Src: TableIdx(src)}, nil

	case sub <= MiscTableFill:
		table, err := u32()
		if err != nil {
			return nil, err
		}
		return TableInstr{Op: op, Sub: sub, Table: TableIdx(table)}, nil
	}
	return nil, invalidPrefixed(at, op, sub)
}

func decodeSIMD(d *exprDecoder, op Opcode, at int64, _ int) (Instr, error) {
	if !d.extended {
		return nil, errors.InvalidTag(errors.PhaseInstr, at, "opcode", byte(op))
	}
	sub, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	if sub > SimdMax || simdNames[sub] == "" {
		return nil, invalidPrefixed(at, op, sub)
	}
	in := VectorInstr{Sub: sub}

	switch {
	case sub <= SimdV128Load64Splat || sub == SimdV128Store,
		sub == SimdV128Load32Zero || sub == SimdV128Load64Zero:
		arg, err := d.readMemArg()
		if err != nil {
			return nil, err
		}
		in.MemArg = &arg

	case sub == SimdV128Const || sub == SimdI8x16Shuffle:
		if in.Bytes, err = d.r.ReadBytes(16); err != nil {
			return nil, err
		}

	case sub >= SimdI8x16ExtractLaneS && sub <= SimdF64x2ReplaceLane:
		lane, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		in.Lane = &lane

	case sub >= SimdV128Load8Lane && sub <= SimdV128Store64Lane:
		arg, err := d.readMemArg()
		if err != nil {
			return nil, err
		}
		lane, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		in.MemArg = &arg
		in.Lane = &lane
	}
	return in, nil
}

// DecodeExpr decodes one expression terminated by end. Bytes after the end
// are not examined.
func DecodeExpr(code []byte, opts Options) (Expr, error) {
	r := binary.NewBytesReader(code)
	r.SetLenient(opts.AllowNonCanonicalLEB128)
	return newExprDecoder(r, opts).decodeExpr()
}
