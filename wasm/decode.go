package wasm

import (
	"bytes"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-decoder/errors"
	"github.com/wippyai/wasm-decoder/wasm/internal/binary"
)

var magicBytes = []byte{0x00, 0x61, 0x73, 0x6D}

// Decoder decodes one module from a byte stream. It is not safe for
// concurrent use.
type Decoder struct {
	r    *binary.Reader
	log  *zap.Logger
	opts Options
	seen [SectionDataCount + 1]bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader, opts Options) *Decoder {
	return newDecoder(binary.NewReader(r), opts)
}

func newDecoder(r *binary.Reader, opts Options) *Decoder {
	r.SetLenient(opts.AllowNonCanonicalLEB128)
	return &Decoder{r: r, opts: opts, log: opts.logger()}
}

// DecodeModule decodes a module with DefaultOptions.
func DecodeModule(data []byte) (*Module, error) {
	return DecodeModuleWithOptions(data, DefaultOptions())
}

// DecodeModuleWithOptions decodes a module held in memory.
func DecodeModuleWithOptions(data []byte, opts Options) (*Module, error) {
	return newDecoder(binary.NewBytesReader(data), opts).Decode()
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.r.Position()
}

// Decode reads the header and every section up to the end of input. It
// returns the first error encountered and no partial module.
func (d *Decoder) Decode() (*Module, error) {
	version, err := d.decodeHeader()
	if err != nil {
		return nil, err
	}
	m := &Module{Version: version}

	for {
		at := d.r.Position()
		b, ok, err := d.r.TryReadByte()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := d.decodeSection(m, SectionID(b), at); err != nil {
			return nil, err
		}
	}

	d.log.Debug("decoded module",
		zap.Uint32("version", m.Version),
		zap.Int("sections", len(m.Spans)),
		zap.Int64("size", d.r.Position()))
	return m, nil
}

func (d *Decoder) decodeHeader() (uint32, error) {
	magic, err := d.r.ReadBytes(len(magicBytes))
	if err != nil {
		return 0, inPhase(err, errors.PhaseHeader)
	}
	if !bytes.Equal(magic, magicBytes) {
		return 0, errors.New(errors.PhaseHeader, errors.KindBadMagic).
			At(0).
			Value(magic).
			Detail("expected %x, got %x", magicBytes, magic).
			Build()
	}
	at := d.r.Position()
	version, err := d.r.ReadU32LE()
	if err != nil {
		return 0, inPhase(err, errors.PhaseHeader)
	}
	if version != Version {
		return 0, errors.New(errors.PhaseHeader, errors.KindUnsupportedVersion).
			At(at).
			Value(version).
			Detail("version %d", version).
			Build()
	}
	return version, nil
}

// inPhase relabels a primitive error raised while reading a higher level
// construct.
func inPhase(err error, phase errors.Phase) error {
	if e, ok := err.(*errors.Error); ok && e.Phase == errors.PhasePrimitive {
		e.Phase = phase
	}
	return err
}

func (d *Decoder) decodeSection(m *Module, id SectionID, at int64) error {
	if id > SectionDataCount {
		return errors.New(errors.PhaseSection, errors.KindMalformed).
			At(at).
			Value(byte(id)).
			Detail("unknown section id %d", byte(id)).
			Build()
	}
	name := id.String()

	size, err := d.r.ReadU32()
	if err != nil {
		return errors.InSection(err, name)
	}
	if id != SectionCustom {
		if d.seen[id] && !d.opts.AllowDuplicateSections {
			return errors.Duplicate(name, at)
		}
		d.seen[id] = true
	}

	start := d.r.Position()
	if err := d.r.PushLimit(size); err != nil {
		return errors.InSection(err, name)
	}
	if err := d.decodePayload(m, id); err != nil {
		return errors.InSection(err, name)
	}
	if left := d.r.PopLimit(); left != 0 {
		return errors.SizeMismatch(name, start, int64(size), int64(size)-left)
	}

	m.Spans = append(m.Spans, Span{ID: id, Offset: start, Size: size})
	d.log.Debug("decoded section",
		zap.String("section", name),
		zap.Uint8("id", byte(id)),
		zap.Int64("offset", start),
		zap.Uint32("size", size))
	return nil
}

func (d *Decoder) decodePayload(m *Module, id SectionID) error {
	r := d.r
	var err error
	switch id {
	case SectionCustom:
		var c CustomSection
		if c, err = decodeCustom(r); err == nil {
			m.Custom = append(m.Custom, c)
		}
	case SectionType:
		var s []FuncType
		if s, err = binary.ReadVec(r, readFuncType); err == nil {
			m.Type = &TypeSection{Types: s}
		}
	case SectionImport:
		var s []Import
		if s, err = binary.ReadVec(r, readImport); err == nil {
			m.Import = &ImportSection{Imports: s}
		}
	case SectionFunction:
		var s []TypeIdx
		if s, err = binary.ReadVec(r, readTypeIdx); err == nil {
			m.Function = &FunctionSection{Types: s}
		}
	case SectionTable:
		var s []TableType
		if s, err = binary.ReadVec(r, readTableType); err == nil {
			m.Table = &TableSection{Tables: s}
		}
	case SectionMemory:
		var s []MemType
		if s, err = binary.ReadVec(r, readMemType); err == nil {
			m.Memory = &MemorySection{Memories: s}
		}
	case SectionGlobal:
		var s []Global
		if s, err = binary.ReadVec(r, d.readGlobal); err == nil {
			m.Global = &GlobalSection{Globals: s}
		}
	case SectionExport:
		var s []Export
		if s, err = binary.ReadVec(r, readExport); err == nil {
			m.Export = &ExportSection{Exports: s}
		}
	case SectionStart:
		var idx uint32
		if idx, err = r.ReadU32(); err == nil {
			m.Start = &StartSection{Func: FuncIdx(idx)}
		}
	case SectionElement:
		var s []Elem
		if s, err = binary.ReadVec(r, d.readElem); err == nil {
			m.Element = &ElementSection{Elems: s}
		}
	case SectionCode:
		var s []Code
		if s, err = binary.ReadVec(r, d.readCode); err == nil {
			m.Code = &CodeSection{Codes: s}
		}
	case SectionData:
		var s []Data
		if s, err = binary.ReadVec(r, d.readData); err == nil {
			m.Data = &DataSection{Data: s}
		}
	case SectionDataCount:
		var n uint32
		if n, err = r.ReadU32(); err == nil {
			m.DataCount = &DataCountSection{Count: n}
		}
	}
	return err
}

func decodeCustom(r *binary.Reader) (CustomSection, error) {
	name, err := r.ReadName()
	if err != nil {
		return CustomSection{}, err
	}
	data, err := r.ReadRemaining()
	if err != nil {
		return CustomSection{}, err
	}
	return CustomSection{Name: name, Data: data}, nil
}

func readTypeIdx(r *binary.Reader) (TypeIdx, error) {
	v, err := r.ReadU32()
	return TypeIdx(v), err
}

func readFuncIdx(r *binary.Reader) (FuncIdx, error) {
	v, err := r.ReadU32()
	return FuncIdx(v), err
}

func readImport(r *binary.Reader) (Import, error) {
	module, err := r.ReadName()
	if err != nil {
		return Import{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return Import{}, err
	}
	at := r.Position()
	kind, err := r.ReadByte()
	if err != nil {
		return Import{}, err
	}

	imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: ExternKind(kind)}}
	switch ExternKind(kind) {
	case ExternFunc:
		imp.Desc.Type, err = readTypeIdx(r)
	case ExternTable:
		var t TableType
		if t, err = readTableType(r); err == nil {
			imp.Desc.Table = &t
		}
	case ExternMemory:
		var mt MemType
		if mt, err = readMemType(r); err == nil {
			imp.Desc.Memory = &mt
		}
	case ExternGlobal:
		var g GlobalType
		if g, err = readGlobalType(r); err == nil {
			imp.Desc.Global = &g
		}
	default:
		return Import{}, errors.InvalidTag(errors.PhaseSection, at, "import kind", kind)
	}
	if err != nil {
		return Import{}, err
	}
	return imp, nil
}

func readExport(r *binary.Reader) (Export, error) {
	name, err := r.ReadName()
	if err != nil {
		return Export{}, err
	}
	at := r.Position()
	kind, err := r.ReadByte()
	if err != nil {
		return Export{}, err
	}
	if kind > byte(ExternGlobal) {
		return Export{}, errors.InvalidTag(errors.PhaseSection, at, "export kind", kind)
	}
	idx, err := r.ReadU32()
	if err != nil {
		return Export{}, err
	}
	return Export{Name: name, Kind: ExternKind(kind), Idx: idx}, nil
}

func (d *Decoder) readExpr(r *binary.Reader) (Expr, error) {
	return newExprDecoder(r, d.opts).decodeExpr()
}

func (d *Decoder) readGlobal(r *binary.Reader) (Global, error) {
	gt, err := readGlobalType(r)
	if err != nil {
		return Global{}, err
	}
	init, err := d.readExpr(r)
	if err != nil {
		return Global{}, err
	}
	return Global{Type: gt, Init: init}, nil
}

// readElem decodes one element segment. Bit 0 of the flags marks a passive or
// declarative segment, bit 1 an explicit table index (or declarative when bit
// 0 is set), bit 2 initializer expressions instead of function indices.
func (d *Decoder) readElem(r *binary.Reader) (Elem, error) {
	at := r.Position()
	flags, err := r.ReadU32()
	if err != nil {
		return Elem{}, err
	}
	if flags > 7 {
		return Elem{}, errors.New(errors.PhaseSection, errors.KindMalformed).
			At(at).
			Value(flags).
			Detail("invalid element segment flags %d", flags).
			Build()
	}

	e := Elem{Flags: flags, Type: FuncRef}
	active := flags&0x01 == 0
	hasTable := flags&0x02 != 0 && active
	usesExprs := flags&0x04 != 0

	switch {
	case active:
		e.Mode = ModeActive
	case flags&0x02 == 0:
		e.Mode = ModePassive
	default:
		e.Mode = ModeDeclarative
	}

	if hasTable {
		t, err := r.ReadU32()
		if err != nil {
			return Elem{}, err
		}
		e.Table = TableIdx(t)
	}
	if active {
		if e.Offset, err = d.readExpr(r); err != nil {
			return Elem{}, err
		}
	}

	// Flags 0 and 4 imply funcref; the rest carry an elemkind or reftype.
	if flags&0x03 != 0 {
		if usesExprs {
			if e.Type, err = readRefType(r); err != nil {
				return Elem{}, err
			}
		} else {
			kindAt := r.Position()
			kind, err := r.ReadByte()
			if err != nil {
				return Elem{}, err
			}
			if kind != ElemKindFunc {
				return Elem{}, errors.InvalidTag(errors.PhaseSection, kindAt, "element kind", kind)
			}
		}
	}

	if usesExprs {
		e.Exprs, err = binary.ReadVec(r, d.readExpr)
	} else {
		e.Funcs, err = binary.ReadVec(r, readFuncIdx)
	}
	if err != nil {
		return Elem{}, err
	}
	return e, nil
}

// readCode decodes one code entry bounded by its own declared size.
func (d *Decoder) readCode(r *binary.Reader) (Code, error) {
	size, err := r.ReadU32()
	if err != nil {
		return Code{}, err
	}
	start := r.Position()
	if err := r.PushLimit(size); err != nil {
		return Code{}, err
	}

	locals, err := binary.ReadVec(r, readLocal)
	if err != nil {
		return Code{}, err
	}
	body, err := d.readExpr(r)
	if err != nil {
		return Code{}, err
	}

	if r.Remaining() > 0 {
		at := r.Position()
		b, err := r.ReadByte()
		if err != nil {
			return Code{}, err
		}
		if op := Opcode(b); op == OpEnd || op == OpElse {
			return Code{}, unbalanced(at, op)
		}
		left := r.PopLimit() + 1
		return Code{}, errors.New(errors.PhaseSection, errors.KindSectionSizeMismatch).
			At(start).
			Detail("function body declared %d bytes, %d left after end", size, left).
			Build()
	}
	r.PopLimit()
	return Code{Locals: locals, Body: body, Size: size}, nil
}

func readLocal(r *binary.Reader) (Local, error) {
	n, err := r.ReadU32()
	if err != nil {
		return Local{}, err
	}
	t, err := readValType(r)
	if err != nil {
		return Local{}, err
	}
	return Local{Count: n, Type: t}, nil
}

func (d *Decoder) readData(r *binary.Reader) (Data, error) {
	at := r.Position()
	flags, err := r.ReadU32()
	if err != nil {
		return Data{}, err
	}
	if flags > 2 {
		return Data{}, errors.New(errors.PhaseSection, errors.KindMalformed).
			At(at).
			Value(flags).
			Detail("invalid data segment flags %d", flags).
			Build()
	}

	seg := Data{Flags: flags, Mode: ModeActive}
	if flags == 1 {
		seg.Mode = ModePassive
	}
	if flags == 2 {
		m, err := r.ReadU32()
		if err != nil {
			return Data{}, err
		}
		seg.Memory = MemIdx(m)
	}
	if flags != 1 {
		if seg.Offset, err = d.readExpr(r); err != nil {
			return Data{}, err
		}
	}

	n, err := r.ReadU32()
	if err != nil {
		return Data{}, err
	}
	if seg.Init, err = r.ReadBytes(int(n)); err != nil {
		return Data{}, err
	}
	return seg, nil
}
