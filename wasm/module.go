package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-decoder/errors"
)

// Section is a decoded section payload. The concrete type is one of the
// *XxxSection types below or *CustomSection.
type Section interface {
	ID() SectionID
	isSection()
}

// TypeSection holds the function signatures of the type index space.
type TypeSection struct {
	Types []FuncType
}

// ImportSection holds the module's imports in declaration order.
type ImportSection struct {
	Imports []Import
}

// FunctionSection holds the type index of every module-defined function.
type FunctionSection struct {
	Types []TypeIdx
}

// TableSection holds the module-defined tables.
type TableSection struct {
	Tables []TableType
}

// MemorySection holds the module-defined memories.
type MemorySection struct {
	Memories []MemType
}

// GlobalSection holds the module-defined globals.
type GlobalSection struct {
	Globals []Global
}

// ExportSection holds the module's exports.
type ExportSection struct {
	Exports []Export
}

// StartSection names the function run at instantiation.
type StartSection struct {
	Func FuncIdx
}

// ElementSection holds element segments.
type ElementSection struct {
	Elems []Elem
}

// CodeSection holds function bodies, parallel to FunctionSection.
type CodeSection struct {
	Codes []Code
}

// DataSection holds data segments.
type DataSection struct {
	Data []Data
}

// DataCountSection declares the number of data segments ahead of the code.
type DataCountSection struct {
	Count uint32
}

func (*TypeSection) ID() SectionID      { return SectionType }
func (*ImportSection) ID() SectionID    { return SectionImport }
func (*FunctionSection) ID() SectionID  { return SectionFunction }
func (*TableSection) ID() SectionID     { return SectionTable }
func (*MemorySection) ID() SectionID    { return SectionMemory }
func (*GlobalSection) ID() SectionID    { return SectionGlobal }
func (*ExportSection) ID() SectionID    { return SectionExport }
func (*StartSection) ID() SectionID     { return SectionStart }
func (*ElementSection) ID() SectionID   { return SectionElement }
func (*CodeSection) ID() SectionID      { return SectionCode }
func (*DataSection) ID() SectionID      { return SectionData }
func (*DataCountSection) ID() SectionID { return SectionDataCount }
func (*CustomSection) ID() SectionID    { return SectionCustom }

func (*TypeSection) isSection()      {}
func (*ImportSection) isSection()    {}
func (*FunctionSection) isSection()  {}
func (*TableSection) isSection()     {}
func (*MemorySection) isSection()    {}
func (*GlobalSection) isSection()    {}
func (*ExportSection) isSection()    {}
func (*StartSection) isSection()     {}
func (*ElementSection) isSection()   {}
func (*CodeSection) isSection()      {}
func (*DataSection) isSection()      {}
func (*DataCountSection) isSection() {}
func (*CustomSection) isSection()    {}

// Span records where a section's payload sat in the input.
type Span struct {
	Offset int64 // first payload byte
	Size   uint32
	ID     SectionID
}

// Module represents a decoded WebAssembly module. Each non-custom section is
// nil when absent.
type Module struct {
	Type      *TypeSection
	Import    *ImportSection
	Function  *FunctionSection
	Table     *TableSection
	Memory    *MemorySection
	Global    *GlobalSection
	Export    *ExportSection
	Start     *StartSection
	Element   *ElementSection
	Code      *CodeSection
	Data      *DataSection
	DataCount *DataCountSection

	// Custom holds custom sections in encounter order.
	Custom []CustomSection
	// Spans lists every section in encounter order.
	Spans   []Span
	Version uint32
}

// Sections returns custom sections in encounter order followed by the
// present non-custom sections in id order, regardless of input order.
func (m *Module) Sections() []Section {
	out := make([]Section, 0, len(m.Custom)+12)
	for i := range m.Custom {
		out = append(out, &m.Custom[i])
	}
	for id := SectionType; id <= SectionDataCount; id++ {
		if s := m.Section(id); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Section returns the non-custom section with the given id, or nil.
func (m *Module) Section(id SectionID) Section {
	// Typed nil pointers must not escape as non-nil interfaces.
	switch id {
	case SectionType:
		if m.Type != nil {
			return m.Type
		}
	case SectionImport:
		if m.Import != nil {
			return m.Import
		}
	case SectionFunction:
		if m.Function != nil {
			return m.Function
		}
	case SectionTable:
		if m.Table != nil {
			return m.Table
		}
	case SectionMemory:
		if m.Memory != nil {
			return m.Memory
		}
	case SectionGlobal:
		if m.Global != nil {
			return m.Global
		}
	case SectionExport:
		if m.Export != nil {
			return m.Export
		}
	case SectionStart:
		if m.Start != nil {
			return m.Start
		}
	case SectionElement:
		if m.Element != nil {
			return m.Element
		}
	case SectionCode:
		if m.Code != nil {
			return m.Code
		}
	case SectionData:
		if m.Data != nil {
			return m.Data
		}
	case SectionDataCount:
		if m.DataCount != nil {
			return m.DataCount
		}
	}
	return nil
}

// Types returns the type section entries, or nil.
func (m *Module) Types() []FuncType {
	if m.Type == nil {
		return nil
	}
	return m.Type.Types
}

// Imports returns the import section entries, or nil.
func (m *Module) Imports() []Import {
	if m.Import == nil {
		return nil
	}
	return m.Import.Imports
}

// Exports returns the export section entries, or nil.
func (m *Module) Exports() []Export {
	if m.Export == nil {
		return nil
	}
	return m.Export.Exports
}

// NumImportedFuncs counts function imports, which precede module-defined
// functions in the function index space.
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, imp := range m.Imports() {
		if imp.Desc.Kind == ExternFunc {
			n++
		}
	}
	return n
}

// Funcs joins the function section's type indices with the code section's
// bodies. The two must have the same length.
func (m *Module) Funcs() ([]Func, error) {
	var types []TypeIdx
	var codes []Code
	if m.Function != nil {
		types = m.Function.Types
	}
	if m.Code != nil {
		codes = m.Code.Codes
	}
	if len(types) != len(codes) {
		return nil, errors.Invalid("function and code section counts differ: %d vs %d", len(types), len(codes))
	}
	funcs := make([]Func, len(types))
	for i, t := range types {
		funcs[i] = Func{Type: t, Locals: codes[i].Locals, Body: codes[i].Body}
	}
	return funcs, nil
}

// FuncType returns the signature of function idx, counting imported
// functions first.
func (m *Module) FuncType(idx FuncIdx) (FuncType, error) {
	types := m.Types()
	i := uint32(idx)
	for _, imp := range m.Imports() {
		if imp.Desc.Kind != ExternFunc {
			continue
		}
		if i == 0 {
			return lookupType(types, imp.Desc.Type)
		}
		i--
	}
	if m.Function == nil || i >= uint32(len(m.Function.Types)) {
		return FuncType{}, errors.Invalid("function index %d out of range", idx)
	}
	return lookupType(types, m.Function.Types[i])
}

func lookupType(types []FuncType, idx TypeIdx) (FuncType, error) {
	if uint32(idx) >= uint32(len(types)) {
		return FuncType{}, errors.Invalid("type index %d out of range", idx)
	}
	return types[idx], nil
}

func (s Span) String() string {
	return fmt.Sprintf("%s@0x%x+%d", s.ID, s.Offset, s.Size)
}
