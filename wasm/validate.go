package wasm

import "github.com/wippyai/wasm-decoder/errors"

// Page limits for 32-bit linear memories (64KiB pages, 4GiB total).
const MemoryMaxPages = 65536

// Validate runs structural checks that decoding skips: limits, index bounds
// of declarations and segments, function/code agreement, export name
// uniqueness and the data count. It never inspects instruction operands.
func (m *Module) Validate() error {
	checks := []func() error{
		m.validateTypeIndices,
		m.validateCodeCount,
		m.validateDataCount,
		m.validateExports,
		m.validateSegments,
		m.validateStart,
		m.validateLimits,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAndValidate decodes data with opts and validates the result.
func DecodeAndValidate(data []byte, opts Options) (*Module, error) {
	m, err := DecodeModuleWithOptions(data, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types()))

	if m.Function != nil {
		for i, typeIdx := range m.Function.Types {
			if uint32(typeIdx) >= numTypes {
				return errors.Invalid("function %d references invalid type index %d", i, typeIdx)
			}
		}
	}
	for i, imp := range m.Imports() {
		if imp.Desc.Kind == ExternFunc && uint32(imp.Desc.Type) >= numTypes {
			return errors.Invalid("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.Type)
		}
	}
	return nil
}

func (m *Module) validateCodeCount() error {
	_, err := m.Funcs()
	return err
}

func (m *Module) validateDataCount() error {
	if m.DataCount == nil {
		return nil
	}
	n := 0
	if m.Data != nil {
		n = len(m.Data.Data)
	}
	if m.DataCount.Count != uint32(n) {
		return errors.Invalid("data count section declares %d segments, but data section has %d", m.DataCount.Count, n)
	}
	return nil
}

// indexSpaceSizes returns the combined imported plus defined counts of the
// function, table, memory and global index spaces.
func (m *Module) indexSpaceSizes() (funcs, tables, mems, globals uint32) {
	for _, imp := range m.Imports() {
		switch imp.Desc.Kind {
		case ExternFunc:
			funcs++
		case ExternTable:
			tables++
		case ExternMemory:
			mems++
		case ExternGlobal:
			globals++
		}
	}
	if m.Function != nil {
		funcs += uint32(len(m.Function.Types))
	}
	if m.Table != nil {
		tables += uint32(len(m.Table.Tables))
	}
	if m.Memory != nil {
		mems += uint32(len(m.Memory.Memories))
	}
	if m.Global != nil {
		globals += uint32(len(m.Global.Globals))
	}
	return funcs, tables, mems, globals
}

func (m *Module) validateExports() error {
	funcs, tables, mems, globals := m.indexSpaceSizes()
	seen := make(map[string]bool)
	for i, exp := range m.Exports() {
		if seen[exp.Name] {
			return errors.Invalid("duplicate export name %q at index %d", exp.Name, i)
		}
		seen[exp.Name] = true

		var bound uint32
		switch exp.Kind {
		case ExternFunc:
			bound = funcs
		case ExternTable:
			bound = tables
		case ExternMemory:
			bound = mems
		case ExternGlobal:
			bound = globals
		}
		if exp.Idx >= bound {
			return errors.Invalid("export %d (%s) references invalid %s index %d", i, exp.Name, exp.Kind, exp.Idx)
		}
	}
	return nil
}

func (m *Module) validateSegments() error {
	_, tables, mems, _ := m.indexSpaceSizes()
	if m.Element != nil {
		for i, e := range m.Element.Elems {
			if e.Mode == ModeActive && uint32(e.Table) >= tables {
				return errors.Invalid("element %d references invalid table index %d", i, e.Table)
			}
		}
	}
	if m.Data != nil {
		for i, d := range m.Data.Data {
			if d.Mode == ModeActive && uint32(d.Memory) >= mems {
				return errors.Invalid("data segment %d references invalid memory index %d", i, d.Memory)
			}
		}
	}
	return nil
}

func (m *Module) validateStart() error {
	if m.Start == nil {
		return nil
	}
	ft, err := m.FuncType(m.Start.Func)
	if err != nil {
		return errors.Invalid("start function %d has no type", m.Start.Func)
	}
	if len(ft.Params) != 0 || len(ft.Results) != 0 {
		return errors.Invalid("start function must have signature () -> (), got %s", ft)
	}
	return nil
}

func (m *Module) validateLimits() error {
	for i, imp := range m.Imports() {
		switch {
		case imp.Desc.Memory != nil:
			if err := checkLimits("imported memory", i, imp.Desc.Memory.Limits, MemoryMaxPages); err != nil {
				return err
			}
		case imp.Desc.Table != nil:
			if err := checkLimits("imported table", i, imp.Desc.Table.Limits, 0); err != nil {
				return err
			}
		}
	}
	if m.Memory != nil {
		for i, mem := range m.Memory.Memories {
			if err := checkLimits("memory", i, mem.Limits, MemoryMaxPages); err != nil {
				return err
			}
		}
	}
	if m.Table != nil {
		for i, t := range m.Table.Tables {
			if err := checkLimits("table", i, t.Limits, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkLimits enforces min <= max and, when bound is non-zero, both <= bound.
func checkLimits(what string, idx int, l Limits, bound uint32) error {
	if l.Max != nil && l.Min > *l.Max {
		return errors.Invalid("%s %d: limits min (%d) exceeds max (%d)", what, idx, l.Min, *l.Max)
	}
	if bound == 0 {
		return nil
	}
	if l.Min > bound {
		return errors.Invalid("%s %d: min pages %d exceeds maximum %d", what, idx, l.Min, bound)
	}
	if l.Max != nil && *l.Max > bound {
		return errors.Invalid("%s %d: max pages %d exceeds maximum %d", what, idx, *l.Max, bound)
	}
	return nil
}
