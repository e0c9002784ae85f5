package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-decoder/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// dumper renders a decoded module as text.
type dumper struct {
	m        *wasm.Module
	spans    map[wasm.Section]wasm.Span
	width    int
	showCode bool
}

func newDumper(m *wasm.Module, width int, showCode bool) *dumper {
	if width <= 0 {
		width = 80
	}
	return &dumper{m: m, spans: spanIndex(m), width: width, showCode: showCode}
}

// spanIndex pairs every section with the span it was read from. Custom
// sections are matched by encounter order.
func spanIndex(m *wasm.Module) map[wasm.Section]wasm.Span {
	out := make(map[wasm.Section]wasm.Span)
	custom := 0
	for _, sp := range m.Spans {
		if sp.ID == wasm.SectionCustom {
			if custom < len(m.Custom) {
				out[&m.Custom[custom]] = sp
			}
			custom++
			continue
		}
		if s := m.Section(sp.ID); s != nil {
			out[s] = sp
		}
	}
	return out
}

func (d *dumper) writeSummary(w io.Writer, name string) {
	fmt.Fprintf(w, "%s %s (version %d)\n\n", titleStyle.Render("wasmdump"), name, d.m.Version)
	for _, s := range d.m.Sections() {
		fmt.Fprintf(w, "  %-24s %s\n", d.title(s), offsetStyle.Render(d.location(s)))
	}
}

func (d *dumper) writeDetails(w io.Writer) {
	for _, s := range d.m.Sections() {
		fmt.Fprintf(w, "\n%s\n", sectionStyle.Render(d.title(s)))
		d.writeSection(w, s)
	}
}

// title names a section with its entry count.
func (d *dumper) title(s wasm.Section) string {
	switch s := s.(type) {
	case *wasm.CustomSection:
		return fmt.Sprintf("custom %q", s.Name)
	case *wasm.StartSection:
		return "start"
	case *wasm.DataCountSection:
		return "datacount"
	}
	return fmt.Sprintf("%s[%d]", s.ID(), entries(s))
}

func (d *dumper) location(s wasm.Section) string {
	sp, ok := d.spans[s]
	if !ok {
		return ""
	}
	return fmt.Sprintf("@0x%x size %d", sp.Offset, sp.Size)
}

func entries(s wasm.Section) int {
	switch s := s.(type) {
	case *wasm.TypeSection:
		return len(s.Types)
	case *wasm.ImportSection:
		return len(s.Imports)
	case *wasm.FunctionSection:
		return len(s.Types)
	case *wasm.TableSection:
		return len(s.Tables)
	case *wasm.MemorySection:
		return len(s.Memories)
	case *wasm.GlobalSection:
		return len(s.Globals)
	case *wasm.ExportSection:
		return len(s.Exports)
	case *wasm.ElementSection:
		return len(s.Elems)
	case *wasm.CodeSection:
		return len(s.Codes)
	case *wasm.DataSection:
		return len(s.Data)
	}
	return 1
}

func (d *dumper) writeSection(w io.Writer, s wasm.Section) {
	switch s := s.(type) {
	case *wasm.CustomSection:
		fmt.Fprintf(w, "  %s\n", d.preview(s.Data))
	case *wasm.TypeSection:
		for i, ft := range s.Types {
			fmt.Fprintf(w, "  type[%d] %s\n", i, ft)
		}
	case *wasm.ImportSection:
		for i, imp := range s.Imports {
			fmt.Fprintf(w, "  import[%d] %s.%s %s\n", i, imp.Module, imp.Name, d.importDesc(imp.Desc))
		}
	case *wasm.FunctionSection:
		base := d.m.NumImportedFuncs()
		for i, t := range s.Types {
			fmt.Fprintf(w, "  func[%d] type %d\n", base+i, t)
		}
	case *wasm.TableSection:
		for i, t := range s.Tables {
			fmt.Fprintf(w, "  table[%d] %s %s\n", i, t.ElemType, t.Limits)
		}
	case *wasm.MemorySection:
		for i, mem := range s.Memories {
			fmt.Fprintf(w, "  memory[%d] %s\n", i, mem.Limits)
		}
	case *wasm.GlobalSection:
		for i, g := range s.Globals {
			fmt.Fprintf(w, "  global[%d] %s %s = %s\n", i, g.Type.Mut, g.Type.ValType, inline(g.Init))
		}
	case *wasm.ExportSection:
		for _, exp := range s.Exports {
			fmt.Fprintf(w, "  %s %q -> %d\n", exp.Kind, exp.Name, exp.Idx)
		}
	case *wasm.StartSection:
		fmt.Fprintf(w, "  func %d\n", s.Func)
	case *wasm.ElementSection:
		for i, e := range s.Elems {
			fmt.Fprintf(w, "  elem[%d] %s %s", i, e.Mode, e.Type)
			if e.Mode == wasm.ModeActive {
				fmt.Fprintf(w, " table %d offset %s", e.Table, inline(e.Offset))
			}
			if e.Exprs != nil {
				fmt.Fprintf(w, " exprs %d\n", len(e.Exprs))
			} else {
				fmt.Fprintf(w, " funcs %v\n", e.Funcs)
			}
		}
	case *wasm.CodeSection:
		d.writeCode(w, s)
	case *wasm.DataSection:
		for i, seg := range s.Data {
			fmt.Fprintf(w, "  data[%d] %s", i, seg.Mode)
			if seg.Mode == wasm.ModeActive {
				fmt.Fprintf(w, " memory %d offset %s", seg.Memory, inline(seg.Offset))
			}
			fmt.Fprintf(w, " %s\n", d.preview(seg.Init))
		}
	case *wasm.DataCountSection:
		fmt.Fprintf(w, "  count %d\n", s.Count)
	}
}

func (d *dumper) importDesc(desc wasm.ImportDesc) string {
	switch desc.Kind {
	case wasm.ExternFunc:
		sig := ""
		if types := d.m.Types(); int(desc.Type) < len(types) {
			sig = " " + types[desc.Type].String()
		}
		return fmt.Sprintf("func type %d%s", desc.Type, sig)
	case wasm.ExternTable:
		return fmt.Sprintf("table %s %s", desc.Table.ElemType, desc.Table.Limits)
	case wasm.ExternMemory:
		return fmt.Sprintf("memory %s", desc.Memory.Limits)
	case wasm.ExternGlobal:
		return fmt.Sprintf("global %s %s", desc.Global.Mut, desc.Global.ValType)
	}
	return desc.Kind.String()
}

func (d *dumper) writeCode(w io.Writer, s *wasm.CodeSection) {
	base := d.m.NumImportedFuncs()
	for i, c := range s.Codes {
		idx := wasm.FuncIdx(base + i)
		sig := ""
		if ft, err := d.m.FuncType(idx); err == nil {
			sig = ft.String()
		}
		fmt.Fprintf(w, "  %s %s size %d\n", funcStyle.Render(fmt.Sprintf("func[%d]", idx)), sig, c.Size)
		if !d.showCode {
			continue
		}
		for _, l := range c.Locals {
			fmt.Fprintf(w, "    local %d x %s\n", l.Count, l.Type)
		}
		writeExpr(w, c.Body, 2)
	}
}

// writeExpr prints one instruction per line, indenting block bodies and
// closing each block with its else and end markers.
func writeExpr(w io.Writer, e wasm.Expr, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, in := range e {
		fmt.Fprintf(w, "%s%s\n", indent, in)
		c, ok := in.(wasm.ControlInstr)
		if !ok || !c.IsBlock() {
			continue
		}
		writeExpr(w, c.Body, depth+1)
		if c.HasElse {
			fmt.Fprintf(w, "%selse\n", indent)
			writeExpr(w, c.Else, depth+1)
		}
		fmt.Fprintf(w, "%send\n", indent)
	}
}

// inline renders a constant expression on one line.
func inline(e wasm.Expr) string {
	parts := make([]string, 0, len(e))
	e.Walk(func(in wasm.Instr, _ int) {
		parts = append(parts, in.String())
	})
	return "(" + strings.Join(parts, " ") + ")"
}

// preview shows up to a line's worth of bytes in hex.
func (d *dumper) preview(b []byte) string {
	limit := (d.width - 24) / 3
	if limit < 8 {
		limit = 8
	}
	if len(b) <= limit {
		return fmt.Sprintf("% x", b)
	}
	return fmt.Sprintf("% x ... (%d bytes)", b[:limit], len(b))
}
