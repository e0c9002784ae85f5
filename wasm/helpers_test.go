package wasm

// Byte-level builders for hand-assembled test modules.

var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint64(len(items))), cat(items...))
}

func str(s string) []byte {
	return cat(uleb(uint64(len(s))), []byte(s))
}

func sec(id SectionID, payload ...[]byte) []byte {
	body := cat(payload...)
	return cat([]byte{byte(id)}, uleb(uint64(len(body))), body)
}

func mod(sections ...[]byte) []byte {
	return cat(header, cat(sections...))
}

// codeEntry frames a function body (locals then instructions) with its size.
func codeEntry(body ...[]byte) []byte {
	b := cat(body...)
	return cat(uleb(uint64(len(b))), b)
}

// sampleModule exercises every section kind. Sections appear in the order
// the binary format prescribes so that other decoders accept it too.
//
//	(module
//	  (type (func (param i32 i32) (result i32)))
//	  (type (func))
//	  (import "env" "log" (func (type 1)))
//	  (func $add (type 0) local.get 0 local.get 1 i32.add)
//	  (table 1 funcref)
//	  (memory 1 2)
//	  (global (mut i32) (i32.const 42))
//	  (export "add" (func 1))
//	  (export "mem" (memory 0))
//	  (elem (i32.const 0) 1)
//	  (data (i32.const 8) "hi"))
func sampleModule() []byte {
	return mod(
		sec(SectionType, vec(
			[]byte{0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f},
			[]byte{0x60, 0x00, 0x00},
		)),
		sec(SectionImport, vec(cat(str("env"), str("log"), []byte{0x00, 0x01}))),
		sec(SectionFunction, vec([]byte{0x00})),
		sec(SectionTable, vec([]byte{0x70, 0x00, 0x01})),
		sec(SectionMemory, vec([]byte{0x01, 0x01, 0x02})),
		sec(SectionGlobal, vec([]byte{0x7f, 0x01, 0x41, 0x2a, 0x0b})),
		sec(SectionExport, vec(
			cat(str("add"), []byte{0x00, 0x01}),
			cat(str("mem"), []byte{0x02, 0x00}),
		)),
		sec(SectionElement, vec([]byte{0x00, 0x41, 0x00, 0x0b, 0x01, 0x01})),
		sec(SectionDataCount, []byte{0x01}),
		sec(SectionCode, vec(codeEntry([]byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}))),
		sec(SectionData, vec(cat([]byte{0x00, 0x41, 0x08, 0x0b}, str("hi")))),
		sec(SectionCustom, str("meta"), []byte{0xde, 0xad}),
	)
}

// funcModule wraps one function body of type () -> () in a minimal module.
func funcModule(body ...[]byte) []byte {
	return mod(
		sec(SectionType, vec([]byte{0x60, 0x00, 0x00})),
		sec(SectionFunction, vec([]byte{0x00})),
		sec(SectionCode, vec(codeEntry(body...))),
	)
}

// nested returns depth block openers followed by depth ends and the
// function's own end.
func nested(depth int) []byte {
	body := []byte{0x00}
	for range depth {
		body = append(body, byte(OpBlock), BlockTypeEmpty)
	}
	for range depth + 1 {
		body = append(body, byte(OpEnd))
	}
	return body
}
