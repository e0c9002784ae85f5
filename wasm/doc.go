// Package wasm decodes WebAssembly binary modules into a typed tree.
//
// Decoding is a single forward pass over the input: the header, then each
// section framed by its declared size. Function bodies and initializer
// expressions are decoded into nested instruction trees in which block, loop
// and if own their bodies.
//
// # Decoding
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.DecodeModule(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Decode from a stream and report how much was consumed:
//
//	dec := wasm.NewDecoder(f, wasm.DefaultOptions())
//	module, err := dec.Decode()
//	fmt.Println(dec.Offset())
//
// # Sections
//
// Each non-custom section is a pointer field on Module that is nil when the
// section is absent. Sections returns them in a stable order: custom sections
// as encountered, then the rest by id.
//
//	for _, s := range module.Sections() {
//	    switch s := s.(type) {
//	    case *wasm.TypeSection:
//	        fmt.Println(len(s.Types), "types")
//	    case *wasm.CustomSection:
//	        fmt.Println("custom", s.Name)
//	    }
//	}
//
// # Instructions
//
// Instr is implemented by one struct per family. Walk visits a body depth
// first:
//
//	fn.Body.Walk(func(in wasm.Instr, depth int) {
//	    fmt.Printf("%*s%s\n", depth*2, "", in)
//	})
//
// # Errors
//
// Every failure is a *errors.Error from github.com/wippyai/wasm-decoder/errors
// carrying a kind and, where known, the byte offset:
//
//	if errors.Is(err, werrors.ErrSectionSizeMismatch) { ... }
//
// # Options
//
// DefaultOptions is strict. Options can accept duplicate sections or
// zero-padded LEB128, raise the nesting limit, and enable the 0xFC and 0xFD
// prefixed instructions.
//
// # Validation
//
// Validate performs opt-in structural checks on a decoded module. Branch
// targets, call targets and operand types are not checked.
package wasm
