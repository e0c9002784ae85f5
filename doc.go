// Package wasmdecoder decodes WebAssembly core module binaries into a typed,
// immutable in-memory representation.
//
// # Architecture Overview
//
// The library is organized into a few packages with distinct responsibilities:
//
//	wasmdecoder/           Root package (documentation only)
//	├── wasm/              Module, section and instruction decoding
//	│   └── internal/binary/   Byte cursor, LEB128 and name primitives
//	├── errors/            Structured error types for debugging
//	└── cmd/wasmdump/      Command-line and TUI module inspector
//
// # Quick Start
//
// Decode a module and walk its function bodies:
//
//	m, err := wasm.DecodeModule(data)
//	if err != nil {
//	    return err
//	}
//	funcs, err := m.Funcs()
//	if err != nil {
//	    return err
//	}
//	for _, f := range funcs {
//	    f.Body.Walk(func(in wasm.Instr, depth int) {
//	        fmt.Println(strings.Repeat("  ", depth), in)
//	    })
//	}
//
// Streaming input is supported through wasm.NewDecoder, which reads from any
// io.Reader and reports its byte offset as it goes.
//
// # Errors
//
// Every failure is an *errors.Error carrying a Kind, the Phase that produced
// it and, where one exists, the absolute byte offset of the offending input:
//
//	if errors.Is(err, wasmerrors.ErrNestingTooDeep) {
//	    // reject untrusted input
//	}
//
// # Validation
//
// Decoding is structural only. Module.Validate adds cheap cross-section
// checks (index bounds, limits, export uniqueness) without type checking
// instruction sequences.
package wasmdecoder
