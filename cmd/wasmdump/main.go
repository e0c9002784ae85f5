package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-decoder/errors"
	"github.com/wippyai/wasm-decoder/wasm"
)

func main() {
	var (
		verbose     = flag.Bool("v", false, "Log decoding progress")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		showCode    = flag.Bool("code", false, "Disassemble function bodies")
		validate    = flag.Bool("validate", false, "Run structural validation after decoding")
		extended    = flag.Bool("extended", false, "Decode 0xFC and 0xFD prefixed instructions")
		lenient     = flag.Bool("lenient", false, "Accept non-canonical LEB128 encodings")
		maxDepth    = flag.Int("max-depth", wasm.DefaultMaxNestingDepth, "Maximum block nesting depth")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wasmdump [-v] [-code] [-validate] <file.wasm>")
		fmt.Fprintln(os.Stderr, "       wasmdump -i <file.wasm>  (interactive mode)")
		os.Exit(1)
	}
	file := flag.Arg(0)

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log = l
	}
	defer func() { _ = log.Sync() }()

	opts := wasm.DefaultOptions()
	opts.Logger = log
	opts.MaxNestingDepth = *maxDepth
	opts.ExtendedOpcodes = *extended
	opts.AllowNonCanonicalLEB128 = *lenient

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(file, opts, *validate); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	width := 80
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}

	if err := run(os.Stdout, file, opts, width, *showCode, *validate); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(w io.Writer, file string, opts wasm.Options, width int, showCode, validate bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var m *wasm.Module
	if validate {
		m, err = wasm.DecodeAndValidate(data, opts)
	} else {
		m, err = wasm.DecodeModuleWithOptions(data, opts)
	}
	if err != nil {
		return err
	}

	d := newDumper(m, width, showCode)
	d.writeSummary(w, file)
	d.writeDetails(w)
	return nil
}

// reportError prints err with its kind and offset when it is structured.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
	kind := errors.KindOf(err)
	if kind == "" {
		return
	}
	if off := errors.OffsetOf(err); off != errors.NoOffset {
		fmt.Fprintf(w, "  kind %s at offset 0x%x\n", kind, off)
		return
	}
	fmt.Fprintf(w, "  kind %s\n", kind)
}
