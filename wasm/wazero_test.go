package wasm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Cross-check decoded signatures against an independent engine.

func addModule() []byte {
	return mod(
		sec(SectionType, vec([]byte{0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f})),
		sec(SectionFunction, vec([]byte{0x00})),
		sec(SectionExport, vec(cat(str("add"), []byte{0x00, 0x00}))),
		sec(SectionCode, vec(codeEntry([]byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}))),
	)
}

func TestWazero_ExportSignatures(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	for name, bin := range map[string][]byte{
		"sample": sampleModule(),
		"add":    addModule(),
	} {
		t.Run(name, func(t *testing.T) {
			m, err := DecodeModule(bin)
			require.NoError(t, err)
			require.NoError(t, m.Validate())

			compiled, err := rt.CompileModule(ctx, bin)
			require.NoError(t, err)
			defer compiled.Close(ctx)

			defs := compiled.ExportedFunctions()
			for _, exp := range m.Exports() {
				if exp.Kind != ExternFunc {
					continue
				}
				def, ok := defs[exp.Name]
				require.True(t, ok, "wazero missing export %q", exp.Name)

				ft, err := m.FuncType(exp.Func())
				require.NoError(t, err)
				require.Equal(t, valueTypes(ft.Params), def.ParamTypes())
				require.Equal(t, valueTypes(ft.Results), def.ResultTypes())
			}
		})
	}
}

func TestWazero_ImportedFunctions(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	bin := sampleModule()
	m, err := DecodeModule(bin)
	require.NoError(t, err)

	compiled, err := rt.CompileModule(ctx, bin)
	require.NoError(t, err)
	defer compiled.Close(ctx)

	imported := compiled.ImportedFunctions()
	require.Len(t, imported, m.NumImportedFuncs())
	modName, name, ok := imported[0].Import()
	require.True(t, ok)
	require.Equal(t, m.Imports()[0].Module, modName)
	require.Equal(t, m.Imports()[0].Name, name)
}

func TestWazero_RunDecodedFunction(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	bin := addModule()
	m, err := DecodeModule(bin)
	require.NoError(t, err)
	funcs, err := m.Funcs()
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	require.Equal(t, OpI32Add, funcs[0].Body[2].Opcode())

	inst, err := rt.Instantiate(ctx, bin)
	require.NoError(t, err)
	defer inst.Close(ctx)

	res, err := inst.ExportedFunction("add").Call(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, res)
}

func valueTypes(ts []ValType) []api.ValueType {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		out[i] = api.ValueType(t)
	}
	return out
}
