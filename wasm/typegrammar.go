package wasm

import (
	"github.com/wippyai/wasm-decoder/errors"
	"github.com/wippyai/wasm-decoder/wasm/internal/binary"
)

func readValType(r *binary.Reader) (ValType, error) {
	at := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	vt := ValType(b)
	if !vt.IsNum() && !vt.IsVec() && !vt.IsRef() {
		return 0, errors.InvalidTag(errors.PhaseType, at, "value type", b)
	}
	return vt, nil
}

func readRefType(r *binary.Reader) (RefType, error) {
	at := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if !ValType(b).IsRef() {
		return 0, errors.InvalidTag(errors.PhaseType, at, "reference type", b)
	}
	return RefType(b), nil
}

func readFuncType(r *binary.Reader) (FuncType, error) {
	at := r.Position()
	form, err := r.ReadByte()
	if err != nil {
		return FuncType{}, err
	}
	if form != FuncTypeByte {
		return FuncType{}, errors.InvalidTag(errors.PhaseType, at, "function type form", form)
	}
	params, err := binary.ReadVec(r, readValType)
	if err != nil {
		return FuncType{}, err
	}
	results, err := binary.ReadVec(r, readValType)
	if err != nil {
		return FuncType{}, err
	}
	return FuncType{Params: params, Results: results}, nil
}

// readLimits does not check min <= max; see Module.Validate.
func readLimits(r *binary.Reader) (Limits, error) {
	at := r.Position()
	flag, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	if flag != LimitsNoMax && flag != LimitsHasMax {
		return Limits{}, errors.InvalidTag(errors.PhaseType, at, "limits flag", flag)
	}

	var l Limits
	if l.Min, err = r.ReadU32(); err != nil {
		return Limits{}, err
	}
	if flag == LimitsHasMax {
		maxVal, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		l.Max = &maxVal
	}
	return l, nil
}

func readTableType(r *binary.Reader) (TableType, error) {
	elem, err := readRefType(r)
	if err != nil {
		return TableType{}, err
	}
	limits, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elem, Limits: limits}, nil
}

func readMemType(r *binary.Reader) (MemType, error) {
	limits, err := readLimits(r)
	if err != nil {
		return MemType{}, err
	}
	return MemType{Limits: limits}, nil
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	vt, err := readValType(r)
	if err != nil {
		return GlobalType{}, err
	}
	at := r.Position()
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if Mut(mut) != Const && Mut(mut) != Var {
		return GlobalType{}, errors.InvalidTag(errors.PhaseType, at, "mutability", mut)
	}
	return GlobalType{ValType: vt, Mut: Mut(mut)}, nil
}
