package glsl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"shade/internal/ir"
	"shade/internal/types"
)

func (w *writer) scalarName(t types.TypeID) (string, string, error) {
	tt, _ := w.ty.Lookup(t)
	switch tt.Kind {
	case types.KindBool:
		return "bool", "b", nil
	case types.KindI32:
		return "int", "i", nil
	case types.KindU32:
		return "uint", "u", nil
	case types.KindF32:
		return "float", "", nil
	case types.KindF16:
		w.require("GL_AMD_gpu_shader_half_float")
		return "float16_t", "f16", nil
	}
	return "", "", fmt.Errorf("scalar type %s: %w", w.ty.String(t), ErrUnsupported)
}

// typeName returns the GLSL spelling of a value type.
func (w *writer) typeName(t types.TypeID) (string, error) {
	if name, ok := w.typeNames[t]; ok {
		return name, nil
	}
	tt, ok := w.ty.Lookup(t)
	if !ok {
		return "", fmt.Errorf("type %d: %w", t, ErrUnsupported)
	}
	var name string
	switch tt.Kind {
	case types.KindVoid:
		name = "void"
	case types.KindBool, types.KindI32, types.KindU32, types.KindF32, types.KindF16:
		s, _, err := w.scalarName(t)
		if err != nil {
			return "", err
		}
		name = s
	case types.KindVector:
		_, prefix, err := w.scalarName(tt.Elem)
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("%svec%d", prefix, tt.Count)
	case types.KindMatrix:
		_, prefix, err := w.scalarName(tt.Elem)
		if err != nil {
			return "", err
		}
		if prefix != "" && prefix != "f16" {
			return "", fmt.Errorf("matrix of %s: %w", w.ty.String(tt.Elem), ErrUnsupported)
		}
		name = fmt.Sprintf("%smat%dx%d", prefix, tt.Count, tt.Rows)
	case types.KindArray:
		if tt.Count == types.ArrayRuntimeLength {
			return "", fmt.Errorf("runtime-sized array: %w", ErrUnsupported)
		}
		elem, err := w.typeName(tt.Elem)
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("%s[%d]", elem, tt.Count)
	case types.KindStruct:
		info, _ := w.ty.StructInfo(t)
		name = w.names.call(info.Name)
		w.structs = append(w.structs, t)
	default:
		return "", fmt.Errorf("type %s: %w", w.ty.String(t), ErrUnsupported)
	}
	w.typeNames[t] = name
	return name, nil
}

// literal renders a constant value.
func (w *writer) literal(v *ir.Value) (string, error) {
	if v.Const.Zero {
		return w.zero(v.Type)
	}
	tt, _ := w.ty.Lookup(v.Type)
	switch tt.Kind {
	case types.KindBool:
		return strconv.FormatBool(v.Const.Bool()), nil
	case types.KindI32:
		n := v.Const.I32()
		if n == math.MinInt32 {
			return "(-2147483647 - 1)", nil
		}
		return strconv.FormatInt(int64(n), 10), nil
	case types.KindU32:
		return strconv.FormatUint(uint64(v.Const.U32()), 10) + "u", nil
	case types.KindF32:
		return floatLiteral(v.Const.F32(), "f"), nil
	case types.KindF16:
		w.require("GL_AMD_gpu_shader_half_float")
		return floatLiteral(v.Const.F32(), "hf"), nil
	}
	return "", fmt.Errorf("constant of type %s: %w", w.ty.String(v.Type), ErrUnsupported)
}

func floatLiteral(f float32, suffix string) string {
	switch {
	case math.IsNaN(float64(f)):
		return "(0.0" + suffix + " / 0.0" + suffix + ")"
	case math.IsInf(float64(f), 1):
		return "(1.0" + suffix + " / 0.0" + suffix + ")"
	case math.IsInf(float64(f), -1):
		return "(-1.0" + suffix + " / 0.0" + suffix + ")"
	}
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s + suffix
}

// zero renders the zero value of t.
func (w *writer) zero(t types.TypeID) (string, error) {
	name, err := w.typeName(t)
	if err != nil {
		return "", err
	}
	tt, _ := w.ty.Lookup(t)
	switch tt.Kind {
	case types.KindBool:
		return "false", nil
	case types.KindI32:
		return "0", nil
	case types.KindU32:
		return "0u", nil
	case types.KindF32:
		return "0.0f", nil
	case types.KindF16:
		return "0.0hf", nil
	case types.KindVector, types.KindMatrix:
		elem, err := w.zero(tt.Elem)
		if err != nil {
			return "", err
		}
		return name + "(" + elem + ")", nil
	}
	n := w.ty.NumElements(t)
	parts := make([]string, 0, n)
	for i := range n {
		z, err := w.zero(w.ty.Element(t, i))
		if err != nil {
			return "", err
		}
		parts = append(parts, z)
	}
	return name + "(" + strings.Join(parts, ", ") + ")", nil
}
