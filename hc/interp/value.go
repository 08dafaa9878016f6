// Package interp is the tree-walking HolyC interpreter: environment,
// value model, control flow, and the TempleOS built-in library.
package interp

import "fmt"

// ValueKind discriminates Value. The sum is closed; coercions are
// centralized in VarType.Coerce.
type ValueKind uint8

const (
	ValVoid ValueKind = iota
	ValInt
	ValFloat
	ValStr
	ValChar
	ValVarRef
	ValFuncRef
	ValPtr
	ValArrayPtr
	ValObjFieldRef
	ValObj
	ValArray
	ValIntView
)

// Object is a structured value. Objects are shared by pointer and
// mutated in place, so field reads never produce dangling aliases.
type Object struct {
	Fields map[string]Value
}

// NewObject builds an empty object.
func NewObject() *Object {
	return &Object{Fields: map[string]Value{}}
}

// ArrayValue is logical structured storage with a per-element stride.
type ArrayValue struct {
	Elems     []Value
	ElemBytes int
}

// Value is the interpreter's tagged union.
type Value struct {
	Kind ValueKind
	// I is the integer payload (ValInt) or pointer address (ValPtr).
	I int64
	// F is the float payload.
	F float64
	// S is the string payload, or the referenced name for
	// VarRef/FuncRef/ObjFieldRef.
	S string
	// C is the packed char payload, or the IntView bits.
	C uint64
	// Obj is the object payload (ValObj, ValObjFieldRef).
	Obj *Object
	// Arr is the array payload (ValArray, ValArrayPtr).
	Arr *ArrayValue
	// Idx is the ArrayPtr element index.
	Idx int64
	// EB is the element stride for Ptr/Array values and the byte width
	// of an IntView.
	EB int
	// Signed marks a signed IntView.
	Signed bool
}

func VoidV() Value           { return Value{Kind: ValVoid} }
func IntV(v int64) Value     { return Value{Kind: ValInt, I: v} }
func FloatV(v float64) Value { return Value{Kind: ValFloat, F: v} }
func StrV(s string) Value    { return Value{Kind: ValStr, S: s} }
func CharV(c uint64) Value   { return Value{Kind: ValChar, C: c} }
func VarRefV(name string) Value {
	return Value{Kind: ValVarRef, S: name}
}
func FuncRefV(name string) Value {
	return Value{Kind: ValFuncRef, S: name}
}
func PtrV(addr int64, elemBytes int) Value {
	return Value{Kind: ValPtr, I: addr, EB: elemBytes}
}
func ArrayPtrV(arr *ArrayValue, idx int64) Value {
	return Value{Kind: ValArrayPtr, Arr: arr, Idx: idx}
}
func FieldRefV(obj *Object, field string) Value {
	return Value{Kind: ValObjFieldRef, Obj: obj, S: field}
}
func ObjV(obj *Object) Value {
	return Value{Kind: ValObj, Obj: obj}
}
func ArrV(arr *ArrayValue) Value {
	return Value{Kind: ValArray, Arr: arr}
}

// Truthy implements HolyC truthiness.
func (v Value) Truthy() bool {
	switch v.Kind {
	case ValInt:
		return v.I != 0
	case ValFloat:
		return v.F != 0
	case ValStr:
		return v.S != ""
	case ValChar:
		return v.C != 0
	case ValPtr:
		return v.I != 0
	case ValVoid:
		return false
	default:
		return true
	}
}

func (v Value) kindName() string {
	switch v.Kind {
	case ValVoid:
		return "void"
	case ValInt:
		return "int"
	case ValFloat:
		return "float"
	case ValStr:
		return "string"
	case ValChar:
		return "char"
	case ValVarRef:
		return "pointer"
	case ValFuncRef:
		return "function pointer"
	case ValPtr:
		return "pointer"
	case ValArrayPtr:
		return "array pointer"
	case ValObjFieldRef:
		return "object field pointer"
	case ValObj:
		return "object"
	case ValArray:
		return "array"
	case ValIntView:
		return "sub-integer view"
	}
	return "value"
}

// AsI64 converts to an integer. Pointers yield their address; floats
// and aggregates are errors.
func (v Value) AsI64() (int64, error) {
	switch v.Kind {
	case ValInt:
		return v.I, nil
	case ValChar:
		return int64(v.C), nil
	case ValPtr:
		return v.I, nil
	}
	return 0, fmt.Errorf("expected int, got %s", v.kindName())
}

// AsF64 converts to a float; ints and chars widen.
func (v Value) AsF64() (float64, error) {
	switch v.Kind {
	case ValInt:
		return float64(v.I), nil
	case ValFloat:
		return v.F, nil
	case ValChar:
		return float64(v.C), nil
	}
	return 0, fmt.Errorf("expected number, got %s", v.kindName())
}

// --- hc.FormatArg ---

// FmtInt implements hc.FormatArg.
func (v Value) FmtInt() (int64, error) { return v.AsI64() }

// FmtFloat implements hc.FormatArg.
func (v Value) FmtFloat() (float64, error) { return v.AsF64() }

// FmtStr implements hc.FormatArg.
func (v Value) FmtStr() (string, bool) {
	if v.Kind == ValStr {
		return v.S, true
	}
	return "", false
}

// ScalarKind classifies declared scalar types.
type ScalarKind uint8

const (
	ScalarNone ScalarKind = iota
	ScalarInt
	ScalarFloat
)

// VarType is a variable's declared type, driving assignment coercion.
type VarType struct {
	// PtrElemBytes is the pointee stride for pointer-qualified
	// variables, 0 otherwise.
	PtrElemBytes int
	Scalar       ScalarKind
}

// Coerce applies declared-type coercion: pointer-qualified variables
// absorb ints and arrays into Ptr/ArrayPtr values carrying the declared
// stride; scalar-qualified variables convert between int and float.
func (t VarType) Coerce(v Value) Value {
	if t.PtrElemBytes > 0 {
		switch v.Kind {
		case ValInt:
			return PtrV(v.I, t.PtrElemBytes)
		case ValPtr:
			return PtrV(v.I, t.PtrElemBytes)
		case ValArray:
			return ArrayPtrV(v.Arr, 0)
		case ValArrayPtr:
			return v
		default:
			return v
		}
	}
	switch {
	case t.Scalar == ScalarFloat && v.Kind == ValInt:
		return FloatV(float64(v.I))
	case t.Scalar == ScalarFloat && v.Kind == ValChar:
		return FloatV(float64(v.C))
	case t.Scalar == ScalarInt && v.Kind == ValFloat:
		return IntV(int64(v.F))
	case t.Scalar == ScalarInt && v.Kind == ValChar:
		return IntV(int64(v.C))
	}
	return v
}
