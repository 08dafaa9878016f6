package interp

import (
	"fmt"

	"github.com/templelinux/temple/hc"
)

func (v *Vm) evalExpr(e hc.Expr) (Value, error) {
	switch x := e.(type) {
	case *hc.IntLit:
		return IntV(x.Val), nil
	case *hc.FloatLit:
		return FloatV(x.Val), nil
	case *hc.StrLit:
		return StrV(x.Val), nil
	case *hc.CharLit:
		return CharV(x.Val), nil
	case *hc.DefaultArgExpr:
		return IntV(0), nil
	case *hc.VarExpr:
		if val, ok := v.env.Get(x.Name); ok {
			return val, nil
		}
		// HolyC calls a bare function name; &name yields the pointer.
		if v.program.Functions[x.Name] != nil || isBuiltin(x.Name) {
			return v.call(x.Name, nil)
		}
		return Value{}, fmt.Errorf("unknown variable: %s", x.Name)
	case *hc.CallExpr:
		if x.Name == "__init_list" {
			return Value{}, fmt.Errorf("initializer list outside a declaration")
		}
		return v.call(x.Name, x.Args)
	case *hc.UnaryExpr:
		return v.evalUnary(x)
	case *hc.BinaryExpr:
		return v.evalBinary(x)
	case *hc.IndexExpr:
		return v.evalIndex(x)
	case *hc.FieldExpr:
		return v.evalField(x)
	case *hc.AddrOfExpr:
		return v.evalAddrOf(x.X)
	case *hc.DerefExpr:
		return v.evalDeref(x.X)
	case *hc.SizeOfExpr:
		return v.evalSizeOf(x.X)
	case *hc.IncDecExpr:
		return v.evalIncDec(x)
	case *hc.AssignExpr:
		rhs, err := v.evalExpr(x.Rhs)
		if err != nil {
			return Value{}, err
		}
		stored, err := v.storeAssign(x.Op, x.Lhs, rhs)
		if err != nil {
			return Value{}, err
		}
		return stored, nil
	}
	return Value{}, fmt.Errorf("internal: unknown expression %T", e)
}

func (v *Vm) evalUnary(x *hc.UnaryExpr) (Value, error) {
	val, err := v.evalExpr(x.X)
	if err != nil {
		return Value{}, err
	}
	switch x.Op {
	case hc.UnaryNeg:
		if val.Kind == ValFloat {
			return FloatV(-val.F), nil
		}
		n, err := val.AsI64()
		if err != nil {
			return Value{}, err
		}
		return IntV(-n), nil
	case hc.UnaryNot:
		if val.Truthy() {
			return IntV(0), nil
		}
		return IntV(1), nil
	case hc.UnaryBitNot:
		n, err := val.AsI64()
		if err != nil {
			return Value{}, err
		}
		return IntV(^n), nil
	}
	return Value{}, fmt.Errorf("internal: unknown unary op")
}

func (v *Vm) evalBinary(x *hc.BinaryExpr) (Value, error) {
	// Short-circuit logical operators.
	if x.Op == hc.BinAnd || x.Op == hc.BinOr {
		a, err := v.evalExpr(x.X)
		if err != nil {
			return Value{}, err
		}
		if x.Op == hc.BinAnd && !a.Truthy() {
			return IntV(0), nil
		}
		if x.Op == hc.BinOr && a.Truthy() {
			return IntV(1), nil
		}
		b, err := v.evalExpr(x.Y)
		if err != nil {
			return Value{}, err
		}
		if b.Truthy() {
			return IntV(1), nil
		}
		return IntV(0), nil
	}

	a, err := v.evalExpr(x.X)
	if err != nil {
		return Value{}, err
	}
	b, err := v.evalExpr(x.Y)
	if err != nil {
		return Value{}, err
	}
	return v.applyBinary(x.Op, a, b)
}

func (v *Vm) applyBinary(op hc.BinOp, a, b Value) (Value, error) {
	// String equality is byte-wise.
	if a.Kind == ValStr && b.Kind == ValStr {
		switch op {
		case hc.BinEq:
			return boolV(a.S == b.S), nil
		case hc.BinNe:
			return boolV(a.S != b.S), nil
		case hc.BinAdd:
			return StrV(a.S + b.S), nil
		}
		return Value{}, fmt.Errorf("unsupported string operation")
	}

	// Pointer arithmetic advances by the element stride.
	if a.Kind == ValPtr && (op == hc.BinAdd || op == hc.BinSub) && b.Kind != ValFloat {
		n, err := b.AsI64()
		if err != nil {
			return Value{}, err
		}
		eb := int64(a.EB)
		if eb < 1 {
			eb = 1
		}
		if op == hc.BinSub {
			n = -n
		}
		return PtrV(a.I+n*eb, a.EB), nil
	}
	if a.Kind == ValArrayPtr && (op == hc.BinAdd || op == hc.BinSub) && b.Kind != ValFloat {
		n, err := b.AsI64()
		if err != nil {
			return Value{}, err
		}
		if op == hc.BinSub {
			n = -n
		}
		return ArrayPtrV(a.Arr, a.Idx+n), nil
	}

	// Mixed arithmetic promotes to float when either side is float.
	if a.Kind == ValFloat || b.Kind == ValFloat {
		af, err := a.AsF64()
		if err != nil {
			return Value{}, err
		}
		bf, err := b.AsF64()
		if err != nil {
			return Value{}, err
		}
		switch op {
		case hc.BinAdd:
			return FloatV(af + bf), nil
		case hc.BinSub:
			return FloatV(af - bf), nil
		case hc.BinMul:
			return FloatV(af * bf), nil
		case hc.BinDiv:
			return FloatV(af / bf), nil
		case hc.BinEq:
			return boolV(af == bf), nil
		case hc.BinNe:
			return boolV(af != bf), nil
		case hc.BinLt:
			return boolV(af < bf), nil
		case hc.BinLe:
			return boolV(af <= bf), nil
		case hc.BinGt:
			return boolV(af > bf), nil
		case hc.BinGe:
			return boolV(af >= bf), nil
		}
		return Value{}, fmt.Errorf("unsupported float operation")
	}

	ai, err := a.AsI64()
	if err != nil {
		return Value{}, err
	}
	bi, err := b.AsI64()
	if err != nil {
		return Value{}, err
	}
	switch op {
	case hc.BinAdd:
		return IntV(ai + bi), nil
	case hc.BinSub:
		return IntV(ai - bi), nil
	case hc.BinMul:
		return IntV(ai * bi), nil
	case hc.BinDiv:
		if bi == 0 {
			return Value{}, fmt.Errorf("integer division by zero")
		}
		return IntV(ai / bi), nil
	case hc.BinMod:
		if bi == 0 {
			return Value{}, fmt.Errorf("integer modulo by zero")
		}
		return IntV(ai % bi), nil
	case hc.BinShl:
		return IntV(ai << uint(bi&63)), nil
	case hc.BinShr:
		return IntV(ai >> uint(bi&63)), nil
	case hc.BinBitAnd:
		return IntV(ai & bi), nil
	case hc.BinBitOr:
		return IntV(ai | bi), nil
	case hc.BinBitXor:
		return IntV(ai ^ bi), nil
	case hc.BinEq:
		return boolV(ai == bi), nil
	case hc.BinNe:
		return boolV(ai != bi), nil
	case hc.BinLt:
		return boolV(ai < bi), nil
	case hc.BinLe:
		return boolV(ai <= bi), nil
	case hc.BinGt:
		return boolV(ai > bi), nil
	case hc.BinGe:
		return boolV(ai >= bi), nil
	}
	return Value{}, fmt.Errorf("internal: unknown binary op")
}

func boolV(b bool) Value {
	if b {
		return IntV(1)
	}
	return IntV(0)
}

// --- L-values ---

type lvKind uint8

const (
	lvVar lvKind = iota
	lvArrayElem
	lvObjField
	lvHeap
)

type lvalue struct {
	kind  lvKind
	name  string
	arr   *ArrayValue
	idx   int64
	obj   *Object
	field string
	addr  int64
	eb    int
}

func (v *Vm) lvRead(lv lvalue) (Value, error) {
	switch lv.kind {
	case lvVar:
		if val, ok := v.env.Get(lv.name); ok {
			return val, nil
		}
		return Value{}, fmt.Errorf("unknown variable: %s", lv.name)
	case lvArrayElem:
		if lv.idx < 0 || lv.idx >= int64(len(lv.arr.Elems)) {
			return Value{}, fmt.Errorf("array index out of range: %d", lv.idx)
		}
		return lv.arr.Elems[lv.idx], nil
	case lvObjField:
		if val, ok := lv.obj.Fields[lv.field]; ok {
			return val, nil
		}
		return IntV(0), nil
	case lvHeap:
		n, err := v.heapReadIntLE(lv.addr, lv.eb)
		if err != nil {
			return Value{}, err
		}
		return IntV(n), nil
	}
	return Value{}, fmt.Errorf("internal: bad lvalue")
}

func (v *Vm) lvWrite(lv lvalue, val Value) error {
	switch lv.kind {
	case lvVar:
		return v.env.Assign(lv.name, val)
	case lvArrayElem:
		if lv.idx < 0 || lv.idx >= int64(len(lv.arr.Elems)) {
			return fmt.Errorf("array index out of range: %d", lv.idx)
		}
		lv.arr.Elems[lv.idx] = val
		// Writes into text.font[] reach the live glyph table.
		if lv.arr == v.textFontArr && lv.idx < 256 {
			if bits, err := val.AsI64(); err == nil {
				v.surf.SetFontGlyph(byte(lv.idx), uint64(bits))
			}
		}
		return nil
	case lvObjField:
		lv.obj.Fields[lv.field] = val
		return nil
	case lvHeap:
		n, err := val.AsI64()
		if err != nil {
			if val.Kind == ValFloat {
				n = int64(val.F)
			} else {
				return err
			}
		}
		return v.heapWriteIntLE(lv.addr, lv.eb, n)
	}
	return fmt.Errorf("internal: bad lvalue")
}

// resolveLValue maps an expression onto a settable storage location.
func (v *Vm) resolveLValue(e hc.Expr) (lvalue, error) {
	switch x := e.(type) {
	case *hc.VarExpr:
		return lvalue{kind: lvVar, name: x.Name}, nil
	case *hc.IndexExpr:
		base, err := v.evalExpr(x.X)
		if err != nil {
			return lvalue{}, err
		}
		idxV, err := v.evalExpr(x.Idx)
		if err != nil {
			return lvalue{}, err
		}
		idx, err := idxV.AsI64()
		if err != nil {
			return lvalue{}, err
		}
		switch base.Kind {
		case ValArray:
			return lvalue{kind: lvArrayElem, arr: base.Arr, idx: idx}, nil
		case ValArrayPtr:
			return lvalue{kind: lvArrayElem, arr: base.Arr, idx: base.Idx + idx}, nil
		case ValPtr:
			eb := base.EB
			if eb < 1 {
				eb = 1
			}
			return lvalue{kind: lvHeap, addr: base.I + idx*int64(eb), eb: eb}, nil
		}
		return lvalue{}, fmt.Errorf("cannot index %s", base.kindName())
	case *hc.FieldExpr:
		obj, err := v.evalFieldBase(x.X)
		if err != nil {
			return lvalue{}, err
		}
		return lvalue{kind: lvObjField, obj: obj, field: x.Name}, nil
	case *hc.DerefExpr:
		ptr, err := v.evalExpr(x.X)
		if err != nil {
			return lvalue{}, err
		}
		switch ptr.Kind {
		case ValPtr:
			eb := ptr.EB
			if eb < 1 {
				eb = 1
			}
			return lvalue{kind: lvHeap, addr: ptr.I, eb: eb}, nil
		case ValArrayPtr:
			return lvalue{kind: lvArrayElem, arr: ptr.Arr, idx: ptr.Idx}, nil
		case ValVarRef:
			return lvalue{kind: lvVar, name: ptr.S}, nil
		case ValObjFieldRef:
			return lvalue{kind: lvObjField, obj: ptr.Obj, field: ptr.S}, nil
		}
		return lvalue{}, fmt.Errorf("cannot store through %s", ptr.kindName())
	}
	return lvalue{}, fmt.Errorf("expression is not assignable")
}

// evalFieldBase evaluates the receiver of a field access down to an
// object, following references.
func (v *Vm) evalFieldBase(e hc.Expr) (*Object, error) {
	val, err := v.evalExpr(e)
	if err != nil {
		return nil, err
	}
	return valueToObject(v, val)
}

func valueToObject(v *Vm, val Value) (*Object, error) {
	switch val.Kind {
	case ValObj:
		return val.Obj, nil
	case ValObjFieldRef:
		inner, ok := val.Obj.Fields[val.S]
		if ok && inner.Kind == ValObj {
			return inner.Obj, nil
		}
		return nil, fmt.Errorf("field %s is not an object", val.S)
	case ValVarRef:
		inner, ok := v.env.Get(val.S)
		if !ok {
			return nil, fmt.Errorf("unknown variable: %s", val.S)
		}
		return valueToObject(v, inner)
	case ValArrayPtr:
		if val.Idx >= 0 && val.Idx < int64(len(val.Arr.Elems)) {
			elem := val.Arr.Elems[val.Idx]
			if elem.Kind == ValObj {
				return elem.Obj, nil
			}
		}
		return nil, fmt.Errorf("array element is not an object")
	}
	return nil, fmt.Errorf("cannot access fields of %s", val.kindName())
}

func (v *Vm) evalIndex(x *hc.IndexExpr) (Value, error) {
	base, err := v.evalExpr(x.X)
	if err != nil {
		return Value{}, err
	}
	idxV, err := v.evalExpr(x.Idx)
	if err != nil {
		return Value{}, err
	}
	idx, err := idxV.AsI64()
	if err != nil {
		return Value{}, err
	}

	switch base.Kind {
	case ValArray:
		if idx < 0 || idx >= int64(len(base.Arr.Elems)) {
			return Value{}, fmt.Errorf("array index out of range: %d", idx)
		}
		return base.Arr.Elems[idx], nil
	case ValArrayPtr:
		at := base.Idx + idx
		if at < 0 || at >= int64(len(base.Arr.Elems)) {
			return Value{}, fmt.Errorf("array index out of range: %d", at)
		}
		return base.Arr.Elems[at], nil
	case ValPtr:
		eb := base.EB
		if eb < 1 {
			eb = 1
		}
		n, err := v.heapReadIntLE(base.I+idx*int64(eb), eb)
		if err != nil {
			return Value{}, err
		}
		return IntV(n), nil
	case ValStr:
		if idx < 0 || idx >= int64(len(base.S)) {
			return IntV(0), nil
		}
		return IntV(int64(base.S[idx])), nil
	}
	return Value{}, fmt.Errorf("cannot index %s", base.kindName())
}

func (v *Vm) evalField(x *hc.FieldExpr) (Value, error) {
	obj, err := v.evalFieldBase(x.X)
	if err != nil {
		return Value{}, err
	}
	if val, ok := obj.Fields[x.Name]; ok {
		return val, nil
	}
	return IntV(0), nil
}

func (v *Vm) evalAddrOf(e hc.Expr) (Value, error) {
	switch x := e.(type) {
	case *hc.VarExpr:
		if val, ok := v.env.Get(x.Name); ok {
			switch val.Kind {
			case ValArray:
				return ArrayPtrV(val.Arr, 0), nil
			case ValObj:
				return ObjV(val.Obj), nil
			}
		}
		if v.program.Functions[x.Name] != nil || isBuiltin(x.Name) {
			return FuncRefV(x.Name), nil
		}
		return VarRefV(x.Name), nil
	case *hc.FieldExpr:
		obj, err := v.evalFieldBase(x.X)
		if err != nil {
			return Value{}, err
		}
		return FieldRefV(obj, x.Name), nil
	case *hc.IndexExpr:
		lv, err := v.resolveLValue(x)
		if err != nil {
			return Value{}, err
		}
		switch lv.kind {
		case lvArrayElem:
			return ArrayPtrV(lv.arr, lv.idx), nil
		case lvHeap:
			return PtrV(lv.addr, lv.eb), nil
		}
		return Value{}, fmt.Errorf("cannot take the address of this index")
	default:
		return Value{}, fmt.Errorf("cannot take the address of this expression")
	}
}

func (v *Vm) evalDeref(e hc.Expr) (Value, error) {
	ptr, err := v.evalExpr(e)
	if err != nil {
		return Value{}, err
	}
	switch ptr.Kind {
	case ValPtr:
		eb := ptr.EB
		if eb < 1 {
			eb = 1
		}
		n, err := v.heapReadIntLE(ptr.I, eb)
		if err != nil {
			return Value{}, err
		}
		return IntV(n), nil
	case ValArrayPtr:
		if ptr.Idx < 0 || ptr.Idx >= int64(len(ptr.Arr.Elems)) {
			return Value{}, fmt.Errorf("array pointer out of range")
		}
		return ptr.Arr.Elems[ptr.Idx], nil
	case ValVarRef:
		if val, ok := v.env.Get(ptr.S); ok {
			return val, nil
		}
		return Value{}, fmt.Errorf("unknown variable: %s", ptr.S)
	case ValObjFieldRef:
		if val, ok := ptr.Obj.Fields[ptr.S]; ok {
			return val, nil
		}
		return IntV(0), nil
	case ValObj:
		return ptr, nil
	}
	return Value{}, fmt.Errorf("cannot dereference %s", ptr.kindName())
}

func (v *Vm) evalSizeOf(e hc.Expr) (Value, error) {
	if name, ok := e.(*hc.VarExpr); ok {
		if def, ok := v.program.Classes[name.Name]; ok {
			return IntV(int64(len(def.Fields)) * 8), nil
		}
		if hc.IsScalarTypeName(name.Name) || hc.IsUserTypeName(name.Name) {
			return IntV(int64(hc.TypeSizeBytes(name.Name, false))), nil
		}
	}
	val, err := v.evalExpr(e)
	if err != nil {
		return Value{}, err
	}
	switch val.Kind {
	case ValStr:
		return IntV(int64(len(val.S)) + 1), nil
	case ValArray:
		eb := val.Arr.ElemBytes
		if eb < 1 {
			eb = 1
		}
		return IntV(int64(len(val.Arr.Elems) * eb)), nil
	default:
		return IntV(8), nil
	}
}

func (v *Vm) evalIncDec(x *hc.IncDecExpr) (Value, error) {
	lv, err := v.resolveLValue(x.X)
	if err != nil {
		return Value{}, err
	}
	old, err := v.lvRead(lv)
	if err != nil {
		return Value{}, err
	}

	var updated Value
	switch old.Kind {
	case ValFloat:
		d := 1.0
		if x.Dec {
			d = -1
		}
		updated = FloatV(old.F + d)
	case ValPtr:
		d := int64(1)
		if x.Dec {
			d = -1
		}
		eb := int64(old.EB)
		if eb < 1 {
			eb = 1
		}
		updated = PtrV(old.I+d*eb, old.EB)
	case ValArrayPtr:
		d := int64(1)
		if x.Dec {
			d = -1
		}
		updated = ArrayPtrV(old.Arr, old.Idx+d)
	default:
		n, err := old.AsI64()
		if err != nil {
			return Value{}, err
		}
		if x.Dec {
			n--
		} else {
			n++
		}
		updated = IntV(n)
	}

	if err := v.lvWrite(lv, updated); err != nil {
		return Value{}, err
	}
	if x.Post {
		return old, nil
	}
	return updated, nil
}

var assignBinOps = map[hc.AssignOp]hc.BinOp{
	hc.AssignAdd: hc.BinAdd, hc.AssignSub: hc.BinSub,
	hc.AssignMul: hc.BinMul, hc.AssignDiv: hc.BinDiv,
	hc.AssignMod: hc.BinMod, hc.AssignShl: hc.BinShl,
	hc.AssignShr: hc.BinShr, hc.AssignAnd: hc.BinBitAnd,
	hc.AssignOr: hc.BinBitOr, hc.AssignXor: hc.BinBitXor,
}

// storeAssign applies simple or compound assignment and returns the
// stored value.
func (v *Vm) storeAssign(op hc.AssignOp, lhs hc.Expr, rhs Value) (Value, error) {
	lv, err := v.resolveLValue(lhs)
	if err != nil {
		return Value{}, err
	}
	val := rhs
	if op != hc.AssignSet {
		old, err := v.lvRead(lv)
		if err != nil {
			return Value{}, err
		}
		val, err = v.applyBinary(assignBinOps[op], old, rhs)
		if err != nil {
			return Value{}, err
		}
	}
	if err := v.lvWrite(lv, val); err != nil {
		return Value{}, err
	}
	return val, nil
}

func (v *Vm) execAssign(op hc.AssignOp, lhs hc.Expr, rhs hc.Expr) error {
	val, err := v.evalExpr(rhs)
	if err != nil {
		return err
	}
	_, err = v.storeAssign(op, lhs, val)
	return err
}

// --- Declarations ---

func (v *Vm) evalDeclValue(d *hc.Decl) (Value, error) {
	if len(d.ArrayLens) > 0 {
		return v.evalArrayValue(d.Ty, d.Pointer, d.ArrayLens, d.Init)
	}
	if d.Init != nil {
		if _, ok := d.Init.(*hc.CallExpr); ok {
			if call := d.Init.(*hc.CallExpr); call.Name == "__init_list" {
				return Value{}, fmt.Errorf("initializer list on a scalar variable %s", d.Name)
			}
		}
		return v.evalExpr(d.Init)
	}
	return v.defaultValueForType(d.Ty, d.Pointer)
}

func (v *Vm) defaultValueForType(ty string, pointer bool) (Value, error) {
	if pointer {
		eb := hc.TypeSizeBytes(ty, false)
		if eb < 1 {
			eb = 1
		}
		return PtrV(0, eb), nil
	}
	switch ty {
	case "F32", "F64":
		return FloatV(0), nil
	}
	if _, ok := v.program.Classes[ty]; ok {
		return v.allocClassValue(ty)
	}
	if hc.IsScalarTypeName(ty) {
		return IntV(0), nil
	}
	if hc.IsUserTypeName(ty) {
		return ObjV(NewObject()), nil
	}
	return IntV(0), nil
}

// evalArrayValue builds (possibly nested) array storage with the
// declared element stride, applying an optional initializer list.
func (v *Vm) evalArrayValue(ty string, pointer bool, lens []hc.Expr, init hc.Expr) (Value, error) {
	extent, err := v.evalExpr(lens[0])
	if err != nil {
		return Value{}, err
	}
	n, err := extent.AsI64()
	if err != nil {
		return Value{}, err
	}
	if n < 0 {
		return Value{}, fmt.Errorf("negative array extent")
	}

	eb := hc.TypeSizeBytes(ty, pointer)
	if eb < 1 {
		eb = 1
	}

	var initElems []hc.Expr
	if call, ok := init.(*hc.CallExpr); ok && call.Name == "__init_list" {
		initElems = call.Args
	} else if init != nil && len(lens) == 1 {
		// A string initializer fills a byte array.
		if s, ok := init.(*hc.StrLit); ok && eb == 1 {
			elems := make([]Value, n)
			for i := range elems {
				if i < len(s.Val) {
					elems[i] = IntV(int64(s.Val[i]))
				} else {
					elems[i] = IntV(0)
				}
			}
			return ArrV(&ArrayValue{Elems: elems, ElemBytes: eb}), nil
		}
	}

	elems := make([]Value, n)
	for i := int64(0); i < n; i++ {
		var elemInit hc.Expr
		if initElems != nil && int(i) < len(initElems) {
			elemInit = initElems[i]
		}
		if len(lens) > 1 {
			val, err := v.evalArrayValue(ty, pointer, lens[1:], elemInit)
			if err != nil {
				return Value{}, err
			}
			elems[i] = val
			continue
		}
		if elemInit != nil {
			val, err := v.evalExpr(elemInit)
			if err != nil {
				return Value{}, err
			}
			elems[i] = val
			continue
		}
		def, err := v.defaultValueForType(ty, pointer)
		if err != nil {
			return Value{}, err
		}
		elems[i] = def
	}
	return ArrV(&ArrayValue{Elems: elems, ElemBytes: eb}), nil
}

// evalArgI64 evaluates argument i as an integer, treating a missing or
// default-arg slot as zero.
func (v *Vm) evalArgI64(args []hc.Expr, i int) (int64, error) {
	if i >= len(args) {
		return 0, nil
	}
	if _, ok := args[i].(*hc.DefaultArgExpr); ok {
		return 0, nil
	}
	val, err := v.evalExpr(args[i])
	if err != nil {
		return 0, err
	}
	if val.Kind == ValFloat {
		return int64(val.F), nil
	}
	return val.AsI64()
}

// evalArgF64 evaluates argument i as a float, default 0.
func (v *Vm) evalArgF64(args []hc.Expr, i int) (float64, error) {
	if i >= len(args) {
		return 0, nil
	}
	if _, ok := args[i].(*hc.DefaultArgExpr); ok {
		return 0, nil
	}
	val, err := v.evalExpr(args[i])
	if err != nil {
		return 0, err
	}
	return val.AsF64()
}
