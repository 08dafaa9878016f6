package interp

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/templelinux/temple/hc"
)

func (v *Vm) callBuiltinCore(name string, args []hc.Expr) (Value, error) {
	switch name {
	case "Clear":
		c, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		v.surf.Clear(byte(c))
		return VoidV(), nil

	case "Now":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("Now expects 0 args")
		}
		now := time.Now()
		secs := now.Unix()
		nanos := int64(now.Nanosecond())
		days := secs / 86400
		secsInDay := ((secs % 86400) + 86400) % 86400
		ticks := secsInDay*hc.CDateFreqHz + nanos*hc.CDateFreqHz/1_000_000_000
		if ticks < 0 {
			ticks = 0
		}
		if ticks > int64(^uint32(0)) {
			ticks = int64(^uint32(0))
		}
		return IntV(days<<32 | ticks), nil

	case "tS":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("tS expects 0 args")
		}
		if v.fixedTS != nil {
			return FloatV(*v.fixedTS), nil
		}
		return FloatV(time.Since(v.start).Seconds()), nil

	case "Tri":
		if len(args) != 2 {
			return Value{}, fmt.Errorf("Tri(t, period) expects 2 args")
		}
		t, err := v.evalArgF64(args, 0)
		if err != nil {
			return Value{}, err
		}
		period, err := v.evalArgF64(args, 1)
		if err != nil {
			return Value{}, err
		}
		if period == 0 {
			return FloatV(0), nil
		}
		period = math.Abs(period)
		tt := math.Mod(math.Abs(t), period) / period * 2
		if tt > 1 {
			tt = 2 - tt
		}
		return FloatV(tt), nil

	case "Abs":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("Abs(x) expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if val.Kind == ValFloat {
			return FloatV(math.Abs(val.F)), nil
		}
		n, err := val.AsI64()
		if err != nil {
			return Value{}, err
		}
		if n == math.MinInt64 {
			return IntV(math.MaxInt64), nil
		}
		if n < 0 {
			n = -n
		}
		return IntV(n), nil

	case "Max":
		if len(args) != 2 {
			return Value{}, fmt.Errorf("Max(a, b) expects 2 args")
		}
		a, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		b, err := v.evalExpr(args[1])
		if err != nil {
			return Value{}, err
		}
		if a.Kind == ValFloat || b.Kind == ValFloat {
			af, err := a.AsF64()
			if err != nil {
				return Value{}, err
			}
			bf, err := b.AsF64()
			if err != nil {
				return Value{}, err
			}
			return FloatV(math.Max(af, bf)), nil
		}
		ai, err := a.AsI64()
		if err != nil {
			return Value{}, err
		}
		bi, err := b.AsI64()
		if err != nil {
			return Value{}, err
		}
		if bi > ai {
			ai = bi
		}
		return IntV(ai), nil

	case "Sqr":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("Sqr(x) expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if val.Kind == ValFloat {
			return FloatV(val.F * val.F), nil
		}
		n, err := val.AsI64()
		if err != nil {
			return Value{}, err
		}
		return IntV(n * n), nil

	case "Cos", "Sin", "Sqrt", "Exp":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("%s(x) expects 1 arg", name)
		}
		x, err := v.evalArgF64(args, 0)
		if err != nil {
			return Value{}, err
		}
		switch name {
		case "Cos":
			return FloatV(math.Cos(x)), nil
		case "Sin":
			return FloatV(math.Sin(x)), nil
		case "Sqrt":
			return FloatV(math.Sqrt(x)), nil
		default:
			return FloatV(math.Exp(x)), nil
		}

	case "Arg":
		if len(args) != 2 {
			return Value{}, fmt.Errorf("Arg(x, y) expects 2 args")
		}
		x, err := v.evalArgF64(args, 0)
		if err != nil {
			return Value{}, err
		}
		y, err := v.evalArgF64(args, 1)
		if err != nil {
			return Value{}, err
		}
		return FloatV(math.Atan2(y, x)), nil

	case "ToI64":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("ToI64(x) expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if val.Kind == ValFloat {
			return IntV(int64(val.F)), nil
		}
		n, err := val.AsI64()
		if err != nil {
			return Value{}, err
		}
		return IntV(n), nil

	case "Noise":
		if len(args) != 3 {
			return Value{}, fmt.Errorf("Noise(ms, ona0, ona1) expects 3 args")
		}
		for _, a := range args {
			if _, err := v.evalExpr(a); err != nil {
				return Value{}, err
			}
		}
		return VoidV(), nil

	case "MAlloc", "CAlloc", "ACAlloc":
		return v.builtinAlloc(name, args)

	case "Free":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("Free(ptr) expects 1 arg")
		}
		// The heap is append-only for the session's lifetime.
		_, err := v.evalExpr(args[0])
		return VoidV(), err

	case "FileRead":
		return v.builtinFileRead(args)
	case "FileWrite":
		return v.builtinFileWrite(args)
	case "StrLen":
		return v.builtinStrLen(args)
	case "StrNew":
		return v.builtinStrNew(args)
	case "StrCpy":
		return v.builtinStrCpy(args)
	case "QueInit":
		return v.builtinQueInit(args)
	case "QueIns":
		return v.builtinQueIns(args)
	case "QueRem":
		return v.builtinQueRem(args)
	case "MemSet":
		return v.builtinMemSet(args)
	case "MemSetU16":
		return v.builtinMemSetU16(args)
	case "MemCpy":
		return v.builtinMemCpy(args)
	case "QSortI64":
		return v.builtinQSortI64(args)
	case "TaskDerivedValsUpdate":
		return v.builtinTaskDerivedValsUpdate(args)
	}
	return Value{}, fmt.Errorf("unknown function")
}

func (v *Vm) builtinAlloc(name string, args []hc.Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("%s(size) expects 1 arg", name)
	}

	// MAlloc(sizeof(CFoo)) instantiates the class directly.
	if so, ok := args[0].(*hc.SizeOfExpr); ok {
		if tn, ok := so.X.(*hc.VarExpr); ok {
			if def, hasDef := v.program.Classes[tn.Name]; hasDef && def.BaseTy == "" {
				return v.allocClassValue(tn.Name)
			}
			if hc.IsUserTypeName(tn.Name) {
				if _, hasDef := v.program.Classes[tn.Name]; !hasDef {
					return ObjV(NewObject()), nil
				}
			}
		}
	}

	size, err := v.evalArgI64(args, 0)
	if err != nil {
		return Value{}, err
	}
	if size < 0 {
		return Value{}, fmt.Errorf("size must be non-negative")
	}
	return IntV(v.heapAlloc(int(size), name != "MAlloc")), nil
}

func (v *Vm) builtinFileRead(args []hc.Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("FileRead(path) expects 1 arg")
	}
	pathV, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	if pathV.Kind != ValStr {
		return Value{}, fmt.Errorf("path must be a string")
	}
	hostPath, err := v.fs.ResolveRead(pathV.S)
	if err != nil {
		return Value{}, err
	}
	bs, err := os.ReadFile(hostPath)
	if err != nil {
		if os.IsNotExist(err) {
			return IntV(0), nil
		}
		return Value{}, fmt.Errorf("FileRead: %s: %w", hostPath, err)
	}
	// Trailing NUL so HolyC code expecting a terminator won't run off.
	addr := v.heapAlloc(len(bs)+1, true)
	if err := v.heapWriteBytes(addr, bs); err != nil {
		return Value{}, err
	}
	return IntV(addr), nil
}

func (v *Vm) builtinFileWrite(args []hc.Expr) (Value, error) {
	if len(args) != 3 {
		return Value{}, fmt.Errorf("FileWrite(path, buf, size) expects 3 args")
	}
	pathV, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	if pathV.Kind != ValStr {
		return Value{}, fmt.Errorf("path must be a string")
	}
	buf, err := v.evalArgI64(args, 1)
	if err != nil {
		return Value{}, err
	}
	size, err := v.evalArgI64(args, 2)
	if err != nil {
		return Value{}, err
	}
	if size < 0 {
		return Value{}, fmt.Errorf("size must be non-negative")
	}

	hostPath, err := v.fs.ResolveWrite(pathV.S)
	if err != nil {
		return Value{}, err
	}
	if err := os.MkdirAll(filepath.Dir(hostPath), 0o755); err != nil {
		return Value{}, fmt.Errorf("FileWrite: %w", err)
	}
	var bs []byte
	if size > 0 {
		s, err := v.heapSlice(buf, int(size))
		if err != nil {
			return Value{}, err
		}
		bs = append([]byte(nil), s...)
	}
	if err := os.WriteFile(hostPath, bs, 0o644); err != nil {
		return Value{}, fmt.Errorf("FileWrite: %w", err)
	}
	return IntV(1), nil
}

func (v *Vm) builtinStrLen(args []hc.Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("StrLen(st) expects 1 arg")
	}
	val, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	if val.Kind == ValStr {
		return IntV(int64(len(val.S))), nil
	}
	addr, err := val.AsI64()
	if err != nil {
		return Value{}, err
	}
	if addr == 0 {
		return IntV(0), nil
	}
	s, err := v.readCStr(addr)
	if err != nil {
		return Value{}, err
	}
	return IntV(int64(len(s))), nil
}

func (v *Vm) builtinStrNew(args []hc.Expr) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("StrNew(st) expects 1 arg")
	}
	val, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	switch {
	case val.Kind == ValInt && val.I == 0:
		return IntV(0), nil
	case val.Kind == ValStr:
		addr, err := v.allocString(val.S)
		if err != nil {
			return Value{}, err
		}
		return IntV(addr), nil
	default:
		src, err := val.AsI64()
		if err != nil {
			return Value{}, err
		}
		if src == 0 {
			return IntV(0), nil
		}
		s, err := v.readCStr(src)
		if err != nil {
			return Value{}, err
		}
		addr, err := v.allocString(s)
		if err != nil {
			return Value{}, err
		}
		return IntV(addr), nil
	}
}

func (v *Vm) builtinStrCpy(args []hc.Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("StrCpy(dst, src) expects 2 args")
	}
	dst, err := v.evalArgI64(args, 0)
	if err != nil {
		return Value{}, err
	}
	if dst == 0 {
		return Value{}, fmt.Errorf("dst must be non-NULL")
	}
	srcV, err := v.evalExpr(args[1])
	if err != nil {
		return Value{}, err
	}

	var bs []byte
	switch {
	case srcV.Kind == ValInt && srcV.I == 0:
		bs = []byte{0}
	case srcV.Kind == ValStr:
		bs = append([]byte(srcV.S), 0)
	default:
		src, err := srcV.AsI64()
		if err != nil {
			return Value{}, err
		}
		if src == 0 {
			bs = []byte{0}
		} else {
			s, err := v.readCStr(src)
			if err != nil {
				return Value{}, err
			}
			bs = append([]byte(s), 0)
		}
	}
	if err := v.heapWriteBytes(dst, bs); err != nil {
		return Value{}, err
	}
	return IntV(dst), nil
}

func argObject(v *Vm, args []hc.Expr, i, arity int, what string) (*Object, error) {
	if len(args) != arity {
		return nil, fmt.Errorf("expects %d args", arity)
	}
	val, err := v.evalExpr(args[i])
	if err != nil {
		return nil, err
	}
	obj, err := valueToObject(v, val)
	if err != nil {
		return nil, fmt.Errorf("%s must be a class/struct pointer", what)
	}
	return obj, nil
}

func (v *Vm) builtinQueInit(args []hc.Expr) (Value, error) {
	head, err := argObject(v, args, 0, 1, "head")
	if err != nil {
		return Value{}, err
	}
	head.Fields["next"] = ObjV(head)
	head.Fields["last"] = ObjV(head)
	return VoidV(), nil
}

func (v *Vm) builtinQueIns(args []hc.Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("QueIns(entry, pred) expects 2 args")
	}
	entry, err := argObject(v, args, 0, 2, "entry")
	if err != nil {
		return Value{}, err
	}
	pred, err := argObject(v, args, 1, 2, "pred")
	if err != nil {
		return Value{}, err
	}
	succ := objFieldObj(pred, "next")
	if succ == nil {
		return Value{}, fmt.Errorf("pred.next is missing")
	}
	entry.Fields["next"] = ObjV(succ)
	entry.Fields["last"] = ObjV(pred)
	pred.Fields["next"] = ObjV(entry)
	succ.Fields["last"] = ObjV(entry)
	return VoidV(), nil
}

func (v *Vm) builtinQueRem(args []hc.Expr) (Value, error) {
	entry, err := argObject(v, args, 0, 1, "entry")
	if err != nil {
		return Value{}, err
	}
	pred := objFieldObj(entry, "last")
	succ := objFieldObj(entry, "next")
	if pred == nil || succ == nil {
		return Value{}, fmt.Errorf("entry.next/last must be class/struct pointers")
	}
	pred.Fields["next"] = ObjV(succ)
	succ.Fields["last"] = ObjV(pred)
	return VoidV(), nil
}

func memsetValue(val *Value, fill int64) {
	switch val.Kind {
	case ValObj:
		for k, f := range val.Obj.Fields {
			memsetValue(&f, fill)
			val.Obj.Fields[k] = f
		}
	case ValArray:
		for i := range val.Arr.Elems {
			memsetValue(&val.Arr.Elems[i], fill)
		}
	default:
		*val = IntV(fill)
	}
}

func (v *Vm) builtinMemSet(args []hc.Expr) (Value, error) {
	if len(args) != 3 {
		return Value{}, fmt.Errorf("MemSet(dst, val, count) expects 3 args")
	}
	dst, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	fill, err := v.evalArgI64(args, 1)
	if err != nil {
		return Value{}, err
	}
	count, err := v.evalArgI64(args, 2)
	if err != nil {
		return Value{}, err
	}
	if count < 0 {
		return Value{}, fmt.Errorf("count must be non-negative")
	}

	switch dst.Kind {
	case ValArray:
		eb := dst.Arr.ElemBytes
		if eb < 1 {
			eb = 1
		}
		n := int(count) / eb
		if n > len(dst.Arr.Elems) {
			n = len(dst.Arr.Elems)
		}
		for i := 0; i < n; i++ {
			memsetValue(&dst.Arr.Elems[i], fill)
		}
		return VoidV(), nil
	case ValObj:
		val := dst
		memsetValue(&val, fill)
		return VoidV(), nil
	case ValVarRef:
		inner, ok := v.env.Get(dst.S)
		if !ok {
			return Value{}, fmt.Errorf("dst must be an array, object, or pointer")
		}
		switch inner.Kind {
		case ValObj, ValArray:
			memsetValue(&inner, fill)
			return VoidV(), nil
		default:
			return VoidV(), v.env.Assign(dst.S, IntV(fill))
		}
	case ValPtr, ValInt:
		addr := dst.I
		for i := int64(0); i < count; i++ {
			if err := v.heapWriteU8(addr+i, byte(fill)); err != nil {
				return Value{}, err
			}
		}
		return VoidV(), nil
	}
	return Value{}, fmt.Errorf("dst must be an array, object, or pointer")
}

func (v *Vm) builtinMemSetU16(args []hc.Expr) (Value, error) {
	if len(args) != 3 {
		return Value{}, fmt.Errorf("MemSetU16(dst, val, count) expects 3 args")
	}
	dst, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	fill, err := v.evalArgI64(args, 1)
	if err != nil {
		return Value{}, err
	}
	count, err := v.evalArgI64(args, 2)
	if err != nil {
		return Value{}, err
	}
	if count < 0 {
		return Value{}, fmt.Errorf("count must be non-negative")
	}
	remaining := count

	var fillArr func(arr *ArrayValue)
	fillArr = func(arr *ArrayValue) {
		for i := range arr.Elems {
			if remaining == 0 {
				return
			}
			if arr.Elems[i].Kind == ValArray {
				fillArr(arr.Elems[i].Arr)
				continue
			}
			arr.Elems[i] = IntV(fill)
			remaining--
		}
	}

	switch dst.Kind {
	case ValArray:
		fillArr(dst.Arr)
		return VoidV(), nil
	case ValPtr, ValInt:
		for i := int64(0); i < remaining; i++ {
			if err := v.heapWriteIntLE(dst.I+i*2, 2, fill); err != nil {
				return Value{}, err
			}
		}
		return VoidV(), nil
	}
	return Value{}, fmt.Errorf("dst must be an array or pointer")
}

func (v *Vm) builtinMemCpy(args []hc.Expr) (Value, error) {
	if len(args) != 3 {
		return Value{}, fmt.Errorf("MemCpy(dst, src, size) expects 3 args")
	}
	dst, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	src, err := v.evalExpr(args[1])
	if err != nil {
		return Value{}, err
	}
	size, err := v.evalArgI64(args, 2)
	if err != nil {
		return Value{}, err
	}
	if size < 0 {
		return Value{}, fmt.Errorf("size must be non-negative")
	}

	// Object-to-object copies snapshot the field map.
	dstObj, dErr := valueToObject(v, dst)
	srcObj, sErr := valueToObject(v, src)
	if dErr == nil && sErr == nil && dstObj != nil && srcObj != nil {
		snapshot := make(map[string]Value, len(srcObj.Fields))
		for k, f := range srcObj.Fields {
			snapshot[k] = f
		}
		dstObj.Fields = snapshot
		return VoidV(), nil
	}

	var buf []byte
	var appendFrom func(val Value) error
	appendFrom = func(val Value) error {
		switch val.Kind {
		case ValArray:
			eb := val.Arr.ElemBytes
			if eb < 1 {
				eb = 1
			}
			if eb > 8 {
				eb = 8
			}
			for _, elem := range val.Arr.Elems {
				switch elem.Kind {
				case ValArray:
					if err := appendFrom(elem); err != nil {
						return err
					}
				case ValInt:
					var tmp [8]byte
					putIntLE(tmp[:], elem.I)
					buf = append(buf, tmp[:eb]...)
				case ValChar:
					var tmp [8]byte
					putIntLE(tmp[:], int64(elem.C))
					buf = append(buf, tmp[:eb]...)
				default:
					return fmt.Errorf("unsupported array element value")
				}
			}
			return nil
		case ValPtr, ValInt:
			s, err := v.heapSlice(val.I, int(size))
			if err != nil {
				return err
			}
			buf = append(buf, s...)
			return nil
		}
		return fmt.Errorf("unsupported src value")
	}
	if err := appendFrom(src); err != nil {
		return Value{}, err
	}
	if int64(len(buf)) < size {
		return Value{}, fmt.Errorf("src does not contain enough bytes")
	}

	switch dst.Kind {
	case ValPtr, ValInt:
		if err := v.heapWriteBytes(dst.I, buf[:size]); err != nil {
			return Value{}, err
		}
		return VoidV(), nil
	}
	return Value{}, fmt.Errorf("dst must be a pointer")
}

func putIntLE(dst []byte, v int64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}

func (v *Vm) builtinQSortI64(args []hc.Expr) (Value, error) {
	if len(args) != 3 {
		return Value{}, fmt.Errorf("QSortI64(base, cnt, cmp_fp) expects 3 args")
	}
	base, err := v.evalExpr(args[0])
	if err != nil {
		return Value{}, err
	}
	if base.Kind != ValArray {
		return Value{}, fmt.Errorf("base must be an array")
	}
	cnt, err := v.evalArgI64(args, 1)
	if err != nil {
		return Value{}, err
	}
	if cnt < 0 {
		return Value{}, fmt.Errorf("cnt must be non-negative")
	}
	cmp, err := v.evalExpr(args[2])
	if err != nil {
		return Value{}, err
	}
	if cmp.Kind != ValFuncRef {
		return Value{}, fmt.Errorf("cmp_fp must be a function pointer")
	}

	n := int(cnt)
	if n > len(base.Arr.Elems) {
		n = len(base.Arr.Elems)
	}
	elems := append([]Value(nil), base.Arr.Elems[:n]...)

	sort.SliceStable(elems, func(i, j int) bool {
		res, err := v.callByName(cmp.S, elems[i], elems[j])
		if err != nil {
			return false
		}
		r, err := res.AsI64()
		if err != nil {
			return false
		}
		return r < 0
	})
	copy(base.Arr.Elems[:n], elems)
	return VoidV(), nil
}

func (v *Vm) builtinTaskDerivedValsUpdate(args []hc.Expr) (Value, error) {
	if len(args) > 1 {
		return Value{}, fmt.Errorf("TaskDerivedValsUpdate(task=Fs) expects 0-1 args")
	}

	var task *Object
	if len(args) == 0 {
		task = v.fsObject()
	} else if _, isDefault := args[0].(*hc.DefaultArgExpr); isDefault {
		task = v.fsObject()
	} else {
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if obj, err := valueToObject(v, val); err == nil {
			task = obj
		}
	}

	if task != nil {
		w, h := v.surf.Size()
		task.Fields["pix_width"] = IntV(int64(w))
		task.Fields["pix_height"] = IntV(int64(h))
		task.Fields["win_width"] = IntV(int64(w / 8))
		task.Fields["win_height"] = IntV(int64(h / 8))

		for _, name := range []string{"horz_scroll", "vert_scroll"} {
			scroll := objFieldObj(task, name)
			if scroll == nil {
				continue
			}
			minV := objFieldI64(scroll, "min")
			posV := objFieldI64(scroll, "pos")
			maxV := objFieldI64(scroll, "max")
			lo, hi := minV, maxV
			if hi < lo {
				lo, hi = hi, lo
			}
			if posV < lo {
				posV = lo
			}
			if posV > hi {
				posV = hi
			}
			scroll.Fields["pos"] = IntV(posV)
		}
	}

	// Per-control update_derived_vals callbacks on Fs.last_ctrl.
	fs := v.fsObject()
	if fs == nil {
		return VoidV(), nil
	}
	head := objFieldObj(fs, "last_ctrl")
	if head == nil {
		return VoidV(), nil
	}
	cur := objFieldObj(head, "next")
	steps := 0
	for cur != nil && cur != head {
		steps++
		if steps > ctrlListStepLimit {
			break
		}
		if update, ok := objField(cur, "update_derived_vals"); ok && update.Kind == ValFuncRef {
			v.inDrawIt = true
			_, err := v.callByName(update.S, ObjV(cur))
			v.inDrawIt = false
			if err != nil {
				return Value{}, err
			}
		}
		cur = objFieldObj(cur, "next")
	}
	return VoidV(), nil
}
