package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/templelinux/temple/hc"
)

var coreBuiltins = map[string]bool{
	"Clear": true, "Now": true, "tS": true, "Tri": true, "Abs": true,
	"Max": true, "Sqr": true, "Cos": true, "Sin": true, "Sqrt": true,
	"Exp": true, "Arg": true, "ToI64": true, "Noise": true,
	"MAlloc": true, "CAlloc": true, "ACAlloc": true, "Free": true,
	"FileRead": true, "FileWrite": true,
	"StrLen": true, "StrNew": true, "StrCpy": true,
	"QueInit": true, "QueIns": true, "QueRem": true,
	"MemSet": true, "MemSetU16": true, "MemCpy": true,
	"QSortI64": true, "TaskDerivedValsUpdate": true,
}

var uiBuiltins = map[string]bool{
	"GridInit": true, "SetPixel": true, "FillRect": true, "Text": true,
	"TextChar": true, "Present": true, "Refresh": true, "Yield": true,
	"Sleep": true, "Seed": true, "RandI16": true, "RandU16": true,
	"Rand": true, "SignI64": true, "ClampI64": true,
	"GetChar": true, "GetKey": true, "ScanMsg": true, "GetMsg": true,
	"MenuPush": true, "MenuPop": true, "MenuEntryFind": true,
	"Snd": true, "SndRst": true, "Beep": true, "Mute": true,
	"IsMute": true, "Ona2Freq": true, "Freq2Ona": true, "NextKey": true,
}

var docFsBuiltins = map[string]bool{
	"Cd": true, "FileFind": true, "DirMk": true, "PopUpOk": true,
	"AutoComplete": true, "Spawn": true, "PutExcept": true,
	"PressAKey": true, "GetStr": true, "ClipPutS": true,
	"DCFill": true, "DCAlias": true, "DCSymmetrySet": true, "DCDel": true,
}

var gfxExtraBuiltins = map[string]bool{
	"DCDepthBufAlloc": true, "D3I32Norm": true,
}

func isBuiltin(name string) bool {
	if strings.HasPrefix(name, "Linux") ||
		strings.HasPrefix(name, "Gr") ||
		strings.HasPrefix(name, "Sprite") ||
		strings.HasPrefix(name, "Doc") ||
		strings.HasPrefix(name, "Win") ||
		strings.HasPrefix(name, "Reg") ||
		strings.HasPrefix(name, "Define") ||
		strings.HasPrefix(name, "Settings") {
		return true
	}
	return coreBuiltins[name] || uiBuiltins[name] || docFsBuiltins[name] || gfxExtraBuiltins[name]
}

// call dispatches f(args): the user program first, then the built-in
// dispatcher, grouped by name prefix with exact names inside a group.
func (v *Vm) call(name string, args []hc.Expr) (Value, error) {
	if fn := v.program.Functions[name]; fn != nil && fn.Body != nil {
		return v.callUser(fn, args)
	}
	val, err := v.callBuiltin(name, args)
	if err != nil && !errors.Is(err, ErrThrown) {
		return Value{}, fmt.Errorf("%s: %w", name, err)
	}
	return val, err
}

func (v *Vm) callUser(fn *hc.FuncDef, args []hc.Expr) (Value, error) {
	if fn.Name == "Main" || fn.Name == "main" {
		v.mainCalled = true
	}

	// Arguments evaluate in the caller's scope; omitted and default-arg
	// slots take the parameter's declared default.
	bound := make([]Value, len(fn.Params))
	for i := range fn.Params {
		var argExpr hc.Expr
		if i < len(args) {
			argExpr = args[i]
		}
		if _, isDefault := argExpr.(*hc.DefaultArgExpr); argExpr == nil || isDefault {
			if fn.Params[i].Default != nil {
				val, err := v.evalExpr(fn.Params[i].Default)
				if err != nil {
					return Value{}, err
				}
				bound[i] = val
			} else {
				def, err := v.defaultValueForType(fn.Params[i].Ty, fn.Params[i].Pointer)
				if err != nil {
					return Value{}, err
				}
				bound[i] = def
			}
			continue
		}
		val, err := v.evalExpr(argExpr)
		if err != nil {
			return Value{}, err
		}
		bound[i] = val
	}

	v.env.Push()
	defer v.env.Pop()

	for i, p := range fn.Params {
		var ty VarType
		if p.Pointer && len(p.ArrayLens) == 0 {
			eb := hc.TypeSizeBytes(p.Ty, false)
			if eb < 1 {
				eb = 1
			}
			ty.PtrElemBytes = eb
		}
		if !p.Pointer && len(p.ArrayLens) == 0 {
			if p.Ty == "F32" || p.Ty == "F64" {
				ty.Scalar = ScalarFloat
			} else {
				ty.Scalar = ScalarInt
			}
		}
		pname := p.Name
		if pname == "" {
			pname = fmt.Sprintf("__arg%d", i)
		}
		v.env.DefineTyped(pname, ty, bound[i])
	}

	fl, err := v.execStmtsWithGoto(fn.Body)
	if err != nil {
		if errors.Is(err, ErrThrown) {
			return Value{}, err
		}
		return Value{}, fmt.Errorf("%w\nin %s()", err, fn.Name)
	}
	switch fl.kind {
	case flowReturn:
		return fl.val, nil
	case flowGoto:
		return Value{}, fmt.Errorf("unknown label: %s\nin %s()", fl.label, fn.Name)
	case flowBreak:
		return Value{}, fmt.Errorf("break used outside of a loop/switch\nin %s()", fn.Name)
	case flowContinue:
		return Value{}, fmt.Errorf("continue used outside of a loop\nin %s()", fn.Name)
	}
	return VoidV(), nil
}

// callBuiltin routes by prefix, then by exact name within a group. A
// name the chosen group does not know gets that group's "unknown
// function" error, keeping the composition total.
func (v *Vm) callBuiltin(name string, args []hc.Expr) (Value, error) {
	if strings.HasPrefix(name, "Linux") {
		return v.callBuiltinLinux(name, args)
	}
	if uiBuiltins[name] {
		return v.callBuiltinUIInputSound(name, args)
	}
	if strings.HasPrefix(name, "Gr") || strings.HasPrefix(name, "Sprite") || gfxExtraBuiltins[name] {
		return v.callBuiltinGfx(name, args)
	}
	if strings.HasPrefix(name, "Doc") || strings.HasPrefix(name, "Win") ||
		strings.HasPrefix(name, "Reg") || strings.HasPrefix(name, "Define") ||
		strings.HasPrefix(name, "Settings") || docFsBuiltins[name] {
		return v.callBuiltinDocFsSettings(name, args)
	}
	return v.callBuiltinCore(name, args)
}

// callByName invokes a FuncRef value with pre-evaluated arguments,
// binding them through hidden temporaries so callback dispatch reuses
// the normal call path.
func (v *Vm) callByName(name string, vals ...Value) (Value, error) {
	v.env.Push()
	defer v.env.Pop()

	args := make([]hc.Expr, len(vals))
	for i, val := range vals {
		tmp := fmt.Sprintf("__tl_arg%d", i)
		v.env.Define(tmp, val)
		args[i] = &hc.VarExpr{Name: tmp}
	}
	return v.call(name, args)
}
