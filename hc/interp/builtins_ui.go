package interp

import (
	"fmt"
	"math"
	"time"

	"github.com/templelinux/temple/cp437"
	"github.com/templelinux/temple/hc"
)

// presentBudget is how often blocking input loops refresh the frame.
const presentBudget = 16 * time.Millisecond

func (v *Vm) callBuiltinUIInputSound(name string, args []hc.Expr) (Value, error) {
	switch name {
	case "GridInit":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("GridInit expects 0 args")
		}
		if grid, ok := v.env.Get("ms_grid"); ok && grid.Kind == ValObj {
			grid.Obj.Fields["snap"] = IntV(0)
			grid.Obj.Fields["x"] = IntV(0)
			grid.Obj.Fields["y"] = IntV(0)
		}
		return VoidV(), nil

	case "SetPixel":
		x, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		y, err := v.evalArgI64(args, 1)
		if err != nil {
			return Value{}, err
		}
		c, err := v.evalArgI64(args, 2)
		if err != nil {
			return Value{}, err
		}
		v.surf.SetPixel(int32(x), int32(y), byte(c))
		return VoidV(), nil

	case "FillRect":
		var vals [5]int64
		for i := range vals {
			n, err := v.evalArgI64(args, i)
			if err != nil {
				return Value{}, err
			}
			vals[i] = n
		}
		v.surf.FillRect(int32(vals[0]), int32(vals[1]), int32(vals[2]), int32(vals[3]), byte(vals[4]))
		return VoidV(), nil

	case "Text":
		if len(args) != 5 {
			return Value{}, fmt.Errorf("Text(x,y,fg,bg,\"str\") expects 5 args")
		}
		x, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		y, err := v.evalArgI64(args, 1)
		if err != nil {
			return Value{}, err
		}
		fg, err := v.evalArgI64(args, 2)
		if err != nil {
			return Value{}, err
		}
		bg, err := v.evalArgI64(args, 3)
		if err != nil {
			return Value{}, err
		}
		s, err := v.evalExpr(args[4])
		if err != nil {
			return Value{}, err
		}
		if s.Kind != ValStr {
			return Value{}, fmt.Errorf("Text expects last arg to be a string literal")
		}
		v.surf.DrawText(int32(x), int32(y), byte(fg), byte(bg), s.S)
		return VoidV(), nil

	case "TextChar":
		if len(args) != 5 {
			return Value{}, fmt.Errorf("TextChar(task,raw_cursor,x,y,c) expects 5 args")
		}
		col, err := v.evalArgI64(args, 2)
		if err != nil {
			return Value{}, err
		}
		row, err := v.evalArgI64(args, 3)
		if err != nil {
			return Value{}, err
		}
		cv, err := v.evalExpr(args[4])
		if err != nil {
			return Value{}, err
		}
		var bits uint64
		if cv.Kind == ValChar {
			bits = cv.C
		} else {
			n, err := cv.AsI64()
			if err != nil {
				return Value{}, err
			}
			bits = uint64(n)
		}

		ch := byte(bits)
		fg := byte(bits>>8) & 0x0F
		bg := byte(bits>>12) & 0x0F

		var panX, panY int64
		if gr, ok := v.env.Get("gr"); ok && gr.Kind == ValObj {
			panX = objFieldI64(gr.Obj, "pan_text_x")
			panY = objFieldI64(gr.Obj, "pan_text_y")
		}
		x := col*8 - panX
		y := row*8 - panY
		v.surf.DrawChar8x8(int32(x), int32(y), fg, bg, cp437.Decode(ch))
		return VoidV(), nil

	case "Present":
		return VoidV(), v.presentWithOverlays()

	case "Refresh", "Yield":
		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		return VoidV(), v.presentWithOverlays()

	case "Sleep":
		ms, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		if err := v.presentWithOverlays(); err != nil {
			return Value{}, err
		}
		if ms > 0 {
			v.sleep(time.Duration(ms) * time.Millisecond)
		}
		return VoidV(), nil

	case "Seed":
		seed := int64(0)
		if len(args) > 1 {
			return Value{}, fmt.Errorf("Seed(seed=0) expects 0 or 1 args")
		}
		if len(args) == 1 {
			var err error
			seed, err = v.evalArgI64(args, 0)
			if err != nil {
				return Value{}, err
			}
		}
		v.SetSeed(uint64(seed))
		return VoidV(), nil

	case "RandI16":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("RandI16 expects 0 args")
		}
		return IntV(int64(v.randI16())), nil

	case "RandU16":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("RandU16 expects 0 args")
		}
		return IntV(int64(uint16(v.randNext() >> 48))), nil

	case "Rand":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("Rand expects 0 args")
		}
		// TempleOS Rand() returns an F64 in [0,1).
		raw := v.randNext() >> 11
		return FloatV(float64(raw) / float64(uint64(1)<<53)), nil

	case "SignI64":
		n, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		switch {
		case n > 0:
			return IntV(1), nil
		case n < 0:
			return IntV(-1), nil
		}
		return IntV(0), nil

	case "ClampI64":
		if len(args) != 3 {
			return Value{}, fmt.Errorf("ClampI64(v, min, max) expects 3 args")
		}
		n, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		lo, err := v.evalArgI64(args, 1)
		if err != nil {
			return Value{}, err
		}
		hi, err := v.evalArgI64(args, 2)
		if err != nil {
			return Value{}, err
		}
		if n < lo {
			n = lo
		}
		if n > hi {
			n = hi
		}
		return IntV(n), nil

	case "GetChar":
		return v.builtinGetChar(args)
	case "GetKey":
		return v.builtinGetKey(args)
	case "ScanMsg":
		return v.builtinScanMsg(args, false)
	case "GetMsg":
		return v.builtinScanMsg(args, true)

	case "MenuPush":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("MenuPush(\"spec\") expects 1 arg")
		}
		spec, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if spec.Kind != ValStr {
			return Value{}, fmt.Errorf("MenuPush expects a string")
		}
		return VoidV(), v.menuPush(spec.S)

	case "MenuPop":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("MenuPop expects 0 args")
		}
		return VoidV(), v.menuPop()

	case "MenuEntryFind":
		return v.builtinMenuEntryFind(args)

	case "Snd":
		ona := int64(0)
		if len(args) > 1 {
			return Value{}, fmt.Errorf("Snd(ona=0) expects 0 or 1 args")
		}
		if len(args) == 1 {
			var err error
			ona, err = v.evalArgI64(args, 0)
			if err != nil {
				return Value{}, err
			}
		}
		return VoidV(), v.host.Snd(clampOna(ona))

	case "SndRst":
		return VoidV(), v.host.Snd(0)

	case "Beep":
		ona := int64(62)
		if len(args) > 2 {
			return Value{}, fmt.Errorf("Beep(ona=62, busy=FALSE) expects 0-2 args")
		}
		if len(args) >= 1 {
			if _, isDefault := args[0].(*hc.DefaultArgExpr); !isDefault {
				var err error
				ona, err = v.evalArgI64(args, 0)
				if err != nil {
					return Value{}, err
				}
			}
		}
		if err := v.host.Snd(clampOna(ona)); err != nil {
			return Value{}, err
		}
		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		v.sleep(500 * time.Millisecond)
		if err := v.host.Snd(0); err != nil {
			return Value{}, err
		}
		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		v.sleep(200 * time.Millisecond)
		return VoidV(), nil

	case "Mute":
		val, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		old := v.isMute
		v.isMute = val != 0
		if v.isMute {
			_ = v.host.Snd(0)
		}
		if err := v.host.Mute(v.isMute); err != nil {
			return Value{}, err
		}
		return boolV(old), nil

	case "IsMute":
		return boolV(v.isMute), nil

	case "Ona2Freq":
		ona, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		return FloatV(Ona2Freq(ona)), nil

	case "Freq2Ona":
		freq, err := v.evalArgF64(args, 0)
		if err != nil {
			return Value{}, err
		}
		return IntV(Freq2Ona(freq)), nil

	case "NextKey":
		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		if len(v.keyQueue) == 0 {
			return IntV(0), nil
		}
		code := v.keyQueue[0]
		v.keyQueue = v.keyQueue[1:]
		return IntV(int64(code)), nil
	}
	return Value{}, fmt.Errorf("unknown function")
}

func clampOna(ona int64) int8 {
	if ona < math.MinInt8 {
		ona = math.MinInt8
	}
	if ona > math.MaxInt8 {
		ona = math.MaxInt8
	}
	return int8(ona)
}

// Ona2Freq maps a TempleOS note index to Hz: 0 is silence, 60 is 440 Hz.
func Ona2Freq(ona int64) float64 {
	if ona == 0 {
		return 0
	}
	return 440.0 / 32.0 * math.Pow(2, float64(ona)/12.0)
}

// Freq2Ona inverts Ona2Freq, rounding to the nearest note and clamping
// to [1, 127]. Zero or negative frequencies map to silence.
func Freq2Ona(freq float64) int64 {
	if freq <= 0 {
		return 0
	}
	ona := int64(math.Round(12 * math.Log2(32.0/440.0*freq)))
	if ona < 1 {
		ona = 1
	}
	if ona > math.MaxInt8 {
		ona = math.MaxInt8
	}
	return ona
}

// popKey removes the next key press, or returns false.
func (v *Vm) popKey() (uint32, bool) {
	if len(v.keyQueue) == 0 {
		return 0, false
	}
	code := v.keyQueue[0]
	v.keyQueue = v.keyQueue[1:]
	return code, true
}

// waitKey polls events and presents at the frame budget until a key
// arrives.
func (v *Vm) waitKey() (uint32, error) {
	if err := v.presentWithOverlays(); err != nil {
		return 0, err
	}
	lastPresent := time.Now()
	for {
		if err := v.pollEvents(); err != nil {
			return 0, err
		}
		if code, ok := v.popKey(); ok {
			return code, nil
		}
		if time.Since(lastPresent) >= presentBudget {
			if err := v.presentWithOverlays(); err != nil {
				return 0, err
			}
			lastPresent = time.Now()
		}
		v.sleep(time.Millisecond)
	}
}

func (v *Vm) builtinGetChar(args []hc.Expr) (Value, error) {
	if len(args) > 3 {
		return Value{}, fmt.Errorf("GetChar(_scan_code=NULL, echo=TRUE, raw_cursor=FALSE) expects 0-3 args")
	}
	echo := true
	if len(args) >= 2 {
		if _, isDefault := args[1].(*hc.DefaultArgExpr); !isDefault {
			val, err := v.evalExpr(args[1])
			if err != nil {
				return Value{}, err
			}
			echo = val.Truthy()
		}
	}

	code, err := v.waitKey()
	if err != nil {
		return Value{}, err
	}
	if echo && code <= 0xFF {
		ch := rune(code)
		if ch == '\n' || ch == '\t' || ch == ' ' || (ch > ' ' && ch < 0x7F) {
			v.putChar(ch)
			if err := v.presentWithOverlays(); err != nil {
				return Value{}, err
			}
		}
	}
	return IntV(int64(code)), nil
}

func (v *Vm) builtinGetKey(args []hc.Expr) (Value, error) {
	if len(args) > 1 {
		return Value{}, fmt.Errorf("GetKey(_scan_code=NULL) expects 0-1 args")
	}

	var scanPtr *Value
	if len(args) == 1 {
		if _, isDefault := args[0].(*hc.DefaultArgExpr); !isDefault {
			val, err := v.evalExpr(args[0])
			if err != nil {
				return Value{}, err
			}
			if !(val.Kind == ValInt && val.I == 0) {
				scanPtr = &val
			}
		}
	}

	code, err := v.waitKey()
	if err != nil {
		return Value{}, err
	}

	var ascii, sc int64
	if code <= 0xFF {
		ascii = int64(code)
	} else if s, ok := scanCodeByKey[code]; ok {
		sc = s
	}

	if scanPtr != nil {
		if err := v.writeThroughPointer(*scanPtr, sc); err != nil {
			return Value{}, err
		}
	}
	return IntV(ascii), nil
}

// writeThroughPointer stores an integer through any pointer-shaped
// value.
func (v *Vm) writeThroughPointer(ptr Value, val int64) error {
	switch ptr.Kind {
	case ValVarRef:
		return v.env.Assign(ptr.S, IntV(val))
	case ValPtr:
		eb := ptr.EB
		if eb < 1 {
			eb = 8
		}
		return v.heapWriteIntLE(ptr.I, eb, val)
	case ValArrayPtr:
		if ptr.Idx < 0 || ptr.Idx >= int64(len(ptr.Arr.Elems)) {
			return fmt.Errorf("array pointer out of range")
		}
		ptr.Arr.Elems[ptr.Idx] = IntV(val)
		return nil
	case ValObjFieldRef:
		ptr.Obj.Fields[ptr.S] = IntV(val)
		return nil
	case ValInt:
		return v.heapWriteIntLE(ptr.I, 8, val)
	}
	return fmt.Errorf("unsupported pointer")
}

// builtinScanMsg implements ScanMsg (non-blocking) and GetMsg
// (blocking) with the shared mask filter.
func (v *Vm) builtinScanMsg(args []hc.Expr, blocking bool) (Value, error) {
	if len(args) > 4 {
		return Value{}, fmt.Errorf("expects 0-4 args")
	}

	outPtr := func(i int) (*string, error) {
		if i >= len(args) {
			return nil, nil
		}
		if _, isDefault := args[i].(*hc.DefaultArgExpr); isDefault {
			return nil, nil
		}
		val, err := v.evalExpr(args[i])
		if err != nil {
			return nil, err
		}
		switch val.Kind {
		case ValVarRef:
			name := val.S
			return &name, nil
		case ValInt:
			if val.I == 0 {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("message out-arg must be &var or NULL")
	}

	arg1Ptr, err := outPtr(0)
	if err != nil {
		return Value{}, err
	}
	arg2Ptr, err := outPtr(1)
	if err != nil {
		return Value{}, err
	}

	mask := uint64(^uint64(1))
	if len(args) >= 3 {
		if _, isDefault := args[2].(*hc.DefaultArgExpr); !isDefault {
			m, err := v.evalArgI64(args, 2)
			if err != nil {
				return Value{}, err
			}
			mask = uint64(m)
		}
	}

	store := func(msg TempleMsg) error {
		if arg1Ptr != nil {
			if err := v.env.Assign(*arg1Ptr, IntV(msg.Arg1)); err != nil {
				return err
			}
		}
		if arg2Ptr != nil {
			if err := v.env.Assign(*arg2Ptr, IntV(msg.Arg2)); err != nil {
				return err
			}
		}
		return nil
	}

	if !blocking {
		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		if msg, ok := v.scanMsgMask(mask); ok {
			if err := store(msg); err != nil {
				return Value{}, err
			}
			return IntV(msg.Code), nil
		}
		if err := store(TempleMsg{}); err != nil {
			return Value{}, err
		}
		return IntV(0), nil
	}

	for {
		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		if msg, ok := v.scanMsgMask(mask); ok {
			if err := store(msg); err != nil {
				return Value{}, err
			}
			return IntV(msg.Code), nil
		}
		if err := v.presentWithOverlays(); err != nil {
			return Value{}, err
		}
		v.sleep(time.Millisecond)
	}
}

func (v *Vm) builtinMenuEntryFind(args []hc.Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("MenuEntryFind(menu, \"path\") expects 2 args")
	}

	var menuVal Value
	if _, isDefault := args[0].(*hc.DefaultArgExpr); isDefault {
		fs := v.fsObject()
		if fs == nil {
			return Value{}, fmt.Errorf("missing Fs global")
		}
		if cur, ok := fs.Fields["cur_menu"]; ok {
			menuVal = cur
		} else {
			menuVal = IntV(0)
		}
	} else {
		var err error
		menuVal, err = v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
	}

	var root *Object
	switch menuVal.Kind {
	case ValObj:
		root = menuVal.Obj
	case ValInt:
		if menuVal.I == 0 {
			return IntV(0), nil
		}
		return Value{}, fmt.Errorf("menu must be an object or NULL")
	default:
		return Value{}, fmt.Errorf("menu must be an object or NULL")
	}

	pathV, err := v.evalExpr(args[1])
	if err != nil {
		return Value{}, err
	}
	if pathV.Kind != ValStr {
		return Value{}, fmt.Errorf("path must be a string")
	}

	if entry := v.menuEntryFind(root, pathV.S); entry != nil {
		return ObjV(entry), nil
	}
	return IntV(0), nil
}
