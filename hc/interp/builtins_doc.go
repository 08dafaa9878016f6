package interp

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/templelinux/temple/hc"
)

// strArgValue resolves string-or-pointer builtin arguments. A null
// pointer yields the empty string unless required is set.
func (v *Vm) strArgValue(val Value, required bool, what string) (string, error) {
	switch val.Kind {
	case ValStr:
		return val.S, nil
	case ValInt, ValPtr:
		if val.I == 0 {
			if required {
				return "", fmt.Errorf("%s must be non-NULL", what)
			}
			return "", nil
		}
		return v.readCStr(val.I)
	}
	return "", fmt.Errorf("%s must be a string or pointer", what)
}

func (v *Vm) strArg(args []hc.Expr, i int, required bool, what string) (string, error) {
	val, err := v.evalExpr(args[i])
	if err != nil {
		return "", err
	}
	return v.strArgValue(val, required, what)
}

func (v *Vm) callBuiltinDocFsSettings(name string, args []hc.Expr) (Value, error) {
	switch name {
	case "DocClear":
		v.surf.Clear(0)
		v.textX, v.textY = 0, 0
		v.textFg, v.textBg = 15, 0
		return VoidV(), nil

	case "Cd":
		return v.builtinCd(args)

	case "RegDft":
		if len(args) != 2 {
			return Value{}, fmt.Errorf("RegDft(key, code) expects 2 args")
		}
		key, err := v.strArg(args, 0, true, "key")
		if err != nil {
			return Value{}, err
		}
		code, err := v.strArg(args, 1, false, "code")
		if err != nil {
			return Value{}, err
		}
		v.regDefaults[key] = code
		return VoidV(), nil

	case "RegExe":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("RegExe(key) expects 1 arg")
		}
		key, err := v.strArg(args, 0, true, "key")
		if err != nil {
			return Value{}, err
		}
		code, ok := v.regDefaults[key]
		if !ok {
			return VoidV(), nil
		}
		return VoidV(), v.ExecSnippet("<reg:"+key+">", code)

	case "RegWrite":
		if len(args) < 2 {
			return Value{}, fmt.Errorf("RegWrite(key, fmt, ...) expects at least 2 args")
		}
		key, err := v.strArg(args, 0, true, "key")
		if err != nil {
			return Value{}, err
		}
		format, err := v.strArg(args, 1, false, "fmt")
		if err != nil {
			return Value{}, err
		}
		var fargs []hc.FormatArg
		for _, e := range args[2:] {
			if _, isDefault := e.(*hc.DefaultArgExpr); isDefault {
				fargs = append(fargs, IntV(0))
				continue
			}
			val, err := v.evalExpr(e)
			if err != nil {
				return Value{}, err
			}
			fargs = append(fargs, val)
		}
		rendered, err := hc.Format(format, fargs, v.readCStr, v.defineSub)
		if err != nil {
			return Value{}, err
		}
		v.regDefaults[key] = rendered
		return VoidV(), v.ExecSnippet("<reg:"+key+">", rendered)

	case "PopUpOk":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("PopUpOk(msg) expects 1 arg")
		}
		_, err := v.evalExpr(args[0])
		return VoidV(), err

	case "DefineLstLoad":
		if len(args) != 2 {
			return Value{}, fmt.Errorf("DefineLstLoad(name, entries) expects 2 args")
		}
		listName, err := v.strArg(args, 0, true, "name")
		if err != nil {
			return Value{}, err
		}
		entries, err := v.strArg(args, 1, false, "entries")
		if err != nil {
			return Value{}, err
		}
		parts := strings.Split(entries, "\x00")
		if len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		v.defineLists[listName] = parts
		return VoidV(), nil

	case "DefineSub":
		if len(args) != 2 {
			return Value{}, fmt.Errorf("DefineSub(index, list_name) expects 2 args")
		}
		idx, err := v.evalArgI64(args, 0)
		if err != nil {
			return Value{}, err
		}
		listName, err := v.strArg(args, 1, false, "list_name")
		if err != nil {
			return Value{}, err
		}
		if listName == "" {
			return StrV(""), nil
		}
		s, _ := v.defineSub(idx, listName)
		return StrV(s), nil

	case "FileFind":
		return v.builtinFileFind(args)

	case "DirMk":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("DirMk(path) expects 1 arg")
		}
		path, err := v.strArg(args, 0, true, "path")
		if err != nil {
			return Value{}, err
		}
		host, err := v.fs.ResolveWrite(path)
		if err != nil {
			return Value{}, err
		}
		if err := os.MkdirAll(host, 0o755); err != nil {
			return Value{}, fmt.Errorf("DirMk: %w", err)
		}
		return IntV(1), nil

	case "WinMax", "WinBorder":
		if len(args) > 1 {
			return Value{}, fmt.Errorf("%s(flag=ON) expects 0-1 args", name)
		}
		return VoidV(), nil

	case "DocCursor", "DocBottom", "DocScroll":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("%s expects 0 args", name)
		}
		return VoidV(), nil

	case "SettingsPush":
		if len(args) > 2 {
			return Value{}, fmt.Errorf("SettingsPush(task=NULL, flags=0) expects 0-2 args")
		}
		return VoidV(), v.host.SettingsPush()

	case "SettingsPop":
		if len(args) > 2 {
			return Value{}, fmt.Errorf("SettingsPop(task=NULL, flags=0) expects 0-2 args")
		}
		return VoidV(), v.host.SettingsPop()

	case "AutoComplete", "PutExcept":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("%s expects 0 args", name)
		}
		return VoidV(), nil

	case "Spawn":
		if len(args) == 0 {
			return Value{}, fmt.Errorf("Spawn(func, ...) expects at least 1 arg")
		}
		// Lightweight tasks are not emulated; callers get a handle and
		// continue.
		return IntV(1), nil

	case "DCFill":
		v.surf.Clear(0)
		return VoidV(), v.presentWithOverlays()

	case "DCAlias":
		return v.builtinDCAlias(args)

	case "DCSymmetrySet":
		return v.builtinDCSymmetrySet(args)

	case "DCDel":
		return VoidV(), nil

	case "PressAKey":
		if len(args) != 0 {
			return Value{}, fmt.Errorf("PressAKey expects 0 args")
		}
		code, err := v.waitKey()
		if err != nil {
			return Value{}, err
		}
		return IntV(int64(code)), nil

	case "GetStr":
		return v.builtinGetStr(args)

	case "ClipPutS":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("ClipPutS(\"text\") expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		if val.Kind != ValStr {
			return Value{}, fmt.Errorf("ClipPutS expects a string")
		}
		return VoidV(), v.host.ClipboardSetText(val.S)
	}
	return Value{}, fmt.Errorf("unknown function")
}

func (v *Vm) builtinCd(args []hc.Expr) (Value, error) {
	if len(args) > 2 {
		return Value{}, fmt.Errorf("Cd(dir=\"...\", make_dirs=FALSE) expects 0-2 args")
	}

	dir := "~"
	if len(args) >= 1 {
		if _, isDefault := args[0].(*hc.DefaultArgExpr); !isDefault {
			val, err := v.evalExpr(args[0])
			if err != nil {
				return Value{}, err
			}
			if !(val.Kind == ValInt && val.I == 0) {
				dir, err = v.strArgValue(val, false, "dir")
				if err != nil {
					return Value{}, err
				}
			}
		}
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return IntV(1), nil
	}

	makeDirs := false
	if len(args) == 2 {
		if _, isDefault := args[1].(*hc.DefaultArgExpr); !isDefault {
			n, err := v.evalArgI64(args, 1)
			if err != nil {
				return Value{}, err
			}
			makeDirs = n != 0
		}
	}

	newCwd, err := v.fs.AbsDir(dir)
	if err != nil {
		return Value{}, fmt.Errorf("Cd: %w", err)
	}

	commit := func() (Value, error) {
		v.fs.Cwd = newCwd
		if fs := v.fsObject(); fs != nil {
			fs.Fields["cur_dir"] = StrV(newCwd)
		}
		return IntV(1), nil
	}

	if host, err := v.fs.ResolveRead(newCwd); err == nil {
		if info, err := os.Stat(host); err == nil && info.IsDir() {
			return commit()
		}
	}

	if makeDirs {
		host, err := v.fs.ResolveWrite(newCwd)
		if err != nil {
			return Value{}, fmt.Errorf("Cd: %w", err)
		}
		if os.MkdirAll(host, 0o755) == nil {
			return commit()
		}
	}
	return IntV(0), nil
}

func (v *Vm) builtinFileFind(args []hc.Expr) (Value, error) {
	if len(args) == 0 {
		return Value{}, fmt.Errorf("FileFind(path, ...) expects at least 1 arg")
	}
	path, err := v.strArg(args, 0, true, "path")
	if err != nil {
		return Value{}, err
	}

	// FileFind(filename, tmp=NULL, flags=FUG_FILE_FIND): existence plus
	// the dirs-only flag is all installers need.
	flags := int64(0)
	if len(args) >= 3 {
		if _, isDefault := args[2].(*hc.DefaultArgExpr); !isDefault {
			flags, err = v.evalArgI64(args, 2)
			if err != nil {
				return Value{}, err
			}
		}
	}
	wantDirsOnly := flags&0x400 != 0

	host, err := v.fs.ResolveRead(path)
	if err != nil {
		return IntV(0), nil
	}
	info, err := os.Stat(host)
	if err != nil {
		return IntV(0), nil
	}
	if wantDirsOnly && !info.IsDir() {
		return IntV(0), nil
	}
	return IntV(1), nil
}

func (v *Vm) builtinDCAlias(args []hc.Expr) (Value, error) {
	if len(args) > 2 {
		return Value{}, fmt.Errorf("DCAlias(dc=NULL,task=NULL) expects 0-2 args")
	}

	base := v.dcAlias
	if len(args) >= 1 {
		if _, isDefault := args[0].(*hc.DefaultArgExpr); !isDefault {
			val, err := v.evalExpr(args[0])
			if err != nil {
				return Value{}, err
			}
			if obj, err := valueToObject(v, val); err == nil {
				base = obj
			}
		}
	}

	clone := NewObject()
	for k, f := range base.Fields {
		clone.Fields[k] = f
	}
	if _, ok := clone.Fields["color"]; !ok {
		clone.Fields["color"] = IntV(15)
	}
	if _, ok := clone.Fields["thick"]; !ok {
		clone.Fields["thick"] = IntV(1)
	}
	if _, ok := clone.Fields["flags"]; !ok {
		clone.Fields["flags"] = IntV(0)
	}

	if len(args) == 2 {
		if _, isDefault := args[1].(*hc.DefaultArgExpr); !isDefault {
			val, err := v.evalExpr(args[1])
			if err != nil {
				return Value{}, err
			}
			if val.Kind == ValObj {
				clone.Fields["win_task"] = val
				clone.Fields["mem_task"] = val
			}
		}
	}
	return ObjV(clone), nil
}

// builtinDCSymmetrySet records the mirror line endpoints on the DC:
// DCSymmetrySet(dc, x1, y1, x2, y2).
func (v *Vm) builtinDCSymmetrySet(args []hc.Expr) (Value, error) {
	if len(args) != 4 && len(args) != 5 {
		return Value{}, fmt.Errorf("DCSymmetrySet(dc?, x1, y1, x2, y2) expects 4 or 5 args")
	}
	dc, rest, err := v.splitDC(args, 4)
	if err != nil {
		return Value{}, err
	}
	var c [4]int64
	for i := range c {
		if c[i], err = v.evalArgI64(rest, i); err != nil {
			return Value{}, err
		}
	}
	if dc != nil {
		dc.Fields["sym_x1"] = IntV(c[0])
		dc.Fields["sym_y1"] = IntV(c[1])
		dc.Fields["sym_x2"] = IntV(c[2])
		dc.Fields["sym_y2"] = IntV(c[3])
	}
	return VoidV(), nil
}

const (
	gsfWithNewLine = 2
	getStrMaxBytes = 4096
)

// builtinGetStr runs an in-place modal prompt at the bottom of the
// screen, saving and restoring the pixels it covers.
func (v *Vm) builtinGetStr(args []hc.Expr) (Value, error) {
	if len(args) > 3 {
		return Value{}, fmt.Errorf("GetStr(msg=NULL,dft=NULL,flags=0) expects 0-3 args")
	}

	optStr := func(i int) (string, bool, error) {
		if i >= len(args) {
			return "", false, nil
		}
		if _, isDefault := args[i].(*hc.DefaultArgExpr); isDefault {
			return "", false, nil
		}
		val, err := v.evalExpr(args[i])
		if err != nil {
			return "", false, err
		}
		if val.Kind == ValInt && val.I == 0 {
			return "", false, nil
		}
		s, err := v.strArgValue(val, false, "arg")
		if err != nil {
			return "", false, err
		}
		return s, true, nil
	}

	msg, hasMsg, err := optStr(0)
	if err != nil {
		return Value{}, err
	}
	dft, _, err := optStr(1)
	if err != nil {
		return Value{}, err
	}
	flags := int64(0)
	if len(args) >= 3 {
		if _, isDefault := args[2].(*hc.DefaultArgExpr); !isDefault {
			if flags, err = v.evalArgI64(args, 2); err != nil {
				return Value{}, err
			}
		}
	}
	withNewLine := flags&gsfWithNewLine != 0

	sw32, sh32 := v.surf.Size()
	sw, sh := int32(sw32), int32(sh32)

	inputLines := int32(1)
	if withNewLine {
		inputLines = 4
	}
	promptH := 8 * (1 + inputLines + 1)
	promptY := sh - promptH
	if promptY < 0 {
		promptY = 0
	}

	underlay := v.menuCaptureUnderlay(0, promptY, sw, promptH)

	input := dft
	dirty := true
	cancelNull := false

loop:
	for {
		if dirty {
			v.surf.FillRect(0, promptY, sw, 8, 1)
			v.surf.FillRect(0, promptY+8, sw, 8*(inputLines+1), 0)

			header := "Input:"
			if hasMsg {
				header = msg
			}
			v.surf.DrawText(0, promptY, 15, 1, header)

			cols := int(sw / 8)
			if withNewLine {
				rawLines := strings.Split(input, "\n")
				start := 0
				if len(rawLines) > int(inputLines) {
					start = len(rawLines) - int(inputLines)
				}
				visible := rawLines[start:]
				for i := 0; i < int(inputLines); i++ {
					raw := ""
					if i < len(visible) {
						raw = visible[i]
					}
					prefix := "  "
					if i == 0 {
						prefix = "> "
					}
					maxChars := cols - len(prefix) - 1
					if maxChars < 0 {
						maxChars = 0
					}
					shown := raw
					if len(shown) > maxChars {
						shown = shown[len(shown)-maxChars:]
					}
					line := prefix + shown
					if i+1 == len(visible) {
						line += "_"
					}
					v.surf.DrawText(0, promptY+8+int32(i)*8, 15, 0, line)
				}
				v.surf.DrawText(0, promptY+8+inputLines*8, 7, 0,
					"Enter=NewLine  Esc=Done  Shift+Esc=Empty")
			} else {
				maxChars := cols - 3
				if maxChars < 0 {
					maxChars = 0
				}
				shown := input
				if len(shown) > maxChars {
					shown = shown[len(shown)-maxChars:]
				}
				v.surf.DrawText(0, promptY+8, 15, 0, "> "+shown+"_")
				v.surf.DrawText(0, promptY+16, 7, 0, "Enter=OK  Esc=Cancel")
			}

			if err := v.presentWithOverlays(); err != nil {
				return Value{}, err
			}
			dirty = false
		}

		if err := v.pollEvents(); err != nil {
			return Value{}, err
		}
		code, ok := v.popKey()
		if !ok {
			v.sleep(time.Millisecond)
			continue
		}

		switch code {
		case chBackspace:
			if input != "" {
				input = input[:len(input)-1]
				dirty = true
			}
		case chEsc, chShiftEsc:
			if withNewLine {
				if code == chShiftEsc {
					input = ""
				}
				break loop
			}
			cancelNull = true
			break loop
		case '\n':
			if !withNewLine {
				break loop
			}
			if len(input) < getStrMaxBytes-1 {
				input += "\n"
				dirty = true
			}
		default:
			if code > 0xFF {
				continue
			}
			b := byte(code)
			if !(b == ' ' || (b > ' ' && b < 0x7F)) {
				continue
			}
			if len(input) >= getStrMaxBytes-1 {
				continue
			}
			cols := int(sw / 8)
			maxChars := cols - 3
			curLine := input
			if i := strings.LastIndexByte(input, '\n'); i >= 0 {
				curLine = input[i+1:]
			}
			if withNewLine {
				if len(curLine) < maxChars {
					input += string(b)
					dirty = true
				}
			} else if len(input) < maxChars {
				input += string(b)
				dirty = true
			}
		}
	}

	if underlay != nil {
		v.menuRestoreUnderlay(underlay)
		if err := v.presentWithOverlays(); err != nil {
			return Value{}, err
		}
	}

	if cancelNull {
		return IntV(0), nil
	}
	addr, err := v.allocString(input)
	if err != nil {
		return Value{}, err
	}
	return IntV(addr), nil
}
