package interp

import (
	"fmt"
	"math"

	"github.com/templelinux/temple/doldoc"
	"github.com/templelinux/temple/hc"
)

// dcFor resolves the optional leading DC argument: a default-arg
// sentinel or a missing slot means "use the alias DC".
func (v *Vm) dcFor(e hc.Expr) (*Object, error) {
	if e == nil {
		return v.dcAlias, nil
	}
	if _, isDefault := e.(*hc.DefaultArgExpr); isDefault {
		return v.dcAlias, nil
	}
	val, err := v.evalExpr(e)
	if err != nil {
		return nil, err
	}
	if obj, err := valueToObject(v, val); err == nil {
		return obj, nil
	}
	return v.dcAlias, nil
}

func dcColor(dc *Object) byte {
	if dc == nil {
		return 15
	}
	if c, ok := dc.Fields["color"]; ok {
		if n, err := c.AsI64(); err == nil {
			return byte(n)
		}
	}
	return 15
}

func dcThick(dc *Object) int32 {
	t := int64(1)
	if dc != nil {
		if tv, ok := dc.Fields["thick"]; ok {
			if n, err := tv.AsI64(); err == nil {
				t = n
			}
		}
	}
	if t < 1 {
		t = 1
	}
	return int32(t)
}

// splitDC peels the optional leading DC slot: with more than base
// arguments the first one is the DC.
func (v *Vm) splitDC(args []hc.Expr, base int) (*Object, []hc.Expr, error) {
	if len(args) <= base {
		return v.dcAlias, args, nil
	}
	dc, err := v.dcFor(args[0])
	if err != nil {
		return nil, nil, err
	}
	return dc, args[1:], nil
}

func (v *Vm) callBuiltinGfx(name string, args []hc.Expr) (Value, error) {
	switch name {
	case "GrPlot":
		if len(args) < 2 || len(args) > 3 {
			return Value{}, fmt.Errorf("GrPlot(dc?, x, y) expects 2 or 3 args")
		}
		dc, rest, err := v.splitDC(args, 2)
		if err != nil {
			return Value{}, err
		}
		x, err := v.evalArgI64(rest, 0)
		if err != nil {
			return Value{}, err
		}
		y, err := v.evalArgI64(rest, 1)
		if err != nil {
			return Value{}, err
		}
		v.surf.SetPixel(int32(x), int32(y), dcColor(dc))
		return VoidV(), nil

	case "GrLine":
		if len(args) < 4 || len(args) > 6 {
			return Value{}, fmt.Errorf("GrLine(dc?, x1, y1, x2, y2, thick?) expects 4-6 args")
		}
		dc, rest, err := v.splitDC(args, 4)
		if err != nil {
			return Value{}, err
		}
		return v.grLine(dc, rest, 0, 1, 2, 3, 4)

	case "GrLine3":
		// GrLine3(dc?, x1, y1, z1, x2, y2, z2, thick?): Z is ignored.
		if len(args) < 6 || len(args) > 8 {
			return Value{}, fmt.Errorf("GrLine3(dc?, x1, y1, z1, x2, y2, z2, thick?) expects 6-8 args")
		}
		dc, rest, err := v.splitDC(args, 6)
		if err != nil {
			return Value{}, err
		}
		return v.grLine(dc, rest, 0, 1, 3, 4, 6)

	case "GrBorder":
		if len(args) < 4 || len(args) > 5 {
			return Value{}, fmt.Errorf("GrBorder(dc?, x1, y1, x2, y2) expects 4 or 5 args")
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
		v.surf.DrawRectOutlineThick(
			int32(c[0]), int32(c[1]), int32(c[2]-c[0]), int32(c[3]-c[1]),
			dcColor(dc), dcThick(dc))
		return VoidV(), nil

	case "GrRect":
		if len(args) < 4 || len(args) > 6 {
			return Value{}, fmt.Errorf("GrRect(dc?, x, y, w, h, color?) expects 4-6 args")
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
		color := dcColor(dc)
		if len(rest) > 4 {
			if _, isDefault := rest[4].(*hc.DefaultArgExpr); !isDefault {
				n, err := v.evalArgI64(rest, 4)
				if err != nil {
					return Value{}, err
				}
				color = byte(n)
			}
		}
		v.surf.DrawRectOutlineThick(int32(c[0]), int32(c[1]), int32(c[2]), int32(c[3]), color, dcThick(dc))
		return VoidV(), nil

	case "GrEllipse":
		// GrEllipse(dc?, x, y, r1, r2): polyline approximation.
		if len(args) < 4 || len(args) > 5 {
			return Value{}, fmt.Errorf("GrEllipse(dc?, x, y, r1, r2) expects 4 or 5 args")
		}
		dc, rest, err := v.splitDC(args, 4)
		if err != nil {
			return Value{}, err
		}
		x, err := v.evalArgF64(rest, 0)
		if err != nil {
			return Value{}, err
		}
		y, err := v.evalArgF64(rest, 1)
		if err != nil {
			return Value{}, err
		}
		r1, err := v.evalArgF64(rest, 2)
		if err != nil {
			return Value{}, err
		}
		r2, err := v.evalArgF64(rest, 3)
		if err != nil {
			return Value{}, err
		}
		v.grEllipse(x, y, math.Abs(r1), math.Abs(r2), dcColor(dc), dcThick(dc))
		return VoidV(), nil

	case "GrFloodFill", "GrFloodFill3":
		// Accepted but a no-op; arguments still evaluate.
		if len(args) < 2 {
			return Value{}, fmt.Errorf("GrFloodFill(dc?, x, y, ...) expects at least 2 args")
		}
		for _, e := range args {
			if _, isDefault := e.(*hc.DefaultArgExpr); isDefault {
				continue
			}
			if _, err := v.evalExpr(e); err != nil {
				return Value{}, err
			}
		}
		return VoidV(), nil

	case "GrPrint":
		return v.builtinGrPrint(args)

	case "GrPaletteColorSet":
		return v.builtinGrPaletteColorSet(args)

	case "GrCircle":
		// GrCircle(dc?, x, y, r, color?, theta1?, theta2?): angle
		// ranges draw full circles.
		if len(args) < 3 || len(args) > 7 {
			return Value{}, fmt.Errorf("GrCircle(dc?, x, y, r, color?, theta1?, theta2?) expects 3-7 args")
		}
		dc, rest, err := v.splitDC(args, 3)
		if err != nil {
			return Value{}, err
		}
		return v.grCircle(dc, rest, 0, 1, 2, 3)

	case "GrCircle3":
		// GrCircle3(dc?, x, y, z, r, color?): Z is ignored.
		if len(args) < 4 || len(args) > 6 {
			return Value{}, fmt.Errorf("GrCircle3(dc?, x, y, z, r, color?) expects 4-6 args")
		}
		dc, rest, err := v.splitDC(args, 4)
		if err != nil {
			return Value{}, err
		}
		return v.grCircle(dc, rest, 0, 1, 3, 4)

	case "GrClip":
		if len(args) != 4 {
			return Value{}, fmt.Errorf("GrClip(x, y, w, h) expects 4 args")
		}
		var c [4]int64
		var err error
		for i := range c {
			if c[i], err = v.evalArgI64(args, i); err != nil {
				return Value{}, err
			}
		}
		v.surf.SetClipRect(int32(c[0]), int32(c[1]), int32(c[2]), int32(c[3]))
		return VoidV(), nil

	case "GrUnClip":
		v.surf.ResetClipRect()
		return VoidV(), nil

	case "DCDepthBufAlloc":
		if len(args) > 2 {
			return Value{}, fmt.Errorf("DCDepthBufAlloc(dc=gr.dc, flags=0) expects 0-2 args")
		}
		for _, e := range args {
			if _, isDefault := e.(*hc.DefaultArgExpr); isDefault {
				continue
			}
			if _, err := v.evalExpr(e); err != nil {
				return Value{}, err
			}
		}
		return VoidV(), nil

	case "D3I32Norm":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("D3I32Norm(p) expects 1 arg")
		}
		val, err := v.evalExpr(args[0])
		if err != nil {
			return Value{}, err
		}
		obj, err := valueToObject(v, val)
		if err != nil {
			return Value{}, fmt.Errorf("expected object with x/y/z")
		}
		x := float64(objFieldI64(obj, "x"))
		y := float64(objFieldI64(obj, "y"))
		z := float64(objFieldI64(obj, "z"))
		return FloatV(math.Sqrt(x*x + y*y + z*z)), nil

	case "SpriteInterpolate":
		if len(args) != 3 {
			return Value{}, fmt.Errorf("SpriteInterpolate(t, elems0, elems1) expects 3 args")
		}
		t, err := v.evalArgF64(args, 0)
		if err != nil {
			return Value{}, err
		}
		e0, err := v.evalArgI64(args, 1)
		if err != nil {
			return Value{}, err
		}
		e1, err := v.evalArgI64(args, 2)
		if err != nil {
			return Value{}, err
		}
		if t < 0.5 {
			return IntV(e0), nil
		}
		return IntV(e1), nil

	case "Sprite3", "Sprite3YB":
		return v.builtinSprite3(name, args)
	}
	return Value{}, fmt.Errorf("unknown function")
}

// grLine draws using positional indexes into rest, so GrLine and
// GrLine3 share the body.
func (v *Vm) grLine(dc *Object, rest []hc.Expr, ix1, iy1, ix2, iy2, ithick int) (Value, error) {
	x1, err := v.evalArgI64(rest, ix1)
	if err != nil {
		return Value{}, err
	}
	y1, err := v.evalArgI64(rest, iy1)
	if err != nil {
		return Value{}, err
	}
	x2, err := v.evalArgI64(rest, ix2)
	if err != nil {
		return Value{}, err
	}
	y2, err := v.evalArgI64(rest, iy2)
	if err != nil {
		return Value{}, err
	}

	thick := dcThick(dc)
	if ithick < len(rest) {
		if _, isDefault := rest[ithick].(*hc.DefaultArgExpr); !isDefault {
			n, err := v.evalArgI64(rest, ithick)
			if err != nil {
				return Value{}, err
			}
			if n < 1 {
				n = 1
			}
			thick = int32(n)
		}
	}
	v.surf.DrawLineThick(int32(x1), int32(y1), int32(x2), int32(y2), dcColor(dc), thick)
	return VoidV(), nil
}

func (v *Vm) grCircle(dc *Object, rest []hc.Expr, ix, iy, ir, icolor int) (Value, error) {
	x, err := v.evalArgI64(rest, ix)
	if err != nil {
		return Value{}, err
	}
	y, err := v.evalArgI64(rest, iy)
	if err != nil {
		return Value{}, err
	}
	r, err := v.evalArgI64(rest, ir)
	if err != nil {
		return Value{}, err
	}

	color := dcColor(dc)
	if icolor < len(rest) {
		if _, isDefault := rest[icolor].(*hc.DefaultArgExpr); !isDefault {
			n, err := v.evalArgI64(rest, icolor)
			if err != nil {
				return Value{}, err
			}
			color = byte(n)
		}
	}
	v.surf.DrawCircleThick(int32(x), int32(y), int32(r), color, dcThick(dc))
	return VoidV(), nil
}

// grEllipse approximates an ellipse with a polyline, stepping finer as
// the radii grow.
func (v *Vm) grEllipse(x, y, r1, r2 float64, color byte, thick int32) {
	if r1 <= 0 || r2 <= 0 {
		return
	}
	steps := int32(math.Round((r1 + r2) * 0.5))
	if steps < 12 {
		steps = 12
	}
	if steps > 256 {
		steps = 256
	}
	steps *= 4

	var px, py int32
	for i := int32(0); i <= steps; i++ {
		a := float64(i) / float64(steps) * 2 * math.Pi
		nx := int32(math.Round(x + math.Cos(a)*r1))
		ny := int32(math.Round(y + math.Sin(a)*r2))
		if i > 0 {
			v.surf.DrawLineThick(px, py, nx, ny, color, thick)
		}
		px, py = nx, ny
	}
}

func (v *Vm) builtinGrPrint(args []hc.Expr) (Value, error) {
	if len(args) < 3 {
		return Value{}, fmt.Errorf("GrPrint(dc?, x, y, fmt, ...) expects at least 3 args")
	}

	dc := v.dcAlias
	rest := args
	if len(args) >= 4 {
		if _, isDefault := args[0].(*hc.DefaultArgExpr); isDefault {
			rest = args[1:]
		} else {
			first, err := v.evalExpr(args[0])
			if err != nil {
				return Value{}, err
			}
			if first.Kind == ValObj {
				dc = first.Obj
				rest = args[1:]
			}
		}
	}

	x, err := v.evalArgI64(rest, 0)
	if err != nil {
		return Value{}, err
	}
	y, err := v.evalArgI64(rest, 1)
	if err != nil {
		return Value{}, err
	}

	fmtV, err := v.evalExpr(rest[2])
	if err != nil {
		return Value{}, err
	}
	var format string
	switch fmtV.Kind {
	case ValStr:
		format = fmtV.S
	case ValInt, ValPtr:
		if fmtV.I != 0 {
			format, err = v.readCStr(fmtV.I)
			if err != nil {
				return Value{}, err
			}
		}
	default:
		return Value{}, fmt.Errorf("fmt must be a string or pointer")
	}

	var fargs []hc.FormatArg
	for _, e := range rest[3:] {
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
	v.surf.DrawText(int32(x), int32(y), dcColor(dc), 0, rendered)
	return VoidV(), nil
}

func (v *Vm) builtinGrPaletteColorSet(args []hc.Expr) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("GrPaletteColorSet(color_num, bgr48) expects 2 args")
	}
	colorNum, err := v.evalArgI64(args, 0)
	if err != nil {
		return Value{}, err
	}
	if colorNum < 0 {
		colorNum = 0
	}
	if colorNum > 255 {
		colorNum = 255
	}

	val, err := v.evalExpr(args[1])
	if err != nil {
		return Value{}, err
	}
	var b, g, r uint16
	switch val.Kind {
	case ValInt, ValChar:
		var bits uint64
		if val.Kind == ValInt {
			bits = uint64(val.I)
		} else {
			bits = val.C
		}
		b = uint16(bits)
		g = uint16(bits >> 16)
		r = uint16(bits >> 32)
	case ValObj:
		b = uint16(objFieldI64(val.Obj, "b"))
		g = uint16(objFieldI64(val.Obj, "g"))
		r = uint16(objFieldI64(val.Obj, "r"))
	default:
		return Value{}, fmt.Errorf("expected CBGR48 obj or int bits")
	}

	rgba := [4]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8), 255}
	if err := v.host.PaletteColorSet(byte(colorNum), rgba); err != nil {
		return Value{}, err
	}
	return VoidV(), nil
}

// builtinSprite3 renders a DolDoc sprite element stream:
// Sprite3(dc, x, y, z, elems, extra?): Z, rotation, and the
// just-one-elem flag are ignored.
func (v *Vm) builtinSprite3(name string, args []hc.Expr) (Value, error) {
	if len(args) != 5 && len(args) != 6 {
		return Value{}, fmt.Errorf("%s(dc, x, y, z, elems, extra?) expects 5-6 args", name)
	}

	dc, err := v.dcFor(args[0])
	if err != nil {
		return Value{}, err
	}
	x, err := v.evalArgF64(args, 1)
	if err != nil {
		return Value{}, err
	}
	y, err := v.evalArgF64(args, 2)
	if err != nil {
		return Value{}, err
	}
	if _, err := v.evalArgF64(args, 3); err != nil {
		return Value{}, err
	}
	elems, err := v.evalArgI64(args, 4)
	if err != nil {
		return Value{}, err
	}
	if len(args) == 6 {
		if _, isDefault := args[5].(*hc.DefaultArgExpr); !isDefault {
			if _, err := v.evalExpr(args[5]); err != nil {
				return Value{}, err
			}
		}
	}
	if elems == 0 {
		return VoidV(), nil
	}

	var stream []byte
	if length, ok := v.binLenByPtr[elems]; ok {
		stream, err = v.heapSlice(elems, length)
	} else {
		stream, err = v.heapTail(elems)
	}
	if err != nil {
		return Value{}, err
	}

	doldoc.RenderSprite(v.surf, int32(x), int32(y), stream, dcColor(dc), dcThick(dc))
	return VoidV(), nil
}
