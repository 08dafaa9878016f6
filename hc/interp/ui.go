package interp

import (
	"fmt"

	"github.com/templelinux/temple/protocol"
	"github.com/templelinux/temple/rt"
)

// TempleOS character and scan-code constants used by event mapping.
const (
	chBackspace = 0x08
	chEsc       = 0x1B
	chShiftEsc  = 0x1C

	scEsc         = 0x01
	scBackspace   = 0x0E
	scTab         = 0x0F
	scEnter       = 0x1C
	scShift       = 0x2A
	scCtrl        = 0x1D
	scAlt         = 0x38
	scCursorUp    = 0x48
	scCursorDown  = 0x50
	scCursorLeft  = 0x4B
	scCursorRight = 0x4D
	scPageUp      = 0x49
	scPageDown    = 0x51
	scHome        = 0x47
	scEnd         = 0x4F
	scIns         = 0x52
	scDelete      = 0x53

	scfKeyUp  = 0x100
	scfShift  = 0x200
	scfCtrl   = 0x400
	scfAlt    = 0x800
	scfDelete = 0x40000
	scfIns    = 0x80000

	ctrlfShow          = 1
	ctrlfCaptureLeftMS = 4

	// ctrlListStepLimit bounds traversal of the intrusive control list
	// so a malformed cycle cannot hang the interpreter.
	ctrlListStepLimit = 4096
)

var scanCodeByKey = map[uint32]int64{
	protocol.KeyEscape: scEsc, protocol.KeyEnter: scEnter,
	protocol.KeyBackspace: scBackspace, protocol.KeyTab: scTab,
	protocol.KeyShift: scShift, protocol.KeyControl: scCtrl,
	protocol.KeyAlt: scAlt,
	protocol.KeyLeft: scCursorLeft, protocol.KeyRight: scCursorRight,
	protocol.KeyUp: scCursorUp, protocol.KeyDown: scCursorDown,
	protocol.KeyHome: scHome, protocol.KeyEnd: scEnd,
	protocol.KeyPageUp: scPageUp, protocol.KeyPageDown: scPageDown,
	protocol.KeyInsert: scIns, protocol.KeyDelete: scDelete,
	protocol.KeyF1: 0x3B, protocol.KeyF2: 0x3C, protocol.KeyF3: 0x3D,
	protocol.KeyF4: 0x3E, protocol.KeyF5: 0x3F, protocol.KeyF6: 0x40,
	protocol.KeyF7: 0x41, protocol.KeyF8: 0x42, protocol.KeyF9: 0x43,
	protocol.KeyF10: 0x44, protocol.KeyF11: 0x57, protocol.KeyF12: 0x58,
}

// pollEvents drains the inbound event queue into the TempleOS message
// queue, mouse globals, menu hover state, and control callbacks.
// Ctrl+Alt+C raises the throwable signal.
func (v *Vm) pollEvents() error {
	for {
		ev, ok := v.host.TryNextEvent()
		if !ok {
			return nil
		}
		switch ev.Kind {
		case rt.EventKey:
			switch ev.Code {
			case protocol.KeyShift:
				v.shiftDown = ev.Down
			case protocol.KeyControl:
				v.ctrlDown = ev.Down
			case protocol.KeyAlt:
				v.altDown = ev.Down
			}

			// TempleOS convention: Ctrl+Alt+C aborts the current task,
			// often caught by try/catch.
			if ev.Down && v.ctrlDown && v.altDown && (ev.Code == 'c' || ev.Code == 'C') {
				return ErrThrown
			}

			v.msgQueue = append(v.msgQueue, v.mapKeyEventToMsg(ev.Code, ev.Down))

			if ev.Down && ev.Code != protocol.KeyShift &&
				ev.Code != protocol.KeyControl && ev.Code != protocol.KeyAlt {
				mapped := v.mapKeyCode(ev.Code)
				v.scanChar = mapped
				v.keyQueue = append(v.keyQueue, mapped)
			}
		case rt.EventMouseMove:
			x, y := v.snapMouse(int64(ev.X), int64(ev.Y))
			v.msPos.Fields["x"] = IntV(x)
			v.msPos.Fields["y"] = IntV(y)
			v.msgQueue = append(v.msgQueue, TempleMsg{Code: msgMsMove, Arg1: x, Arg2: y})
			v.menuUpdateHover(int32(x), int32(y))

			if v.ctrlCaptureLeft != nil {
				if lb, ok := v.ms.Fields["lb"]; ok && lb.Truthy() {
					if err := v.ctrlCallLeftClick(v.ctrlCaptureLeft, x, y, true); err != nil {
						return err
					}
				}
			}
		case rt.EventMouseButton:
			x, _ := v.msPos.Fields["x"].AsI64()
			y, _ := v.msPos.Fields["y"].AsI64()

			switch ev.Button {
			case protocol.MouseButtonLeft:
				v.ms.Fields["lb"] = boolV(ev.Down)
				code := int64(msgMsLUp)
				if ev.Down {
					code = msgMsLDown
				}
				v.msgQueue = append(v.msgQueue, TempleMsg{Code: code, Arg1: x, Arg2: y})
				if ev.Down {
					v.menuHandleLeftClick(int32(x), int32(y))
				}
				if err := v.ctrlHandleLeftButton(ev.Down, x, y); err != nil {
					return err
				}
			case protocol.MouseButtonRight:
				code := int64(msgMsRUp)
				if ev.Down {
					code = msgMsRDown
				}
				v.msgQueue = append(v.msgQueue, TempleMsg{Code: code, Arg1: x, Arg2: y})
			}
		}
	}
}

// snapMouse applies ms_grid snapping to mouse coordinates.
func (v *Vm) snapMouse(x, y int64) (int64, int64) {
	grid, ok := v.env.Get("ms_grid")
	if !ok || grid.Kind != ValObj {
		return x, y
	}
	g := grid.Obj
	if snap, ok := g.Fields["snap"]; !ok || !snap.Truthy() {
		return x, y
	}
	if gx, err := g.Fields["x"].AsI64(); err == nil && gx > 0 {
		x -= x % gx
	}
	if gy, err := g.Fields["y"].AsI64(); err == nil && gy > 0 {
		y -= y % gy
	}
	return x, y
}

func (v *Vm) mapKeyEventToMsg(code uint32, down bool) TempleMsg {
	var flags int64
	if !down {
		flags |= scfKeyUp
	}
	if v.shiftDown {
		flags |= scfShift
	}
	if v.ctrlDown {
		flags |= scfCtrl
	}
	if v.altDown {
		flags |= scfAlt
	}

	msgCode := int64(msgKeyUp)
	if down {
		msgCode = msgKeyDown
	}

	var ascii, scancode, extraFlags int64
	switch code {
	case protocol.KeyEscape:
		ascii = chEsc
		if v.shiftDown {
			ascii = chShiftEsc
		}
		scancode = scEsc
	case protocol.KeyEnter:
		ascii, scancode = '\n', scEnter
	case protocol.KeyBackspace:
		ascii, scancode = chBackspace, scBackspace
	case protocol.KeyTab:
		ascii, scancode = '\t', scTab
	case protocol.KeyInsert:
		scancode, extraFlags = scIns, scfIns
	case protocol.KeyDelete:
		scancode, extraFlags = scDelete, scfDelete
	default:
		if sc, ok := scanCodeByKey[code]; ok {
			scancode = sc
		} else if code <= 0xFF {
			b := byte(code)
			if v.ctrlDown && isASCIIAlpha(b) {
				ascii = int64(toUpperASCII(b) & 0x1F)
			} else {
				ascii = int64(b)
			}
		}
	}

	return TempleMsg{Code: msgCode, Arg1: ascii, Arg2: scancode | flags | extraFlags}
}

func (v *Vm) mapKeyCode(code uint32) uint32 {
	switch code {
	case protocol.KeyEscape:
		if v.shiftDown {
			return chShiftEsc
		}
		return chEsc
	case protocol.KeyBackspace:
		return chBackspace
	case protocol.KeyEnter:
		return '\n'
	case protocol.KeyTab:
		return '\t'
	}
	if v.ctrlDown && code <= 0xFF && isASCIIAlpha(byte(code)) {
		return uint32(toUpperASCII(byte(code)) & 0x1F)
	}
	return code
}

func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func toUpperASCII(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// scanMsgMask removes and returns the first queued message whose
// 1<<code bit is set in mask.
func (v *Vm) scanMsgMask(mask uint64) (TempleMsg, bool) {
	for len(v.msgQueue) > 0 {
		msg := v.msgQueue[0]
		v.msgQueue = v.msgQueue[1:]
		if msg.Code < 0 || msg.Code > 63 {
			continue
		}
		if mask&(1<<uint(msg.Code)) != 0 {
			return msg, true
		}
	}
	return TempleMsg{}, false
}

// --- Controls (Fs.last_ctrl intrusive circular list) ---

func objField(obj *Object, name string) (Value, bool) {
	val, ok := obj.Fields[name]
	return val, ok
}

func objFieldI64(obj *Object, name string) int64 {
	if val, ok := obj.Fields[name]; ok {
		if n, err := val.AsI64(); err == nil {
			return n
		}
	}
	return 0
}

func objFieldObj(obj *Object, name string) *Object {
	if val, ok := obj.Fields[name]; ok && val.Kind == ValObj {
		return val.Obj
	}
	return nil
}

func (v *Vm) fsObject() *Object {
	if fs, ok := v.env.Get("Fs"); ok && fs.Kind == ValObj {
		return fs.Obj
	}
	return nil
}

func (v *Vm) ctrlFindAt(task *Object, x, y int64) *Object {
	head := objFieldObj(task, "last_ctrl")
	if head == nil {
		return nil
	}
	cur := objFieldObj(head, "next")
	steps := 0
	for cur != nil && cur != head {
		steps++
		if steps > ctrlListStepLimit {
			return nil
		}
		flags := objFieldI64(cur, "flags")
		left := objFieldI64(cur, "left")
		right := objFieldI64(cur, "right")
		top := objFieldI64(cur, "top")
		bottom := objFieldI64(cur, "bottom")
		if flags&ctrlfShow != 0 && x >= left && x <= right && y >= top && y <= bottom {
			return cur
		}
		cur = objFieldObj(cur, "next")
	}
	return nil
}

func (v *Vm) ctrlCallLeftClick(ctrl *Object, x, y int64, down bool) error {
	fp, ok := objField(ctrl, "left_click")
	if !ok || fp.Kind != ValFuncRef {
		return nil
	}
	_, err := v.callByName(fp.S, ObjV(ctrl), IntV(x), IntV(y), boolV(down))
	return err
}

func (v *Vm) ctrlHandleLeftButton(down bool, x, y int64) error {
	fs := v.fsObject()
	if fs == nil {
		return nil
	}
	if down {
		v.ctrlCaptureLeft = nil
		if ctrl := v.ctrlFindAt(fs, x, y); ctrl != nil {
			flags := objFieldI64(ctrl, "flags")
			if err := v.ctrlCallLeftClick(ctrl, x, y, true); err != nil {
				return err
			}
			if flags&ctrlfCaptureLeftMS != 0 {
				v.ctrlCaptureLeft = ctrl
			}
		}
		return nil
	}
	if ctrl := v.ctrlCaptureLeft; ctrl != nil {
		v.ctrlCaptureLeft = nil
		return v.ctrlCallLeftClick(ctrl, x, y, false)
	}
	if ctrl := v.ctrlFindAt(fs, x, y); ctrl != nil {
		return v.ctrlCallLeftClick(ctrl, x, y, false)
	}
	return nil
}

// --- Overlay pass ---

func (v *Vm) maybeCallDrawIt() error {
	if v.inDrawIt {
		return nil
	}
	fs := v.fsObject()
	if fs == nil {
		return nil
	}
	draw, ok := objField(fs, "draw_it")
	if !ok || draw.Kind != ValFuncRef {
		return nil
	}

	w, h := v.surf.Size()
	fs.Fields["pix_width"] = IntV(int64(w))
	fs.Fields["pix_height"] = IntV(int64(h))
	fs.Fields["win_width"] = IntV(int64(w / 8))
	fs.Fields["win_height"] = IntV(int64(h / 8))

	v.inDrawIt = true
	_, err := v.callByName(draw.S, ObjV(fs), ObjV(v.dcAlias))
	v.inDrawIt = false
	return err
}

func (v *Vm) maybeDrawCtrls() error {
	if v.inDrawIt {
		return nil
	}
	fs := v.fsObject()
	if fs == nil {
		return nil
	}
	head := objFieldObj(fs, "last_ctrl")
	if head == nil {
		return nil
	}
	cur := objFieldObj(head, "next")
	steps := 0
	for cur != nil && cur != head {
		steps++
		if steps > ctrlListStepLimit {
			return fmt.Errorf("control list appears to be looping")
		}
		flags := objFieldI64(cur, "flags")
		draw, ok := objField(cur, "draw_it")
		if flags&ctrlfShow != 0 && ok && draw.Kind == ValFuncRef {
			v.inDrawIt = true
			_, err := v.callByName(draw.S, ObjV(v.dcAlias), ObjV(cur))
			v.inDrawIt = false
			if err != nil {
				return err
			}
		}
		cur = objFieldObj(cur, "next")
	}
	return nil
}

func (v *Vm) maybeDrawMouseOverlay() error {
	if v.inDrawIt {
		return nil
	}
	gr, ok := v.env.Get("gr")
	if !ok || gr.Kind != ValObj {
		return nil
	}
	fp, ok := objField(gr.Obj, "fp_draw_ms")
	if !ok || fp.Kind != ValFuncRef {
		return nil
	}
	x, _ := v.msPos.Fields["x"].AsI64()
	y, _ := v.msPos.Fields["y"].AsI64()

	v.inDrawIt = true
	_, err := v.callByName(fp.S, ObjV(v.dcAlias), IntV(x), IntV(y))
	v.inDrawIt = false
	return err
}

// presentWithOverlays runs the overlay pass (task draw_it, controls,
// menu bar, mouse overlay) and presents the frame.
func (v *Vm) presentWithOverlays() error {
	if err := v.maybeCallDrawIt(); err != nil {
		return err
	}
	if err := v.maybeDrawCtrls(); err != nil {
		return err
	}
	v.renderMenuOverlay()
	if err := v.maybeDrawMouseOverlay(); err != nil {
		return err
	}
	if err := v.host.Present(); err != nil {
		if rt.IsBrokenPipe(err) {
			return fmt.Errorf("Broken pipe: %w", err)
		}
		return err
	}
	return nil
}
