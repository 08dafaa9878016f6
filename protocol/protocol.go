// Package protocol defines the wire protocol spoken between the
// TempleShell compositor and its clients (the HolyC interpreter and
// native apps).
//
// Every message is a fixed 16-byte frame: a 4-byte magic, a little-endian
// u16 version, a u16 kind, and two u32 payload words. Variable-length
// tails (clipboard text) follow the frame; the frame's A word carries the
// tail length. HELLO_ACK additionally carries the shared-memory
// framebuffer file descriptor as SCM_RIGHTS ancillary data.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the first four bytes of every frame.
var Magic = [4]byte{'T', 'P', 'R', 'T'}

// Version is the protocol version carried in every frame.
const Version uint16 = 0

// MsgLen is the fixed frame size in bytes.
const MsgLen = 16

// Message kinds.
const (
	MsgHello           uint16 = 1
	MsgHelloAck        uint16 = 2
	MsgPresent         uint16 = 3
	MsgKey             uint16 = 4
	MsgShutdown        uint16 = 5
	MsgMouseMove       uint16 = 6
	MsgMouseButton     uint16 = 7
	MsgMouseWheel      uint16 = 8
	MsgMouseEnter      uint16 = 9
	MsgMouseLeave      uint16 = 10
	MsgClipboardSet    uint16 = 11
	MsgSnd             uint16 = 12
	MsgMute            uint16 = 13
	MsgPaletteColorSet uint16 = 14
	MsgSettingsPush    uint16 = 15
	MsgSettingsPop     uint16 = 16
	MsgPresentAck      uint16 = 17
)

// Key/button state values carried in the B word of KEY and MOUSE_BUTTON.
const (
	KeyStateUp   uint32 = 0
	KeyStateDown uint32 = 1
)

// Mouse buttons.
const (
	MouseButtonLeft      uint32 = 1
	MouseButtonRight     uint32 = 2
	MouseButtonMiddle    uint32 = 3
	MouseButtonBack      uint32 = 4
	MouseButtonForward   uint32 = 5
	MouseButtonOtherBase uint32 = 0x8000
)

// Named key codes. Codes <= 0xFF carry the ASCII byte directly; named
// keys live above 0xFF.
const (
	KeyEscape    uint32 = 0x0100
	KeyEnter     uint32 = 0x0101
	KeyBackspace uint32 = 0x0102
	KeyDelete    uint32 = 0x0103
	KeyTab       uint32 = 0x0104
	KeyHome      uint32 = 0x0105
	KeyEnd       uint32 = 0x0106
	KeyPageUp    uint32 = 0x0107
	KeyPageDown  uint32 = 0x0108
	KeyInsert    uint32 = 0x0109

	KeyShift   uint32 = 0x0110
	KeyControl uint32 = 0x0111
	KeyAlt     uint32 = 0x0112
	KeySuper   uint32 = 0x0113

	KeyLeft  uint32 = 0x0200
	KeyRight uint32 = 0x0201
	KeyUp    uint32 = 0x0202
	KeyDown  uint32 = 0x0203

	KeyF1  uint32 = 0x0300
	KeyF2  uint32 = 0x0301
	KeyF3  uint32 = 0x0302
	KeyF4  uint32 = 0x0303
	KeyF5  uint32 = 0x0304
	KeyF6  uint32 = 0x0305
	KeyF7  uint32 = 0x0306
	KeyF8  uint32 = 0x0307
	KeyF9  uint32 = 0x0308
	KeyF10 uint32 = 0x0309
	KeyF11 uint32 = 0x030a
	KeyF12 uint32 = 0x030b
)

// Msg is one decoded wire frame.
type Msg struct {
	Kind uint16
	A    uint32
	B    uint32
}

// Hello requests a session.
func Hello() Msg { return Msg{Kind: MsgHello} }

// HelloAck answers a HELLO with the framebuffer dimensions. The shm fd
// travels as ancillary data alongside this frame.
func HelloAck(width, height uint32) Msg {
	return Msg{Kind: MsgHelloAck, A: width, B: height}
}

// Present asks the shell to composite the client surface.
func Present(seq uint32) Msg { return Msg{Kind: MsgPresent, A: seq} }

// PresentAck acknowledges the composite for sequence seq.
func PresentAck(seq uint32) Msg { return Msg{Kind: MsgPresentAck, A: seq} }

// Key reports a key transition.
func Key(code uint32, down bool) Msg {
	return Msg{Kind: MsgKey, A: code, B: keyState(down)}
}

// MouseMove reports the pointer position in internal coordinates.
func MouseMove(x, y uint32) Msg { return Msg{Kind: MsgMouseMove, A: x, B: y} }

// MouseButton reports a button transition.
func MouseButton(button uint32, down bool) Msg {
	return Msg{Kind: MsgMouseButton, A: button, B: keyState(down)}
}

// MouseWheel reports scroll deltas.
func MouseWheel(dx, dy int32) Msg {
	return Msg{Kind: MsgMouseWheel, A: uint32(dx), B: uint32(dy)}
}

// MouseEnter reports the pointer entering the surface.
func MouseEnter() Msg { return Msg{Kind: MsgMouseEnter} }

// MouseLeave reports the pointer leaving the surface.
func MouseLeave() Msg { return Msg{Kind: MsgMouseLeave} }

// ClipboardSet announces a clipboard text tail of byteLen UTF-8 bytes.
func ClipboardSet(byteLen uint32) Msg {
	return Msg{Kind: MsgClipboardSet, A: byteLen}
}

// Snd requests a tone. The signed 8-bit ona rides in the low byte of A.
func Snd(ona uint32) Msg { return Msg{Kind: MsgSnd, A: ona} }

// Mute toggles the shell-side audio mute flag.
func Mute(val bool) Msg {
	m := Msg{Kind: MsgMute}
	if val {
		m.A = 1
	}
	return m
}

// PaletteColorSet replaces palette entry colorIndex with packed RGBA.
func PaletteColorSet(colorIndex, rgba uint32) Msg {
	return Msg{Kind: MsgPaletteColorSet, A: colorIndex, B: rgba}
}

// SettingsPush saves the current drawing settings bundle.
func SettingsPush() Msg { return Msg{Kind: MsgSettingsPush} }

// SettingsPop restores the last pushed settings bundle.
func SettingsPop() Msg { return Msg{Kind: MsgSettingsPop} }

// Shutdown terminates the session.
func Shutdown() Msg { return Msg{Kind: MsgShutdown} }

func keyState(down bool) uint32 {
	if down {
		return KeyStateDown
	}
	return KeyStateUp
}

// ToBytes encodes the frame.
func (m Msg) ToBytes() [MsgLen]byte {
	var out [MsgLen]byte
	copy(out[0:4], Magic[:])
	binary.LittleEndian.PutUint16(out[4:6], Version)
	binary.LittleEndian.PutUint16(out[6:8], m.Kind)
	binary.LittleEndian.PutUint32(out[8:12], m.A)
	binary.LittleEndian.PutUint32(out[12:16], m.B)
	return out
}

// FromBytes decodes a frame, rejecting bad magic or an unknown version.
func FromBytes(buf [MsgLen]byte) (Msg, error) {
	if [4]byte(buf[0:4]) != Magic {
		return Msg{}, fmt.Errorf("temple-rt: bad magic %q", buf[0:4])
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != Version {
		return Msg{}, fmt.Errorf("temple-rt: unsupported version %d", version)
	}
	return Msg{
		Kind: binary.LittleEndian.Uint16(buf[6:8]),
		A:    binary.LittleEndian.Uint32(buf[8:12]),
		B:    binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// WriteMsg writes one frame to w.
func WriteMsg(w io.Writer, m Msg) error {
	buf := m.ToBytes()
	_, err := w.Write(buf[:])
	return err
}

// ReadMsg reads exactly one frame from r.
func ReadMsg(r io.Reader) (Msg, error) {
	var buf [MsgLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Msg{}, err
	}
	return FromBytes(buf)
}
