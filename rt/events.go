package rt

// EventKind discriminates Event.
type EventKind int

const (
	EventKey EventKind = iota
	EventMouseMove
	EventMouseButton
	EventMouseWheel
	EventMouseEnter
	EventMouseLeave
)

// Event is one input event delivered by the shell. Key codes above
// 0xFF are named keys (protocol.Key*); codes <= 0xFF carry the ASCII
// byte.
type Event struct {
	Kind   EventKind
	Code   uint32 // key code
	Down   bool   // key / mouse button state
	X, Y   uint32 // mouse position
	Button uint32 // mouse button
	DX, DY int32  // wheel deltas
}
