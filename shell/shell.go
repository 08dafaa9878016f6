package shell

import (
	"context"
	"fmt"
	"image"
	"net"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/templelinux/temple/protocol"
	"github.com/templelinux/temple/rt"
)

// Presenter blits composited frames to a real display. The GPU-backed
// window lives outside this package; tests and headless runs use the
// no-op.
type Presenter interface {
	PresentFrame(img *image.RGBA)
}

// NoopPresenter drops frames.
type NoopPresenter struct{}

func (NoopPresenter) PresentFrame(*image.RGBA) {}

// Clipboard bridges clipboard-set requests to the host clipboard.
type Clipboard interface {
	SetText(text string) error
}

// NoopClipboard drops clipboard text.
type NoopClipboard struct{}

func (NoopClipboard) SetText(string) error { return nil }

// Shell owns the canonical framebuffer and palette, the terminal, and
// every client session. One goroutine (Run) processes all compositor
// state; session reader goroutines and input injectors only post
// events.
type Shell struct {
	log zerolog.Logger

	fb      *rt.Surface
	palette Palette
	term    *Terminal

	audio     *Audio
	presenter Presenter
	clipboard Clipboard

	listener *net.UnixListener
	events   chan shellEvent

	sessions  map[AppID]*session
	focused   AppID // 0 = terminal
	nextAppID atomic.Uint32

	cursorX, cursorY uint32
	cursorVisible    bool

	promptBuf string

	frames uint64
}

// Option configures New.
type Option func(*Shell)

// WithLogger routes shell diagnostics to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Shell) { s.log = log }
}

// WithPresenter installs the display collaborator.
func WithPresenter(p Presenter) Option {
	return func(s *Shell) { s.presenter = p }
}

// WithClipboard installs the host clipboard collaborator.
func WithClipboard(c Clipboard) Option {
	return func(s *Shell) { s.clipboard = c }
}

// New builds a shell with a fresh 640×480 framebuffer and the TempleOS
// palette.
func New(opts ...Option) *Shell {
	s := &Shell{
		log:       zerolog.Nop(),
		fb:        rt.NewSurface(InternalW, InternalH),
		palette:   DefaultPalette,
		term:      NewTerminal(ColorWhite, ColorBlack, OutputRows),
		presenter: NoopPresenter{},
		clipboard: NoopClipboard{},
		events:    make(chan shellEvent, 256),
		sessions:  map[AppID]*session{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audio = NewAudio(s.log)
	s.term.WriteString("TempleShell ready. Type 'help'.\n")
	return s
}

// Listen binds the client socket and starts accepting sessions.
func (s *Shell) Listen(sockPath string) error {
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: sockPath, Net: "unix"})
	if err != nil {
		return fmt.Errorf("templeshell: listen %s: %w", sockPath, err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

// Run processes shell events until the context ends.
func (s *Shell) Run(ctx context.Context) {
	s.compositeAndPresent()
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case ev := <-s.events:
			s.handleEvent(ev)
		}
	}
}

// Step drains pending events without blocking (tests).
func (s *Shell) Step() {
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		default:
			return
		}
	}
}

func (s *Shell) shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
	for _, sess := range s.sessions {
		_ = sess.send(protocol.Shutdown())
		sess.close()
	}
}

func (s *Shell) handleEvent(ev shellEvent) {
	switch ev.kind {
	case evAppConnected:
		s.sessions[ev.sess.id] = ev.sess
		s.focused = ev.sess.id
		s.log.Info().Uint32("app", ev.sess.id).Str("session", ev.sess.uid.String()).Msg("app connected")
	case evAppDisconnected:
		if sess, ok := s.sessions[ev.id]; ok {
			sess.close()
			delete(s.sessions, ev.id)
			if s.focused == ev.id {
				s.focused = 0
			}
			s.log.Info().Uint32("app", ev.id).Msg("app disconnected")
			s.compositeAndPresent()
		}
	case evAppPresent:
		sess, ok := s.sessions[ev.id]
		if !ok {
			return
		}
		s.compositeAndPresent()
		if err := sess.send(protocol.PresentAck(ev.seq)); err != nil {
			s.log.Debug().Err(err).Uint32("app", ev.id).Msg("present ack failed")
		}
	case evPaletteColorSet:
		s.palette.Set(ev.colorIndex, ev.rgba)
	case evSettingsPush:
		if sess, ok := s.sessions[ev.id]; ok {
			sess.savedPalettes = append(sess.savedPalettes, s.palette)
		}
	case evSettingsPop:
		if sess, ok := s.sessions[ev.id]; ok && len(sess.savedPalettes) > 0 {
			s.palette = sess.savedPalettes[len(sess.savedPalettes)-1]
			sess.savedPalettes = sess.savedPalettes[:len(sess.savedPalettes)-1]
		}
	case evClipboardSet:
		if err := s.clipboard.SetText(ev.text); err != nil {
			s.log.Warn().Err(err).Msg("clipboard set failed")
		}
	case evKey:
		s.applyKey(ev.code, ev.down)
	case evMouseMove:
		s.applyMouseMove(ev.x, ev.y)
	case evMouseButton:
		s.forward(protocol.MouseButton(ev.button, ev.down))
	case evMouseWheel:
		s.applyMouseWheel(ev.dx, ev.dy)
	case evMouseEnter:
		s.cursorVisible = true
		s.forward(protocol.MouseEnter())
	case evMouseLeave:
		s.cursorVisible = false
		if !s.forward(protocol.MouseLeave()) {
			s.compositeAndPresent()
		}
	case evDumpPNG:
		s.composite()
		if err := s.WritePNG(ev.text); err != nil {
			s.log.Error().Err(err).Str("path", ev.text).Msg("png dump failed")
		}
	}
}

// RequestPNG asks the event loop to dump the next composited frame, a
// hook for headless runs and the test harness.
func (s *Shell) RequestPNG(path string) {
	s.events <- shellEvent{kind: evDumpPNG, text: path}
}

// compositeAndPresent rebuilds the canonical framebuffer and hands an
// RGBA frame to the presenter.
func (s *Shell) compositeAndPresent() {
	s.composite()
	s.presenter.PresentFrame(s.RenderRGBA())
	s.frames++
}

// composite paints the focused app's surface, or the terminal with its
// prompt and status rows when no app holds focus, then the cursor.
func (s *Shell) composite() {
	if sess, ok := s.sessions[s.focused]; ok && s.focused != 0 {
		copy(s.fb.Pixels(), sess.surface)
	} else {
		s.renderTerminal()
	}
	if s.cursorVisible {
		drawCursor(s.fb, int32(s.cursorX), int32(s.cursorY))
	}
}

func (s *Shell) renderTerminal() {
	prompt := "> " + s.promptBuf + "_"
	s.term.FillRow(PromptRow, ColorWhite, ColorBlack)
	s.term.WriteAt(0, PromptRow, ColorWhite, ColorBlack, prompt)

	status := fmt.Sprintf(" TempleShell  apps:%d", len(s.sessions))
	if off := s.term.ViewOffset(); off > 0 {
		status += fmt.Sprintf("  [scrollback +%d]", off)
	}
	s.term.FillRow(StatusRow, ColorWhite, ColorRed)
	s.term.WriteAt(0, StatusRow, ColorWhite, ColorRed, status)

	s.term.Render(s.fb, RenderOpaque)
}

// RenderRGBA expands the indexed framebuffer through the live palette.
func (s *Shell) RenderRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, InternalW, InternalH))
	pix := s.fb.Pixels()
	for i, idx := range pix {
		c := s.palette[idx]
		o := i * 4
		img.Pix[o] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = c.A
	}
	return img
}

// Framebuffer exposes the canonical surface (tests).
func (s *Shell) Framebuffer() *rt.Surface {
	return s.fb
}

// Terminal exposes the shell terminal (tests).
func (s *Shell) Terminal() *Terminal {
	return s.term
}

// PaletteColor returns a live palette entry (tests).
func (s *Shell) PaletteColor(i byte) [4]byte {
	c := s.palette[i]
	return [4]byte{c.R, c.G, c.B, c.A}
}

// FrameCount reports how many frames the shell has composited.
func (s *Shell) FrameCount() uint64 {
	return s.frames
}

// --- Input injection (called by the windowing collaborator) ---

// forward sends a message to the focused app, if any, and reports
// whether one consumed it.
func (s *Shell) forward(m protocol.Msg) bool {
	sess, ok := s.sessions[s.focused]
	if !ok || s.focused == 0 {
		return false
	}
	if err := sess.send(m); err != nil {
		s.log.Debug().Err(err).Msg("input forward failed")
	}
	return true
}

// InjectKey posts a key transition from the windowing collaborator.
func (s *Shell) InjectKey(code uint32, down bool) {
	s.events <- shellEvent{kind: evKey, code: code, down: down}
}

// InjectMouseMove posts a pointer move in internal coordinates.
func (s *Shell) InjectMouseMove(x, y uint32) {
	s.events <- shellEvent{kind: evMouseMove, x: x, y: y}
}

// InjectMouseButton posts a button transition.
func (s *Shell) InjectMouseButton(button uint32, down bool) {
	s.events <- shellEvent{kind: evMouseButton, button: button, down: down}
}

// InjectMouseWheel posts wheel deltas.
func (s *Shell) InjectMouseWheel(dx, dy int32) {
	s.events <- shellEvent{kind: evMouseWheel, dx: dx, dy: dy}
}

// InjectMouseEnter posts the pointer entering the window.
func (s *Shell) InjectMouseEnter() {
	s.events <- shellEvent{kind: evMouseEnter}
}

// InjectMouseLeave posts the pointer leaving the window.
func (s *Shell) InjectMouseLeave() {
	s.events <- shellEvent{kind: evMouseLeave}
}

// applyKey delivers a key: to the focused app, or to the terminal
// prompt when no app holds focus.
func (s *Shell) applyKey(code uint32, down bool) {
	if s.forward(protocol.Key(code, down)) {
		return
	}
	if down {
		s.terminalKey(code)
		s.compositeAndPresent()
	}
}

func (s *Shell) applyMouseMove(x, y uint32) {
	s.cursorX, s.cursorY = x, y
	s.cursorVisible = true
	if s.forward(protocol.MouseMove(x, y)) {
		return
	}
	s.compositeAndPresent()
}

// applyMouseWheel scrolls the terminal view when no app holds focus.
func (s *Shell) applyMouseWheel(dx, dy int32) {
	if s.forward(protocol.MouseWheel(dx, dy)) {
		return
	}
	if dy > 0 {
		s.term.ScrollViewUp(3)
	} else if dy < 0 {
		s.term.ScrollViewDown(3)
	}
	s.compositeAndPresent()
}

// terminalKey edits the prompt and drives view scrolling when the
// terminal has focus.
func (s *Shell) terminalKey(code uint32) {
	switch code {
	case protocol.KeyEnter:
		line := s.promptBuf
		s.promptBuf = ""
		s.term.ScrollViewToBottom()
		s.term.WriteString("> " + line + "\n")
		s.runCommand(line)
	case protocol.KeyBackspace:
		if s.promptBuf != "" {
			s.promptBuf = s.promptBuf[:len(s.promptBuf)-1]
		}
	case protocol.KeyPageUp:
		s.term.ScrollViewUp(OutputRows / 2)
	case protocol.KeyPageDown:
		s.term.ScrollViewDown(OutputRows / 2)
	case protocol.KeyHome:
		s.term.ScrollViewToTop()
	case protocol.KeyEnd:
		s.term.ScrollViewToBottom()
	default:
		if code >= ' ' && code < 0x7F {
			s.promptBuf += string(rune(code))
		}
	}
}

// runCommand executes one terminal prompt line.
func (s *Shell) runCommand(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "help":
		s.term.WriteString("commands: help, clear, echo, apps\n")
	case "clear":
		s.term.ClearOutput()
	case "echo":
		s.term.WriteString(strings.Join(fields[1:], " ") + "\n")
	case "apps":
		s.term.WriteString(fmt.Sprintf("%d app(s) connected\n", len(s.sessions)))
	default:
		s.term.WriteString("unknown command: " + fields[0] + "\n")
	}
}
