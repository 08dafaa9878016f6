package shell

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/templelinux/temple/protocol"
)

// AppID identifies one connected client session.
type AppID = uint32

// session is one accepted client: its socket, the shell-side mapping of
// the shared framebuffer, and the per-session settings stack.
//
// Lifecycle: Accepted → awaiting HELLO → Ready → (Presenting ↔ Ready)
// → Closed. A malformed hello or an unexpected first message drops the
// session.
type session struct {
	id  AppID
	uid uuid.UUID

	conn    *net.UnixConn
	surface []byte // shared memory, written by the client

	// writeMu serializes outbound frames (present acks, forwarded input
	// and shutdown, all sent from the event loop).
	writeMu sync.Mutex

	savedPalettes []Palette
}

func (s *session) send(m protocol.Msg) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return protocol.WriteMsg(s.conn, m)
}

func (s *session) close() {
	s.conn.Close()
	if s.surface != nil {
		_ = unix.Munmap(s.surface)
		s.surface = nil
	}
}

type shellEventKind int

const (
	evAppConnected shellEventKind = iota
	evAppPresent
	evAppDisconnected
	evPaletteColorSet
	evSettingsPush
	evSettingsPop
	evClipboardSet

	evKey
	evMouseMove
	evMouseButton
	evMouseWheel
	evMouseEnter
	evMouseLeave

	evDumpPNG
)

type shellEvent struct {
	kind shellEventKind
	sess *session
	id   AppID
	seq  uint32

	colorIndex byte
	rgba       uint32
	text       string

	code   uint32
	down   bool
	x, y   uint32
	button uint32
	dx, dy int32
}

// acceptLoop accepts connections until the listener closes. Each
// session's handshake and read loop run on their own goroutine.
func (sh *Shell) acceptLoop() {
	for {
		conn, err := sh.listener.AcceptUnix()
		if err != nil {
			return
		}
		go sh.serveConn(conn)
	}
}

// serveConn performs the hello handshake: the first frame must be
// HELLO, answered with HELLO_ACK plus a freshly created shared-memory
// framebuffer fd.
func (sh *Shell) serveConn(conn *net.UnixConn) {
	m, err := protocol.ReadMsg(conn)
	if err != nil || m.Kind != protocol.MsgHello {
		sh.log.Debug().Msg("dropping session: malformed hello")
		conn.Close()
		return
	}

	fd, surface, err := createSharedFramebuffer()
	if err != nil {
		sh.log.Error().Err(err).Msg("framebuffer allocation failed")
		conn.Close()
		return
	}

	if err := protocol.SendMsgWithFD(conn, protocol.HelloAck(InternalW, InternalH), fd); err != nil {
		sh.log.Debug().Err(err).Msg("hello ack failed")
		unix.Close(fd)
		_ = unix.Munmap(surface)
		conn.Close()
		return
	}
	// The client owns its copy of the descriptor now.
	unix.Close(fd)

	sess := &session{
		id:      sh.nextAppID.Add(1),
		uid:     uuid.New(),
		conn:    conn,
		surface: surface,
	}
	sh.events <- shellEvent{kind: evAppConnected, sess: sess}
	sh.readLoop(sess)
}

// createSharedFramebuffer allocates the W·H shared-memory region and
// maps it into the shell.
func createSharedFramebuffer() (int, []byte, error) {
	fd, err := unix.MemfdCreate("temple-fb", unix.MFD_CLOEXEC)
	if err != nil {
		return -1, nil, fmt.Errorf("memfd_create: %w", err)
	}
	size := int64(InternalW) * int64(InternalH)
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("ftruncate: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("mmap: %w", err)
	}
	return fd, mem, nil
}

// readLoop demultiplexes one session's inbound stream into shell
// events. Audio requests go straight to the audio goroutine; they
// never touch the compositor state.
func (sh *Shell) readLoop(sess *session) {
	log := sh.log.With().Uint32("app", sess.id).Str("session", sess.uid.String()).Logger()
	defer func() {
		sh.events <- shellEvent{kind: evAppDisconnected, id: sess.id}
	}()

	for {
		m, err := protocol.ReadMsg(sess.conn)
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("session read ended")
			}
			return
		}
		switch m.Kind {
		case protocol.MsgPresent:
			sh.events <- shellEvent{kind: evAppPresent, id: sess.id, seq: m.A}
		case protocol.MsgSnd:
			sh.audio.Snd(int8(m.A))
		case protocol.MsgMute:
			sh.audio.Mute(m.A != 0)
		case protocol.MsgPaletteColorSet:
			sh.events <- shellEvent{
				kind: evPaletteColorSet, id: sess.id,
				colorIndex: byte(m.A), rgba: m.B,
			}
		case protocol.MsgSettingsPush:
			sh.events <- shellEvent{kind: evSettingsPush, id: sess.id}
		case protocol.MsgSettingsPop:
			sh.events <- shellEvent{kind: evSettingsPop, id: sess.id}
		case protocol.MsgClipboardSet:
			if m.A > clipboardMaxBytes {
				log.Warn().Uint32("len", m.A).Msg("clipboard text too large, dropping session")
				return
			}
			buf := make([]byte, m.A)
			if _, err := io.ReadFull(sess.conn, buf); err != nil {
				return
			}
			sh.events <- shellEvent{kind: evClipboardSet, id: sess.id, text: string(buf)}
		case protocol.MsgShutdown:
			return
		default:
			log.Debug().Uint16("kind", m.Kind).Msg("ignoring unexpected message")
		}
	}
}

const clipboardMaxBytes = 1024 * 1024
