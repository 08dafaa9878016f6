// Package rt is the client-side runtime for TempleShell sessions. It
// owns the shared-memory framebuffer, streams drawing output and input
// events over the shell's unix socket, and exposes the immediate-mode
// drawing surface both the HolyC interpreter and native apps draw with.
package rt

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/templelinux/temple/protocol"
)

// ErrPresentAckTimeout is returned by Present when synchronous
// presentation does not receive a matching ack within the deadline.
var ErrPresentAckTimeout = errors.New("temple-rt: present ack timeout")

// ClipboardMaxBytes is the largest clipboard text a client will send.
const ClipboardMaxBytes = 1024 * 1024

const defaultPresentAckTimeout = 500 * time.Millisecond

// Config is the environment surface the client runtime reads.
type Config struct {
	// Sock is the shell socket path. Mandatory for Connect.
	Sock string `envconfig:"TEMPLE_SOCK"`
	// SyncPresent makes Present block until the shell acks the frame.
	SyncPresent bool `envconfig:"TEMPLE_SYNC_PRESENT"`
	// SyncPresentTimeoutMS overrides the ack deadline.
	SyncPresentTimeoutMS uint64 `envconfig:"TEMPLE_SYNC_PRESENT_TIMEOUT_MS"`
}

// ConfigFromEnv decodes Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("temple-rt: config: %w", err)
	}
	return cfg, nil
}

// Rt is a connected client session: the shared framebuffer surface plus
// the message stream to and from the shell.
//
// Two goroutines touch an Rt: the app goroutine, which draws and
// presents, and an internal reader goroutine, which demultiplexes
// inbound messages into the event and present-ack queues. Nothing else
// is shared between them.
type Rt struct {
	*Surface

	conn       *net.UnixConn
	events     chan Event
	acks       chan uint32
	presentSeq uint32

	syncPresent bool
	ackTimeout  time.Duration

	log zerolog.Logger
}

// Option configures Connect.
type Option func(*Rt)

// WithLogger routes runtime diagnostics to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Rt) {
		r.log = log
	}
}

// Connect opens a session with the shell named by TEMPLE_SOCK: it
// performs the hello/ack handshake, maps the shared-memory framebuffer
// the shell passes back, and starts the reader goroutine.
func Connect(opts ...Option) (*Rt, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return ConnectConfig(cfg, opts...)
}

// ConnectConfig is Connect with an explicit configuration.
func ConnectConfig(cfg Config, opts ...Option) (*Rt, error) {
	if cfg.Sock == "" {
		return nil, errors.New("temple-rt: TEMPLE_SOCK is not set (expected TempleShell to provide it)")
	}

	var conn *net.UnixConn
	err := retry.Do(
		func() error {
			var err error
			conn, err = net.DialUnix("unix", nil, &net.UnixAddr{Name: cfg.Sock, Net: "unix"})
			return err
		},
		retry.Attempts(5),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("temple-rt: dial %s: %w", cfg.Sock, err)
	}

	if err := protocol.WriteMsg(conn, protocol.Hello()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("temple-rt: hello: %w", err)
	}

	ack, shmFD, err := protocol.RecvMsgWithFD(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ack.Kind != protocol.MsgHelloAck {
		conn.Close()
		if shmFD >= 0 {
			unix.Close(shmFD)
		}
		return nil, fmt.Errorf("temple-rt: expected HELLO_ACK, got kind %d", ack.Kind)
	}
	if shmFD < 0 {
		conn.Close()
		return nil, errors.New("temple-rt: missing shm fd in HELLO_ACK")
	}

	width, height := ack.A, ack.B
	shmLen := int64(width) * int64(height)
	if shmLen <= 0 {
		conn.Close()
		unix.Close(shmFD)
		return nil, fmt.Errorf("temple-rt: bad framebuffer size %dx%d", width, height)
	}

	fb, err := unix.Mmap(shmFD, 0, int(shmLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	unix.Close(shmFD)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("temple-rt: mmap framebuffer: %w", err)
	}

	timeout := defaultPresentAckTimeout
	if cfg.SyncPresentTimeoutMS > 0 {
		timeout = time.Duration(cfg.SyncPresentTimeoutMS) * time.Millisecond
	}

	r := &Rt{
		Surface:     NewSurfaceOver(fb, width, height),
		conn:        conn,
		events:      make(chan Event, 1024),
		acks:        make(chan uint32, 16),
		syncPresent: cfg.SyncPresent,
		ackTimeout:  timeout,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.readLoop()
	return r, nil
}

// readLoop demultiplexes inbound messages until the socket closes. It
// owns the event and ack channels and closes them on exit so waiters
// observe the disconnect.
func (r *Rt) readLoop() {
	defer close(r.events)
	defer close(r.acks)

	for {
		m, err := protocol.ReadMsg(r.conn)
		if err != nil {
			return
		}
		switch m.Kind {
		case protocol.MsgPresentAck:
			select {
			case r.acks <- m.A:
			default:
			}
		case protocol.MsgKey:
			r.pushEvent(Event{Kind: EventKey, Code: m.A, Down: m.B == protocol.KeyStateDown})
		case protocol.MsgMouseMove:
			r.pushEvent(Event{Kind: EventMouseMove, X: m.A, Y: m.B})
		case protocol.MsgMouseButton:
			r.pushEvent(Event{Kind: EventMouseButton, Button: m.A, Down: m.B == protocol.KeyStateDown})
		case protocol.MsgMouseWheel:
			r.pushEvent(Event{Kind: EventMouseWheel, DX: int32(m.A), DY: int32(m.B)})
		case protocol.MsgMouseEnter:
			r.pushEvent(Event{Kind: EventMouseEnter})
		case protocol.MsgMouseLeave:
			r.pushEvent(Event{Kind: EventMouseLeave})
		case protocol.MsgShutdown:
			return
		}
	}
}

func (r *Rt) pushEvent(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.log.Debug().Int("kind", int(ev.Kind)).Msg("event queue full, dropping")
	}
}

// TryNextEvent returns the next pending input event without blocking.
func (r *Rt) TryNextEvent() (Event, bool) {
	select {
	case ev, ok := <-r.events:
		if !ok {
			return Event{}, false
		}
		return ev, true
	default:
		return Event{}, false
	}
}

// Present asks the shell to composite the current surface contents.
// Under synchronous presentation it blocks until the matching ack or
// ErrPresentAckTimeout.
func (r *Rt) Present() error {
	r.presentSeq++
	seq := r.presentSeq
	if err := protocol.WriteMsg(r.conn, protocol.Present(seq)); err != nil {
		return fmt.Errorf("temple-rt: present: %w", err)
	}
	if !r.syncPresent {
		return nil
	}
	return r.waitForPresentAck(seq)
}

func (r *Rt) waitForPresentAck(seq uint32) error {
	deadline := time.Now().Add(r.ackTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w (seq=%d)", ErrPresentAckTimeout, seq)
		}
		slice := remaining
		if slice > 25*time.Millisecond {
			slice = 25 * time.Millisecond
		}
		timer := time.NewTimer(slice)
		select {
		case ack, ok := <-r.acks:
			timer.Stop()
			if !ok {
				return fmt.Errorf("temple-rt: present ack channel disconnected: %w", syscall.EPIPE)
			}
			if ack == seq {
				return nil
			}
		case <-timer.C:
		}
	}
}

// Snd asks the shell audio thread for a tone at the given note index.
func (r *Rt) Snd(ona int8) error {
	return protocol.WriteMsg(r.conn, protocol.Snd(uint32(uint8(ona))))
}

// Mute toggles the shell-side mute flag.
func (r *Rt) Mute(val bool) error {
	return protocol.WriteMsg(r.conn, protocol.Mute(val))
}

// PaletteColorSet replaces one palette entry with the given RGBA.
func (r *Rt) PaletteColorSet(index byte, rgba [4]byte) error {
	packed := uint32(rgba[0])<<24 | uint32(rgba[1])<<16 | uint32(rgba[2])<<8 | uint32(rgba[3])
	return protocol.WriteMsg(r.conn, protocol.PaletteColorSet(uint32(index), packed))
}

// SettingsPush saves the current drawing settings bundle on the shell.
func (r *Rt) SettingsPush() error {
	return protocol.WriteMsg(r.conn, protocol.SettingsPush())
}

// SettingsPop restores the last pushed settings bundle.
func (r *Rt) SettingsPop() error {
	return protocol.WriteMsg(r.conn, protocol.SettingsPop())
}

// ClipboardSetText pushes UTF-8 text to the shell clipboard. Texts over
// ClipboardMaxBytes are rejected locally.
func (r *Rt) ClipboardSetText(text string) error {
	bs := []byte(text)
	if len(bs) > ClipboardMaxBytes {
		return errors.New("temple-rt: clipboard text too large")
	}
	if err := protocol.WriteMsg(r.conn, protocol.ClipboardSet(uint32(len(bs)))); err != nil {
		return err
	}
	_, err := r.conn.Write(bs)
	return err
}

// Close unmaps the framebuffer and drops the connection.
func (r *Rt) Close() error {
	err := r.conn.Close()
	if pix := r.Surface.pix; pix != nil {
		if uerr := unix.Munmap(pix); uerr != nil && err == nil {
			err = uerr
		}
		r.Surface.pix = nil
	}
	return err
}

// IsBrokenPipe reports whether err means the shell went away.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed)
}
