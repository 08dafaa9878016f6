package rt

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/templelinux/temple/protocol"
)

// fakeShell accepts one session, answers the hello handshake with a
// memfd framebuffer, and acks every present.
func fakeShell(t *testing.T, sock string, width, height uint32) {
	t.Helper()
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: sock, Net: "unix"})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.AcceptUnix()
		if err != nil {
			return
		}
		defer conn.Close()

		m, err := protocol.ReadMsg(conn)
		if err != nil || m.Kind != protocol.MsgHello {
			return
		}

		fd, err := unix.MemfdCreate("temple-fb-test", unix.MFD_CLOEXEC)
		if err != nil {
			return
		}
		defer unix.Close(fd)
		if err := unix.Ftruncate(fd, int64(width)*int64(height)); err != nil {
			return
		}
		if err := protocol.SendMsgWithFD(conn, protocol.HelloAck(width, height), fd); err != nil {
			return
		}

		for {
			m, err := protocol.ReadMsg(conn)
			if err != nil {
				return
			}
			switch m.Kind {
			case protocol.MsgPresent:
				_ = protocol.WriteMsg(conn, protocol.PresentAck(m.A))
			case protocol.MsgShutdown:
				return
			}
		}
	}()
}

func TestConnectHandshakeAndSyncPresent(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "shell.sock")
	fakeShell(t, sock, 640, 480)

	r, err := ConnectConfig(Config{Sock: sock, SyncPresent: true})
	require.NoError(t, err)
	defer r.Close()

	w, h := r.Size()
	require.Equal(t, uint32(640), w)
	require.Equal(t, uint32(480), h)

	r.Clear(0)
	r.FillRect(10, 10, 20, 10, 14)
	require.NoError(t, r.Present())
	require.Equal(t, uint32(1), r.presentSeq)

	require.Equal(t, byte(14), r.Pixels()[10*640+10])
}

func TestConnectRequiresSock(t *testing.T) {
	_, err := ConnectConfig(Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "TEMPLE_SOCK")
}

func TestSyncPresentTimesOutWithoutAck(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "shell.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: sock, Net: "unix"})
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.AcceptUnix()
		if err != nil {
			return
		}
		// Answer the handshake but never ack presents.
		m, err := protocol.ReadMsg(conn)
		if err != nil || m.Kind != protocol.MsgHello {
			return
		}
		fd, err := unix.MemfdCreate("temple-fb-test", unix.MFD_CLOEXEC)
		if err != nil {
			return
		}
		defer unix.Close(fd)
		_ = unix.Ftruncate(fd, 64*64)
		_ = protocol.SendMsgWithFD(conn, protocol.HelloAck(64, 64), fd)
		// Hold the connection open so the client times out rather than
		// seeing a disconnect.
		buf := make([]byte, 16)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	r, err := ConnectConfig(Config{Sock: sock, SyncPresent: true, SyncPresentTimeoutMS: 60})
	require.NoError(t, err)
	defer r.Close()

	err = r.Present()
	require.ErrorIs(t, err, ErrPresentAckTimeout)
}

func TestEventsDelivered(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "shell.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: sock, Net: "unix"})
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.AcceptUnix()
		if err != nil {
			return
		}
		defer conn.Close()
		if m, err := protocol.ReadMsg(conn); err != nil || m.Kind != protocol.MsgHello {
			return
		}
		fd, err := unix.MemfdCreate("temple-fb-test", unix.MFD_CLOEXEC)
		if err != nil {
			return
		}
		defer unix.Close(fd)
		_ = unix.Ftruncate(fd, 64*64)
		_ = protocol.SendMsgWithFD(conn, protocol.HelloAck(64, 64), fd)

		_ = protocol.WriteMsg(conn, protocol.Key('q', true))
		_ = protocol.WriteMsg(conn, protocol.MouseMove(5, 6))
		_ = protocol.WriteMsg(conn, protocol.MouseButton(protocol.MouseButtonLeft, true))
	}()

	r, err := ConnectConfig(Config{Sock: sock})
	require.NoError(t, err)
	defer r.Close()

	var got []Event
	deadline := 200
	for len(got) < 3 && deadline > 0 {
		if ev, ok := r.TryNextEvent(); ok {
			got = append(got, ev)
			continue
		}
		deadline--
		time.Sleep(time.Millisecond)
	}
	require.Len(t, got, 3)
	require.Equal(t, EventKey, got[0].Kind)
	require.Equal(t, uint32('q'), got[0].Code)
	require.True(t, got[0].Down)
	require.Equal(t, EventMouseMove, got[1].Kind)
	require.Equal(t, uint32(5), got[1].X)
	require.Equal(t, EventMouseButton, got[2].Kind)
	require.Equal(t, protocol.MouseButtonLeft, got[2].Button)
}
