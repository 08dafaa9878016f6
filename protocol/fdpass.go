package protocol

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// SendMsgWithFD writes one frame and attaches fd as SCM_RIGHTS ancillary
// data. The receiver becomes the owner of its copy of the descriptor.
func SendMsgWithFD(conn *net.UnixConn, m Msg, fd int) error {
	buf := m.ToBytes()
	oob := unix.UnixRights(fd)
	_, _, err := conn.WriteMsgUnix(buf[:], oob, nil)
	if err != nil {
		return fmt.Errorf("temple-rt: sendmsg: %w", err)
	}
	return nil
}

// RecvMsgWithFD reads one frame together with any SCM_RIGHTS ancillary
// data. It returns the decoded frame and the received fd, or -1 when the
// frame carried none. Extra descriptors beyond the first are closed.
func RecvMsgWithFD(conn *net.UnixConn) (Msg, int, error) {
	var buf [MsgLen]byte
	oob := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := conn.ReadMsgUnix(buf[:], oob)
	if err != nil {
		return Msg{}, -1, fmt.Errorf("temple-rt: recvmsg: %w", err)
	}
	if n == 0 {
		return Msg{}, -1, fmt.Errorf("temple-rt: EOF waiting for fd msg")
	}
	if n < MsgLen {
		return Msg{}, -1, fmt.Errorf("temple-rt: short fd msg (%d bytes)", n)
	}

	fd := -1
	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return Msg{}, -1, fmt.Errorf("temple-rt: parse cmsg: %w", err)
		}
		for _, cmsg := range cmsgs {
			fds, err := unix.ParseUnixRights(&cmsg)
			if err != nil {
				continue
			}
			for _, f := range fds {
				if fd < 0 {
					fd = f
				} else {
					unix.Close(f)
				}
			}
		}
	}

	m, err := FromBytes(buf)
	if err != nil {
		if fd >= 0 {
			unix.Close(fd)
		}
		return Msg{}, -1, err
	}
	return m, fd, nil
}
