package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMsgRoundTrip(t *testing.T) {
	msgs := []Msg{
		Hello(),
		HelloAck(640, 480),
		Present(7),
		PresentAck(7),
		Key(KeyEscape, true),
		Key('a', false),
		MouseMove(12, 400),
		MouseButton(MouseButtonLeft, true),
		MouseWheel(-3, 11),
		MouseEnter(),
		MouseLeave(),
		ClipboardSet(42),
		Snd(0xC4),
		Mute(true),
		PaletteColorSet(14, 0xFFCC00FF),
		SettingsPush(),
		SettingsPop(),
		Shutdown(),
	}
	for _, m := range msgs {
		got, err := FromBytes(m.ToBytes())
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
}

func TestMsgBadMagic(t *testing.T) {
	var buf [MsgLen]byte
	copy(buf[:], "NOPE")
	_, err := FromBytes(buf)
	require.Error(t, err)
}

func TestMsgBadVersion(t *testing.T) {
	m := Present(1)
	buf := m.ToBytes()
	buf[4] = 0xFF
	_, err := FromBytes(buf)
	require.Error(t, err)
}

func TestHelloFrameBytes(t *testing.T) {
	// The canonical HELLO frame clients send first.
	want := []byte{
		0x54, 0x50, 0x52, 0x54, 0x00, 0x00, 0x01, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	got := Hello().ToBytes()
	require.Equal(t, want, got[:])
}

func TestWriteReadMsg(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMsg(&buf, MouseWheel(1, -1)))
	require.NoError(t, WriteMsg(&buf, Shutdown()))

	m1, err := ReadMsg(&buf)
	require.NoError(t, err)
	require.Equal(t, MouseWheel(1, -1), m1)

	m2, err := ReadMsg(&buf)
	require.NoError(t, err)
	require.Equal(t, Shutdown(), m2)
}

func TestMouseWheelNegativeDeltas(t *testing.T) {
	m := MouseWheel(-1, -2)
	require.Equal(t, int32(-1), int32(m.A))
	require.Equal(t, int32(-2), int32(m.B))
}
