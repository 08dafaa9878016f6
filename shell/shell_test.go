package shell

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/templelinux/temple/protocol"
	"github.com/templelinux/temple/rt"
)

type recordingClipboard struct {
	mu    sync.Mutex
	texts []string
}

func (c *recordingClipboard) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *recordingClipboard) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func TestSessionDrawAndPresent(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "shell.sock")
	clip := &recordingClipboard{}
	sh := New(WithClipboard(clip))
	require.NoError(t, sh.Listen(sock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sh.Run(ctx)
		close(done)
	}()

	client, err := rt.ConnectConfig(rt.Config{Sock: sock, SyncPresent: true})
	require.NoError(t, err)

	w, h := client.Size()
	require.Equal(t, uint32(InternalW), w)
	require.Equal(t, uint32(InternalH), h)

	client.Clear(0)
	client.FillRect(10, 10, 20, 10, 14)
	require.NoError(t, client.Present())

	// The shared framebuffer holds the drawing.
	require.Equal(t, byte(14), client.Pixels()[10*InternalW+10])

	// Clipboard and palette messages round-trip.
	require.NoError(t, client.ClipboardSetText("clip text"))
	require.NoError(t, client.PaletteColorSet(1, [4]byte{0xAA, 0xBB, 0xCC, 0xFF}))

	// A second synchronous present guarantees the earlier messages were
	// processed before we assert.
	require.NoError(t, client.Present())

	deadline := time.Now().Add(time.Second)
	for len(clip.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, []string{"clip text"}, clip.all())

	cancel()
	<-done
	client.Close()

	require.Equal(t, [4]byte{0xAA, 0xBB, 0xCC, 0xFF}, sh.PaletteColor(1))

	// The composited frame carried the focused app's surface.
	fb := sh.Framebuffer().Pixels()
	require.Equal(t, byte(14), fb[10*InternalW+10])
	require.Equal(t, byte(0), fb[0])
}

func TestShellTerminalPromptEcho(t *testing.T) {
	sh := New()
	for _, ch := range "echo hi" {
		sh.InjectKey(uint32(ch), true)
	}
	sh.InjectKey(protocol.KeyEnter, true)
	sh.Step()

	found := false
	for row := 0; row < OutputRows; row++ {
		if sh.Terminal().LineContent(row) == "hi" {
			found = true
		}
	}
	require.True(t, found, "expected 'hi' echoed into the terminal")
}

func TestShellUnknownCommand(t *testing.T) {
	sh := New()
	for _, ch := range "nope" {
		sh.InjectKey(uint32(ch), true)
	}
	sh.InjectKey(protocol.KeyEnter, true)
	sh.Step()

	found := false
	for row := 0; row < OutputRows; row++ {
		if sh.Terminal().LineContent(row) == "unknown command: nope" {
			found = true
		}
	}
	require.True(t, found)
}

func TestShellCursorDrawnAfterMouseMove(t *testing.T) {
	sh := New()
	sh.InjectMouseMove(100, 100)
	sh.Step()

	// The cursor fill is white on the terminal background.
	fb := sh.Framebuffer().Pixels()
	foundWhite := false
	for dy := 0; dy < cursorH; dy++ {
		for dx := 0; dx < cursorW; dx++ {
			if fb[(100+dy)*InternalW+100+dx] == ColorWhite {
				foundWhite = true
			}
		}
	}
	require.True(t, foundWhite)
}

func TestShellRendersStatusRow(t *testing.T) {
	sh := New()
	sh.InjectMouseMove(0, 0)
	sh.Step()
	require.Contains(t, sh.Terminal().LineContent(StatusRow), "TempleShell")
}

func TestScreenshotMatchesPalette(t *testing.T) {
	sh := New()
	sh.Framebuffer().Clear(ColorRed)
	img := sh.Screenshot()
	r, g, b, _ := img.At(5, 5).RGBA()
	require.Equal(t, uint32(0xAA), r>>8)
	require.Zero(t, g>>8)
	require.Zero(t, b>>8)
}

func TestScreenshotScaled(t *testing.T) {
	sh := New()
	sh.Framebuffer().Clear(ColorBlue)
	img := sh.ScreenshotScaled(320, 240)
	require.Equal(t, 320, img.Bounds().Dx())
	_, _, b, _ := img.At(10, 10).RGBA()
	require.Equal(t, uint32(0xAA), b>>8)
}
