package templefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/a/b/c":      "/a/b/c",
		"/a/../b":     "/b",
		"/../../x":    "/x",
		"//a//b/./c/": "/a/b/c",
		"":            "/",
		"/..":         "/",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestResolveWriteRefusesVendorTree(t *testing.T) {
	r := NewResolver(t.TempDir(), "")
	_, err := r.ResolveWrite("::/x")
	require.ErrorIs(t, err, ErrVendorWrite)
}

func TestResolveWriteMapsIntoOverlay(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, "")
	host, err := r.ResolveWrite("/x")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "x"), host)
}

func TestResolveWriteCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, "")
	host, err := r.ResolveWrite("/../../etc/passwd")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "etc", "passwd"), host)
}

func TestResolveRelativeAgainstCwd(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, "")
	r.Cwd = "/Home"
	host, err := r.ResolveWrite("Notes.txt")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "Home", "Notes.txt"), host)
}

func TestTildeMapsToHome(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, "")
	host, err := r.ResolveWrite("~/x")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "Home", "x"), host)
}

func TestResolveReadFallsBackToVendor(t *testing.T) {
	overlay := t.TempDir()
	vendor := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(vendor, "Demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vendor, "Demo", "X.HC"), []byte("U0 Main(){}"), 0o644))

	r := NewResolver(overlay, vendor)
	host, err := r.ResolveRead("/Demo/X.HC")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(vendor, "Demo", "X.HC"), host)

	// Overlay wins once the file exists there.
	require.NoError(t, os.MkdirAll(filepath.Join(overlay, "Demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(overlay, "Demo", "X.HC"), []byte("x"), 0o644))
	host, err = r.ResolveRead("/Demo/X.HC")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(overlay, "Demo", "X.HC"), host)
}

func TestResolveReadVendorSpec(t *testing.T) {
	vendor := t.TempDir()
	r := NewResolver(t.TempDir(), vendor)
	host, err := r.ResolveRead("::/Kernel/FontStd.HC")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(vendor, "Kernel", "FontStd.HC"), host)

	r2 := NewResolver(t.TempDir(), "")
	_, err = r2.ResolveRead("::/Kernel/FontStd.HC")
	require.Error(t, err)
}

func TestAbsDirRebasesVendorSpec(t *testing.T) {
	r := NewResolver(t.TempDir(), "")
	dir, err := r.AbsDir("::/Demo/Graphics")
	require.NoError(t, err)
	require.Equal(t, "/Demo/Graphics", dir)
}

func TestResolveSourceExtensionProbing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Lib.HH"), []byte(""), 0o644))

	got, err := ResolveSource("Lib", dir, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Lib.HH"), got)

	_, err = ResolveSource("Missing", dir, "")
	require.Error(t, err)
}

func TestRunAllowlistEnvAndFile(t *testing.T) {
	t.Setenv("TEMPLE_LINUX_RUN_ALLOW", "Firefox, xdg-open\nmpv")
	require.Equal(t, []string{"firefox", "xdg-open", "mpv"}, RunAllowlist(""))

	t.Setenv("TEMPLE_LINUX_RUN_ALLOW", "")
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Cfg"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "Cfg", "LinuxRunAllow.txt"),
		[]byte("# comment\nVLC\n\nxterm\n"), 0o644))
	require.Equal(t, []string{"vlc", "xterm"}, RunAllowlist(root))
}

func TestDiscoverVendorRootEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEMPLEOS_ROOT", dir)
	got, ok := DiscoverVendorRoot()
	require.True(t, ok)
	require.Equal(t, dir, got)
}
