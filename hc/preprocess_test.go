package hc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPreprocessIncludeAndDefine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Lib.HH", "#define SPEED 7\nI64 Helper() { return SPEED; }\n")
	entry := writeFile(t, dir, "Main.HC", "#include \"Lib.HH\"\nU0 Main() { Helper(); }\n")

	segments, defines, bins, err := PreprocessEntry(entry, "")
	require.NoError(t, err)
	require.Equal(t, "7", defines["SPEED"])
	require.Len(t, segments, 2)
	require.Contains(t, segments[0].File, "Lib.HH")
	require.Contains(t, segments[1].File, "Main.HC")
	require.Equal(t, 2, segments[1].StartLine)
	require.Len(t, bins, 2)

	prog, err := CompileSegments(segments, mergedMacros(defines), bins)
	require.NoError(t, err)
	require.NotNil(t, prog.Functions["Helper"])
	require.NotNil(t, prog.Functions["Main"])
}

func mergedMacros(defines map[string]string) map[string]string {
	macros := BuiltinDefines()
	for k, v := range defines {
		macros[k] = v
	}
	return macros
}

func TestPreprocessCyclicInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A.HC", "#include \"B.HC\"\n")
	b := writeFile(t, dir, "B.HC", "#include \"A.HC\"\n")
	_, _, _, err := PreprocessEntry(b, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cyclic include")
}

func TestPreprocessDefineContinuation(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "M.HC",
		"#define LONG_VALUE 1 + \\\n  2 + \\\n  3\nI64 x;\n")
	_, defines, _, err := PreprocessEntry(entry, "")
	require.NoError(t, err)
	require.Equal(t, "1 + 2 + 3", defines["LONG_VALUE"])
}

func TestPreprocessFunctionLikeMacroSkipped(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "M.HC", "#define F(x) ((x)+1)\n#define G 2\n")
	_, defines, _, err := PreprocessEntry(entry, "")
	require.NoError(t, err)
	require.NotContains(t, defines, "F")
	require.Equal(t, "2", defines["G"])
}

func TestPreprocessBinTail(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	var tail []byte
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], 3)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(payload)))
	tail = append(tail, hdr[:]...)
	tail = append(tail, payload...)

	content := append([]byte("U0 Main() {}\n"), 0)
	content = append(content, tail...)
	path := filepath.Join(dir, "Doc.HC")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	segments, _, bins, err := PreprocessEntry(path, "")
	require.NoError(t, err)
	require.Len(t, segments, 1)

	abs, _ := filepath.Abs(path)
	require.Equal(t, payload, bins[abs][3])
}

func TestPreprocessVendorInclude(t *testing.T) {
	vendor := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(vendor, "Kernel"), 0o755))
	writeFile(t, filepath.Join(vendor, "Kernel"), "KernelA.HH", "#define FROM_VENDOR 1\n")

	dir := t.TempDir()
	entry := writeFile(t, dir, "Main.HC", "#include <::/Kernel/KernelA.HH>\nU0 Main() {}\n")

	_, defines, _, err := PreprocessEntry(entry, vendor)
	require.NoError(t, err)
	require.Equal(t, "1", defines["FROM_VENDOR"])
}
