package hc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string, macros map[string]string) []Token {
	t.Helper()
	toks, err := NewLexer("test.HC", []byte(src), 1, macros).Tokens()
	require.NoError(t, err)
	return toks
}

func TestLexBasics(t *testing.T) {
	toks := lexAll(t, `U0 Main() { I64 x = 0x10 + 2; }`, nil)
	require.Equal(t, TokIdent, toks[0].Kind)
	require.Equal(t, "U0", toks[0].Text)

	var ints []int64
	for _, tok := range toks {
		if tok.Kind == TokInt {
			ints = append(ints, tok.Int)
		}
	}
	require.Equal(t, []int64{16, 2}, ints)
	require.Equal(t, TokEOF, toks[len(toks)-1].Kind)
}

func TestLexFloats(t *testing.T) {
	toks := lexAll(t, "1.5 2e3 7", nil)
	require.Equal(t, TokFloat, toks[0].Kind)
	require.Equal(t, 1.5, toks[0].Float)
	require.Equal(t, TokFloat, toks[1].Kind)
	require.Equal(t, 2000.0, toks[1].Float)
	require.Equal(t, TokInt, toks[2].Kind)
}

func TestLexStringEscapes(t *testing.T) {
	toks := lexAll(t, `"hi\n\t\"x\""`, nil)
	require.Equal(t, TokStr, toks[0].Kind)
	require.Equal(t, "hi\n\t\"x\"", toks[0].Str)
}

func TestLexCharConstPacksLittleEndian(t *testing.T) {
	toks := lexAll(t, `'ab'`, nil)
	require.Equal(t, TokChar, toks[0].Kind)
	require.Equal(t, uint64('a')|uint64('b')<<8, toks[0].Char)
}

func TestLexCharConstTooLong(t *testing.T) {
	_, err := NewLexer("t.HC", []byte(`'abcdefghi'`), 1, nil).Tokens()
	require.Error(t, err)
}

func TestLexComments(t *testing.T) {
	toks := lexAll(t, "a // line\n/* block\nmore */ b", nil)
	require.Equal(t, "a", toks[0].Text)
	require.Equal(t, "b", toks[1].Text)
	require.Equal(t, 3, toks[1].Line)
}

func TestLexMacroExpansion(t *testing.T) {
	macros := map[string]string{"WIDTH": "640", "GR_WIDTH": "WIDTH"}
	toks := lexAll(t, "GR_WIDTH", macros)
	require.Equal(t, TokInt, toks[0].Kind)
	require.Equal(t, int64(640), toks[0].Int)
}

func TestLexMacroRecursionBounded(t *testing.T) {
	macros := map[string]string{"A": "B", "B": "A"}
	_, err := NewLexer("t.HC", []byte("A"), 1, macros).Tokens()
	require.Error(t, err)
}

func TestLexFileDirBuiltins(t *testing.T) {
	toks := lexAll(t, "__FILE__ __DIR__", nil)
	require.Equal(t, TokStr, toks[0].Kind)
	require.Equal(t, "test.HC", toks[0].Str)
	require.Equal(t, TokStr, toks[1].Kind)
	require.Equal(t, ".", toks[1].Str)
}

func TestLexUnicodeIdent(t *testing.T) {
	// Source bytes are CP437: 0xE3 is π.
	toks := lexAll(t, "\xE3 * 2", nil)
	require.Equal(t, TokIdent, toks[0].Kind)
	require.Equal(t, "π", toks[0].Text)
}

func TestLexDirectiveResidueSkipped(t *testing.T) {
	toks := lexAll(t, "#help_index \"Demo\"\nx", nil)
	require.Equal(t, "x", toks[0].Text)
}
