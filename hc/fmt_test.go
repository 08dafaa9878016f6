package hc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fmtArg is a test-only FormatArg over Go values.
type fmtArg struct{ v any }

func (a fmtArg) FmtInt() (int64, error) {
	switch v := a.v.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	}
	return 0, fmt.Errorf("not an int: %v", a.v)
}

func (a fmtArg) FmtFloat() (float64, error) {
	switch v := a.v.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("not a number: %v", a.v)
}

func (a fmtArg) FmtStr() (string, bool) {
	s, ok := a.v.(string)
	return s, ok
}

func doFormat(t *testing.T, format string, args ...any) string {
	t.Helper()
	fas := make([]FormatArg, len(args))
	for i, a := range args {
		fas[i] = fmtArg{v: a}
	}
	out, err := Format(format, fas, nil, nil)
	require.NoError(t, err)
	return out
}

func TestFormatIntegers(t *testing.T) {
	require.Equal(t, "42", doFormat(t, "%d", 42))
	require.Equal(t, "-42", doFormat(t, "%d", -42))
	require.Equal(t, "1,234,567", doFormat(t, "%5,d", 1234567))
	require.Equal(t, "-1,234", doFormat(t, "%,d", -1234))
	require.Equal(t, "  7", doFormat(t, "%3d", 7))
	require.Equal(t, "7  ", doFormat(t, "%-3d", 7))
	require.Equal(t, "007", doFormat(t, "%03d", 7))
	require.Equal(t, "-07", doFormat(t, "%03d", -7))
}

func TestFormatUnsignedAndHex(t *testing.T) {
	require.Equal(t, "18446744073709551615", doFormat(t, "%u", -1))
	require.Equal(t, "ff", doFormat(t, "%x", 255))
	require.Equal(t, "FF", doFormat(t, "%X", 255))
	require.Equal(t, "00ff", doFormat(t, "%04x", 255))
}

func TestFormatFloat(t *testing.T) {
	require.Equal(t, "-001.500", doFormat(t, "%08.3f", -1.5))
	require.Equal(t, "1.000000", doFormat(t, "%f", 1.0))
	require.Equal(t, "1.50", doFormat(t, "%.2f", 1.5))
}

func TestFormatEngineering(t *testing.T) {
	require.Equal(t, "1.5u", doFormat(t, "%n", 0.0000015))
	require.Equal(t, "1.5k", doFormat(t, "%n", 1500.0))
	require.Equal(t, "12", doFormat(t, "%n", 12.0))
	require.Equal(t, "0.000000", doFormat(t, "%n", 0.0))
	// Exponent outside the suffix window falls back to e-notation.
	require.Equal(t, "1.5e15", doFormat(t, "%n", 1.5e15))
}

func TestFormatCharRepeat(t *testing.T) {
	require.Equal(t, "aaa", doFormat(t, "%h3c", int('a')))
	require.Equal(t, "A", doFormat(t, "%C", int('a')))
	require.Equal(t, "--", doFormat(t, "%h*c", 2, int('-')))
}

func TestFormatStringsAndLists(t *testing.T) {
	require.Equal(t, "hi", doFormat(t, "%s", "hi"))
	require.Equal(t, "two", doFormat(t, "%z", 1, "one\x00two\x00three"))
	require.Equal(t, "9", doFormat(t, "%z", 9, "one\x00two"))
	require.Equal(t, "100%", doFormat(t, "100%%"))
}

func TestFormatDefineList(t *testing.T) {
	sub := func(idx int64, name string) (string, bool) {
		if name == "ST_COLORS" && idx == 4 {
			return "RED", true
		}
		return "", false
	}
	out, err := Format("%Z", []FormatArg{fmtArg{4}, fmtArg{"ST_COLORS"}}, nil, sub)
	require.NoError(t, err)
	require.Equal(t, "RED", out)
}

func TestFormatDateTime(t *testing.T) {
	// 2000-01-01 = 10957 days after the epoch; 12:00:00.
	cdt := int64(10957)<<32 | (12 * 3600 * CDateFreqHz & 0xFFFFFFFF)
	require.Equal(t, "01/01/00", doFormat(t, "%D", cdt))
	require.Equal(t, "12:00:00", doFormat(t, "%T", cdt))
}

func TestFormatErrors(t *testing.T) {
	_, err := Format("%d", nil, nil, nil)
	require.Error(t, err)
	_, err = Format("%q", []FormatArg{fmtArg{1}}, nil, nil)
	require.Error(t, err)
}

func TestCivilRoundTrip(t *testing.T) {
	for _, c := range []struct{ y, m, d int }{
		{1970, 1, 1}, {2000, 2, 29}, {1999, 12, 31}, {2024, 2, 29},
		{1900, 3, 1}, {2100, 1, 1}, {1e4, 6, 15},
	} {
		days := DaysFromCivil(c.y, c.m, c.d)
		y, m, d := CivilFromDays(days)
		require.Equal(t, [3]int{c.y, c.m, c.d}, [3]int{y, m, d})
	}
	// Exhaustive sweep over a century of days.
	for days := int64(-20000); days < 20000; days++ {
		y, m, d := CivilFromDays(days)
		require.Equal(t, days, DaysFromCivil(y, m, d))
	}
}
