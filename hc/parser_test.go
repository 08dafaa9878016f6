package hc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := CompileSource("test.HC", []byte(src), nil)
	require.NoError(t, err)
	return prog
}

func TestParseHelloMain(t *testing.T) {
	prog := parse(t, `U0 Main(){ "hi\n"; }`)
	fn := prog.Functions["Main"]
	require.NotNil(t, fn)
	require.Len(t, fn.Body, 1)
	pr, ok := fn.Body[0].(*PrintStmt)
	require.True(t, ok)
	require.Len(t, pr.Parts, 1)
	lit, ok := pr.Parts[0].(*StrLit)
	require.True(t, ok)
	require.Equal(t, "hi\n", lit.Val)
}

func TestParseFunctionParamsAndDefaults(t *testing.T) {
	prog := parse(t, `I64 Add(I64 a, I64 b=5) { return a + b; }`)
	fn := prog.Functions["Add"]
	require.NotNil(t, fn)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "a", fn.Params[0].Name)
	require.NotNil(t, fn.Params[1].Default)
}

func TestParseClass(t *testing.T) {
	prog := parse(t, `
class CPoint { I64 x, y; F64 w; };
class CRect : CPoint { I64 list[4]; };
`)
	pt := prog.Classes["CPoint"]
	require.NotNil(t, pt)
	require.Len(t, pt.Fields, 3)
	rect := prog.Classes["CRect"]
	require.NotNil(t, rect)
	require.Equal(t, "CPoint", rect.BaseTy)
	require.Len(t, rect.Fields[0].ArrayLens, 1)
}

func TestParseControlFlow(t *testing.T) {
	prog := parse(t, `
U0 F() {
  I64 i;
  for (i = 0; i < 10; i++) {
    if (i == 5) continue;
    while (i > 8) break;
  }
  do { i--; } while (i > 0);
  goto done;
done:
  return;
}
`)
	require.NotNil(t, prog.Functions["F"])
}

func TestParseSwitchWithRangesAndGroups(t *testing.T) {
	prog := parse(t, `
U0 F(I64 i) {
  switch (i) {
    case 0: break;
    case 2...4: break;
    start:
      "prefix";
    case 5: "five";
    case 6: "six";
    end:
      "suffix";
      break;
    default: break;
  }
}
`)
	fn := prog.Functions["F"]
	sw := fn.Body[0].(*SwitchStmt)
	require.Len(t, sw.Arms, 4)
	require.Equal(t, []CaseRange{{Lo: 0, Hi: 0}}, sw.Arms[0].Ranges)
	require.Equal(t, []CaseRange{{Lo: 2, Hi: 4}}, sw.Arms[1].Ranges)
	require.NotNil(t, sw.Arms[2].Group)
	require.Len(t, sw.Arms[2].Group.Arms, 2)
	require.Len(t, sw.Arms[2].Group.Suffix, 2)
	require.True(t, sw.Arms[3].Default)

	require.True(t, sw.Arms[2].ArmContains(5))
	require.True(t, sw.Arms[2].ArmContains(6))
	require.False(t, sw.Arms[2].ArmContains(7))
}

func TestParseAutoIncrementCases(t *testing.T) {
	prog := parse(t, `
U0 F(I64 i) {
  switch (i) {
    case: "zero"; break;
    case: "one"; break;
  }
}
`)
	sw := prog.Functions["F"].Body[0].(*SwitchStmt)
	require.Equal(t, int64(0), sw.Arms[0].Ranges[0].Lo)
	require.Equal(t, int64(1), sw.Arms[1].Ranges[0].Lo)
}

func TestParseTryCatchThrow(t *testing.T) {
	prog := parse(t, `U0 F() { try { throw; } catch { "caught"; } }`)
	tc, ok := prog.Functions["F"].Body[0].(*TryCatchStmt)
	require.True(t, ok)
	require.Len(t, tc.Try, 1)
	require.Len(t, tc.Catch, 1)
}

func TestParsePointerAndArrayDecls(t *testing.T) {
	prog := parse(t, `
U0 F() {
  U8 *p;
  I64 grid[4][8];
  F64 v = 1.5;
  I64 nums[3] = {1, 2, 3};
}
`)
	body := prog.Functions["F"].Body
	d0 := body[0].(*VarDeclStmt).Decls[0]
	require.True(t, d0.Pointer)
	d1 := body[1].(*VarDeclStmt).Decls[0]
	require.Len(t, d1.ArrayLens, 2)
	d3 := body[3].(*VarDeclStmt).Decls[0]
	init, ok := d3.Init.(*CallExpr)
	require.True(t, ok)
	require.Equal(t, "__init_list", init.Name)
	require.Len(t, init.Args, 3)
}

func TestParseDefaultArgsInCalls(t *testing.T) {
	prog := parse(t, `U0 F() { GrLine(,0,0,10,10); }`)
	call := prog.Functions["F"].Body[0].(*ExprStmt).X.(*CallExpr)
	require.Len(t, call.Args, 5)
	_, isDefault := call.Args[0].(*DefaultArgExpr)
	require.True(t, isDefault)
}

func TestParseErrorHasProvenance(t *testing.T) {
	_, err := CompileSource("bad.HC", []byte("U0 Main() { if ( } }"), nil)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "bad.HC", pe.File)
	require.Equal(t, 1, pe.Line)
}

func TestParseCompoundAssignAndIncDec(t *testing.T) {
	prog := parse(t, `U0 F() { I64 x; x += 2; x <<= 1; x++; --x; }`)
	body := prog.Functions["F"].Body
	as := body[1].(*AssignStmt)
	require.Equal(t, AssignAdd, as.Op)
	as2 := body[2].(*AssignStmt)
	require.Equal(t, AssignShl, as2.Op)
}
