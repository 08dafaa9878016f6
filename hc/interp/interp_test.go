package interp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/templelinux/temple/hc"
	"github.com/templelinux/temple/protocol"
	"github.com/templelinux/temple/rt"
	"github.com/templelinux/temple/templefs"
)

// stubHost records host calls and feeds queued input events.
type stubHost struct {
	events   []rt.Event
	presents int
	snds     []int8
	clip     []string
}

func (h *stubHost) Present() error { h.presents++; return nil }
func (h *stubHost) Snd(ona int8) error {
	h.snds = append(h.snds, ona)
	return nil
}
func (h *stubHost) Mute(bool) error                      { return nil }
func (h *stubHost) PaletteColorSet(byte, [4]byte) error  { return nil }
func (h *stubHost) SettingsPush() error                  { return nil }
func (h *stubHost) SettingsPop() error                   { return nil }
func (h *stubHost) ClipboardSetText(text string) error {
	h.clip = append(h.clip, text)
	return nil
}
func (h *stubHost) TryNextEvent() (rt.Event, bool) {
	if len(h.events) == 0 {
		return rt.Event{}, false
	}
	ev := h.events[0]
	h.events = h.events[1:]
	return ev, true
}

func newTestVm(t *testing.T, src string) (*Vm, *stubHost) {
	t.Helper()
	prog, err := hc.CompileSource("test.HC", []byte(src), nil)
	require.NoError(t, err)

	host := &stubHost{}
	resolver := templefs.NewResolver(t.TempDir(), "")
	vm := New(rt.NewSurface(640, 480), host, prog, hc.BuiltinDefines(),
		WithResolver(resolver),
		WithSleep(func(time.Duration) {}),
	)
	vm.EnableCapture()
	return vm, host
}

func run(t *testing.T, src string) (*Vm, *stubHost) {
	t.Helper()
	vm, host := newTestVm(t, src)
	require.NoError(t, vm.Run())
	return vm, host
}

func TestHelloMain(t *testing.T) {
	vm, host := run(t, `U0 Main(){ "hi\n"; }`)
	require.Equal(t, "hi\n", vm.CapturedOutput())
	require.Positive(t, host.presents)

	// "h" glyphs land in the framebuffer as foreground pixels.
	nonZero := 0
	for _, px := range vm.Surface().Pixels()[:8*640] {
		if px != 0 {
			nonZero++
		}
	}
	require.Positive(t, nonZero)
}

func TestTopLevelRunsBeforeImplicitMain(t *testing.T) {
	vm, _ := run(t, `
"top\n";
U0 Main(){ "main\n"; }
`)
	require.Equal(t, "top\nmain\n", vm.CapturedOutput())
}

func TestExplicitMainCallNotRepeated(t *testing.T) {
	vm, _ := run(t, `
U0 Main(){ "once\n"; }
Main;
`)
	require.Equal(t, "once\n", vm.CapturedOutput())
}

func TestArithmeticAndControlFlow(t *testing.T) {
	vm, _ := run(t, `
I64 Fib(I64 n) {
  if (n < 2) return n;
  return Fib(n-1) + Fib(n-2);
}
U0 Main(){ "%d\n", Fib(10); }
`)
	require.Equal(t, "55\n", vm.CapturedOutput())
}

func TestMixedArithmeticPromotesToFloat(t *testing.T) {
	vm, _ := run(t, `U0 Main(){ "%f\n", 1 + 0.5; }`)
	require.Equal(t, "1.500000\n", vm.CapturedOutput())
}

func TestIntegerDivisionByZeroErrors(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){ I64 x = 1/0; }`)
	err := vm.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "division by zero")
	require.Contains(t, err.Error(), "while executing")
}

func TestGotoResolvesByLabelIndex(t *testing.T) {
	vm, _ := run(t, `
U0 Main(){
  I64 i = 0;
again:
  i++;
  if (i < 3) goto again;
  "%d\n", i;
}
`)
	require.Equal(t, "3\n", vm.CapturedOutput())
}

func TestSwitchSubGroups(t *testing.T) {
	vm, _ := run(t, `
U0 Show(I64 i) {
  switch (i) {
    case 0: "zero"; break;
    start:
      "[";
    case 1: "one";
    case 2: "two";
    end:
      "]";
      break;
  }
}
U0 Main(){ Show(0); Show(1); Show(2); Show(9); "\n"; }
`)
	require.Equal(t, "zero[one][two]\n", vm.CapturedOutput())
}

func TestTryCatchThrow(t *testing.T) {
	vm, _ := run(t, `
U0 Main(){
  try {
    "a";
    throw;
    "never";
  } catch {
    "b";
  }
  "c\n";
}
`)
	require.Equal(t, "abc\n", vm.CapturedOutput())
}

func TestUncaughtThrowSurfacesAsError(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){ throw; }`)
	require.Error(t, vm.Run())
}

func TestCtrlAltCRaisesThrow(t *testing.T) {
	vm, host := newTestVm(t, `U0 Main(){}`)
	host.events = []rt.Event{
		{Kind: rt.EventKey, Code: protocol.KeyControl, Down: true},
		{Kind: rt.EventKey, Code: protocol.KeyAlt, Down: true},
		{Kind: rt.EventKey, Code: 'c', Down: true},
	}
	err := vm.pollEvents()
	require.ErrorIs(t, err, ErrThrown)
}

func TestPointerCoercionAndHeap(t *testing.T) {
	vm, _ := run(t, `
U0 Main(){
  U8 *p = MAlloc(8);
  *p = 65;
  p[1] = 66;
  "%c%c\n", *p, p[1];
}
`)
	require.Equal(t, "AB\n", vm.CapturedOutput())
}

func TestPointerArithmeticStride(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){}`)
	p := PtrV(100, 4)
	q, err := vm.applyBinary(hc.BinAdd, p, IntV(3))
	require.NoError(t, err)
	require.Equal(t, int64(112), q.I)
	require.Equal(t, 4, q.EB)
}

func TestCAllocReturnsZeroedBytes(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){}`)
	for _, size := range []int{1, 7, 64, 4096} {
		addr := vm.heapAlloc(size, true)
		bs, err := vm.heapSlice(addr, size)
		require.NoError(t, err)
		for _, b := range bs {
			require.Zero(t, b)
		}
	}
}

func TestHeapAllocZeroIsNull(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){}`)
	require.Zero(t, vm.heapAlloc(0, true))
}

func TestHeapRoundTrip(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){}`)
	addr := vm.heapAlloc(16, false)
	payload := []byte{1, 2, 3, 250, 0, 9}
	require.NoError(t, vm.heapWriteBytes(addr, payload))
	got, err := vm.heapSlice(addr, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// Address 0 is always invalid for non-empty access.
	_, err = vm.heapSlice(0, 1)
	require.Error(t, err)
}

func TestQueCircularInvariant(t *testing.T) {
	vm, _ := run(t, `
class CNode { I64 val; CNode *next, *last; };
CNode head;
CNode a;
CNode b;
QueInit(&head);
QueIns(&a, &head);
QueIns(&b, &a);
QueRem(&a);
U0 Main(){}
`)
	head, ok := vm.env.Get("head")
	require.True(t, ok)
	// Following next for live+1 steps returns to head.
	cur := head.Obj
	for i := 0; i < 2; i++ {
		cur = objFieldObj(cur, "next")
		require.NotNil(t, cur)
	}
	require.Equal(t, head.Obj, cur)
}

func TestOnaFreqRoundTrip(t *testing.T) {
	require.Equal(t, 0.0, Ona2Freq(0))
	require.InDelta(t, 440.0, Ona2Freq(60), 1e-9)
	for ona := int64(1); ona <= 127; ona++ {
		require.Equal(t, ona, Freq2Ona(Ona2Freq(ona)), "ona %d", ona)
	}
}

func TestFileWriteRefusesVendorTree(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){ FileWrite("::/x", 0, 0); }`)
	err := vm.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "refusing to write into ::/")
}

func TestFileWriteAndReadOverlay(t *testing.T) {
	vm, _ := run(t, `
U0 Main(){
  I64 p = StrNew("hey");
  FileWrite("/x", p, 3);
  I64 q = FileRead("/x");
  "%s\n", q;
}
`)
	require.Equal(t, "hey\n", vm.CapturedOutput())
	got, err := os.ReadFile(filepath.Join(vm.fs.OverlayRoot, "x"))
	require.NoError(t, err)
	require.Equal(t, "hey", string(got))
}

func TestStringBuiltins(t *testing.T) {
	vm, _ := run(t, `
U0 Main(){
  "%d\n", StrLen("hello");
  I64 p = StrNew("abc");
  I64 q = MAlloc(8);
  StrCpy(q, p);
  "%s\n", q;
}
`)
	require.Equal(t, "5\nabc\n", vm.CapturedOutput())
}

func TestSeedMakesRandDeterministic(t *testing.T) {
	vm1, _ := run(t, `Seed(42); "%d\n", RandU16;`)
	vm2, _ := run(t, `Seed(42); "%d\n", RandU16;`)
	require.Equal(t, vm1.CapturedOutput(), vm2.CapturedOutput())
}

func TestSndClampsAndForwards(t *testing.T) {
	_, host := run(t, `U0 Main(){ Snd(62); Snd(200); SndRst; }`)
	require.Equal(t, []int8{62, 127, 0}, host.snds)
}

func TestClipPutS(t *testing.T) {
	_, host := run(t, `U0 Main(){ ClipPutS("copied"); }`)
	require.Equal(t, []string{"copied"}, host.clip)
}

func TestGetCharConsumesQueuedKey(t *testing.T) {
	vm, host := newTestVm(t, `U0 Main(){ I64 k = GetChar(,0); "%d\n", k; }`)
	host.events = []rt.Event{{Kind: rt.EventKey, Code: 'x', Down: true}}
	require.NoError(t, vm.Run())
	require.Equal(t, "120\n", vm.CapturedOutput())
}

func TestScanMsgMaskFilters(t *testing.T) {
	vm, _ := newTestVm(t, `U0 Main(){}`)
	vm.msgQueue = []TempleMsg{
		{Code: msgKeyDown, Arg1: 'a'},
		{Code: msgCmd, Arg1: 7, Arg2: 8},
	}
	msg, ok := vm.scanMsgMask(1 << msgCmd)
	require.True(t, ok)
	require.Equal(t, int64(7), msg.Arg1)
	require.Empty(t, vm.msgQueue)
}

func TestRegistryBuiltins(t *testing.T) {
	vm, _ := run(t, `
RegDft("Counter", "I64 counter = 5;");
RegExe("Counter");
"%d\n", counter;
U0 Main(){}
`)
	require.Equal(t, "5\n", vm.CapturedOutput())
}

func TestDefineListFormatting(t *testing.T) {
	vm, _ := run(t, `U0 Main(){ "%Z\n", 4, "ST_COLORS"; }`)
	require.Equal(t, "RED\n", vm.CapturedOutput())
}

func TestClassInstancesAndFields(t *testing.T) {
	vm, _ := run(t, `
class CPoint { I64 x, y; };
U0 Main(){
  CPoint p;
  p.x = 3;
  p.y = p.x * 2;
  "%d %d\n", p.x, p.y;
}
`)
	require.Equal(t, "3 6\n", vm.CapturedOutput())
}

func TestQSortI64WithComparator(t *testing.T) {
	vm, _ := run(t, `
I64 Cmp(I64 a, I64 b) { return a - b; }
U0 Main(){
  I64 nums[5] = {5, 1, 4, 2, 3};
  QSortI64(nums, 5, &Cmp);
  "%d%d%d%d%d\n", nums[0], nums[1], nums[2], nums[3], nums[4];
}
`)
	require.Equal(t, "12345\n", vm.CapturedOutput())
}

func TestLinuxRunDisabledWithoutAllowlist(t *testing.T) {
	t.Setenv("TEMPLE_LINUX_RUN_ALLOW", "")
	vm, _ := run(t, `
U0 Main(){
  I64 h = LinuxRun("definitely-not-allowed --flag");
  "%d\n", h;
  "%s\n", LinuxLastErr;
}
`)
	require.Contains(t, vm.CapturedOutput(), "0\n")
	require.Contains(t, vm.CapturedOutput(), "disabled")
}

func TestSplitCmdline(t *testing.T) {
	args, err := SplitCmdline(`prog "a b" c\ d 'e f'`)
	require.NoError(t, err)
	require.Equal(t, []string{"prog", "a b", "c d", "e f"}, args)

	_, err = SplitCmdline(`prog "unterminated`)
	require.Error(t, err)
}
