package interp

import (
	"errors"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/templelinux/temple/cp437"
	"github.com/templelinux/temple/hc"
	"github.com/templelinux/temple/rt"
	"github.com/templelinux/temple/templefs"
)

// ErrThrown is the throwable signal raised by HolyC throw and by
// Ctrl+Alt+C. It travels outside the regular diagnostic error channel:
// try/catch intercepts it, everything else lets it unwind.
var ErrThrown = errors.New("temple-hc: throw")

// Host is what the VM needs from the connected session beyond raw
// pixels: presentation, sound, palette, settings, and input events.
// *rt.Rt satisfies it; tests use an offline stub.
type Host interface {
	Present() error
	Snd(ona int8) error
	Mute(val bool) error
	PaletteColorSet(index byte, rgba [4]byte) error
	SettingsPush() error
	SettingsPop() error
	ClipboardSetText(text string) error
	TryNextEvent() (rt.Event, bool)
}

var _ Host = (*rt.Rt)(nil)

// NullHost is an inert Host for offline runs and tests.
type NullHost struct{}

func (NullHost) Present() error                              { return nil }
func (NullHost) Snd(int8) error                              { return nil }
func (NullHost) Mute(bool) error                             { return nil }
func (NullHost) PaletteColorSet(byte, [4]byte) error         { return nil }
func (NullHost) SettingsPush() error                         { return nil }
func (NullHost) SettingsPop() error                          { return nil }
func (NullHost) ClipboardSetText(string) error               { return nil }
func (NullHost) TryNextEvent() (rt.Event, bool)              { return rt.Event{}, false }

// TempleMsg is one entry of the TempleOS-style message queue.
type TempleMsg struct {
	Code int64
	Arg1 int64
	Arg2 int64
}

// Message codes.
const (
	msgNull    = 0
	msgCmd     = 1
	msgKeyDown = 2
	msgKeyUp   = 3
	msgMsMove  = 4
	msgMsLDown = 5
	msgMsLUp   = 6
	msgMsRDown = 9
	msgMsRUp   = 10
)

type binKey struct {
	file string
	num  uint32
}

// Config is the interpreter's environment surface.
type Config struct {
	// FixedTS pins tS() to a constant (floating seconds).
	FixedTS string `envconfig:"TEMPLE_HC_FIXED_TS"`
	// Seed makes the RNG deterministic when non-zero.
	Seed uint64 `envconfig:"TEMPLE_HC_SEED"`
}

// Vm owns everything one interpreter instance needs: environment,
// program, byte heap, RNG, message queue, menus, and the client
// runtime handle. There is no module-level state beyond the read-only
// font and CP437 tables.
type Vm struct {
	surf *rt.Surface
	host Host
	log  zerolog.Logger

	env     *Env
	macros  map[string]string
	program *hc.Program

	defineLists map[string][]string
	regDefaults map[string]string

	fs *templefs.Resolver

	binPtrCache map[binKey]int64
	binLenByPtr map[int64]int

	// heap begins with one reserved byte so address 0 means null.
	heap []byte

	scanChar uint32
	keyQueue []uint32
	msgQueue []TempleMsg

	shiftDown bool
	ctrlDown  bool
	altDown   bool

	ctrlCaptureLeft *Object

	ms     *Object
	msPos  *Object
	dcAlias *Object

	textX, textY   int32
	textFg, textBg byte

	rngSeed  uint64
	rngState uint64

	start   time.Time
	fixedTS *float64

	isMute bool

	// capture mirrors terminal output for tests when non-nil.
	capture *strings.Builder

	menuStack []*MenuState
	inDrawIt  bool

	lastHostErr string
	mainCalled  bool

	textFontArr *ArrayValue

	sleep func(time.Duration)
}

// Option configures New.
type Option func(*Vm)

// WithLogger routes interpreter diagnostics to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(v *Vm) { v.log = log }
}

// WithResolver replaces the filesystem resolver (tests).
func WithResolver(r *templefs.Resolver) Option {
	return func(v *Vm) { v.fs = r }
}

// WithSleep replaces the wait-loop sleeper (tests).
func WithSleep(fn func(time.Duration)) Option {
	return func(v *Vm) { v.sleep = fn }
}

// New builds a VM over a drawing surface and host session, installing
// the TempleOS-style global environment.
func New(surf *rt.Surface, host Host, program *hc.Program, macros map[string]string, opts ...Option) *Vm {
	w, h := surf.Size()

	vendorRoot, _ := templefs.DiscoverVendorRoot()
	v := &Vm{
		surf:        surf,
		host:        host,
		log:         zerolog.Nop(),
		env:         NewEnv(),
		macros:      macros,
		program:     program,
		defineLists: map[string][]string{},
		regDefaults: map[string]string{},
		fs:          templefs.NewResolver(templefs.DefaultOverlayRoot(), vendorRoot),
		binPtrCache: map[binKey]int64{},
		binLenByPtr: map[int64]int{},
		heap:        make([]byte, 1),
		textFg:      15,
		start:       time.Now(),
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err == nil {
		if ts := strings.TrimSpace(cfg.FixedTS); ts != "" {
			if f, err := strconv.ParseFloat(ts, 64); err == nil {
				v.fixedTS = &f
			}
		}
		v.SetSeed(cfg.Seed)
	} else {
		v.SetSeed(0)
	}

	v.fs.Cwd = v.computeInitialCwd()
	v.installGlobals(w, h)
	v.surf.Clear(0)
	return v
}

func (v *Vm) computeInitialCwd() string {
	root := strings.TrimSpace(os.Getenv("TEMPLE_ROOT"))
	if root == "" {
		return "/Home"
	}
	cur, err := os.Getwd()
	if err != nil {
		return "/Home"
	}
	rel, ok := strings.CutPrefix(cur, strings.TrimRight(root, "/"))
	if !ok {
		return "/Home"
	}
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return "/"
	}
	return "/" + rel
}

func newTaskObject(w, h uint32, cwd string) *Object {
	ctrlHead := NewObject()
	ctrlHead.Fields["next"] = ObjV(ctrlHead)
	ctrlHead.Fields["last"] = ObjV(ctrlHead)

	newScroll := func() *Object {
		s := NewObject()
		s.Fields["min"] = IntV(0)
		s.Fields["pos"] = IntV(0)
		s.Fields["max"] = IntV(0)
		s.Fields["flags"] = IntV(0)
		s.Fields["color"] = IntV(15)
		return s
	}

	t := NewObject()
	t.Fields["pix_width"] = IntV(int64(w))
	t.Fields["pix_height"] = IntV(int64(h))
	t.Fields["pix_left"] = IntV(0)
	t.Fields["pix_top"] = IntV(0)
	t.Fields["win_width"] = IntV(int64(w / 8))
	t.Fields["win_height"] = IntV(int64(h / 8))
	t.Fields["win_inhibit"] = IntV(0)
	t.Fields["draw_it"] = IntV(0)
	t.Fields["task_end_cb"] = IntV(0)
	t.Fields["animate_task"] = IntV(0)
	t.Fields["text_attr"] = IntV(0)
	t.Fields["last_ctrl"] = ObjV(ctrlHead)
	t.Fields["horz_scroll"] = ObjV(newScroll())
	t.Fields["vert_scroll"] = ObjV(newScroll())
	if cwd != "" {
		t.Fields["cur_dir"] = StrV(cwd)
	}
	return t
}

func (v *Vm) installGlobals(w, h uint32) {
	env := v.env

	env.Define("SCR_W", IntV(int64(w)))
	env.Define("SCR_H", IntV(int64(h)))
	env.Define("TEXT_COLS", IntV(int64(w/8)))
	env.Define("TEXT_ROWS", IntV(int64(h/8)))

	env.Define("TRUE", IntV(1))
	env.Define("FALSE", IntV(0))
	env.Define("NULL", IntV(0))
	env.Define("local_time_offset", IntV(0))
	// Upstream CP437-heavy sources use π (byte 0xE3) directly in
	// expressions.
	env.Define("π", FloatV(math.Pi))
	env.Define("sqrt2", FloatV(math.Sqrt2))

	env.Define("CH_BACKSPACE", IntV(0x08))
	env.Define("CH_ESC", IntV(0x1B))
	env.Define("CH_SHIFT_ESC", IntV(0x1C))
	env.Define("CH_SHIFT_SPACE", IntV(0x1F))
	env.Define("CH_SPACE", IntV(0x20))

	palette := []struct {
		name string
		idx  int64
	}{
		{"BLACK", 0}, {"BLUE", 1}, {"GREEN", 2}, {"CYAN", 3},
		{"RED", 4}, {"MAGENTA", 5}, {"PURPLE", 5}, {"BROWN", 6},
		{"LGRAY", 7}, {"LTGRAY", 7}, {"DGRAY", 8}, {"DKGRAY", 8},
		{"LTBLUE", 9}, {"LTGREEN", 10}, {"LTCYAN", 11}, {"LTRED", 12},
		{"LTMAGENTA", 13}, {"LTPURPLE", 13}, {"YELLOW", 14}, {"WHITE", 15},
		{"COLORS_NUM", 16},
	}
	for _, c := range palette {
		env.Define(c.name, IntV(c.idx))
	}

	v.defineLists["ST_COLORS"] = []string{
		"BLACK", "BLUE", "GREEN", "CYAN", "RED", "PURPLE", "BROWN",
		"LTGRAY", "DKGRAY", "LTBLUE", "LTGREEN", "LTCYAN", "LTRED",
		"LTPURPLE", "YELLOW", "WHITE",
	}

	for name, code := range namedKeyCodes {
		env.Define(name, IntV(int64(code)))
	}

	v.msPos = NewObject()
	v.msPos.Fields["x"] = IntV(0)
	v.msPos.Fields["y"] = IntV(0)
	v.ms = NewObject()
	v.ms.Fields["lb"] = IntV(0)
	v.ms.Fields["pos"] = ObjV(v.msPos)
	env.Define("ms", ObjV(v.ms))

	dcLs := NewObject()
	dcLs.Fields["x"] = IntV(0)
	dcLs.Fields["y"] = IntV(0)
	dcLs.Fields["z"] = IntV(0)
	v.dcAlias = NewObject()
	v.dcAlias.Fields["color"] = IntV(15)
	v.dcAlias.Fields["thick"] = IntV(1)
	v.dcAlias.Fields["flags"] = IntV(0)
	v.dcAlias.Fields["ls"] = ObjV(dcLs)
	v.dcAlias.Fields["width"] = IntV(int64(w))
	v.dcAlias.Fields["height"] = IntV(int64(h))

	env.Define("Fs", ObjV(newTaskObject(w, h, v.fs.Cwd)))
	env.Define("adam_task", ObjV(newTaskObject(w, h, "")))
	env.Define("sys_winmgr_task", ObjV(newTaskObject(w, h, "")))

	gr := NewObject()
	gr.Fields["dc"] = ObjV(v.dcAlias)
	gr.Fields["dc2"] = ObjV(v.dcAlias)
	gr.Fields["hide_col"] = IntV(0)
	gr.Fields["hide_row"] = IntV(0)
	gr.Fields["pan_text_x"] = IntV(0)
	gr.Fields["pan_text_y"] = IntV(0)
	gr.Fields["fp_draw_ms"] = IntV(0)
	gr.Fields["fp_wall_paper"] = IntV(0)
	env.Define("gr", ObjV(gr))

	msGrid := NewObject()
	msGrid.Fields["snap"] = IntV(0)
	msGrid.Fields["x"] = IntV(0)
	msGrid.Fields["y"] = IntV(0)
	env.Define("ms_grid", ObjV(msGrid))

	// text.font mirrors the system font as a mutable 64-bit glyph
	// array; writes propagate to the drawing surface.
	fontElems := make([]Value, 256)
	for i := range fontElems {
		fontElems[i] = IntV(int64(cp437.SysFontStd[i]))
	}
	textFont := &ArrayValue{Elems: fontElems, ElemBytes: 8}
	text := NewObject()
	text.Fields["font"] = ArrV(textFont)
	env.Define("text", ObjV(text))
	v.textFontArr = textFont
}

var namedKeyCodes = map[string]uint32{
	"KEY_ESCAPE": 0x0100, "KEY_ENTER": 0x0101, "KEY_BACKSPACE": 0x0102,
	"KEY_DELETE": 0x0103, "KEY_TAB": 0x0104, "KEY_HOME": 0x0105,
	"KEY_END": 0x0106, "KEY_PAGE_UP": 0x0107, "KEY_PAGE_DOWN": 0x0108,
	"KEY_INSERT": 0x0109,
	"KEY_SHIFT":  0x0110, "KEY_CONTROL": 0x0111, "KEY_ALT": 0x0112,
	"KEY_SUPER": 0x0113,
	"KEY_LEFT":  0x0200, "KEY_RIGHT": 0x0201, "KEY_UP": 0x0202,
	"KEY_DOWN": 0x0203,
	"KEY_F1":   0x0300, "KEY_F2": 0x0301, "KEY_F3": 0x0302,
	"KEY_F4": 0x0303, "KEY_F5": 0x0304, "KEY_F6": 0x0305,
	"KEY_F7": 0x0306, "KEY_F8": 0x0307, "KEY_F9": 0x0308,
	"KEY_F10": 0x0309, "KEY_F11": 0x030a, "KEY_F12": 0x030b,
}

// EnableCapture mirrors terminal output into a buffer for tests.
func (v *Vm) EnableCapture() {
	v.capture = &strings.Builder{}
}

// CapturedOutput returns the mirrored terminal output, if enabled.
func (v *Vm) CapturedOutput() string {
	if v.capture == nil {
		return ""
	}
	return v.capture.String()
}

// Surface exposes the VM's drawing surface (tests).
func (v *Vm) Surface() *rt.Surface {
	return v.surf
}

func (v *Vm) defineSub(idx int64, listName string) (string, bool) {
	list, ok := v.defineLists[listName]
	if !ok || idx < 0 || int(idx) >= len(list) {
		return "", false
	}
	return list[idx], true
}

// --- RNG (SplitMix64; Seed(0) mixes in a timer) ---

// SetSeed reseeds the RNG. Zero selects a non-deterministic stream.
func (v *Vm) SetSeed(seed uint64) {
	v.rngSeed = seed
	if seed == 0 {
		v.rngState = uint64(time.Now().UnixNano()) ^ 0x9E3779B97F4A7C15
	} else {
		v.rngState = seed
	}
}

func (v *Vm) randNext() uint64 {
	if v.rngSeed == 0 {
		v.rngState ^= uint64(time.Now().UnixNano())
	}
	v.rngState += 0x9E3779B97F4A7C15
	z := v.rngState
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (v *Vm) randI16() int16 {
	return int16(uint16(v.randNext() >> 48))
}

func (v *Vm) clearLastHostError()        { v.lastHostErr = "" }
func (v *Vm) setLastHostError(msg string) { v.lastHostErr = msg }
