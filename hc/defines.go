package hc

// BuiltinDefines returns the macro table seeded with the TempleOS
// constants vendored sources expect before their own headers load.
// __DIR__ and __FILE__ are lexer built-ins instead, so they can expand
// to per-file values.
func BuiltinDefines() map[string]string {
	out := map[string]string{
		"TRUE":  "1",
		"FALSE": "0",
		"ON":    "1",
		"OFF":   "0",
		"NULL":  "0",

		// Char constants (from ::/Kernel/KernelA.HH).
		"CH_CTRLA": "0x01", "CH_CTRLB": "0x02", "CH_CTRLC": "0x03",
		"CH_CTRLD": "0x04", "CH_CTRLE": "0x05", "CH_CTRLF": "0x06",
		"CH_CTRLG": "0x07", "CH_CTRLH": "0x08", "CH_CTRLI": "0x09",
		"CH_CTRLJ": "0x0A", "CH_CTRLK": "0x0B", "CH_CTRLL": "0x0C",
		"CH_CTRLM": "0x0D", "CH_CTRLN": "0x0E", "CH_CTRLO": "0x0F",
		"CH_CTRLP": "0x10", "CH_CTRLQ": "0x11", "CH_CTRLR": "0x12",
		"CH_CTRLS": "0x13", "CH_CTRLT": "0x14", "CH_CTRLU": "0x15",
		"CH_CTRLV": "0x16", "CH_CTRLW": "0x17", "CH_CTRLX": "0x18",
		"CH_CTRLY": "0x19", "CH_CTRLZ": "0x1A",
		"CH_BACKSPACE": "0x08", "CH_ESC": "0x1B", "CH_SHIFT_ESC": "0x1C",
		"CH_SHIFT_SPACE": "0x1F", "CH_SPACE": "0x20",

		// Messages.
		"MSG_NULL": "0", "MSG_CMD": "1", "MSG_KEY_DOWN": "2",
		"MSG_KEY_UP": "3", "MSG_MS_MOVE": "4", "MSG_MS_L_DOWN": "5",
		"MSG_MS_L_UP": "6", "MSG_MS_R_DOWN": "9", "MSG_MS_R_UP": "10",

		// Window inhibit flags (subset).
		"WIF_SELF_MS_L": "0x0008", "WIF_SELF_MS_R": "0x0020",
		"WIF_SELF_KEY_DESC": "0x1000",
		"WIF_FOCUS_TASK_MS_L_D": "0x00100000",
		"WIF_FOCUS_TASK_MS_R_D": "0x00400000",
		"WIG_DBL_CLICK": "0x00500000", "WIG_USER_TASK_DFT": "0x1000",

		// Device context flags (subset).
		"DCF_TRANSFORMATION": "0x100", "DCF_SYMMETRY": "0x200",
		"DCF_JUST_MIRROR": "0x400",

		// Scan codes (subset).
		"SC_ESC": "0x01", "SC_BACKSPACE": "0x0E", "SC_TAB": "0x0F",
		"SC_ENTER": "0x1C", "SC_SHIFT": "0x2A", "SC_CTRL": "0x1D",
		"SC_ALT": "0x38", "SC_CAPS": "0x3A", "SC_NUM": "0x45",
		"SC_SCROLL": "0x46", "SC_CURSOR_UP": "0x48", "SC_CURSOR_DOWN": "0x50",
		"SC_CURSOR_LEFT": "0x4B", "SC_CURSOR_RIGHT": "0x4D",
		"SC_PAGE_UP": "0x49", "SC_PAGE_DOWN": "0x51",
		"SC_HOME": "0x47", "SC_END": "0x4F", "SC_INS": "0x52",
		"SC_DELETE": "0x53",
		"SC_F1":     "0x3B", "SC_F2": "0x3C", "SC_F3": "0x3D", "SC_F4": "0x3E",
		"SC_F5": "0x3F", "SC_F6": "0x40", "SC_F7": "0x41", "SC_F8": "0x42",
		"SC_F9": "0x43", "SC_F10": "0x44", "SC_F11": "0x57", "SC_F12": "0x58",

		// Scan code flags (pre-expanded numeric values).
		"SCF_KEY_UP": "0x100", "SCF_SHIFT": "0x200", "SCF_CTRL": "0x400",
		"SCF_ALT": "0x800", "SCF_DELETE": "0x40000", "SCF_INS": "0x80000",

		// File utils (subset).
		"FUF_JUST_DIRS": "0x0000400",

		// GetStr flags (subset).
		"GSF_WITH_NEW_LINE": "2",

		// Control flags/types.
		"CTRLT_GENERIC": "0", "CTRLF_SHOW": "1", "CTRLF_BORDER": "2",
		"CTRLF_CAPTURE_LEFT_MS": "4", "CTRLF_CAPTURE_RIGHT_MS": "8",
		"CTRLF_CLICKED": "16",

		// Graphics.
		"GR_WIDTH": "SCR_W", "GR_HEIGHT": "SCR_H",
		"GR_Z_ALL": "1073741823",
		"COLORS_NUM": "16", "COLOR_INVALID": "16", "COLOR_MONO": "0xFF",
		"FONT_WIDTH": "8", "FONT_HEIGHT": "8",

		// Date/time.
		"CDATE_FREQ": "49710",
	}
	return out
}
