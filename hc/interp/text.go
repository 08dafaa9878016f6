package interp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/templelinux/temple/hc"
)

func (v *Vm) capturePush(ch rune) {
	if v.capture != nil {
		v.capture.WriteRune(ch)
	}
}

// newline advances the text cursor, scrolling the framebuffer up one
// text row when the bottom is reached.
func (v *Vm) newline() {
	v.textX = 0
	v.textY += 8

	w, h := v.surf.Size()
	if v.textY+8 <= int32(h) {
		return
	}

	shift := int(w) * 8
	fb := v.surf.Pixels()
	if shift < len(fb) {
		copy(fb, fb[shift:])
		tail := fb[len(fb)-shift:]
		for i := range tail {
			tail[i] = v.textBg
		}
	}
	v.textY = int32(h) - 8
	if v.textY < 0 {
		v.textY = 0
	}
}

func (v *Vm) putChar(ch rune) {
	switch ch {
	case 0:
	case '\n':
		v.capturePush('\n')
		v.newline()
	case '\r':
		v.capturePush('\r')
		v.textX = 0
	case '\t':
		for i := 0; i < 4; i++ {
			v.putChar(' ')
		}
	default:
		v.capturePush(ch)
		w, _ := v.surf.Size()
		if v.textX+8 > int32(w) {
			v.newline()
		}
		v.surf.DrawChar8x8(v.textX, v.textY, v.textFg, v.textBg, ch)
		v.textX += 8
	}
}

// printStr interprets DolDoc-style $$CODE$$ markup inline; unknown
// codes pass through literally.
func (v *Vm) printStr(text string) {
	for len(text) > 0 {
		if strings.HasPrefix(text, "$$") {
			if end := strings.Index(text[2:], "$$"); end >= 0 {
				code := text[2 : 2+end]
				rest := text[2+end+2:]
				if v.tryApplyDolDocCode(code) {
					text = rest
					continue
				}
				v.putChar('$')
				v.putChar('$')
				for _, ch := range code {
					v.putChar(ch)
				}
				v.putChar('$')
				v.putChar('$')
				text = rest
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(text)
		v.putChar(r)
		text = text[size:]
	}
}

func (v *Vm) tryApplyDolDocCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	upper := strings.ToUpper(code)

	switch upper {
	case "FG":
		v.textFg = 15
		return true
	case "BG":
		v.textBg = 0
		return true
	}

	if rest, ok := strings.CutPrefix(upper, "BK,"); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64); err == nil {
			v.textBg = clampColor(n)
			return true
		}
	}

	if name, rest, ok := strings.Cut(upper, ","); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64); err == nil {
			switch strings.TrimSpace(name) {
			case "FG":
				v.textFg = clampColor(n)
				return true
			case "BG":
				v.textBg = clampColor(n)
				return true
			}
		}
	}

	if idx, ok := dolDocColorIdx(upper); ok {
		v.textFg = idx
		return true
	}
	return false
}

func clampColor(n int64) byte {
	if n < 0 {
		return 0
	}
	if n > 15 {
		return 15
	}
	return byte(n)
}

func dolDocColorIdx(name string) (byte, bool) {
	switch name {
	case "BLACK":
		return 0, true
	case "BLUE":
		return 1, true
	case "GREEN":
		return 2, true
	case "CYAN":
		return 3, true
	case "RED":
		return 4, true
	case "PURPLE", "MAGENTA":
		return 5, true
	case "BROWN":
		return 6, true
	case "LTGRAY", "LGRAY":
		return 7, true
	case "DKGRAY", "DGRAY":
		return 8, true
	case "LTBLUE":
		return 9, true
	case "LTGREEN":
		return 10, true
	case "LTCYAN":
		return 11, true
	case "LTRED":
		return 12, true
	case "LTPURPLE", "LTMAGENTA":
		return 13, true
	case "YELLOW":
		return 14, true
	case "WHITE":
		return 15, true
	}
	return 0, false
}

// printPackedChars prints the bytes of a char constant until its first
// NUL.
func (v *Vm) printPackedChars(bits uint64) {
	for i := 0; i < 8; i++ {
		b := byte(bits >> (8 * uint(i)))
		if b == 0 {
			break
		}
		v.putChar(rune(b))
	}
}

// execPrint renders a print statement: a single value prints directly,
// a leading format string formats the rest.
func (v *Vm) execPrint(parts []hc.Expr) error {
	values := make([]Value, 0, len(parts))
	for _, e := range parts {
		val, err := v.evalExpr(e)
		if err != nil {
			return err
		}
		values = append(values, val)
	}
	if len(values) == 0 {
		return nil
	}

	head := values[0]
	switch {
	case head.Kind == ValStr && len(values) == 1:
		v.printStr(head.S)
	case head.Kind == ValChar && len(values) == 1:
		v.printPackedChars(head.C)
	case head.Kind == ValInt && len(values) == 1:
		v.printStr(strconv.FormatInt(head.I, 10))
	case head.Kind == ValFloat && len(values) == 1:
		v.printStr(strconv.FormatFloat(head.F, 'g', -1, 64))
	case head.Kind == ValStr:
		args := make([]hc.FormatArg, len(values)-1)
		for i, val := range values[1:] {
			args[i] = val
		}
		rendered, err := hc.Format(head.S, args, v.readCStr, v.defineSub)
		if err != nil {
			return err
		}
		v.printStr(rendered)
	default:
		return fmt.Errorf("print statement expects a leading string/char literal, got %s", head.kindName())
	}

	return v.presentWithOverlays()
}
