package shell

import (
	"container/ring"

	"github.com/unilibs/uniwidth"

	"github.com/templelinux/temple/cp437"
	"github.com/templelinux/temple/rt"
)

// Internal display geometry: a fixed 640×480 surface carved into 8×8
// cells.
const (
	InternalW = 640
	InternalH = 480

	FontW = 8
	FontH = 8

	TermCols = InternalW / FontW
	TermRows = InternalH / FontH

	// The bottom two rows are fixed: a prompt row and a status row.
	OutputRows = TermRows - 2
	PromptRow  = TermRows - 2
	StatusRow  = TermRows - 1
)

// DefaultScrollbackLines is the default scrollback ring capacity.
const DefaultScrollbackLines = 2000

// Cell is one glyph cell: a CP437 byte plus palette indices.
type Cell struct {
	Ch byte
	Fg byte
	Bg byte
}

// RenderMode selects how the terminal paints cell backgrounds.
type RenderMode int

const (
	// RenderOpaque paints every background pixel.
	RenderOpaque RenderMode = iota
	// RenderOverWallpaper dithers black backgrounds so a wallpaper
	// bleeds through while text stays readable.
	RenderOverWallpaper
)

// Terminal is the shell's cell grid: a scrollable output region above a
// fixed prompt and status row, with a bounded scrollback ring.
type Terminal struct {
	cells      []Cell
	cursorCol  int
	cursorRow  int
	fg, bg     byte
	scrollRows int

	// scrollback is a bounded ring of scrolled-off rows; head points at
	// the next write slot.
	scrollback    *ring.Ring
	scrollbackLen int
	scrollbackMax int
	viewOffset    int
}

// NewTerminal builds a terminal with the given colors and scroll-region
// height in rows.
func NewTerminal(fg, bg byte, scrollRows int) *Terminal {
	if scrollRows < 1 {
		scrollRows = 1
	}
	if scrollRows > TermRows {
		scrollRows = TermRows
	}
	t := &Terminal{
		cells:         make([]Cell, TermCols*TermRows),
		fg:            fg,
		bg:            bg,
		scrollRows:    scrollRows,
		scrollbackMax: DefaultScrollbackLines,
	}
	t.clearAll()
	return t
}

func (t *Terminal) blank() Cell {
	return Cell{Ch: ' ', Fg: t.fg, Bg: t.bg}
}

func (t *Terminal) idx(col, row int) int {
	return row*TermCols + col
}

func (t *Terminal) clearAll() {
	blank := t.blank()
	for i := range t.cells {
		t.cells[i] = blank
	}
	t.cursorCol, t.cursorRow = 0, 0
}

// ClearOutput clears the scroll region and drops the scrollback.
func (t *Terminal) ClearOutput() {
	blank := t.blank()
	for i := 0; i < t.scrollRows*TermCols; i++ {
		t.cells[i] = blank
	}
	t.cursorCol, t.cursorRow = 0, 0
	t.scrollback = nil
	t.scrollbackLen = 0
	t.viewOffset = 0
}

// SetColors changes the current output colors.
func (t *Terminal) SetColors(fg, bg byte) {
	t.fg, t.bg = fg, bg
}

// Cursor returns the output cursor position.
func (t *Terminal) Cursor() (col, row int) {
	return t.cursorCol, t.cursorRow
}

// Cell returns the cell at (col, row); out-of-range returns a blank.
func (t *Terminal) Cell(col, row int) Cell {
	if col < 0 || col >= TermCols || row < 0 || row >= TermRows {
		return t.blank()
	}
	return t.cells[t.idx(col, row)]
}

// WriteAt writes text at a fixed cell position without moving the
// cursor, clipping at the right edge. Wide runes occupy two cells.
func (t *Terminal) WriteAt(col, row int, fg, bg byte, text string) {
	if row < 0 || row >= TermRows {
		return
	}
	c := col
	for _, ch := range text {
		w := uniwidth.RuneWidth(ch)
		if w <= 0 {
			continue
		}
		if c >= TermCols {
			break
		}
		t.cells[t.idx(c, row)] = Cell{Ch: cp437.Encode(ch), Fg: fg, Bg: bg}
		if w == 2 && c+1 < TermCols {
			t.cells[t.idx(c+1, row)] = Cell{Ch: ' ', Fg: fg, Bg: bg}
		}
		c += w
	}
}

// FillRow paints a whole row with blanks in the given colors.
func (t *Terminal) FillRow(row int, fg, bg byte) {
	if row < 0 || row >= TermRows {
		return
	}
	for col := 0; col < TermCols; col++ {
		t.cells[t.idx(col, row)] = Cell{Ch: ' ', Fg: fg, Bg: bg}
	}
}

// InvertCell swaps a cell's colors, used for selection highlight.
func (t *Terminal) InvertCell(col, row int) {
	if col < 0 || col >= TermCols || row < 0 || row >= TermRows {
		return
	}
	cell := &t.cells[t.idx(col, row)]
	cell.Fg, cell.Bg = cell.Bg, cell.Fg
}

// PutChar writes at the cursor: newline and carriage return move it,
// tab advances to the next 4-column stop, everything else prints.
func (t *Terminal) PutChar(ch rune) {
	switch ch {
	case '\n':
		t.newline()
	case '\r':
		t.cursorCol = 0
	case '\t':
		next := (t.cursorCol/4 + 1) * 4
		for t.cursorCol < next {
			t.PutChar(' ')
		}
	default:
		w := uniwidth.RuneWidth(ch)
		if w <= 0 {
			return
		}
		t.cells[t.idx(t.cursorCol, t.cursorRow)] = Cell{Ch: cp437.Encode(ch), Fg: t.fg, Bg: t.bg}
		t.cursorCol += w
		if t.cursorCol >= TermCols {
			t.newline()
		}
	}
}

// WriteString prints a string at the cursor.
func (t *Terminal) WriteString(s string) {
	for _, ch := range s {
		t.PutChar(ch)
	}
}

func (t *Terminal) newline() {
	t.cursorCol = 0
	t.cursorRow++
	if t.cursorRow >= t.scrollRows {
		t.ScrollUp(1)
		t.cursorRow = t.scrollRows - 1
	}
}

// ScrollUp moves rows out of the top of the scroll region into the
// scrollback ring.
func (t *Terminal) ScrollUp(lines int) {
	if lines > t.scrollRows {
		lines = t.scrollRows
	}
	if lines <= 0 {
		return
	}
	regionCells := t.scrollRows * TermCols
	shift := lines * TermCols
	if shift >= regionCells {
		t.ClearOutput()
		return
	}

	for row := 0; row < lines; row++ {
		start := row * TermCols
		t.pushScrollback(append([]Cell(nil), t.cells[start:start+TermCols]...))
	}
	if t.viewOffset > 0 {
		t.viewOffset += lines
		if t.viewOffset > t.scrollbackLen {
			t.viewOffset = t.scrollbackLen
		}
	}

	copy(t.cells[:regionCells-shift], t.cells[shift:regionCells])
	blank := t.blank()
	for i := regionCells - shift; i < regionCells; i++ {
		t.cells[i] = blank
	}
	t.cursorRow -= lines
	if t.cursorRow < 0 {
		t.cursorRow = 0
	}
}

func (t *Terminal) pushScrollback(row []Cell) {
	if t.scrollbackMax <= 0 {
		return
	}
	if t.scrollback == nil {
		t.scrollback = ring.New(t.scrollbackMax)
	}
	t.scrollback.Value = row
	t.scrollback = t.scrollback.Next()
	if t.scrollbackLen < t.scrollbackMax {
		t.scrollbackLen++
	}
}

// scrollbackLine returns scrollback row i, where 0 is the oldest kept
// line.
func (t *Terminal) scrollbackLine(i int) []Cell {
	if t.scrollback == nil || i < 0 || i >= t.scrollbackLen {
		return nil
	}
	// head is the next write slot; the oldest line sits len slots back.
	r := t.scrollback.Move(i - t.scrollbackLen)
	row, _ := r.Value.([]Cell)
	return row
}

// ScrollbackLen returns how many lines the ring currently holds.
func (t *Terminal) ScrollbackLen() int {
	return t.scrollbackLen
}

// SetMaxScrollback resizes the ring capacity, dropping history.
func (t *Terminal) SetMaxScrollback(max int) {
	t.scrollbackMax = max
	t.scrollback = nil
	t.scrollbackLen = 0
	t.viewOffset = 0
}

// View scrolling.

// ScrollViewUp moves the view into history.
func (t *Terminal) ScrollViewUp(lines int) {
	t.viewOffset += lines
	if t.viewOffset > t.scrollbackLen {
		t.viewOffset = t.scrollbackLen
	}
}

// ScrollViewDown moves the view toward the live output.
func (t *Terminal) ScrollViewDown(lines int) {
	t.viewOffset -= lines
	if t.viewOffset < 0 {
		t.viewOffset = 0
	}
}

// ScrollViewToTop jumps to the oldest kept line.
func (t *Terminal) ScrollViewToTop() {
	t.viewOffset = t.scrollbackLen
}

// ScrollViewToBottom returns to the live output.
func (t *Terminal) ScrollViewToBottom() {
	t.viewOffset = 0
}

// ViewOffset reports how many lines into history the view sits.
func (t *Terminal) ViewOffset() int {
	return t.viewOffset
}

// LineContent returns a row's text with trailing spaces trimmed, for
// tests and selection.
func (t *Terminal) LineContent(row int) string {
	if row < 0 || row >= TermRows {
		return ""
	}
	bs := make([]byte, TermCols)
	for col := 0; col < TermCols; col++ {
		bs[col] = t.cells[t.idx(col, row)].Ch
	}
	end := len(bs)
	for end > 0 && bs[end-1] == ' ' {
		end--
	}
	return cp437.DecodeBytes(bs[:end])
}

// Render paints the grid into the surface: the scroll region shows the
// current view (possibly into scrollback), the fixed rows always show
// live cells.
func (t *Terminal) Render(surf *rt.Surface, mode RenderMode) {
	historyTotal := t.scrollbackLen + t.scrollRows
	start := historyTotal - t.scrollRows - t.viewOffset
	if start < 0 {
		start = 0
	}

	for row := 0; row < t.scrollRows; row++ {
		lineIdx := start + row
		var src []Cell
		if lineIdx < t.scrollbackLen {
			src = t.scrollbackLine(lineIdx)
		} else if cur := lineIdx - t.scrollbackLen; cur < t.scrollRows {
			begin := cur * TermCols
			src = t.cells[begin : begin+TermCols]
		}
		for col := 0; col < TermCols; col++ {
			cell := t.blank()
			if src != nil && col < len(src) {
				cell = src[col]
			}
			drawCell8x8(surf, col, row, cell, mode)
		}
	}

	for row := t.scrollRows; row < TermRows; row++ {
		for col := 0; col < TermCols; col++ {
			drawCell8x8(surf, col, row, t.cells[t.idx(col, row)], mode)
		}
	}
}

func drawCell8x8(surf *rt.Surface, col, row int, cell Cell, mode RenderMode) {
	x := int32(col * FontW)
	y := int32(row * FontH)
	if mode == RenderOpaque || cell.Bg != 0 {
		drawGlyph(surf, x, y, cell, false)
		return
	}
	drawGlyph(surf, x, y, cell, true)
}

// drawGlyph paints one glyph. In dithered mode only every other
// background pixel is painted black, letting a wallpaper show through.
func drawGlyph(surf *rt.Surface, x, y int32, cell Cell, dither bool) {
	for row := int32(0); row < 8; row++ {
		bits := cp437.GlyphRowBits(cell.Ch, uint8(row))
		for col := int32(0); col < 8; col++ {
			px, py := x+col, y+row
			on := bits&(1<<uint(col)) != 0
			switch {
			case on:
				surf.SetPixel(px, py, cell.Fg)
			case !dither:
				surf.SetPixel(px, py, cell.Bg)
			case (px+py)&1 == 0:
				surf.SetPixel(px, py, 0)
			}
		}
	}
}
