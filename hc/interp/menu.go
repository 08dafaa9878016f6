package interp

import (
	"fmt"
	"strings"

	"github.com/templelinux/temple/hc"
)

// MenuActionKind discriminates MenuAction.
type MenuActionKind int

const (
	MenuActionNone MenuActionKind = iota
	MenuActionMsgCmd
	MenuActionKeyAscii
	MenuActionKeyScan
)

// MenuAction is what clicking a menu item dispatches into the message
// queue.
type MenuAction struct {
	Kind  MenuActionKind
	Arg1  int64
	Arg2  int64
	ASCII int64
}

// MenuItem is one drop-down entry.
type MenuItem struct {
	Name   string
	Path   string
	Entry  *Object
	Action MenuAction
}

// MenuGroup is one bar group with its items.
type MenuGroup struct {
	Name  string
	Items []MenuItem
}

// MenuUnderlay is the saved pixel rectangle behind an open drop-down.
type MenuUnderlay struct {
	X, Y, W, H int32
	Pixels     []byte
}

// MenuState is one installed menu: groups, the entry objects reachable
// through MenuEntryFind, and the open drop-down state.
type MenuState struct {
	Root          *Object
	Groups        []MenuGroup
	EntriesByPath map[string]*Object
	OpenGroup     int // -1 when closed
	HoverItem     int // -1 when none
	Underlay      *MenuUnderlay
}

// evalIntExprStr evaluates a source-level integer expression (menu spec
// argument) against the current environment and macros.
func (v *Vm) evalIntExprStr(src string) (int64, error) {
	lex := hc.NewLexer("<expr>", []byte(src), 1, v.macros)
	toks, err := lex.Tokens()
	if err != nil {
		return 0, err
	}
	e, err := hc.ParseExprOnly(toks)
	if err != nil {
		return 0, err
	}
	val, err := v.evalExpr(e)
	if err != nil {
		return 0, err
	}
	return val.AsI64()
}

// parseMenuSpec parses the `Group { Item(args); … }` menu DSL.
func (v *Vm) parseMenuSpec(spec string) (*MenuState, error) {
	bs := []byte(spec)
	idx := 0

	skipWS := func() {
		for idx < len(bs) && (bs[idx] == ' ' || bs[idx] == '\t' || bs[idx] == '\n' || bs[idx] == '\r') {
			idx++
		}
	}
	parseIdent := func() (string, error) {
		skipWS()
		start := idx
		for idx < len(bs) && (isIdentByte(bs[idx])) {
			idx++
		}
		if idx == start {
			return "", fmt.Errorf("expected identifier in menu spec")
		}
		return string(bs[start:idx]), nil
	}

	state := &MenuState{
		Root:          NewObject(),
		EntriesByPath: map[string]*Object{},
		OpenGroup:     -1,
		HoverItem:     -1,
	}

	for {
		skipWS()
		if idx >= len(bs) {
			break
		}
		groupName, err := parseIdent()
		if err != nil {
			return nil, err
		}
		skipWS()
		if idx >= len(bs) || bs[idx] != '{' {
			return nil, fmt.Errorf("expected '{' after menu group %q", groupName)
		}
		idx++

		var items []MenuItem
		for {
			skipWS()
			if idx >= len(bs) {
				return nil, fmt.Errorf("unterminated menu group %q", groupName)
			}
			if bs[idx] == '}' {
				idx++
				break
			}

			itemName, err := parseIdent()
			if err != nil {
				return nil, err
			}
			skipWS()
			if idx >= len(bs) || bs[idx] != '(' {
				return nil, fmt.Errorf("expected '(' after menu item %q", itemName)
			}
			idx++

			argsStart := idx
			depth := 1
			inSingle, inDouble, escaped := false, false, false
			for idx < len(bs) {
				b := bs[idx]
				if escaped {
					escaped = false
					idx++
					continue
				}
				switch {
				case b == '\\':
					escaped = true
				case !inDouble && b == '\'':
					inSingle = !inSingle
				case !inSingle && b == '"':
					inDouble = !inDouble
				case !inSingle && !inDouble && b == '(':
					depth++
				case !inSingle && !inDouble && b == ')':
					depth--
				}
				if depth == 0 {
					break
				}
				idx++
			}
			if idx >= len(bs) || bs[idx] != ')' {
				return nil, fmt.Errorf("unterminated args for menu item %q", itemName)
			}
			argsSrc := spec[argsStart:idx]
			idx++
			skipWS()
			if idx < len(bs) && bs[idx] == ';' {
				idx++
			}

			action, err := v.menuActionFromArgs(splitMenuArgs(argsSrc))
			if err != nil {
				return nil, err
			}

			entry := NewObject()
			entry.Fields["checked"] = IntV(0)
			path := groupName + "/" + itemName
			state.EntriesByPath[path] = entry
			items = append(items, MenuItem{
				Name: itemName, Path: path, Entry: entry, Action: action,
			})
		}

		state.Groups = append(state.Groups, MenuGroup{Name: groupName, Items: items})
	}

	return state, nil
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// splitMenuArgs splits on top-level commas, respecting quotes.
func splitMenuArgs(src string) []string {
	var out []string
	var cur strings.Builder
	inSingle, inDouble, escaped := false, false, false
	for _, ch := range src {
		if escaped {
			cur.WriteRune(ch)
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			cur.WriteRune(ch)
			escaped = true
		case !inDouble && ch == '\'':
			inSingle = !inSingle
			cur.WriteRune(ch)
		case !inSingle && ch == '"':
			inDouble = !inDouble
			cur.WriteRune(ch)
		case !inSingle && !inDouble && ch == ',':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

// menuActionFromArgs decodes the TempleOS menu entry argument triple
// (msg_code, arg1/ascii, arg2/scan).
func (v *Vm) menuActionFromArgs(args []string) (MenuAction, error) {
	get := func(i int) string {
		if i < len(args) {
			return strings.TrimSpace(args[i])
		}
		return ""
	}
	a0, a1, a2 := get(0), get(1), get(2)

	if a0 != "" {
		code, err := v.evalIntExprStr(a0)
		if err != nil {
			return MenuAction{}, err
		}
		if code == msgCmd {
			var arg1, arg2 int64
			if a1 != "" {
				if arg1, err = v.evalIntExprStr(a1); err != nil {
					return MenuAction{}, err
				}
			}
			if a2 != "" {
				if arg2, err = v.evalIntExprStr(a2); err != nil {
					return MenuAction{}, err
				}
			}
			return MenuAction{Kind: MenuActionMsgCmd, Arg1: arg1, Arg2: arg2}, nil
		}
	}

	if a0 == "" && a1 == "" && a2 != "" {
		arg2, err := v.evalIntExprStr(a2)
		if err != nil {
			return MenuAction{}, err
		}
		return MenuAction{Kind: MenuActionKeyScan, Arg2: arg2}, nil
	}
	if a0 == "" && a1 != "" {
		ascii, err := v.evalIntExprStr(a1)
		if err != nil {
			return MenuAction{}, err
		}
		return MenuAction{Kind: MenuActionKeyAscii, ASCII: ascii}, nil
	}
	return MenuAction{Kind: MenuActionNone}, nil
}

// MenuPush parses a spec and installs it on the menu stack.
func (v *Vm) menuPush(spec string) error {
	state, err := v.parseMenuSpec(spec)
	if err != nil {
		return err
	}
	v.menuStack = append(v.menuStack, state)
	return v.setFsCurMenu(state.Root)
}

// MenuPop restores any open drop-down underlay and removes the top
// menu.
func (v *Vm) menuPop() error {
	if len(v.menuStack) > 0 {
		v.menuSetOpenGroup(v.menuStack[len(v.menuStack)-1], -1)
		v.menuStack = v.menuStack[:len(v.menuStack)-1]
	}
	if len(v.menuStack) > 0 {
		return v.setFsCurMenu(v.menuStack[len(v.menuStack)-1].Root)
	}
	return v.setFsCurMenu(nil)
}

func (v *Vm) setFsCurMenu(root *Object) error {
	fs := v.fsObject()
	if fs == nil {
		return fmt.Errorf("missing Fs global")
	}
	if root == nil {
		fs.Fields["cur_menu"] = IntV(0)
	} else {
		fs.Fields["cur_menu"] = ObjV(root)
	}
	return nil
}

func menuItemLabel(item *MenuItem) string {
	if objFieldI64(item.Entry, "checked") != 0 {
		return "[x] " + item.Name
	}
	return "    " + item.Name
}

// menuBarHit returns the group index under bar x, or -1.
func menuBarHit(menu *MenuState, x int32) int {
	if x < 0 {
		return -1
	}
	curX := int32(0)
	for i := range menu.Groups {
		w := int32(len(menu.Groups[i].Name)+2) * 8
		if x >= curX && x < curX+w {
			return i
		}
		curX += w
	}
	return -1
}

// menuDropdownRect returns the pixel rectangle of a group's drop-down.
func menuDropdownRect(menu *MenuState, groupIdx int) (x, y, w, h int32, ok bool) {
	if groupIdx < 0 || groupIdx >= len(menu.Groups) {
		return 0, 0, 0, 0, false
	}
	barX := int32(0)
	for i := 0; i < groupIdx; i++ {
		barX += int32(len(menu.Groups[i].Name)+2) * 8
	}
	group := &menu.Groups[groupIdx]
	maxChars := 1
	for i := range group.Items {
		if n := len(menuItemLabel(&group.Items[i])); n > maxChars {
			maxChars = n
		}
	}
	return barX, 8, int32(maxChars+1) * 8, int32(len(group.Items)) * 8, true
}

func menuDropdownHit(menu *MenuState, groupIdx int, x, y int32) int {
	x0, y0, w, h, ok := menuDropdownRect(menu, groupIdx)
	if !ok || x < x0 || y < y0 || x >= x0+w || y >= y0+h {
		return -1
	}
	idx := int((y - y0) / 8)
	if idx >= len(menu.Groups[groupIdx].Items) {
		return -1
	}
	return idx
}

// menuCaptureUnderlay snapshots the pixels behind a rectangle.
func (v *Vm) menuCaptureUnderlay(x, y, w, h int32) *MenuUnderlay {
	if w <= 0 || h <= 0 {
		return nil
	}
	sw32, sh32 := v.surf.Size()
	sw, sh := int32(sw32), int32(sh32)
	if x >= sw || y >= sh || x+w <= 0 || y+h <= 0 {
		return nil
	}
	x0, y0 := maxI32(x, 0), maxI32(y, 0)
	x1, y1 := minI32(x+w, sw), minI32(y+h, sh)
	w, h = x1-x0, y1-y0

	fb := v.surf.Pixels()
	pixels := make([]byte, 0, w*h)
	for yy := int32(0); yy < h; yy++ {
		row := (y0 + yy) * sw
		pixels = append(pixels, fb[row+x0:row+x0+w]...)
	}
	return &MenuUnderlay{X: x0, Y: y0, W: w, H: h, Pixels: pixels}
}

// menuRestoreUnderlay writes a saved rectangle back bit-for-bit.
func (v *Vm) menuRestoreUnderlay(u *MenuUnderlay) {
	sw32, _ := v.surf.Size()
	sw := int32(sw32)
	fb := v.surf.Pixels()
	idx := 0
	for yy := int32(0); yy < u.H; yy++ {
		row := (u.Y + yy) * sw
		if idx >= len(u.Pixels) {
			break
		}
		take := int(u.W)
		if rem := len(u.Pixels) - idx; take > rem {
			take = rem
		}
		copy(fb[row+u.X:row+u.X+int32(take)], u.Pixels[idx:idx+take])
		idx += take
	}
}

func (v *Vm) menuSetOpenGroup(menu *MenuState, group int) {
	if menu.OpenGroup == group {
		return
	}
	if menu.Underlay != nil {
		v.menuRestoreUnderlay(menu.Underlay)
		menu.Underlay = nil
	}
	menu.OpenGroup = group
	menu.HoverItem = -1
	if group >= 0 {
		if x, y, w, h, ok := menuDropdownRect(menu, group); ok {
			menu.Underlay = v.menuCaptureUnderlay(x, y, w, h)
		}
	}
}

func (v *Vm) menuUpdateHover(x, y int32) {
	if len(v.menuStack) == 0 {
		return
	}
	menu := v.menuStack[len(v.menuStack)-1]

	desired := -1
	if y < 8 {
		desired = menuBarHit(menu, x)
	} else if menu.OpenGroup >= 0 && menuDropdownHit(menu, menu.OpenGroup, x, y) >= 0 {
		desired = menu.OpenGroup
	}

	if desired != menu.OpenGroup {
		v.menuSetOpenGroup(menu, desired)
	}
	if menu.OpenGroup >= 0 {
		menu.HoverItem = menuDropdownHit(menu, menu.OpenGroup, x, y)
	} else {
		menu.HoverItem = -1
	}
}

func (v *Vm) menuHandleLeftClick(x, y int32) {
	v.menuUpdateHover(x, y)
	if len(v.menuStack) == 0 {
		return
	}
	menu := v.menuStack[len(v.menuStack)-1]
	if menu.OpenGroup < 0 || menu.HoverItem < 0 {
		return
	}

	item := &menu.Groups[menu.OpenGroup].Items[menu.HoverItem]
	switch item.Action.Kind {
	case MenuActionMsgCmd:
		v.msgQueue = append(v.msgQueue, TempleMsg{
			Code: msgCmd, Arg1: item.Action.Arg1, Arg2: item.Action.Arg2,
		})
	case MenuActionKeyAscii:
		v.msgQueue = append(v.msgQueue, TempleMsg{Code: msgKeyDown, Arg1: item.Action.ASCII})
	case MenuActionKeyScan:
		v.msgQueue = append(v.msgQueue, TempleMsg{Code: msgKeyDown, Arg2: item.Action.Arg2})
	}

	v.menuSetOpenGroup(menu, -1)
}

// renderMenuOverlay draws the bar along the top of the screen and the
// open drop-down, with TempleOS bar colors.
func (v *Vm) renderMenuOverlay() {
	if len(v.menuStack) == 0 {
		return
	}

	mx64, _ := v.msPos.Fields["x"].AsI64()
	my64, _ := v.msPos.Fields["y"].AsI64()
	mx, my := int32(mx64), int32(my64)
	v.menuUpdateHover(mx, my)

	menu := v.menuStack[len(v.menuStack)-1]
	w32, _ := v.surf.Size()
	w := int32(w32)

	const (
		barBg    = 1  // BLUE
		barFg    = 15 // WHITE
		activeBg = 3  // CYAN
		activeFg = 0  // BLACK
	)

	v.surf.FillRect(0, 0, w, 8, barBg)
	curX := int32(0)
	for i := range menu.Groups {
		label := " " + menu.Groups[i].Name + " "
		fg, bg := byte(barFg), byte(barBg)
		if menu.OpenGroup == i {
			fg, bg = activeFg, activeBg
		}
		v.surf.DrawText(curX, 0, fg, bg, label)
		curX += int32(len(label)) * 8
	}

	if menu.OpenGroup >= 0 {
		if x0, y0, ww, hh, ok := menuDropdownRect(menu, menu.OpenGroup); ok {
			const (
				ddBg = 7 // LGRAY
				ddFg = 0 // BLACK
				hlBg = 9 // LTBLUE
				hlFg = 0
			)
			v.surf.FillRect(x0, y0, ww, hh, ddBg)
			group := &menu.Groups[menu.OpenGroup]
			for i := range group.Items {
				rowY := y0 + int32(i)*8
				inDrop := mx >= x0 && mx < x0+ww && my >= y0 && my < y0+hh
				fg, bg := byte(ddFg), byte(ddBg)
				if menu.HoverItem == i && inDrop {
					fg, bg = hlFg, hlBg
				}
				v.surf.DrawText(x0, rowY, fg, bg, menuItemLabel(&group.Items[i]))
			}
		}
	}
}

// menuEntryFind resolves "Group/Item" to its entry object for the menu
// whose root matches.
func (v *Vm) menuEntryFind(root *Object, path string) *Object {
	for i := len(v.menuStack) - 1; i >= 0; i-- {
		if v.menuStack[i].Root == root {
			return v.menuStack[i].EntriesByPath[path]
		}
	}
	return nil
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
