package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/templelinux/temple/protocol"
	"github.com/templelinux/temple/rt"
)

func menuTestVm(t *testing.T) (*Vm, *stubHost) {
	t.Helper()
	return newTestVm(t, `U0 Main(){}`)
}

func TestMenuSpecParsing(t *testing.T) {
	vm, _ := menuTestVm(t)
	state, err := vm.parseMenuSpec(`File{Open(1,0,1);Exit(1,0,42);} Help{About(,'a');}`)
	require.NoError(t, err)
	require.Len(t, state.Groups, 2)
	require.Equal(t, "File", state.Groups[0].Name)
	require.Len(t, state.Groups[0].Items, 2)

	exit := state.Groups[0].Items[1]
	require.Equal(t, "File/Exit", exit.Path)
	require.Equal(t, MenuActionMsgCmd, exit.Action.Kind)
	require.Equal(t, int64(0), exit.Action.Arg1)
	require.Equal(t, int64(42), exit.Action.Arg2)

	about := state.Groups[1].Items[0]
	require.Equal(t, MenuActionKeyAscii, about.Action.Kind)
	require.Equal(t, int64('a'), about.Action.ASCII)
}

func TestMenuClickDispatchAndUnderlayRestore(t *testing.T) {
	vm, host := menuTestVm(t)

	// Paint a recognizable background.
	for i, pix := 0, vm.surf.Pixels(); i < len(pix); i++ {
		pix[i] = byte(i % 13)
	}

	require.NoError(t, vm.menuPush("File{Exit(1,0,42);}"))
	menu := vm.menuStack[0]

	// Hover over the bar opens the drop-down and captures the underlay.
	host.events = []rt.Event{{Kind: rt.EventMouseMove, X: 10, Y: 4}}
	require.NoError(t, vm.pollEvents())
	require.Equal(t, 0, menu.OpenGroup)
	require.NotNil(t, menu.Underlay)

	x0, y0, w, h, ok := menuDropdownRect(menu, 0)
	require.True(t, ok)
	before := append([]byte(nil), menu.Underlay.Pixels...)

	// Paint the drop-down so closing actually has pixels to restore.
	require.NoError(t, vm.presentWithOverlays())

	// Click the "Exit" row.
	host.events = []rt.Event{
		{Kind: rt.EventMouseMove, X: uint32(x0) + 4, Y: uint32(y0) + 4},
		{Kind: rt.EventMouseButton, Button: protocol.MouseButtonLeft, Down: true},
	}
	require.NoError(t, vm.pollEvents())

	msg, found := vm.scanMsgMask(1 << msgCmd)
	require.True(t, found)
	require.Equal(t, TempleMsg{Code: 1, Arg1: 0, Arg2: 42}, msg)

	// The drop-down closed and its pixels came back bit-for-bit.
	require.Equal(t, -1, menu.OpenGroup)
	sw, _ := vm.surf.Size()
	pix := vm.surf.Pixels()
	idx := 0
	for yy := int32(0); yy < h; yy++ {
		row := (y0 + yy) * int32(sw)
		for xx := int32(0); xx < w; xx++ {
			require.Equal(t, before[idx], pix[row+x0+xx],
				"pixel (%d,%d)", x0+xx, y0+yy)
			idx++
		}
	}
}

func TestMenuEntryFindTogglesChecked(t *testing.T) {
	vm, _ := run(t, `
MenuPush("Opts{Sound(1,0,1);}");
I64 e = MenuEntryFind(, "Opts/Sound");
e->checked = 1;
U0 Main(){}
`)
	entry := vm.menuStack[0].EntriesByPath["Opts/Sound"]
	require.NotNil(t, entry)
	require.Equal(t, int64(1), objFieldI64(entry, "checked"))
}

func TestMenuPopRestoresPreviousMenu(t *testing.T) {
	vm, _ := menuTestVm(t)
	require.NoError(t, vm.menuPush("A{X(1,0,1);}"))
	require.NoError(t, vm.menuPush("B{Y(1,0,2);}"))
	require.Len(t, vm.menuStack, 2)

	require.NoError(t, vm.menuPop())
	require.Len(t, vm.menuStack, 1)
	fs := vm.fsObject()
	cur := fs.Fields["cur_menu"]
	require.Equal(t, ValObj, cur.Kind)
	require.Equal(t, vm.menuStack[0].Root, cur.Obj)

	require.NoError(t, vm.menuPop())
	cur = vm.fsObject().Fields["cur_menu"]
	require.Equal(t, ValInt, cur.Kind)
	require.Zero(t, cur.I)
}
