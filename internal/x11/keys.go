package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/lifecycle"
)

type binding struct {
	name string
	keys string
	fn   func()
}

// bindings pairs each configured key sequence with its action. Empty
// sequences and missing actions are skipped.
func bindings(keys config.KeysConfig, ev lifecycle.Events, fullscreen func()) []binding {
	all := []binding{
		{"new_tab", keys.NewTab, ev.NewTab},
		{"close_tab", keys.CloseTab, ev.CloseTab},
		{"close_all", keys.CloseAll, ev.CloseWindow},
		{"next_tab", keys.NextTab, ev.NextTab},
		{"prev_tab", keys.PrevTab, ev.PrevTab},
		{"rename_tab", keys.RenameTab, ev.RenameTab},
		{"new_window", keys.NewWindow, ev.NewWindow},
		{"fullscreen", keys.Fullscreen, fullscreen},
	}
	out := all[:0]
	for _, b := range all {
		if strings.TrimSpace(b.keys) == "" || b.fn == nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// bindKeys grabs every binding on win. A sequence that cannot be grabbed is
// reported but does not stop the rest.
func bindKeys(xu *xgbutil.XUtil, win xproto.Window, bs []binding) error {
	var failed []string
	for _, b := range bs {
		fn := b.fn
		err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
			fn()
		}).Connect(xu, win, b.keys, true)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s (%s): %v", b.name, b.keys, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to bind keys: %s", strings.Join(failed, "; "))
	}
	return nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every combination of the given modifier masks,
// including none.
func ignoreMasks(base []uint16) []uint16 {
	out := []uint16{0}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
