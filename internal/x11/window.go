package x11

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/lifecycle"
	"github.com/1broseidon/termtab/internal/tab"
)

const (
	stripHeight = 20
	// glyph width of the "fixed" core font
	charWidth = 6
	labelFont = "fixed"

	colorStrip    = 0x303030
	colorSelected = 0x5f87af
	colorText     = 0xeeeeee
)

// Window is a top-level window with a tab bar and one child container per
// tab. xterm embeds into the container with -into. Only the selected
// container is mapped.
type Window struct {
	xu     *xgbutil.XUtil
	top    *xwindow.Window
	bar    *xwindow.Window
	gc     xproto.Gcontext
	font   xproto.Font
	events lifecycle.Events
	logger *slog.Logger

	mu         sync.Mutex
	strip      *strip
	containers map[tab.ContainerRef]*xwindow.Window
	width      int
	height     int
	closed     bool
}

// NewWindow creates and maps a window configured by cfg. events receives
// the close button, key bindings and tab bar clicks.
func NewWindow(conn *Connection, cfg *config.Config, events lifecycle.Events, logger *slog.Logger) (*Window, error) {
	if logger == nil {
		logger = slog.Default()
	}
	xu := conn.XUtil
	screen := xu.Screen()

	top, err := xwindow.Generate(xu)
	if err != nil {
		return nil, fmt.Errorf("generate window id: %w", err)
	}
	w, h := cfg.Window.Width, cfg.Window.Height
	if err := top.CreateChecked(conn.Root, 0, 0, w, h,
		xproto.CwBackPixel|xproto.CwEventMask,
		screen.BlackPixel,
		xproto.EventMaskStructureNotify|xproto.EventMaskKeyPress); err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	bar, err := xwindow.Generate(xu)
	if err != nil {
		top.Destroy()
		return nil, fmt.Errorf("generate tab bar id: %w", err)
	}
	if err := bar.CreateChecked(top.Id, 0, 0, w, stripHeight,
		xproto.CwBackPixel|xproto.CwEventMask,
		colorStrip,
		xproto.EventMaskExposure|xproto.EventMaskButtonPress); err != nil {
		top.Destroy()
		return nil, fmt.Errorf("create tab bar: %w", err)
	}

	win := &Window{
		xu:         xu,
		top:        top,
		bar:        bar,
		events:     events,
		logger:     logger.With("xid", uint32(top.Id)),
		strip:      newStrip(),
		containers: make(map[tab.ContainerRef]*xwindow.Window),
		width:      w,
		height:     h,
	}
	if err := win.setupGC(); err != nil {
		win.logger.Warn("tab labels unavailable", "error", err)
	}
	win.setProperties(cfg)
	win.connectEvents()
	if err := bindKeys(xu, top.Id, bindings(cfg.Keys, events, win.ToggleFullscreen)); err != nil {
		win.logger.Warn("key bindings incomplete", "error", err)
	}

	bar.Map()
	top.Map()
	return win, nil
}

// Factory returns a host factory that opens windows on conn.
func Factory(conn *Connection, logger *slog.Logger) func(id int, cfg *config.Config, events lifecycle.Events) (lifecycle.Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(id int, cfg *config.Config, events lifecycle.Events) (lifecycle.Host, error) {
		return NewWindow(conn, cfg, events, logger.With("window", id))
	}
}

func (w *Window) setupGC() error {
	conn := w.xu.Conn()
	font, err := xproto.NewFontId(conn)
	if err != nil {
		return err
	}
	if err := xproto.OpenFontChecked(conn, font, uint16(len(labelFont)), labelFont).Check(); err != nil {
		return err
	}
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		xproto.CloseFont(conn, font)
		return err
	}
	xproto.CreateGC(conn, gc, xproto.Drawable(w.bar.Id),
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont,
		[]uint32{colorText, colorStrip, uint32(font)})
	w.font, w.gc = font, gc
	return nil
}

func (w *Window) setProperties(cfg *config.Config) {
	title := cfg.Window.Title
	if err := icccm.WmNameSet(w.xu, w.top.Id, title); err != nil {
		w.logger.Debug("set WM_NAME", "error", err)
	}
	ewmh.WmNameSet(w.xu, w.top.Id, title)
	ewmh.WmPidSet(w.xu, w.top.Id, uint(os.Getpid()))
	icccm.WmClassSet(w.xu, w.top.Id, &icccm.WmClass{Instance: "termtab", Class: cfg.XTerm.Class})
	if err := icccm.WmProtocolsSet(w.xu, w.top.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		w.logger.Warn("WM_DELETE_WINDOW unavailable, close button will kill the connection", "error", err)
	}
}

func (w *Window) connectEvents() {
	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		if icccm.IsDeleteProtocol(xu, ev) && w.events.CloseWindow != nil {
			w.events.CloseWindow()
		}
	}).Connect(w.xu, w.top.Id)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		w.resize(int(ev.Width), int(ev.Height))
	}).Connect(w.xu, w.top.Id)

	xevent.ExposeFun(func(xu *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count == 0 {
			w.mu.Lock()
			w.drawLocked()
			w.mu.Unlock()
		}
	}).Connect(w.xu, w.bar.Id)

	xevent.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		if ev.Detail != xproto.ButtonIndex1 {
			return
		}
		w.mu.Lock()
		i := cellAt(int(ev.EventX), w.strip.len(), w.width)
		w.mu.Unlock()
		if i >= 0 && w.events.SelectTab != nil {
			w.events.SelectTab(i)
		}
	}).Connect(w.xu, w.bar.Id)
}

func (w *Window) resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || (width == w.width && height == w.height) {
		return
	}
	w.width, w.height = width, height
	w.bar.Resize(width, stripHeight)
	for _, c := range w.containers {
		c.MoveResize(0, stripHeight, width, w.bodyHeight())
	}
	w.drawLocked()
}

func (w *Window) bodyHeight() int {
	if h := w.height - stripHeight; h > 1 {
		return h
	}
	return 1
}

// CreateTabContainer creates an unmapped child window for a new tab.
func (w *Window) CreateTabContainer(label string) (tab.ContainerRef, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return tab.ContainerRef{}, fmt.Errorf("window closed")
	}

	c, err := xwindow.Generate(w.xu)
	if err != nil {
		return tab.ContainerRef{}, fmt.Errorf("generate container id: %w", err)
	}
	if err := c.CreateChecked(w.top.Id, 0, stripHeight, w.width, w.bodyHeight(),
		xproto.CwBackPixel|xproto.CwEventMask,
		w.xu.Screen().BlackPixel,
		xproto.EventMaskSubstructureNotify); err != nil {
		return tab.ContainerRef{}, fmt.Errorf("create container: %w", err)
	}

	ref := tab.ContainerRef{Window: uint32(c.Id)}
	w.containers[ref] = c
	w.strip.add(ref, label)
	w.drawLocked()
	return ref, nil
}

// DestroyTabContainer destroys a tab's container and shows whichever tab
// takes its place.
func (w *Window) DestroyTabContainer(ref tab.ContainerRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.containers[ref]
	if !ok {
		return
	}
	delete(w.containers, ref)
	wasSelected := false
	if sel, ok := w.strip.selected(); ok && sel == ref {
		wasSelected = true
	}
	w.strip.remove(ref)
	c.Destroy()
	if wasSelected {
		w.showSelectedLocked()
	}
	w.drawLocked()
}

func (w *Window) SetTabLabel(ref tab.ContainerRef, label string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.strip.setLabel(ref, label) {
		w.drawLocked()
	}
}

func (w *Window) CurrentTabIndex() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.strip.selected(); !ok {
		return -1, false
	}
	return w.strip.current, true
}

// SelectTab maps the container at index and unmaps the previous one.
func (w *Window) SelectTab(index int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, hadPrev := w.strip.selected()
	if !w.strip.selectIndex(index) {
		return
	}
	if cur, _ := w.strip.selected(); hadPrev && cur != prev {
		if c, ok := w.containers[prev]; ok {
			c.Unmap()
		}
	}
	w.showSelectedLocked()
	w.drawLocked()
}

func (w *Window) MoveTab(from, to int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.strip.move(from, to) {
		w.drawLocked()
	}
}

// Close destroys the window and every remaining container.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true

	keybind.Detach(w.xu, w.top.Id)
	xevent.Detach(w.xu, w.top.Id)
	xevent.Detach(w.xu, w.bar.Id)
	if w.gc != 0 {
		xproto.FreeGC(w.xu.Conn(), w.gc)
		xproto.CloseFont(w.xu.Conn(), w.font)
	}
	w.top.Destroy()
	w.logger.Debug("window destroyed")
}

// ToggleFullscreen asks the window manager to toggle fullscreen.
func (w *Window) ToggleFullscreen() {
	if err := ewmh.WmStateReq(w.xu, w.top.Id, ewmh.StateToggle, "_NET_WM_STATE_FULLSCREEN"); err != nil {
		w.logger.Warn("fullscreen request failed", "error", err)
	}
}

func (w *Window) showSelectedLocked() {
	ref, ok := w.strip.selected()
	if !ok {
		return
	}
	c, ok := w.containers[ref]
	if !ok {
		return
	}
	c.Map()
	c.Focus()
}

// drawLocked paints the tab bar.
func (w *Window) drawLocked() {
	if w.closed || w.gc == 0 {
		return
	}
	conn := w.xu.Conn()
	xproto.ClearArea(conn, false, w.bar.Id, 0, 0, 0, 0)

	n := w.strip.len()
	for i := 0; i < n; i++ {
		x, cw := cell(i, n, w.width)
		bg := uint32(colorStrip)
		if i == w.strip.current {
			bg = colorSelected
			xproto.ChangeGC(conn, w.gc, xproto.GcForeground, []uint32{bg})
			xproto.PolyFillRectangle(conn, xproto.Drawable(w.bar.Id), w.gc,
				[]xproto.Rectangle{{X: int16(x), Y: 0, Width: uint16(cw), Height: stripHeight}})
		}
		xproto.ChangeGC(conn, w.gc, xproto.GcForeground|xproto.GcBackground, []uint32{colorText, bg})
		label := fitLabel(w.strip.labels[i], (cw-8)/charWidth)
		if label == "" {
			continue
		}
		xproto.ImageText8(conn, byte(len(label)), xproto.Drawable(w.bar.Id), w.gc,
			int16(x+4), stripHeight-6, label)
	}
}
