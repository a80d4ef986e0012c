package app

import (
	"log/slog"
	"sync"

	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/lifecycle"
	"github.com/1broseidon/termtab/internal/tab"
)

// HeadlessHost is a window without a display. Tabs are only reachable over
// IPC, so it is used with the shell backend.
type HeadlessHost struct {
	mu      sync.Mutex
	id      int
	next    uint32
	tabs    []tab.ContainerRef
	current int
	logger  *slog.Logger
}

// Headless returns a HostFactory for windows without a display.
func Headless(logger *slog.Logger) HostFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(id int, cfg *config.Config, events lifecycle.Events) (lifecycle.Host, error) {
		return &HeadlessHost{id: id, current: -1, logger: logger.With("window", id)}, nil
	}
}

func (h *HeadlessHost) CreateTabContainer(label string) (tab.ContainerRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	// Synthetic ids; shell tabs never look at them.
	ref := tab.ContainerRef{Window: uint32(h.id)<<16 | h.next}
	h.tabs = append(h.tabs, ref)
	return ref, nil
}

func (h *HeadlessHost) DestroyTabContainer(ref tab.ContainerRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.tabs {
		if r != ref {
			continue
		}
		h.tabs = append(h.tabs[:i], h.tabs[i+1:]...)
		if h.current >= len(h.tabs) || h.current > i {
			h.current--
		}
		return
	}
}

func (h *HeadlessHost) SetTabLabel(ref tab.ContainerRef, label string) {}

func (h *HeadlessHost) CurrentTabIndex() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current < 0 || h.current >= len(h.tabs) {
		return -1, false
	}
	return h.current, true
}

func (h *HeadlessHost) SelectTab(index int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index >= 0 && index < len(h.tabs) {
		h.current = index
	}
}

func (h *HeadlessHost) MoveTab(from, to int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if from < 0 || from >= len(h.tabs) || to < 0 || to >= len(h.tabs) {
		return
	}
	ref := h.tabs[from]
	h.tabs = append(h.tabs[:from], h.tabs[from+1:]...)
	h.tabs = append(h.tabs[:to], append([]tab.ContainerRef{ref}, h.tabs[to:]...)...)
	switch {
	case h.current == from:
		h.current = to
	case from < h.current && to >= h.current:
		h.current--
	case from > h.current && to <= h.current:
		h.current++
	}
}

func (h *HeadlessHost) Close() {
	h.logger.Debug("headless window closed")
}
