// Package lifecycletest provides in-memory Host and Dialog implementations.
package lifecycletest

import (
	"context"
	"errors"
	"sync"

	"github.com/1broseidon/termtab/internal/tab"
)

// Host mirrors a tab strip in memory.
type Host struct {
	mu        sync.Mutex
	next      uint32
	tabs      []tab.ContainerRef
	labels    map[tab.ContainerRef]string
	current   int
	destroyed []tab.ContainerRef
	closes    int

	// FailCreate makes CreateTabContainer fail.
	FailCreate bool
}

// NewHost returns an empty host. Container ids start at 0x400001.
func NewHost() *Host {
	return &Host{
		next:    0x400000,
		labels:  make(map[tab.ContainerRef]string),
		current: -1,
	}
}

func (h *Host) CreateTabContainer(label string) (tab.ContainerRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailCreate {
		return tab.ContainerRef{}, errors.New("cannot create container")
	}
	h.next++
	ref := tab.ContainerRef{Window: h.next}
	h.tabs = append(h.tabs, ref)
	h.labels[ref] = label
	return ref, nil
}

func (h *Host) DestroyTabContainer(ref tab.ContainerRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = append(h.destroyed, ref)
	for i, r := range h.tabs {
		if r != ref {
			continue
		}
		h.tabs = append(h.tabs[:i], h.tabs[i+1:]...)
		delete(h.labels, ref)
		switch {
		case len(h.tabs) == 0:
			h.current = -1
		case h.current > i || h.current >= len(h.tabs):
			h.current--
		}
		return
	}
}

func (h *Host) SetTabLabel(ref tab.ContainerRef, label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.labels[ref]; ok {
		h.labels[ref] = label
	}
}

func (h *Host) CurrentTabIndex() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current < 0 || h.current >= len(h.tabs) {
		return -1, false
	}
	return h.current, true
}

func (h *Host) SelectTab(index int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index >= 0 && index < len(h.tabs) {
		h.current = index
	}
}

func (h *Host) MoveTab(from, to int) {
	h.mu.Lock()
	defer h.mu.Unlock()
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

func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
}

// Labels returns the visible labels in tab order.
func (h *Host) Labels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.tabs))
	for _, r := range h.tabs {
		out = append(out, h.labels[r])
	}
	return out
}

// Containers returns the visible containers in tab order.
func (h *Host) Containers() []tab.ContainerRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]tab.ContainerRef(nil), h.tabs...)
}

// Destroyed returns every container passed to DestroyTabContainer.
func (h *Host) Destroyed() []tab.ContainerRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]tab.ContainerRef(nil), h.destroyed...)
}

// Closes counts calls to Close.
func (h *Host) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// Dialog answers with canned values and records what it was asked.
type Dialog struct {
	mu sync.Mutex

	ConfirmAnswer bool
	PromptAnswer  string
	PromptOK      bool
	Err           error

	confirms []string
	prompts  []string
	initials []string
}

func (d *Dialog) Confirm(ctx context.Context, title, message string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirms = append(d.confirms, message)
	if d.Err != nil {
		return false, d.Err
	}
	return d.ConfirmAnswer, nil
}

func (d *Dialog) PromptText(ctx context.Context, title, message, initial string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, title)
	d.initials = append(d.initials, initial)
	if d.Err != nil {
		return "", false, d.Err
	}
	return d.PromptAnswer, d.PromptOK, nil
}

// Confirms returns the messages passed to Confirm.
func (d *Dialog) Confirms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.confirms...)
}

// Initials returns the initial values passed to PromptText.
func (d *Dialog) Initials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.initials...)
}
