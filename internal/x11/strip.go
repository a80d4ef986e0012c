package x11

import "github.com/1broseidon/termtab/internal/tab"

// strip is the tab bar model: containers in display order, their labels
// and the selected index. It holds no X resources.
type strip struct {
	refs    []tab.ContainerRef
	labels  []string
	current int
}

func newStrip() *strip {
	return &strip{current: -1}
}

func (s *strip) len() int {
	return len(s.refs)
}

func (s *strip) add(ref tab.ContainerRef, label string) int {
	s.refs = append(s.refs, ref)
	s.labels = append(s.labels, label)
	return len(s.refs) - 1
}

func (s *strip) indexOf(ref tab.ContainerRef) int {
	for i, r := range s.refs {
		if r == ref {
			return i
		}
	}
	return -1
}

// remove drops ref and returns its former index. The selection stays on the
// same tab, or moves to the neighbour that takes the removed tab's place.
func (s *strip) remove(ref tab.ContainerRef) int {
	i := s.indexOf(ref)
	if i < 0 {
		return -1
	}
	s.refs = append(s.refs[:i], s.refs[i+1:]...)
	s.labels = append(s.labels[:i], s.labels[i+1:]...)
	switch {
	case len(s.refs) == 0:
		s.current = -1
	case s.current > i || s.current >= len(s.refs):
		s.current--
	}
	return i
}

func (s *strip) setLabel(ref tab.ContainerRef, label string) bool {
	i := s.indexOf(ref)
	if i < 0 {
		return false
	}
	s.labels[i] = label
	return true
}

func (s *strip) selected() (tab.ContainerRef, bool) {
	if s.current < 0 || s.current >= len(s.refs) {
		return tab.ContainerRef{}, false
	}
	return s.refs[s.current], true
}

func (s *strip) selectIndex(i int) bool {
	if i < 0 || i >= len(s.refs) {
		return false
	}
	s.current = i
	return true
}

func (s *strip) move(from, to int) bool {
	n := len(s.refs)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	ref, label := s.refs[from], s.labels[from]
	s.refs = append(s.refs[:from], s.refs[from+1:]...)
	s.labels = append(s.labels[:from], s.labels[from+1:]...)
	s.refs = append(s.refs[:to], append([]tab.ContainerRef{ref}, s.refs[to:]...)...)
	s.labels = append(s.labels[:to], append([]string{label}, s.labels[to:]...)...)

	switch {
	case s.current == from:
		s.current = to
	case from < s.current && to >= s.current:
		s.current--
	case from > s.current && to <= s.current:
		s.current++
	}
	return true
}

// cell returns the horizontal extent of tab i when n tabs share width.
func cell(i, n, width int) (x, w int) {
	if n <= 0 || width <= 0 {
		return 0, 0
	}
	w = width / n
	x = i * w
	if i == n-1 {
		w = width - x
	}
	return x, w
}

// cellAt returns the tab under horizontal position x, or -1.
func cellAt(x, n, width int) int {
	if n <= 0 || x < 0 || x >= width {
		return -1
	}
	w := width / n
	if w == 0 {
		return -1
	}
	i := x / w
	if i >= n {
		i = n - 1
	}
	return i
}

// fitLabel shortens label to at most max characters, marking the cut.
func fitLabel(label string, max int) string {
	r := []rune(label)
	if max <= 0 {
		return ""
	}
	if len(r) <= max {
		return label
	}
	if max <= 2 {
		return string(r[:max])
	}
	return string(r[:max-2]) + ".."
}
