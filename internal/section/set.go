// Package section holds the named output buffers code is routed into and
// concatenates them in their final order.
package section

import (
	"fabr/internal/source"
)

// Default names the untagged section that collects code before any sect
// directive. It always merges last.
const Default = ""

// DisplayName renders a section name for listings.
func DisplayName(name string) string {
	if name == Default {
		return "<default>"
	}
	return name
}

// Producer renders lines whose content is only known after routing finished,
// such as out-of-line function definitions that depend on reference counts.
type Producer func() ([]string, error)

type entry struct {
	lines []string
	later Producer
}

// Buffer is one named section.
type Buffer struct {
	Name    string
	Pos     source.Pos // first sect directive that opened it
	entries []entry
}

// Append adds literal lines.
func (b *Buffer) Append(lines ...string) {
	if len(lines) == 0 {
		return
	}
	if n := len(b.entries); n > 0 && b.entries[n-1].later == nil {
		b.entries[n-1].lines = append(b.entries[n-1].lines, lines...)
		return
	}
	b.entries = append(b.entries, entry{lines: append([]string(nil), lines...)})
}

// Defer reserves the current position for lines produced at merge time.
func (b *Buffer) Defer(p Producer) {
	b.entries = append(b.entries, entry{later: p})
}

// Lines materializes the buffer, running deferred producers in order.
func (b *Buffer) Lines() ([]string, error) {
	var out []string
	for _, e := range b.entries {
		if e.later == nil {
			out = append(out, e.lines...)
			continue
		}
		lines, err := e.later()
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

// Set is the collection of section buffers of one run.
type Set struct {
	buffers map[string]*Buffer
	seen    []string
	current *Buffer

	order    []string
	orderPos source.Pos
	orderSet bool
}

// NewSet returns a set whose current section is Default.
func NewSet() *Set {
	s := &Set{buffers: make(map[string]*Buffer)}
	s.current = s.buffer(Default, source.Pos{})
	return s
}

func (s *Set) buffer(name string, pos source.Pos) *Buffer {
	if b, ok := s.buffers[name]; ok {
		return b
	}
	b := &Buffer{Name: name, Pos: pos}
	s.buffers[name] = b
	s.seen = append(s.seen, name)
	return b
}

// Open closes the current section and opens (or reopens) name.
func (s *Set) Open(name string, pos source.Pos) *Buffer {
	s.current = s.buffer(name, pos)
	return s.current
}

// Current returns the section code is routed into.
func (s *Set) Current() *Buffer {
	return s.current
}

// Get returns the named buffer if it was ever opened.
func (s *Set) Get(name string) (*Buffer, bool) {
	b, ok := s.buffers[name]
	return b, ok
}

// Names returns section names in first-seen order, Default included.
func (s *Set) Names() []string {
	return s.seen
}

// SetOrder records the sectord list. It returns false if an order was set
// before; pos then reports where.
func (s *Set) SetOrder(names []string, at source.Pos) (prev source.Pos, ok bool) {
	if s.orderSet {
		return s.orderPos, false
	}
	s.order = append([]string(nil), names...)
	s.orderPos = at
	s.orderSet = true
	return at, true
}

// Order returns the sectord list and where it was declared.
func (s *Set) Order() ([]string, source.Pos, bool) {
	return s.order, s.orderPos, s.orderSet
}
