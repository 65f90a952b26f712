package trace

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// lane returns the current goroutine id, parsed from the "goroutine N [" header
// of the stack dump.
func lane() uint64 {
	var buf [64]byte
	header := string(buf[:runtime.Stack(buf[:], false)])
	fields := strings.Fields(header)
	if len(fields) < 2 || fields[0] != "goroutine" {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func record(kind Kind, scope Scope, id, parent uint64, name, detail string) *Event {
	return &Event{
		Time:     time.Now(),
		Seq:      seqCounter.Add(1),
		Kind:     kind,
		Scope:    scope,
		SpanID:   id,
		ParentID: parent,
		Lane:     lane(),
		Name:     name,
		Detail:   detail,
	}
}

// Span is an open span; End closes it. Spans returned for disabled scopes
// are inert.
type Span struct {
	t       Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Begin opens a span under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().Admits(scope) {
		return &Span{}
	}
	s := &Span{t: t, id: spanCounter.Add(1), parent: parent, scope: scope, name: name}
	ev := record(KindSpanBegin, scope, s.id, parent, name, "")
	s.started = ev.Time
	t.Emit(ev)
	return s
}

// WithExtra attaches a key to the closing event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.t == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 1)
	}
	s.extra[key] = value
	return s
}

// End closes the span and returns its duration (0 for inert spans).
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.t == nil {
		return 0
	}
	ev := record(KindSpanEnd, s.scope, s.id, s.parent, s.name, detail)
	ev.Extra = s.extra
	s.t.Emit(ev)
	return ev.Time.Sub(s.started)
}

// ID is the span id children use as their parent.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point records an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Enabled() || !t.Level().Admits(scope) {
		return
	}
	t.Emit(record(KindPoint, scope, spanCounter.Add(1), parent, name, detail))
}
