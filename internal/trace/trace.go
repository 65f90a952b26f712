// Package trace records what the fabricator did and how long it took.
//
// A build opens one driver span, every target a file span inside it and
// every stage a pass span inside that. At debug level each lowered call
// site adds a line event.
//
//	fabr build --trace=- --trace-level=phase main.s
//	fabr build --trace=out.json --trace-mode=both main.s
//
// A .json output selects the Chrome trace format, .ndjson selects NDJSON,
// anything else gets text. In ring mode nothing is written until the ring
// is dumped (on exit or after a panic).
package trace

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Level controls how much is recorded.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // ring only, dumped when fabr crashes
	LevelPhase        // driver and stages
	LevelDetail       // plus targets and cache activity
	LevelDebug        // plus call sites
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// Admits reports whether events of scope are recorded at this level.
func (l Level) Admits(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopePass
	case LevelDetail:
		return scope <= ScopeFile
	case LevelDebug:
		return true
	}
	return false
}

// ParseLevel accepts the --trace-level values.
func ParseLevel(s string) (Level, error) {
	if i, ok := lookupName(levelNames[:], s); ok {
		return Level(i), nil // #nosec G115 -- index of a five-entry table
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (want %s)", s, strings.Join(levelNames[:], "|"))
}

// Scope is the granularity of an event; smaller is coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // build / check
	ScopePass                    // one pipeline stage
	ScopeFile                    // one target, cache store
	ScopeLine                    // one source line
)

var scopeNames = [...]string{"", "driver", "pass", "file", "line"}

func (s Scope) String() string {
	if s > 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// Kind tells span boundaries from instant events.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{"", "begin", "end", "point", "heartbeat"}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	// Lane is the goroutine that emitted the event; concurrent targets
	// land on different lanes.
	Lane   uint64
	Name   string
	Detail string
	Extra  map[string]string
}

// Tracer receives events. Implementations are safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop records nothing.
var Nop Tracer = nopTracer{}

type tracerKey struct{}

type spanKey struct{}

// WithTracer returns ctx carrying t (Nop when t is nil).
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer in ctx or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// SpanContext identifies the enclosing span.
type SpanContext struct {
	SpanID uint64
}

// WithSpanContext returns ctx whose CurrentSpan is sc.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, spanKey{}, sc)
}

// CurrentSpan returns the enclosing span or the zero SpanContext.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx != nil {
		if sc, ok := ctx.Value(spanKey{}).(SpanContext); ok {
			return sc
		}
	}
	return SpanContext{}
}

func lookupName(names []string, s string) (int, bool) {
	s = strings.ToLower(s)
	for i, n := range names {
		if n != "" && n == s {
			return i, true
		}
	}
	return 0, false
}
