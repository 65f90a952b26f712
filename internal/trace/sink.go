package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Format is the encoding of written events.
type Format uint8

const (
	FormatAuto Format = iota
	FormatText
	FormatNDJSON
	FormatChrome // chrome://tracing and Perfetto
)

var formatNames = [...]string{"auto", "text", "ndjson", "chrome"}

// ParseFormat accepts the --trace-format values; "" means auto.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatAuto, nil
	}
	if i, ok := lookupName(formatNames[:], s); ok {
		return Format(i), nil // #nosec G115 -- index of a four-entry table
	}
	return FormatAuto, fmt.Errorf("invalid trace format %q (want %s)", s, strings.Join(formatNames[:], "|"))
}

// ResolveFormat replaces FormatAuto with the format implied by path.
func ResolveFormat(f Format, path string) Format {
	if f != FormatAuto {
		return f
	}
	switch {
	case strings.HasSuffix(path, ".ndjson"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".json"):
		return FormatChrome
	}
	return FormatText
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory, dumped on demand
	ModeBoth
)

var modeNames = [...]string{"", "stream", "ring", "both"}

func (m StorageMode) String() string {
	if m > 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode accepts the --trace-mode values.
func ParseMode(s string) (StorageMode, error) {
	if i, ok := lookupName(modeNames[:], s); ok {
		return StorageMode(i), nil // #nosec G115 -- index of a four-entry table
	}
	return ModeRing, fmt.Errorf("invalid trace mode %q (want stream|ring|both)", s)
}

// Config describes the tracer built by New.
type Config struct {
	Level  Level
	Mode   StorageMode
	Format Format
	// Output wins over OutputPath; OutputPath "" or "-" is stderr.
	Output     io.Writer
	OutputPath string
	RingSize   int // default 4096
	// Heartbeat is read by the caller that starts StartHeartbeat.
	Heartbeat time.Duration
}

// New builds the tracer for cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	switch cfg.Mode {
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream := NewStreamTracer(w, cfg.Level, ResolveFormat(cfg.Format, cfg.OutputPath))
		if cfg.Mode == ModeStream {
			return stream, nil
		}
		return &tee{level: cfg.Level, sinks: []Tracer{stream, NewRingTracer(cfg.RingSize, cfg.Level)}}, nil
	}
	return nil, fmt.Errorf("unknown trace mode %v", cfg.Mode)
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}

// encoder writes events in one format. Chrome output is a JSON array, so
// the encoder owns the framing.
type encoder struct {
	w      io.Writer
	format Format
	n      int
}

func (e *encoder) open() error {
	if e.format != FormatChrome {
		return nil
	}
	_, err := io.WriteString(e.w, "{\"traceEvents\":[\n")
	return err
}

func (e *encoder) write(ev *Event) error {
	var data []byte
	switch e.format {
	case FormatNDJSON:
		data = ndjsonLine(ev)
	case FormatChrome:
		data = chromeEntry(ev)
		if e.n > 0 {
			data = append([]byte(",\n"), data...)
		}
	default:
		data = []byte(textLine(ev))
	}
	e.n++
	_, err := e.w.Write(data)
	return err
}

func (e *encoder) close() error {
	if e.format != FormatChrome {
		return nil
	}
	_, err := io.WriteString(e.w, "\n]}\n")
	return err
}

type ndjsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id"`
	ParentID uint64            `json:"parent_id,omitempty"`
	Lane     uint64            `json:"lane,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func ndjsonLine(ev *Event) []byte {
	data, _ := json.Marshal(ndjsonEvent{
		Time:     ev.Time.Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		Lane:     ev.Lane,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	})
	return append(data, '\n')
}

type chromeEvent struct {
	Name  string            `json:"name"`
	Cat   string            `json:"cat"`
	Phase string            `json:"ph"`
	TS    int64             `json:"ts"`
	PID   int               `json:"pid"`
	TID   uint64            `json:"tid"`
	Scope string            `json:"s,omitempty"`
	Args  map[string]string `json:"args,omitempty"`
}

func chromeEntry(ev *Event) []byte {
	c := chromeEvent{Name: ev.Name, Cat: ev.Scope.String(), TS: ev.Time.UnixMicro(), PID: 1, TID: ev.Lane}
	switch ev.Kind {
	case KindSpanBegin:
		c.Phase = "B"
	case KindSpanEnd:
		c.Phase = "E"
	default:
		c.Phase, c.Scope = "i", "t"
	}
	if ev.Detail != "" || len(ev.Extra) > 0 {
		c.Args = make(map[string]string, len(ev.Extra)+1)
		for k, v := range ev.Extra {
			c.Args[k] = v
		}
		if ev.Detail != "" {
			c.Args["detail"] = ev.Detail
		}
	}
	data, _ := json.Marshal(c)
	return data
}

var kindMarks = map[Kind]string{
	KindSpanBegin: ">",
	KindSpanEnd:   "<",
	KindPoint:     "*",
	KindHeartbeat: "~",
}

// textLine renders "   12 > pass route (detail) {k=v}"; children are
// indented by two spaces.
func textLine(ev *Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6d ", ev.Seq)
	if ev.ParentID != 0 {
		b.WriteString("  ")
	}
	b.WriteString(kindMarks[ev.Kind])
	b.WriteByte(' ')
	b.WriteString(ev.Scope.String())
	b.WriteByte(' ')
	b.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&b, " (%s)", ev.Detail)
	}
	if len(ev.Extra) > 0 {
		keys := make([]string, 0, len(ev.Extra))
		for k := range ev.Extra {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + ev.Extra[k]
		}
		fmt.Fprintf(&b, " {%s}", strings.Join(pairs, ", "))
	}
	b.WriteByte('\n')
	return b.String()
}

// StreamTracer writes every admitted event immediately. Write errors are
// dropped: a broken trace output must not fail the build.
type StreamTracer struct {
	mu    sync.Mutex
	enc   encoder
	level Level
}

// NewStreamTracer writes to w in format (FormatAuto means text).
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	t := &StreamTracer{enc: encoder{w: w, format: ResolveFormat(format, "")}, level: level}
	_ = t.enc.open()
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.Admits(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.enc.write(ev)
}

func (t *StreamTracer) Flush() error {
	if f, ok := t.enc.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close ends the Chrome array and closes the output unless it is a
// standard stream.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	err := t.enc.close()
	t.mu.Unlock()
	err = errors.Join(err, t.Flush())
	if t.enc.w == io.Writer(os.Stderr) || t.enc.w == io.Writer(os.Stdout) {
		return err
	}
	if c, ok := t.enc.w.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

// RingTracer keeps the most recent events for a later Dump.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	full  bool
	level Level
}

// NewRingTracer keeps up to size events (default 4096).
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = 4096
	}
	return &RingTracer{buf: make([]Event, size), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.Admits(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = *ev
	t.next++
	if t.next == len(t.buf) {
		t.next, t.full = 0, true
	}
}

// Snapshot returns the kept events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return slices.Clone(t.buf[:t.next])
	}
	return append(slices.Clone(t.buf[t.next:]), t.buf[:t.next]...)
}

// Dump writes the kept events to w (FormatAuto means text).
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	enc := encoder{w: w, format: ResolveFormat(format, "")}
	if err := enc.open(); err != nil {
		return err
	}
	for _, ev := range t.Snapshot() {
		if err := enc.write(&ev); err != nil {
			return err
		}
	}
	return enc.close()
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

// tee sends each event to every sink (stream plus ring in ModeBoth).
type tee struct {
	level Level
	sinks []Tracer
}

func (t *tee) Emit(ev *Event) {
	for _, s := range t.sinks {
		cp := *ev
		s.Emit(&cp)
	}
}

func (t *tee) Flush() error {
	var err error
	for _, s := range t.sinks {
		err = errors.Join(err, s.Flush())
	}
	return err
}

func (t *tee) Close() error {
	var err error
	for _, s := range t.sinks {
		err = errors.Join(err, s.Close())
	}
	return err
}

func (t *tee) Level() Level  { return t.level }
func (t *tee) Enabled() bool { return t.level > LevelOff }

// Ring returns the ring sink, if any.
func (t *tee) Ring() *RingTracer {
	for _, s := range t.sinks {
		if r, ok := s.(*RingTracer); ok {
			return r
		}
	}
	return nil
}

// RingOf returns the in-memory ring behind t, or nil when t keeps none.
func RingOf(t Tracer) *RingTracer {
	switch v := t.(type) {
	case *RingTracer:
		return v
	case *tee:
		return v.Ring()
	}
	return nil
}
