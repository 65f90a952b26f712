package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelAdmits(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFile, false},
		{LevelDetail, ScopeFile, true},
		{LevelDetail, ScopeLine, false},
		{LevelDebug, ScopeLine, true},
	}
	for _, tc := range cases {
		if got := tc.level.Admits(tc.scope); got != tc.want {
			t.Errorf("%s.Admits(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLevel("DEBUG"); err != nil || l != LevelDebug {
		t.Errorf("ParseLevel(DEBUG) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil || !strings.Contains(err.Error(), "off|error|phase|detail|debug") {
		t.Errorf("ParseLevel(loud) err = %v", err)
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Errorf("ParseMode(both) = %v, %v", m, err)
	}
	if _, err := ParseMode(""); err == nil {
		t.Error("empty mode accepted")
	}
	if f, err := ParseFormat(""); err != nil || f != FormatAuto {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestResolveFormat(t *testing.T) {
	for path, want := range map[string]Format{
		"":          FormatText,
		"-":         FormatText,
		"t.ndjson":  FormatNDJSON,
		"t.json":    FormatChrome,
		"trace.log": FormatText,
	} {
		if got := ResolveFormat(FormatAuto, path); got != want {
			t.Errorf("ResolveFormat(auto, %q) = %v, want %v", path, got, want)
		}
	}
	if got := ResolveFormat(FormatNDJSON, "t.json"); got != FormatNDJSON {
		t.Errorf("explicit format overridden: %v", got)
	}
}

func TestRingWrapsAndKeepsOrder(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeLine, name, "", 0)
	}
	var got []string
	for _, ev := range ring.Snapshot() {
		got = append(got, ev.Name)
	}
	if strings.Join(got, ",") != "c,d,e" {
		t.Errorf("snapshot = %v", got)
	}
}

func TestStreamChromeIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	span := Begin(st, ScopePass, "route", 0)
	Point(st, ScopeLine, "funccall add2", "a1 a0", span.ID())
	span.WithExtra("calls", "1").End("")
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome trace: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 {
		t.Fatalf("events = %d, want 3", len(doc.TraceEvents))
	}
	if doc.TraceEvents[0]["ph"] != "B" || doc.TraceEvents[1]["ph"] != "i" || doc.TraceEvents[2]["ph"] != "E" {
		t.Errorf("phases = %v %v %v", doc.TraceEvents[0]["ph"], doc.TraceEvents[1]["ph"], doc.TraceEvents[2]["ph"])
	}
	if doc.TraceEvents[0]["tid"] != doc.TraceEvents[2]["tid"] {
		t.Error("begin and end of one span landed on different lanes")
	}
}

func TestTextLine(t *testing.T) {
	ev := &Event{Seq: 7, Kind: KindSpanEnd, Scope: ScopePass, ParentID: 1, Name: "merge", Detail: "3 sections", Extra: map[string]string{"z": "1", "a": "2"}}
	if got, want := textLine(ev), "     7   < pass merge (3 sections) {a=2, z=1}\n"; got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestNDJSONDump(t *testing.T) {
	ring := NewRingTracer(8, LevelPhase)
	Begin(ring, ScopeDriver, "build", 0).End("1 targets")
	Point(ring, ScopeLine, "hidden", "", 0)

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev["kind"] != "end" || ev["detail"] != "1 targets" || ev["scope"] != "driver" {
		t.Errorf("event = %v", ev)
	}
}

func TestBothModeKeepsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, Format: FormatText})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopePass, "include", 0).End("")
	ring := RingOf(tr)
	if ring == nil {
		t.Fatal("both mode has no ring")
	}
	if len(ring.Snapshot()) != 2 || strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("ring = %d events, stream = %q", len(ring.Snapshot()), buf.String())
	}
	if RingOf(Nop) != nil {
		t.Error("Nop has a ring")
	}
}

func TestNopWhenOff(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Error("tracer enabled at LevelOff")
	}
	if Begin(tr, ScopeDriver, "build", 0).WithExtra("k", "v").End("") != 0 {
		t.Error("inert span reported a duration")
	}
}

func TestContextPlumbing(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop || CurrentSpan(ctx) != (SpanContext{}) {
		t.Fatal("empty context must yield Nop and no span")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx = WithSpanContext(WithTracer(ctx, ring), SpanContext{SpanID: 9})
	if FromContext(ctx) != Tracer(ring) || CurrentSpan(ctx).SpanID != 9 {
		t.Error("context lost tracer or span")
	}
	if FromContext(WithTracer(ctx, nil)) != Nop {
		t.Error("nil tracer must become Nop")
	}
}

func TestHeartbeatEmitsUntilStopped(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("heartbeat started on a disabled tracer")
	}
	ring := NewRingTracer(64, LevelPhase)
	hb := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()

	events := ring.Snapshot()
	if len(events) == 0 {
		t.Fatal("no heartbeat recorded")
	}
	if events[0].Kind != KindHeartbeat || events[0].Detail != "#1" {
		t.Errorf("event = %+v", events[0])
	}
	n := len(ring.Snapshot())
	time.Sleep(5 * time.Millisecond)
	if len(ring.Snapshot()) != n {
		t.Error("heartbeat kept running after Stop")
	}
}
