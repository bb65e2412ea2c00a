package trace

import (
	"io"
	"os"
	"sync"
)

// RingTracer keeps the most recent events in memory so a failing run can
// show what led up to it.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	count int
	level Level
}

// NewRingTracer keeps up to size events; size <= 0 picks the default.
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, size), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.Admits(ev.Scope) {
		return
	}
	t.mu.Lock()
	t.buf[t.next] = *ev
	t.next = (t.next + 1) % len(t.buf)
	t.count = min(t.count+1, len(t.buf))
	t.mu.Unlock()
}

func (t *RingTracer) Level() Level { return t.level }
func (t *RingTracer) Flush() error { return nil }
func (t *RingTracer) Close() error { return nil }

// Snapshot returns the retained events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, t.count)
	start := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := range t.count {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Dump writes the retained events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	var line []byte
	for _, ev := range t.Snapshot() {
		line = appendEvent(line[:0], &ev, format)
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// DumpFile writes the retained events to path, or to stderr for "-", in
// the format its extension implies.
func (t *RingTracer) DumpFile(path string) error {
	if path == "" || path == "-" {
		return t.Dump(os.Stderr, FormatText)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Dump(f, FormatForPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
