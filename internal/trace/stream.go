package trace

import (
	"io"
	"sync"
)

// StreamTracer encodes each event onto w as soon as it arrives.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer // set only when the tracer opened w itself
	level  Level
	format Format
	buf    []byte
}

// NewStreamTracer writes events of level to w. w is never closed.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.Admits(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = appendEvent(t.buf[:0], ev, t.format)
	// a failed trace write never fails the run
	_, _ = t.w.Write(t.buf)
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Sync() error }); ok && t.closer != nil {
		return f.Sync()
	}
	return nil
}

func (t *StreamTracer) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
