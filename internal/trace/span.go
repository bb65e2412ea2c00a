package trace

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var seq, spanIDs atomic.Uint64

type tracerKey struct{}
type spanKey struct{}

// WithTracer installs t on ctx. A nil t installs Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer installed on ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

func parentOf(ctx context.Context) uint64 {
	id, _ := ctx.Value(spanKey{}).(uint64)
	return id
}

// Span is an open interval of work. A Span whose scope is filtered out is
// inert and safe to End.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	gid    uint64
	scope  Scope
	name   string
	start  time.Time
}

// Start opens a span under the span carried by ctx, using ctx's tracer.
// The returned context carries the new span as parent for nested calls.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !Wants(t, scope) {
		return ctx, &Span{}
	}
	sp := &Span{
		t:      t,
		id:     spanIDs.Add(1),
		parent: parentOf(ctx),
		gid:    goroutineID(),
		scope:  scope,
		name:   name,
		start:  time.Now(),
	}
	t.Emit(&Event{
		At: sp.start, Seq: seq.Add(1), Kind: KindSpanBegin, Scope: scope,
		Span: sp.id, Parent: sp.parent, GID: sp.gid, Name: name,
	})
	return context.WithValue(ctx, spanKey{}, sp.id), sp
}

// End closes the span with an optional detail and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.t == nil {
		return 0
	}
	now := time.Now()
	d := now.Sub(s.start)
	s.t.Emit(&Event{
		At: now, Seq: seq.Add(1), Kind: KindSpanEnd, Scope: s.scope,
		Span: s.id, Parent: s.parent, GID: s.gid, Name: s.name,
		Detail: detail, Elapsed: d,
	})
	return d
}

// ID is zero for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point records an instant event on t.
func Point(t Tracer, scope Scope, name, detail string) {
	if !Wants(t, scope) {
		return
	}
	t.Emit(&Event{
		At: time.Now(), Seq: seq.Add(1), Kind: KindPoint, Scope: scope,
		GID: goroutineID(), Name: name, Detail: detail,
	})
}

// goroutineID parses the header line of runtime.Stack, "goroutine N [...]".
func goroutineID() uint64 {
	var buf [32]byte
	fields := strings.Fields(string(buf[:runtime.Stack(buf[:], false)]))
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(fields[1], 10, 64)
	return id
}
