package trace

import (
	"fmt"
	"os"
	"strings"
)

// Tracer receives events. Emit must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Level() Level
	Flush() error
	Close() error
}

// Mode selects where events are kept.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // written as they happen
	ModeRing                   // last RingSize events, dumped on exit
	ModeBoth
)

// ParseMode reads a --trace-mode value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	}
	return 0, fmt.Errorf("unknown trace mode %q (want stream|ring|both)", s)
}

const defaultRingSize = 4096

// Config describes the tracer built by New. Path "-" or "" means stderr.
type Config struct {
	Level    Level
	Mode     Mode
	Path     string
	RingSize int
}

// New builds the tracer for cfg. LevelOff always yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("unknown trace mode %d", cfg.Mode)
	}
	st, err := openStream(cfg.Path, cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeStream {
		return st, nil
	}
	return &teeTracer{stream: st, ring: NewRingTracer(cfg.RingSize, cfg.Level)}, nil
}

func openStream(path string, level Level) (*StreamTracer, error) {
	if path == "" || path == "-" {
		return NewStreamTracer(os.Stderr, level, FormatText), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	st := NewStreamTracer(f, level, FormatForPath(path))
	st.closer = f
	return st, nil
}

// teeTracer backs ModeBoth.
type teeTracer struct {
	stream *StreamTracer
	ring   *RingTracer
}

func (t *teeTracer) Emit(ev *Event) {
	t.ring.Emit(ev)
	t.stream.Emit(ev)
}

func (t *teeTracer) Level() Level { return t.stream.level }
func (t *teeTracer) Flush() error { return t.stream.Flush() }
func (t *teeTracer) Close() error { return t.stream.Close() }

// RingOf returns the ring buffer behind t, or nil when t keeps none.
func RingOf(t Tracer) *RingTracer {
	switch t := t.(type) {
	case *RingTracer:
		return t
	case *teeTracer:
		return t.ring
	}
	return nil
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Level() Level { return LevelOff }
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }

// Nop drops everything.
var Nop Tracer = nopTracer{}
