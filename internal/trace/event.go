package trace

import "time"

// Kind distinguishes span boundaries from instant points.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Scope is how coarse an event is. A Level admits every scope at or below
// its own rank.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // one resolve run
	ScopePass                    // bind or resolve of one file
	ScopeDecl                    // one declaration's group
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeDecl:
		return "decl"
	}
	return "unknown"
}

// Event is one trace record. Span and Parent are zero for points emitted
// outside any span.
type Event struct {
	At      time.Time
	Seq     uint64
	Kind    Kind
	Scope   Scope
	Span    uint64
	Parent  uint64
	GID     uint64
	Name    string
	Detail  string
	Elapsed time.Duration // set on KindSpanEnd
}
