package trace

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"time"
)

// Format is the on-disk encoding of events.
type Format uint8

const (
	FormatText   Format = iota + 1 // one indented line per event
	FormatNDJSON                   // one JSON object per line
)

// FormatForPath picks NDJSON for .ndjson and .json files and text otherwise.
func FormatForPath(path string) Format {
	switch filepath.Ext(path) {
	case ".ndjson", ".json":
		return FormatNDJSON
	}
	return FormatText
}

type jsonEvent struct {
	At        string `json:"at"`
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope"`
	Span      uint64 `json:"span,omitempty"`
	Parent    uint64 `json:"parent,omitempty"`
	GID       uint64 `json:"gid,omitempty"`
	Name      string `json:"name"`
	Detail    string `json:"detail,omitempty"`
	ElapsedUS int64  `json:"elapsed_us,omitempty"`
}

func appendEvent(dst []byte, ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		data, err := json.Marshal(jsonEvent{
			At:        ev.At.Format(time.RFC3339Nano),
			Seq:       ev.Seq,
			Kind:      ev.Kind.String(),
			Scope:     ev.Scope.String(),
			Span:      ev.Span,
			Parent:    ev.Parent,
			GID:       ev.GID,
			Name:      ev.Name,
			Detail:    ev.Detail,
			ElapsedUS: ev.Elapsed.Microseconds(),
		})
		if err != nil {
			return dst
		}
		return append(append(dst, data...), '\n')
	}
	return appendText(dst, ev)
}

// appendText renders "seq scope marker name [detail] [elapsed]", indented
// one step per scope below driver.
func appendText(dst []byte, ev *Event) []byte {
	dst = strconv.AppendUint(dst, ev.Seq, 10)
	dst = append(dst, ' ')
	for range int(ev.Scope) - int(ScopeDriver) {
		dst = append(dst, "  "...)
	}
	switch ev.Kind {
	case KindSpanBegin:
		dst = append(dst, "> "...)
	case KindSpanEnd:
		dst = append(dst, "< "...)
	default:
		dst = append(dst, "* "...)
	}
	dst = append(dst, ev.Name...)
	if ev.Detail != "" {
		dst = append(dst, " ["...)
		dst = append(dst, ev.Detail...)
		dst = append(dst, ']')
	}
	if ev.Kind == KindSpanEnd {
		dst = append(dst, ' ')
		dst = append(dst, ev.Elapsed.Round(time.Microsecond).String()...)
	}
	return append(dst, '\n')
}
