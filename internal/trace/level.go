package trace

import (
	"fmt"
	"strings"
)

// Level selects which scopes are recorded.
type Level uint8

const (
	LevelOff    Level = iota
	LevelPhase        // driver and pass spans
	LevelDetail       // plus declaration spans and stage points
)

var levelNames = [...]string{LevelOff: "off", LevelPhase: "phase", LevelDetail: "detail"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel reads a --trace-level value.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("unknown trace level %q (want off|phase|detail)", s)
}

// Admits reports whether events of scope are recorded at this level.
func (l Level) Admits(s Scope) bool {
	return l != LevelOff && uint8(s) <= uint8(l)+1
}

// Wants reports whether t records events of scope. Callers use it to skip
// building names for events that would be dropped.
func Wants(t Tracer, s Scope) bool {
	return t != nil && t.Level().Admits(s)
}
