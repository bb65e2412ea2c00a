package tparams

import (
	"strconv"
	"sync/atomic"

	"tpcheck/internal/diag"
	"tpcheck/internal/trace"
	"tpcheck/internal/types"
)

// Stage is the resolution state of a Group.
type Stage uint32

const (
	StageUnstarted Stage = iota
	StageEarlyDone
	StageLateDone
)

func (s Stage) String() string {
	switch s {
	case StageEarlyDone:
		return "early"
	case StageLateDone:
		return "late"
	}
	return "unstarted"
}

// Group is the set of type parameters declared by one declaration. Stages
// only move forward.
type Group struct {
	arena  *Arena
	decl   *Declaration
	stage  atomic.Uint32
	bounds atomic.Pointer[groupBounds]
	subst  types.Subst
}

type groupBounds struct {
	members     []Bounds
	diagnostics []diag.Diagnostic
}

// Declaration returns the owning declaration.
func (g *Group) Declaration() *Declaration { return g.decl }

// Stage reports the current stage.
func (g *Group) Stage() Stage { return Stage(g.stage.Load()) }

// EnsureAllConstraintsAreResolved advances the group to the early stage, and
// to the late stage unless early is set. The enclosing group is always made
// early first. Safe to call concurrently and repeatedly.
func (g *Group) EnsureAllConstraintsAreResolved(early bool) {
	if g.Stage() == StageUnstarted {
		if enc := g.arena.enclosingGroup(g.decl); enc != nil {
			enc.EnsureAllConstraintsAreResolved(true)
		}
		if g.stage.CompareAndSwap(uint32(StageUnstarted), uint32(StageEarlyDone)) {
			g.point("early", "")
		}
	}
	if early || g.Stage() == StageLateDone {
		return
	}
	b := g.lateBounds()
	if g.stage.CompareAndSwap(uint32(StageEarlyDone), uint32(StageLateDone)) {
		g.point("late", strconv.Itoa(len(b.diagnostics))+" diagnostics")
	}
}

// Diagnostics returns the declaration diagnostics produced by the late
// stage, forcing it if needed.
func (g *Group) Diagnostics() []diag.Diagnostic {
	g.EnsureAllConstraintsAreResolved(false)
	b := g.bounds.Load()
	out := make([]diag.Diagnostic, len(b.diagnostics))
	copy(out, b.diagnostics)
	return out
}

// lateBounds returns the published bounds, computing them when absent.
func (g *Group) lateBounds() *groupBounds {
	if b := g.bounds.Load(); b != nil {
		return b
	}
	g.EnsureAllConstraintsAreResolved(true)
	b := g.arena.resolveGroupBounds(g)
	if g.bounds.CompareAndSwap(nil, b) {
		return b
	}
	return g.bounds.Load()
}

func (g *Group) point(name, detail string) {
	t := g.arena.tracer
	if !trace.Wants(t, trace.ScopeDecl) {
		return
	}
	trace.Point(t, trace.ScopeDecl, name+":"+g.decl.QualifiedName(), detail)
}
