package tparams

import "tpcheck/internal/types"

// Phase selects which constraint lists a walk reads.
type Phase uint8

const (
	// PhaseEarly reads raw lists; lazy entries show their fallback.
	PhaseEarly Phase = iota
	// PhaseLate reads the cycle-free lists of the late stage.
	PhaseLate
)

func (p Phase) String() string {
	if p == PhaseLate {
		return "late"
	}
	return "early"
}

// Walker performs a depth-first search over constraint graphs. Parameters are
// visited at most once per walk, which bounds the work on cyclic input. A
// Walker may be reused but not shared between goroutines.
type Walker struct {
	arena      *Arena
	stack      []ConstraintType
	inProgress map[ParamID]struct{}
}

// NewWalker returns an empty walker.
func (a *Arena) NewWalker() *Walker {
	return &Walker{arena: a, inProgress: make(map[ParamID]struct{})}
}

// Reset clears the in-progress set.
func (w *Walker) Reset() {
	clear(w.inProgress)
	w.stack = w.stack[:0]
}

// MarkInProgress seeds parameters that the walk must not enter, usually the
// parameter whose constraints are being walked.
func (w *Walker) MarkInProgress(ids ...ParamID) {
	for _, id := range ids {
		w.inProgress[id] = struct{}{}
	}
}

// InProgress reports whether the walk has entered id.
func (w *Walker) InProgress(id ParamID) bool {
	_, ok := w.inProgress[id]
	return ok
}

// Walk visits start in declaration order. Type-parameter entries go to
// onParam and, when it returns false, their own constraints are visited
// next. Other entries go to onType. The walk stops as soon as a callback
// returns true and reports whether that happened.
func (w *Walker) Walk(start []ConstraintType, phase Phase, onParam func(*Symbol) bool, onType func(types.TypeID) bool) bool {
	w.stack = w.stack[:0]
	w.push(start)
	for len(w.stack) > 0 {
		ct := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		if phase == PhaseLate {
			ct = ct.force()
		} else {
			ct = ct.current()
		}
		if ct.Type == types.NoTypeID {
			continue
		}
		if sym, ok := w.arena.ParamOf(ct.Type); ok {
			if w.InProgress(sym.id) {
				continue
			}
			if onParam != nil && onParam(sym) {
				return true
			}
			w.inProgress[sym.id] = struct{}{}
			w.push(w.arena.constraintsOf(sym, phase))
			continue
		}
		if onType != nil && onType(ct.Type) {
			return true
		}
	}
	return false
}

// push keeps declaration order by pushing in reverse.
func (w *Walker) push(cs []ConstraintType) {
	for i := len(cs) - 1; i >= 0; i-- {
		w.stack = append(w.stack, cs[i])
	}
}
