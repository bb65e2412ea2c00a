package tparams

import (
	"fmt"
	"slices"

	"tpcheck/internal/diag"
	"tpcheck/internal/types"
)

// Bounds are the late-stage results for one type parameter.
type Bounds struct {
	// ConstraintTypes is the declared list with lazies resolved and cyclic
	// edges removed.
	ConstraintTypes []ConstraintType
	// Interfaces holds the interface constraints in declaration order followed
	// by those inherited through type-parameter constraints, deduplicated.
	Interfaces    []types.TypeID
	EffectiveBase types.TypeID
	DeducedBase   types.TypeID
}

// boundsResolver computes the bounds of all members of one group.
type boundsResolver struct {
	arena   *Arena
	group   *Group
	members []*Symbol
	lists   [][]ConstraintType
	state   []uint8
	out     []Bounds
	diags   []diag.Diagnostic
}

const (
	memberUnvisited uint8 = iota
	memberVisiting
	memberDone
)

// resolveGroupBounds forces lazies, drops same-group cycles and resolves each
// member. The result depends only on the declared input.
func (a *Arena) resolveGroupBounds(g *Group) *groupBounds {
	a.mu.RLock()
	members := make([]*Symbol, len(g.decl.params))
	for i, pid := range g.decl.params {
		members[i] = a.symbols[pid]
	}
	a.mu.RUnlock()

	r := &boundsResolver{
		arena:   a,
		group:   g,
		members: members,
		lists:   make([][]ConstraintType, len(members)),
		state:   make([]uint8, len(members)),
		out:     make([]Bounds, len(members)),
	}
	for i, s := range members {
		r.lists[i] = a.declaredConstraints(s)
	}
	r.dropCycles()
	for i := range members {
		r.resolve(i)
	}
	return &groupBounds{members: r.out, diagnostics: r.diags}
}

// local returns the ordinal of t when it names a member of this group.
func (r *boundsResolver) local(t types.TypeID) (int, bool) {
	sym, ok := r.arena.ParamOf(t)
	if !ok || sym.decl != r.group.decl {
		return -1, false
	}
	return sym.ordinal, true
}

// dropCycles removes every constraint edge whose endpoints share a strongly
// connected component, so the outcome does not depend on which member is
// queried first.
func (r *boundsResolver) dropCycles() {
	n := len(r.members)
	comp := tarjan(n, func(v int, yield func(int)) {
		for _, ct := range r.lists[v] {
			if w, ok := r.local(ct.Type); ok {
				yield(w)
			}
		}
	})
	for v := range n {
		var kept []ConstraintType
		var cyclic []string
		for _, ct := range r.lists[v] {
			if w, ok := r.local(ct.Type); ok && comp[w] == comp[v] {
				cyclic = append(cyclic, r.members[w].name)
				continue
			}
			kept = append(kept, ct)
		}
		if len(cyclic) > 0 {
			s := r.members[v]
			msg := fmt.Sprintf("type parameter '%s' has a circular constraint through '%s'", s.name, cyclic[0])
			r.diags = append(r.diags, diag.NewError(diag.TypeParamCircularConstraint, s.Subject(), msg))
		}
		r.lists[v] = kept
	}
}

// tarjan returns the strongly connected component index of each vertex.
func tarjan(n int, edges func(v int, yield func(int))) []int {
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next, comps := 0, 0
	var connect func(v int)
	connect = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		edges(v, func(w int) {
			if index[w] < 0 {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		})
		if low[v] != index[v] {
			return
		}
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp[w] = comps
			if w == v {
				break
			}
		}
		comps++
	}
	for v := range n {
		if index[v] < 0 {
			connect(v)
		}
	}
	return comp
}

func (r *boundsResolver) resolve(i int) Bounds {
	switch r.state[i] {
	case memberDone:
		return r.out[i]
	case memberVisiting:
		// unreachable once cycles are dropped
		return r.defaults(r.members[i])
	}
	r.state[i] = memberVisiting
	r.out[i] = r.compute(r.members[i], r.lists[i])
	r.state[i] = memberDone
	return r.out[i]
}

func (r *boundsResolver) defaults(s *Symbol) Bounds {
	b := r.arena.types.Builtins()
	if s.spec.Flags.Has(FlagValueType) {
		return Bounds{EffectiveBase: b.ValueType, DeducedBase: b.ValueType}
	}
	return Bounds{EffectiveBase: b.Object, DeducedBase: b.Object}
}

// compute folds the constraint list of s into its bounds. Each constraint
// proposes an effective and deduced base; a more derived proposal replaces
// the current one and unrelated proposals are reported as conflicts.
func (r *boundsResolver) compute(s *Symbol, list []ConstraintType) Bounds {
	in := r.arena.types
	builtins := in.Builtins()
	res := r.defaults(s)
	res.ConstraintTypes = list
	var inherited []types.TypeID

	for _, ct := range list {
		var eff, ded types.TypeID
		if sym, ok := r.arena.ParamOf(ct.Type); ok {
			var pb Bounds
			if sym.decl == r.group.decl {
				pb = r.resolve(sym.ordinal)
			} else {
				pb = sym.lateBounds()
			}
			if s.kind == KindSource {
				r.checkParamConstraint(s, sym)
			}
			eff, ded = pb.EffectiveBase, pb.DeducedBase
			inherited = append(inherited, pb.Interfaces...)
		} else {
			switch in.EffectiveKind(ct.Type) {
			case types.KindInterface:
				res.Interfaces = appendUnique(res.Interfaces, ct.Type)
				continue
			case types.KindClass, types.KindDelegate:
				eff, ded = ct.Type, ct.Type
			case types.KindStruct, types.KindPrimitive:
				eff, ded = builtins.ValueType, ct.Type
			case types.KindEnum:
				eff, ded = builtins.Enum, ct.Type
			case types.KindArray:
				eff, ded = builtins.Array, ct.Type
			default:
				continue
			}
		}

		// error types surface at use site and never compete for the base
		if res.DeducedBase == ded || in.Kind(ded) == types.KindError || in.Kind(res.DeducedBase) == types.KindError {
			continue
		}
		switch {
		case in.IsEncompassedBy(res.DeducedBase, ded):
		case in.IsEncompassedBy(ded, res.DeducedBase):
			res.EffectiveBase, res.DeducedBase = eff, ded
		default:
			msg := fmt.Sprintf("type parameter '%s' inherits conflicting constraints '%s' and '%s'",
				s.name, in.String(ded), in.String(res.DeducedBase))
			r.diags = append(r.diags, diag.NewError(diag.TypeParamBaseConstraintConflict, s.Subject(), msg))
		}
	}
	res.Interfaces = appendUnique(res.Interfaces, inherited...)
	return res
}

// checkParamConstraint reports constraints on parameters that were declared
// struct or unmanaged. The edge is kept.
func (r *boundsResolver) checkParamConstraint(s, target *Symbol) {
	switch {
	case target.spec.Flags.Has(FlagUnmanagedType):
		msg := fmt.Sprintf("type parameter '%s' has the 'unmanaged' constraint and cannot be used as a constraint for '%s'", target.name, s.name)
		r.diags = append(r.diags, diag.NewError(diag.TypeParamConstraintWithUnmanagedConstraint, s.Subject(), msg))
	case target.spec.Flags.Has(FlagValueType):
		msg := fmt.Sprintf("type parameter '%s' has the 'struct' constraint and cannot be used as a constraint for '%s'", target.name, s.name)
		r.diags = append(r.diags, diag.NewError(diag.TypeParamConstraintWithValueConstraint, s.Subject(), msg))
	}
}

func appendUnique(dst []types.TypeID, ids ...types.TypeID) []types.TypeID {
	for _, id := range ids {
		if !slices.Contains(dst, id) {
			dst = append(dst, id)
		}
	}
	return dst
}
