package tparams

import "tpcheck/internal/types"

// lateFacts are the derived classifications published once per symbol.
type lateFacts struct {
	isReference   bool
	isValue       bool
	isUnmanaged   bool
	notNullable   Tri
	allInterfaces []types.TypeID
}

// Classification is a reference/value/unmanaged answer for one phase.
type Classification struct {
	Reference bool
	Value     bool
	Unmanaged bool
}

func (s *Symbol) late() *lateFacts {
	if f := s.facts.Load(); f != nil {
		return f
	}
	s.ensureResolved()
	f := s.arena.computeLateFacts(s)
	if s.facts.CompareAndSwap(nil, f) {
		return f
	}
	return s.facts.Load()
}

func (a *Arena) computeLateFacts(s *Symbol) *lateFacts {
	c := a.classify(s, PhaseLate)
	return &lateFacts{
		isReference:   c.Reference,
		isValue:       c.Value,
		isUnmanaged:   c.Unmanaged,
		notNullable:   a.isNotNullable(s, map[ParamID]struct{}{}),
		allInterfaces: a.allEffectiveInterfaces(s),
	}
}

// EarlyClassification answers from the raw constraint lists. It may differ
// from the late answer while lazies are unresolved but is deterministic.
func (s *Symbol) EarlyClassification() Classification {
	s.decl.group.EnsureAllConstraintsAreResolved(true)
	return s.arena.classify(s, PhaseEarly)
}

// Classification returns the late classification.
func (s *Symbol) Classification() Classification {
	f := s.late()
	return Classification{Reference: f.isReference, Value: f.isValue, Unmanaged: f.isUnmanaged}
}

func (a *Arena) classify(s *Symbol, phase Phase) Classification {
	return Classification{
		Reference: a.isReferenceType(s, phase),
		Value:     a.isValueType(s, phase),
		Unmanaged: a.isUnmanagedType(s, phase),
	}
}

// isReferenceType: a class constraint, or any reachable constraint type that
// is a reference type outside the exclusion set. A referenced parameter's own
// class constraint does not carry over.
func (a *Arena) isReferenceType(s *Symbol, phase Phase) bool {
	if s.HasReferenceTypeConstraint() {
		return true
	}
	w := a.NewWalker()
	w.MarkInProgress(s.id)
	return w.Walk(a.constraintsOf(s, phase), phase, nil, a.impliesReference)
}

func (a *Arena) impliesReference(t types.TypeID) bool {
	return a.types.IsReferenceType(t) && !a.exclusion.excludes(a.types, t)
}

func (a *Arena) isValueType(s *Symbol, phase Phase) bool {
	if s.HasValueTypeConstraint() {
		return true
	}
	w := a.NewWalker()
	w.MarkInProgress(s.id)
	return w.Walk(a.constraintsOf(s, phase), phase, (*Symbol).HasValueTypeConstraint, a.types.IsValueType)
}

func (a *Arena) isUnmanagedType(s *Symbol, phase Phase) bool {
	if s.HasUnmanagedTypeConstraint() {
		return true
	}
	w := a.NewWalker()
	w.MarkInProgress(s.id)
	return w.Walk(a.constraintsOf(s, phase), phase, (*Symbol).HasUnmanagedTypeConstraint, a.types.IsUnmanaged)
}

// allEffectiveInterfaces closes the effective interfaces over inheritance and
// adds the interfaces implemented by the effective base class.
func (a *Arena) allEffectiveInterfaces(s *Symbol) []types.TypeID {
	b := s.lateBounds()
	var out []types.TypeID
	for _, iface := range b.Interfaces {
		out = appendUnique(out, iface)
		out = appendUnique(out, a.types.AllInterfaces(iface)...)
	}
	return appendUnique(out, a.types.AllInterfaces(b.EffectiveBase)...)
}
