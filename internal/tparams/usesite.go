package tparams

import (
	"tpcheck/internal/diag"
	"tpcheck/internal/types"
)

// CollectUseSiteDiagnostics reports problems that surface when the parameter
// is referenced: its own use-site error and those of its constraint types'
// original definitions.
func (s *Symbol) CollectUseSiteDiagnostics(into diag.Reporter) {
	if into == nil {
		return
	}
	if orig := s.OriginalDefinition(); orig.useSite != nil {
		into.Report(*orig.useSite)
	}
	for _, ct := range s.lateBounds().ConstraintTypes {
		if sym, ok := s.arena.ParamOf(ct.Type); ok {
			if orig := sym.OriginalDefinition(); orig.useSite != nil {
				into.Report(*orig.useSite)
			}
			continue
		}
		s.arena.collectWithBases(ct.Type, into)
	}
}

// collectWithBases adds the use-site diagnostics of t and of its base chain.
func (a *Arena) collectWithBases(t types.TypeID, into diag.Reporter) {
	in := a.types
	seen := make(map[types.TypeID]struct{})
	for cur := t; cur != types.NoTypeID; cur = in.BaseType(cur) {
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}
		in.CollectUseSite(cur, into)
	}
}
