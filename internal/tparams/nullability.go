package tparams

// isNotNullable combines the non-type constraints with the constraint types.
// path holds parameters whose answer is being computed further up the stack;
// revisiting one contributes TriFalse.
func (a *Arena) isNotNullable(s *Symbol, path map[ParamID]struct{}) Tri {
	fromNonType := s.notNullableFromNonTypeConstraints()
	if fromNonType == TriTrue {
		return TriTrue
	}
	path[s.id] = struct{}{}
	fromTypes := a.notNullableFromConstraintTypes(a.constraintsOf(s, PhaseLate), path)
	delete(path, s.id)
	if fromTypes == TriTrue || fromNonType == TriFalse {
		return fromTypes
	}
	return TriUnknown
}

func (s *Symbol) notNullableFromNonTypeConstraints() Tri {
	if s.HasNotNullConstraint() || s.HasValueTypeConstraint() {
		return TriTrue
	}
	if s.HasReferenceTypeConstraint() {
		switch s.spec.ReferenceAnnotation {
		case Annotated:
			return TriFalse
		case Oblivious:
			return TriUnknown
		}
		return TriTrue
	}
	return TriFalse
}

// notNullableFromConstraintTypes is TriTrue if any entry is, otherwise
// TriUnknown if any entry is, otherwise TriFalse.
func (a *Arena) notNullableFromConstraintTypes(list []ConstraintType, path map[ParamID]struct{}) Tri {
	result := TriFalse
	for _, ct := range list {
		switch a.notNullableFromConstraintType(ct, path) {
		case TriTrue:
			return TriTrue
		case TriUnknown:
			result = TriUnknown
		}
	}
	return result
}

func (a *Arena) notNullableFromConstraintType(ct ConstraintType, path map[ParamID]struct{}) Tri {
	sym, isParam := a.ParamOf(ct.Type)
	if !isParam && a.types.IsValueType(ct.Type) {
		return TriTrue
	}
	if ct.Annotation == Annotated {
		return TriFalse
	}
	if isParam {
		switch a.paramNotNullable(sym, path) {
		case TriFalse:
			return TriFalse
		case TriUnknown:
			return TriUnknown
		}
	}
	if ct.Annotation == Oblivious {
		return TriUnknown
	}
	return TriTrue
}

func (a *Arena) paramNotNullable(s *Symbol, path map[ParamID]struct{}) Tri {
	if f := s.facts.Load(); f != nil {
		return f.notNullable
	}
	if _, ok := path[s.id]; ok {
		return TriFalse
	}
	return a.isNotNullable(s, path)
}
