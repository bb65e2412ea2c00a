package tparams

import (
	"sync/atomic"

	"tpcheck/internal/diag"
	"tpcheck/internal/types"
)

// Symbol is one type parameter. Source symbols come from declarations;
// substituted symbols view an original through an instantiated container;
// synthesized symbols are clones owned by a compiler-made declaration.
type Symbol struct {
	arena    *Arena
	id       ParamID
	decl     *Declaration
	ordinal  int
	name     string
	kind     SymbolKind
	original ParamID
	from     ParamID
	typ      types.TypeID
	spec     Spec
	useSite  *diag.Diagnostic
	facts    atomic.Pointer[lateFacts]
}

func (s *Symbol) ID() ParamID { return s.id }
func (s *Symbol) Name() string { return s.name }
func (s *Symbol) Ordinal() int { return s.ordinal }
func (s *Symbol) Kind() SymbolKind { return s.kind }
func (s *Symbol) Type() types.TypeID { return s.typ }
func (s *Symbol) Declaration() *Declaration { return s.decl }
func (s *Symbol) Group() *Group { return s.decl.group }

// DeclaringMethod returns the owning method, or nil for type parameters of types.
func (s *Symbol) DeclaringMethod() *Declaration {
	if s.decl.Kind == DeclMethod {
		return s.decl
	}
	return nil
}

// DeclaringType returns the owning type for type parameters of types, or the
// type enclosing the owning method.
func (s *Symbol) DeclaringType() *Declaration {
	if s.decl.Kind == DeclType {
		return s.decl
	}
	return s.arena.Decl(s.decl.Enclosing)
}

// Subject names the parameter in diagnostics, e.g. Outer.M.U.
func (s *Symbol) Subject() string {
	return s.decl.QualifiedName() + "." + s.name
}

func (s *Symbol) Flags() KindFlags { return s.spec.Flags }

func (s *Symbol) HasReferenceTypeConstraint() bool { return s.spec.Flags.Has(FlagReferenceType) }
func (s *Symbol) HasValueTypeConstraint() bool { return s.spec.Flags.Has(FlagValueType) }
func (s *Symbol) HasUnmanagedTypeConstraint() bool { return s.spec.Flags.Has(FlagUnmanagedType) }
func (s *Symbol) HasConstructorConstraint() bool { return s.spec.Flags.Has(FlagConstructor) }
func (s *Symbol) HasNotNullConstraint() bool { return s.spec.Flags.Has(FlagNotNull) }

// ReferenceTypeConstraintIsNullable returns the annotation of the class
// constraint; NotApplicable without one.
func (s *Symbol) ReferenceTypeConstraintIsNullable() Annotation {
	if !s.HasReferenceTypeConstraint() {
		return NotApplicable
	}
	return s.spec.ReferenceAnnotation
}

func (s *Symbol) Variance() Variance { return s.spec.Variance }

// ensureResolved drives the owning group through both stages.
func (s *Symbol) ensureResolved() {
	g := s.decl.group
	g.EnsureAllConstraintsAreResolved(true)
	g.EnsureAllConstraintsAreResolved(false)
}

func (s *Symbol) lateBounds() Bounds {
	s.ensureResolved()
	return s.decl.group.bounds.Load().members[s.ordinal]
}

// ConstraintTypes returns the late constraint list: lazies resolved and
// cyclic edges removed.
func (s *Symbol) ConstraintTypes() []ConstraintView {
	list := s.lateBounds().ConstraintTypes
	out := make([]ConstraintView, len(list))
	for i, ct := range list {
		out[i] = ConstraintView{Type: ct.Type, Annotation: ct.Annotation}
	}
	return out
}

// DeclaredConstraintTypes returns the raw list as the early stage sees it.
func (s *Symbol) DeclaredConstraintTypes() []ConstraintView {
	list := s.arena.earlyConstraints(s)
	out := make([]ConstraintView, len(list))
	for i, ct := range list {
		ct = ct.current()
		out[i] = ConstraintView{Type: ct.Type, Annotation: ct.Annotation}
	}
	return out
}

// EffectiveBaseClass is the most derived class every instantiation derives
// from; object or ValueType when nothing narrows it.
func (s *Symbol) EffectiveBaseClass() types.TypeID { return s.lateBounds().EffectiveBase }

// DeducedBaseType is like EffectiveBaseClass but keeps struct, enum and
// array constraint types instead of their roots.
func (s *Symbol) DeducedBaseType() types.TypeID { return s.lateBounds().DeducedBase }

// EffectiveInterfaces lists interface constraints, including those reached
// through type-parameter constraints.
func (s *Symbol) EffectiveInterfaces() []types.TypeID {
	return append([]types.TypeID(nil), s.lateBounds().Interfaces...)
}

// AllEffectiveInterfaces extends EffectiveInterfaces with inherited
// interfaces and the interfaces of the effective base class.
func (s *Symbol) AllEffectiveInterfaces() []types.TypeID {
	return append([]types.TypeID(nil), s.late().allInterfaces...)
}

func (s *Symbol) IsReferenceType() bool { return s.late().isReference }
func (s *Symbol) IsValueType() bool { return s.late().isValue }
func (s *Symbol) IsUnmanagedType() bool { return s.late().isUnmanaged }

// IsNotNullableIfReferenceType reports whether a reference-typed
// instantiation excludes null.
func (s *Symbol) IsNotNullableIfReferenceType() Tri { return s.late().notNullable }

// OriginalDefinition returns the source symbol a substituted symbol views.
// Source and synthesized symbols are their own original.
func (s *Symbol) OriginalDefinition() *Symbol {
	if s.original == s.id {
		return s
	}
	return s.arena.Symbol(s.original)
}

// Container returns the enclosing type that tells substitutions apart.
func (s *Symbol) Container() types.TypeID { return s.decl.containerType() }

// Equal reports whether both symbols denote the same parameter: the same
// original definition seen through the same container.
func (s *Symbol) Equal(o *Symbol) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.arena != o.arena {
		return false
	}
	return s.original == o.original && s.Container() == o.Container()
}

// Hash is consistent with Equal.
func (s *Symbol) Hash() uint64 {
	h := uint64(s.original) * 0x9e3779b97f4a7c15
	h ^= uint64(s.Container()) + 0x9e3779b9 + (h << 6) + (h >> 2)
	return h
}

func (s *Symbol) String() string { return s.name }
