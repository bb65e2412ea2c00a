package tparams

import (
	"fmt"
	"sync"

	"fortio.org/safecast"

	"tpcheck/internal/diag"
	"tpcheck/internal/trace"
	"tpcheck/internal/types"
)

// ParamID identifies a type parameter inside an Arena.
type ParamID uint32

// NoParamID marks the absence of a type parameter.
const NoParamID ParamID = 0

// IsValid reports whether the ID refers to a registered parameter.
func (id ParamID) IsValid() bool { return id != NoParamID }

// DeclID identifies a generic declaration inside an Arena.
type DeclID uint32

// NoDeclID marks the absence of a declaration.
const NoDeclID DeclID = 0

// IsValid reports whether the ID refers to a registered declaration.
func (id DeclID) IsValid() bool { return id != NoDeclID }

// DeclKind distinguishes generic types from generic methods.
type DeclKind uint8

const (
	DeclType DeclKind = iota
	DeclMethod
)

func (k DeclKind) String() string {
	if k == DeclMethod {
		return "method"
	}
	return "type"
}

// SymbolKind is the closed set of type-parameter variants.
type SymbolKind uint8

const (
	KindSource SymbolKind = iota
	KindSubstituted
	KindSynthesized
)

func (k SymbolKind) String() string {
	switch k {
	case KindSubstituted:
		return "substituted"
	case KindSynthesized:
		return "synthesized"
	}
	return "source"
}

// Declaration is a generic type or method and owns exactly one Group.
type Declaration struct {
	ID        DeclID
	Name      string
	Kind      DeclKind
	Enclosing DeclID
	// Definition is the generic type itself for DeclType.
	Definition types.TypeID
	// Container is the instantiated enclosing type of a substituted method.
	Container types.TypeID
	// From is the declaration a substituted or synthesized group was copied from.
	From DeclID

	arena  *Arena
	params []ParamID
	group  *Group
}

// Params returns the declaration's type parameters in declaration order.
func (d *Declaration) Params() []ParamID {
	d.arena.mu.RLock()
	defer d.arena.mu.RUnlock()
	out := make([]ParamID, len(d.params))
	copy(out, d.params)
	return out
}

// Group returns the constraint group of the declaration.
func (d *Declaration) Group() *Group { return d.group }

// QualifiedName renders Outer.Inner.M, using the container for substituted groups.
func (d *Declaration) QualifiedName() string {
	if d.Container != types.NoTypeID {
		return d.arena.types.String(d.Container) + "." + d.Name
	}
	if d.Enclosing.IsValid() {
		if enc := d.arena.Decl(d.Enclosing); enc != nil {
			return enc.QualifiedName() + "." + d.Name
		}
	}
	return d.Name
}

// containerType is the enclosing type that distinguishes substitutions.
func (d *Declaration) containerType() types.TypeID {
	if d.Container != types.NoTypeID {
		return d.Container
	}
	if d.Enclosing.IsValid() {
		if enc := d.arena.Decl(d.Enclosing); enc != nil {
			return enc.Definition
		}
	}
	return types.NoTypeID
}

// Option configures an Arena.
type Option func(*Arena)

// WithExclusion replaces DefaultExclusion.
func WithExclusion(set ExclusionSet) Option {
	return func(a *Arena) { a.exclusion = set }
}

// WithTracer attaches a tracer for stage transitions.
func WithTracer(t trace.Tracer) Option {
	return func(a *Arena) {
		if t != nil {
			a.tracer = t
		}
	}
}

// Arena owns declarations and type-parameter symbols. Registration is single
// threaded; after Seal the arena may be queried and extended with substituted
// or synthesized groups from any goroutine.
type Arena struct {
	mu        sync.RWMutex
	types     *types.Interner
	decls     []*Declaration
	symbols   []*Symbol
	exclusion ExclusionSet
	tracer    trace.Tracer
	sealed    bool
}

// NewArena creates an empty arena over the given interner.
func NewArena(in *types.Interner, opts ...Option) *Arena {
	a := &Arena{
		types:     in,
		decls:     make([]*Declaration, 1, 16), // reserve 0
		symbols:   make([]*Symbol, 1, 32),      // reserve 0
		exclusion: DefaultExclusion,
		tracer:    trace.Nop,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Types exposes the interner the arena was built on.
func (a *Arena) Types() *types.Interner { return a.types }

// Exclusion returns the active exclusion set.
func (a *Arena) Exclusion() ExclusionSet { return a.exclusion }

// Seal ends the registration phase.
func (a *Arena) Seal() {
	a.mu.Lock()
	a.sealed = true
	a.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (a *Arena) Sealed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sealed
}

// DeclareType registers a generic type. def is the type's definition TypeID.
func (a *Arena) DeclareType(name string, enclosing DeclID, def types.TypeID) DeclID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.declareLocked(&Declaration{Name: name, Kind: DeclType, Enclosing: enclosing, Definition: def})
}

// DeclareMethod registers a generic method, optionally nested in a type.
func (a *Arena) DeclareMethod(name string, enclosing DeclID) DeclID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.declareLocked(&Declaration{Name: name, Kind: DeclMethod, Enclosing: enclosing})
}

func (a *Arena) declareLocked(d *Declaration) DeclID {
	id, err := safecast.Conv[uint32](len(a.decls))
	if err != nil {
		panic(fmt.Errorf("declaration arena overflow: %w", err))
	}
	d.ID = DeclID(id)
	d.arena = a
	d.group = &Group{arena: a, decl: d}
	a.decls = append(a.decls, d)
	return d.ID
}

// Decl returns the declaration for id, or nil.
func (a *Arena) Decl(id DeclID) *Declaration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !id.IsValid() || int(id) >= len(a.decls) {
		return nil
	}
	return a.decls[id]
}

// Decls returns a snapshot of all declarations in registration order.
func (a *Arena) Decls() []*Declaration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Declaration, len(a.decls)-1)
	copy(out, a.decls[1:])
	return out
}

// AddParam appends a source type parameter to decl.
func (a *Arena) AddParam(decl DeclID, name string) ParamID {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.decls[decl]
	return a.addParamLocked(d, name, KindSource)
}

func (a *Arena) addParamLocked(d *Declaration, name string, kind SymbolKind) ParamID {
	raw, err := safecast.Conv[uint32](len(a.symbols))
	if err != nil {
		panic(fmt.Errorf("type parameter arena overflow: %w", err))
	}
	id := ParamID(raw)
	s := &Symbol{
		arena:    a,
		id:       id,
		decl:     d,
		ordinal:  len(d.params),
		name:     name,
		kind:     kind,
		original: id,
	}
	s.typ = a.types.TypeParam(raw, name)
	a.symbols = append(a.symbols, s)
	d.params = append(d.params, id)
	return id
}

// SetSpec installs the declared constraint clause of a source parameter.
func (a *Arena) SetSpec(id ParamID, spec Spec) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.symbols[id]
	s.spec = spec
	s.spec.Constraints = append([]ConstraintType(nil), spec.Constraints...)
}

// SetUseSiteError attaches a use-site diagnostic to the parameter.
func (a *Arena) SetUseSiteError(id ParamID, d diag.Diagnostic) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.symbols[id].useSite = &d
}

// Symbol returns the symbol for id, or nil.
func (a *Arena) Symbol(id ParamID) *Symbol {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !id.IsValid() || int(id) >= len(a.symbols) {
		return nil
	}
	return a.symbols[id]
}

// ParamType returns the TypeID that refers to the parameter.
func (a *Arena) ParamType(id ParamID) types.TypeID {
	if s := a.Symbol(id); s != nil {
		return s.typ
	}
	return types.NoTypeID
}

// ParamOf maps a type-parameter TypeID back to its symbol.
func (a *Arena) ParamOf(t types.TypeID) (*Symbol, bool) {
	if t == types.NoTypeID || a.types.Kind(t) != types.KindTypeParam {
		return nil, false
	}
	handle, ok := a.types.TypeParamHandle(t)
	if !ok {
		return nil, false
	}
	s := a.Symbol(ParamID(handle))
	return s, s != nil
}

// Substitute builds the substituted group of method decl as seen through the
// instantiated container, e.g. M<U> where U : T inside Outer<int>. Each call
// creates a fresh group; symbols compare equal across calls through Equal.
func (a *Arena) Substitute(decl DeclID, container types.TypeID) (DeclID, error) {
	src := a.Decl(decl)
	if src == nil {
		return NoDeclID, fmt.Errorf("unknown declaration %d", decl)
	}
	if src.From.IsValid() {
		return NoDeclID, fmt.Errorf("%s is not an original definition", src.QualifiedName())
	}
	if !src.Enclosing.IsValid() {
		return NoDeclID, fmt.Errorf("%s has no enclosing type to substitute", src.QualifiedName())
	}
	enc := a.Decl(src.Enclosing)
	if a.types.OriginalDefinition(container) != enc.Definition {
		return NoDeclID, fmt.Errorf("%s is not an instance of %s", a.types.String(container), enc.QualifiedName())
	}
	subst := a.types.InstanceSubst(container)
	if subst == nil {
		subst = types.Subst{}
	}

	a.mu.Lock()
	d := &Declaration{
		Name:      src.Name,
		Kind:      src.Kind,
		Enclosing: src.Enclosing,
		Container: container,
		From:      src.ID,
	}
	id := a.declareLocked(d)
	for _, pid := range src.params {
		orig := a.symbols[pid]
		np := a.addParamLocked(d, orig.name, KindSubstituted)
		ns := a.symbols[np]
		ns.original = orig.original
		ns.from = pid
		ns.spec = Spec{
			Flags:               orig.spec.Flags,
			ReferenceAnnotation: orig.spec.ReferenceAnnotation,
			Variance:            orig.spec.Variance,
		}
		ns.useSite = orig.useSite
		subst[orig.typ] = ns.typ
	}
	d.group.subst = subst
	a.mu.Unlock()
	return id, nil
}

// Synthesize copies the group of decl into a new method named name, as when a
// compiler fabricates a helper with cloned type parameters. Constraints that
// mention the copied parameters are renamed to the new ones.
func (a *Arena) Synthesize(decl DeclID, name string, enclosing DeclID) (DeclID, error) {
	src := a.Decl(decl)
	if src == nil {
		return NoDeclID, fmt.Errorf("unknown declaration %d", decl)
	}

	a.mu.Lock()
	d := &Declaration{Name: name, Kind: DeclMethod, Enclosing: enclosing, From: src.ID}
	id := a.declareLocked(d)
	subst := types.Subst{}
	created := make([]*Symbol, 0, len(src.params))
	for _, pid := range src.params {
		orig := a.symbols[pid]
		np := a.addParamLocked(d, orig.name, KindSynthesized)
		ns := a.symbols[np]
		ns.from = pid
		subst[orig.typ] = ns.typ
		created = append(created, ns)
	}
	for i, pid := range src.params {
		orig := a.symbols[pid]
		ns := created[i]
		ns.spec = Spec{
			Flags:               orig.spec.Flags,
			ReferenceAnnotation: orig.spec.ReferenceAnnotation,
			Variance:            orig.spec.Variance,
			Constraints:         a.renameConstraints(orig.spec.Constraints, subst),
		}
		ns.useSite = orig.useSite
	}
	a.mu.Unlock()
	return id, nil
}

func (a *Arena) renameConstraints(cs []ConstraintType, subst types.Subst) []ConstraintType {
	out := make([]ConstraintType, 0, len(cs))
	in := a.types
	for _, ct := range cs {
		if !ct.IsLazy() {
			out = append(out, ConstraintType{Type: in.Substitute(ct.Type, subst), Annotation: ct.Annotation})
			continue
		}
		src := ct
		fallback := src.current()
		fallback.Type = in.Substitute(fallback.Type, subst)
		out = append(out, Lazy(fallback, func() ConstraintType {
			v := src.force()
			v.Type = in.Substitute(v.Type, subst)
			return v
		}))
	}
	return out
}

// substituteConstraints maps constraints through subst, reading lazy entries
// according to phase.
func (a *Arena) substituteConstraints(cs []ConstraintType, subst types.Subst, phase Phase) []ConstraintType {
	out := make([]ConstraintType, 0, len(cs))
	for _, ct := range cs {
		if phase == PhaseLate {
			ct = ct.force()
		} else {
			ct = ct.current()
		}
		ct.Type = a.types.Substitute(ct.Type, subst)
		out = append(out, ct)
	}
	return out
}

// earlyConstraints returns the raw constraint list as the early stage sees it.
func (a *Arena) earlyConstraints(s *Symbol) []ConstraintType {
	switch s.kind {
	case KindSubstituted:
		from := a.Symbol(s.from)
		return a.substituteConstraints(a.earlyConstraints(from), s.decl.group.subst, PhaseEarly)
	case KindSource, KindSynthesized:
		return s.spec.Constraints
	}
	return nil
}

// declaredConstraints returns the forced constraint list that feeds the bounds pass.
func (a *Arena) declaredConstraints(s *Symbol) []ConstraintType {
	switch s.kind {
	case KindSubstituted:
		from := a.Symbol(s.from)
		return a.substituteConstraints(from.lateBounds().ConstraintTypes, s.decl.group.subst, PhaseLate)
	case KindSource, KindSynthesized:
		out := make([]ConstraintType, 0, len(s.spec.Constraints))
		for _, ct := range s.spec.Constraints {
			out = append(out, ct.force())
		}
		return out
	}
	return nil
}

// constraintsOf returns the constraint list of s for the given phase. The late
// list is cycle free and lazies are resolved.
func (a *Arena) constraintsOf(s *Symbol, phase Phase) []ConstraintType {
	if phase == PhaseLate {
		return s.lateBounds().ConstraintTypes
	}
	return a.earlyConstraints(s)
}

// enclosingGroup returns the group whose parameters decl may reference.
func (a *Arena) enclosingGroup(d *Declaration) *Group {
	if !d.Enclosing.IsValid() {
		return nil
	}
	if enc := a.Decl(d.Enclosing); enc != nil {
		return enc.group
	}
	return nil
}
