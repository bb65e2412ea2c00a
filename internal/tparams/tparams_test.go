package tparams

import (
	"slices"
	"sync"
	"testing"

	"tpcheck/internal/diag"
	"tpcheck/internal/types"
)

type fixture struct {
	in    *types.Interner
	arena *Arena
	b     types.Builtins
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	in := types.NewInterner()
	return &fixture{in: in, arena: NewArena(in, opts...), b: in.Builtins()}
}

func (f *fixture) class(name string) types.TypeID {
	return f.in.RegisterNominal(types.KindClass, name)
}

func (f *fixture) iface(name string, bases ...types.TypeID) types.TypeID {
	id := f.in.RegisterNominal(types.KindInterface, name)
	if len(bases) > 0 {
		f.in.SetInterfaces(id, bases)
	}
	return id
}

// method declares a top-level method with the given parameter names.
func (f *fixture) method(name string, params ...string) (DeclID, []ParamID) {
	d := f.arena.DeclareMethod(name, NoDeclID)
	ids := make([]ParamID, len(params))
	for i, p := range params {
		ids[i] = f.arena.AddParam(d, p)
	}
	return d, ids
}

func (f *fixture) ref(id ParamID) ConstraintType {
	return ConstraintType{Type: f.arena.ParamType(id), Annotation: NotAnnotated}
}

func plain(t types.TypeID) ConstraintType {
	return ConstraintType{Type: t, Annotation: NotAnnotated}
}

func TestNoConstraints(t *testing.T) {
	f := newFixture(t)
	_, ps := f.method("M", "T")
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])

	if s.EffectiveBaseClass() != f.b.Object || s.DeducedBaseType() != f.b.Object {
		t.Fatalf("expected object bases, got %s/%s", f.in.String(s.EffectiveBaseClass()), f.in.String(s.DeducedBaseType()))
	}
	if len(s.EffectiveInterfaces()) != 0 || len(s.AllEffectiveInterfaces()) != 0 {
		t.Fatalf("expected no interfaces")
	}
	if s.IsReferenceType() || s.IsValueType() || s.IsUnmanagedType() {
		t.Fatalf("unconstrained parameter classified: %+v", s.Classification())
	}
	if got := s.IsNotNullableIfReferenceType(); got != TriFalse {
		t.Fatalf("expected nullable, got %s", got)
	}
}

func TestClassAndInterfaceConstraints(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	iface := f.iface("IFace")
	_, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(c), plain(iface)}})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])

	if s.EffectiveBaseClass() != c || s.DeducedBaseType() != c {
		t.Fatalf("expected base C, got %s", f.in.String(s.EffectiveBaseClass()))
	}
	if got := s.EffectiveInterfaces(); !slices.Equal(got, []types.TypeID{iface}) {
		t.Fatalf("expected [IFace], got %v", got)
	}
	if !s.IsReferenceType() {
		t.Fatalf("class constraint type must make T a reference type")
	}
	if s.IsValueType() {
		t.Fatalf("T must not be a value type")
	}
	if got := s.IsNotNullableIfReferenceType(); got != TriTrue {
		t.Fatalf("expected not-null, got %s", got)
	}
}

func TestInterfaceAloneIsNotReference(t *testing.T) {
	f := newFixture(t)
	disposable := f.iface("IDisposable")
	_, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(disposable)}})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])
	if s.IsReferenceType() {
		t.Fatalf("an interface constraint alone must not make T a reference type")
	}
	if s.EffectiveBaseClass() != f.b.Object {
		t.Fatalf("expected object base")
	}
}

func TestExclusionSetIsConfigurable(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
		want bool
	}{
		{"default", nil, false},
		{"object-allowed", []Option{WithExclusion(DefaultExclusion &^ ExcludeObject)}, true},
	} {
		f := newFixture(t, tc.opts...)
		_, ps := f.method("M", "T")
		f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(f.b.Object)}})
		f.arena.Seal()
		if got := f.arena.Symbol(ps[0]).IsReferenceType(); got != tc.want {
			t.Fatalf("%s: IsReferenceType = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClassConstraintAnnotation(t *testing.T) {
	f := newFixture(t)
	_, ps := f.method("M", "A", "B", "C")
	f.arena.SetSpec(ps[0], Spec{Flags: FlagReferenceType, ReferenceAnnotation: NotAnnotated})
	f.arena.SetSpec(ps[1], Spec{Flags: FlagReferenceType, ReferenceAnnotation: Annotated})
	f.arena.SetSpec(ps[2], Spec{Flags: FlagReferenceType, ReferenceAnnotation: Oblivious})
	f.arena.Seal()

	want := []Tri{TriTrue, TriFalse, TriUnknown}
	for i, id := range ps {
		s := f.arena.Symbol(id)
		if !s.IsReferenceType() {
			t.Fatalf("%s: class flag must classify as reference", s.Name())
		}
		if got := s.IsNotNullableIfReferenceType(); got != want[i] {
			t.Fatalf("%s: got %s, want %s", s.Name(), got, want[i])
		}
	}
}

func TestClassConstraintShortCircuitsNullability(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	_, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{
		Flags:               FlagReferenceType,
		ReferenceAnnotation: NotAnnotated,
		Constraints:         []ConstraintType{{Type: c, Annotation: Annotated}},
	})
	f.arena.Seal()
	if got := f.arena.Symbol(ps[0]).IsNotNullableIfReferenceType(); got != TriTrue {
		t.Fatalf("expected not-null from class constraint, got %s", got)
	}
}

func TestStructConstraint(t *testing.T) {
	f := newFixture(t)
	_, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{Flags: FlagValueType})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])
	if !s.IsValueType() || s.IsReferenceType() {
		t.Fatalf("struct constraint: got %+v", s.Classification())
	}
	if s.EffectiveBaseClass() != f.b.ValueType {
		t.Fatalf("expected ValueType base, got %s", f.in.String(s.EffectiveBaseClass()))
	}
	if s.IsNotNullableIfReferenceType() != TriTrue {
		t.Fatalf("value-type parameter must be not-null")
	}
}

func TestUnmanagedConstraint(t *testing.T) {
	f := newFixture(t)
	_, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Flags: FlagValueType | FlagUnmanagedType})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{plain(f.b.Int)}})
	f.arena.Seal()
	if !f.arena.Symbol(ps[0]).IsUnmanagedType() {
		t.Fatalf("unmanaged flag must classify as unmanaged")
	}
	u := f.arena.Symbol(ps[1])
	if !u.IsUnmanagedType() || !u.IsValueType() {
		t.Fatalf("int constraint: got %+v", u.Classification())
	}
	if u.DeducedBaseType() != f.b.Int || u.EffectiveBaseClass() != f.b.ValueType {
		t.Fatalf("int constraint: deduced %s effective %s", f.in.String(u.DeducedBaseType()), f.in.String(u.EffectiveBaseClass()))
	}
}

func TestConstraintThroughTypeParameter(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	_, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{f.ref(ps[1])}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{plain(c)}})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])
	if s.EffectiveBaseClass() != c {
		t.Fatalf("T : U, U : C should inherit C, got %s", f.in.String(s.EffectiveBaseClass()))
	}
	if !s.IsReferenceType() {
		t.Fatalf("reference type must be found through U")
	}
	if s.IsNotNullableIfReferenceType() != TriTrue {
		t.Fatalf("expected not-null through U")
	}
}

func TestReferencedClassFlagDoesNotPropagate(t *testing.T) {
	f := newFixture(t)
	_, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{f.ref(ps[1])}})
	f.arena.SetSpec(ps[1], Spec{Flags: FlagReferenceType})
	f.arena.Seal()
	if f.arena.Symbol(ps[0]).IsReferenceType() {
		t.Fatalf("U's class flag must not make T a reference type")
	}
	if got := f.arena.Symbol(ps[0]).IsNotNullableIfReferenceType(); got != TriTrue {
		t.Fatalf("T : U where U : class should be not-null, got %s", got)
	}
}

func TestValueFlagPropagatesAndIsReported(t *testing.T) {
	f := newFixture(t)
	_, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{f.ref(ps[1])}})
	f.arena.SetSpec(ps[1], Spec{Flags: FlagValueType})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])
	if !s.IsValueType() {
		t.Fatalf("value flag of U must propagate to T")
	}
	set := diagSet(s.Group().Diagnostics())
	if !set.Has(diag.TypeParamConstraintWithValueConstraint) {
		t.Fatalf("expected value-constraint diagnostic, got %v", s.Group().Diagnostics())
	}
}

func TestNullabilityAggregation(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	notNull := ConstraintType{Type: c, Annotation: NotAnnotated}
	nullable := ConstraintType{Type: c, Annotation: Annotated}
	unknown := ConstraintType{Type: c, Annotation: Oblivious}

	_, ps := f.method("M", "A", "B", "C")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{unknown, notNull}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{nullable, unknown}})
	f.arena.SetSpec(ps[2], Spec{Constraints: []ConstraintType{nullable}})
	f.arena.Seal()

	want := []Tri{TriTrue, TriUnknown, TriFalse}
	for i, id := range ps {
		s := f.arena.Symbol(id)
		if got := s.IsNotNullableIfReferenceType(); got != want[i] {
			t.Fatalf("%s: got %s, want %s", s.Name(), got, want[i])
		}
	}
}

func TestSiblingCycleIsOrderIndependent(t *testing.T) {
	type result struct {
		base   [2]types.TypeID
		counts [2]int
		ref    [2]bool
		null   [2]Tri
	}
	run := func(first int) result {
		f := newFixture(t)
		c := f.class("C")
		_, ps := f.method("M", "T", "U")
		f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{f.ref(ps[1]), plain(c)}})
		f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{f.ref(ps[0])}})
		f.arena.Seal()
		order := []int{first, 1 - first}
		var r result
		for _, i := range order {
			s := f.arena.Symbol(ps[i])
			r.base[i] = s.EffectiveBaseClass()
			r.counts[i] = len(s.ConstraintTypes())
			r.ref[i] = s.IsReferenceType()
			r.null[i] = s.IsNotNullableIfReferenceType()
		}
		return r
	}
	a, b := run(0), run(1)
	if a != b {
		t.Fatalf("results depend on query order:\n%+v\n%+v", a, b)
	}
	if a.counts != [2]int{1, 0} {
		t.Fatalf("cyclic edges must be dropped, got counts %v", a.counts)
	}
}

func TestCycleDiagnostics(t *testing.T) {
	f := newFixture(t)
	d, ps := f.method("M", "S", "T")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{f.ref(ps[1])}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{f.ref(ps[0])}})
	f.arena.Seal()

	g := f.arena.Decl(d).Group()
	diags := g.Diagnostics()
	n := 0
	for _, dg := range diags {
		if dg.Code == diag.TypeParamCircularConstraint {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("expected one circular diagnostic per member, got %v", diags)
	}
	for _, id := range ps {
		s := f.arena.Symbol(id)
		if s.EffectiveBaseClass() != f.b.Object || s.IsReferenceType() {
			t.Fatalf("%s: cycle must resolve to defaults", s.Name())
		}
	}
}

func TestSelfConstraintTerminates(t *testing.T) {
	f := newFixture(t)
	_, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{f.ref(ps[0])}})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])

	// The early view still has the self edge; the walk must terminate.
	if s.EarlyClassification() != (Classification{}) {
		t.Fatalf("self edge must not classify")
	}
	if len(s.ConstraintTypes()) != 0 {
		t.Fatalf("self edge must be removed in the late stage")
	}
	if s.IsNotNullableIfReferenceType() != TriFalse {
		t.Fatalf("expected nullable")
	}
}

func TestStagesAreIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	d, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(c)}})
	f.arena.Seal()
	g := f.arena.Decl(d).Group()
	if g.Stage() != StageUnstarted {
		t.Fatalf("fresh group must be unstarted")
	}
	g.EnsureAllConstraintsAreResolved(true)
	g.EnsureAllConstraintsAreResolved(true)
	if g.Stage() != StageEarlyDone {
		t.Fatalf("expected early stage, got %s", g.Stage())
	}
	g.EnsureAllConstraintsAreResolved(false)
	first := g.bounds.Load()
	g.EnsureAllConstraintsAreResolved(false)
	g.EnsureAllConstraintsAreResolved(true)
	if g.Stage() != StageLateDone || g.bounds.Load() != first {
		t.Fatalf("late stage must be published once")
	}
}

func TestEnclosingGroupGoesEarlyFirst(t *testing.T) {
	f := newFixture(t)
	def := f.class("Outer")
	outer := f.arena.DeclareType("Outer", NoDeclID, def)
	f.arena.AddParam(outer, "T")
	m := f.arena.DeclareMethod("M", outer)
	f.arena.AddParam(m, "U")
	f.arena.Seal()

	f.arena.Decl(m).Group().EnsureAllConstraintsAreResolved(true)
	if f.arena.Decl(outer).Group().Stage() == StageUnstarted {
		t.Fatalf("enclosing group must be advanced to early")
	}
}

func TestLazyConstraint(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	calls := 0
	_, ps := f.method("M", "T")
	lazy := Lazy(plain(f.b.Unresolved), func() ConstraintType {
		calls++
		return plain(c)
	})
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{lazy}})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])

	if s.EarlyClassification().Reference {
		t.Fatalf("early answer must use the fallback")
	}
	if got := s.DeclaredConstraintTypes(); got[0].Type != f.b.Unresolved {
		t.Fatalf("early list must show the fallback, got %s", f.in.String(got[0].Type))
	}
	if calls != 0 {
		t.Fatalf("early stage must not force lazies")
	}
	if !s.IsReferenceType() || s.EffectiveBaseClass() != c {
		t.Fatalf("late answer must use the resolved constraint")
	}
	s.ConstraintTypes()
	if calls != 1 {
		t.Fatalf("lazy resolved %d times", calls)
	}
}

func TestConcurrentFirstComputation(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	iface := f.iface("IFace")
	_, ps := f.method("M", "T", "U", "V")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{f.ref(ps[1]), plain(iface)}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{f.ref(ps[2])}})
	f.arena.SetSpec(ps[2], Spec{Constraints: []ConstraintType{plain(c), f.ref(ps[0])}})
	f.arena.Seal()

	type snapshot struct {
		base  types.TypeID
		ref   bool
		null  Tri
		iface int
	}
	const workers = 16
	results := make([][]snapshot, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ps {
				s := f.arena.Symbol(ps[(i+w)%len(ps)])
				results[w] = append(results[w], snapshot{
					base:  s.EffectiveBaseClass(),
					ref:   s.IsReferenceType(),
					null:  s.IsNotNullableIfReferenceType(),
					iface: len(s.AllEffectiveInterfaces()),
				})
			}
		}()
	}
	wg.Wait()

	canon := func(w int) map[int]snapshot {
		m := map[int]snapshot{}
		for i, snap := range results[w] {
			m[(i+w)%len(ps)] = snap
		}
		return m
	}
	want := canon(0)
	for w := 1; w < workers; w++ {
		got := canon(w)
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("worker %d param %d: %+v != %+v", w, k, got[k], v)
			}
		}
	}
}

func TestBaseConstraintConflict(t *testing.T) {
	f := newFixture(t)
	a := f.class("A")
	b := f.class("B")
	_, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(a), plain(b)}})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])
	if s.EffectiveBaseClass() != a {
		t.Fatalf("first base wins on conflict, got %s", f.in.String(s.EffectiveBaseClass()))
	}
	if !diagSet(s.Group().Diagnostics()).Has(diag.TypeParamBaseConstraintConflict) {
		t.Fatalf("expected conflict diagnostic")
	}
}

func TestErrorTypesDoNotCompeteForBase(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	missing := f.in.ErrorType("Missing")
	_, ps := f.method("M", "T", "U", "V", "W")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(missing)}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{plain(missing), plain(c)}})
	f.arena.SetSpec(ps[2], Spec{Constraints: []ConstraintType{plain(c), plain(missing)}})
	f.arena.SetSpec(ps[3], Spec{Constraints: []ConstraintType{f.ref(ps[0])}})
	f.arena.Seal()

	want := []types.TypeID{f.b.Object, c, c, f.b.Object}
	for i, id := range ps {
		s := f.arena.Symbol(id)
		if s.EffectiveBaseClass() != want[i] || s.DeducedBaseType() != want[i] {
			t.Fatalf("%s: expected %s, got eff=%s ded=%s", s.Name(), f.in.String(want[i]),
				f.in.String(s.EffectiveBaseClass()), f.in.String(s.DeducedBaseType()))
		}
	}
	if ds := f.arena.Symbol(ps[0]).Group().Diagnostics(); len(ds) != 0 {
		t.Fatalf("error types must not conflict with classes: %v", ds)
	}
	if f.arena.Symbol(ps[0]).IsReferenceType() || f.arena.Symbol(ps[0]).IsValueType() {
		t.Fatalf("unresolved constraints classify as neither reference nor value")
	}
}

func TestMoreDerivedBaseWins(t *testing.T) {
	f := newFixture(t)
	base := f.class("Base")
	derived := f.class("Derived")
	f.in.SetBase(derived, base)
	_, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(base), plain(derived)}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{plain(derived), plain(base)}})
	f.arena.Seal()
	for _, id := range ps {
		s := f.arena.Symbol(id)
		if s.EffectiveBaseClass() != derived {
			t.Fatalf("%s: expected Derived, got %s", s.Name(), f.in.String(s.EffectiveBaseClass()))
		}
		if len(s.Group().Diagnostics()) != 0 {
			t.Fatalf("related bases must not conflict: %v", s.Group().Diagnostics())
		}
	}
}

func TestAllEffectiveInterfaces(t *testing.T) {
	f := newFixture(t)
	ia := f.iface("IA")
	ib := f.iface("IB", ia)
	ic := f.iface("IC")
	c := f.class("C")
	f.in.SetInterfaces(c, []types.TypeID{ic})
	_, ps := f.method("M", "T")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(c), plain(ib)}})
	f.arena.Seal()
	s := f.arena.Symbol(ps[0])

	if got := s.EffectiveInterfaces(); !slices.Equal(got, []types.TypeID{ib}) {
		t.Fatalf("effective interfaces: %v", got)
	}
	all := s.AllEffectiveInterfaces()
	for _, want := range []types.TypeID{ia, ib, ic} {
		if !slices.Contains(all, want) {
			t.Fatalf("all interfaces %v missing %s", all, f.in.String(want))
		}
	}
}

func TestWalkerVisitsInDeclarationOrder(t *testing.T) {
	f := newFixture(t)
	a := f.class("A")
	b := f.class("B")
	c := f.class("C")
	_, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(a), f.ref(ps[1]), plain(b)}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{plain(c)}})
	f.arena.Seal()

	var seen []types.TypeID
	w := f.arena.NewWalker()
	w.MarkInProgress(ps[0])
	stopped := w.Walk(f.arena.Symbol(ps[0]).spec.Constraints, PhaseEarly, nil, func(t types.TypeID) bool {
		seen = append(seen, t)
		return false
	})
	if stopped {
		t.Fatalf("walk must not stop")
	}
	if !slices.Equal(seen, []types.TypeID{a, c, b}) {
		t.Fatalf("unexpected order %v", seen)
	}
	if !w.InProgress(ps[1]) {
		t.Fatalf("U must be recorded as entered")
	}
}

func TestSubstitutedParameters(t *testing.T) {
	f := newFixture(t)
	def := f.class("Outer")
	outer := f.arena.DeclareType("Outer", NoDeclID, def)
	tp := f.arena.AddParam(outer, "T")
	f.in.SetParams(def, []types.TypeID{f.arena.ParamType(tp)})
	m := f.arena.DeclareMethod("M", outer)
	up := f.arena.AddParam(m, "U")
	f.arena.SetSpec(up, Spec{Constraints: []ConstraintType{f.ref(tp)}})
	f.arena.Seal()

	outerString := f.in.Instance(def, []types.TypeID{f.b.String})
	outerInt := f.in.Instance(def, []types.TypeID{f.b.Int})

	d1, err := f.arena.Substitute(m, outerString)
	if err != nil {
		t.Fatalf("substitute: %v", err)
	}
	d2, _ := f.arena.Substitute(m, outerString)
	d3, _ := f.arena.Substitute(m, outerInt)

	u1 := f.arena.Symbol(f.arena.Decl(d1).Params()[0])
	u2 := f.arena.Symbol(f.arena.Decl(d2).Params()[0])
	u3 := f.arena.Symbol(f.arena.Decl(d3).Params()[0])

	if u1.Kind() != KindSubstituted || u1.OriginalDefinition().ID() != up {
		t.Fatalf("substituted symbol must point at its original")
	}
	if got := u1.ConstraintTypes(); len(got) != 1 || got[0].Type != f.b.String {
		t.Fatalf("expected [string], got %v", got)
	}
	if u1.EffectiveBaseClass() != f.b.String || !u1.IsReferenceType() {
		t.Fatalf("U in Outer<string> should derive from string")
	}
	if !u3.IsValueType() || u3.DeducedBaseType() != f.b.Int || u3.EffectiveBaseClass() != f.b.ValueType {
		t.Fatalf("U in Outer<int> should be a value type with deduced base int")
	}
	if !u1.Equal(u2) || u1.Hash() != u2.Hash() {
		t.Fatalf("same original and container must be equal")
	}
	if u1.Equal(u3) {
		t.Fatalf("different containers must not be equal")
	}
	if u1.Equal(f.arena.Symbol(up)) {
		t.Fatalf("substituted symbol must differ from the definition")
	}
	if len(f.arena.Decl(d1).Group().Diagnostics()) != 0 {
		t.Fatalf("substitution must not produce declaration diagnostics")
	}
}

func TestSubstituteRejectsForeignContainer(t *testing.T) {
	f := newFixture(t)
	def := f.class("Outer")
	other := f.class("Other")
	outer := f.arena.DeclareType("Outer", NoDeclID, def)
	m := f.arena.DeclareMethod("M", outer)
	f.arena.AddParam(m, "U")
	f.arena.Seal()
	if _, err := f.arena.Substitute(m, other); err == nil {
		t.Fatalf("expected error for unrelated container")
	}
	top, _ := f.method("N", "V")
	if _, err := f.arena.Substitute(top, def); err == nil {
		t.Fatalf("expected error for top-level method")
	}
}

func TestSynthesizedParameters(t *testing.T) {
	f := newFixture(t)
	c := f.class("C")
	m, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(c)}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{f.ref(ps[0])}, Variance: Covariant})
	f.arena.Seal()

	d, err := f.arena.Synthesize(m, "M$clone", NoDeclID)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	clones := f.arena.Decl(d).Params()
	u := f.arena.Symbol(clones[1])
	if u.Kind() != KindSynthesized || u.OriginalDefinition() != u {
		t.Fatalf("synthesized symbol is its own original")
	}
	if got := u.ConstraintTypes(); len(got) != 1 || got[0].Type != f.arena.ParamType(clones[0]) {
		t.Fatalf("constraint must be renamed to the cloned T, got %v", got)
	}
	if u.EffectiveBaseClass() != c || u.Variance() != Covariant {
		t.Fatalf("clone must keep bounds and variance")
	}
	if u.Equal(f.arena.Symbol(ps[1])) {
		t.Fatalf("clone must not equal the source parameter")
	}
}

func TestUseSiteDiagnostics(t *testing.T) {
	f := newFixture(t)
	secret := f.class("Secret")
	f.in.SetUseSiteError(secret, diag.NewError(diag.UseSiteUnusableType, "Secret", "type 'Secret' is not usable"))
	list := f.class("List")
	f.in.SetParams(list, []types.TypeID{f.in.TypeParam(1000, "E")})
	listSecret := f.in.Instance(list, []types.TypeID{secret})

	_, ps := f.method("M", "T", "U")
	f.arena.SetSpec(ps[0], Spec{Constraints: []ConstraintType{plain(listSecret)}})
	f.arena.SetSpec(ps[1], Spec{Constraints: []ConstraintType{f.ref(ps[0])}})
	f.arena.SetUseSiteError(ps[0], diag.NewError(diag.UseSiteInaccessible, "M.T", "type parameter 'T' is inaccessible"))
	f.arena.Seal()

	var set diag.Set
	f.arena.Symbol(ps[0]).CollectUseSiteDiagnostics(&set)
	if !set.Has(diag.UseSiteUnusableType) || !set.Has(diag.UseSiteInaccessible) {
		t.Fatalf("expected both use-site diagnostics, got %v", set.Sorted())
	}

	var viaU diag.Set
	f.arena.Symbol(ps[1]).CollectUseSiteDiagnostics(&viaU)
	if !viaU.Has(diag.UseSiteInaccessible) || viaU.Has(diag.UseSiteUnusableType) {
		t.Fatalf("U must report T's own use-site error only, got %v", viaU.Sorted())
	}
}

func TestParseExclusion(t *testing.T) {
	set, err := ParseExclusion([]string{"interface", " Object ", "array"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := ExcludeInterface | ExcludeObject | ExcludeArray; set != want {
		t.Fatalf("got %v, want %v", set.Names(), want.Names())
	}
	if _, err := ParseExclusion([]string{"struct"}); err == nil {
		t.Fatalf("expected error for unknown name")
	}
}

func diagSet(ds []diag.Diagnostic) *diag.Set {
	var s diag.Set
	for _, d := range ds {
		s.Add(d)
	}
	return &s
}
