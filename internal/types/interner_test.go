package types

import (
	"slices"
	"testing"

	"tpcheck/internal/diag"
)

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Object == NoTypeID || b.ValueType == NoTypeID || b.Enum == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	if in.Special(b.Object) != SpecialObject || in.Special(b.Enum) != SpecialEnum {
		t.Fatalf("special roots not tagged")
	}
	if in.BaseType(b.Enum) != b.ValueType || in.BaseType(b.ValueType) != b.Object {
		t.Fatalf("root hierarchy is wrong")
	}
	if !in.IsValueType(b.Int) || !in.IsUnmanaged(b.Int) {
		t.Fatalf("int must be an unmanaged value type")
	}
	if !in.IsReferenceType(b.String) || in.IsValueType(b.String) {
		t.Fatalf("string must be a reference type")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int
	if in.Array(elem) != in.Array(elem) {
		t.Fatalf("array types should be deduplicated")
	}
	if in.Pointer(elem) == in.Array(elem) {
		t.Fatalf("pointer and array must differ")
	}
	if in.String(in.Array(in.Pointer(elem))) != "int*[]" {
		t.Fatalf("unexpected rendering %q", in.String(in.Array(in.Pointer(elem))))
	}
}

func TestInstanceCanonicalisation(t *testing.T) {
	in := NewInterner()
	list := in.RegisterNominal(KindClass, "List")
	e := in.TypeParam(1, "E")
	in.SetParams(list, []TypeID{e})

	if got := in.Instance(list, []TypeID{e}); got != list {
		t.Fatalf("instance over own parameters must be the definition")
	}
	a := in.Instance(list, []TypeID{in.Builtins().Int})
	b := in.Instance(list, []TypeID{in.Builtins().Int})
	if a != b {
		t.Fatalf("instances must be interned structurally")
	}
	if in.OriginalDefinition(a) != list {
		t.Fatalf("original definition of List<int> must be List")
	}
	if in.String(a) != "List<int>" {
		t.Fatalf("unexpected rendering %q", in.String(a))
	}
}

func TestSubstituteBaseAndInterfaces(t *testing.T) {
	in := NewInterner()
	ienum := in.RegisterNominal(KindInterface, "IEnumerable")
	x := in.TypeParam(1, "X")
	in.SetParams(ienum, []TypeID{x})

	list := in.RegisterNominal(KindClass, "List")
	e := in.TypeParam(2, "E")
	in.SetParams(list, []TypeID{e})
	in.SetInterfaces(list, []TypeID{in.Instance(ienum, []TypeID{e})})

	listInt := in.Instance(list, []TypeID{in.Builtins().Int})
	want := in.Instance(ienum, []TypeID{in.Builtins().Int})
	if got := in.AllInterfaces(listInt); !slices.Equal(got, []TypeID{want}) {
		t.Fatalf("expected [%s], got %v", in.String(want), got)
	}
	if !in.IsEncompassedBy(listInt, want) {
		t.Fatalf("List<int> must convert to IEnumerable<int>")
	}
	if in.IsEncompassedBy(want, listInt) {
		t.Fatalf("interface must not convert to implementing class")
	}
}

func TestEncompassedByBaseChain(t *testing.T) {
	in := NewInterner()
	animal := in.RegisterNominal(KindClass, "Animal")
	dog := in.RegisterNominal(KindClass, "Dog")
	in.SetBase(dog, animal)
	if !in.IsEncompassedBy(dog, animal) || in.IsEncompassedBy(animal, dog) {
		t.Fatalf("base chain relation is wrong")
	}
	if !in.IsEncompassedBy(dog, in.Builtins().Object) {
		t.Fatalf("everything converts to object")
	}
	s := in.RegisterNominal(KindStruct, "Point")
	if !in.IsEncompassedBy(s, in.Builtins().ValueType) {
		t.Fatalf("struct must box to ValueType")
	}
}

func TestUnmanagedStructs(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	point := in.RegisterNominal(KindStruct, "Point")
	in.SetFields(point, []TypeID{b.Int, b.Float})
	named := in.RegisterNominal(KindStruct, "Named")
	in.SetFields(named, []TypeID{b.String, b.Int})
	self := in.RegisterNominal(KindStruct, "Self")
	in.SetFields(self, []TypeID{self})

	if !in.IsUnmanaged(point) {
		t.Fatalf("Point has only unmanaged fields")
	}
	if in.IsUnmanaged(named) {
		t.Fatalf("Named holds a string")
	}
	if !in.IsUnmanaged(self) {
		t.Fatalf("self-containing struct must terminate")
	}

	pair := in.RegisterNominal(KindStruct, "Pair")
	p := in.TypeParam(9, "P")
	in.SetParams(pair, []TypeID{p})
	in.SetFields(pair, []TypeID{p})
	if !in.IsUnmanaged(in.Instance(pair, []TypeID{b.Int})) {
		t.Fatalf("Pair<int> is unmanaged")
	}
	if in.IsUnmanaged(in.Instance(pair, []TypeID{b.String})) {
		t.Fatalf("Pair<string> is managed")
	}
}

func TestCollectUseSite(t *testing.T) {
	in := NewInterner()
	secret := in.RegisterNominal(KindClass, "Secret")
	in.SetUseSiteError(secret, diag.NewError(diag.UseSiteInaccessible, "Secret", "inaccessible"))
	box := in.RegisterNominal(KindClass, "Box")
	p := in.TypeParam(3, "T")
	in.SetParams(box, []TypeID{p})

	var set diag.Set
	in.CollectUseSite(in.Array(in.Instance(box, []TypeID{secret})), &set)
	in.CollectUseSite(in.ErrorType("Missing"), &set)
	if set.Len() != 2 || !set.Has(diag.UseSiteInaccessible) || !set.Has(diag.UseSiteErrorType) {
		t.Fatalf("unexpected use-site set: %v", set.Sorted())
	}
}
