package types

import (
	"fmt"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the predeclared types.
type Builtins struct {
	Object     TypeID
	ValueType  TypeID
	Enum       TypeID
	Array      TypeID
	String     TypeID
	Int        TypeID
	Bool       TypeID
	Float      TypeID
	Char       TypeID
	Unresolved TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Registration happens while binding; after that the interner may be read and
// extended (instances, arrays) from several goroutines.
type Interner struct {
	mu        sync.RWMutex
	types     []Type
	index     map[Type]TypeID
	builtins  Builtins
	nominals  []NominalInfo
	instances []InstanceInfo
	instIndex map[string]TypeID
	params    map[uint32]TypeID
	names     map[TypeID]string
	errors    map[string]TypeID
}

// NewInterner constructs an interner seeded with the predeclared types.
func NewInterner() *Interner {
	in := &Interner{
		types:     make([]Type, 1, 64), // reserve 0 as NoTypeID
		index:     make(map[Type]TypeID, 64),
		nominals:  make([]NominalInfo, 1, 32),
		instances: make([]InstanceInfo, 1, 8),
		instIndex: make(map[string]TypeID),
		params:    make(map[uint32]TypeID),
		names:     make(map[TypeID]string),
		errors:    make(map[string]TypeID),
	}
	b := &in.builtins
	b.Object = in.registerNominalLocked(KindClass, NominalInfo{Name: "object", Special: SpecialObject})
	b.ValueType = in.registerNominalLocked(KindClass, NominalInfo{Name: "ValueType", Special: SpecialValueType, Base: b.Object})
	b.Enum = in.registerNominalLocked(KindClass, NominalInfo{Name: "Enum", Special: SpecialEnum, Base: b.ValueType})
	b.Array = in.registerNominalLocked(KindClass, NominalInfo{Name: "Array", Special: SpecialArray, Base: b.Object})
	b.String = in.registerNominalLocked(KindClass, NominalInfo{Name: "string", Special: SpecialString, Base: b.Object, Sealed: true})
	b.Int = in.registerNominalLocked(KindPrimitive, NominalInfo{Name: "int", Base: b.ValueType, Sealed: true})
	b.Bool = in.registerNominalLocked(KindPrimitive, NominalInfo{Name: "bool", Base: b.ValueType, Sealed: true})
	b.Float = in.registerNominalLocked(KindPrimitive, NominalInfo{Name: "float", Base: b.ValueType, Sealed: true})
	b.Char = in.registerNominalLocked(KindPrimitive, NominalInfo{Name: "char", Base: b.ValueType, Sealed: true})
	b.Unresolved = in.errorTypeLocked("?")
	return in
}

// Builtins returns TypeIDs for the predeclared types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Predeclared lists the predeclared types by name.
func (in *Interner) Predeclared() map[string]TypeID {
	b := in.builtins
	return map[string]TypeID{
		"object":    b.Object,
		"ValueType": b.ValueType,
		"Enum":      b.Enum,
		"Array":     b.Array,
		"string":    b.String,
		"int":       b.Int,
		"bool":      b.Bool,
		"float":     b.Float,
		"char":      b.Char,
	}
}

// Intern ensures the provided structural descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(t)
}

func (in *Interner) internLocked(t Type) TypeID {
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRawLocked(t)
}

// internRawLocked adds the descriptor to the storage without consulting the map.
func (in *Interner) internRawLocked(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.lookupLocked(id)
}

func (in *Interner) lookupLocked(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// Kind reports the kind of id, KindInvalid for unknown ids.
func (in *Interner) Kind(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// TypeParam returns the TypeID standing for the type parameter with the given
// arena handle, registering it on first use.
func (in *Interner) TypeParam(handle uint32, name string) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.params[handle]; ok {
		return id
	}
	id := in.internRawLocked(Type{Kind: KindTypeParam, Payload: handle})
	in.params[handle] = id
	in.names[id] = name
	return id
}

// TypeParamHandle returns the arena handle behind a type-parameter TypeID.
func (in *Interner) TypeParamHandle(id TypeID) (uint32, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypeParam {
		return 0, false
	}
	return tt.Payload, true
}

// Array interns the array type of elem.
func (in *Interner) Array(elem TypeID) TypeID {
	return in.Intern(MakeArray(elem))
}

// Pointer interns the pointer type of elem.
func (in *Interner) Pointer(elem TypeID) TypeID {
	return in.Intern(MakePointer(elem))
}

// String renders id the way it would be written in a declaration file.
func (in *Interner) String(id TypeID) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	var sb strings.Builder
	in.writeLocked(&sb, id)
	return sb.String()
}

func (in *Interner) writeLocked(sb *strings.Builder, id TypeID) {
	tt, ok := in.lookupLocked(id)
	if !ok {
		sb.WriteString("<none>")
		return
	}
	switch tt.Kind {
	case KindArray:
		in.writeLocked(sb, tt.Elem)
		sb.WriteString("[]")
	case KindPointer:
		in.writeLocked(sb, tt.Elem)
		sb.WriteString("*")
	case KindTypeParam:
		sb.WriteString(in.names[id])
	case KindInstance:
		inst := in.instances[tt.Payload]
		in.writeLocked(sb, inst.Origin)
		sb.WriteByte('<')
		for i, arg := range inst.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.writeLocked(sb, arg)
		}
		sb.WriteByte('>')
	default:
		sb.WriteString(in.nominals[tt.Payload].Name)
	}
}
