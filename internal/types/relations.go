package types

// Relation queries may construct new instances while substituting bases and
// interfaces of generic types, so they take the write lock.

// EffectiveKind reports the kind of id, looking through construction.
func (in *Interner) EffectiveKind(id TypeID) Kind {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.effectiveKindLocked(id)
}

func (in *Interner) effectiveKindLocked(id TypeID) Kind {
	tt, ok := in.lookupLocked(id)
	if !ok {
		return KindInvalid
	}
	if tt.Kind == KindInstance {
		origin, _ := in.lookupLocked(in.instances[tt.Payload].Origin)
		return origin.Kind
	}
	return tt.Kind
}

// IsReferenceType reports whether values of id are references. Error types
// count as reference types. Type parameters are never classified here.
func (in *Interner) IsReferenceType(id TypeID) bool {
	switch in.EffectiveKind(id) {
	case KindClass, KindInterface, KindDelegate, KindArray, KindError:
		return true
	}
	return false
}

// IsValueType reports whether id is a non-nullable value type.
func (in *Interner) IsValueType(id TypeID) bool {
	switch in.EffectiveKind(id) {
	case KindPrimitive, KindStruct, KindEnum:
		return true
	}
	return false
}

// IsInterface reports whether id is an interface type.
func (in *Interner) IsInterface(id TypeID) bool {
	return in.EffectiveKind(id) == KindInterface
}

// IsUnmanaged reports whether id contains no references at any depth.
func (in *Interner) IsUnmanaged(id TypeID) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.isUnmanagedLocked(id, make(map[TypeID]struct{}))
}

func (in *Interner) isUnmanagedLocked(id TypeID, inProgress map[TypeID]struct{}) bool {
	switch in.effectiveKindLocked(id) {
	case KindPrimitive, KindEnum, KindPointer:
		return true
	case KindStruct:
	default:
		return false
	}
	// A struct that contains itself is invalid anyway; treat the cycle as
	// satisfied so the answer does not depend on where the walk started.
	if _, ok := inProgress[id]; ok {
		return true
	}
	inProgress[id] = struct{}{}
	defer delete(inProgress, id)
	info := in.nominalLocked(id)
	subst := in.instanceSubstLocked(id)
	for _, field := range info.Fields {
		if subst != nil {
			field = in.substituteLocked(field, subst)
		}
		if !in.isUnmanagedLocked(field, inProgress) {
			return false
		}
	}
	return true
}

// BaseType returns the direct base class of id, or NoTypeID.
func (in *Interner) BaseType(id TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.baseLocked(id)
}

func (in *Interner) baseLocked(id TypeID) TypeID {
	tt, ok := in.lookupLocked(id)
	if !ok {
		return NoTypeID
	}
	switch tt.Kind {
	case KindArray:
		return in.builtins.Array
	case KindPointer, KindTypeParam, KindError:
		return NoTypeID
	}
	info := in.nominalLocked(id)
	if info == nil || info.Base == NoTypeID {
		return NoTypeID
	}
	if subst := in.instanceSubstLocked(id); subst != nil {
		return in.substituteLocked(info.Base, subst)
	}
	return info.Base
}

// Interfaces returns the interfaces declared directly on id.
func (in *Interner) Interfaces(id TypeID) []TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.interfacesLocked(id)
}

func (in *Interner) interfacesLocked(id TypeID) []TypeID {
	info := in.nominalLocked(id)
	if info == nil || len(info.Interfaces) == 0 {
		return nil
	}
	out := make([]TypeID, len(info.Interfaces))
	subst := in.instanceSubstLocked(id)
	for i, iface := range info.Interfaces {
		if subst != nil {
			iface = in.substituteLocked(iface, subst)
		}
		out[i] = iface
	}
	return out
}

// AllInterfaces returns every interface id implements, through its base
// chain and interface inheritance, deduplicated in discovery order. For an
// interface the result excludes the interface itself.
func (in *Interner) AllInterfaces(id TypeID) []TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.allInterfacesLocked(id)
}

func (in *Interner) allInterfacesLocked(id TypeID) []TypeID {
	var out []TypeID
	seen := make(map[TypeID]struct{})
	var addWithBases func(iface TypeID)
	addWithBases = func(iface TypeID) {
		if _, ok := seen[iface]; ok {
			return
		}
		seen[iface] = struct{}{}
		out = append(out, iface)
		for _, b := range in.interfacesLocked(iface) {
			addWithBases(b)
		}
	}
	seen[id] = struct{}{}
	visitedBases := make(map[TypeID]struct{})
	for cur := id; cur != NoTypeID; cur = in.baseLocked(cur) {
		if _, ok := visitedBases[cur]; ok {
			break
		}
		visitedBases[cur] = struct{}{}
		for _, iface := range in.interfacesLocked(cur) {
			addWithBases(iface)
		}
	}
	return out
}

// IsEncompassedBy reports whether a converts to b by identity, reference or
// boxing conversion.
func (in *Interner) IsEncompassedBy(a, b TypeID) bool {
	if a == b {
		return true
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if a == NoTypeID || b == NoTypeID {
		return false
	}
	if in.effectiveKindLocked(a) == KindPointer {
		return false
	}
	if b == in.builtins.Object {
		return true
	}
	visited := make(map[TypeID]struct{})
	for cur := in.baseLocked(a); cur != NoTypeID; cur = in.baseLocked(cur) {
		if cur == b {
			return true
		}
		if _, ok := visited[cur]; ok {
			break
		}
		visited[cur] = struct{}{}
	}
	if in.effectiveKindLocked(b) == KindInterface {
		for _, iface := range in.allInterfacesLocked(a) {
			if iface == b {
				return true
			}
		}
	}
	return false
}
