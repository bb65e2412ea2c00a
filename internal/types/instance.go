package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// InstanceInfo stores a constructed generic type.
type InstanceInfo struct {
	Origin TypeID
	Args   []TypeID
}

// Instance interns origin<args...>. Supplying the definition's own type
// parameters yields the definition itself.
func (in *Interner) Instance(origin TypeID, args []TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.instanceLocked(origin, args)
}

func (in *Interner) instanceLocked(origin TypeID, args []TypeID) TypeID {
	info := in.nominalLocked(origin)
	if info == nil || len(args) == 0 {
		return origin
	}
	if slices.Equal(info.Params, args) {
		return origin
	}
	key := instanceKey(origin, args)
	if id, ok := in.instIndex[key]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.instances))
	if err != nil {
		panic(fmt.Errorf("instance info overflow: %w", err))
	}
	in.instances = append(in.instances, InstanceInfo{Origin: origin, Args: slices.Clone(args)})
	id := in.internRawLocked(Type{Kind: KindInstance, Payload: slot})
	in.instIndex[key] = id
	return id
}

func instanceKey(origin TypeID, args []TypeID) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(uint64(origin), 10))
	for _, a := range args {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return sb.String()
}

// InstanceInfo returns origin and arguments of a constructed type.
func (in *Interner) InstanceInfo(id TypeID) (InstanceInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	tt, ok := in.lookupLocked(id)
	if !ok || tt.Kind != KindInstance {
		return InstanceInfo{}, false
	}
	inst := in.instances[tt.Payload]
	return InstanceInfo{Origin: inst.Origin, Args: slices.Clone(inst.Args)}, true
}

// OriginalDefinition strips construction: List<int> becomes List.
func (in *Interner) OriginalDefinition(id TypeID) TypeID {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.originalLocked(id)
}

func (in *Interner) originalLocked(id TypeID) TypeID {
	tt, ok := in.lookupLocked(id)
	if ok && tt.Kind == KindInstance {
		return in.instances[tt.Payload].Origin
	}
	return id
}

// Substitute replaces type parameters in id according to subst.
func (in *Interner) Substitute(id TypeID, subst Subst) TypeID {
	if len(subst) == 0 {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.substituteLocked(id, subst)
}

func (in *Interner) substituteLocked(id TypeID, subst Subst) TypeID {
	if repl, ok := subst[id]; ok {
		return repl
	}
	tt, ok := in.lookupLocked(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case KindArray, KindPointer:
		elem := in.substituteLocked(tt.Elem, subst)
		if elem == tt.Elem {
			return id
		}
		return in.internLocked(Type{Kind: tt.Kind, Elem: elem})
	case KindInstance:
		inst := in.instances[tt.Payload]
		args := make([]TypeID, len(inst.Args))
		changed := false
		for i, a := range inst.Args {
			args[i] = in.substituteLocked(a, subst)
			changed = changed || args[i] != a
		}
		if !changed {
			return id
		}
		return in.instanceLocked(inst.Origin, args)
	}
	return id
}

// instanceSubstLocked maps the definition parameters of an instance onto its
// arguments. Returns nil for non-instances.
func (in *Interner) instanceSubstLocked(id TypeID) Subst {
	tt, ok := in.lookupLocked(id)
	if !ok || tt.Kind != KindInstance {
		return nil
	}
	inst := in.instances[tt.Payload]
	info := in.nominalLocked(inst.Origin)
	if info == nil {
		return nil
	}
	subst := make(Subst, len(info.Params))
	for i, p := range info.Params {
		if i < len(inst.Args) {
			subst[p] = inst.Args[i]
		}
	}
	return subst
}

// InstanceSubst exposes the parameter-to-argument map of a constructed type.
func (in *Interner) InstanceSubst(id TypeID) Subst {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.instanceSubstLocked(id)
}
