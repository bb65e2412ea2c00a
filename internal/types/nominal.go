package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"tpcheck/internal/diag"
)

// NominalInfo stores metadata for a named type.
type NominalInfo struct {
	Name       string
	Special    Special
	Base       TypeID
	Interfaces []TypeID
	Sealed     bool
	Fields     []TypeID // struct fields, used for the unmanaged check
	Params     []TypeID // type parameters of a generic definition
	UseSite    *diag.Diagnostic
}

// RegisterNominal allocates a nominal type slot and returns its TypeID.
// Classes without an explicit base derive from object.
func (in *Interner) RegisterNominal(kind Kind, name string) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := NominalInfo{Name: name}
	switch kind {
	case KindClass, KindDelegate:
		info.Base = in.builtins.Object
	case KindStruct, KindPrimitive:
		info.Base = in.builtins.ValueType
	case KindEnum:
		info.Base = in.builtins.Enum
	case KindInterface:
	default:
		panic(fmt.Errorf("types: %v is not a nominal kind", kind))
	}
	return in.registerNominalLocked(kind, info)
}

func (in *Interner) registerNominalLocked(kind Kind, info NominalInfo) TypeID {
	slot, err := safecast.Conv[uint32](len(in.nominals))
	if err != nil {
		panic(fmt.Errorf("nominal info overflow: %w", err))
	}
	in.nominals = append(in.nominals, info)
	return in.internRawLocked(Type{Kind: kind, Payload: slot})
}

// ErrorType returns the error type standing for an unresolved name.
func (in *Interner) ErrorType(name string) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.errorTypeLocked(name)
}

func (in *Interner) errorTypeLocked(name string) TypeID {
	if id, ok := in.errors[name]; ok {
		return id
	}
	useSite := diag.NewError(diag.UseSiteErrorType, name, fmt.Sprintf("type '%s' could not be resolved", name))
	id := in.registerNominalLocked(KindError, NominalInfo{Name: name, UseSite: &useSite})
	in.errors[name] = id
	return id
}

// Nominal returns metadata for a nominal TypeID. Instances report the
// metadata of their generic definition.
func (in *Interner) Nominal(id TypeID) (NominalInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	info := in.nominalLocked(id)
	if info == nil {
		return NominalInfo{}, false
	}
	return *info, true
}

func (in *Interner) nominalLocked(id TypeID) *NominalInfo {
	tt, ok := in.lookupLocked(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case KindPrimitive, KindClass, KindStruct, KindInterface, KindEnum, KindDelegate, KindError:
		if tt.Payload == 0 || int(tt.Payload) >= len(in.nominals) {
			return nil
		}
		return &in.nominals[tt.Payload]
	case KindInstance:
		return in.nominalLocked(in.instances[tt.Payload].Origin)
	}
	return nil
}

// Special reports the well-known role of id, if any.
func (in *Interner) Special(id TypeID) Special {
	in.mu.RLock()
	defer in.mu.RUnlock()
	tt, ok := in.lookupLocked(id)
	if !ok || tt.Kind == KindInstance {
		return SpecialNone
	}
	if info := in.nominalLocked(id); info != nil {
		return info.Special
	}
	return SpecialNone
}

func (in *Interner) mutateNominal(id TypeID, fn func(*NominalInfo)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	tt, ok := in.lookupLocked(id)
	if !ok || tt.Kind == KindInstance {
		return
	}
	if info := in.nominalLocked(id); info != nil {
		fn(info)
	}
}

// SetBase records the base class of a class type.
func (in *Interner) SetBase(id, base TypeID) {
	in.mutateNominal(id, func(info *NominalInfo) { info.Base = base })
}

// SetInterfaces records the directly implemented (or inherited, for
// interfaces) interfaces.
func (in *Interner) SetInterfaces(id TypeID, ifaces []TypeID) {
	in.mutateNominal(id, func(info *NominalInfo) { info.Interfaces = slices.Clone(ifaces) })
}

// SetSealed marks a class as sealed.
func (in *Interner) SetSealed(id TypeID, sealed bool) {
	in.mutateNominal(id, func(info *NominalInfo) { info.Sealed = sealed })
}

// SetFields records struct field types.
func (in *Interner) SetFields(id TypeID, fields []TypeID) {
	in.mutateNominal(id, func(info *NominalInfo) { info.Fields = slices.Clone(fields) })
}

// SetParams records the type parameters of a generic definition.
func (in *Interner) SetParams(id TypeID, params []TypeID) {
	in.mutateNominal(id, func(info *NominalInfo) { info.Params = slices.Clone(params) })
}

// SetUseSiteError marks a type as unusable at its use sites.
func (in *Interner) SetUseSiteError(id TypeID, d diag.Diagnostic) {
	in.mutateNominal(id, func(info *NominalInfo) { info.UseSite = &d })
}
