package types

import "tpcheck/internal/diag"

// CollectUseSite merges the use-site diagnostics of id into into. Constructed
// types contribute their definition and every argument; arrays and pointers
// contribute their element type.
func (in *Interner) CollectUseSite(id TypeID, into diag.Reporter) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	in.collectUseSiteLocked(id, into)
}

func (in *Interner) collectUseSiteLocked(id TypeID, into diag.Reporter) {
	tt, ok := in.lookupLocked(id)
	if !ok {
		return
	}
	switch tt.Kind {
	case KindArray, KindPointer:
		in.collectUseSiteLocked(tt.Elem, into)
		return
	case KindTypeParam:
		return
	case KindInstance:
		inst := in.instances[tt.Payload]
		in.collectUseSiteLocked(inst.Origin, into)
		for _, a := range inst.Args {
			in.collectUseSiteLocked(a, into)
		}
		return
	}
	if info := in.nominalLocked(id); info != nil && info.UseSite != nil {
		into.Report(*info.UseSite)
	}
}
