package binder

import (
	"fmt"

	"tpcheck/internal/declfile"
	"tpcheck/internal/diag"
	"tpcheck/internal/tparams"
	"tpcheck/internal/types"
)

// bindClause turns the constraint strings of one parameter into a Spec.
// Kind keywords come first and new() comes last; duplicates are dropped with
// a warning and a parameter constrained by itself loses that entry.
func (b *binder) bindClause(pid tparams.ParamID, pd *declfile.ParamDecl, sc *scope, prefix string) {
	if !pid.IsValid() {
		return
	}
	sym := b.arena.Symbol(pid)
	subject := sym.Subject()
	variance, err := tparams.ParseVariance(pd.Variance)
	if err != nil {
		diag.ReportError(b.rep, diag.DeclUnknownVariance, subject, err.Error()).Emit()
	}
	spec := tparams.Spec{Variance: variance}

	primary := ""
	sawType, sawCtor := false, false
	seen := make(map[types.TypeID]string, len(pd.Constraints))
	for _, raw := range pd.Constraints {
		entry, err := parseConstraint(raw)
		if err != nil {
			diag.ReportError(b.rep, diag.DeclBadTypeExpr, subject, err.Error()).Emit()
			continue
		}

		switch entry.keyword {
		case "":
		case "new()":
			if sawCtor {
				b.reportDuplicate(subject, raw, raw)
				continue
			}
			if spec.Flags.Has(tparams.FlagValueType) {
				diag.ReportError(b.rep, diag.BindConflictingKinds, subject,
					fmt.Sprintf("'new()' cannot be combined with '%s' on '%s'", primary, pd.Name)).Emit()
				continue
			}
			sawCtor = true
			spec.Flags |= tparams.FlagConstructor
			continue
		default:
			if sawType || sawCtor {
				diag.ReportError(b.rep, diag.BindConstraintKindPosition, subject,
					fmt.Sprintf("'%s' must come before other constraints on '%s'", entry.keyword, pd.Name)).Emit()
			}
			if primary != "" {
				if primary == entry.keyword {
					b.reportDuplicate(subject, raw, primary)
				} else {
					diag.ReportError(b.rep, diag.BindConflictingKinds, subject,
						fmt.Sprintf("'%s' conflicts with '%s' on '%s'", entry.keyword, primary, pd.Name)).Emit()
				}
				continue
			}
			primary = entry.keyword
			switch entry.keyword {
			case "class":
				spec.Flags |= tparams.FlagReferenceType
				spec.ReferenceAnnotation = entry.annotation
			case "struct":
				spec.Flags |= tparams.FlagValueType
			case "unmanaged":
				spec.Flags |= tparams.FlagValueType | tparams.FlagUnmanagedType
			case "notnull":
				spec.Flags |= tparams.FlagNotNull
			}
			continue
		}

		if sawCtor {
			diag.ReportError(b.rep, diag.BindConstraintKindPosition, subject,
				fmt.Sprintf("'new()' must be the last constraint on '%s'", pd.Name)).Emit()
		}
		sawType = true
		t := b.resolve(entry.expr, sc, prefix, subject)
		if t == sym.Type() {
			diag.ReportError(b.rep, diag.BindSelfConstraint, subject,
				fmt.Sprintf("type parameter '%s' cannot be constrained by itself", pd.Name)).Emit()
			continue
		}
		if prev, dup := seen[t]; dup {
			b.reportDuplicate(subject, raw, prev)
			continue
		}
		seen[t] = raw
		ct := tparams.ConstraintType{Type: t, Annotation: entry.annotation}
		if entry.lazy {
			resolved := ct
			fallback := tparams.ConstraintType{Type: b.in.Builtins().Unresolved, Annotation: tparams.NotAnnotated}
			ct = tparams.Lazy(fallback, func() tparams.ConstraintType { return resolved })
		}
		spec.Constraints = append(spec.Constraints, ct)
	}
	b.arena.SetSpec(pid, spec)
}

func (b *binder) reportDuplicate(subject, raw, prev string) {
	diag.ReportWarning(b.rep, diag.BindDuplicateConstraint, subject,
		fmt.Sprintf("duplicate constraint '%s' in clause of '%s'", raw, subject)).
		WithNote(subject, fmt.Sprintf("previous constraint '%s'", prev)).
		Emit()
}
