package driver

import (
	"tpcheck/internal/diag"
	"tpcheck/internal/tparams"
	"tpcheck/internal/types"
)

// ParamFacts is the resolved view of one type parameter.
type ParamFacts struct {
	Decl          string   `json:"decl"`
	Name          string   `json:"name"`
	Ordinal       int      `json:"ordinal"`
	Kind          string   `json:"kind"`
	Variance      string   `json:"variance"`
	Flags         []string `json:"flags,omitempty"`
	Constraints   []string `json:"constraints,omitempty"`
	EffectiveBase string   `json:"effective_base"`
	DeducedBase   string   `json:"deduced_base"`
	Interfaces    []string `json:"interfaces,omitempty"`
	AllInterfaces []string `json:"all_interfaces,omitempty"`
	IsReference   bool     `json:"is_reference"`
	IsValue       bool     `json:"is_value"`
	IsUnmanaged   bool     `json:"is_unmanaged"`
	NotNullable   string   `json:"not_nullable"`
}

// FileReport is the outcome of one declaration file.
type FileReport struct {
	Path        string            `json:"path"`
	Hash        string            `json:"hash"`
	Exclusion   []string          `json:"exclusion"`
	Params      []ParamFacts      `json:"params"`
	Diagnostics []diag.Diagnostic `json:"-"`
	// Cached is set when the report came from the disk cache.
	Cached bool `json:"cached" msgpack:"-"`
}

// HasErrors reports whether any diagnostic is an error.
func (r *FileReport) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

func collectFacts(s *tparams.Symbol, in *types.Interner) ParamFacts {
	f := ParamFacts{
		Decl:          s.Declaration().QualifiedName(),
		Name:          s.Name(),
		Ordinal:       s.Ordinal(),
		Kind:          s.Kind().String(),
		Variance:      s.Variance().String(),
		Flags:         s.Flags().Names(),
		EffectiveBase: in.String(s.EffectiveBaseClass()),
		DeducedBase:   in.String(s.DeducedBaseType()),
		Interfaces:    typeNames(in, s.EffectiveInterfaces()),
		AllInterfaces: typeNames(in, s.AllEffectiveInterfaces()),
		IsReference:   s.IsReferenceType(),
		IsValue:       s.IsValueType(),
		IsUnmanaged:   s.IsUnmanagedType(),
		NotNullable:   s.IsNotNullableIfReferenceType().String(),
	}
	if s.HasReferenceTypeConstraint() {
		f.Flags = annotateClassFlag(f.Flags, s.ReferenceTypeConstraintIsNullable())
	}
	for _, ct := range s.ConstraintTypes() {
		f.Constraints = append(f.Constraints, constraintString(in, ct))
	}
	return f
}

func typeNames(in *types.Interner, ids []types.TypeID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = in.String(id)
	}
	return out
}

func constraintString(in *types.Interner, ct tparams.ConstraintView) string {
	name := in.String(ct.Type)
	switch ct.Annotation {
	case tparams.Annotated:
		return name + "?"
	case tparams.Oblivious:
		return "~" + name
	}
	return name
}

// annotateClassFlag renders the class flag the way it was written.
func annotateClassFlag(flags []string, ann tparams.Annotation) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		if f == "class" {
			switch ann {
			case tparams.Annotated:
				f = "class?"
			case tparams.Oblivious:
				f = "~class"
			}
		}
		out[i] = f
	}
	return out
}
