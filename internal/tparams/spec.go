package tparams

import (
	"fmt"
	"sync"
	"sync/atomic"

	"tpcheck/internal/types"
)

// KindFlags are the declared constraint kinds of a type parameter.
type KindFlags uint8

const (
	FlagReferenceType KindFlags = 1 << iota
	FlagValueType
	FlagUnmanagedType
	FlagConstructor
	FlagNotNull
)

// Has reports whether every bit of flag is set.
func (f KindFlags) Has(flag KindFlags) bool { return f&flag == flag }

// Names lists the set flags in declaration-keyword form.
func (f KindFlags) Names() []string {
	var out []string
	if f.Has(FlagReferenceType) {
		out = append(out, "class")
	}
	if f.Has(FlagUnmanagedType) {
		out = append(out, "unmanaged")
	} else if f.Has(FlagValueType) {
		out = append(out, "struct")
	}
	if f.Has(FlagNotNull) {
		out = append(out, "notnull")
	}
	if f.Has(FlagConstructor) {
		out = append(out, "new()")
	}
	return out
}

// Annotation is the nullable annotation carried by a constraint.
type Annotation uint8

const (
	NotApplicable Annotation = iota
	NotAnnotated
	Annotated
	Oblivious
)

func (a Annotation) String() string {
	switch a {
	case NotApplicable:
		return "n/a"
	case NotAnnotated:
		return "not-annotated"
	case Annotated:
		return "annotated"
	case Oblivious:
		return "oblivious"
	}
	return fmt.Sprintf("Annotation(%d)", a)
}

// Variance is the declared variance of a type parameter.
type Variance uint8

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "out"
	case Contravariant:
		return "in"
	}
	return "invariant"
}

// ParseVariance accepts "", "out" and "in".
func ParseVariance(s string) (Variance, error) {
	switch s {
	case "", "invariant":
		return Invariant, nil
	case "out":
		return Covariant, nil
	case "in":
		return Contravariant, nil
	}
	return Invariant, fmt.Errorf("invalid variance %q (expected: in|out)", s)
}

// Tri is a three-valued answer ordered False < Unknown < True.
type Tri uint8

const (
	TriFalse Tri = iota
	TriUnknown
	TriTrue
)

func (t Tri) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriUnknown:
		return "unknown"
	}
	return "false"
}

// ConstraintType is one entry of a constraint list: a concrete type or a
// type-parameter type, with its nullable annotation.
type ConstraintType struct {
	Type       types.TypeID
	Annotation Annotation
	lazy       *lazyConstraint
}

type lazyConstraint struct {
	once    sync.Once
	done    atomic.Bool
	resolve func() ConstraintType
	value   ConstraintType
}

// Lazy returns a constraint produced by resolve on first use in the late
// stage. Until then readers observe fallback.
func Lazy(fallback ConstraintType, resolve func() ConstraintType) ConstraintType {
	fallback.lazy = &lazyConstraint{resolve: resolve}
	return fallback
}

// IsLazy reports whether the entry was created by Lazy.
func (c ConstraintType) IsLazy() bool { return c.lazy != nil }

// Resolved reports whether the entry has its final form.
func (c ConstraintType) Resolved() bool { return c.lazy == nil || c.lazy.done.Load() }

// current returns the final form when available and the default form otherwise.
func (c ConstraintType) current() ConstraintType {
	if c.lazy == nil {
		return c
	}
	if c.lazy.done.Load() {
		return c.lazy.value
	}
	c.lazy = nil
	return c
}

// force resolves a lazy entry exactly once.
func (c ConstraintType) force() ConstraintType {
	l := c.lazy
	if l == nil {
		return c
	}
	l.once.Do(func() {
		v := c
		v.lazy = nil
		if l.resolve != nil {
			v = l.resolve()
			v.lazy = nil
		}
		l.value = v
		l.done.Store(true)
	})
	return l.value
}

// Spec is the as-declared constraint clause of one type parameter. The binder
// has already removed duplicates and trivial self references.
type Spec struct {
	Flags               KindFlags
	ReferenceAnnotation Annotation
	Variance            Variance
	Constraints         []ConstraintType
}

// ConstraintView is the public form of a constraint entry.
type ConstraintView struct {
	Type       types.TypeID
	Annotation Annotation
}
