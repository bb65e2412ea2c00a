package tparams

import (
	"fmt"
	"strings"

	"tpcheck/internal/types"
)

// ExclusionSet lists the kinds of reference-typed constraints that do not, by
// themselves, make a type parameter a reference type because value types can
// satisfy them too.
type ExclusionSet uint8

const (
	ExcludeInterface ExclusionSet = 1 << iota
	ExcludeError
	ExcludeObject
	ExcludeValueType
	ExcludeEnum
	ExcludeArray
)

// DefaultExclusion matches a type system where object, ValueType and Enum
// are classes and interfaces may be implemented by structs.
const DefaultExclusion = ExcludeInterface | ExcludeError | ExcludeObject | ExcludeValueType | ExcludeEnum

var exclusionNames = []struct {
	flag ExclusionSet
	name string
}{
	{ExcludeInterface, "interface"},
	{ExcludeError, "error"},
	{ExcludeObject, "object"},
	{ExcludeValueType, "valuetype"},
	{ExcludeEnum, "enum"},
	{ExcludeArray, "array"},
}

// ParseExclusion builds a set from names such as "interface" or "object".
func ParseExclusion(names []string) (ExclusionSet, error) {
	var set ExclusionSet
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for _, e := range exclusionNames {
			if e.name == name {
				set |= e.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown exclusion %q", raw)
		}
	}
	return set, nil
}

// Names lists the members of the set in a fixed order.
func (e ExclusionSet) Names() []string {
	var out []string
	for _, n := range exclusionNames {
		if e&n.flag != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func (e ExclusionSet) excludes(in *types.Interner, t types.TypeID) bool {
	switch in.EffectiveKind(t) {
	case types.KindInterface:
		return e&ExcludeInterface != 0
	case types.KindError:
		return e&ExcludeError != 0
	}
	switch in.Special(t) {
	case types.SpecialObject:
		return e&ExcludeObject != 0
	case types.SpecialValueType:
		return e&ExcludeValueType != 0
	case types.SpecialEnum:
		return e&ExcludeEnum != 0
	case types.SpecialArray:
		return e&ExcludeArray != 0
	}
	return false
}
