package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Declaration file decoding
	DeclInfo            Code = 1000
	DeclDecodeFailed    Code = 1001
	DeclValidation      Code = 1002
	DeclUnknownFormat   Code = 1003
	DeclDuplicateName   Code = 1004
	DeclBadTypeExpr     Code = 1005
	DeclUnknownVariance Code = 1006

	// Binding of constraint clauses
	BindInfo                   Code = 2000
	BindUnknownType            Code = 2001
	BindDuplicateConstraint    Code = 2002
	BindSelfConstraint         Code = 2003
	BindForeignTypeParam       Code = 2004
	BindConflictingKinds       Code = 2005
	BindNotGeneric             Code = 2006
	BindArityMismatch          Code = 2007
	BindUnknownDeclaration     Code = 2008
	BindDuplicateTypeParam     Code = 2009
	BindConstraintKindPosition Code = 2010

	// Constraint resolution
	TypeParamInfo                              Code = 3000
	TypeParamCircularConstraint                Code = 3001
	TypeParamBaseConstraintConflict            Code = 3002
	TypeParamConstraintWithValueConstraint     Code = 3003
	TypeParamConstraintWithUnmanagedConstraint Code = 3004

	// Use-site
	UseSiteInfo         Code = 4000
	UseSiteUnusableType Code = 4001
	UseSiteInaccessible Code = 4002
	UseSiteErrorType    Code = 4003
	UseSiteUnboundParam Code = 4004

	// I/O and cache
	IOLoadFileError Code = 5001
	IOCacheError    Code = 5002
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	DeclInfo:            "Declaration file information",
	DeclDecodeFailed:    "Declaration file could not be decoded",
	DeclValidation:      "Declaration file failed validation",
	DeclUnknownFormat:   "Unknown declaration file format",
	DeclDuplicateName:   "Duplicate declaration name",
	DeclBadTypeExpr:     "Malformed type expression",
	DeclUnknownVariance: "Unknown variance annotation",

	BindInfo:                   "Binding information",
	BindUnknownType:            "Unknown type in constraint",
	BindDuplicateConstraint:    "Duplicate constraint",
	BindSelfConstraint:         "Type parameter constrained by itself",
	BindForeignTypeParam:       "Type parameter is not in scope",
	BindConflictingKinds:       "Conflicting constraint kinds",
	BindNotGeneric:             "Type is not generic",
	BindArityMismatch:          "Wrong number of type arguments",
	BindUnknownDeclaration:     "Unknown declaration",
	BindDuplicateTypeParam:     "Duplicate type parameter name",
	BindConstraintKindPosition: "Constraint kind must come first",

	TypeParamInfo:                              "Type parameter information",
	TypeParamCircularConstraint:                "Circular constraint dependency",
	TypeParamBaseConstraintConflict:            "Type parameter inherits conflicting constraints",
	TypeParamConstraintWithValueConstraint:     "Type parameter with struct constraint used as constraint",
	TypeParamConstraintWithUnmanagedConstraint: "Type parameter with unmanaged constraint used as constraint",

	UseSiteInfo:         "Use-site information",
	UseSiteUnusableType: "Type is not usable",
	UseSiteInaccessible: "Type is inaccessible",
	UseSiteErrorType:    "Type could not be resolved",
	UseSiteUnboundParam: "Type parameter declaration is unbindable",

	IOLoadFileError: "I/O error",
	IOCacheError:    "Cache error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DCL%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("BND%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TPC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("USE%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
