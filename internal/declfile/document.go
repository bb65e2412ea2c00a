// Package declfile decodes declaration documents: the generic types and
// methods whose type-parameter constraints tpcheck resolves. Documents are
// TOML or YAML and are validated after decoding.
package declfile

// Document is one declaration file.
type Document struct {
	// Exclusion overrides the kinds of reference-typed constraints that do
	// not make a parameter a reference type.
	Exclusion  []string     `toml:"exclusion" yaml:"exclusion" validate:"dive,oneof=interface error object valuetype enum array"`
	Types      []TypeDecl   `toml:"type" yaml:"types" validate:"dive"`
	Methods    []MethodDecl `toml:"method" yaml:"methods" validate:"dive"`
	Instances  []Instance   `toml:"instance" yaml:"instances" validate:"dive"`
	Synthesize []Synthesis  `toml:"synthesize" yaml:"synthesize" validate:"dive"`
}

// TypeDecl declares a named type, optionally generic, with nested methods and
// types.
type TypeDecl struct {
	Name       string       `toml:"name" yaml:"name" validate:"required,ident"`
	Kind       string       `toml:"kind" yaml:"kind" validate:"omitempty,oneof=class struct interface enum delegate"`
	Base       string       `toml:"base" yaml:"base"`
	Interfaces []string     `toml:"interfaces" yaml:"interfaces" validate:"dive,required"`
	Sealed     bool         `toml:"sealed" yaml:"sealed"`
	Fields     []string     `toml:"fields" yaml:"fields" validate:"dive,required"`
	Unusable   string       `toml:"unusable" yaml:"unusable"`
	Params     []ParamDecl  `toml:"param" yaml:"params" validate:"dive"`
	Methods    []MethodDecl `toml:"method" yaml:"methods" validate:"dive"`
	Types      []TypeDecl   `toml:"type" yaml:"types" validate:"dive"`
}

// MethodDecl declares a generic method.
type MethodDecl struct {
	Name   string      `toml:"name" yaml:"name" validate:"required,ident"`
	Params []ParamDecl `toml:"param" yaml:"params" validate:"min=1,dive"`
}

// ParamDecl declares one type parameter and its constraint clause.
//
// Constraint entries are written as in source code: "class", "class?",
// "struct", "unmanaged", "notnull", "new()", or a type expression such as
// "IComparable<T>", "T?", "int[]". A leading "~" marks an oblivious entry
// and a leading "lazy " defers binding of the entry to the late stage.
type ParamDecl struct {
	Name        string   `toml:"name" yaml:"name" validate:"required,ident"`
	Constraints []string `toml:"constraints" yaml:"constraints" validate:"dive,required"`
	Variance    string   `toml:"variance" yaml:"variance" validate:"omitempty,oneof=in out"`
	Unusable    string   `toml:"unusable" yaml:"unusable"`
}

// Instance requests the substituted view of every generic method of a
// generic type through the given construction, e.g. "Box<string>".
type Instance struct {
	Type string `toml:"type" yaml:"type" validate:"required"`
}

// Synthesis clones the type parameters of a method into a new method.
type Synthesis struct {
	From string `toml:"from" yaml:"from" validate:"required"`
	Name string `toml:"name" yaml:"name" validate:"required,ident"`
}

// KindOrDefault returns the declared kind, defaulting to class.
func (t TypeDecl) KindOrDefault() string {
	if t.Kind == "" {
		return "class"
	}
	return t.Kind
}
