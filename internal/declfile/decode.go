package declfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Format is the syntax of a declaration file.
type Format uint8

const (
	FormatTOML Format = iota + 1
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	}
	return "unknown"
}

// ErrUnknownFormat is returned for files whose extension is not recognised.
var ErrUnknownFormat = errors.New("unknown declaration file format")

// FormatFromPath picks the format by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("%s: %w (expected .toml, .yaml or .yml)", path, ErrUnknownFormat)
}

// Issue is one validation failure.
type Issue struct {
	Field string
	Msg   string
}

// ValidationError aggregates the validation failures of a document.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "declaration file: invalid document"
	}
	var b strings.Builder
	b.WriteString("declaration file validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue.Field)
		b.WriteString(": ")
		b.WriteString(issue.Msg)
	}
	return b.String()
}

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)
	validate     = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Decode parses data in the given format and validates the result.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	var unknown []Issue
	switch format {
	case FormatTOML:
		meta, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		for _, key := range meta.Undecoded() {
			unknown = append(unknown, Issue{Field: key.String(), Msg: "unknown key"})
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, ErrUnknownFormat
	}
	if err := Validate(&doc); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Issues = append(unknown, ve.Issues...)
			return &doc, ve
		}
		return &doc, err
	}
	if len(unknown) > 0 {
		return &doc, &ValidationError{Issues: unknown}
	}
	return &doc, nil
}

// Validate checks the structural rules of a decoded document.
func Validate(doc *Document) error {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{Field: trimNamespace(fe.Namespace()), Msg: formatFieldError(fe)})
	}
	return &ValidationError{Issues: issues}
}

func trimNamespace(ns string) string {
	return strings.TrimPrefix(ns, "Document.")
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "ident":
		return fmt.Sprintf("%q is not a valid identifier", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
