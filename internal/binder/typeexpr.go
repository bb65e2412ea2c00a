package binder

import (
	"fmt"
	"strings"

	"tpcheck/internal/tparams"
)

// TypeExpr is a parsed type reference such as Dictionary<K, V[]>*.
type TypeExpr struct {
	Name string
	Args []*TypeExpr
	// Suffix holds '[' for each array rank and '*' for each pointer level,
	// applied left to right.
	Suffix []byte
}

func (e *TypeExpr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *TypeExpr) write(sb *strings.Builder) {
	sb.WriteString(e.Name)
	if len(e.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range e.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb)
		}
		sb.WriteByte('>')
	}
	for _, s := range e.Suffix {
		if s == '[' {
			sb.WriteString("[]")
		} else {
			sb.WriteByte('*')
		}
	}
}

// ParseTypeExpr parses a complete type expression.
func ParseTypeExpr(src string) (*TypeExpr, error) {
	p := &exprParser{src: src}
	e, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type expression %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '$' || c == '.'
}

func (p *exprParser) parseType() (*TypeExpr, error) {
	p.skipSpace()
	start := p.pos
	if p.pos >= len(p.src) || !isIdentStart(p.src[p.pos]) {
		return nil, p.errorf("expected type name")
	}
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return nil, p.errorf("malformed qualified name %q", name)
	}
	e := &TypeExpr{Name: name}

	if p.peek() == '<' {
		p.pos++
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
			c := p.peek()
			if c == ',' {
				p.pos++
				continue
			}
			if c == '>' {
				p.pos++
				break
			}
			return nil, p.errorf("expected ',' or '>'")
		}
	}

	for {
		switch p.peek() {
		case '[':
			p.pos++
			if p.peek() != ']' {
				return nil, p.errorf("expected ']'")
			}
			p.pos++
			e.Suffix = append(e.Suffix, '[')
		case '*':
			p.pos++
			e.Suffix = append(e.Suffix, '*')
		default:
			return e, nil
		}
	}
}

// constraintEntry is one parsed entry of a constraint clause.
type constraintEntry struct {
	keyword    string
	annotation tparams.Annotation
	lazy       bool
	expr       *TypeExpr
}

var constraintKeywords = map[string]bool{
	"class":     true,
	"struct":    true,
	"unmanaged": true,
	"notnull":   true,
	"new()":     true,
}

// parseConstraint parses "lazy ~Name<Args>?" style entries and keywords.
func parseConstraint(raw string) (constraintEntry, error) {
	var e constraintEntry
	text := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(text, "lazy "); ok {
		e.lazy = true
		text = strings.TrimSpace(rest)
	}
	e.annotation = tparams.NotAnnotated
	if rest, ok := strings.CutPrefix(text, "~"); ok {
		e.annotation = tparams.Oblivious
		text = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(text, "?"); ok {
		if e.annotation == tparams.Oblivious {
			return e, fmt.Errorf("constraint %q cannot be both oblivious and annotated", raw)
		}
		e.annotation = tparams.Annotated
		text = strings.TrimSpace(rest)
	}
	if constraintKeywords[text] {
		if e.lazy {
			return e, fmt.Errorf("constraint %q: only type constraints can be lazy", raw)
		}
		if text != "class" && e.annotation != tparams.NotAnnotated {
			return e, fmt.Errorf("constraint %q cannot carry a nullable annotation", raw)
		}
		e.keyword = text
		return e, nil
	}
	expr, err := ParseTypeExpr(text)
	if err != nil {
		return e, err
	}
	e.expr = expr
	return e, nil
}
