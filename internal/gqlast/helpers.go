// Package gqlast collects small helpers for walking documents produced by
// github.com/n9te9/graphql-parser, shared between schema assembly
// (internal/schema) and operation binding (internal/operation). Grounded on
// the teacher's federation/graph/subgraph_v2.go (directive/type walking)
// and gateway/gateway.go (unwrapTypeName).
package gqlast

import (
	"strings"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

// Parse lexes and parses a GraphQL document (schema or executable).
// Mirrors the teacher's NewSubGraphV2 parsing sequence.
func Parse(src []byte) (*ast.Document, error) {
	l := lexer.New(string(src))
	p := parser.New(l)
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &ParseError{Errs: errs}
	}
	return doc, nil
}

// ParseError wraps the parser's raw error list.
type ParseError struct {
	Errs []error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("graphql parse error")
	if len(e.Errs) == 1 {
		sb.WriteString(": ")
		sb.WriteString(e.Errs[0].Error())
		return sb.String()
	}
	sb.WriteString("s: ")
	for i, err := range e.Errs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (e *ParseError) Unwrap() []error { return e.Errs }

// Directive returns the first directive named name, if present.
func Directive(directives []*ast.Directive, name string) (*ast.Directive, bool) {
	for _, d := range directives {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// HasDirective reports whether a directive named name is present.
func HasDirective(directives []*ast.Directive, name string) bool {
	_, ok := Directive(directives, name)
	return ok
}

// StringArg returns the (quote-trimmed) string value of the named argument.
func StringArg(d *ast.Directive, name string) (string, bool) {
	for _, arg := range d.Arguments {
		if arg.Name.String() == name {
			return strings.Trim(arg.Value.String(), "\""), true
		}
	}
	return "", false
}

// BoolArg returns the boolean value of the named argument.
func BoolArg(d *ast.Directive, name string) (bool, bool) {
	for _, arg := range d.Arguments {
		if arg.Name.String() == name {
			return arg.Value.String() == "true", true
		}
	}
	return false, false
}

// FieldSetArg splits a `fields: "a b { c }"`-style argument into its
// field names. Braces are treated as separators, so the names inside a
// nested selection are returned in the same flat list as the top-level
// ones.
func FieldSetArg(d *ast.Directive, name string) []string {
	raw, ok := StringArg(d, name)
	if !ok || raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, "{", " ")
	raw = strings.ReplaceAll(raw, "}", " ")
	return strings.Fields(raw)
}

// TypeName unwraps List/NonNull wrappers down to the named type's name.
func TypeName(t ast.Type) string {
	switch typ := t.(type) {
	case *ast.NamedType:
		return typ.Name.String()
	case *ast.ListType:
		return TypeName(typ.Type)
	case *ast.NonNullType:
		return TypeName(typ.Type)
	default:
		return ""
	}
}

// IsNonNull reports whether t's outermost layer is a NonNullType; a
// non-null item type inside a nullable list does not count.
func IsNonNull(t ast.Type) bool {
	_, ok := t.(*ast.NonNullType)
	return ok
}

// IsList reports whether t is a ListType, looking through a single
// outermost NonNull wrapper.
func IsList(t ast.Type) bool {
	if nn, ok := t.(*ast.NonNullType); ok {
		t = nn.Type
	}
	_, ok := t.(*ast.ListType)
	return ok
}

// FieldName returns the field's response key: its alias if present,
// otherwise its name.
func FieldName(f *ast.Field) string {
	if f.Alias != nil && f.Alias.String() != "" {
		return f.Alias.String()
	}
	return f.Name.String()
}
