package schema

import (
	"strconv"
	"strings"

	"github.com/n9te9/federation-core/internal/value"
	"github.com/n9te9/graphql-parser/ast"
)

// parseDefaultValue coerces an argument/input-field default literal into
// a value.Value. Grounded on the teacher's textual-literal handling in
// subgraph_v2.go's parseEntityKeys/parseField (arg.Value.String(),
// strings.Trim quoting), generalized from the two cases the teacher
// needs (quoted string, boolean) to the full GraphQL literal grammar
// this arena's default-value slot must represent.
func (b *Builder) parseDefaultValue(v ast.Value) *value.Value {
	if v == nil {
		return nil
	}
	return b.parseLiteralText(v.String())
}

func (b *Builder) parseLiteralText(raw string) *value.Value {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || raw == "null":
		return value.Null
	case raw == "true":
		return &value.Value{Kind: value.KindBoolean, Bool: true}
	case raw == "false":
		return &value.Value{Kind: value.KindBoolean, Bool: false}
	case strings.HasPrefix(raw, "\"") && strings.HasSuffix(raw, "\"") && len(raw) >= 2:
		return &value.Value{Kind: value.KindString, Str: strings.Trim(raw, "\"")}
	case strings.HasPrefix(raw, "$"):
		// A default that references a variable never resolves at schema
		// build time; callers treat this as "no literal default".
		return nil
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		return b.parseListLiteral(raw)
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		return b.parseObjectLiteral(raw)
	default:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &value.Value{Kind: value.KindInt, Int: i}
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return &value.Value{Kind: value.KindFloat, Float: f}
		}
		// Bare word: an enum value, recorded by name only. No later pass
		// checks it against the argument's declared enum.
		return &value.Value{Kind: value.KindUnboundEnumValue, Unbound: raw}
	}
}

func (b *Builder) parseListLiteral(raw string) *value.Value {
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return &value.Value{Kind: value.KindList}
	}
	var items []*value.Value
	for _, tok := range splitLiteralTopLevel(inner) {
		items = append(items, b.parseLiteralText(tok))
	}
	return &value.Value{Kind: value.KindList, List: items}
}

func (b *Builder) parseObjectLiteral(raw string) *value.Value {
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return &value.Value{Kind: value.KindInputObject}
	}
	var fields []value.FieldValue
	for _, tok := range splitLiteralTopLevel(inner) {
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 {
			continue
		}
		fields = append(fields, value.FieldValue{
			Name:  b.strings.Intern(strings.TrimSpace(parts[0])),
			Value: b.parseLiteralText(parts[1]),
		})
	}
	return &value.Value{Kind: value.KindInputObject, Fields: fields}
}

// splitLiteralTopLevel splits a comma/space-separated literal sequence
// at depth zero, respecting nested [], {} and quoted strings.
func splitLiteralTopLevel(s string) []string {
	var out []string
	depth := 0
	inStr := false
	var cur strings.Builder
	flush := func() {
		t := strings.TrimSpace(cur.String())
		if t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"':
			inStr = !inStr
			cur.WriteRune(r)
		case inStr:
			cur.WriteRune(r)
		case r == '[' || r == '{':
			depth++
			cur.WriteRune(r)
		case r == ']' || r == '}':
			depth--
			cur.WriteRune(r)
		case (r == ',' || r == ' ') && depth == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
