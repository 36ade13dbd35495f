package operation

import (
	"strconv"
	"strings"

	"github.com/n9te9/federation-core/internal/value"
)

// parseOperationLiteral coerces an operation-level literal (an argument
// value or a variable default) into a value.Value. Duplicates
// internal/schema's literal grammar rather than importing it: the two
// packages coerce literals for different arenas (schema default values
// vs bound operation arguments) and schema must not depend on operation,
// so sharing the unexported parser would require promoting it to a
// third package for a handful of lines with no other shared caller.
func parseOperationLiteral(raw string) *value.Value {
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
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		if inner == "" {
			return &value.Value{Kind: value.KindList}
		}
		var items []*value.Value
		for _, tok := range splitTopLevel(inner) {
			items = append(items, parseOperationLiteral(tok))
		}
		return &value.Value{Kind: value.KindList, List: items}
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		if inner == "" {
			return &value.Value{Kind: value.KindInputObject}
		}
		var fields []value.FieldValue
		for _, tok := range splitTopLevel(inner) {
			parts := strings.SplitN(tok, ":", 2)
			if len(parts) != 2 {
				continue
			}
			fields = append(fields, value.FieldValue{Value: parseOperationLiteral(parts[1])})
			_ = parts[0]
		}
		return &value.Value{Kind: value.KindInputObject, Fields: fields}
	default:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &value.Value{Kind: value.KindInt, Int: i}
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return &value.Value{Kind: value.KindFloat, Float: f}
		}
		return &value.Value{Kind: value.KindUnboundEnumValue, Unbound: raw}
	}
}

func splitTopLevel(s string) []string {
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
