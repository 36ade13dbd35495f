package operation

import (
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/value"
)

// ApplyDefaults returns a copy of supplied with a declared default
// value filled in for every variable the client omitted (spec §3.2
// "$name: Type = default"). A variable the client did supply is never
// overwritten, even when its value is JSON null — only a genuinely
// absent key counts as omitted.
func ApplyDefaults(s *schema.Schema, defs []VariableDefinition, supplied map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(supplied)+len(defs))
	for k, v := range supplied {
		out[k] = v
	}
	for _, def := range defs {
		if def.Default == nil {
			continue
		}
		if _, present := out[def.Name]; present {
			continue
		}
		out[def.Name] = literalToJSON(s, def.Default)
	}
	return out
}

// literalToJSON renders a bound literal Value into the plain
// interface{} shape encoding/json expects, mirroring
// internal/scheduler/querybuilder.go's renderValue but producing Go
// values instead of GraphQL document text.
func literalToJSON(s *schema.Schema, v *value.Value) interface{} {
	if v == nil || v.Kind == value.KindNull {
		return nil
	}
	switch v.Kind {
	case value.KindString:
		return v.Str
	case value.KindUnboundEnumValue:
		return v.Unbound
	case value.KindInt:
		return v.Int
	case value.KindBigInt:
		return v.BigInt
	case value.KindFloat:
		return v.Float
	case value.KindU64:
		return v.U64
	case value.KindBoolean:
		return v.Bool
	case value.KindEnumValue:
		return s.Name(schema.StringID(v.EnumRef))
	case value.KindList:
		out := make([]interface{}, len(v.List))
		for i, el := range v.List {
			out[i] = literalToJSON(s, el)
		}
		return out
	case value.KindInputObject, value.KindMap:
		out := make(map[string]interface{}, len(v.Fields))
		for _, fv := range v.Fields {
			out[s.Name(schema.StringID(fv.Name))] = literalToJSON(s, fv.Value)
		}
		return out
	default:
		// KindDefaultValue/KindVariable never appear inside a bound
		// VariableDefinition's own Default — the binder only parses
		// operation-literal text for it (parseOperationLiteral).
		return nil
	}
}
