// Package scheduler is the cooperative plan executor (spec §4.5):
// dependency-count-driven wave execution over a plan.Plan, dispatching
// subgraph requests concurrently within a wave and feeding responses
// into a response.Builder guided by a shape.Builder's shape tree.
//
// Grounded on federation/executor/executor_v2.go's Execute/executeSteps/
// findReadySteps (errgroup-driven wave execution: run every
// currently-ready step concurrently, then recompute the ready set from
// completed dependencies, repeat), generalized from step-index
// dependency tracking to plan.QueryPartition's explicit DependsOn edges.
package scheduler

import (
	"strconv"
	"strings"

	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/value"
)

// buildRootQuery renders a root-level GraphQL document for one
// partition's selections (spec §6.3), grounded on
// federation/executor/query_builder_v2.go's buildRootQuery.
func buildRootQuery(s *schema.Schema, op *operation.Operation, opKeyword string, parentType schema.TypeID, selections []operation.SelectionID) string {
	var sb strings.Builder
	vars := collectVariables(op, selections)
	sb.WriteString(opKeyword)
	if len(vars) > 0 {
		sb.WriteString("(")
		for i, vd := range vars {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(vd.Name)
			sb.WriteString(": ")
			sb.WriteString(renderFieldType(s, vd.Type))
		}
		sb.WriteString(")")
	}
	sb.WriteString("{")
	writeSelections(&sb, s, op, parentType, selections)
	sb.WriteString("}")
	return sb.String()
}

// buildEntityQuery renders the standard federation _entities query (spec
// §6.3: "query($representations:[_Any!]!){_entities(representations:
// $representations){...on T{...}}}").
func buildEntityQuery(s *schema.Schema, op *operation.Operation, entityType schema.TypeID, selections []operation.SelectionID) string {
	var sb strings.Builder
	sb.WriteString("query($representations: [_Any!]!) { _entities(representations: $representations) { ... on ")
	sb.WriteString(s.Name(mustTypeName(s, entityType)))
	sb.WriteString(" {")
	writeSelections(&sb, s, op, entityType, selections)
	sb.WriteString("} } }")
	return sb.String()
}

func mustTypeName(s *schema.Schema, typ schema.TypeID) schema.StringID {
	t, _ := s.Type(typ)
	return t.Name
}

func writeSelections(sb *strings.Builder, s *schema.Schema, op *operation.Operation, parentType schema.TypeID, ids []operation.SelectionID) {
	seen := map[string]bool{}
	for _, id := range ids {
		sel := op.Selections[id]
		switch sel.Kind {
		case operation.SelectionField:
			seen[sel.Field.ResponseKey] = true
			writeField(sb, s, op, sel.Field)
		case operation.SelectionInlineFragment, operation.SelectionFragmentSpread:
			if sel.TypeCondition != 0 {
				t, _ := s.Type(sel.TypeCondition)
				sb.WriteString("... on ")
				sb.WriteString(s.Name(t.Name))
				sb.WriteString("{")
				writeSelections(sb, s, op, sel.TypeCondition, sel.Selections)
				sb.WriteString("}")
			} else {
				writeSelections(sb, s, op, parentType, sel.Selections)
			}
		}
	}

	// Always request an entity type's @key fields too, even when the
	// operation never selected them, so a dependent partition can build
	// an _entities representation from this response without a second
	// round trip (spec §6.3; mirrors internal/shape's hidden fields).
	if info, ok := s.Entity(parentType); ok && len(info.Keys) > 0 {
		for _, node := range s.FieldSet(info.Keys[0].Fields) {
			fd, _ := s.Field(node.Field)
			name := s.Name(fd.Name)
			if seen[name] {
				continue
			}
			seen[name] = true
			sb.WriteString(name)
			sb.WriteString(" ")
		}
	}
}

func writeField(sb *strings.Builder, s *schema.Schema, op *operation.Operation, df *operation.DataField) {
	if df.IsTypename {
		sb.WriteString("__typename ")
		return
	}
	fd, _ := s.Field(df.Field)
	name := s.Name(fd.Name)
	if df.ResponseKey != name {
		sb.WriteString(df.ResponseKey)
		sb.WriteString(": ")
	}
	sb.WriteString(name)
	if len(df.Arguments) > 0 {
		sb.WriteString("(")
		first := true
		for argID, v := range df.Arguments {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			arg, _ := s.Argument(argID)
			sb.WriteString(s.Name(arg.Name))
			sb.WriteString(": ")
			sb.WriteString(renderValue(s, op, v))
		}
		sb.WriteString(")")
	}
	if len(df.Selections) > 0 {
		sb.WriteString("{")
		writeSelections(sb, s, op, fd.Type.Named, df.Selections)
		sb.WriteString("}")
	}
	sb.WriteString(" ")
}

func renderValue(s *schema.Schema, op *operation.Operation, v *value.Value) string {
	if v == nil || v.Kind == value.KindNull {
		return "null"
	}
	switch v.Kind {
	case value.KindVariable:
		if int(v.Variable) < len(op.VariableDefinitions) {
			return "$" + op.VariableDefinitions[v.Variable].Name
		}
		return "null"
	case value.KindString:
		return strconv.Quote(v.Str)
	case value.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case value.KindBigInt:
		return v.BigInt
	case value.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case value.KindU64:
		return strconv.FormatUint(v.U64, 10)
	case value.KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case value.KindEnumValue:
		return s.Name(v.EnumRef)
	case value.KindUnboundEnumValue:
		return v.Unbound
	case value.KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = renderValue(s, op, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case value.KindInputObject, value.KindMap:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = s.Name(f.Name) + ": " + renderValue(s, op, f.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "null"
	}
}

func renderFieldType(s *schema.Schema, t schema.FieldType) string {
	var sb strings.Builder
	if t.List {
		sb.WriteString("[")
		if t.ListElem != nil {
			sb.WriteString(renderFieldType(s, *t.ListElem))
		} else {
			named, _ := s.Type(t.Named)
			sb.WriteString(s.Name(named.Name))
		}
		sb.WriteString("]")
	} else {
		named, _ := s.Type(t.Named)
		sb.WriteString(s.Name(named.Name))
	}
	if t.NonNull {
		sb.WriteString("!")
	}
	return sb.String()
}

func collectVariables(op *operation.Operation, selections []operation.SelectionID) []operation.VariableDefinition {
	used := map[int]bool{}
	var walk func(ids []operation.SelectionID)
	walk = func(ids []operation.SelectionID) {
		for _, id := range ids {
			sel := op.Selections[id]
			if sel.Kind == operation.SelectionField {
				for _, v := range sel.Field.Arguments {
					markVariables(v, used)
				}
				walk(sel.Field.Selections)
			} else {
				walk(sel.Selections)
			}
		}
	}
	walk(selections)

	var out []operation.VariableDefinition
	for i, vd := range op.VariableDefinitions {
		if used[i] {
			out = append(out, vd)
		}
	}
	return out
}

func markVariables(v *value.Value, used map[int]bool) {
	if v == nil {
		return
	}
	switch v.Kind {
	case value.KindVariable:
		used[int(v.Variable)] = true
	case value.KindList:
		for _, e := range v.List {
			markVariables(e, used)
		}
	case value.KindInputObject, value.KindMap:
		for _, f := range v.Fields {
			markVariables(f.Value, used)
		}
	}
}
