package operation

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/n9te9/federation-core/internal/gqlast"
	"github.com/n9te9/graphql-parser/ast"
)

// Fingerprint computes a stable hash over the normalized document (spec
// §4.2 "a stable hash over the normalized document (alias-stripped,
// field-sorted inside each selection set where sorting is safe, with
// variable definitions retained)"). It keys the operation cache and
// tags operations in telemetry.
//
// xxhash is used rather than a hand-rolled sum because this digest
// crosses process boundaries (cache keys, telemetry) where collision
// resistance and speed both matter, unlike internal/schema's field-set
// interning key which never leaves one build.
func Fingerprint(doc *ast.Document, operationName string) uint64 {
	var sb strings.Builder
	sb.WriteString(operationName)
	sb.WriteByte(0)
	op, err := selectOperation(doc, operationName)
	if err != nil {
		return xxhash.Sum64String(sb.String())
	}
	sb.WriteString(string(op.Operation))
	for _, vd := range op.VariableDefinitions {
		sb.WriteString(vd.Variable.String())
		sb.WriteByte(':')
		sb.WriteString(typeText(vd.Type))
		sb.WriteByte(';')
	}
	writeNormalizedSelections(&sb, op.SelectionSet)
	frags := collectFragments(doc)
	names := make([]string, 0, len(frags))
	for name := range frags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString("fragment " + name + " on " + frags[name].TypeCondition.String() + "{")
		writeNormalizedSelections(&sb, frags[name].SelectionSet)
		sb.WriteByte('}')
	}
	return xxhash.Sum64String(sb.String())
}

func writeNormalizedSelections(sb *strings.Builder, sels []ast.Selection) {
	type entry struct {
		key  string
		text string
	}
	var entries []entry
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			var inner strings.Builder
			inner.WriteString(s.Name.String())
			inner.WriteByte('(')
			for _, a := range s.Arguments {
				inner.WriteString(a.Name.String())
				inner.WriteByte(':')
				inner.WriteString(a.Value.String())
				inner.WriteByte(',')
			}
			inner.WriteByte(')')
			if len(s.SelectionSet) > 0 {
				inner.WriteByte('{')
				writeNormalizedSelections(&inner, s.SelectionSet)
				inner.WriteByte('}')
			}
			entries = append(entries, entry{key: s.Name.String(), text: inner.String()})
		case *ast.InlineFragment:
			var inner strings.Builder
			cond := ""
			if s.TypeCondition != nil {
				cond = s.TypeCondition.String()
			}
			inner.WriteString("...on ")
			inner.WriteString(cond)
			inner.WriteByte('{')
			writeNormalizedSelections(&inner, s.SelectionSet)
			inner.WriteByte('}')
			entries = append(entries, entry{key: "..." + cond, text: inner.String()})
		case *ast.FragmentSpread:
			entries = append(entries, entry{key: "..." + s.Name.String(), text: "..." + s.Name.String()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	for _, e := range entries {
		sb.WriteString(e.text)
		sb.WriteByte(';')
	}
}

func typeText(t ast.Type) string {
	if t == nil {
		return ""
	}
	name := gqlast.TypeName(t)
	if gqlast.IsList(t) {
		name = "[" + name + "]"
	}
	if gqlast.IsNonNull(t) {
		name += "!"
	}
	return name
}
