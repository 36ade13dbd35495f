package schema

import (
	"sort"
	"strconv"
)

// FieldSetNode is one node of a structurally-shared field-set tree, used
// for @key, @requires, @provides, authorization requirements and join
// conditions (spec §3.1). A field set is a flat slice of FieldSetNode,
// each possibly carrying a nested subselection (itself a FieldSetID).
type FieldSetNode struct {
	Field        FieldID
	SubSelection FieldSetID // 0 (fieldSetNone) when the field is a leaf
	// ArgumentBindings records literal argument values bound in a
	// @requires/@provides selection, e.g. `@requires(fields: "price(currency: \"usd\")")`.
	ArgumentBindings map[ArgumentID]string
}

// fieldSetNone is the id of the canonical empty field set, always index 0
// in Schema.fieldSets so that "no subselection" can be the zero value.
const fieldSetNone FieldSetID = 0

// fieldSetInterner deduplicates field-set trees during schema build so
// that structurally identical @key/@requires/@provides selections share
// one FieldSetID, per spec §3.1 ("structural sharing is enforced by an
// intern table during schema build").
type fieldSetInterner struct {
	sets  [][]FieldSetNode
	index map[string]FieldSetID
}

func newFieldSetInterner() *fieldSetInterner {
	return &fieldSetInterner{
		sets:  [][]FieldSetNode{nil}, // index 0 reserved: the empty set
		index: map[string]FieldSetID{"": 0},
	}
}

// Intern returns the FieldSetID for nodes, reusing an existing id if an
// identical set (by field id, nested subselection id and argument
// bindings) was already interned.
func (fi *fieldSetInterner) Intern(nodes []FieldSetNode) FieldSetID {
	if len(nodes) == 0 {
		return fieldSetNone
	}
	key := fieldSetKey(nodes)
	if id, ok := fi.index[key]; ok {
		return id
	}
	id := FieldSetID(len(fi.sets))
	fi.sets = append(fi.sets, nodes)
	fi.index[key] = id
	return id
}

func fieldSetKey(nodes []FieldSetNode) string {
	// A deterministic textual key over (field id, subselection id, sorted
	// argument bindings) is sufficient for structural-sharing purposes;
	// it never needs to be parsed back.
	var b []byte
	for _, n := range nodes {
		b = appendUint32(b, uint32(n.Field))
		b = append(b, ':')
		b = appendUint32(b, uint32(n.SubSelection))
		args := make([]ArgumentID, 0, len(n.ArgumentBindings))
		for a := range n.ArgumentBindings {
			args = append(args, a)
		}
		sort.Slice(args, func(i, j int) bool { return args[i] < args[j] })
		for _, a := range args {
			b = append(b, '(')
			b = appendUint32(b, uint32(a))
			b = strconv.AppendQuote(b, n.ArgumentBindings[a])
		}
		b = append(b, '|')
	}
	return string(b)
}

func appendUint32(b []byte, v uint32) []byte {
	for v >= 10 {
		b = append(b, byte('0'+v%10))
		v /= 10
	}
	return append(b, byte('0'+v))
}

// FieldSet resolves a FieldSetID to its node slice.
func (s *Schema) FieldSet(id FieldSetID) []FieldSetNode {
	if int(id) >= len(s.fieldSets) {
		return nil
	}
	return s.fieldSets[id]
}
