// Package operation holds the bound-operation IR (spec §3.2): the output
// of parsing a client document and binding it against a schema. Grounded
// on the teacher's planner input model (federation/planner/planner_v2.go
// consumes a raw *ast.OperationDefinition directly); this package
// interposes a validated, id-addressed IR between parsing and solving so
// the solver never walks raw AST nodes.
package operation

import (
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/value"
)

// OperationType mirrors the three GraphQL root operation kinds.
type OperationType uint8

const (
	OperationQuery OperationType = iota
	OperationMutation
	OperationSubscription
)

// SelectionID addresses one entry of Operation's flat selection arena.
type SelectionID uint32

// SelectionKind tags the Selection variant (spec §3.2: "tagged union of
// Field | InlineFragment | FragmentSpread").
type SelectionKind uint8

const (
	SelectionField SelectionKind = iota
	SelectionInlineFragment
	SelectionFragmentSpread
)

// Selection is one entry of Operation.Selections.
type Selection struct {
	Kind SelectionKind

	// SelectionField
	Field *DataField

	// SelectionInlineFragment / SelectionFragmentSpread
	TypeCondition schema.TypeID // possible-type filter, resolved at bind time
	Selections    []SelectionID
	DeferLabel    string // non-empty when this fragment carries an active @defer, set by Binder.deferLabel
}

// DataField is one selected field. A __typename selection is also a
// DataField, with IsTypename set; the solver and the shape builder skip
// those.
type DataField struct {
	ResponseKey string // alias or field name
	Field       schema.FieldID
	Parent      schema.TypeID
	Arguments   map[schema.ArgumentID]*value.Value
	Selections  []SelectionID // empty for leaf fields
	IsTypename  bool
}

// VariableDefinition is one `$name: Type = default` declaration.
type VariableDefinition struct {
	Name    string
	Type    schema.FieldType
	Default *value.Value
}

// VariableValueRecord records how a VariableDefinition was actually
// satisfied for one request (spec §3.2).
type VariableValueRecord uint8

const (
	VariableUndefined VariableValueRecord = iota
	VariableProvided
	VariableDefault
)

// Variables is the per-request parallel arena of coerced variable
// values (spec §3.2).
type Variables struct {
	Values  []*value.Value
	Records []VariableValueRecord
}

// Operation is the bound IR (spec §3.2).
type Operation struct {
	Type              OperationType
	Name              string
	RootType          schema.TypeID
	RootSelections    []SelectionID
	Selections        []Selection
	VariableDefinitions []VariableDefinition

	// Fingerprint is the stable hash over the normalized document,
	// computed once at bind time (spec §4.2 "Operation fingerprint").
	Fingerprint uint64

	// SchemaVersion is the version of the Schema this operation was
	// bound against, used together with Fingerprint as the cache key
	// (spec §4.2.6 "(schema_version, document_fingerprint)").
	SchemaVersion uint64
}
