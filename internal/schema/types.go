package schema

import "github.com/n9te9/federation-core/internal/value"

// TypeDefinition is one entry of the schema's type arena (spec §3.1
// TypeDefinitionId). Only the fields relevant to the variant are
// populated; the others are left at their zero value, matching the
// teacher's preference for plain tagged structs over interfaces in hot
// paths (federation/planner/planner_v2.go's StepType enum).
type TypeDefinition struct {
	ID   TypeID
	Name StringID
	Kind TypeKind

	// Object / Interface / InputObject
	Fields []FieldID

	// Object only
	Interfaces []TypeID

	// Interface / Union: sorted, deduplicated possible-type list (spec
	// §3.1 invariant). For interfaces this is every implementing object;
	// for unions it is every member.
	PossibleTypes []TypeID

	// Interface only: per-subgraph "is this interface fully implemented
	// by every possible type" flag, indexed by SubgraphID.
	FullyImplementedIn map[SubgraphID]bool

	// Enum only
	EnumValues []EnumValue

	Directives []DirectiveID
	Inaccessible bool
}

// EnumValue is one member of an enum type.
type EnumValue struct {
	Name         StringID
	Inaccessible bool
	Directives   []DirectiveID
}

// Override records an `@override(from: "...")` on a field.
type Override struct {
	From StringID
}

// FieldDefinition is one entry of the schema's field arena (spec §3.1).
type FieldDefinition struct {
	ID         FieldID
	Parent     TypeID
	Name       StringID
	Type       FieldType
	Arguments  []ArgumentID
	Directives []DirectiveID

	// ExistsInSubgraphIDs is sorted and non-empty for every field (spec
	// §3.1 invariant); it is the field's view of subgraph membership.
	ExistsInSubgraphIDs []SubgraphID

	// Requires/Provides/Resolvers are keyed by subgraph id because the
	// same field can carry different @requires/@provides sets per
	// subgraph it is defined or extended in.
	Requires  map[SubgraphID]FieldSetID
	Provides  map[SubgraphID]FieldSetID
	Resolvers []ResolverID

	// SubgraphTypes records a field's type as declared in each subgraph,
	// for detecting @override / type-narrowing mismatches; keyed by
	// subgraph id, only populated when it differs from Type.
	SubgraphTypes map[SubgraphID]FieldType

	// Derives names a `@derive`-style synthesized relationship target, if
	// any (empty string id means none). Grounded on original_source's
	// `@derive` composite-schema directive.
	Derives StringID

	Override     *Override
	Shareable    bool
	External     bool
	Inaccessible bool
}

// FieldType is a lightweight, id-based type reference: a named type id
// plus wrapper flags, avoiding a recursive AST node for the hot path.
type FieldType struct {
	Named    TypeID
	List     bool
	NonNull  bool
	ListElem *FieldType // only set when List && the element itself is wrapped
}

// InputValueDefinition is an argument or input-object field.
type InputValueDefinition struct {
	ID           ArgumentID
	Name         StringID
	Type         FieldType
	DefaultValue *value.Value
	Directives   []DirectiveID
	Inaccessible bool
}

// AppliedDirective is one applied-directive instance stored in the
// directive arena, addressed by DirectiveID from FieldDefinition.Directives
// and friends.
type AppliedDirective struct {
	ID        DirectiveID
	Name      StringID
	Arguments map[StringID]*value.Value
	// Extension, if non-nil, is the extension this directive use was
	// dispatched to (spec §4.1.6).
	Extension *ExtensionDirective
}

// ExtensionDirective is schema metadata about a directive contributed by
// an extension (spec §3.1).
type ExtensionDirective struct {
	Name         StringID
	Subgraph     SubgraphID
	ArgumentIDs  []ArgumentID
	Requirements FieldSetID
}
