package schema

import "github.com/n9te9/federation-core/internal/intern"

// All schema-arena entities are addressed by small, dense ids so that
// fields, arguments, resolvers and directive payloads never hold
// back-pointers into the arena that owns them (spec §3: "Cross-arena
// references are by small (32-bit) identifiers only").

// StringID is an interned name (type name, field name, argument name, ...).
type StringID = intern.ID

// TypeID addresses a TypeDefinition in Schema.types.
type TypeID uint32

// FieldID addresses a FieldDefinition in Schema.fields.
type FieldID uint32

// ArgumentID addresses an InputValueDefinition in Schema.arguments.
type ArgumentID uint32

// DirectiveID addresses an applied directive instance in Schema.directives.
type DirectiveID uint32

// ResolverID addresses a ResolverDefinition in Schema.resolvers.
type ResolverID uint32

// FieldSetID addresses a structurally-shared FieldSet node in Schema.fieldSets.
type FieldSetID uint32

// SubgraphKind distinguishes the three subgraph variants of spec §3.1.
type SubgraphKind uint8

const (
	// SubgraphGraphQLEndpoint is a real, HTTP-reachable GraphQL subgraph.
	SubgraphGraphQLEndpoint SubgraphKind = iota
	// SubgraphVirtual is a subgraph with no network endpoint, entirely
	// backed by extension resolvers (§4.1.6: selection-set resolver
	// extensions must live on virtual subgraphs).
	SubgraphVirtual
	// SubgraphIntrospection is the synthetic subgraph serving __schema/__type.
	SubgraphIntrospection
)

// SubgraphID identifies one of Schema.subgraphs. Index 0 is always
// reserved for the introspection subgraph so resolvers can compare against
// it without a map lookup.
type SubgraphID uint32

// IntrospectionSubgraphID is the well-known id of the synthetic
// introspection subgraph, always present in every Schema.
const IntrospectionSubgraphID SubgraphID = 0

// TypeKind distinguishes the six TypeDefinition variants of spec §3.1.
type TypeKind uint8

const (
	TypeKindScalar TypeKind = iota
	TypeKindEnum
	TypeKindObject
	TypeKindInterface
	TypeKindUnion
	TypeKindInputObject
)

// IsEntityDefinition reports whether k is in EntityDefinitionId's variant
// subset {Object, Interface}.
func (k TypeKind) IsEntityDefinition() bool {
	return k == TypeKindObject || k == TypeKindInterface
}

// IsCompositeType reports whether k is in CompositeTypeId's variant subset
// {Object, Interface, Union}.
func (k TypeKind) IsCompositeType() bool {
	return k == TypeKindObject || k == TypeKindInterface || k == TypeKindUnion
}

// ResolverKind enumerates the ResolverDefinition variants of spec §3.1.
type ResolverKind uint8

const (
	ResolverGraphqlRootField ResolverKind = iota
	ResolverGraphqlFederationEntity
	ResolverLookup
	ResolverIntrospection
	ResolverFieldResolverExtension
	ResolverSelectionSetResolverExtension
	ResolverExtension
)
