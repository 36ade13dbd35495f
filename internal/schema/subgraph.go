package schema

// Subgraph is the schema-arena record for one SubgraphID (spec §3.1).
// Grounded on the teacher's SubGraphV2, generalized from a map-keyed
// value into an arena entry addressed by SubgraphID.
type Subgraph struct {
	ID   SubgraphID
	Kind SubgraphKind
	Name StringID

	// URL is only meaningful for SubgraphGraphQLEndpoint.
	URL string

	// WebsocketURL is used for subscription operations routed to this
	// subgraph, when set (spec §6.5 per-subgraph config).
	WebsocketURL string

	// TimeoutMS is not set by the Builder nor read by the scheduler, which
	// takes per-subgraph timeouts from scheduler.WithSubgraphTimeouts.
	TimeoutMS int

	Directives []DirectiveID
}

// ResolverDefinition is one entry of the schema's resolver arena (spec
// §3.1). Grounded on the teacher's implicit resolver model (a field is
// resolvable in a subgraph if it exists there, expressed via
// ExistsInSubgraphIDs); this type makes the resolver an explicit,
// addressable entity as spec §3.1 requires, so the query solver can
// reason about resolver *instances* rather than raw subgraph membership.
type ResolverDefinition struct {
	ID       ResolverID
	Kind     ResolverKind
	Subgraph SubgraphID

	// Entity is set for GraphqlFederationEntity / Lookup resolvers: the
	// entity type this resolver can fetch by key.
	Entity TypeID

	// Key is the @key field set this resolver accepts as entry point
	// (empty for GraphqlRootField / Introspection).
	Key FieldSetID

	// LookupField is set for ResolverLookup: the root field used to fetch
	// entities by id (spec GLOSSARY @lookup), and LookupIsSelection is the
	// `@is`-declared selection mapping parent fields to lookup arguments.
	LookupField      FieldID
	LookupIsSelection FieldSetID

	// ExtensionDirective is set for the two extension resolver kinds.
	ExtensionDirective *ExtensionDirective
}

// KeySet is one parsed @key directive (spec §3.1 EntityKey equivalent,
// generalized to the arena model via a FieldSetID instead of a raw string).
type KeySet struct {
	Fields     FieldSetID
	Resolvable bool
}

// EntityInfo is precomputed per-entity metadata: its keys, and for each
// (entity, subgraph) pair whether that key set is usable as an entry point
// (spec §4.1.4 "precompute keys and, for each pair (entity, subgraph),
// which keys are usable as entry points").
type EntityInfo struct {
	Type     TypeID
	Keys     []KeySet
	Resolvers map[SubgraphID][]ResolverID
	// EntryKeys maps a subgraph id to the subset of Keys usable as an
	// entry point from that subgraph: the key its federation-entity
	// resolver accepts, i.e. its first @key without resolvable: false,
	// whether declared on a type definition or a type extension.
	EntryKeys map[SubgraphID][]KeySet
}
