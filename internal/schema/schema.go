// Package schema is the assembled-supergraph arena (spec §3.1, §4.1).
// Every entity is addressed by a small dense id into one of the arenas
// below; nothing holds a pointer back into the arena that owns it, so a
// Schema can be swapped atomically behind an *atomic.Value without
// invalidating any id a caller is holding (registry/registry.go's
// atomic.Value schema-version pattern, generalized here to a full
// struct-of-arenas instead of a single cached SDL string).
package schema

import "github.com/n9te9/federation-core/internal/intern"

// Schema is the assembled, queryable supergraph. It is built once by a
// Builder (build.go) and is immutable thereafter; concurrent reads never
// take a lock.
type Schema struct {
	strings *intern.Interner

	types     []TypeDefinition
	fields    []FieldDefinition
	arguments []InputValueDefinition
	directives []AppliedDirective
	resolvers []ResolverDefinition
	subgraphs []Subgraph
	fieldSets [][]FieldSetNode

	// entities indexes precomputed per-entity key/resolver metadata by
	// TypeID, populated only for entries where TypeKind.IsEntityDefinition().
	entities map[TypeID]*EntityInfo

	// byName resolves a top-level type name to its TypeID, for operation
	// binding and introspection.
	byName map[StringID]TypeID

	queryType        TypeID
	mutationType     TypeID
	subscriptionType TypeID

	// Version is an opaque, monotonically increasing build counter used to
	// key operation-cache entries (spec §4.2.6: cache key is
	// (schema_version, document_fingerprint)).
	Version uint64
}

// Strings returns the schema's string interner, so callers can resolve
// StringIDs without the Schema itself exposing a Name(id) per arena.
func (s *Schema) Strings() *intern.Interner { return s.strings }

// Type resolves a TypeID to its definition. Returns the zero value and
// false for an out-of-range id.
func (s *Schema) Type(id TypeID) (TypeDefinition, bool) {
	if int(id) >= len(s.types) {
		return TypeDefinition{}, false
	}
	return s.types[id], true
}

// TypeByName resolves a type name to its TypeID.
func (s *Schema) TypeByName(name string) (TypeID, bool) {
	sid, ok := s.strings.Lookup(name)
	if !ok {
		return 0, false
	}
	id, ok := s.byName[sid]
	return id, ok
}

// Field resolves a FieldID to its definition.
func (s *Schema) Field(id FieldID) (FieldDefinition, bool) {
	if int(id) >= len(s.fields) {
		return FieldDefinition{}, false
	}
	return s.fields[id], true
}

// FieldByName looks up a field of parent by name, linear over the
// parent's (typically small) field list.
func (s *Schema) FieldByName(parent TypeID, name string) (FieldID, bool) {
	sid, ok := s.strings.Lookup(name)
	if !ok {
		return 0, false
	}
	t, ok := s.Type(parent)
	if !ok {
		return 0, false
	}
	for _, fid := range t.Fields {
		if s.fields[fid].Name == sid {
			return fid, true
		}
	}
	return 0, false
}

// Argument resolves an ArgumentID.
func (s *Schema) Argument(id ArgumentID) (InputValueDefinition, bool) {
	if int(id) >= len(s.arguments) {
		return InputValueDefinition{}, false
	}
	return s.arguments[id], true
}

// Directive resolves a DirectiveID.
func (s *Schema) Directive(id DirectiveID) (AppliedDirective, bool) {
	if int(id) >= len(s.directives) {
		return AppliedDirective{}, false
	}
	return s.directives[id], true
}

// Resolver resolves a ResolverID.
func (s *Schema) Resolver(id ResolverID) (ResolverDefinition, bool) {
	if int(id) >= len(s.resolvers) {
		return ResolverDefinition{}, false
	}
	return s.resolvers[id], true
}

// Subgraph resolves a SubgraphID.
func (s *Schema) Subgraph(id SubgraphID) (Subgraph, bool) {
	if int(id) >= len(s.subgraphs) {
		return Subgraph{}, false
	}
	return s.subgraphs[id], true
}

// Subgraphs returns every subgraph in the schema, including the
// synthetic introspection subgraph at index 0.
func (s *Schema) Subgraphs() []Subgraph { return s.subgraphs }

// Resolvers returns every resolver in the schema's resolver arena, for
// callers (the solver) that need to walk the full resolver set rather
// than look one up by id.
func (s *Schema) Resolvers() []ResolverDefinition { return s.resolvers }

// Fields returns every field in the schema's field arena.
func (s *Schema) Fields() []FieldDefinition { return s.fields }

// Entities returns the full entity-metadata index, keyed by TypeID.
func (s *Schema) Entities() map[TypeID]*EntityInfo { return s.entities }

// Entity returns precomputed key/resolver metadata for an entity type.
func (s *Schema) Entity(id TypeID) (*EntityInfo, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// QueryType, MutationType and SubscriptionType return the supergraph's
// root operation types. MutationType and SubscriptionType may be the
// zero TypeID when the supergraph declares no mutations/subscriptions;
// callers must check QueryType != 0 || len(s.types) > 0 as appropriate.
func (s *Schema) QueryType() TypeID        { return s.queryType }
func (s *Schema) MutationType() TypeID     { return s.mutationType }
func (s *Schema) SubscriptionType() TypeID { return s.subscriptionType }

// Name resolves a StringID through the schema's interner; a thin
// convenience wrapper used throughout binder/solver/executor code.
func (s *Schema) Name(id StringID) string { return s.strings.String(id) }
