// Package shape builds the response shape trees the executor's
// deserializer walks (spec §4.4). The scheduler builds a partition's
// shape tree each time it runs that partition, before decoding its
// response, and the tree is not changed during deserialization — the
// deserializer's hot loop never consults the
// operation arena, only the shape tree, keeping it cache-friendly.
//
// Grounded on federation/executor's response-merging model (merger.go),
// which walks ast.Selection directly during every response; this package
// interposes a precomputed tree so that walk only happens once.
package shape

import (
	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/schema"
)

// ShapeID addresses a Shape in a Builder's shape arena.
type ShapeID uint32

// ShapeKind distinguishes a ConcreteShape from a PolymorphicShape (spec
// §4.4: "polymorphic shapes are used where the declared type is an
// interface or union whose candidate implementations differ in their
// field layout; concrete shapes are used elsewhere").
type ShapeKind uint8

const (
	ShapeConcrete ShapeKind = iota
	ShapePolymorphic
)

// FieldShape is one field entry of a ConcreteShape (spec §4.4).
type FieldShape struct {
	ResponseKey string
	Field       schema.FieldID
	Output      ShapeID // meaningful only when !IsLeaf
	IsLeaf      bool

	// RequiredForSurface is true when a null at this field must bubble
	// to the nearest nullable ancestor (spec §4.4, §4.6).
	RequiredForSurface bool

	// DeferLabel is non-empty when this field participates in an
	// @defer fragment (spec §4.4).
	DeferLabel string

	// Hidden marks a field injected for its @key value rather than
	// requested by the operation: the decoder still writes it so a
	// dependent partition's representation can read it back (spec
	// §6.3), but it is never rendered into the client-visible response.
	Hidden bool
}

// ConcreteShape describes one object layout for one concrete type.
type ConcreteShape struct {
	Type   schema.TypeID
	Fields []FieldShape
}

// PolymorphicShape dispatches to a per-possible-type ConcreteShape.
type PolymorphicShape struct {
	Type          schema.TypeID
	PossibleTypes map[schema.TypeID]ShapeID
}

// Shape is one node of the shape tree, addressed by ShapeID.
type Shape struct {
	Kind        ShapeKind
	Concrete    ConcreteShape
	Polymorphic PolymorphicShape
}

// Builder accumulates a Builder-owned shape arena while converting
// operation selections into Shapes.
type Builder struct {
	schema *schema.Schema
	op     *operation.Operation
	shapes []Shape
}

// NewBuilder constructs a shape Builder for one bound operation.
func NewBuilder(s *schema.Schema, op *operation.Operation) *Builder {
	return &Builder{schema: s, op: op}
}

// Shapes returns the accumulated shape arena after one or more Build calls.
func (b *Builder) Shapes() []Shape { return b.shapes }

// Shape resolves a ShapeID.
func (b *Builder) Shape(id ShapeID) Shape { return b.shapes[id] }

// Build converts a flat list of SelectionIDs (typically one partition's
// Selections) rooted at parentType into a Shape tree and returns its
// root ShapeID.
func (b *Builder) Build(selections []operation.SelectionID, parentType schema.TypeID) ShapeID {
	parent, _ := b.schema.Type(parentType)
	if parent.Kind == schema.TypeKindInterface || parent.Kind == schema.TypeKindUnion {
		return b.buildPolymorphic(selections, parentType, parent.PossibleTypes)
	}
	return b.buildConcrete(selections, parentType)
}

// buildConcrete walks selections, inlining any fragment whose type
// condition matches (or is absent, i.e. applies unconditionally) and
// recording one FieldShape per distinct response key in first-occurrence
// order (spec §4.4: "response key ... preserves first-occurrence order").
func (b *Builder) buildConcrete(selections []operation.SelectionID, typ schema.TypeID) ShapeID {
	cs := ConcreteShape{Type: typ}
	seen := map[string]int{} // response key -> index in cs.Fields
	merged := map[string][]operation.SelectionID{}

	var walk func(ids []operation.SelectionID, label string)
	walk = func(ids []operation.SelectionID, label string) {
		for _, id := range ids {
			sel := b.op.Selections[id]
			switch sel.Kind {
			case operation.SelectionField:
				df := sel.Field
				if df.IsTypename {
					continue
				}
				if idx, ok := seen[df.ResponseKey]; ok {
					// Same response key selected twice (e.g. via two
					// fragments): merge nested selections rather than
					// duplicate the field shape.
					if !cs.Fields[idx].IsLeaf && len(df.Selections) > 0 {
						merged[df.ResponseKey] = append(merged[df.ResponseKey], df.Selections...)
						fd, _ := b.schema.Field(df.Field)
						cs.Fields[idx].Output = b.Build(merged[df.ResponseKey], fd.Type.Named)
					}
					continue
				}
				fd, _ := b.schema.Field(df.Field)
				fs := FieldShape{
					ResponseKey:        df.ResponseKey,
					Field:              df.Field,
					IsLeaf:             len(df.Selections) == 0,
					RequiredForSurface: fd.Type.NonNull,
					DeferLabel:         label,
				}
				if !fs.IsLeaf {
					fs.Output = b.Build(df.Selections, fd.Type.Named)
					merged[df.ResponseKey] = append([]operation.SelectionID{}, df.Selections...)
				}
				seen[df.ResponseKey] = len(cs.Fields)
				cs.Fields = append(cs.Fields, fs)
			case operation.SelectionInlineFragment, operation.SelectionFragmentSpread:
				if sel.TypeCondition == 0 || sel.TypeCondition == typ || b.implementsType(typ, sel.TypeCondition) {
					next := label
					if sel.DeferLabel != "" {
						next = sel.DeferLabel
					}
					walk(sel.Selections, next)
				}
			}
		}
	}
	walk(selections, "")

	// Every entity type carries its @key fields into the shape even
	// when the operation never asked for them, so that a dependent
	// partition can later build an _entities representation from this
	// object without a second round trip (spec §6.3).
	if info, ok := b.schema.Entity(typ); ok && len(info.Keys) > 0 {
		for _, node := range b.schema.FieldSet(info.Keys[0].Fields) {
			fd, _ := b.schema.Field(node.Field)
			name := b.schema.Name(fd.Name)
			if _, exists := seen[name]; exists {
				continue
			}
			seen[name] = len(cs.Fields)
			cs.Fields = append(cs.Fields, FieldShape{
				ResponseKey: name,
				Field:       node.Field,
				IsLeaf:      true,
				Hidden:      true,
			})
		}
	}

	id := ShapeID(len(b.shapes))
	b.shapes = append(b.shapes, Shape{Kind: ShapeConcrete, Concrete: cs})
	return id
}

// buildPolymorphic builds one ConcreteShape per possible type, applying
// every selection whose type condition matches that possible type (or
// is unconditional) plus every field selected directly on the abstract
// type itself.
func (b *Builder) buildPolymorphic(selections []operation.SelectionID, abstractType schema.TypeID, possible []schema.TypeID) ShapeID {
	poly := PolymorphicShape{Type: abstractType, PossibleTypes: map[schema.TypeID]ShapeID{}}
	for _, pt := range possible {
		poly.PossibleTypes[pt] = b.buildConcrete(selections, pt)
	}
	id := ShapeID(len(b.shapes))
	b.shapes = append(b.shapes, Shape{Kind: ShapePolymorphic, Polymorphic: poly})
	return id
}

// implementsType reports whether candidate is in typ's possible-type set
// (typ is an interface or union and candidate is one of its members).
func (b *Builder) implementsType(candidate, typ schema.TypeID) bool {
	t, ok := b.schema.Type(typ)
	if !ok {
		return false
	}
	for _, pt := range t.PossibleTypes {
		if pt == candidate {
			return true
		}
	}
	return false
}
