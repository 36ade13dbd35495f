// Package response is the single-writer response arena (spec §4.6): an
// id-addressed tree of Object/List/Leaf nodes built directly from
// subgraph response JSON guided by a shape.Shape tree, with null
// bubbling and cross-partition merge-by-key.
//
// Grounded on federation/executor/merger.go's Merge function (walks a
// decoded response and an ast.Selection tree together, writing into a
// shared result map keyed by entity id), generalized from a
// map[string]any merge target into an explicit node arena with parent
// pointers so null bubbling can walk upward without re-deriving the
// selection path.
package response

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/federation-core/internal/plan"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/shape"
)

// NodeID addresses one node of a Builder's arena.
type NodeID uint32

// noParent marks the root node, which has no parent to bubble into.
const noParent NodeID = 0

// NodeKind tags the Node variant (spec §4.6: "three node kinds: Object,
// List, Leaf").
type NodeKind uint8

const (
	NodeObject NodeKind = iota
	NodeList
	NodeLeaf
)

// Node is one entry of a Builder's arena.
type Node struct {
	Kind NodeKind

	// Parent and ParentKey let BubbleNull walk upward without a
	// separate path stack (spec §4.6: "parent pointers stored alongside
	// object/list nodes").
	Parent    NodeID
	HasParent bool
	ParentKey string // response key (Object parent) or index (List parent, formatted)

	// Object
	Shape     shape.ShapeID
	Fields    map[string]NodeID
	FieldKeys []string // insertion order, for response-key-ordered output

	// List
	Elements []NodeID

	// Leaf
	Value interface{}

	// Nullable records whether this node's field/element is allowed to
	// be null without propagating further (spec §4.6: "replacing the
	// nearest nullable ancestor with Leaf(Null)").
	Nullable bool
}

// GraphQLError is one entry of the response's top-level errors array
// (spec §4.6, §7).
type GraphQLError struct {
	Message string
	Path    []string
	Code    string
}

// Builder is the exclusive-per-execution response arena (spec §4.5:
// "response_builder — exclusive to this execution").
type Builder struct {
	nodes    []Node
	root     NodeID
	errors   []GraphQLError
	dataNull bool

	// mergeIndex supports cross-partition merge-by-key (spec §4.6
	// "Merging"): objectSetID -> key tuple -> existing object NodeID.
	mergeIndex map[plan.ResponseObjectSetID]map[string]NodeID
}

// NewBuilder constructs a Builder with an Object root node for rootShape.
func NewBuilder(rootShape shape.ShapeID) *Builder {
	b := &Builder{mergeIndex: map[plan.ResponseObjectSetID]map[string]NodeID{}}
	b.nodes = append(b.nodes, Node{
		Kind:   NodeObject,
		Shape:  rootShape,
		Fields: map[string]NodeID{},
	})
	b.root = 0
	return b
}

// Root returns the response's root NodeID.
func (b *Builder) Root() NodeID { return b.root }

// newNode appends n and returns its NodeID.
func (b *Builder) newNode(n Node) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	return id
}

// NewObject creates an object node as a child of parent under parentKey.
func (b *Builder) NewObject(parent NodeID, parentKey string, nullable bool, sh shape.ShapeID) NodeID {
	return b.newNode(Node{
		Kind:      NodeObject,
		Parent:    parent,
		HasParent: true,
		ParentKey: parentKey,
		Shape:     sh,
		Fields:    map[string]NodeID{},
		Nullable:  nullable,
	})
}

// NewList creates a list node as a child of parent under parentKey.
func (b *Builder) NewList(parent NodeID, parentKey string, nullable bool) NodeID {
	return b.newNode(Node{Kind: NodeList, Parent: parent, HasParent: true, ParentKey: parentKey, Nullable: nullable})
}

// NewLeaf creates a leaf node holding value.
func (b *Builder) NewLeaf(parent NodeID, parentKey string, nullable bool, value interface{}) NodeID {
	return b.newNode(Node{Kind: NodeLeaf, Parent: parent, HasParent: true, ParentKey: parentKey, Nullable: nullable, Value: value})
}

// SetField attaches child under responseKey on an object node, recording
// first-occurrence order (spec §5: "Response-key order in the final
// JSON follows the first occurrence of each key").
func (b *Builder) SetField(obj NodeID, responseKey string, child NodeID) {
	n := &b.nodes[obj]
	if _, exists := n.Fields[responseKey]; !exists {
		n.FieldKeys = append(n.FieldKeys, responseKey)
	}
	n.Fields[responseKey] = child
}

// SetHiddenField attaches child under responseKey on an object node
// without recording it in FieldKeys, so Finalize's render never emits it
// but FieldValue can still read it back (spec §6.3: a @key field pulled
// in only to build a later entity representation, not requested by the
// operation).
func (b *Builder) SetHiddenField(obj NodeID, responseKey string, child NodeID) {
	b.nodes[obj].Fields[responseKey] = child
}

// RegisterForMerge indexes obj under key within set, so a later
// dependent partition populating the same logical entity can locate it
// (spec §4.6 "Merging": "identified by a key tuple derived from the
// parent's @key selection").
func (b *Builder) RegisterForMerge(set plan.ResponseObjectSetID, key string, obj NodeID) {
	m, ok := b.mergeIndex[set]
	if !ok {
		m = map[string]NodeID{}
		b.mergeIndex[set] = m
	}
	m[key] = obj
}

// LookupForMerge finds a previously registered object by key within set.
func (b *Builder) LookupForMerge(set plan.ResponseObjectSetID, key string) (NodeID, bool) {
	m, ok := b.mergeIndex[set]
	if !ok {
		return 0, false
	}
	id, ok := m[key]
	return id, ok
}

// AllForMerge returns every object registered under set, in
// non-deterministic map order; callers that need representation order
// stability collect the keys themselves as they register.
func (b *Builder) AllForMerge(set plan.ResponseObjectSetID) map[string]NodeID {
	return b.mergeIndex[set]
}

// FieldValue reads the scalar value stored at a leaf child field of an
// object node, used to build entity representations from already-decoded
// key fields (spec §6.3: "Representations carry ... exactly the @key
// fields").
func (b *Builder) FieldValue(obj NodeID, responseKey string) (interface{}, bool) {
	n := &b.nodes[obj]
	if n.Kind != NodeObject {
		return nil, false
	}
	childID, ok := n.Fields[responseKey]
	if !ok {
		return nil, false
	}
	child := &b.nodes[childID]
	if child.Kind != NodeLeaf {
		return nil, false
	}
	return child.Value, true
}

// RegisterEntitiesByShape walks the subtree rooted at node and registers
// every object whose shape resolves to entityType under set, keyed by
// the concatenation of its keyFieldNames values (spec §4.6 "Merging":
// objects are "identified by a key tuple derived from the parent's @key
// selection"). It recurses through intervening objects and lists so an
// entity nested arbitrarily deep in a partition's response (e.g. a list
// field of entities) is still found.
func (b *Builder) RegisterEntitiesByShape(set plan.ResponseObjectSetID, node NodeID, shapes []shape.Shape, entityType schema.TypeID, keyFieldNames []string) {
	n := &b.nodes[node]
	switch n.Kind {
	case NodeList:
		for _, el := range n.Elements {
			b.RegisterEntitiesByShape(set, el, shapes, entityType, keyFieldNames)
		}
	case NodeObject:
		sh := shapes[n.Shape]
		if sh.Kind == shape.ShapeConcrete && sh.Concrete.Type == entityType {
			b.RegisterForMerge(set, b.entityKey(node, keyFieldNames), node)
		}
		for _, k := range n.FieldKeys {
			child := n.Fields[k]
			if b.nodes[child].Kind != NodeLeaf {
				b.RegisterEntitiesByShape(set, child, shapes, entityType, keyFieldNames)
			}
		}
	}
}

// entityKey builds a deterministic merge key from the current values of
// an object's key fields.
func (b *Builder) entityKey(obj NodeID, keyFieldNames []string) string {
	names := append([]string{}, keyFieldNames...)
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, _ := b.FieldValue(obj, name)
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	return strings.Join(parts, "|")
}

// BubbleNull implements spec §4.6's null-propagation walk: replace the
// nearest nullable ancestor of node with Leaf(Null) and record one
// GraphQLError; if no nullable ancestor exists, data is null entirely.
func (b *Builder) BubbleNull(node NodeID, path []string, message string) {
	if !b.hasRecordedError(path) {
		b.errors = append(b.errors, GraphQLError{Message: message, Path: path, Code: "SUBGRAPH_INVALID_RESPONSE_ERROR"})
	}

	cur := node
	for {
		n := &b.nodes[cur]
		if n.Nullable || !n.HasParent {
			if !n.HasParent && !n.Nullable {
				b.dataNull = true
				return
			}
			*n = Node{Kind: NodeLeaf, Parent: n.Parent, HasParent: n.HasParent, ParentKey: n.ParentKey, Nullable: n.Nullable, Value: nil}
			if n.HasParent {
				parent := &b.nodes[n.Parent]
				if parent.Kind == NodeObject {
					parent.Fields[n.ParentKey] = cur
				}
			}
			return
		}
		cur = n.Parent
	}
}

func (b *Builder) hasRecordedError(path []string) bool {
	for _, e := range b.errors {
		if samePath(e.Path, path) {
			return true
		}
	}
	return false
}

func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddError appends a GraphQL error without triggering null bubbling
// (used for errors already attached to a field whose value was
// otherwise successfully written, e.g. a partial subgraph error).
func (b *Builder) AddError(err GraphQLError) { b.errors = append(b.errors, err) }

// Finalize renders the arena into a plain data value plus the errors
// array (spec §6.2's {data, errors, extensions} shape; extensions are
// added by the caller).
func (b *Builder) Finalize() (interface{}, []GraphQLError) {
	if b.dataNull {
		return nil, b.errors
	}
	return b.render(b.root), b.errors
}

func (b *Builder) render(id NodeID) interface{} {
	n := &b.nodes[id]
	switch n.Kind {
	case NodeLeaf:
		return n.Value
	case NodeList:
		out := make([]interface{}, len(n.Elements))
		for i, el := range n.Elements {
			out[i] = b.render(el)
		}
		return out
	default: // NodeObject
		out := make(map[string]interface{}, len(n.FieldKeys))
		for _, k := range n.FieldKeys {
			out[k] = b.render(n.Fields[k])
		}
		return out
	}
}
