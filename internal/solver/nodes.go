package solver

import "github.com/n9te9/federation-core/internal/schema"

// NodeKind tags the Node variant (spec §4.3: "the candidate graph has
// four kinds of node: root, query field, typename, resolver — plus
// providable-field nodes for @provides reachability"). A tagged struct
// rather than an interface hierarchy, matching the teacher's StepType
// enum idiom (federation/planner/planner_v2.go) in preference to
// per-kind vtables in the solver's hot loop.
type NodeKind uint8

const (
	// NodeRoot is the single synthetic source node every entry point
	// connects from.
	NodeRoot NodeKind = iota
	// NodeQueryField is one selected field of the bound operation that
	// must end up covered by some resolver (a Steiner-tree terminal).
	NodeQueryField
	// NodeTypename is "some resolver in this subgraph returns this
	// type" — the hop between a resolver's output and the next field's
	// candidate resolvers.
	NodeTypename
	// NodeResolver is one schema.ResolverDefinition: selecting it in the
	// solution means the plan issues that resolver's subgraph call.
	NodeResolver
	// NodeProvidableField is a field reachable for free off the back of
	// a resolver's @provides set, connected to its target by a zero-cost
	// shortcut edge.
	NodeProvidableField
)

// Node is one vertex of the solver's candidate graph.
type Node struct {
	Kind NodeKind

	Subgraph schema.SubgraphID
	Type     schema.TypeID
	Field    schema.FieldID
	Resolver schema.ResolverID
}

func (n Node) key() nodeKey {
	return nodeKey{
		kind:     n.Kind,
		subgraph: uint32(n.Subgraph),
		typ:      uint32(n.Type),
		field:    uint32(n.Field),
		resolver: uint32(n.Resolver),
	}
}

// rootNode is the graph's single synthetic source.
var rootNode = Node{Kind: NodeRoot}

// typenameNode builds the "resolver output lands on this subgraph/type"
// node a resolver's result selections hang off of.
func typenameNode(subgraph schema.SubgraphID, typ schema.TypeID) Node {
	return Node{Kind: NodeTypename, Subgraph: subgraph, Type: typ}
}

// queryFieldNode builds the terminal node for one schema field as seen
// from a given parent type (a query-selected field the solver must cover).
func queryFieldNode(typ schema.TypeID, field schema.FieldID) Node {
	return Node{Kind: NodeQueryField, Type: typ, Field: field}
}

// resolverNode builds the node standing for "issue this resolver".
func resolverNode(r schema.ResolverDefinition) Node {
	return Node{Kind: NodeResolver, Subgraph: r.Subgraph, Type: r.Entity, Resolver: r.ID}
}
