package solver

import (
	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/plan"
	"github.com/n9te9/federation-core/internal/schema"
)

// BuildGraph compiles a schema's resolvers and field ownership into the
// candidate graph solving walks (spec §4.3). Grounded on
// federation/graph/weighted_graph.go's BuildGraph three-pass construction
// (node creation, same-subgraph type/field edges, cross-subgraph @key
// edges, @provides shortcuts), generalized from subgraph-name/type-name
// strings to schema ids.
func BuildGraph(s *schema.Schema) *Graph {
	g := NewGraph()
	root := g.AddNode(rootNode)

	// Pass 1: every resolver becomes a NodeResolver, wired to the
	// typename node its result lands on.
	for _, r := range s.Resolvers() {
		rn := g.AddNode(resolverNode(r))
		tn := g.AddNode(typenameNode(r.Subgraph, r.Entity))
		g.AddEdge(rn, tn, 0)

		if r.Kind == schema.ResolverGraphqlRootField {
			// Root field resolvers are entry points: the scheduler can
			// always start here for free (the root request itself costs
			// nothing; the resolver traversal is charged as usual so two
			// root fields in different subgraphs aren't free to combine).
			g.AddEdge(root, rn, 1)
		}
	}

	// Pass 2: same-subgraph type -> field edges, zero cost (answering a
	// field already in hand never requires another resolver traversal).
	for _, fd := range s.Fields() {
		qf := g.AddNode(queryFieldNode(fd.Parent, fd.ID))
		ret, _ := s.Type(fd.Type.Named)
		for _, sg := range fd.ExistsInSubgraphIDs {
			tn := g.AddNode(typenameNode(sg, fd.Parent))
			g.AddEdge(tn, qf, 0)
			if fd.Type.Named != 0 && ret.Kind.IsCompositeType() {
				// A composite-typed field answered in sg hands its nested
				// selection the returned object in that same subgraph.
				g.AddEdge(qf, g.AddNode(typenameNode(sg, fd.Type.Named)), 0)
			}
		}
	}

	// Pass 3: cross-subgraph @key edges. Once an object of an entity
	// type is known in subgraph A, jumping to any resolver that resolves
	// that entity from subgraph B costs 1 (one more subgraph call).
	for typeID, info := range s.Entities() {
		for srcSG := range info.Resolvers {
			tn := g.AddNode(typenameNode(srcSG, typeID))
			for dstSG, resolverIDs := range info.Resolvers {
				if dstSG == srcSG {
					continue
				}
				for _, rid := range resolverIDs {
					r, ok := s.Resolver(rid)
					if !ok {
						continue
					}
					rn := g.AddNode(resolverNode(r))
					g.AddEdge(tn, rn, 1)
				}
			}
		}
	}

	// Pass 4: @provides shortcuts. A field carrying @provides in a given
	// subgraph means that subgraph's resolver already returns the
	// provided sub-selection inline, so reaching it costs nothing even
	// when it would otherwise require a separate entity resolver jump.
	for _, fd := range s.Fields() {
		for sg, fsID := range fd.Provides {
			retType := fd.Type.Named
			tn := g.AddNode(typenameNode(sg, retType))
			for _, node := range s.FieldSet(fsID) {
				qf := g.AddNode(queryFieldNode(retType, node.Field))
				g.AddShortcut(tn, qf)
			}
		}
	}

	return g
}

// terminal is one query field the solver must cover, paired with the
// operation selections that reference it.
type terminal struct {
	node       NodeID
	typ        schema.TypeID
	field      schema.FieldID
	selections []operation.SelectionID
	// deferLabel is the enclosing @defer fragment's label, when every
	// occurrence of this terminal was reached through the same label; a
	// terminal reached both inside and outside a @defer fragment (or
	// through two different labels) carries "" so it is treated as
	// non-deferred.
	deferLabel string
	mixed      bool
}

// Solver runs the greedy terminal-absorption algorithm of spec §4.3 over
// a schema's candidate graph for one bound operation.
type Solver struct {
	schema *schema.Schema
	graph  *Graph
}

// New builds a Solver for s, compiling its candidate graph once so it
// can be reused across every operation bound against the same schema
// version.
func New(s *schema.Schema) *Solver {
	return &Solver{schema: s, graph: BuildGraph(s)}
}

// Solve produces an execution Plan for op (spec §4.3's "Partitioning"
// output), grounded on federation/planner/planner_v2_optimized.go's
// PlanOptimized (collectEntryPoints + Dijkstra + greedy entity-step
// assembly), generalized from a single Dijkstra-then-assign pass into
// the spec's repeated shortest-path-then-absorb loop.
func (sv *Solver) Solve(op *operation.Operation) (*plan.Plan, error) {
	terms, err := sv.collectTerminals(op)
	if err != nil {
		return nil, err
	}

	root := rootNode.key()
	rootID := sv.graph.index[root]

	entryPoints := []NodeID{rootID}
	selected := map[NodeID]bool{rootID: true}
	// resolverOrder preserves first-discovery order so partitions are
	// created deterministically (spec §8 determinism property).
	var resolverOrder []NodeID
	resolverSelections := map[NodeID][]operation.SelectionID{}
	resolverDeps := map[NodeID]map[NodeID]bool{}
	// resolverDeferLabels accumulates every distinct defer label (""
	// included) assigned to a resolver across all terminals it answers;
	// assemble() only defers a partition whose only label is non-empty.
	resolverDeferLabels := map[NodeID]map[string]bool{}

	for _, t := range terms {
		res := sv.graph.Dijkstra(entryPoints)
		if _, ok := res.Dist[t.node]; !ok {
			name := sv.schema.Name(mustType(sv.schema, t.typ).Name)
			fname := sv.schema.Name(mustField(sv.schema, t.field).Name)
			return nil, &UnreachableFieldError{TypeName: name, FieldName: fname}
		}
		path := res.ReconstructPath(t.node)
		sv.graph.ZeroPathCost(path)

		var lastResolver NodeID
		haveLast := false
		for _, n := range path {
			if sv.graph.Nodes[n].Kind != NodeResolver {
				continue
			}
			if !selected[n] {
				selected[n] = true
				resolverOrder = append(resolverOrder, n)
				entryPoints = append(entryPoints, n)
			}
			if haveLast {
				if resolverDeps[n] == nil {
					resolverDeps[n] = map[NodeID]bool{}
				}
				resolverDeps[n][lastResolver] = true
			}
			lastResolver = n
			haveLast = true
		}
		if haveLast {
			resolverSelections[lastResolver] = append(resolverSelections[lastResolver], t.selections...)
			if resolverDeferLabels[lastResolver] == nil {
				resolverDeferLabels[lastResolver] = map[string]bool{}
			}
			resolverDeferLabels[lastResolver][t.deferLabel] = true
		}
	}

	return sv.assemble(op, resolverOrder, resolverSelections, resolverDeps, resolverDeferLabels)
}

// assemble turns the selected resolver set and its dependency edges into
// a plan.Plan, grounded on federation/planner's StepV2 assembly
// (entity-step building followed by injectRequiresDependencies),
// generalized to the plan package's id-addressed QueryPartition/
// ResponseObjectSet types.
func (sv *Solver) assemble(
	op *operation.Operation,
	resolverOrder []NodeID,
	resolverSelections map[NodeID][]operation.SelectionID,
	resolverDeps map[NodeID]map[NodeID]bool,
	resolverDeferLabels map[NodeID]map[string]bool,
) (*plan.Plan, error) {
	p := &plan.Plan{OperationType: op.Type}
	// ObjectSets[0] is reserved as the "no input set" sentinel, matching
	// the plan package's noObjectSet convention.
	p.ObjectSets = append(p.ObjectSets, plan.ResponseObjectSet{ID: 0})

	partitionOf := map[NodeID]plan.PartitionID{}
	outputSetOf := map[NodeID]plan.ResponseObjectSetID{}

	for _, n := range resolverOrder {
		node := sv.graph.Nodes[n]
		r, _ := sv.schema.Resolver(node.Resolver)

		outID := plan.ResponseObjectSetID(len(p.ObjectSets))
		p.ObjectSets = append(p.ObjectSets, plan.ResponseObjectSet{ID: outID, EntityType: r.Entity})
		outputSetOf[n] = outID

		pid := plan.PartitionID(len(p.Partitions))
		p.Partitions = append(p.Partitions, plan.QueryPartition{
			ID:             pid,
			Resolver:       r.ID,
			Subgraph:       r.Subgraph,
			OutputSet:      outID,
			Selections:     resolverSelections[n],
			RequiredFields: flattenFieldSet(sv.schema, r.Key),
			IsRootMutation: r.Kind == schema.ResolverGraphqlRootField && op.Type == operation.OperationMutation,
			SourceOrder:    int(pid),
			DeferLabel:     soleDeferLabel(resolverDeferLabels[n]),
		})
		partitionOf[n] = pid
	}

	for n, deps := range resolverDeps {
		pid := partitionOf[n]
		part := p.Partition(pid)
		for dep := range deps {
			depPID := partitionOf[dep]
			part.DependsOn = append(part.DependsOn, depPID)
			part.InputSet = outputSetOf[dep]
		}
	}

	for _, n := range resolverOrder {
		pid := partitionOf[n]
		if len(p.Partition(pid).DependsOn) == 0 {
			p.RootPartitions = append(p.RootPartitions, pid)
		}
	}

	return p, nil
}

// collectTerminals walks every selection reachable from op's root,
// building one terminal per distinct (parent type, field) pair and
// collecting every SelectionID that resolves to it. __typename
// selections are skipped: they never require a resolver traversal since
// the scheduler synthesizes them locally from whatever object is already
// in hand.
func (sv *Solver) collectTerminals(op *operation.Operation) ([]terminal, error) {
	byNode := map[NodeID]*terminal{}
	var order []NodeID

	var walk func(ids []operation.SelectionID, label string)
	walk = func(ids []operation.SelectionID, label string) {
		for _, id := range ids {
			sel := op.Selections[id]
			switch sel.Kind {
			case operation.SelectionField:
				df := sel.Field
				if df.IsTypename {
					continue
				}
				n := queryFieldNode(df.Parent, df.Field)
				id32, ok := sv.graph.Lookup(n)
				if !ok {
					id32 = sv.graph.AddNode(n)
				}
				t, ok := byNode[id32]
				if !ok {
					t = &terminal{node: id32, typ: df.Parent, field: df.Field, deferLabel: label}
					byNode[id32] = t
					order = append(order, id32)
				} else if t.deferLabel != label {
					t.mixed = true
				}
				t.selections = append(t.selections, id)
				walk(df.Selections, label)
			case operation.SelectionInlineFragment, operation.SelectionFragmentSpread:
				next := label
				if sel.DeferLabel != "" {
					next = sel.DeferLabel
				}
				walk(sel.Selections, next)
			}
		}
	}
	walk(op.RootSelections, "")

	terms := make([]terminal, 0, len(order))
	for _, n := range order {
		t := *byNode[n]
		if t.mixed {
			t.deferLabel = ""
		}
		terms = append(terms, t)
	}
	return terms, nil
}

// soleDeferLabel returns the one non-empty label in labels, or "" if
// labels is empty, has more than one distinct entry, or its only entry
// is the non-deferred "" bucket — a partition only defers when every
// terminal it answers agrees on exactly one @defer label.
func soleDeferLabel(labels map[string]bool) string {
	if len(labels) != 1 {
		return ""
	}
	for l := range labels {
		return l
	}
	return ""
}

func flattenFieldSet(s *schema.Schema, id schema.FieldSetID) []schema.FieldID {
	nodes := s.FieldSet(id)
	if len(nodes) == 0 {
		return nil
	}
	out := make([]schema.FieldID, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Field)
	}
	return out
}

func mustType(s *schema.Schema, id schema.TypeID) schema.TypeDefinition {
	t, _ := s.Type(id)
	return t
}

func mustField(s *schema.Schema, id schema.FieldID) schema.FieldDefinition {
	f, _ := s.Field(id)
	return f
}
