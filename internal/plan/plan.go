// Package plan holds the execution-plan DAG types the solver produces
// and the scheduler consumes (spec §3.3, §4.3 "Partitioning"). Grounded
// on the teacher's federation/planner StepV2/PlanV2, generalized from an
// ast.Selection-carrying step to an id-addressed QueryPartition.
package plan

import (
	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/schema"
)

// PartitionID addresses one QueryPartition within a Plan.
type PartitionID uint32

// ResponseObjectSetID addresses one ResponseObjectSet within a Plan.
type ResponseObjectSetID uint32

// noObjectSet is the sentinel "no input set" value: the root partitions
// of a plan read no input set at all (spec §3.3 QueryPartition "input_set_id").
const noObjectSet ResponseObjectSetID = 0

// QueryPartition is one subgraph call plus its downstream merge target
// (spec §3.3, GLOSSARY "Query partition"). Grounded on StepV2, replacing
// its ast.Selection slice with operation.SelectionID references into the
// bound Operation's selection arena.
type QueryPartition struct {
	ID       PartitionID
	Resolver schema.ResolverID
	Subgraph schema.SubgraphID

	// InputSet is noObjectSet for a root partition; otherwise the
	// ResponseObjectSet this partition reads its entry-point objects from.
	InputSet  ResponseObjectSetID
	OutputSet ResponseObjectSetID

	// Selections are the operation selections this partition's subgraph
	// request must resolve.
	Selections []operation.SelectionID

	// RequiredFields names the @key/@requires fields from InputSet this
	// partition's request needs bound as representations/arguments.
	RequiredFields []schema.FieldID

	// DependsOn lists the partitions that must complete before this one
	// is ready (spec §4.5 "plan_dependencies_count").
	DependsOn []PartitionID

	// IsRootMutation and SourceOrder implement strict root-mutation
	// ordering (spec §4.3 "Mutations order root-level partitions strictly
	// by source order").
	IsRootMutation bool
	SourceOrder    int

	// DeferLabel is non-empty when every terminal assigned to this
	// partition came from the same @defer fragment (spec §4.5 "@defer:
	// deferred fragments produce separate execution waves"). A partition
	// whose terminals mix deferred and non-deferred fields, or terminals
	// from two different labels, is left non-deferred and runs in the
	// initial wave instead — see DESIGN.md.
	DeferLabel string
}

// ResponseObjectSet is a logical set of response objects serving as
// entry points for one or more dependent partitions (spec §3.3, GLOSSARY
// "Response-object set").
type ResponseObjectSet struct {
	ID         ResponseObjectSetID
	EntityType schema.TypeID
	// ConsumerCount is left at 0 by the solver and is neither read nor
	// decremented by the scheduler.
	ConsumerCount int
}

// Plan is the full partition DAG for one bound operation execution (spec
// §3.3, §4.3). It is produced by solver.Solve, which the gateway calls
// for every request (plans are not cached), and is not modified
// afterwards; the scheduler's execution arena holds the
// per-request mutable state (dependency counters, drained object sets).
type Plan struct {
	OperationType  operation.OperationType
	Partitions     []QueryPartition
	ObjectSets     []ResponseObjectSet
	RootPartitions []PartitionID
}

// Partition resolves a PartitionID.
func (p *Plan) Partition(id PartitionID) *QueryPartition {
	return &p.Partitions[id]
}

// ObjectSet resolves a ResponseObjectSetID.
func (p *Plan) ObjectSet(id ResponseObjectSetID) *ResponseObjectSet {
	return &p.ObjectSets[id]
}
