package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/n9te9/federation-core/internal/capability"
	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/plan"
	"github.com/n9te9/federation-core/internal/response"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/shape"
	"golang.org/x/sync/errgroup"
)

// Executor runs one plan.Plan to completion (spec §4.5). A fresh
// Executor-driven execution owns its own response.Builder/dependency
// state exclusively for the lifetime of one request (spec §4.5: "each
// request has an execution arena it exclusively owns").
type Executor struct {
	schema      *schema.Schema
	fetcher     capability.Fetcher
	subFetcher  capability.SubscriptionFetcher // nil disables subscription execution
	entityCache capability.EntityCache        // nil disables entity-result caching
	entityTTL   int

	headers     map[string]string
	headerRules map[string][]capability.HeaderRule // keyed by subgraph name

	subgraphTimeouts map[string]time.Duration // keyed by subgraph name
	defaultTimeout   time.Duration
}

// ExecutorOption configures optional Executor behavior.
type ExecutorOption func(*Executor)

// WithEntityCache enables per-entity response caching for entity-fetch
// partitions (spec §6.4's EntityCache: "opaque bytes" keyed by whatever
// the caller derives — here, subgraph + type + @key field values), with
// ttlSeconds forwarded to every Put.
func WithEntityCache(c capability.EntityCache, ttlSeconds int) ExecutorOption {
	return func(e *Executor) {
		e.entityCache = c
		e.entityTTL = ttlSeconds
	}
}

// WithRequestHeaders installs the client's incoming request headers
// plus the per-subgraph header_rules used to derive each outbound
// subgraph call's headers (spec §6.5's per-subgraph header_rules).
func WithRequestHeaders(headers map[string]string, rules map[string][]capability.HeaderRule) ExecutorOption {
	return func(e *Executor) {
		e.headers = headers
		e.headerRules = rules
	}
}

// WithSubgraphTimeouts installs the per-subgraph call timeout (spec
// §6.3: "each subgraph call carries an optional per-subgraph timeout
// [...]; on expiry, the call is treated as a subgraph failure"),
// falling back to defaultTimeout for a subgraph with none configured.
func WithSubgraphTimeouts(timeouts map[string]time.Duration, defaultTimeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.subgraphTimeouts = timeouts
		e.defaultTimeout = defaultTimeout
	}
}

// WithSubscriptionFetcher installs the capability used to run
// subscription operations (spec §4.5). An Executor with no
// SubscriptionFetcher rejects subscription plans from ExecuteIncremental.
func WithSubscriptionFetcher(f capability.SubscriptionFetcher) ExecutorOption {
	return func(e *Executor) { e.subFetcher = f }
}

// NewExecutor builds an Executor bound to a schema version and a
// Fetcher capability.
func NewExecutor(s *schema.Schema, f capability.Fetcher, opts ...ExecutorOption) *Executor {
	e := &Executor{schema: s, fetcher: f}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the rendered outcome of one execution.
type Result struct {
	Data   interface{}
	Errors []response.GraphQLError
}

// execState is the per-request mutable plan-execution state (spec
// §4.5's "plan_dependencies_count" / "response_object_sets" /
// "response_builder"), generalized from
// federation/executor/executor_v2.go's ExecutionContext (results map +
// mutex). depCount is filled with each partition's dependency count but
// is not read: readiness is recomputed by readyPartitions, which checks
// every not-yet-done partition's DependsOn against done after each wave.
type execState struct {
	mu       sync.Mutex
	depCount map[plan.PartitionID]int
	done     map[plan.PartitionID]bool
	builder  *response.Builder
	shapes   *shape.Builder
}

// Execute runs p to completion against op, using variables as the
// already-coerced request variable values, and returns the rendered
// response (spec §4.5's main loop).
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}) (*Result, error) {
	shapes := shape.NewBuilder(e.schema, op)
	rootShape := shapes.Build(op.RootSelections, op.RootType)
	builder := response.NewBuilder(rootShape)

	st := &execState{
		depCount: map[plan.PartitionID]int{},
		done:     map[plan.PartitionID]bool{},
		builder:  builder,
		shapes:   shapes,
	}
	for i := range p.Partitions {
		st.depCount[plan.PartitionID(i)] = len(p.Partitions[i].DependsOn)
	}

	if op.Type == operation.OperationMutation {
		if err := e.runMutationSequence(ctx, p, op, variables, st); err != nil {
			return nil, err
		}
	} else {
		ready := initialReady(p, st)
		if err := e.runWaves(ctx, p, op, variables, st, ready); err != nil {
			return nil, err
		}
	}

	data, errs := builder.Finalize()
	return &Result{Data: data, Errors: errs}, nil
}

// Incremental is one payload of an incrementally-delivered execution:
// the initial wave of a @defer'd query/mutation, a later completed
// defer label, or one subscription item (spec §4.5, §4.6). Label
// identifies which @defer fragment completed; it is empty for the
// initial wave and for every subscription item.
type Incremental struct {
	Label  string
	Data   interface{}
	Errors []response.GraphQLError
	Final  bool
}

// ExecuteIncremental runs p as a sequence of Incremental payloads
// instead of Execute's single Result, for the two cases spec §4.5 names
// as incremental: subscriptions (one payload per subgraph-emitted item)
// and @defer (one payload for the initial wave, then one per completed
// label, emitted in completion order). The returned channel is closed
// once the execution (or subscription stream) ends.
func (e *Executor) ExecuteIncremental(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}) (<-chan Incremental, error) {
	if op.Type == operation.OperationSubscription {
		return e.subscriptionStream(ctx, p, op, variables)
	}
	return e.deferredExecution(ctx, p, op, variables)
}

// deferLabels returns the distinct non-empty QueryPartition.DeferLabel
// values in plan order (first occurrence), the order deferred groups are
// started in.
func deferLabels(p *plan.Plan) []string {
	seen := map[string]bool{}
	var labels []string
	for i := range p.Partitions {
		l := p.Partitions[i].DeferLabel
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels
}

// deferredExecution runs every non-deferred partition first and emits
// that as the initial Incremental, then runs each @defer label's
// partitions concurrently, emitting one Incremental per label as it
// completes (spec §4.5 "@defer", resolving the open question on
// ordering in SPEC_FULL.md as completion order). Each Incremental
// carries the response builder's full materialized data at that point
// rather than a per-label path-scoped patch: simpler to build correctly
// and still a strict superset of the minimal incremental payload, at
// the cost of re-sending already-delivered fields on every later wave
// (documented in DESIGN.md).
func (e *Executor) deferredExecution(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}) (<-chan Incremental, error) {
	shapes := shape.NewBuilder(e.schema, op)
	rootShape := shapes.Build(op.RootSelections, op.RootType)
	builder := response.NewBuilder(rootShape)
	st := &execState{
		depCount: map[plan.PartitionID]int{},
		done:     map[plan.PartitionID]bool{},
		builder:  builder,
		shapes:   shapes,
	}
	for i := range p.Partitions {
		st.depCount[plan.PartitionID(i)] = len(p.Partitions[i].DependsOn)
	}

	notDeferred := func(id plan.PartitionID) bool { return p.Partitions[id].DeferLabel == "" }
	labels := deferLabels(p)

	out := make(chan Incremental, 1)
	go func() {
		defer close(out)

		var err error
		if op.Type == operation.OperationMutation {
			err = e.runMutationSequenceFiltered(ctx, p, op, variables, st, notDeferred)
		} else {
			var seed []plan.PartitionID
			for _, id := range p.RootPartitions {
				if notDeferred(id) {
					seed = append(seed, id)
				}
			}
			err = e.runFrom(ctx, p, op, variables, st, seed, notDeferred)
		}

		st.mu.Lock()
		data, errs := st.builder.Finalize()
		st.mu.Unlock()
		if err != nil {
			out <- Incremental{Data: data, Errors: append(errs, response.GraphQLError{Message: err.Error()}), Final: true}
			return
		}
		out <- Incremental{Data: data, Errors: errs, Final: len(labels) == 0}
		if len(labels) == 0 {
			return
		}

		for inc := range e.runDeferredGroups(ctx, p, op, variables, st, labels) {
			out <- inc
		}
	}()
	return out, nil
}

// runMutationSequenceFiltered is runMutationSequence restricted to root
// partitions allowed permits, used by the initial (non-deferred) wave of
// a @defer'd mutation.
func (e *Executor) runMutationSequenceFiltered(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}, st *execState, allowed func(plan.PartitionID) bool) error {
	var roots []plan.PartitionID
	for _, id := range p.RootPartitions {
		if allowed(id) {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return p.Partitions[roots[i]].SourceOrder < p.Partitions[roots[j]].SourceOrder })

	for i, pid := range roots {
		later := map[plan.PartitionID]bool{}
		for _, r := range roots[i+1:] {
			later[r] = true
		}
		notLater := func(id plan.PartitionID) bool { return allowed(id) && !later[id] }
		if err := e.runFrom(ctx, p, op, variables, st, []plan.PartitionID{pid}, notLater); err != nil {
			return err
		}
	}
	return nil
}

// runDeferredGroups runs every label's partitions concurrently against
// the shared execState and reports each as it finishes, in completion
// order; the last to finish is marked Final.
func (e *Executor) runDeferredGroups(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}, st *execState, labels []string) <-chan Incremental {
	out := make(chan Incremental)
	go func() {
		defer close(out)

		var wg sync.WaitGroup
		var orderMu sync.Mutex
		remaining := len(labels)

		for _, label := range labels {
			label := label
			allowed := func(id plan.PartitionID) bool { return p.Partitions[id].DeferLabel == label }

			wg.Add(1)
			go func() {
				defer wg.Done()

				seed := e.readyPartitions(p, st, allowed)
				runErr := e.runFrom(ctx, p, op, variables, st, seed, allowed)

				st.mu.Lock()
				data, errs := st.builder.Finalize()
				st.mu.Unlock()
				if runErr != nil {
					errs = append(errs, response.GraphQLError{Message: runErr.Error()})
				}

				orderMu.Lock()
				remaining--
				out <- Incremental{Label: label, Data: data, Errors: errs, Final: remaining == 0}
				orderMu.Unlock()
			}()
		}
		wg.Wait()
	}()
	return out
}

// subscriptionStream runs a subscription plan's single root partition
// through the SubscriptionFetcher capability and re-runs the remainder
// of the plan once per emitted item (spec §4.5: "the subscription
// partition is selected at preparation; the scheduler runs it, then,
// for each item emitted by the subgraph stream, runs the remainder of
// the plan as a normal execution over that item").
func (e *Executor) subscriptionStream(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}) (<-chan Incremental, error) {
	if e.subFetcher == nil {
		return nil, fmt.Errorf("scheduler: subscription operation requires a SubscriptionFetcher")
	}
	if len(p.RootPartitions) != 1 {
		return nil, fmt.Errorf("scheduler: subscription plan must have exactly one root partition, got %d", len(p.RootPartitions))
	}

	subPID := p.RootPartitions[0]
	part := p.Partition(subPID)
	sg, _ := e.schema.Subgraph(part.Subgraph)
	subgraphName := e.schema.Name(sg.Name)

	query := buildRootQuery(e.schema, op, "subscription", op.RootType, part.Selections)
	reqVars := make(map[string]interface{}, len(variables))
	for k, v := range variables {
		reqVars[k] = v
	}

	events, err := e.subFetcher.Subscribe(ctx, capability.SubgraphRequest{
		URL:       sg.WebsocketURL,
		Query:     query,
		Variables: reqVars,
		Headers:   capability.ApplyHeaderRules(e.headerRules[subgraphName], e.headers),
	})
	if err != nil {
		return nil, err
	}

	out := make(chan Incremental)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				result, err := e.runSubscriptionItem(ctx, p, op, variables, subPID, ev)
				if err != nil {
					out <- Incremental{Errors: []response.GraphQLError{{Message: err.Error()}}}
					continue
				}
				out <- Incremental{Data: result.Data, Errors: result.Errors}
			}
		}
	}()
	return out, nil
}

// runSubscriptionItem builds a fresh response arena seeded with one
// subscription event in place of what would otherwise be the
// subscription root partition's own Fetch response, then drains the
// rest of the plan via the normal wave scheduler (spec §5: "Subscription
// items are delivered in source order from the subgraph stream" — each
// item's remainder-of-plan execution is independent and ordering is
// preserved by reading one event at a time off the channel before
// dispatching the next).
func (e *Executor) runSubscriptionItem(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}, subPID plan.PartitionID, ev capability.SubgraphEvent) (*Result, error) {
	shapes := shape.NewBuilder(e.schema, op)
	rootShape := shapes.Build(op.RootSelections, op.RootType)
	builder := response.NewBuilder(rootShape)
	st := &execState{
		depCount: map[plan.PartitionID]int{},
		done:     map[plan.PartitionID]bool{},
		builder:  builder,
		shapes:   shapes,
	}
	for i := range p.Partitions {
		st.depCount[plan.PartitionID(i)] = len(p.Partitions[i].DependsOn)
	}

	part := p.Partition(subPID)
	outType := outputType(e.schema, p, part)
	outputShape := st.shapes.Build(part.Selections, outType)
	dec := response.NewDecoder(st.shapes.Shapes(), st.builder)
	dec.DecodeObject(st.builder.Root(), outputShape, ev.Data, nil)
	if keyNames := entityKeyFieldNames(e.schema, outType); len(keyNames) > 0 {
		st.builder.RegisterEntitiesByShape(part.OutputSet, st.builder.Root(), st.shapes.Shapes(), outType, keyNames)
	}
	for _, subErr := range ev.Errors {
		msg, _ := subErr["message"].(string)
		st.builder.AddError(response.GraphQLError{Message: msg, Code: "SUBGRAPH_REQUEST_ERROR"})
	}
	st.done[subPID] = true

	rest := e.readyPartitions(p, st, nil)
	if err := e.runFrom(ctx, p, op, variables, st, rest, nil); err != nil {
		return nil, err
	}

	data, errs := builder.Finalize()
	return &Result{Data: data, Errors: errs}, nil
}

func initialReady(p *plan.Plan, st *execState) []plan.PartitionID {
	var ready []plan.PartitionID
	for _, id := range p.RootPartitions {
		ready = append(ready, id)
	}
	return ready
}

// readyPartitions scans every partition not yet done whose dependencies
// are all done, restricted to allowed when non-nil (spec §4.5's
// "response_object_sets populated by upstream partitions" readiness
// check, generalized with a predicate so @defer label groups and the
// unrestricted full-plan run share one implementation).
func (e *Executor) readyPartitions(p *plan.Plan, st *execState, allowed func(plan.PartitionID) bool) []plan.PartitionID {
	st.mu.Lock()
	defer st.mu.Unlock()
	var ready []plan.PartitionID
	for i := range p.Partitions {
		id := plan.PartitionID(i)
		if st.done[id] {
			continue
		}
		if allowed != nil && !allowed(id) {
			continue
		}
		isReady := true
		for _, dep := range p.Partitions[i].DependsOn {
			if !st.done[dep] {
				isReady = false
				break
			}
		}
		if isReady {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	return ready
}

// runFrom runs wave to completion, concurrently dispatching every
// partition in a wave and then recomputing the ready set (restricted to
// allowed, when non-nil) with readyPartitions, which re-scans the
// DependsOn list of every not-yet-done partition (spec §4.5 main loop
// steps 2.c-2.f), grounded on executor_v2.go's
// executeSteps/findReadySteps recursive wave pattern.
func (e *Executor) runFrom(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}, st *execState, wave []plan.PartitionID, allowed func(plan.PartitionID) bool) error {
	for len(wave) > 0 {
		eg, gctx := errgroup.WithContext(ctx)
		for _, pid := range wave {
			pid := pid
			eg.Go(func() error {
				return e.runPartition(gctx, p, op, variables, st, pid)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		st.mu.Lock()
		for _, pid := range wave {
			st.done[pid] = true
		}
		st.mu.Unlock()

		wave = e.readyPartitions(p, st, allowed)
	}
	return nil
}

// runWaves runs the unrestricted ready set (every partition in the
// plan, regardless of @defer label) to completion.
func (e *Executor) runWaves(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}, st *execState, wave []plan.PartitionID) error {
	return e.runFrom(ctx, p, op, variables, st, wave, nil)
}

// runMutationSequence runs root-level mutation partitions strictly in
// source order (spec §4.5: "partition[i+1] may not start before
// partition[i] has completed"); non-root partitions dependent on a
// mutation still run via the normal wave scheduler once their
// dependency is satisfied.
func (e *Executor) runMutationSequence(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}, st *execState) error {
	roots := append([]plan.PartitionID{}, p.RootPartitions...)
	sort.Slice(roots, func(i, j int) bool { return p.Partitions[roots[i]].SourceOrder < p.Partitions[roots[j]].SourceOrder })

	for i, pid := range roots {
		// Later root partitions stay out of the ready set until their turn.
		later := map[plan.PartitionID]bool{}
		for _, r := range roots[i+1:] {
			later[r] = true
		}
		notLater := func(id plan.PartitionID) bool { return !later[id] }
		if err := e.runFrom(ctx, p, op, variables, st, []plan.PartitionID{pid}, notLater); err != nil {
			return err
		}
	}
	return nil
}

// runPartition dispatches one partition's subgraph call and writes its
// response into the shared response builder.
func (e *Executor) runPartition(ctx context.Context, p *plan.Plan, op *operation.Operation, variables map[string]interface{}, st *execState, pid plan.PartitionID) error {
	part := p.Partition(pid)
	sg, _ := e.schema.Subgraph(part.Subgraph)

	isEntityFetch := part.InputSet != 0
	var query string
	reqVars := map[string]interface{}{}

	var representations []map[string]interface{}
	var repOrder []string
	var entityTypeID schema.TypeID
	var typeName string
	cacheHits := map[string]map[string]interface{}{}
	if isEntityFetch {
		entityTypeID = p.ObjectSet(part.InputSet).EntityType
		entityType, _ := e.schema.Type(entityTypeID)
		typeName = e.schema.Name(entityType.Name)
		merged := st.builder.AllForMerge(part.InputSet)
		keys := make([]string, 0, len(merged))
		for key := range merged {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			obj := merged[key]
			rep := map[string]interface{}{"__typename": typeName}
			for _, fid := range part.RequiredFields {
				fd, _ := e.schema.Field(fid)
				name := e.schema.Name(fd.Name)
				if v, ok := st.builder.FieldValue(obj, name); ok {
					rep[name] = v
				}
			}

			if e.entityCache != nil {
				cacheKey := e.entityCacheKeyFor(sg.Name, typeName, rep)
				if raw, ok, err := e.entityCache.Get(ctx, cacheKey); err == nil && ok {
					var cached map[string]interface{}
					if json.Unmarshal(raw, &cached) == nil {
						cacheHits[key] = cached
						continue
					}
				}
			}

			representations = append(representations, rep)
			repOrder = append(repOrder, key)
		}
		reqVars["representations"] = representations
		query = buildEntityQuery(e.schema, op, entityTypeID, part.Selections)
	} else {
		keyword := "query"
		if part.IsRootMutation {
			keyword = "mutation"
		}
		query = buildRootQuery(e.schema, op, keyword, op.RootType, part.Selections)
		for k, v := range variables {
			reqVars[k] = v
		}
	}

	subgraphName := e.schema.Name(sg.Name)

	var resp *capability.SubgraphResponse
	if !isEntityFetch || len(representations) > 0 {
		fetchCtx := ctx
		if timeout, ok := e.subgraphTimeout(subgraphName); ok {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		var err error
		resp, err = e.fetcher.Fetch(fetchCtx, capability.SubgraphRequest{
			URL:       sg.URL,
			Query:     query,
			Variables: reqVars,
			Headers:   capability.ApplyHeaderRules(e.headerRules[subgraphName], e.headers),
		})
		if err != nil {
			return fmt.Errorf("scheduler: partition %d subgraph call to %q failed: %w", pid, subgraphName, err)
		}
	} else {
		resp = &capability.SubgraphResponse{Data: map[string]interface{}{}}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	outType := outputType(e.schema, p, part)
	outputShape := st.shapes.Build(part.Selections, outType)
	dec := response.NewDecoder(st.shapes.Shapes(), st.builder)

	if isEntityFetch {
		for key, m := range cacheHits {
			obj, ok := st.builder.LookupForMerge(part.InputSet, key)
			if !ok {
				continue
			}
			dec.DecodeObject(obj, outputShape, m, []string{})
			st.builder.RegisterForMerge(part.OutputSet, key, obj)
		}

		entities, _ := resp.Data["_entities"].([]interface{})
		for i, ent := range entities {
			if i >= len(repOrder) {
				break
			}
			obj, ok := st.builder.LookupForMerge(part.InputSet, repOrder[i])
			if !ok {
				continue
			}
			m, ok := ent.(map[string]interface{})
			if !ok {
				continue
			}
			dec.DecodeObject(obj, outputShape, m, []string{})
			st.builder.RegisterForMerge(part.OutputSet, repOrder[i], obj)

			if e.entityCache != nil {
				if raw, err := json.Marshal(m); err == nil {
					_ = e.entityCache.Put(ctx, e.entityCacheKeyFor(sg.Name, typeName, representations[i]), raw, e.entityTTL)
				}
			}
		}
	} else {
		dec.DecodeObject(st.builder.Root(), outputShape, resp.Data, nil)
		if keyNames := entityKeyFieldNames(e.schema, outType); len(keyNames) > 0 {
			st.builder.RegisterEntitiesByShape(part.OutputSet, st.builder.Root(), st.shapes.Shapes(), outType, keyNames)
		}
	}

	for _, subErr := range resp.Errors {
		msg, _ := subErr["message"].(string)
		st.builder.AddError(response.GraphQLError{Message: msg, Code: "SUBGRAPH_REQUEST_ERROR"})
	}

	return nil
}

// entityKeyFieldNames returns the top-level field names of typ's first
// declared @key (spec §6.3's representations carry "exactly the @key
// fields"); entities with no key declaration (not federated) yield nil,
// which skips merge registration entirely.
func entityKeyFieldNames(s *schema.Schema, typ schema.TypeID) []string {
	info, ok := s.Entity(typ)
	if !ok || len(info.Keys) == 0 {
		return nil
	}
	nodes := s.FieldSet(info.Keys[0].Fields)
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		fd, _ := s.Field(n.Field)
		names = append(names, s.Name(fd.Name))
	}
	return names
}

// entityCacheKey derives a stable cache key from a subgraph, an entity
// type name, and a representation's key-field values, sorted so field
// iteration order never affects the key.
func (e *Executor) entityCacheKeyFor(subgraph schema.StringID, typeName string, rep map[string]interface{}) string {
	return entityCacheKey(e.schema.Name(subgraph), typeName, rep)
}

// subgraphTimeout returns the configured timeout for name, falling
// back to the default timeout; ok is false when neither is set,
// meaning the call should inherit the parent context's deadline only.
func (e *Executor) subgraphTimeout(name string) (time.Duration, bool) {
	if t, ok := e.subgraphTimeouts[name]; ok && t > 0 {
		return t, true
	}
	if e.defaultTimeout > 0 {
		return e.defaultTimeout, true
	}
	return 0, false
}

func entityCacheKey(subgraphName, typeName string, rep map[string]interface{}) string {
	names := make([]string, 0, len(rep))
	for k := range rep {
		if k == "__typename" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString(subgraphName)
	sb.WriteByte('|')
	sb.WriteString(typeName)
	sb.WriteByte('|')
	for _, n := range names {
		fmt.Fprintf(&sb, "%s=%v|", n, rep[n])
	}
	return sb.String()
}

func outputType(s *schema.Schema, p *plan.Plan, part *plan.QueryPartition) schema.TypeID {
	r, _ := s.Resolver(part.Resolver)
	if r.Kind == schema.ResolverGraphqlRootField {
		return r.Entity
	}
	return r.Entity
}
