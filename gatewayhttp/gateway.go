package gatewayhttp

import (
	"context"
	"fmt"
	"time"

	"github.com/n9te9/federation-core/internal/capability"
	"github.com/n9te9/federation-core/internal/gwconfig"
	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/response"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/scheduler"
	"github.com/n9te9/federation-core/internal/solver"
)

// Gateway wires the bound-operation pipeline (bind -> solve -> execute)
// to capability implementations and serves it over HTTP/WebSocket.
// Grounded on the teacher's GatewayService, generalized from one
// concrete struct embedding *gin.Engine into a transport-agnostic
// dependency bag gatewayhttp's http.Handler and websocket upgrader both
// read from.
type Gateway struct {
	schema  *schema.Schema
	solver  *solver.Solver
	fetcher capability.Fetcher
	opCache operation.Cache

	flags operation.Flags

	authenticator    capability.Authenticator    // nil disables auth
	rateLimiter      capability.RateLimiter      // nil disables rate limiting
	trustedDocuments capability.TrustedDocuments // nil disables trusted-document enforcement

	entityCache capability.EntityCache       // nil disables per-entity response caching
	entityTTL   int
	subFetcher  capability.SubscriptionFetcher // nil disables subscription execution

	batchLimit int // 1 or less disables batching entirely (New sets 1 for batching.enabled=false)

	headerRules      map[string][]capability.HeaderRule // keyed by subgraph name
	subgraphTimeouts map[string]time.Duration           // keyed by subgraph name
	defaultTimeout   time.Duration
}

// New assembles a Gateway from a loaded configuration and the built
// supergraph Schema (spec §4.1's composition output, built once at
// startup by cmd/gateway).
func New(cfg *gwconfig.Config, s *schema.Schema, opts ...Option) (*Gateway, error) {
	opCache, err := operation.NewLRUCache(1024)
	if err != nil {
		return nil, fmt.Errorf("gatewayhttp: build operation cache: %w", err)
	}

	batchLimit := cfg.Batching.Limit
	if !cfg.Batching.Enable {
		batchLimit = 1
	}

	defaultTimeout, err := cfg.Timeout()
	if err != nil {
		return nil, fmt.Errorf("gatewayhttp: %w", err)
	}

	headerRules := make(map[string][]capability.HeaderRule, len(cfg.Subgraphs))
	subgraphTimeouts := make(map[string]time.Duration, len(cfg.Subgraphs))
	for _, sg := range cfg.Subgraphs {
		headerRules[sg.Name] = gwconfig.AsCapabilityRules(sg.HeaderRules)
		timeout, err := sg.RequestTimeout(defaultTimeout)
		if err != nil {
			return nil, fmt.Errorf("gatewayhttp: subgraph %q timeout: %w", sg.Name, err)
		}
		subgraphTimeouts[sg.Name] = timeout
	}

	gw := &Gateway{
		schema:           s,
		solver:           solver.New(s),
		fetcher:          capability.NewHTTPFetcher(),
		opCache:          opCache,
		batchLimit:       batchLimit,
		headerRules:      headerRules,
		subgraphTimeouts: subgraphTimeouts,
		defaultTimeout:   defaultTimeout,
		flags: operation.Flags{
			AllowMutations:     true,
			AllowIntrospection: cfg.IntrospectionEnabled,
			AllowSubscriptions: true,
			Limits: operation.Limits{
				MaxDepth:      cfg.MaxOperationDepth,
				MaxHeight:     cfg.MaxOperationHeight,
				MaxRootFields: cfg.MaxOperationRootFields,
				MaxAliases:    cfg.MaxOperationAliases,
				MaxComplexity: cfg.MaxOperationComplexity,
			},
		},
	}
	for _, opt := range opts {
		opt(gw)
	}
	return gw, nil
}

// Option configures optional capabilities on a Gateway.
type Option func(*Gateway)

// WithFetcher overrides the default HTTPFetcher (tests use this to
// install a stub).
func WithFetcher(f capability.Fetcher) Option {
	return func(g *Gateway) { g.fetcher = f }
}

// WithAuthenticator installs request authentication (spec §6.4:
// "invoked before binding").
func WithAuthenticator(a capability.Authenticator) Option {
	return func(g *Gateway) { g.authenticator = a }
}

// WithRateLimiter installs per-request rate limiting.
func WithRateLimiter(r capability.RateLimiter) Option {
	return func(g *Gateway) { g.rateLimiter = r }
}

// WithTrustedDocuments enables persisted/trusted-document enforcement.
func WithTrustedDocuments(t capability.TrustedDocuments) Option {
	return func(g *Gateway) { g.trustedDocuments = t }
}

// WithEntityCache enables per-entity response caching across _entities
// fetches (spec §6.4's EntityCache capability). ttlSeconds is passed
// through to every Put as the entry's expiry.
func WithEntityCache(c capability.EntityCache, ttlSeconds int) Option {
	return func(g *Gateway) {
		g.entityCache = c
		g.entityTTL = ttlSeconds
	}
}

// WithSubscriptionFetcher enables subscription operations (spec §4.5),
// dialing each subgraph's websocket_url through the given capability.
func WithSubscriptionFetcher(f capability.SubscriptionFetcher) Option {
	return func(g *Gateway) { g.subFetcher = f }
}

// graphQLRequest is the JSON shape of one entry of spec §6.1's inbound
// request body.
type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	Extensions    map[string]interface{} `json:"extensions"`
}

// graphQLResponse is the {data, errors, extensions} envelope of spec
// §6.2.
type graphQLResponse struct {
	Data       interface{}              `json:"data,omitempty"`
	Errors     []errorEnvelope          `json:"errors,omitempty"`
	Extensions map[string]interface{}   `json:"extensions,omitempty"`
}

type errorEnvelope struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// execution runs one graphQLRequest through bind -> solve -> execute and
// returns the rendered envelope plus the response-status header value
// to set (spec §6.2).
func (g *Gateway) execution(ctx context.Context, req graphQLRequest, headers map[string]string) (graphQLResponse, responseStatusHeader, *gatewayError) {
	queryText, gerr := g.resolveDocumentText(ctx, req, headers)
	if gerr != nil {
		return graphQLResponse{}, headerRequestError, gerr
	}

	doc, err := operation.ParseDocument([]byte(queryText))
	if err != nil {
		return graphQLResponse{}, headerRequestError, badRequest(err.Error())
	}

	fp := operation.Fingerprint(doc, req.OperationName)
	key := operation.CacheKey{SchemaVersion: g.schema.Version, Fingerprint: fp}

	var op *operation.Operation
	if cached, ok := g.opCache.Get(key); ok {
		op = cached.Acquire()
		defer cached.Release()
	} else {
		binder := operation.NewBinder(g.schema, doc, g.flags)
		bound, err := binder.Bind(req.OperationName)
		if err != nil {
			return graphQLResponse{}, headerRequestError, operationValidationError(err.Error())
		}
		op = bound
		g.opCache.Insert(key, op)
	}

	if op.Type == operation.OperationSubscription {
		return graphQLResponse{}, headerRequestError, badRequest("subscriptions are not allowed on this transport")
	}

	variables := operation.ApplyDefaults(g.schema, op.VariableDefinitions, req.Variables)

	plan, err := g.solver.Solve(op)
	if err != nil {
		return graphQLResponse{}, headerRequestError, internalServerError(err.Error())
	}

	executor := scheduler.NewExecutor(g.schema, g.fetcher,
		scheduler.WithEntityCache(g.entityCache, g.entityTTL),
		scheduler.WithRequestHeaders(headers, g.headerRules),
		scheduler.WithSubgraphTimeouts(g.subgraphTimeouts, g.defaultTimeout),
	)
	result, err := executor.Execute(ctx, plan, op, variables)
	if err != nil {
		return graphQLResponse{}, headerRequestError, internalServerError(err.Error())
	}

	resp := graphQLResponse{Data: result.Data}
	status := headerSuccess
	if len(result.Errors) > 0 {
		resp.Errors = make([]errorEnvelope, len(result.Errors))
		for i, e := range result.Errors {
			resp.Errors[i] = graphQLErrorToEnvelope(e)
		}
		if result.Data == nil {
			status = headerFieldErrorNullData
		} else {
			status = headerFieldError
		}
	}
	return resp, status, nil
}

// incrementalEnvelope is the JSON shape of one incrementally-delivered
// payload (spec §4.5, §4.6, §6.2): the initial wave, a later completed
// @defer label, or one subscription item. hasNext tells the transport
// whether to expect another payload on this stream.
type incrementalEnvelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Errors     []errorEnvelope        `json:"errors,omitempty"`
	Label      string                 `json:"label,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
	HasNext    bool                   `json:"hasNext"`
}

// executionIncremental runs req through bind -> solve -> execute like
// execution, but drives scheduler.Executor.ExecuteIncremental instead of
// Execute so subscriptions and @defer deliver one incrementalEnvelope
// per payload (spec §4.5) instead of a single complete response.
func (g *Gateway) executionIncremental(ctx context.Context, req graphQLRequest, headers map[string]string) (<-chan incrementalEnvelope, *gatewayError) {
	queryText, gerr := g.resolveDocumentText(ctx, req, headers)
	if gerr != nil {
		return nil, gerr
	}

	doc, err := operation.ParseDocument([]byte(queryText))
	if err != nil {
		return nil, badRequest(err.Error())
	}

	fp := operation.Fingerprint(doc, req.OperationName)
	key := operation.CacheKey{SchemaVersion: g.schema.Version, Fingerprint: fp}

	var op *operation.Operation
	release := func() {}
	if cached, ok := g.opCache.Get(key); ok {
		op = cached.Acquire()
		release = cached.Release
	} else {
		binder := operation.NewBinder(g.schema, doc, g.flags)
		bound, err := binder.Bind(req.OperationName)
		if err != nil {
			return nil, operationValidationError(err.Error())
		}
		op = bound
		g.opCache.Insert(key, op)
	}

	variables := operation.ApplyDefaults(g.schema, op.VariableDefinitions, req.Variables)

	plan, err := g.solver.Solve(op)
	if err != nil {
		release()
		return nil, internalServerError(err.Error())
	}

	executor := scheduler.NewExecutor(g.schema, g.fetcher,
		scheduler.WithEntityCache(g.entityCache, g.entityTTL),
		scheduler.WithRequestHeaders(headers, g.headerRules),
		scheduler.WithSubgraphTimeouts(g.subgraphTimeouts, g.defaultTimeout),
		scheduler.WithSubscriptionFetcher(g.subFetcher),
	)
	incs, err := executor.ExecuteIncremental(ctx, plan, op, variables)
	if err != nil {
		release()
		return nil, internalServerError(err.Error())
	}

	out := make(chan incrementalEnvelope)
	go func() {
		defer close(out)
		for inc := range incs {
			out <- incrementalToEnvelope(inc)
		}
		release()
	}()
	return out, nil
}

func incrementalToEnvelope(inc scheduler.Incremental) incrementalEnvelope {
	env := incrementalEnvelope{Data: inc.Data, Label: inc.Label, HasNext: !inc.Final}
	if len(inc.Errors) > 0 {
		env.Errors = make([]errorEnvelope, len(inc.Errors))
		for i, e := range inc.Errors {
			env.Errors[i] = graphQLErrorToEnvelope(e)
		}
	}
	return env
}

func graphQLErrorToEnvelope(e response.GraphQLError) errorEnvelope {
	path := make([]interface{}, len(e.Path))
	for j, p := range e.Path {
		path[j] = p
	}
	return errorEnvelope{Message: e.Message, Path: path, Extensions: map[string]interface{}{"code": e.Code}}
}

// resolveDocumentText returns the operation source text, either the
// inline `query` or a trusted document resolved by its id (spec §3.2,
// §6.4). The requesting client's name is read from the
// X-GraphQL-Client-Name header, the convention the reference trusted-
// document stores in the pack (and this module's own
// StaticTrustedDocuments) key documents by.
func (g *Gateway) resolveDocumentText(ctx context.Context, req graphQLRequest, headers map[string]string) (string, *gatewayError) {
	if req.Query != "" {
		return req.Query, nil
	}
	if g.trustedDocuments == nil {
		return "", badRequest("missing query and no trusted-document store configured")
	}
	docID := persistedDocumentID(req.Extensions)
	if docID == "" {
		return "", badRequest("missing query")
	}
	clientName := headers["x-graphql-client-name"]
	text, err := g.trustedDocuments.Fetch(ctx, clientName, docID)
	if err != nil {
		return "", persistedQueryNotFound()
	}
	return text, nil
}

func persistedDocumentID(extensions map[string]interface{}) string {
	pq, ok := extensions["persistedQuery"].(map[string]interface{})
	if !ok {
		if id, ok := extensions["documentId"].(string); ok {
			return id
		}
		return ""
	}
	if hash, ok := pq["sha256Hash"].(string); ok {
		return hash
	}
	return ""
}
