package scheduler_test

import (
	"context"
	"testing"

	"github.com/n9te9/federation-core/internal/capability"
	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/scheduler"
	"github.com/n9te9/federation-core/internal/solver"
)

type stubFetcher struct {
	bySubgraph map[string]func(capability.SubgraphRequest) *capability.SubgraphResponse
}

func (f *stubFetcher) Fetch(_ context.Context, req capability.SubgraphRequest) (*capability.SubgraphResponse, error) {
	return f.bySubgraph[req.URL](req), nil
}

func buildFederatedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	productSDL := `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			product(id: ID!): Product
		}
	`
	reviewSDL := `
		extend type Product @key(fields: "id") {
			id: ID! @external
			reviews: [Review!]!
		}
		type Review {
			id: ID!
			rating: Int!
		}
	`
	b, err := schema.NewBuilder([]schema.SubgraphSource{
		{Name: "product", URL: "http://product.example.com", SDL: []byte(productSDL)},
		{Name: "review", URL: "http://review.example.com", SDL: []byte(reviewSDL)},
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func TestExecuteMergesCrossSubgraphEntityFetch(t *testing.T) {
	s := buildFederatedSchema(t)

	doc, err := operation.ParseDocument([]byte(`{ product(id: "1") { name reviews { rating } } }`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	binder := operation.NewBinder(s, doc, operation.Flags{})
	op, err := binder.Bind("")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	p, err := solver.New(s).Solve(op)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	fetcher := &stubFetcher{bySubgraph: map[string]func(capability.SubgraphRequest) *capability.SubgraphResponse{
		"http://product.example.com": func(req capability.SubgraphRequest) *capability.SubgraphResponse {
			return &capability.SubgraphResponse{Data: map[string]interface{}{
				"product": map[string]interface{}{
					"__typename": "Product",
					"id":         "1",
					"name":       "Widget",
				},
			}}
		},
		"http://review.example.com": func(req capability.SubgraphRequest) *capability.SubgraphResponse {
			reps, _ := req.Variables["representations"].([]map[string]interface{})
			entities := make([]interface{}, len(reps))
			for i := range reps {
				entities[i] = map[string]interface{}{
					"reviews": []interface{}{
						map[string]interface{}{"rating": 5},
					},
				}
			}
			return &capability.SubgraphResponse{Data: map[string]interface{}{"_entities": entities}}
		},
	}}

	ex := scheduler.NewExecutor(s, fetcher)
	result, err := ex.Execute(context.Background(), p, op, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}

	data, ok := result.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object root, got %T", result.Data)
	}
	product, ok := data["product"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected product object, got %v", data["product"])
	}
	if product["name"] != "Widget" {
		t.Errorf("expected name Widget, got %v", product["name"])
	}
	reviews, ok := product["reviews"].([]interface{})
	if !ok || len(reviews) != 1 {
		t.Fatalf("expected one merged review, got %v", product["reviews"])
	}
}

func TestExecuteIncrementalEmitsInitialWaveThenDeferredLabel(t *testing.T) {
	s := buildFederatedSchema(t)

	doc, err := operation.ParseDocument([]byte(`{
		product(id: "1") {
			name
			... @defer(label: "reviews") {
				reviews { rating }
			}
		}
	}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	binder := operation.NewBinder(s, doc, operation.Flags{})
	op, err := binder.Bind("")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	p, err := solver.New(s).Solve(op)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	fetcher := &stubFetcher{bySubgraph: map[string]func(capability.SubgraphRequest) *capability.SubgraphResponse{
		"http://product.example.com": func(req capability.SubgraphRequest) *capability.SubgraphResponse {
			return &capability.SubgraphResponse{Data: map[string]interface{}{
				"product": map[string]interface{}{
					"__typename": "Product",
					"id":         "1",
					"name":       "Widget",
				},
			}}
		},
		"http://review.example.com": func(req capability.SubgraphRequest) *capability.SubgraphResponse {
			reps, _ := req.Variables["representations"].([]map[string]interface{})
			entities := make([]interface{}, len(reps))
			for i := range reps {
				entities[i] = map[string]interface{}{
					"reviews": []interface{}{
						map[string]interface{}{"rating": 5},
					},
				}
			}
			return &capability.SubgraphResponse{Data: map[string]interface{}{"_entities": entities}}
		},
	}}

	ex := scheduler.NewExecutor(s, fetcher)
	incs, err := ex.ExecuteIncremental(context.Background(), p, op, nil)
	if err != nil {
		t.Fatalf("ExecuteIncremental: %v", err)
	}

	var payloads []scheduler.Incremental
	for inc := range incs {
		payloads = append(payloads, inc)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected 2 incremental payloads (initial wave + deferred label), got %d: %+v", len(payloads), payloads)
	}
	if payloads[0].Label != "" || payloads[0].Final {
		t.Fatalf("expected first payload to be the non-final initial wave, got %+v", payloads[0])
	}
	if payloads[1].Label != "reviews" || !payloads[1].Final {
		t.Fatalf("expected second payload to be the final %q label, got %+v", "reviews", payloads[1])
	}

	data, ok := payloads[1].Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data in deferred payload, got %T", payloads[1].Data)
	}
	product, ok := data["product"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected product object in deferred payload, got %v", data["product"])
	}
	reviews, ok := product["reviews"].([]interface{})
	if !ok || len(reviews) != 1 {
		t.Fatalf("expected deferred payload to carry the merged reviews, got %v", product["reviews"])
	}
}

type stubSubscriptionFetcher struct {
	events []capability.SubgraphEvent
}

func (f *stubSubscriptionFetcher) Subscribe(ctx context.Context, req capability.SubgraphRequest) (<-chan capability.SubgraphEvent, error) {
	out := make(chan capability.SubgraphEvent, len(f.events))
	for _, ev := range f.events {
		out <- ev
	}
	close(out)
	return out, nil
}

func TestExecuteIncrementalSubscriptionEmitsOnePayloadPerEvent(t *testing.T) {
	productSDL := `
		type Product {
			id: ID!
			name: String!
		}
		type Subscription {
			productUpdated: Product!
		}
		type Query {
			product(id: ID!): Product
		}
	`
	b, err := schema.NewBuilder([]schema.SubgraphSource{
		{Name: "product", URL: "http://product.example.com", WebsocketURL: "ws://product.example.com/ws", SDL: []byte(productSDL)},
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	doc, err := operation.ParseDocument([]byte(`subscription { productUpdated { id name } }`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	binder := operation.NewBinder(s, doc, operation.Flags{AllowSubscriptions: true})
	op, err := binder.Bind("")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	p, err := solver.New(s).Solve(op)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	sub := &stubSubscriptionFetcher{events: []capability.SubgraphEvent{
		{Data: map[string]interface{}{"productUpdated": map[string]interface{}{"id": "1", "name": "Widget"}}},
		{Data: map[string]interface{}{"productUpdated": map[string]interface{}{"id": "1", "name": "Widget v2"}}},
	}}

	ex := scheduler.NewExecutor(s, &stubFetcher{}, scheduler.WithSubscriptionFetcher(sub))
	incs, err := ex.ExecuteIncremental(context.Background(), p, op, nil)
	if err != nil {
		t.Fatalf("ExecuteIncremental: %v", err)
	}

	var names []string
	for inc := range incs {
		data, ok := inc.Data.(map[string]interface{})
		if !ok {
			t.Fatalf("expected object data, got %T", inc.Data)
		}
		product, ok := data["productUpdated"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected productUpdated object, got %v", data["productUpdated"])
		}
		names = append(names, product["name"].(string))
	}
	if len(names) != 2 || names[0] != "Widget" || names[1] != "Widget v2" {
		t.Fatalf("expected 2 payloads in source order [Widget, Widget v2], got %v", names)
	}
}
