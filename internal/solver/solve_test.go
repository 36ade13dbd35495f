package solver_test

import (
	"testing"

	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/solver"
)

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

func TestSolveCrossSubgraphQueryCreatesDependentPartition(t *testing.T) {
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

	sv := solver.New(s)
	p, err := sv.Solve(op)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(p.Partitions) != 2 {
		t.Fatalf("expected 2 partitions (product root field + review entity jump), got %d", len(p.Partitions))
	}

	var dependent *struct{ found bool }
	for i := range p.Partitions {
		part := &p.Partitions[i]
		if len(part.DependsOn) > 0 {
			dependent = &struct{ found bool }{true}
			if part.Subgraph == p.Partitions[part.DependsOn[0]].Subgraph {
				t.Error("expected dependent partition to be in a different subgraph than its dependency")
			}
		}
	}
	if dependent == nil {
		t.Fatal("expected one partition to depend on the other")
	}
}

func TestSolveAssignsDeferLabelToDeferredPartition(t *testing.T) {
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

	var sawDeferred, sawNonDeferred bool
	for i := range p.Partitions {
		part := &p.Partitions[i]
		if part.DeferLabel == "reviews" {
			sawDeferred = true
		} else if part.DeferLabel == "" {
			sawNonDeferred = true
		}
	}
	if !sawDeferred {
		t.Fatalf("expected one partition with DeferLabel %q, got %+v", "reviews", p.Partitions)
	}
	if !sawNonDeferred {
		t.Fatalf("expected the product name field's partition to remain non-deferred, got %+v", p.Partitions)
	}
}

func TestSolveSingleSubgraphQueryProducesOnePartition(t *testing.T) {
	s := buildFederatedSchema(t)

	doc, err := operation.ParseDocument([]byte(`{ product(id: "1") { name } }`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	binder := operation.NewBinder(s, doc, operation.Flags{})
	op, err := binder.Bind("")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	sv := solver.New(s)
	p, err := sv.Solve(op)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(p.Partitions) != 1 {
		t.Fatalf("expected 1 partition for a single-subgraph query, got %d", len(p.Partitions))
	}
	if len(p.RootPartitions) != 1 {
		t.Fatalf("expected 1 root partition, got %d", len(p.RootPartitions))
	}
}
