package schema_test

import (
	"testing"

	"github.com/n9te9/federation-core/internal/schema"
)

func TestBuilderComposesEntityAcrossSubgraphs(t *testing.T) {
	productSDL := `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
			price: Float!
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
			comment: String!
		}

		extend type Query {
			review(id: ID!): Review
		}
	`

	b, err := schema.NewBuilder([]schema.SubgraphSource{
		{Name: "product", URL: "http://product.example.com", SDL: []byte(productSDL)},
		{Name: "review", URL: "http://review.example.com", SDL: []byte(reviewSDL)},
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	productID, ok := s.TypeByName("Product")
	if !ok {
		t.Fatal("expected Product type to exist")
	}

	reviewsFieldID, ok := s.FieldByName(productID, "reviews")
	if !ok {
		t.Fatal("expected Product.reviews field to exist")
	}
	reviewsField, _ := s.Field(reviewsFieldID)
	if len(reviewsField.ExistsInSubgraphIDs) != 1 {
		t.Errorf("expected Product.reviews to exist in exactly 1 subgraph, got %d", len(reviewsField.ExistsInSubgraphIDs))
	}

	idFieldID, ok := s.FieldByName(productID, "id")
	if !ok {
		t.Fatal("expected Product.id field to exist")
	}
	idField, _ := s.Field(idFieldID)
	if len(idField.ExistsInSubgraphIDs) != 2 {
		t.Errorf("expected Product.id to exist in 2 subgraphs, got %d", len(idField.ExistsInSubgraphIDs))
	}
	if !idField.External {
		t.Error("expected Product.id to carry @external from the review subgraph's extension")
	}

	entity, ok := s.Entity(productID)
	if !ok {
		t.Fatal("expected Product to be a composed entity with @key metadata")
	}
	if len(entity.Keys) == 0 {
		t.Error("expected Product to have at least one @key set")
	}
}

func TestBuilderRejectsUnknownTypeReference(t *testing.T) {
	sdl := `
		type Query {
			widget: Widget
		}
	`
	b, err := schema.NewBuilder([]schema.SubgraphSource{
		{Name: "widgets", URL: "http://widgets.example.com", SDL: []byte(sdl)},
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	if _, err := b.Build(); err == nil {
		t.Fatal("expected Build to fail for a reference to an undefined type")
	}
}

func TestStoreSwapIncrementsVersion(t *testing.T) {
	st := schema.NewStore()
	if st.Load().Version != 0 {
		t.Fatalf("expected fresh store to start at version 0, got %d", st.Load().Version)
	}

	b, err := schema.NewBuilder([]schema.SubgraphSource{
		{Name: "product", URL: "http://product.example.com", SDL: []byte(`
			type Product @key(fields: "id") { id: ID! }
			type Query { product(id: ID!): Product }
		`)},
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	st.Swap(s)
	if st.Load().Version != 1 {
		t.Errorf("expected version 1 after first swap, got %d", st.Load().Version)
	}
}
