package operation_test

import (
	"testing"

	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/schema"
)

func buildTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b, err := schema.NewBuilder([]schema.SubgraphSource{
		{Name: "users", URL: "http://users.example.com", SDL: []byte(`
			type User @key(fields: "id") {
				id: ID!
				name: String!
			}
			type Query {
				user(id: ID!): User
				__typeOnlyToAvoidEmptySchemaWarnings: Boolean
			}
		`)},
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

func TestBindSimpleQuery(t *testing.T) {
	s := buildTestSchema(t)
	doc, err := operation.ParseDocument([]byte(`{ user(id: "1") { name } }`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	binder := operation.NewBinder(s, doc, operation.Flags{AllowMutations: true, AllowIntrospection: true})
	op, err := binder.Bind("")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if op.Type != operation.OperationQuery {
		t.Errorf("expected OperationQuery, got %v", op.Type)
	}
	if len(op.RootSelections) != 1 {
		t.Fatalf("expected 1 root selection, got %d", len(op.RootSelections))
	}
}

func TestBindRejectsIntrospectionWhenDisabled(t *testing.T) {
	s := buildTestSchema(t)
	doc, err := operation.ParseDocument([]byte(`{ __schema { queryType { name } } }`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	binder := operation.NewBinder(s, doc, operation.Flags{AllowIntrospection: false})
	if _, err := binder.Bind(""); err == nil {
		t.Fatal("expected bind error when introspection is disabled")
	}
}

func TestBindAssignsDeferLabelFromFragmentDirective(t *testing.T) {
	s := buildTestSchema(t)
	doc, err := operation.ParseDocument([]byte(`{
		user(id: "1") {
			name
			... @defer(label: "slow") {
				name
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

	var found bool
	for _, sel := range op.Selections {
		if sel.Kind == operation.SelectionInlineFragment && sel.DeferLabel == "slow" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an inline fragment with DeferLabel %q, got %+v", "slow", op.Selections)
	}
}

func TestBindSynthesizesDistinctLabelsForUnlabeledDefers(t *testing.T) {
	s := buildTestSchema(t)
	doc, err := operation.ParseDocument([]byte(`{
		user(id: "1") {
			... @defer {
				name
			}
			... @defer {
				name
			}
		}
		__typeOnlyToAvoidEmptySchemaWarnings
	}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	binder := operation.NewBinder(s, doc, operation.Flags{})
	op, err := binder.Bind("")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	var labels []string
	for _, sel := range op.Selections {
		if sel.Kind == operation.SelectionInlineFragment && sel.DeferLabel != "" {
			labels = append(labels, sel.DeferLabel)
		}
	}
	if len(labels) != 2 {
		t.Fatalf("expected exactly 2 deferred inline fragments, got %v", labels)
	}
	if labels[0] == labels[1] {
		t.Fatalf("expected distinct synthesized labels for two unlabeled @defers, got %v", labels)
	}
}

func TestBindIgnoresDeferWhenIfFalse(t *testing.T) {
	s := buildTestSchema(t)
	doc, err := operation.ParseDocument([]byte(`{
		user(id: "1") {
			... @defer(if: false) {
				name
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
	for _, sel := range op.Selections {
		if sel.Kind == operation.SelectionInlineFragment && sel.DeferLabel != "" {
			t.Fatalf("expected no DeferLabel when @defer(if: false), got %q", sel.DeferLabel)
		}
	}
}

func TestFingerprintIsStableAcrossAliasRenames(t *testing.T) {
	doc1, _ := operation.ParseDocument([]byte(`{ a: user(id: "1") { name } }`))
	doc2, _ := operation.ParseDocument([]byte(`{ b: user(id: "1") { name } }`))

	f1 := operation.Fingerprint(doc1, "")
	f2 := operation.Fingerprint(doc2, "")
	if f1 != f2 {
		t.Errorf("expected alias-stripped fingerprints to match, got %d vs %d", f1, f2)
	}
}
