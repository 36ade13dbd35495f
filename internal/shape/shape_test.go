package shape_test

import (
	"testing"

	"github.com/n9te9/federation-core/internal/operation"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/shape"
)

func buildTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b, err := schema.NewBuilder([]schema.SubgraphSource{
		{Name: "users", URL: "http://users.example.com", SDL: []byte(`
			type User @key(fields: "id") {
				id: ID!
				name: String!
				bio: String!
			}
			type Query {
				user(id: ID!): User
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

func TestBuildPropagatesDeferLabelToFieldShape(t *testing.T) {
	s := buildTestSchema(t)
	doc, err := operation.ParseDocument([]byte(`{
		user(id: "1") {
			name
			... @defer(label: "slow") {
				bio
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

	b := shape.NewBuilder(s, op)
	rootID := b.Build(op.RootSelections, op.RootType)
	root := b.Shape(rootID)

	userField := findField(t, b, root.Concrete.Fields, "user")
	userShape := b.Shape(userField.Output)

	name := findField(t, b, userShape.Concrete.Fields, "name")
	if name.DeferLabel != "" {
		t.Errorf("expected no DeferLabel on non-deferred field, got %q", name.DeferLabel)
	}
	bio := findField(t, b, userShape.Concrete.Fields, "bio")
	if bio.DeferLabel != "slow" {
		t.Errorf("expected DeferLabel %q on deferred field, got %q", "slow", bio.DeferLabel)
	}
}

func findField(t *testing.T, b *shape.Builder, fields []shape.FieldShape, key string) shape.FieldShape {
	t.Helper()
	for _, f := range fields {
		if f.ResponseKey == key {
			return f
		}
	}
	t.Fatalf("no field shape with response key %q among %+v", key, fields)
	return shape.FieldShape{}
}
