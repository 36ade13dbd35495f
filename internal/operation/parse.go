package operation

import (
	"fmt"

	"github.com/n9te9/federation-core/internal/gqlast"
	"github.com/n9te9/graphql-parser/ast"
)

// ParseDocument lexes and parses a client-submitted GraphQL document.
// Grounded on the teacher's planner_v2.go getOperation/collectFragmentDefinitions
// traversal, which itself starts from gqlast.Parse's underlying sequence.
func ParseDocument(src []byte) (*ast.Document, error) {
	return gqlast.Parse(src)
}

// selectOperation extracts the ast.OperationDefinition matching name, or
// the sole operation if the document declares exactly one and name is
// empty (spec §4.2 "Extract the operation matching operation_name (error
// if ambiguous or missing)").
func selectOperation(doc *ast.Document, name string) (*ast.OperationDefinition, error) {
	var match *ast.OperationDefinition
	count := 0
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		count++
		opName := ""
		if op.Name != nil {
			opName = op.Name.String()
		}
		if name == "" {
			match = op
			continue
		}
		if opName == name {
			match = op
		}
	}
	if name == "" {
		if count > 1 {
			return nil, fmt.Errorf("operation name required: document defines %d operations", count)
		}
		if match == nil {
			return nil, fmt.Errorf("no operation found in document")
		}
		return match, nil
	}
	if match == nil {
		return nil, fmt.Errorf("no operation named %q in document", name)
	}
	return match, nil
}

func collectFragments(doc *ast.Document) map[string]*ast.FragmentDefinition {
	out := map[string]*ast.FragmentDefinition{}
	for _, def := range doc.Definitions {
		if f, ok := def.(*ast.FragmentDefinition); ok {
			out[f.Name.String()] = f
		}
	}
	return out
}
