package solver

import "fmt"

// UnreachableFieldError reports a query field with no resolver path from
// any already-selected or entry-point subgraph (spec §4.3 edge case:
// "a requested field that is genuinely unreachable from the entry points
// is a planning error, not a silently empty result").
type UnreachableFieldError struct {
	TypeName  string
	FieldName string
}

func (e *UnreachableFieldError) Error() string {
	return fmt.Sprintf("solver: no resolver path to field %s.%s", e.TypeName, e.FieldName)
}
