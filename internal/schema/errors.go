package schema

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// BuildError is one composition failure raised while assembling a
// supergraph: a directive misuse, a type mismatch across subgraphs, an
// unsatisfiable @requires, and so on (spec §4.1.3 "composition
// diagnostics").
type BuildError struct {
	Subgraph string
	Type     string
	Field    string
	Msg      string
}

func (e *BuildError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Subgraph, e.Type, e.Field, e.Msg)
	case e.Type != "":
		return fmt.Sprintf("%s: %s: %s", e.Subgraph, e.Type, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Subgraph, e.Msg)
	}
}

// errorCollector accumulates BuildErrors across the three build passes
// without aborting early, so a single Build() call reports every
// composition problem in the supergraph rather than just the first.
type errorCollector struct {
	err *multierror.Error
}

func (c *errorCollector) add(e *BuildError) {
	c.err = multierror.Append(c.err, e)
}

func (c *errorCollector) addf(subgraph, typ, field, format string, args ...interface{}) {
	c.add(&BuildError{Subgraph: subgraph, Type: typ, Field: field, Msg: fmt.Sprintf(format, args...)})
}

// errOrNil returns nil when no errors were collected, matching the
// idiom multierror.Error.ErrorOrNil follows.
func (c *errorCollector) errOrNil() error {
	if c.err == nil {
		return nil
	}
	return c.err.ErrorOrNil()
}
