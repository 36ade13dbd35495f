package schema

// DirectiveLocation enumerates the GraphQL type-system locations a
// directive definition may be restricted to. The Builder does not
// consult these definitions (lookupBuiltin and allowsLocation have no
// caller): a directive at the wrong location, with wrong arguments, or
// with an unknown name is not rejected.
type DirectiveLocation uint8

const (
	LocFieldDefinition DirectiveLocation = iota
	LocObject
	LocInterface
	LocUnion
	LocEnum
	LocEnumValue
	LocInputObject
	LocInputFieldDefinition
	LocArgumentDefinition
	LocScalar
	LocSchema
)

// ArgumentShape describes one expected argument of a directive
// definition, for arity/type validation during dispatch.
type ArgumentShape struct {
	Name     string
	Type     string // textual GraphQL type, e.g. "String!", "[String!]"
	Required bool
}

// DirectiveDefinition is a built-in or extension-contributed directive
// signature: name, allowed locations, and expected arguments.
type DirectiveDefinition struct {
	Name      string
	Locations []DirectiveLocation
	Arguments []ArgumentShape
	// Extension is the subgraph that contributed this definition via its
	// SDL, or the zero SubgraphID for a built-in federation directive.
	Extension SubgraphID
	// BuilderIgnored marks a directive to be passed through to resolvers
	// unexamined. The Builder rejects no directive as unknown, so the flag
	// has no effect.
	BuilderIgnored bool
}

// builtinDirectives is the fixed catalog of federation composite-schema
// directives every supergraph understands without an extension
// contributing them (spec GLOSSARY @key/@requires/@provides/@override/
// @external/@shareable/@inaccessible/@lookup/@derive/@is).
var builtinDirectives = map[string]*DirectiveDefinition{
	"key": {
		Name:      "key",
		Locations: []DirectiveLocation{LocObject, LocInterface},
		Arguments: []ArgumentShape{
			{Name: "fields", Type: "String!", Required: true},
			{Name: "resolvable", Type: "Boolean"},
		},
	},
	"requires": {
		Name:      "requires",
		Locations: []DirectiveLocation{LocFieldDefinition},
		Arguments: []ArgumentShape{{Name: "fields", Type: "String!", Required: true}},
	},
	"provides": {
		Name:      "provides",
		Locations: []DirectiveLocation{LocFieldDefinition},
		Arguments: []ArgumentShape{{Name: "fields", Type: "String!", Required: true}},
	},
	"override": {
		Name:      "override",
		Locations: []DirectiveLocation{LocFieldDefinition},
		Arguments: []ArgumentShape{{Name: "from", Type: "String!", Required: true}},
	},
	"external":     {Name: "external", Locations: []DirectiveLocation{LocFieldDefinition}},
	"shareable":    {Name: "shareable", Locations: []DirectiveLocation{LocFieldDefinition, LocObject}},
	"inaccessible": {Name: "inaccessible", Locations: []DirectiveLocation{LocFieldDefinition, LocObject, LocInterface, LocUnion, LocEnum, LocEnumValue, LocInputObject, LocInputFieldDefinition, LocArgumentDefinition, LocScalar}},
	"lookup":       {Name: "lookup", Locations: []DirectiveLocation{LocFieldDefinition}},
	"derive":       {Name: "derive", Locations: []DirectiveLocation{LocFieldDefinition}},
	"is": {
		Name:      "is",
		Locations: []DirectiveLocation{LocArgumentDefinition},
		Arguments: []ArgumentShape{{Name: "field", Type: "String!", Required: true}},
	},
	"require": {
		Name:      "require",
		Locations: []DirectiveLocation{LocArgumentDefinition},
		Arguments: []ArgumentShape{{Name: "field", Type: "String!", Required: true}},
	},
}

func lookupBuiltin(name string) (*DirectiveDefinition, bool) {
	d, ok := builtinDirectives[name]
	return d, ok
}

func allowsLocation(d *DirectiveDefinition, loc DirectiveLocation) bool {
	for _, l := range d.Locations {
		if l == loc {
			return true
		}
	}
	return false
}
