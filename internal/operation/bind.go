package operation

import (
	"fmt"

	"github.com/n9te9/federation-core/internal/gqlast"
	"github.com/n9te9/federation-core/internal/schema"
	"github.com/n9te9/federation-core/internal/value"
	"github.com/n9te9/graphql-parser/ast"
)

// Limits bounds operation shape during binding (spec §4.2 "Operation
// limits"). Zero means unbounded for that dimension.
type Limits struct {
	MaxHeight    int
	MaxDepth     int
	MaxRootFields int
	MaxAliases   int
	// MaxComplexity and ListSizeAssumption are carried on Limits but the
	// Binder does not compute a complexity score or check either of them.
	MaxComplexity      int
	ListSizeAssumption int
}

// Flags carries the per-request policy binding must enforce (spec §4.2
// Inputs: "request flags (is-mutation-allowed, introspection-allowed,
// operation-limit caps)").
type Flags struct {
	AllowMutations      bool
	AllowIntrospection  bool
	AllowSubscriptions  bool
	Limits              Limits
}

// BindError is one binding failure, carrying enough context to render a
// GraphQL OPERATION_VALIDATION_ERROR (spec §7).
type BindError struct {
	Message string
	Path    []string
}

func (e *BindError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Path)
}

// Binder resolves a parsed document against a Schema, producing a bound
// Operation (spec §4.2). Grounded on the teacher's PlannerV2.Plan
// traversal (fragment expansion, field/arg copying) generalized from
// "build a new AST tree" into "build an id-addressed IR".
type Binder struct {
	schema    *schema.Schema
	doc       *ast.Document
	fragments map[string]*ast.FragmentDefinition
	flags     Flags

	strVars map[string]int // variable name -> VariableDefinitions index

	selections []Selection
	errs       []*BindError
	deferSeq   int

	height int
	maxHeightSeen int
}

// NewBinder prepares a Binder for one document against s.
func NewBinder(s *schema.Schema, doc *ast.Document, flags Flags) *Binder {
	return &Binder{
		schema:    s,
		doc:       doc,
		fragments: collectFragments(doc),
		flags:     flags,
		strVars:   map[string]int{},
	}
}

// Bind runs the binding algorithm of spec §4.2 and returns the bound
// Operation, or every BindError collected.
func (b *Binder) Bind(operationName string) (*Operation, error) {
	astOp, err := selectOperation(b.doc, operationName)
	if err != nil {
		return nil, &BindError{Message: err.Error()}
	}

	opType := OperationQuery
	rootTypeName := "Query"
	switch astOp.Operation {
	case ast.Mutation:
		opType = OperationMutation
		rootTypeName = "Mutation"
	case ast.Subscription:
		opType = OperationSubscription
		rootTypeName = "Subscription"
	}

	if opType == OperationMutation && !b.flags.AllowMutations {
		b.addErr("mutations are not allowed on this request", nil)
	}
	if opType == OperationSubscription && !b.flags.AllowSubscriptions {
		b.addErr("subscriptions are not allowed on this transport", nil)
	}

	rootType, ok := b.schema.TypeByName(rootTypeName)
	if !ok {
		b.addErr(fmt.Sprintf("schema defines no %s root type", rootTypeName), nil)
		return nil, b.errOrNil()
	}

	var varDefs []VariableDefinition
	for i, vd := range astOp.VariableDefinitions {
		name := vd.Variable.String()
		ft := b.resolveType(vd.Type)
		var def *value.Value
		if vd.DefaultValue != nil {
			def = parseOperationLiteral(vd.DefaultValue.String())
		}
		varDefs = append(varDefs, VariableDefinition{Name: name, Type: ft, Default: def})
		b.strVars[name] = i
	}

	if len(astOp.SelectionSet) > b.flags.Limits.MaxRootFields && b.flags.Limits.MaxRootFields > 0 {
		b.addErr("root field count exceeds configured limit", nil)
	}

	root := b.bindSelectionSet(astOp.SelectionSet, rootType, []string{})
	if err := b.errOrNil(); err != nil {
		return nil, err
	}

	op := &Operation{
		Type:                opType,
		RootType:            rootType,
		RootSelections:      root,
		Selections:          b.selections,
		VariableDefinitions: varDefs,
	}
	if astOp.Name != nil {
		op.Name = astOp.Name.String()
	}
	op.Fingerprint = Fingerprint(b.doc, operationName)
	op.SchemaVersion = b.schema.Version
	return op, nil
}

func (b *Binder) errOrNil() error {
	if len(b.errs) == 0 {
		return nil
	}
	msgs := make([]error, len(b.errs))
	for i, e := range b.errs {
		msgs[i] = e
	}
	return &BindErrors{Errs: msgs}
}

func (b *Binder) addErr(msg string, path []string) {
	b.errs = append(b.errs, &BindError{Message: msg, Path: path})
}

// bindSelectionSet walks one selection set, enforcing height/depth
// limits and the introspection guard, and returns the SelectionIDs
// appended to b.selections (spec §4.2 steps 2-6).
func (b *Binder) bindSelectionSet(sels []ast.Selection, parent schema.TypeID, path []string) []SelectionID {
	if b.flags.Limits.MaxDepth > 0 && len(path) > b.flags.Limits.MaxDepth {
		b.addErr("query depth exceeds configured limit", path)
		return nil
	}
	if b.flags.Limits.MaxHeight > 0 && len(sels) > b.flags.Limits.MaxHeight {
		b.addErr("selection set height exceeds configured limit", path)
	}

	var out []SelectionID
	aliases := 0
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			name := s.Name.String()
			if !b.flags.AllowIntrospection && (name == "__schema" || name == "__type") && parent == b.schema.QueryType() {
				b.addErr("introspection is disabled", append(path, name))
				continue
			}
			if s.Alias != nil && s.Alias.String() != "" {
				aliases++
			}
			id := b.bindField(s, parent, path)
			if id != 0 || len(b.selections) > 0 {
				out = append(out, id)
			}
		case *ast.InlineFragment:
			id := b.bindInlineFragment(s, parent, path)
			out = append(out, id)
		case *ast.FragmentSpread:
			id, ok := b.bindFragmentSpread(s, parent, path)
			if ok {
				out = append(out, id)
			}
		}
	}
	if b.flags.Limits.MaxAliases > 0 && aliases > b.flags.Limits.MaxAliases {
		b.addErr("alias count exceeds configured limit", path)
	}
	return out
}

func (b *Binder) bindField(f *ast.Field, parent schema.TypeID, path []string) SelectionID {
	name := gqlast.FieldName(f)
	fieldPath := append(append([]string{}, path...), name)

	if f.Name.String() == "__typename" {
		return b.appendSelection(Selection{
			Kind:  SelectionField,
			Field: &DataField{ResponseKey: name, Parent: parent, IsTypename: true},
		})
	}

	fid, ok := b.schema.FieldByName(parent, f.Name.String())
	if !ok {
		b.addErr(fmt.Sprintf("unknown field %q", f.Name.String()), fieldPath)
		return 0
	}
	fdef, _ := b.schema.Field(fid)

	hasChildren := len(f.SelectionSet) > 0
	isComposite := fdef.Type.Named != 0 && b.isCompositeType(fdef.Type.Named)
	if isComposite && !hasChildren {
		b.addErr(fmt.Sprintf("field %q of composite type requires a selection set", f.Name.String()), fieldPath)
	}
	if !isComposite && hasChildren {
		b.addErr(fmt.Sprintf("field %q is a leaf and cannot have a selection set", f.Name.String()), fieldPath)
	}

	args := b.bindArguments(f, fdef, fieldPath)

	var children []SelectionID
	if hasChildren && fdef.Type.Named != 0 {
		children = b.bindSelectionSet(f.SelectionSet, fdef.Type.Named, fieldPath)
	}

	return b.appendSelection(Selection{
		Kind: SelectionField,
		Field: &DataField{
			ResponseKey: name,
			Field:       fid,
			Parent:      parent,
			Arguments:   args,
			Selections:  children,
		},
	})
}

func (b *Binder) bindArguments(f *ast.Field, fdef schema.FieldDefinition, path []string) map[schema.ArgumentID]*value.Value {
	supplied := map[string]*ast.Argument{}
	for _, a := range f.Arguments {
		supplied[a.Name.String()] = a
	}

	out := map[schema.ArgumentID]*value.Value{}
	for _, aid := range fdef.Arguments {
		adef, _ := b.schema.Argument(aid)
		name := b.schema.Name(adef.Name)
		arg, ok := supplied[name]
		switch {
		case ok && isVariableRef(arg.Value):
			varName := variableRefName(arg.Value)
			if idx, known := b.strVars[varName]; known {
				out[aid] = &value.Value{Kind: value.KindVariable, Variable: value.VariableRef(idx)}
			} else {
				b.addErr(fmt.Sprintf("undefined variable $%s used for argument %q", varName, name), path)
			}
		case ok:
			out[aid] = parseOperationLiteral(arg.Value.String())
		case adef.DefaultValue != nil:
			out[aid] = &value.Value{Kind: value.KindDefaultValue, DefaultOf: value.SchemaInputValueRef(aid)}
		case adef.Type.NonNull:
			b.addErr(fmt.Sprintf("missing required argument %q", name), path)
		}
	}
	return out
}

func (b *Binder) bindInlineFragment(f *ast.InlineFragment, parent schema.TypeID, path []string) SelectionID {
	cond := parent
	if f.TypeCondition != nil {
		if tid, ok := b.schema.TypeByName(f.TypeCondition.String()); ok {
			cond = tid
		} else {
			b.addErr(fmt.Sprintf("unknown type condition %q", f.TypeCondition.String()), path)
		}
	}
	children := b.bindSelectionSet(f.SelectionSet, cond, path)
	return b.appendSelection(Selection{
		Kind:          SelectionInlineFragment,
		TypeCondition: cond,
		Selections:    children,
		DeferLabel:    b.deferLabel(f.Directives),
	})
}

func (b *Binder) bindFragmentSpread(f *ast.FragmentSpread, parent schema.TypeID, path []string) (SelectionID, bool) {
	name := f.Name.String()
	def, ok := b.fragments[name]
	if !ok {
		b.addErr(fmt.Sprintf("unknown fragment %q", name), path)
		return 0, false
	}
	cond := parent
	if tid, ok := b.schema.TypeByName(def.TypeCondition.String()); ok {
		cond = tid
	}
	children := b.bindSelectionSet(def.SelectionSet, cond, path)
	id := b.appendSelection(Selection{
		Kind:          SelectionFragmentSpread,
		TypeCondition: cond,
		Selections:    children,
		DeferLabel:    b.deferLabel(f.Directives),
	})
	return id, true
}

// deferLabel returns the grouping label for an applied @defer directive
// (spec §4.5: "deferred fragments produce separate execution waves...
// emitting one incremental payload per completed defer label"), or "" if
// @defer is absent or disabled via `if: false`. A @defer with no explicit
// `label` argument is assigned a fresh synthetic one so two independent
// unlabeled @defer fragments still resolve into two separate waves
// instead of being merged into one by an accidental shared label.
func (b *Binder) deferLabel(directives []*ast.Directive) string {
	d, ok := gqlast.Directive(directives, "defer")
	if !ok {
		return ""
	}
	if enabled, has := gqlast.BoolArg(d, "if"); has && !enabled {
		return ""
	}
	if label, ok := gqlast.StringArg(d, "label"); ok && label != "" {
		return label
	}
	b.deferSeq++
	return fmt.Sprintf("_defer%d", b.deferSeq)
}

func (b *Binder) appendSelection(s Selection) SelectionID {
	id := SelectionID(len(b.selections))
	b.selections = append(b.selections, s)
	return id
}

func (b *Binder) isCompositeType(id schema.TypeID) bool {
	t, ok := b.schema.Type(id)
	return ok && t.Kind.IsCompositeType()
}

func (b *Binder) resolveType(t ast.Type) schema.FieldType {
	name := gqlast.TypeName(t)
	tid, _ := b.schema.TypeByName(name)
	return schema.FieldType{
		Named:   tid,
		List:    gqlast.IsList(t),
		NonNull: gqlast.IsNonNull(t),
	}
}

func isVariableRef(v ast.Value) bool {
	s := v.String()
	return len(s) > 0 && s[0] == '$'
}

func variableRefName(v ast.Value) string {
	s := v.String()
	if len(s) > 0 && s[0] == '$' {
		return s[1:]
	}
	return s
}

// BindErrors aggregates every BindError from one Bind call (spec §4.1
// "ingestion collects errors and returns them as a batch", applied the
// same way to binding).
type BindErrors struct {
	Errs []error
}

func (e *BindErrors) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	return fmt.Sprintf("%d binding errors, first: %v", len(e.Errs), e.Errs[0])
}

func (e *BindErrors) Unwrap() []error { return e.Errs }
