package schema

import (
	"sort"
	"strings"

	"github.com/n9te9/federation-core/internal/gqlast"
	"github.com/n9te9/federation-core/internal/intern"
	"github.com/n9te9/graphql-parser/ast"
)

// SubgraphSource is one subgraph's composition input: its SDL plus the
// transport metadata the assembled Schema needs to route requests to it
// (spec §4.1 Inputs: "a composed supergraph ... and a catalog of loaded
// extensions with their SDLs"). Grounded on the teacher's
// RegistrationGraph{Name,Host,SDL} and NewSubGraphV2(name, src, host).
type SubgraphSource struct {
	Name         string
	URL          string
	WebsocketURL string
	SDL          []byte
	// Virtual marks a subgraph with no network endpoint, entirely backed
	// by extension resolvers (spec §4.1.6).
	Virtual bool
}

// ExtensionSource is one loaded extension's contributed directive
// catalog (spec §4.1 "a catalog of loaded extensions with their SDLs").
type ExtensionSource struct {
	Name string
	SDL  []byte
}

// Builder assembles a Schema from parsed subgraph SDLs in the three
// passes spec §4.1 describes: (a) intern + placeholder ids, (b) resolve
// references, (c) ingest directives and federation metadata. Grounded on
// SuperGraphV2's merge-by-name traversal (federation/graph/super_graph_v2.go),
// generalized from an AST-merging composer into an arena-id composer.
type Builder struct {
	strings *intern.Interner
	errs    errorCollector

	docs       []parsedSubgraph
	extensions []ExtensionSource

	typeByName map[string]TypeID
	types      []TypeDefinition

	fields       []FieldDefinition
	fieldsByType map[TypeID]map[string]FieldID

	arguments []InputValueDefinition

	directives []AppliedDirective

	resolvers []ResolverDefinition

	subgraphs    []Subgraph
	subgraphByName map[string]SubgraphID

	fieldSetInterner *fieldSetInterner
}

type parsedSubgraph struct {
	src SubgraphSource
	doc *ast.Document
}

// NewBuilder parses every subgraph's SDL up front so reference-resolution
// errors are reported against the originating subgraph name.
func NewBuilder(sources []SubgraphSource, extensions []ExtensionSource) (*Builder, error) {
	b := &Builder{
		strings:        intern.New(1024),
		typeByName:     map[string]TypeID{},
		fieldsByType:   map[TypeID]map[string]FieldID{},
		subgraphByName: map[string]SubgraphID{},
		fieldSetInterner: newFieldSetInterner(),
		extensions:     extensions,
	}

	// Index 0 of every arena is reserved so the zero value of an id type
	// can mean "unset" without colliding with a real entry.
	b.types = append(b.types, TypeDefinition{})
	b.fields = append(b.fields, FieldDefinition{})
	b.arguments = append(b.arguments, InputValueDefinition{})
	b.directives = append(b.directives, AppliedDirective{})
	b.resolvers = append(b.resolvers, ResolverDefinition{})
	b.subgraphs = append(b.subgraphs, Subgraph{ID: IntrospectionSubgraphID, Kind: SubgraphIntrospection, Name: b.strings.Intern("introspection")})
	b.subgraphByName["introspection"] = IntrospectionSubgraphID

	// The built-in scalars are always defined, so subgraph SDL can
	// reference them without declaring them.
	for _, name := range []string{"ID", "String", "Int", "Float", "Boolean"} {
		id := TypeID(len(b.types))
		b.typeByName[name] = id
		b.types = append(b.types, TypeDefinition{ID: id, Name: b.strings.Intern(name), Kind: TypeKindScalar})
	}

	for _, src := range sources {
		doc, err := gqlast.Parse(src.SDL)
		if err != nil {
			b.errs.addf(src.Name, "", "", "parse subgraph SDL: %v", err)
			continue
		}
		b.docs = append(b.docs, parsedSubgraph{src: src, doc: doc})
	}
	if err := b.errs.errOrNil(); err != nil {
		return nil, err
	}
	return b, nil
}

// Build runs the three ingestion passes and returns the assembled
// Schema, or every composition error collected along the way.
func (b *Builder) Build() (*Schema, error) {
	b.registerSubgraphs()
	b.internPass()
	b.resolvePass()
	b.directivePass()

	if err := b.errs.errOrNil(); err != nil {
		return nil, err
	}

	s := &Schema{
		strings:    b.strings,
		types:      b.types,
		fields:     b.fields,
		arguments:  b.arguments,
		directives: b.directives,
		resolvers:  b.resolvers,
		subgraphs:  b.subgraphs,
		fieldSets:  b.fieldSetInterner.sets,
		entities:   map[TypeID]*EntityInfo{},
		byName:     map[StringID]TypeID{},
	}
	for name, id := range b.typeByName {
		s.byName[b.strings.Intern(name)] = id
	}
	if qid, ok := s.byName[b.strings.Intern("Query")]; ok {
		s.queryType = qid
	}
	if mid, ok := s.byName[b.strings.Intern("Mutation")]; ok {
		s.mutationType = mid
	}
	if sid, ok := s.byName[b.strings.Intern("Subscription")]; ok {
		s.subscriptionType = sid
	}
	b.buildEntityInfo(s)
	return s, nil
}

func (b *Builder) registerSubgraphs() {
	for _, p := range b.docs {
		if _, exists := b.subgraphByName[p.src.Name]; exists {
			b.errs.addf(p.src.Name, "", "", "duplicate subgraph name")
			continue
		}
		kind := SubgraphGraphQLEndpoint
		if p.src.Virtual {
			kind = SubgraphVirtual
		}
		id := SubgraphID(len(b.subgraphs))
		b.subgraphs = append(b.subgraphs, Subgraph{
			ID:           id,
			Kind:         kind,
			Name:         b.strings.Intern(p.src.Name),
			URL:          p.src.URL,
			WebsocketURL: p.src.WebsocketURL,
		})
		b.subgraphByName[p.src.Name] = id
	}
}

// internPass allocates a TypeID for every named type across every
// subgraph, merging same-named definitions/extensions into one entry
// (spec §4.1 pass (a): "intern names and allocate placeholder ids for
// every type, field, directive, subgraph, and extension").
func (b *Builder) internPass() {
	for _, p := range b.docs {
		for _, def := range p.doc.Definitions {
			name, kind, ok := typeDefKind(def)
			if !ok {
				continue
			}
			if _, exists := b.typeByName[name]; exists {
				continue
			}
			id := TypeID(len(b.types))
			b.typeByName[name] = id
			b.types = append(b.types, TypeDefinition{
				ID:   id,
				Name: b.strings.Intern(name),
				Kind: kind,
			})
		}
	}
	for _, p := range b.docs {
		for _, def := range p.doc.Definitions {
			b.internFields(p.src.Name, def)
		}
	}
}

func (b *Builder) internFields(subgraph string, def ast.Definition) {
	typeName, fieldDefs, ok := fieldContainer(def)
	if !ok {
		return
	}
	tid, ok := b.typeByName[typeName]
	if !ok {
		return
	}
	byName := b.fieldsByType[tid]
	if byName == nil {
		byName = map[string]FieldID{}
		b.fieldsByType[tid] = byName
	}
	t := &b.types[tid]
	for _, fd := range fieldDefs {
		fname := fd.Name.String()
		fid, exists := byName[fname]
		if !exists {
			fid = FieldID(len(b.fields))
			b.fields = append(b.fields, FieldDefinition{
				ID:     fid,
				Parent: tid,
				Name:   b.strings.Intern(fname),
				Requires: map[SubgraphID]FieldSetID{},
				Provides: map[SubgraphID]FieldSetID{},
				SubgraphTypes: map[SubgraphID]FieldType{},
			})
			byName[fname] = fid
			t.Fields = append(t.Fields, fid)
		}
		sgID := b.subgraphByName[subgraph]
		fld := &b.fields[fid]
		if !containsSubgraph(fld.ExistsInSubgraphIDs, sgID) {
			fld.ExistsInSubgraphIDs = append(fld.ExistsInSubgraphIDs, sgID)
		}
		for _, arg := range fd.Arguments {
			b.internArgument(fld, arg)
		}
	}
}

func (b *Builder) internArgument(fld *FieldDefinition, arg *ast.InputValueDefinition) {
	aid := ArgumentID(len(b.arguments))
	b.arguments = append(b.arguments, InputValueDefinition{
		ID:           aid,
		Name:         b.strings.Intern(arg.Name.String()),
		DefaultValue: b.parseDefaultValue(arg.DefaultValue),
	})
	fld.Arguments = append(fld.Arguments, aid)
}

// resolvePass resolves every field type, interface implementation and
// union member name to the TypeID allocated in internPass (spec §4.1
// pass (b)).
func (b *Builder) resolvePass() {
	for _, p := range b.docs {
		for _, def := range p.doc.Definitions {
			switch d := def.(type) {
			case *ast.ObjectTypeDefinition:
				b.resolveObjectLike(p.src.Name, d.Name.String(), d.Interfaces, d.Fields)
			case *ast.ObjectTypeExtension:
				b.resolveObjectLike(p.src.Name, d.Name.String(), d.Interfaces, d.Fields)
			case *ast.InterfaceTypeDefinition:
				b.resolveObjectLike(p.src.Name, d.Name.String(), nil, d.Fields)
			case *ast.UnionTypeDefinition:
				b.resolveUnion(p.src.Name, d.Name.String(), d.Types)
			}
		}
	}
	for i := range b.types {
		pts := b.types[i].PossibleTypes
		sort.Slice(pts, func(x, y int) bool { return pts[x] < pts[y] })
	}
}

func (b *Builder) resolveObjectLike(subgraph, typeName string, interfaces []*ast.Name, fields []*ast.FieldDefinition) {
	tid, ok := b.typeByName[typeName]
	if !ok {
		return
	}
	t := &b.types[tid]
	for _, iface := range interfaces {
		iid, ok := b.typeByName[iface.String()]
		if !ok {
			b.errs.addf(subgraph, typeName, "", "implements unknown interface %q", iface.String())
			continue
		}
		if !containsType(t.Interfaces, iid) {
			t.Interfaces = append(t.Interfaces, iid)
		}
		ii := &b.types[iid]
		if !containsType(ii.PossibleTypes, tid) {
			ii.PossibleTypes = append(ii.PossibleTypes, tid)
		}
	}
	for _, fd := range fields {
		fid := b.fieldsByType[tid][fd.Name.String()]
		sgID := b.subgraphByName[subgraph]
		ft := b.resolveFieldType(subgraph, fd.Type)
		fld := &b.fields[fid]
		if fld.Type == (FieldType{}) {
			fld.Type = ft
		} else if !fieldTypeEqual(fld.Type, ft) {
			fld.SubgraphTypes[sgID] = ft
		}
	}
}

func (b *Builder) resolveUnion(subgraph, typeName string, members []*ast.Name) {
	tid, ok := b.typeByName[typeName]
	if !ok {
		return
	}
	t := &b.types[tid]
	for _, m := range members {
		mid, ok := b.typeByName[m.String()]
		if !ok {
			b.errs.addf(subgraph, typeName, "", "union member %q is not a known type", m.String())
			continue
		}
		if !containsType(t.PossibleTypes, mid) {
			t.PossibleTypes = append(t.PossibleTypes, mid)
		}
	}
}

func (b *Builder) resolveFieldType(subgraph string, t ast.Type) FieldType {
	named := gqlast.TypeName(t)
	tid, ok := b.typeByName[named]
	if !ok {
		b.errs.addf(subgraph, "", "", "reference to unknown type %q", named)
	}
	return FieldType{
		Named:   tid,
		List:    gqlast.IsList(t),
		NonNull: gqlast.IsNonNull(t),
	}
}

// directivePass ingests @key/@requires/@provides/@override/@external/
// @shareable/@inaccessible/@derive, populating resolvers, requires,
// provides, keys and derives (spec §4.1 pass (c)); @lookup, @is and
// @require are not ingested and no ResolverLookup is created. Grounded on
// subgraph_v2.go's parseEntityKeys/parseField, generalized to the id
// arena and extended to the full composite-schema directive set.
func (b *Builder) directivePass() {
	for _, p := range b.docs {
		sgID := b.subgraphByName[p.src.Name]
		for _, def := range p.doc.Definitions {
			switch d := def.(type) {
			case *ast.ObjectTypeDefinition:
				b.ingestEntityDirectives(p.src.Name, sgID, d.Name.String(), d.Directives, d.Fields)
			case *ast.ObjectTypeExtension:
				b.ingestEntityDirectives(p.src.Name, sgID, d.Name.String(), d.Directives, d.Fields)
			}
		}
	}

	for i := range b.fields {
		fld := &b.fields[i]
		if fld.ID == 0 {
			continue
		}
		if fld.Parent == 0 {
			continue
		}
		t := b.types[fld.Parent]
		if t.Kind == TypeKindObject || t.Kind == TypeKindInterface {
			if len(fld.Resolvers) == 0 {
				for _, sg := range fld.ExistsInSubgraphIDs {
					rid := b.addResolver(ResolverDefinition{
						Kind:     ResolverGraphqlRootField,
						Subgraph: sg,
						Entity:   fld.Parent,
					})
					fld.Resolvers = append(fld.Resolvers, rid)
				}
			}
		}
	}
}

func (b *Builder) ingestEntityDirectives(subgraph string, sgID SubgraphID, typeName string, directives []*ast.Directive, fields []*ast.FieldDefinition) {
	tid, ok := b.typeByName[typeName]
	if !ok {
		return
	}
	t := &b.types[tid]

	var keys []KeySet
	for _, d := range directives {
		switch d.Name {
		case "key":
			fieldsArg, _ := gqlast.StringArg(d, "fields")
			resolvable := true
			if v, ok := gqlast.BoolArg(d, "resolvable"); ok {
				resolvable = v
			}
			fsid := b.internFieldSetText(tid, fieldsArg)
			keys = append(keys, KeySet{Fields: fsid, Resolvable: resolvable})
		case "inaccessible":
			t.Inaccessible = true
		}
	}
	entry := -1
	for i, k := range keys {
		if k.Resolvable {
			entry = i
			break
		}
	}
	if entry >= 0 {
		rid := b.addResolver(ResolverDefinition{
			Kind:     ResolverGraphqlFederationEntity,
			Subgraph: sgID,
			Entity:   tid,
			Key:      keys[entry].Fields,
		})
		if fids, ok := b.fieldsByType[tid]; ok {
			for _, fid := range fids {
				b.fields[fid].Resolvers = append(b.fields[fid].Resolvers, rid)
			}
		}
		_ = rid
	}

	for _, fd := range fields {
		fid, ok := b.fieldsByType[tid][fd.Name.String()]
		if !ok {
			continue
		}
		fld := &b.fields[fid]
		for _, d := range fd.Directives {
			switch d.Name {
			case "requires":
				if fs, ok := gqlast.StringArg(d, "fields"); ok && fs != "" {
					fld.Requires[sgID] = b.internFieldSetText(tid, fs)
				}
			case "provides":
				targetType := fld.Type.Named
				fieldsArg, _ := gqlast.StringArg(d, "fields")
				fld.Provides[sgID] = b.internFieldSetText(targetType, fieldsArg)
			case "shareable":
				fld.Shareable = true
			case "external":
				fld.External = true
			case "override":
				if from, ok := gqlast.StringArg(d, "from"); ok {
					fld.Override = &Override{From: b.strings.Intern(from)}
				}
			case "inaccessible":
				fld.Inaccessible = true
			case "derive":
				fld.Derives = b.strings.Intern(typeName)
			}
		}
	}
}

// internFieldSetText parses a `@key(fields: "id sku")`-style selection
// text into a structurally-shared FieldSetID, resolving each name
// against parent's field arena. Only top-level names are kept: for
// "a { b c }" the braced sub-selection is dropped and a becomes a leaf
// node, and a name that is not a field of parent is skipped. Nothing
// else rebuilds the dropped nested part.
func (b *Builder) internFieldSetText(parent TypeID, text string) FieldSetID {
	names := splitFieldSetTopLevel(text)
	var nodes []FieldSetNode
	fids := b.fieldsByType[parent]
	for _, name := range names {
		fid, ok := fids[name]
		if !ok {
			continue
		}
		nodes = append(nodes, FieldSetNode{Field: fid})
	}
	return b.fieldSetInterner.Intern(nodes)
}

func splitFieldSetTopLevel(text string) []string {
	text = strings.TrimSpace(text)
	var out []string
	depth := 0
	var cur strings.Builder
	for _, r := range text {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case ' ', '\t', '\n':
			if depth == 0 {
				if cur.Len() > 0 {
					out = append(out, cur.String())
					cur.Reset()
				}
				continue
			}
		}
		if depth == 0 && r != '{' && r != '}' {
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func (b *Builder) addResolver(r ResolverDefinition) ResolverID {
	id := ResolverID(len(b.resolvers))
	r.ID = id
	b.resolvers = append(b.resolvers, r)
	return id
}

func (b *Builder) buildEntityInfo(s *Schema) {
	for tid, t := range b.types {
		if tid == 0 || !t.Kind.IsEntityDefinition() {
			continue
		}
		ei := &EntityInfo{Type: TypeID(tid), Resolvers: map[SubgraphID][]ResolverID{}, EntryKeys: map[SubgraphID][]KeySet{}}
		for _, fid := range t.Fields {
			for _, rid := range b.fields[fid].Resolvers {
				r := b.resolvers[rid]
				if r.Kind != ResolverGraphqlFederationEntity {
					continue
				}
				ei.Resolvers[r.Subgraph] = append(ei.Resolvers[r.Subgraph], rid)
				key := KeySet{Fields: r.Key, Resolvable: true}
				if !containsKeySet(ei.Keys, key) {
					ei.Keys = append(ei.Keys, key)
				}
				ei.EntryKeys[r.Subgraph] = append(ei.EntryKeys[r.Subgraph], key)
			}
		}
		if len(ei.Keys) > 0 {
			s.entities[TypeID(tid)] = ei
		}
	}
}

func containsKeySet(ks []KeySet, k KeySet) bool {
	for _, e := range ks {
		if e.Fields == k.Fields {
			return true
		}
	}
	return false
}

func containsSubgraph(ids []SubgraphID, id SubgraphID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func containsType(ids []TypeID, id TypeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func fieldTypeEqual(a, b FieldType) bool {
	return a.Named == b.Named && a.List == b.List && a.NonNull == b.NonNull
}

// typeDefKind reports the name and TypeKind of a type-system definition,
// or false for non-type definitions (directive definitions, schema
// extensions).
func typeDefKind(def ast.Definition) (string, TypeKind, bool) {
	switch d := def.(type) {
	case *ast.ObjectTypeDefinition:
		return d.Name.String(), TypeKindObject, true
	case *ast.ObjectTypeExtension:
		return d.Name.String(), TypeKindObject, true
	case *ast.InterfaceTypeDefinition:
		return d.Name.String(), TypeKindInterface, true
	case *ast.UnionTypeDefinition:
		return d.Name.String(), TypeKindUnion, true
	case *ast.EnumTypeDefinition:
		return d.Name.String(), TypeKindEnum, true
	case *ast.InputObjectTypeDefinition:
		return d.Name.String(), TypeKindInputObject, true
	case *ast.ScalarTypeDefinition:
		return d.Name.String(), TypeKindScalar, true
	default:
		return "", 0, false
	}
}

// fieldContainer returns the type name and field list of any definition
// that carries fields (object/interface, plus their extensions).
func fieldContainer(def ast.Definition) (string, []*ast.FieldDefinition, bool) {
	switch d := def.(type) {
	case *ast.ObjectTypeDefinition:
		return d.Name.String(), d.Fields, true
	case *ast.ObjectTypeExtension:
		return d.Name.String(), d.Fields, true
	case *ast.InterfaceTypeDefinition:
		return d.Name.String(), d.Fields, true
	default:
		return "", nil, false
	}
}
