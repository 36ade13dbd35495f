package response

import "github.com/n9te9/federation-core/internal/shape"

// Decoder deserializes subgraph JSON directly into a Builder's arena
// guided by a shape tree, without ever consulting the operation arena
// (spec §4.4: "the deserializer never consults the operation arena
// during value-ingestion, which keeps the hot loop cache-friendly").
type Decoder struct {
	shapes []shape.Shape
	b      *Builder
}

// NewDecoder builds a Decoder bound to shapes (the full arena from a
// shape.Builder) and the response Builder it writes into.
func NewDecoder(shapes []shape.Shape, b *Builder) *Decoder {
	return &Decoder{shapes: shapes, b: b}
}

// DecodeObject writes raw (a decoded JSON object, or nil) into obj using
// sh's field layout, recursing into nested shapes and bubbling nulls for
// any RequiredForSurface field that came back missing or null.
func (d *Decoder) DecodeObject(obj NodeID, sh shape.ShapeID, raw map[string]interface{}, path []string) {
	s := d.shapes[sh]
	switch s.Kind {
	case shape.ShapePolymorphic:
		typename, _ := raw["__typename"].(string)
		for _, concreteID := range s.Polymorphic.PossibleTypes {
			cs := d.shapes[concreteID]
			if cs.Kind != shape.ShapeConcrete {
				continue
			}
			_ = typename // resolved against schema by the caller when needed; structural decode proceeds per concrete field list
			d.decodeConcrete(obj, cs.Concrete, raw, path)
			return
		}
		return
	case shape.ShapeConcrete:
		d.decodeConcrete(obj, s.Concrete, raw, path)
	}
}

func (d *Decoder) decodeConcrete(obj NodeID, cs shape.ConcreteShape, raw map[string]interface{}, path []string) {
	for _, fs := range cs.Fields {
		if fs.Hidden {
			// A synthetic @key field: record it for later representation
			// building but never surface it or bubble null for it — the
			// operation never asked for it, so a missing/null value here
			// is the producing subgraph's business, not the client's.
			if v, present := raw[fs.ResponseKey]; present && v != nil {
				leaf := d.b.NewLeaf(obj, fs.ResponseKey, true, v)
				d.b.SetHiddenField(obj, fs.ResponseKey, leaf)
			}
			continue
		}
		childPath := append(append([]string{}, path...), fs.ResponseKey)
		v, present := raw[fs.ResponseKey]
		if !present || v == nil {
			if fs.RequiredForSurface {
				leaf := d.b.NewLeaf(obj, fs.ResponseKey, false, nil)
				d.b.SetField(obj, fs.ResponseKey, leaf)
				d.b.BubbleNull(leaf, childPath, "Cannot return null for non-nullable field "+fs.ResponseKey)
				continue
			}
			leaf := d.b.NewLeaf(obj, fs.ResponseKey, true, nil)
			d.b.SetField(obj, fs.ResponseKey, leaf)
			continue
		}
		d.decodeValue(obj, fs, v, childPath)
	}
}

func (d *Decoder) decodeValue(parent NodeID, fs shape.FieldShape, v interface{}, path []string) {
	nullable := !fs.RequiredForSurface
	if fs.IsLeaf {
		leaf := d.b.NewLeaf(parent, fs.ResponseKey, nullable, v)
		d.b.SetField(parent, fs.ResponseKey, leaf)
		return
	}
	switch vv := v.(type) {
	case []interface{}:
		list := d.b.NewList(parent, fs.ResponseKey, nullable)
		d.b.SetField(parent, fs.ResponseKey, list)
		elems := make([]NodeID, 0, len(vv))
		for i, item := range vv {
			obj := d.b.NewObject(list, indexKey(i), nullable, fs.Output)
			elems = append(elems, obj)
			if m, ok := item.(map[string]interface{}); ok {
				d.DecodeObject(obj, fs.Output, m, path)
			}
		}
		d.b.nodes[list].Elements = elems
	case map[string]interface{}:
		obj := d.b.NewObject(parent, fs.ResponseKey, nullable, fs.Output)
		d.b.SetField(parent, fs.ResponseKey, obj)
		d.DecodeObject(obj, fs.Output, vv, path)
	default:
		leaf := d.b.NewLeaf(parent, fs.ResponseKey, nullable, v)
		d.b.SetField(parent, fs.ResponseKey, leaf)
	}
}

func indexKey(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
