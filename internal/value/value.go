// Package value defines the QueryInputValue variant used for both schema
// default values and bound operation argument values (spec §3.2). It has
// no dependency on the schema or operation packages so both can import it
// without a cycle.
package value

import "github.com/n9te9/federation-core/internal/intern"

// Kind tags the QueryInputValue variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindBigInt
	KindFloat
	KindU64
	KindBoolean
	KindEnumValue
	KindUnboundEnumValue
	KindInputObject
	KindList
	KindMap
	KindDefaultValue // references a schema input-value id, resolved lazily
	KindVariable     // references a VariableDefinitionId, resolved at execution time
)

// SchemaInputValueRef is an opaque reference to a schema-arena input value,
// used by KindDefaultValue. The schema package defines the concrete id
// type; here it is just a uint32 to avoid importing schema.
type SchemaInputValueRef uint32

// VariableRef is an opaque reference to a bound operation's variable
// definition, used by KindVariable.
type VariableRef uint32

// Value is the QueryInputValue variant of spec §3.2.
type Value struct {
	Kind Kind

	Str     string
	Int     int64
	BigInt  string // decimal text, for values exceeding int64
	Float   float64
	U64     uint64
	Bool    bool
	EnumRef intern.ID // KindEnumValue: known enum value name
	Unbound string    // KindUnboundEnumValue: raw, schema-unknown enum text

	List   []*Value
	Fields []FieldValue // KindInputObject / KindMap

	DefaultOf SchemaInputValueRef
	Variable  VariableRef
}

// FieldValue is one (name, value) pair of an input-object or map literal.
type FieldValue struct {
	Name  intern.ID
	Value *Value
}

// Null is the shared KindNull sentinel.
var Null = &Value{Kind: KindNull}

// IsNull reports whether v is the literal `null`.
func (v *Value) IsNull() bool {
	return v == nil || v.Kind == KindNull
}
