package recskema

import (
	"strings"
	"sync/atomic"
)

// Kind identifies the variant of a FieldType.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindBytes
	KindInteger
	KindFloat
	KindBoolean
	KindEnum
	KindList
	KindMap
	KindSubRecord
	KindDate
	KindDateTime
)

var kindNames = map[Kind]string{
	KindText:      "Text",
	KindBytes:     "Bytes",
	KindInteger:   "Integer",
	KindFloat:     "Float",
	KindBoolean:   "Boolean",
	KindEnum:      "Enum",
	KindList:      "List",
	KindMap:       "Map",
	KindSubRecord: "SubRecord",
	KindDate:      "Date",
	KindDateTime:  "DateTime",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// FieldType describes how one field's native value maps to and from its
// JSON-compatible wire value. The set of variants is closed; exporters switch
// on the concrete type or on Kind.
type FieldType interface {
	Kind() Kind
	Nullable() bool
	// Default reports the explicitly declared default, if any.
	Default() (any, bool)
	// DefaultValue returns a fresh copy of the default, nil for a nullable
	// field without one, or NoDefault.
	DefaultValue() any
	Description() string
	DeclarationIndex() uint64
	// Size is a width hint (4 or 8) for Integer and Float, zero elsewhere.
	Size() int
	Dump(v any) (any, error)
	Load(v any) (any, error)
	IsSimilarTo(other FieldType) bool
	String() string

	bindParent(parent *Schema) FieldType
}

type noDefault struct{}

func (noDefault) String() string { return "NoDefault" }

// NoDefault marks a field value that was never set and has no default.
// Serializing it fails with a ValidationError.
var NoDefault any = noDefault{}

var declarationCounter atomic.Uint64

// FieldOpt configures a field type at construction.
type FieldOpt func(*fieldBase)

// NotNull makes the field non-nullable.
func NotNull() FieldOpt { return func(b *fieldBase) { b.nullable = false } }

// Nullable sets whether the field accepts null.
func Nullable(on bool) FieldOpt { return func(b *fieldBase) { b.nullable = on } }

// Default declares the value used when the field is absent.
func Default(v any) FieldOpt {
	return func(b *fieldBase) {
		b.def = v
		b.hasDefault = true
	}
}

// Description attaches documentation to the field.
func Description(s string) FieldOpt { return func(b *fieldBase) { b.description = s } }

// Size sets the width hint used by exporters (4 or 8).
func Size(n int) FieldOpt { return func(b *fieldBase) { b.size = n } }

type fieldBase struct {
	nullable    bool
	def         any
	hasDefault  bool
	description string
	index       uint64
	size        int
}

func newBase(nullable bool, size int, opts []FieldOpt) fieldBase {
	b := fieldBase{nullable: nullable, size: size, index: declarationCounter.Add(1)}
	for _, o := range opts {
		if o != nil {
			o(&b)
		}
	}
	return b
}

func (b *fieldBase) Nullable() bool           { return b.nullable }
func (b *fieldBase) Default() (any, bool)     { return b.def, b.hasDefault }
func (b *fieldBase) Description() string      { return b.description }
func (b *fieldBase) DeclarationIndex() uint64 { return b.index }
func (b *fieldBase) Size() int                { return b.size }

func (b *fieldBase) defaultValue() any {
	if b.hasDefault {
		return cloneValue(b.def)
	}
	if b.nullable {
		return nil
	}
	return NoDefault
}

// dumpNull handles the values every variant treats alike: NoDefault and nil.
// done reports whether the caller should return immediately with err.
func (b *fieldBase) dumpNull(v any) (done bool, err error) {
	if v == NoDefault {
		return true, invalid(CodeNoDefault, v, "")
	}
	if isNil(v) {
		if b.nullable {
			return true, nil
		}
		return true, invalid(CodeNullNotAllowed, v, "")
	}
	return false, nil
}

func (b *fieldBase) loadNull(v any) (done bool, err error) {
	if v == nil {
		if b.nullable {
			return true, nil
		}
		return true, malformed(CodeNullNotAllowed, v, "")
	}
	return false, nil
}

func (b *fieldBase) similarBase(k Kind, o FieldType) bool {
	if o == nil || o.Kind() != k || o.Nullable() != b.nullable || o.Size() != b.size {
		return false
	}
	od, ok := o.Default()
	if ok != b.hasDefault {
		return false
	}
	return !ok || compareValues(b.def, od) == 0
}

func (b *fieldBase) describe(name string, params ...string) string {
	if b.nullable {
		params = append(params, "nullable")
	}
	if len(params) == 0 {
		return name
	}
	return name + "(" + strings.Join(params, ", ") + ")"
}
