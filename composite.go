package recskema

import (
	"strconv"
	"unicode/utf8"
)

// ListType stores an ordered sequence of one element type. Native value:
// []any (any slice or array is accepted on dump). Lists are not nullable
// unless asked and default to a fresh empty list.
type ListType struct {
	fieldBase
	elem FieldType
}

// List declares a list of elem.
func List(elem FieldType, opts ...FieldOpt) *ListType {
	return &ListType{fieldBase: newBase(false, 0, opts), elem: elem}
}

func (t *ListType) Kind() Kind      { return KindList }
func (t *ListType) Elem() FieldType { return t.elem }
func (t *ListType) String() string  { return t.describe("List", t.elem.String()) }

func (t *ListType) DefaultValue() any {
	if !t.hasDefault && !t.nullable {
		return []any{}
	}
	return t.defaultValue()
}

func (t *ListType) IsSimilarTo(o FieldType) bool {
	ol, ok := o.(*ListType)
	return ok && t.similarBase(KindList, o) && t.elem.IsSimilarTo(ol.elem)
}

func (t *ListType) bindParent(p *Schema) FieldType {
	e := t.elem.bindParent(p)
	if e == t.elem {
		return t
	}
	c := *t
	c.elem = e
	return &c
}

func (t *ListType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	items, ok := AsList(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "list")
	}
	out := make([]any, len(items))
	for i, it := range items {
		w, err := t.elem.Dump(it)
		if err != nil {
			return nil, rebase(err, strconv.Itoa(i), "")
		}
		out[i] = w
	}
	return out, nil
}

func (t *ListType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "array")
	}
	out := make([]any, len(items))
	for i, it := range items {
		n, err := t.elem.Load(it)
		if err != nil {
			return nil, rebase(err, strconv.Itoa(i), "")
		}
		out[i] = n
	}
	return out, nil
}

// MapType stores a text-keyed mapping of one value type. Native value:
// map[string]any (any map with string keys is accepted on dump). Maps are
// not nullable unless asked and default to a fresh empty map.
type MapType struct {
	fieldBase
	value FieldType
}

// Map declares a map from text keys to value.
func Map(value FieldType, opts ...FieldOpt) *MapType {
	return &MapType{fieldBase: newBase(false, 0, opts), value: value}
}

func (t *MapType) Kind() Kind       { return KindMap }
func (t *MapType) Value() FieldType { return t.value }
func (t *MapType) String() string   { return t.describe("Map", t.value.String()) }

func (t *MapType) DefaultValue() any {
	if !t.hasDefault && !t.nullable {
		return map[string]any{}
	}
	return t.defaultValue()
}

func (t *MapType) IsSimilarTo(o FieldType) bool {
	om, ok := o.(*MapType)
	return ok && t.similarBase(KindMap, o) && t.value.IsSimilarTo(om.value)
}

func (t *MapType) bindParent(p *Schema) FieldType {
	e := t.value.bindParent(p)
	if e == t.value {
		return t
	}
	c := *t
	c.value = e
	return &c
}

func (t *MapType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	entries, ok := AsMap(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "map with text keys")
	}
	out := make(map[string]any, len(entries))
	for k, it := range entries {
		if !utf8.ValidString(k) {
			return nil, rebase(invalid(CodeInvalidValue, k, "utf-8 key"), k, "")
		}
		w, err := t.value.Dump(it)
		if err != nil {
			return nil, rebase(err, k, "")
		}
		out[k] = w
	}
	return out, nil
}

func (t *MapType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	entries, ok := v.(map[string]any)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "object")
	}
	out := make(map[string]any, len(entries))
	for k, it := range entries {
		n, err := t.value.Load(it)
		if err != nil {
			return nil, rebase(err, k, "")
		}
		out[k] = n
	}
	return out, nil
}

// SubRecordType embeds a record of one schema. Native value: *Record whose
// schema is exactly the target. Nested records carry no schema tag.
type SubRecordType struct {
	fieldBase
	target *Schema
}

// SubRecord declares a nested record of target. Pass Self to refer to the
// schema being declared.
func SubRecord(target *Schema, opts ...FieldOpt) *SubRecordType {
	return &SubRecordType{fieldBase: newBase(true, 0, opts), target: target}
}

func (t *SubRecordType) Kind() Kind        { return KindSubRecord }
func (t *SubRecordType) Target() *Schema   { return t.target }
func (t *SubRecordType) DefaultValue() any { return t.defaultValue() }
func (t *SubRecordType) String() string    { return t.describe("SubRecord", t.target.FullName()) }

func (t *SubRecordType) IsSimilarTo(o FieldType) bool {
	ot, ok := o.(*SubRecordType)
	return ok && t.similarBase(KindSubRecord, o) && ot.target.FullName() == t.target.FullName()
}

func (t *SubRecordType) bindParent(p *Schema) FieldType {
	if t.target != Self {
		return t
	}
	c := *t
	c.target = p
	return &c
}

func (t *SubRecordType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	rec, ok := v.(*Record)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "record "+t.target.FullName())
	}
	if rec.schema != t.target {
		return nil, invalid(CodeSchemaMismatch, v, t.target.FullName())
	}
	out, err := dumpFields(rec)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *SubRecordType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "object")
	}
	rec, err := loadFields(t.target, m, DefaultSchemaKey)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
