package recskema

import "strings"

// Record is an instance of a Schema. It holds exactly the schema's fields;
// values are native Go values (see the field types for the accepted shapes).
type Record struct {
	schema *Schema
	values []any
}

// Schema returns the record's descriptor.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns a field value.
func (r *Record) Get(name string) (any, error) {
	i, ok := r.schema.index[name]
	if !ok {
		return nil, &AttributeError{Schema: r.schema.FullName(), Name: name}
	}
	return r.values[i], nil
}

// MustGet is Get that panics on unknown names.
func (r *Record) MustGet(name string) any {
	v, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Set assigns a field value. Values are checked only when the record is
// serialized.
func (r *Record) Set(name string, v any) error {
	i, ok := r.schema.index[name]
	if !ok {
		return &AttributeError{Schema: r.schema.FullName(), Name: name}
	}
	r.values[i] = v
	return nil
}

// Values returns the field values by name.
func (r *Record) Values() Values {
	out := make(Values, len(r.values))
	for i, f := range r.schema.fields {
		out[f.Name] = r.values[i]
	}
	return out
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{schema: r.schema, values: make([]any, len(r.values))}
	for i, v := range r.values {
		c.values[i] = cloneValue(v)
	}
	return c
}

// Compare orders records by schema full name, then by field values in
// declaration order. A nil record sorts first.
func (r *Record) Compare(o *Record) int {
	switch {
	case r == nil && o == nil:
		return 0
	case r == nil:
		return -1
	case o == nil:
		return 1
	}
	if c := strings.Compare(r.schema.FullName(), o.schema.FullName()); c != 0 {
		return c
	}
	for i, f := range r.schema.fields {
		var ov any
		if j, ok := o.schema.index[f.Name]; ok {
			ov = o.values[j]
		}
		if c := compareValues(r.values[i], ov); c != 0 {
			return c
		}
	}
	return cmpInt(len(r.schema.fields), len(o.schema.fields))
}

// Equal reports whether o has the same schema name and equal field values.
// Comparing with nil is false.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return false
	}
	return r.Compare(o) == 0
}

// String renders the record as Name(field=value, ...).
func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	b := &strings.Builder{}
	b.WriteString(r.schema.name)
	b.WriteByte('(')
	for i, f := range r.schema.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		formatValue(b, r.values[i])
	}
	b.WriteByte(')')
	return b.String()
}
