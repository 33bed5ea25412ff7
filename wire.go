package recskema

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultSchemaKey is the reserved wire key carrying a record's schema name.
const DefaultSchemaKey = "$schema"

// DumpOpt configures ToWire. The zero value writes the tag under
// DefaultSchemaKey.
type DumpOpt struct {
	SchemaKey  string // Tag key; empty means DefaultSchemaKey.
	OmitSchema bool   // Do not write the tag.
}

// LoadOpt configures FromWire.
type LoadOpt struct {
	// Store resolves the tag; nil means DefaultStore().
	Store *Store
	// Schema forces the record type. The tag, if present, is ignored.
	Schema *Schema
	// SchemaKey is the tag key; empty means DefaultSchemaKey.
	SchemaKey string
}

// ToWire converts a record into its JSON-compatible tree: text, numbers
// (int64, *big.Int, float64), booleans, []any and map[string]any. Null fields
// are left out. The tree is tagged with the schema's full name unless
// OmitSchema is set; a tag key that names a field wraps ErrInvalidSchema.
func ToWire(r *Record, opts ...DumpOpt) (map[string]any, error) {
	var opt DumpOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if r == nil {
		return nil, invalid(CodeNullNotAllowed, nil, "record")
	}
	out, err := dumpFields(r)
	if err != nil {
		return nil, err
	}
	if !opt.OmitSchema {
		key := schemaKey(opt.SchemaKey)
		if err := checkSchemaKey(r.schema, key); err != nil {
			return nil, err
		}
		out[key] = r.schema.FullName()
	}
	return out, nil
}

// FromWire builds a record from a JSON-compatible tree. Without
// LoadOpt.Schema the tag names the schema and is resolved through the store.
// Unknown keys fail; absent fields take their defaults. A tag key that names
// a field of the schema wraps ErrInvalidSchema. The input is not modified.
func FromWire(tree any, opts ...LoadOpt) (*Record, error) {
	var opt LoadOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	m, ok := tree.(map[string]any)
	if !ok {
		return nil, malformed(CodeInvalidType, tree, "object")
	}
	key := schemaKey(opt.SchemaKey)
	s := opt.Schema
	if s == nil {
		raw, present := m[key]
		if !present {
			pe := malformed(CodeSchemaMissing, nil, key)
			pe.Path = "/" + escapePointer(key)
			return nil, pe
		}
		name, ok := raw.(string)
		if !ok {
			pe := malformed(CodeInvalidType, raw, "string")
			pe.Path = "/" + escapePointer(key)
			return nil, pe
		}
		st := opt.Store
		if st == nil {
			st = DefaultStore()
		}
		var err error
		s, err = st.Get(name)
		if err != nil {
			code := CodeSchemaUnknown
			var ce *SchemaConflictError
			if errors.As(err, &ce) {
				code = CodeSchemaConflict
			}
			pe := malformed(code, name, "")
			pe.Path = "/" + escapePointer(key)
			pe.Cause = err
			return nil, pe
		}
	}
	if err := checkSchemaKey(s, key); err != nil {
		return nil, err
	}
	return loadFields(s, m, key)
}

func schemaKey(k string) string {
	if k == "" {
		return DefaultSchemaKey
	}
	return k
}

// checkSchemaKey rejects a tag key that shadows one of s's fields.
func checkSchemaKey(s *Schema, key string) error {
	if _, clash := s.index[key]; clash {
		return fmt.Errorf("%w: schema key %q is also a field of %s", ErrInvalidSchema, key, s.FullName())
	}
	return nil
}

func dumpFields(r *Record) (map[string]any, error) {
	out := make(map[string]any, len(r.values)+1)
	for i, f := range r.schema.fields {
		v := r.values[i]
		if isNil(v) && f.Type.Nullable() {
			continue
		}
		w, err := f.Type.Dump(v)
		if err != nil {
			return nil, rebase(err, f.Name, f.Name)
		}
		if w == nil {
			continue
		}
		out[f.Name] = w
	}
	return out, nil
}

func loadFields(s *Schema, m map[string]any, skipKey string) (*Record, error) {
	var unknown []string
	for k := range m {
		if k == skipKey {
			continue
		}
		if _, ok := s.index[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		pe := malformed(CodeUnknownKey, m[unknown[0]], "")
		pe.Path = "/" + escapePointer(unknown[0])
		pe.Field = unknown[0]
		return nil, pe
	}
	r := &Record{schema: s, values: make([]any, len(s.fields))}
	for i, f := range s.fields {
		raw, present := m[f.Name]
		if !present {
			r.values[i] = f.Type.DefaultValue()
			continue
		}
		v, err := f.Type.Load(raw)
		if err != nil {
			return nil, rebase(err, f.Name, f.Name)
		}
		r.values[i] = v
	}
	return r, nil
}
