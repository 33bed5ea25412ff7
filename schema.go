package recskema

import (
	"fmt"
	"sort"
	"strings"
)

// Field is one named slot of a schema.
type Field struct {
	Name string
	Type FieldType
}

// Schema is a record type descriptor: a name, an optional namespace and an
// ordered list of fields. It is immutable once Declare returns.
type Schema struct {
	name      string
	namespace string
	doc       string
	base      *Schema
	fields    []Field
	index     map[string]int
}

// Self stands for "the schema being declared" in SubRecord fields. Declare
// replaces it with the new schema.
var Self = &Schema{name: "SELF"}

// SchemaOpt configures Declare.
type SchemaOpt func(*declareConfig)

type declareConfig struct {
	namespace string
	doc       string
	base      *Schema
	store     *Store
	register  bool
}

// WithNamespace qualifies the schema name (full name "namespace.name").
func WithNamespace(ns string) SchemaOpt { return func(c *declareConfig) { c.namespace = ns } }

// WithDoc attaches a docstring.
func WithDoc(doc string) SchemaOpt { return func(c *declareConfig) { c.doc = doc } }

// WithBase inherits the fields of base. Inherited fields come first.
func WithBase(base *Schema) SchemaOpt { return func(c *declareConfig) { c.base = base } }

// WithStore registers the schema in st instead of the default store.
func WithStore(st *Store) SchemaOpt {
	return func(c *declareConfig) {
		c.store = st
		c.register = true
	}
}

// WithoutRegistration skips registration.
func WithoutRegistration() SchemaOpt { return func(c *declareConfig) { c.register = false } }

// Declare builds a schema from an ordered field list and registers it in the
// default store (see WithStore and WithoutRegistration). Field types that
// refer to Self are bound to the new schema.
//
// Redeclaring an inherited field replaces it in place and logs a warning.
func Declare(name string, fields []Field, opts ...SchemaOpt) (*Schema, error) {
	cfg := declareConfig{register: true}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if name == "" || strings.Contains(name, ".") {
		return nil, fmt.Errorf("%w: bad record name %q", ErrInvalidSchema, name)
	}
	s := &Schema{name: name, namespace: cfg.namespace, doc: cfg.doc, base: cfg.base, index: map[string]int{}}

	if cfg.base != nil {
		for _, f := range cfg.base.fields {
			s.index[f.Name] = len(s.fields)
			s.fields = append(s.fields, f)
		}
	}
	own := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" || f.Name == DefaultSchemaKey {
			return nil, fmt.Errorf("%w: %s: bad field name %q", ErrInvalidSchema, name, f.Name)
		}
		if f.Type == nil {
			return nil, fmt.Errorf("%w: %s.%s: missing field type", ErrInvalidSchema, name, f.Name)
		}
		if _, dup := own[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, name, f.Name)
		}
		own[f.Name] = struct{}{}
		if i, inherited := s.index[f.Name]; inherited {
			l := Logger()
			l.Warn().Str("schema", s.FullName()).Str("field", f.Name).Msg("field overrides inherited definition")
			s.fields[i] = f
			continue
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	for i := range s.fields {
		s.fields[i].Type = s.fields[i].Type.bindParent(s)
	}

	if cfg.register {
		st := cfg.store
		if st == nil {
			st = DefaultStore()
		}
		st.Add(s)
	}
	return s, nil
}

// MustDeclare is Declare that panics on error, for package-level variables.
func MustDeclare(name string, fields []Field, opts ...SchemaOpt) *Schema {
	s, err := Declare(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// FieldsByDeclaration orders an unordered field set by the order in which the
// field types were constructed.
func FieldsByDeclaration(m map[string]FieldType) []Field {
	out := make([]Field, 0, len(m))
	for n, t := range m {
		out = append(out, Field{Name: n, Type: t})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Type.DeclarationIndex() < out[j].Type.DeclarationIndex()
	})
	return out
}

// Name returns the bare name, without namespace.
func (s *Schema) Name() string { return s.name }

// Namespace returns the dotted namespace, or "" for a bare schema.
func (s *Schema) Namespace() string { return s.namespace }

// Doc returns the documentation string given at declaration.
func (s *Schema) Doc() string { return s.doc }

// Base returns the schema this one extends, or nil.
func (s *Schema) Base() *Schema { return s.base }

// NumFields counts the fields, inherited ones included.
func (s *Schema) NumFields() int { return len(s.fields) }

// String returns the full name.
func (s *Schema) String() string { return s.FullName() }

// FullName is "namespace.name", or the bare name without a namespace.
func (s *Schema) FullName() string {
	if s == nil {
		return "<nil>"
	}
	if s.namespace == "" {
		return s.name
	}
	return s.namespace + "." + s.name
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field { return append([]Field(nil), s.fields...) }

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Field looks a field type up by name.
func (s *Schema) Field(name string) (FieldType, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i].Type, true
}

// IsSimilarTo reports structural equivalence: same field names in the same
// order with similar types. Names and documentation are ignored.
func (s *Schema) IsSimilarTo(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.fields) != len(o.fields) {
		return false
	}
	for i, f := range s.fields {
		g := o.fields[i]
		if f.Name != g.Name || !f.Type.IsSimilarTo(g.Type) {
			return false
		}
	}
	return true
}

// Values holds named field values for Schema.New.
type Values map[string]any

// New builds a record. Fields missing from vals take their default value.
// Values are stored as given, without conversion.
func (s *Schema) New(vals Values) (*Record, error) {
	for k := range vals {
		if _, ok := s.index[k]; !ok {
			return nil, &AttributeError{Schema: s.FullName(), Name: k}
		}
	}
	r := &Record{schema: s, values: make([]any, len(s.fields))}
	for i, f := range s.fields {
		if v, ok := vals[f.Name]; ok {
			r.values[i] = v
			continue
		}
		r.values[i] = f.Type.DefaultValue()
	}
	return r, nil
}

// MustNew is New that panics on error.
func (s *Schema) MustNew(vals Values) *Record {
	r, err := s.New(vals)
	if err != nil {
		panic(err)
	}
	return r
}
