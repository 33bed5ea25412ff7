// Package schemafile declares record schemas and named enumerations from
// YAML documents.
//
// A file holds one document per declaration:
//
//	enum: Color
//	values: [red, green, blue]
//	---
//	record: Pixel
//	namespace: gfx
//	fields:
//	  - name: color
//	    type: enum
//	    enum: Color
//	  - name: x
//	    type: integer
//	    nullable: false
//	    size: 4
//	  - name: next
//	    type: record
//	    ref: self
//
// References to records and enums resolve through the target store, so a
// document may only refer to declarations that precede it or that the store
// already holds.
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reoring/recskema"
)

// Document is one YAML declaration. Exactly one of Record and Enum is set.
type Document struct {
	Record    string      `yaml:"record"`
	Namespace string      `yaml:"namespace"`
	Doc       string      `yaml:"doc"`
	Extends   string      `yaml:"extends"`
	Fields    []FieldSpec `yaml:"fields"`

	Enum   string   `yaml:"enum"`
	Values []string `yaml:"values"`
}

// FieldSpec is a named field of a record document.
type FieldSpec struct {
	Name     string `yaml:"name"`
	TypeSpec `yaml:",inline"`
}

// TypeSpec describes a field type. Type is one of text, bytes, integer,
// float, boolean, date, datetime, enum, list, map and record.
type TypeSpec struct {
	Type        string    `yaml:"type"`
	Nullable    *bool     `yaml:"nullable"`
	Size        int       `yaml:"size"`
	Default     yaml.Node `yaml:"default"`
	Description string    `yaml:"description"`
	// Readable selects the code point encoding for bytes.
	Readable bool `yaml:"readable"`
	// Values lists enum members; with Enum set they declare a named enum,
	// without Values Enum refers to one already registered.
	Values []string  `yaml:"values"`
	Enum   string    `yaml:"enum"`
	Items  *TypeSpec `yaml:"items"`
	Value  *TypeSpec `yaml:"value"`
	// Ref names the target of a record field, or "self".
	Ref string `yaml:"ref"`
}

// Error locates a declaration failure.
type Error struct {
	Doc   int // zero-based document index
	Name  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schemafile: document %d (%s), field %s: %v", e.Doc, e.Name, e.Field, e.Err)
	}
	return fmt.Sprintf("schemafile: document %d (%s): %v", e.Doc, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Loader declares documents into a store.
type Loader struct {
	store *recskema.Store
}

// NewLoader returns a loader for st; nil means recskema.DefaultStore().
func NewLoader(st *recskema.Store) *Loader {
	if st == nil {
		st = recskema.DefaultStore()
	}
	return &Loader{store: st}
}

// LoadFile reads and declares a YAML file.
func (l *Loader) LoadFile(path string) ([]*recskema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.Load(bytes.NewReader(data))
}

// Load declares every document of r, in order. It returns the record schemas
// declared; enums are registered in the store only. Duplicate keys fail with
// *DuplicateKeyError and unknown keys with a yaml.TypeError.
func (l *Loader) Load(r io.Reader) ([]*recskema.Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	nodes := yaml.NewDecoder(bytes.NewReader(data))
	docs := yaml.NewDecoder(bytes.NewReader(data))
	docs.KnownFields(true)

	var out []*recskema.Schema
	for i := 0; ; i++ {
		var root yaml.Node
		if err := nodes.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		if err := checkDuplicates(&root); err != nil {
			return nil, err
		}
		var doc Document
		if err := docs.Decode(&doc); err != nil {
			return nil, &Error{Doc: i, Err: err}
		}
		s, err := l.declare(doc)
		if err != nil {
			var fe *Error
			if errors.As(err, &fe) {
				fe.Doc = i
				return nil, fe
			}
			return nil, &Error{Doc: i, Name: doc.Record + doc.Enum, Err: err}
		}
		if s != nil {
			out = append(out, s)
		}
	}
}

func (l *Loader) declare(doc Document) (*recskema.Schema, error) {
	switch {
	case doc.Record != "" && doc.Enum != "":
		return nil, errors.New("document declares both a record and an enum")
	case doc.Enum != "":
		if len(doc.Values) == 0 {
			return nil, errors.New("enum without values")
		}
		return nil, l.store.AddEnum(recskema.NamedEnum(doc.Enum, doc.Values))
	case doc.Record == "":
		return nil, errors.New("document declares neither a record nor an enum")
	}

	opts := []recskema.SchemaOpt{recskema.WithStore(l.store)}
	if doc.Namespace != "" {
		opts = append(opts, recskema.WithNamespace(doc.Namespace))
	}
	if doc.Doc != "" {
		opts = append(opts, recskema.WithDoc(doc.Doc))
	}
	if doc.Extends != "" {
		base, err := l.store.Get(doc.Extends)
		if err != nil {
			return nil, err
		}
		opts = append(opts, recskema.WithBase(base))
	}
	fields := make([]recskema.Field, 0, len(doc.Fields))
	for _, fs := range doc.Fields {
		ft, err := l.fieldType(fs.TypeSpec)
		if err != nil {
			return nil, &Error{Name: doc.Record, Field: fs.Name, Err: err}
		}
		fields = append(fields, recskema.Field{Name: fs.Name, Type: ft})
	}
	return recskema.Declare(doc.Record, fields, opts...)
}

func (l *Loader) fieldType(ts TypeSpec) (recskema.FieldType, error) {
	var opts []recskema.FieldOpt
	if ts.Nullable != nil {
		opts = append(opts, recskema.Nullable(*ts.Nullable))
	}
	if ts.Size != 0 {
		if ts.Size != 4 && ts.Size != 8 {
			return nil, fmt.Errorf("size must be 4 or 8, got %d", ts.Size)
		}
		opts = append(opts, recskema.Size(ts.Size))
	}
	if ts.Description != "" {
		opts = append(opts, recskema.Description(ts.Description))
	}
	build, err := l.builder(ts)
	if err != nil {
		return nil, err
	}
	if ts.Default.Kind == 0 {
		return build(opts...), nil
	}
	var raw any
	if err := ts.Default.Decode(&raw); err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	def, err := loadDefault(build(opts...), raw)
	if err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	return build(append(opts, recskema.Default(def))...), nil
}

type builder func(opts ...recskema.FieldOpt) recskema.FieldType

func (l *Loader) builder(ts TypeSpec) (builder, error) {
	switch ts.Type {
	case "text":
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Text(o...) }, nil
	case "bytes":
		if ts.Readable {
			return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.ReadableBytes(o...) }, nil
		}
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Bytes(o...) }, nil
	case "integer":
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Integer(o...) }, nil
	case "float":
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Float(o...) }, nil
	case "boolean":
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Boolean(o...) }, nil
	case "date":
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Date(o...) }, nil
	case "datetime":
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.DateTime(o...) }, nil
	case "enum":
		name, values := ts.Enum, ts.Values
		if len(values) == 0 {
			if name == "" {
				return nil, errors.New("enum field needs values or an enum name")
			}
			e, ok := l.store.Enum(name)
			if !ok {
				return nil, fmt.Errorf("unknown enum %q", name)
			}
			values = e.Values()
		} else if name != "" {
			if err := l.store.AddEnum(recskema.NamedEnum(name, values)); err != nil {
				return nil, err
			}
		}
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.NamedEnum(name, values, o...) }, nil
	case "list", "map":
		inner := ts.Items
		if ts.Type == "map" {
			inner = ts.Value
		}
		if inner == nil {
			return nil, fmt.Errorf("%s field needs an element type", ts.Type)
		}
		elem, err := l.fieldType(*inner)
		if err != nil {
			return nil, fmt.Errorf("%s element: %w", ts.Type, err)
		}
		if ts.Type == "map" {
			return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Map(elem, o...) }, nil
		}
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.List(elem, o...) }, nil
	case "record":
		var target *recskema.Schema
		switch ts.Ref {
		case "":
			return nil, errors.New("record field needs a ref")
		case "self":
			target = recskema.Self
		default:
			s, err := l.store.Get(ts.Ref)
			if err != nil {
				return nil, err
			}
			target = s
		}
		return func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.SubRecord(target, o...) }, nil
	case "":
		return nil, errors.New("missing type")
	}
	return nil, fmt.Errorf("unknown type %q", ts.Type)
}

// loadDefault converts a YAML value to the field's native form through the
// field's own wire loader.
func loadDefault(ft recskema.FieldType, raw any) (any, error) {
	if tm, ok := raw.(time.Time); ok {
		switch ft.Kind() {
		case recskema.KindDate:
			raw = tm.Format(time.DateOnly)
		case recskema.KindDateTime:
			raw = tm.Format(time.DateTime)
		}
	}
	return ft.Load(raw)
}
