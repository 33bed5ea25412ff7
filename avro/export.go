// Package avro maps record schemas to Avro schemas and records to the native
// form understood by github.com/linkedin/goavro/v2.
//
// Size hints choose the Avro primitive: Integer(Size(4)) is "int", other
// integers "long"; Float(Size(4)) is "float", other floats "double". Nullable
// fields become ["null", T] unions defaulting to null. Dates and timestamps
// travel as strings in their wire layout.
package avro

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/reoring/recskema"
)

// exporter assigns every named Avro type its full name once; later
// references use the name alone.
type exporter struct {
	names map[any]string
}

func newExporter() *exporter { return &exporter{names: map[any]string{}} }

// Schema returns the Avro schema of s as a JSON-compatible value.
func Schema(s *recskema.Schema) (map[string]any, error) {
	out, err := newExporter().record(s, "")
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

// SchemaJSON returns the Avro schema of s as JSON text.
func SchemaJSON(s *recskema.Schema) ([]byte, error) {
	m, err := Schema(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func fullName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}

func (e *exporter) record(s *recskema.Schema, enclosingNS string) (any, error) {
	if n, ok := e.names[s]; ok {
		return n, nil
	}
	ns := s.Namespace()
	if ns == "" {
		ns = enclosingNS
	}
	e.names[s] = fullName(ns, s.Name())

	fields := make([]any, 0, s.NumFields())
	for _, f := range s.Fields() {
		entry := map[string]any{"name": f.Name}
		t, err := e.fieldType(f.Type, ns, s.Name()+"_"+f.Name)
		if err != nil {
			return nil, fmt.Errorf("avro: %s.%s: %w", s.FullName(), f.Name, err)
		}
		if def, ok, err := e.fieldDefault(f.Type); err != nil {
			return nil, fmt.Errorf("avro: %s.%s: %w", s.FullName(), f.Name, err)
		} else if ok {
			entry["default"] = def
			if f.Type.Nullable() && def != nil {
				// A union default must match its first branch.
				u := t.([]any)
				t = []any{u[1], u[0]}
			}
		}
		entry["type"] = t
		if d := f.Type.Description(); d != "" {
			entry["doc"] = d
		}
		fields = append(fields, entry)
	}
	out := map[string]any{"type": "record", "name": s.Name(), "fields": fields}
	if s.Namespace() != "" {
		out["namespace"] = s.Namespace()
	}
	if s.Doc() != "" {
		out["doc"] = s.Doc()
	}
	return out, nil
}

// fieldType wraps nullable types in a union with null.
func (e *exporter) fieldType(ft recskema.FieldType, ns, hint string) (any, error) {
	t, err := e.baseType(ft, ns, hint)
	if err != nil {
		return nil, err
	}
	if ft.Nullable() {
		return []any{"null", t}, nil
	}
	return t, nil
}

func (e *exporter) baseType(ft recskema.FieldType, ns, hint string) (any, error) {
	switch t := ft.(type) {
	case *recskema.TextType, *recskema.DateType, *recskema.DateTimeType:
		return "string", nil
	case *recskema.BytesType:
		return "bytes", nil
	case *recskema.IntegerType:
		if t.Size() == 4 {
			return "int", nil
		}
		return "long", nil
	case *recskema.FloatType:
		if t.Size() == 4 {
			return "float", nil
		}
		return "double", nil
	case *recskema.BooleanType:
		return "boolean", nil
	case *recskema.EnumType:
		if n, ok := e.names[t]; ok {
			return n, nil
		}
		name := t.Name()
		if name == "" {
			name = hint
		}
		e.names[t] = fullName(ns, name)
		return map[string]any{"type": "enum", "name": name, "symbols": t.Values()}, nil
	case *recskema.ListType:
		items, err := e.fieldType(t.Elem(), ns, hint+"_item")
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	case *recskema.MapType:
		values, err := e.fieldType(t.Value(), ns, hint+"_value")
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "map", "values": values}, nil
	case *recskema.SubRecordType:
		return e.record(t.Target(), ns)
	}
	return nil, fmt.Errorf("unsupported field type %s", ft)
}

// fieldDefault returns the Avro JSON default of a field, if it has one.
func (e *exporter) fieldDefault(ft recskema.FieldType) (any, bool, error) {
	def, explicit := ft.Default()
	if !explicit {
		switch {
		case ft.Nullable():
			return nil, true, nil
		case ft.Kind() == recskema.KindList:
			return []any{}, true, nil
		case ft.Kind() == recskema.KindMap:
			return map[string]any{}, true, nil
		}
		return nil, false, nil
	}
	if def == nil {
		return nil, true, nil
	}
	if bt, ok := ft.(*recskema.BytesType); ok {
		// Avro writes byte defaults as code points 0-255.
		v, err := recskema.ReadableBytes(recskema.Nullable(bt.Nullable())).Dump(def)
		return v, err == nil, err
	}
	v, err := ft.Dump(def)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
