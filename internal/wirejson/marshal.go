package wirejson

import (
	"bytes"
	"fmt"
	"sort"

	j "github.com/goccy/go-json"

	"github.com/reoring/recskema"
)

// Marshal serializes a record to JSON text. Fields are written in schema
// order, map entries in key order, and the schema tag comes last.
func Marshal(r *recskema.Record, opts ...recskema.DumpOpt) ([]byte, error) {
	var opt recskema.DumpOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	tree, err := recskema.ToWire(r, opt)
	if err != nil {
		return nil, err
	}
	key := opt.SchemaKey
	if key == "" {
		key = recskema.DefaultSchemaKey
	}
	if opt.OmitSchema {
		key = ""
	}
	return MarshalTree(r.Schema(), tree, key)
}

// MarshalTree writes a wire tree produced for s. schemaKey names the tag
// entry to append after the fields; empty means untagged.
func MarshalTree(s *recskema.Schema, tree map[string]any, schemaKey string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeRecord(&buf, s, tree, schemaKey); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes JSON text and loads it as a record.
func Unmarshal(data []byte, opt recskema.LoadOpt, dopts ...Options) (*recskema.Record, error) {
	tree, err := Decode(data, dopts...)
	if err != nil {
		return nil, err
	}
	return recskema.FromWire(tree, opt)
}

func writeRecord(buf *bytes.Buffer, s *recskema.Schema, m map[string]any, schemaKey string) error {
	buf.WriteByte('{')
	n := 0
	sep := func() {
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
	}
	for _, f := range s.Fields() {
		v, ok := m[f.Name]
		if !ok {
			continue
		}
		sep()
		writeString(buf, f.Name)
		buf.WriteByte(':')
		if err := writeValue(buf, f.Type, v); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	if schemaKey != "" {
		if tag, ok := m[schemaKey]; ok {
			sep()
			writeString(buf, schemaKey)
			buf.WriteByte(':')
			if err := writeScalar(buf, tag); err != nil {
				return err
			}
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, ft recskema.FieldType, v any) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch t := ft.(type) {
	case *recskema.SubRecordType:
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
		return writeRecord(buf, t.Target(), m, "")
	case *recskema.ListType:
		xs, ok := recskema.AsList(v)
		if !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
		buf.WriteByte('[')
		for i, x := range xs {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, t.Elem(), x); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case *recskema.MapType:
		m, ok := recskema.AsMap(v)
		if !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := writeValue(buf, t.Value(), m[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}
	return writeScalar(buf, v)
}

func writeScalar(buf *bytes.Buffer, v any) error {
	b, err := j.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := j.Marshal(s)
	buf.Write(b)
}
