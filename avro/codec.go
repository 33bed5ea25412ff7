package avro

import (
	"fmt"
	"math"
	"math/big"

	json "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/reoring/recskema"
)

// Codec encodes records of one schema with goavro.
type Codec struct {
	schema *recskema.Schema
	names  map[any]string
	codec  *goavro.Codec
}

// NewCodec exports s and compiles the result with goavro, which also
// validates names, symbols and defaults.
func NewCodec(s *recskema.Schema) (*Codec, error) {
	e := newExporter()
	avsc, err := e.record(s, "")
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(avsc)
	if err != nil {
		return nil, err
	}
	c, err := goavro.NewCodec(string(b))
	if err != nil {
		return nil, fmt.Errorf("avro: %s: %w", s.FullName(), err)
	}
	return &Codec{schema: s, names: e.names, codec: c}, nil
}

// Schema returns the canonical Avro schema text.
func (c *Codec) Schema() string { return c.codec.CanonicalSchema() }

// Binary encodes r in Avro binary form.
func (c *Codec) Binary(r *recskema.Record) ([]byte, error) {
	n, err := c.Native(r)
	if err != nil {
		return nil, err
	}
	return c.codec.BinaryFromNative(nil, n)
}

// Textual encodes r in Avro JSON form.
func (c *Codec) Textual(r *recskema.Record) ([]byte, error) {
	n, err := c.Native(r)
	if err != nil {
		return nil, err
	}
	return c.codec.TextualFromNative(nil, n)
}

// Decode reads one record from Avro binary form.
func (c *Codec) Decode(buf []byte) (*recskema.Record, error) {
	n, _, err := c.codec.NativeFromBinary(buf)
	if err != nil {
		return nil, err
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("avro: decoded %T, want record", n)
	}
	return c.fromRecord(c.schema, m)
}

// Native converts r into goavro's native form. Values are validated with the
// field types first.
func (c *Codec) Native(r *recskema.Record) (map[string]any, error) {
	if r.Schema() != c.schema {
		return nil, fmt.Errorf("avro: record %s does not match codec schema %s", r.Schema().FullName(), c.schema.FullName())
	}
	return c.nativeRecord(r)
}

func (c *Codec) nativeRecord(r *recskema.Record) (map[string]any, error) {
	s := r.Schema()
	out := make(map[string]any, s.NumFields())
	for _, f := range s.Fields() {
		v, err := r.Get(f.Name)
		if err != nil {
			return nil, err
		}
		n, err := c.nativeField(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("avro: %s.%s: %w", s.FullName(), f.Name, err)
		}
		out[f.Name] = n
	}
	return out, nil
}

func (c *Codec) nativeField(ft recskema.FieldType, v any) (any, error) {
	if _, err := ft.Dump(v); err != nil {
		return nil, err
	}
	if v == nil || (ft.Nullable() && isNilRecord(v)) {
		return nil, nil
	}
	n, err := c.nativeValue(ft, v)
	if err != nil {
		return nil, err
	}
	if ft.Nullable() {
		return goavro.Union(c.branchName(ft), n), nil
	}
	return n, nil
}

func isNilRecord(v any) bool {
	r, ok := v.(*recskema.Record)
	return ok && r == nil
}

func (c *Codec) nativeValue(ft recskema.FieldType, v any) (any, error) {
	w, err := ft.Dump(v)
	if err != nil {
		return nil, err
	}
	switch t := ft.(type) {
	case *recskema.BytesType:
		return bytesOf(v), nil
	case *recskema.IntegerType:
		n, ok := w.(int64)
		if !ok {
			return nil, fmt.Errorf("integer %v out of range for %s", w.(*big.Int), c.branchName(ft))
		}
		if t.Size() == 4 {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("integer %d out of range for int", n)
			}
			return int32(n), nil
		}
		return n, nil
	case *recskema.FloatType:
		if t.Size() == 4 {
			return float32(w.(float64)), nil
		}
		return w, nil
	case *recskema.ListType:
		items, _ := recskema.AsList(v)
		out := make([]any, len(items))
		for i, it := range items {
			n, err := c.nativeField(t.Elem(), it)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case *recskema.MapType:
		entries, _ := recskema.AsMap(v)
		out := make(map[string]any, len(entries))
		for k, it := range entries {
			n, err := c.nativeField(t.Value(), it)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case *recskema.SubRecordType:
		return c.nativeRecord(v.(*recskema.Record))
	}
	// Text, Boolean, Enum, Date and DateTime use their wire value.
	return w, nil
}

func bytesOf(v any) []byte {
	if b, ok := v.([]byte); ok {
		return b
	}
	items, _ := recskema.AsList(v)
	out := make([]byte, len(items))
	for i, it := range items {
		out[i] = it.(byte)
	}
	return out
}

// branchName is the union member name goavro expects for ft.
func (c *Codec) branchName(ft recskema.FieldType) string {
	switch t := ft.(type) {
	case *recskema.TextType, *recskema.DateType, *recskema.DateTimeType:
		return "string"
	case *recskema.BytesType:
		return "bytes"
	case *recskema.IntegerType:
		if t.Size() == 4 {
			return "int"
		}
		return "long"
	case *recskema.FloatType:
		if t.Size() == 4 {
			return "float"
		}
		return "double"
	case *recskema.BooleanType:
		return "boolean"
	case *recskema.EnumType:
		return c.names[t]
	case *recskema.ListType:
		return "array"
	case *recskema.MapType:
		return "map"
	case *recskema.SubRecordType:
		return c.names[t.Target()]
	}
	return ""
}

// fromRecord turns goavro native data back into a record.
func (c *Codec) fromRecord(s *recskema.Schema, m map[string]any) (*recskema.Record, error) {
	vals := make(recskema.Values, len(m))
	for _, f := range s.Fields() {
		raw, ok := m[f.Name]
		if !ok {
			continue
		}
		v, err := c.fromField(f.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("avro: %s.%s: %w", s.FullName(), f.Name, err)
		}
		vals[f.Name] = v
	}
	return s.New(vals)
}

func (c *Codec) fromField(ft recskema.FieldType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if ft.Nullable() {
		u, ok := raw.(map[string]any)
		if !ok || len(u) != 1 {
			return nil, fmt.Errorf("expected union value, got %T", raw)
		}
		for _, inner := range u {
			raw = inner
		}
	}
	switch t := ft.(type) {
	case *recskema.IntegerType:
		switch n := raw.(type) {
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, fmt.Errorf("unexpected integer %T", raw)
	case *recskema.FloatType:
		switch n := raw.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		}
		return nil, fmt.Errorf("unexpected float %T", raw)
	case *recskema.DateType, *recskema.DateTimeType:
		return ft.Load(raw)
	case *recskema.ListType:
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected array %T", raw)
		}
		out := make([]any, len(items))
		for i, it := range items {
			v, err := c.fromField(t.Elem(), it)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *recskema.MapType:
		entries, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected map %T", raw)
		}
		out := make(map[string]any, len(entries))
		for k, it := range entries {
			v, err := c.fromField(t.Value(), it)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *recskema.SubRecordType:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected record %T", raw)
		}
		return c.fromRecord(t.Target(), m)
	}
	// Text, Bytes, Boolean and Enum come back as their native Go value.
	return raw, nil
}
