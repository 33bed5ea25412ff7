package avro

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/reoring/recskema"
)

// ParseError reports an Avro schema construct that has no record schema
// equivalent.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("avro: %s: %s", e.Path, e.Reason) }

var simpleTypes = map[string]func(...recskema.FieldOpt) recskema.FieldType{
	"string":  func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Text(o...) },
	"bytes":   func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Bytes(o...) },
	"boolean": func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Boolean(o...) },
	"long":    func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Integer(o...) },
	"double":  func(o ...recskema.FieldOpt) recskema.FieldType { return recskema.Float(o...) },
	"int": func(o ...recskema.FieldOpt) recskema.FieldType {
		return recskema.Integer(append([]recskema.FieldOpt{recskema.Size(4)}, o...)...)
	},
	"float": func(o ...recskema.FieldOpt) recskema.FieldType {
		return recskema.Float(append([]recskema.FieldOpt{recskema.Size(4)}, o...)...)
	},
}

// builder constructs a field type once its nullability and default are known.
type builder func(opts ...recskema.FieldOpt) (recskema.FieldType, error)

type parser struct {
	opts    []recskema.SchemaOpt
	records map[string]*recskema.Schema
	enums   map[string]*recskema.EnumType
	// active names the records whose fields are being parsed.
	active map[string]bool
}

// Parse builds record schemas from an Avro record schema and returns the top
// level one. goavro validates the text first. Nested records are declared with
// the same options; references to a record that is still being defined become
// SubRecord(Self) when they name the innermost record.
func Parse(avsc []byte, opts ...recskema.SchemaOpt) (*recskema.Schema, error) {
	if _, err := goavro.NewCodec(string(avsc)); err != nil {
		return nil, fmt.Errorf("avro: %w", err)
	}
	var root map[string]any
	if err := json.Unmarshal(avsc, &root); err != nil {
		return nil, fmt.Errorf("avro: %w", err)
	}
	p := &parser{
		opts:    opts,
		records: map[string]*recskema.Schema{},
		enums:   map[string]*recskema.EnumType{},
		active:  map[string]bool{},
	}
	return p.record(root, "")
}

func (p *parser) record(def map[string]any, enclosingNS string) (*recskema.Schema, error) {
	if def["type"] != "record" {
		return nil, &ParseError{Path: "/", Reason: fmt.Sprintf("top level type %v is not a record", def["type"])}
	}
	name, _ := def["name"].(string)
	ns, _ := def["namespace"].(string)
	if ns == "" {
		ns = enclosingNS
	}
	full := fullName(ns, name)
	p.active[full] = true
	defer delete(p.active, full)

	rawFields, _ := def["fields"].([]any)
	fields := make([]recskema.Field, 0, len(rawFields))
	for _, rf := range rawFields {
		fd, _ := rf.(map[string]any)
		fname, _ := fd["name"].(string)
		path := full + "." + fname
		build, nullable, err := p.typeBuilder(fd["type"], ns, full, path)
		if err != nil {
			return nil, err
		}
		fopts := []recskema.FieldOpt{recskema.Nullable(nullable)}
		if doc, ok := fd["doc"].(string); ok {
			fopts = append(fopts, recskema.Description(doc))
		}
		if raw, ok := fd["default"]; ok && raw != nil {
			probe, err := build(recskema.NotNull())
			if err != nil {
				return nil, err
			}
			v, err := loadDefault(probe, raw)
			if err != nil {
				return nil, &ParseError{Path: path, Reason: "bad default: " + err.Error()}
			}
			if !implicitDefault(probe, v) {
				fopts = append(fopts, recskema.Default(v))
			}
		}
		ft, err := build(fopts...)
		if err != nil {
			return nil, err
		}
		fields = append(fields, recskema.Field{Name: fname, Type: ft})
	}

	sopts := append([]recskema.SchemaOpt{}, p.opts...)
	if ns != "" {
		sopts = append(sopts, recskema.WithNamespace(ns))
	}
	if doc, ok := def["doc"].(string); ok {
		sopts = append(sopts, recskema.WithDoc(doc))
	}
	s, err := recskema.Declare(name, fields, sopts...)
	if err != nil {
		return nil, err
	}
	p.records[full] = s
	return s, nil
}

// typeBuilder returns a constructor for an Avro type and whether the type was
// a union with null.
func (p *parser) typeBuilder(def any, ns, innermost, path string) (builder, bool, error) {
	switch t := def.(type) {
	case []any:
		var members []any
		nullable := false
		for _, m := range t {
			if m == "null" {
				nullable = true
				continue
			}
			members = append(members, m)
		}
		if len(members) != 1 {
			return nil, false, &ParseError{Path: path, Reason: "unions with more than one non-null member are unsupported"}
		}
		b, _, err := p.typeBuilder(members[0], ns, innermost, path)
		return b, nullable, err
	case string:
		if mk, ok := simpleTypes[t]; ok {
			return func(o ...recskema.FieldOpt) (recskema.FieldType, error) { return mk(o...), nil }, false, nil
		}
		return p.namedBuilder(t, ns, innermost, path)
	case map[string]any:
		return p.complexBuilder(t, ns, innermost, path)
	}
	return nil, false, &ParseError{Path: path, Reason: fmt.Sprintf("cannot parse type %v", def)}
}

func (p *parser) namedBuilder(name, ns, innermost, path string) (builder, bool, error) {
	full := p.resolve(name, ns)
	if full == innermost {
		return func(o ...recskema.FieldOpt) (recskema.FieldType, error) {
			return recskema.SubRecord(recskema.Self, o...), nil
		}, false, nil
	}
	if p.active[full] {
		return nil, false, &ParseError{Path: path, Reason: "reference to enclosing record " + full + " is unsupported"}
	}
	if s, ok := p.records[full]; ok {
		return func(o ...recskema.FieldOpt) (recskema.FieldType, error) { return recskema.SubRecord(s, o...), nil }, false, nil
	}
	if e, ok := p.enums[full]; ok {
		return func(o ...recskema.FieldOpt) (recskema.FieldType, error) {
			return recskema.NamedEnum(e.Name(), e.Values(), o...), nil
		}, false, nil
	}
	return nil, false, &ParseError{Path: path, Reason: "unknown type " + name}
}

func (p *parser) complexBuilder(def map[string]any, ns, innermost, path string) (builder, bool, error) {
	switch def["type"] {
	case "array":
		items, nullable, err := p.typeBuilder(def["items"], ns, innermost, path+"[]")
		if err != nil {
			return nil, false, err
		}
		return func(o ...recskema.FieldOpt) (recskema.FieldType, error) {
			elem, err := items(recskema.Nullable(nullable))
			if err != nil {
				return nil, err
			}
			return recskema.List(elem, o...), nil
		}, false, nil
	case "map":
		values, nullable, err := p.typeBuilder(def["values"], ns, innermost, path+"{}")
		if err != nil {
			return nil, false, err
		}
		return func(o ...recskema.FieldOpt) (recskema.FieldType, error) {
			val, err := values(recskema.Nullable(nullable))
			if err != nil {
				return nil, err
			}
			return recskema.Map(val, o...), nil
		}, false, nil
	case "enum":
		name, _ := def["name"].(string)
		var symbols []string
		raw, _ := def["symbols"].([]any)
		for _, s := range raw {
			if str, ok := s.(string); ok {
				symbols = append(symbols, str)
			}
		}
		enumNS, _ := def["namespace"].(string)
		if enumNS == "" {
			enumNS = ns
		}
		e := recskema.NamedEnum(name, symbols)
		p.enums[fullName(enumNS, name)] = e
		return func(o ...recskema.FieldOpt) (recskema.FieldType, error) {
			return recskema.NamedEnum(name, symbols, o...), nil
		}, false, nil
	case "record":
		sub, err := p.record(def, ns)
		if err != nil {
			return nil, false, err
		}
		return func(o ...recskema.FieldOpt) (recskema.FieldType, error) { return recskema.SubRecord(sub, o...), nil }, false, nil
	}
	if inner, ok := def["type"].(string); ok {
		if _, simple := simpleTypes[inner]; simple {
			return p.typeBuilder(inner, ns, innermost, path)
		}
	}
	return nil, false, &ParseError{Path: path, Reason: fmt.Sprintf("unknown complex type %v", def["type"])}
}

func (p *parser) resolve(name, ns string) string {
	for _, c := range []string{name, fullName(ns, name)} {
		if p.active[c] || p.records[c] != nil || p.enums[c] != nil {
			return c
		}
	}
	return name
}

// loadDefault converts an Avro JSON default to a native value of ft.
func loadDefault(ft recskema.FieldType, raw any) (any, error) {
	if _, ok := ft.(*recskema.BytesType); ok {
		return recskema.ReadableBytes().Load(raw)
	}
	return ft.Load(raw)
}

// implicitDefault reports an empty list or map default, which List and Map
// fields already have without declaring one.
func implicitDefault(ft recskema.FieldType, v any) bool {
	switch x := v.(type) {
	case []any:
		return ft.Kind() == recskema.KindList && len(x) == 0
	case map[string]any:
		return ft.Kind() == recskema.KindMap && len(x) == 0
	}
	return false
}
