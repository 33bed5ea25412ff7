package jsonschema

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/reoring/recskema"
)

const dateTimePattern = `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d{6})?$`

type exportState struct {
	root        *recskema.Schema
	definitions map[string]*Schema
}

// FromSchema exports s as a root JSON Schema. Every other record schema it
// references is placed under definitions and referenced by "$ref"; references
// back to s itself use "#". Nullable fields are optional, all others required.
func FromSchema(s *recskema.Schema) (*Schema, error) {
	st := &exportState{root: s, definitions: map[string]*Schema{}}
	out, err := st.record(s)
	if err != nil {
		return nil, err
	}
	out.SchemaURI = Draft
	if len(st.definitions) > 0 {
		out.Definitions = st.definitions
	}
	return out, nil
}

// Marshal renders a schema as indented JSON.
func Marshal(s *Schema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func (st *exportState) record(s *recskema.Schema) (*Schema, error) {
	out := &Schema{
		Type:                 "object",
		ID:                   s.FullName(),
		Description:          s.Doc(),
		Properties:           map[string]*Schema{},
		AdditionalProperties: false,
	}
	for _, f := range s.Fields() {
		p, err := st.field(f.Type)
		if err != nil {
			return nil, fmt.Errorf("jsonschema: %s.%s: %w", s.FullName(), f.Name, err)
		}
		out.Properties[f.Name] = p
		if !f.Type.Nullable() {
			out.Required = append(out.Required, f.Name)
		}
	}
	sort.Strings(out.Required)
	return out, nil
}

func (st *exportState) field(ft recskema.FieldType) (*Schema, error) {
	var out *Schema
	switch t := ft.(type) {
	case *recskema.TextType:
		out = &Schema{Type: "string"}
	case *recskema.BytesType:
		out = &Schema{Type: "string"}
		if !t.Readable() {
			out.ContentEncoding = "base64"
		}
	case *recskema.IntegerType:
		out = &Schema{Type: "integer"}
	case *recskema.FloatType:
		out = &Schema{Type: "number"}
	case *recskema.BooleanType:
		out = &Schema{Type: "boolean"}
	case *recskema.EnumType:
		vals := t.Values()
		sort.Strings(vals)
		out = &Schema{Type: "string", Enum: vals}
	case *recskema.DateType:
		out = &Schema{Type: "string", Format: "date"}
	case *recskema.DateTimeType:
		out = &Schema{Type: "string", Pattern: dateTimePattern}
	case *recskema.ListType:
		items, err := st.field(t.Elem())
		if err != nil {
			return nil, err
		}
		out = &Schema{Type: "array", Items: items}
	case *recskema.MapType:
		values, err := st.field(t.Value())
		if err != nil {
			return nil, err
		}
		out = &Schema{
			Type:                 "object",
			AdditionalProperties: true,
			PatternProperties:    map[string]*Schema{"^.*$": values},
		}
	case *recskema.SubRecordType:
		target := t.Target()
		if target == st.root {
			out = &Schema{Ref: "#"}
			break
		}
		name := target.FullName()
		if _, done := st.definitions[name]; !done {
			// Reserve the slot first so cycles through target terminate.
			st.definitions[name] = &Schema{}
			def, err := st.record(target)
			if err != nil {
				return nil, err
			}
			st.definitions[name] = def
		}
		out = &Schema{Ref: "#/definitions/" + name}
	default:
		return nil, fmt.Errorf("unsupported field type %s", ft)
	}
	if def, ok := ft.Default(); ok {
		w, err := ft.Dump(def)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		if out.Ref == "" {
			out.Default = w
		}
	}
	out.Description = ft.Description()
	return out, nil
}
