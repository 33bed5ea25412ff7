// Package gen renders Go source that declares record schemas with the
// recskema API, one package-level variable per schema, in reference order.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/reoring/recskema"
	"github.com/reoring/recskema/graph"
)

// Header is the first line of every generated file.
const Header = "// Code generated by recskema; DO NOT EDIT."

// File describes one generated file.
type File struct {
	Package string
	Schemas []*recskema.Schema
}

type declView struct {
	Var     string
	Name    string
	Options []string
	Fields  []fieldView
}

type fieldView struct {
	Name string
	Expr string
}

type fileView struct {
	Header  string
	Package string
	Imports []string
	Decls   []declView
}

var fileTmpl = template.Must(template.New("file").Parse(`{{.Header}}

package {{.Package}}

import (
{{- range .Imports}}
	{{printf "%q" .}}
{{- end}}
)
{{range .Decls}}
var {{.Var}} = recskema.MustDeclare({{printf "%q" .Name}}, []recskema.Field{
{{- range .Fields}}
	{Name: {{printf "%q" .Name}}, Type: {{.Expr}}},
{{- end}}
}{{range .Options}}, {{.}}{{end}})
{{end}}`))

// Render returns gofmt-formatted source declaring f.Schemas and every schema
// they reference. Inherited fields are written out in full. A schema that
// refers to one declared after it (mutual recursion) fails with
// *graph.SourceGenerationError.
func Render(f File) ([]byte, error) {
	pkg := f.Package
	if pkg == "" {
		pkg = "schemas"
	}
	ordered, err := graph.NewTraverser().ReferenceOrder(f.Schemas)
	if err != nil {
		return nil, err
	}
	r := &renderer{vars: map[*recskema.Schema]string{}, imports: map[string]struct{}{"github.com/reoring/recskema": {}}}
	used := map[string]int{}
	for _, s := range ordered {
		v := VarName(s)
		if n := used[v]; n > 0 {
			used[v] = n + 1
			v += strconv.Itoa(n + 1)
		} else {
			used[v] = 1
		}
		r.vars[s] = v
	}

	view := fileView{Header: Header, Package: pkg}
	declared := map[*recskema.Schema]bool{}
	for _, s := range ordered {
		r.current = s
		r.declared = declared
		d := declView{Var: r.vars[s], Name: s.Name()}
		if ns := s.Namespace(); ns != "" {
			d.Options = append(d.Options, "recskema.WithNamespace("+strconv.Quote(ns)+")")
		}
		if doc := s.Doc(); doc != "" {
			d.Options = append(d.Options, "recskema.WithDoc("+strconv.Quote(doc)+")")
		}
		for _, fd := range s.Fields() {
			expr, err := r.fieldExpr(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("gen: %s.%s: %w", s.FullName(), fd.Name, err)
			}
			d.Fields = append(d.Fields, fieldView{Name: fd.Name, Expr: expr})
		}
		view.Decls = append(view.Decls, d)
		declared[s] = true
	}
	for imp := range r.imports {
		view.Imports = append(view.Imports, imp)
	}
	sort.Strings(view.Imports)

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gen: format: %w", err)
	}
	return out, nil
}

// VarName derives the Go identifier used for a schema: the dotted full name
// in camel case followed by "Schema".
func VarName(s *recskema.Schema) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(s.FullName(), func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' '
	}) {
		rs := []rune(part)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	if b.Len() == 0 || !unicode.IsLetter([]rune(b.String())[0]) {
		return "X" + b.String() + "Schema"
	}
	return b.String() + "Schema"
}

type renderer struct {
	vars     map[*recskema.Schema]string
	declared map[*recskema.Schema]bool
	current  *recskema.Schema
	imports  map[string]struct{}
}

func (r *renderer) fieldExpr(ft recskema.FieldType) (string, error) {
	var call string
	var args []string
	switch t := ft.(type) {
	case *recskema.TextType:
		call = "Text"
	case *recskema.BytesType:
		call = "Bytes"
		if t.Readable() {
			call = "ReadableBytes"
		}
	case *recskema.IntegerType:
		call = "Integer"
	case *recskema.FloatType:
		call = "Float"
	case *recskema.BooleanType:
		call = "Boolean"
	case *recskema.DateType:
		call = "Date"
	case *recskema.DateTimeType:
		call = "DateTime"
	case *recskema.EnumType:
		vals := make([]string, 0, len(t.Values()))
		for _, v := range t.Values() {
			vals = append(vals, strconv.Quote(v))
		}
		list := "[]string{" + strings.Join(vals, ", ") + "}"
		if t.Name() != "" {
			call, args = "NamedEnum", []string{strconv.Quote(t.Name()), list}
		} else {
			call, args = "Enum", []string{list}
		}
	case *recskema.ListType:
		elem, err := r.fieldExpr(t.Elem())
		if err != nil {
			return "", err
		}
		call, args = "List", []string{elem}
	case *recskema.MapType:
		val, err := r.fieldExpr(t.Value())
		if err != nil {
			return "", err
		}
		call, args = "Map", []string{val}
	case *recskema.SubRecordType:
		target := t.Target()
		switch {
		case target == r.current:
			args = []string{"recskema.Self"}
		case r.declared[target]:
			args = []string{r.vars[target]}
		default:
			return "", &graph.SourceGenerationError{Remaining: []string{r.current.FullName(), target.FullName()}}
		}
		call = "SubRecord"
	default:
		return "", fmt.Errorf("unsupported field type %T", ft)
	}
	opts, err := r.options(ft)
	if err != nil {
		return "", err
	}
	return "recskema." + call + "(" + strings.Join(append(args, opts...), ", ") + ")", nil
}

func (r *renderer) options(ft recskema.FieldType) ([]string, error) {
	var opts []string
	container := ft.Kind() == recskema.KindList || ft.Kind() == recskema.KindMap
	switch {
	case container && ft.Nullable():
		opts = append(opts, "recskema.Nullable(true)")
	case !container && !ft.Nullable():
		opts = append(opts, "recskema.NotNull()")
	}
	if def, ok := ft.Default(); ok {
		lit, err := r.literal(def)
		if err != nil {
			return nil, err
		}
		opts = append(opts, "recskema.Default("+lit+")")
	}
	if d := ft.Description(); d != "" {
		opts = append(opts, "recskema.Description("+strconv.Quote(d)+")")
	}
	switch ft.Kind() {
	case recskema.KindInteger, recskema.KindFloat:
		if ft.Size() != 8 {
			opts = append(opts, "recskema.Size("+strconv.Itoa(ft.Size())+")")
		}
	}
	return opts, nil
}

// literal renders a native value as a Go expression of the same dynamic
// type.
func (r *renderer) literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "nil", nil
	case string:
		return strconv.Quote(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return "int64(" + strconv.FormatInt(x, 10) + ")", nil
	case float64:
		return "float64(" + strconv.FormatFloat(x, 'g', -1, 64) + ")", nil
	case *big.Int:
		r.imports["math/big"] = struct{}{}
		return "func() *big.Int { n, _ := new(big.Int).SetString(" + strconv.Quote(x.String()) + ", 10); return n }()", nil
	case []byte:
		return "[]byte(" + strconv.Quote(string(x)) + ")", nil
	case time.Time:
		r.imports["time"] = struct{}{}
		x = x.UTC()
		return fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, %d, time.UTC)",
			x.Year(), int(x.Month()), x.Day(), x.Hour(), x.Minute(), x.Second(), x.Nanosecond()), nil
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			s, err := r.literal(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[]any{" + strings.Join(parts, ", ") + "}", nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			s, err := r.literal(x[k])
			if err != nil {
				return "", err
			}
			parts[i] = strconv.Quote(k) + ": " + s
		}
		return "map[string]any{" + strings.Join(parts, ", ") + "}", nil
	}
	return "", fmt.Errorf("default of type %T cannot be rendered", v)
}
