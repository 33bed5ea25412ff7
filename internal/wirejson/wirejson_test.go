package wirejson

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/recskema"
)

func TestDecode_KeepsNumbers(t *testing.T) {
	v, err := Decode([]byte(`{"a":1,"b":[1.5,"x",true,null],"c":{"d":12345678901234567890}}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("1"), m["a"])
	assert.Equal(t, []any{json.Number("1.5"), "x", true, nil}, m["b"])
	assert.Equal(t, json.Number("12345678901234567890"), m["c"].(map[string]any)["d"])
}

func TestDecode_DuplicateKey(t *testing.T) {
	_, err := Decode([]byte(`{"a":{"b":1,"b":2}}`))
	var pe *recskema.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, recskema.CodeDuplicateKey, pe.Code)
	assert.Equal(t, "/a/b", pe.Path)

	v, err := Decode([]byte(`{"b":1,"b":2}`), Options{AllowDuplicateKeys: true})
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), v.(map[string]any)["b"])
}

func TestDecode_MaxDepth(t *testing.T) {
	_, err := Decode([]byte(`{"a":{"b":{"c":1}}}`), Options{MaxDepth: 2})
	var pe *recskema.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, recskema.CodeParseError, pe.Code)
	assert.Contains(t, pe.Message, "max depth")

	_, err = Decode([]byte(`{"a":{"b":1}}`), Options{MaxDepth: 2})
	assert.NoError(t, err)
}

func TestDecode_MaxBytes(t *testing.T) {
	_, err := Decode([]byte(`{"a":"`+strings.Repeat("x", 64)+`"}`), Options{MaxBytes: 16})
	var pe *recskema.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, recskema.CodeParseError, pe.Code)
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{``, `{"a":`, `{"a":1} {"b":2}`, `[1,2`} {
		_, err := Decode([]byte(in))
		var pe *recskema.ParseError
		assert.True(t, errors.As(err, &pe), "input %q: got %v", in, err)
	}
}

func TestDecoder_Stream(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"a":1}
{"a":2}
`))
	var got []any
	for {
		v, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, v.(map[string]any)["a"])
	}
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, got)
}

func newStore(t *testing.T) (*recskema.Store, *recskema.Schema) {
	t.Helper()
	st := recskema.NewStore()
	point, err := recskema.Declare("Point", []recskema.Field{
		{Name: "y", Type: recskema.Integer(recskema.NotNull())},
		{Name: "x", Type: recskema.Integer(recskema.NotNull())},
	}, recskema.WithStore(st))
	require.NoError(t, err)
	shape, err := recskema.Declare("Shape", []recskema.Field{
		{Name: "name", Type: recskema.Text()},
		{Name: "points", Type: recskema.List(recskema.SubRecord(point))},
		{Name: "tags", Type: recskema.Map(recskema.Boolean())},
		{Name: "ratio", Type: recskema.Float()},
	}, recskema.WithStore(st), recskema.WithNamespace("geo"))
	require.NoError(t, err)
	return st, shape
}

func TestMarshal_SchemaOrder(t *testing.T) {
	st, shape := newStore(t)
	point, err := st.Get("Point")
	require.NoError(t, err)
	r := shape.MustNew(recskema.Values{
		"name": "tri",
		"points": []any{
			point.MustNew(recskema.Values{"x": 1, "y": 2}),
		},
		"tags": map[string]any{"z": true, "a": false},
	})
	out, err := Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"tri","points":[{"y":2,"x":1}],"tags":{"a":false,"z":true},"$schema":"geo.Shape"}`, string(out))

	out, err = Marshal(r, recskema.DumpOpt{OmitSchema: true})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "$schema")

	out, err = Marshal(point.MustNew(recskema.Values{"x": 1, "y": 2}), recskema.DumpOpt{SchemaKey: "type"})
	require.NoError(t, err)
	assert.Equal(t, `{"y":2,"x":1,"type":"Point"}`, string(out))
}

func TestMarshal_RoundTrip(t *testing.T) {
	st, shape := newStore(t)
	point, err := st.Get("Point")
	require.NoError(t, err)
	r := shape.MustNew(recskema.Values{
		"name":   "sq",
		"points": []any{point.MustNew(recskema.Values{"x": -1, "y": 7})},
		"tags":   map[string]any{"closed": true},
		"ratio":  0.25,
	})
	out, err := Marshal(r)
	require.NoError(t, err)
	back, err := Unmarshal(out, recskema.LoadOpt{Store: st})
	require.NoError(t, err)
	assert.True(t, back.Equal(r), "got %v want %v", back, r)
}
