package schemafile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/recskema"
)

const pixels = `
enum: Color
values: [red, green, blue]
---
record: Point
fields:
  - name: x
    type: integer
    nullable: false
    size: 4
  - name: y
    type: integer
    nullable: false
    default: 0
---
record: Pixel
namespace: gfx
doc: One dot
extends: Point
fields:
  - name: color
    type: enum
    enum: Color
    default: red
  - name: alpha
    type: float
    description: opacity
  - name: tags
    type: list
    items: {type: text}
  - name: meta
    type: map
    value: {type: integer}
    default: {a: 1}
  - name: next
    type: record
    ref: self
  - name: seen
    type: date
    default: "2021-03-04"
`

func TestLoad_Declarations(t *testing.T) {
	st := recskema.NewStore()
	schemas, err := NewLoader(st).Load(strings.NewReader(pixels))
	require.NoError(t, err)
	require.Len(t, schemas, 2)

	point, pixel := schemas[0], schemas[1]
	assert.Equal(t, "Point", point.FullName())
	assert.Equal(t, "gfx.Pixel", pixel.FullName())
	assert.Equal(t, "One dot", pixel.Doc())
	assert.Same(t, point, pixel.Base())
	assert.Equal(t, []string{"x", "y", "color", "alpha", "tags", "meta", "next", "seen"}, pixel.FieldNames())

	x, _ := pixel.Field("x")
	assert.False(t, x.Nullable())
	assert.Equal(t, 4, x.Size())

	color, _ := pixel.Field("color")
	enum, ok := color.(*recskema.EnumType)
	require.True(t, ok)
	assert.Equal(t, "Color", enum.Name())
	assert.Equal(t, []string{"red", "green", "blue"}, enum.Values())
	def, ok := color.Default()
	assert.True(t, ok)
	assert.Equal(t, "red", def)

	alpha, _ := pixel.Field("alpha")
	assert.Equal(t, "opacity", alpha.Description())

	next, _ := pixel.Field("next")
	assert.Same(t, pixel, next.(*recskema.SubRecordType).Target())

	r := pixel.MustNew(recskema.Values{"x": 1})
	assert.Equal(t, map[string]any{"a": int64(1)}, r.MustGet("meta"))
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), r.MustGet("seen"))

	got, err := st.Get("Pixel")
	require.NoError(t, err)
	assert.Same(t, pixel, got)
	_, ok = st.Enum("Color")
	assert.True(t, ok)
}

func TestLoad_DuplicateKey(t *testing.T) {
	_, err := NewLoader(recskema.NewStore()).Load(strings.NewReader("record: A\nrecord: B\n"))
	var dk *DuplicateKeyError
	require.True(t, errors.As(err, &dk), "got %v", err)
	assert.Equal(t, "record", dk.Key)
	assert.Equal(t, 2, dk.Line)
	assert.Equal(t, 1, dk.FirstLine)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := NewLoader(recskema.NewStore()).Load(strings.NewReader("record: A\ncolour: red\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown type":  "record: A\nfields:\n  - name: f\n    type: decimal\n",
		"missing ref":   "record: A\nfields:\n  - name: f\n    type: record\n    ref: Nope\n",
		"unknown enum":  "record: A\nfields:\n  - name: f\n    type: enum\n    enum: Nope\n",
		"bad default":   "record: A\nfields:\n  - name: f\n    type: integer\n    default: abc\n",
		"bad size":      "record: A\nfields:\n  - name: f\n    type: float\n    size: 2\n",
		"list no items": "record: A\nfields:\n  - name: f\n    type: list\n",
		"both kinds":    "record: A\nenum: B\nvalues: [x]\n",
		"neither":       "doc: nothing\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(recskema.NewStore()).Load(strings.NewReader(src))
			var fe *Error
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, 0, fe.Doc)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pixels), 0o600))
	st := recskema.NewStore()
	schemas, err := NewLoader(st).LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, schemas, 2)
	var names []string
	for _, s := range st.Schemas() {
		names = append(names, s.FullName())
	}
	assert.Equal(t, []string{"Point", "gfx.Pixel"}, names)
}
