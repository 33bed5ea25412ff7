package recskema

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// TextType stores Unicode text. Native value: string.
type TextType struct{ fieldBase }

// Text declares a text field. Fields are nullable unless NotNull is given.
func Text(opts ...FieldOpt) *TextType { return &TextType{fieldBase: newBase(true, 0, opts)} }

func (t *TextType) Kind() Kind                   { return KindText }
func (t *TextType) DefaultValue() any            { return t.defaultValue() }
func (t *TextType) String() string               { return t.describe("Text") }
func (t *TextType) IsSimilarTo(o FieldType) bool { return t.similarBase(KindText, o) }
func (t *TextType) bindParent(*Schema) FieldType { return t }

func (t *TextType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	s, ok := asText(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "text")
	}
	if !utf8.ValidString(s) {
		return nil, invalid(CodeInvalidValue, v, "utf-8 text")
	}
	return s, nil
}

func (t *TextType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "string")
	}
	return s, nil
}

func asText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// BytesType stores binary data. Native value: []byte. Text is never accepted
// in place of bytes.
type BytesType struct {
	fieldBase
	readable bool
}

// Bytes declares a binary field serialized as standard base64.
func Bytes(opts ...FieldOpt) *BytesType { return &BytesType{fieldBase: newBase(true, 0, opts)} }

// ReadableBytes declares a binary field serialized as a string whose code
// points 0-255 are the byte values, so ASCII payloads stay legible on the wire.
func ReadableBytes(opts ...FieldOpt) *BytesType {
	return &BytesType{fieldBase: newBase(true, 0, opts), readable: true}
}

func (t *BytesType) Kind() Kind                   { return KindBytes }
func (t *BytesType) Readable() bool               { return t.readable }
func (t *BytesType) DefaultValue() any            { return t.defaultValue() }
func (t *BytesType) bindParent(*Schema) FieldType { return t }

func (t *BytesType) String() string {
	if t.readable {
		return t.describe("Bytes", "readable")
	}
	return t.describe("Bytes")
}

func (t *BytesType) IsSimilarTo(o FieldType) bool {
	ob, ok := o.(*BytesType)
	return ok && t.similarBase(KindBytes, o) && ob.readable == t.readable
}

func (t *BytesType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	b, ok := asBytes(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "bytes")
	}
	if !t.readable {
		return base64.StdEncoding.EncodeToString(b), nil
	}
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs), nil
}

func (t *BytesType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "string")
	}
	if !t.readable {
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			pe := malformed(CodeInvalidFormat, v, "base64")
			pe.Cause = err
			return nil, pe
		}
		return b, nil
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, malformed(CodeInvalidValue, v, "code points 0-255")
		}
		out = append(out, byte(r))
	}
	return out, nil
}

func asBytes(v any) ([]byte, bool) {
	if b, ok := v.([]byte); ok {
		return b, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv.Bytes(), true
	}
	return nil, false
}

// IntegerType stores arbitrary precision integers. Native value: int64, or
// *big.Int when the value does not fit. Booleans and floats are rejected.
type IntegerType struct{ fieldBase }

// Integer declares an integer field. The default size hint is 8.
func Integer(opts ...FieldOpt) *IntegerType {
	return &IntegerType{fieldBase: newBase(true, 8, opts)}
}

func (t *IntegerType) Kind() Kind                   { return KindInteger }
func (t *IntegerType) DefaultValue() any            { return t.defaultValue() }
func (t *IntegerType) String() string               { return t.describe("Integer", "size="+strconv.Itoa(t.size)) }
func (t *IntegerType) IsSimilarTo(o FieldType) bool { return t.similarBase(KindInteger, o) }
func (t *IntegerType) bindParent(*Schema) FieldType { return t }

func (t *IntegerType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	n, ok := nativeInt(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "integer")
	}
	return n, nil
}

// Load also accepts json.Number integer literals and integral float64 values
// as produced by decoders that do not preserve number text.
func (t *IntegerType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	switch x := v.(type) {
	case json.Number:
		n, ok := new(big.Int).SetString(x.String(), 10)
		if !ok {
			return nil, malformed(CodeInvalidType, v, "integer")
		}
		return normalizeBig(n), nil
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return nil, malformed(CodeInvalidType, v, "integer")
		}
		return int64(x), nil
	}
	n, ok := nativeInt(v)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "integer")
	}
	return n, nil
}

func nativeInt(v any) (any, bool) {
	if b, ok := v.(*big.Int); ok {
		return normalizeBig(new(big.Int).Set(b)), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u), true
		}
		return new(big.Int).SetUint64(u), true
	}
	return nil, false
}

func normalizeBig(n *big.Int) any {
	if n.IsInt64() {
		return n.Int64()
	}
	return n
}

// FloatType stores IEEE double precision numbers. Native value: float64.
type FloatType struct{ fieldBase }

// Float declares a floating point field. The default size hint is 8.
func Float(opts ...FieldOpt) *FloatType { return &FloatType{fieldBase: newBase(true, 8, opts)} }

func (t *FloatType) Kind() Kind                   { return KindFloat }
func (t *FloatType) DefaultValue() any            { return t.defaultValue() }
func (t *FloatType) String() string               { return t.describe("Float", "size="+strconv.Itoa(t.size)) }
func (t *FloatType) IsSimilarTo(o FieldType) bool { return t.similarBase(KindFloat, o) }
func (t *FloatType) bindParent(*Schema) FieldType { return t }

func (t *FloatType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	f, ok := nativeFloat(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid(CodeInvalidValue, v, "finite number")
	}
	return f, nil
}

func (t *FloatType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			pe := malformed(CodeInvalidType, v, "number")
			pe.Cause = err
			return nil, pe
		}
		return f, nil
	}
	f, ok := nativeFloat(v)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "number")
	}
	return f, nil
}

func nativeFloat(v any) (float64, bool) {
	if b, ok := v.(*big.Int); ok {
		f, _ := new(big.Float).SetInt(b).Float64()
		return f, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// BooleanType stores booleans. Integers 0 and 1 are accepted as false and true.
type BooleanType struct{ fieldBase }

// Boolean declares a boolean field.
func Boolean(opts ...FieldOpt) *BooleanType { return &BooleanType{fieldBase: newBase(true, 0, opts)} }

func (t *BooleanType) Kind() Kind                   { return KindBoolean }
func (t *BooleanType) DefaultValue() any            { return t.defaultValue() }
func (t *BooleanType) String() string               { return t.describe("Boolean") }
func (t *BooleanType) IsSimilarTo(o FieldType) bool { return t.similarBase(KindBoolean, o) }
func (t *BooleanType) bindParent(*Schema) FieldType { return t }

func (t *BooleanType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	b, ok := asBool(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "boolean")
	}
	return b, nil
}

func (t *BooleanType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	switch x := v.(type) {
	case json.Number:
		switch x.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
	case float64:
		switch x {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	b, ok := asBool(v)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "boolean")
	}
	return b, nil
}

func asBool(v any) (bool, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch rv.Int() {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch rv.Uint() {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	}
	return false, false
}

// EnumType stores one member of a closed set of strings.
type EnumType struct {
	fieldBase
	name   string
	values []string
	set    map[string]struct{}
}

// Enum declares an anonymous enumeration. Duplicate values are dropped; the
// first-seen order is kept.
func Enum(values []string, opts ...FieldOpt) *EnumType { return NamedEnum("", values, opts...) }

// NamedEnum declares an enumeration that exporters emit as a named type and
// that a Store can resolve by name.
func NamedEnum(name string, values []string, opts ...FieldOpt) *EnumType {
	e := &EnumType{fieldBase: newBase(true, 0, opts), name: name, set: make(map[string]struct{}, len(values))}
	for _, v := range values {
		if _, dup := e.set[v]; dup {
			continue
		}
		e.set[v] = struct{}{}
		e.values = append(e.values, v)
	}
	return e
}

func (t *EnumType) Kind() Kind                   { return KindEnum }
func (t *EnumType) Name() string                 { return t.name }
func (t *EnumType) DefaultValue() any            { return t.defaultValue() }
func (t *EnumType) bindParent(*Schema) FieldType { return t }

// Values returns the members in declaration order.
func (t *EnumType) Values() []string { return append([]string(nil), t.values...) }

// Contains reports membership.
func (t *EnumType) Contains(s string) bool {
	_, ok := t.set[s]
	return ok
}

func (t *EnumType) String() string {
	params := []string{strings.Join(t.values, "|")}
	if t.name != "" {
		params = append([]string{t.name}, params...)
	}
	return t.describe("Enum", params...)
}

func (t *EnumType) IsSimilarTo(o FieldType) bool {
	oe, ok := o.(*EnumType)
	if !ok || !t.similarBase(KindEnum, o) || len(oe.set) != len(t.set) {
		return false
	}
	for v := range t.set {
		if !oe.Contains(v) {
			return false
		}
	}
	return true
}

func (t *EnumType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	s, ok := asText(v)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "text")
	}
	if !t.Contains(s) {
		return nil, invalid(CodeInvalidEnum, v, strings.Join(t.values, "|"))
	}
	return s, nil
}

func (t *EnumType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "string")
	}
	if !t.Contains(s) {
		return nil, malformed(CodeInvalidEnum, v, strings.Join(t.values, "|"))
	}
	return s, nil
}

const (
	dateLayout         = "2006-01-02"
	dateTimeLayout     = "2006-01-02 15:04:05"
	dateTimeFracLayout = "2006-01-02 15:04:05.000000"
)

// DateType stores a calendar date as time.Time. Wire form: YYYY-MM-DD.
type DateType struct{ fieldBase }

// Date declares a date field.
func Date(opts ...FieldOpt) *DateType { return &DateType{fieldBase: newBase(true, 0, opts)} }

func (t *DateType) Kind() Kind                   { return KindDate }
func (t *DateType) DefaultValue() any            { return t.defaultValue() }
func (t *DateType) String() string               { return t.describe("Date") }
func (t *DateType) IsSimilarTo(o FieldType) bool { return t.similarBase(KindDate, o) }
func (t *DateType) bindParent(*Schema) FieldType { return t }

func (t *DateType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	tm, ok := v.(time.Time)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "time.Time")
	}
	return tm.Format(dateLayout), nil
}

func (t *DateType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "string")
	}
	tm, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		pe := malformed(CodeInvalidFormat, v, dateLayout)
		pe.Cause = err
		return nil, pe
	}
	return tm, nil
}

// DateTimeType stores a timestamp without zone as time.Time. The wall clock
// of the value is written as is, with microseconds when they are non-zero.
type DateTimeType struct{ fieldBase }

// DateTime declares a timestamp field.
func DateTime(opts ...FieldOpt) *DateTimeType {
	return &DateTimeType{fieldBase: newBase(true, 0, opts)}
}

func (t *DateTimeType) Kind() Kind                   { return KindDateTime }
func (t *DateTimeType) DefaultValue() any            { return t.defaultValue() }
func (t *DateTimeType) String() string               { return t.describe("DateTime") }
func (t *DateTimeType) IsSimilarTo(o FieldType) bool { return t.similarBase(KindDateTime, o) }
func (t *DateTimeType) bindParent(*Schema) FieldType { return t }

func (t *DateTimeType) Dump(v any) (any, error) {
	if done, err := t.dumpNull(v); done {
		return nil, err
	}
	tm, ok := v.(time.Time)
	if !ok {
		return nil, invalid(CodeInvalidType, v, "time.Time")
	}
	if tm.Nanosecond()/1000 != 0 {
		return tm.Format(dateTimeFracLayout), nil
	}
	return tm.Format(dateTimeLayout), nil
}

func (t *DateTimeType) Load(v any) (any, error) {
	if done, err := t.loadNull(v); done {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, malformed(CodeInvalidType, v, "string")
	}
	var lastErr error
	for _, layout := range []string{dateTimeFracLayout, dateTimeLayout} {
		tm, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return tm, nil
		}
		lastErr = err
	}
	pe := malformed(CodeInvalidFormat, v, dateTimeLayout)
	pe.Cause = lastErr
	return nil, pe
}
