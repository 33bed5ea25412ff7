package recskema

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AsList returns the elements of a native list value. []any is returned as
// is; other slices and arrays are copied. Strings are not lists.
func AsList(v any) ([]any, bool) {
	if xs, ok := v.([]any); ok {
		return xs, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

// AsMap returns the entries of a native map value with string keys.
// map[string]any is returned as is; other maps are copied.
func AsMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		out[it.Key().String()] = it.Value().Interface()
	}
	return out, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// cloneValue deep copies the container shapes a record can hold so defaults
// and clones never share mutable state.
func cloneValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), x...)
	case *big.Int:
		return new(big.Int).Set(x)
	case *Record:
		return x.Clone()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e := cloneValue(rv.Index(i).Interface())
			if e == nil {
				continue
			}
			out.Index(i).Set(reflect.ValueOf(e))
		}
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		it := rv.MapRange()
		for it.Next() {
			e := cloneValue(it.Value().Interface())
			ev := reflect.Zero(rv.Type().Elem())
			if e != nil {
				ev = reflect.ValueOf(e)
			}
			out.SetMapIndex(it.Key(), ev)
		}
		return out.Interface()
	}
	return v
}

// value ranks give compareValues a total order across unrelated types.
const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankBytes
	rankTime
	rankList
	rankMap
	rankRecord
	rankOther
)

func rankOf(v any) int {
	if isNil(v) {
		return rankNil
	}
	switch v.(type) {
	case bool:
		return rankBool
	case string:
		return rankString
	case []byte:
		return rankBytes
	case time.Time:
		return rankTime
	case *Record:
		return rankRecord
	case *big.Int:
		return rankNumber
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return rankNumber
	case reflect.Bool:
		return rankBool
	case reflect.String:
		return rankString
	case reflect.Slice, reflect.Array:
		return rankList
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return rankMap
		}
	}
	return rankOther
}

// compareValues orders two native values. Integers of any width compare by
// value, and so do floats against integers.
func compareValues(a, b any) int {
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch ra {
	case rankNil:
		return 0
	case rankBool:
		x, _ := asBool(a)
		y, _ := asBool(b)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case rankNumber:
		return compareNumbers(a, b)
	case rankString:
		x, _ := asText(a)
		y, _ := asText(b)
		return strings.Compare(x, y)
	case rankBytes:
		return bytes.Compare(a.([]byte), b.([]byte))
	case rankTime:
		return compareWallClock(a.(time.Time), b.(time.Time))
	case rankList:
		xs, _ := AsList(a)
		ys, _ := AsList(b)
		for i := 0; i < len(xs) && i < len(ys); i++ {
			if c := compareValues(xs[i], ys[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(xs), len(ys))
	case rankMap:
		xm, _ := AsMap(a)
		ym, _ := AsMap(b)
		xk, yk := sortedKeys(xm), sortedKeys(ym)
		for i := 0; i < len(xk) && i < len(yk); i++ {
			if c := strings.Compare(xk[i], yk[i]); c != 0 {
				return c
			}
			if c := compareValues(xm[xk[i]], ym[yk[i]]); c != 0 {
				return c
			}
		}
		return cmpInt(len(xk), len(yk))
	case rankRecord:
		return a.(*Record).Compare(b.(*Record))
	}
	if reflect.DeepEqual(a, b) {
		return 0
	}
	return strings.Compare(fmt.Sprintf("%T:%v", a, a), fmt.Sprintf("%T:%v", b, b))
}

func compareNumbers(a, b any) int {
	ai, aInt := nativeInt(a)
	bi, bInt := nativeInt(b)
	if aInt && bInt {
		return toBig(ai).Cmp(toBig(bi))
	}
	x, _ := nativeFloat(a)
	y, _ := nativeFloat(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func toBig(n any) *big.Int {
	if b, ok := n.(*big.Int); ok {
		return b
	}
	return big.NewInt(n.(int64))
}

// compareWallClock treats timestamps as zone-less with microsecond
// resolution, which is how the wire carries them.
func compareWallClock(a, b time.Time) int {
	return wallClock(a).Compare(wallClock(b))
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000*1000, time.UTC)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatValue renders a native value for Record.String.
func formatValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("nil")
	case string:
		b.WriteString(strconv.Quote(x))
	case []byte:
		fmt.Fprintf(b, "b%q", x)
	case time.Time:
		b.WriteString(x.Format(dateTimeFracLayout))
	case *Record:
		b.WriteString(x.String())
	case *big.Int:
		b.WriteString(x.String())
	default:
		if rankOf(v) == rankList {
			xs, _ := AsList(v)
			b.WriteByte('[')
			for i, e := range xs {
				if i > 0 {
					b.WriteString(", ")
				}
				formatValue(b, e)
			}
			b.WriteByte(']')
			return
		}
		if rankOf(v) == rankMap {
			m, _ := AsMap(v)
			b.WriteByte('{')
			for i, k := range sortedKeys(m) {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(strconv.Quote(k))
				b.WriteString(": ")
				formatValue(b, m[k])
			}
			b.WriteByte('}')
			return
		}
		fmt.Fprintf(b, "%v", v)
	}
}
