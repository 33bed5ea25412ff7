// Package wirejson frames wire trees as JSON text with goccy/go-json.
//
// Decoding keeps numbers as json.Number, rejects duplicate object keys and
// can bound nesting depth and input size. Encoding writes record fields in
// schema order with the schema tag last.
package wirejson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"

	"github.com/reoring/recskema"
)

// Options controls decoding limits. The zero value enforces duplicate keys
// only.
type Options struct {
	MaxDepth           int   // 0 means unlimited
	MaxBytes           int64 // 0 means unlimited
	AllowDuplicateKeys bool
}

// Decoder reads a stream of JSON values.
type Decoder struct {
	dec *j.Decoder
	opt Options
}

// NewDecoder returns a decoder reading from r. The last Options wins.
func NewDecoder(r io.Reader, opts ...Options) *Decoder {
	var opt Options
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.MaxBytes > 0 {
		r = &limitedReader{r: r, left: opt.MaxBytes}
	}
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec, opt: opt}
}

// Decode parses exactly one JSON value.
func Decode(data []byte, opts ...Options) (any, error) {
	d := NewDecoder(bytes.NewReader(data), opts...)
	v, err := d.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, parseError("", "empty input", nil)
		}
		return nil, err
	}
	if _, err := d.dec.Token(); !errors.Is(err, io.EOF) {
		return nil, parseError("", "trailing data after JSON value", err)
	}
	return v, nil
}

// Next returns the next value of the stream, or io.EOF.
func (d *Decoder) Next() (any, error) {
	tok, err := d.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, d.wrap("", err)
	}
	return d.value(tok, "", 0)
}

func (d *Decoder) value(tok any, path string, depth int) (any, error) {
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			return d.object(path, depth+1)
		case '[':
			return d.array(path, depth+1)
		}
		return nil, parseError(path, fmt.Sprintf("unexpected delimiter %q", rune(v)), nil)
	case j.Number:
		return json.Number(v.String()), nil
	case float64:
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64)), nil
	case string, bool, nil:
		return v, nil
	}
	return nil, parseError(path, fmt.Sprintf("unexpected token %T", tok), nil)
}

func (d *Decoder) object(path string, depth int) (any, error) {
	if err := d.checkDepth(path, depth); err != nil {
		return nil, err
	}
	out := map[string]any{}
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.wrap(path, err)
		}
		if delim, ok := tok.(j.Delim); ok && delim == '}' {
			return out, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, parseError(path, fmt.Sprintf("expected object key, got %v", tok), nil)
		}
		child := path + "/" + escape(key)
		if _, dup := out[key]; dup && !d.opt.AllowDuplicateKeys {
			return nil, &recskema.ParseError{Path: child, Field: key, Code: recskema.CodeDuplicateKey, Message: "duplicate key " + strconv.Quote(key)}
		}
		tok, err = d.dec.Token()
		if err != nil {
			return nil, d.wrap(child, err)
		}
		v, err := d.value(tok, child, depth)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
}

func (d *Decoder) array(path string, depth int) (any, error) {
	if err := d.checkDepth(path, depth); err != nil {
		return nil, err
	}
	out := []any{}
	for i := 0; ; i++ {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.wrap(path, err)
		}
		if delim, ok := tok.(j.Delim); ok && delim == ']' {
			return out, nil
		}
		v, err := d.value(tok, path+"/"+strconv.Itoa(i), depth)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (d *Decoder) checkDepth(path string, depth int) error {
	if d.opt.MaxDepth > 0 && depth > d.opt.MaxDepth {
		return parseError(path, "max depth exceeded", nil)
	}
	return nil
}

func (d *Decoder) wrap(path string, err error) error {
	if errors.Is(err, errTooLarge) {
		return parseError(path, "input exceeds max bytes", err)
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return parseError(path, err.Error(), err)
}

func parseError(path, msg string, cause error) *recskema.ParseError {
	return &recskema.ParseError{Path: path, Code: recskema.CodeParseError, Message: msg, Cause: cause}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escape(s string) string { return pointerEscaper.Replace(s) }

var errTooLarge = errors.New("wirejson: input too large")

type limitedReader struct {
	r    io.Reader
	left int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.left <= 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > l.left {
		p = p[:l.left]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	return n, err
}
