package recskema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/recskema/i18n"
)

// Issue codes.
const (
	CodeInvalidType    = "invalid_type"
	CodeInvalidValue   = "invalid_value"
	CodeInvalidEnum    = "invalid_enum"
	CodeInvalidFormat  = "invalid_format"
	CodeNoDefault      = "no_default"
	CodeNullNotAllowed = "null_not_allowed"
	CodeUnknownKey     = "unknown_key"
	CodeSchemaMissing  = "schema_missing"
	CodeSchemaUnknown  = "schema_unknown"
	CodeSchemaMismatch = "schema_mismatch"
	CodeSchemaConflict = "schema_conflict"
	CodeDuplicateKey   = "duplicate_key"
	CodeParseError     = "parse_error"
)

// ErrSchemaNotFound is returned by Store.Get when no descriptor answers to a name.
var ErrSchemaNotFound = errors.New("recskema: schema not found")

// ErrInvalidSchema is wrapped by Declare for malformed declarations.
var ErrInvalidSchema = errors.New("recskema: invalid schema declaration")

// Issue represents a single entry of the stable error model.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Field   string // Innermost record field involved, when known.
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	// Params carries structured parameters (e.g. {"got": "string"}).
	Params map[string]any
}

// Issues is a collection of issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IssuesOf converts any error returned by this module into Issues.
// Unknown errors become a single parse_error issue at the root.
func IssuesOf(err error) Issues {
	if err == nil {
		return nil
	}
	if iss, ok := AsIssues(err); ok {
		return iss
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return Issues{ve.Issue()}
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return Issues{pe.Issue()}
	}
	var ce *SchemaConflictError
	if errors.As(err, &ce) {
		return Issues{{Path: "/", Code: CodeSchemaConflict, Message: ce.Error(), Cause: err}}
	}
	return Issues{{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err}}
}

// ValidationError reports a native value that a field type cannot serialize.
type ValidationError struct {
	Path    string // JSON Pointer relative to the value passed to Dump/ToWire.
	Field   string
	Code    string
	Value   any
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recskema: validation failed: %s at %s: %s", e.Code, rootPath(e.Path), e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Issue converts the error into the Issue model.
func (e *ValidationError) Issue() Issue {
	return Issue{
		Path:    rootPath(e.Path),
		Field:   e.Field,
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Params:  map[string]any{"got": fmt.Sprintf("%T", e.Value)},
	}
}

// ParseError reports a wire value that a field type or the record engine
// cannot deserialize.
type ParseError struct {
	Path    string
	Field   string
	Code    string
	Value   any
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recskema: parse failed: %s at %s: %s", e.Code, rootPath(e.Path), e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Issue converts the error into the Issue model.
func (e *ParseError) Issue() Issue {
	return Issue{
		Path:    rootPath(e.Path),
		Field:   e.Field,
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Params:  map[string]any{"got": fmt.Sprintf("%T", e.Value)},
	}
}

// SchemaConflictError is returned when a bare name is claimed by more than one
// namespaced schema and a lookup cannot pick one.
type SchemaConflictError struct {
	Name       string
	Candidates []string
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("recskema: schema name %q is ambiguous (candidates: %s); use a full name", e.Name, strings.Join(e.Candidates, ", "))
}

// AttributeError is returned when a record is asked for a field its schema
// does not declare.
type AttributeError struct {
	Schema string
	Name   string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("recskema: %s has no field %q", e.Schema, e.Name)
}

func invalid(code string, v any, expected string) *ValidationError {
	return &ValidationError{Code: code, Value: v, Message: message(code, expected)}
}

func malformed(code string, v any, expected string) *ParseError {
	return &ParseError{Code: code, Value: v, Message: message(code, expected)}
}

func message(code, expected string) string {
	if expected == "" {
		return i18n.T(code, nil)
	}
	return i18n.T(code, map[string]string{"expected": expected})
}

// rebase prefixes a pointer segment onto an error raised for a child value.
// field is recorded only when the child did not already name one.
func rebase(err error, seg, field string) error {
	switch e := err.(type) {
	case *ValidationError:
		c := *e
		c.Path = "/" + escapePointer(seg) + c.Path
		if c.Field == "" {
			c.Field = field
		}
		return &c
	case *ParseError:
		c := *e
		c.Path = "/" + escapePointer(seg) + c.Path
		if c.Field == "" {
			c.Field = field
		}
		return &c
	}
	return err
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(seg string) string { return pointerEscaper.Replace(seg) }

func rootPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
