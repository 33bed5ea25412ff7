// Package sqlddl generates Postgres CREATE TABLE statements from record
// schemas. Scalars map to native column types; lists, maps and sub-records
// are stored as JSONB holding their wire form.
package sqlddl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/reoring/recskema"
	"github.com/reoring/recskema/graph"
)

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {}, "check": {},
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Ident quotes s when Postgres would otherwise fold or reject it.
func Ident(s string) string {
	if _, kw := reserved[s]; !kw && plainIdent.MatchString(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var (
	camelWord  = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// TableName converts the schema's bare name from CamelCase to snake_case.
func TableName(s *recskema.Schema) string {
	n := camelWord.ReplaceAllString(s.Name(), "${1}_${2}")
	return strings.ToLower(camelUpper.ReplaceAllString(n, "${1}_${2}"))
}

// ColumnType returns the Postgres type of a field.
func ColumnType(ft recskema.FieldType) (string, error) {
	switch ft.Kind() {
	case recskema.KindText, recskema.KindEnum:
		return "TEXT", nil
	case recskema.KindBytes:
		return "BYTEA", nil
	case recskema.KindInteger:
		if ft.Size() == 4 {
			return "INTEGER", nil
		}
		return "BIGINT", nil
	case recskema.KindFloat:
		if ft.Size() == 4 {
			return "REAL", nil
		}
		return "DOUBLE PRECISION", nil
	case recskema.KindBoolean:
		return "BOOLEAN", nil
	case recskema.KindDate:
		return "DATE", nil
	case recskema.KindDateTime:
		return "TIMESTAMP WITHOUT TIME ZONE", nil
	case recskema.KindList, recskema.KindMap, recskema.KindSubRecord:
		return "JSONB", nil
	}
	return "", fmt.Errorf("sqlddl: unsupported field type %s", ft)
}

// Options tunes CreateTable.
type Options struct {
	Table  string // overrides TableName
	Schema string // Postgres schema to qualify the table with
}

// CreateTable renders one CREATE TABLE statement without a trailing
// semicolon. Non-nullable fields get NOT NULL; scalar defaults become
// DEFAULT clauses.
func CreateTable(s *recskema.Schema, opts ...Options) (string, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	table := opt.Table
	if table == "" {
		table = TableName(s)
	}
	name := Ident(table)
	if opt.Schema != "" {
		name = Ident(opt.Schema) + "." + name
	}

	cols := make([]string, 0, s.NumFields())
	for _, f := range s.Fields() {
		typ, err := ColumnType(f.Type)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", s.FullName(), f.Name, err)
		}
		col := Ident(f.Name) + " " + typ
		if !f.Type.Nullable() {
			col += " NOT NULL"
		}
		lit, ok, err := defaultLiteral(f.Type)
		if err != nil {
			return "", fmt.Errorf("sqlddl: %s.%s: %w", s.FullName(), f.Name, err)
		}
		if ok {
			col += " DEFAULT " + lit
		}
		cols = append(cols, col)
	}
	return "CREATE TABLE " + name + " (" + strings.Join(cols, ", ") + ")", nil
}

// CreateTables renders statements for schemas and every schema they
// reference, referenced tables first.
func CreateTables(schemas []*recskema.Schema, opts ...Options) ([]string, error) {
	ordered, err := graph.NewTraverser().ReferenceOrder(schemas)
	if err != nil {
		return nil, err
	}
	var opt Options
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	opt.Table = ""
	out := make([]string, 0, len(ordered))
	for _, s := range ordered {
		stmt, err := CreateTable(s, opt)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func defaultLiteral(ft recskema.FieldType) (string, bool, error) {
	def, ok := ft.Default()
	if !ok || def == nil {
		return "", false, nil
	}
	w, err := ft.Dump(def)
	if err != nil {
		return "", false, err
	}
	switch v := w.(type) {
	case string:
		if ft.Kind() == recskema.KindBytes {
			return "", false, nil
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", true, nil
	case bool:
		if v {
			return "TRUE", true, nil
		}
		return "FALSE", true, nil
	case int64:
		return strconv.FormatInt(v, 10), true, nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true, nil
	}
	return "", false, nil
}
