// Package recskema declares typed record schemas and converts record
// instances to and from a JSON-compatible value tree.
//
// A schema is an ordered list of named field types:
//
//	Point := recskema.MustDeclare("Point", []recskema.Field{
//		{Name: "x", Type: recskema.Integer(recskema.NotNull())},
//		{Name: "y", Type: recskema.Integer(recskema.NotNull())},
//	})
//	p := Point.MustNew(recskema.Values{"x": 1, "y": 2})
//	tree, err := recskema.ToWire(p) // {"x": 1, "y": 2, "$schema": "Point"}
//	back, err := recskema.FromWire(tree)
//
// Declared schemas register in a Store (Default unless WithStore or
// WithoutRegistration is given). FromWire resolves the "$schema" tag through
// that store. Self-referential schemas use SubRecord(Self).
//
// Errors:
//   - *ValidationError from ToWire and FieldType.Dump
//   - *ParseError from FromWire and FieldType.Load
//   - *SchemaConflictError from Store.Get on an ambiguous bare name
//   - *AttributeError for unknown field names
//
// All of them carry a stable code and convert to Issues with IssuesOf.
//
// Exporters live in sub-packages: jsonschema, avro, sqlddl. The graph package
// orders schemas by reference, schemafile reads YAML declarations and
// archive stores records in a bbolt file. The CLI is cmd/recskema.
package recskema
